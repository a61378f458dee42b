package store

import (
	"context"
	"time"

	"github.com/jhenke/punch/internal/models"
)

// SessionFilter specifies filters for listing work sessions.
type SessionFilter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

// Store defines the persistence interface for punch.
type Store interface {
	// Work sessions
	CreateSession(ctx context.Context, s *models.WorkSession) error
	GetSession(ctx context.Context, id string) (*models.WorkSession, error)
	// GetActiveSession returns the session with clock_out_time unset, or
	// (nil, nil) when none exists. The lookup is by the null column, not by
	// recency: the registry guarantees at most one such row.
	GetActiveSession(ctx context.Context) (*models.WorkSession, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]*models.WorkSession, error)
	UpdateSession(ctx context.Context, s *models.WorkSession) error
	DeleteSession(ctx context.Context, id string) error

	// Projects
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	GetProjectByName(ctx context.Context, name string) (*models.Project, error)
	ListProjects(ctx context.Context, includeArchived bool) ([]*models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project) error
	DeleteProject(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
