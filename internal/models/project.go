package models

import "time"

// Project is a billing/tagging target for work sessions. Sessions reference
// projects by id only; deleting a project leaves historical sessions with a
// stale id, which accounting and export render as "Unknown Project".
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
