package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhenke/punch/internal/models"
)

// Fixtures use the local zone since rows render local wall-clock times.
var nineAM = time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)

func timePtr(t time.Time) *time.Time { return &t }

func closedSession(in time.Time) *models.WorkSession {
	start := in
	return &models.WorkSession{
		ID:           "ws-" + in.Format("0102"),
		ClockInTime:  &start,
		ClockOutTime: timePtr(in.Add(9 * time.Hour)),
		Breaks: []models.BreakInterval{
			{Start: in.Add(3 * time.Hour), End: timePtr(in.Add(4 * time.Hour))},
		},
	}
}

func TestBuildRows(t *testing.T) {
	projects := []*models.Project{
		{ID: "p1", Name: "acme-website"},
	}

	newer := closedSession(nineAM.AddDate(0, 0, 1))
	older := closedSession(nineAM)
	older.ProjectTasks = map[string]string{"p1": "landing page"}

	// Input newest-first, as the store lists them
	rows := BuildRows([]*models.WorkSession{newer, older}, projects, 8*time.Hour)
	require.Len(t, rows, 2)

	// Output oldest-first
	assert.Equal(t, "2026-03-02", rows[0].Date)
	assert.Equal(t, "Monday", rows[0].Weekday)
	assert.Equal(t, "09:00", rows[0].ClockIn)
	assert.Equal(t, "18:00", rows[0].ClockOut)
	assert.Equal(t, "1h 00m", rows[0].BreakDuration)
	assert.Equal(t, "8h 00m", rows[0].WorkedDuration)
	assert.Equal(t, "0m", rows[0].OvertimeDuration)
	assert.Equal(t, "acme-website: landing page", rows[0].TaskSummary)

	assert.Equal(t, "2026-03-03", rows[1].Date)
	assert.Empty(t, rows[1].TaskSummary)
}

func TestBuildRows_OpenSession(t *testing.T) {
	in := nineAM
	open := &models.WorkSession{ID: "ws-open", ClockInTime: &in}

	rows := BuildRows([]*models.WorkSession{open}, nil, 8*time.Hour)
	require.Len(t, rows, 1)

	// Duration cells stay empty until clock-out
	assert.Equal(t, "09:00", rows[0].ClockIn)
	assert.Empty(t, rows[0].ClockOut)
	assert.Empty(t, rows[0].WorkedDuration)
	assert.Empty(t, rows[0].OvertimeDuration)
	assert.Equal(t, "0m", rows[0].BreakDuration)
}

func TestBuildRows_SkipsSessionsWithoutClockIn(t *testing.T) {
	rows := BuildRows([]*models.WorkSession{{ID: "corrupt"}}, nil, 8*time.Hour)
	assert.Empty(t, rows)
}

func TestBuildRows_UnknownProject(t *testing.T) {
	ws := closedSession(nineAM)
	ws.ProjectTasks = map[string]string{"deleted-id": "old work"}

	rows := BuildRows([]*models.WorkSession{ws}, nil, 8*time.Hour)
	require.Len(t, rows, 1)
	assert.Equal(t, "Unknown Project: old work", rows[0].TaskSummary)
}

func TestWriteCSV(t *testing.T) {
	ws := closedSession(nineAM)
	rows := BuildRows([]*models.WorkSession{ws}, nil, 8*time.Hour)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Date", "Weekday", "Clock In", "Clock Out", "Break", "Worked", "Overtime", "Tasks"}, records[0])
	assert.Equal(t, "2026-03-02", records[1][0])
	assert.Equal(t, "8h 00m", records[1][5])
}

func TestWriteJSON(t *testing.T) {
	ws := closedSession(nineAM)
	rows := BuildRows([]*models.WorkSession{ws}, nil, 8*time.Hour)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, rows))

	var doc struct {
		ExportedAt string `json:"exported_at"`
		Count      int    `json:"count"`
		Rows       []Row  `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.NotEmpty(t, doc.ExportedAt)
	assert.Equal(t, 1, doc.Count)
	require.Len(t, doc.Rows, 1)
	assert.Equal(t, "09:00", doc.Rows[0].ClockIn)
}
