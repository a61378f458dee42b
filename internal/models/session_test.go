package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clockIn = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func openSession() *WorkSession {
	in := clockIn
	return &WorkSession{ID: "ws-1", ClockInTime: &in, ProjectTasks: map[string]string{}}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestState(t *testing.T) {
	ws := openSession()
	assert.Equal(t, StateWorking, ws.State())

	require.True(t, ws.StartBreak(clockIn.Add(3*time.Hour)))
	assert.Equal(t, StateOnBreak, ws.State())

	require.True(t, ws.EndBreak(clockIn.Add(4*time.Hour)))
	assert.Equal(t, StateWorking, ws.State())

	require.True(t, ws.Close(clockIn.Add(8*time.Hour)))
	assert.Equal(t, StateClosed, ws.State())
}

func TestStartBreak(t *testing.T) {
	ws := openSession()

	require.True(t, ws.StartBreak(clockIn.Add(time.Hour)))
	assert.True(t, ws.OnBreak)
	require.Len(t, ws.Breaks, 1)
	assert.Nil(t, ws.Breaks[0].End)

	// Starting again while on break is a no-op
	assert.False(t, ws.StartBreak(clockIn.Add(2*time.Hour)))
	assert.Len(t, ws.Breaks, 1)

	// And on a closed session
	ws2 := openSession()
	require.True(t, ws2.Close(clockIn.Add(8*time.Hour)))
	assert.False(t, ws2.StartBreak(clockIn.Add(9*time.Hour)))
}

func TestEndBreak(t *testing.T) {
	ws := openSession()

	// No break open
	assert.False(t, ws.EndBreak(clockIn.Add(time.Hour)))

	require.True(t, ws.StartBreak(clockIn.Add(time.Hour)))
	require.True(t, ws.EndBreak(clockIn.Add(90*time.Minute)))
	assert.False(t, ws.OnBreak)
	require.Len(t, ws.Breaks, 1)
	require.NotNil(t, ws.Breaks[0].End)
	assert.Equal(t, 30*time.Minute, ws.Breaks[0].Duration())

	// Ending twice is a no-op
	assert.False(t, ws.EndBreak(clockIn.Add(2*time.Hour)))
}

// Callers skip persisting when EndBreak reports no change, so the no-op
// path must leave the session exactly as it found it.
func TestEndBreak_NoOpLeavesSessionUntouched(t *testing.T) {
	ws := openSession()
	ws.OnBreak = true // drifted flag with no open break backing it

	assert.False(t, ws.EndBreak(clockIn.Add(time.Hour)))
	assert.True(t, ws.OnBreak)
	assert.Empty(t, ws.Breaks)
}

func TestClose_ForcesOpenBreakClosed(t *testing.T) {
	ws := openSession()
	require.True(t, ws.StartBreak(clockIn.Add(3*time.Hour)))

	out := clockIn.Add(8 * time.Hour)
	require.True(t, ws.Close(out))

	assert.Equal(t, StateClosed, ws.State())
	assert.False(t, ws.OnBreak)
	require.Len(t, ws.Breaks, 1)
	require.NotNil(t, ws.Breaks[0].End)
	assert.True(t, ws.Breaks[0].End.Equal(out), "open break should end at clock-out time")
	assert.NoError(t, ws.Validate())

	// Closing an already-closed session is a no-op
	assert.False(t, ws.Close(out.Add(time.Hour)))
}

func TestOpenBreak(t *testing.T) {
	ws := openSession()
	assert.Nil(t, ws.OpenBreak())

	require.True(t, ws.StartBreak(clockIn.Add(time.Hour)))
	b := ws.OpenBreak()
	require.NotNil(t, b)
	assert.True(t, b.Start.Equal(clockIn.Add(time.Hour)))

	require.True(t, ws.EndBreak(clockIn.Add(2*time.Hour)))
	assert.Nil(t, ws.OpenBreak())
}

func TestValidate(t *testing.T) {
	t.Run("clean lifecycle", func(t *testing.T) {
		ws := openSession()
		assert.NoError(t, ws.Validate())
		ws.StartBreak(clockIn.Add(time.Hour))
		assert.NoError(t, ws.Validate())
		ws.EndBreak(clockIn.Add(2 * time.Hour))
		assert.NoError(t, ws.Validate())
		ws.Close(clockIn.Add(8 * time.Hour))
		assert.NoError(t, ws.Validate())
	})

	t.Run("clock-out before clock-in", func(t *testing.T) {
		ws := openSession()
		ws.ClockOutTime = timePtr(clockIn.Add(-time.Hour))
		err := ws.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvariantViolation))
	})

	t.Run("clock-out without clock-in", func(t *testing.T) {
		ws := &WorkSession{ClockOutTime: timePtr(clockIn)}
		err := ws.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvariantViolation))
	})

	t.Run("on-break flag disagrees with breaks", func(t *testing.T) {
		ws := openSession()
		ws.OnBreak = true
		err := ws.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvariantViolation))
	})

	t.Run("open break not last", func(t *testing.T) {
		ws := openSession()
		ws.Breaks = []BreakInterval{
			{Start: clockIn.Add(time.Hour)}, // open
			{Start: clockIn.Add(2 * time.Hour), End: timePtr(clockIn.Add(3 * time.Hour))},
		}
		err := ws.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvariantViolation))
	})

	t.Run("closed session with open break", func(t *testing.T) {
		ws := openSession()
		ws.ClockOutTime = timePtr(clockIn.Add(8 * time.Hour))
		ws.Breaks = []BreakInterval{{Start: clockIn.Add(time.Hour)}}
		ws.OnBreak = true
		err := ws.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvariantViolation))
	})

	t.Run("break ends before it starts", func(t *testing.T) {
		ws := openSession()
		ws.Breaks = []BreakInterval{
			{Start: clockIn.Add(2 * time.Hour), End: timePtr(clockIn.Add(time.Hour))},
		}
		err := ws.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvariantViolation))
	})
}

func TestBreakIntervalDuration(t *testing.T) {
	open := BreakInterval{Start: clockIn}
	assert.Equal(t, time.Duration(0), open.Duration())

	closed := BreakInterval{Start: clockIn, End: timePtr(clockIn.Add(45 * time.Minute))}
	assert.Equal(t, 45*time.Minute, closed.Duration())
}
