package accounting

import (
	"fmt"
	"time"
)

// FormatDuration renders a duration as hours and minutes for display,
// rounding to the nearest minute. Negative inputs keep their sign.
func FormatDuration(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	if h == 0 {
		return fmt.Sprintf("%s%dm", sign, m)
	}
	return fmt.Sprintf("%s%dh %02dm", sign, h, m)
}

// FormatClock renders a timestamp as a local wall-clock time.
func FormatClock(t time.Time) string {
	return t.Local().Format("15:04")
}
