package service

import (
	"fmt"
	"time"
)

// AdvanceWindow bounds how far in the future a watch may be scheduled.
// Both bounds are relative to now; Min is typically minutes, Max hours or
// days, taken from guild settings.
type AdvanceWindow struct {
	Min time.Duration
	Max time.Duration
}

// ValidateAdvance checks a UTC instant against the advance window. Pure and
// timezone-independent: both bounds are compared in UTC. The boundaries are
// inclusive: exactly now+Min and exactly now+Max are both valid.
func ValidateAdvance(t, now time.Time, window AdvanceWindow) error {
	if t.Before(now.Add(window.Min)) {
		return &ValidationError{
			Reason: fmt.Sprintf("scheduled time must be at least %s in the future", formatDuration(window.Min)),
		}
	}
	if t.After(now.Add(window.Max)) {
		return &ValidationError{
			Reason: fmt.Sprintf("scheduled time must be at most %s in the future", formatDuration(window.Max)),
		}
	}
	return nil
}

func formatDuration(d time.Duration) string {
	if d >= 24*time.Hour && d%(24*time.Hour) == 0 {
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	if d >= time.Hour && d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	minutes := int(d / time.Minute)
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
