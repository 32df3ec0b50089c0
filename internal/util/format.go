package util //nolint:revive // package name util hosts shared formatting helpers for operator output

import (
	"fmt"
	"time"
)

// FormatDurationHuman renders a remaining lifetime coarsely: "3d4h", "2h5m", "45s".
// Zero or negative durations render as "expired".
func FormatDurationHuman(d time.Duration) string {
	switch {
	case d <= 0:
		return "expired"
	case d < time.Minute:
		return d.Truncate(time.Second).String()
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh%dm", int(d/time.Hour), int(d%time.Hour/time.Minute))
	default:
		days := int(d / (24 * time.Hour))
		return fmt.Sprintf("%dd%dh", days, int(d%(24*time.Hour)/time.Hour))
	}
}
