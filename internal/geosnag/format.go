package geosnag

import (
	"fmt"
	"time"
)

// FormatDelta renders a signed delta as "+1h02m03s", "-4m05s" or "+9s".
func FormatDelta(d time.Duration) string {
	total := int64(d / time.Second)
	sign := "+"
	if total < 0 {
		sign = "-"
		total = -total
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%s%dh%02dm%02ds", sign, hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%s%dm%02ds", sign, minutes, seconds)
	default:
		return fmt.Sprintf("%s%ds", sign, seconds)
	}
}
