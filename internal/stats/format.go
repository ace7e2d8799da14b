package stats

import (
	"fmt"
	"time"
)

// byteUnits are the binary unit suffixes used by SizeOf.
var byteUnits = []string{"b", "KB", "MB", "GB", "TB", "PB", "EB", "ZB"}

// SizeOf formats a byte count with 1024-based suffixes and one decimal,
// for example "0.0b", "1.5KB" or "1.0PB". Values beyond ZB use "YB".
func SizeOf(bytes uint64) string {
	num := float64(bytes)
	for _, unit := range byteUnits {
		if num < 1024.0 {
			return fmt.Sprintf("%3.1f%s", num, unit)
		}
		num /= 1024.0
	}
	return fmt.Sprintf("%3.1f%s", num, "YB")
}

// FormatDuration formats a duration in a human-readable format.
// Returns formats like "2d 1h 23m 45s", "1h 23m 45s", "23m 45s", or "45s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "0s"
	}

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
