package lockout

import (
	"strconv"
	"strings"
)

const (
	ticksPerMinute = 2
	ticksPerHour   = 120
)

// FormatSkew describes a drift of ticks in words, for example
// "1 hour, 2 minutes and 30 seconds behind.". Positive means the device is
// ahead of the server.
func FormatSkew(ticks int64) string {
	if ticks == 0 {
		return "Same time."
	}

	direction := "ahead."
	if ticks < 0 {
		direction = "behind."
		ticks = -ticks
	}

	hours := ticks / ticksPerHour
	minutes := ticks % ticksPerHour / ticksPerMinute
	halfMinute := ticks%ticksPerMinute == 1

	var parts []string
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if halfMinute {
		parts = append(parts, "30 seconds")
	}

	return joinParts(parts) + " " + direction
}

func plural(n int64, unit string) string {
	s := strconv.FormatInt(n, 10) + " " + unit
	if n != 1 {
		s += "s"
	}
	return s
}

// joinParts renders "a", "a and b" or "a, b and c".
func joinParts(parts []string) string {
	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}
