package common

import (
	"fmt"
	"strings"
	"time"

	iso8601 "github.com/senseyeio/duration"
)

// ParseDuration accepts a Go duration ("45s", "1m30s") or an ISO 8601
// duration ("PT45S").
func ParseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if len(value) == 0 {
		return 0, fmt.Errorf("duration is empty")
	}

	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed, nil
	}

	if parsed, err := iso8601.ParseISO8601(value); err == nil {
		reference := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
		return parsed.Shift(reference).Sub(reference), nil
	}

	return 0, fmt.Errorf("invalid duration %q: expected a duration such as 30s or PT30S", value)
}

// FormatDurationRemaining renders d as "1 hour, 2 minutes". Anything below a
// second is reported as "less than a second".
func FormatDurationRemaining(d time.Duration) string {
	if d < time.Second {
		return "less than a second"
	}

	units := []struct {
		size time.Duration
		name string
	}{
		{24 * time.Hour, "day"},
		{time.Hour, "hour"},
		{time.Minute, "minute"},
		{time.Second, "second"},
	}

	var parts []string
	for _, unit := range units {
		count := int(d / unit.size)
		if count == 0 {
			continue
		}
		d -= time.Duration(count) * unit.size

		if count == 1 {
			parts = append(parts, "1 "+unit.name)
		} else {
			parts = append(parts, fmt.Sprintf("%d %ss", count, unit.name))
		}
	}

	return strings.Join(parts, ", ")
}
