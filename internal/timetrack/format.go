package timetrack

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// FormatClock renders d as HH:MM:SS; hours may exceed two digits.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
}

// FormatDuration renders d compactly: "45s", "12m", "1h 05m".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d / time.Second)
	switch {
	case s < 60:
		return fmt.Sprintf("%ds", s)
	case s < 3600:
		return fmt.Sprintf("%dm", s/60)
	}
	return fmt.Sprintf("%dh %02dm", s/3600, (s/60)%60)
}

func FormatHours(seconds int64) string {
	return fmt.Sprintf("%.2fh", float64(seconds)/3600)
}

var unitPart = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([hms])`)

// ParseDuration accepts "1h30m", "90m", "1.5h", "45 s" or a bare number of
// minutes.
func ParseDuration(s string) (time.Duration, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	if in == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if f, err := strconv.ParseFloat(in, 64); err == nil {
		if f <= 0 {
			return 0, fmt.Errorf("duration must be positive: %q", s)
		}
		return time.Duration(f * float64(time.Minute)), nil
	}
	matches := unitPart.FindAllStringSubmatchIndex(in, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	var total time.Duration
	covered := 0
	for _, m := range matches {
		if strings.TrimSpace(in[covered:m[0]]) != "" {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		f, _ := strconv.ParseFloat(in[m[2]:m[3]], 64)
		switch in[m[4]:m[5]] {
		case "h":
			total += time.Duration(f * float64(time.Hour))
		case "m":
			total += time.Duration(f * float64(time.Minute))
		case "s":
			total += time.Duration(f * float64(time.Second))
		}
		covered = m[1]
	}
	if strings.TrimSpace(in[covered:]) != "" {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if total <= 0 {
		return 0, fmt.Errorf("duration must be positive: %q", s)
	}
	return total, nil
}
