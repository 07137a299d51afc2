// config/duration.go
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseDurationFlexible accepts strings like "90s"/"2m", numeric seconds, or
// time.Duration. Returns def on empty/unknown types and def + error on
// invalid input. Zero is rejected unless allowZero is set; negatives always are.
func parseDurationFlexible(raw any, def time.Duration, allowZero bool) (time.Duration, error) {
	check := func(d time.Duration) (time.Duration, error) {
		if d < 0 || (d == 0 && !allowZero) {
			return def, fmt.Errorf("duration must be >0, got %s", d)
		}
		return d, nil
	}

	switch t := raw.(type) {
	case time.Duration:
		return check(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return def, nil
		}
		if d, err := time.ParseDuration(s); err == nil {
			return check(d)
		}
		// Plain seconds in string form, e.g. "120"
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return check(time.Duration(n) * time.Second)
		}
		return def, fmt.Errorf("cannot parse duration %q", s)
	case int:
		return check(time.Duration(t) * time.Second)
	case int32:
		return check(time.Duration(t) * time.Second)
	case int64:
		return check(time.Duration(t) * time.Second)
	case float64:
		return check(time.Duration(t * float64(time.Second)))
	default:
		// nil, bool, ...: use default, no error
		return def, nil
	}
}
