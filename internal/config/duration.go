package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration-typed settings (qotd.tick_interval, telegram.poll_timeout,
// scheduler.default_timeout, storage.busy_timeout) are stored as Go duration
// strings so the JSON stays readable. The helpers below carry the config path
// into the error, so a bad value names the field it came from.

// ParseDurationField parses raw. Empty means unset and yields zero; negative
// durations are rejected.
func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with def substituted for an
// unset (or zero) value.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
