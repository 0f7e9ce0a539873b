package config

import (
	"fmt"
	"time"
)

const defaultShutdownTimeout = 10 * time.Second

// Duration is a time.Duration written as "30s" or "1m30s" in YAML.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalYAML accepts a duration string or a whole number of seconds.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(time.Duration(v) * time.Second)
	case int64:
		*d = Duration(time.Duration(v) * time.Second)
	case uint64:
		*d = Duration(time.Duration(v) * time.Second) // #nosec G115 -- config values are small
	default:
		return fmt.Errorf("invalid duration %v (want a string like \"30s\")", raw)
	}
	return nil
}

// MarshalYAML writes d in time.Duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}
