package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// LookupFunc reads one environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// EnvPrefix marks cvexport environment variables.
const EnvPrefix = "CVEXPORT_"

// Variables read outside the CVEXPORT_ namespace.
const (
	EnvPort          = "PORT"
	EnvRodBrowserBin = "ROD_BROWSER_BIN"
	EnvRodNoSandbox  = "ROD_NO_SANDBOX"
)

// EnvDebugMaxprocs enables automaxprocs logging. It is read by the command
// before any config loads, so it has no config field.
const EnvDebugMaxprocs = "CVEXPORT_DEBUG_MAXPROCS"

// envSetter applies one raw value to the config.
type envSetter func(c *Config, raw string) error

// envVars maps each recognised variable to its field. Values set here
// override the YAML file.
var envVars = map[string]envSetter{
	EnvPort: func(c *Config, v string) error { return setInt(&c.Server.Port, v) },
	EnvRodBrowserBin: func(c *Config, v string) error {
		c.Browser.Bin = v
		return nil
	},
	EnvRodNoSandbox:  func(c *Config, v string) error { return setBool(&c.Browser.NoSandbox, v) },
	EnvDebugMaxprocs: func(*Config, string) error { return nil },

	"CVEXPORT_HOST":       func(c *Config, v string) error { c.Server.Host = v; return nil },
	"CVEXPORT_PUBLIC_DIR": func(c *Config, v string) error { c.Server.PublicDir = v; return nil },
	"CVEXPORT_LOG_LEVEL":  func(c *Config, v string) error { c.Log.Level = strings.ToLower(v); return nil },

	"CVEXPORT_MODE":   func(c *Config, v string) error { c.Export.Mode = strings.ToLower(v); return nil },
	"CVEXPORT_FORMAT": func(c *Config, v string) error { c.Export.Format = strings.ToLower(v); return nil },
	"CVEXPORT_ENGINE": func(c *Config, v string) error { c.Browser.Engine = strings.ToLower(v); return nil },

	"CVEXPORT_ORIGIN":           func(c *Config, v string) error { c.Export.Origin = v; return nil },
	"CVEXPORT_RESUME_PATH":      func(c *Config, v string) error { c.Export.ResumePath = v; return nil },
	"CVEXPORT_SELECTOR":         func(c *Config, v string) error { c.Export.Selector = v; return nil },
	"CVEXPORT_NAV_TIMEOUT":      func(c *Config, v string) error { return setDuration(&c.Export.NavigationTimeout, v) },
	"CVEXPORT_SELECTOR_TIMEOUT": func(c *Config, v string) error { return setDuration(&c.Export.SelectorTimeout, v) },
	"CVEXPORT_MAX_CONCURRENT":   func(c *Config, v string) error { return setInt(&c.Export.MaxConcurrent, v) },
	"CVEXPORT_FILENAME":         func(c *Config, v string) error { c.Export.FilenameBase = v; return nil },

	"CVEXPORT_STATIC_BACKEND": func(c *Config, v string) error { c.Static.Backend = strings.ToLower(v); return nil },
	"CVEXPORT_STATIC_DIR":     func(c *Config, v string) error { c.Static.Dir = v; return nil },
	"CVEXPORT_STATIC_KEY":     func(c *Config, v string) error { c.Static.Key = v; return nil },
	"CVEXPORT_S3_BUCKET":      func(c *Config, v string) error { c.Static.S3.Bucket = v; return nil },
	"CVEXPORT_S3_REGION":      func(c *Config, v string) error { c.Static.S3.Region = v; return nil },
	"CVEXPORT_S3_PREFIX":      func(c *Config, v string) error { c.Static.S3.Prefix = v; return nil },
	"CVEXPORT_S3_ENDPOINT":    func(c *Config, v string) error { c.Static.S3.Endpoint = v; return nil },

	"CVEXPORT_PAGE_ENABLED": func(c *Config, v string) error { return setBool(&c.Page.Enabled, v) },
	"CVEXPORT_PAGE_EMAIL":   func(c *Config, v string) error { c.Page.Email = v; return nil },
	"CVEXPORT_PAGE_UPDATED": func(c *Config, v string) error { c.Page.Updated = v; return nil },
}

// ApplyEnv overrides fields from the environment. Empty values are
// ignored so an unset-but-exported variable does not blank a field.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	names := make([]string, 0, len(envVars))
	for name := range envVars {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		raw, ok := lookup(name)
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			continue
		}
		if err := envVars[name](c, raw); err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrEnvInvalid, name, raw, err)
		}
	}
	return nil
}

// UnknownEnvVars returns CVEXPORT_* names in environ that nothing reads,
// which usually means a typo.
func UnknownEnvVars(environ []string) []string {
	var unknown []string
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		if _, ok := envVars[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown
}

func setInt(dst *int, raw string) error {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setBool(dst *bool, raw string) error {
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func setDuration(dst *Duration, raw string) error {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*dst = Duration(d)
	return nil
}
