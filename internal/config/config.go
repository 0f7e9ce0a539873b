// Package config loads cvexport settings from YAML, .env files and the
// environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	cvexport "github.com/nchhillar/cvexport"
	"github.com/nchhillar/cvexport/internal/dateutil"
	"github.com/nchhillar/cvexport/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrConfigInvalid   = errors.New("invalid config")
	ErrEnvInvalid      = errors.New("invalid environment override")
)

// Storage backends for the static variant.
const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

// Config holds all settings for the export service.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Export  ExportConfig  `yaml:"export"`
	Browser BrowserConfig `yaml:"browser"`
	Static  StaticConfig  `yaml:"static"`
	Page    PageConfig    `yaml:"page"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port" validate:"min=1,max=65535"`
	PublicDir       string   `yaml:"publicDir"` // served under /public, empty = disabled
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
	Metrics         bool     `yaml:"metrics"`
}

// ExportConfig selects and tunes the exporter variant.
type ExportConfig struct {
	Mode              string   `yaml:"mode" validate:"oneof=dynamic static"`
	Format            string   `yaml:"format" validate:"oneof=pdf jpeg jpg"`
	Origin            string   `yaml:"origin" validate:"omitempty,url"` // fixed origin, empty = request origin
	ResumePath        string   `yaml:"resumePath" validate:"required,startswith=/"`
	Selector          string   `yaml:"selector" validate:"required,max=200"`
	NavigationTimeout Duration `yaml:"navigationTimeout"`
	SelectorTimeout   Duration `yaml:"selectorTimeout"`
	MaxConcurrent     int      `yaml:"maxConcurrent"` // 0 unbounded, <0 auto
	FilenameBase      string   `yaml:"filenameBase" validate:"required,max=100"`
	Scale             float64  `yaml:"scale" validate:"gte=0.1,lte=2"`
	MarginMM          float64  `yaml:"marginMM" validate:"gte=0,lte=50"`
	Quality           int      `yaml:"quality" validate:"min=1,max=100"`
	Overrides         []string `yaml:"overrides"` // empty = all
}

// BrowserConfig defines how Chrome is found and launched.
type BrowserConfig struct {
	Engine    string `yaml:"engine" validate:"omitempty,oneof=rod chromedp"`
	Bin       string `yaml:"bin"`
	NoSandbox bool   `yaml:"noSandbox"`
}

// StaticConfig locates the pre-built artifact.
type StaticConfig struct {
	Backend string   `yaml:"backend" validate:"oneof=local s3"`
	Dir     string   `yaml:"dir"`
	Key     string   `yaml:"key" validate:"required,max=1024"`
	MaxSize int64    `yaml:"maxSize" validate:"gt=0"`
	S3      S3Config `yaml:"s3"`
}

// S3Config addresses an S3 (or compatible) bucket.
type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Prefix   string `yaml:"prefix"`
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
	KMSKeyID string `yaml:"kmsKeyId"`
}

// PageConfig controls the built-in resume page.
type PageConfig struct {
	Enabled  bool   `yaml:"enabled"`
	AssetDir string `yaml:"assetDir"` // empty = embedded assets
	Content  string `yaml:"content"`
	Title    string `yaml:"title" validate:"max=100"`
	Email    string `yaml:"email" validate:"omitempty,email,max=254"`
	Updated  string `yaml:"updated" validate:"max=100"` // literal text, "auto" or "auto:PATTERN"
}

// LogConfig defines log verbosity.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// Default returns a configuration that serves the built-in page and
// renders it to PDF on demand.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			PublicDir:       "public",
			ShutdownTimeout: Duration(defaultShutdownTimeout),
			Metrics:         true,
		},
		Export: ExportConfig{
			Mode:              string(cvexport.ModeDynamic),
			Format:            string(cvexport.FormatPDF),
			ResumePath:        cvexport.DefaultResumePath,
			Selector:          cvexport.DefaultContainerSelector,
			NavigationTimeout: Duration(cvexport.DefaultNavigationTimeout),
			SelectorTimeout:   Duration(cvexport.DefaultSelectorTimeout),
			FilenameBase:      cvexport.DefaultFilenameBase,
			Scale:             cvexport.DefaultPrintScale,
			MarginMM:          cvexport.DefaultMarginMM,
			Quality:           cvexport.DefaultJPEGQuality,
		},
		Static: StaticConfig{
			Backend: BackendLocal,
			Dir:     "public",
			Key:     cvexport.DefaultStaticKey,
			MaxSize: cvexport.DefaultMaxStaticSize,
		},
		Page: PageConfig{Enabled: true},
		Log:  LogConfig{Level: "info"},
	}
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrConfigInvalid, describeValidation(err))
	}
	if c.Export.NavigationTimeout <= 0 {
		return fmt.Errorf("%w: export.navigationTimeout must be positive", ErrConfigInvalid)
	}
	if c.Export.SelectorTimeout <= 0 {
		return fmt.Errorf("%w: export.selectorTimeout must be positive", ErrConfigInvalid)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: server.shutdownTimeout must not be negative", ErrConfigInvalid)
	}
	if err := cvexport.ValidateSelector(c.Export.Selector); err != nil {
		return fmt.Errorf("%w: export.selector: %v", ErrConfigInvalid, err)
	}
	if _, err := cvexport.ParseOverrides(c.Export.Overrides); err != nil {
		return fmt.Errorf("%w: export.overrides: %v", ErrConfigInvalid, err)
	}
	if _, err := dateutil.Resolve(c.Page.Updated, time.Time{}); err != nil {
		return fmt.Errorf("%w: page.updated: %v", ErrConfigInvalid, err)
	}
	if c.Export.Mode == string(cvexport.ModeStatic) {
		switch c.Static.Backend {
		case BackendLocal:
			if strings.TrimSpace(c.Static.Dir) == "" {
				return fmt.Errorf("%w: static.dir is required for the local backend", ErrConfigInvalid)
			}
		case BackendS3:
			if strings.TrimSpace(c.Static.S3.Bucket) == "" {
				return fmt.Errorf("%w: static.s3.bucket is required for the s3 backend", ErrConfigInvalid)
			}
		}
	}
	return nil
}

// describeValidation flattens validator errors into "field: rule" pairs.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// Load builds the effective configuration: defaults, then the YAML file
// named by nameOrPath (skipped when empty), then environment overrides.
// The result is validated.
func Load(nameOrPath string, lookup LookupFunc) (*Config, error) {
	cfg := Default()

	if nameOrPath != "" {
		path := nameOrPath
		if !isFilePath(nameOrPath) {
			var err error
			if path, err = resolveConfigPath(nameOrPath); err != nil {
				return nil, err
			}
		}
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}

	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- config path is operator-provided
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yamlutil.UnmarshalStrict(data, c); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfigParse, path, err)
	}
	return nil
}

// LoadDotenv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if !fileExists(p) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for name.yaml or name.yml in the current
// directory, then in the user config directory under cvexport/.
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	tried := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		local := name + ext
		if fileExists(local) {
			return local, nil
		}
		tried = append(tried, local)
	}

	if dir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			p := filepath.Join(dir, "cvexport", name+ext)
			if fileExists(p) {
				return p, nil
			}
			tried = append(tried, p)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// Encode renders the effective configuration as YAML.
func (c *Config) Encode() ([]byte, error) {
	return yamlutil.Marshal(c)
}
