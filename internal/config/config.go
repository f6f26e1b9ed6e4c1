package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is the root configuration for clinicctl, stored in
// ~/.clinicctl/config.json. The file supports single-line // comments.
type Config struct {
	API        APIConfig        `json:"api"`
	Attendance AttendanceConfig `json:"attendance"`
	Devices    DevicesConfig    `json:"devices"`
	Export     ExportConfig     `json:"export"`
}

// APIConfig locates the clinic backend.
type APIConfig struct {
	// BaseURL is the REST root every endpoint path is appended to.
	BaseURL string `json:"base_url" validate:"required,url"`
	// LoginURL is where POST /login lives. Empty = BaseURL.
	LoginURL string `json:"login_url" validate:"omitempty,url"`
	// TimeoutSeconds bounds every request.
	TimeoutSeconds int `json:"timeout_seconds" validate:"min=1"`
}

// AttendanceConfig holds the attendance view defaults.
type AttendanceConfig struct {
	// DefaultDays is how many days before today the default range starts.
	DefaultDays int `json:"default_days" validate:"min=0"`
	PageSize    int `json:"page_size" validate:"min=1,max=500"`
}

// DevicesConfig holds the device registry defaults.
type DevicesConfig struct {
	PageSize int `json:"page_size" validate:"min=1,max=500"`
}

// ExportConfig bounds attendance exports.
type ExportConfig struct {
	PageLimit int `json:"page_limit" validate:"min=1"`
	MaxRows   int `json:"max_rows" validate:"min=1"`
}

const (
	DefaultBaseURL        = "http://localhost:5000"
	DefaultTimeoutSeconds = 30
	DefaultDays           = 12
	DefaultPageSize       = 20
	DefaultExportPage     = 500
	DefaultExportMaxRows  = 5000
)

// Environment variables that override the file.
const (
	EnvBaseURL  = "CLINICCTL_API_BASE_URL"
	EnvLoginURL = "CLINICCTL_LOGIN_URL"
)

// Default returns a Config pre-filled with the built-in defaults.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:        DefaultBaseURL,
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		Attendance: AttendanceConfig{DefaultDays: DefaultDays, PageSize: DefaultPageSize},
		Devices:    DevicesConfig{PageSize: DefaultPageSize},
		Export:     ExportConfig{PageLimit: DefaultExportPage, MaxRows: DefaultExportMaxRows},
	}
}

// Timeout returns the request timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// LoginBase returns the login root, defaulting to the API base.
func (c Config) LoginBase() string {
	if c.API.LoginURL != "" {
		return c.API.LoginURL
	}
	return c.API.BaseURL
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing.
const configTemplate = `// clinicctl configuration – ~/.clinicctl/config.json
//
// All settings are optional; missing values fall back to the defaults shown.
// CLINICCTL_API_BASE_URL and CLINICCTL_LOGIN_URL (environment or .env)
// override the api section.
{
  // ── Backend ─────────────────────────────────────────────────────────────
  "api": {
    // REST root of the clinic backend. "clinicctl sandbox" serves one locally.
    "base_url": "http://localhost:5000",

    // Root of POST /login. Leave empty to use base_url.
    "login_url": "",

    // Per-request timeout.
    "timeout_seconds": 30
  },

  // ── Attendance review ───────────────────────────────────────────────────
  "attendance": {
    // Default range is today minus default_days through today.
    "default_days": 12,
    "page_size": 20
  },

  // ── Device registry ─────────────────────────────────────────────────────
  "devices": {
    "page_size": 20
  },

  // ── Attendance export ───────────────────────────────────────────────────
  "export": {
    // Rows fetched per request and the hard cap per export.
    "page_limit": 500,
    "max_rows": 5000
  }
}
`

// FilePath returns the config location under base.
func FilePath(base string) string {
	return filepath.Join(base, "config.json")
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// LoadDotEnv reads ./.env into the process environment without overriding
// variables that are already set. Call it before resolving the state
// directory so the file can set CLINICCTL_HOME too.
func LoadDotEnv() {
	// A missing .env is the normal case.
	_ = godotenv.Load()
}

// Load reads base/config.json, creating it with annotated defaults on first
// run, then applies environment overrides and validates the result.
func Load(base string) (Config, error) {
	path := FilePath(base)
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
	case err != nil:
		return Default(), fmt.Errorf("reading config file %s: %w", path, err)
	default:
		cfg = Config{}
		if err := json.Unmarshal(stripLineComments(data), &cfg); err != nil {
			return Default(), fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
		}
		fillDefaults(&cfg)
	}

	applyEnv(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// fillDefaults replaces zero-value fields so a partial file still yields a
// usable Config.
func fillDefaults(cfg *Config) {
	d := Default()
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = d.API.BaseURL
	}
	if cfg.API.TimeoutSeconds == 0 {
		cfg.API.TimeoutSeconds = d.API.TimeoutSeconds
	}
	if cfg.Attendance.DefaultDays == 0 {
		cfg.Attendance.DefaultDays = d.Attendance.DefaultDays
	}
	if cfg.Attendance.PageSize == 0 {
		cfg.Attendance.PageSize = d.Attendance.PageSize
	}
	if cfg.Devices.PageSize == 0 {
		cfg.Devices.PageSize = d.Devices.PageSize
	}
	if cfg.Export.PageLimit == 0 {
		cfg.Export.PageLimit = d.Export.PageLimit
	}
	if cfg.Export.MaxRows == 0 {
		cfg.Export.MaxRows = d.Export.MaxRows
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv(EnvLoginURL); v != "" {
		cfg.API.LoginURL = v
	}
}

var validate = validator.New()

// Validate checks field ranges and URL shapes.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("invalid value %v for %s (%s)", f.Value(), f.Namespace(), f.Tag())
		}
		return err
	}
	return nil
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
