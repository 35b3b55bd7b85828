package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quill/internal/logging"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverMarkdown = "markdown"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Auth    AuthConfig        `yaml:"auth"`
	Audio   AudioConfig       `yaml:"audio"`
	Events  EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	if err := c.Events.Validate(); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	// LogFile, when set, receives a copy of every log line with size-based rotation.
	LogFile       string     `yaml:"log_file"`
	LogMaxSizeMB  int        `yaml:"log_max_size_mb"`
	LogMaxBackups int        `yaml:"log_max_backups"`
	HTTP          HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
		validation.Field(&c.LogMaxSizeMB, validation.Min(0)),
		validation.Field(&c.LogMaxBackups, validation.Min(0)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// Logging converts the app section to a logging.Config.
func (c *ApplicationConfig) Logging() logging.Config {
	return logging.Config{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		File:       c.LogFile,
		MaxSizeMB:  c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
	}
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig selects where notes live.
//
// Driver is one of:
//   - "memory" (default): notes are lost on exit.
//   - "sqlite": notes, users and theme preferences in SQLitePath.
//   - "markdown": one file per note under VaultPath/notes, watched for outside edits.
//
// VaultPath is also where uploaded audio clips are stored, for every driver.
type StorageConfig struct {
	Driver     string `yaml:"driver"`
	VaultPath  string `yaml:"vault_path"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = DriverMemory
	}
	c.Driver = strings.ToLower(c.Driver)
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverMemory, DriverSQLite, DriverMarkdown)),
		validation.Field(&c.VaultPath, validation.Required),
		validation.Field(&c.SQLitePath, validation.When(c.Driver == DriverSQLite, validation.Required)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// AudioConfig controls clip uploads. When disabled every audio collaborator
// reports itself unavailable.
type AudioConfig struct {
	Enabled bool `yaml:"enabled"`
	// Ext is appended to stored clip names, e.g. ".m4a".
	Ext      string `yaml:"ext"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// Validate validates the audio configuration.
func (c *AudioConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Ext, validation.When(c.Enabled,
			validation.Required,
			validation.By(func(v any) error {
				ext, _ := v.(string)
				if !strings.HasPrefix(ext, ".") || filepath.Base(ext) != ext {
					return fmt.Errorf("must start with a dot and contain no path separators")
				}
				return nil
			}),
		)),
		validation.Field(&c.MaxBytes, validation.Min(int64(0))),
	)
}

// EventsConfig tunes the server-sent event stream.
type EventsConfig struct {
	// Throttle is the minimum gap between two notes.changed hints.
	Throttle  time.Duration `yaml:"throttle"`
	KeepAlive time.Duration `yaml:"keep_alive"`
	// Debounce coalesces bursts of file system events from the markdown vault.
	Debounce time.Duration `yaml:"debounce"`
	// Replay is how many recent events a reconnecting client can catch up on.
	Replay int `yaml:"replay"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
		validation.Field(&c.KeepAlive, validation.Min(time.Duration(0))),
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
		validation.Field(&c.Replay, validation.Min(0)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:      slog.LevelInfo,
			LogFormat:     LogFormatJSON,
			LogMaxSizeMB:  50,
			LogMaxBackups: 3,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Driver:     DriverMemory,
			VaultPath:  "./vault",
			SQLitePath: "./quill.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Audio: AudioConfig{
			Enabled:  true,
			Ext:      ".m4a",
			MaxBytes: 25 << 20,
		},
		Events: EventsConfig{
			Throttle:  2 * time.Second,
			KeepAlive: 15 * time.Second,
			Debounce:  100 * time.Millisecond,
			Replay:    128,
		},
	}
}
