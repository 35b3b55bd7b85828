package internal

import (
	"log/slog"

	"github.com/starford/quill/internal/audio"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	version string
	logger  *slog.Logger
	audio   *audio.Capabilities
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithLogger replaces the logger built from the app config.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithAudio installs platform audio collaborators. Missing ones are reported
// as unavailable. Without this option clips can only be uploaded.
func WithAudio(caps audio.Capabilities) Option {
	return func(a *application) {
		a.audio = &caps
	}
}
