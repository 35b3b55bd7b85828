// Package logging builds the process-wide slog.Logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/m-mizutani/masq"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logging configuration.
type Config struct {
	Level  slog.Level
	Format string // json or text
	// File, when set, receives a copy of every record and is rotated by size.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

var bearerPattern = regexp.MustCompile(`(?i)^bearer\s+.+$`)

// RedactOptions lists the fields and values scrubbed from every record.
func RedactOptions() []masq.Option {
	return []masq.Option{
		masq.WithFieldName("token"),
		masq.WithFieldName("access_token"),
		masq.WithFieldName("authorization"),
		masq.WithFieldName("Authorization"),
		masq.WithFieldName("email"),
		masq.WithFieldName("Email"),
		masq.WithFieldPrefix("secret"),
		masq.WithRegex(bearerPattern),
	}
}

// New returns a logger writing to stdout and, if configured, to a rotated
// file. The returned closer releases the file.
func New(cfg Config) (*slog.Logger, io.Closer) {
	var w io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		w = io.MultiWriter(os.Stdout, lj)
		closer = lj
	}
	return NewWithWriter(cfg, w), closer
}

// NewWithWriter returns a redacting logger writing to w.
func NewWithWriter(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       cfg.Level,
		ReplaceAttr: masq.New(RedactOptions()...),
	}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
