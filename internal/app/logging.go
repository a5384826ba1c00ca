package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dshills/coasters/internal/log"
)

// LoggerConfig configures the process logger.
type LoggerConfig struct {
	// Level is the minimum level to output ("debug", "info", "warn", "error").
	Level string
	// Format is "text" for console output or "json".
	Format string
	// Filter is a zapfilter rule string; empty disables filtering.
	Filter string
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
}

// NewLogger builds a logger from cfg.
func NewLogger(cfg LoggerConfig) (*log.Logger, error) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	level := log.InfoLevel
	if cfg.Level != "" {
		l, err := log.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = l
	}

	opts := []log.Option{log.WithFilter(cfg.Filter)}
	switch strings.ToLower(cfg.Format) {
	case "", "text", "console":
		return log.DevLogger(cfg.Output, level, opts...), nil
	case "json":
		return log.New(cfg.Output, level, opts...), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
}
