package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the run logger. It writes to console unless Quiet is set,
// and to Logfile, which is truncated first. The returned close function
// closes the log file.
func NewLogger(cfg *Config, console io.Writer) (*slog.Logger, func() error, error) {
	var writers []io.Writer
	if !cfg.Quiet && console != nil {
		writers = append(writers, console)
	}

	closeFn := func() error { return nil }
	if cfg.Logfile != "" {
		f, err := os.Create(cfg.Logfile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, f)
		closeFn = f.Close
	}

	if len(writers) == 0 {
		return slog.New(slog.DiscardHandler), closeFn, nil
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: level})
	return slog.New(handler), closeFn, nil
}
