// Package logging configures the process-wide slog logger.
package logging

import (
	"log/slog"

	"github.com/iand/pontium/hlog"
)

// Setup installs the default logger. Warnings and errors are always
// emitted; verbose raises the level to info and debug to debug.
func Setup(verbose, debug bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	if debug {
		level = slog.LevelDebug
	}

	h := new(hlog.Handler)
	h = h.WithLevel(level)
	slog.SetDefault(slog.New(h))
}
