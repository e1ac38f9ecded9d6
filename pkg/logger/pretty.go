package logger

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// NewPretty returns a colorized, human-friendly slog logger for CLI commands,
// backed by the charmbracelet handler.
func NewPretty(debug bool, w io.Writer) *slog.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}

	handler := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: false,
	})

	return slog.New(handler)
}
