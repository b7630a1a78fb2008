package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a JSON logger tagged with service. When file is set, records
// are also written to a size-rotated log file.
func New(service, file string) *slog.Logger {
	var w io.Writer = os.Stdout
	if file != "" {
		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
		})
	}
	return slog.New(slog.NewJSONHandler(w, nil)).With("service", service)
}
