package logger

import (
	"log/slog"
	"os"
)

// Init configures and sets the default slog logger to use JSON format.
// All services log structured JSON so the entries can be correlated with
// audit records by order number in the log pipeline.
func Init(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
