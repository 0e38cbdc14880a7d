package logger

import (
	"log/slog"
	"os"
)

// Setup installs the process-wide slog default.
// prod: JSON logs at INFO level
// others: text logs at DEBUG level
func Setup(env string) *slog.Logger {
	var handler slog.Handler
	if env == "prod" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
