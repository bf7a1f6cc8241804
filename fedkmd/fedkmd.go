// Package fedkmd starts the coordinator and node services. It backs both the
// per-service binaries configured from the environment and the fedkmd
// daemon configured from flags.
package fedkmd

import (
	"fmt"
	"log/slog"
	"os"
)

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	return logger, nil
}
