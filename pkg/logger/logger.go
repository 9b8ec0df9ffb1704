// Package logger configures the process-wide zerolog logger. Adapted from
// the sibling trader-go module's pkg/logger/logger.go, since the root
// module carries no logger package of its own despite cmd/server/main.go's
// original convention of importing one.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls the logger's verbosity and output format.
type Config struct {
	Level  string // "debug" | "info" | "warn" | "error"
	Pretty bool   // human-readable console output instead of JSON
}

// New builds a zerolog.Logger with a global level, RFC3339 timestamps, and
// caller info, matching the teacher's convention.
func New(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stdout
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}
	return zerolog.New(output).With().Timestamp().Caller().Logger()
}

// SetGlobalLogger installs l as zerolog.DefaultContextLogger, the logger
// zerolog.Ctx returns for a context that carries none. The package-level
// logger of zerolog/log is not changed.
func SetGlobalLogger(l zerolog.Logger) {
	zerolog.DefaultContextLogger = &l
}
