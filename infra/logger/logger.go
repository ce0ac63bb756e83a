package logger

import (
	"os"
	"strings"

	corelogger "github.com/kilianp07/dronecharge/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.Nop

// New returns a Logger for the given component. APP_ENV=dev switches to a
// human readable format, LOG_BACKEND selects zerolog (default) or logrus and
// LOG_LEVEL sets the minimum severity.
func New(component string) Logger {
	if strings.EqualFold(os.Getenv("LOG_BACKEND"), "logrus") {
		return NewLogrusLogger(component)
	}
	return NewZerologLogger(component)
}

func isDev() bool { return strings.ToLower(os.Getenv("APP_ENV")) == "dev" }

func levelName() string {
	if lvl := strings.ToLower(os.Getenv("LOG_LEVEL")); lvl != "" {
		return lvl
	}
	return "info"
}
