package logger

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
)

var root = hclog.New(&hclog.LoggerOptions{
	Name:   "sonar",
	Level:  hclog.Info,
	Output: os.Stdout,
})

// SetLevel adjusts the global log level ("debug", "info", "warn", "error").
func SetLevel(level string) {
	root.SetLevel(hclog.LevelFromString(level))
}

// Named returns a sub-logger for a component.
func Named(name string) hclog.Logger {
	return root.Named(name)
}

// Info logs informational messages
func Info(format string, args ...interface{}) {
	root.Info(fmt.Sprintf(format, args...))
}

// Warn logs warning messages
func Warn(format string, args ...interface{}) {
	root.Warn(fmt.Sprintf(format, args...))
}

// Error logs error messages
func Error(format string, args ...interface{}) {
	root.Error(fmt.Sprintf(format, args...))
}

// Debug logs debug messages
func Debug(format string, args ...interface{}) {
	root.Debug(fmt.Sprintf(format, args...))
}
