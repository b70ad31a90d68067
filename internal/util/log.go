// Package util provides shared logging, queueing and reporting helpers.
package util

import (
	"fmt"

	"github.com/pterm/pterm"
)

func init() {
	pterm.DefaultLogger.ShowTime = true
	pterm.DefaultLogger.TimeFormat = "02 Jan 15:04:05"
	pterm.DefaultLogger.MaxWidth = 1000
}

// Leveled logging functions backed by pterm's default logger.
// All output goes to stderr by default (pterm's default).

func LogDebug(format string, args ...interface{}) {
	pterm.DefaultLogger.Debug(fmt.Sprintf(format, args...))
}

func LogInfo(format string, args ...interface{}) {
	pterm.DefaultLogger.Info(fmt.Sprintf(format, args...))
}

func LogSuccess(format string, args ...interface{}) {
	pterm.Success.Println(fmt.Sprintf(format, args...))
}

func LogWarning(format string, args ...interface{}) {
	pterm.DefaultLogger.Warn(fmt.Sprintf(format, args...))
}

func LogError(format string, args ...interface{}) {
	pterm.DefaultLogger.Error(fmt.Sprintf(format, args...))
}

// logScoped writes a message tagged with the component that produced it.
func logScoped(level pterm.LogLevel, scope, msg string) {
	l := pterm.DefaultLogger
	args := l.Args("scope", scope)

	switch level {
	case pterm.LogLevelTrace:
		l.Trace(msg, args)
	case pterm.LogLevelDebug:
		l.Debug(msg, args)
	case pterm.LogLevelInfo:
		l.Info(msg, args)
	case pterm.LogLevelWarn:
		l.Warn(msg, args)
	default:
		l.Error(msg, args)
	}
}

// EnableDebug configures the logger to show debug messages.
func EnableDebug() {
	pterm.DefaultLogger.Level = pterm.LogLevelDebug
}
