package util

import (
	"fmt"

	"github.com/pion/logging"
	"github.com/pterm/pterm"
)

// PionLoggerFactory routes pion's internal logging (ICE, DTLS, SCTP ...)
// through the pterm logger. Trace output is folded into debug and only shows
// up with -debug.
type PionLoggerFactory struct{}

// NewLogger implements logging.LoggerFactory.
func (PionLoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return pionLogger{scope: scope}
}

type pionLogger struct {
	scope string
}

func (l pionLogger) Trace(msg string) { logScoped(pterm.LogLevelDebug, l.scope, msg) }
func (l pionLogger) Tracef(format string, args ...interface{}) {
	logScoped(pterm.LogLevelDebug, l.scope, fmt.Sprintf(format, args...))
}

func (l pionLogger) Debug(msg string) { logScoped(pterm.LogLevelDebug, l.scope, msg) }
func (l pionLogger) Debugf(format string, args ...interface{}) {
	logScoped(pterm.LogLevelDebug, l.scope, fmt.Sprintf(format, args...))
}

func (l pionLogger) Info(msg string) { logScoped(pterm.LogLevelDebug, l.scope, msg) }
func (l pionLogger) Infof(format string, args ...interface{}) {
	logScoped(pterm.LogLevelDebug, l.scope, fmt.Sprintf(format, args...))
}

func (l pionLogger) Warn(msg string) { logScoped(pterm.LogLevelWarn, l.scope, msg) }
func (l pionLogger) Warnf(format string, args ...interface{}) {
	logScoped(pterm.LogLevelWarn, l.scope, fmt.Sprintf(format, args...))
}

func (l pionLogger) Error(msg string) { logScoped(pterm.LogLevelError, l.scope, msg) }
func (l pionLogger) Errorf(format string, args ...interface{}) {
	logScoped(pterm.LogLevelError, l.scope, fmt.Sprintf(format, args...))
}
