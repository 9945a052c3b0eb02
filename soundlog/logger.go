// Package soundlog defines the logging sink injected into the engine, so
// callers can wire their own logger rather than have the library install
// process-wide logging configuration.
package soundlog

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mdobak/go-xerrors"
)

// Logger is the logging interface the engine depends on.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// slogLogger is the default Logger, backed by log/slog.
type slogLogger struct {
	inner *slog.Logger
}

// NewDefault returns a Logger that writes structured text logs to stderr.
func NewDefault() Logger {
	return &slogLogger{inner: slog.New(slog.NewTextHandler(os.Stderr, nil))}
}

func (l *slogLogger) Infof(format string, args ...any)  { l.inner.Info(sprintf(format, args...)) }
func (l *slogLogger) Warnf(format string, args ...any)  { l.inner.Warn(sprintf(format, args...)) }
func (l *slogLogger) Debugf(format string, args ...any) { l.inner.Debug(sprintf(format, args...)) }

func (l *slogLogger) Errorf(format string, args ...any) {
	l.inner.Error(sprintf(format, args...))
}

// WrapError annotates err with a stack trace via go-xerrors and logs it at
// error level, the same pairing the rest of the retrieval pack uses around
// fallible I/O (decode, persistence) calls.
func WrapError(log Logger, msg string, err error) error {
	wrapped := xerrors.New(err)
	log.Errorf("%s: %v", msg, wrapped)
	return wrapped
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
