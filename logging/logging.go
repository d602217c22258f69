// Package logging provides the leveled, structured loggers used throughout meshbvh.
package logging

import (
	"testing"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Logger is the logging interface handed to every component.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	SetLevel(level Level)
	GetLevel() Level
	Sublogger(subname string) Logger
	AddAppender(appender Appender)
	Sync() error
}

// NewLogger returns a new logger that outputs Info+ logs to stdout in UTC. Repeats of the same message are
// dropped after a few copies.
func NewLogger(name string) Logger {
	logger := newImpl(name, INFO, true, NewStdoutAppender())
	logger.noisy = newNoisyFilter(clock.New(), noisyMessageCount, noisyMessageWindow)
	return logger
}

// NewDebugLogger is NewLogger at Debug level.
func NewDebugLogger(name string) Logger {
	logger := newImpl(name, DEBUG, true, NewStdoutAppender())
	logger.noisy = newNoisyFilter(clock.New(), noisyMessageCount, noisyMessageWindow)
	return logger
}

// NewBlankLogger returns a new Debug+ logger in UTC without any appenders.
func NewBlankLogger(name string) Logger {
	return newImpl(name, DEBUG, true)
}

// NewTestLogger returns a new logger that outputs Debug+ logs through the test object in local time.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is like NewTestLogger but also saves logs to an in memory observer. Test loggers keep
// every entry.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	observerCore, observedLogs := observer.New(zap.LevelEnablerFunc(zapcore.DebugLevel.Enabled))
	return newImpl("", DEBUG, false, NewTestAppender(tb), observerCore), observedLogs
}
