package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

// testAppender writes each entry through tb.Log.
type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns an appender for NewTestLogger and NewObservedTestLogger. Tree and grid log lines then show
// up under the test that produced them and only when it fails or runs verbosely.
func NewTestAppender(tb testing.TB) Appender {
	return &testAppender{tb: tb}
}

func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	line, err := formatEntry(entry, fields)
	if err != nil {
		return err
	}
	tapp.tb.Log(line)
	return nil
}

func (tapp *testAppender) Sync() error {
	return nil
}
