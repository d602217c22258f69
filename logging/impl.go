package logging

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// noisyMessageCount is how many times the same message may be logged by one logger within noisyMessageWindow
	// before later copies are dropped.
	noisyMessageCount  = 3
	noisyMessageWindow = 10 * time.Second
)

type impl struct {
	name  string
	level AtomicLevel
	inUTC bool

	appenders []Appender
	// nil keeps every entry.
	noisy *noisyFilter
}

func newImpl(name string, level Level, inUTC bool, appenders ...Appender) *impl {
	return &impl{name: name, level: NewAtomicLevelAt(level), inUTC: inUTC, appenders: appenders}
}

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

// Sublogger copies the level at the time of the call. Appenders and the noisy message filter are shared.
func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	sub := newImpl(name, imp.level.Get(), imp.inUTC, imp.appenders...)
	sub.noisy = imp.noisy
	return sub
}

func (imp *impl) Sync() error {
	var err error
	for _, appender := range imp.appenders {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

func (imp *impl) Debug(args ...interface{}) {
	if imp.enabled(DEBUG) {
		imp.emit(DEBUG, fmt.Sprint(args...), nil)
	}
}

func (imp *impl) Debugf(template string, args ...interface{}) {
	if imp.enabled(DEBUG) {
		imp.emit(DEBUG, fmt.Sprintf(template, args...), nil)
	}
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	if imp.enabled(DEBUG) {
		imp.emit(DEBUG, msg, pairsToFields(keysAndValues))
	}
}

func (imp *impl) Info(args ...interface{}) {
	if imp.enabled(INFO) {
		imp.emit(INFO, fmt.Sprint(args...), nil)
	}
}

func (imp *impl) Infof(template string, args ...interface{}) {
	if imp.enabled(INFO) {
		imp.emit(INFO, fmt.Sprintf(template, args...), nil)
	}
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	if imp.enabled(INFO) {
		imp.emit(INFO, msg, pairsToFields(keysAndValues))
	}
}

func (imp *impl) Warn(args ...interface{}) {
	if imp.enabled(WARN) {
		imp.emit(WARN, fmt.Sprint(args...), nil)
	}
}

func (imp *impl) Warnf(template string, args ...interface{}) {
	if imp.enabled(WARN) {
		imp.emit(WARN, fmt.Sprintf(template, args...), nil)
	}
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	if imp.enabled(WARN) {
		imp.emit(WARN, msg, pairsToFields(keysAndValues))
	}
}

func (imp *impl) Error(args ...interface{}) {
	if imp.enabled(ERROR) {
		imp.emit(ERROR, fmt.Sprint(args...), nil)
	}
}

func (imp *impl) Errorf(template string, args ...interface{}) {
	if imp.enabled(ERROR) {
		imp.emit(ERROR, fmt.Sprintf(template, args...), nil)
	}
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	if imp.enabled(ERROR) {
		imp.emit(ERROR, msg, pairsToFields(keysAndValues))
	}
}

func (imp *impl) enabled(level Level) bool {
	return level >= imp.level.Get()
}

// emit must be called directly from one of the level methods so the caller lookup lands on user code.
func (imp *impl) emit(level Level, msg string, fields []zapcore.Field) {
	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       time.Now(),
		LoggerName: imp.name,
		Message:    msg,
		Caller:     getCaller(),
	}
	if imp.inUTC {
		entry.Time = entry.Time.UTC()
	}

	if imp.noisy != nil {
		keep, dropped := imp.noisy.admit(noisyKey{imp.name, level, msg})
		if dropped > 0 {
			summary := entry
			summary.Message = fmt.Sprintf("Message logged %d more times: %s", dropped, msg)
			imp.write(summary, nil)
		}
		if !keep {
			return
		}
	}
	imp.write(entry, fields)
}

func (imp *impl) write(entry zapcore.Entry, fields []zapcore.Field) {
	for _, appender := range imp.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// pairsToFields reads alternating keys and values. A trailing key without a value is kept with an error value.
func pairsToFields(keysAndValues []interface{}) []zapcore.Field {
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.Any(key, errors.New("unpaired log key")))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

// getCaller reports the code that called the level method. The stack is getCaller, emit, the level method.
func getCaller() zapcore.EntryCaller {
	const skip = 3
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return zapcore.EntryCaller{}
	}
	caller := zapcore.EntryCaller{Defined: true, PC: pc, File: file, Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		caller.Function = fn.Name()
	}
	return caller
}

type noisyKey struct {
	logger string
	level  Level
	msg    string
}

type noisyCount struct {
	since   time.Time
	seen    int
	dropped int
}

// noisyFilter drops repeats of a message once it has been logged noisyMessageCount times within a window. The number
// dropped is reported the next time the message is logged after its window closes.
type noisyFilter struct {
	mu     sync.Mutex
	clock  clock.Clock
	window time.Duration
	limit  int
	counts map[noisyKey]*noisyCount
}

func newNoisyFilter(clk clock.Clock, limit int, window time.Duration) *noisyFilter {
	return &noisyFilter{clock: clk, window: window, limit: limit, counts: map[noisyKey]*noisyCount{}}
}

// admit records one occurrence of key. It returns whether the entry should be written, and how many copies were
// dropped during the window that just closed.
func (f *noisyFilter) admit(key noisyKey) (bool, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.clock.Now()
	count, ok := f.counts[key]
	dropped := 0
	if ok && now.Sub(count.since) >= f.window {
		dropped = count.dropped
		ok = false
	}
	if !ok {
		count = &noisyCount{since: now}
		f.counts[key] = count
	}
	count.seen++
	if count.seen > f.limit {
		count.dropped++
		return false, dropped
	}
	return true, dropped
}
