package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const levelOff = "off"

// rawLogger implements PrestoLogger on top of logrus
type rawLogger struct {
	inner   *logrus.Logger
	enabled bool
	mu      sync.Mutex
}

var _ PrestoLogger = (*rawLogger)(nil)

func newRawLogger() PrestoLogger {
	inner := logrus.New()
	inner.SetOutput(os.Stderr)
	inner.SetLevel(logrus.InfoLevel)
	inner.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	return &rawLogger{inner: inner, enabled: true}
}

func (log *rawLogger) isEnabled() bool {
	log.mu.Lock()
	defer log.mu.Unlock()
	return log.enabled
}

// SetLogLevel sets the log level. "off" disables all output.
func (log *rawLogger) SetLogLevel(level string) error {
	log.mu.Lock()
	defer log.mu.Unlock()
	if strings.EqualFold(level, levelOff) {
		log.enabled = false
		return nil
	}
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("error while setting log level. %v", err)
	}
	log.enabled = true
	log.inner.SetLevel(lvl)
	return nil
}

func (log *rawLogger) GetLogLevel() string {
	if !log.isEnabled() {
		return levelOff
	}
	return log.inner.GetLevel().String()
}

func (log *rawLogger) SetOutput(output io.Writer) {
	log.inner.SetOutput(output)
}

func (log *rawLogger) entry() *logrus.Entry {
	return logrus.NewEntry(log.inner)
}

func (log *rawLogger) WithField(key string, value interface{}) LogEntry {
	return &entry{inner: log.entry().WithField(key, value), parent: log}
}

func (log *rawLogger) WithFields(fields map[string]any) LogEntry {
	return &entry{inner: log.entry().WithFields(logrus.Fields(fields)), parent: log}
}

func (log *rawLogger) WithContext(ctx context.Context) LogEntry {
	return &entry{inner: log.entry().WithFields(extractContextFields(ctx)), parent: log}
}

func (log *rawLogger) Tracef(format string, args ...interface{}) {
	log.logf(logrus.TraceLevel, format, args...)
}
func (log *rawLogger) Debugf(format string, args ...interface{}) {
	log.logf(logrus.DebugLevel, format, args...)
}
func (log *rawLogger) Infof(format string, args ...interface{}) {
	log.logf(logrus.InfoLevel, format, args...)
}
func (log *rawLogger) Warnf(format string, args ...interface{}) {
	log.logf(logrus.WarnLevel, format, args...)
}
func (log *rawLogger) Errorf(format string, args ...interface{}) {
	log.logf(logrus.ErrorLevel, format, args...)
}
func (log *rawLogger) Fatalf(format string, args ...interface{}) {
	log.logf(logrus.FatalLevel, format, args...)
}

func (log *rawLogger) Trace(msg string) { log.logf(logrus.TraceLevel, "%s", msg) }
func (log *rawLogger) Debug(msg string) { log.logf(logrus.DebugLevel, "%s", msg) }
func (log *rawLogger) Info(msg string)  { log.logf(logrus.InfoLevel, "%s", msg) }
func (log *rawLogger) Warn(msg string)  { log.logf(logrus.WarnLevel, "%s", msg) }
func (log *rawLogger) Error(msg string) { log.logf(logrus.ErrorLevel, "%s", msg) }
func (log *rawLogger) Fatal(msg string) { log.logf(logrus.FatalLevel, "%s", msg) }

// logf never exits the process, even at fatal level. A client library must
// leave that decision to the application.
func (log *rawLogger) logf(level logrus.Level, format string, args ...interface{}) {
	if !log.isEnabled() {
		return
	}
	log.entry().Logf(level, format, args...)
}

// entry is a LogEntry carrying logrus fields
type entry struct {
	inner  *logrus.Entry
	parent *rawLogger
}

func (e *entry) logf(level logrus.Level, format string, args ...interface{}) {
	if !e.parent.isEnabled() {
		return
	}
	e.inner.Logf(level, format, args...)
}

func (e *entry) Tracef(format string, args ...interface{}) {
	e.logf(logrus.TraceLevel, format, args...)
}
func (e *entry) Debugf(format string, args ...interface{}) {
	e.logf(logrus.DebugLevel, format, args...)
}
func (e *entry) Infof(format string, args ...interface{}) {
	e.logf(logrus.InfoLevel, format, args...)
}
func (e *entry) Warnf(format string, args ...interface{}) {
	e.logf(logrus.WarnLevel, format, args...)
}
func (e *entry) Errorf(format string, args ...interface{}) {
	e.logf(logrus.ErrorLevel, format, args...)
}
func (e *entry) Fatalf(format string, args ...interface{}) {
	e.logf(logrus.FatalLevel, format, args...)
}

func (e *entry) Trace(msg string) { e.logf(logrus.TraceLevel, "%s", msg) }
func (e *entry) Debug(msg string) { e.logf(logrus.DebugLevel, "%s", msg) }
func (e *entry) Info(msg string)  { e.logf(logrus.InfoLevel, "%s", msg) }
func (e *entry) Warn(msg string)  { e.logf(logrus.WarnLevel, "%s", msg) }
func (e *entry) Error(msg string) { e.logf(logrus.ErrorLevel, "%s", msg) }
func (e *entry) Fatal(msg string) { e.logf(logrus.FatalLevel, "%s", msg) }
