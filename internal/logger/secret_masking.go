package logger

import (
	"context"
	"fmt"
	"io"
)

// secretMaskingLogger wraps any logger implementation and ensures
// all log messages have secrets masked before being passed to the inner logger.
type secretMaskingLogger struct {
	inner PrestoLogger
}

var _ PrestoLogger = (*secretMaskingLogger)(nil)

func newSecretMaskingLogger(inner PrestoLogger) *secretMaskingLogger {
	return &secretMaskingLogger{inner: inner}
}

func (l *secretMaskingLogger) Tracef(format string, args ...interface{}) {
	l.inner.Trace(MaskSecrets(fmt.Sprintf(format, args...)))
}
func (l *secretMaskingLogger) Debugf(format string, args ...interface{}) {
	l.inner.Debug(MaskSecrets(fmt.Sprintf(format, args...)))
}
func (l *secretMaskingLogger) Infof(format string, args ...interface{}) {
	l.inner.Info(MaskSecrets(fmt.Sprintf(format, args...)))
}
func (l *secretMaskingLogger) Warnf(format string, args ...interface{}) {
	l.inner.Warn(MaskSecrets(fmt.Sprintf(format, args...)))
}
func (l *secretMaskingLogger) Errorf(format string, args ...interface{}) {
	l.inner.Error(MaskSecrets(fmt.Sprintf(format, args...)))
}
func (l *secretMaskingLogger) Fatalf(format string, args ...interface{}) {
	l.inner.Fatal(MaskSecrets(fmt.Sprintf(format, args...)))
}

func (l *secretMaskingLogger) Trace(msg string) { l.inner.Trace(MaskSecrets(msg)) }
func (l *secretMaskingLogger) Debug(msg string) { l.inner.Debug(MaskSecrets(msg)) }
func (l *secretMaskingLogger) Info(msg string)  { l.inner.Info(MaskSecrets(msg)) }
func (l *secretMaskingLogger) Warn(msg string)  { l.inner.Warn(MaskSecrets(msg)) }
func (l *secretMaskingLogger) Error(msg string) { l.inner.Error(MaskSecrets(msg)) }
func (l *secretMaskingLogger) Fatal(msg string) { l.inner.Fatal(MaskSecrets(msg)) }

func (l *secretMaskingLogger) WithField(key string, value interface{}) LogEntry {
	return &maskedEntry{inner: l.inner.WithField(key, maskValue(value))}
}

func (l *secretMaskingLogger) WithFields(fields map[string]any) LogEntry {
	masked := make(map[string]any, len(fields))
	for k, v := range fields {
		masked[k] = maskValue(v)
	}
	return &maskedEntry{inner: l.inner.WithFields(masked)}
}

func (l *secretMaskingLogger) WithContext(ctx context.Context) LogEntry {
	return &maskedEntry{inner: l.inner.WithContext(ctx)}
}

func (l *secretMaskingLogger) SetLogLevel(level string) error { return l.inner.SetLogLevel(level) }
func (l *secretMaskingLogger) GetLogLevel() string            { return l.inner.GetLogLevel() }
func (l *secretMaskingLogger) SetOutput(output io.Writer)     { l.inner.SetOutput(output) }

func maskValue(value interface{}) interface{} {
	if str, ok := value.(string); ok {
		return MaskSecrets(str)
	}
	strVal := fmt.Sprint(value)
	if masked := MaskSecrets(strVal); masked != strVal {
		return masked
	}
	return value
}

// maskedEntry masks messages logged through an entry with fields
type maskedEntry struct {
	inner LogEntry
}

func (e *maskedEntry) Tracef(format string, args ...interface{}) {
	e.inner.Trace(MaskSecrets(fmt.Sprintf(format, args...)))
}
func (e *maskedEntry) Debugf(format string, args ...interface{}) {
	e.inner.Debug(MaskSecrets(fmt.Sprintf(format, args...)))
}
func (e *maskedEntry) Infof(format string, args ...interface{}) {
	e.inner.Info(MaskSecrets(fmt.Sprintf(format, args...)))
}
func (e *maskedEntry) Warnf(format string, args ...interface{}) {
	e.inner.Warn(MaskSecrets(fmt.Sprintf(format, args...)))
}
func (e *maskedEntry) Errorf(format string, args ...interface{}) {
	e.inner.Error(MaskSecrets(fmt.Sprintf(format, args...)))
}
func (e *maskedEntry) Fatalf(format string, args ...interface{}) {
	e.inner.Fatal(MaskSecrets(fmt.Sprintf(format, args...)))
}

func (e *maskedEntry) Trace(msg string) { e.inner.Trace(MaskSecrets(msg)) }
func (e *maskedEntry) Debug(msg string) { e.inner.Debug(MaskSecrets(msg)) }
func (e *maskedEntry) Info(msg string)  { e.inner.Info(MaskSecrets(msg)) }
func (e *maskedEntry) Warn(msg string)  { e.inner.Warn(MaskSecrets(msg)) }
func (e *maskedEntry) Error(msg string) { e.inner.Error(MaskSecrets(msg)) }
func (e *maskedEntry) Fatal(msg string) { e.inner.Fatal(MaskSecrets(msg)) }
