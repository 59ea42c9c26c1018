package logger

import (
	"errors"
	"sync"
)

var (
	loggerAccessorMu sync.Mutex
	// globalLogger always has secret masking applied
	globalLogger PrestoLogger
)

// GetLogger returns the global logger for use by internal packages
func GetLogger() PrestoLogger {
	loggerAccessorMu.Lock()
	defer loggerAccessorMu.Unlock()

	return globalLogger
}

// SetLogger wraps the provided logger with secret masking and installs it as
// the global logger. An already masked logger is not wrapped twice.
func SetLogger(providedLogger PrestoLogger) error {
	if providedLogger == nil {
		return errors.New("logger cannot be nil")
	}
	if _, isProxy := providedLogger.(*Proxy); isProxy {
		return errors.New("cannot set Proxy as logger - it would create infinite recursion")
	}

	loggerAccessorMu.Lock()
	defer loggerAccessorMu.Unlock()

	if masked, ok := providedLogger.(*secretMaskingLogger); ok {
		globalLogger = masked
		return nil
	}
	globalLogger = newSecretMaskingLogger(providedLogger)
	return nil
}

func init() {
	globalLogger = newSecretMaskingLogger(newRawLogger())
}

// CreateDefaultLogger creates a new logrus-backed logger with secret masking.
// It does not modify the global logger.
func CreateDefaultLogger() PrestoLogger {
	return newSecretMaskingLogger(newRawLogger())
}
