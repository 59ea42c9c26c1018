package gopresto

import (
	loggerinternal "github.com/snowflakedb/gopresto/internal/logger"
	"github.com/snowflakedb/gopresto/loginterface"
)

type contextKey string

// QueryIDKey is the context key of the query id written to logs
const QueryIDKey contextKey = "LOG_QUERY_ID"

// TraceTokenKey is the context key of the trace token written to logs
const TraceTokenKey contextKey = "LOG_TRACE_TOKEN"

func init() {
	SetLogKeys(QueryIDKey, TraceTokenKey)
	_ = logger.SetLogLevel("error")
}

type (
	// ClientLogContextHook is a client-defined hook that can be used to insert log
	// fields based on the Context.
	ClientLogContextHook = loginterface.ClientLogContextHook

	// LogEntry allows for logging using a snapshot of field values.
	LogEntry = loginterface.LogEntry

	// PrestoLogger abstracts away the underlying logging mechanism.
	PrestoLogger = loginterface.PrestoLogger
)

// SetLogKeys sets the context keys to be written to logs when logger.WithContext is used.
func SetLogKeys(keys ...contextKey) {
	ikeys := make([]interface{}, len(keys))
	for i, k := range keys {
		ikeys[i] = k
	}
	loggerinternal.SetLogKeys(ikeys)
}

// RegisterLogContextHook registers a hook that can be used to extract fields
// from the Context and associated with log messages using the provided key.
func RegisterLogContextHook(contextKey string, ctxExtractor ClientLogContextHook) {
	loggerinternal.RegisterLogContextHook(contextKey, ctxExtractor)
}

// logger delegates to the internal global logger, so SetLogger takes effect everywhere
var logger PrestoLogger = loggerinternal.NewLoggerProxy()

// SetLogger sets a new logger. The provided logger is wrapped with secret masking.
func SetLogger(inLogger PrestoLogger) error {
	return loggerinternal.SetLogger(inLogger)
}

// GetLogger returns the logger used by the client.
func GetLogger() PrestoLogger {
	return logger
}

// CreateDefaultLogger creates a new logrus-backed logger with secret masking.
// It does not change the logger used by the client.
func CreateDefaultLogger() PrestoLogger {
	return loggerinternal.CreateDefaultLogger()
}
