package logger

import (
	"github.com/snowflakedb/gopresto/loginterface"
)

// Re-export types from loginterface package to avoid circular dependencies
// while maintaining a clean internal API
type (
	LogEntry             = loginterface.LogEntry
	PrestoLogger         = loginterface.PrestoLogger
	ClientLogContextHook = loginterface.ClientLogContextHook
)
