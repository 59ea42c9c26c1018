// Copyright (c) 2024 Snowflake Computing Inc. All rights reserved.

package gopresto

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// PrestoError is a client-side configuration or usage error. It is raised
// before any request is sent.
type PrestoError struct {
	Number      int
	Message     string
	MessageArgs []interface{}
}

func (pe *PrestoError) Error() string {
	message := pe.Message
	if len(pe.MessageArgs) > 0 {
		message = fmt.Sprintf(pe.Message, pe.MessageArgs...)
	}
	return fmt.Sprintf("%06d: %s", pe.Number, message)
}

// Is matches any PrestoError with the same number, so that errors built from
// a preformatted error with MessageArgs still match it.
func (pe *PrestoError) Is(target error) bool {
	var other *PrestoError
	if !errors.As(target, &other) {
		return false
	}
	return pe.Number == other.Number
}

func (pe *PrestoError) withArgs(args ...interface{}) *PrestoError {
	return &PrestoError{Number: pe.Number, Message: pe.Message, MessageArgs: args}
}

const (
	// configuration

	// ErrCodeEmptyHost is an error code for the case where no coordinator host is configured.
	ErrCodeEmptyHost = 260001
	// ErrCodeEmptyUser is an error code for the case where no user is configured.
	ErrCodeEmptyUser = 260002
	// ErrCodeSchemaWithoutCatalog is an error code for the case where a schema is set without a catalog.
	ErrCodeSchemaWithoutCatalog = 260003
	// ErrCodeInvalidClientTag is an error code for the case where a client tag contains a comma.
	ErrCodeInvalidClientTag = 260004
	// ErrCodeInvalidSessionProperty is an error code for an invalid session property key or value.
	ErrCodeInvalidSessionProperty = 260005
	// ErrCodeInvalidLocale is an error code for a locale that is not a valid language tag.
	ErrCodeInvalidLocale = 260006
	// ErrCodeFailedToParsePort is an error code for an invalid port number.
	ErrCodeFailedToParsePort = 260007
	// ErrCodeInvalidTimeZone is an error code for an unknown time zone.
	ErrCodeInvalidTimeZone = 260008
	// ErrCodeConflictingCredentials is an error code for a password configured together with an access token.
	ErrCodeConflictingCredentials = 260009
	// ErrCodeExpiredAccessToken is an error code for an access token whose exp claim is in the past.
	ErrCodeExpiredAccessToken = 260010
	// ErrCodeInvalidFlavor is an error code for an unknown protocol flavor.
	ErrCodeInvalidFlavor = 260011
	// ErrCodeInvalidDSNParameter is an error code for an unknown or malformed connection string parameter.
	ErrCodeInvalidDSNParameter = 260012
	// ErrCodeFailedToFindDSNInToml is an error code for a connection name missing from connections.toml.
	ErrCodeFailedToFindDSNInToml = 260013
	// ErrCodeTomlFileParsingFailed is an error code for an invalid value in connections.toml.
	ErrCodeTomlFileParsingFailed = 260014
	// ErrCodeInvalidFilePermission is an error code for a connections.toml writable by others.
	ErrCodeInvalidFilePermission = 260015
	// ErrCodeInvalidPreparedStatement is an error code for a prepared statement with an empty name.
	ErrCodeInvalidPreparedStatement = 260016
	// ErrCodeInvalidMaxRetryAttempts is an error code for a retry cap outside 1 to maxRetryAttemptsLimit.
	ErrCodeInvalidMaxRetryAttempts = 260017

	// results

	// ErrCodeNoResultData is an error code for materializing a result that holds no data.
	ErrCodeNoResultData = 261001
	// ErrCodeInvalidCellValue is an error code for a cell that does not match its column type.
	ErrCodeInvalidCellValue = 261002
)

var (
	// ErrEmptyHost is returned if no coordinator host is configured.
	ErrEmptyHost = &PrestoError{Number: ErrCodeEmptyHost, Message: "host is empty"}
	// ErrEmptyUser is returned if no user is configured.
	ErrEmptyUser = &PrestoError{Number: ErrCodeEmptyUser, Message: "user is empty"}
	// ErrSchemaWithoutCatalog is returned if a schema is set without a catalog.
	ErrSchemaWithoutCatalog = &PrestoError{Number: ErrCodeSchemaWithoutCatalog, Message: "schema %q is set but catalog is empty"}
	// ErrInvalidClientTag is returned if a client tag contains a comma.
	ErrInvalidClientTag = &PrestoError{Number: ErrCodeInvalidClientTag, Message: "client tag %q must not contain a comma"}
	// ErrInvalidSessionProperty is returned for an invalid session property.
	ErrInvalidSessionProperty = &PrestoError{Number: ErrCodeInvalidSessionProperty, Message: "invalid session property %q: %v"}
	// ErrInvalidLocale is returned for a locale that cannot be parsed.
	ErrInvalidLocale = &PrestoError{Number: ErrCodeInvalidLocale, Message: "invalid locale %q: %v"}
	// ErrFailedToParsePort is returned for an invalid port number.
	ErrFailedToParsePort = &PrestoError{Number: ErrCodeFailedToParsePort, Message: "failed to parse a port number. port: %v"}
	// ErrInvalidTimeZone is returned for an unknown time zone.
	ErrInvalidTimeZone = &PrestoError{Number: ErrCodeInvalidTimeZone, Message: "invalid time zone %q: %v"}
	// ErrConflictingCredentials is returned when both password and access token are set.
	ErrConflictingCredentials = &PrestoError{Number: ErrCodeConflictingCredentials, Message: "password and access token are mutually exclusive"}
	// ErrExpiredAccessToken is returned for an access token that already expired.
	ErrExpiredAccessToken = &PrestoError{Number: ErrCodeExpiredAccessToken, Message: "access token expired at %v"}
	// ErrInvalidFlavor is returned for an unknown flavor.
	ErrInvalidFlavor = &PrestoError{Number: ErrCodeInvalidFlavor, Message: "unknown flavor %q, expected presto or trino"}
	// ErrInvalidDSNParameter is returned for an unknown or malformed connection string parameter.
	ErrInvalidDSNParameter = &PrestoError{Number: ErrCodeInvalidDSNParameter, Message: "invalid connection string parameter %q: %v"}
	// ErrFailedToFindDSNInToml is returned when the connection is missing in connections.toml.
	ErrFailedToFindDSNInToml = &PrestoError{Number: ErrCodeFailedToFindDSNInToml, Message: "failed to find connection %q in the toml file"}
	// ErrTomlFileParsingFailed is returned for an invalid value in connections.toml.
	ErrTomlFileParsingFailed = &PrestoError{Number: ErrCodeTomlFileParsingFailed, Message: "failed to parse the toml file. key: %v, value: %v"}
	// ErrInvalidFilePermission is returned for a connections.toml writable by group or others.
	ErrInvalidFilePermission = &PrestoError{Number: ErrCodeInvalidFilePermission, Message: "file %v is writable by group or others, permissions %v"}
	// ErrInvalidPreparedStatement is returned for a prepared statement without a name.
	ErrInvalidPreparedStatement = &PrestoError{Number: ErrCodeInvalidPreparedStatement, Message: "prepared statement name must not be empty"}
	// ErrInvalidMaxRetryAttempts is returned for a retry cap that is too large.
	ErrInvalidMaxRetryAttempts = &PrestoError{Number: ErrCodeInvalidMaxRetryAttempts, Message: "max retry attempts %v is out of range, expected at most %v"}
	// ErrNoResultData is returned when materializing a result without rows or columns.
	ErrNoResultData = &PrestoError{Number: ErrCodeNoResultData, Message: "result holds no data"}
	// ErrInvalidCellValue is returned when a cell cannot be converted to its column type.
	ErrInvalidCellValue = &PrestoError{Number: ErrCodeInvalidCellValue, Message: "cannot convert %v value %q of column %q"}
)

var errDataWithoutColumns = errors.New("page carries data but no columns")

// TransportError is returned when the coordinator answered with a status the
// protocol does not expect, or could not be reached at all.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
	Attempts   int
	Cause      error
}

func (te *TransportError) Error() string {
	if te.StatusCode == 0 {
		return fmt.Sprintf("%v %v failed after %d attempt(s): %v", te.Method, te.URL, te.Attempts, te.Cause)
	}
	msg := fmt.Sprintf("%v %v failed after %d attempt(s): HTTP %d %s",
		te.Method, te.URL, te.Attempts, te.StatusCode, http.StatusText(te.StatusCode))
	if body := strings.TrimSpace(te.Body); body != "" {
		msg += ": " + body
	}
	return msg
}

func (te *TransportError) Unwrap() error {
	return te.Cause
}

// ParseError is returned when a response body is not a valid page.
type ParseError struct {
	Body  string
	Cause error
}

func (pe *ParseError) Error() string {
	return fmt.Sprintf("failed to decode coordinator response: %v", pe.Cause)
}

func (pe *ParseError) Unwrap() error {
	return pe.Cause
}

// QueryError is returned when the coordinator reports that the query failed.
type QueryError struct {
	QueryID       string
	Message       string
	SQLState      string
	ErrorCode     int
	ErrorName     string
	ErrorType     string
	ErrorLocation *ErrorLocation
	FailureInfo   *FailureInfo
	Body          string
}

func newQueryError(qr *QueryResults, body []byte) *QueryError {
	e := qr.Error
	return &QueryError{
		QueryID:       qr.ID,
		Message:       e.Message,
		SQLState:      e.SQLState,
		ErrorCode:     e.ErrorCode,
		ErrorName:     e.ErrorName,
		ErrorType:     e.ErrorType,
		ErrorLocation: e.ErrorLocation,
		FailureInfo:   e.FailureInfo,
		Body:          string(body),
	}
}

func (qe *QueryError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "query %v failed: %v (%v", qe.QueryID, qe.Message, qe.ErrorName)
	if qe.SQLState != "" {
		fmt.Fprintf(&b, ", SQLSTATE %v", qe.SQLState)
	}
	b.WriteString(")")
	if qe.ErrorLocation != nil {
		fmt.Fprintf(&b, " at line %d, column %d", qe.ErrorLocation.LineNumber, qe.ErrorLocation.ColumnNumber)
	}
	return b.String()
}

// Unwrap returns the server-side failure chain, if any.
func (qe *QueryError) Unwrap() error {
	if qe.FailureInfo == nil {
		return nil
	}
	return qe.FailureInfo.Err()
}

// IsUserError reports whether the failure was caused by the query itself.
func (qe *QueryError) IsUserError() bool {
	return qe.ErrorType == "USER_ERROR"
}
