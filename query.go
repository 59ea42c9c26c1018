// Copyright (c) 2024 Snowflake Computing Inc. All rights reserved.

package gopresto

import (
	"encoding/json"
	"strings"

	"github.com/snowflakedb/gopresto/internal/types"
)

// TypeSignature is the structured form of a column type as reported by the coordinator.
type TypeSignature struct {
	RawType   string              `json:"rawType"`
	Arguments []TypeSignatureArgs `json:"arguments,omitempty"`
}

// TypeSignatureArgs is one parameter of a TypeSignature. Kind is TYPE,
// NAMED_TYPE or LONG; Value is kept undecoded.
type TypeSignatureArgs struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// Column describes one result column.
type Column struct {
	Name          string         `json:"name"`
	Type          string         `json:"type"`
	TypeSignature *TypeSignature `json:"typeSignature,omitempty"`
}

// RawType returns the base type name of the column, such as "bigint" for
// "bigint", "varchar" for "varchar(10)" or "timestamp with time zone" for
// "timestamp(3) with time zone".
func (c Column) RawType() string {
	if c.TypeSignature != nil && c.TypeSignature.RawType != "" {
		return strings.ToLower(c.TypeSignature.RawType)
	}
	return types.Normalize(c.Type)
}

// StageStats are the execution statistics of one stage.
type StageStats struct {
	StageID         string       `json:"stageId"`
	State           string       `json:"state"`
	Done            bool         `json:"done"`
	Nodes           int          `json:"nodes"`
	TotalSplits     int          `json:"totalSplits"`
	QueuedSplits    int          `json:"queuedSplits"`
	RunningSplits   int          `json:"runningSplits"`
	CompletedSplits int          `json:"completedSplits"`
	CPUTimeMillis   int64        `json:"cpuTimeMillis"`
	WallTimeMillis  int64        `json:"wallTimeMillis"`
	ProcessedRows   int64        `json:"processedRows"`
	ProcessedBytes  int64        `json:"processedBytes"`
	FailedTasks     int          `json:"failedTasks"`
	SubStages       []StageStats `json:"subStages,omitempty"`
}

// StatementStats are the execution statistics reported on every page.
type StatementStats struct {
	State              string      `json:"state"`
	Queued             bool        `json:"queued"`
	Scheduled          bool        `json:"scheduled"`
	ProgressPercentage float64     `json:"progressPercentage"`
	Nodes              int         `json:"nodes"`
	TotalSplits        int         `json:"totalSplits"`
	QueuedSplits       int         `json:"queuedSplits"`
	RunningSplits      int         `json:"runningSplits"`
	CompletedSplits    int         `json:"completedSplits"`
	CPUTimeMillis      int64       `json:"cpuTimeMillis"`
	WallTimeMillis     int64       `json:"wallTimeMillis"`
	QueuedTimeMillis   int64       `json:"queuedTimeMillis"`
	ElapsedTimeMillis  int64       `json:"elapsedTimeMillis"`
	ProcessedRows      int64       `json:"processedRows"`
	ProcessedBytes     int64       `json:"processedBytes"`
	PeakMemoryBytes    int64       `json:"peakMemoryBytes"`
	SpilledBytes       int64       `json:"spilledBytes"`
	RootStage          *StageStats `json:"rootStage,omitempty"`
}

// ErrorLocation is a 1-based position in the submitted SQL text.
type ErrorLocation struct {
	LineNumber   int `json:"lineNumber"`
	ColumnNumber int `json:"columnNumber"`
}

// FailureInfo is the server-side failure chain attached to an error object.
type FailureInfo struct {
	Type          string         `json:"type"`
	Message       string         `json:"message"`
	Cause         *FailureInfo   `json:"cause,omitempty"`
	Suppressed    []FailureInfo  `json:"suppressed,omitempty"`
	Stack         []string       `json:"stack,omitempty"`
	ErrorLocation *ErrorLocation `json:"errorLocation,omitempty"`
}

// ErrorObject is the error reported on a page when the query failed.
type ErrorObject struct {
	Message       string         `json:"message"`
	SQLState      string         `json:"sqlState,omitempty"`
	ErrorCode     int            `json:"errorCode"`
	ErrorName     string         `json:"errorName"`
	ErrorType     string         `json:"errorType"`
	ErrorLocation *ErrorLocation `json:"errorLocation,omitempty"`
	FailureInfo   *FailureInfo   `json:"failureInfo,omitempty"`
}

// Warning is a non-fatal condition reported by the coordinator.
type Warning struct {
	WarningCode struct {
		Code int    `json:"code"`
		Name string `json:"name"`
	} `json:"warningCode"`
	Message string `json:"message"`
}

// QueryResults is one page returned by the statement endpoint.
type QueryResults struct {
	ID               string         `json:"id"`
	InfoURI          string         `json:"infoUri"`
	PartialCancelURI string         `json:"partialCancelUri,omitempty"`
	NextURI          string         `json:"nextUri,omitempty"`
	Columns          []Column       `json:"columns,omitempty"`
	Data             [][]Value      `json:"data,omitempty"`
	Stats            StatementStats `json:"stats"`
	Error            *ErrorObject   `json:"error,omitempty"`
	Warnings         []Warning      `json:"warnings,omitempty"`
	UpdateType       string         `json:"updateType,omitempty"`
	UpdateCount      *int64         `json:"updateCount,omitempty"`

	body []byte // raw page, kept for QueryError.Body
}

// HasNext reports whether the coordinator expects the client to poll again.
func (qr *QueryResults) HasNext() bool {
	return qr.NextURI != ""
}

// HasError reports whether the page carries an error object.
func (qr *QueryResults) HasError() bool {
	return qr.Error != nil
}

// ColumnNames returns the names of the page's columns.
func (qr *QueryResults) ColumnNames() []string {
	names := make([]string, len(qr.Columns))
	for i, c := range qr.Columns {
		names[i] = c.Name
	}
	return names
}

// ToCSV formats the rows of this page only.
func (qr *QueryResults) ToCSV() string {
	return formatCSV(qr.Data)
}

// validate checks invariants that JSON decoding cannot express. An error
// location that is not 1-based is dropped so the error object survives.
func (qr *QueryResults) validate() error {
	if qr.Data != nil && qr.Columns == nil {
		return errDataWithoutColumns
	}
	if qr.Error != nil && qr.Error.ErrorLocation != nil {
		loc := qr.Error.ErrorLocation
		if loc.LineNumber < 1 || loc.ColumnNumber < 1 {
			logger.Warnf("ignoring invalid error location %d:%d of query %v", loc.LineNumber, loc.ColumnNumber, qr.ID)
			qr.Error.ErrorLocation = nil
		}
	}
	return nil
}
