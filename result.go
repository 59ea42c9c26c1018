// Copyright (c) 2024 Snowflake Computing Inc. All rights reserved.

package gopresto

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Result aggregates the pages of one statement.
type Result struct {
	QueryID   string          // id reported by the first page
	SubmitURI string          // URL the statement was posted to and closed at
	Pages     []*QueryResults // every page in the order received
	Columns   []Column        // columns of the first page that carried them
	Rows      [][]Value       // rows of all pages, concatenated
	Closed    bool            // the coordinator answered the DELETE with 204
	Err       error           // terminal error of the walk, if any
}

// Stats returns the statistics of the last page received.
func (r *Result) Stats() *StatementStats {
	if last := r.LastPage(); last != nil {
		return &last.Stats
	}
	return nil
}

// LastPage returns the last page received, or nil.
func (r *Result) LastPage() *QueryResults {
	if len(r.Pages) == 0 {
		return nil
	}
	return r.Pages[len(r.Pages)-1]
}

// Truncated reports whether polling stopped while the coordinator still
// offered a continuation, which happens when Config.Timeout elapsed.
func (r *Result) Truncated() bool {
	last := r.LastPage()
	return r.Err == nil && last != nil && last.HasNext() && !last.HasError()
}

// ColumnNames returns the names of the result columns.
func (r *Result) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// ToCSV renders every row as double-quoted cells joined by commas, one row
// per line. NULL renders as an empty quoted cell.
func (r *Result) ToCSV() (string, error) {
	if len(r.Rows) == 0 || len(r.Columns) == 0 {
		return "", ErrNoResultData
	}
	return formatCSV(r.Rows), nil
}

func formatCSV(rows [][]Value) string {
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		for j, cell := range row {
			if j > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(cell.String(), `"`, `""`))
			b.WriteByte('"')
		}
	}
	return b.String()
}

// ToJSON renders the rows as {"data":[{"column":value,...},...]} with every
// cell converted to the Go value of its column type and the column order
// preserved. It returns nil when there are no rows or no columns.
func (r *Result) ToJSON() ([]byte, error) {
	if r.Rows == nil || r.Columns == nil {
		return nil, nil
	}
	data := make([]orderedRow, len(r.Rows))
	for i, row := range r.Rows {
		converted := orderedRow{
			names:  make([]string, len(r.Columns)),
			values: make([]interface{}, len(r.Columns)),
		}
		for j, col := range r.Columns {
			converted.names[j] = col.Name
			if j >= len(row) {
				continue
			}
			v, err := cellToValue(row[j], col)
			if err != nil {
				return nil, err
			}
			converted.values[j] = v
		}
		data[i] = converted
	}
	return json.Marshal(struct {
		Data []orderedRow `json:"data"`
	}{Data: data})
}

// orderedRow marshals as a JSON object keeping the column order.
type orderedRow struct {
	names  []string
	values []interface{}
}

func (o orderedRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range o.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(o.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
