// Copyright (c) 2024 Snowflake Computing Inc. All rights reserved.

package gopresto

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/snowflakedb/gopresto/internal/types"
)

// Layouts of temporal values without a zone. Go keeps at most 9 fractional digits.
var timeLayouts = map[types.PrestoType][]string{
	types.DateType:      {"2006-01-02"},
	types.TimeType:      {"15:04:05.999999999"},
	types.TimestampType: {"2006-01-02 15:04:05.999999999", "2006-01-02T15:04:05.999999999"},
}

// Layouts of temporal values with a numeric zone offset.
var timeLayoutsTZ = map[types.PrestoType][]string{
	types.TimeTzType:      {"15:04:05.999999999 -07:00"},
	types.TimestampTzType: {"2006-01-02 15:04:05.999999999 -07:00"},
}

// cellToValue converts a cell to the Go value of its column type, as emitted
// by Result.ToJSON. NULL cells are nil.
func cellToValue(v Value, col Column) (interface{}, error) {
	if v.IsNull() {
		return nil, nil
	}
	typ := types.GetPrestoType(col.RawType())
	invalid := func() error {
		return ErrInvalidCellValue.withArgs(typ, v.String(), col.Name)
	}
	switch typ {
	case types.BigintType:
		switch v.Kind() {
		case IntValue:
			i, _ := v.AsInt()
			return i, nil
		case StringValue:
			i, err := strconv.ParseInt(v.String(), 10, 64)
			if err != nil {
				return nil, invalid()
			}
			return i, nil
		}
		return nil, invalid()
	case types.DoubleType:
		switch v.Kind() {
		case IntValue, FloatValue:
			f, _ := v.AsFloat()
			return f, nil
		case StringValue:
			s := v.String()
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, invalid()
			}
			// NaN and infinities have no JSON number form
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return s, nil
			}
			return f, nil
		}
		return nil, invalid()
	case types.DecimalType:
		s := v.String()
		if _, err := strconv.ParseFloat(s, 64); err != nil || v.Kind() == BoolValue || v.Kind() == OpaqueValue {
			return nil, invalid()
		}
		return json.Number(s), nil
	case types.BooleanType:
		if b, ok := v.AsBool(); ok {
			return b, nil
		}
		b, err := strconv.ParseBool(v.String())
		if err != nil {
			return nil, invalid()
		}
		return b, nil
	case types.DateType, types.TimeType, types.TimeTzType, types.TimestampType, types.TimestampTzType:
		s, ok := v.AsString()
		if !ok {
			return nil, invalid()
		}
		t, err := parseTime(typ, s)
		if err != nil {
			logger.Debugf("failed to parse %v value %q: %v", typ, s, err)
			return nil, invalid()
		}
		return t, nil
	case types.JSONType:
		if v.Kind() == StringValue {
			s := v.String()
			if !json.Valid([]byte(s)) {
				return nil, invalid()
			}
			return json.RawMessage(s), nil
		}
		return v, nil
	case types.ArrayType, types.MapType, types.RowType:
		return v, nil
	}
	return v.String(), nil
}

// parseTime parses a date, time or timestamp literal. Values with a named
// zone such as "2020-01-02 03:04:05.000 America/New_York" are placed in that
// location; values without a zone are UTC.
func parseTime(typ types.PrestoType, s string) (time.Time, error) {
	if idx := strings.LastIndexByte(s, ' '); idx > 0 && typ == types.TimestampTzType {
		zone := s[idx+1:]
		if zone != "" && !unicode.IsDigit(rune(zone[0])) && zone[0] != '+' && zone[0] != '-' {
			loc, err := time.LoadLocation(zone)
			if err != nil {
				return time.Time{}, err
			}
			return parseLayouts(timeLayouts[types.TimestampType], s[:idx], loc)
		}
	}
	if layouts, ok := timeLayoutsTZ[typ]; ok {
		return parseLayouts(layouts, withOffsetSpace(s), time.UTC)
	}
	return parseLayouts(timeLayouts[typ], s, time.UTC)
}

// withOffsetSpace turns "10:00:00.000+01:00" into "10:00:00.000 +01:00".
// Hyphens before the first colon belong to the date.
func withOffsetSpace(s string) string {
	colon := strings.IndexByte(s, ':')
	if colon < 0 {
		return s
	}
	i := strings.LastIndexAny(s, "+-")
	if i <= colon || s[i-1] == ' ' {
		return s
	}
	return s[:i] + " " + s[i:]
}

func parseLayouts(layouts []string, s string, loc *time.Location) (time.Time, error) {
	var (
		t   time.Time
		err error
	)
	for _, layout := range layouts {
		t, err = time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
