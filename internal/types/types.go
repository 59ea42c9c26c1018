package types

import (
	"strings"
)

// PrestoType is the conversion class of a coordinator column type.
type PrestoType int

const (
	// VarcharType is any type rendered as a plain string (varchar, char, uuid, ipaddress and unknown types).
	VarcharType PrestoType = iota
	// BigintType covers the integer types tinyint, smallint, integer and bigint.
	BigintType
	// DoubleType covers the floating point types real and double.
	DoubleType
	// DecimalType is an exact numeric kept as a JSON number.
	DecimalType
	// BooleanType is a boolean.
	BooleanType
	// DateType is a calendar date.
	DateType
	// TimeType is a time of day without a zone.
	TimeType
	// TimeTzType is a time of day with a zone offset.
	TimeTzType
	// TimestampType is a timestamp without a zone.
	TimestampType
	// TimestampTzType is a timestamp with a zone.
	TimestampTzType
	// JSONType is a json value, kept raw.
	JSONType
	// ArrayType is an array, kept raw.
	ArrayType
	// MapType is a map, kept raw.
	MapType
	// RowType is a row, kept raw.
	RowType
)

// PrestoToDriverType maps lower-case coordinator type names to their conversion class.
var PrestoToDriverType = map[string]PrestoType{
	"varchar":                  VarcharType,
	"tinyint":                  BigintType,
	"smallint":                 BigintType,
	"integer":                  BigintType,
	"bigint":                   BigintType,
	"real":                     DoubleType,
	"double":                   DoubleType,
	"decimal":                  DecimalType,
	"boolean":                  BooleanType,
	"date":                     DateType,
	"time":                     TimeType,
	"time with time zone":      TimeTzType,
	"timestamp":                TimestampType,
	"timestamp with time zone": TimestampTzType,
	"json":                     JSONType,
	"array":                    ArrayType,
	"map":                      MapType,
	"row":                      RowType,
}

var typeNames = map[PrestoType]string{
	VarcharType:     "varchar",
	BigintType:      "bigint",
	DoubleType:      "double",
	DecimalType:     "decimal",
	BooleanType:     "boolean",
	DateType:        "date",
	TimeType:        "time",
	TimeTzType:      "time with time zone",
	TimestampType:   "timestamp",
	TimestampTzType: "timestamp with time zone",
	JSONType:        "json",
	ArrayType:       "array",
	MapType:         "map",
	RowType:         "row",
}

func (pt PrestoType) String() string {
	return typeNames[pt]
}

// IsTemporal reports whether values of the type are parsed into time.Time.
func (pt PrestoType) IsTemporal() bool {
	switch pt {
	case DateType, TimeType, TimeTzType, TimestampType, TimestampTzType:
		return true
	}
	return false
}

// IsStructural reports whether values of the type are kept as raw JSON.
func (pt PrestoType) IsStructural() bool {
	switch pt {
	case JSONType, ArrayType, MapType, RowType:
		return true
	}
	return false
}

// GetPrestoType returns the conversion class of a raw type name such as
// "bigint", "decimal(10,2)" or "timestamp(3) with time zone". Unknown names
// are VarcharType.
func GetPrestoType(typ string) PrestoType {
	name := Normalize(typ)
	if t, ok := PrestoToDriverType[name]; ok {
		return t
	}
	return VarcharType
}

// Normalize lower-cases typ and drops its parameter list, keeping any
// trailing zone qualifier.
func Normalize(typ string) string {
	name := strings.ToLower(strings.TrimSpace(typ))
	open := strings.IndexByte(name, '(')
	if open < 0 {
		return name
	}
	rest := ""
	if close := strings.LastIndexByte(name, ')'); close > open {
		rest = name[close+1:]
	}
	return strings.TrimSpace(name[:open] + rest)
}
