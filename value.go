package gopresto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind identifies which member of a Value is set.
type ValueKind uint8

const (
	// NullValue is a SQL NULL
	NullValue ValueKind = iota
	// BoolValue is a JSON boolean
	BoolValue
	// IntValue is a JSON number without fraction or exponent that fits in int64
	IntValue
	// FloatValue is any other JSON number
	FloatValue
	// StringValue is a JSON string
	StringValue
	// OpaqueValue is a JSON array or object, such as an ARRAY, MAP or ROW cell
	OpaqueValue
)

func (k ValueKind) String() string {
	switch k {
	case NullValue:
		return "null"
	case BoolValue:
		return "bool"
	case IntValue:
		return "int"
	case FloatValue:
		return "float"
	case StringValue:
		return "string"
	case OpaqueValue:
		return "opaque"
	}
	return fmt.Sprintf("ValueKind(%d)", uint8(k))
}

// Value is one cell of a result row. The coordinator sends cells as JSON
// scalars whose shape depends on the column type; Value keeps the decoded
// scalar and defers interpretation to materialization.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
	raw  json.RawMessage
}

// Null returns a NULL cell.
func Null() Value { return Value{} }

// Bool returns a boolean cell.
func Bool(b bool) Value { return Value{kind: BoolValue, b: b} }

// Int returns an integer cell.
func Int(i int64) Value { return Value{kind: IntValue, i: i} }

// Float returns a floating point cell.
func Float(f float64) Value { return Value{kind: FloatValue, f: f} }

// String returns a string cell.
func String(s string) Value { return Value{kind: StringValue, s: s} }

// Opaque returns a cell holding raw JSON.
func Opaque(raw json.RawMessage) Value { return Value{kind: OpaqueValue, raw: raw} }

// Kind returns the kind of the cell.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the cell is NULL.
func (v Value) IsNull() bool { return v.kind == NullValue }

// AsBool returns the boolean and whether the cell holds one.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == BoolValue }

// AsInt returns the integer and whether the cell holds one.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == IntValue }

// AsFloat returns the number as float64 for int and float cells.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case FloatValue:
		return v.f, true
	case IntValue:
		return float64(v.i), true
	}
	return 0, false
}

// AsString returns the string and whether the cell holds one.
func (v Value) AsString() (string, bool) { return v.s, v.kind == StringValue }

// Raw returns the JSON text of an opaque cell.
func (v Value) Raw() json.RawMessage { return v.raw }

// Interface returns the cell as a plain Go value: nil, bool, int64, float64,
// string or json.RawMessage.
func (v Value) Interface() interface{} {
	switch v.kind {
	case BoolValue:
		return v.b
	case IntValue:
		return v.i
	case FloatValue:
		return v.f
	case StringValue:
		return v.s
	case OpaqueValue:
		return v.raw
	}
	return nil
}

// String returns the textual form used by CSV output and type conversion.
// NULL renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case BoolValue:
		return strconv.FormatBool(v.b)
	case IntValue:
		return strconv.FormatInt(v.i, 10)
	case FloatValue:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case StringValue:
		return v.s
	case OpaqueValue:
		return string(v.raw)
	}
	return ""
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty cell")
	}
	switch data[0] {
	case 'n':
		*v = Null()
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	case '[', '{':
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		*v = Opaque(raw)
		return nil
	}
	text := string(data)
	if !bytes.ContainsAny(data, ".eE") {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			*v = Int(i)
			return nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("invalid cell %q: %w", text, err)
	}
	*v = Float(f)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case OpaqueValue:
		return v.raw, nil
	case NullValue:
		return []byte("null"), nil
	}
	return json.Marshal(v.Interface())
}
