package gguf

// ValueType is the GGUF metadata value type tag.
type ValueType uint32

const (
	TypeUint8   ValueType = 0
	TypeInt8    ValueType = 1
	TypeUint16  ValueType = 2
	TypeInt16   ValueType = 3
	TypeUint32  ValueType = 4
	TypeInt32   ValueType = 5
	TypeFloat32 ValueType = 6
	TypeBool    ValueType = 7
	TypeString  ValueType = 8
	TypeArray   ValueType = 9
	TypeUint64  ValueType = 10
	TypeInt64   ValueType = 11
	TypeFloat64 ValueType = 12
)

// Value is a tagged union over the heterogeneous types a GGUF key/value
// store can hold. Downstream lookups go through the typed accessors so that
// type mismatches are caught at the boundary instead of surfacing as
// garbage numbers later.
type Value struct {
	Type ValueType
	U    uint64
	I    int64
	F    float64
	B    bool
	S    string
	A    []Value
}

// Uint returns the value as uint64. Signed values convert when non-negative.
func (v Value) Uint() (uint64, bool) {
	switch v.Type {
	case TypeUint8, TypeUint16, TypeUint32, TypeUint64:
		return v.U, true
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		if v.I >= 0 {
			return uint64(v.I), true
		}
	}
	return 0, false
}

// Int returns the value as int64 for any integer-typed value.
func (v Value) Int() (int64, bool) {
	switch v.Type {
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return v.I, true
	case TypeUint8, TypeUint16, TypeUint32, TypeUint64:
		if v.U <= 1<<62 {
			return int64(v.U), true
		}
	}
	return 0, false
}

// Float returns the value as float64 for float- or integer-typed values.
func (v Value) Float() (float64, bool) {
	switch v.Type {
	case TypeFloat32, TypeFloat64:
		return v.F, true
	case TypeUint8, TypeUint16, TypeUint32, TypeUint64:
		return float64(v.U), true
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64:
		return float64(v.I), true
	}
	return 0, false
}

// Str returns the value as a string.
func (v Value) Str() (string, bool) {
	if v.Type == TypeString {
		return v.S, true
	}
	return "", false
}

// Bool returns the value as a bool.
func (v Value) Bool() (bool, bool) {
	if v.Type == TypeBool {
		return v.B, true
	}
	return false, false
}

// Array returns the value's elements.
func (v Value) Array() ([]Value, bool) {
	if v.Type == TypeArray {
		return v.A, true
	}
	return nil, false
}
