package parameter

import (
	"math"
	"strconv"
)

// Arg is one decoded command argument. The set of implementations is closed.
type Arg interface {
	Kind() Kind
	// AppendWire appends the wire arguments this Arg expands to.
	AppendWire(dst []any) []any
	isArg()
}

type (
	Bool    bool
	Int8    int8
	Uint8   uint8
	Int16   int16
	Uint16  uint16
	Int32   int32
	Uint32  uint32
	Int64   int64
	Uint64  uint64
	Float32 float32
	Float64 float64
	// String holds validated UTF-8 bytes. It is binary safe: the length comes
	// from the caller, not from a terminator.
	String []byte

	BoolArray    []bool
	Int8Array    []int8
	Uint8Array   []uint8
	Int16Array   []int16
	Uint16Array  []uint16
	Int32Array   []int32
	Uint32Array  []uint32
	Int64Array   []int64
	Uint64Array  []uint64
	Float32Array []float32
	Float64Array []float64

	KeyValueArray []KeyValue
)

// KeyValue is one entry of a KeyValueArray. Value is never a KeyValueArray.
type KeyValue struct {
	Value Arg
	Key   string
}

func (Bool) Kind() Kind          { return KindBool }
func (Int8) Kind() Kind          { return KindInt8 }
func (Uint8) Kind() Kind         { return KindUint8 }
func (Int16) Kind() Kind         { return KindInt16 }
func (Uint16) Kind() Kind        { return KindUint16 }
func (Int32) Kind() Kind         { return KindInt32 }
func (Uint32) Kind() Kind        { return KindUint32 }
func (Int64) Kind() Kind         { return KindInt64 }
func (Uint64) Kind() Kind        { return KindUint64 }
func (Float32) Kind() Kind       { return KindFloat32 }
func (Float64) Kind() Kind       { return KindFloat64 }
func (String) Kind() Kind        { return KindString }
func (BoolArray) Kind() Kind     { return KindBoolArray }
func (Int8Array) Kind() Kind     { return KindInt8Array }
func (Uint8Array) Kind() Kind    { return KindUint8Array }
func (Int16Array) Kind() Kind    { return KindInt16Array }
func (Uint16Array) Kind() Kind   { return KindUint16Array }
func (Int32Array) Kind() Kind    { return KindInt32Array }
func (Uint32Array) Kind() Kind   { return KindUint32Array }
func (Int64Array) Kind() Kind    { return KindInt64Array }
func (Uint64Array) Kind() Kind   { return KindUint64Array }
func (Float32Array) Kind() Kind  { return KindFloat32Array }
func (Float64Array) Kind() Kind  { return KindFloat64Array }
func (KeyValueArray) Kind() Kind { return KindKeyValueArray }

func (Bool) isArg()          {}
func (Int8) isArg()          {}
func (Uint8) isArg()         {}
func (Int16) isArg()         {}
func (Uint16) isArg()        {}
func (Int32) isArg()         {}
func (Uint32) isArg()        {}
func (Int64) isArg()         {}
func (Uint64) isArg()        {}
func (Float32) isArg()       {}
func (Float64) isArg()       {}
func (String) isArg()        {}
func (BoolArray) isArg()     {}
func (Int8Array) isArg()     {}
func (Uint8Array) isArg()    {}
func (Int16Array) isArg()    {}
func (Uint16Array) isArg()   {}
func (Int32Array) isArg()    {}
func (Uint32Array) isArg()   {}
func (Int64Array) isArg()    {}
func (Uint64Array) isArg()   {}
func (Float32Array) isArg()  {}
func (Float64Array) isArg()  {}
func (KeyValueArray) isArg() {}

// Scalars go on the wire as the types the store client formats natively:
// bools as 1/0, integers in decimal, floats in shortest form. Float32 is
// formatted here since the store client widens it to float64 first.

func (v Bool) AppendWire(dst []any) []any    { return append(dst, bool(v)) }
func (v Int8) AppendWire(dst []any) []any    { return append(dst, int8(v)) }
func (v Uint8) AppendWire(dst []any) []any   { return append(dst, uint8(v)) }
func (v Int16) AppendWire(dst []any) []any   { return append(dst, int16(v)) }
func (v Uint16) AppendWire(dst []any) []any  { return append(dst, uint16(v)) }
func (v Int32) AppendWire(dst []any) []any   { return append(dst, int32(v)) }
func (v Uint32) AppendWire(dst []any) []any  { return append(dst, uint32(v)) }
func (v Int64) AppendWire(dst []any) []any   { return append(dst, int64(v)) }
func (v Uint64) AppendWire(dst []any) []any  { return append(dst, uint64(v)) }
func (v Float32) AppendWire(dst []any) []any { return append(dst, formatFloat32(float32(v))) }
func (v Float64) AppendWire(dst []any) []any { return append(dst, float64(v)) }
func (v String) AppendWire(dst []any) []any  { return append(dst, []byte(v)) }

func (v BoolArray) AppendWire(dst []any) []any { return appendEach(dst, v) }
func (v Int8Array) AppendWire(dst []any) []any { return appendEach(dst, v) }

// Byte arrays travel as one binary-safe argument.
func (v Uint8Array) AppendWire(dst []any) []any { return append(dst, []byte(v)) }

func (v Int16Array) AppendWire(dst []any) []any  { return appendEach(dst, v) }
func (v Uint16Array) AppendWire(dst []any) []any { return appendEach(dst, v) }
func (v Int32Array) AppendWire(dst []any) []any  { return appendEach(dst, v) }
func (v Uint32Array) AppendWire(dst []any) []any { return appendEach(dst, v) }
func (v Int64Array) AppendWire(dst []any) []any  { return appendEach(dst, v) }
func (v Uint64Array) AppendWire(dst []any) []any { return appendEach(dst, v) }
func (v Float32Array) AppendWire(dst []any) []any {
	for _, f := range v {
		dst = append(dst, formatFloat32(f))
	}
	return dst
}
func (v Float64Array) AppendWire(dst []any) []any { return appendEach(dst, v) }

func (v KeyValueArray) AppendWire(dst []any) []any {
	for _, kv := range v {
		dst = append(dst, kv.Key)
		dst = kv.Value.AppendWire(dst)
	}
	return dst
}

func formatFloat32(f float32) string {
	return strconv.FormatFloat(float64(f), 'f', -1, 32)
}

func appendEach[T any](dst []any, items []T) []any {
	for _, item := range items {
		dst = append(dst, item)
	}
	return dst
}

// Wire expands args into the argument list sent after the command name.
func Wire(args []Arg) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		out = a.AppendWire(out)
	}
	return out
}

// Equal reports whether two args have the same kind and contents. NaN
// floats compare equal to themselves so decoded values can be checked
// against their source.
func Equal(a, b Arg) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Float32:
		return floatEq(float64(x), float64(b.(Float32)))
	case Float64:
		return floatEq(float64(x), float64(b.(Float64)))
	case String:
		return string(x) == string(b.(String))
	case BoolArray:
		return sliceEq(x, b.(BoolArray), func(p, q bool) bool { return p == q })
	case Int8Array:
		return sliceEq(x, b.(Int8Array), func(p, q int8) bool { return p == q })
	case Uint8Array:
		return string(x) == string(b.(Uint8Array))
	case Int16Array:
		return sliceEq(x, b.(Int16Array), func(p, q int16) bool { return p == q })
	case Uint16Array:
		return sliceEq(x, b.(Uint16Array), func(p, q uint16) bool { return p == q })
	case Int32Array:
		return sliceEq(x, b.(Int32Array), func(p, q int32) bool { return p == q })
	case Uint32Array:
		return sliceEq(x, b.(Uint32Array), func(p, q uint32) bool { return p == q })
	case Int64Array:
		return sliceEq(x, b.(Int64Array), func(p, q int64) bool { return p == q })
	case Uint64Array:
		return sliceEq(x, b.(Uint64Array), func(p, q uint64) bool { return p == q })
	case Float32Array:
		return sliceEq(x, b.(Float32Array), func(p, q float32) bool { return floatEq(float64(p), float64(q)) })
	case Float64Array:
		return sliceEq(x, b.(Float64Array), floatEq)
	case KeyValueArray:
		return sliceEq(x, b.(KeyValueArray), func(p, q KeyValue) bool {
			return p.Key == q.Key && Equal(p.Value, q.Value)
		})
	}
	return a == b
}

func floatEq(a, b float64) bool {
	if math.IsNaN(a) {
		return math.IsNaN(b)
	}
	return a == b
}

func sliceEq[T any](a, b []T, eq func(T, T) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !eq(a[i], b[i]) {
			return false
		}
	}
	return true
}
