package parameter

import "fmt"

// Kind selects the active member of a Parameter's value union.
type Kind uint32

const (
	KindBool Kind = iota
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindBoolArray
	KindInt8Array
	KindUint8Array
	KindInt16Array
	KindUint16Array
	KindInt32Array
	KindUint32Array
	KindInt64Array
	KindUint64Array
	KindFloat32Array
	KindFloat64Array
	KindKeyValueArray
)

var kindNames = [...]string{
	"Bool", "Int8", "Uint8", "Int16", "Uint16", "Int32", "Uint32", "Int64",
	"Uint64", "Float32", "Float64", "String", "BoolArray", "Int8Array",
	"Uint8Array", "Int16Array", "Uint16Array", "Int32Array", "Uint32Array",
	"Int64Array", "Uint64Array", "Float32Array", "Float64Array", "KeyValueArray",
}

func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint32(k))
}

// Valid reports whether k names a known parameter kind.
func (k Kind) Valid() bool {
	return k <= KindKeyValueArray
}

// IsArray reports whether the value union holds a pointer to elements.
func (k Kind) IsArray() bool {
	return k >= KindBoolArray && k <= KindKeyValueArray
}

// elemSize is the element width for scalar arrays.
func (k Kind) elemSize() uint64 {
	switch k {
	case KindBoolArray, KindInt8Array, KindUint8Array:
		return 1
	case KindInt16Array, KindUint16Array:
		return 2
	case KindInt32Array, KindUint32Array, KindFloat32Array:
		return 4
	case KindInt64Array, KindUint64Array, KindFloat64Array:
		return 8
	}
	return 0
}
