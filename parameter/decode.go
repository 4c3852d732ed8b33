package parameter

import (
	"fmt"
	"math"
	"unicode/utf8"

	glideffi "github.com/wippyai/glide-ffi"
	"github.com/wippyai/glide-ffi/errors"
	"github.com/wippyai/glide-ffi/layout"
)

// Decode reads the Parameter at addr. Any failure aborts the whole decode.
func Decode(mem glideffi.Memory, l *layout.Layout, addr uint64) (Arg, error) {
	if addr == 0 {
		return nil, errors.Empty(errors.PhaseDecode, []string{"param"})
	}
	return decode(mem, l, addr, []string{"param"}, false)
}

// DecodeList reads count consecutive Parameters starting at addr.
func DecodeList(mem glideffi.Memory, l *layout.Layout, addr uint64, count uint32) ([]Arg, error) {
	if count == 0 {
		return []Arg{}, nil
	}
	if addr == 0 {
		return nil, errors.Empty(errors.PhaseDecode, []string{"args"})
	}
	if err := reserve(mem, addr, count, l.Parameter.Size); err != nil {
		return nil, errors.OutOfBounds(errors.PhaseDecode, []string{"args"}, err)
	}
	out := make([]Arg, count)
	for i := range out {
		arg, err := decode(mem, l, addr+uint64(i)*l.Parameter.Size, []string{fmt.Sprintf("args[%d]", i)}, false)
		if err != nil {
			return nil, err
		}
		out[i] = arg
	}
	return out, nil
}

// DecodeStrings reads count pointers to NUL-terminated strings.
func DecodeStrings(mem glideffi.Memory, l *layout.Layout, addr uint64, count uint32) ([]Arg, error) {
	if count == 0 {
		return []Arg{}, nil
	}
	if addr == 0 {
		return nil, errors.Empty(errors.PhaseDecode, []string{"args"})
	}
	if err := reserve(mem, addr, count, l.PointerSize); err != nil {
		return nil, errors.OutOfBounds(errors.PhaseDecode, []string{"args"}, err)
	}
	out := make([]Arg, count)
	for i := range out {
		path := []string{fmt.Sprintf("args[%d]", i)}
		ptr, err := l.ReadPointer(mem, addr+uint64(i)*l.PointerSize)
		if err != nil {
			return nil, errors.OutOfBounds(errors.PhaseDecode, path, err)
		}
		if ptr == 0 {
			return nil, errors.Empty(errors.PhaseDecode, path)
		}
		b, err := layout.ReadCString(mem, ptr)
		if err != nil {
			return nil, errors.OutOfBounds(errors.PhaseDecode, path, err)
		}
		if !utf8.Valid(b) {
			return nil, errors.InvalidUTF8(errors.PhaseDecode, path, b)
		}
		out[i] = String(b)
	}
	return out, nil
}

func decode(mem glideffi.Memory, l *layout.Layout, addr uint64, path []string, nested bool) (Arg, error) {
	raw, err := mem.ReadU32(addr + l.Parameter.Kind)
	if err != nil {
		return nil, errors.OutOfBounds(errors.PhaseDecode, path, err)
	}
	kind := Kind(raw)
	if !kind.Valid() {
		return nil, errors.InvalidEnum(errors.PhaseDecode, path, raw, "EParameterKind")
	}

	v := addr + l.Parameter.Value
	arg, err := decodeValue(mem, l, kind, addr, v, path, nested)
	if err != nil {
		if _, ok := err.(*errors.Error); ok {
			return nil, err
		}
		return nil, errors.OutOfBounds(errors.PhaseDecode, path, err)
	}
	return arg, nil
}

func decodeValue(mem glideffi.Memory, l *layout.Layout, kind Kind, addr, v uint64, path []string, nested bool) (Arg, error) {
	switch kind {
	case KindBool:
		b, err := mem.ReadU8(v)
		return Bool(b != 0), err
	case KindInt8:
		b, err := mem.ReadU8(v)
		return Int8(int8(b)), err
	case KindUint8:
		b, err := mem.ReadU8(v)
		return Uint8(b), err
	case KindInt16:
		x, err := mem.ReadU16(v)
		return Int16(int16(x)), err
	case KindUint16:
		x, err := mem.ReadU16(v)
		return Uint16(x), err
	case KindInt32:
		x, err := mem.ReadU32(v)
		return Int32(int32(x)), err
	case KindUint32:
		x, err := mem.ReadU32(v)
		return Uint32(x), err
	case KindInt64:
		x, err := mem.ReadU64(v)
		return Int64(int64(x)), err
	case KindUint64:
		x, err := mem.ReadU64(v)
		return Uint64(x), err
	case KindFloat32:
		x, err := mem.ReadU32(v)
		return Float32(math.Float32frombits(x)), err
	case KindFloat64:
		x, err := mem.ReadU64(v)
		return Float64(math.Float64frombits(x)), err
	}

	ptr, err := l.ReadPointer(mem, v)
	if err != nil {
		return nil, err
	}
	length, err := mem.ReadU32(addr + l.Parameter.Length)
	if err != nil {
		return nil, err
	}

	if kind == KindString {
		return readString(mem, ptr, length, path)
	}

	if kind == KindKeyValueArray && nested {
		return nil, errors.InvalidData(errors.PhaseDecode, path, "nested key-value arrays are not supported")
	}

	if ptr == 0 {
		if length != 0 {
			return nil, errors.Empty(errors.PhaseDecode, path)
		}
		return emptyArray(kind), nil
	}

	if kind == KindKeyValueArray {
		return decodePairs(mem, l, ptr, length, path)
	}

	return decodeArray(mem, kind, ptr, length)
}

func readString(mem glideffi.Memory, ptr uint64, length uint32, path []string) (String, error) {
	if ptr == 0 {
		return nil, errors.Empty(errors.PhaseDecode, path)
	}
	b, err := mem.Read(ptr, uint64(length))
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(b) {
		return nil, errors.InvalidUTF8(errors.PhaseDecode, path, b)
	}
	return String(append([]byte(nil), b...)), nil
}

func decodePairs(mem glideffi.Memory, l *layout.Layout, ptr uint64, length uint32, path []string) (Arg, error) {
	if err := reserve(mem, ptr, length, l.KeyParameterPair.Size); err != nil {
		return nil, err
	}
	out := make(KeyValueArray, length)
	for i := range out {
		pair := ptr + uint64(i)*l.KeyParameterPair.Size
		elem := fmt.Sprintf("[%d]", i)

		keyPtr, err := l.ReadPointer(mem, pair+l.KeyParameterPair.Key)
		if err != nil {
			return nil, err
		}
		keyLen, err := mem.ReadU32(pair + l.KeyParameterPair.KeyLength)
		if err != nil {
			return nil, err
		}
		key, err := readString(mem, keyPtr, keyLen, sub(path, elem, "key"))
		if err != nil {
			return nil, err
		}

		value, err := decode(mem, l, pair+l.KeyParameterPair.Value, sub(path, elem, "value"), true)
		if err != nil {
			return nil, err
		}
		out[i] = KeyValue{Key: string(key), Value: value}
	}
	return out, nil
}

func decodeArray(mem glideffi.Memory, kind Kind, ptr uint64, length uint32) (Arg, error) {
	size := kind.elemSize()
	if err := reserve(mem, ptr, length, size); err != nil {
		return nil, err
	}
	n := int(length)
	at := func(i int) uint64 { return ptr + uint64(i)*size }

	switch kind {
	case KindBoolArray:
		b, err := mem.Read(ptr, uint64(length))
		if err != nil {
			return nil, err
		}
		out := make(BoolArray, n)
		for i, x := range b {
			out[i] = x != 0
		}
		return out, nil
	case KindInt8Array:
		b, err := mem.Read(ptr, uint64(length))
		if err != nil {
			return nil, err
		}
		out := make(Int8Array, n)
		for i, x := range b {
			out[i] = int8(x)
		}
		return out, nil
	case KindUint8Array:
		b, err := mem.Read(ptr, uint64(length))
		if err != nil {
			return nil, err
		}
		return Uint8Array(append([]byte{}, b...)), nil
	case KindInt16Array:
		return readEach[int16, Int16Array](n, func(i int) (int16, error) {
			x, err := mem.ReadU16(at(i))
			return int16(x), err
		})
	case KindUint16Array:
		return readEach[uint16, Uint16Array](n, func(i int) (uint16, error) { return mem.ReadU16(at(i)) })
	case KindInt32Array:
		return readEach[int32, Int32Array](n, func(i int) (int32, error) {
			x, err := mem.ReadU32(at(i))
			return int32(x), err
		})
	case KindUint32Array:
		return readEach[uint32, Uint32Array](n, func(i int) (uint32, error) { return mem.ReadU32(at(i)) })
	case KindInt64Array:
		return readEach[int64, Int64Array](n, func(i int) (int64, error) {
			x, err := mem.ReadU64(at(i))
			return int64(x), err
		})
	case KindUint64Array:
		return readEach[uint64, Uint64Array](n, func(i int) (uint64, error) { return mem.ReadU64(at(i)) })
	case KindFloat32Array:
		return readEach[float32, Float32Array](n, func(i int) (float32, error) {
			x, err := mem.ReadU32(at(i))
			return math.Float32frombits(x), err
		})
	case KindFloat64Array:
		return readEach[float64, Float64Array](n, func(i int) (float64, error) {
			x, err := mem.ReadU64(at(i))
			return math.Float64frombits(x), err
		})
	}
	return nil, fmt.Errorf("unhandled parameter kind %s", kind)
}

// reserve checks that n elements of size bytes at ptr lie in caller memory,
// so a bogus count fails before anything is allocated for it.
func reserve(mem glideffi.Memory, ptr uint64, n uint32, size uint64) error {
	if n == 0 {
		return nil
	}
	_, err := mem.Read(ptr, uint64(n)*size)
	return err
}

func readEach[T any, A interface {
	~[]T
	Arg
}](n int, read func(int) (T, error)) (Arg, error) {
	out := make([]T, n)
	for i := range out {
		v, err := read(i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return A(out), nil
}

func emptyArray(kind Kind) Arg {
	switch kind {
	case KindBoolArray:
		return BoolArray{}
	case KindInt8Array:
		return Int8Array{}
	case KindUint8Array:
		return Uint8Array{}
	case KindInt16Array:
		return Int16Array{}
	case KindUint16Array:
		return Uint16Array{}
	case KindInt32Array:
		return Int32Array{}
	case KindUint32Array:
		return Uint32Array{}
	case KindInt64Array:
		return Int64Array{}
	case KindUint64Array:
		return Uint64Array{}
	case KindFloat32Array:
		return Float32Array{}
	case KindFloat64Array:
		return Float64Array{}
	}
	return KeyValueArray{}
}

func sub(path []string, elems ...string) []string {
	out := make([]string, 0, len(path)+len(elems))
	return append(append(out, path...), elems...)
}
