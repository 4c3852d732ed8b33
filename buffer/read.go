package buffer

import (
	"math"

	glideffi "github.com/wippyai/glide-ffi"
	"github.com/wippyai/glide-ffi/errors"
	"github.com/wippyai/glide-ffi/layout"
	"github.com/wippyai/glide-ffi/value"
)

const maxReadDepth = 512

// Read decodes an encoded tree at addr. The NUL flag of strings is not
// recoverable from memory and is always false in the result.
func Read(mem glideffi.Memory, l *layout.Layout, addr uint64) (value.Value, error) {
	if addr == 0 {
		return value.Value{}, errors.Empty(errors.PhaseDecode, []string{"value"})
	}
	return read(mem, l, addr, 0)
}

func read(mem glideffi.Memory, l *layout.Layout, addr uint64, depth int) (value.Value, error) {
	if depth > maxReadDepth {
		return value.Value{}, errors.InvalidData(errors.PhaseDecode, nil, "value nesting too deep")
	}
	info := l.Value

	raw, err := mem.ReadU32(addr + info.Kind)
	if err != nil {
		return value.Value{}, errors.OutOfBounds(errors.PhaseDecode, nil, err)
	}
	kind := value.Kind(raw)
	if !kind.Valid() {
		return value.Value{}, errors.InvalidEnum(errors.PhaseDecode, nil, raw, "EValueKind")
	}
	length, err := mem.ReadU32(addr + info.Length)
	if err != nil {
		return value.Value{}, errors.OutOfBounds(errors.PhaseDecode, nil, err)
	}
	data, err := mem.ReadU64(addr + info.Data)
	if err != nil {
		return value.Value{}, errors.OutOfBounds(errors.PhaseDecode, nil, err)
	}

	v := value.Value{Kind: kind}
	switch kind {
	case value.KindInt:
		v.Int = int64(data)
	case value.KindFloat:
		v.Float = math.Float64frombits(data)
	case value.KindBool:
		v.Bool = data != 0
	case value.KindBulkString, value.KindSimpleString, value.KindError, value.KindBigNumber:
		if length == 0 {
			v.Bytes = []byte{}
			break
		}
		b, err := mem.Read(data, uint64(length))
		if err != nil {
			return value.Value{}, errors.OutOfBounds(errors.PhaseDecode, nil, err)
		}
		v.Bytes = append([]byte(nil), b...)
	case value.KindArray, value.KindSet:
		v.Items = make([]value.Value, length)
		for i := range v.Items {
			item, err := read(mem, l, data+uint64(i)*info.Size, depth+1)
			if err != nil {
				return value.Value{}, err
			}
			v.Items[i] = item
		}
	case value.KindMap:
		pair := l.KeyValuePair
		v.Pairs = make([]value.Pair, length)
		for i := range v.Pairs {
			at := data + uint64(i)*pair.Size
			key, err := read(mem, l, at+pair.Key, depth+1)
			if err != nil {
				return value.Value{}, err
			}
			val, err := read(mem, l, at+pair.Value, depth+1)
			if err != nil {
				return value.Value{}, err
			}
			v.Pairs[i] = value.Pair{Key: key, Value: val}
		}
	}
	return v, nil
}

// ReadString reads the NUL-terminated error string at addr.
func ReadString(mem glideffi.Memory, addr uint64) (string, error) {
	if addr == 0 {
		return "", errors.Empty(errors.PhaseDecode, []string{"string"})
	}
	b, err := layout.ReadCString(mem, addr)
	if err != nil {
		return "", errors.OutOfBounds(errors.PhaseDecode, nil, err)
	}
	return string(b), nil
}
