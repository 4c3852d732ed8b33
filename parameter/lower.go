package parameter

import (
	"fmt"
	"math"

	glideffi "github.com/wippyai/glide-ffi"
	"github.com/wippyai/glide-ffi/errors"
	"github.com/wippyai/glide-ffi/layout"
)

// Lower writes args into caller memory as a Parameter array and returns its
// address, or 0 for no args. Every allocation is recorded in list; on error
// the caller frees the list.
func Lower(mem glideffi.Memory, alloc glideffi.Allocator, l *layout.Layout, args []Arg, list *AllocationList) (uint64, error) {
	if len(args) == 0 {
		return 0, nil
	}
	w := lowerer{mem: mem, alloc: alloc, l: l, list: list}
	base, err := w.allocate(uint64(len(args))*l.Parameter.Size, 8)
	if err != nil {
		return 0, err
	}
	for i, arg := range args {
		if err := w.param(base+uint64(i)*l.Parameter.Size, arg, []string{fmt.Sprintf("args[%d]", i)}); err != nil {
			return 0, err
		}
	}
	return base, nil
}

// LowerStrings writes args as an array of NUL-terminated C strings.
func LowerStrings(mem glideffi.Memory, alloc glideffi.Allocator, l *layout.Layout, args []string, list *AllocationList) (uint64, error) {
	if len(args) == 0 {
		return 0, nil
	}
	w := lowerer{mem: mem, alloc: alloc, l: l, list: list}
	base, err := w.allocate(uint64(len(args))*l.PointerSize, l.PointerSize)
	if err != nil {
		return 0, err
	}
	for i, s := range args {
		ptr, err := w.bytes(append([]byte(s), 0), 1)
		if err != nil {
			return 0, err
		}
		if err := l.WritePointer(mem, base+uint64(i)*l.PointerSize, ptr); err != nil {
			return 0, err
		}
	}
	return base, nil
}

type lowerer struct {
	mem   glideffi.Memory
	alloc glideffi.Allocator
	l     *layout.Layout
	list  *AllocationList
}

func (w *lowerer) allocate(size, align uint64) (uint64, error) {
	addr, err := w.alloc.Alloc(size, align)
	if err != nil {
		return 0, errors.AllocationFailed(errors.PhaseEncode, size, align, err)
	}
	w.list.Add(addr)
	return addr, nil
}

func (w *lowerer) bytes(b []byte, align uint64) (uint64, error) {
	size := uint64(len(b))
	if size == 0 {
		size = 1
	}
	addr, err := w.allocate(size, align)
	if err != nil {
		return 0, err
	}
	return addr, w.mem.Write(addr, b)
}

func length(n int, path []string) (uint32, error) {
	if uint64(n) > math.MaxUint32 {
		return 0, errors.Overflow(errors.PhaseEncode, path, n, "uint32")
	}
	return uint32(n), nil
}

func (w *lowerer) param(addr uint64, arg Arg, path []string) error {
	if arg == nil {
		return errors.Empty(errors.PhaseEncode, path)
	}
	if err := w.mem.WriteU32(addr+w.l.Parameter.Kind, uint32(arg.Kind())); err != nil {
		return err
	}
	v := addr + w.l.Parameter.Value
	// clear the union so narrow members leave no stale bytes
	if err := w.mem.WriteU64(v, 0); err != nil {
		return err
	}

	var (
		ptr uint64
		n   int
		err error
	)
	switch a := arg.(type) {
	case Bool:
		var b uint8
		if a {
			b = 1
		}
		return w.mem.WriteU8(v, b)
	case Int8:
		return w.mem.WriteU8(v, uint8(a))
	case Uint8:
		return w.mem.WriteU8(v, uint8(a))
	case Int16:
		return w.mem.WriteU16(v, uint16(a))
	case Uint16:
		return w.mem.WriteU16(v, uint16(a))
	case Int32:
		return w.mem.WriteU32(v, uint32(a))
	case Uint32:
		return w.mem.WriteU32(v, uint32(a))
	case Int64:
		return w.mem.WriteU64(v, uint64(a))
	case Uint64:
		return w.mem.WriteU64(v, uint64(a))
	case Float32:
		return w.mem.WriteU32(v, math.Float32bits(float32(a)))
	case Float64:
		return w.mem.WriteU64(v, math.Float64bits(float64(a)))
	case String:
		n = len(a)
		ptr, err = w.bytes(a, 1)
	case BoolArray:
		n = len(a)
		ptr, err = w.array(n, 1, func(at uint64, i int) error {
			var b uint8
			if a[i] {
				b = 1
			}
			return w.mem.WriteU8(at, b)
		})
	case Int8Array:
		n = len(a)
		ptr, err = w.array(n, 1, func(at uint64, i int) error { return w.mem.WriteU8(at, uint8(a[i])) })
	case Uint8Array:
		n = len(a)
		if n > 0 {
			ptr, err = w.bytes(a, 1)
		}
	case Int16Array:
		n = len(a)
		ptr, err = w.array(n, 2, func(at uint64, i int) error { return w.mem.WriteU16(at, uint16(a[i])) })
	case Uint16Array:
		n = len(a)
		ptr, err = w.array(n, 2, func(at uint64, i int) error { return w.mem.WriteU16(at, a[i]) })
	case Int32Array:
		n = len(a)
		ptr, err = w.array(n, 4, func(at uint64, i int) error { return w.mem.WriteU32(at, uint32(a[i])) })
	case Uint32Array:
		n = len(a)
		ptr, err = w.array(n, 4, func(at uint64, i int) error { return w.mem.WriteU32(at, a[i]) })
	case Int64Array:
		n = len(a)
		ptr, err = w.array(n, 8, func(at uint64, i int) error { return w.mem.WriteU64(at, uint64(a[i])) })
	case Uint64Array:
		n = len(a)
		ptr, err = w.array(n, 8, func(at uint64, i int) error { return w.mem.WriteU64(at, a[i]) })
	case Float32Array:
		n = len(a)
		ptr, err = w.array(n, 4, func(at uint64, i int) error { return w.mem.WriteU32(at, math.Float32bits(a[i])) })
	case Float64Array:
		n = len(a)
		ptr, err = w.array(n, 8, func(at uint64, i int) error { return w.mem.WriteU64(at, math.Float64bits(a[i])) })
	case KeyValueArray:
		n = len(a)
		ptr, err = w.pairs(a, path)
	default:
		return errors.InvalidEnum(errors.PhaseEncode, path, arg.Kind(), "EParameterKind")
	}
	if err != nil {
		return err
	}

	count, err := length(n, path)
	if err != nil {
		return err
	}
	if err := w.l.WritePointer(w.mem, v, ptr); err != nil {
		return err
	}
	return w.mem.WriteU32(addr+w.l.Parameter.Length, count)
}

// array allocates n elements of size bytes; empty arrays are a null pointer.
func (w *lowerer) array(n int, size uint64, put func(at uint64, i int) error) (uint64, error) {
	if n == 0 {
		return 0, nil
	}
	base, err := w.allocate(uint64(n)*size, size)
	if err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		if err := put(base+uint64(i)*size, i); err != nil {
			return 0, err
		}
	}
	return base, nil
}

func (w *lowerer) pairs(kvs KeyValueArray, path []string) (uint64, error) {
	if len(kvs) == 0 {
		return 0, nil
	}
	info := w.l.KeyParameterPair
	base, err := w.allocate(uint64(len(kvs))*info.Size, 8)
	if err != nil {
		return 0, err
	}
	for i, kv := range kvs {
		elem := sub(path, fmt.Sprintf("[%d]", i))
		if _, ok := kv.Value.(KeyValueArray); ok {
			return 0, errors.InvalidData(errors.PhaseEncode, elem, "nested key-value arrays are not supported")
		}
		pair := base + uint64(i)*info.Size
		keyPtr, err := w.bytes([]byte(kv.Key), 1)
		if err != nil {
			return 0, err
		}
		keyLen, err := length(len(kv.Key), elem)
		if err != nil {
			return 0, err
		}
		if err := w.l.WritePointer(w.mem, pair+info.Key, keyPtr); err != nil {
			return 0, err
		}
		if err := w.mem.WriteU32(pair+info.KeyLength, keyLen); err != nil {
			return 0, err
		}
		if err := w.param(pair+info.Value, kv.Value, sub(elem, "value")); err != nil {
			return 0, err
		}
	}
	return base, nil
}
