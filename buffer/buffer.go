package buffer

import (
	"fmt"
	"math"

	glideffi "github.com/wippyai/glide-ffi"
	"github.com/wippyai/glide-ffi/errors"
	"github.com/wippyai/glide-ffi/layout"
	"github.com/wippyai/glide-ffi/value"
)

// Buffer lays out one value tree. In measure mode nothing is written and
// only the running offset advances.
type Buffer struct {
	mem  glideffi.Memory
	l    *layout.Layout
	err  error
	base uint64
	off  uint64
	emit bool
}

// NewMeasure returns a buffer that only measures.
func NewMeasure(l *layout.Layout) *Buffer {
	return &Buffer{l: l}
}

// NewEmit returns a buffer writing into mem starting at base.
func NewEmit(mem glideffi.Memory, l *layout.Layout, base uint64) *Buffer {
	return &Buffer{mem: mem, l: l, base: base, emit: true}
}

// Size is the number of bytes consumed so far.
func (b *Buffer) Size() uint64 {
	return b.off
}

func (b *Buffer) Err() error {
	return b.err
}

// Fill lays out v with its root Value at the current offset and returns
// that offset.
func (b *Buffer) Fill(v value.Value) uint64 {
	root := b.reserve(b.l.Value.Size, 8)
	b.fill(root, v, nil)
	return root
}

func (b *Buffer) reserve(size, align uint64) uint64 {
	off := layout.AlignTo(b.off, align)
	b.off = off + size
	return off
}

func (b *Buffer) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Buffer) writeU32(off uint64, v uint32) {
	if !b.emit || b.err != nil {
		return
	}
	if err := b.mem.WriteU32(b.base+off, v); err != nil {
		b.fail(err)
	}
}

func (b *Buffer) writeU64(off uint64, v uint64) {
	if !b.emit || b.err != nil {
		return
	}
	if err := b.mem.WriteU64(b.base+off, v); err != nil {
		b.fail(err)
	}
}

func (b *Buffer) write(off uint64, data []byte) {
	if !b.emit || b.err != nil || len(data) == 0 {
		return
	}
	if err := b.mem.Write(b.base+off, data); err != nil {
		b.fail(err)
	}
}

func (b *Buffer) count(n int, path []string) uint32 {
	if uint64(n) > math.MaxUint32 {
		b.fail(errors.Overflow(errors.PhaseEncode, path, n, "uint32"))
		return 0
	}
	return uint32(n)
}

// pointer turns an offset into the address stored in a data field.
func (b *Buffer) pointer(off uint64) uint64 {
	return b.base + off
}

func (b *Buffer) fill(slot uint64, v value.Value, path []string) {
	info := b.l.Value
	if !v.Kind.Valid() {
		b.fail(errors.InvalidEnum(errors.PhaseEncode, path, uint32(v.Kind), "EValueKind"))
		return
	}
	b.writeU32(slot+info.Kind, uint32(v.Kind))

	switch v.Kind {
	case value.KindNil, value.KindOkay:
		b.writeU32(slot+info.Length, 0)
		b.writeU64(slot+info.Data, 0)

	case value.KindInt:
		b.writeU32(slot+info.Length, 0)
		b.writeU64(slot+info.Data, uint64(v.Int))

	case value.KindFloat:
		b.writeU32(slot+info.Length, 0)
		b.writeU64(slot+info.Data, math.Float64bits(v.Float))

	case value.KindBool:
		var flag uint64
		if v.Bool {
			flag = 1
		}
		b.writeU32(slot+info.Length, 0)
		b.writeU64(slot+info.Data, flag)

	case value.KindBulkString, value.KindSimpleString, value.KindError, value.KindBigNumber:
		n := b.count(len(v.Bytes), path)
		size := uint64(n)
		if v.WithNull {
			size++
		}
		var ptr uint64
		if size > 0 {
			payload := b.reserve(size, 1)
			b.write(payload, v.Bytes)
			if v.WithNull {
				b.write(payload+uint64(n), []byte{0})
			}
			ptr = b.pointer(payload)
		}
		b.writeU32(slot+info.Length, n)
		b.writeU64(slot+info.Data, ptr)

	case value.KindArray, value.KindSet:
		n := b.count(len(v.Items), path)
		var ptr uint64
		if n > 0 {
			slots := b.reserve(uint64(n)*info.Size, 8)
			ptr = b.pointer(slots)
			b.writeU32(slot+info.Length, n)
			b.writeU64(slot+info.Data, ptr)
			for i, item := range v.Items {
				b.fill(slots+uint64(i)*info.Size, item, childPath(path, i))
			}
			return
		}
		b.writeU32(slot+info.Length, 0)
		b.writeU64(slot+info.Data, ptr)

	case value.KindMap:
		pair := b.l.KeyValuePair
		n := b.count(len(v.Pairs), path)
		if n == 0 {
			b.writeU32(slot+info.Length, 0)
			b.writeU64(slot+info.Data, 0)
			return
		}
		slots := b.reserve(uint64(n)*pair.Size, 8)
		b.writeU32(slot+info.Length, n)
		b.writeU64(slot+info.Data, b.pointer(slots))
		for i, p := range v.Pairs {
			at := slots + uint64(i)*pair.Size
			b.fill(at+pair.Key, p.Key, childPath(path, i, "key"))
			b.fill(at+pair.Value, p.Value, childPath(path, i, "value"))
		}
	}
}

func childPath(path []string, i int, rest ...string) []string {
	out := make([]string, 0, len(path)+1+len(rest))
	out = append(out, path...)
	out = append(out, fmt.Sprintf("[%d]", i))
	return append(out, rest...)
}

// Measure returns the encoded size of v.
func Measure(l *layout.Layout, v value.Value) (uint64, error) {
	m := NewMeasure(l)
	m.Fill(v)
	return m.Size(), m.Err()
}

// Encode writes v into a single allocation from alloc and returns its
// address, which is both the root Value pointer and the allocation to free,
// and its size.
func Encode(mem glideffi.Memory, alloc glideffi.Allocator, l *layout.Layout, v value.Value) (uint64, uint64, error) {
	size, err := Measure(l, v)
	if err != nil {
		return 0, 0, err
	}

	addr, err := alloc.Alloc(size, 8)
	if err != nil {
		return 0, 0, errors.AllocationFailed(errors.PhaseEncode, size, 8, err)
	}

	e := NewEmit(mem, l, addr)
	e.Fill(v)
	if e.Err() != nil {
		alloc.Free(addr)
		return 0, 0, e.Err()
	}
	if e.Size() != size {
		alloc.Free(addr)
		return 0, 0, errors.New(errors.PhaseEncode, errors.KindInvalidData).
			Detail("encoded %d bytes but measured %d", e.Size(), size).
			Build()
	}
	return addr, size, nil
}
