package memory

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// sliceBase is the address of the first byte of a Slice, keeping 0 free to
// mean null.
const sliceBase = 0x1000

// Slice is a bounds-checked caller memory backed by a growable byte slice.
// It implements both glideffi.Memory and glideffi.Allocator and is safe for
// concurrent use.
type Slice struct {
	arena *arena
	data  []byte
	mu    sync.RWMutex
}

// NewSlice creates an arena with the given initial capacity in bytes.
func NewSlice(capacity uint64) *Slice {
	s := &Slice{data: make([]byte, capacity)}
	s.arena = newArena(sliceBase, sliceBase+capacity, s.grow)
	return s
}

func (s *Slice) grow(need uint64) error {
	want := s.arena.next + need - sliceBase
	size := uint64(len(s.data)) * 2
	if size < want {
		size = want
	}
	data := make([]byte, size)
	copy(data, s.data)
	s.data = data
	s.arena.end = sliceBase + size
	return nil
}

// Alloc reserves size bytes aligned to align.
func (s *Slice) Alloc(size, align uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.arena.alloc(size, align)
}

// Free releases an allocation. Unknown addresses are ignored.
func (s *Slice) Free(addr uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.arena.release(addr)
}

// Live returns the number of outstanding allocations.
func (s *Slice) Live() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.arena.live)
}

// SizeOf returns the size of the live allocation at addr.
func (s *Slice) SizeOf(addr uint64) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	size, ok := s.arena.live[addr]
	return size, ok
}

func (s *Slice) bounds(addr, length uint64) (uint64, error) {
	if addr < sliceBase {
		return 0, fmt.Errorf("memory access out of bounds: addr=%#x, length=%d", addr, length)
	}
	off := addr - sliceBase
	if off+length < off || off+length > uint64(len(s.data)) {
		return 0, fmt.Errorf("memory access out of bounds: addr=%#x, length=%d", addr, length)
	}
	return off, nil
}

// Read returns a view of length bytes at addr.
func (s *Slice) Read(addr, length uint64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	off, err := s.bounds(addr, length)
	if err != nil {
		return nil, err
	}
	return s.data[off : off+length : off+length], nil
}

// Write copies data to addr.
func (s *Slice) Write(addr uint64, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	off, err := s.bounds(addr, uint64(len(data)))
	if err != nil {
		return err
	}
	copy(s.data[off:], data)
	return nil
}

func (s *Slice) ReadU8(addr uint64) (uint8, error) {
	b, err := s.Read(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s *Slice) ReadU16(addr uint64) (uint16, error) {
	b, err := s.Read(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (s *Slice) ReadU32(addr uint64) (uint32, error) {
	b, err := s.Read(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (s *Slice) ReadU64(addr uint64) (uint64, error) {
	b, err := s.Read(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (s *Slice) WriteU8(addr uint64, value uint8) error {
	return s.Write(addr, []byte{value})
}

func (s *Slice) WriteU16(addr uint64, value uint16) error {
	return s.Write(addr, binary.LittleEndian.AppendUint16(nil, value))
}

func (s *Slice) WriteU32(addr uint64, value uint32) error {
	return s.Write(addr, binary.LittleEndian.AppendUint32(nil, value))
}

func (s *Slice) WriteU64(addr uint64, value uint64) error {
	return s.Write(addr, binary.LittleEndian.AppendUint64(nil, value))
}
