package memory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/tetratelabs/wazero/api"
)

const pageSize = 65536

// Wazero adapts a guest's linear memory. Addresses are offsets and must fit
// in 32 bits.
type Wazero struct {
	Mem api.Memory
}

// WrapMemory returns nil for a nil memory so callers can detect modules that
// export none.
func WrapMemory(mem api.Memory) *Wazero {
	if mem == nil {
		return nil
	}
	return &Wazero{Mem: mem}
}

func offset(addr uint64) (uint32, error) {
	if addr > math.MaxUint32 {
		return 0, fmt.Errorf("address %#x exceeds 32-bit linear memory", addr)
	}
	return uint32(addr), nil
}

func (m *Wazero) Read(addr, length uint64) ([]byte, error) {
	off, err := offset(addr)
	if err != nil {
		return nil, err
	}
	if length > math.MaxUint32 {
		return nil, fmt.Errorf("memory read out of bounds: offset=%d, length=%d", off, length)
	}
	data, ok := m.Mem.Read(off, uint32(length))
	if !ok {
		return nil, fmt.Errorf("memory read out of bounds: offset=%d, length=%d", off, length)
	}
	return data, nil
}

func (m *Wazero) Write(addr uint64, data []byte) error {
	off, err := offset(addr)
	if err != nil {
		return err
	}
	if !m.Mem.Write(off, data) {
		return fmt.Errorf("memory write out of bounds: offset=%d, length=%d", off, len(data))
	}
	return nil
}

func (m *Wazero) ReadU8(addr uint64) (uint8, error) {
	off, err := offset(addr)
	if err != nil {
		return 0, err
	}
	v, ok := m.Mem.ReadByte(off)
	if !ok {
		return 0, fmt.Errorf("memory read out of bounds: offset=%d", off)
	}
	return v, nil
}

func (m *Wazero) ReadU16(addr uint64) (uint16, error) {
	off, err := offset(addr)
	if err != nil {
		return 0, err
	}
	v, ok := m.Mem.ReadUint16Le(off)
	if !ok {
		return 0, fmt.Errorf("memory read out of bounds: offset=%d", off)
	}
	return v, nil
}

func (m *Wazero) ReadU32(addr uint64) (uint32, error) {
	off, err := offset(addr)
	if err != nil {
		return 0, err
	}
	v, ok := m.Mem.ReadUint32Le(off)
	if !ok {
		return 0, fmt.Errorf("memory read out of bounds: offset=%d", off)
	}
	return v, nil
}

func (m *Wazero) ReadU64(addr uint64) (uint64, error) {
	off, err := offset(addr)
	if err != nil {
		return 0, err
	}
	v, ok := m.Mem.ReadUint64Le(off)
	if !ok {
		return 0, fmt.Errorf("memory read out of bounds: offset=%d", off)
	}
	return v, nil
}

func (m *Wazero) WriteU8(addr uint64, value uint8) error {
	off, err := offset(addr)
	if err != nil {
		return err
	}
	if !m.Mem.WriteByte(off, value) {
		return fmt.Errorf("memory write out of bounds: offset=%d", off)
	}
	return nil
}

func (m *Wazero) WriteU16(addr uint64, value uint16) error {
	off, err := offset(addr)
	if err != nil {
		return err
	}
	if !m.Mem.WriteUint16Le(off, value) {
		return fmt.Errorf("memory write out of bounds: offset=%d", off)
	}
	return nil
}

func (m *Wazero) WriteU32(addr uint64, value uint32) error {
	off, err := offset(addr)
	if err != nil {
		return err
	}
	if !m.Mem.WriteUint32Le(off, value) {
		return fmt.Errorf("memory write out of bounds: offset=%d", off)
	}
	return nil
}

func (m *Wazero) WriteU64(addr uint64, value uint64) error {
	off, err := offset(addr)
	if err != nil {
		return err
	}
	if !m.Mem.WriteUint64Le(off, value) {
		return fmt.Errorf("memory write out of bounds: offset=%d", off)
	}
	return nil
}

// GuestAllocator allocates through the guest's cabi_realloc export. The
// realloc convention needs the old size to free, so sizes are tracked here.
type GuestAllocator struct {
	ctx   context.Context
	fn    api.Function
	sizes map[uint64][2]uint64
	mu    sync.Mutex
}

// WrapAllocator returns nil for a nil function.
func WrapAllocator(ctx context.Context, fn api.Function) *GuestAllocator {
	if fn == nil {
		return nil
	}
	return &GuestAllocator{ctx: ctx, fn: fn, sizes: make(map[uint64][2]uint64)}
}

func (a *GuestAllocator) Alloc(size, align uint64) (uint64, error) {
	if size > math.MaxUint32 {
		return 0, fmt.Errorf("allocation of %d bytes exceeds 32-bit linear memory", size)
	}
	results, err := a.fn.Call(a.ctx, 0, 0, align, size)
	if err != nil {
		return 0, fmt.Errorf("allocation failed: %w", err)
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("allocation returned no result")
	}
	ptr := uint64(uint32(results[0]))
	if ptr == 0 {
		return 0, fmt.Errorf("allocation of %d bytes returned null", size)
	}
	a.mu.Lock()
	a.sizes[ptr] = [2]uint64{size, align}
	a.mu.Unlock()
	return ptr, nil
}

func (a *GuestAllocator) Free(addr uint64) {
	a.mu.Lock()
	info, ok := a.sizes[addr]
	delete(a.sizes, addr)
	a.mu.Unlock()
	if !ok {
		return
	}
	_, _ = a.fn.Call(a.ctx, addr, info[0], info[1], 0)
}

// HostAllocator manages a region of guest memory the host grows itself,
// for guests that export no allocator. Guest code never learns about these
// pages, so the guest's own allocator cannot hand them out.
type HostAllocator struct {
	mem   api.Memory
	arena *arena
	mu    sync.Mutex
}

// NewHostAllocator starts a region at the current end of memory.
func NewHostAllocator(mem api.Memory) *HostAllocator {
	h := &HostAllocator{mem: mem}
	end := uint64(mem.Size())
	h.arena = newArena(end, end, h.grow)
	return h
}

func (h *HostAllocator) grow(need uint64) error {
	cur := uint64(h.mem.Size())
	if cur != h.arena.end {
		// the guest grew memory since our last grow; restart past its pages
		h.arena.next = cur
		h.arena.end = cur
	}
	short := h.arena.next + need - h.arena.end
	pages := (short + pageSize - 1) / pageSize
	if pages > math.MaxUint32 {
		return fmt.Errorf("grow of %d pages exceeds 32-bit linear memory", pages)
	}
	if _, ok := h.mem.Grow(uint32(pages)); !ok {
		return fmt.Errorf("memory grow by %d pages failed", pages)
	}
	h.arena.end = uint64(h.mem.Size())
	return nil
}

func (h *HostAllocator) Alloc(size, align uint64) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.arena.alloc(size, align)
}

func (h *HostAllocator) Free(addr uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.arena.release(addr)
}

// Live returns the number of outstanding host allocations.
func (h *HostAllocator) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.arena.live)
}
