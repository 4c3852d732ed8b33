package memory

import (
	"fmt"
	"sort"

	"github.com/wippyai/glide-ffi/layout"
)

// span is a free region [addr, addr+size).
type span struct {
	addr uint64
	size uint64
}

// arena is a first-fit allocator over an address range that can grow.
// grow receives the number of bytes needed past next and must leave
// end-next at least that large.
// It never hands out address 0. Callers serialize access.
type arena struct {
	grow func(need uint64) error
	live map[uint64]uint64
	free []span
	next uint64
	end  uint64
}

func newArena(start, end uint64, grow func(need uint64) error) *arena {
	if start == 0 {
		start = 8
	}
	return &arena{
		grow: grow,
		live: make(map[uint64]uint64),
		next: start,
		end:  end,
	}
}

func (a *arena) alloc(size, align uint64) (uint64, error) {
	if size == 0 {
		size = 1
	}
	if align == 0 {
		align = 1
	}

	for i, s := range a.free {
		start := layout.AlignTo(s.addr, align)
		if start+size > s.addr+s.size {
			continue
		}
		a.free = append(a.free[:i], a.free[i+1:]...)
		if start > s.addr {
			a.free = append(a.free, span{addr: s.addr, size: start - s.addr})
		}
		if tail := s.addr + s.size - (start + size); tail > 0 {
			a.free = append(a.free, span{addr: start + size, size: tail})
		}
		a.live[start] = size
		return start, nil
	}

	for grown := false; ; grown = true {
		start := layout.AlignTo(a.next, align)
		if start+size <= a.end {
			if start > a.next {
				a.free = append(a.free, span{addr: a.next, size: start - a.next})
			}
			a.next = start + size
			a.live[start] = size
			return start, nil
		}
		if a.grow == nil || grown {
			return 0, fmt.Errorf("arena exhausted: need %d bytes", size)
		}
		// grow may move next when the range cannot be extended in place
		if err := a.grow(start + size - a.next); err != nil {
			return 0, err
		}
	}
}

func (a *arena) release(addr uint64) bool {
	size, ok := a.live[addr]
	if !ok {
		return false
	}
	delete(a.live, addr)
	a.free = append(a.free, span{addr: addr, size: size})
	a.coalesce()
	return true
}

func (a *arena) coalesce() {
	if len(a.free) < 2 {
		return
	}
	sort.Slice(a.free, func(i, j int) bool { return a.free[i].addr < a.free[j].addr })
	merged := a.free[:1]
	for _, s := range a.free[1:] {
		last := &merged[len(merged)-1]
		if last.addr+last.size == s.addr {
			last.size += s.size
			continue
		}
		merged = append(merged, s)
	}
	a.free = merged
}
