package parameter

import (
	"sync"

	glideffi "github.com/wippyai/glide-ffi"
)

// AllocationList records caller allocations made while lowering so they can
// be released together.
type AllocationList struct {
	addrs []uint64
}

var allocationListPool = sync.Pool{
	New: func() any {
		return &AllocationList{addrs: make([]uint64, 0, 8)}
	},
}

func NewAllocationList() *AllocationList {
	return allocationListPool.Get().(*AllocationList)
}

const maxPooledAllocationCapacity = 128

// Release returns to pool. Must call after Free(); list invalid after Release.
func (al *AllocationList) Release() {
	if cap(al.addrs) > maxPooledAllocationCapacity {
		return
	}
	al.Reset()
	allocationListPool.Put(al)
}

func (al *AllocationList) FreeAndRelease(allocator glideffi.Allocator) {
	al.Free(allocator)
	al.Release()
}

func (al *AllocationList) Add(addr uint64) {
	al.addrs = append(al.addrs, addr)
}

// Free releases in reverse order of allocation.
func (al *AllocationList) Free(allocator glideffi.Allocator) {
	if allocator == nil {
		return
	}
	for i := len(al.addrs) - 1; i >= 0; i-- {
		if al.addrs[i] != 0 {
			allocator.Free(al.addrs[i])
		}
	}
	al.addrs = al.addrs[:0]
}

func (al *AllocationList) Reset() {
	al.addrs = al.addrs[:0]
}

func (al *AllocationList) Count() int {
	return len(al.addrs)
}
