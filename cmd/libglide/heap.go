package main

/*
#include <stdlib.h>
*/
import "C"

import (
	stderrors "errors"
	"fmt"
	"unsafe"

	"github.com/wippyai/glide-ffi/errors"
	"github.com/wippyai/glide-ffi/memory"
)

// maxAlign is what malloc guarantees on the 64-bit targets we build for.
const maxAlign = 16

var errMallocNull = stderrors.New("malloc returned NULL")

// cHeap allocates from the C heap so callers can hold returned values
// past the call and hand them back to the free entry points.
type cHeap struct{}

func (cHeap) Alloc(size, align uint64) (uint64, error) {
	if align > maxAlign {
		return 0, errors.AllocationFailed(errors.PhaseEncode, size, align,
			fmt.Errorf("alignment above %d", maxAlign))
	}
	if size == 0 {
		size = 1
	}
	p := C.malloc(C.size_t(size))
	if p == nil {
		return 0, errors.AllocationFailed(errors.PhaseEncode, size, align, errMallocNull)
	}
	return uint64(uintptr(p)), nil
}

func (cHeap) Free(addr uint64) {
	if addr != 0 {
		C.free(unsafe.Pointer(uintptr(addr)))
	}
}

// cstring copies s into the C heap with a trailing NUL; 0 on failure.
func cstring(s string) uintptr {
	addr, err := cHeap{}.Alloc(uint64(len(s))+1, 1)
	if err != nil {
		return 0
	}
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	if err := (memory.Native{}).Write(addr, buf); err != nil {
		cHeap{}.Free(addr)
		return 0
	}
	return uintptr(addr)
}
