package bridge

import (
	"strings"

	glideffi "github.com/wippyai/glide-ffi"
)

// cString copies s into caller memory with a trailing NUL. Text that
// contains a NUL, or that cannot be allocated, yields a null pointer.
func cString(b glideffi.Boundary, s string) uint64 {
	if strings.IndexByte(s, 0) >= 0 {
		return 0
	}
	addr, err := b.Allocator.Alloc(uint64(len(s))+1, 1)
	if err != nil {
		return 0
	}
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	if err := b.Memory.Write(addr, buf); err != nil {
		b.Allocator.Free(addr)
		return 0
	}
	return addr
}

// NewString copies s into caller memory for entry points outside the
// bridge. The caller releases it with FreeString.
func (b *Bridge) NewString(s string) uint64 {
	return cString(b.boundary, s)
}
