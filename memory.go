package glideffi

// Memory is the caller-side address space the boundary reads arguments from
// and writes results into. Addresses are absolute for native callers and
// linear-memory offsets for wasm32 guests.
//
// Slices returned by Read may alias the underlying memory and must be copied
// before they outlive the call that produced them.
type Memory interface {
	Read(addr uint64, length uint64) ([]byte, error)
	Write(addr uint64, data []byte) error
	ReadU8(addr uint64) (uint8, error)
	ReadU16(addr uint64) (uint16, error)
	ReadU32(addr uint64) (uint32, error)
	ReadU64(addr uint64) (uint64, error)
	WriteU8(addr uint64, value uint8) error
	WriteU16(addr uint64, value uint16) error
	WriteU32(addr uint64, value uint32) error
	WriteU64(addr uint64, value uint64) error
}

// Allocator hands out caller-owned memory. Free takes only the address
// because callers release values through free entry points that know
// nothing about sizes; implementations track sizes themselves.
type Allocator interface {
	Alloc(size, align uint64) (uint64, error)
	Free(addr uint64)
}

// Boundary bundles everything needed to cross into one caller's memory.
type Boundary struct {
	Memory    Memory
	Allocator Allocator
	// PointerSize is 8 for native LP64 callers and 4 for wasm32 guests.
	PointerSize uint64
}
