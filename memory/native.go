package memory

import (
	"encoding/binary"
	"errors"
	"unsafe"
)

var errNull = errors.New("null pointer dereference")

// Native reads and writes the process address space directly. It is only
// correct for memory owned by foreign code (C heap, C stack of the caller):
// addresses come from C and are never Go pointers, so the garbage collector
// has no say in their lifetime.
type Native struct{}

//go:nocheckptr
func at(addr uint64) unsafe.Pointer {
	return unsafe.Pointer(uintptr(addr))
}

// Read returns a view of length bytes at addr without copying.
func (Native) Read(addr, length uint64) ([]byte, error) {
	if addr == 0 {
		return nil, errNull
	}
	if length == 0 {
		return []byte{}, nil
	}
	return unsafe.Slice((*byte)(at(addr)), length), nil
}

// Write copies data to addr.
func (n Native) Write(addr uint64, data []byte) error {
	dst, err := n.Read(addr, uint64(len(data)))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

func (n Native) ReadU8(addr uint64) (uint8, error) {
	b, err := n.Read(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (n Native) ReadU16(addr uint64) (uint16, error) {
	b, err := n.Read(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint16(b), nil
}

func (n Native) ReadU32(addr uint64) (uint32, error) {
	b, err := n.Read(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint32(b), nil
}

func (n Native) ReadU64(addr uint64) (uint64, error) {
	b, err := n.Read(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.NativeEndian.Uint64(b), nil
}

func (n Native) WriteU8(addr uint64, value uint8) error {
	return n.Write(addr, []byte{value})
}

func (n Native) WriteU16(addr uint64, value uint16) error {
	return n.Write(addr, binary.NativeEndian.AppendUint16(nil, value))
}

func (n Native) WriteU32(addr uint64, value uint32) error {
	return n.Write(addr, binary.NativeEndian.AppendUint32(nil, value))
}

func (n Native) WriteU64(addr uint64, value uint64) error {
	return n.Write(addr, binary.NativeEndian.AppendUint64(nil, value))
}
