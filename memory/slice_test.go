package memory

import (
	"bytes"
	"testing"
)

func TestSlice_AllocAligned(t *testing.T) {
	s := NewSlice(64)

	a, err := s.Alloc(3, 1)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	b, err := s.Alloc(16, 8)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if a == 0 || b == 0 {
		t.Fatal("allocator returned null address")
	}
	if b%8 != 0 {
		t.Errorf("expected 8-byte alignment, got %#x", b)
	}
	if b < a+3 {
		t.Errorf("allocations overlap: a=%#x b=%#x", a, b)
	}
	if s.Live() != 2 {
		t.Errorf("expected 2 live allocations, got %d", s.Live())
	}
}

func TestSlice_FreeAndReuse(t *testing.T) {
	s := NewSlice(64)

	a, _ := s.Alloc(32, 8)
	s.Free(a)
	if s.Live() != 0 {
		t.Fatalf("expected 0 live allocations, got %d", s.Live())
	}

	b, err := s.Alloc(16, 8)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if b != a {
		t.Errorf("expected freed block to be reused: a=%#x b=%#x", a, b)
	}

	// double free and unknown addresses are ignored
	s.Free(a)
	s.Free(a)
	s.Free(0xdead)
	if s.Live() != 0 {
		t.Errorf("expected 0 live allocations, got %d", s.Live())
	}
}

func TestSlice_Grow(t *testing.T) {
	s := NewSlice(16)

	a, _ := s.Alloc(8, 8)
	if err := s.Write(a, []byte("abcdefgh")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	b, err := s.Alloc(1024, 8)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}
	if err := s.WriteU64(b+1016, 42); err != nil {
		t.Fatalf("WriteU64 at end of grown block failed: %v", err)
	}

	got, err := s.Read(a, 8)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, []byte("abcdefgh")) {
		t.Errorf("contents lost across grow: %q", got)
	}
}

func TestSlice_Integers(t *testing.T) {
	s := NewSlice(64)
	addr, _ := s.Alloc(16, 8)

	if err := s.WriteU8(addr, 0xAB); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteU16(addr+2, 0xBEEF); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteU32(addr+4, 0xDEADBEEF); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteU64(addr+8, 0x0102030405060708); err != nil {
		t.Fatal(err)
	}

	if v, _ := s.ReadU8(addr); v != 0xAB {
		t.Errorf("ReadU8: got %#x", v)
	}
	if v, _ := s.ReadU16(addr + 2); v != 0xBEEF {
		t.Errorf("ReadU16: got %#x", v)
	}
	if v, _ := s.ReadU32(addr + 4); v != 0xDEADBEEF {
		t.Errorf("ReadU32: got %#x", v)
	}
	if v, _ := s.ReadU64(addr + 8); v != 0x0102030405060708 {
		t.Errorf("ReadU64: got %#x", v)
	}

	raw, _ := s.Read(addr+4, 4)
	if !bytes.Equal(raw, []byte{0xEF, 0xBE, 0xAD, 0xDE}) {
		t.Errorf("expected little-endian layout, got %x", raw)
	}
}

func TestSlice_OutOfBounds(t *testing.T) {
	s := NewSlice(16)

	tests := []struct {
		name   string
		addr   uint64
		length uint64
	}{
		{"null", 0, 1},
		{"below base", sliceBase - 1, 1},
		{"past end", sliceBase + 16, 1},
		{"straddles end", sliceBase + 12, 8},
		{"overflow", ^uint64(0) - 1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Read(tt.addr, tt.length); err == nil {
				t.Error("expected out of bounds error")
			}
		})
	}
}

func TestArena_Coalesce(t *testing.T) {
	a := newArena(16, 1<<20, nil)

	x, _ := a.alloc(8, 8)
	y, _ := a.alloc(8, 8)
	z, _ := a.alloc(8, 8)
	a.release(x)
	a.release(y)
	a.release(z)

	if len(a.free) != 1 {
		t.Fatalf("expected adjacent spans to merge, got %d spans", len(a.free))
	}
	if a.free[0].addr != x || a.free[0].size != 24 {
		t.Errorf("unexpected merged span: %+v", a.free[0])
	}
}

func TestArena_ExhaustedWithoutGrow(t *testing.T) {
	a := newArena(8, 16, nil)
	if _, err := a.alloc(16, 1); err == nil {
		t.Fatal("expected exhaustion error")
	}
}
