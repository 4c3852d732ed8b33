package layout_test

import (
	"testing"

	"github.com/wippyai/glide-ffi/layout"
	"github.com/wippyai/glide-ffi/memory"
)

func TestReadCString(t *testing.T) {
	mem := memory.NewSlice(8)
	addr, err := mem.Alloc(8, 1)
	if err != nil {
		t.Fatal(err)
	}

	if err := mem.Write(addr, []byte("abc\x00")); err != nil {
		t.Fatal(err)
	}
	got, err := layout.ReadCString(mem, addr)
	if err != nil || string(got) != "abc" {
		t.Fatalf("got (%q, %v), want abc", got, err)
	}

	// no terminator before the end of memory
	if err := mem.Write(addr, []byte("abcdefgh")); err != nil {
		t.Fatal(err)
	}
	if _, err := layout.ReadCString(mem, addr); err == nil {
		t.Fatal("expected out of bounds error")
	}
}
