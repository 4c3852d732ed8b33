package routing

import (
	"testing"

	"github.com/wippyai/glide-ffi/errors"
	"github.com/wippyai/glide-ffi/layout"
	"github.com/wippyai/glide-ffi/memory"
)

func encode(t *testing.T, mem *memory.Slice, l *layout.Layout, r *Route, withKey, withHost bool) uint64 {
	t.Helper()
	var keyPtr, hostPtr uint64
	if withKey {
		keyPtr, _ = mem.Alloc(uint64(len(r.SlotKey))+1, 1)
		_ = mem.Write(keyPtr, []byte(r.SlotKey))
	}
	if withHost {
		hostPtr, _ = mem.Alloc(uint64(len(r.Host))+1, 1)
		_ = mem.Write(hostPtr, []byte(r.Host))
	}
	addr, err := mem.Alloc(l.RoutingInfo.Size, 8)
	if err != nil {
		t.Fatal(err)
	}
	if err := Encode(mem, l, addr, r, keyPtr, hostPtr); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return addr
}

func TestDecode(t *testing.T) {
	tests := []*Route{
		{Kind: Random},
		{Kind: AllNodes},
		{Kind: AllPrimaries},
		{Kind: SlotID, SlotID: 42, SlotType: Replica},
		{Kind: SlotKey, SlotKey: "user:{7}", SlotType: Primary},
		{Kind: ByAddress, Host: "10.0.0.5", Port: 6380},
	}
	for _, ptr := range []uint64{8, 4} {
		l := layout.For(ptr)
		for _, want := range tests {
			t.Run(want.String(), func(t *testing.T) {
				mem := memory.NewSlice(256)
				addr := encode(t, mem, l, want, want.Kind == SlotKey, want.Kind == ByAddress)

				got, err := Decode(mem, l, addr)
				if err != nil {
					t.Fatalf("Decode failed: %v", err)
				}
				if *got != *want {
					t.Errorf("expected %+v, got %+v", want, got)
				}
			})
		}
	}
}

func TestDecode_Null(t *testing.T) {
	r, err := Decode(memory.NewSlice(16), layout.For(8), 0)
	if r != nil || err != nil {
		t.Errorf("expected no route, got %v %v", r, err)
	}
}

func TestDecode_Errors(t *testing.T) {
	l := layout.For(8)
	tests := []struct {
		name string
		r    *Route
		want errors.Kind
	}{
		{"null slot key", &Route{Kind: SlotKey}, errors.KindEmpty},
		{"null host", &Route{Kind: ByAddress, Port: 1}, errors.KindEmpty},
		{"bad slot type", &Route{Kind: SlotID, SlotType: 9}, errors.KindInvalidEnum},
		{"slot id too large", &Route{Kind: SlotID, SlotID: SlotCount}, errors.KindInvalidData},
		{"negative slot id", &Route{Kind: SlotID, SlotID: -1}, errors.KindInvalidData},
		{"bad kind", &Route{Kind: 17}, errors.KindInvalidEnum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := memory.NewSlice(256)
			addr := encode(t, mem, l, tt.r, false, false)
			_, err := Decode(mem, l, addr)
			if got := errors.KindOf(err); got != tt.want {
				t.Errorf("expected %s, got %s (%v)", tt.want, got, err)
			}
		})
	}
}

func TestDecode_IncompleteMessage(t *testing.T) {
	mem := memory.NewSlice(256)
	l := layout.For(8)
	addr := encode(t, mem, l, &Route{Kind: SlotKey}, false, false)

	_, err := Decode(mem, l, addr)
	if msg := errors.Message(err); msg != incomplete {
		t.Errorf("expected %q, got %q", incomplete, msg)
	}
}

func TestRoute_Address(t *testing.T) {
	if (&Route{Kind: ByAddress, Host: "h", Port: 1}).Address() != "h:1" {
		t.Error("unexpected address")
	}
}
