package buffer

import (
	"fmt"
	"math"
	"testing"

	"github.com/wippyai/glide-ffi/errors"
	"github.com/wippyai/glide-ffi/layout"
	"github.com/wippyai/glide-ffi/memory"
	"github.com/wippyai/glide-ffi/value"
)

func bulk(s string) value.Value { return value.Bulk([]byte(s)) }

func sampleTree() value.Value {
	return value.Array(
		value.Nil(),
		value.Okay(),
		value.Int(math.MinInt64),
		value.Float(-0.5),
		value.Bool(true),
		bulk("binary\x00safe"),
		bulk(""),
		value.Simple("PONG"),
		value.Error("ERR wrong type"),
		value.Value{Kind: value.KindBigNumber, Bytes: []byte("340282366920938463463374607431768211456")},
		value.Set(value.Int(1), value.Int(2)),
		value.Map(
			value.Pair{Key: bulk("a"), Value: value.Array(bulk("x"), value.Map())},
			value.Pair{Key: value.Int(7), Value: value.Array()},
		),
	)
}

func TestEncode_RoundTrip(t *testing.T) {
	for _, ptr := range []uint64{8, 4} {
		t.Run(fmt.Sprintf("ptr%d", ptr), func(t *testing.T) {
			l := layout.For(ptr)
			mem := memory.NewSlice(1024)
			v := sampleTree()

			addr, size, err := Encode(mem, mem, l, v)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			got, err := Read(mem, l, addr)
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if !value.Equal(v, got) {
				t.Errorf("round trip mismatch:\nwant %s\ngot  %s", value.Format(v), value.Format(got))
			}

			measured, _ := Measure(l, v)
			allocated, ok := mem.SizeOf(addr)
			if !ok {
				t.Fatal("returned address is not an allocation")
			}
			if measured != size || allocated != size {
				t.Errorf("size mismatch: measured=%d written=%d allocated=%d", measured, size, allocated)
			}

			mem.Free(addr)
			if mem.Live() != 0 {
				t.Errorf("expected single allocation, %d still live", mem.Live())
			}
		})
	}
}

func TestMeasure_Sizes(t *testing.T) {
	l := layout.For(8)
	tests := []struct {
		name string
		v    value.Value
		want uint64
	}{
		{"nil", value.Nil(), 16},
		{"int", value.Int(3), 16},
		{"string", bulk("abc"), 19},
		{"empty string", bulk(""), 16},
		{"string with null", value.SimpleStringWithNull("err"), 20},
		{"empty with null", value.SimpleStringWithNull(""), 17},
		{"array", value.Array(bulk("ab"), value.Int(1)), 50},
		{"map", value.Map(value.Pair{Key: bulk("k"), Value: value.SimpleStringWithNull("v")}), 51},
		// slots of a nested array are 8-aligned after the parent's payloads
		{"aligned", value.Array(bulk("x"), value.Array(value.Int(1))), 16 + 32 + 1 + 7 + 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Measure(l, tt.v)
			if err != nil {
				t.Fatalf("Measure failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d bytes, got %d", tt.want, got)
			}
		})
	}
}

func TestEncode_Layout(t *testing.T) {
	l := layout.For(8)
	mem := memory.NewSlice(256)

	v := value.Array(value.Array(bulk("x")), bulk("y"))
	addr, size, err := Encode(mem, mem, l, v)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	defer mem.Free(addr)

	if size != 66 {
		t.Fatalf("expected 66 bytes, got %d", size)
	}

	u64 := func(off uint64) uint64 {
		x, err := mem.ReadU64(addr + off)
		if err != nil {
			t.Fatal(err)
		}
		return x
	}
	u32 := func(off uint64) uint32 {
		x, err := mem.ReadU32(addr + off)
		if err != nil {
			t.Fatal(err)
		}
		return x
	}

	if u32(0) != uint32(value.KindArray) || u32(4) != 2 || u64(8) != addr+16 {
		t.Errorf("root header wrong: kind=%d len=%d data=%#x", u32(0), u32(4), u64(8))
	}
	// first slot is the inner array, its slots follow the outer slots
	if u32(16) != uint32(value.KindArray) || u64(24) != addr+48 {
		t.Errorf("inner array header wrong: kind=%d data=%#x", u32(16), u64(24))
	}
	// children are filled depth-first: "x" is written before "y"
	if u64(48+8) != addr+64 {
		t.Errorf("expected x payload at +64, got %#x", u64(56)-addr)
	}
	if u64(32+8) != addr+65 {
		t.Errorf("expected y payload at +65, got %#x", u64(40)-addr)
	}
}

func TestEncode_SimpleStringWithNull(t *testing.T) {
	l := layout.For(8)
	mem := memory.NewSlice(64)

	addr, _, err := Encode(mem, mem, l, value.SimpleStringWithNull("boom"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	length, _ := mem.ReadU32(addr + l.Value.Length)
	if length != 4 {
		t.Errorf("expected length 4 excluding NUL, got %d", length)
	}
	data, _ := mem.ReadU64(addr + l.Value.Data)
	s, err := ReadString(mem, data)
	if err != nil {
		t.Fatalf("ReadString failed: %v", err)
	}
	if s != "boom" {
		t.Errorf("expected C string %q, got %q", "boom", s)
	}
}

func TestEncode_InvalidKind(t *testing.T) {
	mem := memory.NewSlice(64)
	_, _, err := Encode(mem, mem, layout.For(8), value.Array(value.Value{Kind: 42}))
	if errors.KindOf(err) != errors.KindInvalidEnum {
		t.Fatalf("expected invalid enum, got %v", err)
	}
	if mem.Live() != 0 {
		t.Errorf("expected nothing allocated, %d live", mem.Live())
	}
}

func TestEncode_WriteFailureReleases(t *testing.T) {
	alloc := memory.NewSlice(64)
	// writes land in a memory too small for the allocator's addresses
	mem := memory.NewSlice(0)

	_, _, err := Encode(mem, alloc, layout.For(8), bulk("abc"))
	if err == nil {
		t.Fatal("expected write failure")
	}
	if alloc.Live() != 0 {
		t.Errorf("expected allocation released, %d live", alloc.Live())
	}
}

type failingAllocator struct{}

func (failingAllocator) Alloc(size, align uint64) (uint64, error) {
	return 0, fmt.Errorf("out of memory")
}
func (failingAllocator) Free(uint64) {}

func TestEncode_AllocationFailure(t *testing.T) {
	_, _, err := Encode(memory.NewSlice(64), failingAllocator{}, layout.For(8), value.Int(1))
	if errors.KindOf(err) != errors.KindAllocation {
		t.Fatalf("expected allocation error, got %v", err)
	}
}

func TestRead_Errors(t *testing.T) {
	l := layout.For(8)
	mem := memory.NewSlice(64)

	if _, err := Read(mem, l, 0); !errors.IsEmpty(err) {
		t.Errorf("expected empty error for null, got %v", err)
	}

	addr, _ := mem.Alloc(16, 8)
	_ = mem.WriteU32(addr, 200)
	if _, err := Read(mem, l, addr); errors.KindOf(err) != errors.KindInvalidEnum {
		t.Errorf("expected invalid enum, got %v", err)
	}

	_ = mem.WriteU32(addr, uint32(value.KindBulkString))
	_ = mem.WriteU32(addr+4, 1000)
	_ = mem.WriteU64(addr+8, addr)
	if _, err := Read(mem, l, addr); errors.KindOf(err) != errors.KindOutOfBounds {
		t.Errorf("expected out of bounds, got %v", err)
	}
}
