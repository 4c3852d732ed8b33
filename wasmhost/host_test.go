package wasmhost

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/glide-ffi/bridge"
	"github.com/wippyai/glide-ffi/buffer"
	"github.com/wippyai/glide-ffi/client"
	"github.com/wippyai/glide-ffi/layout"
	"github.com/wippyai/glide-ffi/memory"
	"github.com/wippyai/glide-ffi/parameter"
	"github.com/wippyai/glide-ffi/value"
)

// guestWASM is a module with one page of memory exported as "memory".
var guestWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
	0x05, 0x03, 0x01, 0x00, 0x01, // memory section: 1 page, no max
	0x07, 0x0a, 0x01, // export section
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, // "memory"
	0x02, 0x00, // kind: memory, index 0
}

// bump hands out guest memory below the host-managed region, standing in
// for the guest's own allocator when the test builds inputs.
type bump struct {
	next uint64
}

func (b *bump) Alloc(size, align uint64) (uint64, error) {
	addr := layout.AlignTo(b.next, align)
	b.next = addr + size
	return addr, nil
}

func (b *bump) Free(uint64) {}

type fixture struct {
	ctx   context.Context
	host  *Host
	hmod  api.Module
	guest api.Module
	mem   *memory.Wazero
	in    *bump
	srv   *miniredis.Miniredis
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })

	host := New(bridge.NewRegistry())
	hmod, err := host.Instantiate(ctx, rt)
	if err != nil {
		t.Fatalf("Instantiate host: %v", err)
	}
	guest, err := rt.Instantiate(ctx, guestWASM)
	if err != nil {
		t.Fatalf("Instantiate guest: %v", err)
	}
	return &fixture{
		ctx:   ctx,
		host:  host,
		hmod:  hmod,
		guest: guest,
		mem:   memory.WrapMemory(guest.Memory()),
		in:    &bump{next: 1024},
		srv:   miniredis.RunT(t),
	}
}

func (f *fixture) request(t *testing.T) uint32 {
	t.Helper()
	host, port, _ := net.SplitHostPort(f.srv.Addr())
	p, _ := strconv.Atoi(port)
	cfg := client.Config{
		Addresses:         []client.NodeAddress{{Host: host, Port: uint16(p)}},
		Protocol:          client.RESP2,
		ConnectionTimeout: time.Second,
		RequestTimeout:    time.Second,
	}
	var owned []uint64
	addr, err := client.EncodeRequest(f.mem, f.in, layout.Wasm32, cfg, &owned)
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}
	return uint32(addr)
}

func (f *fixture) out(t *testing.T, size uint64) uint32 {
	t.Helper()
	addr, _ := f.in.Alloc(size, 8)
	return uint32(addr)
}

func (f *fixture) live(t *testing.T) int {
	t.Helper()
	b, ok := f.host.bridgeFor(f.ctx, f.guest)
	if !ok {
		t.Fatal("guest not bound")
	}
	return b.Boundary().Allocator.(*memory.HostAllocator).Live()
}

func TestInstantiate_Exports(t *testing.T) {
	f := setup(t)
	defs := f.hmod.ExportedFunctionDefinitions()
	for _, name := range []string{"create_client", "free_client", "command", "free_value", "free_string"} {
		if _, ok := defs[name]; !ok {
			t.Errorf("missing export %q", name)
		}
	}
	if got := len(defs["command"].ParamTypes()); got != 6 {
		t.Errorf("command takes %d params", got)
	}
}

func TestHost_CommandLifecycle(t *testing.T) {
	f := setup(t)
	l := layout.Wasm32

	out := f.out(t, 16)
	if code := f.host.CreateClient(f.ctx, f.guest, f.request(t), out); code != bridge.Success {
		t.Fatalf("create_client returned %s", code)
	}
	handle, _ := f.mem.ReadU64(uint64(out))
	if handle == 0 {
		t.Fatal("no handle written")
	}
	if e, _ := f.mem.ReadU32(uint64(out) + 8); e != 0 {
		t.Fatalf("error string %#x on success", e)
	}

	call := func(rt uint32, args ...parameter.Arg) (bool, uint32, uint32) {
		list := parameter.NewAllocationList()
		defer list.Release()
		addr, err := parameter.Lower(f.mem, f.in, l, args, list)
		if err != nil {
			t.Fatalf("Lower: %v", err)
		}
		res := f.out(t, 8)
		ok := f.host.Command(f.ctx, f.guest, handle, rt, 0, uint32(addr), uint32(len(args)), res)
		v, _ := f.mem.ReadU32(uint64(res))
		e, _ := f.mem.ReadU32(uint64(res) + 4)
		return ok, v, e
	}

	ok, v, e := call(201, parameter.String("k"), parameter.String("v"))
	if !ok || e != 0 {
		t.Fatalf("SET failed: ok=%v err=%#x", ok, e)
	}
	got, err := buffer.Read(f.mem, l, uint64(v))
	if err != nil || !value.Equal(got, value.Okay()) {
		t.Fatalf("SET reply = %s, %v", value.Format(got), err)
	}
	f.host.FreeValue(f.ctx, f.guest, v)

	ok, v, _ = call(200, parameter.String("k"))
	got, err = buffer.Read(f.mem, l, uint64(v))
	if !ok || err != nil || !value.Equal(got, value.Bulk([]byte("v"))) {
		t.Fatalf("GET reply = %s, %v", value.Format(got), err)
	}
	f.host.FreeValue(f.ctx, f.guest, v)

	ok, v, e = call(99999)
	if ok || v != 0 {
		t.Fatal("unknown request type succeeded")
	}
	msg, err := buffer.ReadString(f.mem, uint64(e))
	if err != nil || msg != "Unknown request type" {
		t.Fatalf("error = %q, %v", msg, err)
	}
	f.host.FreeString(f.ctx, f.guest, e)

	f.host.FreeClient(f.ctx, f.guest, handle)
	ok, _, e = call(200, parameter.String("k"))
	if ok {
		t.Fatal("command on a freed handle succeeded")
	}
	f.host.FreeString(f.ctx, f.guest, e)

	if n := f.live(t); n != 0 {
		t.Errorf("%d guest allocations leaked", n)
	}
}

func TestHost_CreateNullHost(t *testing.T) {
	f := setup(t)
	l := layout.Wasm32

	req := f.request(t)
	list, _ := l.ReadPointer(f.mem, uint64(req)+l.ConnectionRequest.Addresses)
	if err := l.WritePointer(f.mem, list+l.NodeAddress.Host, 0); err != nil {
		t.Fatal(err)
	}

	out := f.out(t, 16)
	if code := f.host.CreateClient(f.ctx, f.guest, req, out); code != bridge.ParameterError {
		t.Fatalf("code = %s", code)
	}
	if h, _ := f.mem.ReadU64(uint64(out)); h != 0 {
		t.Errorf("handle %#x written on failure", h)
	}
	e, _ := f.mem.ReadU32(uint64(out) + 8)
	msg, err := buffer.ReadString(f.mem, uint64(e))
	if err != nil || msg != "Null value passed for host" {
		t.Fatalf("error = %q, %v", msg, err)
	}
	f.host.FreeString(f.ctx, f.guest, e)
	if n := f.live(t); n != 0 {
		t.Errorf("%d guest allocations leaked", n)
	}
}

func TestHost_BadOutPointer(t *testing.T) {
	f := setup(t)
	if code := f.host.CreateClient(f.ctx, f.guest, f.request(t), 0xfffffff0); code != bridge.ParameterError {
		t.Fatalf("code = %s", code)
	}
	if n := f.host.registry.Len(); n != 0 {
		t.Errorf("%d handles left behind", n)
	}
}

func TestHost_NoMemory(t *testing.T) {
	f := setup(t)
	if f.host.Command(f.ctx, f.hmod, 1, 200, 0, 0, 0, 0) {
		t.Fatal("command without guest memory succeeded")
	}
	if code := f.host.CreateClient(f.ctx, f.hmod, 0, 0); code != bridge.ParameterError {
		t.Fatalf("code = %s", code)
	}
}
