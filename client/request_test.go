package client

import (
	"reflect"
	"testing"
	"time"

	"github.com/wippyai/glide-ffi/errors"
	"github.com/wippyai/glide-ffi/layout"
	"github.com/wippyai/glide-ffi/memory"
)

func TestRequest_RoundTrip(t *testing.T) {
	cfg := Config{
		Addresses:             []NodeAddress{{Host: "10.0.0.1", Port: 7000}, {Host: "10.0.0.2", Port: 7001}},
		TLS:                   SecureTLS,
		Cluster:               true,
		ReadFrom:              ReadFromAZAffinity,
		Protocol:              RESP2,
		RequestTimeout:        500 * time.Millisecond,
		ConnectionTimeout:     time.Second,
		Username:              "app",
		Password:              "secret",
		ClientName:            "orders",
		ClientAZ:              "use1-az1",
		Backoff:               Backoff{Retries: 5, Factor: 100 * time.Millisecond, ExponentBase: 2},
		InflightRequestsLimit: 64,
		LazyConnect:           true,
	}

	for _, ptr := range []uint64{8, 4} {
		l := layout.For(ptr)
		mem := memory.NewSlice(256)
		var owned []uint64
		addr, err := EncodeRequest(mem, mem, l, cfg, &owned)
		if err != nil {
			t.Fatalf("ptr %d: encode: %v", ptr, err)
		}
		got, err := DecodeRequest(mem, l, addr)
		if err != nil {
			t.Fatalf("ptr %d: decode: %v", ptr, err)
		}
		if !reflect.DeepEqual(got, cfg) {
			t.Errorf("ptr %d:\n got %+v\nwant %+v", ptr, got, cfg)
		}

		for _, a := range owned {
			mem.Free(a)
		}
		if mem.Live() != 0 {
			t.Errorf("ptr %d: %d allocations leaked", ptr, mem.Live())
		}
	}
}

func TestRequest_OptionalStringsNull(t *testing.T) {
	l := layout.For(8)
	mem := memory.NewSlice(128)
	var owned []uint64
	addr, err := EncodeRequest(mem, mem, l, Config{Addresses: []NodeAddress{{Host: "h"}}}, &owned)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeRequest(mem, l, addr)
	if err != nil {
		t.Fatal(err)
	}
	if got.Username != "" || got.Password != "" || got.ClientName != "" || got.ClientAZ != "" {
		t.Errorf("optional strings = %+v", got)
	}
}

func TestRequest_NullHost(t *testing.T) {
	l := layout.For(8)
	mem := memory.NewSlice(128)
	var owned []uint64
	addr, err := EncodeRequest(mem, mem, l, Config{Addresses: []NodeAddress{{Host: "h", Port: 1}}}, &owned)
	if err != nil {
		t.Fatal(err)
	}
	list, _ := l.ReadPointer(mem, addr+l.ConnectionRequest.Addresses)
	if err := l.WritePointer(mem, list+l.NodeAddress.Host, 0); err != nil {
		t.Fatal(err)
	}

	_, err = DecodeRequest(mem, l, addr)
	if !errors.IsEmpty(err) {
		t.Fatalf("expected empty error, got %v", err)
	}
	if got := errors.Message(err); got != "Null value passed for host" {
		t.Errorf("message = %q", got)
	}
}

func TestRequest_InvalidUTF8Host(t *testing.T) {
	l := layout.For(8)
	mem := memory.NewSlice(128)
	var owned []uint64
	addr, err := EncodeRequest(mem, mem, l, Config{Addresses: []NodeAddress{{Host: "hh"}}}, &owned)
	if err != nil {
		t.Fatal(err)
	}
	list, _ := l.ReadPointer(mem, addr+l.ConnectionRequest.Addresses)
	host, _ := l.ReadPointer(mem, list+l.NodeAddress.Host)
	if err := mem.WriteU8(host, 0xff); err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeRequest(mem, l, addr); !errors.IsUtf8(err) {
		t.Fatalf("expected utf8 error, got %v", err)
	}
}

func TestRequest_Errors(t *testing.T) {
	l := layout.For(8)
	mem := memory.NewSlice(64)

	if _, err := DecodeRequest(mem, l, 0); !errors.IsEmpty(err) {
		t.Errorf("null request: %v", err)
	}
	if _, err := DecodeRequest(mem, l, 0xdead0000); errors.KindOf(err) != errors.KindOutOfBounds {
		t.Errorf("unmapped request: %v", err)
	}
}
