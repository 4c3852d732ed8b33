// Package wasmhost exports the client entry points to WebAssembly guests
// as the host module "glide".
//
// Guests are wasm32, so every pointer is an offset into the guest's linear
// memory and structs use the 4-byte pointer layout. Values and strings
// returned to a guest are allocated through its cabi_realloc export when it
// has one, or in pages the host grows itself otherwise; either way they are
// released through free_value and free_string.
//
// Guests run single-threaded, so only blocking dispatch is exported:
//
//	create_client(req: i32, out: i32) -> i32
//	free_client(handle: i64)
//	command(handle: i64, request_type: i32, route: i32, args: i32, argc: i32, out: i32) -> i32
//	free_value(ptr: i32)
//	free_string(ptr: i32)
//
// create_client writes { u64 handle; u32 error } at out and returns the
// result code. command writes { u32 value; u32 error } at out and returns 1
// on success.
package wasmhost

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	glideffi "github.com/wippyai/glide-ffi"
	"github.com/wippyai/glide-ffi/bridge"
	"github.com/wippyai/glide-ffi/command"
	"github.com/wippyai/glide-ffi/errors"
	"github.com/wippyai/glide-ffi/logging"
	"github.com/wippyai/glide-ffi/memory"
)

// ModuleName is the import module guests link against.
const ModuleName = "glide"

// Host binds the entry points to guest instances. One Host may serve many
// guests; they share its registry.
type Host struct {
	registry *bridge.Registry
	guests   map[api.Module]*bridge.Bridge
	log      *zap.Logger
	mu       sync.Mutex
}

// New creates a host over reg.
func New(reg *bridge.Registry) *Host {
	return &Host{
		registry: reg,
		guests:   make(map[api.Module]*bridge.Bridge),
		log:      logging.Named("glide_ffi.wasm"),
	}
}

// Instantiate registers the host module in r.
func (h *Host) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	i32, i64 := api.ValueTypeI32, api.ValueTypeI64
	builder := r.NewHostModuleBuilder(ModuleName)

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = uint64(h.CreateClient(ctx, mod, api.DecodeU32(stack[0]), api.DecodeU32(stack[1])))
		}), []api.ValueType{i32, i32}, []api.ValueType{i32}).
		WithParameterNames("req", "out").
		Export("create_client")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			h.FreeClient(ctx, mod, stack[0])
		}), []api.ValueType{i64}, nil).
		WithParameterNames("handle").
		Export("free_client")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			ok := h.Command(ctx, mod, stack[0],
				api.DecodeU32(stack[1]), api.DecodeU32(stack[2]),
				api.DecodeU32(stack[3]), api.DecodeU32(stack[4]), api.DecodeU32(stack[5]))
			stack[0] = 0
			if ok {
				stack[0] = 1
			}
		}), []api.ValueType{i64, i32, i32, i32, i32, i32}, []api.ValueType{i32}).
		WithParameterNames("handle", "request_type", "route", "args", "argc", "out").
		Export("command")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			h.FreeValue(ctx, mod, api.DecodeU32(stack[0]))
		}), []api.ValueType{i32}, nil).
		WithParameterNames("ptr").
		Export("free_value")

	builder = builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			h.FreeString(ctx, mod, api.DecodeU32(stack[0]))
		}), []api.ValueType{i32}, nil).
		WithParameterNames("ptr").
		Export("free_string")

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindRegistration, err, "instantiate host module "+ModuleName)
	}
	return mod, nil
}

// bridgeFor returns the bridge bound to mod's memory and allocator.
func (h *Host) bridgeFor(ctx context.Context, mod api.Module) (*bridge.Bridge, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if b, ok := h.guests[mod]; ok {
		return b, true
	}
	exported := mod.ExportedMemory("memory")
	mem := memory.WrapMemory(exported)
	if mem == nil {
		h.log.Error("guest exports no memory", zap.String("module", mod.Name()))
		return nil, false
	}
	var alloc glideffi.Allocator
	if ga := memory.WrapAllocator(context.WithoutCancel(ctx), mod.ExportedFunction("cabi_realloc")); ga != nil {
		alloc = ga
	} else {
		alloc = memory.NewHostAllocator(exported)
	}
	b := bridge.New(glideffi.Boundary{Memory: mem, Allocator: alloc, PointerSize: 4}, h.registry)
	h.guests[mod] = b
	return b, true
}

// Forget drops the cached binding for a closed guest.
func (h *Host) Forget(mod api.Module) {
	h.mu.Lock()
	delete(h.guests, mod)
	h.mu.Unlock()
}

// CreateClient implements create_client.
func (h *Host) CreateClient(ctx context.Context, mod api.Module, req, out uint32) bridge.Code {
	b, ok := h.bridgeFor(ctx, mod)
	if !ok {
		return bridge.ParameterError
	}
	res := b.CreateClientHandle(ctx, uint64(req))
	mem := b.Boundary().Memory
	if out == 0 || mem.WriteU64(uint64(out), uint64(res.Handle)) != nil || mem.WriteU32(uint64(out)+8, uint32(res.Error)) != nil {
		h.log.Error("create result pointer out of bounds", zap.Uint32("out", out))
		if res.Handle != 0 {
			_ = b.FreeClientHandle(res.Handle)
		}
		b.FreeString(res.Error)
		return bridge.ParameterError
	}
	return res.Code
}

// FreeClient implements free_client.
func (h *Host) FreeClient(ctx context.Context, mod api.Module, handle uint64) {
	b, ok := h.bridgeFor(ctx, mod)
	if !ok {
		return
	}
	_ = b.FreeClientHandle(bridge.Handle(handle))
}

// Command implements command.
func (h *Host) Command(ctx context.Context, mod api.Module, handle uint64, requestType, route, args, argc, out uint32) bool {
	b, ok := h.bridgeFor(ctx, mod)
	if !ok {
		return false
	}
	res := b.CommandBlockingParams(bridge.Handle(handle), command.RequestType(requestType), uint64(route), uint64(args), argc)
	mem := b.Boundary().Memory
	if out == 0 || mem.WriteU32(uint64(out), uint32(res.Value)) != nil || mem.WriteU32(uint64(out)+4, uint32(res.Error)) != nil {
		h.log.Error("command result pointer out of bounds", zap.Uint32("out", out))
		b.FreeValue(res.Value)
		b.FreeString(res.Error)
		return false
	}
	return res.Success
}

// FreeValue implements free_value.
func (h *Host) FreeValue(ctx context.Context, mod api.Module, ptr uint32) {
	if b, ok := h.bridgeFor(ctx, mod); ok {
		b.FreeValue(uint64(ptr))
	}
}

// FreeString implements free_string.
func (h *Host) FreeString(ctx context.Context, mod api.Module, ptr uint32) {
	if b, ok := h.bridgeFor(ctx, mod); ok {
		b.FreeString(uint64(ptr))
	}
}
