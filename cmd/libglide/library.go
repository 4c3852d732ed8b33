package main

import (
	"context"

	"github.com/ebitengine/purego"
	"go.uber.org/zap"

	glideffi "github.com/wippyai/glide-ffi"
	"github.com/wippyai/glide-ffi/bridge"
	"github.com/wippyai/glide-ffi/command"
	"github.com/wippyai/glide-ffi/errors"
	"github.com/wippyai/glide-ffi/layout"
	"github.com/wippyai/glide-ffi/logging"
	"github.com/wippyai/glide-ffi/memory"
)

// library is the process-wide state behind the C exports. Handles from
// every caller share one registry.
type library struct {
	bridge *bridge.Bridge
	log    *zap.Logger
}

var lib = newLibrary()

func newLibrary() *library {
	b := glideffi.Boundary{
		Memory:      memory.Native{},
		Allocator:   cHeap{},
		PointerSize: layout.Native.PointerSize,
	}
	return &library{
		bridge: bridge.New(b, bridge.NewRegistry()),
		log:    logging.Named("glide_ffi.c"),
	}
}

func (l *library) systemInit(level int32, pathAddr uint64) (logging.Level, uint64) {
	var path string
	if pathAddr != 0 {
		b, err := layout.ReadCString(memory.Native{}, pathAddr)
		if err != nil {
			return logging.LevelDefault, l.bridge.NewString(err.Error())
		}
		path = string(b)
	}
	got, err := logging.Init(logging.Level(level), path)
	if err != nil {
		return got, l.bridge.NewString(errors.Message(err))
	}
	return got, 0
}

func (l *library) setHooks(data, isEnabled, newSpan, record, event, enter, exit uintptr) {
	if !logging.SetHooks(foreignHooks(data, isEnabled, newSpan, record, event, enter, exit)) {
		l.log.Debug("logging hooks already installed")
	}
}

func (l *library) createClient(req uint64) bridge.CreateResult {
	return l.bridge.CreateClientHandle(context.Background(), req)
}

func (l *library) freeClient(h uint64) {
	_ = l.bridge.FreeClientHandle(bridge.Handle(h))
}

func (l *library) command(h uint64, cb, data uintptr, t uint32, route, args uint64, argc uint32) bridge.CommandResult {
	if cb == 0 {
		err := errors.Empty(errors.PhaseCommand, []string{"callback"})
		l.log.Error("command rejected", zap.Error(err))
		return bridge.CommandResult{Error: l.bridge.NewString(errors.Message(err))}
	}
	callback := func(success bool, value uint64) {
		purego.SyscallN(cb, data, boolArg(success), uintptr(value))
	}
	return l.bridge.Command(bridge.Handle(h), callback, command.RequestType(t), route, args, argc)
}

func (l *library) commandBlocking(h uint64, t uint32, args uint64, argc uint32) bridge.BlockingResult {
	return l.bridge.CommandBlocking(bridge.Handle(h), command.RequestType(t), args, argc)
}
