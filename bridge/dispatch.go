package bridge

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/glide-ffi/buffer"
	"github.com/wippyai/glide-ffi/command"
	"github.com/wippyai/glide-ffi/errors"
	"github.com/wippyai/glide-ffi/logging"
	"github.com/wippyai/glide-ffi/parameter"
	"github.com/wippyai/glide-ffi/routing"
	"github.com/wippyai/glide-ffi/value"
)

// request is a fully decoded command ready to send.
type request struct {
	conn  *Connection
	route *routing.Route
	spec  command.Spec
	args  []parameter.Arg
	id    uuid.UUID
}

// prepare validates everything that can be checked before any I/O.
func (b *Bridge) prepare(h Handle, t command.RequestType, routeAddr uint64, decodeArgs func() ([]parameter.Arg, error)) (*request, error) {
	conn, ok := b.registry.Get(h)
	if !ok {
		return nil, errors.InvalidHandle(errors.PhaseCommand, uint64(h))
	}
	args, err := decodeArgs()
	if err != nil {
		return nil, err
	}
	spec, err := command.Resolve(t)
	if err != nil {
		return nil, err
	}
	route, err := routing.Decode(b.boundary.Memory, b.layout, routeAddr)
	if err != nil {
		return nil, err
	}
	return &request{conn: conn, route: route, spec: spec, args: args, id: newID()}, nil
}

func (b *Bridge) reject(msg string, h Handle, t command.RequestType, err error) uint64 {
	b.log.Error(msg,
		zap.Uint64("handle", uint64(h)),
		zap.Uint32("request_type", uint32(t)),
		zap.Error(err))
	return cString(b.boundary, errors.Message(err))
}

// Command submits a command and returns at once. Rejections are reported
// inline and never reach cb; an accepted command reports through cb exactly
// once.
func (b *Bridge) Command(h Handle, cb Callback, t command.RequestType, routeAddr, argsAddr uint64, argc uint32) CommandResult {
	logging.Trace(b.log, "entered command", zap.Uint32("request_type", uint32(t)))
	defer logging.Trace(b.log, "exiting command", zap.Uint32("request_type", uint32(t)))

	req, err := b.prepare(h, t, routeAddr, func() ([]parameter.Arg, error) {
		return parameter.DecodeList(b.boundary.Memory, b.layout, argsAddr, argc)
	})
	if err != nil {
		return CommandResult{Error: b.reject("command rejected", h, t, err)}
	}

	err = req.conn.runtime.Spawn(func(ctx context.Context) {
		b.run(ctx, req, cb)
	})
	if err != nil {
		return CommandResult{Error: b.reject("command rejected", h, t, err)}
	}
	return CommandResult{Success: true}
}

// run is the body of an async command task.
func (b *Bridge) run(ctx context.Context, req *request, cb Callback) {
	log := b.log.With(zap.Stringer("command_id", req.id))
	span := logging.StartSpan("glide_ffi", "command",
		zap.Stringer("command_id", req.id),
		zap.Stringer("command", req.spec))
	defer span.End()
	logging.Trace(log, "entered command task")

	success := true
	addr, err := b.execute(ctx, req)
	if err != nil {
		log.Error("command failed", zap.Stringer("command", req.spec), zap.Error(err))
		success = false
		addr = b.encodeError(log, err)
	}
	span.Record(zap.Bool("success", success))

	guard(b.log, req.id, func() { cb(success, addr) })
	logging.Trace(log, "exiting command task")
}

// execute sends the command and encodes the reply into caller memory.
func (b *Bridge) execute(ctx context.Context, req *request) (uint64, error) {
	v, err := req.conn.client.Do(ctx, req.spec, req.args, req.route)
	if err != nil {
		return 0, err
	}
	addr, _, err := buffer.Encode(b.boundary.Memory, b.boundary.Allocator, b.layout, v)
	if err != nil {
		return 0, err
	}
	return addr, nil
}

// encodeError encodes err as a simple string with a trailing NUL.
func (b *Bridge) encodeError(log *zap.Logger, err error) uint64 {
	addr, _, encErr := buffer.Encode(b.boundary.Memory, b.boundary.Allocator, b.layout, value.SimpleStringWithNull(err.Error()))
	if encErr != nil {
		log.Error("encoding error text", zap.Error(encErr))
		return 0
	}
	return addr
}

// CommandBlocking runs a command whose arguments are NUL-terminated strings
// on the calling goroutine.
func (b *Bridge) CommandBlocking(h Handle, t command.RequestType, argsAddr uint64, argc uint32) BlockingResult {
	return b.blocking(h, t, 0, func() ([]parameter.Arg, error) {
		return parameter.DecodeStrings(b.boundary.Memory, b.layout, argsAddr, argc)
	})
}

// CommandBlockingParams runs a command whose arguments are Parameters on
// the calling goroutine.
func (b *Bridge) CommandBlockingParams(h Handle, t command.RequestType, routeAddr, argsAddr uint64, argc uint32) BlockingResult {
	return b.blocking(h, t, routeAddr, func() ([]parameter.Arg, error) {
		return parameter.DecodeList(b.boundary.Memory, b.layout, argsAddr, argc)
	})
}

func (b *Bridge) blocking(h Handle, t command.RequestType, routeAddr uint64, decodeArgs func() ([]parameter.Arg, error)) BlockingResult {
	logging.Trace(b.log, "entered blocking command", zap.Uint32("request_type", uint32(t)))
	defer logging.Trace(b.log, "exiting blocking command", zap.Uint32("request_type", uint32(t)))

	req, err := b.prepare(h, t, routeAddr, decodeArgs)
	if err != nil {
		return BlockingResult{Error: b.reject("blocking command rejected", h, t, err)}
	}

	var addr uint64
	err = req.conn.runtime.BlockOn(func(ctx context.Context) error {
		var execErr error
		addr, execErr = b.execute(ctx, req)
		return execErr
	})
	if err != nil {
		b.log.Error("blocking command failed",
			zap.Stringer("command_id", req.id),
			zap.Stringer("command", req.spec),
			zap.Error(err))
		return BlockingResult{Error: cString(b.boundary, errors.Message(err))}
	}
	return BlockingResult{Success: true, Value: addr}
}
