package bridge

import (
	"context"
	stderrors "errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	glideffi "github.com/wippyai/glide-ffi"
	"github.com/wippyai/glide-ffi/client"
	"github.com/wippyai/glide-ffi/errors"
	"github.com/wippyai/glide-ffi/layout"
	"github.com/wippyai/glide-ffi/logging"
)

// Code is the outcome of CreateClientHandle.
type Code uint32

const (
	Success Code = iota
	ParameterError
	ThreadCreationError
	ConnectionFailed
	ClusterConnectionFailed
	ConnectionTimedOut
	ConnectionIOError
)

var codeNames = [...]string{
	"Success", "ParameterError", "ThreadCreationError", "ConnectionFailed",
	"ClusterConnectionFailed", "ConnectionTimedOut", "ConnectionIOError",
}

func (c Code) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return "Unknown"
}

// CreateResult carries either a handle or an error string, never both.
type CreateResult struct {
	Handle Handle
	Error  uint64
	Code   Code
}

// CommandResult reports whether an async command was accepted.
type CommandResult struct {
	Error   uint64
	Success bool
}

// BlockingResult carries either an encoded value or an error string.
type BlockingResult struct {
	Value   uint64
	Error   uint64
	Success bool
}

// Connection is the live pair behind a handle.
type Connection struct {
	ID      uuid.UUID
	runtime *Runtime
	client  *client.Client
}

// Runtime returns the connection's runtime.
func (c *Connection) Runtime() *Runtime { return c.runtime }

// Client returns the connected client.
func (c *Connection) Client() *client.Client { return c.client }

func (c *Connection) close(log *zap.Logger) {
	c.runtime.Close(func(ctx context.Context) {
		if err := c.client.Close(); err != nil {
			log.Warn("closing client", zap.Stringer("conn", c.ID), zap.Error(err))
		}
	})
}

// Bridge runs the entry points against one caller boundary.
type Bridge struct {
	boundary glideffi.Boundary
	layout   *layout.Layout
	registry *Registry
	log      *zap.Logger
}

// New creates a bridge for boundary b backed by registry reg.
func New(b glideffi.Boundary, reg *Registry) *Bridge {
	return &Bridge{
		boundary: b,
		layout:   layout.For(b.PointerSize),
		registry: reg,
		log:      logging.Named("glide_ffi"),
	}
}

// Boundary returns the caller boundary.
func (b *Bridge) Boundary() glideffi.Boundary { return b.boundary }

// Registry returns the handle registry.
func (b *Bridge) Registry() *Registry { return b.registry }

// Layout returns the caller's struct layout.
func (b *Bridge) Layout() *layout.Layout { return b.layout }

// CreateClientHandle decodes the ConnectionRequest at reqAddr and connects.
func (b *Bridge) CreateClientHandle(ctx context.Context, reqAddr uint64) CreateResult {
	logging.Trace(b.log, "entered create client handle")
	defer logging.Trace(b.log, "exiting create client handle")

	cfg, err := client.DecodeRequest(b.boundary.Memory, b.layout, reqAddr)
	if err != nil {
		b.log.Error("invalid connection request", zap.Error(err))
		return b.createFailure(ParameterError, errors.Message(err))
	}
	return b.CreateClient(ctx, cfg)
}

// CreateClient connects with an already decoded configuration.
func (b *Bridge) CreateClient(ctx context.Context, cfg client.Config) CreateResult {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		b.log.Error("invalid connection request", zap.Error(err))
		return b.createFailure(ParameterError, errors.Message(err))
	}

	rt, err := NewRuntime(context.WithoutCancel(ctx), int(cfg.InflightRequestsLimit))
	if err != nil {
		return b.createFailure(ThreadCreationError, errors.Message(err))
	}

	var c *client.Client
	err = rt.BlockOn(func(ctx context.Context) error {
		var cerr error
		c, cerr = client.Connect(ctx, cfg)
		return cerr
	})
	if err != nil {
		rt.Close(nil)
		return b.createFailure(connectCode(err), err.Error())
	}

	conn := &Connection{ID: newID(), runtime: rt, client: c}
	h, err := b.registry.Insert(conn)
	if err != nil {
		conn.close(b.log)
		return b.createFailure(ConnectionFailed, errors.Message(err))
	}
	b.log.Info("client created",
		zap.Uint64("handle", uint64(h)),
		zap.Stringer("conn", conn.ID),
		zap.Bool("cluster", cfg.Cluster))
	return CreateResult{Code: Success, Handle: h}
}

func (b *Bridge) createFailure(code Code, msg string) CreateResult {
	return CreateResult{Code: code, Error: cString(b.boundary, msg)}
}

func connectCode(err error) Code {
	var ce *client.ConnectionError
	if !stderrors.As(err, &ce) {
		return ConnectionFailed
	}
	switch ce.Category {
	case client.CategoryCluster:
		return ClusterConnectionFailed
	case client.CategoryTimeout:
		return ConnectionTimedOut
	case client.CategoryIO:
		return ConnectionIOError
	}
	return ConnectionFailed
}

// FreeClientHandle tears the handle down. In-flight commands are cancelled
// and still report through their callbacks before it returns.
func (b *Bridge) FreeClientHandle(h Handle) error {
	logging.Trace(b.log, "entered free client handle", zap.Uint64("handle", uint64(h)))
	defer logging.Trace(b.log, "exiting free client handle", zap.Uint64("handle", uint64(h)))

	conn, ok := b.registry.Remove(h)
	if !ok {
		err := errors.InvalidHandle(errors.PhaseConnect, uint64(h))
		b.log.Error("free of unknown client handle", zap.Uint64("handle", uint64(h)), zap.Error(err))
		return err
	}
	conn.close(b.log)
	b.log.Info("client freed", zap.Uint64("handle", uint64(h)), zap.Stringer("conn", conn.ID))
	return nil
}

// FreeValue releases a value delivered by a command.
func (b *Bridge) FreeValue(addr uint64) {
	if addr != 0 {
		b.boundary.Allocator.Free(addr)
	}
}

// FreeString releases an error string.
func (b *Bridge) FreeString(addr uint64) {
	if addr != 0 {
		b.boundary.Allocator.Free(addr)
	}
}

// Close frees every live handle.
func (b *Bridge) Close() {
	for _, conn := range b.registry.Close() {
		conn.close(b.log)
	}
}

func newID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
