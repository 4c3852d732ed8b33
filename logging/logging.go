package logging

import (
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/glide-ffi/errors"
)

type state struct {
	plain zapcore.Core
	hooks zapcore.Core
	file  *sink
	level Level
}

func (s *state) core() zapcore.Core {
	if s.hooks == nil {
		return s.plain
	}
	return zapcore.NewTee(s.plain, s.hooks)
}

func (s *state) unpin() {
	if s.file != nil {
		s.file.release()
	}
}

// pin returns the current state with its log file held open until unpin.
func pin() *state {
	for {
		s := current.Load()
		if s.file == nil || s.file.acquire() {
			return s
		}
	}
}

// sink is an opened log file. The state that installed it holds one
// reference and every in-flight write holds another; the file is synced and
// closed when the last reference goes.
type sink struct {
	ws    zapcore.WriteSyncer
	close func()
	refs  atomic.Int64
}

func newSink(ws zapcore.WriteSyncer, closeFn func()) *sink {
	s := &sink{ws: ws, close: closeFn}
	s.refs.Store(1)
	return s
}

// acquire fails once the file has been closed.
func (s *sink) acquire() bool {
	for {
		n := s.refs.Load()
		if n == 0 {
			return false
		}
		if s.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (s *sink) release() {
	if s.refs.Add(-1) == 0 {
		_ = s.ws.Sync()
		s.close()
	}
}

var (
	current atomic.Pointer[state]
	stderr  = zapcore.Lock(os.Stderr)
	// serializes Init, UseCore and SetHooks; readers only Load
	configMu sync.Mutex
)

func init() {
	current.Store(&state{plain: plainCore(stderr, LevelWarn), level: LevelWarn})
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		EncodeLevel:    encodeLevel,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

func plainCore(ws zapcore.WriteSyncer, level Level) zapcore.Core {
	if level == LevelOff {
		return zapcore.NewNopCore()
	}
	threshold := level.Zap()
	return zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig()),
		ws,
		zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= threshold }),
	)
}

// Init configures the plain-text logger and returns the effective level.
// LevelDefault selects Warn. An empty filePath logs to stderr; otherwise the
// file is opened for append. Hooks installed by SetHooks are kept.
func Init(level Level, filePath string) (Level, error) {
	if level == LevelDefault {
		level = LevelWarn
	}
	if !level.Valid() {
		return LevelDefault, errors.InvalidEnum(errors.PhaseInit, []string{"level"}, int32(level), "Level")
	}

	var (
		ws   zapcore.WriteSyncer = stderr
		file *sink
	)
	if filePath != "" {
		out, closeOut, err := zap.Open(filePath)
		if err != nil {
			return LevelDefault, errors.Wrap(errors.PhaseInit, errors.KindIO, err, "failed to open log file")
		}
		ws, file = out, newSink(out, closeOut)
	}

	swap(func(s *state) {
		s.plain = plainCore(ws, level)
		s.level = level
		s.file = file
	})
	return level, nil
}

// UseCore routes the plain-text output into core, for hosts that already
// own a zap configuration.
func UseCore(core zapcore.Core) {
	swap(func(s *state) {
		s.plain = core
		s.file = nil
	})
}

// CurrentLevel returns the level of the last successful Init.
func CurrentLevel() Level {
	return current.Load().level
}

func swap(update func(*state)) {
	configMu.Lock()
	defer configMu.Unlock()

	old := current.Load()
	next := *old
	update(&next)
	current.Store(&next)

	if old.file != nil && old.file != next.file {
		old.file.release()
	}
}

// Named returns a logger for target that follows the current configuration.
func Named(target string) *zap.Logger {
	return zap.New(&dynamicCore{}).Named(target)
}

// Trace logs at TraceLevel.
func Trace(log *zap.Logger, msg string, fields ...zap.Field) {
	log.Log(TraceLevel, msg, fields...)
}

// dynamicCore forwards to whatever core is current at the time of the call.
type dynamicCore struct {
	fields []zapcore.Field
}

func (c *dynamicCore) resolve(s *state) zapcore.Core {
	core := s.core()
	if len(c.fields) > 0 {
		core = core.With(c.fields)
	}
	return core
}

func (c *dynamicCore) Enabled(l zapcore.Level) bool {
	return current.Load().core().Enabled(l)
}

func (c *dynamicCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	return &dynamicCore{fields: append(merged, fields...)}
}

// Check pins the current state until the entry is written, so a
// concurrent Init cannot close the file underneath it.
func (c *dynamicCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	s := pin()
	core := c.resolve(s)
	checked := core.Check(ent, nil)
	if checked == nil {
		s.unpin()
		return ce
	}
	checked.ErrorOutput = stderr
	return ce.AddCore(ent, &pinnedEntry{Core: core, checked: checked, state: s})
}

func (c *dynamicCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	s := pin()
	defer s.unpin()
	return c.resolve(s).Write(ent, fields)
}

func (c *dynamicCore) Sync() error {
	s := pin()
	defer s.unpin()
	return s.core().Sync()
}

// pinnedEntry writes an entry checked against a pinned state and then
// releases it.
type pinnedEntry struct {
	zapcore.Core
	checked *zapcore.CheckedEntry
	state   *state
}

func (p *pinnedEntry) Write(_ zapcore.Entry, fields []zapcore.Field) error {
	defer p.state.unpin()
	p.checked.Write(fields...)
	return nil
}
