package logging

import (
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Hooks is the caller's logging sink. Fields are passed as a JSON object.
// Any hook may be nil.
type Hooks struct {
	IsEnabled func(level Level, target string) bool
	NewSpan   func(level Level, target, name string, fields []byte) uint64
	Record    func(span uint64, fields []byte)
	Event     func(level Level, target, message string, fields []byte)
	Enter     func(span uint64)
	Exit      func(span uint64)
}

// Targets are the logger names forwarded to hooks.
var Targets = []string{"glide", "redis", "logger_core", "glide_ffi"}

var (
	hooksOnce sync.Once
	installed atomic.Pointer[Hooks]
)

// SetHooks installs h for the rest of the process. Only the first call has
// any effect; it reports whether this call installed the hooks.
func SetHooks(h Hooks) bool {
	ok := false
	hooksOnce.Do(func() {
		hooks := h
		installed.Store(&hooks)
		swap(func(s *state) {
			s.hooks = &hookCore{hooks: &hooks}
		})
		ok = true
		Named("logger_core").Debug("logging hooks installed")
	})
	return ok
}

func targetOf(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

func allowedTarget(target string) bool {
	for _, t := range Targets {
		if t == target {
			return true
		}
	}
	return false
}

func enabledFor(h *Hooks, level Level, target string) bool {
	if !allowedTarget(target) {
		return false
	}
	return h.IsEnabled == nil || h.IsEnabled(level, target)
}

// encodeFields renders fields as one JSON object using zap's encoder.
func encodeFields(fields []zapcore.Field) []byte {
	if len(fields) == 0 {
		return []byte("{}")
	}
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{})
	buf, err := enc.EncodeEntry(zapcore.Entry{}, fields)
	if err != nil {
		return []byte("{}")
	}
	defer buf.Free()
	return []byte(strings.TrimSuffix(buf.String(), "\n"))
}

// hookCore forwards entries of the library targets to the caller's hooks.
type hookCore struct {
	hooks  *Hooks
	fields []zapcore.Field
}

func (c *hookCore) Enabled(zapcore.Level) bool {
	return c.hooks.Event != nil
}

func (c *hookCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	return &hookCore{hooks: c.hooks, fields: append(merged, fields...)}
}

func (c *hookCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.hooks.Event == nil {
		return ce
	}
	if !enabledFor(c.hooks, FromZap(ent.Level), targetOf(ent.LoggerName)) {
		return ce
	}
	return ce.AddCore(ent, c)
}

func (c *hookCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	all := fields
	if len(c.fields) > 0 {
		all = append(append(make([]zapcore.Field, 0, len(c.fields)+len(fields)), c.fields...), fields...)
	}
	c.hooks.Event(FromZap(ent.Level), targetOf(ent.LoggerName), ent.Message, encodeFields(all))
	return nil
}

func (c *hookCore) Sync() error {
	return nil
}

// Span brackets a unit of work in the caller's tracing. Without hooks, or
// for targets the caller has disabled, spans are no-ops.
type Span struct {
	hooks *Hooks
	id    uint64
}

// StartSpan opens and enters a span.
func StartSpan(target, name string, fields ...zap.Field) *Span {
	h := installed.Load()
	if h == nil || h.NewSpan == nil || !enabledFor(h, LevelTrace, target) {
		return &Span{}
	}
	id := h.NewSpan(LevelTrace, target, name, encodeFields(fields))
	if h.Enter != nil {
		h.Enter(id)
	}
	return &Span{hooks: h, id: id}
}

// ID returns the caller-assigned span id, or 0 for a no-op span.
func (s *Span) ID() uint64 {
	return s.id
}

// Record attaches fields to the span.
func (s *Span) Record(fields ...zap.Field) {
	if s.hooks == nil || s.hooks.Record == nil {
		return
	}
	s.hooks.Record(s.id, encodeFields(fields))
}

// End exits the span. It is safe to call more than once.
func (s *Span) End() {
	if s.hooks == nil {
		return
	}
	if s.hooks.Exit != nil {
		s.hooks.Exit(s.id)
	}
	s.hooks = nil
}
