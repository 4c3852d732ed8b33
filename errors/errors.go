package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the boundary the error occurred
type Phase string

const (
	PhaseDecode   Phase = "decode"   // caller memory to Go
	PhaseEncode   Phase = "encode"   // Go to caller memory
	PhaseConnect  Phase = "connect"  // client handle creation
	PhaseCommand  Phase = "command"  // command dispatch and execution
	PhaseRoute    Phase = "route"    // routing directive handling
	PhaseCallback Phase = "callback" // caller-supplied code
	PhaseInit     Phase = "init"     // process-wide logging setup
	PhaseHost     Phase = "host"     // wasm host registration
)

// Kind categorizes the error
type Kind string

const (
	KindEmpty          Kind = "empty"
	KindInvalidUTF8    Kind = "invalid_utf8"
	KindInvalidEnum    Kind = "invalid_enum"
	KindInvalidData    Kind = "invalid_data"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindOverflow       Kind = "overflow"
	KindAllocation     Kind = "allocation"
	KindUnknownCommand Kind = "unknown_command"
	KindInvalidHandle  Kind = "invalid_handle"
	KindThreadCreation Kind = "thread_creation"
	KindConnection     Kind = "connection"
	KindTimeout        Kind = "timeout"
	KindIO             Kind = "io"
	KindPanic          Kind = "panic"
	KindClosed         Kind = "closed"
	KindNotFound       Kind = "not_found"
	KindRegistration   Kind = "registration"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Type   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Type != "" {
		b.WriteString(": C type ")
		b.WriteString(e.Type)
	}

	if e.Detail != "" {
		if e.Type != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Type sets the C type name
func (b *Builder) Type(t string) *Builder {
	b.err.Type = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Empty reports a null pointer where a string was required.
func Empty(phase Phase, path []string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindEmpty,
		Path:   path,
		Detail: "null value passed",
	}
}

// InvalidUTF8 creates an invalid UTF-8 error. The offending bytes are kept
// as the error value.
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
		Value:  append([]byte(nil), data...),
	}
}

// InvalidEnum creates an invalid enum value error
func InvalidEnum(phase Phase, path []string, value any, enumType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidEnum,
		Path:   path,
		Type:   enumType,
		Detail: fmt.Sprintf("invalid enum value %v", value),
		Value:  value,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// OutOfBounds wraps a failed memory access
func OutOfBounds(phase Phase, path []string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: "memory access out of bounds",
		Cause:  cause,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		Type:   targetType,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint64, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
		Cause:  cause,
	}
}

// UnknownCommand reports a request type with no wire command.
func UnknownCommand(requestType uint32) *Error {
	return &Error{
		Phase:  PhaseCommand,
		Kind:   KindUnknownCommand,
		Detail: "Unknown request type",
		Value:  requestType,
	}
}

// InvalidHandle reports a null, stale or already freed client handle.
func InvalidHandle(phase Phase, handle uint64) *Error {
	detail := "Invalid handle passed"
	if handle == 0 {
		detail = "Null handle passed"
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Detail: detail,
		Value:  handle,
	}
}

// Panic wraps a recovered panic value.
func Panic(phase Phase, recovered any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindPanic,
		Detail: fmt.Sprintf("%v", recovered),
		Value:  recovered,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// IsEmpty reports whether err carries the Empty half of the Utf8OrEmpty
// classification anywhere in its chain.
func IsEmpty(err error) bool {
	return hasKind(err, KindEmpty)
}

// IsUtf8 reports whether err carries the Utf8 half of the Utf8OrEmpty
// classification anywhere in its chain.
func IsUtf8(err error) bool {
	return hasKind(err, KindInvalidUTF8)
}

// KindOf returns the kind of the first *Error in the chain, or "".
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

func hasKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Message returns the text handed to callers for err. Structured errors
// report their detail, or the cause when there is no detail, so callers see
// "Null handle passed" rather than the phase/kind prefix.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := err.(*Error); ok {
		switch {
		case e.Detail != "" && e.Cause != nil:
			return e.Detail + ": " + e.Cause.Error()
		case e.Detail != "":
			return e.Detail
		case e.Cause != nil:
			return e.Cause.Error()
		}
	}
	return err.Error()
}
