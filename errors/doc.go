// Package errors provides structured error types for the FFI bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries the field path inside the C structure,
// the C type involved and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindInvalidEnum).
//		Path("args", "3", "kind").
//		Type("EParameterKind").
//		Detail("kind %d out of range", k).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Empty(errors.PhaseDecode, path)
//	err := errors.InvalidUTF8(errors.PhaseDecode, path, raw)
//
// Empty and InvalidUTF8 together form the Utf8OrEmpty classification used by
// the parameter decoder; IsEmpty and IsUtf8 test for either half.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
