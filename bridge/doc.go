// Package bridge implements the boundary entry points shared by the C
// library and the WebAssembly host.
//
// A client handle pairs a dedicated Runtime (a bounded worker pool with its
// own context) with a connected client. Handles live in a Registry and are
// handed to callers as opaque tokens that carry a slot generation, so stale
// or double-freed tokens are rejected instead of dereferenced.
//
// # Dispatch
//
// Command validates and decodes everything synchronously, then submits the
// send to the handle's runtime and returns. The outcome arrives later
// through the callback, exactly once, with either an encoded value or an
// error string encoded as a NUL-terminated simple string. CommandBlocking
// and CommandBlockingParams run the same work on the calling goroutine and
// return the result inline.
//
// Everything handed to the caller is allocated through the boundary's
// allocator and released through FreeValue or FreeString.
package bridge
