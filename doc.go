// Package glideffi is a foreign-function bridge that lets a host runtime drive
// an in-process Valkey/Redis client through a C ABI.
//
// The host hands in untyped, caller-owned C-layout data. The bridge decodes it
// into owned command arguments, dispatches the command on a per-connection
// runtime and reports the reply through a callback as a single self-contained
// buffer the host frees with one call.
//
// # Architecture Overview
//
//	glideffi/            Root package with Memory, Allocator and Boundary
//	├── errors/          Structured error taxonomy for the boundary
//	├── layout/          C struct layouts for LP64 and wasm32 callers
//	├── memory/          Native, arena and wazero guest memory
//	├── parameter/       Tagged parameter decoder and lowering
//	├── value/           Reply value model and go-redis conversion
//	├── buffer/          Two-pass result encoder and reader
//	├── command/         Request type to wire command table
//	├── routing/         Cluster routing directives
//	├── client/          Client handle over go-redis
//	├── bridge/          Handle registry, runtimes and dispatch entry points
//	├── logging/         Plain-text logger and caller logging hooks
//	├── wasmhost/        The entry points as a wazero host module
//	└── cmd/
//	    ├── libglide/        c-shared exports
//	    └── glide-console/   Operator console
//
// # Ownership
//
// Anything the caller passes in remains caller-owned and is never retained
// past the call. Anything returned to the caller is released exactly once
// through the matching free entry point.
//
// # Thread Safety
//
// A client handle may be used from many threads at once. Freeing a handle
// while commands are still being issued on it is a caller error; stale
// handles are detected by the registry and rejected.
package glideffi
