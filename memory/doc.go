// Package memory provides the caller memories the bridge crosses into.
//
//   - Native is the process address space, used by C callers of the shared
//     library. It cannot check bounds; honoring declared lengths is the
//     caller's precondition.
//   - Slice is a bounds-checked arena backed by a Go byte slice with its own
//     allocator. The console and the tests use it to play the caller.
//   - Wazero adapts a wasm guest's linear memory; allocation goes through the
//     guest's cabi_realloc export or a host-managed region grown on demand.
package memory
