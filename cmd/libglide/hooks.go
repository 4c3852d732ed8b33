package main

import (
	"github.com/ebitengine/purego"

	"github.com/wippyai/glide-ffi/logging"
)

func boolArg(b bool) uintptr {
	if b {
		return 1
	}
	return 0
}

// foreignHooks adapts the C logging callbacks. Strings handed to them live
// only for the duration of the call.
func foreignHooks(data, isEnabled, newSpan, record, event, enter, exit uintptr) logging.Hooks {
	var h logging.Hooks
	if isEnabled != 0 {
		h.IsEnabled = func(level logging.Level, target string) bool {
			t := cstring(target)
			defer cHeap{}.Free(uint64(t))
			r, _, _ := purego.SyscallN(isEnabled, data, uintptr(level), t)
			return byte(r) != 0
		}
	}
	if newSpan != 0 {
		h.NewSpan = func(level logging.Level, target, name string, fields []byte) uint64 {
			t, n, f := cstring(target), cstring(name), cstring(string(fields))
			defer freeAll(t, n, f)
			r, _, _ := purego.SyscallN(newSpan, data, uintptr(level), t, n, f)
			return uint64(r)
		}
	}
	if record != 0 {
		h.Record = func(span uint64, fields []byte) {
			f := cstring(string(fields))
			defer freeAll(f)
			purego.SyscallN(record, data, uintptr(span), f)
		}
	}
	if event != 0 {
		h.Event = func(level logging.Level, target, message string, fields []byte) {
			t, m, f := cstring(target), cstring(message), cstring(string(fields))
			defer freeAll(t, m, f)
			purego.SyscallN(event, data, uintptr(level), t, m, f)
		}
	}
	if enter != 0 {
		h.Enter = func(span uint64) { purego.SyscallN(enter, data, uintptr(span)) }
	}
	if exit != 0 {
		h.Exit = func(span uint64) { purego.SyscallN(exit, data, uintptr(span)) }
	}
	return h
}

func freeAll(ptrs ...uintptr) {
	for _, p := range ptrs {
		cHeap{}.Free(uint64(p))
	}
}
