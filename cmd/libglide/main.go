// Command libglide is the C shared library over the bridge. Build with
//
//	go build -buildmode=c-shared -o libglide_ffi.so ./cmd/libglide
//
// and include glide_ffi.h. Results are plain structs returned by value;
// every string and Value pointer in them is owned by the caller.
package main

/*
#cgo CFLAGS: -I${SRCDIR}
#define GLIDE_FFI_NO_PROTOTYPES
#include "glide_ffi.h"
*/
import "C"

import "unsafe"

func addr(p unsafe.Pointer) uint64 { return uint64(uintptr(p)) }

func cstr(a uint64) *C.char { return (*C.char)(unsafe.Pointer(uintptr(a))) }

//export glide_system_init
func glide_system_init(level C.int32_t, filePath *C.char) C.SystemInitResult {
	got, errStr := lib.systemInit(int32(level), addr(unsafe.Pointer(filePath)))
	return C.SystemInitResult{
		success:      C.bool(errStr == 0),
		level:        C.int32_t(got),
		error_string: cstr(errStr),
	}
}

//export glide_set_logging_hooks
func glide_set_logging_hooks(data unsafe.Pointer,
	isEnabled C.IsEnabledCallback, newSpan C.NewSpanCallback, record C.RecordCallback,
	event C.EventCallback, enter C.EnterCallback, exit C.ExitCallback,
) {
	lib.setHooks(uintptr(data),
		uintptr(unsafe.Pointer(isEnabled)), uintptr(unsafe.Pointer(newSpan)),
		uintptr(unsafe.Pointer(record)), uintptr(unsafe.Pointer(event)),
		uintptr(unsafe.Pointer(enter)), uintptr(unsafe.Pointer(exit)))
}

//export glide_create_client_handle
func glide_create_client_handle(request *C.ConnectionRequest) C.CreateClientHandleResult {
	res := lib.createClient(addr(unsafe.Pointer(request)))
	return C.CreateClientHandleResult{
		client_handle: C.GlideClient(res.Handle),
		error_string:  cstr(res.Error),
		result:        C.uint32_t(res.Code),
	}
}

//export glide_free_client_handle
func glide_free_client_handle(client C.GlideClient) {
	lib.freeClient(uint64(client))
}

//export glide_command
func glide_command(client C.GlideClient, callback C.CommandCallback, callbackData unsafe.Pointer,
	requestType C.uint32_t, routing *C.RoutingInfo, args *C.Parameter, argc C.uint32_t,
) C.CommandResult {
	res := lib.command(uint64(client), uintptr(unsafe.Pointer(callback)), uintptr(callbackData),
		uint32(requestType), addr(unsafe.Pointer(routing)), addr(unsafe.Pointer(args)), uint32(argc))
	return C.CommandResult{
		success:      C.bool(res.Success),
		error_string: cstr(res.Error),
	}
}

//export glide_command_blocking
func glide_command_blocking(client C.GlideClient, requestType C.uint32_t, args **C.char, argc C.uint32_t) C.BlockingCommandResult {
	res := lib.commandBlocking(uint64(client), uint32(requestType), addr(unsafe.Pointer(args)), uint32(argc))
	return C.BlockingCommandResult{
		success:      C.bool(res.Success),
		value:        (*C.Value)(unsafe.Pointer(uintptr(res.Value))),
		error_string: cstr(res.Error),
	}
}

//export glide_free_value
func glide_free_value(value *C.Value) {
	lib.bridge.FreeValue(addr(unsafe.Pointer(value)))
}

//export glide_free_string
func glide_free_string(str *C.char) {
	lib.bridge.FreeString(addr(unsafe.Pointer(str)))
}

func main() {}
