// Package buffer encodes a reply tree into one caller allocation.
//
// Encoding runs the same walk twice. The first walk only measures; the
// buffer is then allocated at exactly that size and the second walk writes.
// Every nested pointer is an address inside the one allocation, so the
// caller frees the whole tree with a single call.
//
// Layout of an encoded tree:
//
//	offset 0        root Value {kind, length, data}
//	                Array/Set: data -> length x Value slots
//	                Map:       data -> length x KeyValuePair slots
//	                strings:   data -> length bytes [+ NUL]
//
// A container reserves all of its slots before filling any child, and
// children are filled depth-first. Zero-length strings without a NUL and
// empty containers have a null data pointer.
package buffer
