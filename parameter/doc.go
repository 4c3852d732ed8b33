// Package parameter converts tagged C parameters into owned Go arguments.
//
// A Parameter is a {kind, value, value_length} record whose 8-byte value
// union holds a scalar or a pointer, depending on kind. Decode copies
// everything it reads out of caller memory, so a decoded Arg never aliases
// the caller.
//
//	Decode(mem, l, addr)         -> Arg
//	DecodeList(mem, l, addr, n)  -> []Arg
//	DecodeStrings(mem, l, addr, n) -> []Arg (NUL-terminated C strings)
//	Lower(mem, alloc, l, args)   -> address of a Parameter array
//
// Each Arg expands to wire arguments with AppendWire.
package parameter
