// Package layout computes the C struct layouts shared with callers.
//
// Layouts follow the C rules: fields are placed sequentially, each at the
// next offset aligned to its own alignment, and the struct size is rounded
// up to the largest field alignment. Pointer-sized fields depend on the
// caller, so every layout is computed for a pointer size: 8 for native LP64
// callers and 4 for wasm32 guests.
//
// # Usage
//
//	l := layout.For(8)
//	kindAddr := paramAddr + l.Parameter.Kind
//	next := paramAddr + l.Parameter.Size
package layout
