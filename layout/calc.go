package layout

// Field describes one member of a C struct.
type Field struct {
	Name  string
	Size  uint64
	Align uint64
}

// Info holds the computed layout of a C struct.
type Info struct {
	Offsets map[string]uint64
	Size    uint64
	Align   uint64
}

// Offset returns the byte offset of the named field.
// Asking for a field the record does not have is a programming error.
func (i Info) Offset(name string) uint64 {
	off, ok := i.Offsets[name]
	if !ok {
		panic("layout: unknown field " + name)
	}
	return off
}

// Record lays out fields in declaration order.
func Record(fields ...Field) Info {
	info := Info{Offsets: make(map[string]uint64, len(fields)), Align: 1}
	offset := uint64(0)
	for _, f := range fields {
		align := f.Align
		if align == 0 {
			align = 1
		}
		offset = AlignTo(offset, align)
		info.Offsets[f.Name] = offset
		offset += f.Size
		if align > info.Align {
			info.Align = align
		}
	}
	info.Size = AlignTo(offset, info.Align)
	return info
}

// Nested returns a field holding a whole struct.
func Nested(name string, inner Info) Field {
	return Field{Name: name, Size: inner.Size, Align: inner.Align}
}

func U8(name string) Field  { return Field{Name: name, Size: 1, Align: 1} }
func U16(name string) Field { return Field{Name: name, Size: 2, Align: 2} }
func U32(name string) Field { return Field{Name: name, Size: 4, Align: 4} }
func U64(name string) Field { return Field{Name: name, Size: 8, Align: 8} }

// AlignTo rounds offset up to a multiple of align, which must be a power of two.
func AlignTo(offset, align uint64) uint64 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}
