package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// FieldType is the shader-side type of a struct member
type FieldType int

const (
	Uint32 FieldType = iota
	Int32
	Float32
	Vec2
	Vec3
	Vec4
	Mat4
)

// size and align follow std430 rules: vec3 aligns to 16 but only occupies 12 bytes,
// so a following scalar may pack into its padding.
func (t FieldType) size() int {
	switch t {
	case Vec2:
		return 8
	case Vec3:
		return 12
	case Vec4:
		return 16
	case Mat4:
		return 64
	default:
		return 4
	}
}

func (t FieldType) align() int {
	switch t {
	case Vec2:
		return 8
	case Vec3, Vec4, Mat4:
		return 16
	default:
		return 4
	}
}

func (t FieldType) String() string {
	switch t {
	case Uint32:
		return "u32"
	case Int32:
		return "i32"
	case Float32:
		return "f32"
	case Vec2:
		return "vec2"
	case Vec3:
		return "vec3"
	case Vec4:
		return "vec4"
	case Mat4:
		return "mat4"
	}
	return fmt.Sprintf("FieldType(%d)", int(t))
}

// Field is one named member of a struct layout
type Field struct {
	Name   string
	Type   FieldType
	Offset int
}

// FieldSpec declares a member; offsets are computed by NewStructLayout
type FieldSpec struct {
	Name string
	Type FieldType
}

// F is shorthand for FieldSpec
func F(name string, t FieldType) FieldSpec {
	return FieldSpec{Name: name, Type: t}
}

// StructLayout describes the byte layout of one shader struct
type StructLayout struct {
	Name   string
	Fields []Field
	Size   int // Stride in an array, padded to Align
	Align  int

	index map[string]int
}

// NewStructLayout lays out fields in declaration order with std430 alignment
func NewStructLayout(name string, specs ...FieldSpec) StructLayout {
	layout := StructLayout{Name: name, Align: 4, index: make(map[string]int, len(specs))}
	offset := 0
	for i, spec := range specs {
		if _, dup := layout.index[spec.Name]; dup {
			panic(fmt.Sprintf("gpu: duplicate field %q in %s", spec.Name, name))
		}
		offset = MemSizeAlign(offset, spec.Type.align())
		layout.Fields = append(layout.Fields, Field{Name: spec.Name, Type: spec.Type, Offset: offset})
		layout.index[spec.Name] = i
		layout.Align = max(layout.Align, spec.Type.align())
		offset += spec.Type.size()
	}
	layout.Size = MemSizeAlign(offset, layout.Align)
	return layout
}

// Field returns the member with the given name
func (s StructLayout) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// Layout is a buffer layout: an optional header struct followed by a fixed-stride array
type Layout struct {
	Header  *StructLayout
	Element StructLayout
}

// NewLayout creates an array layout with no header
func NewLayout(element StructLayout) Layout {
	return Layout{Element: element}
}

// NewHeaderLayout creates an array layout prefixed by a header struct
func NewHeaderLayout(header, element StructLayout) Layout {
	return Layout{Header: &header, Element: element}
}

// HeaderSize is the byte size of the header, padded so the array stays aligned
func (l Layout) HeaderSize() int {
	if l.Header == nil {
		return 0
	}
	return MemSizeAlign(l.Header.Size, l.Element.Align)
}

// Stride is the byte size of one array element
func (l Layout) Stride() int {
	return l.Element.Size
}

// Size returns header + stride * capacity
func (l Layout) Size(capacity int) int {
	return l.HeaderSize() + l.Stride()*capacity
}

// MemSizeAlign rounds size up to a multiple of align
func MemSizeAlign(size, align int) int {
	if align <= 0 || size%align == 0 {
		return size
	}
	return (size/align + 1) * align
}

// Payload is a zero-initialized byte image of a whole buffer at a given capacity.
// Slots beyond the logical count stay zero.
type Payload struct {
	layout   Layout
	capacity int
	data     []byte
}

// NewPayload allocates a zeroed payload for capacity elements
func NewPayload(layout Layout, capacity int) *Payload {
	return &Payload{
		layout:   layout,
		capacity: capacity,
		data:     make([]byte, layout.Size(capacity)),
	}
}

// Bytes returns the encoded buffer contents
func (p *Payload) Bytes() []byte {
	return p.data
}

// Capacity returns the number of element slots
func (p *Payload) Capacity() int {
	return p.capacity
}

// Header returns a writer for the header struct
func (p *Payload) Header() Record {
	if p.layout.Header == nil {
		panic("gpu: layout has no header")
	}
	return Record{layout: p.layout.Header, data: p.data[:p.layout.Header.Size]}
}

// Element returns a writer for array slot i
func (p *Payload) Element(i int) Record {
	if i < 0 || i >= p.capacity {
		panic(fmt.Sprintf("gpu: element %d out of range [0, %d)", i, p.capacity))
	}
	start := p.layout.HeaderSize() + i*p.layout.Stride()
	return Record{layout: &p.layout.Element, data: p.data[start : start+p.layout.Stride()]}
}

// Record writes named fields of one struct into its slot
type Record struct {
	layout *StructLayout
	data   []byte
}

func (r Record) field(name string, t FieldType) int {
	f, ok := r.layout.Field(name)
	if !ok {
		panic(fmt.Sprintf("gpu: %s has no field %q", r.layout.Name, name))
	}
	if f.Type != t {
		panic(fmt.Sprintf("gpu: %s.%s is %v, not %v", r.layout.Name, name, f.Type, t))
	}
	return f.Offset
}

func (r Record) putFloats(offset int, values ...float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(r.data[offset+i*4:], math.Float32bits(v))
	}
}

// Uint32 writes a u32 field
func (r Record) Uint32(name string, v uint32) Record {
	binary.LittleEndian.PutUint32(r.data[r.field(name, Uint32):], v)
	return r
}

// Int32 writes an i32 field
func (r Record) Int32(name string, v int32) Record {
	binary.LittleEndian.PutUint32(r.data[r.field(name, Int32):], uint32(v))
	return r
}

// Float32 writes an f32 field
func (r Record) Float32(name string, v float32) Record {
	r.putFloats(r.field(name, Float32), v)
	return r
}

// Vec2 writes a vec2 field
func (r Record) Vec2(name string, v mgl32.Vec2) Record {
	r.putFloats(r.field(name, Vec2), v[:]...)
	return r
}

// Vec3 writes a vec3 field
func (r Record) Vec3(name string, v mgl32.Vec3) Record {
	r.putFloats(r.field(name, Vec3), v[:]...)
	return r
}

// Vec4 writes a vec4 field
func (r Record) Vec4(name string, v mgl32.Vec4) Record {
	r.putFloats(r.field(name, Vec4), v[:]...)
	return r
}

// Mat4 writes a column-major mat4 field
func (r Record) Mat4(name string, m mgl32.Mat4) Record {
	r.putFloats(r.field(name, Mat4), m[:]...)
	return r
}
