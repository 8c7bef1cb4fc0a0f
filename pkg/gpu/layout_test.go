package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestStructLayout_Std430Offsets(t *testing.T) {
	tests := []struct {
		name    string
		layout  StructLayout
		offsets map[string]int
		size    int
	}{
		{
			name:    "scalar packs after vec3",
			layout:  NewStructLayout("sphere", F("center", Vec3), F("radius", Float32), F("material", Uint32)),
			offsets: map[string]int{"center": 0, "radius": 12, "material": 16},
			size:    32,
		},
		{
			name:    "vec3 aligned to 16",
			layout:  NewStructLayout("material", F("kind", Uint32), F("albedo", Vec3), F("payload", Vec2)),
			offsets: map[string]int{"kind": 0, "albedo": 16, "payload": 32},
			size:    48,
		},
		{
			name:    "scalars only",
			layout:  NewStructLayout("entry", F("kind", Int32), F("index", Int32)),
			offsets: map[string]int{"kind": 0, "index": 4},
			size:    8,
		},
		{
			name:    "matrices",
			layout:  NewStructLayout("box", F("transform", Mat4), F("inv", Mat4), F("material", Uint32)),
			offsets: map[string]int{"transform": 0, "inv": 64, "material": 128},
			size:    144,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for name, want := range tt.offsets {
				f, ok := tt.layout.Field(name)
				assert.True(t, ok, name)
				assert.Equal(t, want, f.Offset, name)
			}
			assert.Equal(t, tt.size, tt.layout.Size)
		})
	}
}

func TestLayout_HeaderPadding(t *testing.T) {
	header := NewStructLayout("header", F("count", Uint32), F("selected", Int32))
	element := NewStructLayout("node", F("min", Vec3), F("data", Uint32))
	layout := NewHeaderLayout(header, element)

	assert.Equal(t, 16, layout.HeaderSize(), "header padded to element alignment")
	assert.Equal(t, 16+16*4, layout.Size(4))
}

func TestPayload_EncodesLittleEndian(t *testing.T) {
	header := NewStructLayout("header", F("count", Uint32), F("selected", Int32))
	element := NewStructLayout("item", F("pos", Vec3), F("scale", Float32))
	p := NewPayload(NewHeaderLayout(header, element), 2)

	p.Header().Uint32("count", 1).Int32("selected", -1)
	p.Element(1).Vec3("pos", mgl32.Vec3{1, 2, 3}).Float32("scale", 0.5)

	data := p.Bytes()
	assert.Len(t, data, 16+16*2)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(data[0:]))
	assert.Equal(t, int32(-1), int32(binary.LittleEndian.Uint32(data[4:])))

	elem := data[16+16:]
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(elem[0:])))
	assert.Equal(t, float32(3), math.Float32frombits(binary.LittleEndian.Uint32(elem[8:])))
	assert.Equal(t, float32(0.5), math.Float32frombits(binary.LittleEndian.Uint32(elem[12:])))

	// Slot 0 untouched
	for _, b := range data[16:32] {
		assert.Equal(t, byte(0), b)
	}
}

func TestRecord_PanicsOnMisuse(t *testing.T) {
	p := NewPayload(NewLayout(NewStructLayout("item", F("value", Uint32))), 1)

	assert.Panics(t, func() { p.Element(0).Float32("value", 1) }, "type mismatch")
	assert.Panics(t, func() { p.Element(0).Uint32("missing", 1) }, "unknown field")
	assert.Panics(t, func() { p.Element(1) }, "out of range")
	assert.Panics(t, func() { p.Header() }, "no header")
}
