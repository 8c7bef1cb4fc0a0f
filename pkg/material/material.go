// Package material defines the tagged material union shared by every scene object.
package material

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/df07/go-gpu-pathtracer/pkg/gpu"
)

// Kind selects how the shader interprets a material
type Kind int32

const (
	Lambertian Kind = iota
	Metal
	Dielectric
	Emissive
	Glossy
	Checkerboard
)

var kindNames = [...]string{"lambertian", "metal", "dielectric", "emissive", "glossy", "checkerboard"}

// Kinds lists every material kind in enum order
func Kinds() []Kind {
	return []Kind{Lambertian, Metal, Dielectric, Emissive, Glossy, Checkerboard}
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int32(k))
	}
	return kindNames[k]
}

// ParseKind returns the kind with the given name
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("material: unknown kind %q", name)
}

// MarshalYAML writes the kind by name
func (k Kind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// UnmarshalYAML reads the kind by name
func (k *Kind) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	kind, err := ParseKind(name)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Editor limits for the kind-specific payload values
const (
	MinIoR       = 0.01
	MaxIoR       = 10.0
	MaxIntensity = 100.0
)

// Material is an albedo plus two kind-specific payload scalars:
//
//	Metal:        x = fuzz
//	Dielectric:   x = index of refraction
//	Emissive:     x = intensity
//	Glossy:       x = index of refraction, y = fuzz
//	Checkerboard: x = checker scale
type Material struct {
	Kind    Kind       `yaml:"kind"`
	Albedo  mgl32.Vec3 `yaml:"albedo"`
	Payload mgl32.Vec2 `yaml:"payload,omitempty"`
}

// IsEmissive reports whether surfaces with this material are lights
func (m Material) IsEmissive() bool {
	return m.Kind == Emissive
}

// Fuzz returns the reflection roughness of Metal and Glossy materials
func (m Material) Fuzz() float32 {
	switch m.Kind {
	case Metal:
		return m.Payload[0]
	case Glossy:
		return m.Payload[1]
	}
	return 0
}

// SetFuzz sets the roughness of Metal and Glossy materials
func (m *Material) SetFuzz(fuzz float32) {
	switch m.Kind {
	case Metal:
		m.Payload[0] = fuzz
	case Glossy:
		m.Payload[1] = fuzz
	}
}

// IoR returns the refraction index of Dielectric and Glossy materials
func (m Material) IoR() float32 {
	if m.Kind == Dielectric || m.Kind == Glossy {
		return m.Payload[0]
	}
	return 0
}

// SetIoR sets the refraction index of Dielectric and Glossy materials
func (m *Material) SetIoR(ior float32) {
	if m.Kind == Dielectric || m.Kind == Glossy {
		m.Payload[0] = ior
	}
}

// Intensity returns the emission strength of Emissive materials
func (m Material) Intensity() float32 {
	if m.Kind == Emissive {
		return m.Payload[0]
	}
	return 0
}

// SetIntensity sets the emission strength of Emissive materials
func (m *Material) SetIntensity(intensity float32) {
	if m.Kind == Emissive {
		m.Payload[0] = intensity
	}
}

// Scale returns the checker size of Checkerboard materials
func (m Material) Scale() float32 {
	if m.Kind == Checkerboard {
		return m.Payload[0]
	}
	return 0
}

// Clamp forces albedo and payload into the ranges the editor allows.
// Returns true when anything changed.
func (m *Material) Clamp() bool {
	before := *m
	for i := range m.Albedo {
		m.Albedo[i] = clamp(m.Albedo[i], 0, 1)
	}
	switch m.Kind {
	case Metal:
		m.Payload[0] = clamp(m.Payload[0], 0, 1)
	case Dielectric:
		m.Payload[0] = clamp(m.Payload[0], MinIoR, MaxIoR)
	case Emissive:
		m.Payload[0] = clamp(m.Payload[0], 0, MaxIntensity)
	case Glossy:
		m.Payload[0] = clamp(m.Payload[0], MinIoR, MaxIoR)
		m.Payload[1] = clamp(m.Payload[1], 0, 1)
	}
	return *m != before
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}

// Layout is the GPU struct of one material:
//
//	struct Material { kind: u32, albedo: vec3 (aligned 16), payload: vec2 }
var Layout = gpu.NewStructLayout("Material",
	gpu.F("kind", gpu.Uint32),
	gpu.F("albedo", gpu.Vec3),
	gpu.F("payload", gpu.Vec2),
)

// Encode writes the material into its slot
func (m Material) Encode(rec gpu.Record) {
	rec.Uint32("kind", uint32(m.Kind)).
		Vec3("albedo", m.Albedo).
		Vec2("payload", m.Payload)
}
