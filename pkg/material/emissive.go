package material

import "github.com/go-gl/mathgl/mgl32"

// NewEmissive creates a light-emitting material. Objects using it enter the light list.
func NewEmissive(color mgl32.Vec3, intensity float32) Material {
	return Material{Kind: Emissive, Albedo: color, Payload: mgl32.Vec2{clamp(intensity, 0, MaxIntensity), 0}}
}
