package material

import "github.com/go-gl/mathgl/mgl32"

// NewMetal creates a metal material. Fuzz is clamped to [0, 1].
func NewMetal(albedo mgl32.Vec3, fuzz float32) Material {
	return Material{Kind: Metal, Albedo: albedo, Payload: mgl32.Vec2{clamp(fuzz, 0, 1), 0}}
}

// NewGlossy creates a coated material: a dielectric layer over a colored base
func NewGlossy(albedo mgl32.Vec3, ior, fuzz float32) Material {
	return Material{
		Kind:    Glossy,
		Albedo:  albedo,
		Payload: mgl32.Vec2{clamp(ior, MinIoR, MaxIoR), clamp(fuzz, 0, 1)},
	}
}
