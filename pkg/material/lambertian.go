package material

import "github.com/go-gl/mathgl/mgl32"

// NewLambertian creates a diffuse material
func NewLambertian(albedo mgl32.Vec3) Material {
	return Material{Kind: Lambertian, Albedo: albedo}
}

// NewCheckerboard creates a two-tone procedural material with the given checker scale
func NewCheckerboard(albedo mgl32.Vec3, scale float32) Material {
	return Material{Kind: Checkerboard, Albedo: albedo, Payload: mgl32.Vec2{scale, 0}}
}
