package material

import "github.com/go-gl/mathgl/mgl32"

// NewDielectric creates a transparent material with the given refraction index
func NewDielectric(albedo mgl32.Vec3, ior float32) Material {
	return Material{Kind: Dielectric, Albedo: albedo, Payload: mgl32.Vec2{clamp(ior, MinIoR, MaxIoR), 0}}
}
