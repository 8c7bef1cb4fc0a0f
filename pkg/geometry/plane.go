package geometry

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
)

// Plane is an infinite plane through Point with unit Normal
type Plane struct {
	Point  mgl32.Vec3
	Normal mgl32.Vec3
}

// NewPlane creates a plane, normalizing the normal
func NewPlane(point, normal mgl32.Vec3) Plane {
	return Plane{Point: point, Normal: normal.Normalize()}
}

// Intersect misses rays parallel to the plane (|n.d| <= 1e-6) and hits behind the origin
func (p Plane) Intersect(ray core.Ray) float32 {
	denom := p.Normal.Dot(ray.Direction)
	if math32.Abs(denom) <= 1e-6 {
		return -1
	}
	t := p.Point.Sub(ray.Origin).Dot(p.Normal) / denom
	if t >= MinHitDistance {
		return t
	}
	return -1
}

// Frame returns a transform whose Z column is the normal and translation is the point
func (p Plane) Frame() mgl32.Mat4 {
	up := mgl32.Vec3{0, 0, 1}
	if math32.Abs(p.Normal.Z()) >= 0.999 {
		up = mgl32.Vec3{0, 1, 0}
	}
	tangent := up.Cross(p.Normal).Normalize()
	bitangent := p.Normal.Cross(tangent)
	return mgl32.Mat4FromCols(tangent.Vec4(0), bitangent.Vec4(0), p.Normal.Vec4(0), p.Point.Vec4(1))
}
