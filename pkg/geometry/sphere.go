package geometry

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
)

// MinSphereRadius is the smallest radius the gizmo will produce
const MinSphereRadius = 0.1

// Sphere is defined by a center and radius
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

// NewSphere creates a new sphere
func NewSphere(center mgl32.Vec3, radius float32) Sphere {
	return Sphere{Center: center, Radius: radius}
}

// Intersect expects a normalized ray direction. The near root is preferred;
// the far root is returned when the origin is inside.
func (s Sphere) Intersect(ray core.Ray) float32 {
	p := s.Center.Sub(ray.Origin)
	dp := ray.Direction.Dot(p)
	c := p.Dot(p) - s.Radius*s.Radius
	discriminant := dp*dp - c
	if discriminant < 0 {
		return -1
	}

	sqrtd := math32.Sqrt(discriminant)
	t := dp - sqrtd
	if t >= MinHitDistance {
		return t
	}
	t = dp + sqrtd
	if t >= MinHitDistance {
		return t
	}
	return -1
}

// Area returns 4*pi*r^2
func (s Sphere) Area() float32 {
	return 4 * math32.Pi * s.Radius * s.Radius
}
