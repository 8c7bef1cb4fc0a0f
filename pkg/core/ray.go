package core

import "github.com/go-gl/mathgl/mgl32"

// Ray represents a ray with an origin and direction
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// NewRay creates a new ray
func NewRay(origin, direction mgl32.Vec3) Ray {
	return Ray{Origin: origin, Direction: direction}
}

// At returns the point at parameter t along the ray
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Transform returns the ray mapped through m. The direction is not renormalized,
// so t values stay comparable with the untransformed ray.
func (r Ray) Transform(m mgl32.Mat4) Ray {
	return Ray{
		Origin:    m.Mul4x1(r.Origin.Vec4(1)).Vec3(),
		Direction: m.Mul4x1(r.Direction.Vec4(0)).Vec3(),
	}
}

// ScreenRay builds the primary ray through a pixel position (origin top-left)
// for a viewport of the given size.
func ScreenRay(mousePos, screenSize mgl32.Vec2, camera *Camera) Ray {
	invWidth := 1.0 / screenSize.X()
	invHeight := 1.0 / screenSize.Y()

	forward := camera.Direction.Normalize()
	right := forward.Cross(camera.Up).Normalize()
	up := right.Cross(forward)

	ndcX := mousePos.X()*2.0*invWidth - 1.0
	ndcY := 1.0 - mousePos.Y()*2.0*invHeight

	tanHFov := camera.TanHFov()
	aspect := screenSize.X() * invHeight

	camX := ndcX * aspect * tanHFov
	camY := ndcY * tanHFov

	dir := right.Mul(camX).Add(up.Mul(camY)).Add(forward).Normalize()
	return Ray{Origin: camera.Position, Direction: dir}
}
