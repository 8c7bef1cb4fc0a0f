package geometry

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
)

// MinScale is the smallest per-axis scale a box or mesh transform may have
const MinScale = 0.001

// Box is the image of the cube [-1,1]^3 under Transform
type Box struct {
	Transform mgl32.Mat4
}

// NewBox creates a box from its transform
func NewBox(transform mgl32.Mat4) Box {
	return Box{Transform: transform}
}

// NewBoxFromCorners creates an axis-aligned box spanning two opposite corners
func NewBoxFromCorners(a, b mgl32.Vec3) Box {
	lo := core.MinVec(a, b)
	hi := core.MaxVec(a, b)
	center := lo.Add(hi).Mul(0.5)
	half := hi.Sub(lo).Mul(0.5)
	return Box{Transform: mgl32.Translate3D(center.X(), center.Y(), center.Z()).Mul4(mgl32.Scale3D(half.X(), half.Y(), half.Z()))}
}

// Intersect runs a slab test in the box's local space. The local direction is not
// renormalized so t is measured along the world ray.
func (b Box) Intersect(ray core.Ray) float32 {
	local := ray.Transform(b.Transform.Inv())

	tmin := math32.Inf(-1)
	tmax := math32.Inf(1)
	for axis := 0; axis < 3; axis++ {
		dir := local.Direction[axis]
		origin := local.Origin[axis]
		if math32.Abs(dir) < 1e-8 {
			if origin < -1 || origin > 1 {
				return -1
			}
			continue
		}

		invD := 1 / dir
		t0 := (-1 - origin) * invD
		t1 := (1 - origin) * invD
		if invD < 0 {
			t0, t1 = t1, t0
		}
		if t0 > tmin {
			tmin = t0
		}
		if t1 < tmax {
			tmax = t1
		}
		if tmax < tmin {
			return -1
		}
	}

	if tmax < MinHitDistance {
		return -1
	}
	if tmin >= MinHitDistance {
		return tmin
	}
	return tmax
}

// Area uses the column lengths of the transform as half extents
func (b Box) Area() float32 {
	wx := 2 * b.Transform.Col(0).Vec3().Len()
	wy := 2 * b.Transform.Col(1).Vec3().Len()
	wz := 2 * b.Transform.Col(2).Vec3().Len()
	return 2 * (wx*wy + wy*wz + wx*wz)
}
