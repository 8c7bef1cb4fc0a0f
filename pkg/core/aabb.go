package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl32.Vec3 // Minimum corner
	Max mgl32.Vec3 // Maximum corner
}

// NewAABB creates a new AABB from min and max points
func NewAABB(min, max mgl32.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// EmptyAABB returns an inverted box that any Extend or Union replaces
func EmptyAABB() AABB {
	inf := math32.Inf(1)
	return AABB{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

// NewAABBFromPoints creates an AABB that bounds all given points
func NewAABBFromPoints(points ...mgl32.Vec3) AABB {
	if len(points) == 0 {
		return AABB{}
	}

	box := EmptyAABB()
	for _, point := range points {
		box = box.Extend(point)
	}
	return box
}

// Extend returns the box grown to include point
func (aabb AABB) Extend(point mgl32.Vec3) AABB {
	return AABB{Min: MinVec(aabb.Min, point), Max: MaxVec(aabb.Max, point)}
}

// Union returns an AABB that bounds both this AABB and another
func (aabb AABB) Union(other AABB) AABB {
	return AABB{Min: MinVec(aabb.Min, other.Min), Max: MaxVec(aabb.Max, other.Max)}
}

// Contains reports whether other lies fully inside this box
func (aabb AABB) Contains(other AABB) bool {
	for axis := 0; axis < 3; axis++ {
		if other.Min[axis] < aabb.Min[axis] || other.Max[axis] > aabb.Max[axis] {
			return false
		}
	}
	return true
}

// Center returns the center point of the AABB
func (aabb AABB) Center() mgl32.Vec3 {
	return aabb.Min.Add(aabb.Max).Mul(0.5)
}

// Size returns the size (extent) of the AABB along each axis
func (aabb AABB) Size() mgl32.Vec3 {
	return aabb.Max.Sub(aabb.Min)
}

// SurfaceArea returns the surface area of the AABB
func (aabb AABB) SurfaceArea() float32 {
	size := aabb.Size()
	return 2.0 * (size.X()*size.Y() + size.Y()*size.Z() + size.Z()*size.X())
}

// WidestAxis returns the axis (0=X, 1=Y, 2=Z) with the largest extent.
// Y wins a tie with X; Z only wins when strictly larger than X.
func (aabb AABB) WidestAxis() int {
	ext := aabb.Size()
	if ext.Y() > ext.X() && ext.Y() >= ext.Z() {
		return 1
	}
	if ext.Z() > ext.X() {
		return 2
	}
	return 0
}

// IsValid returns true if this is a valid AABB (min <= max for all axes)
func (aabb AABB) IsValid() bool {
	return aabb.Min.X() <= aabb.Max.X() &&
		aabb.Min.Y() <= aabb.Max.Y() &&
		aabb.Min.Z() <= aabb.Max.Z()
}

// Hit tests if a ray intersects with this AABB using the slab method
func (aabb AABB) Hit(ray Ray, tMin, tMax float32) bool {
	for axis := 0; axis < 3; axis++ {
		origin := ray.Origin[axis]
		direction := ray.Direction[axis]

		// Ray parallel to this slab
		if math32.Abs(direction) < 1e-8 {
			if origin < aabb.Min[axis] || origin > aabb.Max[axis] {
				return false
			}
			continue
		}

		invDirection := 1.0 / direction
		t1 := (aabb.Min[axis] - origin) * invDirection
		t2 := (aabb.Max[axis] - origin) * invDirection
		if t1 > t2 {
			t1, t2 = t2, t1
		}

		tMin = math32.Max(tMin, t1)
		tMax = math32.Min(tMax, t2)
		if tMin > tMax {
			return false
		}
	}

	return true
}

// MinVec returns the component-wise minimum of a and b
func MinVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{math32.Min(a[0], b[0]), math32.Min(a[1], b[1]), math32.Min(a[2], b[2])}
}

// MaxVec returns the component-wise maximum of a and b
func MaxVec(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{math32.Max(a[0], b[0]), math32.Max(a[1], b[1]), math32.Max(a[2], b[2])}
}
