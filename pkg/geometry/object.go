package geometry

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
)

// Kind tags the variant held by an Object. Values match the shader's object type enum.
type Kind int32

const (
	KindNone Kind = iota
	KindSphere
	KindPlane
	KindBox
	KindMesh
)

var kindNames = [...]string{"none", "sphere", "plane", "box", "mesh"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int32(k))
	}
	return kindNames[k]
}

// ParseKind resolves a lowercase kind name
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name && Kind(i) != KindNone {
			return Kind(i), nil
		}
	}
	return KindNone, fmt.Errorf("unknown object kind %q", name)
}

// SupportsAreaSampling reports whether emitters of this kind go into the light list.
// Planes are unbounded and never sampled.
func (k Kind) SupportsAreaSampling() bool {
	return k == KindSphere || k == KindBox || k == KindMesh
}

// Object is a tagged union over the scene primitives. Only the field matching Kind
// is meaningful. Its material is the entry at the same index in the scene's material list.
type Object struct {
	Name   string
	Kind   Kind
	Sphere Sphere
	Plane  Plane
	Box    Box
	Mesh   *Mesh
}

// NewSphereObject wraps a sphere
func NewSphereObject(name string, s Sphere) Object {
	return Object{Name: name, Kind: KindSphere, Sphere: s}
}

// NewPlaneObject wraps a plane
func NewPlaneObject(name string, p Plane) Object {
	return Object{Name: name, Kind: KindPlane, Plane: p}
}

// NewBoxObject wraps a box
func NewBoxObject(name string, b Box) Object {
	return Object{Name: name, Kind: KindBox, Box: b}
}

// NewMeshObject wraps a mesh
func NewMeshObject(name string, m *Mesh) Object {
	return Object{Name: name, Kind: KindMesh, Mesh: m}
}

// Clone returns a deep copy; mesh data is not shared with the original
func (o Object) Clone() Object {
	c := o
	if o.Mesh != nil {
		c.Mesh = o.Mesh.Clone()
	}
	return c
}

// MinHitDistance is the smallest distance counted as a hit. A ray starting on a
// surface does not hit that surface.
const MinHitDistance float32 = 1e-4

// Intersect returns the closest hit distance >= MinHitDistance along ray, or -1 on a miss
func Intersect(o *Object, ray core.Ray) float32 {
	switch o.Kind {
	case KindSphere:
		return o.Sphere.Intersect(ray)
	case KindPlane:
		return o.Plane.Intersect(ray)
	case KindBox:
		return o.Box.Intersect(ray)
	case KindMesh:
		if o.Mesh == nil {
			return -1
		}
		return o.Mesh.Intersect(ray)
	}
	return -1
}

// Area returns the world-space surface area used for light sampling.
// Planes report 0.
func Area(o *Object) float32 {
	switch o.Kind {
	case KindSphere:
		return o.Sphere.Area()
	case KindBox:
		return o.Box.Area()
	case KindMesh:
		if o.Mesh == nil {
			return 0
		}
		return o.Mesh.Area()
	}
	return 0
}

// Bounds returns a world-space bounding box. Planes are unbounded and report false.
func Bounds(o *Object) (core.AABB, bool) {
	switch o.Kind {
	case KindSphere:
		r := mgl32.Vec3{o.Sphere.Radius, o.Sphere.Radius, o.Sphere.Radius}
		return core.NewAABB(o.Sphere.Center.Sub(r), o.Sphere.Center.Add(r)), true
	case KindBox:
		return transformedCube(o.Box.Transform), true
	case KindMesh:
		if o.Mesh == nil || len(o.Mesh.Nodes) == 0 {
			return core.AABB{}, false
		}
		root := o.Mesh.Nodes[0]
		return transformBounds(o.Mesh.Transform, root.Min, root.Max), true
	}
	return core.AABB{}, false
}

func transformedCube(m mgl32.Mat4) core.AABB {
	return transformBounds(m, mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1})
}

// transformBounds maps the 8 corners of a local box and bounds the result
func transformBounds(m mgl32.Mat4, lo, hi mgl32.Vec3) core.AABB {
	box := core.EmptyAABB()
	for i := 0; i < 8; i++ {
		corner := mgl32.Vec3{lo[0], lo[1], lo[2]}
		if i&1 != 0 {
			corner[0] = hi[0]
		}
		if i&2 != 0 {
			corner[1] = hi[1]
		}
		if i&4 != 0 {
			corner[2] = hi[2]
		}
		box = box.Extend(m.Mul4x1(corner.Vec4(1)).Vec3())
	}
	return box
}
