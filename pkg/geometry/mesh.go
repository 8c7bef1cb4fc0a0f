package geometry

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
)

// ErrInvalidMesh is returned for index arrays that are not triangle triples or
// that reference missing vertices
var ErrInvalidMesh = errors.New("geometry: invalid mesh")

// Mesh is an indexed triangle soup with its own transform and BVH.
// Indices are stored in BVH leaf order.
type Mesh struct {
	Vertices  []mgl32.Vec3
	Indices   []uint32
	Transform mgl32.Mat4
	Nodes     []BVHNode
}

// NewMesh validates the triangle data and builds its BVH
func NewMesh(vertices []mgl32.Vec3, indices []uint32, transform mgl32.Mat4) (*Mesh, error) {
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d indices is not a multiple of 3", ErrInvalidMesh, len(indices))
	}
	for i, idx := range indices {
		if int(idx) >= len(vertices) {
			return nil, fmt.Errorf("%w: index %d at %d out of range (%d vertices)", ErrInvalidMesh, idx, i, len(vertices))
		}
	}

	nodes, ordered := BuildBVH(vertices, indices)
	m := &Mesh{
		Vertices:  append([]mgl32.Vec3(nil), vertices...),
		Indices:   ordered,
		Transform: transform,
		Nodes:     nodes,
	}

	stats := CollectBVHStats(nodes)
	core.Log().Debug("mesh bvh built",
		"triangles", m.TriangleCount(),
		"nodes", stats.TotalNodes,
		"leaves", stats.LeafNodes,
		"maxDepth", stats.MaxDepth)
	return m, nil
}

// TriangleCount returns the number of triangles
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// LocalBounds returns the root node box, or an empty box for a mesh with no triangles
func (m *Mesh) LocalBounds() core.AABB {
	if len(m.Nodes) == 0 {
		return core.AABB{}
	}
	return m.Nodes[0].Bounds()
}

// Clone deep-copies all slices
func (m *Mesh) Clone() *Mesh {
	return &Mesh{
		Vertices:  append([]mgl32.Vec3(nil), m.Vertices...),
		Indices:   append([]uint32(nil), m.Indices...),
		Transform: m.Transform,
		Nodes:     append([]BVHNode(nil), m.Nodes...),
	}
}

// Intersect traverses the BVH in local space
func (m *Mesh) Intersect(ray core.Ray) float32 {
	local := ray.Transform(m.Transform.Inv())
	return intersectBVH(m.Nodes, m.Vertices, m.Indices, local)
}

// Area sums triangle areas after applying the transform
func (m *Mesh) Area() float32 {
	area := float32(0)
	for i := 0; i+2 < len(m.Indices); i += 3 {
		v0 := m.Transform.Mul4x1(m.Vertices[m.Indices[i+0]].Vec4(1)).Vec3()
		v1 := m.Transform.Mul4x1(m.Vertices[m.Indices[i+1]].Vec4(1)).Vec3()
		v2 := m.Transform.Mul4x1(m.Vertices[m.Indices[i+2]].Vec4(1)).Vec3()
		area += 0.5 * v1.Sub(v0).Cross(v2.Sub(v0)).Len()
	}
	return area
}

// intersectTriangle is Moller-Trumbore; returns -1 on a miss
func intersectTriangle(ray core.Ray, v0, v1, v2 mgl32.Vec3) float32 {
	edge1 := v1.Sub(v0)
	edge2 := v2.Sub(v0)
	pvec := ray.Direction.Cross(edge2)
	det := edge1.Dot(pvec)
	if math32.Abs(det) < 1e-6 {
		return -1
	}
	invDet := 1 / det

	tvec := ray.Origin.Sub(v0)
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return -1
	}

	qvec := tvec.Cross(edge1)
	v := ray.Direction.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return -1
	}

	t := edge2.Dot(qvec) * invDet
	if t < MinHitDistance {
		return -1
	}
	return t
}
