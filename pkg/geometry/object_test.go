package geometry

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
)

func TestSphere_Intersect(t *testing.T) {
	sphere := NewSphere(mgl32.Vec3{0, 0, 5}, 1)

	tests := []struct {
		name     string
		ray      core.Ray
		expected float32
	}{
		{"hit front", core.NewRay(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 1}), 4},
		{"inside returns far root", core.NewRay(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 1}), 1},
		{"origin on surface skips it", core.NewRay(mgl32.Vec3{0, 0, 4}, mgl32.Vec3{0, 0, 1}), 2},
		{"leaving from the far side", core.NewRay(mgl32.Vec3{0, 0, 6}, mgl32.Vec3{0, 0, 1}), -1},
		{"behind", core.NewRay(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{0, 0, 1}), -1},
		{"miss", core.NewRay(mgl32.Vec3{0, 2, 0}, mgl32.Vec3{0, 0, 1}), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sphere.Intersect(tt.ray)
			if math.Abs(float64(got-tt.expected)) > 1e-5 {
				t.Errorf("Expected t=%v, got %v", tt.expected, got)
			}
		})
	}
}

func TestPlane_Intersect(t *testing.T) {
	plane := NewPlane(mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, 2, 0})
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, plane.Normal)

	assert.InDelta(t, 1, plane.Intersect(core.NewRay(mgl32.Vec3{}, mgl32.Vec3{0, -1, 0})), 1e-6)
	assert.Equal(t, float32(-1), plane.Intersect(core.NewRay(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0})), "parallel")
	assert.Equal(t, float32(-1), plane.Intersect(core.NewRay(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})), "behind")
	assert.Equal(t, float32(-1), plane.Intersect(core.NewRay(mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, -1, 0})), "origin on the plane")
}

func TestBox_FromCornersAndIntersect(t *testing.T) {
	box := NewBoxFromCorners(mgl32.Vec3{-2, 3.9, -2}, mgl32.Vec3{2, 4, 2})

	center := box.Transform.Col(3).Vec3()
	assert.InDelta(t, 3.95, center.Y(), 1e-6)
	assert.InDelta(t, 2, box.Transform.Col(0).Vec3().Len(), 1e-6)
	assert.InDelta(t, 0.05, box.Transform.Col(1).Vec3().Len(), 1e-6)

	down := core.NewRay(mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, -1, 0})
	assert.InDelta(t, 6, box.Intersect(down), 1e-4)

	inside := core.NewRay(mgl32.Vec3{0, 3.95, 0}, mgl32.Vec3{1, 0, 0})
	assert.InDelta(t, 2, box.Intersect(inside), 1e-4, "origin inside uses tmax")

	miss := core.NewRay(mgl32.Vec3{5, 10, 0}, mgl32.Vec3{0, -1, 0})
	assert.Equal(t, float32(-1), box.Intersect(miss))

	leaving := core.NewRay(mgl32.Vec3{0, 4, 0}, mgl32.Vec3{0, 1, 0})
	assert.Equal(t, float32(-1), box.Intersect(leaving), "origin on the top face heading out")
}

func TestBox_Area(t *testing.T) {
	unit := NewBox(mgl32.Ident4())
	assert.InDelta(t, 24, unit.Area(), 1e-5)

	slab := NewBoxFromCorners(mgl32.Vec3{-4, -4, -4}, mgl32.Vec3{4, -4.1, 4})
	// 8 x 0.1 x 8
	assert.InDelta(t, 2*(8*0.1+0.1*8+8*8), slab.Area(), 1e-3)
}

func TestMesh_NewMeshValidation(t *testing.T) {
	vertices := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}

	_, err := NewMesh(vertices, []uint32{0, 1}, mgl32.Ident4())
	assert.ErrorIs(t, err, ErrInvalidMesh)

	_, err = NewMesh(vertices, []uint32{0, 1, 3}, mgl32.Ident4())
	assert.ErrorIs(t, err, ErrInvalidMesh)

	m, err := NewMesh(vertices, []uint32{0, 1, 2}, mgl32.Ident4())
	require.NoError(t, err)
	assert.Equal(t, 1, m.TriangleCount())
	assert.Len(t, m.Nodes, 1)
}

func TestMesh_IntersectTransformed(t *testing.T) {
	vertices, indices := triangleGrid(40)
	transform := mgl32.Translate3D(0, 0, 10).Mul4(mgl32.Scale3D(2, 2, 2))
	m, err := NewMesh(vertices, indices, transform)
	require.NoError(t, err)

	// First triangle spans x in [0,0.5], y in [0,0.5] at local z in [0,0.25]; aim at its corner region
	ray := core.NewRay(mgl32.Vec3{0.2, 0.1, 0}, mgl32.Vec3{0, 0, 1})
	got := m.Intersect(ray)
	require.Positive(t, got)

	// Brute force in world space gives the same distance
	best := float32(-1)
	for i := 0; i < len(m.Indices); i += 3 {
		v0 := transform.Mul4x1(m.Vertices[m.Indices[i]].Vec4(1)).Vec3()
		v1 := transform.Mul4x1(m.Vertices[m.Indices[i+1]].Vec4(1)).Vec3()
		v2 := transform.Mul4x1(m.Vertices[m.Indices[i+2]].Vec4(1)).Vec3()
		if d := intersectTriangle(ray, v0, v1, v2); d >= 0 && (best < 0 || d < best) {
			best = d
		}
	}
	assert.InDelta(t, best, got, 1e-3)

	miss := core.NewRay(mgl32.Vec3{-50, 0, 0}, mgl32.Vec3{0, 0, 1})
	assert.Equal(t, float32(-1), m.Intersect(miss))
}

func TestMesh_AreaIsWorldSpace(t *testing.T) {
	vertices := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	m, err := NewMesh(vertices, []uint32{0, 1, 2}, mgl32.Scale3D(2, 2, 2))
	require.NoError(t, err)
	assert.InDelta(t, 2, m.Area(), 1e-6)
}

func TestObject_CloneIsDeep(t *testing.T) {
	vertices, indices := triangleStrip(6)
	m, err := NewMesh(vertices, indices, mgl32.Ident4())
	require.NoError(t, err)

	original := NewMeshObject("Monkey", m)
	clone := original.Clone()
	clone.Mesh.Vertices[0] = mgl32.Vec3{99, 99, 99}
	clone.Mesh.Transform = mgl32.Translate3D(1, 0, 0)

	assert.NotEqual(t, clone.Mesh.Vertices[0], original.Mesh.Vertices[0])
	assert.Equal(t, mgl32.Ident4(), original.Mesh.Transform)
}

func TestArea_Dispatch(t *testing.T) {
	sphere := NewSphereObject("s", NewSphere(mgl32.Vec3{}, 1))
	plane := NewPlaneObject("p", NewPlane(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}))

	assert.InDelta(t, 4*math.Pi, Area(&sphere), 1e-5)
	assert.Equal(t, float32(0), Area(&plane))
	assert.True(t, KindSphere.SupportsAreaSampling())
	assert.False(t, KindPlane.SupportsAreaSampling())
}

func TestBounds(t *testing.T) {
	box := NewBoxObject("b", NewBoxFromCorners(mgl32.Vec3{-1, 0, -1}, mgl32.Vec3{1, 2, 1}))
	bounds, ok := Bounds(&box)
	require.True(t, ok)
	assert.InDelta(t, 0, bounds.Min.Y(), 1e-5)
	assert.InDelta(t, 2, bounds.Max.Y(), 1e-5)

	plane := NewPlaneObject("p", NewPlane(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}))
	_, ok = Bounds(&plane)
	assert.False(t, ok)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("box")
	require.NoError(t, err)
	assert.Equal(t, KindBox, k)

	_, err = ParseKind("none")
	assert.Error(t, err)
	assert.Equal(t, "mesh", KindMesh.String())
}
