package geometry

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampHelpers(t *testing.T) {
	assert.Equal(t, float32(0), MaxStepPerFrame(50, 0))
	assert.Equal(t, float32(0), MaxStepPerFrame(-1, 0.1))
	assert.InDelta(t, 5, MaxStepPerFrame(50, 0.1), 1e-6)

	assert.Equal(t, mgl32.Vec3{}, ClampVecDelta(mgl32.Vec3{1, 2, 3}, 0))
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, ClampVecDelta(mgl32.Vec3{1, 0, 0}, 2))
	clamped := ClampVecDelta(mgl32.Vec3{3, 4, 0}, 1)
	assert.InDelta(t, 1, clamped.Len(), 1e-6)
	assert.InDelta(t, 0.6, clamped.X(), 1e-6)

	assert.Equal(t, mgl32.Vec3{1, -1, 0.5}, ClampVecDeltaPerAxis(mgl32.Vec3{3, -4, 0.5}, 1))
	assert.Equal(t, float32(-2), ClampScalarDelta(-5, 2))
	assert.Equal(t, float32(0), ClampScalarDelta(-5, 0))
}

func TestIsInvalid(t *testing.T) {
	assert.False(t, IsInvalid(mgl32.Ident4()))

	m := mgl32.Ident4()
	m[5] = math32.NaN()
	assert.True(t, IsInvalid(m))

	m = mgl32.Ident4()
	m[12] = math32.Inf(1)
	assert.True(t, IsInvalid(m))
}

func TestDecompose_RoundTrip(t *testing.T) {
	trs := TRS{
		Translation: mgl32.Vec3{1, -2, 3},
		Rotation:    mgl32.Vec3{30, -45, 60},
		Scale:       mgl32.Vec3{2, 0.5, 1.5},
	}
	got := Decompose(trs.Matrix())

	for i := 0; i < 3; i++ {
		assert.InDelta(t, trs.Translation[i], got.Translation[i], 1e-4)
		assert.InDelta(t, trs.Rotation[i], got.Rotation[i], 1e-2)
		assert.InDelta(t, trs.Scale[i], got.Scale[i], 1e-4)
	}
}

func TestManipulate_SphereLimits(t *testing.T) {
	obj := NewSphereObject("s", NewSphere(mgl32.Vec3{}, 1))

	// 1000 units requested, 50 u/s * 0.1 s allowed
	changed := Manipulate(&obj, Manipulation{Translate: mgl32.Vec3{1000, 0, 0}}, 0.1)
	require.True(t, changed)
	assert.InDelta(t, 5, obj.Sphere.Center.X(), 1e-4)

	changed = Manipulate(&obj, Manipulation{Scale: mgl32.Vec3{-100, 0, 0}}, 1)
	require.True(t, changed)
	assert.Equal(t, float32(MinSphereRadius), obj.Sphere.Radius)

	assert.False(t, Manipulate(&obj, Manipulation{Translate: mgl32.Vec3{1, 0, 0}}, 0), "zero dt moves nothing")
}

func TestManipulate_RejectsNaN(t *testing.T) {
	obj := NewBoxObject("b", NewBox(mgl32.Ident4()))
	changed := Manipulate(&obj, Manipulation{Translate: mgl32.Vec3{math32.NaN(), 0, 0}}, 0.1)
	assert.False(t, changed)
	assert.Equal(t, mgl32.Ident4(), obj.Box.Transform)
}

func TestManipulate_BoxScaleFloor(t *testing.T) {
	obj := NewBoxObject("b", NewBox(mgl32.Scale3D(0.01, 1, 1)))
	changed := Manipulate(&obj, Manipulation{Scale: mgl32.Vec3{-1, 0, 0}}, 1)
	require.True(t, changed)
	assert.InDelta(t, MinScale, obj.Box.Transform.Col(0).Vec3().Len(), 1e-6)
}

func TestManipulate_MeshScaleIsSlower(t *testing.T) {
	vertices, indices := triangleStrip(2)
	m, err := NewMesh(vertices, indices, mgl32.Ident4())
	require.NoError(t, err)
	obj := NewMeshObject("m", m)

	// 50 * 0.2 u/s for 0.01 s is 0.1 per axis
	require.True(t, Manipulate(&obj, Manipulation{Scale: mgl32.Vec3{5, 5, 5}}, 0.01))
	assert.InDelta(t, 1.1, obj.Mesh.Transform.Col(0).Vec3().Len(), 1e-4)
}

func TestManipulate_PlaneRotation(t *testing.T) {
	obj := NewPlaneObject("p", NewPlane(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}))

	// Quarter turn about Z takes 0.5 s at pi rad/s
	require.True(t, Manipulate(&obj, Manipulation{Rotate: mgl32.Vec3{0, 0, math32.Pi / 2}}, 0.5))
	assert.InDelta(t, -1, obj.Plane.Normal.X(), 1e-5)
	assert.InDelta(t, 0, obj.Plane.Normal.Y(), 1e-5)
	assert.InDelta(t, 1, obj.Plane.Normal.Len(), 1e-5)
}

func TestSetProperties(t *testing.T) {
	obj := NewBoxObject("Box", NewBox(mgl32.Ident4()))
	p := obj.Properties()
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, p.Scale)

	p.Name = "Renamed"
	assert.False(t, obj.SetProperties(p), "rename alone is not a geometry change")
	assert.Equal(t, "Renamed", obj.Name)

	p.Position = mgl32.Vec3{0, 2, 0}
	p.Scale = mgl32.Vec3{0, 1, 1}
	require.True(t, obj.SetProperties(p))
	assert.InDelta(t, 2, obj.Box.Transform.Col(3).Y(), 1e-6)
	assert.InDelta(t, MinScale, obj.Box.Transform.Col(0).Vec3().Len(), 1e-6)

	plane := NewPlaneObject("p", NewPlane(mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}))
	pp := plane.Properties()
	pp.Normal = mgl32.Vec3{0, 0, 3}
	require.True(t, plane.SetProperties(pp))
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, plane.Plane.Normal)
}
