package scene

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/pkg/geometry"
	"github.com/df07/go-gpu-pathtracer/pkg/gpu"
	"github.com/df07/go-gpu-pathtracer/pkg/material"
	"github.com/df07/go-gpu-pathtracer/pkg/notify"
)

func newTestScene(t *testing.T) (*Scene, *gpu.MemoryAllocator, *notify.History) {
	t.Helper()
	alloc := gpu.NewMemoryAllocator(2)
	history := notify.NewHistory(0)
	s, err := New(alloc, history)
	require.NoError(t, err)
	t.Cleanup(s.Destroy)
	return s, alloc, history
}

// contents returns the current frame's bytes of b
func contents(t *testing.T, alloc *gpu.MemoryAllocator, b *gpu.ObjectBuffers) []byte {
	t.Helper()
	data, err := alloc.Contents(b.Handle(), alloc.CurrentFrame())
	require.NoError(t, err)
	return data
}

func u32At(data []byte, offset int) uint32 {
	return binary.LittleEndian.Uint32(data[offset:])
}

func i32At(data []byte, offset int) int32 {
	return int32(binary.LittleEndian.Uint32(data[offset:]))
}

func f32At(data []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[offset:]))
}

func white() material.Material {
	return material.NewLambertian(mgl32.Vec3{1, 1, 1})
}

func oneTriangle() ([]mgl32.Vec3, []uint32) {
	return []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, []uint32{0, 1, 2}
}

func TestNew_AllocatesTenBuffers(t *testing.T) {
	s, alloc, _ := newTestScene(t)

	assert.Equal(t, 10, alloc.Live())
	for _, b := range s.Buffers() {
		assert.Equal(t, gpu.InitialCapacity, b.Capacity(), b.Label())
		assert.Equal(t, 0, b.Count(), b.Label())
	}
	assert.Equal(t, NoSelection, s.Selected())
	assert.False(t, s.CheckUpdate())
	assert.False(t, s.CheckBufferUpdate())

	s.Destroy()
	assert.Equal(t, 0, alloc.Live())
}

func TestPush_ThirdSphereGrowsOnce(t *testing.T) {
	s, _, history := newTestScene(t)

	for i := 0; i < 2; i++ {
		require.NoError(t, s.PushSphere("Ball", mgl32.Vec3{float32(i), 0, 0}, 1, white()))
	}
	assert.False(t, s.CheckBufferUpdate(), "two spheres fit the initial capacity")

	require.NoError(t, s.PushSphere("Ball", mgl32.Vec3{2, 0, 0}, 1, white()))
	assert.True(t, s.CheckBufferUpdate())
	assert.False(t, s.CheckBufferUpdate(), "flag is edge-triggered")

	assert.Equal(t, 4, s.spheres.Capacity())
	assert.Equal(t, 3, s.spheres.Count())
	assert.Equal(t, 4, s.mats.Capacity())
	assert.Equal(t, 4, s.directory.Capacity())
	assert.Equal(t, gpu.InitialCapacity, s.planes.Capacity())

	assert.True(t, s.CheckUpdate())
	assert.False(t, s.CheckUpdate())

	found := false
	for _, n := range history.Items() {
		if n.Type == notify.Debug && n.Content == "Resize buffer spheres 2 -> 4" {
			found = true
		}
	}
	assert.True(t, found, "growth is reported through the sink")
}

func TestPush_CapacityExhaustedLeavesSceneUnchanged(t *testing.T) {
	s, alloc, _ := newTestScene(t)
	require.NoError(t, s.PushSphere("A", mgl32.Vec3{}, 1, white()))
	require.NoError(t, s.PushSphere("B", mgl32.Vec3{}, 1, white()))
	s.CheckBufferUpdate()

	alloc.SetBudget(alloc.BytesInUse())
	err := s.PushSphere("C", mgl32.Vec3{}, 1, white())
	require.Error(t, err)
	assert.ErrorIs(t, err, gpu.ErrCapacityExhausted)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 2, s.spheres.Count())
	assert.Equal(t, 2, s.mats.Count())
	assert.Equal(t, 2, s.directory.Count())
	assert.False(t, s.CheckBufferUpdate())
}

func TestPushObject_RejectsKindNone(t *testing.T) {
	s, _, _ := newTestScene(t)
	assert.Error(t, s.PushObject(geometry.Object{Name: "nothing"}, white()))
	assert.Error(t, s.PushObject(geometry.Object{Name: "mesh", Kind: geometry.KindMesh}, white()))
	assert.Equal(t, 0, s.Len())
}

func TestPush_ClampsMaterial(t *testing.T) {
	s, _, _ := newTestScene(t)
	require.NoError(t, s.PushSphere("Hot", mgl32.Vec3{}, 1, material.NewEmissive(mgl32.Vec3{2, 1, 1}, 500)))

	_, mat, ok := s.Object(0)
	require.True(t, ok)
	assert.Equal(t, float32(material.MaxIntensity), mat.Intensity())
	assert.Equal(t, float32(1), mat.Albedo.X())
}

func TestDelete_KeepsMaterialsParallel(t *testing.T) {
	s, alloc, _ := newTestScene(t)

	red := material.NewLambertian(mgl32.Vec3{1, 0, 0})
	green := material.NewMetal(mgl32.Vec3{0, 1, 0}, 0.5)
	blue := material.NewDielectric(mgl32.Vec3{0, 0, 1}, 1.5)
	gold := material.NewGlossy(mgl32.Vec3{1, 0.8, 0}, 1.4, 0.2)

	require.NoError(t, s.PushSphere("Red", mgl32.Vec3{}, 1, red))
	require.NoError(t, s.PushPlane("Green", mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, green))
	require.NoError(t, s.PushBoxCorners("Blue", mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1}, blue))
	require.NoError(t, s.PushSphere("Gold", mgl32.Vec3{3, 0, 0}, 1, gold))
	capacity := s.mats.Capacity()

	s.Select(1)
	s.Delete()

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, NoSelection, s.Selected())
	assert.Equal(t, 3, s.mats.Count())
	assert.Equal(t, 3, s.directory.Count())
	assert.Equal(t, 0, s.planes.Count())
	assert.Equal(t, capacity, s.mats.Capacity(), "delete never shrinks")

	expected := map[string]material.Material{"Red": red, "Blue": blue, "Gold": gold}
	for i := 0; i < s.Len(); i++ {
		obj, mat, ok := s.Object(i)
		require.True(t, ok)
		assert.Equal(t, expected[obj.Name], mat, obj.Name)
	}

	require.NoError(t, s.FillBuffers())

	// Directory: header {count, selected}, then (kind, index) pairs
	dir := contents(t, alloc, s.directory)
	assert.Equal(t, uint32(3), u32At(dir, 0))
	assert.Equal(t, int32(-1), i32At(dir, 4))
	header := s.directory.Layout().HeaderSize()
	stride := s.directory.Layout().Stride()
	kinds := []geometry.Kind{geometry.KindSphere, geometry.KindBox, geometry.KindSphere}
	slots := []int32{0, 0, 1}
	for i := range kinds {
		assert.Equal(t, int32(kinds[i]), i32At(dir, header+i*stride), "kind of %d", i)
		assert.Equal(t, int32(slots[i]), i32At(dir, header+i*stride+4), "slot of %d", i)
	}

	// Material handle in each per-kind struct is the object index
	spheres := contents(t, alloc, s.spheres)
	sphereStride := s.spheres.Layout().Stride()
	assert.Equal(t, uint32(0), u32At(spheres, 16))
	assert.Equal(t, uint32(2), u32At(spheres, sphereStride+16))
	boxes := contents(t, alloc, s.boxes)
	assert.Equal(t, uint32(1), u32At(boxes, 128))

	// Materials are serialized in object order
	mats := contents(t, alloc, s.mats)
	matStride := s.mats.Layout().Stride()
	assert.Equal(t, uint32(material.Lambertian), u32At(mats, 0))
	assert.Equal(t, uint32(material.Dielectric), u32At(mats, matStride))
	assert.Equal(t, uint32(material.Glossy), u32At(mats, 2*matStride))
	assert.Equal(t, float32(1.4), f32At(mats, 2*matStride+32))
}

func TestDeleteAt_EveryIndex(t *testing.T) {
	for i := 0; i < 5; i++ {
		s, _, _ := newTestScene(t)
		colors := make([]material.Material, 5)
		for j := range colors {
			colors[j] = material.NewLambertian(mgl32.Vec3{float32(j) / 5, 0, 0})
			require.NoError(t, s.PushSphere(string(rune('A'+j)), mgl32.Vec3{}, 1, colors[j]))
		}

		require.True(t, s.DeleteAt(i))
		require.Equal(t, 4, s.Len())

		for j := 0; j < s.Len(); j++ {
			obj, mat, _ := s.Object(j)
			original := int(obj.Name[0] - 'A')
			assert.NotEqual(t, i, original)
			assert.Equal(t, colors[original], mat)
		}
	}
}

func TestInvalidSelection_IsNoSelection(t *testing.T) {
	s, _, _ := newTestScene(t)
	require.NoError(t, s.PushSphere("Only", mgl32.Vec3{}, 1, white()))
	s.CheckUpdate()

	s.Select(5)
	assert.Equal(t, NoSelection, s.Selected())

	// A selection that went stale after another delete path
	s.Select(0)
	require.True(t, s.DeleteAt(0))
	s.selected = 0
	assert.Equal(t, NoSelection, s.Selected())

	_, _, err := s.SelectedObject()
	assert.ErrorIs(t, err, ErrNoSelection)
	assert.NoError(t, s.Clone())
	s.Delete()
	assert.False(t, s.EditSelected(func(*geometry.Object, *material.Material) bool { return true }))
	assert.False(t, s.Manipulate(geometry.Manipulation{Translate: mgl32.Vec3{1, 0, 0}}, 1))
	assert.False(t, s.DeleteAt(3))
	assert.Equal(t, 0, s.Len())
}

func TestClone_DuplicatesSelected(t *testing.T) {
	s, _, _ := newTestScene(t)
	vertices, indices := oneTriangle()
	metal := material.NewMetal(mgl32.Vec3{0.5, 0.5, 0.5}, 0.3)
	require.NoError(t, s.PushSphere("Ball", mgl32.Vec3{}, 1, white()))
	require.NoError(t, s.PushMesh("Tri", vertices, indices, mgl32.Ident4(), metal))

	s.Select(1)
	require.NoError(t, s.Clone())

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 2, s.Selected())
	assert.Equal(t, 2, s.meshes.Count())

	orig, _, _ := s.Object(1)
	clone, mat, _ := s.Object(2)
	assert.Equal(t, "Tri", clone.Name)
	assert.Equal(t, metal, mat)
	assert.NotSame(t, orig.Mesh, clone.Mesh)

	// Editing the clone leaves the original alone
	s.EditSelected(func(obj *geometry.Object, _ *material.Material) bool {
		obj.Mesh.Vertices[0] = mgl32.Vec3{9, 9, 9}
		return true
	})
	orig, _, _ = s.Object(1)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, orig.Mesh.Vertices[0])
}

func TestNewObject_SelectsDefaults(t *testing.T) {
	s, _, _ := newTestScene(t)

	for _, kind := range []geometry.Kind{geometry.KindSphere, geometry.KindPlane, geometry.KindBox} {
		require.NoError(t, s.NewObject(kind))
		assert.Equal(t, s.Len()-1, s.Selected())

		obj, mat, err := s.SelectedObject()
		require.NoError(t, err)
		assert.Equal(t, kind, obj.Kind)
		assert.True(t, strings.HasPrefix(obj.Name, "New "))
		assert.Equal(t, mgl32.Vec3{1, 0, 1}, mat.Albedo)
	}
	assert.Error(t, s.NewObject(geometry.KindMesh))
	assert.Equal(t, 3, s.Len())
}

func TestFillBuffers_LightList(t *testing.T) {
	s, alloc, _ := newTestScene(t)
	light := material.NewEmissive(mgl32.Vec3{1, 1, 1}, 4)
	vertices, indices := oneTriangle()

	require.NoError(t, s.PushSphere("Light A", mgl32.Vec3{}, 1, light))
	require.NoError(t, s.PushPlane("Glowing Floor", mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, light))
	require.NoError(t, s.PushSphere("Ball", mgl32.Vec3{}, 2, white()))
	require.NoError(t, s.PushBoxCorners("Panel", mgl32.Vec3{0, 0, 0}, mgl32.Vec3{2, 1, 1}, light))
	require.NoError(t, s.PushPlane("Glowing Wall", mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, light))
	require.NoError(t, s.PushMesh("Glowing Tri", vertices, indices, mgl32.Ident4(), light))

	require.NoError(t, s.FillBuffers())

	lights := s.Lights()
	require.Len(t, lights, 3, "planes are never sampled")
	assert.Equal(t, []int{0, 3, 5}, []int{lights[0].ObjectIndex, lights[1].ObjectIndex, lights[2].ObjectIndex})

	sphereArea := 4 * math32.Pi
	boxArea := float32(2 * (2*1 + 1*1 + 2*1))
	triArea := float32(0.5)
	assert.InDelta(t, sphereArea, lights[0].Area, 1e-4)
	assert.InDelta(t, boxArea, lights[1].Area, 1e-4)
	assert.InDelta(t, triArea, lights[2].Area, 1e-6)

	var sum float32
	for _, l := range lights {
		sum += l.Area
		assert.InDelta(t, 1/l.Area, l.PDF, 1e-6)
	}
	assert.InDelta(t, sum, s.TotalLightArea(), 1e-4)

	data := contents(t, alloc, s.lights)
	assert.InDelta(t, sum, f32At(data, 0), 1e-4)
	assert.Equal(t, uint32(3), u32At(data, 4))
	header := s.lights.Layout().HeaderSize()
	stride := s.lights.Layout().Stride()
	assert.Equal(t, uint32(3), u32At(data, header+stride))
	assert.InDelta(t, boxArea, f32At(data, header+stride+4), 1e-4)
}

func TestFillBuffers_LightListFollowsEdits(t *testing.T) {
	s, _, _ := newTestScene(t)
	require.NoError(t, s.PushSphere("Ball", mgl32.Vec3{}, 1, white()))
	require.NoError(t, s.FillBuffers())
	assert.Empty(t, s.Lights())

	s.Edit(0, func(_ *geometry.Object, mat *material.Material) bool {
		*mat = material.NewEmissive(mat.Albedo, 2)
		return true
	})
	require.NoError(t, s.FillBuffers())
	assert.Len(t, s.Lights(), 1)
}

func TestFillBuffers_RebasesMeshPools(t *testing.T) {
	s, alloc, _ := newTestScene(t)
	vertices, indices := oneTriangle()

	require.NoError(t, s.PushMesh("First", vertices, indices, mgl32.Ident4(), white()))
	require.NoError(t, s.PushSphere("Between", mgl32.Vec3{}, 1, white()))
	require.NoError(t, s.PushMesh("Second", vertices, indices, mgl32.Translate3D(5, 0, 0), white()))
	s.CheckBufferUpdate()

	require.NoError(t, s.FillBuffers())
	assert.Equal(t, 6, s.vertices.Count())
	assert.Equal(t, 6, s.indices.Count())
	assert.Equal(t, 2, s.bvhNodes.Count())

	idx := contents(t, alloc, s.indices)
	for i, want := range []uint32{0, 1, 2, 3, 4, 5} {
		assert.Equal(t, want, u32At(idx, i*4), "index %d", i)
	}

	meshes := contents(t, alloc, s.meshes)
	stride := s.meshes.Layout().Stride()
	assert.Equal(t, uint32(0), u32At(meshes, 156))
	assert.Equal(t, uint32(3), u32At(meshes, stride+156), "indexOffset")
	assert.Equal(t, uint32(1), u32At(meshes, stride+160), "triangleCount")
	assert.Equal(t, uint32(1), u32At(meshes, stride+164), "bvhOffset")
	assert.Equal(t, uint32(2), u32At(meshes, stride+172), "material")

	nodes := contents(t, alloc, s.bvhNodes)
	nodeStride := s.bvhNodes.Layout().Stride()
	assert.Equal(t, uint32(1), u32At(nodes, nodeStride+12), "leaf start shifted by one triangle")
	assert.Equal(t, uint32(1), u32At(nodes, nodeStride+28), "leaf count")
	assert.Equal(t, uint32(1), u32At(nodes, nodeStride+32), "isLeaf")
}

func TestFillBuffers_RebasesInternalNodes(t *testing.T) {
	s, alloc, _ := newTestScene(t)
	vertices, indices := oneTriangle()
	require.NoError(t, s.PushMesh("Single", vertices, indices, mgl32.Ident4(), white()))

	// Five triangles: internal root plus two leaves
	var strip []mgl32.Vec3
	var stripIdx []uint32
	for i := 0; i < 5; i++ {
		x := float32(i) * 2
		base := uint32(len(strip))
		strip = append(strip, mgl32.Vec3{x, 0, 0}, mgl32.Vec3{x + 1, 0, 0}, mgl32.Vec3{x, 1, 0})
		stripIdx = append(stripIdx, base, base+1, base+2)
	}
	require.NoError(t, s.PushMesh("Strip", strip, stripIdx, mgl32.Ident4(), white()))
	require.NoError(t, s.FillBuffers())

	nodes := contents(t, alloc, s.bvhNodes)
	stride := s.bvhNodes.Layout().Stride()
	root := stride // second mesh starts at node 1
	assert.Equal(t, uint32(0), u32At(nodes, root+32), "root is internal")
	assert.Equal(t, uint32(2), u32At(nodes, root+12), "left child rebased")
	assert.Equal(t, uint32(3), u32At(nodes, root+28), "right child rebased")

	// Leaves rebased by the first mesh's single triangle
	left := 2 * stride
	right := 3 * stride
	assert.Equal(t, uint32(1), u32At(nodes, left+12))
	assert.Equal(t, u32At(nodes, left+12)+u32At(nodes, left+28), u32At(nodes, right+12))
	assert.Equal(t, uint32(5), u32At(nodes, left+28)+u32At(nodes, right+28))
}

func TestFillBuffers_ZeroPadsUnusedSlots(t *testing.T) {
	s, alloc, _ := newTestScene(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.PushSphere("Ball", mgl32.Vec3{1, 2, 3}, 1, white()))
	}
	require.NoError(t, s.FillBuffers())
	s.Select(2)
	s.Delete()
	require.NoError(t, s.FillBuffers())

	data := contents(t, alloc, s.spheres)
	stride := s.spheres.Layout().Stride()
	for _, b := range data[2*stride:] {
		require.Equal(t, byte(0), b)
	}
}

func TestRaycast(t *testing.T) {
	s, _, _ := newTestScene(t)
	require.NoError(t, s.PushSphere("Near", mgl32.Vec3{0, 0, 0}, 1, white()))
	require.NoError(t, s.PushSphere("Far", mgl32.Vec3{0, 0, 5}, 1, white()))

	camera := core.NewCamera(core.CameraConfig{
		Position: mgl32.Vec3{0, 0, -10},
		LookAt:   mgl32.Vec3{0, 0, 0},
		Up:       mgl32.Vec3{0, 1, 0},
		FOV:      80,
	})
	size := mgl32.Vec2{800, 600}

	hit, ok := s.Raycast(mgl32.Vec2{400, 300}, size, camera, false)
	require.True(t, ok)
	assert.Equal(t, 0, hit.Index)
	assert.InDelta(t, 9, hit.Distance, 1e-4)
	assert.InDelta(t, -1, hit.Point.Z(), 1e-4)
	assert.Equal(t, NoSelection, s.Selected(), "select=false leaves the selection")

	_, ok = s.Raycast(mgl32.Vec2{400, 300}, size, camera, true)
	require.True(t, ok)
	assert.Equal(t, 0, s.Selected())

	_, ok = s.Raycast(mgl32.Vec2{0, 0}, size, camera, true)
	assert.False(t, ok)
	assert.Equal(t, NoSelection, s.Selected(), "a miss clears the selection")
}

func TestPick_OriginOnSurface(t *testing.T) {
	s, _, _ := newTestScene(t)
	require.NoError(t, s.PushSphere("Ball", mgl32.Vec3{0, 0, 0}, 1, white()))

	_, ok := s.Pick(core.NewRay(mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 0, -1}))
	assert.False(t, ok, "a ray leaving the surface it starts on is a miss")

	hit, ok := s.Pick(core.NewRay(mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 0, 1}))
	require.True(t, ok)
	assert.InDelta(t, 2, hit.Distance, 1e-4)
}

func TestManipulate_MarksUpdated(t *testing.T) {
	s, _, _ := newTestScene(t)
	require.NoError(t, s.PushSphere("Ball", mgl32.Vec3{}, 1, white()))
	s.CheckUpdate()

	s.Select(0)
	assert.True(t, s.Manipulate(geometry.Manipulation{Translate: mgl32.Vec3{0.1, 0, 0}}, 1))
	assert.True(t, s.CheckUpdate())

	obj, _, _ := s.Object(0)
	assert.InDelta(t, 0.1, obj.Sphere.Center.X(), 1e-6)
}

func TestClear_ResetsBuffers(t *testing.T) {
	s, _, _ := newTestScene(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.PushSphere("Ball", mgl32.Vec3{}, 1, white()))
	}
	s.Select(1)
	s.CheckBufferUpdate()

	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, NoSelection, s.Selected())
	assert.True(t, s.CheckBufferUpdate())
	for _, b := range s.Buffers() {
		assert.Equal(t, gpu.InitialCapacity, b.Capacity(), b.Label())
		assert.Equal(t, 0, b.Count(), b.Label())
	}
}

func TestObjects_Listing(t *testing.T) {
	s, _, _ := newTestScene(t)
	require.NoError(t, s.PushSphere("Ball", mgl32.Vec3{}, 1, white()))
	require.NoError(t, s.PushPlane("Floor", mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, white()))
	s.Select(1)

	infos := s.Objects()
	require.Len(t, infos, 2)
	assert.Equal(t, ObjectInfo{Index: 0, Kind: geometry.KindSphere, KindName: "sphere", Name: "Ball", Material: material.Lambertian}, infos[0])
	assert.True(t, infos[1].Selected)
	assert.Equal(t, "plane", infos[1].KindName)
}

func TestBufferInfos(t *testing.T) {
	s, _, _ := newTestScene(t)
	require.NoError(t, s.PushSphere("Ball", mgl32.Vec3{}, 1, white()))

	infos := s.BufferInfos()
	require.Len(t, infos, 10)
	assert.Equal(t, BufferInfo{Label: "spheres", Count: 1, Capacity: 2, Bytes: 64}, infos[0])
	assert.Equal(t, "lights", infos[9].Label)
}
