// Package scene owns the object and material lists and keeps their GPU buffers in sync.
package scene

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/pkg/geometry"
	"github.com/df07/go-gpu-pathtracer/pkg/gpu"
	"github.com/df07/go-gpu-pathtracer/pkg/loaders"
	"github.com/df07/go-gpu-pathtracer/pkg/material"
	"github.com/df07/go-gpu-pathtracer/pkg/notify"
)

var (
	// ErrNoSelection is returned by accessors of the selected object when nothing is selected
	ErrNoSelection = errors.New("scene: no object selected")
	// ErrUnknownPreset is returned when a preset name or file cannot be resolved
	ErrUnknownPreset = errors.New("scene: unknown preset")
)

// NoSelection is the selection index meaning "nothing selected"
const NoSelection = -1

// Scene holds objects and their materials in lockstep: materials[i] belongs to objects[i].
// All methods must be called from the frame loop goroutine.
type Scene struct {
	alloc gpu.Allocator
	sink  notify.Sink

	objects   []geometry.Object
	materials []material.Material
	selected  int
	lightMode LightMode

	spheres   *gpu.ObjectBuffers
	planes    *gpu.ObjectBuffers
	boxes     *gpu.ObjectBuffers
	meshes    *gpu.ObjectBuffers
	mats      *gpu.ObjectBuffers
	directory *gpu.ObjectBuffers
	vertices  *gpu.ObjectBuffers
	indices   *gpu.ObjectBuffers
	bvhNodes  *gpu.ObjectBuffers
	lights    *gpu.ObjectBuffers

	lightList      []LightEntry
	totalLightArea float32

	updated       bool // Content changed: accumulation must restart
	bufferUpdated bool // An allocation was replaced: bindings must be rebuilt
}

// New creates an empty scene whose buffers come from alloc. Notifications about
// buffer growth and mesh imports go to sink (nil discards them).
func New(alloc gpu.Allocator, sink notify.Sink) (*Scene, error) {
	if sink == nil {
		sink = notify.Discard
	}
	s := &Scene{alloc: alloc, sink: sink, selected: NoSelection}

	specs := []struct {
		dst    **gpu.ObjectBuffers
		label  string
		layout gpu.Layout
	}{
		{&s.spheres, "spheres", gpu.NewLayout(geometry.SphereLayout)},
		{&s.planes, "planes", gpu.NewLayout(geometry.PlaneLayout)},
		{&s.boxes, "boxes", gpu.NewLayout(geometry.BoxLayout)},
		{&s.meshes, "meshes", gpu.NewLayout(geometry.MeshLayout)},
		{&s.mats, "materials", gpu.NewLayout(material.Layout)},
		{&s.directory, "objects", DirectoryLayout},
		{&s.vertices, "vertices", gpu.NewLayout(geometry.VertexLayout)},
		{&s.indices, "indices", gpu.NewLayout(geometry.IndexLayout)},
		{&s.bvhNodes, "bvhNodes", gpu.NewLayout(geometry.BVHNodeLayout)},
		{&s.lights, "lights", LightLayout},
	}
	for _, spec := range specs {
		b, err := gpu.NewObjectBuffers(alloc, spec.label, spec.layout)
		if err != nil {
			s.Destroy()
			return nil, fmt.Errorf("create %s buffer: %w", spec.label, err)
		}
		*spec.dst = b
	}
	return s, nil
}

// Buffers returns every buffer in binding order
func (s *Scene) Buffers() []*gpu.ObjectBuffers {
	return []*gpu.ObjectBuffers{
		s.spheres, s.planes, s.boxes, s.meshes, s.mats,
		s.directory, s.vertices, s.indices, s.bvhNodes, s.lights,
	}
}

// Destroy frees all buffers
func (s *Scene) Destroy() {
	for _, b := range s.Buffers() {
		if b != nil {
			b.Destroy()
		}
	}
}

// Clear removes every object and material and resets all buffers to their
// initial capacity. Bindings must be rebuilt afterwards.
func (s *Scene) Clear() error {
	s.objects = nil
	s.materials = nil
	s.selected = NoSelection
	s.lightList = nil
	s.totalLightArea = 0

	for _, b := range s.Buffers() {
		if err := b.Clear(); err != nil {
			return err
		}
	}
	s.updated = true
	s.bufferUpdated = true
	return nil
}

// Len returns the number of objects
func (s *Scene) Len() int {
	return len(s.objects)
}

// LightMode returns the sky lighting the shader should use
func (s *Scene) LightMode() LightMode {
	return s.lightMode
}

// SetLightMode changes the sky lighting
func (s *Scene) SetLightMode(mode LightMode) {
	if s.lightMode != mode {
		s.lightMode = mode
		s.updated = true
	}
}

// CheckUpdate reports a content change since the last call, then resets
func (s *Scene) CheckUpdate() bool {
	if s.updated {
		s.updated = false
		return true
	}
	return false
}

// CheckBufferUpdate reports a buffer reallocation since the last call, then resets
func (s *Scene) CheckBufferUpdate() bool {
	if s.bufferUpdated {
		s.bufferUpdated = false
		return true
	}
	return false
}

func (s *Scene) kindBuffer(kind geometry.Kind) *gpu.ObjectBuffers {
	switch kind {
	case geometry.KindSphere:
		return s.spheres
	case geometry.KindPlane:
		return s.planes
	case geometry.KindBox:
		return s.boxes
	case geometry.KindMesh:
		return s.meshes
	}
	return nil
}

// grow runs one buffer growth step and records a reallocation
func (s *Scene) grow(b *gpu.ObjectBuffers, step func() (bool, error)) error {
	before := b.Capacity()
	grew, err := step()
	if err != nil {
		core.Log().Error("buffer allocation failed", "name", b.Label(), "error", err)
		return err
	}
	if grew {
		s.bufferUpdated = true
		s.sink.Notify(notify.Debug, fmt.Sprintf("Resize buffer %s %d -> %d", b.Label(), before, b.Capacity()))
	}
	return nil
}

// PushObject appends an object and its material. On allocation failure the
// scene is left as it was.
func (s *Scene) PushObject(obj geometry.Object, mat material.Material) error {
	kindBuf := s.kindBuffer(obj.Kind)
	if kindBuf == nil || (obj.Kind == geometry.KindMesh && obj.Mesh == nil) {
		return fmt.Errorf("scene: cannot push object of kind %v", obj.Kind)
	}
	mat.Clamp()

	added := make([]*gpu.ObjectBuffers, 0, 3)
	for _, b := range []*gpu.ObjectBuffers{kindBuf, s.mats, s.directory} {
		if err := s.grow(b, b.AddElement); err != nil {
			for _, a := range added {
				a.RemoveElement()
			}
			return err
		}
		added = append(added, b)
	}

	s.objects = append(s.objects, obj)
	s.materials = append(s.materials, mat)

	if obj.Kind == geometry.KindMesh {
		if err := s.resizeMeshPools(); err != nil {
			s.objects = s.objects[:len(s.objects)-1]
			s.materials = s.materials[:len(s.materials)-1]
			for _, a := range added {
				a.RemoveElement()
			}
			return err
		}
	}

	s.updated = true
	return nil
}

// PushSphere appends a sphere
func (s *Scene) PushSphere(name string, center mgl32.Vec3, radius float32, mat material.Material) error {
	return s.PushObject(geometry.NewSphereObject(name, geometry.NewSphere(center, radius)), mat)
}

// PushPlane appends a plane
func (s *Scene) PushPlane(name string, point, normal mgl32.Vec3, mat material.Material) error {
	return s.PushObject(geometry.NewPlaneObject(name, geometry.NewPlane(point, normal)), mat)
}

// PushBox appends a box given its unit-cube transform
func (s *Scene) PushBox(name string, transform mgl32.Mat4, mat material.Material) error {
	return s.PushObject(geometry.NewBoxObject(name, geometry.NewBox(transform)), mat)
}

// PushBoxCorners appends an axis-aligned box spanning two corners
func (s *Scene) PushBoxCorners(name string, cornerMin, cornerMax mgl32.Vec3, mat material.Material) error {
	return s.PushObject(geometry.NewBoxObject(name, geometry.NewBoxFromCorners(cornerMin, cornerMax)), mat)
}

// PushMesh builds a BVH over the triangles and appends the mesh
func (s *Scene) PushMesh(name string, vertices []mgl32.Vec3, indices []uint32, transform mgl32.Mat4, mat material.Material) error {
	mesh, err := geometry.NewMesh(vertices, indices, transform)
	if err != nil {
		return err
	}
	return s.PushObject(geometry.NewMeshObject(name, mesh), mat)
}

// PushMeshFile loads an OBJ or PLY file and appends it as a mesh
func (s *Scene) PushMeshFile(name, path string, transform mgl32.Mat4, mat material.Material) error {
	data, err := loaders.LoadMesh(path)
	if err != nil {
		s.sink.Notify(notify.Error, fmt.Sprintf("Failed to load %s: %v", path, err))
		return err
	}
	if data.SkippedFaces > 0 {
		s.sink.Notify(notify.Warning, fmt.Sprintf("%s: skipped %d non-triangular faces", path, data.SkippedFaces))
	}
	return s.PushMesh(name, data.Vertices, data.Indices, transform, mat)
}

// NewObject appends a default object of the given kind at the origin and selects it
func (s *Scene) NewObject(kind geometry.Kind) error {
	mat := material.NewLambertian(mgl32.Vec3{1, 0, 1})

	var err error
	switch kind {
	case geometry.KindSphere:
		err = s.PushSphere("New Sphere", mgl32.Vec3{}, 1, mat)
	case geometry.KindPlane:
		err = s.PushPlane("New Plane", mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}, mat)
	case geometry.KindBox:
		err = s.PushBoxCorners("New Box", mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1}, mat)
	default:
		return fmt.Errorf("scene: cannot create a new %v", kind)
	}
	if err != nil {
		return err
	}
	s.selected = len(s.objects) - 1
	return nil
}

// meshTotals sums vertex, index and BVH node counts over all meshes
func (s *Scene) meshTotals() (vertices, indices, nodes int) {
	for i := range s.objects {
		if m := s.objects[i].Mesh; s.objects[i].Kind == geometry.KindMesh && m != nil {
			vertices += len(m.Vertices)
			indices += len(m.Indices)
			nodes += len(m.Nodes)
		}
	}
	return vertices, indices, nodes
}

func (s *Scene) resizeMeshPools() error {
	vertices, indices, nodes := s.meshTotals()
	for _, p := range []struct {
		b *gpu.ObjectBuffers
		n int
	}{{s.vertices, vertices}, {s.indices, indices}, {s.bvhNodes, nodes}} {
		n := p.n
		if err := s.grow(p.b, func() (bool, error) { return p.b.SetElementCount(n) }); err != nil {
			return err
		}
	}
	return nil
}
