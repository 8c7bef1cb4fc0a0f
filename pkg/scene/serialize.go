package scene

import (
	"fmt"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/pkg/geometry"
	"github.com/df07/go-gpu-pathtracer/pkg/gpu"
)

// Header-prefixed buffer layouts
var (
	// DirectoryLayout maps object index to (kind, per-kind index)
	DirectoryLayout = gpu.NewHeaderLayout(
		gpu.NewStructLayout("ObjectHeader",
			gpu.F("count", gpu.Uint32),
			gpu.F("selected", gpu.Int32),
		),
		gpu.NewStructLayout("Object",
			gpu.F("kind", gpu.Int32),
			gpu.F("index", gpu.Int32),
		),
	)

	// LightLayout lists emissive objects for area sampling
	LightLayout = gpu.NewHeaderLayout(
		gpu.NewStructLayout("LightHeader",
			gpu.F("totalArea", gpu.Float32),
			gpu.F("count", gpu.Uint32),
		),
		gpu.NewStructLayout("Light",
			gpu.F("objectIndex", gpu.Uint32),
			gpu.F("area", gpu.Float32),
			gpu.F("pdf", gpu.Float32),
		),
	)
)

// LightEntry is one area-sampled emitter
type LightEntry struct {
	ObjectIndex int
	Area        float32
	PDF         float32 // 1/Area, 0 for degenerate emitters
}

// Lights returns the light list computed by the last FillBuffers
func (s *Scene) Lights() []LightEntry {
	return s.lightList
}

// TotalLightArea returns the summed area of the light list
func (s *Scene) TotalLightArea() float32 {
	return s.totalLightArea
}

// buildLights derives the light list: emissive objects whose kind supports area sampling
func (s *Scene) buildLights() {
	s.lightList = s.lightList[:0]
	s.totalLightArea = 0
	for i := range s.objects {
		if !s.materials[i].IsEmissive() || !s.objects[i].Kind.SupportsAreaSampling() {
			continue
		}
		area := geometry.Area(&s.objects[i])
		var pdf float32
		if area > 0 {
			pdf = 1 / area
		}
		s.lightList = append(s.lightList, LightEntry{ObjectIndex: i, Area: area, PDF: pdf})
		s.totalLightArea += area
	}
}

// FillBuffers serializes the whole scene into the current frame's buffer copies.
// Buffers may grow here (mesh pools, light list); CheckBufferUpdate reports it.
func (s *Scene) FillBuffers() error {
	s.buildLights()

	if err := s.resizeMeshPools(); err != nil {
		return err
	}
	n := len(s.lightList)
	if err := s.grow(s.lights, func() (bool, error) { return s.lights.SetElementCount(n) }); err != nil {
		return err
	}

	spheres := s.spheres.NewPayload()
	planes := s.planes.NewPayload()
	boxes := s.boxes.NewPayload()
	meshes := s.meshes.NewPayload()
	mats := s.mats.NewPayload()
	directory := s.directory.NewPayload()
	vertices := s.vertices.NewPayload()
	indices := s.indices.NewPayload()
	nodes := s.bvhNodes.NewPayload()
	lights := s.lights.NewPayload()

	var counts [geometry.KindMesh + 1]int
	var vertexOffset, indexOffset, nodeOffset int

	for i := range s.objects {
		obj := &s.objects[i]
		slot := counts[obj.Kind]
		counts[obj.Kind]++
		handle := uint32(i)

		switch obj.Kind {
		case geometry.KindSphere:
			geometry.EncodeSphere(spheres.Element(slot), obj.Sphere, handle)
		case geometry.KindPlane:
			geometry.EncodePlane(planes.Element(slot), obj.Plane, handle)
		case geometry.KindBox:
			geometry.EncodeBox(boxes.Element(slot), obj.Box, handle)
		case geometry.KindMesh:
			m := obj.Mesh
			offsets := geometry.MeshOffsets{IndexOffset: uint32(indexOffset), BVHOffset: uint32(nodeOffset)}
			geometry.EncodeMesh(meshes.Element(slot), m, offsets, handle)

			for j, v := range m.Vertices {
				vertices.Element(vertexOffset+j).Vec3("position", v)
			}
			for j, idx := range m.Indices {
				indices.Element(indexOffset+j).Uint32("index", idx+uint32(vertexOffset))
			}
			triangleBase := uint32(indexOffset / 3)
			for j, node := range m.Nodes {
				geometry.EncodeBVHNode(nodes.Element(nodeOffset+j), node, triangleBase, uint32(nodeOffset))
			}

			vertexOffset += len(m.Vertices)
			indexOffset += len(m.Indices)
			nodeOffset += len(m.Nodes)
		}

		directory.Element(i).Int32("kind", int32(obj.Kind)).Int32("index", int32(slot))
		s.materials[i].Encode(mats.Element(i))
	}

	directory.Header().
		Uint32("count", uint32(len(s.objects))).
		Int32("selected", int32(s.Selected()))

	for i, l := range s.lightList {
		lights.Element(i).
			Uint32("objectIndex", uint32(l.ObjectIndex)).
			Float32("area", l.Area).
			Float32("pdf", l.PDF)
	}
	lights.Header().
		Float32("totalArea", s.totalLightArea).
		Uint32("count", uint32(len(s.lightList)))

	uploads := []struct {
		b *gpu.ObjectBuffers
		p *gpu.Payload
	}{
		{s.spheres, spheres}, {s.planes, planes}, {s.boxes, boxes}, {s.meshes, meshes},
		{s.mats, mats}, {s.directory, directory}, {s.vertices, vertices},
		{s.indices, indices}, {s.bvhNodes, nodes}, {s.lights, lights},
	}
	total := 0
	for _, u := range uploads {
		if err := u.b.Fill(u.p.Bytes()); err != nil {
			return fmt.Errorf("fill %s: %w", u.b.Label(), err)
		}
		total += len(u.p.Bytes())
	}
	core.Log().Debug("scene serialized", "objects", len(s.objects), "lights", len(s.lightList), "bytes", total)
	return nil
}

// BufferInfo summarizes one GPU buffer for inspection
type BufferInfo struct {
	Label    string `json:"label"`
	Count    int    `json:"count"`
	Capacity int    `json:"capacity"`
	Bytes    int    `json:"bytes"`
}

// BufferInfos lists every buffer's count, capacity and byte size
func (s *Scene) BufferInfos() []BufferInfo {
	buffers := s.Buffers()
	infos := make([]BufferInfo, len(buffers))
	for i, b := range buffers {
		infos[i] = BufferInfo{Label: b.Label(), Count: b.Count(), Capacity: b.Capacity(), Bytes: b.Size()}
	}
	return infos
}
