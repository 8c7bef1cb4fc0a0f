package geometry

import (
	"github.com/df07/go-gpu-pathtracer/pkg/gpu"
)

// Shader-side struct layouts for each object kind and the shared mesh pools
var (
	SphereLayout = gpu.NewStructLayout("Sphere",
		gpu.F("center", gpu.Vec3),
		gpu.F("radius", gpu.Float32),
		gpu.F("material", gpu.Uint32),
	)

	PlaneLayout = gpu.NewStructLayout("Plane",
		gpu.F("point", gpu.Vec3),
		gpu.F("normal", gpu.Vec3),
		gpu.F("material", gpu.Uint32),
	)

	BoxLayout = gpu.NewStructLayout("Box",
		gpu.F("transform", gpu.Mat4),
		gpu.F("invTransform", gpu.Mat4),
		gpu.F("material", gpu.Uint32),
	)

	MeshLayout = gpu.NewStructLayout("Mesh",
		gpu.F("transform", gpu.Mat4),
		gpu.F("invTransform", gpu.Mat4),
		gpu.F("aabbMin", gpu.Vec3),
		gpu.F("aabbMax", gpu.Vec3),
		gpu.F("indexOffset", gpu.Uint32),
		gpu.F("triangleCount", gpu.Uint32),
		gpu.F("bvhOffset", gpu.Uint32),
		gpu.F("bvhNodeCount", gpu.Uint32),
		gpu.F("material", gpu.Uint32),
	)

	VertexLayout = gpu.NewStructLayout("Vertex",
		gpu.F("position", gpu.Vec3),
	)

	IndexLayout = gpu.NewStructLayout("Index",
		gpu.F("index", gpu.Uint32),
	)

	BVHNodeLayout = gpu.NewStructLayout("BvhNode",
		gpu.F("aabbMin", gpu.Vec3),
		gpu.F("data0", gpu.Uint32),
		gpu.F("aabbMax", gpu.Vec3),
		gpu.F("data1", gpu.Uint32),
		gpu.F("isLeaf", gpu.Uint32),
	)
)

// EncodeSphere writes the sphere struct
func EncodeSphere(rec gpu.Record, s Sphere, material uint32) {
	rec.Vec3("center", s.Center).
		Float32("radius", s.Radius).
		Uint32("material", material)
}

// EncodePlane writes the plane struct
func EncodePlane(rec gpu.Record, p Plane, material uint32) {
	rec.Vec3("point", p.Point).
		Vec3("normal", p.Normal).
		Uint32("material", material)
}

// EncodeBox writes the box transform and its inverse
func EncodeBox(rec gpu.Record, b Box, material uint32) {
	rec.Mat4("transform", b.Transform).
		Mat4("invTransform", b.Transform.Inv()).
		Uint32("material", material)
}

// MeshOffsets locates a mesh inside the shared pools: IndexOffset counts indices,
// BVHOffset counts nodes.
type MeshOffsets struct {
	IndexOffset uint32
	BVHOffset   uint32
}

// EncodeMesh writes the mesh header. aabbMin/aabbMax are the local-space root bounds.
func EncodeMesh(rec gpu.Record, m *Mesh, offsets MeshOffsets, material uint32) {
	bounds := m.LocalBounds()
	rec.Mat4("transform", m.Transform).
		Mat4("invTransform", m.Transform.Inv()).
		Vec3("aabbMin", bounds.Min).
		Vec3("aabbMax", bounds.Max).
		Uint32("indexOffset", offsets.IndexOffset).
		Uint32("triangleCount", uint32(m.TriangleCount())).
		Uint32("bvhOffset", offsets.BVHOffset).
		Uint32("bvhNodeCount", uint32(len(m.Nodes))).
		Uint32("material", material)
}

// EncodeBVHNode writes one node, rebasing it into the shared pools: leaf triangle
// starts shift by triangleBase, internal child indices by nodeBase.
func EncodeBVHNode(rec gpu.Record, n BVHNode, triangleBase, nodeBase uint32) {
	data0, data1, leaf := n.Data0+nodeBase, n.Data1+nodeBase, uint32(0)
	if n.Leaf {
		data0, data1, leaf = n.Data0+triangleBase, n.Data1, 1
	}
	rec.Vec3("aabbMin", n.Min).
		Uint32("data0", data0).
		Vec3("aabbMax", n.Max).
		Uint32("data1", data1).
		Uint32("isLeaf", leaf)
}
