package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/pkg/material"
)

// triangleMeshPreset shows procedurally built meshes without needing any model files
func triangleMeshPreset() Preset {
	camera := core.DefaultCameraConfig()
	camera.Position = mgl32.Vec3{0, 2.5, -7}
	camera.LookAt = mgl32.Vec3{0, 0.8, 0}
	camera.FOV = 50

	return Preset{
		Info: SceneInfo{
			ID:          "triangle-mesh",
			Name:        "Triangle Meshes",
			DisplayName: "Triangle Meshes",
			Description: "Box, pyramid and icosahedron meshes",
			Group:       builtinGroup,
			Type:        "builtin",
		},
		Camera: camera,
		Build:  buildTriangleMeshes,
	}
}

func buildTriangleMeshes(s *Scene) error {
	s.SetLightMode(LightSunset)

	if err := s.PushPlane("Ground", mgl32.Vec3{}, mgl32.Vec3{0, 1, 0},
		material.NewLambertian(mgl32.Vec3{0.7, 0.7, 0.7})); err != nil {
		return err
	}
	if err := s.PushSphere("Key Light", mgl32.Vec3{2, 6, 3}, 1.5,
		material.NewEmissive(mgl32.Vec3{1, 0.92, 0.83}, 12)); err != nil {
		return err
	}

	meshes := []struct {
		name      string
		vertices  []mgl32.Vec3
		indices   []uint32
		transform mgl32.Mat4
		mat       material.Material
	}{
		{
			"Box", boxMeshVertices(), boxMeshIndices,
			placed(mgl32.Vec3{-2, 0.5, 0}, 30, 0.5),
			material.NewMetal(mgl32.Vec3{0.8, 0.2, 0.2}, 0.1),
		},
		{
			"Pyramid", pyramidMeshVertices(), pyramidMeshIndices,
			placed(mgl32.Vec3{0, 1, 0}, 45, 1),
			material.NewLambertian(mgl32.Vec3{0.2, 0.3, 0.8}),
		},
		{
			"Icosahedron", icosahedronVertices(), icosahedronIndices,
			placed(mgl32.Vec3{2, 0.8, 0}, 60, 0.8),
			material.NewMetal(mgl32.Vec3{0.8, 0.6, 0.2}, 0.05),
		},
	}
	for _, m := range meshes {
		if err := s.PushMesh(m.name, m.vertices, m.indices, m.transform, m.mat); err != nil {
			return err
		}
	}
	return nil
}

// placed is translate · rotateY(degrees) · uniform scale
func placed(position mgl32.Vec3, degreesY, scale float32) mgl32.Mat4 {
	return mgl32.Translate3D(position.X(), position.Y(), position.Z()).
		Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(degreesY))).
		Mul4(mgl32.Scale3D(scale, scale, scale))
}

// boxMeshVertices is the [-1,1] cube
func boxMeshVertices() []mgl32.Vec3 {
	return []mgl32.Vec3{
		{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
		{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
	}
}

var boxMeshIndices = []uint32{
	0, 1, 2, 0, 2, 3, // -Z
	4, 6, 5, 4, 7, 6, // +Z
	0, 3, 7, 0, 7, 4, // -X
	1, 5, 6, 1, 6, 2, // +X
	0, 4, 5, 0, 5, 1, // -Y
	3, 2, 6, 3, 6, 7, // +Y
}

// pyramidMeshVertices is a square base at y=-1 with its apex at y=1
func pyramidMeshVertices() []mgl32.Vec3 {
	return []mgl32.Vec3{
		{-0.75, -1, -0.75}, {0.75, -1, -0.75}, {0.75, -1, 0.75}, {-0.75, -1, 0.75},
		{0, 1, 0},
	}
}

var pyramidMeshIndices = []uint32{
	0, 2, 1, 0, 3, 2,
	0, 1, 4, 1, 2, 4, 2, 3, 4, 3, 0, 4,
}

// icosahedronVertices lies on the unit sphere
func icosahedronVertices() []mgl32.Vec3 {
	const phi = 1.618033988749895
	raw := []mgl32.Vec3{
		{-1, phi, 0}, {1, phi, 0}, {-1, -phi, 0}, {1, -phi, 0},
		{0, -1, phi}, {0, 1, phi}, {0, -1, -phi}, {0, 1, -phi},
		{phi, 0, -1}, {phi, 0, 1}, {-phi, 0, -1}, {-phi, 0, 1},
	}
	for i := range raw {
		raw[i] = raw[i].Normalize()
	}
	return raw
}

var icosahedronIndices = []uint32{
	0, 11, 5, 0, 5, 1, 0, 1, 7, 0, 7, 10, 0, 10, 11,
	1, 5, 9, 5, 11, 4, 11, 10, 2, 10, 7, 6, 7, 1, 8,
	3, 9, 4, 3, 4, 2, 3, 2, 6, 3, 6, 8, 3, 8, 9,
	4, 9, 5, 2, 4, 11, 6, 2, 10, 8, 6, 7, 9, 8, 1,
}
