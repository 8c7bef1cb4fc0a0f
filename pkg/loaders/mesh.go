package loaders

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrMalformedMesh is returned when a mesh file cannot be parsed
var ErrMalformedMesh = errors.New("loaders: malformed mesh")

// MeshData is an indexed triangle soup read from a model file
type MeshData struct {
	Vertices     []mgl32.Vec3
	Indices      []uint32 // 3 per triangle
	SkippedFaces int      // Faces without exactly 3 vertices, dropped rather than triangulated
}

// TriangleCount returns the number of triangles
func (d *MeshData) TriangleCount() int {
	return len(d.Indices) / 3
}

// LoadMesh picks a loader from the file extension
func LoadMesh(filename string) (*MeshData, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".obj":
		return LoadOBJ(filename)
	case ".ply":
		return LoadPLY(filename)
	default:
		return nil, fmt.Errorf("unsupported mesh format: %s", filepath.Ext(filename))
	}
}
