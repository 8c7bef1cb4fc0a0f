package loaders

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
)

// LoadOBJ loads the geometry of a Wavefront OBJ file
func LoadOBJ(filename string) (*MeshData, error) {
	startTime := time.Now()

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open OBJ file: %w", err)
	}
	defer file.Close()

	data, err := ReadOBJ(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	core.Log().Info("loaded OBJ mesh",
		"file", filename,
		"vertices", len(data.Vertices),
		"triangles", data.TriangleCount(),
		"elapsed", time.Since(startTime))
	if data.SkippedFaces > 0 {
		core.Log().Warn("skipped non-triangular faces", "file", filename, "count", data.SkippedFaces)
	}
	return data, nil
}

// ReadOBJ parses "v" and "f" records. Face corners may be v, v/vt, v//vn or v/vt/vn,
// and negative indices count back from the latest vertex. Everything else is ignored.
func ReadOBJ(r io.Reader) (*MeshData, error) {
	data := &MeshData{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: vertex needs 3 coordinates", ErrMalformedMesh, lineNumber)
			}
			var v mgl32.Vec3
			for i := 0; i < 3; i++ {
				f, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedMesh, lineNumber, err)
				}
				v[i] = float32(f)
			}
			data.Vertices = append(data.Vertices, v)

		case "f":
			corners := fields[1:]
			if len(corners) != 3 {
				data.SkippedFaces++
				continue
			}
			var tri [3]uint32
			for i, corner := range corners {
				index, err := parseOBJIndex(corner, len(data.Vertices))
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedMesh, lineNumber, err)
				}
				tri[i] = index
			}
			data.Indices = append(data.Indices, tri[0], tri[1], tri[2])
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMesh, err)
	}
	return data, nil
}

// parseOBJIndex resolves the position part of a face corner to a 0-based index
func parseOBJIndex(corner string, vertexCount int) (uint32, error) {
	position, _, _ := strings.Cut(corner, "/")
	index, err := strconv.Atoi(position)
	if err != nil {
		return 0, fmt.Errorf("invalid face index %q", corner)
	}

	switch {
	case index > 0:
		index--
	case index < 0:
		index += vertexCount
	default:
		return 0, fmt.Errorf("face index 0 is not valid")
	}

	if index < 0 || index >= vertexCount {
		return 0, fmt.Errorf("face index %q out of range (%d vertices)", corner, vertexCount)
	}
	return uint32(index), nil
}
