package loaders

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
)

// PLYHeader represents the parsed header information from a PLY file
type PLYHeader struct {
	Format      string // "binary_little_endian", "binary_big_endian", or "ascii"
	Version     string // Usually "1.0"
	VertexCount int
	FaceCount   int
	VertexProps []PLYProperty
	FaceProps   []PLYProperty
}

// PLYProperty represents a property definition in the PLY header
type PLYProperty struct {
	Name     string
	Type     string
	IsList   bool
	ListType string // For list properties, the type of the count
	DataType string // For list properties, the type of the data
}

// LoadPLY loads a PLY file
func LoadPLY(filename string) (*MeshData, error) {
	startTime := time.Now()

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open PLY file: %w", err)
	}
	defer file.Close()

	data, err := ReadPLY(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	core.Log().Info("loaded PLY mesh",
		"file", filename,
		"vertices", len(data.Vertices),
		"triangles", data.TriangleCount(),
		"skippedFaces", data.SkippedFaces,
		"elapsed", time.Since(startTime))
	if data.SkippedFaces > 0 {
		core.Log().Warn("skipped non-triangular faces", "file", filename, "count", data.SkippedFaces)
	}
	return data, nil
}

// ReadPLY parses ascii, binary little-endian or binary big-endian PLY data.
// Only vertex x/y/z and face vertex_indices are kept; other properties are skipped.
func ReadPLY(r io.Reader) (*MeshData, error) {
	reader := bufio.NewReaderSize(r, 1024*1024)

	header, err := parsePLYHeader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMesh, err)
	}

	var body plyBody
	switch header.Format {
	case "binary_little_endian":
		body = &plyBinaryBody{r: reader, order: binary.LittleEndian}
	case "binary_big_endian":
		body = &plyBinaryBody{r: reader, order: binary.BigEndian}
	case "ascii":
		body = &plyASCIIBody{r: reader}
	default:
		return nil, fmt.Errorf("%w: unsupported PLY format %q", ErrMalformedMesh, header.Format)
	}

	data, err := readPLYElements(body, header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMesh, err)
	}
	return data, nil
}

// parsePLYHeader consumes the header up to and including end_header
func parsePLYHeader(reader *bufio.Reader) (*PLYHeader, error) {
	header := &PLYHeader{}

	magic, err := reader.ReadString('\n')
	if err != nil || strings.TrimSpace(magic) != "ply" {
		return nil, fmt.Errorf("missing ply magic number")
	}

	var currentElement string
	for {
		raw, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("error reading header: %v", err)
		}
		line := strings.TrimSpace(raw)
		if line == "end_header" {
			break
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "format":
			if len(parts) >= 3 {
				header.Format = parts[1]
				header.Version = parts[2]
			}
		case "comment", "obj_info":
			// Ignore comments
		case "element":
			if len(parts) < 3 {
				return nil, fmt.Errorf("invalid element definition: %s", line)
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("invalid element count: %s", parts[2])
			}

			currentElement = parts[1]
			switch currentElement {
			case "vertex":
				header.VertexCount = count
			case "face":
				header.FaceCount = count
			default:
				return nil, fmt.Errorf("unsupported element %q", currentElement)
			}
		case "property":
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("failed to parse property: %v", err)
			}

			switch currentElement {
			case "vertex":
				header.VertexProps = append(header.VertexProps, prop)
			case "face":
				header.FaceProps = append(header.FaceProps, prop)
			}
		}
	}

	return header, nil
}

// parsePLYProperty parses a property line from the PLY header
func parsePLYProperty(parts []string) (PLYProperty, error) {
	if len(parts) < 2 {
		return PLYProperty{}, fmt.Errorf("invalid property definition")
	}

	prop := PLYProperty{}

	if parts[0] == "list" {
		if len(parts) < 4 {
			return PLYProperty{}, fmt.Errorf("invalid list property definition")
		}
		prop.IsList = true
		prop.ListType = parts[1]
		prop.DataType = parts[2]
		prop.Name = parts[3]
	} else {
		prop.Type = parts[0]
		prop.Name = parts[1]
	}

	if getTypeSize(prop.Type) == 0 && !prop.IsList {
		return PLYProperty{}, fmt.Errorf("unsupported data type: %s", prop.Type)
	}
	if prop.IsList && (getTypeSize(prop.ListType) == 0 || getTypeSize(prop.DataType) == 0) {
		return PLYProperty{}, fmt.Errorf("unsupported list types: %s %s", prop.ListType, prop.DataType)
	}
	return prop, nil
}

// plyBody reads one scalar of a given PLY type from the element data
type plyBody interface {
	scalar(dataType string) (float64, error)
	endElement() error
}

type plyBinaryBody struct {
	r     *bufio.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (b *plyBinaryBody) scalar(dataType string) (float64, error) {
	size := getTypeSize(dataType)
	if _, err := io.ReadFull(b.r, b.buf[:size]); err != nil {
		return 0, err
	}
	data := b.buf[:size]

	switch dataType {
	case "float", "float32":
		return float64(math.Float32frombits(b.order.Uint32(data))), nil
	case "double", "float64":
		return math.Float64frombits(b.order.Uint64(data)), nil
	case "int", "int32":
		return float64(int32(b.order.Uint32(data))), nil
	case "uint", "uint32":
		return float64(b.order.Uint32(data)), nil
	case "short", "int16":
		return float64(int16(b.order.Uint16(data))), nil
	case "ushort", "uint16":
		return float64(b.order.Uint16(data)), nil
	case "char", "int8":
		return float64(int8(data[0])), nil
	default:
		return float64(data[0]), nil
	}
}

func (b *plyBinaryBody) endElement() error { return nil }

// plyASCIIBody reads whitespace-separated tokens, one element per line
type plyASCIIBody struct {
	r      *bufio.Reader
	tokens []string
}

func (a *plyASCIIBody) scalar(dataType string) (float64, error) {
	for len(a.tokens) == 0 {
		line, err := a.r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return 0, err
		}
		a.tokens = strings.Fields(line)
	}
	token := a.tokens[0]
	a.tokens = a.tokens[1:]
	return strconv.ParseFloat(token, 64)
}

func (a *plyASCIIBody) endElement() error {
	a.tokens = nil
	return nil
}

func readPLYElements(body plyBody, header *PLYHeader) (*MeshData, error) {
	data := &MeshData{
		Vertices: make([]mgl32.Vec3, 0, header.VertexCount),
		Indices:  make([]uint32, 0, header.FaceCount*3), // Assuming triangular faces
	}

	for i := 0; i < header.VertexCount; i++ {
		var v mgl32.Vec3
		for _, prop := range header.VertexProps {
			if prop.IsList {
				if err := skipList(body, prop); err != nil {
					return nil, fmt.Errorf("vertex %d: %v", i, err)
				}
				continue
			}
			value, err := body.scalar(prop.Type)
			if err != nil {
				return nil, fmt.Errorf("failed to read vertex %d property %s: %v", i, prop.Name, err)
			}
			switch prop.Name {
			case "x":
				v[0] = float32(value)
			case "y":
				v[1] = float32(value)
			case "z":
				v[2] = float32(value)
			}
		}
		data.Vertices = append(data.Vertices, v)
		if err := body.endElement(); err != nil {
			return nil, err
		}
	}

	for i := 0; i < header.FaceCount; i++ {
		for _, prop := range header.FaceProps {
			if !prop.IsList {
				if _, err := body.scalar(prop.Type); err != nil {
					return nil, fmt.Errorf("failed to skip face property %s at face %d: %v", prop.Name, i, err)
				}
				continue
			}
			if prop.Name != "vertex_indices" && prop.Name != "vertex_index" {
				if err := skipList(body, prop); err != nil {
					return nil, fmt.Errorf("face %d: %v", i, err)
				}
				continue
			}

			count, err := body.scalar(prop.ListType)
			if err != nil {
				return nil, fmt.Errorf("failed to read face vertex count at face %d: %v", i, err)
			}
			var tri [3]uint32
			for k := 0; k < int(count); k++ {
				value, err := body.scalar(prop.DataType)
				if err != nil {
					return nil, fmt.Errorf("failed to read face indices at face %d: %v", i, err)
				}
				if value < 0 || int(value) >= header.VertexCount {
					return nil, fmt.Errorf("face %d references vertex %v of %d", i, value, header.VertexCount)
				}
				if k < 3 {
					tri[k] = uint32(value)
				}
			}

			if int(count) != 3 {
				data.SkippedFaces++
				continue
			}
			data.Indices = append(data.Indices, tri[0], tri[1], tri[2])
		}
		if err := body.endElement(); err != nil {
			return nil, err
		}
	}

	return data, nil
}

func skipList(body plyBody, prop PLYProperty) error {
	count, err := body.scalar(prop.ListType)
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		if _, err := body.scalar(prop.DataType); err != nil {
			return err
		}
	}
	return nil
}

// getTypeSize returns the size in bytes of a PLY data type, or 0 if unknown
func getTypeSize(dataType string) int {
	switch dataType {
	case "float", "float32", "int", "int32", "uint", "uint32":
		return 4
	case "double", "float64":
		return 8
	case "short", "int16", "ushort", "uint16":
		return 2
	case "char", "int8", "uchar", "uint8":
		return 1
	default:
		return 0
	}
}
