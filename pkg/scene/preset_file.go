package scene

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/pkg/geometry"
	"github.com/df07/go-gpu-pathtracer/pkg/material"
)

// PresetFile is the YAML form of a preset:
//
//	name: Two Balls
//	group: Examples
//	lightMode: sunset
//	camera: {position: [0, 1, -8], lookAt: [0, 0, 0], fov: 60}
//	objects:
//	  - {name: Ball, kind: sphere, center: [0, 0, 0], radius: 1, material: {kind: metal, albedo: [1, 1, 1], payload: [0.1, 0]}}
//	  - {name: Floor, kind: plane, point: [0, -1, 0], normal: [0, 1, 0], material: {kind: lambertian, albedo: [1, 1, 1]}}
//	  - {name: Crate, kind: box, min: [-1, -1, -1], max: [1, 1, 1], material: {kind: lambertian, albedo: [1, 0, 0]}}
//	  - {name: Bunny, kind: mesh, file: bunny.ply, rotation: [0, 180, 0], material: {kind: glossy, albedo: [1, 1, 1], payload: [1.5, 0]}}
type PresetFile struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description,omitempty"`
	Group       string             `yaml:"group,omitempty"`
	LightMode   LightMode          `yaml:"lightMode"`
	Camera      *core.CameraConfig `yaml:"camera,omitempty"`
	Objects     []ObjectSpec       `yaml:"objects"`
}

// ObjectSpec is one object entry. Which geometry fields apply depends on Kind;
// Position/Rotation/Scale place boxes and meshes.
type ObjectSpec struct {
	Name     string            `yaml:"name"`
	Kind     string            `yaml:"kind"`
	Material material.Material `yaml:"material"`

	Center mgl32.Vec3 `yaml:"center,omitempty"`
	Radius float32    `yaml:"radius,omitempty"`

	Point  mgl32.Vec3 `yaml:"point,omitempty"`
	Normal mgl32.Vec3 `yaml:"normal,omitempty"`

	Min *mgl32.Vec3 `yaml:"min,omitempty"`
	Max *mgl32.Vec3 `yaml:"max,omitempty"`

	File     string      `yaml:"file,omitempty"`
	Position mgl32.Vec3  `yaml:"position,omitempty"`
	Rotation mgl32.Vec3  `yaml:"rotation,omitempty"`
	Scale    *mgl32.Vec3 `yaml:"scale,omitempty"`
}

func (o ObjectSpec) transform() mgl32.Mat4 {
	scale := mgl32.Vec3{1, 1, 1}
	if o.Scale != nil {
		scale = *o.Scale
	}
	return geometry.TRS{Translation: o.Position, Rotation: o.Rotation, Scale: scale}.Matrix()
}

// LoadPresetFile parses a YAML preset. Mesh files resolve relative to the preset's directory.
func LoadPresetFile(path string) (Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Preset{}, fmt.Errorf("%w: %s", ErrUnknownPreset, path)
		}
		return Preset{}, err
	}
	return ParsePreset(data, path)
}

// ParsePreset decodes YAML preset data. path names the source for ids and relative mesh files.
func ParsePreset(data []byte, path string) (Preset, error) {
	var file PresetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Preset{}, fmt.Errorf("parse preset %s: %w", path, err)
	}
	for i, obj := range file.Objects {
		if err := obj.validate(); err != nil {
			return Preset{}, fmt.Errorf("preset %s object %d: %w", path, i, err)
		}
	}

	info := presetInfo(file, path)
	camera := core.DefaultCameraConfig()
	if file.Camera != nil {
		camera = mergeCameraConfig(camera, *file.Camera)
	}
	dir := filepath.Dir(path)

	return Preset{
		Info:   info,
		Camera: camera,
		Build: func(s *Scene) error {
			s.SetLightMode(file.LightMode)
			for _, obj := range file.Objects {
				if err := obj.push(s, dir); err != nil {
					return err
				}
			}
			return nil
		},
	}, nil
}

func (o ObjectSpec) validate() error {
	kind, err := geometry.ParseKind(strings.ToLower(o.Kind))
	if err != nil {
		return err
	}
	switch kind {
	case geometry.KindSphere:
		if o.Radius <= 0 {
			return fmt.Errorf("sphere %q needs a positive radius", o.Name)
		}
	case geometry.KindPlane:
		if o.Normal.Len() == 0 {
			return fmt.Errorf("plane %q needs a normal", o.Name)
		}
	case geometry.KindMesh:
		if o.File == "" {
			return fmt.Errorf("mesh %q needs a file", o.Name)
		}
	}
	return nil
}

func (o ObjectSpec) push(s *Scene, dir string) error {
	kind, _ := geometry.ParseKind(strings.ToLower(o.Kind))
	switch kind {
	case geometry.KindSphere:
		return s.PushSphere(o.Name, o.Center, o.Radius, o.Material)
	case geometry.KindPlane:
		return s.PushPlane(o.Name, o.Point, o.Normal, o.Material)
	case geometry.KindBox:
		if o.Min != nil && o.Max != nil {
			return s.PushBoxCorners(o.Name, *o.Min, *o.Max, o.Material)
		}
		return s.PushBox(o.Name, o.transform(), o.Material)
	case geometry.KindMesh:
		path := o.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		return s.PushMeshFile(o.Name, path, o.transform(), o.Material)
	}
	return fmt.Errorf("cannot push %q", o.Kind)
}

// mergeCameraConfig overlays the non-zero fields of override onto base
func mergeCameraConfig(base, override core.CameraConfig) core.CameraConfig {
	result := base
	if override.Position != (mgl32.Vec3{}) {
		result.Position = override.Position
	}
	if override.LookAt != (mgl32.Vec3{}) {
		result.LookAt = override.LookAt
	}
	if override.Up != (mgl32.Vec3{}) {
		result.Up = override.Up
	}
	if override.FOV != 0 {
		result.FOV = override.FOV
	}
	if override.Aperture != 0 {
		result.Aperture = override.Aperture
	}
	if override.FocusDepth != 0 {
		result.FocusDepth = override.FocusDepth
	}
	return result
}
