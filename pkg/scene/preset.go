package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/pkg/notify"
)

// LightMode selects the sky the shader lights the scene with
type LightMode int32

const (
	LightDay LightMode = iota
	LightSunset
	LightNight
	LightEmpty
)

var lightModeNames = [...]string{"day", "sunset", "night", "empty"}

func (m LightMode) String() string {
	if m < 0 || int(m) >= len(lightModeNames) {
		return fmt.Sprintf("LightMode(%d)", int32(m))
	}
	return lightModeNames[m]
}

// ParseLightMode resolves a lowercase light mode name
func ParseLightMode(name string) (LightMode, error) {
	for i, n := range lightModeNames {
		if strings.EqualFold(n, name) {
			return LightMode(i), nil
		}
	}
	return LightDay, fmt.Errorf("unknown light mode %q", name)
}

func (m LightMode) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

func (m *LightMode) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	mode, err := ParseLightMode(name)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Preset is a named scene builder. Loading clears the scene, then Build pushes objects.
type Preset struct {
	Info   SceneInfo
	Camera core.CameraConfig
	Build  func(s *Scene) error
}

// Builtins returns the presets compiled into the binary
func Builtins() []Preset {
	return []Preset{
		emptyPreset(),
		cornellPreset(),
		randomSpheresPreset(1),
		triangleMeshPreset(),
		dragonPreset(),
	}
}

// FindPreset resolves an id: a built-in id, a "file:<name>" id from dir, or a path to a YAML file
func FindPreset(dir, id string) (Preset, error) {
	for _, p := range Builtins() {
		if p.Info.ID == id {
			return p, nil
		}
	}
	if name, ok := strings.CutPrefix(id, "file:"); ok {
		return LoadPresetFile(filepath.Join(dir, name+".yaml"))
	}
	if ext := filepath.Ext(id); ext == ".yaml" || ext == ".yml" {
		return LoadPresetFile(id)
	}
	return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, id)
}

// Load clears the scene and builds the preset into it
func (s *Scene) Load(p Preset) error {
	if err := s.Clear(); err != nil {
		return err
	}
	s.lightMode = LightDay
	if err := p.Build(s); err != nil {
		return fmt.Errorf("preset %s: %w", p.Info.ID, err)
	}
	core.Log().Info("preset loaded", "id", p.Info.ID, "objects", len(s.objects))
	s.sink.Notify(notify.Info, fmt.Sprintf("Loaded %s (%d objects)", p.Info.DisplayName, len(s.objects)))
	return nil
}

// findModel returns the first existing candidate for a model path, trying the
// working directory and its parent so the CLI and the server both find it
func findModel(path string) (string, bool) {
	candidates := []string{path}
	if !filepath.IsAbs(path) {
		candidates = append(candidates, filepath.Join("..", path))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, true
		}
	}
	return "", false
}
