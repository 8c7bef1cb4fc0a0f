// Package config loads application settings from YAML, layered over defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/df07/go-gpu-pathtracer/pkg/gpu"
	"github.com/df07/go-gpu-pathtracer/pkg/renderer"
)

// Buffer allocator backends
const (
	BackendMemory = "memory" // Host memory, readable for tests and inspection
	BackendNoop   = "noop"   // wgpu HAL noop device
)

// Config contains every setting the CLI and server read
type Config struct {
	Width            int     `yaml:"width"`
	Height           int     `yaml:"height"`
	FramesInFlight   int     `yaml:"framesInFlight"`
	Backend          string  `yaml:"backend"` // "memory" or "noop"
	SamplesPerPixel  int     `yaml:"samplesPerPixel"` // Runtime samples per frame
	TargetSamples    int     `yaml:"targetSamples"`   // Render-to-completion target, 0 = none
	MaxBounces       int     `yaml:"maxBounces"`
	LowRes           float32 `yaml:"lowRes"`
	DebugView        string  `yaml:"debugView"`
	FOV              float32 `yaml:"fov"` // Overrides the preset camera when > 0
	Preset           string  `yaml:"preset"`
	PresetDir        string  `yaml:"presetDir"`
	ShaderDir        string  `yaml:"shaderDir"` // Empty uses the embedded shaders
	ScreenshotDir    string  `yaml:"screenshotDir"`
	ScreenshotFormat string  `yaml:"screenshotFormat"`
	TileSize         int     `yaml:"tileSize"`
	Workers          int     `yaml:"workers"` // 0 = runtime.NumCPU()
	Server           Server  `yaml:"server"`
}

// Server configures the control API
type Server struct {
	Address      string `yaml:"address"`
	FrameRateCap int    `yaml:"frameRateCap"` // Frames per second for the headless loop, 0 = unpaced
}

// DefaultConfig returns sensible default settings
func DefaultConfig() Config {
	return Config{
		Width:            400,
		Height:           225,
		FramesInFlight:   2,
		Backend:          BackendMemory,
		SamplesPerPixel:  1,
		TargetSamples:    0,
		MaxBounces:       5,
		LowRes:           1,
		DebugView:        renderer.DebugNone.String(),
		Preset:           "cornell-box",
		PresetDir:        "scenes",
		ScreenshotDir:    ".",
		ScreenshotFormat: string(renderer.PNG),
		TileSize:         64,
		Server: Server{
			Address:      ":8080",
			FrameRateCap: 30,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error when
// optional is true.
func Load(path string, optional bool) (Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return config, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parse config %s: %w", path, err)
	}
	return config, config.Validate()
}

// Validate checks ranges and enum names
func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid size %dx%d", c.Width, c.Height))
	}
	if c.FramesInFlight < 1 {
		errs = append(errs, fmt.Errorf("framesInFlight must be at least 1, got %d", c.FramesInFlight))
	}
	if c.Backend != BackendMemory && c.Backend != BackendNoop {
		errs = append(errs, fmt.Errorf("backend must be %q or %q, got %q", BackendMemory, BackendNoop, c.Backend))
	}
	if c.SamplesPerPixel < renderer.MinSamplesPerFrame || c.SamplesPerPixel > renderer.MaxSamplesPerFrame {
		errs = append(errs, fmt.Errorf("samplesPerPixel must be between %d and %d, got %d",
			renderer.MinSamplesPerFrame, renderer.MaxSamplesPerFrame, c.SamplesPerPixel))
	}
	if c.TargetSamples < 0 {
		errs = append(errs, fmt.Errorf("targetSamples must not be negative, got %d", c.TargetSamples))
	}
	if c.LowRes < 1 || c.LowRes > 50 {
		errs = append(errs, fmt.Errorf("lowRes must be between 1 and 50, got %g", c.LowRes))
	}
	if _, err := renderer.ParseDebugView(c.DebugView); err != nil {
		errs = append(errs, err)
	}
	if _, err := renderer.ParseFormat(c.ScreenshotFormat); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LoopConfig converts to the frame loop settings. The frame rate cap paces Run
// only; Render always runs unpaced. Call Validate first.
func (c Config) LoopConfig() renderer.LoopConfig {
	view, _ := renderer.ParseDebugView(c.DebugView)
	format, _ := renderer.ParseFormat(c.ScreenshotFormat)

	loop := renderer.DefaultLoopConfig()
	loop.SamplesPerFrame = c.SamplesPerPixel
	if c.TargetSamples > 0 {
		loop.TargetSamples = c.TargetSamples
	}
	loop.MaxBounces = c.MaxBounces
	loop.LowResScale = c.LowRes
	loop.DebugView = view
	loop.ScreenshotDir = c.ScreenshotDir
	loop.ScreenshotFormat = format
	if c.Server.FrameRateCap > 0 {
		loop.FrameInterval = time.Second / time.Duration(c.Server.FrameRateCap)
	}
	return loop
}

// PreviewConfig converts to the CPU preview backend settings
func (c Config) PreviewConfig() renderer.PreviewConfig {
	return renderer.PreviewConfig{
		Width:      c.Width,
		Height:     c.Height,
		TileSize:   c.TileSize,
		NumWorkers: c.Workers,
	}
}

// NewAllocator opens the buffer allocator for the configured backend
func (c Config) NewAllocator() (gpu.FrameAllocator, error) {
	switch c.Backend {
	case BackendMemory, "":
		return gpu.NewMemoryAllocator(c.FramesInFlight), nil
	case BackendNoop:
		return gpu.NewNoopAllocator(c.FramesInFlight)
	default:
		return nil, fmt.Errorf("unknown backend %q", c.Backend)
	}
}
