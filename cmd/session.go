package cmd

import (
	"errors"
	"fmt"

	"github.com/urfave/cli"

	"github.com/df07/go-gpu-pathtracer/pkg/config"
	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/pkg/gpu"
	"github.com/df07/go-gpu-pathtracer/pkg/notify"
	"github.com/df07/go-gpu-pathtracer/pkg/renderer"
	"github.com/df07/go-gpu-pathtracer/pkg/scene"
)

// loadConfig reads the --config file (optional when the flag is left at its
// default) and applies command flag overrides
func loadConfig(ctx *cli.Context) (config.Config, error) {
	cfg, err := config.Load(ctx.GlobalString("config"), !ctx.GlobalIsSet("config"))
	if err != nil {
		return cfg, err
	}

	if ctx.IsSet("width") {
		cfg.Width = ctx.Int("width")
	}
	if ctx.IsSet("height") {
		cfg.Height = ctx.Int("height")
	}
	if ctx.IsSet("spp") {
		cfg.SamplesPerPixel = ctx.Int("spp")
	}
	if ctx.IsSet("samples") {
		cfg.TargetSamples = ctx.Int("samples")
	}
	if ctx.IsSet("bounces") {
		cfg.MaxBounces = ctx.Int("bounces")
	}
	if ctx.IsSet("debug-view") {
		cfg.DebugView = ctx.String("debug-view")
	}
	if ctx.IsSet("out") {
		cfg.ScreenshotDir = ctx.String("out")
	}
	if ctx.IsSet("format") {
		cfg.ScreenshotFormat = ctx.String("format")
	}
	if ctx.IsSet("backend") {
		cfg.Backend = ctx.String("backend")
	}
	if ctx.IsSet("shaders") {
		cfg.ShaderDir = ctx.String("shaders")
	}
	if ctx.IsSet("scenes") {
		cfg.PresetDir = ctx.String("scenes")
	}
	if ctx.IsSet("addr") {
		cfg.Server.Address = ctx.String("addr")
	}
	if preset := ctx.Args().First(); preset != "" {
		cfg.Preset = preset
	}
	return cfg, cfg.Validate()
}

// session is a headless frame loop over the CPU preview backend
type session struct {
	config      config.Config
	alloc       gpu.FrameAllocator
	scene       *scene.Scene
	graphics    *renderer.PreviewGraphics
	shaders     *renderer.ShaderReloader
	history     *notify.History
	broadcaster *notify.Broadcaster
	console     *notify.Console
	loop        *renderer.FrameLoop
}

// newSession builds the scene, backend and loop and loads the configured preset.
// Notifications go to the log, the console history and any broadcast subscribers.
func newSession(cfg config.Config) (*session, error) {
	alloc, err := cfg.NewAllocator()
	if err != nil {
		return nil, err
	}
	s := &session{
		config:      cfg,
		alloc:       alloc,
		history:     notify.NewHistory(0),
		broadcaster: notify.NewBroadcaster(),
	}
	sink := notify.Multi{notify.LogSink{}, s.history, s.broadcaster}
	s.console = notify.NewConsole(s.history, notify.Multi{notify.LogSink{}, s.broadcaster})

	if s.scene, err = scene.New(s.alloc, sink); err != nil {
		s.Close()
		return nil, fmt.Errorf("create scene: %w", err)
	}
	if s.graphics, err = renderer.NewPreviewGraphics(cfg.PreviewConfig(), s.scene, s.alloc); err != nil {
		s.Close()
		return nil, err
	}
	if s.shaders, err = renderer.NewShaderReloader(cfg.ShaderDir, sink); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.shaders.CompileAll(); err != nil {
		s.Close()
		return nil, err
	}

	preset, err := findPreset(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.loop = renderer.NewFrameLoop(cfg.LoopConfig(), s.scene, core.NewCamera(preset.Camera), s.graphics, s.console, s.shaders, sink)
	if err := s.loop.LoadPreset(preset); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// findPreset resolves the configured preset and applies the FOV override
func findPreset(cfg config.Config) (scene.Preset, error) {
	preset, err := scene.FindPreset(cfg.PresetDir, cfg.Preset)
	if err != nil {
		return preset, err
	}
	if cfg.FOV > 0 {
		preset.Camera.FOV = cfg.FOV
	}
	return preset, nil
}

func (s *session) Close() {
	var errs []error
	if s.shaders != nil {
		errs = append(errs, s.shaders.Close())
	}
	if s.graphics != nil {
		s.graphics.Close()
	}
	if s.scene != nil {
		s.scene.Destroy()
	}
	closeAllocator(s.alloc)
	if err := errors.Join(errs...); err != nil {
		core.Log().Warn("session close", "error", err)
	}
}

// closeAllocator releases allocators that own a device
func closeAllocator(alloc gpu.Allocator) {
	if c, ok := alloc.(interface{ Close() }); ok {
		c.Close()
	}
}
