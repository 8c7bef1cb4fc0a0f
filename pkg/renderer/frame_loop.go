package renderer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/pkg/geometry"
	"github.com/df07/go-gpu-pathtracer/pkg/notify"
	"github.com/df07/go-gpu-pathtracer/pkg/scene"
)

// ErrLoopExited is returned by Submit once the loop has stopped
var ErrLoopExited = errors.New("renderer: frame loop exited")

// FrameInput is the interaction sampled for one frame
type FrameInput struct {
	Dt          time.Duration
	ScreenSize  mgl32.Vec2
	MousePos    mgl32.Vec2
	LeftClick   bool // Select under the cursor
	MiddleClick bool // Focus on the surface under the cursor
	Escape      bool
	Reset       bool
	Move        mgl32.Vec3 // Camera translation along right, up, forward
	Yaw         float32
	Pitch       float32
	Manipulate  *geometry.Manipulation // Gizmo delta for the selected object
}

// LoopConfig configures the frame loop
type LoopConfig struct {
	SamplesPerFrame  int
	TargetSamples    int // Default target for render commands without one
	MaxBounces       int
	LowResScale      float32
	DebugView        DebugView
	ScreenshotDir    string
	ScreenshotFormat Format
	FrameInterval    time.Duration // Minimum time between frames in Run, 0 = unpaced
}

// DefaultLoopConfig returns the interactive defaults
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		SamplesPerFrame:  1,
		TargetSamples:    256,
		MaxBounces:       5,
		LowResScale:      1,
		ScreenshotDir:    ".",
		ScreenshotFormat: PNG,
	}
}

// LoopStatus is a snapshot of the loop that is safe to read from any goroutine
type LoopStatus struct {
	Status
	Objects        int    `json:"objects"`
	Selected       int    `json:"selected"`
	LightMode      string `json:"lightMode"`
	DebugView      string `json:"debugView"`
	LastScreenshot string `json:"lastScreenshot,omitempty"`
	Exited         bool   `json:"exited"`
}

// FrameLoop owns the scene, camera and controller. All mutation happens inside
// Frame; other goroutines go through Submit.
type FrameLoop struct {
	config     LoopConfig
	scene      *scene.Scene
	camera     *core.Camera
	graphics   Graphics
	controller *Controller
	console    *notify.Console
	sink       notify.Sink
	shaders    *ShaderReloader

	commands chan func()
	exited   bool

	// Outcome of the final capture of the current render-to-completion
	renderShot string
	renderErr  error

	mu             sync.Mutex
	status         LoopStatus
	lastScreenshot string

	now func() time.Time
}

// NewFrameLoop wires a loop. console and shaders may be nil.
func NewFrameLoop(config LoopConfig, sc *scene.Scene, camera *core.Camera, graphics Graphics, console *notify.Console, shaders *ShaderReloader, sink notify.Sink) *FrameLoop {
	if sink == nil {
		sink = notify.Discard
	}
	if config.LowResScale < 1 {
		config.LowResScale = 1
	}
	if config.ScreenshotFormat == "" {
		config.ScreenshotFormat = PNG
	}
	l := &FrameLoop{
		config:     config,
		scene:      sc,
		camera:     camera,
		graphics:   graphics,
		controller: NewController(config.SamplesPerFrame),
		console:    console,
		sink:       sink,
		shaders:    shaders,
		commands:   make(chan func(), 64),
		now:        time.Now,
	}
	l.snapshot()
	return l
}

// Scene returns the scene. Only use it from the frame goroutine or inside Submit.
func (l *FrameLoop) Scene() *scene.Scene {
	return l.scene
}

// Camera returns the camera. Only use it from the frame goroutine or inside Submit.
func (l *FrameLoop) Camera() *core.Camera {
	return l.camera
}

// Controller returns the accumulation controller. Only use it from the frame
// goroutine or inside Submit.
func (l *FrameLoop) Controller() *Controller {
	return l.controller
}

// Submit runs fn on the frame goroutine before the next frame and waits for it
func (l *FrameLoop) Submit(ctx context.Context, fn func() error) error {
	if l.Exited() {
		return ErrLoopExited
	}
	reply := make(chan error, 1)
	task := func() { reply <- fn() }

	select {
	case l.commands <- task:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LoadPreset replaces the scene and camera. Frame goroutine only.
func (l *FrameLoop) LoadPreset(p scene.Preset) error {
	if err := l.scene.Load(p); err != nil {
		return err
	}
	l.camera = core.NewCamera(p.Camera)
	l.controller.Invalidate(SceneChanged)
	return nil
}

// StartRender enters render-to-completion; target <= 0 uses the configured default.
// Frame goroutine only.
func (l *FrameLoop) StartRender(target int) bool {
	if target <= 0 {
		target = l.config.TargetSamples
	}
	if !l.controller.StartRender(target) {
		return false
	}
	l.renderShot, l.renderErr = "", nil
	l.scene.ClearSelection()
	core.Log().Info("render started", "target", target, "samplesPerFrame", l.controller.SamplesPerFrame())
	l.sink.Notify(notify.Info, fmt.Sprintf("Rendering %d samples", target))
	return true
}

// SetLowResScale changes the low resolution block size. Frame goroutine only.
func (l *FrameLoop) SetLowResScale(scale float32) {
	scale = max(1, min(50, scale))
	if scale != l.config.LowResScale {
		l.config.LowResScale = scale
		l.controller.Invalidate(ViewToggled)
	}
}

// SetDebugView changes the debug visualization. Frame goroutine only.
func (l *FrameLoop) SetDebugView(view DebugView) {
	if view != l.config.DebugView {
		l.config.DebugView = view
		l.controller.Invalidate(ViewToggled)
	}
}

// RequestScreenshot captures after the next frame. Frame goroutine only.
func (l *FrameLoop) RequestScreenshot() {
	l.controller.RequestScreenshot()
}

// Exited reports whether an exit command was processed
func (l *FrameLoop) Exited() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status.Exited
}

// Status returns the snapshot taken after the last frame
func (l *FrameLoop) Status() LoopStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Frame runs one iteration: queued commands, console requests, input, buffer
// upload, controller bookkeeping, dispatch and screenshot capture.
func (l *FrameLoop) Frame(input FrameInput) error {
	l.drainCommands()
	l.pollConsole(&input)
	l.pollShaders()

	if l.controller.Rendering() {
		if input.Escape && l.controller.Cancel() {
			core.Log().Info("render cancelled")
			l.sink.Notify(notify.Info, "Render cancelled")
		}
	} else {
		l.applyInput(input)
	}

	if l.camera.CheckMoved() {
		l.controller.Invalidate(CameraMoved)
	}
	if l.scene.CheckUpdate() {
		l.controller.Invalidate(SceneChanged)
	}

	if err := l.scene.FillBuffers(); err != nil {
		return fmt.Errorf("fill buffers: %w", err)
	}
	if l.scene.CheckBufferUpdate() {
		if err := l.graphics.RebuildBindings(); err != nil {
			return fmt.Errorf("rebuild bindings: %w", err)
		}
	}

	result := l.controller.Advance(input.Dt)
	params := FrameParams{
		Camera:          *l.camera,
		Parity:          result.Parity,
		Frame:           result.Frame,
		Samples:         result.Samples,
		SamplesPerFrame: l.controller.SamplesPerFrame(),
		MaxBounces:      l.config.MaxBounces,
		LowResScale:     l.config.LowResScale,
		DebugView:       l.config.DebugView,
		LightMode:       l.scene.LightMode(),
		Selected:        l.scene.Selected(),
	}
	if err := l.graphics.Dispatch(params); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}

	if result.Screenshot {
		if err := l.captureScreenshot(); err != nil {
			l.sink.Notify(notify.Error, fmt.Sprintf("Screenshot failed: %v", err))
			core.Log().Error("screenshot failed", "error", err)
			if l.controller.State() == PendingExit {
				l.renderErr = err
				l.controller.Cancel()
			}
		}
	}

	l.snapshot()
	return nil
}

func (l *FrameLoop) drainCommands() {
	for {
		select {
		case fn := <-l.commands:
			fn()
		default:
			return
		}
	}
}

func (l *FrameLoop) pollConsole(input *FrameInput) {
	if l.console == nil {
		return
	}
	for _, key := range l.console.TakeKeys() {
		switch strings.ToLower(key) {
		case "r":
			input.Reset = true
		case "esc", "escape":
			input.Escape = true
		default:
			l.sink.Notify(notify.Warning, fmt.Sprintf("Unknown key %q", key))
		}
	}

	if l.console.Requested(notify.CmdExit) {
		l.mu.Lock()
		l.exited = true
		l.mu.Unlock()
	}
	if l.console.Requested(notify.CmdRender) {
		l.StartRender(l.console.RenderTarget())
	}
	if l.console.Requested(notify.CmdReload) {
		l.reloadPipeline()
	}
}

func (l *FrameLoop) pollShaders() {
	if l.shaders != nil && l.shaders.TakeReload() {
		l.reloadPipeline()
	}
}

func (l *FrameLoop) reloadPipeline() {
	if l.shaders != nil {
		if err := l.shaders.CompileAll(); err != nil {
			core.Log().Warn("shader reload failed", "error", err)
			return
		}
	}
	if reloader, ok := l.graphics.(PipelineReloader); ok {
		if err := l.graphics.WaitIdle(); err != nil {
			core.Log().Warn("wait idle before reload failed", "error", err)
		}
		if err := reloader.ReloadPipeline(); err != nil {
			l.sink.Notify(notify.Error, fmt.Sprintf("Pipeline not built: %v", err))
			return
		}
	}
	l.controller.Invalidate(ShaderReloaded)
	l.sink.Notify(notify.Info, "Shaders reloaded")
}

func (l *FrameLoop) applyInput(input FrameInput) {
	if input.MiddleClick {
		if hit, ok := l.scene.Raycast(input.MousePos, input.ScreenSize, l.camera, false); ok {
			l.camera.SetFocusDepth(hit.Distance)
		}
	}
	if input.LeftClick {
		l.scene.Raycast(input.MousePos, input.ScreenSize, l.camera, true)
	}

	if input.Escape {
		if !l.controller.ShowUI() {
			l.scene.ClearSelection()
		}
	}

	l.camera.Move(input.Move)
	l.camera.Rotate(input.Yaw, input.Pitch)

	if input.Manipulate != nil {
		l.scene.Manipulate(*input.Manipulate, float32(input.Dt.Seconds()))
	}
	if input.Reset {
		l.controller.Invalidate(UserReset)
	}
}

func (l *FrameLoop) captureScreenshot() error {
	// The frame must be fully resolved before reading it back
	if err := l.graphics.WaitIdle(); err != nil {
		return err
	}
	pixels, width, height, err := l.graphics.ReadAccumulation()
	if err != nil {
		return err
	}
	img, err := AccumulationImage(pixels, width, height)
	if err != nil {
		return err
	}
	path, err := SaveScreenshot(l.config.ScreenshotDir, img, l.config.ScreenshotFormat, l.now())
	if err != nil {
		return err
	}

	finishing := l.controller.State() == PendingExit
	l.controller.ScreenshotSaved()

	l.mu.Lock()
	l.lastScreenshot = path
	l.mu.Unlock()
	if finishing {
		l.renderShot = path
	}

	core.Log().Info("screenshot saved", "path", path, "luminance", CalculateAverageLuminance(img))
	l.sink.Notify(notify.Info, "Screenshot saved to "+path)
	if finishing {
		l.sink.Notify(notify.Info, "Render finished")
	}
	return nil
}

func (l *FrameLoop) snapshot() {
	status := LoopStatus{
		Status:    l.controller.Status(),
		Objects:   l.scene.Len(),
		Selected:  l.scene.Selected(),
		LightMode: l.scene.LightMode().String(),
		DebugView: l.config.DebugView.String(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	status.LastScreenshot = l.lastScreenshot
	status.Exited = l.exited
	l.status = status
}

// Run drives frames until ctx is cancelled or an exit command arrives
func (l *FrameLoop) Run(ctx context.Context) error {
	var ticker *time.Ticker
	if l.config.FrameInterval > 0 {
		ticker = time.NewTicker(l.config.FrameInterval)
		defer ticker.Stop()
	}

	last := l.now()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		now := l.now()
		if err := l.Frame(FrameInput{Dt: now.Sub(last)}); err != nil {
			return err
		}
		last = now
		if l.Exited() {
			core.Log().Info("frame loop exiting")
			return nil
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	}
}

// Render runs a render to completion with target samples and returns the
// screenshot path. It drives frames itself, so Run must not be active.
func (l *FrameLoop) Render(ctx context.Context, target int) (string, error) {
	if target <= 0 {
		return "", fmt.Errorf("invalid target sample count %d", target)
	}
	if !l.StartRender(target) {
		return "", errors.New("renderer: render already in progress")
	}

	last := l.now()
	for l.controller.Rendering() {
		if err := ctx.Err(); err != nil {
			l.controller.Cancel()
			return "", err
		}
		now := l.now()
		if err := l.Frame(FrameInput{Dt: now.Sub(last)}); err != nil {
			return "", err
		}
		last = now
	}

	if l.renderErr != nil {
		return "", fmt.Errorf("renderer: final screenshot: %w", l.renderErr)
	}
	if l.renderShot == "" {
		return "", errors.New("renderer: render finished without a screenshot")
	}
	return l.renderShot, nil
}
