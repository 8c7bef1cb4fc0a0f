// Package renderer drives progressive accumulation: the restart and render-to-completion
// state machine, the per-frame loop and screenshot capture.
package renderer

import (
	"fmt"
	"time"
)

// State of the accumulation controller
type State int

const (
	// Idle accumulates while the camera and scene are static
	Idle State = iota
	// Restarting is the one-frame transient after an invalidating change
	Restarting
	// RenderToCompletion accumulates toward a target sample count with interaction suppressed
	RenderToCompletion
	// PendingExit waits for the final screenshot before returning to Idle
	PendingExit
)

var stateNames = [...]string{"idle", "restarting", "render", "pending-exit"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Reason names what invalidated the accumulated samples
type Reason int

const (
	CameraMoved Reason = iota
	SceneChanged
	ShaderReloaded
	ViewToggled
	UserReset
)

var reasonNames = [...]string{"camera moved", "scene changed", "shader reloaded", "view toggled", "user reset"}

func (r Reason) String() string {
	if r < 0 || int(r) >= len(reasonNames) {
		return fmt.Sprintf("Reason(%d)", int(r))
	}
	return reasonNames[r]
}

// Limits on the runtime samples taken per frame
const (
	MinSamplesPerFrame = 1
	MaxSamplesPerFrame = 10
)

// FrameResult describes one advanced frame
type FrameResult struct {
	Parity     int    // Accumulation image written this frame; 1-Parity is read
	Frame      uint64 // Frames since the last restart, 1 on a restart frame
	Samples    uint64 // Samples per pixel accumulated since the last restart, this frame included
	Restarted  bool
	Screenshot bool // Capture the accumulation image after this frame
	State      State
}

// Controller is the accumulation state machine. It is driven from the frame loop
// goroutine only.
type Controller struct {
	parity          int
	frameCount      uint64
	sampleCount     uint64
	samplesPerFrame int

	rendering     bool
	pendingExit   bool
	restart       bool
	targetSamples int

	uiVisible       bool
	uiVisibleBefore bool

	screenshotRequested bool
	throughput          Throughput
}

// NewController starts idle with the given runtime samples per frame
func NewController(samplesPerFrame int) *Controller {
	c := &Controller{uiVisible: true, restart: true}
	c.SetSamplesPerFrame(samplesPerFrame)
	return c
}

// State returns the current state. Restarting is reported between an invalidation
// and the frame that applies it.
func (c *Controller) State() State {
	switch {
	case c.pendingExit:
		return PendingExit
	case c.restart:
		return Restarting
	case c.rendering:
		return RenderToCompletion
	}
	return Idle
}

// Rendering reports whether a render-to-completion run is active (including PendingExit)
func (c *Controller) Rendering() bool {
	return c.rendering
}

// SamplesPerFrame returns the runtime samples accumulated each frame
func (c *Controller) SamplesPerFrame() int {
	return c.samplesPerFrame
}

// SetSamplesPerFrame changes the runtime samples per frame, clamped to [1, 10].
// A change restarts accumulation.
func (c *Controller) SetSamplesPerFrame(n int) {
	n = max(MinSamplesPerFrame, min(MaxSamplesPerFrame, n))
	if n != c.samplesPerFrame {
		if c.samplesPerFrame != 0 {
			c.restart = true
		}
		c.samplesPerFrame = n
	}
}

// Invalidate requests a restart. It is ignored while the final screenshot is pending.
func (c *Controller) Invalidate(reason Reason) bool {
	if c.pendingExit {
		return false
	}
	c.restart = true
	return true
}

// StartRender enters render-to-completion toward target samples (0 runs until
// cancelled). The UI is hidden and restored when the run ends. Only valid from Idle.
func (c *Controller) StartRender(target int) bool {
	if c.rendering {
		return false
	}
	c.uiVisibleBefore = c.uiVisible
	c.uiVisible = false
	c.rendering = true
	c.pendingExit = false
	c.targetSamples = max(target, 0)
	c.restart = true
	c.throughput.Reset()
	return true
}

// Cancel leaves render-to-completion immediately, discarding the target
func (c *Controller) Cancel() bool {
	if !c.rendering {
		return false
	}
	c.finishRender()
	return true
}

func (c *Controller) finishRender() {
	c.rendering = false
	c.pendingExit = false
	c.targetSamples = 0
	c.uiVisible = c.uiVisibleBefore
	c.throughput.Reset()
}

// RequestScreenshot captures the accumulation image after the next frame
func (c *Controller) RequestScreenshot() {
	c.screenshotRequested = true
}

// ScreenshotSaved is called once the capture has been read back and written.
// It completes a pending exit.
func (c *Controller) ScreenshotSaved() {
	if c.pendingExit {
		c.finishRender()
	}
}

// Advance runs the per-frame bookkeeping: flip parity, apply a pending restart or
// count the frame and its samples, update throughput and check the completion target.
// A restart frame is frame 1 and carries the first samples.
//
// The returned counters include the frame being dispatched: after a restart the
// sample count is the reset value 0 plus this frame's samplesPerFrame, so
// Samples always equals the samples already in the accumulation buffer once
// the frame completes.
func (c *Controller) Advance(dt time.Duration) FrameResult {
	c.parity = 1 - c.parity

	restarted := c.restart
	c.restart = false
	if restarted {
		c.frameCount = 1
		c.sampleCount = uint64(c.samplesPerFrame)
	} else {
		c.frameCount++
		c.sampleCount += uint64(c.samplesPerFrame)
	}

	if c.rendering {
		c.throughput.Add(dt, c.samplesPerFrame)
	}

	if c.rendering && c.targetSamples > 0 && !c.pendingExit && !restarted &&
		c.sampleCount >= uint64(c.targetSamples) {
		c.screenshotRequested = true
		c.pendingExit = true
	}

	screenshot := c.screenshotRequested
	c.screenshotRequested = false

	state := c.State()
	if restarted {
		state = Restarting
	}
	return FrameResult{
		Parity:     c.parity,
		Frame:      c.frameCount,
		Samples:    c.sampleCount,
		Restarted:  restarted,
		Screenshot: screenshot,
		State:      state,
	}
}

// Status is a snapshot for display
type Status struct {
	State         string  `json:"state"`
	Frame         uint64  `json:"frame"`
	Samples       uint64  `json:"samples"`
	TargetSamples int     `json:"targetSamples"`
	Progress      float32 `json:"progress"`
	SamplesPerSec float32 `json:"samplesPerSec"`
	ETASeconds    float32 `json:"etaSeconds"`
	UIVisible     bool    `json:"uiVisible"`
}

// Status reports counters, progress toward the target and the throughput estimate
func (c *Controller) Status() Status {
	s := Status{
		State:         c.State().String(),
		Frame:         c.frameCount,
		Samples:       c.sampleCount,
		TargetSamples: c.targetSamples,
		SamplesPerSec: c.throughput.SamplesPerSecond(),
		UIVisible:     c.uiVisible,
	}
	if c.rendering && c.targetSamples > 0 {
		done := min(c.sampleCount, uint64(c.targetSamples))
		s.Progress = float32(done) / float32(c.targetSamples)
		s.ETASeconds = c.throughput.ETA(uint64(c.targetSamples) - done)
	}
	return s
}

// UIVisible reports whether the overlay should be drawn
func (c *Controller) UIVisible() bool {
	return c.uiVisible
}

// ShowUI makes the overlay visible; it returns false if it already was
func (c *Controller) ShowUI() bool {
	if c.uiVisible {
		return false
	}
	c.uiVisible = true
	return true
}
