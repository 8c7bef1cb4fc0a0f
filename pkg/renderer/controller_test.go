package renderer

import (
	"testing"
	"time"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frameDt = 16 * time.Millisecond

func TestController_FirstFrameRestarts(t *testing.T) {
	c := NewController(1)
	assert.Equal(t, Restarting, c.State())

	res := c.Advance(frameDt)
	assert.True(t, res.Restarted)
	assert.Equal(t, uint64(1), res.Frame)
	assert.Equal(t, uint64(1), res.Samples)
	assert.Equal(t, Idle, c.State())
}

func TestController_RenderToCompletion(t *testing.T) {
	c := NewController(4)
	c.Advance(frameDt)

	require.True(t, c.StartRender(100))
	assert.False(t, c.UIVisible())

	pendingAt := 0
	for frame := 1; frame <= 25; frame++ {
		res := c.Advance(frameDt)
		assert.Equal(t, uint64(frame), res.Frame)
		assert.Equal(t, uint64(4*frame), res.Samples)

		if frame == 1 {
			assert.True(t, res.Restarted)
			assert.Equal(t, Restarting, res.State)
		}
		if res.State == PendingExit {
			if pendingAt == 0 {
				pendingAt = frame
			}
			assert.True(t, res.Screenshot)
		} else {
			assert.False(t, res.Screenshot, "frame %d", frame)
		}
	}
	assert.Equal(t, 25, pendingAt)

	// Waiting for the capture keeps the state and does not request again
	res := c.Advance(frameDt)
	assert.Equal(t, PendingExit, res.State)
	assert.False(t, res.Screenshot)

	c.ScreenshotSaved()
	assert.Equal(t, Idle, c.State())
	assert.False(t, c.Rendering())
	assert.True(t, c.UIVisible())
	assert.Equal(t, float32(0), c.Status().SamplesPerSec)
}

func TestController_RestartResetsCounters(t *testing.T) {
	c := NewController(2)
	for i := 0; i < 5; i++ {
		c.Advance(frameDt)
	}
	status := c.Status()
	assert.Equal(t, uint64(5), status.Frame)
	assert.Equal(t, uint64(10), status.Samples)

	tests := []Reason{CameraMoved, SceneChanged, ShaderReloaded, ViewToggled, UserReset}
	for _, reason := range tests {
		t.Run(reason.String(), func(t *testing.T) {
			c.Advance(frameDt)
			require.True(t, c.Invalidate(reason))
			assert.Equal(t, Restarting, c.State())

			res := c.Advance(frameDt)
			assert.True(t, res.Restarted)
			assert.Equal(t, uint64(1), res.Frame)
			assert.Equal(t, uint64(2), res.Samples, "the restart frame counts its own samples")
		})
	}
}

func TestController_RestartOnTargetFrameDefersCompletion(t *testing.T) {
	c := NewController(4)
	c.StartRender(8)
	c.Advance(frameDt) // restart frame, 4 samples

	c.Invalidate(CameraMoved)
	res := c.Advance(frameDt)
	assert.True(t, res.Restarted)
	assert.Equal(t, RenderToCompletion, c.State())
	assert.False(t, res.Screenshot)

	res = c.Advance(frameDt)
	assert.Equal(t, uint64(8), res.Samples)
	assert.Equal(t, PendingExit, res.State)
	assert.True(t, res.Screenshot)
}

func TestController_InvalidateIgnoredWhilePendingExit(t *testing.T) {
	c := NewController(10)
	c.StartRender(10)
	c.Advance(frameDt)
	res := c.Advance(frameDt)
	require.Equal(t, PendingExit, res.State)

	assert.False(t, c.Invalidate(SceneChanged))
	res = c.Advance(frameDt)
	assert.False(t, res.Restarted)
	assert.Equal(t, uint64(30), res.Samples)
}

func TestController_Cancel(t *testing.T) {
	c := NewController(1)
	c.Advance(frameDt)
	assert.False(t, c.Cancel())

	require.True(t, c.StartRender(50))
	assert.False(t, c.StartRender(60))
	for i := 0; i < 10; i++ {
		c.Advance(frameDt)
	}
	assert.True(t, c.Cancel())
	assert.Equal(t, Idle, c.State())
	assert.True(t, c.UIVisible())

	status := c.Status()
	assert.Equal(t, 0, status.TargetSamples)
	assert.Equal(t, float32(0), status.Progress)
}

func TestController_RestoresHiddenUI(t *testing.T) {
	c := NewController(1)
	c.uiVisible = false
	c.StartRender(1)
	c.Cancel()
	assert.False(t, c.UIVisible())

	assert.True(t, c.ShowUI())
	assert.False(t, c.ShowUI())
}

func TestController_SamplesPerFrameClamp(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 1},
		{-3, 1},
		{4, 4},
		{10, 10},
		{25, 10},
	}
	for _, tt := range tests {
		c := NewController(tt.in)
		assert.Equal(t, tt.want, c.SamplesPerFrame(), "input %d", tt.in)
	}

	c := NewController(1)
	c.Advance(frameDt)
	c.SetSamplesPerFrame(3)
	assert.Equal(t, Restarting, c.State())
	c.Advance(frameDt)
	c.SetSamplesPerFrame(3)
	assert.Equal(t, Idle, c.State())
}

func TestController_Progress(t *testing.T) {
	c := NewController(4)
	c.StartRender(100)
	for i := 0; i < 10; i++ {
		c.Advance(frameDt)
	}
	status := c.Status()
	assert.Equal(t, "render", status.State)
	assert.Equal(t, uint64(40), status.Samples)
	assert.InDelta(t, 0.4, status.Progress, 1e-6)
	assert.False(t, status.UIVisible)
}

func TestThroughput(t *testing.T) {
	var tp Throughput
	tp.Add(500*time.Millisecond, 4)
	assert.Equal(t, float32(0), tp.SamplesPerSecond())
	assert.Equal(t, float32(0), tp.ETA(100))

	tp.Add(600*time.Millisecond, 4)
	first := float32(8) / 1.1
	assert.InDelta(t, first, tp.SamplesPerSecond(), 1e-4)

	tp.Add(2*time.Second, 10)
	alpha := 1 - math32.Exp(-2.0/5.0)
	want := first + alpha*(5-first)
	assert.InDelta(t, want, tp.SamplesPerSecond(), 1e-4)
	assert.InDelta(t, 100/want, tp.ETA(100), 1e-3)

	tp.Reset()
	assert.Equal(t, float32(0), tp.SamplesPerSecond())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "pending-exit", PendingExit.String())
	assert.Equal(t, "State(9)", State(9).String())
}
