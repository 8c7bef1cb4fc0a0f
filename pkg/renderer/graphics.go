package renderer

import (
	"fmt"
	"strings"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/pkg/scene"
)

// DebugView selects an alternative visualization in place of the shaded image
type DebugView int

const (
	DebugNone DebugView = iota
	DebugBounces
	DebugNormal
	DebugSelection
)

var debugViewNames = [...]string{"none", "bounces", "normal", "selection"}

func (d DebugView) String() string {
	if d < 0 || int(d) >= len(debugViewNames) {
		return fmt.Sprintf("DebugView(%d)", int(d))
	}
	return debugViewNames[d]
}

// ParseDebugView returns the view with the given name
func ParseDebugView(name string) (DebugView, error) {
	for i, n := range debugViewNames {
		if strings.EqualFold(n, name) {
			return DebugView(i), nil
		}
	}
	return DebugNone, fmt.Errorf("unknown debug view %q", name)
}

// FrameParams is the per-frame uniform block handed to the graphics layer
type FrameParams struct {
	Camera          core.Camera
	Width           int
	Height          int
	Parity          int
	Frame           uint64
	Samples         uint64
	SamplesPerFrame int
	MaxBounces      int
	LowResScale     float32
	DebugView       DebugView
	LightMode       scene.LightMode
	Selected        int
}

// Graphics is what the frame loop needs from a device backend
type Graphics interface {
	// WaitIdle blocks until all submitted frames have completed.
	WaitIdle() error
	// CurrentFrame returns the frame-in-flight slot being recorded.
	CurrentFrame() int
	// ReadAccumulation returns the last finished accumulation image as RGBA float32.
	ReadAccumulation() ([]float32, int, int, error)
	// Dispatch records and submits one frame.
	Dispatch(params FrameParams) error
	// RebuildBindings recreates bind groups after a scene buffer was reallocated.
	RebuildBindings() error
}

// PipelineReloader is implemented by graphics backends that can rebuild their
// pipelines from freshly compiled shaders
type PipelineReloader interface {
	ReloadPipeline() error
}
