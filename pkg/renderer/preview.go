package renderer

import (
	"errors"
	"fmt"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/pkg/gpu"
	"github.com/df07/go-gpu-pathtracer/pkg/scene"
)

// ErrGraphicsClosed is returned after Close
var ErrGraphicsClosed = errors.New("renderer: graphics closed")

// PreviewConfig configures the CPU preview backend
type PreviewConfig struct {
	Width      int
	Height     int
	TileSize   int
	NumWorkers int // 0 = runtime.NumCPU()
}

// DefaultPreviewConfig returns sensible defaults for headless preview
func DefaultPreviewConfig() PreviewConfig {
	return PreviewConfig{
		Width:    400,
		Height:   225,
		TileSize: 64,
	}
}

// PreviewGraphics is a CPU Graphics backend. It shades the scene by picking across
// a tile worker pool into a double-buffered accumulation image, and flips the
// allocator's frame slot after every dispatch.
type PreviewGraphics struct {
	config PreviewConfig
	alloc  gpu.FrameAllocator
	tiles  []*Tile
	pool   *WorkerPool

	accum    [2][]float32
	last     int
	frames   uint64
	rebuilds int
	reloads  int
	stats    RenderStats
	closed   bool
}

// NewPreviewGraphics starts the worker pool. The scene must have been created on alloc.
func NewPreviewGraphics(config PreviewConfig, sc *scene.Scene, alloc gpu.FrameAllocator) (*PreviewGraphics, error) {
	if config.Width <= 0 || config.Height <= 0 {
		return nil, fmt.Errorf("invalid preview size %dx%d", config.Width, config.Height)
	}

	tiles := NewTileGrid(config.Width, config.Height, config.TileSize)
	g := &PreviewGraphics{
		config: config,
		alloc:  alloc,
		tiles:  tiles,
		pool:   NewWorkerPool(NewTileRenderer(sc), config.NumWorkers),
	}
	for i := range g.accum {
		g.accum[i] = make([]float32, config.Width*config.Height*4)
	}
	g.pool.Start()

	core.Log().Debug("preview graphics started",
		"width", config.Width,
		"height", config.Height,
		"tiles", len(tiles),
		"workers", g.pool.NumWorkers())
	return g, nil
}

// Size returns the image size in pixels
func (g *PreviewGraphics) Size() (int, int) {
	return g.config.Width, g.config.Height
}

// WaitIdle returns once the allocator has no frames in flight. Dispatch is
// synchronous, so there is never outstanding tile work.
func (g *PreviewGraphics) WaitIdle() error {
	return g.alloc.WaitIdle()
}

// CurrentFrame returns the allocator slot being written
func (g *PreviewGraphics) CurrentFrame() int {
	return g.alloc.CurrentFrame()
}

// Dispatch renders every tile for params and waits for the pool to finish
func (g *PreviewGraphics) Dispatch(params FrameParams) error {
	if g.closed {
		return ErrGraphicsClosed
	}
	params.Width, params.Height = g.config.Width, g.config.Height
	parity := params.Parity & 1
	prev, cur := g.accum[1-parity], g.accum[parity]

	g.stats = g.pool.RenderFrame(g.tiles, params, prev, cur)
	g.last = parity
	g.frames++
	g.alloc.Advance()
	return nil
}

// ReadAccumulation copies the image written by the last dispatch
func (g *PreviewGraphics) ReadAccumulation() ([]float32, int, int, error) {
	if g.frames == 0 {
		return nil, 0, 0, errors.New("renderer: nothing rendered yet")
	}
	out := make([]float32, len(g.accum[g.last]))
	copy(out, g.accum[g.last])
	return out, g.config.Width, g.config.Height, nil
}

// RebuildBindings has nothing to rebind on the CPU; it counts calls
func (g *PreviewGraphics) RebuildBindings() error {
	g.rebuilds++
	return nil
}

// ReloadPipeline counts pipeline rebuilds
func (g *PreviewGraphics) ReloadPipeline() error {
	g.reloads++
	return nil
}

// Rebuilds returns how many times bindings were rebuilt
func (g *PreviewGraphics) Rebuilds() int {
	return g.rebuilds
}

// LastStats returns the counters of the last dispatch
func (g *PreviewGraphics) LastStats() RenderStats {
	return g.stats
}

// Close stops the worker pool
func (g *PreviewGraphics) Close() {
	if g.closed {
		return
	}
	g.closed = true
	g.pool.Stop()
}
