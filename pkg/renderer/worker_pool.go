package renderer

import (
	"runtime"
	"sync"
)

// tileJob is one tile of one frame. Workers send the tile's counters on done.
type tileJob struct {
	tile   *Tile
	params FrameParams
	prev   []float32 // Accumulation read this frame
	cur    []float32 // Accumulation written this frame; tiles never overlap
	done   chan<- RenderStats
}

// WorkerPool shades frames tile by tile on a fixed set of goroutines
type WorkerPool struct {
	renderer   *TileRenderer
	jobs       chan tileJob
	numWorkers int
	wg         sync.WaitGroup
	stopOnce   sync.Once
}

// NewWorkerPool creates a pool; numWorkers <= 0 uses one worker per CPU
func NewWorkerPool(renderer *TileRenderer, numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool{
		renderer:   renderer,
		jobs:       make(chan tileJob, numWorkers*2),
		numWorkers: numWorkers,
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.work()
	}
}

// Stop waits for queued tiles and shuts the workers down. RenderFrame must not
// be called afterwards.
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		close(wp.jobs)
		wp.wg.Wait()
	})
}

// NumWorkers returns the number of worker goroutines
func (wp *WorkerPool) NumWorkers() int {
	return wp.numWorkers
}

// RenderFrame shades every tile and blocks until all of them are written
func (wp *WorkerPool) RenderFrame(tiles []*Tile, params FrameParams, prev, cur []float32) RenderStats {
	done := make(chan RenderStats, len(tiles))
	for _, tile := range tiles {
		wp.jobs <- tileJob{tile: tile, params: params, prev: prev, cur: cur, done: done}
	}

	var stats RenderStats
	for range tiles {
		stats.Merge(<-done)
	}
	return stats
}

func (wp *WorkerPool) work() {
	defer wp.wg.Done()
	for job := range wp.jobs {
		job.done <- wp.renderer.RenderTileBounds(job.tile.Bounds, job.params, job.prev, job.cur, job.tile.Random)
	}
}
