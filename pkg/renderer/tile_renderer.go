package renderer

import (
	"image"
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/pkg/scene"
)

// Tile represents a rectangular region of the image
type Tile struct {
	ID     int
	Bounds image.Rectangle
	Random *rand.Rand // Per-tile generator, so results do not depend on worker scheduling
}

// NewTile creates a tile with a deterministic generator
func NewTile(id int, bounds image.Rectangle) *Tile {
	return &Tile{
		ID:     id,
		Bounds: bounds,
		Random: rand.New(rand.NewSource(int64(id + 42))), // +42 to avoid seed 0
	}
}

// NewTileGrid creates a grid of tiles covering the entire image
func NewTileGrid(width, height, tileSize int) []*Tile {
	if tileSize <= 0 {
		tileSize = 64
	}
	var tiles []*Tile
	tileID := 0

	tilesX := (width + tileSize - 1) / tileSize
	tilesY := (height + tileSize - 1) / tileSize

	for tileY := 0; tileY < tilesY; tileY++ {
		for tileX := 0; tileX < tilesX; tileX++ {
			x0 := tileX * tileSize
			y0 := tileY * tileSize
			x1 := min(x0+tileSize, width)
			y1 := min(y0+tileSize, height)

			tiles = append(tiles, NewTile(tileID, image.Rect(x0, y0, x1, y1)))
			tileID++
		}
	}
	return tiles
}

// depthFalloff darkens preview hits with distance
const depthFalloff = 0.02

// TileRenderer shades preview pixels by picking the scene. It only reads the scene,
// so several workers may share one.
type TileRenderer struct {
	scene *scene.Scene
}

// NewTileRenderer creates a renderer reading sc
func NewTileRenderer(sc *scene.Scene) *TileRenderer {
	return &TileRenderer{scene: sc}
}

// RenderTileBounds accumulates params.SamplesPerFrame jittered samples for every pixel
// in bounds, blending prev into cur with the running-mean weight.
func (tr *TileRenderer) RenderTileBounds(bounds image.Rectangle, params FrameParams, prev, cur []float32, random *rand.Rand) RenderStats {
	stats := RenderStats{TotalPixels: bounds.Dx() * bounds.Dy()}
	screen := mgl32.Vec2{float32(params.Width), float32(params.Height)}
	block := max(1, int(params.LowResScale))
	spp := max(1, params.SamplesPerFrame)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			// Low resolution mode shades whole blocks from their top-left pixel
			bx := float32(x - x%block)
			by := float32(y - y%block)

			var sum mgl32.Vec3
			for s := 0; s < spp; s++ {
				pos := mgl32.Vec2{
					bx + random.Float32()*float32(block),
					by + random.Float32()*float32(block),
				}
				color, hit := tr.shade(core.ScreenRay(pos, screen, &params.Camera), &params)
				sum = sum.Add(color)
				if hit {
					stats.Hits++
				}
			}
			stats.TotalSamples += spp

			i := (y*params.Width + x) * 4
			blend(prev[i:i+4], cur[i:i+4], sum, spp, params)
		}
	}
	return stats
}

func blend(prev, cur []float32, sum mgl32.Vec3, spp int, params FrameParams) {
	if params.Frame <= 1 || params.Samples <= uint64(spp) {
		inv := 1 / float32(spp)
		cur[0], cur[1], cur[2] = sum[0]*inv, sum[1]*inv, sum[2]*inv
		cur[3] = 1
		return
	}
	total := float32(params.Samples)
	keep := (total - float32(spp)) / total
	for c := 0; c < 3; c++ {
		cur[c] = prev[c]*keep + sum[c]/total
	}
	cur[3] = 1
}

func (tr *TileRenderer) shade(ray core.Ray, params *FrameParams) (mgl32.Vec3, bool) {
	hit, ok := tr.scene.Pick(ray)
	if !ok {
		if params.DebugView == DebugSelection {
			return mgl32.Vec3{}, false
		}
		return sky(params.LightMode, ray.Direction), false
	}

	if params.DebugView == DebugSelection {
		if hit.Index == params.Selected {
			return mgl32.Vec3{1, 1, 1}, true
		}
		return mgl32.Vec3{}, true
	}

	_, mat, _ := tr.scene.Object(hit.Index)
	if mat.IsEmissive() {
		return mat.Albedo.Mul(mat.Intensity()), true
	}
	return mat.Albedo.Mul(math32.Exp(-hit.Distance * depthFalloff)), true
}

// sky is the background seen by rays that miss every object
func sky(mode scene.LightMode, dir mgl32.Vec3) mgl32.Vec3 {
	t := 0.5 * (dir.Normalize().Y() + 1)
	switch mode {
	case scene.LightDay:
		return lerp(mgl32.Vec3{1, 1, 1}, mgl32.Vec3{0.5, 0.7, 1.0}, t)
	case scene.LightSunset:
		return lerp(mgl32.Vec3{1.0, 0.5, 0.2}, mgl32.Vec3{0.3, 0.2, 0.5}, t)
	case scene.LightNight:
		return lerp(mgl32.Vec3{0.02, 0.02, 0.05}, mgl32.Vec3{0, 0, 0.01}, t)
	}
	return mgl32.Vec3{}
}

func lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Mul(1 - t).Add(b.Mul(t))
}
