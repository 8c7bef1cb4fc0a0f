package renderer

import (
	"image"
	"time"

	"github.com/chewxy/math32"
)

// throughputHalfLife is the smoothing time constant of the samples/second estimate
const throughputHalfLife = 5.0

// Throughput is an exponentially weighted moving average of samples per second,
// updated once at least one second of frame time has accumulated. It feeds the
// ETA display only.
type Throughput struct {
	ema          float32
	initialized  bool
	accumTime    float32
	accumSamples float32
}

// Add records one frame
func (t *Throughput) Add(dt time.Duration, samples int) {
	t.accumTime += math32.Max(float32(dt.Seconds()), 0)
	t.accumSamples += float32(samples)
	if t.accumTime < 1 {
		return
	}

	instant := t.accumSamples / math32.Max(t.accumTime, 1e-6)
	alpha := 1 - math32.Exp(-t.accumTime/throughputHalfLife)
	if !t.initialized {
		t.ema = instant
		t.initialized = true
	} else {
		t.ema += alpha * (instant - t.ema)
	}
	t.accumTime = 0
	t.accumSamples = 0
}

// Reset clears the estimate
func (t *Throughput) Reset() {
	*t = Throughput{}
}

// SamplesPerSecond returns the current estimate, 0 before the first update
func (t *Throughput) SamplesPerSecond() float32 {
	return t.ema
}

// ETA returns the seconds needed for remaining samples, 0 when unknown
func (t *Throughput) ETA(remaining uint64) float32 {
	if t.ema <= 0 {
		return 0
	}
	return float32(remaining) / t.ema
}

// CalculateAverageLuminance returns the mean Rec. 709 luminance of img in [0, 1]
func CalculateAverageLuminance(img image.Image) float64 {
	bounds := img.Bounds()
	pixels := bounds.Dx() * bounds.Dy()
	if pixels == 0 {
		return 0
	}

	var total float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			total += 0.2126*float64(r)/0xffff + 0.7152*float64(g)/0xffff + 0.0722*float64(b)/0xffff
		}
	}
	return total / float64(pixels)
}

// RenderStats counts the work done by one preview dispatch
type RenderStats struct {
	TotalPixels  int
	TotalSamples int
	Hits         int
}

// Merge adds other into s
func (s *RenderStats) Merge(other RenderStats) {
	s.TotalPixels += other.TotalPixels
	s.TotalSamples += other.TotalSamples
	s.Hits += other.Hits
}
