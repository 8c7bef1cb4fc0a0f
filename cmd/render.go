package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/pkg/renderer"
)

// DefaultRenderSamples is the target used when neither --samples nor the config sets one
const DefaultRenderSamples = 256

// RenderFrames renders a preset to completion and saves the screenshot
func RenderFrames(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	target := cfg.TargetSamples
	if target <= 0 {
		target = DefaultRenderSamples
	}

	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	core.Log().Info("rendering", "preset", cfg.Preset, "samples", target, "size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))
	start := time.Now()
	path, err := s.loop.Render(runCtx, target)
	if err != nil {
		return err
	}

	displayRenderStats(os.Stdout, s.loop.Status(), s.graphics.LastStats(), time.Since(start))
	fmt.Println(path)
	return nil
}

func displayRenderStats(w io.Writer, status renderer.LoopStatus, stats renderer.RenderStats, elapsed time.Duration) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Frames", "Samples", "Samples/s", "Pixels", "Hit %", "Render time"})

	hitPercent := 0.0
	if stats.TotalSamples > 0 {
		hitPercent = 100 * float64(stats.Hits) / float64(stats.TotalSamples)
	}
	table.Append([]string{
		fmt.Sprintf("%d", status.Frame),
		fmt.Sprintf("%d", status.Samples),
		fmt.Sprintf("%.0f", status.SamplesPerSec),
		fmt.Sprintf("%d", stats.TotalPixels),
		fmt.Sprintf("%02.1f %%", hitPercent),
		elapsed.Round(time.Millisecond).String(),
	})
	table.Render()
}
