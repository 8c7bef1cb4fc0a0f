package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/df07/go-gpu-pathtracer/pkg/notify"
	"github.com/df07/go-gpu-pathtracer/pkg/scene"
)

// ListScenes prints the built-in and file presets
func ListScenes(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	response, err := scene.ListPresets(cfg.PresetDir)
	if err != nil {
		return err
	}
	displayScenes(os.Stdout, response)
	return nil
}

func displayScenes(w io.Writer, response scene.ScenesResponse) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"ID", "Name", "Group", "Type", "Description"})
	for _, group := range response.Groups {
		for _, info := range group.Scenes {
			table.Append([]string{info.ID, info.DisplayName, group.Name, info.Type, info.Description})
		}
	}
	table.Render()
}

// InspectScene loads a preset without rendering and prints its objects, GPU
// buffers and light list
func InspectScene(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	preset, err := findPreset(cfg)
	if err != nil {
		return err
	}

	alloc, err := cfg.NewAllocator()
	if err != nil {
		return err
	}
	defer closeAllocator(alloc)
	sc, err := scene.New(alloc, notify.LogSink{})
	if err != nil {
		return err
	}
	defer sc.Destroy()
	if err := sc.Load(preset); err != nil {
		return err
	}
	if err := sc.FillBuffers(); err != nil {
		return err
	}

	fmt.Printf("%s (%s), light mode %s\n", preset.Info.DisplayName, preset.Info.ID, sc.LightMode())
	displayObjects(os.Stdout, sc)
	displayBuffers(os.Stdout, sc)
	displayLights(os.Stdout, sc)
	return nil
}

func displayObjects(w io.Writer, sc *scene.Scene) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"#", "Kind", "Name", "Material"})
	for _, info := range sc.Objects() {
		table.Append([]string{fmt.Sprintf("%d", info.Index), info.KindName, info.Name, info.Material.String()})
	}
	table.SetFooter([]string{"", "", "TOTAL", fmt.Sprintf("%d", sc.Len())})
	table.Render()
}

func displayBuffers(w io.Writer, sc *scene.Scene) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Buffer", "Count", "Capacity", "Stride", "Bytes"})
	total := 0
	for _, b := range sc.Buffers() {
		table.Append([]string{
			b.Label(),
			fmt.Sprintf("%d", b.Count()),
			fmt.Sprintf("%d", b.Capacity()),
			fmt.Sprintf("%d", b.Layout().Stride()),
			fmt.Sprintf("%d", b.Size()),
		})
		total += b.Size()
	}
	table.SetFooter([]string{"", "", "", "TOTAL", fmt.Sprintf("%d", total)})
	table.Render()
}

func displayLights(w io.Writer, sc *scene.Scene) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Object", "Name", "Area", "PDF"})
	for _, light := range sc.Lights() {
		obj, _, _ := sc.Object(light.ObjectIndex)
		table.Append([]string{
			fmt.Sprintf("%d", light.ObjectIndex),
			obj.Name,
			fmt.Sprintf("%.4f", light.Area),
			fmt.Sprintf("%.4f", light.PDF),
		})
	}
	table.SetFooter([]string{"", "", "TOTAL AREA", fmt.Sprintf("%.4f", sc.TotalLightArea())})
	table.Render()
}
