package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/df07/go-gpu-pathtracer/cmd"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "pathtracer"
	app.Usage = "progressive path tracer with a headless control server"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Value: "pathtracer.yaml",
			Usage: "YAML config file; the default is optional",
		},
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}

	sizeFlags := []cli.Flag{
		cli.IntFlag{
			Name:  "width",
			Value: 400,
			Usage: "frame width",
		},
		cli.IntFlag{
			Name:  "height",
			Value: 225,
			Usage: "frame height",
		},
	}
	sceneDirFlag := cli.StringFlag{
		Name:  "scenes",
		Value: "scenes",
		Usage: "directory of YAML scene presets",
	}
	backendFlag := cli.StringFlag{
		Name:  "backend",
		Value: "memory",
		Usage: "buffer allocator: memory or noop (wgpu HAL)",
	}

	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a scene to completion and save a screenshot",
			Description: `
Load a preset, accumulate frames until the target sample count is reached and
save the accumulation buffer. The preset is a built-in id, "file:<name>" for a
preset in the scenes directory, or a path to a YAML file.`,
			ArgsUsage: "[preset]",
			Flags: append(sizeFlags,
				sceneDirFlag,
				backendFlag,
				cli.IntFlag{
					Name:  "samples, s",
					Value: 256,
					Usage: "target samples per pixel",
				},
				cli.IntFlag{
					Name:  "spp",
					Value: 1,
					Usage: "samples per pixel per frame (1-10)",
				},
				cli.IntFlag{
					Name:  "bounces",
					Value: 5,
					Usage: "maximum path bounces",
				},
				cli.StringFlag{
					Name:  "debug-view",
					Value: "none",
					Usage: "none, bounces, normal or selection",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: ".",
					Usage: "screenshot directory",
				},
				cli.StringFlag{
					Name:  "format, f",
					Value: "png",
					Usage: "screenshot format: png, webp, bmp, tiff or tga",
				},
				cli.StringFlag{
					Name:  "shaders",
					Usage: "directory of WGSL shaders to validate instead of the embedded set",
				},
			),
			Action: cmd.RenderFrames,
		},
		{
			Name:   "scenes",
			Usage:  "list available scene presets",
			Flags:  []cli.Flag{sceneDirFlag},
			Action: cmd.ListScenes,
		},
		{
			Name:      "inspect",
			Usage:     "print the objects, buffers and lights of a preset",
			ArgsUsage: "[preset]",
			Flags:     []cli.Flag{sceneDirFlag, backendFlag},
			Action:    cmd.InspectScene,
		},
		{
			Name:  "serve",
			Usage: "run the frame loop behind the HTTP control API",
			Description: `
Run the interactive frame loop headless and expose scene editing, console
commands, render requests and a notification stream over HTTP.`,
			ArgsUsage: "[preset]",
			Flags: append(sizeFlags,
				sceneDirFlag,
				backendFlag,
				cli.StringFlag{
					Name:  "addr",
					Value: ":8080",
					Usage: "listen address",
				},
				cli.StringFlag{
					Name:  "shaders",
					Usage: "directory of WGSL shaders to watch and hot reload",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: ".",
					Usage: "screenshot directory",
				},
			),
			Action: cmd.Serve,
		},
	}
	return app
}
