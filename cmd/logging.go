package cmd

import (
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
)

// logLevel maps the global verbosity flags to a slog level
func logLevel(ctx *cli.Context) slog.Level {
	switch {
	case ctx.GlobalBool("vv"):
		return slog.LevelDebug
	case ctx.GlobalBool("v"):
		return slog.LevelInfo
	}
	return slog.LevelWarn
}

func setupLogging(ctx *cli.Context) {
	installLogger(os.Stderr, logLevel(ctx))
}

func installLogger(w io.Writer, level slog.Level) {
	core.SetLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}
