package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"github.com/df07/go-gpu-pathtracer/pkg/core"
	"github.com/df07/go-gpu-pathtracer/web/server"
)

// Serve runs the headless frame loop behind the HTTP control API until
// interrupted or an exit command arrives
func Serve(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	s, err := newSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithCancel(runCtx)
	defer cancel()

	srv := server.NewServer(s.loop, s.console, s.broadcaster, cfg.PresetDir)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(runCtx, cfg.Server.Address)
	}()

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- s.loop.Run(runCtx)
	}()

	// Whichever side stops first (signal, exit command, listen failure) takes the other down
	select {
	case err = <-serveErr:
		cancel()
		if lerr := <-loopErr; err == nil {
			err = lerr
		}
	case err = <-loopErr:
		cancel()
		if serr := <-serveErr; err == nil {
			err = serr
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	core.Log().Info("server stopped")
	return nil
}
