// Command mirage opens a window and runs the demo scene.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"mirage/internal/audio"
	"mirage/internal/config"
	"mirage/internal/engine"
	"mirage/internal/gpu/gldevice"
	"mirage/internal/logging"
	"mirage/internal/platform/glfwwindow"
	"mirage/internal/profiling"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/xlab/closer"
)

func init() {
	// GLFW and the GL context belong to the main thread.
	runtime.LockOSThread()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, eris.ToString(err, true))
		os.Exit(2)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// On SIGINT/SIGTERM closer runs this from its own goroutine; the frame loop notices the
	// cancelled context, shuts down on the main thread and only then lets the process exit.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	closer.Bind(func() {
		cancel()
		<-done
	})

	err = run(ctx, cfg, logger)
	close(done)
	if err != nil {
		logger.Error().Err(err).Str("stack", eris.ToString(err, true)).Msg("mirage exited with error")
		closer.Exit(1)
	}
	closer.Close()
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	defer profiling.StartProcess(cfg.Profile, ".")()

	if err := glfw.Init(); err != nil {
		return eris.Wrap(err, "failed to initialize glfw")
	}
	defer glfw.Terminate()

	win, err := glfwwindow.Open(glfwwindow.Options{
		Width:         cfg.WindowWidth,
		Height:        cfg.WindowHeight,
		Title:         cfg.WindowTitle,
		VSync:         cfg.VSync,
		CaptureCursor: true,
	}, logger)
	if err != nil {
		return err
	}
	defer win.Destroy()

	device, err := gldevice.New(logger)
	if err != nil {
		return err
	}

	eng, err := engine.New(cfg, logger, engine.Platform{
		Window:  win,
		Surface: win,
		Device:  device,
		Audio:   audio.SilentBackend{},
		Assets:  os.DirFS(cfg.AssetRoot),
	})
	if err != nil {
		return err
	}
	if _, err := eng.PopulateDemo(5); err != nil {
		_ = eng.Shutdown()
		return err
	}
	return eng.Run(ctx)
}
