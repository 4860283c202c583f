// Command mirage-headless runs the engine without a window or GPU, for soak tests and profiling of
// the frame loop on CI machines.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"mirage/internal/audio"
	"mirage/internal/config"
	"mirage/internal/engine"
	"mirage/internal/frame"
	"mirage/internal/gpu/headless"
	"mirage/internal/logging"
	"mirage/internal/platform"
	"mirage/internal/profiling"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

type options struct {
	frames       int
	grid         int
	assets       string
	fenceLatency int
	resizeEvery  int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "mirage-headless",
		Short:        "Run the frame loop against the in-memory GPU backend",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.frames, "frames", 600, "frames to run before closing")
	cmd.Flags().IntVar(&opts.grid, "grid", 8, "crates per side of the demo grid")
	cmd.Flags().StringVar(&opts.assets, "assets", "", "asset root (defaults to MIRAGE_ASSET_ROOT)")
	cmd.Flags().IntVar(&opts.fenceLatency, "fence-latency", 2, "submissions (or idle polls) before a fence signals")
	cmd.Flags().IntVar(&opts.resizeEvery, "resize-every", 0, "inject a resize every n frames (0 disables)")
	return cmd
}

func run(ctx context.Context, opts options) error {
	if opts.frames <= 0 {
		return eris.Errorf("--frames must be positive, got %d", opts.frames)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.assets != "" {
		cfg.AssetRoot = opts.assets
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, nil)
	if err != nil {
		return err
	}
	defer profiling.StartProcess(cfg.Profile, ".")()

	win := platform.NewScripted(cfg.WindowWidth, cfg.WindowHeight)
	win.CloseAfter(opts.frames)
	for i := opts.resizeEvery; opts.resizeEvery > 0 && i < opts.frames; i += opts.resizeEvery {
		w, h := cfg.WindowWidth, cfg.WindowHeight
		if (i/opts.resizeEvery)%2 == 1 {
			w, h = w/2, h/2
		}
		batches := make([][]platform.Event, opts.resizeEvery)
		batches[opts.resizeEvery-1] = []platform.Event{platform.Resize(w, h)}
		win.Script(batches...)
	}

	device := headless.New(headless.WithFenceLatency(opts.fenceLatency))
	eng, err := engine.New(cfg, logger, engine.Platform{
		Window:  win,
		Surface: headless.NewSurface(cfg.WindowWidth, cfg.WindowHeight),
		Device:  device,
		Audio:   audio.SilentBackend{Duration: 2 * time.Second},
		Assets:  os.DirFS(cfg.AssetRoot),
	}, frame.WithSlowFrame(0))
	if err != nil {
		return err
	}
	if _, err := eng.PopulateDemo(opts.grid); err != nil {
		_ = eng.Shutdown()
		return err
	}

	start := time.Now()
	if err := eng.Run(ctx); err != nil {
		return err
	}
	elapsed := time.Since(start)

	st := device.Stats()
	fmt.Printf("frames=%d elapsed=%s avg=%s submitted=%d live_objects=%d assets=%+v\n",
		opts.frames, elapsed.Round(time.Millisecond),
		profiling.FormatMs(elapsed/time.Duration(opts.frames)),
		st.Submitted, st.Live(), eng.Assets.Stats())
	return nil
}
