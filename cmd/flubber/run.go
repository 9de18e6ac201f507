package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/tx7do/flubber/bridge"
	"github.com/tx7do/flubber/internal/config"
	"github.com/tx7do/flubber/internal/fancy"
	"github.com/tx7do/flubber/internal/host"
	"github.com/tx7do/flubber/internal/logging"
	"github.com/tx7do/flubber/modules"
	"github.com/tx7do/flubber/spinner"
)

func newRunCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the entry script, then drive the spinner for a number of frames",
		Flags: []cli.Flag{
			newConfigFlag(),
			&cli.StringFlag{
				Name:    "entry",
				Aliases: []string{"e"},
				Usage:   "Path to the entry script (overrides script.entry)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: trace, debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format: text or json",
			},
			&cli.IntFlag{
				Name:  "frames",
				Usage: "Number of physics frames to run after the script (overrides host.frames)",
			},
			&cli.BoolFlag{
				Name:  "trace",
				Usage: "Print the spinner state on every frame",
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	logger := slog.New(logging.SetupHandler(cfg.Log.Format, cfg.Log.Level, os.Stderr))
	slog.SetDefault(logger)

	gate, err := cfg.Gate(logger)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	handle := host.NewInitHandle()
	res, err := bridge.Init(ctx, handle, bridge.Options{
		Entry: cfg.Script.Entry,
		Gate:  gate,
		Modules: modules.Options{
			Stdout: os.Stdout,
			Stderr: os.Stderr,
			Fetch: modules.FetchOptions{
				UserAgent:    cfg.UserAgent(Version),
				Client:       &http.Client{Timeout: cfg.Fetch.Timeout.AsDuration()},
				MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
			},
		},
		DrainTimeout: cfg.Script.DrainTimeout.AsDuration(),
		Logger:       logger,
	})
	if err != nil {
		return cli.Exit(fancy.ErrorText(err.Error()), 1)
	}
	logger.Debug("Runtime finished", "runtime", res.RuntimeID, "iterations", res.Stats.Iterations)

	return spin(ctx, handle, cfg, cmd.Bool("trace"), logger)
}

// spin drives one spinner instance for the configured number of frames.
func spin(ctx context.Context, handle *host.InitHandle, cfg *config.Config, trace bool, logger *slog.Logger) error {
	mesh := host.NewMeshInstance(1)
	node, err := handle.Instantiate(spinner.ClassName, mesh)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if err := node.Set("base/rotate_speed", cfg.Host.RotateSpeed); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	loop := &host.FrameLoop{
		Nodes:      []*host.Node{node},
		Frames:     cfg.Host.Frames,
		PhysicsFPS: cfg.Host.PhysicsFPS,
		Realtime:   true,
		Logger:     logger,
	}
	if trace {
		loop.OnFrame = func(frame int, n *host.Node) {
			pos := n.Owner.Translation()
			albedo := n.Owner.SurfaceMaterial(0).Albedo
			fmt.Println(fancy.FrameText(fmt.Sprintf("frame %4d  y=%+.3f  red=%.3f", frame, pos.Y, albedo.R)))
		}
	}
	if err := loop.Run(ctx); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	fmt.Printf("%s %s frames, clock %.3fs\n",
		fancy.ValidText("done:"),
		fancy.CountText(fmt.Sprint(cfg.Host.Frames)),
		node.Instance.(*spinner.Spinner).Clock())
	return nil
}

func applyFlags(cmd *cli.Command, cfg *config.Config) {
	if cmd.IsSet("entry") {
		cfg.Script.Entry = cmd.String("entry")
	}
	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		cfg.Log.Format = cmd.String("log-format")
	}
	if cmd.IsSet("frames") {
		cfg.Host.Frames = int(cmd.Int("frames"))
	}
}
