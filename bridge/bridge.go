// Package bridge is the lifecycle hook a host calls once at startup: it
// registers the per-frame classes, then runs the entry script and its whole
// event loop before returning.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/robbyt/go-loglater"

	"github.com/tx7do/flubber"
	"github.com/tx7do/flubber/internal/host"
	js "github.com/tx7do/flubber/javascript"
	"github.com/tx7do/flubber/modules"
	"github.com/tx7do/flubber/ops"
	"github.com/tx7do/flubber/permissions"
	"github.com/tx7do/flubber/spinner"
)

// DefaultEntry is where the entry script is read from.
const DefaultEntry = "src/main.js"

// Options 桥接层参数
type Options struct {
	// Entry is the entry script path. Defaults to DefaultEntry.
	Entry string
	// Gate defaults to permissions.AllowAll.
	Gate    permissions.Gate
	Modules modules.Options
	// PrintSink receives Flubber.print lines. Defaults to Info records on Logger.
	PrintSink ops.Sink
	// DrainTimeout bounds the event loop drain; zero waits until it is empty.
	DrainTimeout time.Duration
	Logger       *slog.Logger
}

// Result 运行结果
type Result struct {
	RuntimeID string
	Stats     flubber.DrainStats
}

// Init registers the spinner class with the host, then runs the entry
// script to completion. It blocks until the event loop is drained.
func Init(ctx context.Context, handle *host.InitHandle, opts Options) (Result, error) {
	if err := spinner.Register(handle); err != nil {
		return Result{}, fmt.Errorf("register %s: %w", spinner.ClassName, err)
	}
	return Run(ctx, opts)
}

// Run executes the entry script and drains its event loop on a dedicated
// goroutine locked to an OS thread, and waits for it to finish.
//
// Runtime logs are collected while the script runs. They are replayed to
// the host logger only if the run fails.
func Run(ctx context.Context, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Entry == "" {
		opts.Entry = DefaultEntry
	}
	if opts.PrintSink == nil {
		opts.PrintSink = ops.LoggerSink{Logger: logger}
	}

	history := loglater.NewLogCollector(nil)

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		res, err := run(ctx, opts, slog.New(history))
		done <- outcome{res: res, err: err}
	}()
	o := <-done

	if o.err != nil {
		logger.Error("Script run failed", "entry", opts.Entry, "error", o.err)
		if err := history.PlayLogs(logger.Handler()); err != nil {
			logger.Warn("Failed to replay runtime logs", "error", err)
		}
		return o.res, o.err
	}

	logger.Info("Script run completed",
		"entry", opts.Entry,
		"iterations", o.res.Stats.Iterations,
		"continuations", o.res.Stats.Continuations,
		"duration", o.res.Stats.Duration)
	return o.res, nil
}

func run(ctx context.Context, opts Options, logger *slog.Logger) (res Result, err error) {
	rt, err := js.New(js.Options{
		Gate:          opts.Gate,
		ModuleOptions: opts.Modules,
		PrintSink:     opts.PrintSink,
		Logger:        logger,
	})
	if err != nil {
		return res, fmt.Errorf("create runtime: %w", err)
	}
	defer func() {
		if cErr := rt.Close(); cErr != nil {
			err = errors.Join(err, cErr)
		}
	}()
	res.RuntimeID = rt.ID()

	if err := rt.ExecuteEntryFile(ctx, opts.Entry); err != nil {
		return res, fmt.Errorf("execute %s: %w", opts.Entry, err)
	}

	drainCtx := ctx
	if opts.DrainTimeout > 0 {
		var cancel context.CancelFunc
		drainCtx, cancel = context.WithTimeout(ctx, opts.DrainTimeout)
		defer cancel()
	}
	res.Stats, err = rt.DrainEventLoop(drainCtx)
	if err != nil {
		return res, fmt.Errorf("drain event loop: %w", err)
	}
	return res, nil
}
