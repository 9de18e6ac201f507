// Package modules holds the built-in capability modules installed into a
// script runtime, and the ordered set that installs them.
package modules

import (
	"errors"
	"log/slog"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"

	"github.com/tx7do/flubber"
	"github.com/tx7do/flubber/eventloop"
	"github.com/tx7do/flubber/ops"
	"github.com/tx7do/flubber/permissions"
)

// Module is a self-contained unit of script-visible globals and ops.
type Module interface {
	// Name identifies the module; Deps of other modules refer to it.
	Name() string
	// Deps lists modules that must be installed before this one.
	Deps() []string
	// Globals lists the global bindings the module defines.
	Globals() []string
	// Ops lists the op names the module registers.
	Ops() []string
	// Install defines the module's globals and registers its ops.
	Install(env *Env) error
}

// Scheduler is the part of the event loop modules may use.
type Scheduler interface {
	Enqueue(t eventloop.Task)
	SetTimer(delay time.Duration, repeat bool, fn eventloop.Task) int64
	ClearTimer(id int64) bool
	Go(work eventloop.Work)
	Stats() flubber.LoopStats
}

var _ Scheduler = (*eventloop.Loop)(nil)

// Env is what a module receives at installation time. Every field is owned
// by the runtime being constructed.
type Env struct {
	VM       *goja.Runtime
	Registry *require.Registry
	Gate     permissions.Gate
	Ops      *ops.Registry
	Loop     Scheduler
	Blobs    *BlobStore
	Logger   *slog.Logger

	// Origin is the time the runtime was created; performance.now() counts from it.
	Origin time.Time
}

var errNoURL = errors.New("URL is not defined")
