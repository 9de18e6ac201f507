package modules

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/require"
	testifyrequire "github.com/stretchr/testify/require"

	"github.com/tx7do/flubber/eventloop"
	"github.com/tx7do/flubber/ops"
	"github.com/tx7do/flubber/permissions"
)

type harness struct {
	vm     *goja.Runtime
	env    *Env
	loop   *eventloop.Loop
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newEnv(gate permissions.Gate) (*Env, *eventloop.Loop) {
	if gate == nil {
		gate = permissions.AllowAll{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	vm := goja.New()
	registry := require.NewRegistry()
	registry.Enable(vm)
	loop := eventloop.New(vm, logger)

	return &Env{
		VM:       vm,
		Registry: registry,
		Gate:     gate,
		Ops:      ops.NewRegistry(gate, logger),
		Loop:     loop,
		Blobs:    NewBlobStore(),
		Logger:   logger,
		Origin:   time.Now(),
	}, loop
}

func newHarness(t *testing.T, gate permissions.Gate, fetch FetchOptions) *harness {
	t.Helper()
	env, loop := newEnv(gate)
	h := &harness{
		vm:     env.VM,
		env:    env,
		loop:   loop,
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	set := Default(Options{Stdout: h.stdout, Stderr: h.stderr, Fetch: fetch})
	testifyrequire.NoError(t, set.Install(env))
	t.Cleanup(loop.Close)
	return h
}

// run executes src and drains the loop.
func (h *harness) run(t *testing.T, src string) {
	t.Helper()
	_, err := h.vm.RunString(src)
	testifyrequire.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = h.loop.Drain(ctx, nil)
	testifyrequire.NoError(t, err)
}

func (h *harness) result() any {
	v := h.vm.Get("result")
	if v == nil {
		return nil
	}
	return v.Export()
}
