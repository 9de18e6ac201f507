package modules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tx7do/flubber"
	"github.com/tx7do/flubber/ops"
)

func defaultModules() []Module {
	return []Module{
		NewConsole(nil, nil),
		NewWebIDL(),
		NewURL(),
		NewWeb(),
		NewFetch(FetchOptions{}),
	}
}

func permutations(mods []Module) [][]Module {
	if len(mods) <= 1 {
		return [][]Module{append([]Module(nil), mods...)}
	}
	var res [][]Module
	for i := range mods {
		rest := make([]Module, 0, len(mods)-1)
		rest = append(rest, mods[:i]...)
		rest = append(rest, mods[i+1:]...)
		for _, p := range permutations(rest) {
			res = append(res, append([]Module{mods[i]}, p...))
		}
	}
	return res
}

func TestDefaultSetOrder(t *testing.T) {
	assert.Equal(t, []string{"console", "webidl", "url", "web", "fetch"}, Default(Options{}).Names())
}

func TestOnlyDeclaredOrderInstalls(t *testing.T) {
	declared := []string{"console", "webidl", "url", "web", "fetch"}
	perms := permutations(defaultModules())
	require.Len(t, perms, 120)

	succeeded := 0
	for _, perm := range perms {
		set, err := NewSet(perm...)
		require.NoError(t, err)
		env, loop := newEnv(nil)

		err = set.Install(env)
		loop.Close()
		if err == nil {
			succeeded++
			assert.Equal(t, declared, set.Names())
			continue
		}
		assert.ErrorIs(t, err, flubber.ErrModuleInstallation, "order %v", set.Names())
		var merr *flubber.ModuleInstallationError
		require.True(t, errors.As(err, &merr))
		assert.NotEmpty(t, merr.Missing, "order %v", set.Names())
	}
	assert.Equal(t, 1, succeeded)
}

func TestNewSetRejectsDuplicates(t *testing.T) {
	_, err := NewSet(NewWebIDL(), NewWebIDL())
	assert.Error(t, err)

	_, err = NewSet(nil)
	assert.Error(t, err)
}

func TestInstallGlobalCollision(t *testing.T) {
	env, loop := newEnv(nil)
	defer loop.Close()
	require.NoError(t, env.VM.Set("fetch", 1))

	err := Default(Options{}).Install(env)
	var merr *flubber.ModuleInstallationError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "fetch", merr.Module)
	assert.Equal(t, "fetch", merr.Collision)
}

func TestInstallOpCollision(t *testing.T) {
	env, loop := newEnv(nil)
	defer loop.Close()
	require.NoError(t, env.Ops.Register(ops.Op{
		Name:    NowOpName,
		Handler: func(ops.Args) (any, error) { return 0, nil },
	}))

	err := Default(Options{}).Install(env)
	var merr *flubber.ModuleInstallationError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "web", merr.Module)
	assert.Equal(t, NowOpName, merr.Collision)
}

func TestInstallDefinesEveryGlobal(t *testing.T) {
	h := newHarness(t, nil, FetchOptions{})
	for _, m := range defaultModules() {
		for _, name := range m.Globals() {
			assert.NotNil(t, h.vm.Get(name), name)
		}
		for _, name := range m.Ops() {
			assert.True(t, h.env.Ops.Has(name), name)
		}
	}
}

func TestConsoleWriters(t *testing.T) {
	h := newHarness(t, nil, FetchOptions{})
	h.run(t, `console.log("out", 1); console.error("err")`)
	assert.Equal(t, "out 1\n", h.stdout.String())
	assert.Equal(t, "err\n", h.stderr.String())
}
