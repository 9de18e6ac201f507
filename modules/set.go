package modules

import (
	"errors"
	"fmt"

	"github.com/tx7do/flubber"
)

// Set is the fixed, ordered list of built-in modules of one runtime.
type Set struct {
	modules []Module
}

// NewSet creates a set installed in the given order. Module names must be unique.
func NewSet(mods ...Module) (*Set, error) {
	seen := make(map[string]struct{}, len(mods))
	for _, m := range mods {
		if m == nil {
			return nil, errors.New("invalid module")
		}
		if _, ok := seen[m.Name()]; ok {
			return nil, fmt.Errorf("module %s already registered", m.Name())
		}
		seen[m.Name()] = struct{}{}
	}
	return &Set{modules: mods}, nil
}

// Default returns console, webidl, url, web and fetch, in that order.
func Default(opts Options) *Set {
	s, _ := NewSet(
		NewConsole(opts.Stdout, opts.Stderr),
		NewWebIDL(),
		NewURL(),
		NewWeb(),
		NewFetch(opts.Fetch),
	)
	return s
}

// Names returns module names in installation order.
func (s *Set) Names() []string {
	res := make([]string, 0, len(s.modules))
	for _, m := range s.modules {
		res = append(res, m.Name())
	}
	return res
}

// Install installs every module in order. It stops at the first module
// whose prerequisites are missing or whose names collide.
func (s *Set) Install(env *Env) error {
	installed := make(map[string]struct{}, len(s.modules))
	global := env.VM.GlobalObject()

	for _, m := range s.modules {
		var missing []string
		for _, dep := range m.Deps() {
			if _, ok := installed[dep]; !ok {
				missing = append(missing, dep)
			}
		}
		if len(missing) > 0 {
			return &flubber.ModuleInstallationError{Module: m.Name(), Missing: missing}
		}

		for _, name := range m.Globals() {
			if global.Get(name) != nil {
				return &flubber.ModuleInstallationError{Module: m.Name(), Collision: name}
			}
		}
		for _, name := range m.Ops() {
			if env.Ops.Has(name) {
				return &flubber.ModuleInstallationError{Module: m.Name(), Collision: name}
			}
		}

		if err := m.Install(env); err != nil {
			return &flubber.ModuleInstallationError{Module: m.Name(), Cause: err}
		}

		for _, name := range m.Globals() {
			if global.Get(name) == nil {
				return &flubber.ModuleInstallationError{
					Module: m.Name(),
					Cause:  fmt.Errorf("global %s was not defined", name),
				}
			}
		}

		installed[m.Name()] = struct{}{}
		env.Logger.Debug("Module installed", "module", m.Name(), "globals", m.Globals(), "ops", m.Ops())
	}
	return nil
}
