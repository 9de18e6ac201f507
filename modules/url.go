package modules

import (
	"errors"

	"github.com/dop251/goja_nodejs/url"
)

type urlModule struct{}

// NewURL returns the URL parsing module: URL and URLSearchParams.
func NewURL() Module {
	return urlModule{}
}

func (urlModule) Name() string      { return "url" }
func (urlModule) Deps() []string    { return []string{"webidl"} }
func (urlModule) Globals() []string { return []string{"URL", "URLSearchParams"} }
func (urlModule) Ops() []string     { return nil }

func (urlModule) Install(env *Env) error {
	if env.Registry == nil {
		return errors.New("require registry is not enabled")
	}
	url.Enable(env.VM)
	return nil
}
