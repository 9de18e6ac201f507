package modules

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dop251/goja_nodejs/console"
)

type consoleModule struct {
	printer *consolePrinter
}

// NewConsole returns the console module. log, info and debug go to stdout,
// warn and error to stderr. Nil writers default to the process streams.
func NewConsole(stdout, stderr io.Writer) Module {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &consoleModule{printer: &consolePrinter{stdout: stdout, stderr: stderr}}
}

func (m *consoleModule) Name() string      { return "console" }
func (m *consoleModule) Deps() []string    { return nil }
func (m *consoleModule) Globals() []string { return []string{"console"} }
func (m *consoleModule) Ops() []string     { return nil }

func (m *consoleModule) Install(env *Env) error {
	if env.Registry == nil {
		return errors.New("require registry is not enabled")
	}
	env.Registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(m.printer))
	console.Enable(env.VM)
	return nil
}

// consolePrinter implements console.Printer on top of two writers.
type consolePrinter struct {
	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer
}

func (p *consolePrinter) Log(s string)   { p.print(p.stdout, s) }
func (p *consolePrinter) Warn(s string)  { p.print(p.stderr, s) }
func (p *consolePrinter) Error(s string) { p.print(p.stderr, s) }

func (p *consolePrinter) print(w io.Writer, s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(w, s)
}
