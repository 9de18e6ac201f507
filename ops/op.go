// Package ops holds the native op registry: host functions that script code
// calls synchronously through bound functions.
package ops

// ErrorPolicy decides what happens to a handler failure at the op boundary.
type ErrorPolicy int

const (
	// ThrowToScript converts the failure into a script exception.
	ThrowToScript ErrorPolicy = iota
	// LogAndContinue logs the failure and returns undefined to the script.
	LogAndContinue
)

func (p ErrorPolicy) String() string {
	switch p {
	case ThrowToScript:
		return "throw"
	case LogAndContinue:
		return "log"
	default:
		return "unknown"
	}
}

// Handler is the host side of an op. A nil result is returned to script
// code as undefined.
type Handler func(args Args) (any, error)

// Op describes a native function callable from script code.
type Op struct {
	// Name is unique across the registry, e.g. "op_print".
	Name string
	// Export is the script-visible name under the runtime namespace.
	// Ops without an export are only reachable from module code.
	Export string
	// Handler runs on the loop goroutine and must complete before the
	// calling script frame continues.
	Handler Handler
	// Sync is false when the handler returns a future-like value.
	Sync bool
	// Unstable ops consult the permission gate's unstable API check on every call.
	Unstable bool
	OnError  ErrorPolicy
}
