package flubber

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPermissionDenied 权限检查未通过
	ErrPermissionDenied = errors.New("permission denied")

	// ErrModuleInstallation 内置模块安装失败
	ErrModuleInstallation = errors.New("module installation failed")

	// ErrOpInvocation 原生 op 调用失败
	ErrOpInvocation = errors.New("op invocation failed")

	// ErrScript 脚本抛出了未捕获的异常
	ErrScript = errors.New("uncaught script error")
)

// PermissionError is returned by a permission gate when a capability check fails.
type PermissionError struct {
	// Kind is the capability kind: "net", "read", "hrtime" or "unstable".
	Kind string
	// Target is the URL or path the check was made for.
	Target string
	// API is the script API that requested the capability, e.g. "fetch()".
	API string
}

func (e *PermissionError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("requires %s access for %s", e.Kind, e.API)
	}
	return fmt.Sprintf("requires %s access to %q for %s", e.Kind, e.Target, e.API)
}

func (e *PermissionError) Unwrap() error {
	return ErrPermissionDenied
}

// ScriptError describes an uncaught exception raised by hosted script code,
// either at top level or inside a continuation run by the event loop.
type ScriptError struct {
	Message string
	File    string
	Line    int
	Column  int
	Stack   string
	Cause   error
}

func (e *ScriptError) Error() string {
	var sb strings.Builder
	sb.WriteString("Uncaught ")
	sb.WriteString(e.Message)
	if e.File != "" {
		fmt.Fprintf(&sb, " at %s", e.File)
		if e.Line > 0 {
			fmt.Fprintf(&sb, ":%d:%d", e.Line, e.Column)
		}
	}
	return sb.String()
}

func (e *ScriptError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrScript}
	}
	return []error{ErrScript, e.Cause}
}

// ModuleInstallationError is raised while wiring the built-in module set:
// a missing prerequisite or a name collision.
type ModuleInstallationError struct {
	Module string
	// Missing lists prerequisite modules that were not installed yet.
	Missing []string
	// Collision is the global or op name that was already taken.
	Collision string
	Cause     error
}

func (e *ModuleInstallationError) Error() string {
	switch {
	case len(e.Missing) > 0:
		return fmt.Sprintf("module %q: missing prerequisites: %s", e.Module, strings.Join(e.Missing, ", "))
	case e.Collision != "":
		return fmt.Sprintf("module %q: name %q is already defined", e.Module, e.Collision)
	case e.Cause != nil:
		return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
	default:
		return fmt.Sprintf("module %q: installation failed", e.Module)
	}
}

func (e *ModuleInstallationError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrModuleInstallation}
	}
	return []error{ErrModuleInstallation, e.Cause}
}

// OpInvocationError wraps a failure inside a native op handler. It never
// crosses into script code unconverted.
type OpInvocationError struct {
	Op    string
	Cause error
}

func (e *OpInvocationError) Error() string {
	return fmt.Sprintf("op %s: %v", e.Op, e.Cause)
}

func (e *OpInvocationError) Unwrap() []error {
	return []error{ErrOpInvocation, e.Cause}
}
