package ops

import (
	"errors"

	"github.com/dop251/goja"

	"github.com/tx7do/flubber"
)

// PermissionDeniedName is the name property of script errors raised for a
// failed permission check.
const PermissionDeniedName = "PermissionDenied"

// ScriptError converts a host error into a value that can be thrown into, or
// used to reject a promise in, script code. Permission failures become
// errors named PermissionDenied and argument mismatches become TypeErrors.
func ScriptError(vm *goja.Runtime, err error) *goja.Object {
	var perr *flubber.PermissionError
	if errors.As(err, &perr) {
		obj := vm.NewGoError(perr)
		_ = obj.Set("name", PermissionDeniedName)
		return obj
	}

	var aerr *ArgumentError
	if errors.As(err, &aerr) {
		return vm.NewTypeError(err.Error())
	}

	var ex *goja.Exception
	if errors.As(err, &ex) {
		if obj, ok := ex.Value().(*goja.Object); ok {
			return obj
		}
	}

	obj := vm.NewGoError(err)
	_ = obj.Set("name", "Error")
	return obj
}
