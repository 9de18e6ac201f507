package modules

import (
	"errors"

	"github.com/dop251/goja"
)

// newUint8Array copies b into a fresh Uint8Array.
func newUint8Array(vm *goja.Runtime, b []byte) (*goja.Object, error) {
	buf := make([]byte, len(b))
	copy(buf, b)
	return vm.New(vm.Get("Uint8Array"), vm.ToValue(vm.NewArrayBuffer(buf)))
}

// bufferSource extracts the bytes of an ArrayBuffer or typed array argument.
func bufferSource(v goja.Value) ([]byte, bool) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, false
	}
	switch b := v.Export().(type) {
	case goja.ArrayBuffer:
		return b.Bytes(), true
	case []byte:
		return b, true
	}
	return nil, false
}

// throw raises err in script code as an exception.
func throw(vm *goja.Runtime, err error) {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		panic(ex.Value())
	}
	panic(vm.NewGoError(err))
}

// resolved returns a promise already fulfilled with v.
func resolved(vm *goja.Runtime, v any) goja.Value {
	p, resolve, _ := vm.NewPromise()
	resolve(v)
	return vm.ToValue(p)
}

// rejected returns a promise already rejected with reason.
func rejected(vm *goja.Runtime, reason any) goja.Value {
	p, _, reject := vm.NewPromise()
	reject(reason)
	return vm.ToValue(p)
}

// option reads a property of an optional dictionary argument.
func option(vm *goja.Runtime, dict goja.Value, name string) goja.Value {
	if dict == nil || goja.IsUndefined(dict) || goja.IsNull(dict) {
		return nil
	}
	v := dict.ToObject(vm).Get(name)
	if v == nil || goja.IsUndefined(v) {
		return nil
	}
	return v
}

// defineMethods attaches Go functions as methods of obj.
func defineMethods(obj *goja.Object, methods map[string]func(goja.FunctionCall) goja.Value) {
	for name, fn := range methods {
		_ = obj.Set(name, fn)
	}
}

// rangeError builds a RangeError instance.
func rangeError(vm *goja.Runtime, msg string) goja.Value {
	obj, err := vm.New(vm.Get("RangeError"), vm.ToValue(msg))
	if err != nil {
		return vm.NewGoError(errors.New(msg))
	}
	return obj
}
