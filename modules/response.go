package modules

import (
	"net/http"

	"github.com/dop251/goja"
)

// bodySource converts a BodyInit into bytes and the content type it implies.
func bodySource(vm *goja.Runtime, v goja.Value) ([]byte, string, bool) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, "", true
	}
	if b, ok := bufferSource(v); ok {
		return append([]byte(nil), b...), "", true
	}
	if part, ok := blobData(vm, v); ok {
		return append([]byte(nil), part.Data...), part.Type, true
	}
	if s, ok := v.Export().(string); ok {
		return []byte(s), "text/plain;charset=UTF-8", true
	}
	if obj, ok := v.(*goja.Object); ok {
		if params, ok := vm.Get("URLSearchParams").(*goja.Object); ok && vm.InstanceOf(obj, params) {
			return []byte(obj.String()), "application/x-www-form-urlencoded;charset=UTF-8", true
		}
	}
	return nil, "", false
}

func responseConstructor(vm *goja.Runtime) func(goja.ConstructorCall) *goja.Object {
	return func(call goja.ConstructorCall) *goja.Object {
		body, ctype, ok := bodySource(vm, call.Argument(0))
		if !ok {
			panic(vm.NewTypeError("Unsupported response body"))
		}

		status := 200
		if v := option(vm, call.Argument(1), "status"); v != nil {
			status = int(v.ToInteger())
		}
		if status < 200 || status > 599 {
			panic(rangeError(vm, "The status provided is outside the range [200, 599]"))
		}
		statusText := ""
		if v := option(vm, call.Argument(1), "statusText"); v != nil {
			statusText = v.String()
		}

		h := newHeaderList()
		if err := fillHeaders(vm, h, option(vm, call.Argument(1), "headers")); err != nil {
			panic(vm.NewTypeError(err.Error()))
		}
		if _, ok := h.get("content-type"); !ok && ctype != "" {
			_ = h.set("content-type", ctype)
		}

		initResponse(vm, call.This, &fetchResult{
			status:     status,
			statusText: statusText,
			headers:    h,
			body:       body,
		})
		return nil
	}
}

// newResponse builds a Response for a completed fetch.
func newResponse(vm *goja.Runtime, res *fetchResult) (*goja.Object, error) {
	obj, err := vm.New(vm.Get("Response"))
	if err != nil {
		return nil, err
	}
	initResponse(vm, obj, res)
	return obj, nil
}

func initResponse(vm *goja.Runtime, obj *goja.Object, res *fetchResult) {
	if res.statusText == "" && res.url != "" {
		res.statusText = http.StatusText(res.status)
	}
	headers, err := newHeadersObject(vm, res.headers)
	if err != nil {
		throw(vm, err)
	}

	_ = obj.Set("status", res.status)
	_ = obj.Set("statusText", res.statusText)
	_ = obj.Set("ok", res.status >= 200 && res.status <= 299)
	_ = obj.Set("url", res.url)
	_ = obj.Set("redirected", res.redirected)
	_ = obj.Set("headers", headers)

	used := false
	_ = obj.DefineAccessorProperty("bodyUsed", vm.ToValue(func(goja.FunctionCall) goja.Value {
		return vm.ToValue(used)
	}), nil, goja.FLAG_TRUE, goja.FLAG_TRUE)

	consume := func(read func([]byte) (goja.Value, error)) func(goja.FunctionCall) goja.Value {
		return func(goja.FunctionCall) goja.Value {
			if used {
				return rejected(vm, vm.NewTypeError("Body has already been consumed"))
			}
			used = true
			v, err := read(res.body)
			if err != nil {
				return rejected(vm, errorValue(vm, err))
			}
			return resolved(vm, v)
		}
	}

	defineMethods(obj, map[string]func(goja.FunctionCall) goja.Value{
		"text": consume(func(b []byte) (goja.Value, error) {
			return vm.ToValue(string(b)), nil
		}),
		"json": consume(func(b []byte) (goja.Value, error) {
			parse, _ := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("parse"))
			return parse(goja.Undefined(), vm.ToValue(string(b)))
		}),
		"arrayBuffer": consume(func(b []byte) (goja.Value, error) {
			return vm.ToValue(vm.NewArrayBuffer(append([]byte(nil), b...))), nil
		}),
		"bytes": consume(func(b []byte) (goja.Value, error) {
			return newUint8Array(vm, b)
		}),
		"blob": consume(func(b []byte) (goja.Value, error) {
			ctype, _ := res.headers.get("content-type")
			return newBlob(vm, b, ctype)
		}),
	})
}

// errorValue turns a Go error into a script value, unwrapping script exceptions.
func errorValue(vm *goja.Runtime, err error) goja.Value {
	if ex, ok := err.(*goja.Exception); ok {
		return ex.Value()
	}
	return vm.NewGoError(err)
}
