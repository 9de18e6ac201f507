package modules

import (
	"strings"

	"github.com/dop251/goja"
)

var blobKey = goja.NewSymbol("flubber.blob")

// blobData returns the payload of a Blob instance.
func blobData(vm *goja.Runtime, v goja.Value) (*BlobPart, bool) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, false
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, false
	}
	data := obj.GetSymbol(blobKey)
	if data == nil {
		return nil, false
	}
	part, ok := data.Export().(*BlobPart)
	return part, ok
}

// newBlob creates a Blob instance through the global constructor.
func newBlob(vm *goja.Runtime, data []byte, typ string) (*goja.Object, error) {
	arr, err := newUint8Array(vm, data)
	if err != nil {
		return nil, err
	}
	opts := vm.NewObject()
	_ = opts.Set("type", typ)
	return vm.New(vm.Get("Blob"), vm.NewArray(arr), opts)
}

func blobConstructor(vm *goja.Runtime) func(goja.ConstructorCall) *goja.Object {
	return func(call goja.ConstructorCall) *goja.Object {
		var buf []byte
		if parts := call.Argument(0); !goja.IsUndefined(parts) && !goja.IsNull(parts) {
			var list []goja.Value
			if err := vm.ExportTo(parts, &list); err != nil {
				panic(vm.NewTypeError("Blob parts must be a sequence"))
			}
			for _, p := range list {
				if b, ok := bufferSource(p); ok {
					buf = append(buf, b...)
					continue
				}
				if inner, ok := blobData(vm, p); ok {
					buf = append(buf, inner.Data...)
					continue
				}
				buf = append(buf, p.String()...)
			}
		}
		typ := ""
		if v := option(vm, call.Argument(1), "type"); v != nil {
			typ = strings.ToLower(v.String())
		}
		initBlob(vm, call.This, &BlobPart{Data: buf, Type: typ})
		return nil
	}
}

func initBlob(vm *goja.Runtime, obj *goja.Object, part *BlobPart) {
	_ = obj.DefineDataPropertySymbol(blobKey, vm.ToValue(part), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)
	_ = obj.Set("size", len(part.Data))
	_ = obj.Set("type", part.Type)

	defineMethods(obj, map[string]func(goja.FunctionCall) goja.Value{
		"text": func(goja.FunctionCall) goja.Value {
			return resolved(vm, string(part.Data))
		},
		"arrayBuffer": func(goja.FunctionCall) goja.Value {
			buf := make([]byte, len(part.Data))
			copy(buf, part.Data)
			return resolved(vm, vm.NewArrayBuffer(buf))
		},
		"bytes": func(goja.FunctionCall) goja.Value {
			arr, err := newUint8Array(vm, part.Data)
			if err != nil {
				return rejected(vm, vm.NewGoError(err))
			}
			return resolved(vm, arr)
		},
		"slice": func(c goja.FunctionCall) goja.Value {
			size := int64(len(part.Data))
			start := relativeIndex(c.Argument(0), 0, size)
			end := relativeIndex(c.Argument(1), size, size)
			if end < start {
				end = start
			}
			typ := ""
			if v := c.Argument(2); !goja.IsUndefined(v) {
				typ = strings.ToLower(v.String())
			}
			sliced, err := newBlob(vm, part.Data[start:end], typ)
			if err != nil {
				throw(vm, err)
			}
			return sliced
		},
	})
}

// relativeIndex resolves a Blob.slice bound; negative values count from the end.
func relativeIndex(v goja.Value, def, size int64) int64 {
	if goja.IsUndefined(v) {
		return def
	}
	i := v.ToInteger()
	if i < 0 {
		i += size
		if i < 0 {
			i = 0
		}
	}
	if i > size {
		i = size
	}
	return i
}
