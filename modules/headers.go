package modules

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/dop251/goja"
	"golang.org/x/net/http/httpguts"
)

var headersKey = goja.NewSymbol("flubber.headers")

// headerList keeps header names lower-cased, in the shape fetch exposes them.
type headerList struct {
	values map[string][]string
}

func newHeaderList() *headerList {
	return &headerList{values: make(map[string][]string)}
}

func normalizeHeader(name, value string) (string, string, error) {
	if !httpguts.ValidHeaderFieldName(name) {
		return "", "", fmt.Errorf("invalid header name: %q", name)
	}
	value = strings.Trim(value, " \t\r\n")
	if !httpguts.ValidHeaderFieldValue(value) {
		return "", "", fmt.Errorf("invalid header value for %q", name)
	}
	return strings.ToLower(name), value, nil
}

func (h *headerList) append(name, value string) error {
	name, value, err := normalizeHeader(name, value)
	if err != nil {
		return err
	}
	h.values[name] = append(h.values[name], value)
	return nil
}

func (h *headerList) set(name, value string) error {
	name, value, err := normalizeHeader(name, value)
	if err != nil {
		return err
	}
	h.values[name] = []string{value}
	return nil
}

func (h *headerList) get(name string) (string, bool) {
	vals, ok := h.values[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	return strings.Join(vals, ", "), true
}

func (h *headerList) del(name string) {
	delete(h.values, strings.ToLower(name))
}

// sorted returns name/value pairs ordered by name, combined values joined.
func (h *headerList) sorted() [][2]string {
	names := make([]string, 0, len(h.values))
	for name := range h.values {
		names = append(names, name)
	}
	sort.Strings(names)
	res := make([][2]string, 0, len(names))
	for _, name := range names {
		v, _ := h.get(name)
		res = append(res, [2]string{name, v})
	}
	return res
}

func (h *headerList) clone() *headerList {
	c := newHeaderList()
	for k, v := range h.values {
		c.values[k] = append([]string(nil), v...)
	}
	return c
}

func (h *headerList) httpHeader() http.Header {
	out := make(http.Header, len(h.values))
	for k, v := range h.values {
		out[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
	}
	return out
}

func headerListFromHTTP(src http.Header) *headerList {
	h := newHeaderList()
	for k, v := range src {
		h.values[strings.ToLower(k)] = append([]string(nil), v...)
	}
	return h
}

func headersData(v goja.Value) (*headerList, bool) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, false
	}
	data := obj.GetSymbol(headersKey)
	if data == nil {
		return nil, false
	}
	h, ok := data.Export().(*headerList)
	return h, ok
}

// fillHeaders copies a HeadersInit (Headers, sequence of pairs or record) into h.
func fillHeaders(vm *goja.Runtime, h *headerList, init goja.Value) error {
	if init == nil || goja.IsUndefined(init) || goja.IsNull(init) {
		return nil
	}
	if other, ok := headersData(init); ok {
		for k, v := range other.values {
			h.values[k] = append(h.values[k], v...)
		}
		return nil
	}

	obj := init.ToObject(vm)
	if obj.ClassName() == "Array" {
		var pairs [][]string
		if err := vm.ExportTo(init, &pairs); err != nil {
			return fmt.Errorf("headers must be a sequence of name/value pairs")
		}
		for _, pair := range pairs {
			if len(pair) != 2 {
				return fmt.Errorf("header pairs must contain exactly two items")
			}
			if err := h.append(pair[0], pair[1]); err != nil {
				return err
			}
		}
		return nil
	}

	for _, key := range obj.Keys() {
		if err := h.append(key, obj.Get(key).String()); err != nil {
			return err
		}
	}
	return nil
}

func newHeadersObject(vm *goja.Runtime, h *headerList) (*goja.Object, error) {
	obj, err := vm.New(vm.Get("Headers"))
	if err != nil {
		return nil, err
	}
	own, _ := headersData(obj)
	own.values = h.values
	return obj, nil
}

func headersConstructor(vm *goja.Runtime) func(goja.ConstructorCall) *goja.Object {
	return func(call goja.ConstructorCall) *goja.Object {
		h := newHeaderList()
		if err := fillHeaders(vm, h, call.Argument(0)); err != nil {
			panic(vm.NewTypeError(err.Error()))
		}
		obj := call.This
		_ = obj.DefineDataPropertySymbol(headersKey, vm.ToValue(h), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)

		must := func(err error) {
			if err != nil {
				panic(vm.NewTypeError(err.Error()))
			}
		}
		defineMethods(obj, map[string]func(goja.FunctionCall) goja.Value{
			"append": func(c goja.FunctionCall) goja.Value {
				must(h.append(c.Argument(0).String(), c.Argument(1).String()))
				return goja.Undefined()
			},
			"set": func(c goja.FunctionCall) goja.Value {
				must(h.set(c.Argument(0).String(), c.Argument(1).String()))
				return goja.Undefined()
			},
			"get": func(c goja.FunctionCall) goja.Value {
				if v, ok := h.get(c.Argument(0).String()); ok {
					return vm.ToValue(v)
				}
				return goja.Null()
			},
			"has": func(c goja.FunctionCall) goja.Value {
				_, ok := h.get(c.Argument(0).String())
				return vm.ToValue(ok)
			},
			"delete": func(c goja.FunctionCall) goja.Value {
				h.del(c.Argument(0).String())
				return goja.Undefined()
			},
			"entries": func(goja.FunctionCall) goja.Value {
				pairs := h.sorted()
				items := make([]any, 0, len(pairs))
				for _, p := range pairs {
					items = append(items, vm.NewArray(p[0], p[1]))
				}
				return vm.NewArray(items...)
			},
			"forEach": func(c goja.FunctionCall) goja.Value {
				cb, ok := goja.AssertFunction(c.Argument(0))
				if !ok {
					panic(vm.NewTypeError("Callback must be a function"))
				}
				for _, p := range h.sorted() {
					if _, err := cb(c.Argument(1), vm.ToValue(p[1]), vm.ToValue(p[0]), obj); err != nil {
						throw(vm, err)
					}
				}
				return goja.Undefined()
			},
		})
		return nil
	}
}
