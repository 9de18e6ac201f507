package modules

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dop251/goja"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

type webIDLModule struct{}

// NewWebIDL returns the text encoding module: TextEncoder and TextDecoder.
func NewWebIDL() Module {
	return webIDLModule{}
}

func (webIDLModule) Name() string      { return "webidl" }
func (webIDLModule) Deps() []string    { return []string{"console"} }
func (webIDLModule) Globals() []string { return []string{"TextEncoder", "TextDecoder"} }
func (webIDLModule) Ops() []string     { return nil }

func (webIDLModule) Install(env *Env) error {
	vm := env.VM
	if err := vm.Set("TextEncoder", func(call goja.ConstructorCall) *goja.Object {
		_ = call.This.Set("encoding", "utf-8")
		_ = call.This.Set("encode", func(c goja.FunctionCall) goja.Value {
			s := ""
			if arg := c.Argument(0); !goja.IsUndefined(arg) {
				s = arg.String()
			}
			arr, err := newUint8Array(vm, []byte(s))
			if err != nil {
				throw(vm, err)
			}
			return arr
		})
		return nil
	}); err != nil {
		return err
	}

	return vm.Set("TextDecoder", func(call goja.ConstructorCall) *goja.Object {
		label := "utf-8"
		if arg := call.Argument(0); !goja.IsUndefined(arg) {
			label = arg.String()
		}
		dec, err := newTextDecoder(label)
		if err != nil {
			panic(rangeError(vm, err.Error()))
		}
		if v := option(vm, call.Argument(1), "fatal"); v != nil {
			dec.fatal = v.ToBoolean()
		}
		if v := option(vm, call.Argument(1), "ignoreBOM"); v != nil {
			dec.ignoreBOM = v.ToBoolean()
		}

		_ = call.This.Set("encoding", dec.name)
		_ = call.This.Set("fatal", dec.fatal)
		_ = call.This.Set("ignoreBOM", dec.ignoreBOM)
		_ = call.This.Set("decode", func(c goja.FunctionCall) goja.Value {
			arg := c.Argument(0)
			if goja.IsUndefined(arg) {
				return vm.ToValue("")
			}
			b, ok := bufferSource(arg)
			if !ok {
				panic(vm.NewTypeError("The provided value is not of type '(ArrayBuffer or ArrayBufferView)'"))
			}
			s, err := dec.decode(b)
			if err != nil {
				panic(vm.NewTypeError(err.Error()))
			}
			return vm.ToValue(s)
		})
		return nil
	})
}

type textDecoder struct {
	name      string
	enc       encoding.Encoding
	fatal     bool
	ignoreBOM bool
}

func newTextDecoder(label string) (*textDecoder, error) {
	enc, err := htmlindex.Get(strings.TrimSpace(label))
	if err != nil {
		return nil, fmt.Errorf("the encoding label provided ('%s') is invalid", label)
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		return nil, fmt.Errorf("the encoding label provided ('%s') is invalid", label)
	}
	return &textDecoder{name: name, enc: enc}, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func (d *textDecoder) decode(b []byte) (string, error) {
	if d.name == "utf-8" {
		if !d.ignoreBOM {
			b = bytes.TrimPrefix(b, utf8BOM)
		}
		if d.fatal && !utf8.Valid(b) {
			return "", fmt.Errorf("the encoded data was not valid for encoding %s", d.name)
		}
	}

	out, err := d.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("the encoded data was not valid for encoding %s", d.name)
	}
	s := string(out)
	if !d.ignoreBOM && strings.HasPrefix(d.name, "utf-16") {
		s = strings.TrimPrefix(s, "\uFEFF")
	}
	return s, nil
}
