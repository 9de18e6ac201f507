package modules

import (
	"errors"
	"log/slog"
	"time"

	"github.com/dop251/goja"
)

type listener struct {
	fn    goja.Value
	call  goja.Callable
	once  bool
	alive bool
}

func eventConstructor(vm *goja.Runtime) func(goja.ConstructorCall) *goja.Object {
	return func(call goja.ConstructorCall) *goja.Object {
		if goja.IsUndefined(call.Argument(0)) {
			panic(vm.NewTypeError("Event type is required"))
		}
		ev := call.This
		cancelable := false
		if v := option(vm, call.Argument(1), "cancelable"); v != nil {
			cancelable = v.ToBoolean()
		}
		_ = ev.Set("type", call.Argument(0).String())
		_ = ev.Set("cancelable", cancelable)
		_ = ev.Set("defaultPrevented", false)
		_ = ev.Set("target", goja.Null())
		_ = ev.Set("timeStamp", float64(time.Now().UnixNano())/float64(time.Millisecond))
		_ = ev.Set("preventDefault", func(goja.FunctionCall) goja.Value {
			if ev.Get("cancelable").ToBoolean() {
				_ = ev.Set("defaultPrevented", true)
			}
			return goja.Undefined()
		})
		return nil
	}
}

// eventTargetConstructor builds EventTarget. A listener that throws is
// reported on logger and the remaining listeners still run.
func eventTargetConstructor(vm *goja.Runtime, logger *slog.Logger) func(goja.ConstructorCall) *goja.Object {
	if logger == nil {
		logger = slog.Default()
	}
	return func(call goja.ConstructorCall) *goja.Object {
		target := call.This
		listeners := make(map[string][]*listener)

		defineMethods(target, map[string]func(goja.FunctionCall) goja.Value{
			"addEventListener": func(c goja.FunctionCall) goja.Value {
				typ := c.Argument(0).String()
				fn := c.Argument(1)
				cb, ok := goja.AssertFunction(fn)
				if !ok {
					return goja.Undefined()
				}
				for _, l := range listeners[typ] {
					if l.fn.SameAs(fn) {
						return goja.Undefined()
					}
				}
				once := false
				if v := option(vm, c.Argument(2), "once"); v != nil {
					once = v.ToBoolean()
				}
				listeners[typ] = append(listeners[typ], &listener{fn: fn, call: cb, once: once, alive: true})
				return goja.Undefined()
			},
			"removeEventListener": func(c goja.FunctionCall) goja.Value {
				typ := c.Argument(0).String()
				fn := c.Argument(1)
				list := listeners[typ]
				for i, l := range list {
					if l.fn.SameAs(fn) {
						l.alive = false
						listeners[typ] = append(list[:i:i], list[i+1:]...)
						break
					}
				}
				return goja.Undefined()
			},
			"dispatchEvent": func(c goja.FunctionCall) goja.Value {
				ev, ok := c.Argument(0).(*goja.Object)
				if !ok || ev.Get("type") == nil {
					panic(vm.NewTypeError("Argument must be an Event"))
				}
				typ := ev.Get("type").String()
				_ = ev.Set("target", target)
				_ = ev.Set("currentTarget", target)

				snapshot := append([]*listener(nil), listeners[typ]...)
				for _, l := range snapshot {
					if !l.alive {
						continue
					}
					if l.once {
						l.alive = false
						remaining := listeners[typ][:0:0]
						for _, other := range listeners[typ] {
							if other != l {
								remaining = append(remaining, other)
							}
						}
						listeners[typ] = remaining
					}
					if _, err := l.call(target, ev); err != nil {
						var interrupted *goja.InterruptedError
						if errors.As(err, &interrupted) {
							panic(interrupted)
						}
						logger.Error("Uncaught exception in event listener", "type", typ, "error", err)
					}
				}
				return vm.ToValue(!ev.Get("defaultPrevented").ToBoolean())
			},
		})
		return nil
	}
}
