package modules

import (
	"math"
	"time"

	"github.com/dop251/goja"

	"github.com/tx7do/flubber/ops"
)

const (
	// NowOpName returns milliseconds since the runtime origin.
	NowOpName = "op_now"
	// LoopStatsOpName snapshots pending event loop work.
	LoopStatsOpName = "op_loop_stats"
	// LoopStatsExport is the script name of the loop stats op.
	LoopStatsExport = "loopStats"

	// maxTimerDelayMs is the largest timer delay, the maximum signed 32-bit
	// integer. Larger delays run as soon as possible.
	maxTimerDelayMs = math.MaxInt32

	// reducedPrecision is the resolution of performance.now() when high
	// resolution time is not allowed.
	reducedPrecision = 2 * time.Millisecond
)

type webModule struct{}

// NewWeb returns the web platform module: timers, queueMicrotask,
// performance, Blob with object URLs, EventTarget and Event.
func NewWeb() Module {
	return webModule{}
}

func (webModule) Name() string   { return "web" }
func (webModule) Deps() []string { return []string{"url"} }

func (webModule) Globals() []string {
	return []string{
		"setTimeout", "setInterval", "clearTimeout", "clearInterval",
		"queueMicrotask", "performance", "Blob", "EventTarget", "Event",
	}
}

func (webModule) Ops() []string { return []string{NowOpName, LoopStatsOpName} }

func (m webModule) Install(env *Env) error {
	vm := env.VM

	if err := env.Ops.Register(ops.Op{
		Name: NowOpName,
		Sync: true,
		Handler: func(ops.Args) (any, error) {
			elapsed := time.Since(env.Origin)
			if !env.Gate.AllowHRTime() {
				elapsed = elapsed.Truncate(reducedPrecision)
			}
			return float64(elapsed.Nanoseconds()) / float64(time.Millisecond), nil
		},
	}); err != nil {
		return err
	}
	if err := env.Ops.Register(ops.Op{
		Name:     LoopStatsOpName,
		Export:   LoopStatsExport,
		Sync:     true,
		Unstable: true,
		Handler: func(args ops.Args) (any, error) {
			s := env.Loop.Stats()
			obj := args.Runtime().NewObject()
			_ = obj.Set("ready", s.Ready)
			_ = obj.Set("timers", s.Timers)
			_ = obj.Set("outstanding", s.Outstanding)
			return obj, nil
		},
	}); err != nil {
		return err
	}

	t := &timers{env: env}
	bindings := map[string]any{
		"setTimeout":     t.set(false),
		"setInterval":    t.set(true),
		"clearTimeout":   t.clear,
		"clearInterval":  t.clear,
		"queueMicrotask": m.queueMicrotask(vm),
		"performance":    m.performance(env),
		"Blob":           blobConstructor(vm),
		"EventTarget":    eventTargetConstructor(vm, env.Logger),
		"Event":          eventConstructor(vm),
	}
	for _, name := range m.Globals() {
		if err := vm.Set(name, bindings[name]); err != nil {
			return err
		}
	}

	return m.installObjectURLs(env)
}

type timers struct {
	env *Env
}

func (t *timers) set(repeat bool) func(goja.FunctionCall) goja.Value {
	vm := t.env.VM
	return func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(vm.NewTypeError("Callback must be a function"))
		}
		var delay time.Duration
		if v := call.Argument(1); !goja.IsUndefined(v) {
			delay = timerDelay(v.ToFloat())
		}
		var args []goja.Value
		if len(call.Arguments) > 2 {
			args = append(args, call.Arguments[2:]...)
		}

		id := t.env.Loop.SetTimer(delay, repeat, func(*goja.Runtime) error {
			_, err := fn(goja.Undefined(), args...)
			return err
		})
		return vm.ToValue(id)
	}
}

// timerDelay converts a script delay in milliseconds. NaN, infinities,
// negative values and values above maxTimerDelayMs become zero.
func timerDelay(ms float64) time.Duration {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms <= 0 || ms > maxTimerDelayMs {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}

func (t *timers) clear(call goja.FunctionCall) goja.Value {
	if v := call.Argument(0); !goja.IsUndefined(v) && !goja.IsNull(v) {
		t.env.Loop.ClearTimer(v.ToInteger())
	}
	return goja.Undefined()
}

func (webModule) queueMicrotask(vm *goja.Runtime) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		fn := call.Argument(0)
		if _, ok := goja.AssertFunction(fn); !ok {
			panic(vm.NewTypeError("Callback must be a function"))
		}
		p, resolve, _ := vm.NewPromise()
		resolve(goja.Undefined())
		then, _ := goja.AssertFunction(vm.ToValue(p).ToObject(vm).Get("then"))
		if _, err := then(vm.ToValue(p), fn); err != nil {
			throw(vm, err)
		}
		return goja.Undefined()
	}
}

func (webModule) performance(env *Env) *goja.Object {
	vm := env.VM
	perf := vm.NewObject()
	_ = perf.Set("timeOrigin", float64(env.Origin.UnixNano())/float64(time.Millisecond))
	_ = perf.Set("now", func(call goja.FunctionCall) goja.Value {
		res, err := env.Ops.Invoke(NowOpName, ops.NewArgs(vm))
		if err != nil {
			panic(ops.ScriptError(vm, err))
		}
		return vm.ToValue(res)
	})
	return perf
}

// installObjectURLs adds URL.createObjectURL and URL.revokeObjectURL.
func (webModule) installObjectURLs(env *Env) error {
	vm := env.VM
	ctor := vm.Get("URL")
	if ctor == nil {
		return errNoURL
	}
	u := ctor.ToObject(vm)

	if err := u.Set("createObjectURL", func(call goja.FunctionCall) goja.Value {
		part, ok := blobData(vm, call.Argument(0))
		if !ok {
			panic(vm.NewTypeError("Argument must be a Blob"))
		}
		id, err := env.Blobs.Insert(*part)
		if err != nil {
			throw(vm, err)
		}
		return vm.ToValue(id)
	}); err != nil {
		return err
	}
	return u.Set("revokeObjectURL", func(call goja.FunctionCall) goja.Value {
		env.Blobs.Remove(call.Argument(0).String())
		return goja.Undefined()
	})
}
