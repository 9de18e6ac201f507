package ops

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dop251/goja"

	"github.com/tx7do/flubber"
	"github.com/tx7do/flubber/permissions"
)

// Registry maps op names to host handlers.
//
// Registration happens while the runtime is constructed; after that the
// registry is only read, from the loop goroutine.
type Registry struct {
	mu    sync.RWMutex
	ops   map[string]*Op
	order []string

	gate   permissions.Gate
	logger *slog.Logger
}

// NewRegistry creates an empty registry. The gate is consulted for ops marked unstable.
func NewRegistry(gate permissions.Gate, logger *slog.Logger) *Registry {
	if gate == nil {
		gate = permissions.AllowAll{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		ops:    make(map[string]*Op),
		gate:   gate,
		logger: logger,
	}
}

// Register adds an op. It fails if the name is already registered.
func (r *Registry) Register(op Op) error {
	if op.Name == "" || op.Handler == nil {
		return fmt.Errorf("%w: name and handler are required", ErrInvalidOp)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ops[op.Name]; ok {
		return fmt.Errorf("%w: %s", ErrOpAlreadyRegistered, op.Name)
	}
	r.ops[op.Name] = &op
	r.order = append(r.order, op.Name)
	return nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ops[name]
	return ok
}

// Get returns the op registered under name.
func (r *Registry) Get(name string) (Op, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	if !ok {
		return Op{}, false
	}
	return *op, true
}

// List returns op names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]string, len(r.order))
	copy(res, r.order)
	return res
}

// Invoke calls the named op synchronously. Handler panics are recovered and
// every handler failure comes back as *flubber.OpInvocationError.
func (r *Registry) Invoke(name string, args Args) (result any, err error) {
	r.mu.RLock()
	op, ok := r.ops[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &flubber.OpInvocationError{Op: name, Cause: ErrOpNotFound}
	}

	if op.Unstable {
		r.gate.CheckUnstable(op.Export)
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = &flubber.OpInvocationError{Op: name, Cause: fmt.Errorf("panic: %v", rec)}
		}
	}()

	res, hErr := op.Handler(args)
	if hErr != nil {
		return nil, &flubber.OpInvocationError{Op: name, Cause: hErr}
	}
	return res, nil
}

// Bind exposes every exported op as a function on the global namespace object.
func (r *Registry) Bind(vm *goja.Runtime, namespace string) error {
	ns := vm.GlobalObject().Get(namespace)
	var obj *goja.Object
	if ns == nil || goja.IsUndefined(ns) {
		obj = vm.NewObject()
		if err := vm.Set(namespace, obj); err != nil {
			return err
		}
	} else {
		obj = ns.ToObject(vm)
	}

	for _, name := range r.List() {
		op, _ := r.Get(name)
		if op.Export == "" {
			continue
		}
		if existing := obj.Get(op.Export); existing != nil {
			return fmt.Errorf("%w: %s.%s is already defined", ErrOpAlreadyRegistered, namespace, op.Export)
		}
		if err := obj.Set(op.Export, r.dispatcher(vm, op)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) dispatcher(vm *goja.Runtime, op Op) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		res, err := r.Invoke(op.Name, NewArgs(vm, call.Arguments...))
		if err != nil {
			if op.OnError == LogAndContinue {
				r.logger.Warn("Op failed", "op", op.Name, "error", err)
				return goja.Undefined()
			}
			panic(ScriptError(vm, err))
		}
		if res == nil {
			return goja.Undefined()
		}
		if v, ok := res.(goja.Value); ok {
			return v
		}
		return vm.ToValue(res)
	}
}
