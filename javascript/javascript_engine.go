package js

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja/parser"
	"github.com/dop251/goja_nodejs/require"
	"github.com/gofrs/uuid/v5"
	"github.com/robbyt/go-fsm"

	"github.com/tx7do/flubber"
	"github.com/tx7do/flubber/eventloop"
	"github.com/tx7do/flubber/modules"
	"github.com/tx7do/flubber/ops"
	"github.com/tx7do/flubber/permissions"
)

// DefaultNamespace 原生 op 在脚本中的命名空间
const DefaultNamespace = "Flubber"

// Options 运行时构造参数
type Options struct {
	// Gate 权限检查，为空时使用 permissions.AllowAll
	Gate permissions.Gate
	// Modules 内置模块集合，为空时使用 modules.Default(ModuleOptions)
	Modules       *modules.Set
	ModuleOptions modules.Options
	// PrintSink 接收 Flubber.print 的输出，为空时写入 Logger
	PrintSink ops.Sink
	// Ops 额外注册的 op，与内置 op 一同绑定到命名空间
	Ops       []ops.Op
	Namespace string
	Logger    *slog.Logger
}

// Runtime JavaScript 脚本运行时实现
//
// 锁使用约定：
// - `execMu` 保护 vm 和事件循环，同一时刻只有一个调用方执行脚本。
// - `lastErrorMu` 只保护 lastError，可以在持有 `execMu` 时获取。
type Runtime struct {
	id        string
	vm        *goja.Runtime
	registry  *require.Registry
	loop      *eventloop.Loop
	ops       *ops.Registry
	gate      permissions.Gate
	modules   *modules.Set
	blobs     *modules.BlobStore
	machine   *fsm.Machine
	logger    *slog.Logger
	namespace string

	// rejected 尚未被处理的 promise 拒绝，按发生顺序
	rejected []*goja.Promise

	closed    bool
	lastError error

	execMu      sync.Mutex
	lastErrorMu sync.RWMutex
}

var _ flubber.Engine = (*Runtime)(nil)

// New 创建运行时：安装内置模块、注册 op 并绑定到命名空间
func New(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gate := opts.Gate
	if gate == nil {
		gate = permissions.AllowAll{}
	}
	set := opts.Modules
	if set == nil {
		set = modules.Default(opts.ModuleOptions)
	}
	namespace := opts.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	logger = logger.With("runtime", id.String())

	machine, err := fsm.New(logger.With("component", "fsm").Handler(), flubber.StateConstructed, flubber.StateTransitions)
	if err != nil {
		return nil, fmt.Errorf("state machine: %w", err)
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	registry := require.NewRegistry()
	registry.Enable(vm)

	r := &Runtime{
		id:        id.String(),
		vm:        vm,
		registry:  registry,
		loop:      eventloop.New(vm, logger.With("component", "eventloop")),
		ops:       ops.NewRegistry(gate, logger.With("component", "ops")),
		gate:      gate,
		modules:   set,
		blobs:     modules.NewBlobStore(),
		machine:   machine,
		logger:    logger,
		namespace: namespace,
	}
	vm.SetPromiseRejectionTracker(r.trackRejection)

	sink := opts.PrintSink
	if sink == nil {
		sink = ops.LoggerSink{Logger: logger}
	}
	for _, op := range append([]ops.Op{ops.NewPrintOp(sink)}, opts.Ops...) {
		if err := r.ops.Register(op); err != nil {
			r.loop.Close()
			return nil, &flubber.ModuleInstallationError{Module: "runtime", Collision: op.Name, Cause: err}
		}
	}

	env := &modules.Env{
		VM:       vm,
		Registry: registry,
		Gate:     gate,
		Ops:      r.ops,
		Loop:     r.loop,
		Blobs:    r.blobs,
		Logger:   logger.With("component", "modules"),
		Origin:   time.Now(),
	}
	if err := set.Install(env); err != nil {
		r.loop.Close()
		return nil, err
	}
	if err := r.ops.Bind(vm, namespace); err != nil {
		r.loop.Close()
		return nil, &flubber.ModuleInstallationError{Module: "runtime", Cause: err}
	}

	logger.Debug("Runtime constructed", "modules", set.Names(), "ops", r.ops.List())
	return r, nil
}

func (r *Runtime) GetType() flubber.Type {
	return flubber.JavaScriptType
}

// ID 运行时实例标识
func (r *Runtime) ID() string {
	return r.id
}

// State 当前生命周期状态
func (r *Runtime) State() flubber.State {
	return r.machine.GetState()
}

// Ops 运行时的 op 注册表
func (r *Runtime) Ops() *ops.Registry {
	return r.ops
}

// Close 关闭运行时，丢弃所有未完成的任务
func (r *Runtime) Close() error {
	r.execMu.Lock()
	defer r.execMu.Unlock()

	if r.closed {
		r.setLastError(ErrRuntimeClosed)
		return ErrRuntimeClosed
	}
	r.closed = true
	r.loop.Close()
	r.rejected = nil

	r.ClearError()
	return nil
}

// ExecuteEntry 编译并执行入口脚本的顶层代码
func (r *Runtime) ExecuteEntry(ctx context.Context, source, label string) error {
	err := r.withRuntime(ctx, func(vm *goja.Runtime) error {
		if r.State() != flubber.StateConstructed {
			return ErrEntryAlreadyExecuted
		}

		program, err := compileEntry(label, source)
		if err != nil {
			if tErr := r.machine.Transition(flubber.StateEntryExecuted); tErr != nil {
				return errors.Join(err, tErr)
			}
			r.fault()
			return err
		}

		_, runErr := vm.RunProgram(program)
		if tErr := r.machine.Transition(flubber.StateEntryExecuted); tErr != nil {
			return tErr
		}
		if runErr != nil {
			r.fault()
			return r.scriptError(ctx, runErr)
		}
		return nil
	})
	if err != nil {
		r.setLastError(err)
		return err
	}

	r.ClearError()
	return nil
}

// ExecuteEntryFile 读取并执行入口脚本文件
func (r *Runtime) ExecuteEntryFile(ctx context.Context, filePath string) error {
	source, err := os.ReadFile(filePath)
	if err != nil {
		r.setLastError(err)
		return err
	}
	return r.ExecuteEntry(ctx, string(source), filePath)
}

// ExecuteEntryReader 从 Reader 读取并执行入口脚本
func (r *Runtime) ExecuteEntryReader(ctx context.Context, reader io.Reader, label string) error {
	source, err := io.ReadAll(reader)
	if err != nil {
		r.setLastError(err)
		return err
	}
	return r.ExecuteEntry(ctx, string(source), label)
}

// DrainEventLoop 运行所有排队的续体，直到没有就绪、定时或进行中的工作。
// 已排空且没有新工作的运行时再次排空时返回零轮次；
// 排空后（例如经 CallFunction）新调度的工作会被再次排空。
func (r *Runtime) DrainEventLoop(ctx context.Context) (flubber.DrainStats, error) {
	var stats flubber.DrainStats
	err := r.withRuntime(ctx, func(*goja.Runtime) error {
		switch r.State() {
		case flubber.StateDrained:
			if r.loop.Idle() && len(r.rejected) == 0 {
				return nil
			}
		case flubber.StateFaulted:
			return ErrRuntimeFaulted
		case flubber.StateConstructed:
			return ErrEntryNotExecuted
		}

		if err := r.machine.Transition(flubber.StateDraining); err != nil {
			return err
		}

		var err error
		if err = r.checkRejections(); err == nil {
			stats, err = r.loop.Drain(ctx, r.checkRejections)
		}
		if err != nil {
			r.fault()
			r.logger.Error("Event loop drain failed", "error", err, "iterations", stats.Iterations)
			return r.scriptError(ctx, err)
		}

		r.logger.Debug("Event loop drained",
			"iterations", stats.Iterations,
			"continuations", stats.Continuations,
			"duration", stats.Duration)
		return r.machine.Transition(flubber.StateDrained)
	})
	if err != nil {
		r.setLastError(err)
		return stats, err
	}

	r.ClearError()
	return stats, nil
}

// LoopStats 事件循环的待处理工作快照
func (r *Runtime) LoopStats() flubber.LoopStats {
	r.execMu.Lock()
	defer r.execMu.Unlock()
	return r.loop.Stats()
}

// RegisterGlobal 注册全局变量
func (r *Runtime) RegisterGlobal(name string, value any) error {
	err := r.withRuntime(context.Background(), func(vm *goja.Runtime) error {
		return vm.Set(name, value)
	})
	if err != nil {
		r.setLastError(err)
		return err
	}

	r.ClearError()
	return nil
}

// GetGlobal 获取全局变量
func (r *Runtime) GetGlobal(name string) (any, error) {
	var result any
	err := r.withRuntime(context.Background(), func(vm *goja.Runtime) error {
		val := vm.Get(name)
		if val == nil {
			return fmt.Errorf("%w: %s", ErrGlobalNotFound, name)
		}
		result = val.Export()
		return nil
	})
	if err != nil {
		r.setLastError(err)
		return nil, err
	}

	r.ClearError()
	return result, nil
}

// CallFunction 调用全局函数。函数调度的续体留在事件循环中，由下一次排空运行。
func (r *Runtime) CallFunction(ctx context.Context, name string, args ...any) (any, error) {
	var result any
	err := r.withRuntime(ctx, func(vm *goja.Runtime) error {
		v := vm.Get(name)
		if v == nil {
			return fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
		}
		fn, ok := goja.AssertFunction(v)
		if !ok {
			return fmt.Errorf("%s is not a function", name)
		}

		vals := make([]goja.Value, len(args))
		for i, a := range args {
			vals[i] = vm.ToValue(a)
		}

		res, callErr := fn(goja.Undefined(), vals...)
		if callErr != nil {
			return r.scriptError(ctx, callErr)
		}
		if res != nil {
			result = res.Export()
		}
		return nil
	})
	if err != nil {
		r.setLastError(err)
		return nil, err
	}

	r.ClearError()
	return result, nil
}

// GetLastError 获取最后一个错误
func (r *Runtime) GetLastError() error {
	r.lastErrorMu.RLock()
	defer r.lastErrorMu.RUnlock()
	return r.lastError
}

func (r *Runtime) setLastError(err error) {
	r.lastErrorMu.Lock()
	defer r.lastErrorMu.Unlock()
	r.lastError = err
}

// ClearError 清除错误
func (r *Runtime) ClearError() {
	r.lastErrorMu.Lock()
	defer r.lastErrorMu.Unlock()
	r.lastError = nil
}

// withRuntime 在受保护的环境中使用 vm 执行函数。ctx 结束时中断正在运行的脚本。
func (r *Runtime) withRuntime(ctx context.Context, fn func(vm *goja.Runtime) error) (err error) {
	r.execMu.Lock()
	defer r.execMu.Unlock()
	if r.closed {
		return ErrRuntimeClosed
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-ctx.Done():
			r.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()
	defer func() {
		close(done)
		<-stopped
		r.vm.ClearInterrupt()
	}()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in javascript runtime: %v", rec)
		}
	}()
	return fn(r.vm)
}

func (r *Runtime) fault() {
	if err := r.machine.Transition(flubber.StateFaulted); err != nil {
		r.logger.Warn("Failed to enter faulted state", "error", err, "state", r.State())
	}
}

// trackRejection 记录没有处理函数的 promise 拒绝
func (r *Runtime) trackRejection(p *goja.Promise, op goja.PromiseRejectionOperation) {
	switch op {
	case goja.PromiseRejectionReject:
		r.rejected = append(r.rejected, p)
	case goja.PromiseRejectionHandle:
		for i, q := range r.rejected {
			if q == p {
				r.rejected = append(r.rejected[:i], r.rejected[i+1:]...)
				break
			}
		}
	}
}

// checkRejections 在每个续体之后运行；未处理的拒绝使排空失败
func (r *Runtime) checkRejections() error {
	if len(r.rejected) == 0 {
		return nil
	}
	p := r.rejected[0]
	r.rejected = nil

	reason := p.Result()
	se := &flubber.ScriptError{Message: "(in promise) " + valueString(reason)}
	if obj, ok := reason.(*goja.Object); ok {
		if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
			se.Stack = stack.String()
		}
	}
	return se
}

// scriptError 将 goja 的错误转换为 ScriptError，中断错误转换为 ctx 的错误
func (r *Runtime) scriptError(ctx context.Context, err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}

	var se *flubber.ScriptError
	if errors.As(err, &se) {
		return err
	}

	var ex *goja.Exception
	if !errors.As(err, &ex) {
		return err
	}

	se = &flubber.ScriptError{
		Message: valueString(ex.Value()),
		Stack:   ex.String(),
		Cause:   err,
	}
	for _, frame := range ex.Stack() {
		pos := frame.Position()
		if pos.Line > 0 {
			se.File = pos.Filename
			se.Line = pos.Line
			se.Column = pos.Column
			break
		}
	}
	return se
}

// compileEntry 解析并编译入口脚本；语法错误带有源码位置
func compileEntry(label, source string) (*goja.Program, error) {
	prg, err := parser.ParseFile(nil, label, source, 0)
	if err != nil {
		return nil, compileError(label, err)
	}
	program, err := goja.CompileAST(prg, false)
	if err != nil {
		return nil, compileError(label, err)
	}
	return program, nil
}

func compileError(label string, err error) error {
	se := &flubber.ScriptError{Message: err.Error(), File: label, Cause: err}

	var list parser.ErrorList
	var single *parser.Error
	var syntaxErr *goja.CompilerSyntaxError
	switch {
	case errors.As(err, &list) && len(list) > 0:
		single = list[0]
	case errors.As(err, &single):
	case errors.As(err, &syntaxErr):
		se.Message = "SyntaxError: " + syntaxErr.Message
		if syntaxErr.File != nil {
			pos := syntaxErr.File.Position(syntaxErr.Offset)
			se.Line = pos.Line
			se.Column = pos.Column
		}
		return se
	default:
		return se
	}

	se.Message = "SyntaxError: " + single.Message
	se.Line = single.Position.Line
	se.Column = single.Position.Column
	return se
}

func valueString(v goja.Value) string {
	if v == nil {
		return "undefined"
	}
	return v.String()
}
