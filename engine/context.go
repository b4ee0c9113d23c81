package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	scriptruntime "github.com/wippyai/script-runtime"
	"github.com/wippyai/script-runtime/errors"
)

type ctxKeyContext struct{}

func withContext(ctx context.Context, c *Context) context.Context {
	return context.WithValue(ctx, ctxKeyContext{}, c)
}

func contextFrom(ctx context.Context) *Context {
	if v := ctx.Value(ctxKeyContext{}); v != nil {
		return v.(*Context)
	}
	return nil
}

// Context is an execution context bound to one module instance. It is not
// safe for concurrent use.
type Context struct {
	userData  any
	result    any
	engine    *Engine
	instance  api.Module
	async     *Asyncify
	fn        *Function
	export    api.Function
	cancel    context.CancelFunc
	exception string
	args      []uint64
	results   []uint64
	id        uint64
	state     scriptruntime.State
	lent      bool
	inHost    bool
	suspend   bool
	abort     bool
}

var _ scriptruntime.ExecutionContext = (*Context)(nil)

func (c *Context) ID() uint64                   { return c.id }
func (c *Context) Engine() scriptruntime.Engine { return c.engine }
func (c *Context) State() scriptruntime.State   { return c.state }
func (c *Context) ExceptionString() string      { return c.exception }
func (c *Context) UserData() any                { return c.userData }

// Results returns the core values returned by the last finished execution.
func (c *Context) Results() []uint64 { return c.results }

func (c *Context) SetUserData(data any) any {
	old := c.userData
	c.userData = data
	return old
}

// SetLineCallback only accepts nil: core modules carry no line information.
func (c *Context) SetLineCallback(cb scriptruntime.LineCallback) error {
	if cb != nil {
		return errors.Unsupported(errors.PhaseDebug, "line callbacks")
	}
	return nil
}

func (c *Context) ensureInstance(ctx context.Context) error {
	if c.instance != nil && !c.instance.IsClosed() {
		return nil
	}
	inst, err := c.engine.instantiate(ctx)
	if err != nil {
		return errors.Load("instantiate module", err)
	}
	c.instance = inst
	c.async = nil
	if c.engine.async {
		a := newAsyncify(c.engine.opts.asyncify)
		if err := a.init(inst); err != nil {
			_ = inst.Close(ctx)
			c.instance = nil
			return errors.Load("enable asyncify", err)
		}
		c.async = a
	}
	return nil
}

func (c *Context) reset() {
	c.lent = false
	c.fn = nil
	c.export = nil
	c.args = nil
	c.results = nil
	c.result = nil
	c.exception = ""
	c.suspend = false
	c.abort = false
	c.inHost = false
	c.userData = nil
	c.state = scriptruntime.StateUninitialized
	if c.async != nil && c.instance != nil && !c.instance.IsClosed() {
		c.async.abandon(context.Background())
	}
}

func (c *Context) Prepare(fn scriptruntime.Function) error {
	if c.state == scriptruntime.StateActive || c.state == scriptruntime.StateSuspended {
		return errors.InvalidState(errors.PhasePrepare, c.id, "prepare", c.state)
	}
	f, ok := fn.(*Function)
	if !ok || f == nil || f.module.engine != c.engine {
		return errors.InvalidInput(errors.PhasePrepare, "function does not belong to this engine")
	}
	if err := c.ensureInstance(context.Background()); err != nil {
		return err
	}
	export := c.instance.ExportedFunction(f.decl.name)
	if export == nil {
		return errors.NotFound(errors.PhasePrepare, "function", f.decl.name)
	}

	c.fn = f
	c.export = export
	params, _ := f.decl.signature()
	c.args = make([]uint64, len(params))
	c.results = nil
	c.result = nil
	c.exception = ""
	c.suspend = false
	c.abort = false
	c.state = scriptruntime.StatePrepared
	return nil
}

// SetArg lowers value into argument index. String arguments are not
// supported.
func (c *Context) SetArg(index int, value any) error {
	if c.state != scriptruntime.StatePrepared {
		return errors.InvalidState(errors.PhasePrepare, c.id, "set argument", c.state)
	}
	params := c.fn.decl.params
	if index < 0 || index >= len(params) {
		return errors.InvalidInput(errors.PhasePrepare, fmt.Sprintf("argument index %d out of range [0, %d)", index, len(params)))
	}

	slot := 0
	for _, p := range params[:index] {
		ct, _ := coreTypes(p.typ)
		slot += len(ct)
	}
	v, err := lowerValue(params[index].typ, value)
	if err != nil {
		return errors.New(errors.PhasePrepare, errors.KindInvalidInput).
			Function(c.fn.decl.name).
			Context(c.id).
			Detail("argument %s", params[index].name).
			Cause(err).
			Build()
	}
	c.args[slot] = v
	return nil
}

// Execute calls the prepared export, or resumes it after a suspension.
func (c *Context) Execute(ctx context.Context) (scriptruntime.State, error) {
	if c.state != scriptruntime.StatePrepared && c.state != scriptruntime.StateSuspended {
		return c.state, errors.InvalidState(errors.PhaseExecute, c.id, "execute", c.state)
	}
	if ctx.Err() != nil {
		c.state = scriptruntime.StateAborted
		return c.state, errors.Aborted(c.id)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancel = cancel
	defer func() { c.cancel = nil }()
	callCtx := withContext(runCtx, c)

	resuming := c.state == scriptruntime.StateSuspended
	c.state = scriptruntime.StateActive
	c.suspend = false

	if c.async != nil {
		var err error
		if resuming {
			err = c.async.startRewind(callCtx)
		} else {
			err = c.async.resetStack()
		}
		if err != nil {
			return c.fail(err)
		}
	}

	results, err := c.export.Call(callCtx, c.args...)
	c.inHost = false

	if c.async != nil && c.async.unwinding() {
		if err := c.async.stopUnwind(callCtx); err != nil {
			return c.fail(err)
		}
		c.suspend = false
		c.state = scriptruntime.StateSuspended
		return c.state, nil
	}

	if err != nil {
		if c.abort || runCtx.Err() != nil {
			c.state = scriptruntime.StateAborted
			return c.state, errors.Aborted(c.id)
		}
		return c.fail(err)
	}

	c.results = results
	c.state = scriptruntime.StateFinished
	return c.state, nil
}

func (c *Context) fail(err error) (scriptruntime.State, error) {
	c.exception = err.Error()
	c.state = scriptruntime.StateException
	Logger().Debug("script exception",
		zap.Uint64("context", c.id),
		zap.String("function", c.fn.decl.name),
		zap.Error(err))
	return c.state, errors.Exception(c.id, c.fn.decl.name, err)
}

// Suspend asks the running host call to unwind the guest once it returns.
// It needs an asyncified module.
func (c *Context) Suspend() error {
	if c.state != scriptruntime.StateActive || !c.inHost {
		return errors.InvalidState(errors.PhaseExecute, c.id, "suspend", c.state)
	}
	if c.async == nil {
		return errors.Unsupported(errors.PhaseExecute, "suspend without asyncify")
	}
	c.suspend = true
	return nil
}

func (c *Context) Abort() error {
	switch c.state {
	case scriptruntime.StateActive:
		c.abort = true
		if !c.inHost && c.cancel != nil {
			c.cancel()
		}
	case scriptruntime.StatePrepared, scriptruntime.StateSuspended:
		if c.async != nil {
			c.async.abandon(context.Background())
		}
		c.state = scriptruntime.StateAborted
	}
	return nil
}

// writeResult stores the host result for the guest. Lowering failures trap.
func (c *Context) writeResult(stack []uint64, d *funcDecl) {
	res := c.result
	c.result = nil
	if d.result == nil {
		return
	}
	v, err := lowerValue(d.result, res)
	if err != nil {
		panic(errors.New(errors.PhaseHost, errors.KindInvalidData).
			Function(d.name).
			Context(c.id).
			Cause(err).
			Build())
	}
	stack[0] = v
}

func (c *Context) active() bool {
	switch c.state {
	case scriptruntime.StatePrepared, scriptruntime.StateActive, scriptruntime.StateSuspended:
		return c.fn != nil
	}
	return false
}

// CallstackSize is 1 while a function is prepared or running: guest frames
// are not visible.
func (c *Context) CallstackSize() int {
	if c.active() {
		return 1
	}
	return 0
}

func (c *Context) Function(level int) scriptruntime.Function {
	if level != 0 || !c.active() {
		return nil
	}
	return c.fn
}

func (c *Context) LineNumber(level int) (string, int, int) {
	if level != 0 || !c.active() {
		return "", 0, 0
	}
	return c.fn.ScriptSection(), 0, 0
}

func (c *Context) VarCount(int) int                    { return 0 }
func (c *Context) Var(int, int) scriptruntime.Variable { return scriptruntime.Variable{} }
func (c *Context) AddressOfVar(int, int) any           { return nil }
func (c *Context) IsVarInScope(int, int) bool          { return false }
func (c *Context) ThisPointer(int) any                 { return nil }
func (c *Context) ThisTypeID(int) scriptruntime.TypeID { return 0 }
