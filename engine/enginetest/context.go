package enginetest

import (
	"context"
	"fmt"

	scriptruntime "github.com/wippyai/script-runtime"
	"github.com/wippyai/script-runtime/errors"
)

type frame struct {
	fn       *Function
	pc       int
	line     int
	declared int
}

// Context is a scripted execution context.
type Context struct {
	userData  any
	engine    *Engine
	lineCB    scriptruntime.LineCallback
	exception string
	frames    []frame
	args      []any
	id        uint64
	state     scriptruntime.State
	executed  int
	lent      bool
	suspend   bool
	abort     bool
}

var _ scriptruntime.ExecutionContext = (*Context)(nil)

func (c *Context) ID() uint64                               { return c.id }
func (c *Context) Engine() scriptruntime.Engine             { return c.engine }
func (c *Context) State() scriptruntime.State               { return c.state }
func (c *Context) ExceptionString() string                  { return c.exception }
func (c *Context) UserData() any                            { return c.userData }
func (c *Context) LineCallback() scriptruntime.LineCallback { return c.lineCB }

// Executions reports how many times Execute was called since the context
// was last prepared.
func (c *Context) Executions() int { return c.executed }

// Arg returns the value passed to SetArg.
func (c *Context) Arg(index int) any {
	if index < 0 || index >= len(c.args) {
		return nil
	}
	return c.args[index]
}

// Lent reports whether the context is currently borrowed from its engine.
func (c *Context) Lent() bool { return c.lent }

func (c *Context) SetUserData(data any) any {
	old := c.userData
	c.userData = data
	return old
}

func (c *Context) SetLineCallback(cb scriptruntime.LineCallback) error {
	if c.engine.failLineCB != nil {
		return c.engine.failLineCB
	}
	c.lineCB = cb
	return nil
}

func (c *Context) reset() {
	c.lent = false
	c.frames = nil
	c.args = nil
	c.exception = ""
	c.suspend = false
	c.abort = false
	c.executed = 0
	c.state = scriptruntime.StateUninitialized
}

func (c *Context) Prepare(fn scriptruntime.Function) error {
	if c.state == scriptruntime.StateActive || c.state == scriptruntime.StateSuspended {
		return errors.InvalidState(errors.PhasePrepare, c.id, "prepare", c.state)
	}
	f, ok := fn.(*Function)
	if !ok || f == nil {
		return errors.InvalidInput(errors.PhasePrepare, "not a scripted function")
	}
	if err, ok := c.engine.failPrepare[f.def.Name]; ok {
		return errors.New(errors.PhasePrepare, errors.KindInvalidState).
			Function(f.def.Name).
			Context(c.id).
			Cause(err).
			Build()
	}

	c.frames = []frame{{fn: f}}
	c.args = nil
	c.exception = ""
	c.suspend = false
	c.abort = false
	c.executed = 0
	c.state = scriptruntime.StatePrepared
	return nil
}

func (c *Context) SetArg(index int, value any) error {
	if c.state != scriptruntime.StatePrepared {
		return errors.InvalidState(errors.PhasePrepare, c.id, "set argument", c.state)
	}
	if index < 0 {
		return errors.InvalidInput(errors.PhasePrepare, fmt.Sprintf("argument index %d", index))
	}
	for len(c.args) <= index {
		c.args = append(c.args, nil)
	}
	c.args[index] = value
	return nil
}

func (c *Context) Execute(ctx context.Context) (scriptruntime.State, error) {
	if c.state != scriptruntime.StatePrepared && c.state != scriptruntime.StateSuspended {
		return c.state, errors.InvalidState(errors.PhaseExecute, c.id, "execute", c.state)
	}
	c.executed++
	c.state = scriptruntime.StateActive
	c.suspend = false

	for {
		if c.abort || ctx.Err() != nil {
			c.state = scriptruntime.StateAborted
			return c.state, errors.Aborted(c.id)
		}
		if c.suspend {
			c.suspend = false
			c.state = scriptruntime.StateSuspended
			return c.state, nil
		}
		if len(c.frames) == 0 {
			c.state = scriptruntime.StateFinished
			return c.state, nil
		}

		top := &c.frames[len(c.frames)-1]
		if top.pc >= len(top.fn.def.Ops) {
			c.frames = c.frames[:len(c.frames)-1]
			continue
		}
		op := top.fn.def.Ops[top.pc]
		top.pc++

		switch op.Kind {
		case OpLine:
			top.line = op.Value
			if c.lineCB != nil {
				c.lineCB(c)
			}
		case OpCall:
			var callee *Function
			if top.fn.module != nil {
				callee = top.fn.module.funcs[op.Name]
			}
			if callee == nil {
				return c.raise(fmt.Sprintf("no function '%s'", op.Name))
			}
			c.frames = append(c.frames, frame{fn: callee})
		case OpHost:
			host, ok := c.engine.hosts[op.Name]
			if !ok {
				return c.raise(fmt.Sprintf("no host function '%s'", op.Name))
			}
			if _, err := host(ctx, c, op.Args); err != nil {
				return c.raise(err.Error())
			}
		case OpAlloc:
			c.engine.alloc(op.Value)
		case OpDeclare:
			top.declared++
		case OpFail:
			return c.raise(op.Name)
		}
	}
}

func (c *Context) raise(msg string) (scriptruntime.State, error) {
	c.exception = msg
	c.state = scriptruntime.StateException
	fn := ""
	if len(c.frames) > 0 {
		fn = c.frames[len(c.frames)-1].fn.def.Name
	}
	return c.state, errors.Exception(c.id, fn, fmt.Errorf("%s", msg))
}

func (c *Context) Suspend() error {
	if c.state != scriptruntime.StateActive {
		return errors.InvalidState(errors.PhaseExecute, c.id, "suspend", c.state)
	}
	c.suspend = true
	return nil
}

func (c *Context) Abort() error {
	switch c.state {
	case scriptruntime.StateActive:
		c.abort = true
	case scriptruntime.StatePrepared, scriptruntime.StateSuspended:
		c.state = scriptruntime.StateAborted
	}
	return nil
}

func (c *Context) frame(level int) *frame {
	if level < 0 || level >= len(c.frames) {
		return nil
	}
	return &c.frames[len(c.frames)-1-level]
}

func (c *Context) CallstackSize() int { return len(c.frames) }

func (c *Context) Function(level int) scriptruntime.Function {
	f := c.frame(level)
	if f == nil {
		return nil
	}
	return f.fn
}

func (c *Context) LineNumber(level int) (string, int, int) {
	f := c.frame(level)
	if f == nil {
		return "", 0, 0
	}
	return f.fn.def.Section, f.line, 0
}

func (c *Context) VarCount(level int) int {
	f := c.frame(level)
	if f == nil {
		return -1
	}
	return len(f.fn.def.Vars)
}

func (c *Context) variable(index, level int) *Var {
	f := c.frame(level)
	if f == nil || index < 0 || index >= len(f.fn.def.Vars) {
		return nil
	}
	return &f.fn.def.Vars[index]
}

func (c *Context) Var(index, level int) scriptruntime.Variable {
	v := c.variable(index, level)
	if v == nil {
		return scriptruntime.Variable{}
	}
	return v.Variable
}

func (c *Context) AddressOfVar(index, level int) any {
	v := c.variable(index, level)
	if v == nil {
		return nil
	}
	return v.Addr
}

func (c *Context) IsVarInScope(index, level int) bool {
	f := c.frame(level)
	return f != nil && index >= 0 && index < f.declared
}

func (c *Context) ThisPointer(level int) any {
	f := c.frame(level)
	if f == nil {
		return nil
	}
	return f.fn.def.This
}

func (c *Context) ThisTypeID(level int) scriptruntime.TypeID {
	f := c.frame(level)
	if f == nil || f.fn.def.Receiver == nil {
		return 0
	}
	return f.fn.def.Receiver.id
}
