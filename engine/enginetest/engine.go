package enginetest

import (
	"strings"

	scriptruntime "github.com/wippyai/script-runtime"
	"github.com/wippyai/script-runtime/errors"
)

// Option configures an Engine.
type Option func(*Engine)

// WithMaxContexts limits the number of contexts that may be outstanding at
// once. Zero means unlimited.
func WithMaxContexts(n int) Option {
	return func(e *Engine) { e.maxContexts = n }
}

// Engine is a scripted scriptruntime.Engine. It is not safe for concurrent use.
type Engine struct {
	hosts       map[string]scriptruntime.HostFunc
	modules     map[string]*Module
	types       map[scriptruntime.TypeID]*Type
	typesByName map[string]*Type
	contexts    map[uint64]*Context
	returned    map[uint64]int
	failPrepare map[string]error
	failLineCB  error
	pool        []*Context
	gcCalls     []scriptruntime.GCFlags
	gc          scriptruntime.GCStats
	garbage     uint64
	nextID      uint64
	refs        int
	maxContexts int
	outstanding int
	requests    int
	doubles     int
	typeSeq     scriptruntime.TypeID
}

var _ scriptruntime.Engine = (*Engine)(nil)

// NewEngine creates an engine holding one reference.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		hosts:       make(map[string]scriptruntime.HostFunc),
		modules:     make(map[string]*Module),
		types:       make(map[scriptruntime.TypeID]*Type),
		typesByName: make(map[string]*Type),
		contexts:    make(map[uint64]*Context),
		returned:    make(map[uint64]int),
		failPrepare: make(map[string]error),
		refs:        1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) AddRef() int {
	e.refs++
	return e.refs
}

func (e *Engine) Release() int {
	e.refs--
	return e.refs
}

// Refs returns the current reference count.
func (e *Engine) Refs() int { return e.refs }

func (e *Engine) RequestContext() scriptruntime.ExecutionContext {
	e.requests++
	if e.maxContexts > 0 && e.outstanding >= e.maxContexts {
		return nil
	}

	var xc *Context
	if n := len(e.pool); n > 0 {
		xc = e.pool[n-1]
		e.pool = e.pool[:n-1]
	} else {
		e.nextID++
		xc = &Context{id: e.nextID, engine: e, state: scriptruntime.StateUninitialized}
	}
	xc.lent = true
	e.contexts[xc.id] = xc
	e.outstanding++
	return xc
}

func (e *Engine) ReturnContext(xc scriptruntime.ExecutionContext) {
	c, ok := xc.(*Context)
	if !ok || c.engine != e {
		return
	}
	e.returned[c.id]++
	if !c.lent {
		e.doubles++
		return
	}
	c.reset()
	e.outstanding--
	e.pool = append(e.pool, c)
}

// Returned reports how many times the context with id was returned.
func (e *Engine) Returned(id uint64) int { return e.returned[id] }

// Outstanding reports the number of contexts requested and not yet returned.
func (e *Engine) Outstanding() int { return e.outstanding }

// Requests reports the number of RequestContext calls, including failed ones.
func (e *Engine) Requests() int { return e.requests }

// DoubleReturns reports how many returns hit a context already in the pool.
func (e *Engine) DoubleReturns() int { return e.doubles }

// Context returns a context by id, whether lent or pooled.
func (e *Engine) Context(id uint64) *Context { return e.contexts[id] }

// FailPrepare makes every Prepare of the named function fail with err.
func (e *Engine) FailPrepare(fn string, err error) { e.failPrepare[fn] = err }

// FailLineCallback makes every SetLineCallback fail with err.
func (e *Engine) FailLineCallback(err error) { e.failLineCB = err }

// RegisterGlobalFunction accepts "void name(...)", "name: func(...)" and bare
// names.
func (e *Engine) RegisterGlobalFunction(decl string, fn scriptruntime.HostFunc) error {
	name := hostName(decl)
	if name == "" {
		return errors.Registration(decl, errors.InvalidInput(errors.PhaseParse, "no function name"))
	}
	if fn == nil {
		return errors.Registration(decl, errors.InvalidInput(errors.PhaseHost, "nil host function"))
	}
	e.hosts[name] = fn
	return nil
}

func hostName(decl string) string {
	decl = strings.TrimSpace(decl)
	if i := strings.Index(decl, ":"); i > 0 && !strings.Contains(decl[:i], "(") {
		return strings.TrimSpace(decl[:i])
	}
	if i := strings.Index(decl, "("); i >= 0 {
		decl = decl[:i]
	}
	fields := strings.Fields(decl)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func (e *Engine) GarbageCollect(flags scriptruntime.GCFlags) error {
	e.gcCalls = append(e.gcCalls, flags)
	if flags&scriptruntime.GCDetectGarbage != 0 {
		e.gc.TotalDetected += e.garbage
	}
	if flags&scriptruntime.GCDestroyGarbage != 0 && flags&scriptruntime.GCOneStep == 0 {
		e.gc.CurrentSize -= e.garbage
		e.gc.TotalDestroyed += e.garbage
		e.gc.TotalNewDestroyed += e.garbage
		e.garbage = 0
	}
	return nil
}

func (e *Engine) GCStatistics() scriptruntime.GCStats { return e.gc }

// GCCalls returns every flag set passed to GarbageCollect, in order.
func (e *Engine) GCCalls() []scriptruntime.GCFlags {
	return append([]scriptruntime.GCFlags(nil), e.gcCalls...)
}

func (e *Engine) alloc(n int) {
	e.gc.CurrentSize += uint64(n)
	e.gc.NewObjects += uint64(n)
	e.garbage += uint64(n)
}

func (e *Engine) TypeInfoByID(id scriptruntime.TypeID) scriptruntime.TypeInfo {
	t, ok := e.types[id.Base()]
	if !ok {
		return nil
	}
	return t
}

func (e *Engine) TypeInfoByName(name string) scriptruntime.TypeInfo {
	t, ok := e.typesByName[name]
	if !ok {
		return nil
	}
	return t
}
