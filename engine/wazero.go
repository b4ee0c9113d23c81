package engine

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	scriptruntime "github.com/wippyai/script-runtime"
	"github.com/wippyai/script-runtime/errors"
)

// Option configures an Engine.
type Option func(*options)

type options struct {
	wit              string
	name             string
	asyncify         AsyncifyConfig
	maxContexts      int
	memoryLimitPages uint32
}

// WithWIT supplies function declarations for the module's exports, such as
// "export update: func(dt: f32);". Exports without a declaration are
// described by their core signature.
func WithWIT(text string) Option {
	return func(o *options) { o.wit = text }
}

// WithMaxContexts limits the contexts lent at the same time. Zero means no
// limit.
func WithMaxContexts(n int) Option {
	return func(o *options) { o.maxContexts = n }
}

// WithAsyncify places the asyncify data area. It only has an effect on
// modules compiled with wasm-opt --asyncify.
func WithAsyncify(cfg AsyncifyConfig) Option {
	return func(o *options) { o.asyncify = cfg }
}

// WithName sets the module name, reported as the script section of its
// functions.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithMemoryLimitPages caps the memory of each instance in 64KiB pages.
func WithMemoryLimitPages(pages uint32) Option {
	return func(o *options) { o.memoryLimitPages = pages }
}

type hostFunc struct {
	decl *funcDecl
	fn   scriptruntime.HostFunc
}

// Engine runs a core WebAssembly module. Each execution context owns one
// instance of the module; instances are pooled with their contexts.
type Engine struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	module   *Module
	hosts    map[string]*hostFunc
	linkErr  error
	pool     []*Context
	opts     options
	mu       sync.Mutex
	nextID   uint64
	lent     int
	refs     atomic.Int32
	linked   bool
	async    bool
	closed   bool
}

var _ scriptruntime.Engine = (*Engine)(nil)

// New compiles wasm. The returned engine holds one reference.
func New(ctx context.Context, wasm []byte, opts ...Option) (*Engine, error) {
	o := options{name: "module"}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if o.memoryLimitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(o.memoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Load("compile module", err)
	}

	e := &Engine{
		runtime:  rt,
		compiled: compiled,
		hosts:    make(map[string]*hostFunc),
		opts:     o,
		async:    isAsyncified(compiled.ExportedFunctions()),
	}
	e.refs.Store(1)

	if e.module, err = newModule(e, o.name, o.wit, compiled.ExportedFunctions()); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	Logger().Debug("module compiled",
		zap.String("module", o.name),
		zap.Int("exports", len(e.module.order)),
		zap.Bool("asyncify", e.async))
	return e, nil
}

// Module returns the reflective view of the compiled module.
func (e *Engine) Module() *Module { return e.module }

// Asyncified reports whether the module supports suspension.
func (e *Engine) Asyncified() bool { return e.async }

func (e *Engine) AddRef() int { return int(e.refs.Add(1)) }

// Release drops a reference; the last one closes the engine.
func (e *Engine) Release() int {
	n := int(e.refs.Add(-1))
	if n == 0 {
		if err := e.Close(context.Background()); err != nil {
			Logger().Warn("close engine", zap.String("module", e.opts.name), zap.Error(err))
		}
	}
	return n
}

// RegisterGlobalFunction binds fn to the imports named by decl, in WIT
// syntax ("sleep: func(ms: u32)"). Imports are matched by function name
// in any import module. Registration must happen before the first
// context is requested.
func (e *Engine) RegisterGlobalFunction(decl string, fn scriptruntime.HostFunc) error {
	if fn == nil {
		return errors.Registration(decl, fmt.Errorf("nil host function"))
	}
	d, err := parseDecl(decl)
	if err != nil {
		return errors.Registration(decl, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.linked {
		return errors.Registration(decl, errors.New(errors.PhaseHost, errors.KindInvalidState).
			Detail("host functions are fixed once the module is linked").
			Build())
	}
	e.hosts[d.name] = &hostFunc{decl: d, fn: fn}
	return nil
}

// Link instantiates the host modules that satisfy the module's imports.
// It runs once; RequestContext calls it when needed. Unsatisfied imports
// yield a *errors.MissingImportsError.
func (e *Engine) Link(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.link(ctx)
}

func (e *Engine) link(ctx context.Context) error {
	if e.linked {
		return e.linkErr
	}
	e.linked = true
	e.linkErr = e.buildHostModules(ctx)
	if e.linkErr != nil {
		Logger().Warn("link failed", zap.String("module", e.opts.name), zap.Error(e.linkErr))
	}
	return e.linkErr
}

func (e *Engine) buildHostModules(ctx context.Context) error {
	builders := make(map[string]wazero.HostModuleBuilder)
	var order []string
	var missing []string

	for _, def := range e.compiled.ImportedFunctions() {
		modName, name, _ := def.Import()
		h, ok := e.hosts[name]
		if !ok {
			missing = append(missing, modName+"#"+name)
			continue
		}
		params, results := h.decl.signature()
		if !slices.Equal(params, def.ParamTypes()) || !slices.Equal(results, def.ResultTypes()) {
			return errors.Registration(h.decl.text, fmt.Errorf("import %s#%s has signature %s -> %s",
				modName, name, valueTypeNames(def.ParamTypes()), valueTypeNames(def.ResultTypes())))
		}

		b, ok := builders[modName]
		if !ok {
			b = e.runtime.NewHostModuleBuilder(modName)
			builders[modName] = b
			order = append(order, modName)
		}
		b.NewFunctionBuilder().
			WithGoModuleFunction(e.trampoline(h), params, results).
			Export(name)
	}

	if len(missing) > 0 {
		return errors.NewMissingImportsError(missing)
	}
	for _, modName := range order {
		if _, err := builders[modName].Instantiate(ctx); err != nil {
			return errors.New(errors.PhaseLoad, errors.KindInvalidState).
				Detail("instantiate host module %s", modName).
				Cause(err).
				Build()
		}
	}
	return nil
}

// trampoline adapts a host function to the core calling convention. The
// calling context travels in ctx.
func (e *Engine) trampoline(h *hostFunc) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		c := contextFrom(ctx)
		if c == nil {
			panic(errors.New(errors.PhaseHost, errors.KindInvalidState).
				Function(h.decl.name).
				Detail("host function called outside of an execution context").
				Build())
		}

		if c.async != nil && c.async.rewinding() {
			if err := c.async.stopRewind(ctx); err != nil {
				panic(err)
			}
			debugf("rewound %s in context %d", h.decl.name, c.id)
			c.writeResult(stack, h.decl)
			return
		}

		args, err := liftArgs(guestMemory(mod), h.decl.params, stack)
		if err != nil {
			panic(errors.New(errors.PhaseHost, errors.KindInvalidData).
				Function(h.decl.name).
				Context(c.id).
				Cause(err).
				Build())
		}

		c.inHost = true
		res, err := h.fn(ctx, c, args)
		c.inHost = false
		if err != nil {
			panic(err)
		}
		if c.abort {
			panic(errors.Aborted(c.id))
		}

		c.result = res
		if c.suspend {
			if err := c.async.startUnwind(ctx); err != nil {
				panic(err)
			}
			return
		}
		c.writeResult(stack, h.decl)
	}
}

func valueTypeNames(types []api.ValueType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = api.ValueTypeName(t)
	}
	return "(" + strings.Join(names, ", ") + ")"
}

// RequestContext lends a context with its own module instance. It returns
// nil when the engine is closed, linking failed or the limit is reached.
func (e *Engine) RequestContext() scriptruntime.ExecutionContext {
	ctx := context.Background()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	if err := e.link(ctx); err != nil {
		return nil
	}
	if e.opts.maxContexts > 0 && e.lent >= e.opts.maxContexts {
		Logger().Debug("context request refused",
			zap.String("module", e.opts.name),
			zap.Error(errors.Exhausted(errors.PhasePrepare, "context", e.opts.maxContexts)))
		return nil
	}

	var c *Context
	if n := len(e.pool); n > 0 {
		c = e.pool[n-1]
		e.pool = e.pool[:n-1]
	} else {
		e.nextID++
		c = &Context{engine: e, id: e.nextID, state: scriptruntime.StateUninitialized}
	}
	if err := c.ensureInstance(ctx); err != nil {
		Logger().Warn("instantiate module", zap.Uint64("context", c.id), zap.Error(err))
		e.pool = append(e.pool, c)
		return nil
	}

	c.lent = true
	e.lent++
	return c
}

// ReturnContext resets xc and pools it. Returning a context twice is
// logged and otherwise ignored.
func (e *Engine) ReturnContext(xc scriptruntime.ExecutionContext) {
	c, ok := xc.(*Context)
	if !ok || c == nil || c.engine != e {
		Logger().Warn("context returned to the wrong engine", zap.String("module", e.opts.name))
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !c.lent {
		Logger().Warn("context returned twice", zap.Error(errors.DoubleReturn(c.id)))
		return
	}
	c.reset()
	e.lent--
	if e.closed {
		return
	}
	e.pool = append(e.pool, c)
}

// Lent reports the contexts currently borrowed.
func (e *Engine) Lent() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lent
}

// GarbageCollect is a no-op: guest memory is managed by the guest.
func (e *Engine) GarbageCollect(scriptruntime.GCFlags) error { return nil }

func (e *Engine) GCStatistics() scriptruntime.GCStats { return scriptruntime.GCStats{} }

// TypeInfoByID returns nil: core modules carry no script types.
func (e *Engine) TypeInfoByID(scriptruntime.TypeID) scriptruntime.TypeInfo { return nil }

func (e *Engine) TypeInfoByName(string) scriptruntime.TypeInfo { return nil }

// Close closes the wazero runtime and every instance. Lent contexts become
// unusable.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.pool = nil
	e.mu.Unlock()

	return e.runtime.Close(ctx)
}

func (e *Engine) instantiate(ctx context.Context) (api.Module, error) {
	cfg := wazero.NewModuleConfig().
		WithName(""). // anonymous for parallel instantiation
		WithStartFunctions("_initialize")
	return e.runtime.InstantiateModule(ctx, e.compiled, cfg)
}

func sortedNames(m map[string]api.FunctionDefinition) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
