package scheduler

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	scriptruntime "github.com/wippyai/script-runtime"
	"github.com/wippyai/script-runtime/errors"
	"github.com/wippyai/script-runtime/resource"
)

// Statistics are monotonically increasing scheduler counters.
type Statistics struct {
	Executions         uint64
	ObjectsCreated     uint64
	ObjectsDestroyed   uint64
	ContextsRequested  uint64
	ContextsReturned   uint64
	FullGCPasses       uint64
	IncrementalGCSteps uint64
	PrepareFailures    uint64
}

// Scheduler multiplexes execution contexts into round-robin co-routine
// groups.
type Scheduler struct {
	clock     func() int64
	lineCB    scriptruntime.LineCallback
	ledger    *resource.Ledger
	owners    map[resource.Handle]*group
	held      map[resource.Handle]*member
	groups    []*group
	free      []*group
	engines   []scriptruntime.Engine
	hookDecls HookDecls
	stats     Statistics
	ticks     uint64

	ownsLedger    bool
	fullGC        bool
	incrementalGC bool
}

// New creates a scheduler. The default clock counts milliseconds since New.
func New(opts ...Option) *Scheduler {
	start := time.Now()
	s := &Scheduler{
		clock:         func() int64 { return time.Since(start).Milliseconds() },
		ledger:        resource.NewLedger(),
		ownsLedger:    true,
		owners:        make(map[resource.Handle]*group),
		held:          make(map[resource.Handle]*member),
		hookDecls:     DefaultHookDecls,
		fullGC:        true,
		incrementalGC: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetClockSource replaces the millisecond clock.
func (s *Scheduler) SetClockSource(clock func() int64) {
	if clock != nil {
		s.clock = clock
	}
}

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler) Stats() Statistics { return s.stats }

// Active returns the number of active groups.
func (s *Scheduler) Active() int { return len(s.groups) }

// AddExecution starts fn in a new group. It returns nil when the engine
// cannot supply a context or preparation fails; in the latter case the
// context has already been returned. A retained context stays with the host
// after it finishes until ReturnAfterUse.
func (s *Scheduler) AddExecution(eng scriptruntime.Engine, fn scriptruntime.Function, retain bool) scriptruntime.ExecutionContext {
	m := s.prepare(eng, fn)
	if m == nil {
		return nil
	}
	m.bind.retained = retain
	g := s.activate(m)

	Logger().Debug("execution added",
		zap.String("group", g.id),
		zap.Uint64("context", m.xc.ID()),
		zap.String("function", fn.Name()),
		zap.Bool("retain", retain))
	return m.xc
}

// AddCoRoutine starts fn in the group of active. active must be the turn
// holder of its group, which is the case while its script is running.
func (s *Scheduler) AddCoRoutine(active scriptruntime.ExecutionContext, fn scriptruntime.Function) scriptruntime.ExecutionContext {
	g, m := s.owner(active)
	if g == nil {
		Logger().Warn("AddCoRoutine: context is not scheduled here", zap.Uint64("context", contextID(active)))
		return nil
	}
	if g.turn() != m {
		Logger().Warn("AddCoRoutine: context is not the turn holder",
			zap.String("group", g.id),
			zap.Uint64("context", active.ID()))
		return nil
	}
	if fn == nil {
		Logger().Warn("AddCoRoutine: nil function", zap.String("group", g.id))
		return nil
	}

	co := s.prepare(active.Engine(), fn)
	if co == nil {
		return nil
	}
	g.members = append(g.members, co)
	s.owners[co.bind.handle] = g

	Logger().Debug("co-routine added",
		zap.String("group", g.id),
		zap.Uint64("context", co.xc.ID()),
		zap.String("function", fn.Name()),
		zap.Int("members", len(g.members)))
	return co.xc
}

// Yield passes the turn of the group owning xc to its next member and
// suspends xc.
func (s *Scheduler) Yield(xc scriptruntime.ExecutionContext) error {
	g, _ := s.owner(xc)
	if g == nil {
		return errors.NotFound(errors.PhaseSchedule, "co-routine group for context", idString(xc))
	}
	g.advance()
	return xc.Suspend()
}

// Sleep parks the group owning xc for ms milliseconds and suspends xc.
func (s *Scheduler) Sleep(xc scriptruntime.ExecutionContext, ms int64) error {
	g, _ := s.owner(xc)
	if g == nil {
		return errors.NotFound(errors.PhaseSchedule, "co-routine group for context", idString(xc))
	}
	g.wakeUntil = s.clock() + ms
	return xc.Suspend()
}

// Tick steps the turn holder of every awake group once and returns the
// number of groups still active. Groups added during a tick are stepped
// from the next tick on.
func (s *Scheduler) Tick(ctx context.Context) int {
	s.ticks++
	tick := s.ticks
	now := s.clock()

	groups := append([]*group(nil), s.groups...)
	for _, g := range groups {
		if g.since >= tick || len(g.members) == 0 {
			continue
		}
		if g.wakeUntil > now {
			continue
		}
		s.step(ctx, g)
	}

	if s.incrementalGC {
		for _, eng := range s.engines {
			if err := eng.GarbageCollect(scriptruntime.GCOneStep | scriptruntime.GCDetectGarbage); err != nil {
				Logger().Debug("incremental gc failed", zap.Error(err))
				continue
			}
			s.stats.IncrementalGCSteps++
		}
	}

	return len(s.groups)
}

func (s *Scheduler) step(ctx context.Context, g *group) {
	m := g.turn()
	eng := m.xc.Engine()

	before := eng.GCStatistics().CurrentSize
	s.stats.Executions++
	state, err := m.xc.Execute(ctx)
	after := eng.GCStatistics().CurrentSize

	if state != scriptruntime.StateSuspended {
		fields := []zap.Field{
			zap.String("group", g.id),
			zap.Uint64("context", m.xc.ID()),
			zap.Stringer("state", state),
		}
		if state == scriptruntime.StateException {
			fields = append(fields, zap.String("exception", m.xc.ExceptionString()))
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		Logger().Debug("co-routine retired", fields...)
		s.retire(g, m)
	}

	if after <= before {
		return
	}
	s.stats.ObjectsCreated += after - before
	if !s.fullGC {
		return
	}
	if err := eng.GarbageCollect(scriptruntime.GCFullCycle); err != nil {
		Logger().Debug("full gc failed", zap.Error(err))
		return
	}
	s.stats.FullGCPasses++
	if post := eng.GCStatistics().CurrentSize; post < after {
		s.stats.ObjectsDestroyed += after - post
	}
}

// retire removes m from g and gives its context back unless the host
// retained it.
func (s *Scheduler) retire(g *group, m *member) {
	i := g.indexOf(m)
	if i < 0 {
		return
	}
	g.remove(i)
	delete(s.owners, m.bind.handle)

	if m.bind.retained {
		s.held[m.bind.handle] = m
	} else {
		s.release(m)
	}

	if len(g.members) == 0 {
		Logger().Debug("group finished", zap.String("group", g.id))
		s.deactivate(g)
	}
}

// Abort aborts every scheduled context and deactivates every group.
// Retained contexts stay with the host until ReturnAfterUse.
func (s *Scheduler) Abort() {
	groups := s.groups
	s.groups = nil

	for _, g := range groups {
		for _, m := range g.members {
			if err := m.xc.Abort(); err != nil {
				Logger().Debug("abort failed", zap.Uint64("context", m.xc.ID()), zap.Error(err))
			}
			m.bind.aborted = true
			delete(s.owners, m.bind.handle)
			if m.bind.retained {
				s.held[m.bind.handle] = m
			} else {
				s.release(m)
			}
		}
		g.reset()
		s.free = append(s.free, g)
	}

	if len(groups) > 0 {
		Logger().Debug("scheduler aborted", zap.Int("groups", len(groups)))
	}
}

// ReturnAfterUse releases a retained context. Called while the context is
// still scheduled it only drops the retention, and the context is returned
// when it retires.
func (s *Scheduler) ReturnAfterUse(xc scriptruntime.ExecutionContext) {
	b := s.bindingOf(xc)
	if b == nil {
		Logger().Warn("ReturnAfterUse: context not owned by this scheduler", zap.Uint64("context", contextID(xc)))
		return
	}
	if m, ok := s.held[b.handle]; ok {
		delete(s.held, b.handle)
		s.release(m)
		return
	}
	if _, ok := s.owners[b.handle]; ok && b.retained {
		b.retained = false
		return
	}
	Logger().Warn("ReturnAfterUse: context is not retained", zap.Uint64("context", xc.ID()))
}

// Aborted reports whether xc was aborted by this scheduler.
func (s *Scheduler) Aborted(xc scriptruntime.ExecutionContext) bool {
	b := s.bindingOf(xc)
	return b != nil && b.aborted
}

// Close aborts everything and returns every context, retained ones
// included.
func (s *Scheduler) Close() error {
	s.Abort()
	for h, m := range s.held {
		delete(s.held, h)
		s.release(m)
	}
	s.engines = nil
	if s.ownsLedger {
		return s.ledger.Close()
	}
	return nil
}

func (s *Scheduler) prepare(eng scriptruntime.Engine, fn scriptruntime.Function) *member {
	if eng == nil || fn == nil {
		Logger().Warn("cannot schedule without engine and function")
		return nil
	}

	h, xc := s.ledger.Acquire(eng)
	if xc == nil {
		Logger().Warn("engine could not supply a context", zap.String("function", fn.Name()))
		return nil
	}
	s.stats.ContextsRequested++
	s.trackEngine(eng)

	m := &member{xc: xc, bind: &binding{sched: s, handle: h}}
	if err := xc.Prepare(fn); err != nil {
		s.stats.PrepareFailures++
		Logger().Warn("prepare failed",
			zap.String("function", fn.Name()),
			zap.Uint64("context", xc.ID()),
			zap.Error(err))
		s.release(m)
		return nil
	}
	if s.lineCB != nil {
		if err := xc.SetLineCallback(s.lineCB); err != nil {
			Logger().Debug("line callback not installed", zap.Uint64("context", xc.ID()), zap.Error(err))
		}
	}
	xc.SetUserData(m.bind)
	return m
}

func (s *Scheduler) release(m *member) {
	if b, ok := m.xc.UserData().(*binding); ok && b == m.bind {
		m.xc.SetUserData(nil)
	}
	if s.lineCB != nil {
		if err := m.xc.SetLineCallback(nil); err != nil {
			Logger().Debug("remove line callback", zap.Uint64("context", m.xc.ID()), zap.Error(err))
		}
	}
	if !s.ledger.Release(m.bind.handle) {
		Logger().Error("context return rejected", zap.Error(errors.DoubleReturn(m.xc.ID())))
		return
	}
	s.stats.ContextsReturned++
}

func (s *Scheduler) trackEngine(eng scriptruntime.Engine) {
	for _, e := range s.engines {
		if e == eng {
			return
		}
	}
	s.engines = append(s.engines, eng)
}

func (s *Scheduler) bindingOf(xc scriptruntime.ExecutionContext) *binding {
	if xc == nil {
		return nil
	}
	b, ok := xc.UserData().(*binding)
	if !ok || b.sched != s {
		return nil
	}
	return b
}

// owner resolves the group and member of a scheduled context.
func (s *Scheduler) owner(xc scriptruntime.ExecutionContext) (*group, *member) {
	b := s.bindingOf(xc)
	if b == nil {
		return nil, nil
	}
	g, ok := s.owners[b.handle]
	if !ok {
		return nil, nil
	}
	for _, m := range g.members {
		if m.bind == b {
			return g, m
		}
	}
	return nil, nil
}

func contextID(xc scriptruntime.ExecutionContext) uint64 {
	if xc == nil {
		return 0
	}
	return xc.ID()
}

func idString(xc scriptruntime.ExecutionContext) string {
	return strconv.FormatUint(contextID(xc), 10)
}
