package scheduler

import (
	scriptruntime "github.com/wippyai/script-runtime"
	"github.com/wippyai/script-runtime/resource"
)

// HookDecls holds the declarations used to register the script hooks.
// Declaration syntax is engine specific.
type HookDecls struct {
	Yield string
	Sleep string
	Spawn string
}

// DefaultHookDecls uses C-style declarations.
var DefaultHookDecls = HookDecls{
	Yield: "void yield()",
	Sleep: "void sleep(uint ms)",
	Spawn: "void spawnCoRoutine(coroutine @func, dictionary @args)",
}

// WITHookDecls uses WIT function syntax, as expected by the wazero engine.
// The spawn hook takes the name of an exported function.
var WITHookDecls = HookDecls{
	Yield: "yield: func()",
	Sleep: "sleep: func(ms: u32)",
	Spawn: "spawn-co-routine: func(name: string)",
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the millisecond clock used for sleeping.
func WithClock(clock func() int64) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// WithLineCallback installs cb on every context the scheduler prepares.
// This is how a debugger is attached.
func WithLineCallback(cb scriptruntime.LineCallback) Option {
	return func(s *Scheduler) { s.lineCB = cb }
}

// WithGCPolicy enables or disables the full collection after allocating
// steps and the per-tick incremental step.
func WithGCPolicy(full, incremental bool) Option {
	return func(s *Scheduler) {
		s.fullGC = full
		s.incrementalGC = incremental
	}
}

// WithLedger records leases in an external ledger. The scheduler does not
// close a ledger it did not create.
func WithLedger(l *resource.Ledger) Option {
	return func(s *Scheduler) {
		s.ledger = l
		s.ownsLedger = false
	}
}

// WithHookDecls overrides the declarations used by RegisterHooks.
func WithHookDecls(d HookDecls) Option {
	return func(s *Scheduler) { s.hookDecls = d }
}
