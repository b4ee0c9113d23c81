// Package scriptruntime coordinates execution of suspended script execution
// contexts supplied by an embedded scripting engine.
//
// The engine itself is an external collaborator. This package defines the
// narrow contract the rest of the module relies on: contexts are requested
// from and returned to an engine pool, prepared for a function, executed
// step by step, suspended and aborted. A reflection surface exposes
// functions, variables and types for the debugger.
//
// # Architecture Overview
//
//	scriptruntime/         Engine contract (Engine, ExecutionContext, TypeInfo, ...)
//	├── scheduler/         Cooperative round-robin co-routine scheduler
//	├── debugger/          Interactive line-level debugger
//	├── resource/          Lease ledger for contexts borrowed from an engine
//	├── engine/            wazero-backed engine for asyncified core wasm modules
//	│   └── enginetest/    Scripted in-memory engine for tests
//	├── config/            viper-backed configuration and logger construction
//	└── errors/            Structured error types
//
// # Quick Start
//
//	sched := scheduler.New()
//	if err := sched.RegisterHooks(eng); err != nil {
//	    log.Fatal(err)
//	}
//
//	if sched.AddExecution(eng, mainFunc, false) == nil {
//	    log.Fatal("could not start main")
//	}
//
//	for sched.Tick(ctx) > 0 {
//	    // render a frame, poll input, ...
//	}
//
// # Debugging
//
// Attach a debugger to every context the scheduler prepares:
//
//	dbg := debugger.New()
//	dbg.SetEngine(eng)
//	dbg.AddFuncBreakPoint("main")
//
//	sched := scheduler.New(scheduler.WithLineCallback(dbg.LineCallback))
//
// # Thread Safety
//
// Everything is cooperative and single-threaded. Only one execution context
// runs at any instant; host functions and line callbacks re-enter on the
// goroutine that called Execute. A script that never yields blocks Tick.
package scriptruntime
