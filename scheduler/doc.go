// Package scheduler runs script execution contexts as cooperative
// co-routines.
//
// Contexts are organized in groups. A group holds one or more co-routines
// that share a turn pointer and a wake timer. Every call to Tick steps the
// turn holder of each awake group exactly once:
//
//	sched := scheduler.New()
//	if err := sched.RegisterHooks(engine); err != nil {
//	    return err
//	}
//
//	sched.AddExecution(engine, module.FunctionByName("main"), false)
//	for sched.Tick(ctx) > 0 {
//	    // render a frame, poll input...
//	}
//
// Scripts cooperate through the registered hooks:
//
//	yield()                      hand the turn to the next co-routine
//	sleep(ms)                    park the whole group for ms milliseconds
//	spawnCoRoutine(fn, args)     start fn in the caller's group
//
// A hook finds its scheduler through the user data of the calling context,
// which the scheduler sets when it prepares the context.
//
// # Context ownership
//
// Contexts are borrowed from the engine through a resource.Ledger and given
// back exactly once, when they finish, fault, are aborted, or, for retained
// contexts, when the host calls ReturnAfterUse.
//
// # Garbage collection
//
// A step that grows the engine heap is followed by a full collection. One
// incremental detection step runs per tick for every engine the scheduler
// has seen. Both can be disabled with WithGCPolicy.
//
// A Scheduler is not safe for concurrent use. Scripts that never yield block
// Tick indefinitely.
package scheduler
