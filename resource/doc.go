// Package resource records execution contexts borrowed from script engines.
//
// Engines own their contexts. A borrower must give every context back
// exactly once, on every path. The Ledger is the single place where that
// rule is enforced: Acquire requests a context and records it under a
// Handle, Release returns it and invalidates the handle.
//
// # Handles
//
// Handle 0 is reserved and always invalid. Released handles are recycled:
//
//	ledger := resource.NewLedger()
//
//	h, xc := ledger.Acquire(engine)
//	if xc == nil {
//	    // engine could not supply a context
//	}
//
//	ledger.Release(h) // true, context returned to engine
//	ledger.Release(h) // false, nothing returned twice
//
// # Observers
//
// Register observers to track lease lifecycle events:
//
//	id := ledger.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    if e.Type == resource.EventRejected {
//	        log.Printf("handle %d released twice", e.Handle)
//	    }
//	}))
//	defer ledger.Unsubscribe(id)
//
// # Closing
//
// Close returns every outstanding context to its engine. Acquire fails on a
// closed ledger.
package resource
