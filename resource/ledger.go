package resource

import (
	"errors"
	"sync"

	scriptruntime "github.com/wippyai/script-runtime"
)

var ErrClosed = errors.New("lease ledger closed")

// Ledger records execution contexts borrowed from engines. Every context
// handed out by Acquire is returned to its engine by exactly one successful
// Release or by Close.
type Ledger struct {
	entries   []entry
	freeList  []Handle
	observers []subscription
	stats     Stats
	nextSub   int
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    bool
}

type entry struct {
	xc     scriptruntime.ExecutionContext
	engine scriptruntime.Engine
	valid  bool
}

type subscription struct {
	o  Observer
	id int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Acquire requests a context from eng and records it. It returns (0, nil)
// when the engine cannot supply a context or the ledger is closed.
func (l *Ledger) Acquire(eng scriptruntime.Engine) (Handle, scriptruntime.ExecutionContext) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return 0, nil
	}
	l.mu.Unlock()

	xc := eng.RequestContext()
	if xc == nil {
		l.mu.Lock()
		l.stats.Failed++
		l.mu.Unlock()
		return 0, nil
	}

	l.mu.Lock()
	e := entry{xc: xc, engine: eng, valid: true}
	var h Handle
	if n := len(l.freeList); n > 0 {
		h = l.freeList[n-1]
		l.freeList = l.freeList[:n-1]
		l.entries[h-1] = e
	} else {
		l.entries = append(l.entries, e)
		h = Handle(len(l.entries))
	}
	l.stats.Acquired++
	l.mu.Unlock()

	l.notify(Event{Type: EventAcquired, Handle: h, Context: xc})
	return h, xc
}

// Get returns the context recorded under h.
func (l *Ledger) Get(h Handle) (scriptruntime.ExecutionContext, bool) {
	if h == 0 {
		return nil, false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	idx := int(h) - 1
	if idx >= len(l.entries) || !l.entries[idx].valid {
		return nil, false
	}
	return l.entries[idx].xc, true
}

// Release returns the context recorded under h to its engine and frees the
// handle. Releasing an unknown or already released handle returns false and
// leaves the engine untouched.
func (l *Ledger) Release(h Handle) bool {
	xc, eng, ok := l.take(h)
	if !ok {
		l.mu.Lock()
		l.stats.Rejected++
		l.mu.Unlock()
		l.notify(Event{Type: EventRejected, Handle: h})
		return false
	}

	eng.ReturnContext(xc)
	l.notify(Event{Type: EventReleased, Handle: h, Context: xc})
	return true
}

func (l *Ledger) take(h Handle) (scriptruntime.ExecutionContext, scriptruntime.Engine, bool) {
	if h == 0 {
		return nil, nil, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	idx := int(h) - 1
	if idx >= len(l.entries) {
		return nil, nil, false
	}
	e := &l.entries[idx]
	if !e.valid {
		return nil, nil, false
	}

	xc, eng := e.xc, e.engine
	*e = entry{}
	l.freeList = append(l.freeList, h)
	l.stats.Released++
	return xc, eng, true
}

// Len returns the number of outstanding leases.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries) - len(l.freeList)
}

// Each iterates over outstanding leases in handle order. The ledger is not
// locked while fn runs, so fn may call Release.
func (l *Ledger) Each(fn func(h Handle, xc scriptruntime.ExecutionContext) bool) {
	type lease struct {
		xc scriptruntime.ExecutionContext
		h  Handle
	}

	l.mu.RLock()
	leases := make([]lease, 0, len(l.entries))
	for i, e := range l.entries {
		if e.valid {
			leases = append(leases, lease{h: Handle(i + 1), xc: e.xc})
		}
	}
	l.mu.RUnlock()

	for _, ls := range leases {
		if !fn(ls.h, ls.xc) {
			return
		}
	}
}

// Stats returns a snapshot of the ledger counters.
func (l *Ledger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats
}

// Subscribe adds an observer and returns an id for Unsubscribe.
func (l *Ledger) Subscribe(o Observer) int {
	l.obsMu.Lock()
	defer l.obsMu.Unlock()
	l.nextSub++
	l.observers = append(l.observers, subscription{id: l.nextSub, o: o})
	return l.nextSub
}

// Unsubscribe removes an observer.
func (l *Ledger) Unsubscribe(id int) {
	l.obsMu.Lock()
	defer l.obsMu.Unlock()
	for i, s := range l.observers {
		if s.id == id {
			l.observers = append(l.observers[:i], l.observers[i+1:]...)
			return
		}
	}
}

// Close returns every outstanding context to its engine and stops
// accepting new leases.
func (l *Ledger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.closed = true
	l.mu.Unlock()

	l.Each(func(h Handle, _ scriptruntime.ExecutionContext) bool {
		l.Release(h)
		return true
	})
	return nil
}

func (l *Ledger) notify(e Event) {
	l.obsMu.RLock()
	defer l.obsMu.RUnlock()
	for _, s := range l.observers {
		s.o.OnLeaseEvent(e)
	}
}
