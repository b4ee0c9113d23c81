package resource

import (
	scriptruntime "github.com/wippyai/script-runtime"
)

// Handle is an opaque reference to a lease in a Ledger.
// Handle 0 is reserved and always invalid.
type Handle uint32

// EventType identifies a lease lifecycle event.
type EventType uint8

const (
	EventAcquired EventType = iota
	EventReleased
	EventRejected
)

func (t EventType) String() string {
	switch t {
	case EventAcquired:
		return "acquired"
	case EventReleased:
		return "released"
	case EventRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Event represents a lease lifecycle event. Context is nil for rejected
// releases of unknown handles.
type Event struct {
	Context scriptruntime.ExecutionContext
	Handle  Handle
	Type    EventType
}

// Observer receives notifications about lease lifecycle events.
type Observer interface {
	OnLeaseEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnLeaseEvent(e Event) { f(e) }

// Stats counts ledger activity.
type Stats struct {
	Acquired uint64
	Released uint64
	Rejected uint64
	Failed   uint64
}
