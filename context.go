package scriptruntime

import "context"

// State is the execution state of an ExecutionContext.
type State int

const (
	StateFinished State = iota
	StateSuspended
	StateAborted
	StateException
	StatePrepared
	StateUninitialized
	StateActive
	StateError
)

func (s State) String() string {
	switch s {
	case StateFinished:
		return "finished"
	case StateSuspended:
		return "suspended"
	case StateAborted:
		return "aborted"
	case StateException:
		return "exception"
	case StatePrepared:
		return "prepared"
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// LineCallback is invoked by the engine each time a context reaches a new
// source line.
type LineCallback func(xc ExecutionContext)

// HostFunc implements a function registered in an engine's global namespace.
// xc is the context whose script made the call; args are already converted
// to Go values by the engine.
type HostFunc func(ctx context.Context, xc ExecutionContext, args []any) (any, error)

// ExecutionContext is one resumable unit of script execution.
//
// Contexts are owned and pooled by their Engine. Levels index the call
// stack: 0 is the innermost frame.
type ExecutionContext interface {
	// ID is stable for the lifetime of the context, across pool reuse.
	ID() uint64
	Engine() Engine
	State() State

	Prepare(fn Function) error
	SetArg(index int, value any) error
	// Execute runs until the script finishes, suspends, aborts or faults.
	Execute(ctx context.Context) (State, error)
	// Suspend requests suspension; only valid while the context executes.
	Suspend() error
	Abort() error
	ExceptionString() string

	UserData() any
	// SetUserData stores data and returns the previous value.
	SetUserData(data any) any
	// SetLineCallback installs cb, or removes the callback when cb is nil.
	SetLineCallback(cb LineCallback) error

	CallstackSize() int
	Function(level int) Function
	LineNumber(level int) (section string, line, column int)
	VarCount(level int) int
	Var(index, level int) Variable
	AddressOfVar(index, level int) any
	IsVarInScope(index, level int) bool
	ThisPointer(level int) any
	ThisTypeID(level int) TypeID
}
