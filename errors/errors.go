package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhasePrepare  Phase = "prepare"  // binding a function to a context
	PhaseExecute  Phase = "execute"  // running script code
	PhaseSchedule Phase = "schedule" // co-routine bookkeeping
	PhaseDebug    Phase = "debug"    // debugger operations
	PhaseHost     Phase = "host"     // host function registration and calls
	PhaseLoad     Phase = "load"     // module loading
	PhaseParse    Phase = "parse"    // declaration parsing
	PhaseConfig   Phase = "config"   // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindExhausted     Kind = "exhausted"
	KindInvalidState  Kind = "invalid_state"
	KindInvalidInput  Kind = "invalid_input"
	KindInvalidData   Kind = "invalid_data"
	KindUnsupported   Kind = "unsupported"
	KindException     Kind = "exception"
	KindAborted       Kind = "aborted"
	KindRegistration  Kind = "registration"
	KindDoubleReturn  Kind = "double_return"
	KindMissingImport Kind = "missing_import"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Function string
	Detail   string
	Context  uint64
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Function != "" {
		b.WriteString(" in ")
		b.WriteString(e.Function)
	}
	if e.Context != 0 {
		fmt.Fprintf(&b, " (context %d)", e.Context)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Function sets the script function name
func (b *Builder) Function(name string) *Builder {
	b.err.Function = name
	return b
}

// Context sets the execution context id
func (b *Builder) Context(id uint64) *Builder {
	b.err.Context = id
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Exhausted creates a pool exhaustion error
func Exhausted(phase Phase, what string, limit int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindExhausted,
		Detail: fmt.Sprintf("%s limit of %d reached", what, limit),
		Value:  limit,
	}
}

// InvalidState creates an error for an operation attempted in the wrong state
func InvalidState(phase Phase, id uint64, op string, state fmt.Stringer) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindInvalidState,
		Context: id,
		Detail:  fmt.Sprintf("cannot %s in state %s", op, state),
		Value:   state,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Exception creates an error for a script fault
func Exception(id uint64, function string, cause error) *Error {
	return &Error{
		Phase:    PhaseExecute,
		Kind:     KindException,
		Context:  id,
		Function: function,
		Cause:    cause,
	}
}

// Aborted creates an error for an aborted execution
func Aborted(id uint64) *Error {
	return &Error{
		Phase:   PhaseExecute,
		Kind:    KindAborted,
		Context: id,
		Detail:  "execution aborted",
	}
}

// DoubleReturn creates an error for a context returned more than once
func DoubleReturn(id uint64) *Error {
	return &Error{
		Phase:   PhaseSchedule,
		Kind:    KindDoubleReturn,
		Context: id,
		Detail:  "context already returned to its engine",
	}
}

// Registration creates a host function registration error
func Registration(decl string, cause error) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s", decl),
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}

// MissingImport represents a single unresolved import
type MissingImport struct {
	Module   string // e.g., "env"
	Function string // e.g., "yield"
}

// MissingImportsError is returned when a script module imports host
// functions that were never registered
type MissingImportsError struct {
	Imports []MissingImport
}

// NewMissingImportsError creates an error from a list of "module#function" strings
func NewMissingImportsError(imports []string) *MissingImportsError {
	result := &MissingImportsError{
		Imports: make([]MissingImport, 0, len(imports)),
	}
	for _, imp := range imports {
		mod, fn, found := strings.Cut(imp, "#")
		if !found {
			mod, fn = imp, ""
		}
		result.Imports = append(result.Imports, MissingImport{
			Module:   mod,
			Function: fn,
		})
	}
	return result
}

func (e *MissingImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "[host] missing_import: no imports specified"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "missing %d host function(s):\n", len(e.Imports))

	byModule := make(map[string][]string)
	var order []string
	for _, imp := range e.Imports {
		if _, exists := byModule[imp.Module]; !exists {
			order = append(order, imp.Module)
		}
		byModule[imp.Module] = append(byModule[imp.Module], imp.Function)
	}

	for _, mod := range order {
		b.WriteString("\n  ")
		b.WriteString(mod)
		b.WriteString(":\n")
		for _, fn := range byModule[mod] {
			b.WriteString("    - ")
			b.WriteString(fn)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type
func (e *MissingImportsError) Is(target error) bool {
	_, ok := target.(*MissingImportsError)
	return ok
}
