// Package errors provides structured error types for the script runtime.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the script function, the execution context id and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhasePrepare, errors.KindNotFound).
//		Function("main").
//		Context(xc.ID()).
//		Detail("export not found").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Exhausted(errors.PhaseSchedule, "context", 64)
//	err := errors.InvalidState(errors.PhaseExecute, xc.ID(), "suspend", xc.State())
//
// The scheduler and debugger never return these errors to their callers; they
// are logged, and engines use them for their own return values.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
