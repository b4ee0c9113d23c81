// Package debugger implements an interactive source-level debugger for
// script execution contexts.
//
// The debugger is driven by the engine's line callback. Attach it to the
// contexts to debug, for example through the scheduler:
//
//	dbg := debugger.New()
//	dbg.SetEngine(engine)
//	defer dbg.Close()
//
//	dbg.AddFuncBreakPoint("main")
//	sched := scheduler.New(scheduler.WithLineCallback(dbg.LineCallback))
//
// When execution stops the debugger prints the location and reads commands
// until one resumes execution:
//
//	c - Continue
//	s - Step into
//	n - Next step
//	o - Step out
//	b - Set break point
//	l - List various things
//	r - Remove break point
//	p - Print value
//	w - Where am I?
//	a - Abort execution
//	h - Print this help text
//
// # Breakpoints
//
// A function breakpoint is deferred: it turns into a file breakpoint at the
// function's entry line the first time the function is entered. File
// breakpoints are moved forward to the next line with code once a function
// of that file is entered.
//
// # Extending
//
// RegisterCommand adds commands to the table. RegisterFormatter teaches
// the debugger how to print application types:
//
//	dbg.RegisterFormatter(engine.TypeInfoByName("string"), func(v any, _ int, _ *debugger.Debugger) string {
//	    return strconv.Quote(*v.(*string))
//	})
//
// Commands are read from an Input. DefaultInput uses an interactive prompt
// on terminals and plain line reading otherwise.
package debugger
