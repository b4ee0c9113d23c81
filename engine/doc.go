// Package engine runs core WebAssembly modules as a script engine.
//
// An Engine wraps a wazero runtime and one compiled module. Exported
// functions are the module's script functions; each execution context owns
// its own instance of the module, so contexts never share guest memory.
// Contexts and their instances are pooled by the engine.
//
// # Host Functions
//
// Host functions are declared in WIT function syntax and bound to the
// module's imports by function name:
//
//	eng, err := engine.New(ctx, wasm, engine.WithMaxContexts(64))
//	if err != nil {
//	    return err
//	}
//	err = eng.RegisterGlobalFunction("sleep: func(ms: u32)", sleepHook)
//
// Parameters are lifted to Go values before the host function is called:
//
//	WIT Type        Go Value     Core Representation
//	────────────────────────────────────────────────
//	bool            bool         i32
//	u8 .. u32, s8 .. s32, char   i32
//	u64, s64        uint64/int64 i64
//	f32, f64        float32/64   f32, f64
//	string          string       (ptr, len) as i32×2
//
// Imports without a registered host function make Link, and with it the
// first RequestContext, fail with *errors.MissingImportsError.
//
// # Suspension
//
// Modules compiled with wasm-opt --asyncify can be suspended from a host
// function. Suspend inside the host call starts an asyncify unwind once the
// host function returns; the next Execute rewinds the guest stack, and the
// repeated host call returns the stored result without calling the host
// function again. Modules without asyncify run every call to completion and
// Suspend reports an unsupported error.
//
// # Reflection
//
// Core modules carry no debug information: the call stack is the prepared
// export only, there are no variables or line callbacks, and garbage
// collection is a no-op.
//
// Contexts are not safe for concurrent use. The engine itself may be shared.
package engine
