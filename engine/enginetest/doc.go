// Package enginetest provides a deterministic in-memory scripting engine.
//
// Scripts are Go-declared lists of ops instead of bytecode. Each op models
// one observable effect of running script code: reaching a line, calling a
// script function, calling a host function, allocating collectible objects,
// bringing a local variable into scope, or raising an exception.
//
//	eng := enginetest.NewEngine(enginetest.WithMaxContexts(4))
//	mod := eng.NewModule("game")
//	mod.Func(enginetest.Func{
//	    Name:    "main",
//	    Section: "scripts/main.as",
//	    Ops: []enginetest.Op{
//	        enginetest.Line(3),
//	        enginetest.CallHost("yield"),
//	        enginetest.Line(4),
//	        enginetest.Alloc(2),
//	    },
//	})
//
// The engine records what the code under test did to it: contexts returned
// per id, contexts still outstanding, and every garbage collection request.
package enginetest
