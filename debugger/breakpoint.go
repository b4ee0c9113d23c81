package debugger

import (
	"fmt"
	"strings"
)

// BreakPoint is either Unresolved, naming a function that has not been
// entered yet, or Resolved, naming a file and line.
type BreakPoint interface {
	String() string
	isBreakPoint()
}

// Unresolved is a deferred breakpoint on a function. It becomes a Resolved
// breakpoint at the function's entry line the first time the function is
// entered.
type Unresolved struct {
	Function string
}

// Resolved is a breakpoint on a line of a script file. File holds the base
// name only. NeedsAdjustment is set until the line has been snapped to the
// next line with code.
type Resolved struct {
	File            string
	Line            int
	NeedsAdjustment bool
}

func (Unresolved) isBreakPoint() {}
func (Resolved) isBreakPoint()   {}

func (b Unresolved) String() string { return b.Function }

func (b Resolved) String() string { return fmt.Sprintf("%s:%d", b.File, b.Line) }

// resolve is the only way from Unresolved to Resolved; there is no way back.
func (b Unresolved) resolve(file string, line int) Resolved {
	return Resolved{File: file, Line: line}
}

// baseName strips everything up to the last slash or backslash.
func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
