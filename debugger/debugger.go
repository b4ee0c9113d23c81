package debugger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	scriptruntime "github.com/wippyai/script-runtime"
)

// Action is the stepping mode that decides where execution stops next.
type Action int

const (
	Continue Action = iota
	StepInto
	StepOver
	StepOut
)

func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case StepInto:
		return "step into"
	case StepOver:
		return "step over"
	case StepOut:
		return "step out"
	default:
		return "unknown"
	}
}

// DefaultPrompt is printed before every command read.
const DefaultPrompt = "[dbg]> "

// DefaultExpandMembers is the depth to which object members are printed.
const DefaultExpandMembers = 3

// Option configures a Debugger.
type Option func(*Debugger)

// WithOutput sets the writer for all debugger output.
func WithOutput(w io.Writer) Option {
	return func(d *Debugger) { d.out = w }
}

// WithInput sets the command source.
func WithInput(in Input) Option {
	return func(d *Debugger) { d.input = in }
}

// WithPrompt overrides DefaultPrompt.
func WithPrompt(prompt string) Option {
	return func(d *Debugger) { d.prompt = prompt }
}

// WithExpandMembers overrides DefaultExpandMembers.
func WithExpandMembers(n int) Option {
	return func(d *Debugger) { d.expandMembers = n }
}

// WithAction sets the initial stepping mode. The default is StepInto, so
// execution stops on the first line.
func WithAction(a Action) Option {
	return func(d *Debugger) { d.action = a }
}

// Debugger is an interactive line-level debugger. Install LineCallback on
// the contexts to debug; the callback blocks in TakeCommands whenever
// execution stops.
type Debugger struct {
	out          io.Writer
	input        Input
	engine       scriptruntime.Engine
	lastFunction scriptruntime.Function
	formatters   map[scriptruntime.TypeID]Formatter
	commands     map[byte]*Command
	session      string
	prompt       string
	styles       styles
	breakPoints  []BreakPoint
	order        []byte
	lastDepth    int
	action       Action

	expandMembers int
}

// New creates a debugger writing to stdout and reading commands from
// DefaultInput unless configured otherwise.
func New(opts ...Option) *Debugger {
	d := &Debugger{
		out:           os.Stdout,
		formatters:    make(map[scriptruntime.TypeID]Formatter),
		commands:      make(map[byte]*Command),
		session:       uuid.NewString(),
		prompt:        DefaultPrompt,
		action:        StepInto,
		expandMembers: DefaultExpandMembers,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.input == nil {
		d.input = DefaultInput(d.out)
	}
	d.styles = newStyles(d.out)
	d.registerBuiltins()

	Logger().Debug("debugger created", zap.String("session", d.session))
	return d
}

// Session returns the id used to correlate this debugger's log entries.
func (d *Debugger) Session() string { return d.session }

// Action returns the current stepping mode.
func (d *Debugger) Action() Action { return d.action }

// SetEngine takes a reference on eng and drops the reference on the
// previous engine.
func (d *Debugger) SetEngine(eng scriptruntime.Engine) {
	if eng == d.engine {
		return
	}
	if eng != nil {
		eng.AddRef()
	}
	if d.engine != nil {
		d.engine.Release()
	}
	d.engine = eng
}

// Engine returns the engine set with SetEngine.
func (d *Debugger) Engine() scriptruntime.Engine { return d.engine }

// Close drops the engine reference.
func (d *Debugger) Close() error {
	d.SetEngine(nil)
	Logger().Debug("debugger closed", zap.String("session", d.session))
	return nil
}

// Output writes text to the debugger's writer.
func (d *Debugger) Output(text string) {
	if _, err := io.WriteString(d.out, text); err != nil {
		Logger().Debug("output failed", zap.String("session", d.session), zap.Error(err))
	}
}

func (d *Debugger) outputf(format string, args ...any) {
	d.Output(fmt.Sprintf(format, args...))
}

// LineCallback decides whether to stop at the current line and, if so,
// prints the location and runs the command loop.
func (d *Debugger) LineCallback(xc scriptruntime.ExecutionContext) {
	if xc == nil || xc.State() != scriptruntime.StateActive {
		return
	}

	switch d.action {
	case Continue:
		if !d.checkBreakPoint(xc) {
			return
		}
	case StepOver, StepOut:
		if xc.CallstackSize() > d.lastDepth {
			if !d.checkBreakPoint(xc) {
				return
			}
		}
	case StepInto:
		d.checkBreakPoint(xc)
	}

	section, line, _ := xc.LineNumber(0)
	decl := ""
	if fn := xc.Function(0); fn != nil {
		decl = fn.Declaration()
	}
	d.Output(d.styles.location.Render(fmt.Sprintf("%s:%d; %s", sectionName(section), line, decl)) + "\n")

	Logger().Debug("stopped",
		zap.String("session", d.session),
		zap.Uint64("context", xc.ID()),
		zap.String("section", section),
		zap.Int("line", line),
		zap.Stringer("action", d.action))

	d.TakeCommands(xc)
}

// checkBreakPoint resolves pending breakpoints when a new function is
// entered and reports whether a breakpoint is set on the current line.
func (d *Debugger) checkBreakPoint(xc scriptruntime.ExecutionContext) bool {
	section, line, _ := xc.LineNumber(0)
	file := baseName(section)

	fn := xc.Function(0)
	if fn != nil && fn != d.lastFunction {
		for i, bp := range d.breakPoints {
			switch b := bp.(type) {
			case Unresolved:
				if b.Function == fn.Name() {
					d.outputf("Entering function '%s'. Transforming it into break point\n", b.Function)
					d.breakPoints[i] = b.resolve(file, line)
				}
			case Resolved:
				if !b.NeedsAdjustment || b.File != file {
					continue
				}
				next := fn.FindNextLineWithCode(b.Line)
				if next < 0 {
					continue
				}
				b.NeedsAdjustment = false
				if next != b.Line {
					d.outputf("Moving break point %d in file '%s' to next line with code at line %d\n", i, file, next)
					b.Line = next
				}
				d.breakPoints[i] = b
			}
		}
	}
	d.lastFunction = fn

	for i, bp := range d.breakPoints {
		if b, ok := bp.(Resolved); ok && b.Line == line && b.File == file {
			d.Output(d.styles.hit.Render(fmt.Sprintf("Reached break point %d in file '%s' at line %d", i, file, line)) + "\n")
			return true
		}
	}
	return false
}

func sectionName(section string) string {
	if section == "" {
		return "{unnamed}"
	}
	return section
}

// AddFileBreakPoint sets a breakpoint on a line of a script file. Only the
// base name of file is kept. The line is moved to the next line with code
// the first time a function of that file is entered.
func (d *Debugger) AddFileBreakPoint(file string, line int) {
	file = strings.TrimSpace(baseName(file))
	d.outputf("Setting break point in file '%s' at line %d\n", file, line)
	d.breakPoints = append(d.breakPoints, Resolved{File: file, Line: line, NeedsAdjustment: true})
}

// AddFuncBreakPoint sets a deferred breakpoint on the entry of a function.
func (d *Debugger) AddFuncBreakPoint(name string) {
	name = strings.TrimSpace(name)
	d.outputf("Adding deferred break point for function '%s'\n", name)
	d.breakPoints = append(d.breakPoints, Unresolved{Function: name})
}

// BreakPoints returns a copy of the breakpoint list.
func (d *Debugger) BreakPoints() []BreakPoint {
	return append([]BreakPoint(nil), d.breakPoints...)
}

// RemoveBreakPoint removes the breakpoint at index i.
func (d *Debugger) RemoveBreakPoint(i int) bool {
	if i < 0 || i >= len(d.breakPoints) {
		return false
	}
	d.breakPoints = append(d.breakPoints[:i], d.breakPoints[i+1:]...)
	return true
}

// ClearBreakPoints removes every breakpoint.
func (d *Debugger) ClearBreakPoints() {
	d.breakPoints = nil
}
