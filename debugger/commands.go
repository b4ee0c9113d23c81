package debugger

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	scriptruntime "github.com/wippyai/script-runtime"
)

// CommandFunc runs a command. args is the command line after the command
// letter. The result reports whether execution should resume.
type CommandFunc func(d *Debugger, args string, xc scriptruntime.ExecutionContext) bool

// Command is an entry of the command table.
type Command struct {
	Run  CommandFunc
	Help string
	Key  byte
}

// RegisterCommand adds a command or replaces the command bound to key.
// Help is printed by the h command as " key - help".
func (d *Debugger) RegisterCommand(key byte, help string, run CommandFunc) {
	if _, ok := d.commands[key]; !ok {
		d.order = append(d.order, key)
	}
	d.commands[key] = &Command{Key: key, Help: help, Run: run}
}

func (d *Debugger) registerBuiltins() {
	d.RegisterCommand('c', "Continue", resume(Continue))
	d.RegisterCommand('s', "Step into", resume(StepInto))
	d.RegisterCommand('n', "Next step", cmdStepOver)
	d.RegisterCommand('o', "Step out", cmdStepOut)
	d.RegisterCommand('b', "Set break point", cmdBreak)
	d.RegisterCommand('l', "List various things", cmdList)
	d.RegisterCommand('r', "Remove break point", cmdRemove)
	d.RegisterCommand('p', "Print value", cmdPrint)
	d.RegisterCommand('w', "Where am I?", cmdWhere)
	d.RegisterCommand('a', "Abort execution", cmdAbort)
	d.RegisterCommand('h', "Print this help text", cmdHelp)
}

// TakeCommands reads and runs commands until one resumes execution. End of
// input resumes with Continue.
func (d *Debugger) TakeCommands(xc scriptruntime.ExecutionContext) {
	for {
		line, err := d.input.ReadLine(d.prompt)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				Logger().Warn("reading command failed", zap.String("session", d.session), zap.Error(err))
			}
			d.action = Continue
			return
		}
		if d.InterpretCommand(strings.TrimRight(line, "\r\n"), xc) {
			return
		}
	}
}

// InterpretCommand runs one command line and reports whether execution
// should resume. An empty line resumes with the current action.
func (d *Debugger) InterpretCommand(cmd string, xc scriptruntime.ExecutionContext) bool {
	if len(cmd) == 0 {
		return true
	}
	c, ok := d.commands[cmd[0]]
	if !ok {
		d.Output("Unknown command\n")
		return false
	}
	return c.Run(d, cmd[1:], xc)
}

// PrintHelp lists the registered commands.
func (d *Debugger) PrintHelp() {
	var b strings.Builder
	for _, key := range d.order {
		b.WriteByte(' ')
		b.WriteByte(key)
		b.WriteString(" - ")
		b.WriteString(d.commands[key].Help)
		b.WriteByte('\n')
	}
	d.Output(b.String())
}

func resume(a Action) CommandFunc {
	return func(d *Debugger, _ string, _ scriptruntime.ExecutionContext) bool {
		d.action = a
		return true
	}
}

func depthOf(xc scriptruntime.ExecutionContext) int {
	if xc == nil {
		return 1
	}
	return xc.CallstackSize()
}

func cmdStepOver(d *Debugger, _ string, xc scriptruntime.ExecutionContext) bool {
	d.action = StepOver
	d.lastDepth = depthOf(xc)
	return true
}

// cmdStepOut stops once the frame active now has returned.
func cmdStepOut(d *Debugger, _ string, xc scriptruntime.ExecutionContext) bool {
	d.action = StepOut
	d.lastDepth = depthOf(xc) - 1
	return true
}

func cmdBreak(d *Debugger, args string, _ scriptruntime.ExecutionContext) bool {
	colon := strings.IndexByte(args, ':')
	switch {
	case colon > 1:
		file := args[1:colon]
		if strings.TrimSpace(baseName(file)) == "" {
			break
		}
		line, err := strconv.Atoi(strings.TrimSpace(args[colon+1:]))
		if err != nil {
			break
		}
		d.AddFileBreakPoint(file, line)
		return false
	case colon < 0 && strings.TrimLeft(args, " \t") != "":
		d.AddFuncBreakPoint(args)
		return false
	}
	d.Output("Incorrect format for setting break point, expected one of:\n b <file name>:<line number>\n b <function name>\n")
	return false
}

func cmdRemove(d *Debugger, args string, _ scriptruntime.ExecutionContext) bool {
	if len(args) > 1 {
		which := strings.TrimSpace(args[1:])
		if which == "all" {
			d.ClearBreakPoints()
			d.Output("All break points have been removed\n")
			return false
		}
		if n, err := strconv.Atoi(which); err == nil {
			if !d.RemoveBreakPoint(n) {
				d.outputf("No break point with number %d\n", n)
			}
			d.ListBreakPoints()
			return false
		}
	}
	d.Output("Incorrect format for removing break points, expected:\n r <all|number of break point>\n")
	return false
}

func cmdList(d *Debugger, args string, xc scriptruntime.ExecutionContext) bool {
	opt := strings.TrimLeft(args, " \t")
	if opt == "" {
		d.Output("Incorrect format for list command.\n")
		d.PrintHelp()
		return false
	}
	switch opt[0] {
	case 'b':
		d.ListBreakPoints()
	case 'v':
		d.ListLocalVariables(xc)
	case 'g':
		d.ListGlobalVariables(xc)
	case 'm':
		d.ListMemberProperties(xc)
	case 's':
		d.ListStatistics(xc)
	default:
		d.Output("Unknown list option.\n")
		d.PrintHelp()
	}
	return false
}

func cmdPrint(d *Debugger, args string, xc scriptruntime.ExecutionContext) bool {
	expr := strings.TrimLeft(args, " \t")
	if expr == "" {
		d.Output("Incorrect format for print, expected:\n p <expression>\n")
		return false
	}
	d.PrintValue(expr, xc)
	return false
}

func cmdWhere(d *Debugger, _ string, xc scriptruntime.ExecutionContext) bool {
	d.PrintCallstack(xc)
	return false
}

func cmdAbort(d *Debugger, _ string, xc scriptruntime.ExecutionContext) bool {
	if xc == nil {
		d.Output("No script is running\n")
		return false
	}
	if err := xc.Abort(); err != nil {
		Logger().Warn("abort failed", zap.String("session", d.session), zap.Error(err))
	}
	return true
}

func cmdHelp(d *Debugger, _ string, _ scriptruntime.ExecutionContext) bool {
	d.PrintHelp()
	return false
}
