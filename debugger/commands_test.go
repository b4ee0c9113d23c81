package debugger

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scriptruntime "github.com/wippyai/script-runtime"
)

const helpText = " c - Continue\n" +
	" s - Step into\n" +
	" n - Next step\n" +
	" o - Step out\n" +
	" b - Set break point\n" +
	" l - List various things\n" +
	" r - Remove break point\n" +
	" p - Print value\n" +
	" w - Where am I?\n" +
	" a - Abort execution\n" +
	" h - Print this help text\n"

func newIdle() (*Debugger, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return New(WithOutput(out), WithInput(&scriptedInput{})), out
}

func TestBreakCommand(t *testing.T) {
	tests := []struct {
		cmd    string
		want   []BreakPoint
		output string
	}{
		{"b game.as:12", []BreakPoint{Resolved{File: "game.as", Line: 12, NeedsAdjustment: true}}, "Setting break point in file 'game.as' at line 12\n"},
		{"b scripts/game.as: 3", []BreakPoint{Resolved{File: "game.as", Line: 3, NeedsAdjustment: true}}, "Setting break point in file 'game.as' at line 3\n"},
		{"b  update ", []BreakPoint{Unresolved{Function: "update"}}, "Adding deferred break point for function 'update'\n"},
		{"b", nil, "Incorrect format for setting break point"},
		{"b   ", nil, "Incorrect format for setting break point"},
		{"b :5", nil, "Incorrect format for setting break point"},
		{"b  :5", nil, "Incorrect format for setting break point"},
		{"b scripts/:5", nil, "Incorrect format for setting break point"},
		{"b game.as:abc", nil, "Incorrect format for setting break point"},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			d, out := newIdle()
			assert.False(t, d.InterpretCommand(tt.cmd, nil))
			assert.Equal(t, tt.want, d.BreakPoints())
			assert.True(t, strings.HasPrefix(out.String(), tt.output), out.String())
		})
	}
}

func TestRemoveCommand(t *testing.T) {
	d, out := newIdle()
	d.AddFileBreakPoint("game.as", 12)
	d.AddFuncBreakPoint("main")
	d.AddFuncBreakPoint("update")
	out.Reset()

	d.InterpretCommand("l b", nil)
	assert.Equal(t, "0 - game.as:12\n1 - main\n2 - update\n", out.String())

	out.Reset()
	d.InterpretCommand("r 1", nil)
	assert.Equal(t, "0 - game.as:12\n1 - update\n", out.String())

	out.Reset()
	d.InterpretCommand("r 9", nil)
	assert.Equal(t, "No break point with number 9\n0 - game.as:12\n1 - update\n", out.String(), "out of range index changes nothing")

	out.Reset()
	d.InterpretCommand("r -1", nil)
	assert.Equal(t, "No break point with number -1\n0 - game.as:12\n1 - update\n", out.String())

	for _, bad := range []string{"r", "r ", "r x"} {
		out.Reset()
		d.InterpretCommand(bad, nil)
		assert.Equal(t, "Incorrect format for removing break points, expected:\n r <all|number of break point>\n", out.String(), bad)
	}

	out.Reset()
	d.InterpretCommand("r all", nil)
	assert.Equal(t, "All break points have been removed\n", out.String())
	assert.Empty(t, d.BreakPoints())
}

func TestListCommand_Errors(t *testing.T) {
	d, out := newIdle()

	d.InterpretCommand("l", nil)
	assert.Equal(t, "Incorrect format for list command.\n"+helpText, out.String())

	out.Reset()
	d.InterpretCommand("l q", nil)
	assert.Equal(t, "Unknown list option.\n"+helpText, out.String())
}

func TestCommands_WithoutScript(t *testing.T) {
	for _, cmd := range []string{"l v", "l g", "l m", "l s", "w", "p x", "a"} {
		t.Run(cmd, func(t *testing.T) {
			d, out := newIdle()
			assert.False(t, d.InterpretCommand(cmd, nil))
			assert.Equal(t, "No script is running\n", out.String())
		})
	}
}

func TestHelpAndUnknown(t *testing.T) {
	d, out := newIdle()

	assert.False(t, d.InterpretCommand("h", nil))
	assert.Equal(t, helpText, out.String())

	out.Reset()
	assert.False(t, d.InterpretCommand("z", nil))
	assert.Equal(t, "Unknown command\n", out.String())
}

func TestResumeCommands(t *testing.T) {
	tests := []struct {
		cmd   string
		want  Action
		depth int
	}{
		{"c", Continue, 0},
		{"s", StepInto, 0},
		{"n", StepOver, 1},
		{"o", StepOut, 0},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			d, _ := newIdle()
			assert.True(t, d.InterpretCommand(tt.cmd, nil))
			assert.Equal(t, tt.want, d.Action())
			assert.Equal(t, tt.depth, d.lastDepth)
		})
	}
}

func TestRegisterCommand(t *testing.T) {
	d, out := newIdle()

	var gotArgs string
	d.RegisterCommand('x', "Dump state", func(d *Debugger, args string, _ scriptruntime.ExecutionContext) bool {
		gotArgs = args
		d.Output("dumped\n")
		return false
	})
	d.RegisterCommand('c', "Carry on", resume(Continue))

	assert.False(t, d.InterpretCommand("x all", nil))
	assert.Equal(t, " all", gotArgs)

	out.Reset()
	d.PrintHelp()
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 12)
	assert.Equal(t, " c - Carry on", lines[0], "replacing keeps the position")
	assert.Equal(t, " x - Dump state", lines[11])
}

func TestLineInput(t *testing.T) {
	var prompts bytes.Buffer
	in := NewLineInput(strings.NewReader("c\r\nn\nlast"), &prompts)

	for _, want := range []string{"c", "n", "last"} {
		line, err := in.ReadLine("> ")
		require.NoError(t, err)
		assert.Equal(t, want, line)
	}
	_, err := in.ReadLine("> ")
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "> > > > ", prompts.String())
}

func TestTakeCommands_UsesPrompt(t *testing.T) {
	in := &scriptedInput{lines: []string{"h", "c"}}
	d := New(WithOutput(io.Discard), WithInput(in), WithPrompt("dbg> "))

	d.TakeCommands(nil)
	assert.Equal(t, []string{"dbg> ", "dbg> "}, in.prompts)
	assert.Equal(t, Continue, d.Action())
}
