package config

import (
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/script-runtime/debugger"
	"github.com/wippyai/script-runtime/engine"
	"github.com/wippyai/script-runtime/scheduler"
)

// SchedulerOptions maps the scheduler section to scheduler options.
func (c Config) SchedulerOptions() []scheduler.Option {
	opts := []scheduler.Option{
		scheduler.WithGCPolicy(c.Scheduler.GCAfterAlloc, c.Scheduler.IncrementalGC),
	}
	if c.Scheduler.Hooks == HooksWIT {
		opts = append(opts, scheduler.WithHookDecls(scheduler.WITHookDecls))
	}
	return opts
}

// DebuggerOptions maps the debugger section to debugger options. Commands
// are read from stdin and all output goes to out.
func (c Config) DebuggerOptions(out io.Writer) []debugger.Option {
	opts := []debugger.Option{
		debugger.WithOutput(out),
		debugger.WithPrompt(c.Debugger.Prompt),
		debugger.WithExpandMembers(c.Debugger.ExpandMembers),
	}
	switch c.Debugger.Input {
	case InputTerminal:
		opts = append(opts, debugger.WithInput(debugger.NewTerminalInput(os.Stdin, out)))
	case InputLine:
		opts = append(opts, debugger.WithInput(debugger.NewLineInput(os.Stdin, out)))
	default:
		opts = append(opts, debugger.WithInput(debugger.DefaultInput(out)))
	}
	return opts
}

// EngineOptions maps the engine section to wazero engine options.
func (c Config) EngineOptions() []engine.Option {
	opts := []engine.Option{
		engine.WithAsyncify(engine.AsyncifyConfig{
			StackSize: c.Engine.AsyncifyStackSize,
			DataAddr:  c.Engine.AsyncifyDataAddr,
		}),
	}
	if c.Engine.MaxContexts > 0 {
		opts = append(opts, engine.WithMaxContexts(c.Engine.MaxContexts))
	}
	if c.Engine.MemoryLimitPages > 0 {
		opts = append(opts, engine.WithMemoryLimitPages(c.Engine.MemoryLimitPages))
	}
	return opts
}

// SetLoggers installs l as the logger of every package.
func SetLoggers(l *zap.Logger) {
	scheduler.SetLogger(l)
	debugger.SetLogger(l)
	engine.SetLogger(l)
}
