package scheduler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	scriptruntime "github.com/wippyai/script-runtime"
	"github.com/wippyai/script-runtime/errors"
)

// RegisterHooks registers yield, sleep and spawnCoRoutine in the engine's
// global namespace.
func (s *Scheduler) RegisterHooks(eng scriptruntime.Engine) error {
	hooks := []struct {
		fn   scriptruntime.HostFunc
		decl string
	}{
		{decl: s.hookDecls.Yield, fn: s.yieldHook},
		{decl: s.hookDecls.Sleep, fn: s.sleepHook},
		{decl: s.hookDecls.Spawn, fn: s.spawnHook},
	}
	for _, h := range hooks {
		if h.decl == "" {
			continue
		}
		if err := eng.RegisterGlobalFunction(h.decl, h.fn); err != nil {
			return errors.Registration(h.decl, err)
		}
	}
	return nil
}

func (s *Scheduler) yieldHook(_ context.Context, xc scriptruntime.ExecutionContext, _ []any) (any, error) {
	if err := s.Yield(xc); err != nil {
		Logger().Warn("yield ignored", zap.Error(err))
	}
	return nil, nil
}

func (s *Scheduler) sleepHook(_ context.Context, xc scriptruntime.ExecutionContext, args []any) (any, error) {
	if len(args) < 1 {
		Logger().Warn("sleep ignored: missing duration", zap.Uint64("context", contextID(xc)))
		return nil, nil
	}
	ms, ok := millis(args[0])
	if !ok {
		Logger().Warn("sleep ignored: duration is not a number",
			zap.Uint64("context", contextID(xc)),
			zap.String("type", fmt.Sprintf("%T", args[0])))
		return nil, nil
	}
	if err := s.Sleep(xc, ms); err != nil {
		Logger().Warn("sleep ignored", zap.Error(err))
	}
	return nil, nil
}

func (s *Scheduler) spawnHook(_ context.Context, xc scriptruntime.ExecutionContext, args []any) (any, error) {
	if len(args) < 1 {
		Logger().Warn("spawnCoRoutine ignored: missing function", zap.Uint64("context", contextID(xc)))
		return nil, nil
	}
	fn := resolveFunction(xc, args[0])
	if fn == nil {
		Logger().Warn("spawnCoRoutine ignored: unknown function",
			zap.Uint64("context", contextID(xc)),
			zap.Any("function", args[0]))
		return nil, nil
	}

	co := s.AddCoRoutine(xc, fn)
	if co == nil {
		return nil, nil
	}
	if len(args) > 1 && args[1] != nil {
		if err := co.SetArg(0, args[1]); err != nil {
			Logger().Warn("spawnCoRoutine: argument not passed",
				zap.Uint64("context", co.ID()),
				zap.Error(err))
		}
	}
	return nil, nil
}

// resolveFunction accepts a Function or the name of a function in the
// module of the calling function.
func resolveFunction(xc scriptruntime.ExecutionContext, v any) scriptruntime.Function {
	switch f := v.(type) {
	case scriptruntime.Function:
		return f
	case string:
		caller := xc.Function(0)
		if caller == nil || caller.Module() == nil {
			return nil
		}
		return caller.Module().FunctionByName(f)
	}
	return nil
}

func millis(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}
