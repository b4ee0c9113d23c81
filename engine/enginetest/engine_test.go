package enginetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scriptruntime "github.com/wippyai/script-runtime"
)

func TestEngine_PoolReusesContexts(t *testing.T) {
	eng := NewEngine(WithMaxContexts(2))

	a := eng.RequestContext()
	b := eng.RequestContext()
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Nil(t, eng.RequestContext(), "pool limit reached")
	assert.Equal(t, 2, eng.Outstanding())
	assert.Equal(t, 3, eng.Requests())

	eng.ReturnContext(a)
	assert.Equal(t, 1, eng.Outstanding())
	assert.Equal(t, 1, eng.Returned(a.ID()))

	c := eng.RequestContext()
	require.NotNil(t, c)
	assert.Equal(t, a.ID(), c.ID(), "pooled context keeps its id")
}

func TestEngine_DoubleReturnCounted(t *testing.T) {
	eng := NewEngine()
	xc := eng.RequestContext()

	eng.ReturnContext(xc)
	eng.ReturnContext(xc)

	assert.Equal(t, 2, eng.Returned(xc.ID()))
	assert.Equal(t, 1, eng.DoubleReturns())
	assert.Equal(t, 0, eng.Outstanding())
}

func TestEngine_RefCount(t *testing.T) {
	eng := NewEngine()
	assert.Equal(t, 2, eng.AddRef())
	assert.Equal(t, 1, eng.Release())
	assert.Equal(t, 1, eng.Refs())
}

func TestHostName(t *testing.T) {
	tests := []struct {
		decl string
		want string
	}{
		{"void yield()", "yield"},
		{"void sleep(uint ms)", "sleep"},
		{"sleep: func(ms: u32)", "sleep"},
		{"spawnCoRoutine", "spawnCoRoutine"},
		{"  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.decl, func(t *testing.T) {
			assert.Equal(t, tt.want, hostName(tt.decl))
		})
	}
}

func TestContext_RunsToCompletion(t *testing.T) {
	eng := NewEngine()
	mod := eng.NewModule("m")
	fn := mod.Func(Func{Name: "main", Section: "main.as", Ops: []Op{Line(1), Alloc(3), Line(2)}})

	xc := eng.RequestContext()
	require.NoError(t, xc.Prepare(fn))
	assert.Equal(t, scriptruntime.StatePrepared, xc.State())

	state, err := xc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scriptruntime.StateFinished, state)
	assert.Equal(t, uint64(3), eng.GCStatistics().CurrentSize)
}

func TestContext_SuspendInsideHost(t *testing.T) {
	eng := NewEngine()
	calls := 0
	require.NoError(t, eng.RegisterGlobalFunction("void yield()", func(_ context.Context, xc scriptruntime.ExecutionContext, _ []any) (any, error) {
		calls++
		return nil, xc.Suspend()
	}))
	mod := eng.NewModule("m")
	fn := mod.Func(Func{Name: "main", Ops: []Op{Line(1), CallHost("yield"), Line(2)}})

	xc := eng.RequestContext()
	require.NoError(t, xc.Prepare(fn))

	state, err := xc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scriptruntime.StateSuspended, state)
	_, line, _ := xc.LineNumber(0)
	assert.Equal(t, 1, line)

	state, err = xc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, scriptruntime.StateFinished, state)
	assert.Equal(t, 1, calls)
}

func TestContext_Exception(t *testing.T) {
	eng := NewEngine()
	fn := eng.NewModule("m").Func(Func{Name: "main", Ops: []Op{Line(1), Fail("null pointer access")}})

	xc := eng.RequestContext()
	require.NoError(t, xc.Prepare(fn))
	state, err := xc.Execute(context.Background())
	assert.Equal(t, scriptruntime.StateException, state)
	assert.Error(t, err)
	assert.Equal(t, "null pointer access", xc.ExceptionString())
}

func TestContext_HostErrorRaises(t *testing.T) {
	eng := NewEngine()
	require.NoError(t, eng.RegisterGlobalFunction("void boom()", func(context.Context, scriptruntime.ExecutionContext, []any) (any, error) {
		return nil, errors.New("boom")
	}))
	fn := eng.NewModule("m").Func(Func{Name: "main", Ops: []Op{CallHost("boom")}})

	xc := eng.RequestContext()
	require.NoError(t, xc.Prepare(fn))
	state, _ := xc.Execute(context.Background())
	assert.Equal(t, scriptruntime.StateException, state)
	assert.Equal(t, "boom", xc.ExceptionString())
}

func TestContext_FailPrepare(t *testing.T) {
	eng := NewEngine()
	fn := eng.NewModule("m").Func(Func{Name: "main"})
	eng.FailPrepare("main", errors.New("bad"))

	xc := eng.RequestContext()
	assert.Error(t, xc.Prepare(fn))
	assert.Error(t, xc.Prepare(nil))
}

func TestContext_CallStackAndScope(t *testing.T) {
	eng := NewEngine()
	mod := eng.NewModule("m")
	x := int32(7)

	var depth, inScope int
	var section string
	var line int
	mod.Func(Func{
		Name:    "inner",
		Section: "lib/inner.as",
		Vars: []Var{{
			Variable: scriptruntime.Variable{Name: "x", Declaration: "int x", TypeID: scriptruntime.TypeIDInt32},
			Addr:     &x,
		}},
		Ops: []Op{Declare(), Line(10)},
	})
	fn := mod.Func(Func{Name: "main", Section: "main.as", Ops: []Op{Line(1), Call("inner"), Line(2)}})

	xc := eng.RequestContext()
	require.NoError(t, xc.SetLineCallback(func(xc scriptruntime.ExecutionContext) {
		if xc.CallstackSize() == 2 {
			depth = xc.CallstackSize()
			section, line, _ = xc.LineNumber(0)
			for i := 0; i < xc.VarCount(0); i++ {
				if xc.IsVarInScope(i, 0) {
					inScope++
				}
			}
		}
	}))
	require.NoError(t, xc.Prepare(fn))
	_, err := xc.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, depth)
	assert.Equal(t, "lib/inner.as", section)
	assert.Equal(t, 10, line)
	assert.Equal(t, 1, inScope)
}

func TestContext_AbortWhileActive(t *testing.T) {
	eng := NewEngine()
	require.NoError(t, eng.RegisterGlobalFunction("void stop()", func(_ context.Context, xc scriptruntime.ExecutionContext, _ []any) (any, error) {
		return nil, xc.Abort()
	}))
	fn := eng.NewModule("m").Func(Func{Name: "main", Ops: []Op{CallHost("stop"), Line(2)}})

	xc := eng.RequestContext()
	require.NoError(t, xc.Prepare(fn))
	state, _ := xc.Execute(context.Background())
	assert.Equal(t, scriptruntime.StateAborted, state)
}

func TestGarbageCollect(t *testing.T) {
	eng := NewEngine()
	eng.alloc(4)

	require.NoError(t, eng.GarbageCollect(scriptruntime.GCOneStep|scriptruntime.GCDetectGarbage))
	assert.Equal(t, uint64(4), eng.GCStatistics().CurrentSize)

	require.NoError(t, eng.GarbageCollect(scriptruntime.GCFullCycle))
	stats := eng.GCStatistics()
	assert.Equal(t, uint64(0), stats.CurrentSize)
	assert.Equal(t, uint64(4), stats.TotalDestroyed)
	assert.Len(t, eng.GCCalls(), 2)
}

func TestFindNextLineWithCode(t *testing.T) {
	eng := NewEngine()
	fn := eng.NewModule("m").Func(Func{Name: "f", Ops: []Op{Line(3), Line(7), Line(5)}})

	assert.Equal(t, 3, fn.FindNextLineWithCode(1))
	assert.Equal(t, 5, fn.FindNextLineWithCode(4))
	assert.Equal(t, 7, fn.FindNextLineWithCode(7))
	assert.Equal(t, -1, fn.FindNextLineWithCode(8))
	assert.Equal(t, "void f()", fn.Declaration())
}

func TestRegisterType(t *testing.T) {
	eng := NewEngine()
	color := eng.RegisterType(TypeSpec{Name: "Color", Kind: KindEnum, EnumValues: []EnumValue{{"Red", 0}}})
	player := eng.RegisterType(TypeSpec{Name: "Player", Kind: KindScriptClass})
	arr := eng.RegisterType(TypeSpec{Name: "array", Kind: KindTemplate})
	arrInt := eng.RegisterType(TypeSpec{Name: "array", Kind: KindTemplate})

	assert.True(t, color.TypeID().IsEnum())
	assert.True(t, player.TypeID().IsScriptObject())
	assert.Equal(t, player, eng.TypeInfoByID(player.Handle()))
	assert.Equal(t, arr, eng.TypeInfoByName("array"))
	assert.NotEqual(t, arr.TypeID(), arrInt.TypeID())
	assert.Nil(t, eng.TypeInfoByName("missing"))
}
