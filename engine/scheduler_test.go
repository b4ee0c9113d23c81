package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/script-runtime/engine"
	"github.com/wippyai/script-runtime/scheduler"
)

// sleepModule exports main, which calls env.sleep(5).
var sleepModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x08, 0x02, 0x60, 0x01, 0x7f, 0x00, 0x60, 0x00, 0x00,
	0x02, 0x0d, 0x01, 0x03, 0x65, 0x6e, 0x76, 0x05, 0x73, 0x6c, 0x65, 0x65, 0x70, 0x00, 0x00,
	0x03, 0x02, 0x01, 0x01,
	0x07, 0x08, 0x01, 0x04, 0x6d, 0x61, 0x69, 0x6e, 0x00, 0x01,
	0x0a, 0x08, 0x01, 0x06, 0x00, 0x41, 0x05, 0x10, 0x00, 0x0b,
}

func TestSchedulerRunsModule(t *testing.T) {
	ctx := context.Background()
	eng, err := engine.New(ctx, sleepModule)
	require.NoError(t, err)
	defer eng.Release()

	sched := scheduler.New(scheduler.WithHookDecls(scheduler.WITHookDecls))
	defer sched.Close()
	require.NoError(t, sched.RegisterHooks(eng))

	xc := sched.AddExecution(eng, eng.Module().FunctionByName("main"), false)
	require.NotNil(t, xc)
	assert.Equal(t, 1, eng.Lent())

	assert.Equal(t, 0, sched.Tick(ctx), "sleep cannot suspend without asyncify, so main runs to completion")
	assert.Equal(t, 0, eng.Lent())
	assert.Equal(t, uint64(1), sched.Stats().Executions)
}
