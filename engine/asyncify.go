package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// asyncState mirrors the value of asyncify_get_state.
type asyncState int32

const (
	asyncNormal asyncState = iota
	asyncUnwinding
	asyncRewinding
)

const (
	AsyncifyDataAddr         uint32 = 16
	AsyncifyDefaultStackSize uint32 = 1024
)

// AsyncifyConfig places the asyncify data area in guest memory. Zero fields
// take the defaults.
type AsyncifyConfig struct {
	StackSize uint32
	DataAddr  uint32
}

// Asyncify drives the Binaryen asyncify protocol (wasm-opt --asyncify) of a
// single module instance.
//
// Memory layout at dataAddr:
//   - [0:4] stack pointer (grows upward from dataAddr+8)
//   - [4:8] stack end
//   - [8:stackSize] stack data
type Asyncify struct {
	exports struct {
		startUnwind api.Function
		stopUnwind  api.Function
		startRewind api.Function
		stopRewind  api.Function
	}
	memory    api.Memory
	state     asyncState
	dataAddr  uint32
	stackSize uint32
}

// isAsyncified reports whether a module exports the asyncify control functions.
func isAsyncified(exports map[string]api.FunctionDefinition) bool {
	for _, name := range []string{"asyncify_start_unwind", "asyncify_stop_unwind", "asyncify_start_rewind", "asyncify_stop_rewind"} {
		if _, ok := exports[name]; !ok {
			return false
		}
	}
	return true
}

func newAsyncify(cfg AsyncifyConfig) *Asyncify {
	a := &Asyncify{dataAddr: AsyncifyDataAddr, stackSize: AsyncifyDefaultStackSize}
	if cfg.DataAddr > 0 {
		a.dataAddr = cfg.DataAddr
	}
	if cfg.StackSize > 0 {
		a.stackSize = cfg.StackSize
	}
	return a
}

// init binds a to an instance. Call after instantiation.
func (a *Asyncify) init(mod api.Module) error {
	a.memory = guestMemory(mod)
	if a.memory == nil {
		return fmt.Errorf("asyncify: module has no memory")
	}

	a.exports.startUnwind = mod.ExportedFunction("asyncify_start_unwind")
	a.exports.stopUnwind = mod.ExportedFunction("asyncify_stop_unwind")
	a.exports.startRewind = mod.ExportedFunction("asyncify_start_rewind")
	a.exports.stopRewind = mod.ExportedFunction("asyncify_stop_rewind")
	if a.exports.startUnwind == nil || a.exports.stopRewind == nil {
		return fmt.Errorf("asyncify: module missing asyncify exports (run wasm-opt --asyncify)")
	}

	a.state = asyncNormal
	return a.resetStack()
}

// resetStack empties the data area. Call before each fresh call into the guest.
func (a *Asyncify) resetStack() error {
	stackPtr := a.dataAddr + 8
	if !a.memory.WriteUint32Le(a.dataAddr, stackPtr) {
		return fmt.Errorf("asyncify: failed to write stack pointer at %d", a.dataAddr)
	}
	if !a.memory.WriteUint32Le(a.dataAddr+4, stackPtr+a.stackSize) {
		return fmt.Errorf("asyncify: failed to write stack end at %d", a.dataAddr+4)
	}
	return nil
}

func (a *Asyncify) unwinding() bool { return a.state == asyncUnwinding }
func (a *Asyncify) rewinding() bool { return a.state == asyncRewinding }

func (a *Asyncify) startUnwind(ctx context.Context) error {
	if _, err := a.exports.startUnwind.Call(ctx, uint64(a.dataAddr)); err != nil {
		return fmt.Errorf("asyncify: start unwind: %w", err)
	}
	a.state = asyncUnwinding
	return nil
}

func (a *Asyncify) stopUnwind(ctx context.Context) error {
	if _, err := a.exports.stopUnwind.Call(ctx); err != nil {
		return fmt.Errorf("asyncify: stop unwind: %w", err)
	}
	a.state = asyncNormal
	return nil
}

func (a *Asyncify) startRewind(ctx context.Context) error {
	if _, err := a.exports.startRewind.Call(ctx, uint64(a.dataAddr)); err != nil {
		return fmt.Errorf("asyncify: start rewind: %w", err)
	}
	a.state = asyncRewinding
	return nil
}

func (a *Asyncify) stopRewind(ctx context.Context) error {
	if _, err := a.exports.stopRewind.Call(ctx); err != nil {
		return fmt.Errorf("asyncify: stop rewind: %w", err)
	}
	a.state = asyncNormal
	return nil
}

// abandon drops a half finished unwind or rewind so the instance can be
// reused by the next Prepare.
func (a *Asyncify) abandon(ctx context.Context) {
	var err error
	switch a.state {
	case asyncUnwinding:
		err = a.stopUnwind(ctx)
	case asyncRewinding:
		err = a.stopRewind(ctx)
	}
	if err == nil {
		err = a.resetStack()
	}
	if err != nil {
		Logger().Warn("asyncify reset failed", zap.Uint32("data_addr", a.dataAddr), zap.Error(err))
	}
}
