package scriptruntime

// GCFlags selects the work done by Engine.GarbageCollect.
type GCFlags uint8

const (
	GCDestroyGarbage GCFlags = 1 << iota
	GCDetectGarbage
	GCOneStep

	GCFullCycle = GCDestroyGarbage | GCDetectGarbage
)

// GCStats reports the engine's garbage collector counters.
type GCStats struct {
	CurrentSize       uint64
	TotalDestroyed    uint64
	TotalDetected     uint64
	NewObjects        uint64
	TotalNewDestroyed uint64
}

// Engine is a reference-counted scripting engine.
type Engine interface {
	AddRef() int
	Release() int

	// RequestContext borrows a context from the engine pool. It returns nil
	// when no context can be supplied.
	RequestContext() ExecutionContext
	// ReturnContext gives a borrowed context back. Each borrowed context must
	// be returned exactly once.
	ReturnContext(xc ExecutionContext)

	// RegisterGlobalFunction exposes fn to scripts under decl. The
	// declaration syntax is engine specific.
	RegisterGlobalFunction(decl string, fn HostFunc) error

	GarbageCollect(flags GCFlags) error
	GCStatistics() GCStats

	TypeInfoByID(id TypeID) TypeInfo
	TypeInfoByName(name string) TypeInfo
}
