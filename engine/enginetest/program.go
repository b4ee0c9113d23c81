package enginetest

import (
	"sort"

	scriptruntime "github.com/wippyai/script-runtime"
)

// OpKind identifies a script op.
type OpKind int

const (
	OpLine OpKind = iota
	OpCall
	OpHost
	OpAlloc
	OpDeclare
	OpFail
)

// Op is one step of a scripted function.
type Op struct {
	Args  []any
	Name  string
	Kind  OpKind
	Value int
}

// Line moves the current frame to line n and fires the line callback.
func Line(n int) Op { return Op{Kind: OpLine, Value: n} }

// Call invokes a script function of the same module.
func Call(fn string) Op { return Op{Kind: OpCall, Name: fn} }

// CallHost invokes a registered host function.
func CallHost(name string, args ...any) Op { return Op{Kind: OpHost, Name: name, Args: args} }

// Alloc creates n collectible objects that become garbage immediately.
func Alloc(n int) Op { return Op{Kind: OpAlloc, Value: n} }

// Declare brings the next local variable of the frame into scope.
func Declare() Op { return Op{Kind: OpDeclare} }

// Fail raises a script exception.
func Fail(msg string) Op { return Op{Kind: OpFail, Name: msg} }

// Var is a local variable. Addr is the variable's address following the
// scriptruntime conventions; it is shared by every frame of the function.
type Var struct {
	Addr any
	scriptruntime.Variable
}

// Func declares a scripted function.
type Func struct {
	// This is the object pointer of a method frame.
	This      any
	Receiver  *Type
	Name      string
	Namespace string
	// Decl defaults to "void Name()".
	Decl    string
	Section string
	Vars    []Var
	Ops     []Op
	// CodeLines defaults to the lines named by Line ops.
	CodeLines []int
	// DeclaredAt is the line of the declaration. Lines before it have no
	// code in this function.
	DeclaredAt int
}

// Function is the reflective view of a Func.
type Function struct {
	def    Func
	module *Module
	lines  []int
}

var _ scriptruntime.Function = (*Function)(nil)

func newFunction(def Func, mod *Module) *Function {
	if def.Decl == "" {
		def.Decl = "void " + def.Name + "()"
	}
	lines := append([]int(nil), def.CodeLines...)
	if len(lines) == 0 {
		for _, op := range def.Ops {
			if op.Kind == OpLine {
				lines = append(lines, op.Value)
			}
		}
	}
	sort.Ints(lines)
	return &Function{def: def, module: mod, lines: lines}
}

func (f *Function) Name() string          { return f.def.Name }
func (f *Function) Namespace() string     { return f.def.Namespace }
func (f *Function) Declaration() string   { return f.def.Decl }
func (f *Function) ScriptSection() string { return f.def.Section }

func (f *Function) Module() scriptruntime.Module {
	if f.module == nil {
		return nil
	}
	return f.module
}

func (f *Function) ObjectType() scriptruntime.TypeInfo {
	if f.def.Receiver == nil {
		return nil
	}
	return f.def.Receiver
}

func (f *Function) FindNextLineWithCode(line int) int {
	if line < f.def.DeclaredAt {
		return -1
	}
	i := sort.SearchInts(f.lines, line)
	if i == len(f.lines) {
		return -1
	}
	return f.lines[i]
}

type global struct {
	addr any
	v    scriptruntime.Variable
}

// Module is a named set of scripted functions and globals.
type Module struct {
	funcs   map[string]*Function
	name    string
	globals []global
}

var _ scriptruntime.Module = (*Module)(nil)

// NewModule creates and registers an empty module.
func (e *Engine) NewModule(name string) *Module {
	m := &Module{name: name, funcs: make(map[string]*Function)}
	e.modules[name] = m
	return m
}

// Func adds a scripted function to the module and returns its reflective view.
func (m *Module) Func(def Func) *Function {
	fn := newFunction(def, m)
	m.funcs[def.Name] = fn
	return fn
}

// Global declares a module global stored at addr.
func (m *Module) Global(v scriptruntime.Variable, addr any) {
	m.globals = append(m.globals, global{v: v, addr: addr})
}

func (m *Module) Name() string { return m.name }

func (m *Module) FunctionByName(name string) scriptruntime.Function {
	fn, ok := m.funcs[name]
	if !ok {
		return nil
	}
	return fn
}

func (m *Module) GlobalVarCount() int { return len(m.globals) }

func (m *Module) GlobalVar(index int) scriptruntime.Variable {
	if index < 0 || index >= len(m.globals) {
		return scriptruntime.Variable{}
	}
	return m.globals[index].v
}

func (m *Module) AddressOfGlobalVar(index int) any {
	if index < 0 || index >= len(m.globals) {
		return nil
	}
	return m.globals[index].addr
}
