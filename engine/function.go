package engine

import (
	"slices"
	"strings"

	"github.com/tetratelabs/wazero/api"

	scriptruntime "github.com/wippyai/script-runtime"
	"github.com/wippyai/script-runtime/errors"
)

// Module is the reflective view of a compiled module: its exported
// functions. Core modules expose no script globals.
type Module struct {
	engine *Engine
	funcs  map[string]*Function
	name   string
	order  []string
}

var _ scriptruntime.Module = (*Module)(nil)

func newModule(e *Engine, name, witText string, exports map[string]api.FunctionDefinition) (*Module, error) {
	var decls map[string]*funcDecl
	if strings.TrimSpace(witText) != "" {
		var err error
		if decls, err = parseDecls(witText); err != nil {
			return nil, err
		}
	}

	m := &Module{engine: e, name: name, funcs: make(map[string]*Function)}
	for _, export := range sortedNames(exports) {
		if strings.HasPrefix(export, "asyncify_") || strings.HasPrefix(export, "_") {
			continue
		}
		def := exports[export]
		d, ok := decls[export]
		if !ok {
			var err error
			if d, err = declFromCore(export, def); err != nil {
				Logger().Sugar().Debugf("skipping export %s: %v", export, err)
				continue
			}
		} else if params, results := d.signature(); !slices.Equal(params, def.ParamTypes()) || !slices.Equal(results, def.ResultTypes()) {
			return nil, errors.New(errors.PhaseLoad, errors.KindInvalidData).
				Function(export).
				Detail("declared %s, export has signature %s -> %s",
					d.text, valueTypeNames(def.ParamTypes()), valueTypeNames(def.ResultTypes())).
				Build()
		}
		m.funcs[export] = &Function{module: m, decl: d}
		m.order = append(m.order, export)
	}
	return m, nil
}

func (m *Module) Name() string { return m.name }

// FunctionByName returns the export called name, or nil.
func (m *Module) FunctionByName(name string) scriptruntime.Function {
	if f, ok := m.funcs[name]; ok {
		return f
	}
	return nil
}

// Functions returns the exports in name order.
func (m *Module) Functions() []*Function {
	out := make([]*Function, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.funcs[name])
	}
	return out
}

func (m *Module) GlobalVarCount() int                  { return 0 }
func (m *Module) GlobalVar(int) scriptruntime.Variable { return scriptruntime.Variable{} }
func (m *Module) AddressOfGlobalVar(int) any           { return nil }

// Function is an exported function.
type Function struct {
	module *Module
	decl   *funcDecl
}

var _ scriptruntime.Function = (*Function)(nil)

func (f *Function) Name() string                       { return f.decl.name }
func (f *Function) Namespace() string                  { return "" }
func (f *Function) Declaration() string                { return f.decl.text }
func (f *Function) ScriptSection() string              { return f.module.name }
func (f *Function) Module() scriptruntime.Module       { return f.module }
func (f *Function) ObjectType() scriptruntime.TypeInfo { return nil }

// FindNextLineWithCode returns line: without debug information every line
// is taken to hold code.
func (f *Function) FindNextLineWithCode(line int) int { return line }
