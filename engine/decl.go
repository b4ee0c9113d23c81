package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/script-runtime/errors"
)

// funcPattern matches "[export|import] name: func(params) [-> result]".
var funcPattern = regexp.MustCompile(`(?:(?:export|import)\s+)?([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;\n]+))?`)

type param struct {
	typ  wit.Type
	name string
}

// funcDecl is a parsed function declaration. Only scalar and string types
// are supported.
type funcDecl struct {
	result wit.Type
	name   string
	text   string
	params []param
}

// parseDecl parses a single declaration such as "sleep: func(ms: u32)".
func parseDecl(text string) (*funcDecl, error) {
	matches := funcPattern.FindAllStringSubmatch(text, -1)
	if len(matches) != 1 {
		return nil, errors.ParseFailed("declaration "+strings.TrimSpace(text), fmt.Errorf("expected one function, found %d", len(matches)))
	}
	return declFromMatch(matches[0])
}

// parseDecls extracts every function declaration from WIT text.
func parseDecls(text string) (map[string]*funcDecl, error) {
	decls := make(map[string]*funcDecl)
	for _, m := range funcPattern.FindAllStringSubmatch(text, -1) {
		d, err := declFromMatch(m)
		if err != nil {
			return nil, err
		}
		decls[d.name] = d
	}
	if len(decls) == 0 {
		return nil, errors.InvalidInput(errors.PhaseParse, "no functions found in WIT text")
	}
	return decls, nil
}

func declFromMatch(m []string) (*funcDecl, error) {
	d := &funcDecl{name: m[1]}

	if params := strings.TrimSpace(m[2]); params != "" {
		for _, p := range strings.Split(params, ",") {
			p = strings.TrimSpace(p)
			name, typStr, ok := strings.Cut(p, ":")
			if !ok {
				return nil, errors.ParseFailed("parameter "+p, fmt.Errorf("missing type"))
			}
			t, err := parseType(typStr)
			if err != nil {
				return nil, err
			}
			d.params = append(d.params, param{name: strings.TrimSpace(name), typ: t})
		}
	}

	if res := strings.TrimSpace(m[3]); res != "" && res != "()" {
		t, err := parseType(res)
		if err != nil {
			return nil, err
		}
		if _, ok := t.(wit.String); ok {
			return nil, errors.Unsupported(errors.PhaseParse, "string results")
		}
		d.result = t
	}

	d.text = d.format()
	return d, nil
}

func parseType(s string) (wit.Type, error) {
	s = strings.TrimSpace(s)
	t, err := wit.ParseType(s)
	if err != nil {
		return nil, errors.ParseFailed("type "+s, err)
	}
	if _, err := coreTypes(t); err != nil {
		return nil, err
	}
	return t, nil
}

// coreTypes returns the flattened core representation of t.
func coreTypes(t wit.Type) ([]api.ValueType, error) {
	switch t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return []api.ValueType{api.ValueTypeI32}, nil
	case wit.U64, wit.S64:
		return []api.ValueType{api.ValueTypeI64}, nil
	case wit.F32:
		return []api.ValueType{api.ValueTypeF32}, nil
	case wit.F64:
		return []api.ValueType{api.ValueTypeF64}, nil
	case wit.String:
		return []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, nil
	}
	return nil, errors.Unsupported(errors.PhaseParse, fmt.Sprintf("type %s", typeName(t)))
}

func typeName(t wit.Type) string {
	switch t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	}
	return fmt.Sprintf("%T", t)
}

func (d *funcDecl) format() string {
	var b strings.Builder
	b.WriteString(d.name)
	b.WriteString(": func(")
	for i, p := range d.params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.name)
		b.WriteString(": ")
		b.WriteString(typeName(p.typ))
	}
	b.WriteByte(')')
	if d.result != nil {
		b.WriteString(" -> ")
		b.WriteString(typeName(d.result))
	}
	return b.String()
}

// signature returns the core params and results of d.
func (d *funcDecl) signature() (params, results []api.ValueType) {
	for _, p := range d.params {
		ct, _ := coreTypes(p.typ)
		params = append(params, ct...)
	}
	if d.result != nil {
		results, _ = coreTypes(d.result)
	}
	return params, results
}

// declFromCore describes an export that has no WIT declaration.
func declFromCore(name string, def api.FunctionDefinition) (*funcDecl, error) {
	d := &funcDecl{name: name}
	for i, vt := range def.ParamTypes() {
		t, err := witFromCore(vt)
		if err != nil {
			return nil, err
		}
		d.params = append(d.params, param{name: fmt.Sprintf("p%d", i), typ: t})
	}
	switch results := def.ResultTypes(); len(results) {
	case 0:
	case 1:
		t, err := witFromCore(results[0])
		if err != nil {
			return nil, err
		}
		d.result = t
	default:
		return nil, errors.Unsupported(errors.PhaseLoad, fmt.Sprintf("%d results from %s", len(results), name))
	}
	d.text = d.format()
	return d, nil
}

func witFromCore(vt api.ValueType) (wit.Type, error) {
	switch vt {
	case api.ValueTypeI32:
		return wit.S32{}, nil
	case api.ValueTypeI64:
		return wit.S64{}, nil
	case api.ValueTypeF32:
		return wit.F32{}, nil
	case api.ValueTypeF64:
		return wit.F64{}, nil
	}
	return nil, errors.Unsupported(errors.PhaseLoad, "value type "+api.ValueTypeName(vt))
}
