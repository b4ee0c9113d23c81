package engine

import (
	"testing"

	"github.com/tetratelabs/wazero/api"
)

func TestParseDecl(t *testing.T) {
	tests := []struct {
		name    string
		decl    string
		want    string
		params  []api.ValueType
		results []api.ValueType
	}{
		{"no params", "yield: func()", "yield: func()", nil, nil},
		{"scalar", "sleep: func(ms: u32)", "sleep: func(ms: u32)", []api.ValueType{api.ValueTypeI32}, nil},
		{"string", "spawn-co-routine: func(name: string)", "spawn-co-routine: func(name: string)", []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, nil},
		{"result", "export lerp: func(a: f32, b: f32, t: f64) -> f64;", "lerp: func(a: f32, b: f32, t: f64) -> f64",
			[]api.ValueType{api.ValueTypeF32, api.ValueTypeF32, api.ValueTypeF64}, []api.ValueType{api.ValueTypeF64}},
		{"wide", "now: func() -> u64", "now: func() -> u64", nil, []api.ValueType{api.ValueTypeI64}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := parseDecl(tt.decl)
			if err != nil {
				t.Fatalf("parseDecl(%q): %v", tt.decl, err)
			}
			if d.text != tt.want {
				t.Errorf("text = %q, want %q", d.text, tt.want)
			}
			params, results := d.signature()
			if len(params) != len(tt.params) || len(results) != len(tt.results) {
				t.Fatalf("signature = %v -> %v, want %v -> %v", params, results, tt.params, tt.results)
			}
			for i := range params {
				if params[i] != tt.params[i] {
					t.Errorf("param %d = %v, want %v", i, params[i], tt.params[i])
				}
			}
		})
	}
}

func TestParseDecl_Errors(t *testing.T) {
	for _, decl := range []string{
		"",
		"void yield()",
		"a: func(); b: func()",
		"f: func(x)",
		"f: func(xs: list<u8>)",
		"f: func() -> string",
	} {
		if _, err := parseDecl(decl); err == nil {
			t.Errorf("parseDecl(%q) succeeded", decl)
		}
	}
}

func TestParseDecls(t *testing.T) {
	decls, err := parseDecls(`
		export update: func(dt: f32);
		export score: func() -> s32;
	`)
	if err != nil {
		t.Fatal(err)
	}
	if len(decls) != 2 || decls["update"] == nil || decls["score"] == nil {
		t.Fatalf("decls = %v", decls)
	}
	if _, err := parseDecls("package game:scripts;"); err == nil {
		t.Error("text without functions accepted")
	}
}

type fakeMemory struct {
	api.Memory
	data []byte
}

func (m *fakeMemory) Read(offset, n uint32) ([]byte, bool) {
	if uint64(offset)+uint64(n) > uint64(len(m.data)) {
		return nil, false
	}
	return m.data[offset : offset+n], true
}

func TestLiftArgs(t *testing.T) {
	d, err := parseDecl("f: func(ok: bool, n: s32, name: string, big: u64, ratio: f32)")
	if err != nil {
		t.Fatal(err)
	}
	mem := &fakeMemory{data: []byte("xxhero")}
	stack := []uint64{1, api.EncodeI32(-4), 2, 4, 1 << 40, api.EncodeF32(0.5)}

	args, err := liftArgs(mem, d.params, stack)
	if err != nil {
		t.Fatal(err)
	}
	want := []any{true, int32(-4), "hero", uint64(1 << 40), float32(0.5)}
	if len(args) != len(want) {
		t.Fatalf("args = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("arg %d = %#v, want %#v", i, args[i], want[i])
		}
	}

	stack[3] = 40
	if _, err := liftArgs(mem, d.params, stack); err == nil {
		t.Error("out of range string accepted")
	}
	if _, err := liftArgs(mem, d.params, stack[:2]); err == nil {
		t.Error("short stack accepted")
	}
}

func TestLowerValue(t *testing.T) {
	d, err := parseDecl("f: func(a: bool, b: s32, c: f64, d: u64)")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		v    any
		want uint64
		idx  int
	}{
		{true, 1, 0},
		{false, 0, 0},
		{-1, api.EncodeI32(-1), 1},
		{uint8(7), 7, 1},
		{2.5, api.EncodeF64(2.5), 2},
		{3, api.EncodeF64(3), 2},
		{uint64(1 << 40), 1 << 40, 3},
	}
	for _, tt := range tests {
		got, err := lowerValue(d.params[tt.idx].typ, tt.v)
		if err != nil {
			t.Errorf("lowerValue(%v): %v", tt.v, err)
			continue
		}
		if got != tt.want {
			t.Errorf("lowerValue(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}

	if _, err := lowerValue(d.params[0].typ, 1); err == nil {
		t.Error("int accepted as bool")
	}
	if _, err := lowerValue(d.params[1].typ, "1"); err == nil {
		t.Error("string accepted as s32")
	}
}
