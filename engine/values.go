package engine

import (
	"fmt"
	"reflect"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
)

// guestMemory returns the memory of mod, or nil when it defines none.
// wazero reports a missing memory as a nil pointer inside a non-nil
// api.Memory.
func guestMemory(mod api.Module) api.Memory {
	mem := mod.Memory()
	if mem == nil {
		return nil
	}
	if v := reflect.ValueOf(mem); v.Kind() == reflect.Pointer && v.IsNil() {
		return nil
	}
	return mem
}

// liftArgs converts the core values on stack to Go values. Strings are read
// from mem as (ptr, len) pairs.
func liftArgs(mem api.Memory, params []param, stack []uint64) ([]any, error) {
	args := make([]any, 0, len(params))
	i := 0
	for _, p := range params {
		if i >= len(stack) {
			return nil, fmt.Errorf("stack holds %d values, parameter %s needs more", len(stack), p.name)
		}
		raw := stack[i]
		i++

		switch p.typ.(type) {
		case wit.Bool:
			args = append(args, raw != 0)
		case wit.U8:
			args = append(args, uint8(raw))
		case wit.S8:
			args = append(args, int8(raw))
		case wit.U16:
			args = append(args, uint16(raw))
		case wit.S16:
			args = append(args, int16(raw))
		case wit.U32:
			args = append(args, api.DecodeU32(raw))
		case wit.S32:
			args = append(args, api.DecodeI32(raw))
		case wit.U64:
			args = append(args, raw)
		case wit.S64:
			args = append(args, int64(raw))
		case wit.F32:
			args = append(args, api.DecodeF32(raw))
		case wit.F64:
			args = append(args, api.DecodeF64(raw))
		case wit.Char:
			args = append(args, rune(api.DecodeU32(raw)))
		case wit.String:
			if i >= len(stack) {
				return nil, fmt.Errorf("missing length of string parameter %s", p.name)
			}
			n := api.DecodeU32(stack[i])
			i++
			if mem == nil {
				return nil, fmt.Errorf("string parameter %s needs guest memory", p.name)
			}
			b, ok := mem.Read(api.DecodeU32(raw), n)
			if !ok {
				return nil, fmt.Errorf("string parameter %s out of range (ptr=%d, len=%d)", p.name, api.DecodeU32(raw), n)
			}
			args = append(args, string(b))
		default:
			return nil, fmt.Errorf("unsupported parameter type %s", typeName(p.typ))
		}
	}
	return args, nil
}

// lowerValue converts a Go value to the core representation of t.
func lowerValue(t wit.Type, v any) (uint64, error) {
	switch t.(type) {
	case wit.Bool:
		b, ok := v.(bool)
		if !ok {
			return 0, fmt.Errorf("want bool, got %T", v)
		}
		if b {
			return 1, nil
		}
		return 0, nil
	case wit.F32:
		f, ok := asFloat(v)
		if !ok {
			return 0, fmt.Errorf("want f32, got %T", v)
		}
		return api.EncodeF32(float32(f)), nil
	case wit.F64:
		f, ok := asFloat(v)
		if !ok {
			return 0, fmt.Errorf("want f64, got %T", v)
		}
		return api.EncodeF64(f), nil
	case wit.U64, wit.S64:
		n, ok := asInt(v)
		if !ok {
			return 0, fmt.Errorf("want %s, got %T", typeName(t), v)
		}
		return api.EncodeI64(n), nil
	case wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		n, ok := asInt(v)
		if !ok {
			return 0, fmt.Errorf("want %s, got %T", typeName(t), v)
		}
		return api.EncodeI32(int32(n)), nil
	}
	return 0, fmt.Errorf("cannot pass %T as %s", v, typeName(t))
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch f := v.(type) {
	case float32:
		return float64(f), true
	case float64:
		return f, true
	}
	if n, ok := asInt(v); ok {
		return float64(n), true
	}
	return 0, false
}
