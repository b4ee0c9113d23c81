package debugger

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	scriptruntime "github.com/wippyai/script-runtime"
)

// Formatter renders a value of an application type. expandMembers is the
// remaining expansion budget, for formatters that print nested values with
// d.ToString.
type Formatter func(value any, expandMembers int, d *Debugger) string

// RegisterFormatter sets the formatter for values of type t. A formatter
// registered for a template type also serves its instances.
func (d *Debugger) RegisterFormatter(t scriptruntime.TypeInfo, fn Formatter) {
	if t == nil {
		return
	}
	if fn == nil {
		delete(d.formatters, t.TypeID().Base())
		return
	}
	d.formatters[t.TypeID().Base()] = fn
}

// ToString renders the value at addr, of type typeID. Object members are
// expanded up to expandMembers levels deep. eng defaults to the engine set
// with SetEngine.
func (d *Debugger) ToString(addr any, typeID scriptruntime.TypeID, expandMembers int, eng scriptruntime.Engine) string {
	if addr == nil {
		return "<null>"
	}
	if eng == nil {
		eng = d.engine
	}

	switch {
	case typeID == scriptruntime.TypeIDVoid:
		return "<void>"
	case typeID.IsPrimitive():
		return primitiveString(addr)
	case !typeID.IsObject():
		return d.enumString(addr, typeID, eng)
	case typeID.IsScriptObject():
		return d.scriptObjectString(addr, typeID, expandMembers, eng)
	default:
		return d.appObjectString(addr, typeID, expandMembers, eng)
	}
}

func primitiveString(addr any) string {
	v := reflect.ValueOf(addr)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "<null>"
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'g', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	default:
		return fmt.Sprint(v.Interface())
	}
}

func intValue(addr any) (int64, bool) {
	v := reflect.ValueOf(addr)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return 0, false
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint()), true
	}
	return 0, false
}

func (d *Debugger) enumString(addr any, typeID scriptruntime.TypeID, eng scriptruntime.Engine) string {
	val, ok := intValue(addr)
	if !ok {
		return primitiveString(addr)
	}
	s := strconv.FormatInt(val, 10)
	if eng == nil {
		return s
	}
	t := eng.TypeInfoByID(typeID)
	if t == nil {
		return s
	}
	for n := t.EnumValueCount() - 1; n >= 0; n-- {
		if name, v := t.EnumValue(n); v == val {
			return s + ", " + name
		}
	}
	return s
}

func (d *Debugger) scriptObjectString(addr any, typeID scriptruntime.TypeID, expandMembers int, eng scriptruntime.Engine) string {
	if typeID.IsHandle() {
		addr = scriptruntime.DerefHandle(addr)
	}
	obj, _ := addr.(scriptruntime.ScriptObject)

	var b strings.Builder
	b.WriteString("{" + address(obj) + "}")
	if obj == nil || isNilPointer(obj) || expandMembers <= 0 {
		return b.String()
	}

	t := obj.ObjectType()
	for n := 0; n < obj.PropertyCount(); n++ {
		if n == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteString(", ")
		}
		decl := ""
		addr := obj.AddressOfProperty(n)
		if t != nil {
			p := t.Property(n)
			decl = p.Declaration
			if p.Reference {
				addr = scriptruntime.DerefHandle(addr)
			}
		}
		b.WriteString(decl)
		b.WriteString(" = ")
		b.WriteString(d.ToString(addr, obj.PropertyTypeID(n), expandMembers-1, eng))
	}
	return b.String()
}

func (d *Debugger) appObjectString(addr any, typeID scriptruntime.TypeID, expandMembers int, eng scriptruntime.Engine) string {
	if typeID.IsHandle() {
		addr = scriptruntime.DerefHandle(addr)
	}
	if eng == nil {
		return "{no engine}"
	}
	t := eng.TypeInfoByID(typeID)
	if t == nil {
		return "{" + address(addr) + "}"
	}

	ref := t.Flags()&scriptruntime.TypeRef != 0
	var b strings.Builder
	if ref {
		b.WriteString("{" + address(addr) + "}")
	}
	if addr == nil || isNilPointer(addr) {
		return b.String()
	}

	fn, ok := d.formatters[t.TypeID().Base()]
	if !ok && t.Flags()&scriptruntime.TypeTemplate != 0 {
		if tmpl := eng.TypeInfoByName(t.Name()); tmpl != nil {
			fn, ok = d.formatters[tmpl.TypeID().Base()]
		}
	}
	switch {
	case ok:
		if ref {
			b.WriteByte(' ')
		}
		b.WriteString(fn(addr, expandMembers, d))
	case !ref:
		b.WriteString("{" + address(addr) + "}")
	}
	return b.String()
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// address renders the identity of a value, so that handles to the same
// object print the same.
func address(v any) string {
	if v == nil {
		return "0"
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return fmt.Sprintf("%#x", rv.Pointer())
	}
	return fmt.Sprintf("%T", v)
}

// PrintValue prints the variable named by expr. Locals are searched first,
// then this and its properties, then module globals.
func (d *Debugger) PrintValue(expr string, xc scriptruntime.ExecutionContext) {
	if xc == nil {
		d.Output("No script is running\n")
		return
	}

	scope, name := parseExpression(expr)
	if name == "" {
		d.Output("Invalid expression. Expected identifier\n")
		return
	}

	fn := xc.Function(0)
	if fn == nil {
		return
	}

	addr, typeID, found := d.lookup(xc, fn, scope, name)
	if !found {
		msg := "Invalid expression. No matching symbol\n"
		if hint := suggest(name, d.visibleNames(xc, fn)); hint != "" {
			msg += fmt.Sprintf("Did you mean '%s'?\n", hint)
		}
		d.Output(msg)
		return
	}
	d.Output(d.ToString(addr, typeID, d.expandMembers, xc.Engine()) + "\n")
}

func (d *Debugger) lookup(xc scriptruntime.ExecutionContext, fn scriptruntime.Function, scope, name string) (any, scriptruntime.TypeID, bool) {
	if scope == "" {
		for n := xc.VarCount(0) - 1; n >= 0; n-- {
			if !xc.IsVarInScope(n, 0) {
				continue
			}
			if v := xc.Var(n, 0); v.Name == name {
				return xc.AddressOfVar(n, 0), v.TypeID, true
			}
		}

		if fn.ObjectType() != nil {
			if name == "this" {
				return xc.ThisPointer(0), xc.ThisTypeID(0), true
			}
			if addr, typeID, ok := thisProperty(xc, name); ok {
				return addr, typeID, true
			}
		}
	}

	switch scope {
	case "":
		scope = fn.Namespace()
	case "::":
		scope = ""
	}

	mod := fn.Module()
	if mod == nil {
		return nil, 0, false
	}
	for n := 0; n < mod.GlobalVarCount(); n++ {
		v := mod.GlobalVar(n)
		if v.Name == name && v.Namespace == scope {
			return mod.AddressOfGlobalVar(n), v.TypeID, true
		}
	}
	return nil, 0, false
}

func thisProperty(xc scriptruntime.ExecutionContext, name string) (any, scriptruntime.TypeID, bool) {
	obj, ok := scriptruntime.DerefHandle(xc.ThisPointer(0)).(scriptruntime.ScriptObject)
	if !ok || obj == nil {
		return nil, 0, false
	}
	t := obj.ObjectType()
	if t == nil {
		return nil, 0, false
	}
	for n := 0; n < t.PropertyCount(); n++ {
		p := t.Property(n)
		if p.Name != name {
			continue
		}
		addr := obj.AddressOfProperty(n)
		if p.Reference {
			addr = scriptruntime.DerefHandle(addr)
		}
		return addr, p.TypeID, true
	}
	return nil, 0, false
}

func (d *Debugger) visibleNames(xc scriptruntime.ExecutionContext, fn scriptruntime.Function) []string {
	var names []string
	for n := 0; n < xc.VarCount(0); n++ {
		if xc.IsVarInScope(n, 0) {
			names = append(names, xc.Var(n, 0).Name)
		}
	}
	if t := fn.ObjectType(); t != nil {
		names = append(names, "this")
		for n := 0; n < t.PropertyCount(); n++ {
			names = append(names, t.Property(n).Name)
		}
	}
	if mod := fn.Module(); mod != nil {
		for n := 0; n < mod.GlobalVarCount(); n++ {
			names = append(names, mod.GlobalVar(n).Name)
		}
	}
	return names
}

// suggest returns the candidate closest to name, if any is within two edits.
func suggest(name string, candidates []string) string {
	best, bestDist := "", 3
	for _, c := range candidates {
		if c == "" || c == name {
			continue
		}
		if dist := levenshtein.ComputeDistance(name, c); dist < bestDist {
			best, bestDist = c, dist
		}
	}
	return best
}

// ListBreakPoints prints every breakpoint with its index.
func (d *Debugger) ListBreakPoints() {
	var b strings.Builder
	for i, bp := range d.breakPoints {
		fmt.Fprintf(&b, "%d - %s\n", i, bp)
	}
	d.Output(b.String())
}

// ListLocalVariables prints the variables in scope in the current frame.
func (d *Debugger) ListLocalVariables(xc scriptruntime.ExecutionContext) {
	if xc == nil {
		d.Output("No script is running\n")
		return
	}
	if xc.Function(0) == nil {
		return
	}

	var b strings.Builder
	for n := 0; n < xc.VarCount(0); n++ {
		v := xc.Var(n, 0)
		if v.Name == "" || !xc.IsVarInScope(n, 0) {
			continue
		}
		fmt.Fprintf(&b, "%s = %s\n", v.Declaration, d.ToString(xc.AddressOfVar(n, 0), v.TypeID, d.expandMembers, xc.Engine()))
	}
	d.Output(b.String())
}

// ListGlobalVariables prints the globals of the current function's module.
func (d *Debugger) ListGlobalVariables(xc scriptruntime.ExecutionContext) {
	if xc == nil {
		d.Output("No script is running\n")
		return
	}
	fn := xc.Function(0)
	if fn == nil || fn.Module() == nil {
		return
	}

	mod := fn.Module()
	var b strings.Builder
	for n := 0; n < mod.GlobalVarCount(); n++ {
		v := mod.GlobalVar(n)
		fmt.Fprintf(&b, "%s = %s\n", v.Declaration, d.ToString(mod.AddressOfGlobalVar(n), v.TypeID, d.expandMembers, xc.Engine()))
	}
	d.Output(b.String())
}

// ListMemberProperties prints this, when the current function is a method.
func (d *Debugger) ListMemberProperties(xc scriptruntime.ExecutionContext) {
	if xc == nil {
		d.Output("No script is running\n")
		return
	}
	this := xc.ThisPointer(0)
	if this == nil {
		return
	}
	d.Output("this = " + d.ToString(this, xc.ThisTypeID(0), d.expandMembers, xc.Engine()) + "\n")
}

// ListStatistics prints the garbage collector counters of the engine.
func (d *Debugger) ListStatistics(xc scriptruntime.ExecutionContext) {
	if xc == nil {
		d.Output("No script is running\n")
		return
	}
	st := xc.Engine().GCStatistics()

	var b strings.Builder
	b.WriteString("Garbage collector:\n")
	fmt.Fprintf(&b, " current size:          %d\n", st.CurrentSize)
	fmt.Fprintf(&b, " total destroyed:       %d\n", st.TotalDestroyed)
	fmt.Fprintf(&b, " total detected:        %d\n", st.TotalDetected)
	fmt.Fprintf(&b, " new objects:           %d\n", st.NewObjects)
	fmt.Fprintf(&b, " new objects destroyed: %d\n", st.TotalNewDestroyed)
	d.Output(b.String())
}

// PrintCallstack prints one line per frame, innermost first.
func (d *Debugger) PrintCallstack(xc scriptruntime.ExecutionContext) {
	if xc == nil {
		d.Output("No script is running\n")
		return
	}

	var b strings.Builder
	for n := 0; n < xc.CallstackSize(); n++ {
		section, line, _ := xc.LineNumber(n)
		decl := ""
		if fn := xc.Function(n); fn != nil {
			decl = fn.Declaration()
		}
		fmt.Fprintf(&b, "%s:%d; %s\n", sectionName(section), line, decl)
	}
	d.Output(b.String())
}
