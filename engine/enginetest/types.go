package enginetest

import (
	scriptruntime "github.com/wippyai/script-runtime"
)

// TypeKind selects how a registered type is classified.
type TypeKind int

const (
	KindEnum TypeKind = iota
	KindScriptClass
	KindValue
	KindRef
	KindTemplate
)

// EnumValue is one named member of an enum.
type EnumValue struct {
	Name  string
	Value int64
}

// TypeSpec describes a type to register.
type TypeSpec struct {
	Name       string
	Namespace  string
	Properties []scriptruntime.Property
	EnumValues []EnumValue
	Kind       TypeKind
}

// Type is a registered type.
type Type struct {
	spec  TypeSpec
	id    scriptruntime.TypeID
	flags scriptruntime.TypeFlags
}

var _ scriptruntime.TypeInfo = (*Type)(nil)

func (t *Type) TypeID() scriptruntime.TypeID   { return t.id }
func (t *Type) Name() string                   { return t.spec.Name }
func (t *Type) Namespace() string              { return t.spec.Namespace }
func (t *Type) Flags() scriptruntime.TypeFlags { return t.flags }
func (t *Type) PropertyCount() int             { return len(t.spec.Properties) }
func (t *Type) EnumValueCount() int            { return len(t.spec.EnumValues) }

func (t *Type) Property(index int) scriptruntime.Property {
	if index < 0 || index >= len(t.spec.Properties) {
		return scriptruntime.Property{}
	}
	return t.spec.Properties[index]
}

func (t *Type) EnumValue(index int) (string, int64) {
	if index < 0 || index >= len(t.spec.EnumValues) {
		return "", 0
	}
	v := t.spec.EnumValues[index]
	return v.Name, v.Value
}

// AddProperty appends a property. Use it for types whose properties refer
// to the type itself.
func (t *Type) AddProperty(p scriptruntime.Property) {
	t.spec.Properties = append(t.spec.Properties, p)
}

// Handle returns the handle type id for t.
func (t *Type) Handle() scriptruntime.TypeID { return t.id | scriptruntime.TypeIDObjHandle }

// RegisterType adds a type to the engine. Template instances are registered
// as separate KindTemplate types sharing the template's name; lookups by
// name return the first registration.
func (e *Engine) RegisterType(spec TypeSpec) *Type {
	e.typeSeq++
	seq := e.typeSeq

	t := &Type{spec: spec}
	switch spec.Kind {
	case KindEnum:
		t.id = scriptruntime.TypeIDDouble + 1 + seq
		t.flags = scriptruntime.TypeEnum
	case KindScriptClass:
		t.id = scriptruntime.TypeIDScriptObject | seq
		t.flags = scriptruntime.TypeScript | scriptruntime.TypeRef
	case KindValue:
		t.id = scriptruntime.TypeIDAppObject | seq
		t.flags = scriptruntime.TypeValue
	case KindRef:
		t.id = scriptruntime.TypeIDAppObject | seq
		t.flags = scriptruntime.TypeRef
	case KindTemplate:
		t.id = scriptruntime.TypeIDTemplate | scriptruntime.TypeIDAppObject | seq
		t.flags = scriptruntime.TypeTemplate | scriptruntime.TypeRef
	}

	e.types[t.id] = t
	if _, ok := e.typesByName[spec.Name]; !ok {
		e.typesByName[spec.Name] = t
	}
	return t
}

// Object is an instance of a script class.
type Object struct {
	Type *Type
	// Props holds one address per property of Type.
	Props []any
}

var _ scriptruntime.ScriptObject = (*Object)(nil)

// NewObject creates an instance of a script class with property addresses.
func NewObject(t *Type, props ...any) *Object {
	return &Object{Type: t, Props: props}
}

func (o *Object) ObjectType() scriptruntime.TypeInfo { return o.Type }
func (o *Object) PropertyCount() int                 { return len(o.Props) }

func (o *Object) PropertyTypeID(index int) scriptruntime.TypeID {
	return o.Type.Property(index).TypeID
}

func (o *Object) AddressOfProperty(index int) any {
	if index < 0 || index >= len(o.Props) {
		return nil
	}
	return o.Props[index]
}
