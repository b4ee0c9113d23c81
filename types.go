package scriptruntime

// TypeID identifies a script type. Ids up to TypeIDDouble are primitives;
// the upper bits classify object types and handles.
type TypeID uint32

const (
	TypeIDVoid TypeID = iota
	TypeIDBool
	TypeIDInt8
	TypeIDInt16
	TypeIDInt32
	TypeIDInt64
	TypeIDUint8
	TypeIDUint16
	TypeIDUint32
	TypeIDUint64
	TypeIDFloat
	TypeIDDouble
)

const (
	TypeIDObjHandle     TypeID = 1 << 30
	TypeIDHandleToConst TypeID = 1 << 29
	TypeIDTemplate      TypeID = 1 << 28
	TypeIDScriptObject  TypeID = 1 << 27
	TypeIDAppObject     TypeID = 1 << 26

	TypeIDMaskObject = TypeIDTemplate | TypeIDScriptObject | TypeIDAppObject
	TypeIDMaskSeqNbr = TypeIDAppObject - 1
)

func (t TypeID) IsPrimitive() bool { return t <= TypeIDDouble }

func (t TypeID) IsHandle() bool { return t&TypeIDObjHandle != 0 }

func (t TypeID) IsObject() bool { return t&TypeIDMaskObject != 0 }

func (t TypeID) IsScriptObject() bool { return t&TypeIDScriptObject != 0 }

// IsEnum reports whether t is a registered non-object, non-primitive type.
func (t TypeID) IsEnum() bool { return !t.IsPrimitive() && !t.IsObject() }

// Base strips the handle flags.
func (t TypeID) Base() TypeID { return t &^ (TypeIDObjHandle | TypeIDHandleToConst) }

// TypeFlags describe how a type is stored.
type TypeFlags uint32

const (
	TypeRef TypeFlags = 1 << iota
	TypeValue
	TypeTemplate
	TypeEnum
	TypeScript
)

// Property describes one member of an object type. A Reference property
// stores a *any slot pointing at the value instead of the value itself.
type Property struct {
	Name        string
	Declaration string
	TypeID      TypeID
	Reference   bool
}

// Variable describes a local or global variable.
type Variable struct {
	Name        string
	Namespace   string
	Declaration string
	TypeID      TypeID
}

// TypeInfo is the reflective description of a registered type.
type TypeInfo interface {
	TypeID() TypeID
	Name() string
	Namespace() string
	Flags() TypeFlags
	PropertyCount() int
	Property(index int) Property
	EnumValueCount() int
	EnumValue(index int) (name string, value int64)
}

// ScriptObject is an instance of a script-declared class.
type ScriptObject interface {
	ObjectType() TypeInfo
	PropertyCount() int
	PropertyTypeID(index int) TypeID
	AddressOfProperty(index int) any
}

// Function is the reflective description of a script function.
type Function interface {
	Name() string
	Namespace() string
	Declaration() string
	ScriptSection() string
	// Module is nil for functions that do not belong to a script module.
	Module() Module
	// ObjectType is nil unless the function is a method.
	ObjectType() TypeInfo
	// FindNextLineWithCode returns the first line >= line that holds
	// executable code in this function, or -1.
	FindNextLineWithCode(line int) int
}

// Module is a compiled unit of script code.
type Module interface {
	Name() string
	FunctionByName(name string) Function
	GlobalVarCount() int
	GlobalVar(index int) Variable
	AddressOfGlobalVar(index int) any
}

// DerefHandle follows a handle slot one level. Addresses that are not handle
// slots are returned unchanged.
func DerefHandle(addr any) any {
	if slot, ok := addr.(*any); ok {
		if slot == nil {
			return nil
		}
		return *slot
	}
	return addr
}
