package scriptruntime

import "testing"

func TestTypeID(t *testing.T) {
	const class TypeID = TypeIDScriptObject | 3

	tests := []struct {
		name      string
		id        TypeID
		primitive bool
		handle    bool
		object    bool
		script    bool
		enum      bool
		base      TypeID
	}{
		{"int32", TypeIDInt32, true, false, false, false, false, TypeIDInt32},
		{"double", TypeIDDouble, true, false, false, false, false, TypeIDDouble},
		{"enum", TypeIDDouble + 1, false, false, false, false, true, TypeIDDouble + 1},
		{"script class", class, false, false, true, true, false, class},
		{"handle", class | TypeIDObjHandle, false, true, true, true, false, class},
		{"const handle", class | TypeIDObjHandle | TypeIDHandleToConst, false, true, true, true, false, class},
		{"app object", TypeIDAppObject | 7, false, false, true, false, false, TypeIDAppObject | 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.IsPrimitive(); got != tt.primitive {
				t.Errorf("IsPrimitive() = %v, want %v", got, tt.primitive)
			}
			if got := tt.id.IsHandle(); got != tt.handle {
				t.Errorf("IsHandle() = %v, want %v", got, tt.handle)
			}
			if got := tt.id.IsObject(); got != tt.object {
				t.Errorf("IsObject() = %v, want %v", got, tt.object)
			}
			if got := tt.id.IsScriptObject(); got != tt.script {
				t.Errorf("IsScriptObject() = %v, want %v", got, tt.script)
			}
			if got := tt.id.IsEnum(); got != tt.enum {
				t.Errorf("IsEnum() = %v, want %v", got, tt.enum)
			}
			if got := tt.id.Base(); got != tt.base {
				t.Errorf("Base() = %#x, want %#x", got, tt.base)
			}
		})
	}
}

func TestDerefHandle(t *testing.T) {
	var obj any = "object"
	if got := DerefHandle(&obj); got != "object" {
		t.Errorf("DerefHandle(slot) = %v", got)
	}

	var empty any
	if got := DerefHandle(&empty); got != nil {
		t.Errorf("DerefHandle(empty slot) = %v, want nil", got)
	}

	var nilSlot *any
	if got := DerefHandle(nilSlot); got != nil {
		t.Errorf("DerefHandle(nil slot) = %v, want nil", got)
	}

	n := 4
	if got := DerefHandle(&n); got != &n {
		t.Errorf("DerefHandle(non-slot) changed the address")
	}
}

func TestStateString(t *testing.T) {
	states := map[State]string{
		StateFinished:      "finished",
		StateSuspended:     "suspended",
		StateAborted:       "aborted",
		StateException:     "exception",
		StatePrepared:      "prepared",
		StateUninitialized: "uninitialized",
		StateActive:        "active",
		StateError:         "error",
		State(99):          "unknown",
	}
	for s, want := range states {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
