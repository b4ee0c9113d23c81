package errors

import (
	"errors"
	"strings"
	"testing"
)

type testState string

func (s testState) String() string { return string(s) }

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhasePrepare,
				Kind:     KindNotFound,
				Function: "main",
				Context:  7,
				Detail:   "export missing",
			},
			contains: []string{"[prepare]", "not_found", "in main", "context 7", "export missing"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseExecute,
				Kind:  KindAborted,
			},
			contains: []string{"[execute]", "aborted"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseHost,
				Kind:   KindRegistration,
				Detail: "register yield",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[host]", "registration", "register yield", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_OmitsZeroContext(t *testing.T) {
	err := &Error{Phase: PhaseLoad, Kind: KindInvalidData}
	if strings.Contains(err.Error(), "context") {
		t.Errorf("unexpected context in %q", err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseExecute,
		Kind:  KindException,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase:    PhasePrepare,
		Kind:     KindNotFound,
		Function: "foo",
	}

	if !err.Is(&Error{Phase: PhasePrepare, Kind: KindNotFound}) {
		t.Error("Is should match same phase and kind")
	}

	if err.Is(&Error{Phase: PhaseExecute, Kind: KindNotFound}) {
		t.Error("Is should not match different phase")
	}

	if err.Is(&Error{Phase: PhasePrepare, Kind: KindExhausted}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhasePrepare, Kind: KindNotFound}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseExecute, KindException).
		Function("update").
		Context(12).
		Value(42).
		Cause(cause).
		Detail("trap at %s+%d", "update", 4).
		Build()

	if err.Phase != PhaseExecute {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseExecute)
	}
	if err.Kind != KindException {
		t.Errorf("Kind = %v, want %v", err.Kind, KindException)
	}
	if err.Function != "update" {
		t.Errorf("Function = %v, want 'update'", err.Function)
	}
	if err.Context != 12 {
		t.Errorf("Context = %v, want 12", err.Context)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "trap at update+4" {
		t.Errorf("Detail = %v, want 'trap at update+4'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhasePrepare, "function", "main")
		if err.Kind != KindNotFound {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNotFound)
		}
		if !strings.Contains(err.Detail, `"main"`) {
			t.Errorf("Detail = %v, should quote name", err.Detail)
		}
	})

	t.Run("Exhausted", func(t *testing.T) {
		err := Exhausted(PhaseSchedule, "context", 8)
		if err.Kind != KindExhausted {
			t.Errorf("Kind = %v, want %v", err.Kind, KindExhausted)
		}
		if err.Value != 8 {
			t.Errorf("Value = %v, want 8", err.Value)
		}
	})

	t.Run("InvalidState", func(t *testing.T) {
		err := InvalidState(PhaseExecute, 3, "suspend", testState("finished"))
		if err.Kind != KindInvalidState {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidState)
		}
		if err.Context != 3 {
			t.Errorf("Context = %v, want 3", err.Context)
		}
		if !strings.Contains(err.Detail, "finished") {
			t.Errorf("Detail = %v, should contain state", err.Detail)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		err := Unsupported(PhaseDebug, "line callbacks")
		if err.Kind != KindUnsupported {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnsupported)
		}
	})

	t.Run("Exception", func(t *testing.T) {
		cause := errors.New("unreachable")
		err := Exception(9, "main", cause)
		if err.Kind != KindException || err.Function != "main" {
			t.Errorf("Kind=%v Function=%v", err.Kind, err.Function)
		}
		if !errors.Is(err, cause) {
			t.Error("Exception should wrap cause")
		}
	})

	t.Run("Aborted", func(t *testing.T) {
		err := Aborted(4)
		if err.Kind != KindAborted || err.Context != 4 {
			t.Errorf("Kind=%v Context=%v", err.Kind, err.Context)
		}
	})

	t.Run("DoubleReturn", func(t *testing.T) {
		err := DoubleReturn(5)
		if err.Kind != KindDoubleReturn {
			t.Errorf("Kind = %v, want %v", err.Kind, KindDoubleReturn)
		}
	})

	t.Run("Registration", func(t *testing.T) {
		err := Registration("sleep: func(ms: u32)", errors.New("bad"))
		if err.Phase != PhaseHost || err.Kind != KindRegistration {
			t.Errorf("Phase=%v Kind=%v", err.Phase, err.Kind)
		}
	})
}

func TestMissingImportsError(t *testing.T) {
	t.Run("single import", func(t *testing.T) {
		err := NewMissingImportsError([]string{"env#yield"})
		if len(err.Imports) != 1 {
			t.Fatalf("expected 1 import, got %d", len(err.Imports))
		}
		if err.Imports[0].Module != "env" {
			t.Errorf("module = %q, want env", err.Imports[0].Module)
		}
		if err.Imports[0].Function != "yield" {
			t.Errorf("function = %q, want yield", err.Imports[0].Function)
		}
	})

	t.Run("multiple modules grouped", func(t *testing.T) {
		err := NewMissingImportsError([]string{
			"env#yield",
			"game#spawn",
			"env#sleep",
		})
		msg := err.Error()
		if !strings.Contains(msg, "missing 3") {
			t.Errorf("error should contain count, got: %s", msg)
		}
		if !strings.Contains(msg, "env:") || !strings.Contains(msg, "game:") {
			t.Errorf("error should group by module, got: %s", msg)
		}
		if strings.Count(msg, "env:") != 1 {
			t.Errorf("module should be listed once, got: %s", msg)
		}
	})

	t.Run("empty imports", func(t *testing.T) {
		err := NewMissingImportsError([]string{})
		if !strings.Contains(err.Error(), "no imports specified") {
			t.Errorf("empty error should have specific message, got: %s", err.Error())
		}
	})

	t.Run("errors.Is", func(t *testing.T) {
		err := NewMissingImportsError([]string{"env#yield"})
		if !errors.Is(err, &MissingImportsError{}) {
			t.Error("errors.Is should match MissingImportsError")
		}
	})
}
