package failure

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(UnknownType, "Unknown type {type}", F("type", "foo"))

	if err.Message != `Unknown type "foo"` {
		t.Errorf("Message = %q, want %q", err.Message, `Unknown type "foo"`)
	}
	if len(err.Fields) != 1 || err.Fields[0] != "type" {
		t.Errorf("Fields = %v, want [type]", err.Fields)
	}
	if err.Value != nil {
		t.Errorf("Value = %v, want nil", err.Value)
	}
}

func TestNew_Value(t *testing.T) {
	err := New(ValidationFailure, "Invalid integer : {value}", F("value", 1.5))

	if err.Value != 1.5 {
		t.Errorf("Value = %v, want 1.5", err.Value)
	}
	if err.Error() != "Invalid integer : 1.5" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		params   []Param
		want     string
	}{
		{"no params", "plain", nil, "plain"},
		{"missing param kept", "a {b} c", []Param{F("x", 1)}, "a {b} c"},
		{"nil value", "got {value}", []Param{F("value", nil)}, "got null"},
		{"unterminated", "a {b", []Param{F("b", 1)}, "a {b"},
		{"two params", "{a}-{b}", []Param{F("a", 1), F("b", "x")}, `1-"x"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(InvalidType, tt.template, tt.params...).Message; got != tt.want {
				t.Errorf("Message = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("define: %w", New(CannotOverridePrimitive, "Cannot override primitive type {type}", F("type", "int")))

	if !errors.Is(err, CannotOverridePrimitive) {
		t.Error("errors.Is(err, CannotOverridePrimitive) = false, want true")
	}
	if errors.Is(err, CannotOverrideDefined) {
		t.Error("errors.Is(err, CannotOverrideDefined) = true, want false")
	}

	kind, ok := KindOf(err)
	if !ok || kind != CannotOverridePrimitive {
		t.Errorf("KindOf = %v, %v", kind, ok)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(InvalidModel, cause, "Invalid model {model}", F("model", "User"))

	if !errors.Is(err, cause) {
		t.Error("wrapped cause not found")
	}
	if err.Error() != `Invalid model "User": boom` {
		t.Errorf("Error() = %q", err.Error())
	}
}
