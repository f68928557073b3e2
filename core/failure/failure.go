// Package failure builds the typed, parameterized errors returned by the
// type registry and the model engine.
//
// Every error carries a Kind, a message rendered from a template with
// {name} placeholders, the names of the parameters used to render it and,
// when one was supplied, the offending raw value:
//
//	err := failure.New(failure.UnknownType, "Unknown type {type}", failure.F("type", "foo"))
//	errors.Is(err, failure.UnknownType) // true
package failure

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a class of failure. Kinds are usable as errors.Is targets.
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	// Type registry
	InvalidTypeName         Kind = "InvalidTypeName"
	InvalidType             Kind = "InvalidType"
	CannotOverridePrimitive Kind = "CannotOverridePrimitive"
	CannotOverrideDefined   Kind = "CannotOverrideDefined"
	CannotDefineArray       Kind = "CannotDefineArray"
	CannotUndefinePrimitive Kind = "CannotUndefinePrimitive"
	CannotUndefineArray     Kind = "CannotUndefineArray"
	UnknownType             Kind = "UnknownType"
	NotAnArray              Kind = "NotAnArray"
	ValidationFailure       Kind = "ValidationFailure"

	// Model engine
	InvalidModel           Kind = "InvalidModel"
	UndefinedModelInstance Kind = "UndefinedModelInstance"
	UnknownModelName       Kind = "UnknownModelName"
	UnknownAttribute       Kind = "UnknownAttribute"
	AttributeRequired      Kind = "AttributeRequired"
	AttributeNotNull       Kind = "AttributeNotNull"
	PluginNotAFunction     Kind = "PluginNotAFunction"
	UnknownMethod          Kind = "UnknownMethod"
	NestingTooDeep         Kind = "NestingTooDeep"

	// Collections
	CollectionFailure Kind = "CollectionFailure"
)

// Param is a named template parameter.
type Param struct {
	Name  string
	Value any
}

// F creates a template parameter. The parameter named "value" is also
// recorded as the error's offending Value.
func F(name string, value any) Param {
	return Param{Name: name, Value: value}
}

// Error is a typed engine error.
type Error struct {
	Kind    Kind
	Message string
	Fields  []string
	Params  map[string]any
	Value   any
	Err     error
}

// New renders template with params and returns an error of the given kind.
func New(kind Kind, template string, params ...Param) *Error {
	e := &Error{Kind: kind}
	if len(params) > 0 {
		e.Params = make(map[string]any, len(params))
	}
	for _, p := range params {
		e.Fields = append(e.Fields, p.Name)
		e.Params[p.Name] = p.Value
		if p.Name == "value" {
			e.Value = p.Value
		}
	}
	e.Message = render(template, e.Params)
	return e
}

// Wrap is New with an underlying cause.
func Wrap(kind Kind, err error, template string, params ...Param) *Error {
	e := New(kind, template, params...)
	e.Err = err
	return e
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Is matches a Kind sentinel or another *Error of the same kind.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Kind:
		return t == e.Kind
	case *Error:
		return t.Kind == e.Kind
	}
	return false
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

func render(template string, params map[string]any) string {
	if len(params) == 0 || !strings.Contains(template, "{") {
		return template
	}
	var b strings.Builder
	for {
		open := strings.IndexByte(template, '{')
		if open < 0 {
			break
		}
		end := strings.IndexByte(template[open:], '}')
		if end < 0 {
			break
		}
		name := template[open+1 : open+end]
		v, ok := params[name]
		b.WriteString(template[:open])
		if ok {
			b.WriteString(Describe(v))
		} else {
			b.WriteString(template[open : open+end+1])
		}
		template = template[open+end+1:]
	}
	b.WriteString(template)
	return b.String()
}

// Describe formats a value for an error message.
func Describe(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
