package types

import (
	"reflect"
	"regexp"
	"runtime"

	"github.com/artpar/modeltype/core/failure"
)

// Validator checks a value for a type and returns it, possibly coerced.
// Validators are never called with nil or Undefined.
type Validator interface {
	Validate(v any) (any, error)
}

// ValidatorFunc adapts a plain function to a Validator.
type ValidatorFunc func(v any) (any, error)

// Validate calls f(v).
func (f ValidatorFunc) Validate(v any) (any, error) { return f(v) }

type undefined struct{}

func (undefined) String() string { return "undefined" }

// Undefined is passed where a value must be given but none exists, as
// opposed to nil, which is an explicit null.
var Undefined any = undefined{}

// IsUndefined reports whether v is the Undefined sentinel.
func IsUndefined(v any) bool {
	_, ok := v.(undefined)
	return ok
}

// IsAbsent reports whether v is nil or Undefined.
func IsAbsent(v any) bool {
	return v == nil || IsUndefined(v)
}

// SameValidator reports whether a and b are the same validator. Top-level
// functions compare by code pointer, comparable values by ==. Closures and
// method values are never the same, since their captured state cannot be
// compared; use a pointer-typed Validator when a definition must be
// repeatable.
func SameValidator(a, b Validator) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ta.Kind() == reflect.Func {
		return va.Pointer() == vb.Pointer() && !capturesState(va.Pointer())
	}
	if va.Comparable() && vb.Comparable() {
		return va.Equal(vb)
	}
	return false
}

var closureNameRe = regexp.MustCompile(`\.func\d+(\.\d+)*$|-fm$`)

func capturesState(pc uintptr) bool {
	fn := runtime.FuncForPC(pc)
	return fn == nil || closureNameRe.MatchString(fn.Name())
}

// typeValidator is the validator synthesized for a Go type defined without
// an explicit one. Two typeValidators for the same type compare equal.
type typeValidator struct {
	name string
	t    reflect.Type
}

func (tv typeValidator) Validate(v any) (any, error) {
	if IsAbsent(v) {
		return v, nil
	}
	vt := reflect.TypeOf(v)
	switch {
	case vt == tv.t:
		return v, nil
	case vt.Kind() == reflect.Pointer && vt.Elem() == tv.t:
		return v, nil
	case tv.t.Kind() == reflect.Interface && vt.Implements(tv.t):
		return v, nil
	}
	return nil, failure.New(failure.InvalidType,
		"Invalid {type} : {value}", failure.F("type", tv.name), failure.F("value", v))
}
