// Package types is the type registry: it maps type names to validators and
// checks values against type expressions such as "int", "shop.Customer" or
// "text[]".
//
// Primitive types are fixed. Custom types are added with Define or
// DefineType and removed with Undefine. Names are case-insensitive.
package types

import (
	"reflect"
	"sort"
	"sync"

	"github.com/artpar/modeltype/core/failure"
	"github.com/artpar/modeltype/core/schema"
)

// ValidateHook observes every Validate call that reached a validator.
type ValidateHook func(typeName string, err error)

// Option configures a Registry.
type Option func(*Registry)

// WithValidateHook installs a hook called after each validation.
func WithValidateHook(h ValidateHook) Option {
	return func(r *Registry) {
		r.hook = h
	}
}

// Registry holds custom type validators.
type Registry struct {
	mu sync.RWMutex

	// custom validators by lower-cased name
	custom map[string]Validator

	hook ValidateHook
}

// New creates a registry holding only the primitive types.
func New(opts ...Option) *Registry {
	r := &Registry{
		custom: make(map[string]Validator),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ParseType parses a type expression. See schema.ParseType.
func ParseType(expr any) (schema.TypeDescriptor, error) {
	return schema.ParseType(expr)
}

// Define registers a validator under name. Defining the same validator
// twice is a no-op; the registered validator is returned. A closure can
// never be redefined, even from the same literal, because two closures may
// capture different state. See SameValidator.
func (r *Registry) Define(name string, v Validator) (Validator, error) {
	td, err := definableName(name)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, failure.New(failure.InvalidType,
			"Invalid validator for type {type}", failure.F("type", name))
	}

	return r.define(td.Name, v)
}

// DefineType registers a Go type. When name is empty it is derived from the
// type; when v is nil a validator accepting values of that type is used.
func (r *Registry) DefineType(name string, t reflect.Type, v Validator) (Validator, error) {
	if t == nil {
		return nil, failure.New(failure.InvalidType,
			"Invalid type for {type}", failure.F("type", name))
	}
	if name == "" {
		derived, ok := schema.GoTypeName(t)
		if !ok {
			return nil, failure.New(failure.InvalidType,
				"Cannot derive a type name from {type}", failure.F("type", t.String()))
		}
		name = derived
	}

	td, err := definableName(name)
	if err != nil {
		return nil, err
	}
	if v == nil {
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		v = typeValidator{name: td.Name, t: t}
	}

	return r.define(td.Name, v)
}

func (r *Registry) define(name string, v Validator) (Validator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.custom[name]; ok {
		if SameValidator(existing, v) {
			return existing, nil
		}
		return nil, failure.New(failure.CannotOverrideDefined,
			"Cannot override defined type {type}", failure.F("type", name))
	}

	r.custom[name] = v
	return v, nil
}

func definableName(name string) (schema.TypeDescriptor, error) {
	td, err := schema.ParseType(name)
	if err != nil {
		return td, failure.Wrap(failure.InvalidType, err,
			"Invalid type name {type}", failure.F("type", name))
	}
	if td.IsArray {
		return td, failure.New(failure.CannotDefineArray,
			"Cannot define array type {type}", failure.F("type", name))
	}
	if _, ok := primitives[td.Name]; ok {
		return td, failure.New(failure.CannotOverridePrimitive,
			"Cannot override primitive type {type}", failure.F("type", name))
	}
	return td, nil
}

// Undefine removes a custom type and returns its validator. ok is false
// when the type was not defined.
func (r *Registry) Undefine(name string) (Validator, bool, error) {
	td, err := schema.ParseType(name)
	if err != nil {
		return nil, false, err
	}
	if td.IsArray {
		return nil, false, failure.New(failure.CannotUndefineArray,
			"Cannot undefine array type {type}", failure.F("type", name))
	}
	if _, ok := primitives[td.Name]; ok {
		return nil, false, failure.New(failure.CannotUndefinePrimitive,
			"Cannot undefine primitive type {type}", failure.F("type", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.custom[td.Name]
	if !ok {
		return nil, false, nil
	}
	delete(r.custom, td.Name)
	return v, true, nil
}

// Lookup resolves the validator for a type name, primitives first.
func (r *Registry) Lookup(name string) (Validator, bool) {
	if k, ok := primitives[name]; ok {
		return k, true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.custom[name]
	return v, ok
}

// Validate checks value against a type expression and returns it, possibly
// coerced. nil and Undefined pass through unchecked. For array expressions
// each element is validated; a []any is updated in place, other slices are
// copied into a new []any.
func (r *Registry) Validate(expr any, value any) (any, error) {
	td, err := schema.ParseType(expr)
	if err != nil {
		return nil, err
	}

	v, ok := r.Lookup(td.Name)
	if !ok {
		return nil, failure.New(failure.UnknownType,
			"Unknown type {type}", failure.F("type", td.String()))
	}

	if IsAbsent(value) {
		return value, nil
	}

	var out any
	if td.IsArray {
		out, err = validateElements(td, v, value)
	} else {
		out, err = v.Validate(value)
	}

	if r.hook != nil {
		r.hook(td.String(), err)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func validateElements(td schema.TypeDescriptor, v Validator, value any) (any, error) {
	if items, ok := value.([]any); ok {
		for i, item := range items {
			if IsAbsent(item) {
				continue
			}
			checked, err := v.Validate(item)
			if err != nil {
				return nil, err
			}
			items[i] = checked
		}
		return items, nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, failure.New(failure.NotAnArray,
			"Not an array {type} : {value}", failure.F("type", td.String()), failure.F("value", value))
	}

	items := make([]any, rv.Len())
	for i := range items {
		item := rv.Index(i).Interface()
		if IsAbsent(item) {
			items[i] = item
			continue
		}
		checked, err := v.Validate(item)
		if err != nil {
			return nil, err
		}
		items[i] = checked
	}
	return items, nil
}

// IsDefined reports whether expr names a custom type. It never fails.
func (r *Registry) IsDefined(expr any) bool {
	td, err := schema.ParseType(expr)
	if err != nil {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.custom[td.Name]
	return ok
}

// IsValidType reports whether expr parses and resolves to a primitive or
// custom type. It never fails.
func (r *Registry) IsValidType(expr any) bool {
	td, err := schema.ParseType(expr)
	if err != nil {
		return false
	}
	_, ok := r.Lookup(td.Name)
	return ok
}

// DefinedNames returns the custom type names, sorted.
func (r *Registry) DefinedNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.custom))
	for name := range r.custom {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset removes every custom type.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.custom = make(map[string]Validator)
}
