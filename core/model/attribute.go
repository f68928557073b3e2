package model

import (
	"github.com/artpar/modeltype/core/failure"
	"github.com/artpar/modeltype/core/schema"
	"github.com/artpar/modeltype/core/types"
)

// Hook transforms an attribute value on read (Parse) or write (Compile).
type Hook func(v any) (any, error)

// Attribute declares one model attribute.
type Attribute struct {
	Name string

	// Type is a type expression: a primitive, a custom type or a model
	// name, optionally with a "[]" suffix.
	Type string

	// Default is a literal value, a func() any or a func() (any, error).
	// It is evaluated the first time an unset attribute is read. A nil
	// Default means no default.
	Default any

	Primary  bool
	Alias    string
	Required bool
	NotNull  bool

	Parse   Hook
	Compile Hook
}

// Attr is shorthand for an attribute with only a type.
func Attr(name, typ string) Attribute {
	return Attribute{Name: name, Type: typ}
}

// attribute is the frozen form of an Attribute held by a Model.
type attribute struct {
	Attribute
	td schema.TypeDescriptor
}

func (a *attribute) hasDefault() bool {
	return a.Default != nil
}

// evalDefault evaluates the default. Literal slices and maps are copied so
// instances never share them.
func (a *attribute) evalDefault() (any, error) {
	switch d := a.Default.(type) {
	case func() any:
		return d(), nil
	case func() (any, error):
		return d()
	default:
		return copyValue(d), nil
	}
}

func isThunk(v any) bool {
	switch v.(type) {
	case func() any, func() (any, error):
		return true
	}
	return false
}

// compileAttributes checks an attribute list and freezes it.
func compileAttributes(model string, reg *types.Registry, attrs []Attribute) ([]*attribute, error) {
	out := make([]*attribute, 0, len(attrs))
	seen := make(map[string]bool, len(attrs))

	for _, a := range attrs {
		if seen[a.Name] {
			return nil, invalidModel(model, a.Name, "duplicate attribute")
		}
		seen[a.Name] = true

		if !schema.IsIdentifier(a.Name) {
			return nil, invalidModel(model, a.Name, "invalid attribute name")
		}
		if schema.IsReserved(a.Name) {
			return nil, invalidModel(model, a.Name, "reserved attribute name")
		}
		if a.Alias != "" && (!schema.IsIdentifier(a.Alias) || a.Alias == a.Name) {
			return nil, invalidModel(model, a.Name, "invalid alias")
		}

		td, err := schema.ParseType(a.Type)
		if err != nil {
			return nil, failure.Wrap(failure.InvalidModel, err,
				"Invalid model {model} attribute {attribute}",
				failure.F("model", model), failure.F("attribute", a.Name))
		}

		// literal defaults of primitive types are checked now; everything
		// else is checked on first read
		if a.Default != nil && !isThunk(a.Default) {
			if _, ok := types.PrimitiveKind(td.Name); ok {
				if _, err := reg.Validate(td, copyValue(a.Default)); err != nil {
					return nil, failure.Wrap(failure.InvalidModel, err,
						"Invalid default for model {model} attribute {attribute}",
						failure.F("model", model), failure.F("attribute", a.Name))
				}
			}
		}

		out = append(out, &attribute{Attribute: a, td: td})
	}

	return out, nil
}

func invalidModel(model, attr, reason string) error {
	return failure.New(failure.InvalidModel,
		"Invalid model {model} attribute {attribute}: "+reason,
		failure.F("model", model), failure.F("attribute", attr))
}
