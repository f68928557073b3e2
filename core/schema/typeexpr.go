package schema

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/artpar/modeltype/core/failure"
)

// TypeDescriptor is the parsed form of a type expression such as
// "int", "ns.sub.Type" or "Role[]".
type TypeDescriptor struct {
	// Name is the lower-cased, possibly dotted, type name.
	Name string

	// IsArray is set when the expression carries a trailing "[]".
	IsArray bool
}

// String renders the descriptor back into expression form.
func (d TypeDescriptor) String() string {
	if d.IsArray {
		return d.Name + "[]"
	}
	return d.Name
}

// Element returns the descriptor of a single array element.
func (d TypeDescriptor) Element() TypeDescriptor {
	return TypeDescriptor{Name: d.Name}
}

var typeExprRe = regexp.MustCompile(`^\s*([^\s\[\]]*)\s*(\[\s*\])?\s*$`)

// ParseType parses a type expression. expr is either a string or a
// reflect.Type; for Go types the type name is used with underscores read
// back as namespace dots, so a type named ns_Role resolves to "ns.role".
func ParseType(expr any) (TypeDescriptor, error) {
	var raw string

	switch t := expr.(type) {
	case string:
		raw = t
	case reflect.Type:
		name, ok := GoTypeName(t)
		if !ok {
			return TypeDescriptor{}, failure.New(failure.InvalidTypeName,
				"Type {type} has no name", failure.F("type", t.String()))
		}
		raw = name
	case TypeDescriptor:
		return t, nil
	default:
		return TypeDescriptor{}, failure.New(failure.InvalidTypeName,
			"Type name must be a string {value}", failure.F("value", expr))
	}

	m := typeExprRe.FindStringSubmatch(raw)
	if m == nil || m[1] == "" {
		return TypeDescriptor{}, failure.New(failure.InvalidType,
			"Invalid type {type}", failure.F("type", raw))
	}
	if !IsNameValid(m[1]) {
		return TypeDescriptor{}, failure.New(failure.InvalidType,
			"Invalid type name {type}", failure.F("type", raw))
	}

	return TypeDescriptor{
		Name:    strings.ToLower(m[1]),
		IsArray: m[2] != "",
	}, nil
}

// GoTypeName derives a dotted type name from a Go type.
func GoTypeName(t reflect.Type) (string, bool) {
	if t == nil {
		return "", false
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "", false
	}
	return strings.ReplaceAll(t.Name(), "_", "."), true
}

// IsNameValid checks a possibly dotted type or model name. Each segment
// must be an identifier.
func IsNameValid(s string) bool {
	if s == "" {
		return false
	}
	for _, seg := range strings.Split(s, ".") {
		if !IsIdentifier(seg) {
			return false
		}
	}
	return true
}

// IsIdentifier checks if a string is a valid identifier.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, c := range s {
		if i == 0 {
			if !isLetter(c) && c != '_' {
				return false
			}
		} else {
			if !isLetter(c) && !isDigit(c) && c != '_' {
				return false
			}
		}
	}

	return true
}

// IsReserved reports whether an attribute or method name collides with the
// prefix kept for engine internals.
func IsReserved(name string) bool {
	return strings.HasPrefix(name, "_")
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}
