package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Attribute declares one model attribute.
//
// In YAML an attribute is either a bare type expression or a mapping:
//
//	id:    int
//	name:  { type: text, alias: full_name, not_null: true }
type Attribute struct {
	// Name is the attribute name (the mapping key).
	Name string `yaml:"-"`

	// Type is a type expression such as "int", "Role" or "text[]".
	Type string `yaml:"type"`

	// Default is used the first time an unset attribute is read.
	Default *Default `yaml:"default,omitempty"`

	// Primary marks the attribute as part of the instance identity.
	Primary bool `yaml:"primary,omitempty"`

	// Alias is an alternate input key accepted on JSON import.
	Alias string `yaml:"alias,omitempty"`

	// Required rejects assigning an undefined value.
	Required bool `yaml:"required,omitempty"`

	// NotNull rejects assigning null.
	NotNull bool `yaml:"not_null,omitempty"`

	// Parse is an expression applied to the stored value on every read.
	Parse string `yaml:"parse,omitempty"`

	// Compile is an expression applied to the incoming value on every write.
	Compile string `yaml:"compile,omitempty"`

	// Description for documentation.
	Description string `yaml:"description,omitempty"`
}

// UnmarshalYAML accepts both the shorthand and the mapping form.
func (a *Attribute) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		a.Type = node.Value
		return nil
	}

	type plain Attribute
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*a = Attribute(p)
	return nil
}

// Default holds either a literal default value or an expression evaluated
// lazily per instance.
//
//	default: pending
//	default: { expr: "now()" }
type Default struct {
	Value any
	Expr  string
}

// IsExpr reports whether the default is computed.
func (d *Default) IsExpr() bool {
	return d != nil && d.Expr != ""
}

// UnmarshalYAML decodes a literal or a single-key {expr: ...} mapping.
func (d *Default) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode && len(node.Content) == 2 && node.Content[0].Value == "expr" {
		d.Expr = node.Content[1].Value
		return nil
	}
	return node.Decode(&d.Value)
}

// MarshalYAML writes the default back in the form it was read.
func (d Default) MarshalYAML() (any, error) {
	if d.Expr != "" {
		return map[string]string{"expr": d.Expr}, nil
	}
	return d.Value, nil
}

// Attributes is an ordered attribute list. Declaration order matters: it
// defines the order of primary attributes.
type Attributes []Attribute

// UnmarshalYAML decodes a mapping while keeping key order.
func (as *Attributes) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: attributes must be a mapping", node.Line)
	}

	out := make(Attributes, 0, len(node.Content)/2)
	seen := make(map[string]bool, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if seen[key] {
			return fmt.Errorf("line %d: duplicate attribute %q", node.Content[i].Line, key)
		}
		seen[key] = true

		var a Attribute
		if err := node.Content[i+1].Decode(&a); err != nil {
			return fmt.Errorf("attribute %q: %w", key, err)
		}
		a.Name = key
		out = append(out, a)
	}

	*as = out
	return nil
}

// Lookup returns the attribute with the given name.
func (as Attributes) Lookup(name string) (Attribute, bool) {
	for _, a := range as {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Primary returns the names of primary attributes in declaration order.
func (as Attributes) Primary() []string {
	var names []string
	for _, a := range as {
		if a.Primary {
			names = append(names, a.Name)
		}
	}
	return names
}
