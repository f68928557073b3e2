package schema

// Definition is the root declaration of a model type.
type Definition struct {
	// Name is the model name, optionally namespaced ("shop.Order").
	Name string `yaml:"model"`

	// Attributes declares the model's typed attributes. An empty list
	// declares a schemaless model.
	Attributes Attributes `yaml:"attributes,omitempty"`

	// Methods maps method names to expressions evaluated against an instance.
	Methods map[string]string `yaml:"methods,omitempty"`

	// Meta contains optional metadata.
	Meta Meta `yaml:"meta,omitempty"`

	// Source is the file the definition was read from, if any.
	Source string `yaml:"-"`

	// Checksum is the BLAKE2b-256 digest of the YAML the definition was
	// parsed from.
	Checksum [32]byte `yaml:"-"`
}

// Meta contains optional model metadata.
type Meta struct {
	// Version of the model definition.
	Version string `yaml:"version,omitempty"`

	// Description for documentation.
	Description string `yaml:"description,omitempty"`
}

// IsSchemaless reports whether the model declares no attributes.
func (d Definition) IsSchemaless() bool {
	return len(d.Attributes) == 0
}
