package schema

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"
)

// ParseFile parses a model definition from a YAML file.
func ParseFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read file %s: %w", path, err)
	}

	def, err := Parse(data)
	if err != nil {
		return Definition{}, fmt.Errorf("%s: %w", path, err)
	}
	def.Source = path

	return def, nil
}

// Parse parses a model definition from YAML bytes.
func Parse(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("parse yaml: %w", err)
	}

	if err := Validate(def); err != nil {
		return Definition{}, fmt.Errorf("validate model %q: %w", def.Name, err)
	}
	def.Checksum = blake2b.Sum256(data)

	return def, nil
}

// ParseDir parses all model definitions from a directory, including
// subdirectories. Files are visited in lexical order.
func ParseDir(dir string) ([]Definition, error) {
	var defs []Definition

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			sub, err := ParseDir(path)
			if err != nil {
				return nil, err
			}
			defs = append(defs, sub...)
			continue
		}

		if !IsDefinitionFile(entry.Name()) {
			continue
		}

		def, err := ParseFile(path)
		if err != nil {
			return nil, err
		}

		defs = append(defs, def)
	}

	return defs, nil
}

// IsDefinitionFile reports whether a file name looks like a model definition.
func IsDefinitionFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

// Validate validates a model definition.
func Validate(def Definition) error {
	var errs []string

	td, err := ParseType(def.Name)
	switch {
	case def.Name == "":
		errs = append(errs, "model name is required")
	case err != nil:
		errs = append(errs, fmt.Sprintf("model name %q is not a valid name", def.Name))
	case td.IsArray:
		errs = append(errs, fmt.Sprintf("model name %q cannot be an array", def.Name))
	}

	for _, attr := range def.Attributes {
		if err := ValidateAttribute(attr); err != nil {
			errs = append(errs, err.Error())
		}
	}

	for name, body := range def.Methods {
		if !IsIdentifier(name) || IsReserved(name) {
			errs = append(errs, fmt.Sprintf("method name %q is not a valid identifier", name))
		}
		if strings.TrimSpace(body) == "" {
			errs = append(errs, fmt.Sprintf("method %q: expression is empty", name))
		}
		if _, ok := def.Attributes.Lookup(name); ok {
			errs = append(errs, fmt.Sprintf("method %q: shadows an attribute", name))
		}
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// ValidateAttribute validates a single attribute declaration.
func ValidateAttribute(attr Attribute) error {
	if !IsIdentifier(attr.Name) {
		return fmt.Errorf("attribute name %q is not a valid identifier", attr.Name)
	}
	if IsReserved(attr.Name) {
		return fmt.Errorf("attribute name %q is reserved", attr.Name)
	}

	if attr.Type == "" {
		return fmt.Errorf("attribute %q: type is required", attr.Name)
	}
	if _, err := ParseType(attr.Type); err != nil {
		return fmt.Errorf("attribute %q: %w", attr.Name, err)
	}

	if attr.Alias != "" {
		if !IsIdentifier(attr.Alias) {
			return fmt.Errorf("attribute %q: alias %q is not a valid identifier", attr.Name, attr.Alias)
		}
		if attr.Alias == attr.Name {
			return fmt.Errorf("attribute %q: alias repeats the attribute name", attr.Name)
		}
	}

	return nil
}

// Fingerprint digests the sources and checksums of defs. Two directory
// parses yield the same fingerprint only when every file is unchanged.
func Fingerprint(defs []Definition) string {
	h, _ := blake2b.New256(nil)
	for _, def := range defs {
		h.Write([]byte(def.Source))
		h.Write([]byte{0})
		h.Write(def.Checksum[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
