package model

import (
	"github.com/artpar/modeltype/core/failure"
)

// Accessor reads and writes one attribute of a model's instances.
type Accessor struct {
	model *Model
	attr  *attribute
}

// Accessor returns the accessor for a declared attribute.
func (m *Model) Accessor(name string) (*Accessor, error) {
	if !m.Defined() {
		return nil, undefinedModel(m)
	}
	a, ok := m.byName[name]
	if !ok {
		return nil, failure.New(failure.UnknownAttribute,
			"Unknown attribute {attribute} for model {model}",
			failure.F("attribute", name), failure.F("model", m.name))
	}
	return &Accessor{model: m, attr: a}, nil
}

// Name returns the attribute name.
func (acc *Accessor) Name() string {
	return acc.attr.Name
}

// Attribute returns the attribute declaration.
func (acc *Accessor) Attribute() Attribute {
	return acc.attr.Attribute
}

// Get reads the attribute from inst.
func (acc *Accessor) Get(inst *Instance) (any, error) {
	v, _, err := acc.Lookup(inst)
	return v, err
}

// Lookup reads the attribute from inst and reports whether it is defined.
func (acc *Accessor) Lookup(inst *Instance) (any, bool, error) {
	if err := acc.owns(inst); err != nil {
		return nil, false, err
	}
	return inst.get(acc.attr)
}

// Set writes the attribute on inst.
func (acc *Accessor) Set(inst *Instance, v any) error {
	if err := acc.owns(inst); err != nil {
		return err
	}
	return inst.set(acc.attr, v)
}

func (acc *Accessor) owns(inst *Instance) error {
	if err := inst.check(); err != nil {
		return err
	}
	if inst.model != acc.model {
		return failure.New(failure.InvalidModel,
			"Instance of {actual} used with accessor of {model}",
			failure.F("actual", inst.model.name), failure.F("model", acc.model.name))
	}
	return nil
}
