package model

import (
	"github.com/artpar/modeltype/core/failure"
	"github.com/artpar/modeltype/core/types"
)

// Instance is a value of a model. Reads and writes go through the model's
// attribute rules.
type Instance struct {
	model *Model
	id    string
	data  map[string]any

	dirty    bool
	previous map[string]any

	// owner is the instance holding this one in an attribute
	owner     *Instance
	ownerAttr string
}

// Model returns the instance's model.
func (inst *Instance) Model() *Model {
	return inst.model
}

// ID returns the instance identifier assigned at construction.
func (inst *Instance) ID() string {
	return inst.id
}

func (inst *Instance) check() error {
	if inst == nil || !inst.model.Defined() {
		var m *Model
		if inst != nil {
			m = inst.model
		}
		return undefinedModel(m)
	}
	return nil
}

// Get returns an attribute value, or nil when it is undefined.
func (inst *Instance) Get(name string) (any, error) {
	v, _, err := inst.Lookup(name)
	return v, err
}

// Lookup returns an attribute value and whether it is defined. An unset
// attribute with a default takes the default on first read.
func (inst *Instance) Lookup(name string) (any, bool, error) {
	if err := inst.check(); err != nil {
		return nil, false, err
	}
	if inst.model.IsSchemaless() {
		v, ok := inst.data[name]
		return v, ok, nil
	}

	a, err := inst.attribute(name)
	if err != nil {
		return nil, false, err
	}
	return inst.get(a)
}

// Set assigns an attribute. Passing types.Undefined unsets it.
func (inst *Instance) Set(name string, v any) error {
	if err := inst.check(); err != nil {
		return err
	}
	if inst.model.IsSchemaless() {
		inst.setRaw(name, v)
		return nil
	}

	a, err := inst.attribute(name)
	if err != nil {
		return err
	}
	return inst.set(a, v)
}

// Unset makes an attribute undefined.
func (inst *Instance) Unset(name string) error {
	return inst.Set(name, types.Undefined)
}

// Has reports whether an attribute currently holds a value, null included.
// Defaults are not evaluated.
func (inst *Instance) Has(name string) bool {
	_, ok := inst.data[name]
	return ok
}

// IsNew reports whether any primary attribute is undefined or null. Models
// without primary attributes are never new.
func (inst *Instance) IsNew() bool {
	for _, name := range inst.model.primary {
		if v, ok := inst.data[name]; !ok || v == nil {
			return true
		}
	}
	return false
}

// IsDirty reports whether the instance changed since it was last marked
// clean.
func (inst *Instance) IsDirty() bool {
	return inst.dirty
}

// SetDirty sets the dirty flag. Marking the instance clean also forgets the
// previous values.
func (inst *Instance) SetDirty(dirty bool) {
	inst.dirty = dirty
	if !dirty {
		inst.previous = nil
	}
}

// Previous returns a copy of the values attributes held before they were
// first changed since the instance was last clean. Nested instances appear
// in their exported form. It returns nil when nothing changed.
func (inst *Instance) Previous() map[string]any {
	if inst.previous == nil {
		return nil
	}
	return copyValue(inst.previous).(map[string]any)
}

// Call invokes a model method on the instance.
func (inst *Instance) Call(name string, args ...any) (any, error) {
	if err := inst.check(); err != nil {
		return nil, err
	}
	fn, ok := inst.model.method(name)
	if !ok {
		return nil, failure.New(failure.UnknownMethod,
			"Unknown method {method} for model {model}",
			failure.F("method", name), failure.F("model", inst.model.name))
	}
	return fn(inst, args...)
}

func (inst *Instance) attribute(name string) (*attribute, error) {
	a, ok := inst.model.byName[name]
	if !ok {
		return nil, failure.New(failure.UnknownAttribute,
			"Unknown attribute {attribute} for model {model}",
			failure.F("attribute", name), failure.F("model", inst.model.name))
	}
	return a, nil
}

func (inst *Instance) get(a *attribute) (any, bool, error) {
	v, ok := inst.data[a.Name]

	if !ok && a.hasDefault() {
		dv, err := a.evalDefault()
		if err != nil {
			return nil, false, attributeError(inst, a, err)
		}
		dv, err = inst.resolveNested(a, dv, 0)
		if err != nil {
			return nil, false, err
		}
		dv, err = inst.model.engine.registry.Validate(a.td, dv)
		if err != nil {
			return nil, false, attributeError(inst, a, err)
		}
		if !types.IsUndefined(dv) {
			inst.data[a.Name] = dv
			inst.adopt(a.Name, dv)
			v, ok = dv, true
		}
	}

	if !ok {
		return nil, false, nil
	}

	if a.Parse != nil {
		parsed, err := a.Parse(v)
		if err != nil {
			return nil, false, attributeError(inst, a, err)
		}
		v = parsed
	}
	return v, true, nil
}

func (inst *Instance) set(a *attribute, v any) error {
	if a.Compile != nil {
		compiled, err := a.Compile(v)
		if err != nil {
			return attributeError(inst, a, err)
		}
		v = compiled
	}

	if types.IsUndefined(v) && a.Required {
		return failure.New(failure.AttributeRequired,
			"Attribute {attribute} of {model} is required",
			failure.F("attribute", a.Name), failure.F("model", inst.model.name))
	}
	if v == nil && a.NotNull {
		return failure.New(failure.AttributeNotNull,
			"Attribute {attribute} of {model} cannot be null",
			failure.F("attribute", a.Name), failure.F("model", inst.model.name))
	}

	checked, err := inst.model.engine.registry.Validate(a.td, v)
	if err != nil {
		return attributeError(inst, a, err)
	}

	inst.store(a.Name, checked)
	return nil
}

// setRaw stores a value without validation, for schemaless models.
func (inst *Instance) setRaw(name string, v any) {
	inst.store(name, v)
}

func (inst *Instance) store(name string, v any) {
	prev, had := inst.data[name]

	inst.notifyOwner()

	if had && !sameValue(prev, v) {
		inst.recordPrevious(name, prev)
	}
	if had {
		inst.release(name, prev)
	}

	if types.IsUndefined(v) {
		delete(inst.data, name)
	} else {
		inst.data[name] = v
		inst.adopt(name, v)
	}
	inst.dirty = true
}

func (inst *Instance) recordPrevious(name string, v any) {
	if inst.previous == nil {
		inst.previous = make(map[string]any)
	}
	if _, ok := inst.previous[name]; !ok {
		inst.previous[name] = snapshot(v, inst.model.engine.maxDepth)
	}
}

// notifyOwner tells the owning instance that a value it holds is about to
// change, so the owner records its own previous value first.
func (inst *Instance) notifyOwner() {
	owner := inst.owner
	if owner == nil {
		return
	}
	owner.dirty = true
	if _, ok := owner.previous[inst.ownerAttr]; ok {
		return
	}
	if v, ok := owner.data[inst.ownerAttr]; ok {
		owner.recordPrevious(inst.ownerAttr, v)
		owner.notifyOwner()
	}
}

// adopt makes inst the owner of the instances held in v.
func (inst *Instance) adopt(name string, v any) {
	eachInstance(v, func(child *Instance) {
		if child != inst {
			child.owner = inst
			child.ownerAttr = name
		}
	})
}

// release drops ownership of the instances held in v.
func (inst *Instance) release(name string, v any) {
	eachInstance(v, func(child *Instance) {
		if child.owner == inst && child.ownerAttr == name {
			child.owner = nil
			child.ownerAttr = ""
		}
	})
}

func eachInstance(v any, fn func(*Instance)) {
	switch t := v.(type) {
	case *Instance:
		if t != nil {
			fn(t)
		}
	case []any:
		for _, item := range t {
			if child, ok := item.(*Instance); ok && child != nil {
				fn(child)
			}
		}
	}
}

func attributeError(inst *Instance, a *attribute, err error) error {
	kind, ok := failure.KindOf(err)
	if !ok {
		kind = failure.ValidationFailure
	}
	return failure.Wrap(kind, err,
		"Invalid attribute {attribute} of {model}",
		failure.F("attribute", a.Name), failure.F("model", inst.model.name))
}
