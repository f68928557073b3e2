package model

import (
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/artpar/modeltype/core/failure"
	"github.com/artpar/modeltype/core/schema"
	"github.com/artpar/modeltype/core/types"
)

// Method is a function callable on instances of a model.
type Method func(inst *Instance, args ...any) (any, error)

// Model is a defined model type. It constructs instances and is the type
// registered under its name.
type Model struct {
	engine      *Engine
	name        string
	description string

	attrs   []*attribute
	byName  map[string]*attribute
	primary []string

	mu      sync.RWMutex
	methods map[string]Method
	pending map[string]Method

	stripped atomic.Bool
}

func newModel(e *Engine, name string, attrs []*attribute) *Model {
	m := &Model{
		engine:  e,
		name:    name,
		attrs:   attrs,
		byName:  make(map[string]*attribute, len(attrs)),
		methods: make(map[string]Method),
		pending: make(map[string]Method),
	}
	for _, a := range attrs {
		m.byName[a.Name] = a
		if a.Primary {
			m.primary = append(m.primary, a.Name)
		}
	}
	return m
}

// Name returns the lower-cased model name.
func (m *Model) Name() string {
	if m == nil {
		return ""
	}
	return m.name
}

// Description returns the description given at definition.
func (m *Model) Description() string {
	return m.description
}

// Engine returns the engine the model was defined on.
func (m *Model) Engine() *Engine {
	return m.engine
}

// Defined reports whether the model is usable: it was created by
// Engine.Define and has not been undefined since.
func (m *Model) Defined() bool {
	return m != nil && m.engine != nil && !m.stripped.Load()
}

// IsSchemaless reports whether the model declares no attributes.
func (m *Model) IsSchemaless() bool {
	return len(m.attrs) == 0
}

// Attributes returns the declared attributes in order. It returns nil once
// the model is undefined.
func (m *Model) Attributes() []Attribute {
	if !m.Defined() {
		return nil
	}
	out := make([]Attribute, len(m.attrs))
	for i, a := range m.attrs {
		out[i] = a.Attribute
	}
	return out
}

// Attribute returns a declared attribute by name.
func (m *Model) Attribute(name string) (Attribute, bool) {
	if !m.Defined() {
		return Attribute{}, false
	}
	a, ok := m.byName[name]
	if !ok {
		return Attribute{}, false
	}
	return a.Attribute, true
}

// Primary returns the primary attribute names in declaration order.
func (m *Model) Primary() []string {
	if !m.Defined() {
		return nil
	}
	out := make([]string, len(m.primary))
	copy(out, m.primary)
	return out
}

// AddMethod installs a method. Method names follow attribute naming rules
// and may not shadow an attribute.
func (m *Model) AddMethod(name string, fn Method) error {
	if !m.Defined() {
		return undefinedModel(m)
	}
	if fn == nil || !schema.IsIdentifier(name) || schema.IsReserved(name) {
		return failure.New(failure.InvalidModel,
			"Invalid method {method} for model {model}",
			failure.F("method", name), failure.F("model", m.name))
	}
	if _, ok := m.byName[name]; ok {
		return failure.New(failure.InvalidModel,
			"Method {method} shadows an attribute of model {model}",
			failure.F("method", name), failure.F("model", m.name))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.methods[name] = fn
	return nil
}

// Methods returns the names of installed methods, sorted.
func (m *Model) Methods() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.methods))
	for name := range m.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Model) method(name string) (Method, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fn, ok := m.methods[name]
	return fn, ok
}

// New constructs an instance. data may be nil, a slice of values for the
// primary attributes in order, or a map imported as JSON. The returned
// instance is clean.
func (m *Model) New(data any) (*Instance, error) {
	return m.newInstance(data, 0)
}

func (m *Model) newInstance(data any, depth int) (*Instance, error) {
	if !m.Defined() {
		return nil, undefinedModel(m)
	}
	if depth > m.engine.maxDepth {
		return nil, failure.New(failure.NestingTooDeep,
			"Nesting too deep building {model} (limit {limit})",
			failure.F("model", m.name), failure.F("limit", m.engine.maxDepth))
	}

	inst := &Instance{
		model: m,
		id:    m.engine.newID(),
		data:  make(map[string]any),
	}

	if err := inst.load(data, depth); err != nil {
		return nil, err
	}
	inst.SetDirty(false)

	m.engine.metrics.InstanceCreated(m.name)
	return inst, nil
}

func (inst *Instance) load(data any, depth int) error {
	switch d := data.(type) {
	case nil:
		return nil
	case map[string]any:
		return inst.importJSON(d, depth)
	case []any:
		return inst.assignPrimary(d)
	}

	rv := reflect.ValueOf(data)
	switch {
	case rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array:
		values := make([]any, rv.Len())
		for i := range values {
			values[i] = rv.Index(i).Interface()
		}
		return inst.assignPrimary(values)
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		return inst.importJSON(stringMap(rv), depth)
	}

	return failure.New(failure.ValidationFailure,
		"Invalid data for model {model} : {value}",
		failure.F("model", inst.model.name), failure.F("value", data))
}

// assignPrimary assigns positional values to the primary attributes.
// Extra values are ignored.
func (inst *Instance) assignPrimary(values []any) error {
	for i, name := range inst.model.primary {
		if i >= len(values) {
			break
		}
		if err := inst.Set(name, values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) strip() {
	m.stripped.Store(true)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.methods = make(map[string]Method)
}

func undefinedModel(m *Model) error {
	return failure.New(failure.UndefinedModelInstance,
		"Model {model} is not defined", failure.F("model", m.Name()))
}

// modelValidator accepts instances of one model.
type modelValidator struct {
	m *Model
}

func (v modelValidator) Validate(value any) (any, error) {
	if types.IsAbsent(value) {
		return value, nil
	}
	if inst, ok := value.(*Instance); ok && inst != nil && inst.model == v.m {
		return inst, nil
	}
	return nil, failure.New(failure.InvalidType,
		"Invalid {type} : {value}", failure.F("type", v.m.name), failure.F("value", value))
}

func stringMap(rv reflect.Value) map[string]any {
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out
}
