package model

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/artpar/modeltype/core/failure"
	"github.com/artpar/modeltype/core/types"
)

// DateFormat is the layout dates are exported with.
const DateFormat = "2006-01-02T15:04:05.000Z"

// FromJSON imports plain data into the instance. Each attribute is read
// from its own key, or from its alias when the key is absent. Values for
// model-typed attributes are built into nested instances. Schemaless
// instances merge data into their own.
func (inst *Instance) FromJSON(data map[string]any) error {
	if err := inst.check(); err != nil {
		return err
	}
	return inst.importJSON(data, 0)
}

func (inst *Instance) importJSON(data map[string]any, depth int) error {
	m := inst.model
	err := inst.merge(data, depth)
	m.engine.metrics.Imported(m.name, err)
	return err
}

func (inst *Instance) merge(data map[string]any, depth int) error {
	if inst.model.IsSchemaless() {
		for k, v := range data {
			inst.setRaw(k, v)
		}
		return nil
	}

	for _, a := range inst.model.attrs {
		v, ok := data[a.Name]
		if !ok && a.Alias != "" {
			v, ok = data[a.Alias]
		}
		if !ok {
			continue
		}

		v, err := inst.resolveNested(a, v, depth)
		if err != nil {
			return err
		}
		if err := inst.set(a, v); err != nil {
			return err
		}
	}
	return nil
}

// resolveNested builds instances for attributes typed with a model name.
// Models are looked up when the value arrives, so definition order does
// not matter.
func (inst *Instance) resolveNested(a *attribute, v any, depth int) (any, error) {
	if types.IsAbsent(v) {
		return v, nil
	}
	nested, ok := inst.model.engine.lookup(a.td.Name)
	if !ok {
		return v, nil
	}

	if !a.td.IsArray {
		return nested.build(v, depth+1)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		// left for validation to reject
		return v, nil
	}
	items := make([]any, rv.Len())
	for i := range items {
		built, err := nested.build(rv.Index(i).Interface(), depth+1)
		if err != nil {
			return nil, err
		}
		items[i] = built
	}
	return items, nil
}

// build returns v unchanged when it is already an instance of m or absent,
// and a new instance built from v otherwise.
func (m *Model) build(v any, depth int) (any, error) {
	if types.IsAbsent(v) {
		return v, nil
	}
	if inst, ok := v.(*Instance); ok && inst != nil && inst.model == m {
		return inst, nil
	}
	return m.newInstance(v, depth)
}

// ToJSON exports the instance as plain data. Undefined attributes are
// omitted, nested instances are exported recursively and dates are
// formatted with DateFormat. Attributes whose value cannot be read are
// skipped; MarshalJSON reports them instead.
func (inst *Instance) ToJSON() map[string]any {
	out, err := inst.export(0)
	if err != nil && inst.model.Defined() {
		inst.model.engine.logger.Warn().
			Err(err).
			Str("model", inst.model.Name()).
			Msg("incomplete export")
	}
	return out
}

func (inst *Instance) export(depth int) (map[string]any, error) {
	if err := inst.check(); err != nil {
		return nil, err
	}

	m := inst.model
	out := make(map[string]any, len(inst.data))
	var firstErr error

	if m.IsSchemaless() {
		for k, v := range inst.data {
			out[k] = exportValue(v, depth, m.engine.maxDepth)
		}
	} else {
		for _, a := range m.attrs {
			v, ok, err := inst.get(a)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if !ok {
				continue
			}
			out[a.Name] = exportValue(v, depth, m.engine.maxDepth)
		}
	}

	m.engine.metrics.Exported(m.name)
	return out, firstErr
}

// MarshalJSON implements json.Marshaler.
func (inst *Instance) MarshalJSON() ([]byte, error) {
	out, err := inst.export(0)
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. The instance must have been
// created by a model; the document is imported with FromJSON.
func (inst *Instance) UnmarshalJSON(b []byte) error {
	if inst.model == nil {
		return failure.New(failure.UndefinedModelInstance, "Cannot decode into an instance without a model")
	}
	var data map[string]any
	if err := json.Unmarshal(b, &data); err != nil {
		return err
	}
	return inst.FromJSON(data)
}

func exportValue(v any, depth, maxDepth int) any {
	switch t := v.(type) {
	case *Instance:
		if t == nil || depth >= maxDepth {
			return nil
		}
		out, _ := t.export(depth + 1)
		return out
	case time.Time:
		return t.UTC().Format(DateFormat)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = exportValue(item, depth, maxDepth)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = exportValue(item, depth, maxDepth)
		}
		return out
	}
	return v
}
