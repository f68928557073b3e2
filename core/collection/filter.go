package collection

import (
	"github.com/artpar/modeltype/core/model"
	"github.com/artpar/modeltype/core/types"
)

type matchFunc func(item any, index int) bool

func (c *Collection) matcher(filter any) matchFunc {
	switch f := filter.(type) {
	case nil:
		return never
	case Func:
		if f == nil {
			return never
		}
		return matchFunc(f)
	case func(item any, index int) bool:
		if f == nil {
			return never
		}
		return f
	case Match:
		return matchAll(f)
	case map[string]any:
		return matchAll(f)
	}

	if types.IsUndefined(filter) {
		return never
	}
	return c.matchAny(filter)
}

func never(any, int) bool { return false }

func matchAll(want map[string]any) matchFunc {
	return func(item any, _ int) bool {
		for key, v := range want {
			got, ok := field(item, key)
			if !ok || !Equal(got, v) {
				return false
			}
		}
		return true
	}
}

// matchAny matches items holding value in any attribute. Collections with a
// model look only at the model's declared attributes.
func (c *Collection) matchAny(value any) matchFunc {
	var keys []string
	if c.model != nil {
		for _, a := range c.model.Attributes() {
			keys = append(keys, a.Name)
		}
	}

	return func(item any, _ int) bool {
		names := keys
		if c.model == nil {
			names = fieldNames(item)
		}
		for _, key := range names {
			if got, ok := field(item, key); ok && Equal(got, value) {
				return true
			}
		}
		return false
	}
}

func field(item any, key string) (any, bool) {
	switch t := item.(type) {
	case *model.Instance:
		v, ok, err := t.Lookup(key)
		if err != nil {
			return nil, false
		}
		return v, ok
	case map[string]any:
		v, ok := t[key]
		return v, ok
	}
	return nil, false
}

func fieldNames(item any) []string {
	switch t := item.(type) {
	case *model.Instance:
		m := t.Model()
		if m.IsSchemaless() {
			names := make([]string, 0)
			for key := range t.ToJSON() {
				names = append(names, key)
			}
			return names
		}
		var names []string
		for _, a := range m.Attributes() {
			names = append(names, a.Name)
		}
		return names
	case map[string]any:
		names := make([]string, 0, len(t))
		for key := range t {
			names = append(names, key)
		}
		return names
	}
	return nil
}
