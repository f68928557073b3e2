// Package collection filters and edits in-memory lists of model instances
// or plain records.
//
// A filter is a Func, a Match of attribute values, or a single scalar that
// matches any attribute holding it:
//
//	admins := users.FindAll(collection.Match{"role": "admin"})
//	first, ok := users.Find(collection.Func(func(item any, i int) bool { return i > 2 }))
//	users.RemoveAll("inactive")
package collection

import (
	"github.com/artpar/modeltype/core/failure"
	"github.com/artpar/modeltype/core/model"
)

// Func selects items by predicate. It receives the item and its index.
type Func func(item any, index int) bool

// Match selects items whose attributes equal every entry.
type Match map[string]any

// Collection is an ordered list of items: *model.Instance values or
// map[string]any records.
type Collection struct {
	model *model.Model
	items []any
}

// New creates a collection. When m is not nil scalar filters look only at
// m's declared attributes, and Add accepts only m's instances.
func New(m *model.Model, items ...any) (*Collection, error) {
	c := &Collection{model: m}
	for _, item := range items {
		if err := c.Add(item); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Model returns the collection's model, if any.
func (c *Collection) Model() *model.Model {
	return c.model
}

// Add appends an item.
func (c *Collection) Add(item any) error {
	switch t := item.(type) {
	case *model.Instance:
		if t == nil {
			return invalidItem(item)
		}
		if c.model != nil && t.Model() != c.model {
			return failure.New(failure.CollectionFailure,
				"Item of {actual} added to a collection of {model}",
				failure.F("actual", t.Model().Name()), failure.F("model", c.model.Name()))
		}
	case map[string]any:
		if c.model != nil {
			return invalidItem(item)
		}
	default:
		return invalidItem(item)
	}
	c.items = append(c.items, item)
	return nil
}

// Len returns the number of items.
func (c *Collection) Len() int {
	return len(c.items)
}

// Items returns a copy of the items.
func (c *Collection) Items() []any {
	out := make([]any, len(c.items))
	copy(out, c.items)
	return out
}

// Each calls fn for every item until it returns false.
func (c *Collection) Each(fn func(item any, index int) bool) error {
	if fn == nil {
		return failure.New(failure.CollectionFailure, "Each requires a function")
	}
	for i, item := range c.items {
		if !fn(item, i) {
			break
		}
	}
	return nil
}

// Find returns the first item matching filter.
func (c *Collection) Find(filter any) (any, bool) {
	match := c.matcher(filter)
	for i, item := range c.items {
		if match(item, i) {
			return item, true
		}
	}
	return nil, false
}

// FindAll returns a collection of the same model holding every match.
func (c *Collection) FindAll(filter any) *Collection {
	match := c.matcher(filter)
	out := &Collection{model: c.model}
	for i, item := range c.items {
		if match(item, i) {
			out.items = append(out.items, item)
		}
	}
	return out
}

// Remove removes and returns the first item matching filter.
func (c *Collection) Remove(filter any) (any, bool) {
	match := c.matcher(filter)
	for i, item := range c.items {
		if match(item, i) {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return item, true
		}
	}
	return nil, false
}

// RemoveAll removes every item matching filter and returns how many were
// removed.
func (c *Collection) RemoveAll(filter any) int {
	match := c.matcher(filter)
	kept := c.items[:0]
	removed := 0
	for i, item := range c.items {
		if match(item, i) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	for i := len(kept); i < len(c.items); i++ {
		c.items[i] = nil
	}
	c.items = kept
	return removed
}

func invalidItem(item any) error {
	return failure.New(failure.CollectionFailure, "Invalid collection item {value}", failure.F("value", item))
}
