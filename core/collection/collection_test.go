package collection

import (
	"errors"
	"testing"

	"github.com/artpar/modeltype/core/failure"
	"github.com/artpar/modeltype/core/model"
)

func records() []any {
	return []any{
		map[string]any{"firstName": "Adam", "lastName": "Smith", "active": true},
		map[string]any{"firstName": "David", "lastName": "Jones", "custom": "foo"},
		map[string]any{"firstName": "Grace", "lastName": "Becker"},
		map[string]any{"firstName": "Grace", "lastName": "Hopper"},
		map[string]any{"firstName": "Rogers", "lastName": "Miller"},
	}
}

func mustCollection(t *testing.T, m *model.Model, items []any) *Collection {
	t.Helper()
	c, err := New(m, items...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func firstName(item any) string {
	if r, ok := item.(map[string]any); ok {
		s, _ := r["firstName"].(string)
		return s
	}
	v, _ := item.(*model.Instance).Get("firstName")
	s, _ := v.(string)
	return s
}

func TestNew(t *testing.T) {
	c := mustCollection(t, nil, nil)
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}

	for _, bad := range []any{true, "test", 123, (*model.Instance)(nil)} {
		if _, err := New(nil, bad); !errors.Is(err, failure.CollectionFailure) {
			t.Errorf("New(%v) error = %v, want CollectionFailure", bad, err)
		}
	}
}

func TestFind(t *testing.T) {
	items := records()
	c := mustCollection(t, nil, items)

	tests := []struct {
		name   string
		filter any
		want   string
		found  bool
	}{
		{"func", Func(func(item any, _ int) bool { return firstName(item) == "Rogers" }), "Rogers", true},
		{"plain func", func(item any, i int) bool { return i == 1 }, "David", true},
		{"match", Match{"custom": "foo"}, "David", true},
		{"match two keys", Match{"firstName": "Grace", "lastName": "Becker"}, "Grace", true},
		{"plain map", map[string]any{"lastName": "Hopper"}, "Grace", true},
		{"scalar", "Rogers", "Rogers", true},
		{"scalar bool", true, "Adam", true},
		{"no match", "Nobody", "", false},
		{"nil", nil, "", false},
		{"nil func", Func(nil), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Find(tt.filter)
			if ok != tt.found {
				t.Fatalf("Find() found = %v, want %v", ok, tt.found)
			}
			if ok && firstName(got) != tt.want {
				t.Errorf("Find() = %v, want %s", got, tt.want)
			}
		})
	}

	if got, _ := c.Find(Match{"lastName": "Hopper"}); got.(map[string]any)["lastName"] != "Hopper" {
		t.Error("Find() returned the wrong record")
	}
}

func TestFindAll(t *testing.T) {
	c := mustCollection(t, nil, records())

	result := c.FindAll(Func(func(item any, _ int) bool {
		return firstName(item) == "Rogers" || firstName(item) == "Grace"
	}))
	if result.Len() != 3 {
		t.Errorf("FindAll(func) Len() = %d, want 3", result.Len())
	}

	if got := c.FindAll(Match{"firstName": "Grace"}).Len(); got != 2 {
		t.Errorf("FindAll(match) Len() = %d, want 2", got)
	}
	if got := c.FindAll("Grace").Len(); got != 2 {
		t.Errorf("FindAll(scalar) Len() = %d, want 2", got)
	}
	if got := c.FindAll(nil).Len(); got != 0 {
		t.Errorf("FindAll(nil) Len() = %d, want 0", got)
	}
	if c.Len() != 5 {
		t.Error("FindAll modified the source collection")
	}
}

func TestRemove(t *testing.T) {
	c := mustCollection(t, nil, records())

	if got, ok := c.Remove(Match{"custom": "foo"}); !ok || firstName(got) != "David" {
		t.Errorf("Remove(custom) = %v, %v", got, ok)
	}
	if got, ok := c.Remove(true); !ok || firstName(got) != "Adam" {
		t.Errorf("Remove(true) = %v, %v", got, ok)
	}
	if _, ok := c.Remove("Nobody"); ok {
		t.Error("Remove(Nobody) found an item")
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestRemoveAll(t *testing.T) {
	c := mustCollection(t, nil, records())

	if n := c.RemoveAll("Grace"); n != 2 {
		t.Errorf("RemoveAll(Grace) = %d, want 2", n)
	}
	if n := c.RemoveAll(Func(func(item any, _ int) bool { return firstName(item) == "David" })); n != 1 {
		t.Errorf("RemoveAll(func) = %d, want 1", n)
	}
	if n := c.RemoveAll(nil); n != 0 {
		t.Errorf("RemoveAll(nil) = %d, want 0", n)
	}

	var names []string
	c.Each(func(item any, _ int) bool {
		names = append(names, firstName(item))
		return true
	})
	if len(names) != 2 || names[0] != "Adam" || names[1] != "Rogers" {
		t.Errorf("remaining = %v, want [Adam Rogers]", names)
	}
}

func TestWithModel(t *testing.T) {
	e := model.NewEngine()
	person, err := e.Define("person", []model.Attribute{
		model.Attr("firstName", "text"),
		model.Attr("lastName", "text"),
		model.Attr("age", "int"),
	})
	if err != nil {
		t.Fatal(err)
	}

	var items []any
	for _, r := range records() {
		inst, err := person.New(r)
		if err != nil {
			t.Fatal(err)
		}
		items = append(items, inst)
	}
	extra, _ := person.New(map[string]any{"firstName": "Zed", "age": 40})
	items = append(items, extra)

	c := mustCollection(t, person, items)

	// "active" is not a declared attribute
	if _, ok := c.Find(true); ok {
		t.Error("Find(true) matched an undeclared key")
	}
	if got, ok := c.Find("Rogers"); !ok || firstName(got) != "Rogers" {
		t.Errorf("Find(Rogers) = %v, %v", got, ok)
	}
	if got, ok := c.Find(40); !ok || got != extra {
		t.Errorf("Find(40) = %v, %v, want the int64 attribute to match", got, ok)
	}
	if got, ok := c.Find(Match{"firstName": "Grace", "lastName": "Hopper"}); !ok || got != items[3] {
		t.Errorf("Find(match) = %v, %v", got, ok)
	}

	all := c.FindAll("Grace")
	if all.Model() != person || all.Len() != 2 {
		t.Errorf("FindAll() = %d items of %v", all.Len(), all.Model())
	}

	other, _ := e.Define("pet", nil)
	pet, _ := other.New(nil)
	if err := c.Add(pet); !errors.Is(err, failure.CollectionFailure) {
		t.Errorf("Add(pet) error = %v, want CollectionFailure", err)
	}
	if err := c.Add(map[string]any{}); !errors.Is(err, failure.CollectionFailure) {
		t.Errorf("Add(record) error = %v, want CollectionFailure", err)
	}
}

func TestEach(t *testing.T) {
	c := mustCollection(t, nil, records())

	if err := c.Each(nil); !errors.Is(err, failure.CollectionFailure) {
		t.Errorf("Each(nil) error = %v, want CollectionFailure", err)
	}

	count := 0
	c.Each(func(item any, i int) bool {
		count++
		return i < 1
	})
	if count != 2 {
		t.Errorf("Each visited %d items, want 2", count)
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b any
		want bool
	}{
		{1, int64(1), true},
		{1, 1.0, true},
		{1, "1", false},
		{"a", "a", true},
		{nil, nil, true},
		{nil, "a", false},
		{true, true, true},
		{[]any{1}, []any{1}, false},
	}

	for _, tt := range tests {
		if got := Equal(tt.a, tt.b); got != tt.want {
			t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
