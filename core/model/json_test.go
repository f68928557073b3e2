package model

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/artpar/modeltype/core/failure"
)

func TestJSON_RoundTrip(t *testing.T) {
	e := NewEngine()
	m := mustDefine(t, e, "record",
		Attribute{Name: "id", Type: "int", Primary: true},
		Attribute{Name: "name", Type: "text"},
		Attribute{Name: "score", Type: "number"},
		Attribute{Name: "active", Type: "bool"},
		Attribute{Name: "meta", Type: "object"},
		Attribute{Name: "values", Type: "int[]"},
		Attribute{Name: "missing", Type: "text"},
		Attribute{Name: "empty", Type: "text"},
	)

	in := map[string]any{
		"id":     1,
		"name":   "one",
		"score":  1.5,
		"active": "true",
		"meta":   map[string]any{"k": "v"},
		"values": []any{1, "2", 3},
		"empty":  nil,
		"extra":  "ignored",
	}
	inst := mustNew(t, m, in)

	want := map[string]any{
		"id":     int64(1),
		"name":   "one",
		"score":  1.5,
		"active": true,
		"meta":   map[string]any{"k": "v"},
		"values": []any{int64(1), int64(2), int64(3)},
		"empty":  nil,
	}
	got := inst.ToJSON()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ToJSON() = %#v, want %#v", got, want)
	}
	if _, ok := got["missing"]; ok {
		t.Error("undefined attribute exported")
	}

	again := mustNew(t, m, got)
	if !reflect.DeepEqual(again.ToJSON(), want) {
		t.Errorf("round trip ToJSON() = %#v", again.ToJSON())
	}
}

func TestJSON_NestedModels(t *testing.T) {
	e := NewEngine()
	// User is defined before Role; types resolve when values arrive
	user := mustDefine(t, e, "User",
		Attribute{Name: "id", Type: "int", Primary: true},
		Attribute{Name: "roles", Type: "Role[]"},
		Attribute{Name: "boss", Type: "User"},
	)
	mustDefine(t, e, "Role", Attr("name", "text"))

	inst := mustNew(t, user, map[string]any{
		"id":    "7",
		"roles": []any{map[string]any{"name": "admin"}, nil},
		"boss":  map[string]any{"id": 1},
	})

	roles, _ := inst.Get("roles")
	items := roles.([]any)
	role, ok := items[0].(*Instance)
	if !ok || role.Model().Name() != "role" {
		t.Fatalf("roles[0] = %#v, want a role instance", items[0])
	}
	if items[1] != nil {
		t.Errorf("roles[1] = %v, want nil", items[1])
	}

	want := map[string]any{
		"id":    int64(7),
		"roles": []any{map[string]any{"name": "admin"}, nil},
		"boss":  map[string]any{"id": int64(1)},
	}
	if got := inst.ToJSON(); !reflect.DeepEqual(got, want) {
		t.Errorf("ToJSON() = %#v, want %#v", got, want)
	}

	// an existing instance is kept as is
	boss, _ := inst.Get("boss")
	inst.FromJSON(map[string]any{"boss": boss})
	if again, _ := inst.Get("boss"); again != boss {
		t.Error("FromJSON rebuilt an existing instance")
	}

	if err := inst.Set("roles", []any{"admin"}); !errors.Is(err, failure.InvalidType) {
		t.Errorf("Set(roles, [string]) error = %v, want InvalidType", err)
	}
	if err := inst.FromJSON(map[string]any{"roles": "admin"}); !errors.Is(err, failure.NotAnArray) {
		t.Errorf("FromJSON(roles: string) error = %v, want NotAnArray", err)
	}
}

func TestJSON_Alias(t *testing.T) {
	e := NewEngine()
	m := mustDefine(t, e, "mapping",
		Attribute{Name: "id", Type: "text", Default: "123"},
		Attribute{Name: "firstName", Type: "string", Alias: "first_name", Default: "John"},
		Attribute{Name: "lastName", Type: "string", Alias: "last_name"},
		Attribute{Name: "foo", Type: "integer", Alias: "bar"},
	)

	inst := mustNew(t, m, map[string]any{
		"first_name": "Jane",
		"lastName":   "Doe",
		"last_name":  "Ignored",
		"foo":        123,
	})

	want := map[string]any{"id": "123", "firstName": "Jane", "lastName": "Doe", "foo": int64(123)}
	if got := inst.ToJSON(); !reflect.DeepEqual(got, want) {
		t.Errorf("ToJSON() = %v, want %v", got, want)
	}

	defaults := mustNew(t, m, nil)
	want = map[string]any{"id": "123", "firstName": "John"}
	if got := defaults.ToJSON(); !reflect.DeepEqual(got, want) {
		t.Errorf("ToJSON() = %v, want %v", got, want)
	}
}

func TestJSON_Schemaless(t *testing.T) {
	e := NewEngine()
	m := mustDefine(t, e, "bag")

	inst := mustNew(t, m, map[string]any{"a": 1, "b": "x"})
	if err := inst.FromJSON(map[string]any{"b": "y", "c": true}); err != nil {
		t.Fatal(err)
	}

	want := map[string]any{"a": 1, "b": "y", "c": true}
	if got := inst.ToJSON(); !reflect.DeepEqual(got, want) {
		t.Errorf("ToJSON() = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(inst.Previous(), map[string]any{"b": "x"}) {
		t.Errorf("Previous() = %v, want b: x", inst.Previous())
	}

	v, err := inst.Get("anything")
	if v != nil || err != nil {
		t.Errorf("Get(anything) = %v, %v", v, err)
	}
}

func TestJSON_Dates(t *testing.T) {
	e := NewEngine()
	m := mustDefine(t, e, "event", Attr("at", "date"), Attr("history", "date[]"))

	inst := mustNew(t, m, map[string]any{
		"at":      "2023-11-14T23:13:20+01:00",
		"history": []any{int64(0)},
	})

	at, _ := inst.Get("at")
	if _, ok := at.(time.Time); !ok {
		t.Fatalf("Get(at) = %T, want time.Time", at)
	}

	want := map[string]any{
		"at":      "2023-11-14T22:13:20.000Z",
		"history": []any{"1970-01-01T00:00:00.000Z"},
	}
	if got := inst.ToJSON(); !reflect.DeepEqual(got, want) {
		t.Errorf("ToJSON() = %v, want %v", got, want)
	}
}

func TestJSON_NestingTooDeep(t *testing.T) {
	e := NewEngine(WithMaxDepth(2))
	node := mustDefine(t, e, "node", Attr("name", "text"), Attr("child", "node"))

	ok := map[string]any{"child": map[string]any{"child": map[string]any{}}}
	if _, err := node.New(ok); err != nil {
		t.Errorf("New(depth 2) error = %v", err)
	}

	deep := map[string]any{"child": map[string]any{"child": map[string]any{"child": map[string]any{}}}}
	if _, err := node.New(deep); !errors.Is(err, failure.NestingTooDeep) {
		t.Errorf("New(depth 3) error = %v, want NestingTooDeep", err)
	}

	// a cycle of instances exports without looping
	a := mustNew(t, node, map[string]any{"name": "a"})
	b := mustNew(t, node, map[string]any{"name": "b", "child": a})
	a.Set("child", b)
	out := a.ToJSON()
	if out["name"] != "a" {
		t.Errorf("ToJSON() = %v", out)
	}
}

func TestJSON_Marshal(t *testing.T) {
	e := NewEngine()
	m := mustDefine(t, e, "point", Attr("x", "int"), Attr("y", "int"))
	inst := mustNew(t, m, map[string]any{"x": 1, "y": 2})

	b, err := json.Marshal(inst)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(b) != `{"x":1,"y":2}` {
		t.Errorf("Marshal() = %s", b)
	}

	target := mustNew(t, m, nil)
	if err := json.Unmarshal([]byte(`{"x": 5, "y": "6"}`), target); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if y, _ := target.Get("y"); y != int64(6) {
		t.Errorf("Get(y) = %v, want 6", y)
	}

	var bare Instance
	if err := json.Unmarshal([]byte(`{}`), &bare); !errors.Is(err, failure.UndefinedModelInstance) {
		t.Errorf("Unmarshal(bare) error = %v, want UndefinedModelInstance", err)
	}

	if err := json.Unmarshal([]byte(`{"x": "nope"}`), target); !errors.Is(err, failure.ValidationFailure) {
		t.Errorf("Unmarshal(bad) error = %v, want ValidationFailure", err)
	}
}
