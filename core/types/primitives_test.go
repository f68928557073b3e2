package types

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/artpar/modeltype/core/failure"
)

func TestInteger(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    any
		wantErr bool
	}{
		{"int", 42, int64(42), false},
		{"int64", int64(-7), int64(-7), false},
		{"uint8", uint8(3), int64(3), false},
		{"max int64", int64(math.MaxInt64), int64(math.MaxInt64), false},
		{"min int64", int64(math.MinInt64), int64(math.MinInt64), false},
		{"beyond float precision", int64(1<<53 + 1), int64(1<<53 + 1), false},
		{"large uint64", uint64(1<<62 + 1), int64(1<<62 + 1), false},
		{"uint64 overflow", uint64(math.MaxUint64), nil, true},
		{"exact numeric string", "9007199254740993", int64(9007199254740993), false},
		{"exact json number", json.Number("-9007199254740993"), int64(-9007199254740993), false},
		{"integral float", 3.0, int64(3), false},
		{"numeric string", "42", int64(42), false},
		{"string prefix", "42px", int64(42), false},
		{"exponent string", "1e3", int64(1000), false},
		{"json number", json.Number("12"), int64(12), false},
		{"infinity", math.Inf(1), math.Inf(1), false},
		{"infinity string", "-Infinity", math.Inf(-1), false},
		{"fraction", 1.5, nil, true},
		{"fraction string", "1.5", nil, true},
		{"nan", math.NaN(), nil, true},
		{"text", "abc", nil, true},
		{"empty string", "", nil, true},
		{"bool", true, nil, true},
		{"out of range", 1e19, nil, true},
		{"map", map[string]any{}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Integer.Validate(tt.input)
			if tt.wantErr {
				if !errors.Is(err, failure.ValidationFailure) {
					t.Fatalf("Validate(%v) error = %v, want ValidationFailure", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate(%v) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Validate(%v) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNumber(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    float64
		wantErr bool
	}{
		{"float", 1.25, 1.25, false},
		{"int", 2, 2, false},
		{"string", " 3.5 ", 3.5, false},
		{"leading dot", ".5", 0.5, false},
		{"prefix", "7.25kg", 7.25, false},
		{"infinity", "Infinity", math.Inf(1), false},
		{"nan", math.NaN(), 0, true},
		{"text", "abc", 0, true},
		{"bool", false, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Number.Validate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate(%v) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate(%v) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Validate(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    string
		wantErr bool
	}{
		{"string", "hello", "hello", false},
		{"int", 42, "42", false},
		{"float", 1.5, "1.5", false},
		{"integral float", 3.0, "3", false},
		{"large", 1e21, "1e+21", false},
		{"small", 1.5e-7, "1.5e-7", false},
		{"negative", -0.25, "-0.25", false},
		{"bool", true, "", true},
		{"slice", []any{"a"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := String.Validate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate(%v) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate(%v) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Validate(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBoolean(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    bool
		wantErr bool
	}{
		{"true", true, true, false},
		{"false", false, false, false},
		{"one", 1, true, false},
		{"zero", 0, false, false},
		{"negative float", -0.5, true, false},
		{"nan", math.NaN(), false, false},
		{"TRUE", "TRUE", true, false},
		{"string one", "1", true, false},
		{"False", "False", false, false},
		{"string zero", "0", false, false},
		{"yes", "yes", false, true},
		{"map", map[string]any{}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Boolean.Validate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate(%v) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate(%v) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Validate(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDate(t *testing.T) {
	epoch := time.UnixMilli(1700000000000).UTC()

	tests := []struct {
		name    string
		input   any
		want    time.Time
		wantErr bool
	}{
		{"millis", int64(1700000000000), epoch, false},
		{"float millis", 1700000000000.0, epoch, false},
		{"numeric string", "1700000000000", epoch, false},
		{"exponent string", "1.5e3", time.UnixMilli(1).UTC(), false},
		{"huge exponent string", "1e300", time.UnixMilli(1).UTC(), false},
		{"max millis", 8.64e15, time.UnixMilli(8_640_000_000_000_000).UTC(), false},
		{"min millis", int64(-8_640_000_000_000_000), time.UnixMilli(-8_640_000_000_000_000).UTC(), false},
		{"rfc3339", "2023-11-14T22:13:20Z", epoch, false},
		{"rfc3339 millis", "2023-11-14T22:13:20.000Z", epoch, false},
		{"offset", "2023-11-14T23:13:20+01:00", epoch, false},
		{"date only", "2023-11-14", time.Date(2023, 11, 14, 0, 0, 0, 0, time.UTC), false},
		{"long form", "November 14, 2023", time.Date(2023, 11, 14, 0, 0, 0, 0, time.UTC), false},
		{"time", epoch.In(time.FixedZone("X", 3600)), epoch, false},
		{"garbage", "not a date", time.Time{}, true},
		{"nan", math.NaN(), time.Time{}, true},
		{"infinity", math.Inf(1), time.Time{}, true},
		{"bool", true, time.Time{}, true},
		{"huge millis", 1e300, time.Time{}, true},
		{"past max millis", int64(8_640_000_000_000_001), time.Time{}, true},
		{"past min millis", -8.64e15 - 1, time.Time{}, true},
		{"past max string", "9000000000000000", time.Time{}, true},
		{"infinity string", "Infinity", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Date.Validate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate(%v) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate(%v) unexpected error: %v", tt.input, err)
			}
			d, ok := got.(time.Time)
			if !ok {
				t.Fatalf("Validate(%v) = %T, want time.Time", tt.input, got)
			}
			if !d.Equal(tt.want) || d.Location() != time.UTC {
				t.Errorf("Validate(%v) = %v, want %v", tt.input, d, tt.want)
			}
		})
	}
}

func TestArrayAndObject(t *testing.T) {
	if _, err := Array.Validate([]int{1, 2}); err != nil {
		t.Errorf("Array.Validate([]int) error = %v", err)
	}
	if _, err := Array.Validate("a"); err == nil {
		t.Error("Array.Validate(string) error = nil, want error")
	}

	if _, err := Object.Validate(map[string]any{"a": 1}); err != nil {
		t.Errorf("Object.Validate(map) error = %v", err)
	}
	if _, err := Object.Validate([]any{}); err == nil {
		t.Error("Object.Validate(slice) error = nil, want error")
	}
	if _, err := Object.Validate(map[int]any{}); err == nil {
		t.Error("Object.Validate(map[int]) error = nil, want error")
	}
	if _, err := Object.Validate(struct{}{}); err == nil {
		t.Error("Object.Validate(struct) error = nil, want error")
	}
}

func TestPrimitivesPassAbsent(t *testing.T) {
	for _, name := range PrimitiveNames() {
		k, _ := PrimitiveKind(name)
		for _, v := range []any{nil, Undefined} {
			got, err := k.Validate(v)
			if err != nil || got != v {
				t.Errorf("%s.Validate(%v) = %v, %v", name, v, got, err)
			}
		}
	}
}

func TestPrimitivesIdempotent(t *testing.T) {
	tests := []struct {
		kind   Kind
		inputs []any
	}{
		{Integer, []any{42, int64(math.MaxInt64), uint64(1<<62 + 1), 3.0, "42px", "1e3", "9007199254740993", json.Number("12"), math.Inf(-1)}},
		{Number, []any{1.5, 7, int64(1<<53 + 1), "2.5kg", json.Number("3"), math.Inf(1)}},
		{String, []any{"hello", 42, 1.5, 1e21, json.Number("7")}},
		{Boolean, []any{true, false, 1, 0.0, "TRUE", "0"}},
		{Date, []any{int64(1700000000000), 8.64e15, "1700000000000", "1.5e3", "2023-11-14T23:13:20+01:00", "November 14, 2023", time.Now()}},
		{Array, []any{[]any{"a", 1}, []int{1, 2}}},
		{Object, []any{map[string]any{"a": 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			for _, in := range tt.inputs {
				once, err := tt.kind.Validate(in)
				if err != nil {
					t.Fatalf("Validate(%v) unexpected error: %v", in, err)
				}
				twice, err := tt.kind.Validate(once)
				if err != nil {
					t.Fatalf("Validate(%v) unexpected error: %v", once, err)
				}
				if d, ok := once.(time.Time); ok {
					if !d.Equal(twice.(time.Time)) {
						t.Errorf("Validate(%v) = %v, want %v", once, twice, once)
					}
					continue
				}
				if !reflect.DeepEqual(once, twice) {
					t.Errorf("Validate(%v) = %#v, want %#v", once, twice, once)
				}
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{1, "1"},
		{-12.5, "-12.5"},
		{123456789012, "123456789012"},
		{1e21, "1e+21"},
		{1e-7, "1e-7"},
		{0.000001, "0.000001"},
		{math.Inf(-1), "-Infinity"},
	}

	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
