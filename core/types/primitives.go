package types

import (
	"encoding/json"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/modeltype/core/failure"
)

// Kind enumerates the primitive types. Each Kind is its own Validator.
type Kind int

const (
	Integer Kind = iota + 1
	Number
	String
	Boolean
	Date
	Array
	Object
)

var kindNames = map[Kind]string{
	Integer: "integer",
	Number:  "number",
	String:  "string",
	Boolean: "boolean",
	Date:    "date",
	Array:   "array",
	Object:  "object",
}

// primitives maps every primitive name, including aliases, to its Kind.
var primitives = map[string]Kind{
	"int":     Integer,
	"integer": Integer,
	"number":  Number,
	"float":   Number,
	"string":  String,
	"text":    String,
	"boolean": Boolean,
	"bool":    Boolean,
	"date":    Date,
	"array":   Array,
	"object":  Object,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// PrimitiveKind returns the Kind for a lower-cased primitive name.
func PrimitiveKind(name string) (Kind, bool) {
	k, ok := primitives[name]
	return k, ok
}

// PrimitiveNames returns all primitive names, aliases included, sorted.
func PrimitiveNames() []string {
	names := make([]string, 0, len(primitives))
	for name := range primitives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks and coerces v for the primitive kind.
func (k Kind) Validate(v any) (any, error) {
	if IsAbsent(v) {
		return v, nil
	}
	switch k {
	case Integer:
		return validateInteger(v)
	case Number:
		return validateNumber(v)
	case String:
		return validateString(v)
	case Boolean:
		return validateBoolean(v)
	case Date:
		return validateDate(v)
	case Array:
		return validateArray(v)
	case Object:
		return validateObject(v)
	}
	return nil, failure.New(failure.UnknownType, "Unknown type {type}", failure.F("type", k.String()))
}

func invalid(label string, v any) error {
	return failure.New(failure.ValidationFailure, "Invalid "+label+" : {value}", failure.F("value", v))
}

func validateInteger(v any) (any, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u := rv.Uint(); u <= math.MaxInt64 {
			return int64(u), nil
		}
		return nil, invalid("integer", v)
	}

	// plain decimal text is read exactly, beyond float64 precision
	if s, ok := numericText(v); ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return n, nil
		}
	}

	f, ok := toFloat(v, true)
	if !ok || math.IsNaN(f) {
		return nil, invalid("integer", v)
	}
	if math.IsInf(f, 0) {
		return f, nil
	}
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, invalid("integer", v)
	}
	return int64(f), nil
}

func validateNumber(v any) (any, error) {
	f, ok := toFloat(v, true)
	if !ok || math.IsNaN(f) {
		return nil, invalid("number", v)
	}
	return f, nil
}

func validateString(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return FormatNumber(rv.Float()), nil
	}
	return nil, invalid("string", v)
}

func validateBoolean(v any) (any, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	if s, ok := v.(string); ok {
		switch strings.ToLower(s) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return nil, invalid("boolean", v)
	}
	if f, ok := toFloat(v, false); ok {
		return f != 0 && !math.IsNaN(f), nil
	}
	return nil, invalid("boolean", v)
}

func validateDate(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return t.UTC(), nil
	case string:
		if d, ok := parseDate(t); ok {
			return d, nil
		}
		return nil, invalid("date", v)
	}
	f, ok := toFloat(v, false)
	if !ok || math.IsNaN(f) || math.Abs(f) > maxDateMillis {
		return nil, invalid("date", v)
	}
	return time.UnixMilli(int64(f)).UTC(), nil
}

// maxDateMillis bounds epoch milliseconds to ±100,000,000 days.
const maxDateMillis = 8.64e15

func numericText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	}
	return "", false
}

func validateArray(v any) (any, error) {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return v, nil
	}
	return nil, invalid("array", v)
}

func validateObject(v any) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		return v, nil
	}
	return nil, invalid("object", v)
}

// toFloat converts a Go number to float64. When parseStrings is set,
// strings are read like a float prefix ("12px" is 12, "abc" is NaN).
func toFloat(v any, parseStrings bool) (float64, bool) {
	switch t := v.(type) {
	case string:
		if !parseStrings {
			return 0, false
		}
		return ParseFloatPrefix(t), true
	case json.Number:
		return ParseFloatPrefix(t.String()), true
	case bool:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

var floatPrefixRe = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)

// ParseFloatPrefix parses the longest numeric prefix of s after leading
// whitespace. It returns NaN when s does not start with a number.
func ParseFloatPrefix(s string) float64 {
	m := floatPrefixRe.FindString(strings.TrimSpace(s))
	if m == "" {
		return math.NaN()
	}
	switch m {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	// out of range prefixes come back as ±Inf
	f, _ := strconv.ParseFloat(m, 64)
	return f
}

// FormatNumber formats a float the way it is written in JSON documents:
// integral values without a fraction, exponents without zero padding.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		exp = strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + exp
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
	"2006/01/02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	time.UnixDate,
	"Mon Jan 2 2006 15:04:05 GMT-0700",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

var intPrefixRe = regexp.MustCompile(`^[+-]?\d+`)

// parseDate reads a numeric string as epoch milliseconds and anything else
// against dateLayouts. Only the leading integer of a numeric string counts,
// so "1.5e3" is 1 ms. Layouts without a zone are read as UTC.
func parseDate(s string) (time.Time, bool) {
	trimmed := strings.TrimSpace(s)
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		n, err := strconv.ParseInt(intPrefixRe.FindString(trimmed), 10, 64)
		if err != nil || n > maxDateMillis || n < -maxDateMillis {
			return time.Time{}, false
		}
		return time.UnixMilli(n).UTC(), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
