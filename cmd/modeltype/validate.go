package main

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/modeltype/core/model"
	"github.com/artpar/modeltype/core/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate TYPE VALUE",
	Short: "Validate a value against a type",
	Long: `Validate a JSON value against a primitive type, a model or an array of
either. Values that are not valid JSON are read as plain strings. Models
are loaded from the schema directory when it exists.

Examples:
  modeltype validate int '"42"'
  modeltype validate date 1700000000000
  modeltype validate 'int[]' '[1, "2", 3]'
  modeltype validate shop.Order '{"id": 7}'`,
	Args: cobra.ExactArgs(2),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd, nil)
	if err != nil {
		return err
	}
	if err := loadSchemas(app, false); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	result, err := validateValue(app.Engine, args[0], parseValue(args[1]))
	if err != nil {
		fmt.Fprintf(out, "%s %v\n", crossMark, err)
		return fmt.Errorf("value is not a valid %s", args[0])
	}

	b, err := json.Marshal(display(result))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s\n", checkMark, b)
	return nil
}

// validateValue validates v against typeName. Values for models are built
// into instances first.
func validateValue(e *model.Engine, typeName string, v any) (any, error) {
	td, err := schema.ParseType(typeName)
	if err != nil {
		return nil, err
	}

	m, err := e.Get(td.Name)
	if err != nil {
		return e.Registry().Validate(typeName, v)
	}

	if !td.IsArray {
		return m.New(v)
	}

	items, ok := v.([]any)
	if !ok {
		return e.Registry().Validate(typeName, v)
	}
	built := make([]any, len(items))
	for i, item := range items {
		if item == nil {
			continue
		}
		inst, err := m.New(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		built[i] = inst
	}
	return built, nil
}

// parseValue reads a JSON literal, or the raw text when it is not JSON.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

// display converts validated values into JSON-friendly data.
func display(v any) any {
	switch t := v.(type) {
	case *model.Instance:
		return t.ToJSON()
	case time.Time:
		return t.UTC().Format(model.DateFormat)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = display(item)
		}
		return out
	}

	// other slices, for example from an array validator
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = display(rv.Index(i).Interface())
		}
		return out
	}
	return v
}
