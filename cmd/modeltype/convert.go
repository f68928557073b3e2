package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/artpar/modeltype/core/collection"
	"github.com/artpar/modeltype/core/formatter"
	"github.com/artpar/modeltype/core/model"
)

var convertCmd = &cobra.Command{
	Use:   "convert MODEL FILE",
	Short: "Import a document into a model and print its export",
	Long: `Import a JSON or YAML document into MODEL and print the exported form:
values are coerced to their attribute types, aliases are resolved,
defaults are filled in and unknown keys are dropped. A document holding a
list converts every element; --where keeps only the elements whose
attributes equal the given values. Use - to read JSON from stdin.

Examples:
  modeltype convert shop.Order order.json
  modeltype convert shop.Order orders.yaml --output yaml
  modeltype convert shop.Order orders.yaml -o table --columns id,status
  modeltype convert shop.Order orders.yaml --where status=open --where qty=2`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

var (
	convertOutput  string
	convertColumns []string
	convertCompact bool
	convertWhere   []string
)

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "json",
		"output format: "+strings.Join(formatter.List(), ", "))
	convertCmd.Flags().StringSliceVar(&convertColumns, "columns", nil, "attributes to include")
	convertCmd.Flags().BoolVar(&convertCompact, "compact", false, "compact JSON output")
	convertCmd.Flags().StringArrayVar(&convertWhere, "where", nil, "keep list elements with attribute=value (repeatable)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	f, ok := formatter.Get(convertOutput)
	if !ok {
		return fmt.Errorf("unknown output format %q (available: %s)",
			convertOutput, strings.Join(formatter.List(), ", "))
	}
	where, err := parseWhere(convertWhere)
	if err != nil {
		return err
	}

	app, err := newApp(cmd, nil)
	if err != nil {
		return err
	}
	if err := loadSchemas(app, true); err != nil {
		return err
	}

	m, err := app.Engine.Get(args[0])
	if err != nil {
		return err
	}

	doc, err := readDocument(cmd.InOrStdin(), args[1])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	opts := formatter.Options{Columns: convertColumns, Compact: convertCompact}

	items, isList := doc.([]any)
	if !isList {
		inst, err := m.New(doc)
		if err != nil {
			return err
		}
		return f.FormatRecord(w, m, inst.ToJSON(), opts)
	}

	instances := make([]any, len(items))
	for i, item := range items {
		inst, err := m.New(item)
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		instances[i] = inst
	}

	c, err := collection.New(m, instances...)
	if err != nil {
		return err
	}
	if len(where) > 0 {
		c = c.FindAll(where)
	}

	records := make([]map[string]any, 0, c.Len())
	c.Each(func(item any, _ int) bool {
		records = append(records, item.(*model.Instance).ToJSON())
		return true
	})
	return f.FormatList(w, m, records, opts)
}

// parseWhere reads attribute=value pairs. Values are JSON literals or
// plain strings, as for validate.
func parseWhere(pairs []string) (collection.Match, error) {
	where := make(collection.Match, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --where %q, want attribute=value", pair)
		}
		where[key] = parseValue(value)
	}
	return where, nil
}

// readDocument decodes path as YAML when its extension says so and as JSON
// otherwise.
func readDocument(stdin io.Reader, path string) (any, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	var doc any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}
