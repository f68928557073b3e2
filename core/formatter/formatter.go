// Package formatter renders exported instances for the command line.
// Formatters are registered by name and take the model the records were
// exported from, so tabular output can follow attribute order.
package formatter

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/artpar/modeltype/core/model"
)

// Formatter writes exported records in one output format.
type Formatter interface {
	// Name returns the formatter name ("json", "yaml", "table").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// FormatList formats a list of records exported from m.
	FormatList(w io.Writer, m *model.Model, records []map[string]any, opts Options) error

	// FormatRecord formats a single record exported from m.
	FormatRecord(w io.Writer, m *model.Model, record map[string]any, opts Options) error

	// FormatError formats an error.
	FormatError(w io.Writer, err error) error
}

// Options configures formatting.
type Options struct {
	// Columns selects the attributes to include (nil = all).
	Columns []string

	// NoHeader disables the header row of tabular formats.
	NoHeader bool

	// Compact minimizes whitespace (json).
	Compact bool

	// MaxWidth truncates long table cells (0 = no limit).
	MaxWidth int
}

// Columns returns the columns to render: the requested ones, else the
// model's attributes in declaration order. Schemaless models have no
// declared attributes, so the keys found in records are used, sorted.
func Columns(m *model.Model, records []map[string]any, requested []string) []string {
	if len(requested) > 0 {
		return requested
	}

	if m != nil && !m.IsSchemaless() {
		attrs := m.Attributes()
		columns := make([]string, len(attrs))
		for i, a := range attrs {
			columns[i] = a.Name
		}
		return columns
	}

	seen := make(map[string]bool)
	var columns []string
	for _, record := range records {
		for k := range record {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)
	return columns
}

// project keeps only the requested columns of record.
func project(record map[string]any, columns []string) map[string]any {
	if record == nil || len(columns) == 0 {
		return record
	}
	out := make(map[string]any, len(columns))
	for _, col := range columns {
		if v, ok := record[col]; ok {
			out[col] = v
		}
	}
	return out
}

func projectAll(records []map[string]any, columns []string) []map[string]any {
	out := make([]map[string]any, len(records))
	for i, record := range records {
		out[i] = project(record, columns)
	}
	return out
}

func modelName(m *model.Model) string {
	if m == nil {
		return ""
	}
	return m.Name()
}

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	defaultFmt string
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
		defaultFmt: "json",
	}
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}

	r.formatters[f.Name()] = f
	return nil
}

// Get returns a formatter by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[name]
	return f, ok
}

// Default returns the default formatter, or nil if none is registered.
func (r *Registry) Default() Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.formatters[r.defaultFmt]; ok {
		return f
	}
	return nil
}

// SetDefault sets the default formatter.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[name]; !exists {
		return fmt.Errorf("formatter %q not registered", name)
	}

	r.defaultFmt = name
	return nil
}

// List returns the registered formatter names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the built-in formatters.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(f Formatter) error {
	return DefaultRegistry.Register(f)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// Default returns the default formatter from the default registry.
func Default() Formatter {
	return DefaultRegistry.Default()
}

// List returns all formatter names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}
