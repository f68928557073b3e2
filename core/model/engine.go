// Package model turns declarative attribute lists into model types whose
// instances validate every value read, written, imported or exported.
//
// An Engine owns a type registry and the models defined on it. Each model is
// also registered as a type, so models can reference one another by name:
//
//	e := model.NewEngine()
//	e.Define("Role", []model.Attribute{model.Attr("name", "text")})
//	user, _ := e.Define("User", []model.Attribute{
//		{Name: "id", Type: "int", Primary: true},
//		{Name: "roles", Type: "Role[]"},
//	})
//	u, _ := user.New(map[string]any{"id": "7", "roles": []any{map[string]any{"name": "admin"}}})
//	u.ToJSON() // {"id": 7, "roles": [{"name": "admin"}]}
//
// Instances are not safe for concurrent use. The engine and its registry
// are.
package model

import (
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/artpar/modeltype/core/failure"
	"github.com/artpar/modeltype/core/schema"
	"github.com/artpar/modeltype/core/types"
	"github.com/artpar/modeltype/ports"
)

// DefaultMaxDepth is the default limit on nested model construction.
const DefaultMaxDepth = 64

// Plugin is called for every model defined after it is registered.
type Plugin func(m *Model, attrs []Attribute)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m ports.Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithMaxDepth limits how deep nested instances may be built from data.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// WithRegistry uses an existing type registry instead of a new one.
func WithRegistry(r *types.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithIDGenerator sets the generator for instance IDs.
func WithIDGenerator(g ports.IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// Engine defines and tracks models.
type Engine struct {
	mu sync.RWMutex

	registry *types.Registry
	models   map[string]*Model
	plugins  []Plugin

	logger   zerolog.Logger
	metrics  ports.Metrics
	ids      ports.IDGenerator
	maxDepth int
}

// NewEngine creates an engine. Without WithRegistry it owns a fresh
// registry whose validations are reported to the metrics sink.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		models:   make(map[string]*Model),
		logger:   zerolog.Nop(),
		metrics:  ports.NopMetrics{},
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = types.New(types.WithValidateHook(func(name string, err error) {
			e.metrics.Validated(name, err)
		}))
	}
	return e
}

// Registry returns the engine's type registry.
func (e *Engine) Registry() *types.Registry {
	return e.registry
}

// MaxDepth returns the nesting limit.
func (e *Engine) MaxDepth() int {
	return e.maxDepth
}

// DefineOption configures a single Define call.
type DefineOption func(*Model)

// WithMethods installs methods on the model.
func WithMethods(methods map[string]Method) DefineOption {
	return func(m *Model) {
		for name, fn := range methods {
			m.pending[name] = fn
		}
	}
}

// WithDescription attaches a description to the model.
func WithDescription(desc string) DefineOption {
	return func(m *Model) {
		m.description = desc
	}
}

// Define creates a model, registers it as a type and runs the plugins.
// A nil or empty attribute list defines a schemaless model.
func (e *Engine) Define(name string, attrs []Attribute, opts ...DefineOption) (*Model, error) {
	td, err := schema.ParseType(name)
	if err != nil {
		return nil, err
	}

	compiled, err := compileAttributes(td.Name, e.registry, attrs)
	if err != nil {
		return nil, err
	}

	m := newModel(e, td.Name, compiled)
	for _, opt := range opts {
		opt(m)
	}
	pending := m.pending
	m.pending = nil
	for methodName, fn := range pending {
		if err := m.AddMethod(methodName, fn); err != nil {
			return nil, err
		}
	}

	if _, err := e.registry.Define(name, modelValidator{m: m}); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.models[td.Name] = m
	plugins := make([]Plugin, len(e.plugins))
	copy(plugins, e.plugins)
	e.mu.Unlock()

	declared := make([]Attribute, len(attrs))
	copy(declared, attrs)
	for _, p := range plugins {
		p(m, declared)
	}

	e.logger.Debug().
		Str("model", td.Name).
		Int("attributes", len(compiled)).
		Strs("primary", m.primary).
		Msg("model defined")
	e.metrics.ModelDefined(td.Name)

	return m, nil
}

// Get returns a defined model.
func (e *Engine) Get(name string) (*Model, error) {
	td, err := schema.ParseType(name)
	if err != nil {
		return nil, unknownModel(name)
	}

	m, ok := e.lookup(td.Name)
	if !ok || td.IsArray {
		return nil, unknownModel(name)
	}
	return m, nil
}

func (e *Engine) lookup(name string) (*Model, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	m, ok := e.models[name]
	return m, ok
}

// IsDefined reports whether v names a defined model. v may be a name, a
// *Model or a reflect.Type. It never fails.
func (e *Engine) IsDefined(v any) bool {
	switch t := v.(type) {
	case *Model:
		if t == nil {
			return false
		}
		m, ok := e.lookup(t.name)
		return ok && m == t
	case string, reflect.Type:
		td, err := schema.ParseType(t)
		if err != nil || td.IsArray {
			return false
		}
		_, ok := e.lookup(td.Name)
		return ok
	}
	return false
}

// Undefine removes a model and its type entry. The returned model is
// stripped: it no longer constructs instances and its existing instances
// refuse to operate.
func (e *Engine) Undefine(name string) (*Model, error) {
	td, err := schema.ParseType(name)
	if err != nil {
		return nil, unknownModel(name)
	}

	e.mu.Lock()
	m, ok := e.models[td.Name]
	if ok {
		delete(e.models, td.Name)
	}
	e.mu.Unlock()

	if !ok {
		return nil, unknownModel(name)
	}

	if _, _, err := e.registry.Undefine(td.Name); err != nil {
		return nil, err
	}
	m.strip()

	e.logger.Debug().Str("model", td.Name).Msg("model undefined")
	e.metrics.ModelUndefined(td.Name)

	return m, nil
}

// PrimaryAttributes returns the primary attribute names of a model in
// declaration order.
func (e *Engine) PrimaryAttributes(name string) ([]string, error) {
	m, err := e.Get(name)
	if err != nil {
		return nil, err
	}
	return m.Primary(), nil
}

// Names returns the defined model names, sorted.
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.models))
	for name := range e.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Use registers a plugin. Registering the same function twice is a no-op.
func (e *Engine) Use(p Plugin) error {
	if p == nil {
		return failure.New(failure.PluginNotAFunction, "Plugin must be a function")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ptr := reflect.ValueOf(p).Pointer()
	for _, existing := range e.plugins {
		if reflect.ValueOf(existing).Pointer() == ptr {
			return nil
		}
	}
	e.plugins = append(e.plugins, p)
	return nil
}

func (e *Engine) newID() string {
	if e.ids != nil {
		return e.ids.New()
	}
	return uuid.NewString()
}

func unknownModel(name string) error {
	return failure.New(failure.UnknownModelName, "Unknown model {model}", failure.F("model", name))
}
