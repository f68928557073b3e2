// Package loader defines models on an engine from YAML definition files.
//
// Defaults given as {expr: ...}, parse and compile hooks and methods are
// expr-lang expressions compiled once when a definition is loaded:
//
//	model: shop.Order
//	attributes:
//	  id:     { type: int, primary: true }
//	  placed: { type: date, default: { expr: "now()" } }
//	  tags:   { type: text, parse: 'split(value, ",")', compile: 'join(value, ",")' }
//	methods:
//	  label: 'upper(status) + " #" + string(id)'
package loader

import (
	"context"
	"fmt"
	"sync"

	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog"

	"github.com/artpar/modeltype/adapters/clock"
	"github.com/artpar/modeltype/core/events"
	"github.com/artpar/modeltype/core/model"
	"github.com/artpar/modeltype/core/schema"
	"github.com/artpar/modeltype/core/types"
	"github.com/artpar/modeltype/ports"
)

// Loader binds model definitions to an engine and remembers what it
// defined so the set can be reloaded.
type Loader struct {
	engine *model.Engine
	exprs  *Expressions
	logger zerolog.Logger
	bus    *events.Bus

	mu      sync.Mutex
	dir     string
	sum     string
	defs    []schema.Definition
	loaded  []string
	pending []events.Event
}

// Option configures a Loader.
type Option func(*options)

type options struct {
	logger zerolog.Logger
	clock  ports.Clock
	bus    *events.Bus
}

// WithLogger sets the loader logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock sets the clock read by now().
func WithClock(c ports.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithEvents publishes model lifecycle events on bus. Events are
// delivered after the loader's lock is released.
func WithEvents(bus *events.Bus) Option {
	return func(o *options) {
		o.bus = bus
	}
}

// New creates a loader for engine.
func New(engine *model.Engine, opts ...Option) *Loader {
	o := options{
		logger: zerolog.Nop(),
		clock:  clock.Real{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Loader{
		engine: engine,
		exprs:  NewExpressions(o.clock),
		logger: o.logger,
		bus:    o.bus,
	}
}

// Expressions returns the loader's expression compiler.
func (l *Loader) Expressions() *Expressions {
	return l.exprs
}

// Loaded returns the names of the models currently defined by the loader.
func (l *Loader) Loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.loaded...)
}

// LoadDir parses every definition under dir and defines them. The
// directory is remembered for Reload.
func (l *Loader) LoadDir(dir string) ([]*model.Model, error) {
	defs, err := schema.ParseDir(dir)
	if err != nil {
		return nil, err
	}

	defer l.flush()
	l.mu.Lock()
	defer l.mu.Unlock()

	models, err := l.load(defs)
	if err != nil {
		return nil, err
	}
	l.dir = dir
	l.sum = schema.Fingerprint(defs)
	return models, nil
}

// Load defines the given models. Every expression is compiled before the
// first model is defined, and models defined by a failing call are
// undefined again, so a failed Load leaves the engine as it was.
func (l *Loader) Load(defs []schema.Definition) ([]*model.Model, error) {
	defer l.flush()
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(defs)
}

// Reload undefines the models from the last load and loads the directory
// again. If the new definitions cannot be loaded the previous ones are
// restored and the error is returned. When no file in the directory has
// changed the current models are returned as they are.
func (l *Loader) Reload() ([]*model.Model, error) {
	defer l.flush()
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.dir == "" {
		return nil, fmt.Errorf("reload: no directory loaded")
	}

	defs, err := schema.ParseDir(l.dir)
	if err != nil {
		return nil, l.failed(fmt.Errorf("reload: %w", err))
	}

	sum := schema.Fingerprint(defs)
	if sum == l.sum {
		l.logger.Debug().Str("dir", l.dir).Msg("definitions unchanged")
		return l.current(), nil
	}

	previous := l.defs
	l.unload()
	l.exprs.ClearCache()

	models, err := l.load(defs)
	if err != nil {
		if _, rerr := l.load(previous); rerr != nil {
			l.sum = ""
			l.logger.Error().Err(rerr).Msg("failed to restore previous models")
		}
		return nil, l.failed(fmt.Errorf("reload: %w", err))
	}
	l.sum = sum
	l.emit(events.Event{
		Name: events.SchemasReloaded,
		Data: map[string]any{"dir": l.dir, "models": len(models)},
	})

	l.logger.Info().
		Str("dir", l.dir).
		Int("models", len(models)).
		Msg("models reloaded")

	return models, nil
}

func (l *Loader) load(defs []schema.Definition) ([]*model.Model, error) {
	type pending struct {
		def   schema.Definition
		attrs []model.Attribute
		opts  []model.DefineOption
	}

	compiled := make([]pending, 0, len(defs))
	for _, def := range defs {
		attrs, opts, err := l.compile(def)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", def.Name, err)
		}
		compiled = append(compiled, pending{def, attrs, opts})
	}

	models := make([]*model.Model, 0, len(compiled))
	for _, p := range compiled {
		m, err := l.engine.Define(p.def.Name, p.attrs, p.opts...)
		if err != nil {
			for _, done := range models {
				l.engine.Undefine(done.Name())
			}
			if p.def.Source != "" {
				return nil, fmt.Errorf("%s: %w", p.def.Source, err)
			}
			return nil, err
		}
		models = append(models, m)

		l.logger.Debug().
			Str("model", m.Name()).
			Str("source", p.def.Source).
			Msg("model loaded")
	}

	for i, m := range models {
		l.loaded = append(l.loaded, m.Name())
		l.emit(events.Event{
			Name:  events.ModelDefined,
			Model: m.Name(),
			Data:  map[string]any{"source": compiled[i].def.Source},
		})
	}
	l.defs = append(l.defs, defs...)
	return models, nil
}

func (l *Loader) failed(err error) error {
	l.emit(events.Event{Name: events.SchemasFailed, Err: err, Data: map[string]any{"dir": l.dir}})
	return err
}

// emit queues an event; callers hold l.mu.
func (l *Loader) emit(e events.Event) {
	if l.bus != nil {
		l.pending = append(l.pending, e)
	}
}

// flush publishes queued events. It runs after l.mu is released so that
// handlers can call back into the loader.
func (l *Loader) flush() {
	l.mu.Lock()
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, e := range pending {
		l.bus.Publish(context.Background(), e)
	}
}

func (l *Loader) current() []*model.Model {
	models := make([]*model.Model, 0, len(l.loaded))
	for _, name := range l.loaded {
		if m, err := l.engine.Get(name); err == nil {
			models = append(models, m)
		}
	}
	return models
}

func (l *Loader) unload() {
	for _, name := range l.loaded {
		if _, err := l.engine.Undefine(name); err != nil {
			l.logger.Warn().Err(err).Str("model", name).Msg("model already undefined")
			continue
		}
		l.emit(events.Event{Name: events.ModelUndefined, Model: name})
	}
	l.loaded = nil
	l.defs = nil
}

// compile converts a definition into engine attributes, compiling its
// expressions.
func (l *Loader) compile(def schema.Definition) ([]model.Attribute, []model.DefineOption, error) {
	attrs := make([]model.Attribute, 0, len(def.Attributes))
	for _, sa := range def.Attributes {
		a, err := l.attribute(sa)
		if err != nil {
			return nil, nil, fmt.Errorf("attribute %q: %w", sa.Name, err)
		}
		attrs = append(attrs, a)
	}

	var opts []model.DefineOption
	if def.Meta.Description != "" {
		opts = append(opts, model.WithDescription(def.Meta.Description))
	}

	if len(def.Methods) > 0 {
		methods := make(map[string]model.Method, len(def.Methods))
		for name, src := range def.Methods {
			program, err := l.exprs.Compile(src)
			if err != nil {
				return nil, nil, fmt.Errorf("method %q: %w", name, err)
			}
			methods[name] = method(program)
		}
		opts = append(opts, model.WithMethods(methods))
	}

	return attrs, opts, nil
}

func (l *Loader) attribute(sa schema.Attribute) (model.Attribute, error) {
	a := model.Attribute{
		Name:     sa.Name,
		Type:     sa.Type,
		Primary:  sa.Primary,
		Alias:    sa.Alias,
		Required: sa.Required,
		NotNull:  sa.NotNull,
	}

	switch {
	case sa.Default.IsExpr():
		program, err := l.exprs.Compile(sa.Default.Expr)
		if err != nil {
			return a, fmt.Errorf("default: %w", err)
		}
		a.Default = func() (any, error) {
			return run(program, nil)
		}
	case sa.Default != nil:
		a.Default = sa.Default.Value
	}

	if sa.Parse != "" {
		program, err := l.exprs.Compile(sa.Parse)
		if err != nil {
			return a, fmt.Errorf("parse: %w", err)
		}
		a.Parse = hook(program)
	}
	if sa.Compile != "" {
		program, err := l.exprs.Compile(sa.Compile)
		if err != nil {
			return a, fmt.Errorf("compile: %w", err)
		}
		a.Compile = hook(program)
	}

	return a, nil
}

// hook runs program with the attribute value bound to "value". Undefined
// values are passed through so that unsetting an attribute stays possible.
func hook(program *vm.Program) model.Hook {
	return func(v any) (any, error) {
		if types.IsUndefined(v) {
			return v, nil
		}
		return run(program, map[string]any{"value": v})
	}
}

// method runs program with the instance's exported attributes as
// variables, plus self, args and _id. An attribute named self or args is
// still reachable as self.<name>.
func method(program *vm.Program) model.Method {
	return func(inst *model.Instance, args ...any) (any, error) {
		self := inst.ToJSON()
		env := make(map[string]any, len(self)+3)
		for k, v := range self {
			env[k] = v
		}
		if args == nil {
			args = []any{}
		}
		env["self"] = self
		env["args"] = args
		env["_id"] = inst.ID()
		return run(program, env)
	}
}
