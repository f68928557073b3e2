package loader

import (
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/artpar/modeltype/ports"
)

// Expressions compiles and caches the expressions used by model
// definitions. Programs are compiled without a typed environment: the
// variables an expression sees depend on where it runs.
//
//	default:  (no variables)
//	parse:    value
//	compile:  value
//	methods:  self, args, _id and every exported attribute
type Expressions struct {
	cache   map[string]*vm.Program
	cacheMu sync.RWMutex

	options []expr.Option
}

// NewExpressions creates an expression compiler whose now() reads clock.
func NewExpressions(clock ports.Clock) *Expressions {
	return &Expressions{
		cache: make(map[string]*vm.Program),
		options: []expr.Option{
			expr.Function("now", func(params ...any) (any, error) {
				if len(params) != 0 {
					return nil, fmt.Errorf("now takes no arguments")
				}
				return clock.Now(), nil
			}),
			expr.Function("lower", func(params ...any) (any, error) {
				if len(params) != 1 {
					return nil, fmt.Errorf("lower requires 1 argument")
				}
				return strings.ToLower(toString(params[0])), nil
			}),
			expr.Function("upper", func(params ...any) (any, error) {
				if len(params) != 1 {
					return nil, fmt.Errorf("upper requires 1 argument")
				}
				return strings.ToUpper(toString(params[0])), nil
			}),
			expr.Function("trim", func(params ...any) (any, error) {
				if len(params) != 1 {
					return nil, fmt.Errorf("trim requires 1 argument")
				}
				return strings.TrimSpace(toString(params[0])), nil
			}),
			expr.Function("split", func(params ...any) (any, error) {
				if len(params) != 2 {
					return nil, fmt.Errorf("split requires 2 arguments")
				}
				if params[0] == nil {
					return nil, nil
				}
				parts := strings.Split(toString(params[0]), toString(params[1]))
				out := make([]any, len(parts))
				for i, p := range parts {
					out[i] = p
				}
				return out, nil
			}),
			expr.Function("join", func(params ...any) (any, error) {
				if len(params) != 2 {
					return nil, fmt.Errorf("join requires 2 arguments")
				}
				switch arr := params[0].(type) {
				case nil:
					return nil, nil
				case string:
					return arr, nil
				case []string:
					return strings.Join(arr, toString(params[1])), nil
				case []any:
					parts := make([]string, len(arr))
					for i, v := range arr {
						parts[i] = toString(v)
					}
					return strings.Join(parts, toString(params[1])), nil
				}
				return nil, fmt.Errorf("join first argument must be array")
			}),
			expr.Function("coalesce", func(params ...any) (any, error) {
				for _, p := range params {
					if p != nil && p != "" {
						return p, nil
					}
				}
				return nil, nil
			}),
		},
	}
}

// Compile returns the cached program for expression, compiling it on first
// use.
func (x *Expressions) Compile(expression string) (*vm.Program, error) {
	x.cacheMu.RLock()
	program, ok := x.cache[expression]
	x.cacheMu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := expr.Compile(expression, x.options...)
	if err != nil {
		return nil, err
	}

	x.cacheMu.Lock()
	x.cache[expression] = program
	x.cacheMu.Unlock()

	return program, nil
}

// Eval compiles and runs expression against env.
func (x *Expressions) Eval(expression string, env map[string]any) (any, error) {
	program, err := x.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}
	return run(program, env)
}

// Len reports how many programs are cached.
func (x *Expressions) Len() int {
	x.cacheMu.RLock()
	defer x.cacheMu.RUnlock()
	return len(x.cache)
}

// ClearCache drops every compiled program.
func (x *Expressions) ClearCache() {
	x.cacheMu.Lock()
	x.cache = make(map[string]*vm.Program)
	x.cacheMu.Unlock()
}

func run(program *vm.Program, env map[string]any) (any, error) {
	if env == nil {
		env = map[string]any{}
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("run expression: %w", err)
	}
	return result, nil
}

func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
