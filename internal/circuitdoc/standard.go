package circuitdoc

import (
	"fmt"

	"github.com/rakunlabs/gatevm/internal/vm"
	"github.com/rakunlabs/gatevm/internal/vm/library"
)

// NewStandardRegistry builds a Registry with every internal/vm/library gate
// pre-registered under its document type name, plus the "script" kind
// (see script.go). Registration happens explicitly here, rather than via
// package-level init() side effects, so more than one registry variant
// can be assembled in the same process.
func NewStandardRegistry() *Registry {
	r := NewRegistry()

	r.Register("noop", func(id string, params map[string]any) (vm.GateSpec, error) {
		return library.NewNOOP()
	})
	r.Register("constant", func(id string, params map[string]any) (vm.GateSpec, error) {
		return library.NewConstant(params["value"])
	})
	r.Register("distribute", func(id string, params map[string]any) (vm.GateSpec, error) {
		n, err := paramInt(params, "n", 2)
		if err != nil {
			return nil, err
		}
		return library.NewDistribute(n)
	})
	r.Register("bottleneck", func(id string, params map[string]any) (vm.GateSpec, error) {
		n, err := paramInt(params, "n", 2)
		if err != nil {
			return nil, err
		}
		return library.NewBottleneck(n)
	})
	r.Register("either_once", func(id string, params map[string]any) (vm.GateSpec, error) {
		n, err := paramInt(params, "n", 2)
		if err != nil {
			return nil, err
		}
		return library.NewEitherOnce(n)
	})
	r.Register("sequence", func(id string, params map[string]any) (vm.GateSpec, error) {
		n, err := paramInt(params, "n", 2)
		if err != nil {
			return nil, err
		}
		return library.NewSequence(n)
	})
	r.Register("if_then_else", func(id string, params map[string]any) (vm.GateSpec, error) {
		return library.NewIfThenElse()
	})
	r.Register("explode", func(id string, params map[string]any) (vm.GateSpec, error) {
		n, err := paramInt(params, "n", 2)
		if err != nil {
			return nil, err
		}
		return library.NewExplode(n)
	})
	r.Register("join", func(id string, params map[string]any) (vm.GateSpec, error) {
		n, err := paramInt(params, "n", 2)
		if err != nil {
			return nil, err
		}
		return library.NewJoin(n)
	})
	r.Register("environment", func(id string, params map[string]any) (vm.GateSpec, error) {
		initial, _ := params["initial"].(map[string]any)
		return library.NewEnvironment(initial)
	})
	r.Register("abstract_agent", func(id string, params map[string]any) (vm.GateSpec, error) {
		maxCycles, err := paramInt(params, "max_cycles", 64)
		if err != nil {
			return nil, err
		}
		return library.NewAbstractAgent(maxCycles)
	})

	for name, ctor := range map[string]func() (*vm.CommonGateSpec, error){
		"add": library.NewAdd, "sub": library.NewSub, "mul": library.NewMul,
		"div": library.NewDiv, "eq": library.NewEq, "lt": library.NewLt,
		"gt": library.NewGt, "lte": library.NewLte, "gte": library.NewGte,
	} {
		ctor := ctor
		r.Register(name, func(id string, params map[string]any) (vm.GateSpec, error) {
			return ctor()
		})
	}

	r.Register("script", func(id string, params map[string]any) (vm.GateSpec, error) {
		code, _ := params["code"].(string)
		if code == "" {
			return nil, fmt.Errorf("circuitdoc: script node %q requires a \"code\" param", id)
		}
		argNames, err := paramStringSlice(params, "args")
		if err != nil {
			return nil, err
		}
		return NewScriptGate(id, code, argNames)
	})

	return r
}

// paramInt reads an integer-shaped param, tolerating the int/float64 split
// the YAML decoder produces depending on how the number was written.
func paramInt(params map[string]any, key string, def int) (int, error) {
	v, ok := params[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("circuitdoc: param %q must be a number, got %T", key, v)
	}
}

// paramStringSlice reads a []string-shaped param, tolerating the []any the
// YAML decoder produces for list nodes.
func paramStringSlice(params map[string]any, key string) ([]string, error) {
	v, ok := params[key]
	if !ok {
		return nil, nil
	}
	switch vs := v.(type) {
	case []string:
		return vs, nil
	case []any:
		out := make([]string, len(vs))
		for i, e := range vs {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("circuitdoc: param %q element %d must be a string, got %T", key, i, e)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("circuitdoc: param %q must be a string list, got %T", key, v)
	}
}
