package circuitdoc

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"

	"github.com/rakunlabs/gatevm/internal/vm"
)

// NewScriptGate builds a FunctionWrapper gate whose pure function body is
// a goja JavaScript expression rather than a compiled Go closure — the
// natural way a circuit document (data, not code) expresses a one-off
// pure computation. The runtime only exposes pure, non-blocking helpers:
// a gate's produce must run synchronously to completion and must not
// block on an external event, so no networking helper is registered.
func NewScriptGate(id, code string, argNames []string) (*vm.CommonGateSpec, error) {
	if len(argNames) == 0 {
		argNames = []string{"in"}
	}
	program, err := goja.Compile(id, "(function(){"+code+"})()", true)
	if err != nil {
		return nil, fmt.Errorf("circuitdoc: script %q: compile: %w", id, err)
	}

	return vm.NewFunctionGate("script:"+id, argNames, func(args []any) (any, error) {
		rt := goja.New()
		if err := registerScriptHelpers(rt); err != nil {
			return nil, fmt.Errorf("script %q: %w", id, err)
		}
		for i, name := range argNames {
			if err := rt.Set(name, args[i]); err != nil {
				return nil, fmt.Errorf("script %q: set %q: %w", id, name, err)
			}
		}
		val, err := rt.RunProgram(program)
		if err != nil {
			return nil, fmt.Errorf("script %q: %w", id, err)
		}
		return val.Export(), nil
	})
}

// registerScriptHelpers wires a small pure, non-blocking helper surface:
// toString, jsonParse, btoa, atob. No networking helper is registered.
func registerScriptHelpers(rt *goja.Runtime) error {
	if err := rt.Set("toString", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return rt.ToValue("")
		}
		switch val := call.Arguments[0].Export().(type) {
		case []byte:
			return rt.ToValue(string(val))
		case string:
			return rt.ToValue(val)
		default:
			return rt.ToValue(fmt.Sprintf("%v", val))
		}
	}); err != nil {
		return err
	}

	if err := rt.Set("jsonParse", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Null()
		}
		var raw []byte
		switch val := call.Arguments[0].Export().(type) {
		case []byte:
			raw = val
		case string:
			raw = []byte(val)
		default:
			panic(rt.NewTypeError("jsonParse: expected string or bytes"))
		}
		var parsed any
		if err := json.Unmarshal(raw, &parsed); err != nil {
			panic(rt.NewTypeError("jsonParse: " + err.Error()))
		}
		return rt.ToValue(parsed)
	}); err != nil {
		return err
	}

	if err := rt.Set("btoa", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return rt.ToValue("")
		}
		var raw []byte
		switch val := call.Arguments[0].Export().(type) {
		case []byte:
			raw = val
		case string:
			raw = []byte(val)
		default:
			panic(rt.NewTypeError("btoa: expected string or bytes"))
		}
		return rt.ToValue(base64.StdEncoding.EncodeToString(raw))
	}); err != nil {
		return err
	}

	return rt.Set("atob", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return rt.ToValue([]byte{})
		}
		decoded, err := base64.StdEncoding.DecodeString(call.Arguments[0].String())
		if err != nil {
			panic(rt.NewTypeError("atob: " + err.Error()))
		}
		return rt.ToValue(decoded)
	})
}
