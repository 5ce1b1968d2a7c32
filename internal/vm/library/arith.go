package library

import (
	"fmt"

	"github.com/rakunlabs/gatevm/internal/vm"
)

// Arithmetic and comparison gates are plain FunctionWrapper gates: two
// argument ports "a"/"b", "out"/"error". Numbers arrive as float64 — the
// same representation a circuit document's YAML/JSON numbers decode to —
// so every gate here normalizes numbers through asFloat rather than assuming
// Go's int. eq compares two non-numeric payloads with Go's ==.

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("vm/library: expected a number, got %T", v)
	}
}

func NewAdd() (*vm.CommonGateSpec, error) {
	return vm.NewFunctionGate("add", []string{"a", "b"}, func(args []any) (any, error) {
		a, err := asFloat(args[0])
		if err != nil {
			return nil, err
		}
		b, err := asFloat(args[1])
		if err != nil {
			return nil, err
		}
		return a + b, nil
	})
}

func NewSub() (*vm.CommonGateSpec, error) {
	return vm.NewFunctionGate("sub", []string{"a", "b"}, func(args []any) (any, error) {
		a, err := asFloat(args[0])
		if err != nil {
			return nil, err
		}
		b, err := asFloat(args[1])
		if err != nil {
			return nil, err
		}
		return a - b, nil
	})
}

func NewMul() (*vm.CommonGateSpec, error) {
	return vm.NewFunctionGate("mul", []string{"a", "b"}, func(args []any) (any, error) {
		a, err := asFloat(args[0])
		if err != nil {
			return nil, err
		}
		b, err := asFloat(args[1])
		if err != nil {
			return nil, err
		}
		return a * b, nil
	})
}

func NewDiv() (*vm.CommonGateSpec, error) {
	return vm.NewFunctionGate("div", []string{"a", "b"}, func(args []any) (any, error) {
		a, err := asFloat(args[0])
		if err != nil {
			return nil, err
		}
		b, err := asFloat(args[1])
		if err != nil {
			return nil, err
		}
		if b == 0 {
			return nil, fmt.Errorf("vm/library: division by zero")
		}
		return a / b, nil
	})
}

func NewEq() (*vm.CommonGateSpec, error) {
	return vm.NewFunctionGate("eq", []string{"a", "b"}, func(args []any) (any, error) {
		if a, err := asFloat(args[0]); err == nil {
			if b, err := asFloat(args[1]); err == nil {
				return a == b, nil
			}
		}
		return args[0] == args[1], nil
	})
}

func NewLt() (*vm.CommonGateSpec, error) {
	return compareGate("lt", func(a, b float64) bool { return a < b })
}

func NewGt() (*vm.CommonGateSpec, error) {
	return compareGate("gt", func(a, b float64) bool { return a > b })
}

func NewLte() (*vm.CommonGateSpec, error) {
	return compareGate("lte", func(a, b float64) bool { return a <= b })
}

func NewGte() (*vm.CommonGateSpec, error) {
	return compareGate("gte", func(a, b float64) bool { return a >= b })
}

func compareGate(name string, cmp func(a, b float64) bool) (*vm.CommonGateSpec, error) {
	return vm.NewFunctionGate(name, []string{"a", "b"}, func(args []any) (any, error) {
		a, err := asFloat(args[0])
		if err != nil {
			return nil, err
		}
		b, err := asFloat(args[1])
		if err != nil {
			return nil, err
		}
		return cmp(a, b), nil
	})
}
