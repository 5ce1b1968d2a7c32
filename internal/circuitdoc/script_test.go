package circuitdoc

import (
	"testing"

	"github.com/rakunlabs/gatevm/internal/vm"
)

func TestScriptGateEvaluatesExpression(t *testing.T) {
	spec, err := NewScriptGate("double", "return x * 2;", []string{"x"})
	if err != nil {
		t.Fatalf("NewScriptGate: %v", err)
	}
	inst, err := spec.MakeInstance("", "s1")
	if err != nil {
		t.Fatalf("MakeInstance: %v", err)
	}

	res, err := vm.RunOnce(inst, []vm.Request{
		{Port: "x", Value: vm.Some(int64(21)), Tag: vm.Avail},
		{Port: "out", Tag: vm.Req},
	}, vm.Options{MaxCycles: 5})
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	v, ok := res.Outputs["out"].Payload()
	if !ok || v != int64(42) {
		t.Errorf("out = %v, want 42", v)
	}
}

func TestScriptGateRoutesErrors(t *testing.T) {
	spec, err := NewScriptGate("boom", "throw new Error('bad');", []string{"in"})
	if err != nil {
		t.Fatalf("NewScriptGate: %v", err)
	}
	inst, err := spec.MakeInstance("", "s1")
	if err != nil {
		t.Fatalf("MakeInstance: %v", err)
	}

	res, err := vm.RunOnce(inst, []vm.Request{
		{Port: "in", Value: vm.Some(1), Tag: vm.Avail},
		{Port: "error", Tag: vm.Req},
	}, vm.Options{MaxCycles: 5})
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if _, ok := res.Outputs["error"]; !ok {
		t.Fatal("expected an error output for a throwing script")
	}
}
