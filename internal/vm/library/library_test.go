package library

import (
	"testing"

	"github.com/rakunlabs/gatevm/internal/vm"
)

func TestConstantAlwaysAnswersDemand(t *testing.T) {
	spec, err := NewConstant(42)
	if err != nil {
		t.Fatalf("NewConstant: %v", err)
	}
	inst, err := spec.MakeInstance("", "c1")
	if err != nil {
		t.Fatalf("MakeInstance: %v", err)
	}

	res, err := vm.RunOnce(inst, []vm.Request{{Port: "out", Tag: vm.Req}}, vm.Options{MaxCycles: 5})
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	v, _ := res.Outputs["out"].Payload()
	if v != 42 {
		t.Errorf("out = %v, want 42", v)
	}
}

func TestDistributeBroadcasts(t *testing.T) {
	spec, err := NewDistribute(3)
	if err != nil {
		t.Fatalf("NewDistribute: %v", err)
	}
	inst, err := spec.MakeInstance("", "d1")
	if err != nil {
		t.Fatalf("MakeInstance: %v", err)
	}

	res, err := vm.RunOnce(inst, []vm.Request{
		{Port: "in", Value: vm.Some("x"), Tag: vm.Avail},
		{Port: "out0", Tag: vm.Req},
		{Port: "out1", Tag: vm.Req},
		{Port: "out2", Tag: vm.Req},
	}, vm.Options{MaxCycles: 5})
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	for _, p := range []string{"out0", "out1", "out2"} {
		v, ok := res.Outputs[p].Payload()
		if !ok || v != "x" {
			t.Errorf("%s = %v, want x", p, v)
		}
	}
}

func TestJoinWaitsForAllInputs(t *testing.T) {
	spec, err := NewJoin(2)
	if err != nil {
		t.Fatalf("NewJoin: %v", err)
	}
	inst, err := spec.MakeInstance("", "j1")
	if err != nil {
		t.Fatalf("MakeInstance: %v", err)
	}

	res, err := vm.RunOnce(inst, []vm.Request{
		{Port: "in0", Value: vm.Some(1), Tag: vm.Avail},
		{Port: "out", Tag: vm.Req},
	}, vm.Options{MaxCycles: 5})
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if _, ok := res.Outputs["out"]; ok {
		t.Fatal("join should not fire with only one of two inputs")
	}

	res, err = vm.RunOnce(inst, []vm.Request{
		{Port: "in1", Value: vm.Some(2), Tag: vm.Avail},
		{Port: "out", Tag: vm.Req},
	}, vm.Options{MaxCycles: 5})
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	out, ok := res.Outputs["out"].Payload()
	if !ok {
		t.Fatal("expected out once both inputs arrived")
	}
	elems := out.([]any)
	if elems[0] != 1 || elems[1] != 2 {
		t.Errorf("out = %v, want [1 2]", elems)
	}
}

func TestBottleneckForwardsFirstAvail(t *testing.T) {
	spec, err := NewBottleneck(2)
	if err != nil {
		t.Fatalf("NewBottleneck: %v", err)
	}
	inst, err := spec.MakeInstance("", "b1")
	if err != nil {
		t.Fatalf("MakeInstance: %v", err)
	}

	res, err := vm.RunOnce(inst, []vm.Request{
		{Port: "in1", Value: vm.Some("second"), Tag: vm.Avail},
		{Port: "out", Tag: vm.Req},
	}, vm.Options{MaxCycles: 5})
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	v, ok := res.Outputs["out"].Payload()
	if !ok || v != "second" {
		t.Errorf("out = %v, want second", v)
	}
}

func TestIfThenElseBranches(t *testing.T) {
	spec, err := NewIfThenElse()
	if err != nil {
		t.Fatalf("NewIfThenElse: %v", err)
	}
	inst, err := spec.MakeInstance("", "if1")
	if err != nil {
		t.Fatalf("MakeInstance: %v", err)
	}

	res, err := vm.RunOnce(inst, []vm.Request{
		{Port: "cond", Value: vm.Some(true), Tag: vm.Avail},
		{Port: "then", Value: vm.Some("yes"), Tag: vm.Avail},
		{Port: "else", Value: vm.Some("no"), Tag: vm.Avail},
		{Port: "out", Tag: vm.Req},
	}, vm.Options{MaxCycles: 10})
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	v, ok := res.Outputs["out"].Payload()
	if !ok || v != "yes" {
		t.Errorf("out = %v, want yes", v)
	}
}

func TestExplodeWrongLength(t *testing.T) {
	spec, err := NewExplode(2)
	if err != nil {
		t.Fatalf("NewExplode: %v", err)
	}
	inst, err := spec.MakeInstance("", "e1")
	if err != nil {
		t.Fatalf("MakeInstance: %v", err)
	}

	res, err := vm.RunOnce(inst, []vm.Request{
		{Port: "in", Value: vm.Some([]any{1, 2, 3}), Tag: vm.Avail},
		{Port: "error", Tag: vm.Req},
	}, vm.Options{MaxCycles: 5})
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if _, ok := res.Outputs["error"]; !ok {
		t.Fatal("expected an error for a mismatched-length slice")
	}
}

func TestAddGate(t *testing.T) {
	spec, err := NewAdd()
	if err != nil {
		t.Fatalf("NewAdd: %v", err)
	}
	inst, err := spec.MakeInstance("", "add1")
	if err != nil {
		t.Fatalf("MakeInstance: %v", err)
	}
	res, err := vm.RunOnce(inst, []vm.Request{
		{Port: "a", Value: vm.Some(2.0), Tag: vm.Avail},
		{Port: "b", Value: vm.Some(3.0), Tag: vm.Avail},
		{Port: "out", Tag: vm.Req},
	}, vm.Options{MaxCycles: 5})
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	v, _ := res.Outputs["out"].Payload()
	if v != 5.0 {
		t.Errorf("out = %v, want 5", v)
	}
}
