package vm

import "testing"

func TestRunOncePassthrough(t *testing.T) {
	spec := newPassthrough(t)
	inst, err := spec.MakeInstance("", "p1")
	if err != nil {
		t.Fatalf("MakeInstance: %v", err)
	}

	res, err := RunOnce(inst, []Request{
		{Port: "in", Value: Some(7), Tag: Avail},
		{Port: "out", Tag: Req},
	}, Options{MaxCycles: 5})
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if res.Cycles != 1 {
		t.Errorf("cycles = %d, want 1", res.Cycles)
	}
	out, ok := res.Outputs["out"]
	if !ok {
		t.Fatal("expected out in results")
	}
	if v, _ := out.Payload(); v != 7 {
		t.Errorf("out = %v, want 7", v)
	}
}

func TestRunOnceMaxCyclesExceeded(t *testing.T) {
	// A gate whose trigger is always ready never lets RunOnce converge,
	// so it must hit the MaxCycles guard rather than loop forever.
	deps := NewDepsBuilder().Default().Build()
	spec, err := NewCommonGateSpec("always_ready", []string{"out"}, nil, deps, []TriggerRule{
		{
			Pattern: map[string]Tag{},
			Fn: func(inst *Instance, flow string, user any) (TriggerResult, error) {
				return TriggerResult{NextFlowState: flow, NextUserState: user}, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("NewCommonGateSpec: %v", err)
	}
	inst, err := spec.MakeInstance("", "a1")
	if err != nil {
		t.Fatalf("MakeInstance: %v", err)
	}

	_, err = RunOnce(inst, nil, Options{MaxCycles: 3})
	if err == nil {
		t.Fatal("expected a max_cycles error")
	}
	ve, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *vm.Error, got %T", err)
	}
	if !ve.Is(&Error{Kind: KindDriverLimit}) {
		t.Errorf("expected driver.max_cycles_exceeded kind, got %s", ve.Kind)
	}
}

func TestRunStreamAccumulatesResults(t *testing.T) {
	spec := newPassthrough(t)
	inst, err := spec.MakeInstance("", "p1")
	if err != nil {
		t.Fatalf("MakeInstance: %v", err)
	}

	streams := map[string]Stream{"in": NewSliceStream(Some(1), Some(2))}
	results, err := RunStream(inst, streams, []string{"out"}, Options{MaxCycles: 5})
	if err != nil {
		t.Fatalf("RunStream: %v", err)
	}
	outs := results["out"]
	if len(outs) != 2 {
		t.Fatalf("expected 2 results, got %d", len(outs))
	}
	v0, _ := outs[0].Payload()
	v1, _ := outs[1].Payload()
	if v0 != 1 || v1 != 2 {
		t.Errorf("got %v, %v; want 1, 2", v0, v1)
	}
}
