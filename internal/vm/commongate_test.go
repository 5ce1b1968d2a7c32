package vm

import "testing"

// newPassthrough builds a minimal CommonGateSpec: demand on "out" requests
// "in", and once "in" is Avail, produce copies it to "out" and consumes
// "in". It exercises the deps table and trigger table directly without any
// library-gate scaffolding in the way.
func newPassthrough(t *testing.T) *CommonGateSpec {
	t.Helper()
	deps := NewDepsBuilder().OnPortTag("out", Req, "in").Build()
	triggers := []TriggerRule{
		{
			Pattern: map[string]Tag{"in": Avail},
			Fn: func(inst *Instance, flow string, user any) (TriggerResult, error) {
				return TriggerResult{
					NextFlowState: flow,
					NextUserState: user,
					Outputs:       map[string]Value{"out": inst.Incoming(mustIdx(inst, "in"))},
					Consumed:      []string{"in"},
				}, nil
			},
		},
	}
	spec, err := NewCommonGateSpec("passthrough", []string{"in", "out"}, nil, deps, triggers)
	if err != nil {
		t.Fatalf("NewCommonGateSpec: %v", err)
	}
	return spec
}

func mustIdx(inst *Instance, port string) int {
	i, err := inst.Spec.PortIndex(port)
	if err != nil {
		panic(err)
	}
	return i
}

func TestCommonGatePropagateForwardsDemand(t *testing.T) {
	spec := newPassthrough(t)
	inst, err := spec.MakeInstance("", "p1")
	if err != nil {
		t.Fatalf("MakeInstance: %v", err)
	}
	pin, _ := spec.PortIndex("in")
	pout, _ := spec.PortIndex("out")

	inst.SetTagIncoming(pout, Req)
	if err := inst.Propagate(); err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	if tag := inst.TagOutgoing(pin); tag != Req {
		t.Errorf("demand on out should propagate to in, got %s", tag)
	}
}

func TestCommonGateTriggerAndProduce(t *testing.T) {
	spec := newPassthrough(t)
	inst, err := spec.MakeInstance("", "p1")
	if err != nil {
		t.Fatalf("MakeInstance: %v", err)
	}
	pin, _ := spec.PortIndex("in")
	pout, _ := spec.PortIndex("out")

	ready, err := inst.Trigger()
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if ready {
		t.Fatal("should not be ready before in carries a value")
	}

	inst.SetIncoming(pin, Some("hello"))
	inst.SetTagIncoming(pin, Avail)

	ready, err = inst.Trigger()
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if !ready {
		t.Fatal("should be ready once in is Avail")
	}

	if err := inst.Produce(); err != nil {
		t.Fatalf("Produce: %v", err)
	}

	got, ok := inst.Outgoing(pout).Payload()
	if !ok || got != "hello" {
		t.Errorf("out = %v, want hello", got)
	}
	if tag := inst.TagIncoming(pin); tag != NoTag {
		t.Errorf("in should be consumed, tag = %s", tag)
	}
}

func TestDepsPrecedenceMostSpecificWins(t *testing.T) {
	deps := NewDepsBuilder().
		Default("fallback").
		OnFlow("running", "flow-dep").
		OnPortTag("x", Req, "port-tag-dep").
		OnFlowPortTag("running", "x", Req, "most-specific-dep").
		Build()

	got, ok := deps.lookup("running", "x", Req)
	if !ok || len(got) != 1 || got[0] != "most-specific-dep" {
		t.Fatalf("expected most-specific match, got %v", got)
	}

	got, ok = deps.lookup("idle", "x", Req)
	if !ok || len(got) != 1 || got[0] != "port-tag-dep" {
		t.Fatalf("expected port-tag match, got %v", got)
	}

	got, ok = deps.lookup("running", "y", Req)
	if !ok || len(got) != 1 || got[0] != "flow-dep" {
		t.Fatalf("expected flow match, got %v", got)
	}

	got, ok = deps.lookup("idle", "y", Req)
	if !ok || len(got) != 1 || got[0] != "fallback" {
		t.Fatalf("expected default match, got %v", got)
	}
}
