package vm

import "testing"

func TestFunctionGateAddsWhenBothArgsAvail(t *testing.T) {
	spec, err := NewFunctionGate("add", []string{"a", "b"}, func(args []any) (any, error) {
		return args[0].(int) + args[1].(int), nil
	})
	if err != nil {
		t.Fatalf("NewFunctionGate: %v", err)
	}

	inst, err := spec.MakeInstance("", "add1")
	if err != nil {
		t.Fatalf("MakeInstance: %v", err)
	}

	pa, _ := spec.PortIndex("a")
	pb, _ := spec.PortIndex("b")
	pout, _ := spec.PortIndex("out")

	inst.SetIncoming(pa, Some(2))
	inst.SetTagIncoming(pa, Avail)
	inst.SetIncoming(pb, Some(3))
	inst.SetTagIncoming(pb, Avail)

	ready, err := inst.Trigger()
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if !ready {
		t.Fatal("expected gate to be ready once both args are Avail")
	}

	if err := inst.Produce(); err != nil {
		t.Fatalf("Produce: %v", err)
	}

	got, ok := inst.Outgoing(pout).Payload()
	if !ok {
		t.Fatal("expected a value on out")
	}
	if got.(int) != 5 {
		t.Fatalf("out = %v, want 5", got)
	}

	// Both argument ports were consumed: no residual Avail tag left behind.
	if tag := inst.TagIncoming(pa); tag != NoTag {
		t.Errorf("port a should be consumed, tag = %s", tag)
	}
}

func TestFunctionGateErrorPortOnFailure(t *testing.T) {
	spec, err := NewFunctionGate("div", []string{"a", "b"}, func(args []any) (any, error) {
		b := args[1].(int)
		if b == 0 {
			return nil, errDivByZero
		}
		return args[0].(int) / b, nil
	})
	if err != nil {
		t.Fatalf("NewFunctionGate: %v", err)
	}

	inst, err := spec.MakeInstance("", "div1")
	if err != nil {
		t.Fatalf("MakeInstance: %v", err)
	}
	pa, _ := spec.PortIndex("a")
	pb, _ := spec.PortIndex("b")
	perr, _ := spec.PortIndex("error")
	pout, _ := spec.PortIndex("out")

	inst.SetIncoming(pa, Some(1))
	inst.SetTagIncoming(pa, Avail)
	inst.SetIncoming(pb, Some(0))
	inst.SetTagIncoming(pb, Avail)

	if err := inst.Produce(); err != nil {
		t.Fatalf("Produce: %v", err)
	}

	if v := inst.Outgoing(pout); !v.IsVoid() {
		t.Errorf("out should stay void on error, got %v", v)
	}
	if v := inst.Outgoing(perr); v.IsVoid() {
		t.Errorf("error port should carry the failure")
	}
}

func TestFunctionGateErrorPortIsFree(t *testing.T) {
	spec, err := NewFunctionGate("add", []string{"a", "b"}, func(args []any) (any, error) {
		return args[0].(int) + args[1].(int), nil
	})
	if err != nil {
		t.Fatalf("NewFunctionGate: %v", err)
	}
	inst, err := spec.MakeInstance("", "add1")
	if err != nil {
		t.Fatalf("MakeInstance: %v", err)
	}
	perr, _ := spec.PortIndex("error")
	pa, _ := spec.PortIndex("a")

	// Demand on error alone must not propagate as demand onto the argument
	// ports — only demand on "out" does.
	inst.SetTagIncoming(perr, Req)
	if err := inst.Propagate(); err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	if tag := inst.TagOutgoing(pa); tag != NoTag {
		t.Errorf("error-only demand must not force arg ports, got tag %s on a", tag)
	}
}

var errDivByZero = newError(KindFunction, "division by zero", nil)
