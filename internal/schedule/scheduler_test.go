package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/rakunlabs/gatevm/internal/circuitdoc"
	"github.com/rakunlabs/gatevm/internal/store/memory"
	"github.com/rakunlabs/gatevm/internal/vm"
)

const constantCircuitYAML = `
name: tick
ports: [out]
nodes:
  - id: c
    type: constant
    params:
      value: 7
wires:
  - a: {node: c, port: out}
    b: {port: out}
`

func TestSchedulerRunsJobOnTick(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	if _, err := st.PutCircuit(ctx, "tick", constantCircuitYAML); err != nil {
		t.Fatalf("PutCircuit: %v", err)
	}

	sched := New(st, circuitdoc.NewStandardRegistry(), 10)

	results := make(chan *vm.RunResult, 1)
	sched.SetRunObserver(func(job Job, runID string, result *vm.RunResult, err error) {
		if err != nil {
			t.Errorf("scheduled run failed: %v", err)
			return
		}
		select {
		case results <- result:
		default:
		}
	})

	runCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	job := Job{
		ID:       "tick-job",
		Circuit:  "tick",
		CronSpec: "@every 100ms",
		Requests: []vm.Request{{Port: "out", Tag: vm.Req}},
	}
	if err := sched.Start(runCtx, []Job{job}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer sched.Stop()

	select {
	case res := <-results:
		v, ok := res.Outputs["out"].Payload()
		if !ok || v != 7 {
			t.Errorf("out = %v, want 7", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled job never fired")
	}
}
