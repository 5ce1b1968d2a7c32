package library

import (
	"fmt"

	"github.com/rakunlabs/gatevm/internal/vm"
)

// abstractAgentState holds the embedded gate instance once it has been
// built from the vm.GateSpec that arrived on "gate". It is built once and
// reused across however many values subsequently arrive on "in".
type abstractAgentState struct {
	sub *vm.Instance
}

// NewAbstractAgent builds a gate whose behavior is itself a gate value
// flowing through the network: a vm.GateSpec arrives on "gate" (which must
// declare exactly the ports "in" and "out"), is instantiated once, and
// every subsequent value on "in" is driven through it to "out" with
// vm.RunOnce. This is the higher-order "gate as payload" pattern the
// original described as make_agent/AbstractAgent — a strongly-typed
// stand-in for passing executable behavior as data.
func NewAbstractAgent(maxCyclesPerStep int) (*vm.CommonGateSpec, error) {
	ports := []string{"gate", "in", "out", "error"}

	deps := vm.NewDepsBuilder().OnPortTag("out", vm.Req, "gate", "in").Build()

	build := func(st abstractAgentState, inst *vm.Instance) (abstractAgentState, error) {
		gi, _ := inst.Spec.PortIndex("gate")
		spec, ok := inst.Incoming(gi).Payload()
		if !ok {
			return st, fmt.Errorf("vm/library: abstract_agent: no gate spec supplied")
		}
		gateSpec, ok := spec.(vm.GateSpec)
		if !ok {
			return st, fmt.Errorf("vm/library: abstract_agent: gate port carried %T, not a vm.GateSpec", spec)
		}
		if len(gateSpec.Ports()) != 2 {
			return st, fmt.Errorf("vm/library: abstract_agent: embedded gate must declare exactly ports in/out")
		}
		sub, err := gateSpec.MakeInstance("", "embedded")
		if err != nil {
			return st, fmt.Errorf("vm/library: abstract_agent: instantiate embedded gate: %w", err)
		}
		st.sub = sub
		return st, nil
	}

	step := func(st abstractAgentState, inst *vm.Instance) (any, error) {
		ii, _ := inst.Spec.PortIndex("in")
		inVal, _ := inst.Incoming(ii).Payload()

		res, err := vm.RunOnce(st.sub, []vm.Request{
			{Port: "in", Value: vm.Some(inVal), Tag: vm.Avail},
			{Port: "out", Tag: vm.Req},
		}, vm.Options{MaxCycles: maxCyclesPerStep})
		if err != nil {
			return nil, err
		}
		out, ok := res.Outputs["out"]
		if !ok {
			return nil, fmt.Errorf("vm/library: abstract_agent: embedded gate produced no out")
		}
		v, _ := out.Payload()
		return v, nil
	}

	triggers := []vm.TriggerRule{
		{
			Pattern: map[string]vm.Tag{"gate": vm.Avail, "in": vm.Avail},
			Fn: func(inst *vm.Instance, flow string, user any) (vm.TriggerResult, error) {
				st, err := build(user.(abstractAgentState), inst)
				if err != nil {
					return vm.TriggerResult{
						NextFlowState: flow,
						NextUserState: user,
						Outputs:       map[string]vm.Value{"error": vm.Some(err)},
						Consumed:      []string{"gate"},
					}, nil
				}
				out, err := step(st, inst)
				if err != nil {
					return vm.TriggerResult{
						NextFlowState: flow,
						NextUserState: st,
						Outputs:       map[string]vm.Value{"error": vm.Some(err)},
						Consumed:      []string{"gate", "in"},
					}, nil
				}
				return vm.TriggerResult{
					NextFlowState: flow,
					NextUserState: st,
					Outputs:       map[string]vm.Value{"out": vm.Some(out)},
					Consumed:      []string{"gate", "in"},
				}, nil
			},
		},
		{
			Pattern: map[string]vm.Tag{"in": vm.Avail},
			Fn: func(inst *vm.Instance, flow string, user any) (vm.TriggerResult, error) {
				st := user.(abstractAgentState)
				if st.sub == nil {
					return vm.TriggerResult{
						NextFlowState: flow,
						NextUserState: user,
						Outputs:       map[string]vm.Value{"error": vm.Some(fmt.Errorf("vm/library: abstract_agent: no embedded gate yet"))},
						Consumed:      []string{"in"},
					}, nil
				}
				out, err := step(st, inst)
				if err != nil {
					return vm.TriggerResult{
						NextFlowState: flow,
						NextUserState: st,
						Outputs:       map[string]vm.Value{"error": vm.Some(err)},
						Consumed:      []string{"in"},
					}, nil
				}
				return vm.TriggerResult{
					NextFlowState: flow,
					NextUserState: st,
					Outputs:       map[string]vm.Value{"out": vm.Some(out)},
					Consumed:      []string{"in"},
				}, nil
			},
		},
	}

	return vm.NewCommonGateSpec("abstract_agent", ports,
		func() (string, any) { return "", abstractAgentState{} },
		deps, triggers)
}
