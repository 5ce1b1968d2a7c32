package library

import "github.com/rakunlabs/gatevm/internal/vm"

// NewNOOP builds the identity gate: demand on "out" requests "in"; once
// "in" is available, it is copied straight to "out" and consumed.
func NewNOOP() (*vm.CommonGateSpec, error) {
	deps := vm.NewDepsBuilder().OnPortTag("out", vm.Req, "in").Build()
	triggers := []vm.TriggerRule{
		{
			Pattern: map[string]vm.Tag{"in": vm.Avail},
			Fn: func(inst *vm.Instance, flow string, user any) (vm.TriggerResult, error) {
				in, _ := inst.Spec.PortIndex("in")
				return vm.TriggerResult{
					NextFlowState: flow,
					NextUserState: user,
					Outputs:       map[string]vm.Value{"out": inst.Incoming(in)},
					Consumed:      []string{"in"},
				}, nil
			},
		},
	}
	return vm.NewCommonGateSpec("noop", []string{"in", "out"}, nil, deps, triggers)
}
