package library

import (
	"fmt"

	"github.com/rakunlabs/gatevm/internal/vm"
)

// NewEitherOnce builds the one-shot sibling of Bottleneck: n numbered "in"
// ports and one "out", but it forwards exactly one value in its lifetime.
// After firing it locks into a "done" state that never matches any trigger
// and never re-propagates demand onto its inputs again.
func NewEitherOnce(n int) (*vm.CommonGateSpec, error) {
	if n < 1 {
		return nil, fmt.Errorf("vm/library: either_once requires n >= 1, got %d", n)
	}

	ins := inputPorts(n)
	ports := append(append([]string{}, ins...), "out")

	builder := vm.NewDepsBuilder().OnFlowPortTag("open", "out", vm.Req, ins...)

	triggers := make([]vm.TriggerRule, 0, n)
	for _, in := range ins {
		in := in
		triggers = append(triggers, vm.TriggerRule{
			FlowState: "open",
			Pattern:   map[string]vm.Tag{"out": vm.Req, in: vm.Avail},
			Fn: func(inst *vm.Instance, flow string, user any) (vm.TriggerResult, error) {
				pi, _ := inst.Spec.PortIndex(in)
				return vm.TriggerResult{
					NextFlowState: "done",
					NextUserState: user,
					Outputs:       map[string]vm.Value{"out": inst.Incoming(pi)},
					Consumed:      []string{in},
				}, nil
			},
		})
	}

	return vm.NewCommonGateSpec("either_once", ports, func() (string, any) { return "open", nil }, builder.Build(), triggers)
}
