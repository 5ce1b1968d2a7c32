package library

import (
	"fmt"

	"github.com/rakunlabs/gatevm/internal/vm"
)

// NewBottleneck builds a many-to-one funnel: n numbered "in" ports and one
// "out". Demand on "out" is broadcast to every input; whichever input goes
// Avail first is forwarded to "out" and consumed — ties among
// simultaneously-Avail inputs resolve to the lowest-numbered one, since
// trigger rules are tried in declaration order, but across separate cycles
// the winner is whichever upstream gate actually produces first, which the
// VM does not control. Unlike EitherOnce, Bottleneck keeps funneling
// indefinitely; it never locks itself out.
func NewBottleneck(n int) (*vm.CommonGateSpec, error) {
	if n < 1 {
		return nil, fmt.Errorf("vm/library: bottleneck requires n >= 1, got %d", n)
	}

	ins := inputPorts(n)
	ports := append(append([]string{}, ins...), "out")

	builder := vm.NewDepsBuilder().OnPortTag("out", vm.Req, ins...)

	triggers := make([]vm.TriggerRule, 0, n)
	for _, in := range ins {
		in := in
		triggers = append(triggers, vm.TriggerRule{
			Pattern: map[string]vm.Tag{"out": vm.Req, in: vm.Avail},
			Fn: func(inst *vm.Instance, flow string, user any) (vm.TriggerResult, error) {
				pi, _ := inst.Spec.PortIndex(in)
				return vm.TriggerResult{
					NextFlowState: flow,
					NextUserState: user,
					Outputs:       map[string]vm.Value{"out": inst.Incoming(pi)},
					Consumed:      []string{in},
				}, nil
			},
		})
	}

	return vm.NewCommonGateSpec("bottleneck", ports, nil, builder.Build(), triggers)
}
