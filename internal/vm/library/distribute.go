package library

import (
	"fmt"

	"github.com/rakunlabs/gatevm/internal/vm"
)

// NewDistribute builds a fan-out gate: one "in" port and n numbered "out"
// ports. Demand on any output requests "in"; once "in" is available, the
// same value is broadcast to every output at once and "in" is consumed.
func NewDistribute(n int) (*vm.CommonGateSpec, error) {
	if n < 1 {
		return nil, fmt.Errorf("vm/library: distribute requires n >= 1, got %d", n)
	}

	outs := outputPorts(n)
	ports := append([]string{"in"}, outs...)

	builder := vm.NewDepsBuilder()
	for _, o := range outs {
		builder = builder.OnPortTag(o, vm.Req, "in")
	}

	triggers := []vm.TriggerRule{
		{
			Pattern: map[string]vm.Tag{"in": vm.Avail},
			Fn: func(inst *vm.Instance, flow string, user any) (vm.TriggerResult, error) {
				in, _ := inst.Spec.PortIndex("in")
				v := inst.Incoming(in)
				outputs := make(map[string]vm.Value, len(outs))
				for _, o := range outs {
					outputs[o] = v
				}
				return vm.TriggerResult{
					NextFlowState: flow,
					NextUserState: user,
					Outputs:       outputs,
					Consumed:      []string{"in"},
				}, nil
			},
		},
	}

	return vm.NewCommonGateSpec("distribute", ports, nil, builder.Build(), triggers)
}

func outputPorts(n int) []string {
	outs := make([]string, n)
	for i := range outs {
		outs[i] = fmt.Sprintf("out%d", i)
	}
	return outs
}

func inputPorts(n int) []string {
	ins := make([]string, n)
	for i := range ins {
		ins[i] = fmt.Sprintf("in%d", i)
	}
	return ins
}
