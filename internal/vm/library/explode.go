package library

import (
	"fmt"

	"github.com/rakunlabs/gatevm/internal/vm"
)

// NewExplode builds a gate that splits a fixed-length slice arriving on
// "in" into n numbered output ports, one element each. A slice of any
// other length is rejected onto "error" instead of silently truncating or
// padding.
func NewExplode(n int) (*vm.CommonGateSpec, error) {
	if n < 1 {
		return nil, fmt.Errorf("vm/library: explode requires n >= 1, got %d", n)
	}

	outs := outputPorts(n)
	ports := append([]string{"in", "error"}, outs...)

	builder := vm.NewDepsBuilder()
	for _, o := range outs {
		builder = builder.OnPortTag(o, vm.Req, "in")
	}

	triggers := []vm.TriggerRule{
		{
			Pattern: map[string]vm.Tag{"in": vm.Avail},
			Fn: func(inst *vm.Instance, flow string, user any) (vm.TriggerResult, error) {
				ii, _ := inst.Spec.PortIndex("in")
				payload, _ := inst.Incoming(ii).Payload()
				elems, ok := payload.([]any)
				if !ok || len(elems) != n {
					got := -1
					if ok {
						got = len(elems)
					}
					return vm.TriggerResult{
						NextFlowState: flow,
						NextUserState: user,
						Outputs:       map[string]vm.Value{"error": vm.Some(vm.NewExplodeLengthError("explode", n, got))},
						Consumed:      []string{"in"},
					}, nil
				}
				outputs := make(map[string]vm.Value, n)
				for i, o := range outs {
					outputs[o] = vm.Some(elems[i])
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

	return vm.NewCommonGateSpec("explode", ports, nil, builder.Build(), triggers)
}
