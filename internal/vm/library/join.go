package library

import (
	"fmt"

	"github.com/rakunlabs/gatevm/internal/vm"
)

// NewJoin builds the inverse of Explode: n numbered "in" ports and one
// "out" carrying a slice of all n values, in order. It only fires once
// every input is Avail — a partial set of inputs never leaks a partial
// slice.
func NewJoin(n int) (*vm.CommonGateSpec, error) {
	if n < 1 {
		return nil, fmt.Errorf("vm/library: join requires n >= 1, got %d", n)
	}

	ins := inputPorts(n)
	ports := append(append([]string{}, ins...), "out")

	builder := vm.NewDepsBuilder().OnPortTag("out", vm.Req, ins...)

	pattern := make(map[string]vm.Tag, n)
	for _, in := range ins {
		pattern[in] = vm.Avail
	}

	triggers := []vm.TriggerRule{
		{
			Pattern: pattern,
			Fn: func(inst *vm.Instance, flow string, user any) (vm.TriggerResult, error) {
				elems := make([]any, n)
				for i, in := range ins {
					pi, _ := inst.Spec.PortIndex(in)
					elems[i], _ = inst.Incoming(pi).Payload()
				}
				return vm.TriggerResult{
					NextFlowState: flow,
					NextUserState: user,
					Outputs:       map[string]vm.Value{"out": vm.Some(elems)},
					Consumed:      ins,
				}, nil
			},
		},
	}

	return vm.NewCommonGateSpec("join", ports, nil, builder.Build(), triggers)
}
