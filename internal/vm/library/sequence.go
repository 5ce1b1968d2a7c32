package library

import (
	"fmt"
	"strconv"

	"github.com/rakunlabs/gatevm/internal/vm"
)

// NewSequence builds a gate with n numbered "in" ports and one "out" that
// requests them strictly in order: in0, then in1, ..., then in{n-1}, then
// wraps back to in0. Demand on "out" only ever requests the current
// input; the next one is never touched until the current one has been
// consumed. Only the last input of a round is ever written to "out" — the
// wrap guarantees each input's subgraph runs after the previous one's
// without ever surfacing an intermediate value on "out". Its flow state
// is the decimal index of the input it is currently waiting on.
func NewSequence(n int) (*vm.CommonGateSpec, error) {
	if n < 1 {
		return nil, fmt.Errorf("vm/library: sequence requires n >= 1, got %d", n)
	}

	ins := inputPorts(n)
	ports := append(append([]string{}, ins...), "out")

	builder := vm.NewDepsBuilder()
	for i, in := range ins {
		builder = builder.OnFlowPortTag(strconv.Itoa(i), "out", vm.Req, in)
	}

	triggers := make([]vm.TriggerRule, 0, n)
	for i, in := range ins {
		i, in := i, in
		next := strconv.Itoa((i + 1) % n)
		last := i == n-1
		triggers = append(triggers, vm.TriggerRule{
			FlowState: strconv.Itoa(i),
			Pattern:   map[string]vm.Tag{"out": vm.Req, in: vm.Avail},
			Fn: func(inst *vm.Instance, flow string, user any) (vm.TriggerResult, error) {
				pi, _ := inst.Spec.PortIndex(in)
				result := vm.TriggerResult{
					NextFlowState: next,
					NextUserState: user,
					Consumed:      []string{in},
				}
				// Only the last input of a round is written to "out" — an
				// empty Outputs map leaves this produce a no-op on "out",
				// so its tag is untouched rather than spuriously set to
				// AVAIL for a value that was never produced.
				if last {
					result.Outputs = map[string]vm.Value{"out": inst.Incoming(pi)}
				}
				return result, nil
			},
		})
	}

	return vm.NewCommonGateSpec("sequence", ports, func() (string, any) { return "0", nil }, builder.Build(), triggers)
}
