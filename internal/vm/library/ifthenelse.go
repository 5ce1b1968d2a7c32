package library

import "github.com/rakunlabs/gatevm/internal/vm"

// NewIfThenElse builds a three-state control gate: demand on "out" first
// requests "cond"; once cond is available it decides which branch to
// request ("then" if truthy, "else" otherwise), forwards that branch's
// value to "out" once it arrives, and resets to wait for the next "cond" —
// it is reusable across many decisions, not a one-shot gate.
func NewIfThenElse() (*vm.CommonGateSpec, error) {
	// "error" is declared for signature parity with the gate table but,
	// like the original, never produced onto: IfThenElse has no failure
	// mode of its own to report.
	ports := []string{"cond", "then", "else", "out", "error"}

	deps := vm.NewDepsBuilder().
		OnFlowPortTag("", "out", vm.Req, "cond").
		OnFlowPortTag("then", "out", vm.Req, "then").
		OnFlowPortTag("else", "out", vm.Req, "else").
		Build()

	triggers := []vm.TriggerRule{
		{
			FlowState: "",
			Pattern:   map[string]vm.Tag{"cond": vm.Avail},
			Fn: func(inst *vm.Instance, flow string, user any) (vm.TriggerResult, error) {
				ci, _ := inst.Spec.PortIndex("cond")
				truthy, _ := inst.Incoming(ci).Payload()
				next := "else"
				if b, ok := truthy.(bool); ok && b {
					next = "then"
				} else if !ok && truthy != nil {
					// Any non-bool, non-nil payload counts as truthy,
					// matching the original's duck-typed condition check.
					next = "then"
				}
				return vm.TriggerResult{
					NextFlowState: next,
					NextUserState: user,
					Consumed:      []string{"cond"},
				}, nil
			},
		},
		{
			FlowState: "then",
			Pattern:   map[string]vm.Tag{"then": vm.Avail},
			Fn: func(inst *vm.Instance, flow string, user any) (vm.TriggerResult, error) {
				pi, _ := inst.Spec.PortIndex("then")
				return vm.TriggerResult{
					NextFlowState: "",
					NextUserState: user,
					Outputs:       map[string]vm.Value{"out": inst.Incoming(pi)},
					Consumed:      []string{"then"},
				}, nil
			},
		},
		{
			FlowState: "else",
			Pattern:   map[string]vm.Tag{"else": vm.Avail},
			Fn: func(inst *vm.Instance, flow string, user any) (vm.TriggerResult, error) {
				pi, _ := inst.Spec.PortIndex("else")
				return vm.TriggerResult{
					NextFlowState: "",
					NextUserState: user,
					Outputs:       map[string]vm.Value{"out": inst.Incoming(pi)},
					Consumed:      []string{"else"},
				}, nil
			},
		},
	}

	return vm.NewCommonGateSpec("if_then_else", ports, func() (string, any) { return "", nil }, deps, triggers)
}
