package library

import "github.com/rakunlabs/gatevm/internal/vm"

// environmentState is the live user_state an Environment instance keeps
// between cycles: the key/value map it was seeded with, mutated in place
// by "set" commands, plus the key a pending "set" is waiting to write to.
// It is the one library gate whose user_state is a mutable map rather than
// a small scalar, which is why the supplemented spec keeps it around as
// coverage for flow-state/user-state privacy.
type environmentState struct {
	contents   map[string]any
	pendingKey string
}

// NewEnvironment builds a stateful key/value gate: "command" carries
// "get" or "set", "key" names the slot, "value" supplies a new value for
// "set", and "result" answers a "get" or acknowledges a "set". Demand on
// "result" requests "command" and "key"; "value" is only requested once
// the command is known to be "set".
func NewEnvironment(initial map[string]any) (*vm.CommonGateSpec, error) {
	seed := make(map[string]any, len(initial))
	for k, v := range initial {
		seed[k] = v
	}

	ports := []string{"command", "key", "value", "result"}

	deps := vm.NewDepsBuilder().
		OnFlowPortTag("", "result", vm.Req, "command", "key").
		OnFlowPortTag("awaiting_value", "result", vm.Req, "value").
		Build()

	triggers := []vm.TriggerRule{
		{
			FlowState: "",
			Pattern:   map[string]vm.Tag{"command": vm.Avail, "key": vm.Avail},
			Fn: func(inst *vm.Instance, flow string, user any) (vm.TriggerResult, error) {
				st := user.(environmentState)
				ci, _ := inst.Spec.PortIndex("command")
				ki, _ := inst.Spec.PortIndex("key")
				cmd, _ := inst.Incoming(ci).Payload()
				key, _ := inst.Incoming(ki).Payload()
				keyStr, _ := key.(string)

				if cmd == "set" {
					return vm.TriggerResult{
						NextFlowState: "awaiting_value",
						NextUserState: environmentState{contents: st.contents, pendingKey: keyStr},
						Consumed:      []string{"command", "key"},
					}, nil
				}

				return vm.TriggerResult{
					NextFlowState: "",
					NextUserState: st,
					Outputs:       map[string]vm.Value{"result": vm.Some(st.contents[keyStr])},
					Consumed:      []string{"command", "key"},
				}, nil
			},
		},
		{
			FlowState: "awaiting_value",
			Pattern:   map[string]vm.Tag{"value": vm.Avail},
			Fn: func(inst *vm.Instance, flow string, user any) (vm.TriggerResult, error) {
				st := user.(environmentState)
				vi, _ := inst.Spec.PortIndex("value")
				v, _ := inst.Incoming(vi).Payload()

				st.contents[st.pendingKey] = v
				next := environmentState{contents: st.contents}

				return vm.TriggerResult{
					NextFlowState: "",
					NextUserState: next,
					Outputs:       map[string]vm.Value{"result": vm.Some(true)},
					Consumed:      []string{"value"},
				}, nil
			},
		},
	}

	return vm.NewCommonGateSpec("environment", ports,
		func() (string, any) { return "", environmentState{contents: seed} },
		deps, triggers)
}
