// Package library collects the standard gates every circuit author reaches
// for: Constant, NOOP, Distribute, Bottleneck, Sequence, EitherOnce,
// IfThenElse, Explode, Join, the arithmetic/comparison FunctionWrappers,
// and the two supplemented gates (Environment, AbstractAgent). Every gate
// here is built on vm.CommonGateSpec or vm.NewFunctionGate; none of them
// hold a reference to anything outside the vm package.
package library

import "github.com/rakunlabs/gatevm/internal/vm"

// NewConstant builds a source gate that answers "out" with value every
// time it is demanded, never consuming anything and never going stale —
// it has no input ports to run dry.
func NewConstant(value any) (*vm.CommonGateSpec, error) {
	deps := vm.NewDepsBuilder().Default().Build()
	triggers := []vm.TriggerRule{
		{
			Pattern: map[string]vm.Tag{"out": vm.Req},
			Fn: func(inst *vm.Instance, flow string, user any) (vm.TriggerResult, error) {
				return vm.TriggerResult{
					NextFlowState: flow,
					NextUserState: user,
					Outputs:       map[string]vm.Value{"out": vm.Some(value)},
				}, nil
			},
		},
	}
	return vm.NewCommonGateSpec("constant", []string{"out"}, nil, deps, triggers)
}
