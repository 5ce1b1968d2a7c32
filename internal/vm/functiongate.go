package vm

// NewFunctionGate wraps a pure Go function as a CommonGateSpec: one port
// per argument (in argNames order), plus "out" and "error". The gate fires
// once every argument port carries an Avail value; fn's result goes to
// "out" on success or "error" on failure — exactly one of the two is ever
// written per fire. "error" is a free port: asking for it alone never
// forces the gate to compute, only demand on "out" does, so a caller that
// doesn't care about failures never pays for wiring the error path.
func NewFunctionGate(name string, argNames []string, fn func(args []any) (any, error)) (*CommonGateSpec, error) {
	ports := make([]string, 0, len(argNames)+2)
	ports = append(ports, argNames...)
	ports = append(ports, "out", "error")

	deps := NewDepsBuilder().
		OnPortTag("out", Req, argNames...).
		OnPortTag("out", Reset, argNames...).
		Build()

	pattern := make(map[string]Tag, len(argNames))
	for _, a := range argNames {
		pattern[a] = Avail
	}

	rule := TriggerRule{
		Pattern: pattern,
		Fn: func(inst *Instance, flowState string, userState any) (TriggerResult, error) {
			args := make([]any, len(argNames))
			consumed := make([]string, 0, len(argNames))
			for i, a := range argNames {
				pi, err := inst.Spec.PortIndex(a)
				if err != nil {
					return TriggerResult{}, err
				}
				args[i] = inst.Incoming(pi).MustPayload()
				consumed = append(consumed, a)
			}

			out, err := runFunctionSafely(name, fn, args)
			if err != nil {
				return TriggerResult{
					NextFlowState: flowState,
					NextUserState: userState,
					Outputs:       map[string]Value{"error": Some(err)},
					Consumed:      consumed,
				}, nil
			}
			return TriggerResult{
				NextFlowState: flowState,
				NextUserState: userState,
				Outputs:       map[string]Value{"out": Some(out)},
				Consumed:      consumed,
			}, nil
		},
	}

	return NewCommonGateSpec(name, ports, nil, deps, []TriggerRule{rule})
}

// runFunctionSafely recovers a panicking gate function into a structured
// error instead of taking the whole driver down with it.
func runFunctionSafely(name string, fn func(args []any) (any, error), args []any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errFuncPanic(name, r)
		}
	}()
	return fn(args)
}
