package vm

// CommonGateSpec is the table-driven primitive gate: a starter that builds
// the instance's initial state, a dependency table that drives the
// backward (propagate) phase, and an ordered trigger table that drives the
// forward (trigger/produce) phase. Every library gate and FunctionWrapper
// is built on top of this one spec flavor.
type CommonGateSpec struct {
	base baseSpec

	// starter builds the initial (flowState, userState) pair for a fresh
	// instance. flowState "" is conventionally the initial state.
	starter func() (flowState string, userState any)

	// deps is consulted, most specific key first, to decide which ports a
	// gate depends on to satisfy demand sitting on some other port:
	//   1. (flowState, port, tag)  — exact state + exact port + exact tag
	//   2. (port, tag)             — exact port + exact tag, any state
	//   3. (flowState)             — exact state, any port/tag
	//   4. ()                     — default, matches anything
	// The first matching entry's port list is the set of ports whose
	// outgoing tag gets Join'd with the demand being satisfied.
	deps depsTable

	// triggers are scanned in order; the first whose flow-state and port
	// pattern match current incoming tags is the one produce() invokes.
	triggers []TriggerRule
}

// TriggerRule is one row of a CommonGateSpec's trigger table.
type TriggerRule struct {
	// FlowState constrains the rule to a specific state; "" matches any.
	FlowState string
	// Pattern maps port name -> required incoming tag. Ports absent from
	// the map are unconstrained. All named ports must match exactly.
	Pattern map[string]Tag
	// Fn runs the computation: given the instance (for reading port
	// values/current user state), it returns the gate's next flow/user
	// state, the outputs to write (by port name), and the port names to
	// mark consumed. Returning a non-nil err aborts produce with it.
	Fn func(inst *Instance, flowState string, userState any) (TriggerResult, error)
}

// TriggerResult is what a TriggerRule.Fn hands back to produce().
type TriggerResult struct {
	NextFlowState string
	NextUserState any
	Outputs       map[string]Value
	Consumed      []string
}

type depsKey struct {
	hasFlow bool
	flow    string
	hasPort bool
	port    string
	tag     Tag
}

// depsTable is a flat list searched in precedence order (most specific
// key shape first); within a shape, in declaration order.
type depsTable []depsEntry

type depsEntry struct {
	key   depsKey
	ports []string
}

// DepsBuilder accumulates a CommonGateSpec's dependency table in the four
// key shapes spec.md names, keeping each shape's entries in declaration
// order and letting DepsBuilder.Build sort them into precedence order.
type DepsBuilder struct {
	entries []depsEntry
}

func NewDepsBuilder() *DepsBuilder { return &DepsBuilder{} }

// Default registers the catch-all () entry.
func (b *DepsBuilder) Default(ports ...string) *DepsBuilder {
	b.entries = append(b.entries, depsEntry{key: depsKey{}, ports: ports})
	return b
}

// OnFlow registers a (flowState) entry.
func (b *DepsBuilder) OnFlow(flowState string, ports ...string) *DepsBuilder {
	b.entries = append(b.entries, depsEntry{key: depsKey{hasFlow: true, flow: flowState}, ports: ports})
	return b
}

// OnPortTag registers a (port, tag) entry.
func (b *DepsBuilder) OnPortTag(port string, tag Tag, ports ...string) *DepsBuilder {
	b.entries = append(b.entries, depsEntry{key: depsKey{hasPort: true, port: port, tag: tag}, ports: ports})
	return b
}

// OnFlowPortTag registers a (flowState, port, tag) entry.
func (b *DepsBuilder) OnFlowPortTag(flowState, port string, tag Tag, ports ...string) *DepsBuilder {
	b.entries = append(b.entries, depsEntry{
		key:   depsKey{hasFlow: true, flow: flowState, hasPort: true, port: port, tag: tag},
		ports: ports,
	})
	return b
}

func specificity(k depsKey) int {
	switch {
	case k.hasFlow && k.hasPort:
		return 3
	case k.hasPort:
		return 2
	case k.hasFlow:
		return 1
	default:
		return 0
	}
}

func (b *DepsBuilder) Build() depsTable {
	out := make(depsTable, len(b.entries))
	copy(out, b.entries)
	// Stable sort by descending specificity, preserving declaration order
	// within a tier — a straightforward insertion sort keeps this
	// allocation-light for the small tables every library gate declares.
	for i := 1; i < len(out); i++ {
		j := i
		for j > 0 && specificity(out[j].key) > specificity(out[j-1].key) {
			out[j], out[j-1] = out[j-1], out[j]
			j--
		}
	}
	return out
}

func (t depsTable) lookup(flowState string, port string, tag Tag) ([]string, bool) {
	for _, e := range t {
		if e.key.hasFlow && e.key.flow != flowState {
			continue
		}
		if e.key.hasPort && (e.key.port != port || e.key.tag != tag) {
			continue
		}
		return e.ports, true
	}
	return nil, false
}

// NewCommonGateSpec builds a primitive gate spec.
func NewCommonGateSpec(name string, ports []string, starter func() (string, any), deps depsTable, triggers []TriggerRule) (*CommonGateSpec, error) {
	base, err := newBaseSpec(name, ports)
	if err != nil {
		return nil, err
	}
	return &CommonGateSpec{base: base, starter: starter, deps: deps, triggers: triggers}, nil
}

func (s *CommonGateSpec) Name() string           { return s.base.Name() }
func (s *CommonGateSpec) Ports() []string        { return s.base.Ports() }
func (s *CommonGateSpec) PortIndex(n string) (int, error)    { return s.base.PortIndex(n) }
func (s *CommonGateSpec) PortName(i int) (string, error)     { return s.base.PortName(i) }
func (s *CommonGateSpec) SameSignature(o GateSpec) bool {
	other, ok := o.(*CommonGateSpec)
	if !ok {
		return false
	}
	return s.base.sameSignature(other.base)
}

func (s *CommonGateSpec) MakeInstance(qual, id string) (*Instance, error) {
	inst := NewInstance(s, qual, id, len(s.base.ports))
	flow, user := "", any(nil)
	if s.starter != nil {
		flow, user = s.starter()
	}
	inst.SetState(commonState{Flow: flow, User: user})
	return inst, nil
}

func (s *CommonGateSpec) behavior() behavior { return commonBehavior{spec: s} }

type commonState struct {
	Flow string
	User any
}

type commonBehavior struct{ spec *CommonGateSpec }

// propagate implements the backward phase: for every port currently
// carrying Req or Reset (downstream demand, or an upstream reset blowing
// through), look up which ports this gate depends on to satisfy it, and
// Join that demand onto each dependency's outgoing tag.
//
// A port produce() already wrote a value to, but that hasn't been
// consumed yet, keeps advertising AVAIL here rather than falling back to
// the NOTAG baseline — otherwise a later propagate call (the circuit
// fixpoint in circuit.go re-runs every sub-gate's Propagate each round)
// would erase the still-unconsumed value's visibility to whatever shares
// that port's cell, and a consumer wired straight to it would never see
// a trigger pattern match against it.
func (b commonBehavior) propagate(inst *Instance) ([]Tag, error) {
	st := inst.State().(commonState)
	result := make([]Tag, inst.NumPorts())
	for p := range result {
		result[p] = NoTag
	}

	for p := 0; p < inst.NumPorts(); p++ {
		tag := inst.TagIncoming(p)
		if tag != Req && tag != Reset {
			continue
		}
		portName, err := inst.Spec.PortName(p)
		if err != nil {
			return nil, err
		}
		deps, ok := b.spec.deps.lookup(st.Flow, portName, tag)
		if !ok {
			continue
		}
		for _, depName := range deps {
			di, err := inst.Spec.PortIndex(depName)
			if err != nil {
				return nil, err
			}
			result[di] = Join(result[di], tag)
		}
	}

	for p := 0; p < inst.NumPorts(); p++ {
		if result[p] == NoTag && !inst.Outgoing(p).IsVoid() {
			result[p] = Avail
		}
	}

	return result, nil
}

func (b commonBehavior) findTrigger(inst *Instance, st commonState) *TriggerRule {
	for i := range b.spec.triggers {
		rule := &b.spec.triggers[i]
		if rule.FlowState != "" && rule.FlowState != st.Flow {
			continue
		}
		matched := true
		for portName, wantTag := range rule.Pattern {
			pi, err := inst.Spec.PortIndex(portName)
			if err != nil {
				matched = false
				break
			}
			if inst.TagIncoming(pi) != wantTag {
				matched = false
				break
			}
		}
		if matched {
			return rule
		}
	}
	return nil
}

func (b commonBehavior) trigger(inst *Instance) (bool, error) {
	st := inst.State().(commonState)
	return b.findTrigger(inst, st) != nil, nil
}

func (b commonBehavior) produce(inst *Instance) error {
	st := inst.State().(commonState)
	rule := b.findTrigger(inst, st)
	if rule == nil {
		return newError(KindDriver, "produce called with no matching trigger on "+inst.Path(), nil)
	}

	result, err := rule.Fn(inst, st.Flow, st.User)
	if err != nil {
		return err
	}

	for portName, v := range result.Outputs {
		pi, perr := inst.Spec.PortIndex(portName)
		if perr != nil {
			return perr
		}
		inst.SetOutgoing(pi, v)
		inst.SetTagOutgoing(pi, Avail)
	}

	for _, portName := range result.Consumed {
		pi, perr := inst.Spec.PortIndex(portName)
		if perr != nil {
			return perr
		}
		inst.Consume(pi)
	}

	inst.SetState(commonState{Flow: result.NextFlowState, User: result.NextUserState})
	return nil
}

func (b commonBehavior) handleVMError(inst *Instance, vmErr *Error) bool {
	if vmErr.Is(&Error{Kind: KindTagReset}) {
		return false
	}
	return false
}
