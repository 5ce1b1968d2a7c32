package vm

import "fmt"

// SubGate names one sub-gate inside a circuit definition: its id within the
// circuit, and the spec it is an instance of.
type SubGate struct {
	ID   string
	Spec GateSpec
}

// Endpoint names one side of a Wire. Gate == "" means the circuit's own
// external port named Port; otherwise it names a sub-gate's port.
type Endpoint struct {
	Gate string
	Port string
}

// Wire connects two endpoints inside a circuit definition.
type Wire struct {
	A Endpoint
	B Endpoint
}

// CircuitSpec is a composite gate: a fixed set of sub-gates wired together
// and exposed through the circuit's own external ports. It satisfies
// GateSpec the same way CommonGateSpec does, so a circuit nests inside
// another circuit as an ordinary sub-gate with no special-casing.
type CircuitSpec struct {
	base     baseSpec
	subGates []SubGate
	subIndex map[string]int
	wires    []Wire

	// internalWires are subgate<->subgate or external<->external wires,
	// replayed verbatim by MakeInstance via Connect.
	internalWires []Wire
	// externalAlias maps an external port name to the sub-gate endpoint
	// whose cells it is aliased to.
	externalAlias map[string]Endpoint
}

// NewCircuitSpec validates the wiring and builds a reusable circuit
// definition. Every external port must appear in exactly one wire endpoint
// (missing_connection/multiple_connections); a sub-gate port may appear in
// at most one (multiple_connections) and may be left unwired. No wire may
// connect an endpoint to itself (short_circuit).
func NewCircuitSpec(name string, externalPorts []string, subGates []SubGate, wires []Wire) (*CircuitSpec, error) {
	base, err := newBaseSpec(name, externalPorts)
	if err != nil {
		return nil, err
	}

	subIndex := make(map[string]int, len(subGates))
	for i, sg := range subGates {
		if _, dup := subIndex[sg.ID]; dup {
			return nil, fmt.Errorf("vm: circuit %q declares sub-gate %q twice", name, sg.ID)
		}
		subIndex[sg.ID] = i
	}

	externalSeen := make(map[string]bool, len(externalPorts))
	type subPortKey struct{ gate, port string }
	subSeen := make(map[subPortKey]bool)

	checkEndpoint := func(e Endpoint) error {
		if e.Gate == "" {
			if _, ok := base.index[e.Port]; !ok {
				return errPortUnknown(name, e.Port)
			}
			if externalSeen[e.Port] {
				return errMultipleConnections(name, e.Port)
			}
			externalSeen[e.Port] = true
			return nil
		}
		si, ok := subIndex[e.Gate]
		if !ok {
			return fmt.Errorf("vm: circuit %q wires unknown sub-gate %q", name, e.Gate)
		}
		if _, err := subGates[si].Spec.PortIndex(e.Port); err != nil {
			return err
		}
		key := subPortKey{e.Gate, e.Port}
		if subSeen[key] {
			return errMultipleConnections(e.Gate, e.Port)
		}
		subSeen[key] = true
		return nil
	}

	for _, w := range wires {
		if w.A == w.B {
			if w.A.Gate == "" {
				return nil, errShortCircuit(name, w.A.Port)
			}
			return nil, errShortCircuit(w.A.Gate, w.A.Port)
		}
		if err := checkEndpoint(w.A); err != nil {
			return nil, err
		}
		if err := checkEndpoint(w.B); err != nil {
			return nil, err
		}
	}

	// Only external ports are required to be wired. A sub-gate port left
	// dangling is the circuit author's own business: it just keeps
	// reading/writing VOID forever, the same as a gate nobody talks to.
	for _, p := range externalPorts {
		if !externalSeen[p] {
			return nil, errMissingConnection(name, p)
		}
	}

	externalAlias := make(map[string]Endpoint)
	var internalWires []Wire
	for _, w := range wires {
		switch {
		case w.A.Gate == "" && w.B.Gate != "":
			externalAlias[w.A.Port] = w.B
		case w.B.Gate == "" && w.A.Gate != "":
			externalAlias[w.B.Port] = w.A
		default:
			internalWires = append(internalWires, w)
		}
	}

	return &CircuitSpec{
		base:          base,
		subGates:      append([]SubGate(nil), subGates...),
		subIndex:      subIndex,
		wires:         append([]Wire(nil), wires...),
		internalWires: internalWires,
		externalAlias: externalAlias,
	}, nil
}

func (s *CircuitSpec) Name() string        { return s.base.Name() }
func (s *CircuitSpec) Ports() []string     { return s.base.Ports() }
func (s *CircuitSpec) PortIndex(n string) (int, error) { return s.base.PortIndex(n) }
func (s *CircuitSpec) PortName(i int) (string, error)  { return s.base.PortName(i) }

func (s *CircuitSpec) SameSignature(o GateSpec) bool {
	other, ok := o.(*CircuitSpec)
	if !ok {
		return false
	}
	return s.base.sameSignature(other.base)
}

type circuitState struct {
	sub        map[string]*Instance
	order      []*Instance
	triggerable []*Instance
}

func (s *CircuitSpec) MakeInstance(qual, id string) (*Instance, error) {
	path := id
	if qual != "" {
		path = qual + "." + id
	}

	outer := NewInstance(s, qual, id, len(s.base.ports))

	sub := make(map[string]*Instance, len(s.subGates))
	order := make([]*Instance, 0, len(s.subGates))
	for _, sg := range s.subGates {
		si, err := sg.Spec.MakeInstance(path, sg.ID)
		if err != nil {
			return nil, fmt.Errorf("vm: instantiate sub-gate %q of %q: %w", sg.ID, s.base.name, err)
		}
		sub[sg.ID] = si
		order = append(order, si)
	}

	// internalWires only ever holds sub-gate<->sub-gate wires or the rare
	// external<->external pass-through; external<->sub-gate wires were
	// pulled out into externalAlias above and are handled by direct cell
	// aliasing below, not by Connect.
	for _, w := range s.internalWires {
		if w.A.Gate == "" && w.B.Gate == "" {
			ai, _ := s.base.PortIndex(w.A.Port)
			bi, _ := s.base.PortIndex(w.B.Port)
			Connect(outer, ai, outer, bi)
			continue
		}
		aInst, bInst := sub[w.A.Gate], sub[w.B.Gate]
		ai, _ := aInst.Spec.PortIndex(w.A.Port)
		bi, _ := bInst.Spec.PortIndex(w.B.Port)
		Connect(aInst, ai, bInst, bi)
	}

	for extPort, ep := range s.externalAlias {
		extIdx, _ := s.base.PortIndex(extPort)
		subInst := sub[ep.Gate]
		subIdx, _ := subInst.Spec.PortIndex(ep.Port)
		outer.outCells[extIdx] = subInst.outCells[subIdx]
		outer.inCells[extIdx] = subInst.inCells[subIdx]
	}

	outer.circuit = &circuitState{sub: sub, order: order}
	return outer, nil
}

func (s *CircuitSpec) behavior() behavior { return circuitBehavior{} }

type circuitBehavior struct{}

// propagate drives every sub-instance's own propagate, repeating the pass
// until a full round changes no sub-instance's outgoing tags, or
// 2*len(order)+2 rounds have run, whichever comes first. Repeating the pass
// is how multi-hop demand (A needs B needs C) settles within one
// circuit-level propagate call.
func (circuitBehavior) propagate(inst *Instance) ([]Tag, error) {
	cs := inst.circuit
	maxRounds := 2*len(cs.order) + 2
	for round := 0; round < maxRounds; round++ {
		changed := false
		for _, sub := range cs.order {
			before := snapshotTagsOutgoing(sub)
			if err := sub.Propagate(); err != nil {
				return nil, err
			}
			if !sameTagsOutgoing(sub, before) {
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	// The circuit's own outgoing tags are aliased directly onto sub-gate
	// cells and were already updated by the sub-instances' own Propagate
	// calls above; returning nil means Instance.Propagate's tag-writing
	// loop below is a no-op, instead of stomping them back to Void.
	return nil, nil
}

func snapshotTagsOutgoing(inst *Instance) []Tag {
	out := make([]Tag, inst.NumPorts())
	for p := range out {
		out[p] = inst.TagOutgoing(p)
	}
	return out
}

func sameTagsOutgoing(inst *Instance, snap []Tag) bool {
	for p, t := range snap {
		if inst.TagOutgoing(p) != t {
			return false
		}
	}
	return true
}

func (circuitBehavior) trigger(inst *Instance) (bool, error) {
	cs := inst.circuit
	cs.triggerable = cs.triggerable[:0]
	anyReady := false
	for _, sub := range cs.order {
		ready, err := sub.Trigger()
		if err != nil {
			return false, err
		}
		if ready {
			cs.triggerable = append(cs.triggerable, sub)
			anyReady = true
		}
	}
	return anyReady, nil
}

func (circuitBehavior) produce(inst *Instance) error {
	cs := inst.circuit
	for _, sub := range cs.triggerable {
		// An earlier sibling's produce in this same pass may have consumed a
		// port this sub-gate shares with it; skip it if it no longer matches.
		ready, err := sub.Trigger()
		if err != nil {
			return err
		}
		if !ready {
			continue
		}
		if err := sub.Produce(); err != nil {
			if sub.HandleVMError(asVMError(err)) {
				continue
			}
			return fmt.Errorf("vm: sub-gate %q of %q: %w", sub.ID, inst.Path(), err)
		}
	}
	return nil
}

func (circuitBehavior) handleVMError(inst *Instance, err *Error) bool {
	return false
}

func asVMError(err error) *Error {
	if ve, ok := err.(*Error); ok {
		return ve
	}
	return newError(KindDriver, err.Error(), nil)
}
