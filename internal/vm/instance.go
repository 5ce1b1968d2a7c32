package vm

// cell is a shared wire cell: connecting two ports means pointing both
// sides at the same cell, so a write on one side is instantly visible on
// the other without a separate synchronization pass. Every port has two
// cells — one it writes (its outgoing) and one the peer writes (its
// incoming) — because a single port carries independent traffic in each
// direction: values/availability flowing one way, demand flowing the
// other.
type cell struct {
	value Value
	tag   Tag
}

// Connection describes the far end of a wire, for diagnostics and for
// circuit wiring-validation; it does not carry state itself (the shared
// cells do).
type Connection struct {
	Peer *Instance
	Port int
}

// Listener observes the mutations an Instance goes through during a run.
// It exists for diagnostics/visualization hooks external to the VM core —
// the VM itself never requires one, and the zero value (nil) is the common
// case.
type Listener interface {
	OnSetIncoming(inst *Instance, port int, v Value)
	OnSetOutgoing(inst *Instance, port int, v Value)
	OnSetTagIncoming(inst *Instance, port int, t Tag)
	OnSetTagOutgoing(inst *Instance, port int, t Tag)
	OnProduce(inst *Instance)
}

// Instance is a live, mutable gate: the port wires, their connections, and
// whatever private state the gate's behavior keeps between cycles. Every
// gate flavor (primitive, FunctionWrapper, circuit) is represented by the
// same Instance shape; only Spec.behavior() differs.
type Instance struct {
	Spec GateSpec
	Qual string
	ID   string

	outCells []*cell
	inCells  []*cell

	connections []*Connection

	state any

	listeners []Listener

	// circuit is non-nil only for instances built from a CircuitSpec; it
	// holds the sub-instance graph and per-cycle bookkeeping sets.
	circuit *circuitState
}

// NewInstance allocates an Instance with n ports, all void/NoTag/unwired.
// GateSpec.MakeInstance implementations use this to build the base shape
// before filling in behavior-specific state.
func NewInstance(spec GateSpec, qual, id string, numPorts int) *Instance {
	inst := &Instance{
		Spec:        spec,
		Qual:        qual,
		ID:          id,
		outCells:    make([]*cell, numPorts),
		inCells:     make([]*cell, numPorts),
		connections: make([]*Connection, numPorts),
	}
	for p := 0; p < numPorts; p++ {
		inst.outCells[p] = &cell{}
		inst.inCells[p] = &cell{}
	}
	return inst
}

// Path renders a dotted qualifier.id identity for diagnostics.
func (inst *Instance) Path() string {
	if inst.Qual == "" {
		return inst.ID
	}
	return inst.Qual + "." + inst.ID
}

func (inst *Instance) AddListener(l Listener) {
	if l != nil {
		inst.listeners = append(inst.listeners, l)
	}
}

// State returns the behavior-private state, and SetState replaces it. Only
// behavior implementations in this package and library gates built on
// CommonGateSpec use these directly.
func (inst *Instance) State() any     { return inst.state }
func (inst *Instance) SetState(s any) { inst.state = s }

func (inst *Instance) NumPorts() int { return len(inst.outCells) }

func (inst *Instance) Incoming(port int) Value       { return inst.inCells[port].value }
func (inst *Instance) Outgoing(port int) Value       { return inst.outCells[port].value }
func (inst *Instance) TagIncoming(port int) Tag      { return inst.inCells[port].tag }
func (inst *Instance) TagOutgoing(port int) Tag      { return inst.outCells[port].tag }
func (inst *Instance) ConnectionAt(port int) *Connection { return inst.connections[port] }

func (inst *Instance) SetIncoming(port int, v Value) {
	inst.inCells[port].value = v
	for _, l := range inst.listeners {
		l.OnSetIncoming(inst, port, v)
	}
}

func (inst *Instance) SetOutgoing(port int, v Value) {
	inst.outCells[port].value = v
	for _, l := range inst.listeners {
		l.OnSetOutgoing(inst, port, v)
	}
}

func (inst *Instance) SetTagIncoming(port int, t Tag) {
	inst.inCells[port].tag = t
	for _, l := range inst.listeners {
		l.OnSetTagIncoming(inst, port, t)
	}
}

func (inst *Instance) SetTagOutgoing(port int, t Tag) {
	inst.outCells[port].tag = t
	for _, l := range inst.listeners {
		l.OnSetTagOutgoing(inst, port, t)
	}
}

// Consume clears a port's value and tag in both directions — what this
// instance received and what it sent — the way produce() retires a port it
// just read or wrote. Because connected ports share cells, this is visible
// to the peer immediately; no separate synchronization pass is needed.
func (inst *Instance) Consume(port int) {
	inst.SetIncoming(port, VoidValue)
	inst.SetOutgoing(port, VoidValue)
	inst.SetTagIncoming(port, NoTag)
	inst.SetTagOutgoing(port, NoTag)
}

// Connect wires port `port` of inst to port `peerPort` of peer: it shares
// the wire cells crosswise so inst's outgoing cell is peer's incoming cell
// and vice versa.
func Connect(inst *Instance, port int, peer *Instance, peerPort int) {
	inst.connections[port] = &Connection{Peer: peer, Port: peerPort}
	peer.connections[peerPort] = &Connection{Peer: inst, Port: port}

	shared := inst.outCells[port]
	peer.inCells[peerPort] = shared

	peerShared := peer.outCells[peerPort]
	inst.inCells[port] = peerShared
}

// Propagate runs the backward phase for this instance: it asks the
// behavior to compute new outgoing tags from the current incoming tags,
// then writes them (and listeners observe the write).
func (inst *Instance) Propagate() error {
	tags, err := inst.Spec.behavior().propagate(inst)
	if err != nil {
		return err
	}
	for port, t := range tags {
		inst.SetTagOutgoing(port, t)
	}
	return nil
}

// Trigger reports whether the instance has a ready computation this cycle,
// without running it.
func (inst *Instance) Trigger() (bool, error) {
	return inst.Spec.behavior().trigger(inst)
}

// Produce runs the computation Trigger found ready.
func (inst *Instance) Produce() error {
	err := inst.Spec.behavior().produce(inst)
	if err == nil {
		for _, l := range inst.listeners {
			l.OnProduce(inst)
		}
	}
	return err
}

// HandleVMError offers the instance's behavior a chance to recover from a
// structural/runtime error before the driver gives up on the run.
func (inst *Instance) HandleVMError(err *Error) bool {
	return inst.Spec.behavior().handleVMError(inst, err)
}
