package vm

import "fmt"

// GateSpec is the immutable description shared by every gate flavor: its
// name, its ports, and enough behavior to build an Instance and drive it
// through propagate/trigger/produce. CommonGateSpec (primitives and
// FunctionWrapper) and CircuitSpec both satisfy it, so a circuit can embed
// another circuit as an ordinary sub-gate without any special-casing at the
// Instance level.
type GateSpec interface {
	// Name identifies the gate kind, for diagnostics and circuit documents.
	Name() string

	// Ports returns the port names in declaration order.
	Ports() []string

	// PortIndex resolves a port name to its position, or an error if the
	// spec has no such port.
	PortIndex(name string) (int, error)

	// PortName resolves a port position back to its name.
	PortName(index int) (string, error)

	// SameSignature reports whether two specs have identical port lists,
	// in order.
	SameSignature(other GateSpec) bool

	// MakeInstance builds a fresh, unconnected Instance of this gate,
	// identified by qualifier (its owning circuit's instance path, "" at
	// top level) and id (its name within that circuit).
	MakeInstance(qual, id string) (*Instance, error)

	// behavior returns the strategy object Instance delegates
	// propagate/trigger/produce to. Unexported: only this package's own
	// GateSpec implementations may provide one.
	behavior() behavior
}

// behavior is the internal strategy interface every GateSpec implementation
// supplies to the instances it creates. It is unexported because the three
// public contracts (propagate/trigger/produce) are meant to be reached only
// through Instance, which enforces the array bookkeeping around them.
type behavior interface {
	// propagate computes new outgoing tags from the instance's current
	// incoming tags (the backward phase).
	propagate(inst *Instance) ([]Tag, error)

	// trigger reports whether the instance currently has a ready
	// computation, without running it.
	trigger(inst *Instance) (bool, error)

	// produce runs the computation trigger selected, updates the
	// instance's state and outgoing values, and consumes the incoming
	// ports that computation absorbed.
	produce(inst *Instance) error

	// handleVMError lets the gate recover from a structural/runtime error
	// instead of propagating it to the driver. ok=false means the error
	// is fatal and the driver should abort the run.
	handleVMError(inst *Instance, err *Error) (ok bool)
}

// baseSpec is embedded by every concrete GateSpec to give it the
// name/ports/index bookkeeping common to all of them.
type baseSpec struct {
	name  string
	ports []string
	index map[string]int
}

func newBaseSpec(name string, ports []string) (baseSpec, error) {
	index := make(map[string]int, len(ports))
	for i, p := range ports {
		if _, dup := index[p]; dup {
			return baseSpec{}, fmt.Errorf("vm: gate %q declares port %q twice", name, p)
		}
		index[p] = i
	}
	return baseSpec{name: name, ports: append([]string(nil), ports...), index: index}, nil
}

func (b baseSpec) Name() string    { return b.name }
func (b baseSpec) Ports() []string { return append([]string(nil), b.ports...) }

func (b baseSpec) PortIndex(name string) (int, error) {
	i, ok := b.index[name]
	if !ok {
		return 0, errPortUnknown(b.name, name)
	}
	return i, nil
}

func (b baseSpec) PortName(index int) (string, error) {
	if index < 0 || index >= len(b.ports) {
		return "", errPortUnknown(b.name, fmt.Sprintf("#%d", index))
	}
	return b.ports[index], nil
}

func (b baseSpec) sameSignature(other baseSpec) bool {
	if len(b.ports) != len(other.ports) {
		return false
	}
	for i, p := range b.ports {
		if other.ports[i] != p {
			return false
		}
	}
	return true
}
