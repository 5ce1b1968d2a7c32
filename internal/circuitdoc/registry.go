// Package circuitdoc turns a serialized circuit description into a live
// vm.GateSpec. A document names its external ports, its sub-gates (by
// registered type name plus parameters), and its wire list — the gate-VM
// stand-in for "whatever the front-end's compiler emits" (spec.md §6 leaves
// that production step external to the core).
package circuitdoc

import (
	"fmt"
	"sync"

	"github.com/rakunlabs/gatevm/internal/vm"
)

// GateFactory builds a vm.GateSpec from a node's parameters. id is the
// node's name within its document, used for gates whose name should be
// unique within the circuit (mainly diagnostics).
type GateFactory func(id string, params map[string]any) (vm.GateSpec, error)

// Registry resolves a document node's type name to the GateFactory that
// builds it. It is an instance a caller can construct, extend, and pass
// around rather than a package-level map, so more than one registry
// (e.g. a restricted one for untrusted documents) can coexist.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]GateFactory
}

// NewRegistry builds an empty registry. Use NewStandardRegistry for one
// pre-populated with every internal/vm/library gate.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]GateFactory)}
}

// Register adds a factory for typeName. It overwrites any previous
// registration for the same name.
func (r *Registry) Register(typeName string, factory GateFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[typeName] = factory
}

// Factory returns the factory registered for typeName, or nil if none is.
func (r *Registry) Factory(typeName string) GateFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.factories[typeName]
}

// TypeNames returns every registered type name.
func (r *Registry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	return names
}

// Build resolves a single NodeDoc to a vm.GateSpec via its registered
// factory.
func (r *Registry) Build(node NodeDoc) (vm.GateSpec, error) {
	factory := r.Factory(node.Type)
	if factory == nil {
		return nil, fmt.Errorf("circuitdoc: no gate type registered for %q (node %q)", node.Type, node.ID)
	}
	spec, err := factory(node.ID, node.Params)
	if err != nil {
		return nil, fmt.Errorf("circuitdoc: build node %q (type %q): %w", node.ID, node.Type, err)
	}
	return spec, nil
}
