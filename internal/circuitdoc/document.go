package circuitdoc

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/rakunlabs/gatevm/internal/vm"
)

// Document is the serializable description of one circuit: its external
// ports, its named sub-gates (by registered type + parameters), and its
// wire list. YAML rather than JSON, since a circuit document is meant to
// be hand-authored as readable source, not just machine-emitted.
type Document struct {
	// Name identifies the circuit for storage and the HTTP/MCP surfaces.
	Name string `yaml:"name"`
	// Ports lists the circuit's own external port names, in order.
	Ports []string `yaml:"ports"`
	// Nodes lists the sub-gates, by id.
	Nodes []NodeDoc `yaml:"nodes"`
	// Wires lists the connections between node ports and/or external ports.
	Wires []WireDoc `yaml:"wires"`
}

// NodeDoc names one sub-gate: its id within the document, its registered
// gate type, and the type-specific parameters a Registry factory consumes.
type NodeDoc struct {
	ID     string         `yaml:"id"`
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:"params"`
}

// EndpointDoc names one side of a wire. An empty Node means "this
// document's own external port named Port"; otherwise it names a node's
// port by the node's id.
type EndpointDoc struct {
	Node string `yaml:"node,omitempty"`
	Port string `yaml:"port"`
}

// WireDoc connects two endpoints.
type WireDoc struct {
	A EndpointDoc `yaml:"a"`
	B EndpointDoc `yaml:"b"`
}

// Parse decodes a YAML circuit document.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("circuitdoc: parse: %w", err)
	}
	if doc.Name == "" {
		return Document{}, fmt.Errorf("circuitdoc: document has no name")
	}
	return doc, nil
}

// Marshal encodes a Document back to YAML, for round-tripping through a
// CircuitStorer.
func Marshal(doc Document) ([]byte, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("circuitdoc: marshal: %w", err)
	}
	return data, nil
}

// Build resolves a Document's nodes through the registry and assembles a
// reusable vm.CircuitSpec from its wire list.
func Build(doc Document, reg *Registry) (*vm.CircuitSpec, error) {
	subGates := make([]vm.SubGate, 0, len(doc.Nodes))
	for _, n := range doc.Nodes {
		spec, err := reg.Build(n)
		if err != nil {
			return nil, err
		}
		subGates = append(subGates, vm.SubGate{ID: n.ID, Spec: spec})
	}

	wires := make([]vm.Wire, 0, len(doc.Wires))
	for _, w := range doc.Wires {
		wires = append(wires, vm.Wire{
			A: vm.Endpoint{Gate: w.A.Node, Port: w.A.Port},
			B: vm.Endpoint{Gate: w.B.Node, Port: w.B.Port},
		})
	}

	spec, err := vm.NewCircuitSpec(doc.Name, doc.Ports, subGates, wires)
	if err != nil {
		return nil, fmt.Errorf("circuitdoc: build circuit %q: %w", doc.Name, err)
	}
	return spec, nil
}
