package circuitdoc

import (
	"testing"

	"github.com/rakunlabs/gatevm/internal/vm"
)

func TestParseAndBuildCircuit(t *testing.T) {
	doc, err := Parse([]byte(addOneSinkYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Name != "add_one" {
		t.Fatalf("name = %q", doc.Name)
	}

	reg := NewStandardRegistry()
	spec, err := Build(doc, reg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	inst, err := spec.MakeInstance("", "c1")
	if err != nil {
		t.Fatalf("MakeInstance: %v", err)
	}

	res, err := vm.RunOnce(inst, []vm.Request{
		{Port: "x", Value: vm.Some(41.0), Tag: vm.Avail},
		{Port: "out", Tag: vm.Req},
	}, vm.Options{MaxCycles: 10})
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	v, ok := res.Outputs["out"].Payload()
	if !ok || v != 42.0 {
		t.Errorf("out = %v, want 42", v)
	}
}

const addOneSinkYAML = `
name: add_one
ports: [x, out, debug]
nodes:
  - id: adder
    type: add
  - id: one
    type: constant
    params:
      value: 1
  - id: sink
    type: noop
wires:
  - a: {port: x}
    b: {node: adder, port: a}
  - a: {node: one, port: out}
    b: {node: adder, port: b}
  - a: {node: adder, port: out}
    b: {port: out}
  - a: {node: adder, port: error}
    b: {node: sink, port: in}
  - a: {node: sink, port: out}
    b: {port: debug}
`

func TestParseRejectsMissingName(t *testing.T) {
	_, err := Parse([]byte("ports: []\n"))
	if err == nil {
		t.Fatal("expected an error for a document without a name")
	}
}

func TestBuildUnknownNodeType(t *testing.T) {
	doc, err := Parse([]byte(`
name: bad
ports: [x]
nodes:
  - id: n1
    type: does_not_exist
wires:
  - a: {port: x}
    b: {node: n1, port: out}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	reg := NewStandardRegistry()
	if _, err := Build(doc, reg); err == nil {
		t.Fatal("expected an error for an unregistered node type")
	}
}
