package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/rakunlabs/gatevm/internal/circuitdoc"
	"github.com/rakunlabs/gatevm/internal/store"
	"github.com/rakunlabs/gatevm/internal/vm"
)

// RegisterGateTools wires the gate-VM's MCP surface onto m: list_circuits,
// run_circuit, and describe_gate, so an LLM agent can discover and drive
// stored circuits as tools the same way AT's own tool surface let an agent
// drive workflows, adapted from pkg/mcp/{mcp,tools}.go's generic
// tool-registration shape.
func RegisterGateTools(m *MCP, st store.CircuitStorer, reg *circuitdoc.Registry, maxCycles int) {
	m.AddTool(Tool{
		Name:        "list_circuits",
		Description: "List the name and version of every stored circuit document",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}, listCircuitsHandler(st))

	m.AddTool(Tool{
		Name:        "describe_gate",
		Description: "Describe a registered gate type, or list every registered type if none is given",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"type": map[string]any{
					"type":        "string",
					"description": "Gate type name, e.g. \"add\" or \"distribute\"",
				},
			},
		},
	}, describeGateHandler(reg))

	m.AddTool(Tool{
		Name:        "run_circuit",
		Description: "Build an instance of a stored circuit and drive it once with the given port requests",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"circuit": map[string]any{
					"type":        "string",
					"description": "Name of the stored circuit document to run",
				},
				"requests": map[string]any{
					"type":        "array",
					"description": "Seed requests: [{\"port\": \"x\", \"value\": 1, \"tag\": \"req\"}]",
				},
			},
			"required": []string{"circuit"},
		},
	}, runCircuitHandler(st, reg, maxCycles))
}

func textResult(v any) (any, error) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"content": []map[string]any{
			{"type": "text", "text": string(body)},
		},
	}, nil
}

func listCircuitsHandler(st store.CircuitStorer) ToolHandler {
	return func(args map[string]any) (any, error) {
		records, err := st.ListCircuits(context.Background())
		if err != nil {
			return nil, err
		}

		out := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			out = append(out, map[string]any{
				"name":    rec.Name,
				"version": rec.Version,
			})
		}

		return textResult(out)
	}
}

func describeGateHandler(reg *circuitdoc.Registry) ToolHandler {
	return func(args map[string]any) (any, error) {
		if typeName, ok := args["type"].(string); ok && typeName != "" {
			if reg.Factory(typeName) == nil {
				return nil, fmt.Errorf("unknown gate type %q", typeName)
			}
			return textResult(map[string]any{"type": typeName})
		}
		return textResult(map[string]any{"types": reg.TypeNames()})
	}
}

func runCircuitHandler(st store.CircuitStorer, reg *circuitdoc.Registry, maxCycles int) ToolHandler {
	return func(args map[string]any) (any, error) {
		name, _ := args["circuit"].(string)
		if name == "" {
			return nil, fmt.Errorf("missing or invalid 'circuit' parameter")
		}

		ctx := context.Background()
		rec, err := st.GetCircuit(ctx, name)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, fmt.Errorf("circuit %q not found", name)
		}

		doc, err := circuitdoc.Parse([]byte(rec.Body))
		if err != nil {
			return nil, err
		}
		spec, err := circuitdoc.Build(doc, reg)
		if err != nil {
			return nil, err
		}

		inst, err := spec.MakeInstance("", "mcp_"+ulid.Make().String())
		if err != nil {
			return nil, err
		}

		requests, err := decodeRequests(args["requests"])
		if err != nil {
			return nil, err
		}

		result, err := vm.RunOnce(inst, requests, vm.Options{MaxCycles: maxCycles})
		if err != nil {
			return nil, err
		}

		outputs := make(map[string]any, len(result.Outputs))
		for port, v := range result.Outputs {
			if payload, ok := v.Payload(); ok {
				outputs[port] = payload
			}
		}

		return textResult(map[string]any{
			"cycles":    result.Cycles,
			"converged": result.Converged,
			"outputs":   outputs,
		})
	}
}

// decodeRequests accepts the JSON-decoded "requests" argument, a []any of
// {"port", "value", "tag"} objects, and turns it into vm.Request values.
func decodeRequests(raw any) ([]vm.Request, error) {
	items, ok := raw.([]any)
	if !ok {
		if raw == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("'requests' must be an array")
	}

	out := make([]vm.Request, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("each request must be an object")
		}

		port, _ := obj["port"].(string)
		if port == "" {
			return nil, fmt.Errorf("request is missing 'port'")
		}

		req := vm.Request{Port: port}
		if tagName, ok := obj["tag"].(string); ok {
			tag, err := tagFromName(tagName)
			if err != nil {
				return nil, err
			}
			req.Tag = tag
		}
		if v, ok := obj["value"]; ok && v != nil {
			req.Value = vm.Some(v)
		}

		out = append(out, req)
	}

	return out, nil
}

func tagFromName(name string) (vm.Tag, error) {
	switch name {
	case "", "void":
		return vm.Void, nil
	case "avail":
		return vm.Avail, nil
	case "notag":
		return vm.NoTag, nil
	case "req", "request":
		return vm.Req, nil
	case "reset":
		return vm.Reset, nil
	default:
		return vm.Void, fmt.Errorf("unknown tag %q", name)
	}
}
