package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRunCircuit(t *testing.T) {
	s := newTestServer(t)

	createReq := httptest.NewRequest(http.MethodPost, "/api/v1/circuits", strings.NewReader(addOneCircuitYAML))
	createRec := httptest.NewRecorder()
	s.CreateCircuitAPI(createRec, createReq)
	if createRec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", createRec.Code, createRec.Body.String())
	}

	body := `{"requests":[{"port":"out","tag":"req"}]}`
	runReq := httptest.NewRequest(http.MethodPost, "/api/v1/circuits/add_one/run", strings.NewReader(body))
	runRec := httptest.NewRecorder()
	s.RunCircuitAPI(runRec, runReq)
	if runRec.Code != http.StatusOK {
		t.Fatalf("run status = %d, body = %s", runRec.Code, runRec.Body.String())
	}

	var got runResponse
	if err := json.Unmarshal(runRec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, ok := got.Outputs["out"].(float64); !ok || v != 41 {
		t.Errorf("outputs[out] = %v, want 41", got.Outputs["out"])
	}
}

func TestRunCircuitMissing(t *testing.T) {
	s := newTestServer(t)

	runReq := httptest.NewRequest(http.MethodPost, "/api/v1/circuits/nope/run", strings.NewReader(`{}`))
	runRec := httptest.NewRecorder()
	s.RunCircuitAPI(runRec, runReq)
	if runRec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", runRec.Code)
	}
}

const streamAddCircuitYAML = `
name: stream_add
ports: [a, b, out, error]
nodes:
  - id: adder
    type: add
wires:
  - a: {port: a}
    b: {node: adder, port: a}
  - a: {port: b}
    b: {node: adder, port: b}
  - a: {node: adder, port: out}
    b: {port: out}
  - a: {node: adder, port: error}
    b: {port: error}
`

// TestRunStreamCircuit feeds two input streams through an add gate and
// checks the out/error sequences it collects, one element per stream
// position, in lockstep with "a" and "b".
func TestRunStreamCircuit(t *testing.T) {
	s := newTestServer(t)

	createReq := httptest.NewRequest(http.MethodPost, "/api/v1/circuits", strings.NewReader(streamAddCircuitYAML))
	createRec := httptest.NewRecorder()
	s.CreateCircuitAPI(createRec, createReq)
	if createRec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", createRec.Code, createRec.Body.String())
	}

	body := `{
		"streams": {"a": [1, 20, 300], "b": [6, 50, 400]},
		"requests": ["out", "error"]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/circuits/stream_add/run-stream", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.RunStreamCircuitAPI(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var got struct {
		RunID   string           `json:"run_id"`
		Results map[string][]any `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	wantOut := []float64{7, 70, 700}
	outs := got.Results["out"]
	if len(outs) != len(wantOut) {
		t.Fatalf("len(out) = %d, want %d (%v)", len(outs), len(wantOut), outs)
	}
	for i, want := range wantOut {
		v, ok := outs[i].(float64)
		if !ok || v != want {
			t.Errorf("out[%d] = %v, want %v", i, outs[i], want)
		}
	}

	errs := got.Results["error"]
	if len(errs) != len(wantOut) {
		t.Fatalf("len(error) = %d, want %d (%v)", len(errs), len(wantOut), errs)
	}
	for i, e := range errs {
		if e != nil {
			t.Errorf("error[%d] = %v, want nil (VOID)", i, e)
		}
	}
}

func TestCancelUnknownRun(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs/does-not-exist/cancel", nil)
	rec := httptest.NewRecorder()
	s.CancelRunAPI(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
