package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rakunlabs/gatevm/internal/circuitdoc"
	"github.com/rakunlabs/gatevm/internal/config"
	"github.com/rakunlabs/gatevm/internal/store/memory"
)

const addOneCircuitYAML = `
name: add_one
ports: [out]
nodes:
  - id: c
    type: constant
    params:
      value: 41
wires:
  - a: {node: c, port: out}
    b: {port: out}
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st := memory.New()
	srv, err := New(
		config.Server{Port: "0"},
		st,
		circuitdoc.NewStandardRegistry(),
		10,
		nil,
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func TestCreateAndGetCircuit(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/circuits", strings.NewReader(addOneCircuitYAML))
	rec := httptest.NewRecorder()
	s.CreateCircuitAPI(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/circuits/add_one", nil)
	getRec := httptest.NewRecorder()
	s.GetCircuitAPI(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", getRec.Code, getRec.Body.String())
	}

	var got circuitResponse
	if err := json.Unmarshal(getRec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Name != "add_one" || got.Version != 1 {
		t.Errorf("got = %+v, want name=add_one version=1", got)
	}
}

func TestUpdateCircuitRejectsNameMismatch(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/circuits/other_name", strings.NewReader(addOneCircuitYAML))
	rec := httptest.NewRecorder()
	s.UpdateCircuitAPI(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
}

func TestGetCircuitMissing(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/circuits/nope", nil)
	rec := httptest.NewRecorder()
	s.GetCircuitAPI(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListGateTypes(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/gates", nil)
	rec := httptest.NewRecorder()
	s.ListGateTypesAPI(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "constant") {
		t.Errorf("body = %s, want it to list the constant gate type", rec.Body.String())
	}
}
