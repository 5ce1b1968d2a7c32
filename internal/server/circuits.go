package server

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rakunlabs/gatevm/internal/circuitdoc"
)

// circuitResponse is the JSON-safe view of a stored circuit document.
type circuitResponse struct {
	Name      string `json:"name"`
	Version   int    `json:"version"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type circuitsResponse struct {
	Circuits []circuitResponse `json:"circuits"`
}

// gateTypeResponse describes one registered gate type, the same
// information describe_gate reports over MCP.
type gateTypeResponse struct {
	Type string `json:"type"`
}

// extractCircuitName pulls the circuit name out of a request path after
// stripping the given trailing suffix (e.g. "/run", "/run-stream").
func extractCircuitName(r *http.Request, suffix string) string {
	const prefix = "/api/v1/circuits/"
	path := r.URL.Path
	idx := strings.Index(path, prefix)
	if idx < 0 {
		return ""
	}
	rest := path[idx+len(prefix):]
	rest = strings.TrimSuffix(rest, suffix)
	rest = strings.TrimSuffix(rest, "/")
	return rest
}

// ListGateTypesAPI handles GET /api/v1/gates.
func (s *Server) ListGateTypesAPI(w http.ResponseWriter, r *http.Request) {
	names := s.registry.TypeNames()
	types := make([]gateTypeResponse, 0, len(names))
	for _, n := range names {
		types = append(types, gateTypeResponse{Type: n})
	}
	httpResponseJSON(w, struct {
		Gates []gateTypeResponse `json:"gates"`
	}{Gates: types}, http.StatusOK)
}

// ListCircuitsAPI handles GET /api/v1/circuits.
func (s *Server) ListCircuitsAPI(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListCircuits(r.Context())
	if err != nil {
		httpResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out := make([]circuitResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toCircuitResponse(rec.Name, rec.Version, rec.Body, rec.CreatedAt, rec.UpdatedAt))
	}

	httpResponseJSON(w, circuitsResponse{Circuits: out}, http.StatusOK)
}

// GetCircuitAPI handles GET /api/v1/circuits/{name}.
func (s *Server) GetCircuitAPI(w http.ResponseWriter, r *http.Request) {
	name := extractCircuitName(r, "")
	if name == "" {
		httpResponse(w, "circuit name is required", http.StatusBadRequest)
		return
	}

	rec, err := s.store.GetCircuit(r.Context(), name)
	if err != nil {
		httpResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rec == nil {
		httpResponse(w, "circuit not found", http.StatusNotFound)
		return
	}

	httpResponseJSON(w, toCircuitResponse(rec.Name, rec.Version, rec.Body, rec.CreatedAt, rec.UpdatedAt), http.StatusOK)
}

// CreateCircuitAPI handles POST /api/v1/circuits. The body is a raw YAML
// circuit document; it is parsed and built against the gate registry
// before being stored, so a malformed or unresolvable document never
// reaches the store.
func (s *Server) CreateCircuitAPI(w http.ResponseWriter, r *http.Request) {
	s.putCircuit(w, r, "")
}

// UpdateCircuitAPI handles PUT /api/v1/circuits/{name}.
func (s *Server) UpdateCircuitAPI(w http.ResponseWriter, r *http.Request) {
	name := extractCircuitName(r, "")
	if name == "" {
		httpResponse(w, "circuit name is required", http.StatusBadRequest)
		return
	}
	s.putCircuit(w, r, name)
}

func (s *Server) putCircuit(w http.ResponseWriter, r *http.Request, name string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httpResponse(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	doc, err := circuitdoc.Parse(body)
	if err != nil {
		httpResponse(w, "invalid circuit document: "+err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := circuitdoc.Build(doc, s.registry); err != nil {
		httpResponse(w, "circuit does not build: "+err.Error(), http.StatusBadRequest)
		return
	}

	storeName := name
	if storeName == "" {
		storeName = doc.Name
	}
	if storeName != doc.Name {
		httpResponse(w, "circuit document name does not match the resource name", http.StatusBadRequest)
		return
	}

	rec, err := s.store.PutCircuit(r.Context(), storeName, string(body))
	if err != nil {
		httpResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}

	code := http.StatusOK
	if rec.Version == 1 {
		code = http.StatusCreated
	}
	httpResponseJSON(w, toCircuitResponse(rec.Name, rec.Version, rec.Body, rec.CreatedAt, rec.UpdatedAt), code)
}

// DeleteCircuitAPI handles DELETE /api/v1/circuits/{name}.
func (s *Server) DeleteCircuitAPI(w http.ResponseWriter, r *http.Request) {
	name := extractCircuitName(r, "")
	if name == "" {
		httpResponse(w, "circuit name is required", http.StatusBadRequest)
		return
	}

	if err := s.store.DeleteCircuit(r.Context(), name); err != nil {
		httpResponse(w, err.Error(), http.StatusNotFound)
		return
	}

	httpResponse(w, "circuit deleted", http.StatusOK)
}

func toCircuitResponse(name string, version int, body string, createdAt, updatedAt time.Time) circuitResponse {
	return circuitResponse{
		Name:      name,
		Version:   version,
		Body:      body,
		CreatedAt: createdAt.UTC().Format(time.RFC3339),
		UpdatedAt: updatedAt.UTC().Format(time.RFC3339),
	}
}
