package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rakunlabs/gatevm/internal/circuitdoc"
	"github.com/rakunlabs/gatevm/internal/vm"
)

// activeRun tracks a single in-flight run_stream execution so it can be
// listed and cancelled while it runs.
type activeRun struct {
	ID        string             `json:"id"`
	Circuit   string             `json:"circuit"`
	StartedAt time.Time          `json:"started_at"`
	Cancel    context.CancelFunc `json:"-"`
}

type activeRunResponse struct {
	ID        string `json:"id"`
	Circuit   string `json:"circuit"`
	StartedAt string `json:"started_at"`
	Duration  string `json:"duration"`
}

type activeRunsResponse struct {
	Runs []activeRunResponse `json:"runs"`
}

// requestDoc is the JSON wire shape of a vm.Request.
type requestDoc struct {
	Port  string `json:"port"`
	Value any    `json:"value,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

func (d requestDoc) toRequest() (vm.Request, error) {
	tag, err := parseTag(d.Tag)
	if err != nil {
		return vm.Request{}, err
	}
	req := vm.Request{Port: d.Port, Tag: tag}
	if d.Value != nil {
		req.Value = vm.Some(d.Value)
	}
	return req, nil
}

func parseTag(s string) (vm.Tag, error) {
	switch strings.ToLower(s) {
	case "":
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
		return vm.Void, fmt.Errorf("unknown tag %q", s)
	}
}

type runRequestBody struct {
	Requests []requestDoc `json:"requests"`
}

type runResponse struct {
	Cycles    int            `json:"cycles"`
	Converged bool           `json:"converged"`
	Outputs   map[string]any `json:"outputs"`
}

// runStreamRequestBody is the wire shape of run_stream: streams binds
// external input ports to a pre-materialized sequence of values (the lazy
// sequence of the driver's own run_stream, flattened for JSON transport),
// and requests names the external output ports whose produced values
// should be collected as they appear.
type runStreamRequestBody struct {
	Streams  map[string][]any `json:"streams"`
	Requests []string         `json:"requests"`
}

// RunCircuitAPI handles POST /api/v1/circuits/{name}/run: load the named
// circuit, build a fresh instance, and drive it through run_once with the
// request body's seed requests.
func (s *Server) RunCircuitAPI(w http.ResponseWriter, r *http.Request) {
	name := extractCircuitName(r, "/run")
	if name == "" {
		httpResponse(w, "circuit name is required", http.StatusBadRequest)
		return
	}

	var body runRequestBody
	if err := decodeBody(r, &body); err != nil {
		httpResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	inst, err := s.loadInstance(r.Context(), name)
	if err != nil {
		httpResponse(w, err.Error(), http.StatusNotFound)
		return
	}

	requests, err := toRequests(body.Requests)
	if err != nil {
		httpResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := vm.RunOnce(inst, requests, vm.Options{MaxCycles: s.maxCycles})
	if err != nil {
		httpResponse(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	httpResponseJSON(w, toRunResponse(result), http.StatusOK)
}

// RunStreamCircuitAPI handles POST /api/v1/circuits/{name}/run-stream: drive
// one instance with its inputs bound to the request body's value sequences
// instead of fixed values, registering the execution as an active run so it
// shows up in ListActiveRunsAPI and can be cancelled via CancelRunAPI before
// it starts.
func (s *Server) RunStreamCircuitAPI(w http.ResponseWriter, r *http.Request) {
	name := extractCircuitName(r, "/run-stream")
	if name == "" {
		httpResponse(w, "circuit name is required", http.StatusBadRequest)
		return
	}

	var body runStreamRequestBody
	if err := decodeBody(r, &body); err != nil {
		httpResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(body.Requests) == 0 {
		httpResponse(w, "at least one request port is required", http.StatusBadRequest)
		return
	}

	inst, err := s.loadInstance(r.Context(), name)
	if err != nil {
		httpResponse(w, err.Error(), http.StatusNotFound)
		return
	}

	streams := make(map[string]vm.Stream, len(body.Streams))
	for port, values := range body.Streams {
		vals := make([]vm.Value, len(values))
		for i, v := range values {
			vals[i] = vm.Some(v)
		}
		streams[port] = vm.NewSliceStream(vals...)
	}

	runID, ctx, cleanup := s.registerRun(r.Context(), name)
	defer cleanup()

	// vm.RunStream pulls stream elements strictly as demand reaches them, but
	// the call itself runs to quiescence in one uninterrupted pass — the
	// same constraint RunOnce has — so a cancel signal only takes effect if
	// it lands before this point; there is no mid-run cancellation point to
	// poll once the call below starts.
	if ctx.Err() != nil {
		httpResponse(w, "run cancelled", http.StatusGone)
		return
	}

	results, err := vm.RunStream(inst, streams, body.Requests, vm.Options{MaxCycles: s.maxCycles})
	if err != nil {
		httpResponse(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	httpResponseJSON(w, struct {
		RunID   string           `json:"run_id"`
		Results map[string][]any `json:"results"`
	}{RunID: runID, Results: toStreamResponse(results)}, http.StatusOK)
}

func (s *Server) loadInstance(ctx context.Context, name string) (*vm.Instance, error) {
	rec, err := s.store.GetCircuit(ctx, name)
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
	spec, err := circuitdoc.Build(doc, s.registry)
	if err != nil {
		return nil, err
	}

	return spec.MakeInstance("", "run_"+ulid.Make().String())
}

func toRequests(docs []requestDoc) ([]vm.Request, error) {
	out := make([]vm.Request, 0, len(docs))
	for _, d := range docs {
		req, err := d.toRequest()
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

func toRunResponse(res *vm.RunResult) runResponse {
	outputs := make(map[string]any, len(res.Outputs))
	for port, v := range res.Outputs {
		if payload, ok := v.Payload(); ok {
			outputs[port] = payload
		}
	}
	return runResponse{Cycles: res.Cycles, Converged: res.Converged, Outputs: outputs}
}

func toStreamResponse(results map[string][]vm.Value) map[string][]any {
	out := make(map[string][]any, len(results))
	for port, vals := range results {
		list := make([]any, len(vals))
		for i, v := range vals {
			payload, _ := v.Payload()
			list[i] = payload
		}
		out[port] = list
	}
	return out
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// registerRun creates a cancellable context, registers the run, and returns
// the run ID, derived context, and a cleanup function that must be deferred.
func (s *Server) registerRun(parent context.Context, circuit string) (string, context.Context, func()) {
	runID := "run_" + ulid.Make().String()
	ctx, cancel := context.WithCancel(parent)

	run := &activeRun{
		ID:        runID,
		Circuit:   circuit,
		StartedAt: time.Now(),
		Cancel:    cancel,
	}
	s.activeRuns.Store(runID, run)

	cleanup := func() {
		s.activeRuns.Delete(runID)
		cancel()
	}

	return runID, ctx, cleanup
}

// ListActiveRunsAPI handles GET /api/v1/runs.
func (s *Server) ListActiveRunsAPI(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	var runs []activeRunResponse

	s.activeRuns.Range(func(key, value any) bool {
		run := value.(*activeRun)
		runs = append(runs, activeRunResponse{
			ID:        run.ID,
			Circuit:   run.Circuit,
			StartedAt: run.StartedAt.UTC().Format(time.RFC3339),
			Duration:  now.Sub(run.StartedAt).Truncate(time.Second).String(),
		})
		return true
	})

	if runs == nil {
		runs = []activeRunResponse{}
	}

	httpResponseJSON(w, activeRunsResponse{Runs: runs}, http.StatusOK)
}

// CancelRunAPI handles POST /api/v1/runs/{run_id}/cancel.
func (s *Server) CancelRunAPI(w http.ResponseWriter, r *http.Request) {
	runID := extractRunID(r)
	if runID == "" {
		httpResponse(w, "run id is required", http.StatusBadRequest)
		return
	}

	val, ok := s.activeRuns.Load(runID)
	if !ok {
		httpResponse(w, fmt.Sprintf("run %q not found or already completed", runID), http.StatusNotFound)
		return
	}

	run := val.(*activeRun)
	run.Cancel()

	httpResponseJSON(w, map[string]any{
		"message": "cancel signal sent",
		"run_id":  runID,
	}, http.StatusOK)
}

// extractRunID extracts the run ID from cancel URLs.
// Expected path: /api/v1/runs/{run_id}/cancel
func extractRunID(r *http.Request) string {
	path := r.URL.Path
	const prefix = "/api/v1/runs/"
	if !strings.HasPrefix(path, prefix) {
		return ""
	}

	rest := strings.TrimPrefix(path, prefix)
	rest = strings.TrimSuffix(rest, "/cancel")
	rest = strings.TrimSuffix(rest, "/")

	return rest
}
