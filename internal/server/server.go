package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/rakunlabs/ada"

	mcors "github.com/rakunlabs/ada/middleware/cors"
	mlog "github.com/rakunlabs/ada/middleware/log"
	mrecover "github.com/rakunlabs/ada/middleware/recover"
	mrequestid "github.com/rakunlabs/ada/middleware/requestid"
	mserver "github.com/rakunlabs/ada/middleware/server"
	mtelemetry "github.com/rakunlabs/ada/middleware/telemetry"

	"github.com/rakunlabs/gatevm/internal/circuitdoc"
	"github.com/rakunlabs/gatevm/internal/config"
	"github.com/rakunlabs/gatevm/internal/store"
)

// Server is the HTTP surface over a circuit store: CRUD on stored circuit
// documents plus on-demand run_once/run_stream execution.
type Server struct {
	config config.Server

	server *ada.Server

	store     store.CircuitStorer
	registry  *circuitdoc.Registry
	maxCycles int

	// activeRuns tracks in-flight run_stream executions so they can be
	// listed and cancelled.
	activeRuns sync.Map // run ID -> *activeRun
}

// New builds a Server wired to a circuit store and gate registry. maxCycles
// bounds every run_once/run_stream invocation the API triggers. mcpHandler,
// if non-nil, is mounted at /mcp as a plain sub-handler on the base group.
func New(cfg config.Server, st store.CircuitStorer, reg *circuitdoc.Registry, maxCycles int, mcpHandler http.Handler) (*Server, error) {
	mux := ada.New()
	mux.Use(
		mrecover.Middleware(),
		mserver.Middleware(config.Service),
		mcors.Middleware(),
		mrequestid.Middleware(),
		mlog.Middleware(),
		mtelemetry.Middleware(),
	)

	s := &Server{
		config:    cfg,
		server:    mux,
		store:     st,
		registry:  reg,
		maxCycles: maxCycles,
	}

	if cfg.BasePath != "" {
		slog.Info("configuring server with base path", "base_path", cfg.BasePath)
	}

	baseGroup := mux.Group(cfg.BasePath)
	apiGroup := baseGroup.Group("/api")

	apiGroup.GET("/v1/gates", s.ListGateTypesAPI)

	apiGroup.GET("/v1/circuits", s.ListCircuitsAPI)
	apiGroup.POST("/v1/circuits", s.CreateCircuitAPI)
	apiGroup.GET("/v1/circuits/*", s.GetCircuitAPI)
	apiGroup.PUT("/v1/circuits/*", s.UpdateCircuitAPI)
	apiGroup.DELETE("/v1/circuits/*", s.DeleteCircuitAPI)

	apiGroup.POST("/v1/circuits/*/run", s.RunCircuitAPI)
	apiGroup.POST("/v1/circuits/*/run-stream", s.RunStreamCircuitAPI)

	apiGroup.GET("/v1/runs", s.ListActiveRunsAPI)
	apiGroup.POST("/v1/runs/*/cancel", s.CancelRunAPI)

	if mcpHandler != nil {
		baseGroup.Handle("/mcp", mcpHandler)
	}

	return s, nil
}

func (s *Server) Start(ctx context.Context) error {
	return s.server.StartWithContext(ctx, net.JoinHostPort(s.config.Host, s.config.Port))
}
