package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rakunlabs/into"
	"github.com/rakunlabs/logi"

	"github.com/rakunlabs/gatevm/internal/circuitdoc"
	"github.com/rakunlabs/gatevm/internal/config"
	"github.com/rakunlabs/gatevm/internal/schedule"
	"github.com/rakunlabs/gatevm/internal/server"
	"github.com/rakunlabs/gatevm/internal/store"
	"github.com/rakunlabs/gatevm/internal/vm"
	"github.com/rakunlabs/gatevm/pkg/mcp"
)

var (
	name    = "gatevm"
	version = "v0.0.0"
)

func main() {
	config.Service = name + "/" + version

	into.Init(run,
		into.WithLogger(logi.InitializeLog(logi.WithCaller(false))),
		into.WithMsgf("%s [%s]", name, version),
	)
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to build circuit store: %w", err)
	}
	defer st.Close()

	registry := circuitdoc.NewStandardRegistry()

	jobs, err := schedule.JobsFromConfig(cfg.Schedule)
	if err != nil {
		return fmt.Errorf("failed to parse schedule jobs: %w", err)
	}
	if len(jobs) > 0 {
		sched := schedule.New(st, registry, cfg.Driver.MaxCycles)
		sched.SetRunObserver(func(job schedule.Job, runID string, result *vm.RunResult, runErr error) {
			if runErr != nil {
				slog.Error("scheduled circuit run failed", "job", job.ID, "run_id", runID, "error", runErr)
			}
		})
		if err := sched.Start(ctx, jobs); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	mcpServer := mcp.New()
	mcp.RegisterGateTools(mcpServer, st, registry, cfg.Driver.MaxCycles)

	srv, err := server.New(cfg.Server, st, registry, cfg.Driver.MaxCycles, mcpServer)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	slog.Info("starting gatevm", "port", cfg.Server.Port)

	return srv.Start(ctx)
}
