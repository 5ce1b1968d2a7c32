// Package schedule runs stored circuit documents on a cron schedule: load
// by name, build an instance, drive it with run_once. A gate-VM process
// is single-instance and non-distributed, so the scheduler never needs to
// negotiate cron ownership with peers.
package schedule

import (
	"context"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/rakunlabs/logi"
	"github.com/worldline-go/hardloop"

	"github.com/rakunlabs/gatevm/internal/circuitdoc"
	"github.com/rakunlabs/gatevm/internal/store"
	"github.com/rakunlabs/gatevm/internal/vm"
)

// cronRunner is satisfied by hardloop's unexported *cronJob type (returned
// by hardloop.NewCron); the concrete type cannot be named, so this narrow
// interface stands in for it.
type cronRunner interface {
	Start(ctx context.Context) error
	Stop()
}

// Job describes one scheduled circuit run: the circuit to load, the cron
// spec to fire it on, and the seed requests to drive into it every tick.
type Job struct {
	ID       string
	Circuit  string
	CronSpec string
	Requests []vm.Request
}

// RunObserver is notified after every scheduled run completes, success or
// failure. There is no cancellation half to offer: a single run_once call
// has no mid-flight cancellation point.
type RunObserver func(job Job, runID string, result *vm.RunResult, err error)

// Scheduler loads circuit documents by name and drives them with run_once
// on a cron schedule, via worldline-go/hardloop.
type Scheduler struct {
	store    store.CircuitStorer
	registry *circuitdoc.Registry
	observer RunObserver
	maxCycles int

	mu     sync.Mutex
	cron   cronRunner
	cancel context.CancelFunc
	ctx    context.Context
}

// New builds a Scheduler. maxCycles bounds every scheduled run_once with
// the same runaway guard the driver exposes to the HTTP surface.
func New(st store.CircuitStorer, reg *circuitdoc.Registry, maxCycles int) *Scheduler {
	return &Scheduler{store: st, registry: reg, maxCycles: maxCycles}
}

// SetRunObserver sets the callback invoked after every scheduled run.
// Must be called before Start.
func (s *Scheduler) SetRunObserver(o RunObserver) {
	s.observer = o
}

// Start builds the cron runner from jobs and starts it. Call Reload after
// the job set changes, since hardloop's cron runner does not support
// adding/removing jobs once started.
func (s *Scheduler) Start(ctx context.Context, jobs []Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx = ctx
	return s.reload(jobs)
}

// Reload stops the current cron runner and rebuilds it from jobs.
func (s *Scheduler) Reload(jobs []Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.reload(jobs)
}

// Stop stops the scheduler. Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
}

func (s *Scheduler) reload(jobs []Job) error {
	s.stopLocked()

	if s.ctx == nil || len(jobs) == 0 {
		logi.Ctx(s.ctx).Info("schedule: no jobs configured")
		return nil
	}

	crons := make([]hardloop.Cron, 0, len(jobs))
	for _, j := range jobs {
		job := j
		crons = append(crons, hardloop.Cron{
			Name:  fmt.Sprintf("circuit-%s", job.ID),
			Specs: []string{job.CronSpec},
			Func:  s.makeCronFunc(job),
		})
	}

	cronJob, err := hardloop.NewCron(crons...)
	if err != nil {
		return fmt.Errorf("schedule: create cron runner: %w", err)
	}

	ctx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel
	s.cron = cronJob

	if err := cronJob.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("schedule: start cron runner: %w", err)
	}

	logi.Ctx(s.ctx).Info("schedule: started cron jobs", "count", len(crons))
	return nil
}

// makeCronFunc returns the function hardloop calls on each tick for job:
// load the named circuit, build an instance, run it once, report through
// the observer. Errors are logged and swallowed rather than returned, so
// one bad tick never stops the cron loop.
func (s *Scheduler) makeCronFunc(job Job) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		runID := ulid.Make().String()
		logi.Ctx(ctx).Info("schedule: cron triggered", "job_id", job.ID, "circuit", job.Circuit, "run_id", runID)

		rec, err := s.store.GetCircuit(ctx, job.Circuit)
		if err != nil {
			logi.Ctx(ctx).Error("schedule: load circuit failed", "circuit", job.Circuit, "error", err)
			return nil
		}
		if rec == nil {
			logi.Ctx(ctx).Warn("schedule: circuit not found, skipping", "circuit", job.Circuit)
			return nil
		}

		doc, err := circuitdoc.Parse([]byte(rec.Body))
		if err != nil {
			logi.Ctx(ctx).Error("schedule: parse circuit failed", "circuit", job.Circuit, "error", err)
			return nil
		}
		spec, err := circuitdoc.Build(doc, s.registry)
		if err != nil {
			logi.Ctx(ctx).Error("schedule: build circuit failed", "circuit", job.Circuit, "error", err)
			return nil
		}

		inst, err := spec.MakeInstance("", runID)
		if err != nil {
			logi.Ctx(ctx).Error("schedule: instantiate circuit failed", "circuit", job.Circuit, "error", err)
			return nil
		}

		result, runErr := vm.RunOnce(inst, job.Requests, vm.Options{MaxCycles: s.maxCycles})
		if runErr != nil {
			logi.Ctx(ctx).Error("schedule: run failed", "circuit", job.Circuit, "run_id", runID, "error", runErr)
		} else {
			logi.Ctx(ctx).Info("schedule: run completed", "circuit", job.Circuit, "run_id", runID, "cycles", result.Cycles)
		}

		if s.observer != nil {
			s.observer(job, runID, result, runErr)
		}
		return nil
	}
}
