package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rakunlabs/chu"
	"github.com/rakunlabs/chu/loader/loaderenv"
	"github.com/rakunlabs/logi"
	"github.com/rakunlabs/tell"
)

var Service = ""

// Config is the top-level gatevm process configuration: log level, circuit
// document store selection, HTTP listen address, and the driver's runaway
// guard. Loaded via chu.Load plus an env-var overlay.
type Config struct {
	LogLevel string `cfg:"log_level,no_prefix" default:"info"`

	Store  Store  `cfg:"store"`
	Server Server `cfg:"server"`

	// Driver holds the runaway guards applied to every run_once/run_stream
	// invocation started by the server or scheduler.
	Driver Driver `cfg:"driver"`

	Schedule Schedule `cfg:"schedule"`

	Telemetry tell.Config `cfg:"telemetry,noprefix"`
}

// Schedule configures the cron-triggered circuit runs internal/schedule
// drives. Empty by default: a deployment with no recurring circuits simply
// configures no jobs.
type Schedule struct {
	Jobs []ScheduleJob `cfg:"jobs"`
}

type ScheduleJob struct {
	ID       string            `cfg:"id"`
	Circuit  string            `cfg:"circuit"`
	Cron     string            `cfg:"cron"`
	Requests []ScheduleRequest `cfg:"requests"`
}

type ScheduleRequest struct {
	Port  string `cfg:"port"`
	Value any    `cfg:"value"`
	Tag   string `cfg:"tag"`
}

type Server struct {
	BasePath string `cfg:"base_path"`

	Port string `cfg:"port" default:"8080"`
	Host string `cfg:"host"`
}

// Driver configures the default run_once/run_stream cycle cap — the same
// kind of runaway guard spec.md §7's KindDriverLimit error already reports
// on, surfaced here so an operator can tune it per deployment instead of
// it being a compiled-in constant.
type Driver struct {
	MaxCycles int `cfg:"max_cycles" default:"1000"`
}

type Store struct {
	Driver string `cfg:"driver" default:"memory"`

	Postgres *StorePostgres `cfg:"postgres"`
	SQLite   *StoreSQLite   `cfg:"sqlite"`
}

type StorePostgres struct {
	TablePrefix     *string        `cfg:"table_prefix"`
	Datasource      string         `cfg:"datasource" log:"-"`
	Schema          string         `cfg:"schema"`
	ConnMaxLifetime *time.Duration `cfg:"conn_max_lifetime"`
	MaxIdleConns    *int           `cfg:"max_idle_conns"`
	MaxOpenConns    *int           `cfg:"max_open_conns"`

	Migrate Migrate `cfg:"migrate"`
}

type StoreSQLite struct {
	TablePrefix *string `cfg:"table_prefix"`
	Datasource  string  `cfg:"datasource"`

	Migrate Migrate `cfg:"migrate"`
}

type Migrate struct {
	Datasource string            `cfg:"datasource" log:"-"`
	Schema     string            `cfg:"schema"`
	Table      string            `cfg:"table"`
	Values     map[string]string `cfg:"values"`
}

func Load(ctx context.Context, path string) (*Config, error) {
	var cfg Config
	if err := chu.Load(ctx, path, &cfg, chu.WithLoaderOption(loaderenv.New(loaderenv.WithPrefix("GATEVM_")))); err != nil {
		return nil, err
	}

	if err := logi.SetLogLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("set log level %s: %w", cfg.LogLevel, err)
	}

	slog.Info("loaded configuration", "config", chu.MarshalMap(cfg))

	return &cfg, nil
}
