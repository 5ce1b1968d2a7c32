// Package store persists named, versioned circuit documents — never
// running VM state, which is transient by design. Three backends share
// one interface.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rakunlabs/gatevm/internal/config"
	"github.com/rakunlabs/gatevm/internal/store/circuitrow"
	"github.com/rakunlabs/gatevm/internal/store/memory"
	"github.com/rakunlabs/gatevm/internal/store/postgres"
	"github.com/rakunlabs/gatevm/internal/store/sqlite3"
)

// CircuitRecord is the row type returned by every backend.
type CircuitRecord = circuitrow.Record

// CircuitStorer is the storage contract every backend implements.
type CircuitStorer interface {
	ListCircuits(ctx context.Context) ([]CircuitRecord, error)
	GetCircuit(ctx context.Context, name string) (*CircuitRecord, error)
	PutCircuit(ctx context.Context, name, body string) (*CircuitRecord, error)
	DeleteCircuit(ctx context.Context, name string) error
	Close()
}

// New builds a CircuitStorer from cfg.Driver ("memory", "sqlite",
// "postgres").
func New(ctx context.Context, cfg config.Store) (CircuitStorer, error) {
	switch cfg.Driver {
	case "", "memory":
		return memory.New(), nil
	case "sqlite", "sqlite3":
		if cfg.SQLite == nil {
			return nil, errors.New("store: sqlite driver selected but store.sqlite is not configured")
		}
		return sqlite3.New(ctx, cfg.SQLite)
	case "postgres":
		if cfg.Postgres == nil {
			return nil, errors.New("store: postgres driver selected but store.postgres is not configured")
		}
		return postgres.New(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
