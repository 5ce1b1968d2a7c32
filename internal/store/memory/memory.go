package memory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rakunlabs/gatevm/internal/store/circuitrow"
)

// Memory is an in-process, mutex-guarded circuit document store. Data
// does not survive process restarts — the default mode for local use and
// tests.
type Memory struct {
	mu       sync.RWMutex
	circuits map[string]circuitrow.Record // name -> record
}

func New() *Memory {
	slog.Info("using in-memory circuit store (data will not persist across restarts)")

	return &Memory{circuits: make(map[string]circuitrow.Record)}
}

func (m *Memory) Close() {}

func (m *Memory) ListCircuits(_ context.Context) ([]circuitrow.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]circuitrow.Record, 0, len(m.circuits))
	for _, rec := range m.circuits {
		result = append(result, rec)
	}
	slices.SortFunc(result, func(a, b circuitrow.Record) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})

	return result, nil
}

func (m *Memory) GetCircuit(_ context.Context, name string) (*circuitrow.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.circuits[name]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) PutCircuit(_ context.Context, name, body string) (*circuitrow.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := m.circuits[name]

	rec := circuitrow.Record{
		ID:        existing.ID,
		Name:      name,
		Version:   existing.Version + 1,
		Body:      body,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: now,
	}
	if !ok {
		rec.ID = ulid.Make().String()
		rec.CreatedAt = now
	}

	m.circuits[name] = rec
	return &rec, nil
}

func (m *Memory) DeleteCircuit(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.circuits[name]; !ok {
		return fmt.Errorf("store/memory: circuit %q not found", name)
	}
	delete(m.circuits, name)
	return nil
}
