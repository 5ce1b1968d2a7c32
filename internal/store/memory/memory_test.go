package memory

import (
	"context"
	"testing"
)

func TestPutGetListDeleteCircuit(t *testing.T) {
	m := New()
	ctx := context.Background()

	if _, err := m.PutCircuit(ctx, "add_one", "name: add_one\n"); err != nil {
		t.Fatalf("PutCircuit: %v", err)
	}

	rec, err := m.GetCircuit(ctx, "add_one")
	if err != nil {
		t.Fatalf("GetCircuit: %v", err)
	}
	if rec == nil || rec.Version != 1 {
		t.Fatalf("rec = %+v, want version 1", rec)
	}

	if _, err := m.PutCircuit(ctx, "add_one", "name: add_one\nports: [x]\n"); err != nil {
		t.Fatalf("PutCircuit (update): %v", err)
	}
	rec, err = m.GetCircuit(ctx, "add_one")
	if err != nil {
		t.Fatalf("GetCircuit: %v", err)
	}
	if rec.Version != 2 {
		t.Errorf("version = %d, want 2", rec.Version)
	}

	list, err := m.ListCircuits(ctx)
	if err != nil {
		t.Fatalf("ListCircuits: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1", len(list))
	}

	if err := m.DeleteCircuit(ctx, "add_one"); err != nil {
		t.Fatalf("DeleteCircuit: %v", err)
	}
	if err := m.DeleteCircuit(ctx, "add_one"); err == nil {
		t.Fatal("expected an error deleting an already-deleted circuit")
	}
}

func TestGetCircuitMissingReturnsNil(t *testing.T) {
	m := New()
	rec, err := m.GetCircuit(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetCircuit: %v", err)
	}
	if rec != nil {
		t.Errorf("rec = %+v, want nil", rec)
	}
}
