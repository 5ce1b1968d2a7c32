// Package circuitrow holds the row type every store backend returns, kept
// in its own package so internal/store's New dispatcher can import each
// backend without an import cycle back to internal/store itself.
package circuitrow

import "time"

// Record is one stored circuit document: its identity, the raw YAML body
// (see internal/circuitdoc), and bookkeeping timestamps.
type Record struct {
	ID        string
	Name      string
	Version   int
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
