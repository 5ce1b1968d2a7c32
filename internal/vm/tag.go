// Package vm implements the demand-driven dataflow gate runtime: the tag
// lattice, gate specifications, gate instances, the common primitive gate
// algorithm (propagate/trigger/produce), circuit composition, and the
// top-level drivers. It has no dependency outside the standard library —
// everything built on top of it (construction from documents, persistence,
// scheduling, HTTP/MCP exposure) lives in sibling packages.
package vm

// Tag is a value from the demand lattice. The zero value is Void.
//
// The lattice is totally ordered Void < Avail < NoTag < Req < Reset, and the
// iota assignment below encodes that order directly so Join can just take
// the larger int.
type Tag int

const (
	// Void means the port carries no value.
	Void Tag = iota
	// Avail means a value is currently sitting on the port, waiting to be
	// consumed.
	Avail
	// NoTag is the neutral tag: neither demand nor advertised availability.
	NoTag
	// Req is demand: the far side of the connection wants a value here.
	Req
	// Reset is a reserved control token that clears downstream state.
	Reset
)

func (t Tag) String() string {
	switch t {
	case Void:
		return "VOID"
	case Avail:
		return "AVAIL"
	case NoTag:
		return "NOTAG"
	case Req:
		return "REQ"
	case Reset:
		return "RESET"
	default:
		return "TAG(?)"
	}
}

// Join returns the greater of two tags per the lattice order. Propagation
// uses this to combine demand arriving from multiple dependency paths.
func Join(a, b Tag) Tag {
	if a >= b {
		return a
	}
	return b
}
