package vm

import (
	"fmt"
	"strings"
)

// Error is the VM's structured error currency: a dotted kind-path (e.g.
// "circuit.multiple_connections"), a rendered message, and a parameter bag
// for anything that wants the structured form instead of the string. It
// implements the standard error interface so it composes with %w at
// service boundaries.
type Error struct {
	Kind    string
	Message string
	Params  map[string]any
}

func newError(kind, message string, params map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Params: params}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil vm.Error>"
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports whether this error's kind is exactly target's kind, or target's
// kind is a dotted prefix of this one (e.g. "circuit" matches
// "circuit.multiple_connections"). This gives callers prefix-match semantics
// over the kind taxonomy without a dedicated matcher type.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok || other == nil {
		return false
	}
	if e.Kind == other.Kind {
		return true
	}
	return strings.HasPrefix(e.Kind, other.Kind+".")
}

// Kind-path taxonomy. These are prefixes: through Error.Is, errors.Is(err,
// &Error{Kind: KindCircuit}) matches both "circuit" and
// "circuit.multiple_connections".
const (
	KindTag           = "tag"
	KindTagReset      = "tag.reset_unsupported"
	KindPort          = "port"
	KindPortUnknown   = "port.unknown"
	KindCircuit       = "circuit"
	KindMultipleConns = "circuit.multiple_connections"
	KindShortCircuit  = "circuit.short_circuit"
	KindMissingConn   = "circuit.missing_connection"
	KindFunction      = "function"
	KindFuncBadArity  = "function.bad_arity"
	KindFuncPanic     = "function.panic"
	KindExplode       = "explode"
	KindExplodeLen    = "explode.wrong_input_length"
	KindJoin          = "join"
	KindDriver        = "driver"
	KindDriverStalled = "driver.stalled"
	KindDriverLimit   = "driver.max_cycles_exceeded"
	KindScript        = "script"
	KindScriptEval    = "script.eval_failed"
)

func errPortUnknown(gate, port string) *Error {
	return newError(KindPortUnknown, fmt.Sprintf("gate %q has no port %q", gate, port),
		map[string]any{"gate": gate, "port": port})
}

func errResetUnsupported(gate string) *Error {
	return newError(KindTagReset, fmt.Sprintf("gate %q does not support RESET tags", gate),
		map[string]any{"gate": gate})
}

func errMultipleConnections(gate, port string) *Error {
	return newError(KindMultipleConns, fmt.Sprintf("port %q of %q already has a connection", port, gate),
		map[string]any{"gate": gate, "port": port})
}

func errShortCircuit(gate, port string) *Error {
	return newError(KindShortCircuit, fmt.Sprintf("port %q of %q would be short-circuited to itself", port, gate),
		map[string]any{"gate": gate, "port": port})
}

func errMissingConnection(gate, port string) *Error {
	return newError(KindMissingConn, fmt.Sprintf("port %q of %q is not wired to anything", port, gate),
		map[string]any{"gate": gate, "port": port})
}

func errBadArity(gate string, want, got int) *Error {
	return newError(KindFuncBadArity, fmt.Sprintf("gate %q expects %d argument ports, got %d", gate, want, got),
		map[string]any{"gate": gate, "want": want, "got": got})
}

func errFuncPanic(gate string, recovered any) *Error {
	return newError(KindFuncPanic, fmt.Sprintf("gate %q panicked: %v", gate, recovered),
		map[string]any{"gate": gate, "recovered": recovered})
}

func errExplodeLength(gate string, want, got int) *Error {
	return newError(KindExplodeLen, fmt.Sprintf("gate %q explode expected %d elements, got %d", gate, want, got),
		map[string]any{"gate": gate, "want": want, "got": got})
}

// NewExplodeLengthError builds the structured error an Explode gate
// reports on its "error" port when the incoming slice's length doesn't
// match the gate's arity. Exported so library gates outside this package
// can produce the same structured kind instead of an ad hoc error.
func NewExplodeLengthError(gate string, want, got int) *Error {
	return errExplodeLength(gate, want, got)
}

func errDriverStalled(cycles int) *Error {
	return newError(KindDriverStalled, fmt.Sprintf("no gate could fire after %d cycles; run stalled", cycles),
		map[string]any{"cycles": cycles})
}

func errDriverMaxCycles(max int) *Error {
	return newError(KindDriverLimit, fmt.Sprintf("exceeded max_cycles=%d without converging", max),
		map[string]any{"max_cycles": max})
}

func errScriptEval(gate string, cause error) *Error {
	return newError(KindScriptEval, fmt.Sprintf("gate %q script failed: %v", gate, cause),
		map[string]any{"gate": gate, "cause": cause})
}
