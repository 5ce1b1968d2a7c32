package vm

// Request pins an input or a demand onto one of an instance's external
// ports before a run starts.
type Request struct {
	Port  string
	Value Value
	Tag   Tag
}

// RunResult reports how a run ended.
type RunResult struct {
	Cycles    int
	Converged bool
	Outputs   map[string]Value
}

// Options bounds a driver run. MaxCycles <= 0 means unbounded (the caller
// is trusting the circuit to converge or stall on its own).
type Options struct {
	MaxCycles int
}

// RunOnce drives inst through repeated propagate/trigger/produce cycles
// until every port requested with Req holds a non-VOID value, or no
// sub-gate can fire (converged), or MaxCycles is exceeded. It seeds the
// instance's external ports from requests before the first cycle, then
// reports the external ports' final values. With no Req request, only the
// last two conditions end the run.
//
// This is the single-shot driver: one pass is enough for a circuit whose
// demand graph has no cyclic feedback; a circuit with feedback (e.g. a
// Sequence gate waiting on its own downstream demand) settles across
// multiple cycles because each cycle's trigger/produce can change the tags
// the next cycle's propagate reads.
func RunOnce(inst *Instance, requests []Request, opts Options) (*RunResult, error) {
	if err := seed(inst, requests); err != nil {
		return nil, err
	}

	var wanted []int
	for _, r := range requests {
		if r.Tag == Req {
			pi, _ := inst.Spec.PortIndex(r.Port)
			wanted = append(wanted, pi)
		}
	}

	cycles := 0
	for {
		if opts.MaxCycles > 0 && cycles >= opts.MaxCycles {
			return nil, errDriverMaxCycles(opts.MaxCycles)
		}

		if err := inst.Propagate(); err != nil {
			return nil, err
		}

		ready, err := inst.Trigger()
		if err != nil {
			return nil, err
		}
		if !ready {
			break
		}

		if err := inst.Produce(); err != nil {
			return nil, err
		}
		cycles++

		answered := len(wanted) > 0
		for _, pi := range wanted {
			if inst.Outgoing(pi).IsVoid() {
				answered = false
				break
			}
		}
		if answered {
			break
		}
	}

	return &RunResult{Cycles: cycles, Converged: true, Outputs: collectOutputs(inst)}, nil
}

// Stream is a lazy sequence of values, pulled one at a time by RunStream.
// Next reports ok == false once the stream is exhausted; RunStream never
// calls Next again on a port after that.
type Stream interface {
	Next() (Value, bool)
}

// SliceStream adapts a pre-materialized slice of values into a Stream, for
// callers (HTTP bodies, tests) that already have the whole sequence in
// memory rather than a true generator.
type SliceStream struct {
	values []Value
	pos    int
}

// NewSliceStream builds a Stream that yields values in order and then is
// permanently exhausted.
func NewSliceStream(values ...Value) *SliceStream {
	return &SliceStream{values: values}
}

func (s *SliceStream) Next() (Value, bool) {
	if s.pos >= len(s.values) {
		return VoidValue, false
	}
	v := s.values[s.pos]
	s.pos++
	return v, true
}

// RunStream drives inst with its inputs bound to lazy streams instead of
// fixed values, pulling the next element of a stream only when the gate
// currently demands that port (TagOutgoing == Req) and its incoming cell
// has gone back to VOID — never ahead of demand. Every requested output
// port is seeded with Req up front. After each produce that leaves at least
// one requested port non-VOID, every requested port's current value is
// appended to its own result list (VOID for a port that got nothing, so the
// lists stay in step); each non-VOID port is then cleared and re-requested
// so the next element of the run can reach it. The run
// ends when nothing triggers any more, which happens once every stream is
// exhausted and demand has nothing left to satisfy.
//
// requests names the external ports whose produced values are collected;
// streams binds external input ports to the sequences that feed them. A
// port with no entry in streams is simply never pulled, the same as an
// input nobody ever supplies a second value for.
func RunStream(inst *Instance, streams map[string]Stream, requests []string, opts Options) (map[string][]Value, error) {
	reqPort := make(map[string]int, len(requests))
	for _, name := range requests {
		pi, err := inst.Spec.PortIndex(name)
		if err != nil {
			return nil, err
		}
		reqPort[name] = pi
		inst.SetTagIncoming(pi, Req)
	}

	streamPort := make(map[int]Stream, len(streams))
	for name, s := range streams {
		pi, err := inst.Spec.PortIndex(name)
		if err != nil {
			return nil, err
		}
		streamPort[pi] = s
	}

	results := make(map[string][]Value, len(requests))
	for _, name := range requests {
		results[name] = nil
	}

	pull := func() error {
		if err := inst.Propagate(); err != nil {
			return err
		}
		for pi, s := range streamPort {
			if inst.TagOutgoing(pi) == Req && inst.Incoming(pi).IsVoid() {
				if v, ok := s.Next(); ok {
					inst.SetIncoming(pi, v)
					inst.SetTagIncoming(pi, Avail)
				} else {
					delete(streamPort, pi)
				}
			}
		}
		return nil
	}

	if err := pull(); err != nil {
		return nil, err
	}

	cycles := 0
	for {
		ready, err := inst.Trigger()
		if err != nil {
			return nil, err
		}
		if !ready {
			break
		}
		if opts.MaxCycles > 0 && cycles >= opts.MaxCycles {
			return nil, errDriverMaxCycles(opts.MaxCycles)
		}

		if err := inst.Produce(); err != nil {
			return nil, err
		}
		cycles++

		anyNonVoid := false
		for _, name := range requests {
			if !inst.Outgoing(reqPort[name]).IsVoid() {
				anyNonVoid = true
				break
			}
		}
		if anyNonVoid {
			for _, name := range requests {
				v := inst.Outgoing(reqPort[name])
				results[name] = append(results[name], v)
				if !v.IsVoid() {
					inst.SetOutgoing(reqPort[name], VoidValue)
					inst.SetTagIncoming(reqPort[name], Req)
				}
			}
		}

		if err := pull(); err != nil {
			return nil, err
		}
	}

	return results, nil
}

func seed(inst *Instance, requests []Request) error {
	for _, r := range requests {
		pi, err := inst.Spec.PortIndex(r.Port)
		if err != nil {
			return err
		}
		if !r.Value.IsVoid() {
			inst.SetIncoming(pi, r.Value)
		}
		if r.Tag != Void {
			inst.SetTagIncoming(pi, r.Tag)
		}
	}
	return nil
}

// collectOutputs reports whatever value ended up sitting on each external
// port, whichever direction it landed in: a boundary port aliased to a
// sub-gate's output port carries its result in Outgoing; a boundary port
// aliased to a sub-gate's input port only ever carries what the caller fed
// it, in Incoming.
func collectOutputs(inst *Instance) map[string]Value {
	out := make(map[string]Value, inst.NumPorts())
	for p := 0; p < inst.NumPorts(); p++ {
		name, err := inst.Spec.PortName(p)
		if err != nil {
			continue
		}
		if v := inst.Outgoing(p); !v.IsVoid() {
			out[name] = v
			continue
		}
		if v := inst.Incoming(p); !v.IsVoid() {
			out[name] = v
		}
	}
	return out
}
