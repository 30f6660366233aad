package dag

import "fmt"

// Phase is one of the seven fixed stages a tick is subdivided into for
// ordering. The zero value is PhaseTrigger.
type Phase int

const (
	PhaseTrigger Phase = iota
	PhaseUpdate
	PhasePortUpdate
	PhaseFlush
	PhaseCollection
	PhaseTick
	PhasePostTick

	numPhases = int(PhasePostTick) + 1
)

var phaseNames = [numPhases]string{
	"Trigger", "Update", "PortUpdate", "Flush", "Collection", "Tick", "PostTick",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= numPhases {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Valid reports whether p is one of the seven defined phases.
func (p Phase) Valid() bool {
	return p >= PhaseTrigger && p <= PhasePostTick
}

// Phases returns the seven phases in their fixed firing order.
func Phases() []Phase {
	out := make([]Phase, numPhases)
	for i := range out {
		out[i] = Phase(i)
	}
	return out
}

// PhaseChain builds the fixed chain of per-phase group-ordering-point
// vertices (Trigger -> Update -> PortUpdate -> Flush -> Collection -> Tick
// -> PostTick) and links them in sequence. It returns the GOP vertex for
// each phase, indexed by Phase. Calling this more than once on the same DAG
// is safe: GetGOPoint is memoized, and Link is a no-op on an existing edge.
func (d *DAG) PhaseChain() ([numPhases]*Vertex, error) {
	var gops [numPhases]*Vertex
	for _, p := range Phases() {
		v, err := d.GetGOPoint(p.String())
		if err != nil {
			return gops, fmt.Errorf("dag: building phase chain: %w", err)
		}
		gops[p] = v
	}
	for i := 1; i < numPhases; i++ {
		if err := d.Link(gops[i-1], gops[i], "phase-chain"); err != nil {
			return gops, fmt.Errorf("dag: linking phase chain %s->%s: %w", Phase(i-1), Phase(i), err)
		}
	}
	return gops, nil
}

// LinkIntoPhase links v between the GOP of its phase and the GOP of the
// next phase, so that cross-phase ordering is automatic without a
// per-Scheduleable cross-phase edge. gops must be the array returned by
// PhaseChain (or one built the same way).
func (d *DAG) LinkIntoPhase(v *Vertex, phase Phase, gops [numPhases]*Vertex) error {
	if !phase.Valid() {
		return fmt.Errorf("dag: invalid phase %d", int(phase))
	}
	if err := d.Link(gops[phase], v, "phase-entry"); err != nil {
		return err
	}
	if int(phase)+1 < numPhases {
		if err := d.Link(v, gops[phase+1], "phase-exit"); err != nil {
			return err
		}
	}
	return nil
}
