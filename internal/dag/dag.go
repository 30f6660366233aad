package dag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ErrFinalized is returned when NewVertex, Link, or Unlink is called after
// Finalize.
var ErrFinalized = errors.New("dag: mutation after finalize")

type edge struct {
	from, to *Vertex
	reason   string
}

// DAG is the precedence graph owning all Vertex instances (arena-style: the
// DAG owns vertices, Scheduleables hold back-pointers to avoid cyclic
// ownership).
type DAG struct {
	vertices       []*Vertex
	edgeOrder      []edge
	gops           map[string]*Vertex // phase name -> its GOP vertex
	finalized      bool
	detectAtInsert bool
}

// New constructs an empty DAG. If detectAtInsert is true, Link eagerly
// checks for cycles on every insertion; otherwise cycle detection is
// deferred to Finalize (cheaper during bulk construction, at the cost of a
// less precise error path).
func New(detectAtInsert bool) *DAG {
	return &DAG{
		gops:           make(map[string]*Vertex),
		detectAtInsert: detectAtInsert,
	}
}

// NewVertex creates a new vertex with the given label and owner
// back-reference (nil for GOPs). Fatal (returns ErrFinalized) after
// Finalize.
func (d *DAG) NewVertex(label string, owner any, isGOP bool) (*Vertex, error) {
	if d.finalized {
		return nil, ErrFinalized
	}
	if label == "" {
		label = uuid.NewString()
	}
	v := &Vertex{
		id:    len(d.vertices),
		Label: label,
		Owner: owner,
		dag:   d,
		out:   make(map[*Vertex]edgeLabel),
		group: invalidGroup,
		isGOP: isGOP,
	}
	d.vertices = append(d.vertices, v)
	return v, nil
}

// GetGOPoint lazily creates (or returns the existing) group-ordering-point
// vertex for the named phase.
func (d *DAG) GetGOPoint(phaseName string) (*Vertex, error) {
	if v, ok := d.gops[phaseName]; ok {
		return v, nil
	}
	v, err := d.NewVertex("gop:"+phaseName, nil, true)
	if err != nil {
		return nil, err
	}
	d.gops[phaseName] = v
	return v, nil
}

// Link inserts a producer->consumer edge if one is not already present,
// recording reason for diagnostics. If the DAG was constructed with
// detectAtInsert, a cycle is detected and rejected immediately; otherwise
// detection is deferred to Finalize.
func (d *DAG) Link(producer, consumer *Vertex, reason string) error {
	if d.finalized {
		return ErrFinalized
	}
	if _, exists := producer.out[consumer]; exists {
		return nil
	}
	producer.out[consumer] = edgeLabel{reason: reason}
	d.edgeOrder = append(d.edgeOrder, edge{from: producer, to: consumer, reason: reason})

	if d.detectAtInsert {
		if cyc := d.findCycle(); cyc != nil {
			// roll back the edge we just added so the DAG is left as it
			// was before the rejected Link.
			delete(producer.out, consumer)
			d.edgeOrder = d.edgeOrder[:len(d.edgeOrder)-1]
			return &CycleError{Cycle: cyc}
		}
	}
	return nil
}

// Unlink removes the producer->consumer edge if present.
func (d *DAG) Unlink(producer, consumer *Vertex) error {
	if d.finalized {
		return ErrFinalized
	}
	if _, exists := producer.out[consumer]; !exists {
		return nil
	}
	delete(producer.out, consumer)
	for i, e := range d.edgeOrder {
		if e.from == producer && e.to == consumer {
			d.edgeOrder = append(d.edgeOrder[:i], d.edgeOrder[i+1:]...)
			break
		}
	}
	return nil
}

// Vertices returns every vertex in creation order.
func (d *DAG) Vertices() []*Vertex {
	return append([]*Vertex(nil), d.vertices...)
}

// Finalize linearizes the graph: every vertex with no predecessors is
// assigned group 0, then each remaining vertex is assigned
// 1+max(producer.group) over its predecessors, iterated until fixpoint. A
// cycle manifests as a fixpoint failure and is reported precisely via DFS.
// Returns N = max_group_id + 1. A second call on a finalized DAG returns the
// same N without recomputing.
func (d *DAG) Finalize() (int, error) {
	if d.finalized {
		return d.groupCount(), nil
	}
	if cyc := d.findCycle(); cyc != nil {
		return 0, &CycleError{Cycle: cyc}
	}

	indeg := make(map[*Vertex]int, len(d.vertices))
	preds := make(map[*Vertex][]*Vertex, len(d.vertices))
	for _, e := range d.edgeOrder {
		indeg[e.to]++
		preds[e.to] = append(preds[e.to], e.from)
	}

	assigned := 0
	for _, v := range d.vertices {
		if indeg[v] == 0 {
			v.group = 0
			assigned++
		}
	}

	for assigned < len(d.vertices) {
		progressed := false
		for _, v := range d.vertices {
			if v.group != invalidGroup {
				continue
			}
			ready := true
			maxPredGroup := -1
			for _, p := range preds[v] {
				if p.group == invalidGroup {
					ready = false
					break
				}
				if p.group > maxPredGroup {
					maxPredGroup = p.group
				}
			}
			if ready {
				v.group = maxPredGroup + 1
				assigned++
				progressed = true
			}
		}
		if !progressed {
			// Should be unreachable: findCycle already validated
			// acyclicity above.
			return 0, fmt.Errorf("dag: finalize reached a fixpoint without assigning all vertices")
		}
	}

	d.finalized = true
	return d.groupCount(), nil
}

func (d *DAG) groupCount() int {
	max := -1
	for _, v := range d.vertices {
		if v.group > max {
			max = v.group
		}
	}
	return max + 1
}

// findCycle runs a DFS cycle check over the current edge set and, if a
// cycle exists, returns the vertices forming it in traversal order. Returns
// nil if the graph is currently acyclic.
func (d *DAG) findCycle() []*Vertex {
	for _, v := range d.vertices {
		v.marker = markerUnvisited
	}

	var stack []*Vertex
	var cycle []*Vertex

	var dfs func(v *Vertex) bool
	dfs = func(v *Vertex) bool {
		v.marker = markerVisiting
		stack = append(stack, v)

		for _, e := range d.edgeOrder {
			if e.from != v {
				continue
			}
			next := e.to
			switch next.marker {
			case markerVisiting:
				// Found the back-edge that closes the cycle; extract the
				// cycle from the DFS stack starting at next.
				idx := -1
				for i, s := range stack {
					if s == next {
						idx = i
						break
					}
				}
				cycle = append([]*Vertex(nil), stack[idx:]...)
				return true
			case markerUnvisited:
				if dfs(next) {
					return true
				}
			}
		}

		stack = stack[:len(stack)-1]
		v.marker = markerVisited
		return false
	}

	for _, v := range d.vertices {
		if v.marker == markerUnvisited {
			if dfs(v) {
				return cycle
			}
		}
	}
	return nil
}

// CycleError is returned when linking or finalizing would close a cycle. It
// can render the offending cycle as text or as a DOT digraph block.
type CycleError struct {
	Cycle []*Vertex
}

func (e *CycleError) Error() string {
	return "dag: cycle detected: " + e.Text()
}

// Text renders the cycle as an arrow-joined chain of labels.
func (e *CycleError) Text() string {
	labels := lo.Map(e.Cycle, func(v *Vertex, _ int) string { return v.Label })
	if len(labels) > 0 {
		labels = append(labels, labels[0])
	}
	return strings.Join(labels, " -> ")
}

// DOT renders the cycle as a standalone "digraph cycle { ... }" block
// suitable for pasting into graphviz.
func (e *CycleError) DOT() string {
	var b strings.Builder
	b.WriteString("digraph cycle {\n")
	for i, v := range e.Cycle {
		next := e.Cycle[(i+1)%len(e.Cycle)]
		fmt.Fprintf(&b, "  %q -> %q;\n", v.Label, next.Label)
	}
	b.WriteString("}\n")
	return b.String()
}
