package trigger

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/latticesim/kernel/internal/clock"
)

// Countable is anything a CounterTrigger can read a comparable value from:
// a leaf Counter or an aggregated ContextCounter.
type Countable interface {
	Get() int64
}

// Counter is a plain integer counter. CounterTriggers bind to it by a weak
// back-reference: Destroy notifies every bound trigger so none ever calls
// back into a vanished counter, matching the "trigger target vanished"
// error taxonomy entry.
type Counter struct {
	name string

	mu        sync.Mutex
	value     int64
	destroyed bool
	bound     []*CounterTrigger
}

// NewCounter constructs a live Counter at zero.
func NewCounter(name string) *Counter {
	return &Counter{name: name}
}

// Name returns the counter's debug name.
func (c *Counter) Name() string { return c.name }

// Get returns the current value.
func (c *Counter) Get() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Add adds delta to the counter's value.
func (c *Counter) Add(delta int64) {
	c.mu.Lock()
	c.value += delta
	c.mu.Unlock()
}

// Set overwrites the counter's value.
func (c *Counter) Set(v int64) {
	c.mu.Lock()
	c.value = v
	c.mu.Unlock()
}

// Destroy marks the counter vanished and notifies every bound
// CounterTrigger, which deactivates itself rather than ever being checked
// again.
func (c *Counter) Destroy() {
	c.mu.Lock()
	c.destroyed = true
	bound := c.bound
	c.bound = nil
	c.mu.Unlock()

	for _, t := range bound {
		t.onCounterVanished()
	}
}

func (c *Counter) bind(t *CounterTrigger) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrCounterVanished
	}
	c.bound = append(c.bound, t)
	return nil
}

// AggregateFunc reduces a set of leaf counter values to one, e.g. Sum.
type AggregateFunc func(values []int64) int64

// Sum is the default aggregate function: the sum of every leaf value.
func Sum(values []int64) int64 {
	var total int64
	for _, v := range values {
		total += v
	}
	return total
}

// ContextCounter aggregates a fixed set of leaf Counters with a named
// function, for triggers that watch a derived, context-local quantity
// rather than a single leaf.
type ContextCounter struct {
	name   string
	leaves []*Counter
	fn     AggregateFunc
}

// Get recomputes the aggregate over the current leaf values.
func (cc *ContextCounter) Get() int64 {
	vals := make([]int64, len(cc.leaves))
	for i, l := range cc.leaves {
		vals[i] = l.Get()
	}
	return cc.fn(vals)
}

// Name returns the context counter's debug name.
func (cc *ContextCounter) Name() string { return cc.name }

// AggregateRegistry bounds the table of named aggregate functions with an
// LRU cache, so a long-running simulation that registers many ephemeral
// tree-node-bound aggregations doesn't grow the lookup table without
// bound. The default aggregation, "sum", is always present. Lookup also
// supports a (tree node, method name) key for context-local aggregation,
// kept in a second, separately-bounded cache.
type AggregateRegistry struct {
	global *lru.Cache[string, AggregateFunc]
	local  *lru.Cache[localKey, AggregateFunc]
}

type localKey struct {
	node   string
	method string
}

// NewAggregateRegistry constructs a registry with the given per-cache
// capacity, pre-seeded with "sum".
func NewAggregateRegistry(size int) (*AggregateRegistry, error) {
	g, err := lru.New[string, AggregateFunc](size)
	if err != nil {
		return nil, fmt.Errorf("trigger: building global aggregate cache: %w", err)
	}
	l, err := lru.New[localKey, AggregateFunc](size)
	if err != nil {
		return nil, fmt.Errorf("trigger: building local aggregate cache: %w", err)
	}
	r := &AggregateRegistry{global: g, local: l}
	r.RegisterGlobal("sum", Sum)
	return r, nil
}

// RegisterGlobal binds name to fn in the global (name -> fn) table.
func (r *AggregateRegistry) RegisterGlobal(name string, fn AggregateFunc) {
	r.global.Add(name, fn)
}

// LookupGlobal looks up a globally registered aggregate function by name.
func (r *AggregateRegistry) LookupGlobal(name string) (AggregateFunc, bool) {
	return r.global.Get(name)
}

// RegisterLocal binds fn to a (tree node, method name) pair, for
// aggregations that only make sense in one context-local scope.
func (r *AggregateRegistry) RegisterLocal(node, method string, fn AggregateFunc) {
	r.local.Add(localKey{node: node, method: method}, fn)
}

// LookupLocal looks up a context-local aggregate function.
func (r *AggregateRegistry) LookupLocal(node, method string) (AggregateFunc, bool) {
	return r.local.Get(localKey{node: node, method: method})
}

// NewContextCounter builds a ContextCounter over leaves, using the named
// aggregate function looked up in registry (globally first, then as a
// (node, method) pair if node is non-empty).
func NewContextCounter(name string, registry *AggregateRegistry, fnName string, node string, leaves ...*Counter) (*ContextCounter, error) {
	fn, ok := registry.LookupGlobal(fnName)
	if !ok && node != "" {
		fn, ok = registry.LookupLocal(node, fnName)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAggregateFunc, fnName)
	}
	return &ContextCounter{name: name, leaves: leaves, fn: fn}, nil
}

// Comparator is one of the six comparison operators a CounterTrigger may
// use to evaluate its threshold.
type Comparator int

const (
	// CmpGE is the default comparator: counter.Get() >= threshold.
	CmpGE Comparator = iota
	CmpEQ
	CmpNE
	CmpLE
	CmpGT
	CmpLT
)

func (op Comparator) String() string {
	switch op {
	case CmpEQ:
		return "=="
	case CmpNE:
		return "!="
	case CmpGE:
		return ">="
	case CmpLE:
		return "<="
	case CmpGT:
		return ">"
	case CmpLT:
		return "<"
	default:
		return "?"
	}
}

// Compare applies op to (value, threshold).
func (op Comparator) Compare(value, threshold int64) bool {
	switch op {
	case CmpEQ:
		return value == threshold
	case CmpNE:
		return value != threshold
	case CmpGE:
		return value >= threshold
	case CmpLE:
		return value <= threshold
	case CmpGT:
		return value > threshold
	case CmpLT:
		return value < threshold
	default:
		return false
	}
}

// CounterTrigger fires its callback the first cycle its counter's value
// satisfies cmp(value, threshold), then deactivates. Bound to a *Counter,
// it also tracks that counter's weak-reference vanished notification; bound
// to a *ContextCounter, vanished tracking does not apply (aggregates have
// no single destructor to race with).
type CounterTrigger struct {
	ManagedTrigger

	counter   Countable
	threshold int64
	cmp       Comparator
	vanished  bool
	callback  func()
}

// NewCounterTrigger constructs a CounterTrigger bound to a leaf Counter,
// with the default comparator (>=). clk is the clock it is polled against.
func NewCounterTrigger(mgr *Manager, name string, clk *clock.Clock, counter *Counter, threshold int64, callback func()) (*CounterTrigger, error) {
	t := &CounterTrigger{counter: counter, threshold: threshold, cmp: CmpGE, callback: callback}
	t.ManagedTrigger = newManagedTrigger(mgr, name, clk)
	if err := counter.bind(t); err != nil {
		return nil, err
	}
	if err := t.activate(t); err != nil {
		return nil, err
	}
	return t, nil
}

// NewContextCounterTrigger constructs a CounterTrigger bound to an
// aggregated ContextCounter.
func NewContextCounterTrigger(mgr *Manager, name string, clk *clock.Clock, counter *ContextCounter, threshold int64, callback func()) (*CounterTrigger, error) {
	t := &CounterTrigger{counter: counter, threshold: threshold, cmp: CmpGE, callback: callback}
	t.ManagedTrigger = newManagedTrigger(mgr, name, clk)
	if err := t.activate(t); err != nil {
		return nil, err
	}
	return t, nil
}

// SetComparator overrides the default >= comparator.
func (t *CounterTrigger) SetComparator(cmp Comparator) { t.cmp = cmp }

// Threshold returns the trigger's configured threshold.
func (t *CounterTrigger) Threshold() int64 { return t.threshold }

func (t *CounterTrigger) onCounterVanished() {
	t.vanished = true
	t.deactivate(t)
}

// check evaluates the bound counter against the threshold; on success it
// deactivates (deregistering from the Manager) and invokes the callback.
// A vanished counter is never read: per the spec, the owning Counter's
// destructor is responsible for deregistering every bound trigger first.
func (t *CounterTrigger) check() {
	if t.vanished {
		return
	}
	if t.cmp.Compare(t.counter.Get(), t.threshold) {
		t.deactivate(t)
		if t.callback != nil {
			t.callback()
		}
	}
}
