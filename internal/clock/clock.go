// Package clock implements the rational-ratio clock hierarchy used to
// translate between Scheduler ticks and clock-local cycles.
package clock

import (
	"errors"
	"fmt"
)

// Tick is the base integer unit of simulated time (picoseconds by
// convention — a calibration constant only, never assumed by this package).
type Tick uint64

// Scheduler is the subset of scheduler behavior a Clock needs: the current
// tick, for currentCycle(), and clock registration bookkeeping. Implemented
// by *scheduler.Scheduler; kept as an interface here to avoid an import
// cycle (scheduler imports clock, not the other way around).
type Scheduler interface {
	CurrentTick() Tick
	RegisterClock(c *Clock)
	DeregisterClock(c *Clock)
}

var (
	// ErrNilScheduler is returned by New when constructing a root clock
	// with a nil Scheduler.
	ErrNilScheduler = errors.New("clock: nil scheduler")
	// ErrZeroDenominator is returned by SetRatio / NewChild when the
	// supplied ratio denominator is zero.
	ErrZeroDenominator = errors.New("clock: zero denominator in ratio")
	// ErrAfterNormalize is returned when a ratio is changed after the
	// owning tree has been normalized (periods fixed, clock immutable).
	ErrAfterNormalize = errors.New("clock: ratio changed after normalization")
)

// Ratio is a rational clock ratio expressed as numerator/denominator in
// 32-bit unsigned integers, e.g. 2/3 for a clock whose period is 2/3 of
// its parent's period.
type Ratio struct {
	Num, Den uint32
}

// reduce returns r divided through by gcd(num, den); den == 0 is left as-is
// so callers can detect it as an error.
func (r Ratio) reduce() Ratio {
	if r.Den == 0 {
		return r
	}
	g := gcd(r.Num, r.Den)
	if g == 0 {
		return r
	}
	return Ratio{Num: r.Num / g, Den: r.Den / g}
}

func gcd(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	return a / gcd64(a, b) * b
}

func gcd64(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Clock is a node in the clock hierarchy: optionally has a parent, a
// rational ratio to that parent, a derived ratio to the root, and (once
// normalized) a positive integer period in ticks.
type Clock struct {
	name   string
	sched  Scheduler
	parent *Clock
	ratio  Ratio // ratio to parent; {1,1} for a root clock

	rootRatio  Ratio // derived ratio to the root clock
	period     Tick  // ticks per cycle, fixed by normalization
	normalized bool
	freqMHz    float64
	hasFreqMHz bool
	elapsedCyc uint64
	children   []*Clock
	destroyed  bool
}

// New creates a root clock: one with no parent, belonging to exactly one
// Scheduler. Constructing with a nil scheduler is fatal (fail-fast), per
// spec.
func New(name string, sched Scheduler) (*Clock, error) {
	if sched == nil {
		return nil, ErrNilScheduler
	}
	c := &Clock{
		name:      name,
		sched:     sched,
		ratio:     Ratio{1, 1},
		rootRatio: Ratio{1, 1},
	}
	sched.RegisterClock(c)
	return c, nil
}

// NewChild creates a clock whose period is num/den of its parent's. The
// child is appended to the parent's child list and shares the parent's
// Scheduler.
func NewChild(name string, parent *Clock, num, den uint32) (*Clock, error) {
	if parent == nil {
		return nil, ErrNilScheduler
	}
	if den == 0 {
		return nil, ErrZeroDenominator
	}
	c := &Clock{
		name:   name,
		sched:  parent.sched,
		parent: parent,
		ratio:  Ratio{num, den},
	}
	parent.children = append(parent.children, c)
	parent.sched.RegisterClock(c)
	return c, nil
}

// Name returns the clock's debug name.
func (c *Clock) Name() string { return c.name }

// Parent returns the parent clock, or nil if c is a root clock.
func (c *Clock) Parent() *Clock { return c.parent }

// IsRoot reports whether c has no parent.
func (c *Clock) IsRoot() bool { return c.parent == nil }

// SetRatio changes the ratio to the parent. Valid only before
// normalization; calling it afterward is fatal, matching the spec's
// "modifying after finalization is fatal" contract.
func (c *Clock) SetRatio(num, den uint32) error {
	if c.normalized {
		return ErrAfterNormalize
	}
	if den == 0 {
		return ErrZeroDenominator
	}
	c.ratio = Ratio{num, den}
	c.rootRatio = Ratio{}
	return nil
}

// SetFrequencyMHz records an explicit frequency for this clock, used only
// for diagnostics (Describe) — it does not participate in period
// computation, which is purely ratio-driven.
func (c *Clock) SetFrequencyMHz(mhz float64) {
	c.freqMHz = mhz
	c.hasFreqMHz = true
}

// Period returns the clock's period in ticks, valid only after
// normalization.
func (c *Clock) Period() Tick {
	return c.period
}

// RootRatio returns the clock's derived ratio to its root clock.
func (c *Clock) RootRatio() Ratio {
	return c.rootRatio
}

// GetTick converts a cycle count to an absolute tick: cycle * period.
func (c *Clock) GetTick(cycle uint64) Tick {
	return Tick(cycle) * c.period
}

// GetCycle converts an absolute tick to a cycle count: tick / period.
func (c *Clock) GetCycle(t Tick) uint64 {
	return uint64(t) / uint64(c.period)
}

// IsPosedge reports whether t lands exactly on one of this clock's cycle
// boundaries.
func (c *Clock) IsPosedge(t Tick) bool {
	return uint64(t)%uint64(c.period) == 0
}

// CurrentCycle returns GetCycle(scheduler.CurrentTick()).
func (c *Clock) CurrentCycle() uint64 {
	return c.GetCycle(c.sched.CurrentTick())
}

// ElapsedCycles returns the cached elapsed-cycle count, last refreshed by
// UpdateElapsedCycles (called by the Scheduler once per tick during run).
func (c *Clock) ElapsedCycles() uint64 {
	return c.elapsedCyc
}

// UpdateElapsedCycles recomputes the cached elapsed-cycle count from an
// absolute elapsed-tick count. Called by the Scheduler, not by user code.
func (c *Clock) UpdateElapsedCycles(elapsedTicks Tick) {
	c.elapsedCyc = c.GetCycle(elapsedTicks)
}

// Destroy deregisters c from its Scheduler. Mandatory on teardown per spec.
func (c *Clock) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	c.sched.DeregisterClock(c)
}

// Describe renders a one-line human-readable ratio/period summary, used by
// log lines and the CLI status table.
func (c *Clock) Describe() string {
	if c.IsRoot() {
		return fmt.Sprintf("%s [root, period=%d]", c.name, c.period)
	}
	return fmt.Sprintf("%s [%d/%d of %s, period=%d]", c.name, c.ratio.Num, c.ratio.Den, c.parent.name, c.period)
}

// Normalize computes the period of every clock reachable from roots by
// taking the least common multiple of the denominators of all root-ratios,
// then deriving each clock's period as lcm * rootRatio.Num / rootRatio.Den.
// It must be called exactly once, before the first run, over the full set
// of root clocks registered with a Scheduler.
func Normalize(roots []*Clock) error {
	var denominators []uint64
	var visit func(c *Clock, parentRootRatio Ratio) error
	visit = func(c *Clock, parentRootRatio Ratio) error {
		if c.IsRoot() {
			c.rootRatio = Ratio{1, 1}
		} else {
			rr := Ratio{
				Num: parentRootRatio.Num * c.ratio.Num,
				Den: parentRootRatio.Den * c.ratio.Den,
			}
			c.rootRatio = rr.reduce()
		}
		denominators = append(denominators, uint64(c.rootRatio.Den))
		for _, child := range c.children {
			if err := visit(child, c.rootRatio); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range roots {
		if err := visit(r, Ratio{1, 1}); err != nil {
			return err
		}
	}

	l := uint64(1)
	for _, d := range denominators {
		if d == 0 {
			return ErrZeroDenominator
		}
		l = lcm(l, d)
	}

	var apply func(c *Clock)
	apply = func(c *Clock) {
		period := l * uint64(c.rootRatio.Num) / uint64(c.rootRatio.Den)
		if period == 0 {
			period = 1
		}
		c.period = Tick(period)
		c.normalized = true
		for _, child := range c.children {
			apply(child)
		}
	}
	for _, r := range roots {
		apply(r)
	}
	return nil
}
