package clock

import (
	"errors"
	"fmt"
)

// ErrCrossSchedulerCrossing is returned when a clock-crossing delay is
// computed between clocks that do not share a Scheduler.
var ErrCrossSchedulerCrossing = errors.New("clock: crossing delay requires clocks on the same scheduler")

// ErrNotOnPosedge is returned when CrossingDelay is asked to compute a
// forward delay from a tick that is not on a positive edge of the source
// clock, per spec's "Assert current tick is on a positive edge of S."
var ErrNotOnPosedge = errors.New("clock: current tick is not on a positive edge of the source clock")

// CrossingDelay computes the number of source-clock ticks to add to
// current so that, after applying the combined src/dst delay, the result
// lands on a positive edge of dst — rounding up. Both src and dst must be
// non-nil and share a Scheduler, and current must already be on a posedge
// of src.
func CrossingDelay(src, dst *Clock, current Tick, srcDelay, dstDelay Tick) (Tick, error) {
	if src == nil || dst == nil {
		return 0, fmt.Errorf("clock: crossing delay requires non-nil clocks")
	}
	if src.sched != dst.sched {
		return 0, ErrCrossSchedulerCrossing
	}
	if !src.IsPosedge(current) {
		return 0, ErrNotOnPosedge
	}

	num := srcDelay + dstDelay
	target := current + num
	period := dst.period
	rem := uint64(target) % uint64(period)
	if rem != 0 {
		target += Tick(uint64(period) - rem)
	}
	return target - current, nil
}

// ReverseCrossingDelay takes a destination arrival tick, subtracts
// src_delay+dst_delay, then rounds down to the previous posedge of src. It
// returns the absolute source-clock tick at which the crossing must begin.
func ReverseCrossingDelay(src, dst *Clock, dstArrival Tick, srcDelay, dstDelay Tick) (Tick, error) {
	if src == nil || dst == nil {
		return 0, fmt.Errorf("clock: crossing delay requires non-nil clocks")
	}
	if src.sched != dst.sched {
		return 0, ErrCrossSchedulerCrossing
	}

	num := srcDelay + dstDelay
	if num > dstArrival {
		return 0, fmt.Errorf("clock: reverse crossing delay underflows tick 0")
	}
	raw := dstArrival - num
	period := src.period
	rem := uint64(raw) % uint64(period)
	return raw - Tick(rem), nil
}
