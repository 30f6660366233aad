// Package model provides a minimal in-code example model tree: a small
// stand-in for the Parameter/YAML-driven node factories that would
// normally assemble a real simulation model. It wires a root Clock and a
// divided child Clock into a Scheduler, along with a demonstration
// "retire" event and a threshold trigger, so this module's own
// integration tests and cmd/simkernel have something concrete to build
// and run without the out-of-scope parameter tree.
package model

import (
	"fmt"

	"github.com/latticesim/kernel/internal/clock"
	"github.com/latticesim/kernel/internal/dag"
	"github.com/latticesim/kernel/internal/handler"
	"github.com/latticesim/kernel/internal/scheduleable"
	"github.com/latticesim/kernel/internal/scheduler"
	"github.com/latticesim/kernel/internal/trigger"
)

// Descriptor is the minimal stand-in for a parsed descriptor: enough
// fields to shape the example tree without the tree-node factories a
// real Parameter/YAML front end would provide.
type Descriptor struct {
	Name string `yaml:"name" mapstructure:"name"`

	// ChildRatioNum/Den scale the child clock's period relative to the
	// root's, e.g. 1/2 for a clock with half the root's period (twice its
	// rate).
	ChildRatioNum uint32 `yaml:"childRatioNum" mapstructure:"childRatioNum"`
	ChildRatioDen uint32 `yaml:"childRatioDen" mapstructure:"childRatioDen"`

	// RetireThreshold is the retired-instruction count the stop trigger
	// waits for before calling Scheduler.StopRunning.
	RetireThreshold int64 `yaml:"retireThreshold" mapstructure:"retireThreshold"`
}

// DefaultDescriptor describes a small two-stage pipeline: a root clock and
// a child clock with half the root's period, stopping after 1000
// retirements.
func DefaultDescriptor() Descriptor {
	return Descriptor{
		Name:            "demo",
		ChildRatioNum:   1,
		ChildRatioDen:   2,
		RetireThreshold: 1000,
	}
}

// Tree is an assembled example model: the scheduler, its clock pair, and
// the counter a driver reports progress from.
type Tree struct {
	Scheduler *scheduler.Scheduler
	Root      *clock.Clock
	Child     *clock.Clock
	Retired   *trigger.Counter

	retireEv *scheduleable.UniqueEvent
}

// Build assembles a Tree from d: a root clock, a child clock at
// d.ChildRatioNum/Den, a continuing per-tick "retire" event on the child
// clock that increments Retired, and a CounterTrigger that stops the
// scheduler once Retired reaches d.RetireThreshold. The scheduler is
// finalized and the retire event's first occurrence scheduled; driving
// Run is left to the caller.
func Build(d Descriptor) (*Tree, error) {
	sched := scheduler.New(nil)

	root, err := clock.New(d.Name, sched)
	if err != nil {
		return nil, fmt.Errorf("model: building root clock: %w", err)
	}
	child, err := clock.NewChild(d.Name+".child", root, d.ChildRatioNum, d.ChildRatioDen)
	if err != nil {
		return nil, fmt.Errorf("model: building child clock: %w", err)
	}
	if err := clock.Normalize([]*clock.Clock{root}); err != nil {
		return nil, fmt.Errorf("model: normalizing clocks: %w", err)
	}

	retired := trigger.NewCounter("instructions-retired")
	mgr := trigger.NewManager(sched.DAG(), sched)

	var retireEv *scheduleable.UniqueEvent
	retireEv, err = scheduleable.NewUniqueEvent(sched.DAG(), "retire", handler.New0("retire", func() {
		retired.Add(1)
		_ = retireEv.Schedule(-1, nil)
	}), 1, dag.PhaseTick)
	if err != nil {
		return nil, fmt.Errorf("model: building retire event: %w", err)
	}
	retireEv.SetClock(child, sched)
	retireEv.SetContinuing(true)

	if _, err := trigger.NewCounterTrigger(mgr, "retire-threshold", child, retired, d.RetireThreshold, sched.StopRunning); err != nil {
		return nil, fmt.Errorf("model: building stop trigger: %w", err)
	}

	if err := sched.Finalize(); err != nil {
		return nil, fmt.Errorf("model: finalizing scheduler: %w", err)
	}
	if err := retireEv.Schedule(-1, nil); err != nil {
		return nil, fmt.Errorf("model: scheduling retire event: %w", err)
	}

	return &Tree{
		Scheduler: sched,
		Root:      root,
		Child:     child,
		Retired:   retired,
		retireEv:  retireEv,
	}, nil
}
