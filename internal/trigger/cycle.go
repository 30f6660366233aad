package trigger

import (
	"errors"

	"github.com/google/uuid"

	"github.com/latticesim/kernel/internal/clock"
	"github.com/latticesim/kernel/internal/dag"
	"github.com/latticesim/kernel/internal/handler"
	"github.com/latticesim/kernel/internal/scheduleable"
)

// PicosecondsPerSecond is the calibration constant TimeTrigger validates
// scheduler frequencies against: a Tick is one picosecond by convention.
const PicosecondsPerSecond = 1_000_000_000_000

// ErrFrequencyNotCommensurate is returned by NewTimeTrigger when the given
// ticks-per-second is neither a multiple nor a divisor of
// PicosecondsPerSecond, so no clean tick <-> picosecond translation exists.
var ErrFrequencyNotCommensurate = errors.New("trigger: frequency not commensurate with picoseconds-per-second")

// ValidateFrequency reports whether ticksPerSecond translates cleanly to
// and from picoseconds: it must evenly divide, or be evenly divided by,
// PicosecondsPerSecond.
func ValidateFrequency(ticksPerSecond uint64) error {
	if ticksPerSecond == 0 {
		return ErrFrequencyNotCommensurate
	}
	if PicosecondsPerSecond%ticksPerSecond == 0 {
		return nil
	}
	if ticksPerSecond%PicosecondsPerSecond == 0 {
		return nil
	}
	return ErrFrequencyNotCommensurate
}

// CycleTrigger is a one-shot that fires its callback exactly once, the
// first time the scheduler reaches an absolute tick. If constructed while
// the scheduler is still BUILDING, it installs itself via a StartupEvent so
// the first schedule happens once current_tick is well defined; otherwise
// it schedules immediately against the live tick.
type CycleTrigger struct {
	name     string
	clk      *clock.Clock
	absTick  clock.Tick
	callback func()
	fired    bool
	ev       *scheduleable.Scheduleable
}

// NewCycleTrigger constructs a CycleTrigger that fires at the start of
// clk's absCycle-th cycle.
func NewCycleTrigger(d *dag.DAG, sched Scheduler, name string, clk *clock.Clock, absCycle uint64, callback func()) (*CycleTrigger, error) {
	return newCycleTriggerAtTick(d, sched, name, clk, clk.GetTick(absCycle), callback)
}

// NewTimeTrigger constructs a CycleTrigger that fires at an absolute
// picosecond value, after validating that ticksPerSecond is commensurate
// with picoseconds-per-second; the picosecond value is converted to ticks
// at ticksPerSecond.
func NewTimeTrigger(d *dag.DAG, sched Scheduler, name string, clk *clock.Clock, absPicoseconds uint64, ticksPerSecond uint64, callback func()) (*CycleTrigger, error) {
	if err := ValidateFrequency(ticksPerSecond); err != nil {
		return nil, err
	}
	var absTick clock.Tick
	if PicosecondsPerSecond%ticksPerSecond == 0 {
		absTick = clock.Tick(absPicoseconds / (PicosecondsPerSecond / ticksPerSecond))
	} else {
		absTick = clock.Tick(absPicoseconds * (ticksPerSecond / PicosecondsPerSecond))
	}
	return newCycleTriggerAtTick(d, sched, name, clk, absTick, callback)
}

func newCycleTriggerAtTick(d *dag.DAG, sched Scheduler, name string, clk *clock.Clock, absTick clock.Tick, callback func()) (*CycleTrigger, error) {
	if name == "" {
		name = uuid.NewString()
	}
	ct := &CycleTrigger{name: name, clk: clk, absTick: absTick, callback: callback}

	ev, err := scheduleable.New(d, name, handler.New0(name, ct.fire), 0, dag.PhaseTrigger)
	if err != nil {
		return nil, err
	}
	ev.SetClock(clk, sched)
	ct.ev = ev

	if sched.IsBuilding() {
		es := scheduleable.NewEventSet(d, clk, sched)
		se, err := es.StartupEvent(name+":start", func() { _ = ct.install(sched) })
		if err != nil {
			return nil, err
		}
		if err := sched.AddStartupEvent(se); err != nil {
			return nil, err
		}
	} else if err := ct.install(sched); err != nil {
		return nil, err
	}
	return ct, nil
}

func (ct *CycleTrigger) install(sched Scheduler) error {
	cur := sched.CurrentTick()
	var delay clock.Tick
	if ct.absTick > cur {
		delay = ct.absTick - cur
	}
	return ct.ev.ScheduleRelativeTick(delay, sched)
}

func (ct *CycleTrigger) fire() {
	if ct.fired {
		return
	}
	ct.fired = true
	if ct.callback != nil {
		ct.callback()
	}
}

// Name returns the trigger's debug name.
func (ct *CycleTrigger) Name() string { return ct.name }

// Clock returns the clock absTick is measured against.
func (ct *CycleTrigger) Clock() *clock.Clock { return ct.clk }

// AbsoluteTick returns the absolute tick this trigger fires at.
func (ct *CycleTrigger) AbsoluteTick() clock.Tick { return ct.absTick }

// Fired reports whether the one-shot has already fired.
func (ct *CycleTrigger) Fired() bool { return ct.fired }
