package scheduler

import (
	"github.com/latticesim/kernel/internal/dag"
	"github.com/latticesim/kernel/internal/handler"
	"github.com/latticesim/kernel/internal/scheduleable"
)

// noopSentinel is the shared cancelled-event placeholder: CancelEvent
// overwrites matching queue slots with this value rather than compacting
// the slice, so in-progress index-based iteration over a firing group
// remains valid. Its backing DAG and vertex exist only so Scheduleable's
// accessors (Group, Phase) never dereference a nil vertex if inspected.
var (
	sentinelDAG    = dag.New(false)
	sentinelVertex *scheduleable.Scheduleable
)

func init() {
	s, err := scheduleable.New(sentinelDAG, "<cancelled>", handler.Noop, 0, dag.PhaseTrigger)
	if err != nil {
		panic("scheduler: failed to build cancelled-event sentinel: " + err.Error())
	}
	sentinelVertex = s
}

// noopScheduleable returns the process-wide cancelled-event sentinel.
func noopScheduleable() *scheduleable.Scheduleable {
	return sentinelVertex
}
