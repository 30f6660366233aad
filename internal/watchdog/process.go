package watchdog

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Process is the Watchdog backing a real run: it spawns exactly one
// goroutine, process-wide, that wakes on pollInterval, compares simulated
// tick progress against budgetTicks consecutive stale polls, and samples
// wall-clock and process CPU time via gopsutil for the diagnostic it logs
// on expiry.
type Process struct {
	log *slog.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool

	lastTick uint64
	lastKick time.Time
}

// NewProcess constructs a Process watchdog that logs through log, or
// slog.Default() if nil.
func NewProcess(log *slog.Logger) *Process {
	if log == nil {
		log = slog.Default()
	}
	return &Process{log: log}
}

func (p *Process) Start(pollInterval time.Duration, budgetTicks uint64, currentTick func() uint64, onExpire func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	p.started = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.lastTick = currentTick()
	p.lastKick = time.Now()

	proc, procErr := process.NewProcess(int32(os.Getpid()))
	startWall := time.Now()

	go func() {
		defer close(p.doneCh)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		var stale uint64
		lastPoll := time.Now()
		for {
			select {
			case <-p.stopCh:
				return
			case <-ticker.C:
				cur := currentTick()
				p.mu.Lock()
				progressed := cur != p.lastTick || p.lastKick.After(lastPoll)
				if progressed {
					p.lastTick = cur
				}
				p.mu.Unlock()
				lastPoll = time.Now()

				if progressed {
					stale = 0
					continue
				}
				stale++
				if stale < budgetTicks {
					continue
				}

				wall := time.Since(startWall)
				var cpuPct float64
				if procErr == nil {
					if pct, err := proc.CPUPercent(); err == nil {
						cpuPct = pct
					}
				}
				p.log.Warn("watchdog detected a simulated-time stall",
					"tick", cur, "wall", wall, "processCPUPercent", cpuPct, "staleBudget", budgetTicks)
				onExpire()
				return
			}
		}
	}()
}

func (p *Process) Kick() {
	p.mu.Lock()
	p.lastKick = time.Now()
	p.mu.Unlock()
}

func (p *Process) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.started = false
	p.mu.Unlock()

	close(stopCh)
	<-doneCh
}

var _ Watchdog = (*Process)(nil)
