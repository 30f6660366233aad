package scheduleable

import (
	"fmt"
	"sync"

	"github.com/latticesim/kernel/internal/clock"
	"github.com/latticesim/kernel/internal/dag"
	"github.com/latticesim/kernel/internal/handler"
)

// payloadProxy is one pooled Scheduleable instance carrying a copy of a
// PayloadEvent[T]'s payload for a single pending delivery. Proxies are
// reclaimed onto a free list when their handle refcount drops to zero,
// keeping PayloadEvent's steady-state Schedule calls allocation-free.
type payloadProxy[T any] struct {
	*Scheduleable
	payload T
	owner   *PayloadEvent[T]
}

// PayloadEvent schedules deliveries of a value of type T. Each Schedule
// call obtains a proxy Scheduleable from the free list (or allocates one if
// the list is empty), stamps the payload, and schedules the proxy; the
// proxy is returned to the free list once its handler has fired.
type PayloadEvent[T any] struct {
	label   string
	deliver func(T)
	phase   dag.Phase
	delay   clock.Tick

	d     *dag.DAG
	clk   *clock.Clock
	sched Scheduler

	mu   sync.Mutex
	free []*payloadProxy[T]
	n    int
}

// NewPayloadEvent constructs a PayloadEvent[T] that invokes deliver with
// each scheduled payload, in the given phase, with a preset delay in
// cycles.
func NewPayloadEvent[T any](d *dag.DAG, label string, deliver func(T), delayCycles clock.Tick, phase dag.Phase) (*PayloadEvent[T], error) {
	if !phase.Valid() {
		return nil, fmt.Errorf("scheduleable: invalid phase %d", int(phase))
	}
	return &PayloadEvent[T]{
		label:   label,
		deliver: deliver,
		phase:   phase,
		delay:   delayCycles,
		d:       d,
	}, nil
}

// SetClock attaches the clock and scheduler used to translate delays to
// ticks for every proxy this event schedules.
func (p *PayloadEvent[T]) SetClock(clk *clock.Clock, sched Scheduler) {
	p.clk = clk
	p.sched = sched
}

// acquire pops a proxy off the free list or allocates a fresh one, bumping
// its handle refcount to 1 to mark it in flight.
func (p *PayloadEvent[T]) acquire(payload T) (*payloadProxy[T], error) {
	p.mu.Lock()
	var proxy *payloadProxy[T]
	if n := len(p.free); n > 0 {
		proxy = p.free[n-1]
		p.free = p.free[:n-1]
	}
	p.mu.Unlock()

	if proxy == nil {
		label := p.label
		p.n++
		base, err := New(p.d, label, handler.Handler{}, p.delay, p.phase)
		if err != nil {
			return nil, err
		}
		proxy = &payloadProxy[T]{Scheduleable: base, owner: p}
	}
	proxy.payload = payload
	proxy.h = handler.New0(p.label, func() {
		proxy.owner.deliver(proxy.payload)
		proxy.owner.release(proxy)
	})
	proxy.SetClock(p.clk, p.sched)
	proxy.AddRef()
	return proxy, nil
}

// release returns proxy to the free list once its handler has fired and no
// other reference remains outstanding.
func (p *PayloadEvent[T]) release(proxy *payloadProxy[T]) {
	if proxy.Release() > 0 {
		return
	}
	p.mu.Lock()
	p.free = append(p.free, proxy)
	p.mu.Unlock()
}

// Schedule obtains a proxy for payload and schedules it delayCycles cycles
// in the future of clk (or the attached clock if clk is nil).
func (p *PayloadEvent[T]) Schedule(payload T, delayCycles int64, clk *clock.Clock) error {
	proxy, err := p.acquire(payload)
	if err != nil {
		return err
	}
	return proxy.Schedule(delayCycles, clk)
}

// Pooled returns the number of proxies currently sitting idle on the free
// list, exposed for tests and diagnostics.
func (p *PayloadEvent[T]) Pooled() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Allocated returns the total number of proxies ever allocated by this
// event (pooled + in flight).
func (p *PayloadEvent[T]) Allocated() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}
