// Package handler implements the type-erased callback delegate that every
// Scheduleable carries. A Handler is deliberately a small, copyable,
// nothrow-movable value: a Scheduleable holds it by value, and tick quanta
// hold pointers to Scheduleables, so queueing an event copies no handler.
package handler

import "fmt"

// Arity is the number of arguments a Handler's underlying function accepts.
type Arity int

const (
	// Arity0 identifies a func().
	Arity0 Arity = iota
	// Arity1 identifies a func(any).
	Arity1
	// Arity2 identifies a func(any, any).
	Arity2
)

// Handler is a type-erased callback reference: a debug name plus exactly one
// of a 0/1/2-argument function pointer, selected by Arity. Equality is by
// name, matching the spec's "Equality is by name" invariant.
type Handler struct {
	name  string
	arity Arity
	fn0   func()
	fn1   func(any)
	fn2   func(any, any)
}

// New0 builds a zero-argument Handler, the common case and the one kept
// branch-free on the invocation path.
func New0(name string, fn func()) Handler {
	return Handler{name: name, arity: Arity0, fn0: fn}
}

// New1 builds a one-argument Handler, used by PayloadEvent[T] proxies.
func New1(name string, fn func(any)) Handler {
	return Handler{name: name, arity: Arity1, fn1: fn}
}

// New2 builds a two-argument Handler.
func New2(name string, fn func(any, any)) Handler {
	return Handler{name: name, arity: Arity2, fn2: fn}
}

// Name returns the Handler's debug name. Two handlers compare equal iff
// their names compare equal.
func (h Handler) Name() string { return h.name }

// Arity reports how many arguments Invoke expects.
func (h Handler) Arity() Arity { return h.arity }

// IsZero reports whether h was never assigned a callback.
func (h Handler) IsZero() bool {
	return h.fn0 == nil && h.fn1 == nil && h.fn2 == nil
}

// Invoke calls the underlying function with the given arguments, ignoring
// any that are not needed for h's arity. Calling Invoke on a zero Handler
// panics, since that indicates a Scheduleable was fired before it was ever
// bound to a callback — a programmer error, not a runtime condition.
func (h Handler) Invoke(args ...any) {
	switch h.arity {
	case Arity0:
		if h.fn0 == nil {
			panic(fmt.Sprintf("handler %q: invoked with no 0-arg function bound", h.name))
		}
		h.fn0()
	case Arity1:
		if h.fn1 == nil {
			panic(fmt.Sprintf("handler %q: invoked with no 1-arg function bound", h.name))
		}
		var a any
		if len(args) > 0 {
			a = args[0]
		}
		h.fn1(a)
	case Arity2:
		if h.fn2 == nil {
			panic(fmt.Sprintf("handler %q: invoked with no 2-arg function bound", h.name))
		}
		var a, b any
		if len(args) > 0 {
			a = args[0]
		}
		if len(args) > 1 {
			b = args[1]
		}
		h.fn2(a, b)
	default:
		panic(fmt.Sprintf("handler %q: unknown arity %d", h.name, h.arity))
	}
}

// Noop is the shared sentinel handler used to replace cancelled scheduling
// slots without compacting group vectors (see scheduler.CancelEvent).
var Noop = New0("<cancelled>", func() {})

// String implements fmt.Stringer for log lines.
func (h Handler) String() string {
	return h.name
}
