// Package fabric implements the message fabric that lets any emulated or
// physical subsystem talk to the other two without knowing which is which
// (C6, spec.md §4.6). It exposes two shapes:
//
//   - Port[T]: a single destination buffer with exactly one reader and any
//     number of writers — the shape every subsystem's packet inbox takes,
//     since both of its siblings (or a serial relay standing in for one of
//     them) may write into it concurrently.
//   - Fanout[T]: one producer broadcasting the same value into several
//     Port[T] targets — the shape the positions feed takes, fanning out
//     from the pose computer to SS and to the GUI.
//
// Both are built on Go's native channel and mutex primitives rather than a
// hand-rolled mutex-guarded ring buffer, per spec.md §9's design note to
// avoid exposing raw locked queues to the state machines that consume them.
package fabric

import (
	"errors"
	"sync"
)

// ErrNoData is returned by Port.TryReceive when the buffer is currently
// empty.
var ErrNoData = errors.New("fabric: no data available")

// Bound is a target buffer's backpressure policy. Infinite buffers never
// block a writer — used for command packets, where dropping a slow reader
// would deadlock a sibling subsystem's tag-driven rendezvous. Finite(n)
// buffers block a writer once n items are queued — used for the pose feed,
// where only the freshest sample matters and an unbounded backlog would
// make the visible robot lag behind the physics.
type Bound struct {
	n      int
	finite bool
}

// Infinite is the unbounded backpressure policy.
func Infinite() Bound { return Bound{} }

// Finite is the bounded backpressure policy: a writer blocks once the
// target already holds n queued items.
func Finite(n int) Bound { return Bound{n: n, finite: true} }

// Port is a FIFO destination buffer with one reader and any number of
// concurrent writers. Concurrent sends are serialised by the port's
// internal synchronisation, preserving FIFO order relative to any single
// sender and at-most-once delivery.
type Port[T any] struct {
	bound Bound

	// unbounded backend
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []T
	closed bool

	// bounded backend
	ch chan T
}

// NewPort creates an empty Port with the given backpressure policy.
func NewPort[T any](bound Bound) *Port[T] {
	p := &Port[T]{bound: bound}
	if bound.finite {
		p.ch = make(chan T, bound.n)
	} else {
		p.cond = sync.NewCond(&p.mu)
	}
	return p
}

// Send appends t to the port's buffer. For an Infinite port this never
// blocks. For a Finite(n) port, Send blocks once n items are already
// queued — Go's native channel backpressure standing in for the original
// design's sleep-and-retry poll, to the same effect without busy-waiting.
func (p *Port[T]) Send(t T) {
	if p.bound.finite {
		p.ch <- t
		return
	}

	p.mu.Lock()
	p.queue = append(p.queue, t)
	p.mu.Unlock()
	p.cond.Signal()
}

// Receive blocks until an item is available, then returns it in FIFO
// order. Receive returns ok=false only once the port has been closed and
// drained — mirroring a channel-closure read.
func (p *Port[T]) Receive() (t T, ok bool) {
	if p.bound.finite {
		t, ok = <-p.ch
		return t, ok
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.queue) == 0 {
		return t, false
	}
	t = p.queue[0]
	p.queue = p.queue[1:]
	return t, true
}

// TryReceive returns immediately with ErrNoData if the buffer is empty,
// rather than blocking.
func (p *Port[T]) TryReceive() (T, error) {
	if p.bound.finite {
		select {
		case t, ok := <-p.ch:
			if !ok {
				var zero T
				return zero, ErrNoData
			}
			return t, nil
		default:
			var zero T
			return zero, ErrNoData
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		var zero T
		return zero, ErrNoData
	}
	t := p.queue[0]
	p.queue = p.queue[1:]
	return t, nil
}

// Close marks the port closed, waking any blocked Receive once the buffer
// has drained.
func (p *Port[T]) Close() {
	if p.bound.finite {
		close(p.ch)
		return
	}
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
}

// Fanout broadcasts every sent value into a fixed set of target Ports —
// the three-way-fan-out shape spec.md §9 calls out explicitly in place of
// a shared broadcast bus, so each target keeps its own FIFO ordering.
type Fanout[T any] struct {
	targets []*Port[T]
}

// NewFanout creates a Fanout over the given targets.
func NewFanout[T any](targets ...*Port[T]) *Fanout[T] {
	return &Fanout[T]{targets: targets}
}

// Send writes t into every target, applying each target's own Bound
// policy.
func (f *Fanout[T]) Send(t T) {
	for _, target := range f.targets {
		target.Send(t)
	}
}
