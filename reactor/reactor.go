/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

// Package reactor drives the single-threaded cooperative scheduling loop
// that calls channel.Channel.Call and resolver.Resolver.Tick on readiness,
// per spec.md §4.I/§5. There is no portable raw-epoll surface over net.Conn
// in pure Go (see DESIGN.md Open Question resolution 5), so Reactor instead
// probes every registered participant each tick and sleeps between ticks
// for a duration bounded by the nearest known deadline, functionally
// equivalent cooperative multiplexing without OS-level readiness
// notification.
package reactor

import (
	"context"
	"sync"
	"time"

	"github.com/sabouaram/ahttp/channel"
	"github.com/sabouaram/ahttp/resolver"
)

// DefaultTickFloor is the sleep between ticks while at least one
// participant has outstanding work.
const DefaultTickFloor = 10 * time.Millisecond

// DefaultIdleBackoff is the sleep between ticks once every participant
// reports nothing to do, to avoid busy-spinning an otherwise-quiet Reactor.
const DefaultIdleBackoff = 250 * time.Millisecond

// Delivery pairs an Event with the Channel that produced it, so a single
// Reactor can multiplex many channels onto one callback.
type Delivery struct {
	Channel *channel.Channel
	Event   channel.Event
}

// Reactor multiplexes a set of channel.Channel and resolver.Resolver
// participants under one cooperative loop. Registration and unregistration
// are safe to call from any goroutine; Tick/Run are not meant to run
// concurrently with each other.
type Reactor struct {
	mu         sync.Mutex
	channels   []*channel.Channel
	resolvers  []resolver.Resolver
	tickFloor  time.Duration
	idleWait   time.Duration
	lastTick   time.Time
	haveTicked bool
	resBusy    bool
}

// New returns a Reactor with the given busy-tick and idle-backoff
// intervals. Either may be zero, in which case the matching default
// applies.
func New(tickFloor, idleBackoff time.Duration) *Reactor {
	if tickFloor <= 0 {
		tickFloor = DefaultTickFloor
	}
	if idleBackoff <= 0 {
		idleBackoff = DefaultIdleBackoff
	}
	return &Reactor{
		tickFloor: tickFloor,
		idleWait:  idleBackoff,
	}
}

// Register adds ch to the set of participants polled each tick.
func (r *Reactor) Register(ch *channel.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = append(r.channels, ch)
}

// Unregister removes ch. Per spec.md §5, cancellation of a Channel is
// exactly "unregister, then let it close itself" — the Reactor does not
// itself close participants.
func (r *Reactor) Unregister(ch *channel.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.channels {
		if c == ch {
			r.channels = append(r.channels[:i], r.channels[i+1:]...)
			return
		}
	}
}

// RegisterResolver adds res to the set of resolvers ticked each cycle.
func (r *Reactor) RegisterResolver(res resolver.Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers = append(r.resolvers, res)
}

// Tick runs exactly one pass: every registered Channel whose Interest is
// non-empty is called, every registered Resolver is advanced by the
// elapsed wall time since the previous Tick, and channels that closed
// themselves during the pass are pruned. It returns every Event produced,
// in the order each Channel reported them — per spec.md §5, events from a
// single Channel are never reordered relative to each other, but Channels
// are visited in registration order so events across different Channels
// interleave by poll order, not by arrival time.
func (r *Reactor) Tick() []Delivery {
	r.mu.Lock()
	channels := append([]*channel.Channel(nil), r.channels...)
	resolvers := append([]resolver.Resolver(nil), r.resolvers...)
	var elapsed time.Duration
	now := r.now()
	if r.haveTicked {
		elapsed = now.Sub(r.lastTick)
	}
	r.lastTick = now
	r.haveTicked = true
	r.mu.Unlock()

	busy := false
	for _, res := range resolvers {
		if res.Tick(elapsed) {
			busy = true
		}
	}
	r.mu.Lock()
	r.resBusy = busy
	r.mu.Unlock()

	var out []Delivery
	var live []*channel.Channel
	for _, ch := range channels {
		if ch.Closed() {
			continue
		}

		interest := ch.Interest()
		if interest.Read || interest.Write {
			for _, ev := range ch.Call() {
				out = append(out, Delivery{Channel: ch, Event: ev})
			}
		}
		if !ch.Closed() {
			live = append(live, ch)
		}
	}

	r.mu.Lock()
	r.channels = live
	r.mu.Unlock()

	return out
}

// now is a seam so tests can be written without depending on wall-clock
// timing; production code always uses time.Now.
func (r *Reactor) now() time.Time {
	return time.Now()
}

// NextWait computes how long Run should sleep before the next Tick: the
// tick floor whenever any participant has outstanding work (an open
// Interest or a prior resolver Tick that reported more to do), clamped so
// it never sleeps past the earliest registered Channel deadline, and
// backing off to the idle wait once nothing is pending at all.
func (r *Reactor) NextWait(resolversBusy bool) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	busy := resolversBusy
	var deadline time.Time
	haveDeadline := false

	for _, ch := range r.channels {
		if ch.Closed() {
			continue
		}
		interest := ch.Interest()
		if interest.Read || interest.Write {
			busy = true
		}
		if d, ok := ch.NextDeadline(); ok {
			if !haveDeadline || d.Before(deadline) {
				deadline = d
				haveDeadline = true
			}
		}
	}

	wait := r.idleWait
	if busy {
		wait = r.tickFloor
	}

	if haveDeadline {
		if until := time.Until(deadline); until > 0 && until < wait {
			wait = until
		} else if until <= 0 {
			wait = 0
		}
	}

	if wait < 0 {
		wait = 0
	}
	return wait
}

// Run loops Tick until ctx is cancelled, calling onEvent for every Delivery
// produced and sleeping between ticks per NextWait. It returns ctx.Err()
// once the context is done.
func (r *Reactor) Run(ctx context.Context, onEvent func(Delivery)) error {
	for {
		for _, d := range r.Tick() {
			if onEvent != nil {
				onEvent(d)
			}
		}

		r.mu.Lock()
		resolversBusy := r.resBusy
		r.mu.Unlock()

		wait := r.NextWait(resolversBusy)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
