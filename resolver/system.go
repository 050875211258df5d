/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package resolver

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sabouaram/ahttp/errs"
)

// systemResolver delegates lookups to the OS resolver via
// net.DefaultResolver, but never on the reactor goroutine: each Resolve
// call is handed to a bounded worker pool and the result is posted back
// through the query's channel, so the reactor only ever observes completed
// work through Tick. Concurrent Resolve calls for the same (host, rtype)
// collapse onto a single net.DefaultResolver.LookupIPAddr call via sf.
type systemResolver struct {
	mu      sync.Mutex
	inflFly sync.WaitGroup
	sem     chan struct{}
	cache   *cache
	sf      singleflight.Group
	done    chan struct{}
	results chan struct{} // wakes Tick when a lookup completes
}

// NewSystem returns a Resolver backed by the OS stub resolver, running up
// to maxInFlight concurrent lookups off the reactor goroutine.
func NewSystem(maxInFlight int) Resolver {
	if maxInFlight <= 0 {
		maxInFlight = 8
	}
	return &systemResolver{
		sem:     make(chan struct{}, maxInFlight),
		cache:   newCache(),
		done:    make(chan struct{}),
		results: make(chan struct{}, maxInFlight),
	}
}

func (r *systemResolver) Resolve(host string, recordTypes []uint16, deadline time.Time) <-chan Result {
	if len(recordTypes) == 0 {
		recordTypes = DefaultRecordTypes
	}
	ch := make(chan Result, 1)

	if addrs, ok := r.cache.get(host, recordTypes[0]); ok {
		ch <- Result{Addrs: addrs}
		return ch
	}

	r.inflFly.Add(1)
	r.sem <- struct{}{}
	sfKey := fmt.Sprintf("%s/%d", host, recordTypes[0])
	go func() {
		defer r.inflFly.Done()
		defer func() { <-r.sem }()

		v, err, _ := r.sf.Do(sfKey, func() (any, error) {
			ctx := context.Background()
			if !deadline.IsZero() {
				var cancel context.CancelFunc
				ctx, cancel = context.WithDeadline(ctx, deadline)
				defer cancel()
			}

			ipAddrs, lerr := net.DefaultResolver.LookupIPAddr(ctx, host)
			if lerr != nil {
				return nil, lerr
			}

			want := wantsV6(recordTypes[0])
			addrs := make([]net.IP, 0, len(ipAddrs))
			for _, a := range ipAddrs {
				if (a.IP.To4() != nil) == !want {
					addrs = append(addrs, a.IP)
				}
			}
			if len(addrs) == 0 {
				for _, a := range ipAddrs {
					addrs = append(addrs, a.IP)
				}
			}

			r.cache.set(host, recordTypes[0], addrs, 30*time.Second)
			return addrs, nil
		})

		if err != nil {
			ch <- Result{Err: errs.New(CodeResolveFailed, "resolver: system lookup failed", err)}
		} else {
			ch <- Result{Addrs: v.([]net.IP)}
		}

		select {
		case r.results <- struct{}{}:
		default:
		}
	}()

	return ch
}

func wantsV6(rtype uint16) bool {
	return rtype == TypeAAAA
}

// Tick reports whether lookups are still in flight; the system resolver
// does its own timeout/retry bookkeeping inside the worker goroutine via
// context deadlines, so Tick has no aging work to do.
func (r *systemResolver) Tick(elapsed time.Duration) bool {
	select {
	case <-r.results:
	default:
	}
	return len(r.sem) > 0
}

func (r *systemResolver) Close() error {
	close(r.done)
	r.inflFly.Wait()
	return nil
}
