/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package resolver

import (
	"net"
	"time"

	"github.com/sabouaram/ahttp/atomx"
)

type cacheKey struct {
	host  string
	rtype uint16
}

type cacheEntry struct {
	addrs   []net.IP
	expires time.Time
}

// cache is a TTL cache for resolved addresses. Every resolver constructor
// builds its own with newCache, so entries are not shared between resolver
// instances or between Sessions. It is modeled on the teacher's dns-mapper
// sync.Map cache but backed by a copy-on-write
// snapshot under an atomx.Value so get (the hot path, consulted on every
// Resolve) never takes a lock: it's one atomic load and a plain map read.
type cache struct {
	snap *atomx.Value[map[cacheKey]cacheEntry]
}

func newCache() *cache {
	return &cache{snap: atomx.New(map[cacheKey]cacheEntry{})}
}

func (c *cache) get(host string, rtype uint16) ([]net.IP, bool) {
	key := cacheKey{host: host, rtype: rtype}
	e, ok := c.snap.Load()[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		c.delete(key)
		return nil, false
	}
	return e.addrs, true
}

func (c *cache) set(host string, rtype uint16, addrs []net.IP, ttl time.Duration) {
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	key := cacheKey{host: host, rtype: rtype}
	entry := cacheEntry{addrs: addrs, expires: time.Now().Add(ttl)}

	old := c.snap.Load()
	next := make(map[cacheKey]cacheEntry, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[key] = entry
	c.snap.Store(next)
}

func (c *cache) delete(key cacheKey) {
	old := c.snap.Load()
	if _, ok := old[key]; !ok {
		return
	}
	next := make(map[cacheKey]cacheEntry, len(old))
	for k, v := range old {
		if k != key {
			next[k] = v
		}
	}
	c.snap.Store(next)
}

// cleaner periodically drops expired entries, same ticker-goroutine shape as
// dns-mapper's TimeCleaner.
func (c *cache) cleaner(stop <-chan struct{}, every time.Duration) {
	if every < 5*time.Second {
		every = time.Minute
	}

	go func() {
		t := time.NewTicker(every)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				now := time.Now()
				old := c.snap.Load()
				next := make(map[cacheKey]cacheEntry, len(old))
				for k, e := range old {
					if !now.After(e.expires) {
						next[k] = e
					}
				}
				c.snap.Store(next)
			case <-stop:
				return
			}
		}
	}()
}
