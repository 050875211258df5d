/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package pool

import (
	"fmt"
	"net"
	"sync"

	"github.com/sabouaram/ahttp/channel"
	"github.com/sabouaram/ahttp/engine/h1"
	"github.com/sabouaram/ahttp/engine/h2"
	"github.com/sabouaram/ahttp/message"
	"github.com/sabouaram/ahttp/tlsconf"
	"github.com/sabouaram/ahttp/transport"
)

// entry is one live Channel plus the key material needed for coalescing
// lookups (the scheme/host/port it was dialed under).
type entry struct {
	ch     *channel.Channel
	scheme string
	host   string
	port   int
}

// Pool maps (scheme, host, port) onto a live channel.Channel, generalizing
// the teacher's server-side `pool []Server` (Add/Get/Del/Has/MapRun) idiom
// to client-side connection checkout.
type Pool struct {
	mu      sync.Mutex
	entries map[string]*entry

	tlsConfig       tlsconf.Config
	maxConcurrentH2 uint32
	pipeline        bool
	bodyThreshold   int64

	// resolve, when set, looks up a host's dial address from whatever the
	// session's resolver last resolved it to. The pool key, TLS SNI and H2
	// coalescing all still key off uri.Host — only the literal dial address
	// changes, so a resolver miss simply falls back to the hostname and lets
	// the transport's own net.Dialer resolve it.
	resolve func(host string) (string, bool)

	// localAddr, when set, pins every dial's local bind address, modeled on
	// the teacher's OptionForceIP. Empty leaves the kernel to pick one.
	localAddr string
}

// New returns an empty Pool. tlsConfig seeds every TLS Transport it dials;
// maxConcurrentH2 is the self-advertised SETTINGS_MAX_CONCURRENT_STREAMS
// for every engine/h2.Engine it builds; pipeline enables HTTP/1.1
// pipelining on every engine/h1.Engine it builds; bodyThreshold is the
// response body spill-to-disk threshold handed to every engine it builds
// (0 selects message.SpillThreshold).
func New(tlsConfig tlsconf.Config, maxConcurrentH2 uint32, pipeline bool, bodyThreshold int64) *Pool {
	return &Pool{
		entries:         make(map[string]*entry),
		tlsConfig:       tlsConfig,
		maxConcurrentH2: maxConcurrentH2,
		pipeline:        pipeline,
		bodyThreshold:   bodyThreshold,
	}
}

// SetResolveHook installs resolve as the pool's host-to-address lookup,
// called from dial. Passing nil (the default) leaves resolution entirely
// to the transport's own dialer.
func (p *Pool) SetResolveHook(resolve func(host string) (string, bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resolve = resolve
}

// SetLocalAddr pins every subsequent dial's local bind address to addr. An
// empty addr (the default) leaves the kernel to pick one.
func (p *Pool) SetLocalAddr(addr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.localAddr = addr
}

func poolKey(scheme, host string, port int) string {
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// Checkout returns the live Channel for uri's (scheme, host, port), dialing
// a fresh one if none exists yet or the existing one has closed itself. An
// https request first tries coalescing onto an existing H2 channel opened
// for a different hostname (see tryCoalesce) before dialing its own.
func (p *Pool) Checkout(uri *message.URI) *channel.Channel {
	p.mu.Lock()
	defer p.mu.Unlock()

	scheme, host, port := uri.PoolKey()
	key := poolKey(scheme, host, port)

	if e, ok := p.entries[key]; ok {
		if !e.ch.Closed() {
			return e.ch
		}
		delete(p.entries, key)
	}

	var ch *channel.Channel
	if scheme == "https" {
		ch = p.tryCoalesce(uri)
	}
	if ch == nil {
		ch = p.dial(uri)
	}

	p.entries[key] = &entry{ch: ch, scheme: scheme, host: host, port: port}
	return ch
}

// tryCoalesce reuses an existing H2 channel that was dialed for a different
// hostname but shares scheme, port and peer IP with uri, and whose
// negotiated certificate covers uri.Host — the Open Question resolution
// recorded in DESIGN.md (must verify, not left unchecked).
func (p *Pool) tryCoalesce(uri *message.URI) *channel.Channel {
	for key, e := range p.entries {
		if e.ch.Closed() {
			delete(p.entries, key)
			continue
		}
		if e.scheme != uri.Scheme || e.port != uri.Port || e.host == uri.Host {
			continue
		}
		if e.ch.Protocol() != "h2" {
			continue
		}

		cert := e.ch.Certificate()
		if cert == nil || cert.VerifyHostname(uri.Host) != nil {
			continue
		}
		if !sharesResolvedIP(uri.Host, e.ch.RemoteIP()) {
			continue
		}

		return e.ch
	}
	return nil
}

// sharesResolvedIP hardens the certificate check with the same IP-sharing
// test browsers apply before coalescing: uri.Host must resolve to the same
// address the candidate channel is actually talking to. This is the only
// synchronous DNS lookup anywhere in the package — it runs solely on the
// cold coalescing path, never on the hot per-request dial, so it does not
// compromise the non-blocking contract transport.Transport otherwise keeps.
func sharesResolvedIP(host string, peer net.IP) bool {
	if peer == nil {
		return false
	}
	addrs, err := net.LookupHost(host)
	if err != nil {
		return false
	}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && ip.Equal(peer) {
			return true
		}
	}
	return false
}

// dial builds a fresh Channel for uri, choosing a plain-TCP or TLS
// Transport by scheme and deferring Engine selection to the Channel itself
// (it picks engine/h1 or engine/h2 once ALPN is known).
func (p *Pool) dial(uri *message.URI) *channel.Channel {
	scheme := uri.Scheme
	host := uri.Host

	dialHost := host
	if p.resolve != nil {
		if ip, ok := p.resolve(host); ok {
			dialHost = ip
		}
	}
	addr := fmt.Sprintf("%s:%d", dialHost, uri.Port)
	localAddr := p.localAddr

	newTransport := func() transport.Transport {
		if scheme == "https" {
			return transport.NewTLSFrom(addr, localAddr, p.tlsConfig.TLS(host))
		}
		return transport.NewTCPFrom(addr, localAddr)
	}

	newEngine := func(protocol string) channel.Engine {
		if protocol == "h2" {
			return h2.New(p.maxConcurrentH2, p.bodyThreshold)
		}
		return h1.New(p.pipeline, p.bodyThreshold)
	}

	return channel.New(newTransport, newEngine)
}

// Len reports the number of tracked entries, including any not yet pruned
// for having closed themselves.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Prune removes every entry whose Channel has discarded itself.
func (p *Pool) Prune() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, e := range p.entries {
		if e.ch.Closed() {
			delete(p.entries, key)
		}
	}
}
