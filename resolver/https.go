/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package resolver

import (
	"fmt"
	"net"
	"time"

	"github.com/sabouaram/ahttp/errs"
)

// DoHFetcher performs the actual DoH HTTP exchange: POST the raw DNS query
// (application/dns-message) to url and return the raw DNS response bytes.
// The session package supplies this so the resolver never imports session
// and create an import cycle.
type DoHFetcher func(url string, query []byte) ([]byte, error)

// httpsResolver speaks DNS-over-HTTPS (RFC 8484). Its own bootstrap problem
// — resolving the DoH server's hostname — is circular, so BootstrapIP must
// be a literal IP; a hostname is rejected at construction.
type httpsResolver struct {
	url         string
	bootstrapIP net.IP
	fetch       DoHFetcher
	cache       *cache
	inflight    int
}

// NewHTTPS returns a DoH-backed Resolver. url is the DoH query endpoint;
// bootstrapIP must be a literal IP address (not a hostname) since resolving
// a hostname for the DoH endpoint itself would recurse.
func NewHTTPS(url string, bootstrapIP string, fetch DoHFetcher) (Resolver, errs.Error) {
	ip := net.ParseIP(bootstrapIP)
	if ip == nil {
		return nil, errs.New(CodeBadBootstrap, fmt.Sprintf("resolver: bootstrap IP %q is not a literal IP address", bootstrapIP))
	}
	return &httpsResolver{
		url:         url,
		bootstrapIP: ip,
		fetch:       fetch,
		cache:       newCache(),
	}, nil
}

func (r *httpsResolver) Resolve(host string, recordTypes []uint16, deadline time.Time) <-chan Result {
	if len(recordTypes) == 0 {
		recordTypes = DefaultRecordTypes
	}
	ch := make(chan Result, 1)

	if addrs, ok := r.cache.get(host, recordTypes[0]); ok {
		ch <- Result{Addrs: addrs}
		return ch
	}

	r.inflight++
	go func() {
		defer func() { r.inflight-- }()

		id := uint16(time.Now().UnixNano())
		q := encodeQuery(id, host, recordTypes[0])

		raw, err := r.fetch(r.url, q)
		if err != nil {
			ch <- Result{Err: errs.New(CodeResolveFailed, "resolver: doh fetch failed", err)}
			return
		}

		msg, derr := decodeMessage(raw)
		if derr != nil {
			ch <- Result{Err: errs.New(CodeResolveFailed, "resolver: doh response malformed", derr)}
			return
		}

		var addrs []net.IP
		var ttl uint32
		for _, a := range msg.answers {
			if a.rtype == recordTypes[0] && a.ip != nil {
				addrs = append(addrs, a.ip)
				ttl = a.ttl
			}
		}

		if len(addrs) == 0 {
			ch <- Result{Err: errs.New(CodeResolveFailed, "resolver: doh returned no addresses")}
			return
		}

		r.cache.set(host, recordTypes[0], addrs, time.Duration(ttl)*time.Second)
		ch <- Result{Addrs: addrs}
	}()

	return ch
}

func (r *httpsResolver) Tick(elapsed time.Duration) bool {
	return r.inflight > 0
}

func (r *httpsResolver) Close() error {
	return nil
}
