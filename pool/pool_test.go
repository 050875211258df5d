/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package pool_test

import (
	"github.com/sabouaram/ahttp/message"
	"github.com/sabouaram/ahttp/pool"
	"github.com/sabouaram/ahttp/tlsconf"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func mustURI(raw string) *message.URI {
	u, err := message.ParseURI(raw)
	Expect(err).ToNot(HaveOccurred())
	return u
}

var _ = Describe("Pool", func() {
	var p *pool.Pool

	BeforeEach(func() {
		p = pool.New(tlsconf.Config{}, 100, true, 0)
	})

	Describe("Checkout", func() {
		It("starts empty", func() {
			Expect(p.Len()).To(Equal(0))
		})

		It("dials a fresh channel for a new key", func() {
			ch := p.Checkout(mustURI("http://example.com/"))
			Expect(ch).ToNot(BeNil())
			Expect(p.Len()).To(Equal(1))
		})

		It("reuses the same channel for the same scheme/host/port", func() {
			first := p.Checkout(mustURI("http://example.com/a"))
			second := p.Checkout(mustURI("http://example.com/b"))
			Expect(second).To(BeIdenticalTo(first))
			Expect(p.Len()).To(Equal(1))
		})

		It("dials distinct channels for distinct hosts", func() {
			a := p.Checkout(mustURI("http://example.com/"))
			b := p.Checkout(mustURI("http://example.org/"))
			Expect(a).ToNot(BeIdenticalTo(b))
			Expect(p.Len()).To(Equal(2))
		})

		It("dials distinct channels for distinct ports on the same host", func() {
			a := p.Checkout(mustURI("http://example.com:8080/"))
			b := p.Checkout(mustURI("http://example.com:9090/"))
			Expect(a).ToNot(BeIdenticalTo(b))
			Expect(p.Len()).To(Equal(2))
		})

		It("falls back to a fresh dial when no coalescing candidate exists yet", func() {
			ch := p.Checkout(mustURI("https://example.com/"))
			Expect(ch).ToNot(BeNil())
			Expect(ch.Protocol()).To(Equal(""))
		})
	})

	Describe("Prune", func() {
		It("removes nothing while every channel is still live", func() {
			p.Checkout(mustURI("http://example.com/"))
			p.Prune()
			Expect(p.Len()).To(Equal(1))
		})
	})

	Describe("SetResolveHook", func() {
		It("consults the hook for every fresh dial", func() {
			seen := ""
			p.SetResolveHook(func(host string) (string, bool) {
				seen = host
				return "203.0.113.1", true
			})

			ch := p.Checkout(mustURI("http://example.com/"))
			Expect(ch).ToNot(BeNil())
			Expect(seen).To(Equal("example.com"))
		})

		It("falls back to the hostname when the hook reports a miss", func() {
			p.SetResolveHook(func(host string) (string, bool) { return "", false })

			ch := p.Checkout(mustURI("http://example.net/"))
			Expect(ch).ToNot(BeNil())
		})
	})

	Describe("SetLocalAddr", func() {
		It("still dials successfully once a local bind address is pinned", func() {
			p.SetLocalAddr("127.0.0.1")
			ch := p.Checkout(mustURI("http://example.com/"))
			Expect(ch).ToNot(BeNil())
		})
	})
})
