/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package session

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/sabouaram/ahttp/channel"
	"github.com/sabouaram/ahttp/cookiejar"
	"github.com/sabouaram/ahttp/hook"
	"github.com/sabouaram/ahttp/logx"
	"github.com/sabouaram/ahttp/message"
	"github.com/sabouaram/ahttp/pool"
	"github.com/sabouaram/ahttp/reactor"
	"github.com/sabouaram/ahttp/tlsconf"
)

func newTestSession(t *testing.T, hooks hook.Hooks) *Session {
	t.Helper()
	jar, err := cookiejar.New()
	if err != nil {
		t.Fatalf("cookiejar.New: %v", err)
	}
	return &Session{
		opts:    Options{UserAgent: "ahttp-test/1.0"},
		hooks:   hooks,
		pool:    pool.New(tlsconf.Config{}, 100, true, 0),
		reactor: reactor.New(0, 0),
		jar:     jar,
		logger:  logx.New(),
		addrs:   make(map[string]string),
	}
}

func TestNewResolverSelectsSystemByDefault(t *testing.T) {
	res, err := newResolver(Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil {
		t.Fatal("expected a non-nil system resolver")
	}
	_ = res.Close()
}

func TestNewResolverRejectsUnknownClass(t *testing.T) {
	_, err := newResolver(Options{ResolverClass: "carrier-pigeon"})
	if err == nil {
		t.Fatal("expected an error for an unknown resolver class")
	}
	if err.Code() != CodeNoResolver {
		t.Fatalf("expected CodeNoResolver, got %v", err.Code())
	}
}

func TestNewResolverHTTPSRequiresBootstrapIP(t *testing.T) {
	_, err := newResolver(Options{ResolverClass: "https"})
	if err == nil {
		t.Fatal("expected an error when resolverOptions.bootstrapIp is empty")
	}
	if err.Code() != CodeBadBootstrap {
		t.Fatalf("expected CodeBadBootstrap, got %v", err.Code())
	}
}

func TestIsRedirect(t *testing.T) {
	cases := map[int]bool{
		http.StatusOK:                false,
		http.StatusMovedPermanently:  true,
		http.StatusFound:             true,
		http.StatusSeeOther:          true,
		http.StatusNotModified:       false,
		http.StatusTemporaryRedirect: true,
		http.StatusPermanentRedirect: true,
	}
	for status, want := range cases {
		if got := isRedirect(status); got != want {
			t.Errorf("isRedirect(%d) = %v, want %v", status, got, want)
		}
	}
}

func TestPrepareAppliesHeadersParamsAndCookies(t *testing.T) {
	s := newTestSession(t, hook.Hooks{})

	uri, _ := message.ParseURI("http://example.com/search")
	_ = uri
	s.jar.Observe(mustURI(t, "http://example.com/"), responseWithCookie("token=abc"))

	c := s.prepare(context.Background(), BatchRequest{
		Verb: "get",
		URI:  "http://example.com/search",
		Options: RequestOptions{
			Headers: map[string]string{"X-Test": "1"},
			Params:  url.Values{"q": {"go"}},
			Timeout: time.Second,
		},
	})

	if c.done {
		t.Fatalf("expected prepare to succeed, got error %v", c.result.Error)
	}
	if got := c.req.Headers.Get("X-Test"); got != "1" {
		t.Fatalf("expected custom header to be set, got %q", got)
	}
	if got := c.req.Headers.Get("User-Agent"); got != "ahttp-test/1.0" {
		t.Fatalf("expected the session's UserAgent, got %q", got)
	}
	if c.req.URI.Query != "q=go" {
		t.Fatalf("expected params to be encoded into the query, got %q", c.req.URI.Query)
	}
	if got := c.req.Headers.Get("Cookie"); got != "token=abc" {
		t.Fatalf("expected the cookie jar to populate Cookie, got %q", got)
	}
	if c.deadline.IsZero() {
		t.Fatal("expected a non-zero deadline from RequestOptions.Timeout")
	}
}

func TestPrepareInvalidURIFailsImmediately(t *testing.T) {
	s := newTestSession(t, hook.Hooks{})
	c := s.prepare(context.Background(), BatchRequest{Verb: "get", URI: "not a uri"})
	if !c.done {
		t.Fatal("expected an invalid uri to finalize the call immediately")
	}
	if c.result.Error == nil {
		t.Fatal("expected an ErrorResponse for an invalid uri")
	}
}

func TestDeliverFollowsRedirectWhenHookApproves(t *testing.T) {
	followed := false
	s := newTestSession(t, hook.Hooks{
		Follow: func(req *message.Request, resp *message.Response, location string) hook.RedirectDecision {
			followed = true
			return hook.RedirectDecision{Follow: true, Location: location}
		},
	})

	c := s.prepare(context.Background(), BatchRequest{Verb: "get", URI: "http://example.com/old"})
	byReq := map[*message.Request]*call{c.req: c}
	var registeredChannels []*channel.Channel
	register := func(ch *channel.Channel) { registeredChannels = append(registeredChannels, ch) }

	resp := message.NewResponse(0)
	resp.Status = http.StatusFound
	resp.Headers.Set("Location", "http://example.com/new")

	s.deliver(reactor.Delivery{Event: channel.Event{Kind: channel.EventResponse, Request: c.req, Response: resp}}, byReq, register)

	if !followed {
		t.Fatal("expected the Follow hook to be consulted")
	}
	if c.done {
		t.Fatal("expected the call to still be in flight after following a redirect")
	}
	if c.hops != 1 {
		t.Fatalf("expected hops to be incremented, got %d", c.hops)
	}
	if c.req.URI.Path != "/new" {
		t.Fatalf("expected the call's request to be replaced with the redirect target, got %q", c.req.URI.Path)
	}
	if len(registeredChannels) != 1 {
		t.Fatalf("expected the redirected request's channel to be registered, got %d", len(registeredChannels))
	}
}

func TestDeliverFinalizesWithoutFollowHook(t *testing.T) {
	s := newTestSession(t, hook.Hooks{})

	c := s.prepare(context.Background(), BatchRequest{Verb: "get", URI: "http://example.com/old"})
	byReq := map[*message.Request]*call{c.req: c}
	register := func(*channel.Channel) {}

	resp := message.NewResponse(0)
	resp.Status = http.StatusFound
	resp.Headers.Set("Location", "http://example.com/new")

	s.deliver(reactor.Delivery{Event: channel.Event{Kind: channel.EventResponse, Request: c.req, Response: resp}}, byReq, register)

	if !c.done {
		t.Fatal("expected the call to finalize since no Follow hook was registered (never-follow default)")
	}
	if c.result.Response != resp {
		t.Fatal("expected the 3xx response itself to be returned to the caller")
	}
}

func TestExpireOverdueFinalizesPastDeadlineCalls(t *testing.T) {
	s := newTestSession(t, hook.Hooks{})
	c := s.prepare(context.Background(), BatchRequest{Verb: "get", URI: "http://example.com/"})
	c.deadline = time.Now().Add(-time.Second)
	byReq := map[*message.Request]*call{c.req: c}

	if changed := s.expireOverdue([]*call{c}, byReq); !changed {
		t.Fatal("expected expireOverdue to report a change")
	}
	if !c.done || c.result.Error == nil {
		t.Fatal("expected the overdue call to finalize with an error")
	}
}

func mustURI(t *testing.T, raw string) *message.URI {
	t.Helper()
	u, err := message.ParseURI(raw)
	if err != nil {
		t.Fatalf("ParseURI(%q): %v", raw, err)
	}
	return u
}

func responseWithCookie(setCookie string) *message.Response {
	r := message.NewResponse(0)
	r.Headers.Set("Set-Cookie", setCookie)
	return r
}
