/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

// Package session is the caller-facing facade (spec.md §6): one Session
// owns a Pool, a Reactor and an optional Resolver/cookie jar, and drives
// the reactor's cooperative loop synchronously inside Request/RequestBatch
// — the only suspension point a caller's goroutine ever blocks on, per
// spec.md §5.
package session

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	uuid "github.com/hashicorp/go-uuid"

	"github.com/sabouaram/ahttp/body"
	"github.com/sabouaram/ahttp/channel"
	"github.com/sabouaram/ahttp/cookiejar"
	"github.com/sabouaram/ahttp/errs"
	"github.com/sabouaram/ahttp/hook"
	"github.com/sabouaram/ahttp/logx"
	"github.com/sabouaram/ahttp/message"
	"github.com/sabouaram/ahttp/pool"
	"github.com/sabouaram/ahttp/reactor"
	"github.com/sabouaram/ahttp/resolver"
)

// maxRedirectHops bounds a Follow hook's redirect loop regardless of what
// the hook itself decides, so a misbehaving or adversarial origin can't
// loop a Session forever.
const maxRedirectHops = 10

// Session is the facade spec.md §4.I and §6 describe: construct one per
// logical client identity (one cookie jar, one connection pool, one
// reactor), reuse it across every request. A Session is not safe for
// concurrent use from more than one goroutine at a time, per spec.md §5 —
// it is a single-threaded cooperative event loop, not a connection pool
// with internal locking around every call.
type Session struct {
	opts     Options
	hooks    hook.Hooks
	pool     *pool.Pool
	reactor  *reactor.Reactor
	jar      *cookiejar.Jar
	resolver    resolver.Resolver
	recordTypes []uint16
	logger      logx.Logger

	addrMu sync.Mutex
	addrs  map[string]string
}

// New builds a Session from opts, validating it first. hooks may be the
// zero value (every slot optional).
func New(opts Options, hooks hook.Hooks) (*Session, errs.Error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	res, err := newResolver(opts)
	if err != nil {
		return nil, err
	}

	jar, jerr := cookiejar.New()
	if jerr != nil {
		return nil, errs.New(CodeValidation, "session: failed to build cookie jar", jerr)
	}

	logger := logx.New()
	if opts.Logger != nil {
		if l := opts.Logger(); l != nil {
			logger = l
		}
	}

	r := reactor.New(0, 0)
	if res != nil {
		r.RegisterResolver(res)
	}

	p := pool.New(opts.TLS, opts.MaxConcurrentH2, opts.Pipeline, opts.BodyThresholdSize)
	if opts.DialLocalAddr != "" {
		p.SetLocalAddr(opts.DialLocalAddr)
	}

	recordTypes := opts.ResolverOptions.RecordTypes
	if len(recordTypes) == 0 {
		recordTypes = resolver.DefaultRecordTypes
	}

	s := &Session{
		opts:        opts,
		hooks:       hooks,
		pool:        p,
		reactor:     r,
		jar:         jar,
		resolver:    res,
		recordTypes: recordTypes,
		logger:      logger,
		addrs:       make(map[string]string),
	}

	if res != nil {
		p.SetResolveHook(s.lookupAddr)
	}

	return s, nil
}

func newResolver(opts Options) (resolver.Resolver, errs.Error) {
	ro := opts.ResolverOptions
	switch opts.ResolverClass {
	case "", "system":
		return resolver.NewSystem(ro.MaxInFlight), nil
	case "native":
		timeouts := make([]time.Duration, len(ro.Timeouts))
		for i, d := range ro.Timeouts {
			timeouts[i] = d.Time()
		}
		return resolver.NewNative(ro.Nameservers, ro.PacketSize, timeouts), nil
	case "https":
		if ro.BootstrapIP == "" {
			return nil, errs.New(CodeBadBootstrap, "session: resolverOptions.bootstrapIp is required for the https resolver class")
		}
		return resolver.NewHTTPS(ro.URL, ro.BootstrapIP, dohFetch)
	default:
		return nil, errs.New(CodeNoResolver, fmt.Sprintf("session: unknown resolverClass %q", opts.ResolverClass))
	}
}

// dohFetch is the resolver.DoHFetcher this package supplies so resolver
// never imports session (see resolver/https.go's doc comment on why that
// would be an import cycle). DoH bootstrap is an infrequent, one-shot
// lookup, so a plain blocking http.Post is adequate — it never runs on the
// reactor goroutine.
func dohFetch(dohURL string, query []byte) ([]byte, error) {
	resp, err := http.Post(dohURL, "application/dns-message", bytes.NewReader(query))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("session: doh bootstrap returned status %d", resp.StatusCode)
	}
	buf := make([]byte, 0, 512)
	chunk := make([]byte, 512)
	for {
		n, rerr := resp.Body.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if rerr != nil {
			break
		}
	}
	return buf, nil
}

// lookupAddr is pool.Pool's resolve hook: it consults whatever this
// Session's resolver last resolved host to, populated by resolveHost
// during dispatch. A miss simply falls back to letting the transport's own
// dialer resolve the hostname.
func (s *Session) lookupAddr(host string) (string, bool) {
	s.addrMu.Lock()
	defer s.addrMu.Unlock()
	ip, ok := s.addrs[host]
	return ip, ok
}

// resolveHost drives the reactor until host resolves (or ctx/deadline
// expires), caching the first address for lookupAddr to find. It is a
// no-op when the Session has no resolver (ResolverClass didn't ask for
// one, or construction skipped it).
func (s *Session) resolveHost(ctx context.Context, host string, deadline time.Time) *message.ErrorResponse {
	if s.resolver == nil {
		return nil
	}
	if _, ok := s.lookupAddr(host); ok {
		return nil
	}

	ch := s.resolver.Resolve(host, s.recordTypes, deadline)
	for {
		select {
		case res := <-ch:
			if res.Err != nil {
				return &message.ErrorResponse{Kind: errs.KindResolve, Cause: res.Err}
			}
			if len(res.Addrs) == 0 {
				return &message.ErrorResponse{Kind: errs.KindResolve, Cause: errs.NewKind(errs.KindResolve, "session: no addresses returned")}
			}
			s.addrMu.Lock()
			s.addrs[host] = res.Addrs[0].String()
			s.addrMu.Unlock()
			return nil
		default:
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			return &message.ErrorResponse{Kind: errs.KindTimeout, Cause: errs.NewKind(errs.KindTimeout, "session: resolution timed out")}
		}
		select {
		case <-ctx.Done():
			return &message.ErrorResponse{Kind: errs.KindTimeout, Cause: errs.NewKind(errs.KindTimeout, "session: "+ctx.Err().Error())}
		default:
		}

		resolversBusy := true // a query is still outstanding by construction
		wait := s.reactor.NextWait(resolversBusy)
		if wait <= 0 {
			wait = reactor.DefaultTickFloor
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &message.ErrorResponse{Kind: errs.KindTimeout, Cause: errs.NewKind(errs.KindTimeout, "session: "+ctx.Err().Error())}
		case <-timer.C:
		}
		s.reactor.Tick()
	}
}

// RequestOptions carries the per-call knobs from spec.md §6's recognized
// options table that aren't already part of Options (the session-wide
// defaults): headers, params, body, timeout override, and whether to
// consult the cookie jar.
type RequestOptions struct {
	Headers       map[string]string
	Params        url.Values
	Body          *body.Encoded
	Timeout       time.Duration
	DisableCookie bool
	Follow        *bool // overrides the Follow hook's decision for this call: nil defers to the hook
}

// BatchRequest is one item in a RequestBatch call.
type BatchRequest struct {
	Verb    string
	URI     string
	Options RequestOptions
}

// BatchResult is the outcome of one BatchRequest: exactly one of Response
// or Error is set.
type BatchResult struct {
	Response *message.Response
	Error    *message.ErrorResponse
}

// call is the in-flight bookkeeping for one BatchRequest as it moves
// through dispatch, matched back to its completion by pointer equality on
// channel.Event.Request (engine/h1 and engine/h2 both hand the original
// *message.Request back unchanged on completion).
type call struct {
	req           *message.Request
	uri           *message.URI
	deadline      time.Time
	disableCookie bool
	result        BatchResult
	done          bool
	hops          int
	expectRetried bool
}

// Request issues a single verb/uri request and blocks until it completes,
// errors, or ctx is done.
func (s *Session) Request(ctx context.Context, verb, uri string, opts RequestOptions) (*message.Response, *message.ErrorResponse) {
	out := s.RequestBatch(ctx, []BatchRequest{{Verb: verb, URI: uri, Options: opts}})
	return out[0].Response, out[0].Error
}

// Get, Head, Post, Put, Delete, Patch, Options, Trace issue the matching
// verb, per spec.md §6's sugar methods.
func (s *Session) Get(ctx context.Context, uri string, opts RequestOptions) (*message.Response, *message.ErrorResponse) {
	return s.Request(ctx, "get", uri, opts)
}
func (s *Session) Head(ctx context.Context, uri string, opts RequestOptions) (*message.Response, *message.ErrorResponse) {
	return s.Request(ctx, "head", uri, opts)
}
func (s *Session) Post(ctx context.Context, uri string, opts RequestOptions) (*message.Response, *message.ErrorResponse) {
	return s.Request(ctx, "post", uri, opts)
}
func (s *Session) Put(ctx context.Context, uri string, opts RequestOptions) (*message.Response, *message.ErrorResponse) {
	return s.Request(ctx, "put", uri, opts)
}
func (s *Session) Delete(ctx context.Context, uri string, opts RequestOptions) (*message.Response, *message.ErrorResponse) {
	return s.Request(ctx, "delete", uri, opts)
}
func (s *Session) Patch(ctx context.Context, uri string, opts RequestOptions) (*message.Response, *message.ErrorResponse) {
	return s.Request(ctx, "patch", uri, opts)
}
func (s *Session) Options(ctx context.Context, uri string, opts RequestOptions) (*message.Response, *message.ErrorResponse) {
	return s.Request(ctx, "options", uri, opts)
}
func (s *Session) Trace(ctx context.Context, uri string, opts RequestOptions) (*message.Response, *message.ErrorResponse) {
	return s.Request(ctx, "trace", uri, opts)
}

// RequestBatch issues every item concurrently from the reactor's point of
// view (all channels registered up front, one shared Tick/NextWait loop
// drives them together) and returns once every item has either completed,
// failed, or had its own timeout expire. Order of the returned slice
// matches reqs.
func (s *Session) RequestBatch(ctx context.Context, reqs []BatchRequest) []BatchResult {
	calls := make([]*call, len(reqs))
	byReq := make(map[*message.Request]*call, len(reqs))
	registered := make([]*channel.Channel, 0, len(reqs))
	register := func(ch *channel.Channel) {
		s.reactor.Register(ch)
		registered = append(registered, ch)
	}

	for i, br := range reqs {
		c := s.prepare(ctx, br)
		calls[i] = c
		if c.done {
			continue
		}
		byReq[c.req] = c

		if errResp := s.resolveHost(ctx, c.uri.Host, c.deadline); errResp != nil {
			c.result.Error = errResp
			c.done = true
			delete(byReq, c.req)
			continue
		}

		if err := s.hooks.RunPreSend(c.req); err != nil {
			c.result.Error = &message.ErrorResponse{Kind: errs.KindProtocol, Cause: errs.NewKind(errs.KindProtocol, "session: pre-send hook rejected request", err)}
			c.done = true
			delete(byReq, c.req)
			continue
		}

		ch := s.pool.Checkout(c.uri)
		if err := ch.Send(c.req); err != nil {
			c.result.Error = &message.ErrorResponse{Kind: errs.KindConnect, Cause: err}
			c.done = true
			delete(byReq, c.req)
			continue
		}
		register(ch)
	}

	for s.pending(calls) {
		for _, d := range s.reactor.Tick() {
			s.deliver(d, byReq, register)
		}

		if !s.pending(calls) {
			break
		}

		if s.expireOverdue(calls, byReq) {
			continue
		}

		select {
		case <-ctx.Done():
			s.expireAll(calls, byReq, ctx.Err())
			continue
		default:
		}

		wait := s.reactor.NextWait(false)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}

	for _, ch := range registered {
		s.reactor.Unregister(ch)
	}

	out := make([]BatchResult, len(calls))
	for i, c := range calls {
		out[i] = c.result
		s.logAccess(reqs[i], c)
	}
	return out
}

func (s *Session) logAccess(br BatchRequest, c *call) {
	if c.result.Error != nil {
		s.logger.Access(br.Verb, br.URI, 0, 0, c.result.Error)
		return
	}
	if c.result.Response != nil {
		s.logger.Access(br.Verb, br.URI, c.result.Response.Status, c.result.Response.Body.Size(), nil)
	}
}

// prepare builds the *message.Request for one BatchRequest, applying
// headers, params, body, and the cookie jar. A URI parse failure is
// resolved immediately (done=true) rather than ever reaching the reactor.
func (s *Session) prepare(ctx context.Context, br BatchRequest) *call {
	uri, err := message.ParseURI(br.URI)
	if err != nil {
		return &call{done: true, result: BatchResult{Error: &message.ErrorResponse{
			Kind:  errs.KindProtocol,
			Cause: errs.NewKind(errs.KindProtocol, "session: invalid uri", err),
		}}}
	}

	if len(br.Options.Params) > 0 {
		q := uri.Query
		extra := br.Options.Params.Encode()
		if q == "" {
			uri.Query = extra
		} else {
			uri.Query = q + "&" + extra
		}
	}

	timeout := s.opts.Timeout.Time()
	if br.Options.Timeout > 0 {
		timeout = br.Options.Timeout
	}
	var deadline time.Time
	if timeout > 0 {
		if dl, ok := ctx.Deadline(); ok {
			deadline = dl
		} else {
			deadline = time.Now().Add(timeout)
		}
	}

	var bodyVal message.Body
	if br.Options.Body != nil {
		bodyVal = br.Options.Body.Body
	}

	req := message.NewRequest(br.Verb, uri, bodyVal, message.RequestOptions{
		Timeout: s.opts.Timeout,
	})
	req.Deadline = deadline

	req.Headers.Set("User-Agent", s.opts.UserAgent)
	if br.Options.Body != nil && br.Options.Body.ContentType != "" {
		req.Headers.Set("Content-Type", br.Options.Body.ContentType)
	}
	for k, v := range br.Options.Headers {
		req.Headers.Set(k, v)
	}

	if id, err := uuid.GenerateUUID(); err == nil && req.Headers.Get("X-Request-Id") == "" {
		req.Headers.Set("X-Request-Id", id)
	}

	if !br.Options.DisableCookie {
		s.jar.Apply(uri, req)
	}

	s.prepareExpect(req)

	return &call{req: req, uri: uri, deadline: deadline, disableCookie: br.Options.DisableCookie}
}

// prepareExpect derives RequestOptions.ExpectContinue from an Expect:
// 100-continue header the caller set directly, then lets the Expect hook
// veto waiting for the interim response: a hook that returns false strips
// the header back out so the request is sent exactly as if the caller had
// never set it.
func (s *Session) prepareExpect(req *message.Request) {
	if !strings.EqualFold(req.Headers.Get("Expect"), "100-continue") {
		return
	}
	req.Options.ExpectContinue = true

	if !s.hooks.ShouldExpect(req) {
		req.Options.ExpectContinue = false
		req.Headers.Del("Expect")
		return
	}
	req.State = message.StateExpects
}

// pending reports whether any call hasn't yet reached a terminal result.
func (s *Session) pending(calls []*call) bool {
	for _, c := range calls {
		if !c.done {
			return true
		}
	}
	return false
}

// deliver matches one reactor Delivery back to its call by pointer
// identity on Event.Request, finalizing it (including redirect-following)
// or leaving it in flight if the Event was an observable-only kind
// (AltSvc/PushPromise).
func (s *Session) deliver(d reactor.Delivery, byReq map[*message.Request]*call, register func(*channel.Channel)) {
	if d.Event.Kind != channel.EventResponse || d.Event.Request == nil {
		return
	}
	c, ok := byReq[d.Event.Request]
	if !ok {
		return
	}

	resp := d.Event.Response

	if resp.Status == http.StatusExpectationFailed && c.req.Options.ExpectContinue && !c.expectRetried {
		s.retryWithoutExpect(c, byReq, register)
		return
	}

	if !c.disableCookie {
		s.jar.Observe(c.uri, resp)
	}
	s.hooks.RunOnResponse(c.req, resp)

	if isRedirect(resp.Status) && c.hops < maxRedirectHops {
		location := resp.Headers.Get("Location")
		decision := s.hooks.DecideRedirect(c.req, resp, location)
		if decision.Follow && location != "" {
			s.followRedirect(c, decision, byReq, register)
			return
		}
	}

	c.result.Response = resp
	c.done = true
	delete(byReq, d.Event.Request)
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// followRedirect rebuilds req against decision.Location (and Verb override,
// for 303-style downgrades), re-registers it and keeps the call in flight
// under its new *message.Request identity.
func (s *Session) followRedirect(c *call, decision hook.RedirectDecision, byReq map[*message.Request]*call, register func(*channel.Channel)) {
	target := decision.Location
	newURI, err := message.ParseURI(target)
	if err != nil {
		// a relative Location is resolved against the original request's URI
		base := &url.URL{Scheme: c.uri.Scheme, Host: c.uri.HostPort(), Path: c.uri.Path}
		ref, rerr := url.Parse(target)
		if rerr != nil {
			c.result.Error = &message.ErrorResponse{Kind: errs.KindProtocol, Cause: errs.NewKind(errs.KindProtocol, "session: invalid redirect location", err)}
			c.done = true
			delete(byReq, c.req)
			return
		}
		newURI, err = message.ParseURI(base.ResolveReference(ref).String())
		if err != nil {
			c.result.Error = &message.ErrorResponse{Kind: errs.KindProtocol, Cause: errs.NewKind(errs.KindProtocol, "session: invalid redirect location", err)}
			c.done = true
			delete(byReq, c.req)
			return
		}
	}

	verb := c.req.Verb
	if decision.Verb != "" {
		verb = decision.Verb
	}

	newReq := message.NewRequest(verb, newURI, nil, c.req.Options)
	newReq.Deadline = c.deadline
	for _, name := range []string{"user-agent", "accept"} {
		if v := c.req.Headers.Get(name); v != "" {
			newReq.Headers.Set(name, v)
		}
	}
	if !c.disableCookie {
		s.jar.Apply(newURI, newReq)
	}

	delete(byReq, c.req)
	c.req = newReq
	c.uri = newURI
	c.hops++
	byReq[newReq] = c

	ch := s.pool.Checkout(newURI)
	if err := ch.Send(newReq); err != nil {
		c.result.Error = &message.ErrorResponse{Kind: errs.KindConnect, Cause: err}
		c.done = true
		delete(byReq, newReq)
		return
	}
	register(ch)
}

// retryWithoutExpect handles a 417 Expectation Failed returned for a
// request that carried Expect: 100-continue: the header is stripped and
// the same request is re-sent exactly once under its existing call
// identity. A second 417 after the retry is returned to the caller as-is
// rather than looping.
func (s *Session) retryWithoutExpect(c *call, byReq map[*message.Request]*call, register func(*channel.Channel)) {
	c.expectRetried = true
	c.req.Options.ExpectContinue = false
	c.req.Headers.Del("Expect")
	c.req.State = message.StateIdle

	ch := s.pool.Checkout(c.uri)
	if err := ch.Send(c.req); err != nil {
		c.result.Error = &message.ErrorResponse{Kind: errs.KindConnect, Cause: err}
		c.done = true
		delete(byReq, c.req)
		return
	}
	register(ch)
}

// expireOverdue finalizes, with a TimeoutError, every in-flight call whose
// own deadline has already passed. It returns true if it changed anything,
// so the caller can loop back to re-check pending() immediately instead of
// sleeping a full tick.
func (s *Session) expireOverdue(calls []*call, byReq map[*message.Request]*call) bool {
	now := time.Now()
	changed := false
	for _, c := range calls {
		if c.done || c.deadline.IsZero() || now.Before(c.deadline) {
			continue
		}
		c.result.Error = &message.ErrorResponse{Kind: errs.KindTimeout, Cause: errs.NewKind(errs.KindTimeout, "session: request deadline exceeded")}
		c.done = true
		delete(byReq, c.req)
		changed = true
	}
	return changed
}

// expireAll finalizes every still-pending call with a TimeoutError wrapping
// cause, used once the caller's ctx is done. There is no Engine.Cancel API
// anywhere in the stack (see DESIGN.md), so this can only stop waiting for
// the in-flight request — it cannot make the owning Channel/Engine abort
// or RST the exchange on the wire.
func (s *Session) expireAll(calls []*call, byReq map[*message.Request]*call, cause error) {
	for _, c := range calls {
		if c.done {
			continue
		}
		c.result.Error = &message.ErrorResponse{Kind: errs.KindTimeout, Cause: errs.NewKind(errs.KindTimeout, "session: "+cause.Error())}
		c.done = true
		delete(byReq, c.req)
	}
}
