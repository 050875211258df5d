/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

// Package hook defines the named capability slots the Session consults at
// fixed points in a request's lifecycle: pre-send, on-response, and
// pre-redirect, plus the two slots named explicitly in spec.md §9 (Expect,
// Follow). There is no open-world monkey-patching surface here — a plug-in
// is always one of these typed slots, never an arbitrary interception
// point.
package hook

import "github.com/sabouaram/ahttp/message"

// PreSend runs just before a Request is handed to the pool, and may
// mutate it (set a header, attach a body) or veto the send by returning an
// error.
type PreSend func(req *message.Request) error

// OnResponse runs once a Response is complete, for observation or
// side-effecting (logging, metrics, cookie jar updates). It cannot mutate
// the Response.
type OnResponse func(req *message.Request, resp *message.Response)

// RedirectDecision is what a Follow hook decides to do with a 3xx
// Response.
type RedirectDecision struct {
	// Follow, if true, means the Session should issue a new Request to
	// Location. If false the original Response is returned to the caller
	// unchanged.
	Follow bool
	// Location is the resolved redirect target. Ignored when Follow is
	// false.
	Location string
	// Verb overrides the verb of the redirected Request (e.g. a 303
	// downgrading POST to GET). Empty keeps the original Request's Verb.
	Verb string
}

// ExpectHook decides, given a Request carrying RequestOptions.ExpectContinue
// (derived from an Expect: 100-continue header), whether the Session
// should actually wait for a 100 Continue before streaming the body. The
// default policy is "always wait"; a hook can relax that per-request.
type ExpectHook func(req *message.Request) bool

// FollowHook decides whether and where to follow a redirect response. The
// default policy (spec.md's explicit Non-goal) is "never follow" — a
// Session with no FollowHook registered leaves every 3xx response as-is
// for the caller to inspect.
type FollowHook func(req *message.Request, resp *message.Response, location string) RedirectDecision

// Hooks is the full set of capability slots a Session consults. Every
// field is optional; a nil slice or nil func is simply skipped.
type Hooks struct {
	PreSend    []PreSend
	OnResponse []OnResponse
	Expect     ExpectHook
	Follow     FollowHook
}

// RunPreSend calls every registered PreSend hook in order, stopping and
// returning the first error encountered.
func (h Hooks) RunPreSend(req *message.Request) error {
	for _, fn := range h.PreSend {
		if fn == nil {
			continue
		}
		if err := fn(req); err != nil {
			return err
		}
	}
	return nil
}

// RunOnResponse calls every registered OnResponse hook in order.
func (h Hooks) RunOnResponse(req *message.Request, resp *message.Response) {
	for _, fn := range h.OnResponse {
		if fn != nil {
			fn(req, resp)
		}
	}
}

// ShouldExpect reports whether req's 100-continue wait should actually
// happen, consulting the Expect hook if one is registered and defaulting
// to req's own ExpectContinue flag otherwise.
func (h Hooks) ShouldExpect(req *message.Request) bool {
	if h.Expect != nil {
		return h.Expect(req)
	}
	return req.Options.ExpectContinue
}

// DecideRedirect consults the Follow hook, defaulting to "never follow"
// (spec.md's explicit Non-goal) when none is registered.
func (h Hooks) DecideRedirect(req *message.Request, resp *message.Response, location string) RedirectDecision {
	if h.Follow == nil {
		return RedirectDecision{}
	}
	return h.Follow(req, resp, location)
}
