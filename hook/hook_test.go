/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package hook_test

import (
	"errors"
	"testing"

	"github.com/sabouaram/ahttp/hook"
	"github.com/sabouaram/ahttp/message"
)

func newTestRequest(t *testing.T) *message.Request {
	t.Helper()
	u, err := message.ParseURI("http://example.com/")
	if err != nil {
		t.Fatalf("parse uri: %v", err)
	}
	return message.NewRequest("get", u, nil, message.RequestOptions{})
}

func TestRunPreSendStopsAtFirstError(t *testing.T) {
	var calls []int
	h := hook.Hooks{
		PreSend: []hook.PreSend{
			func(req *message.Request) error { calls = append(calls, 1); return nil },
			func(req *message.Request) error { calls = append(calls, 2); return errors.New("veto") },
			func(req *message.Request) error { calls = append(calls, 3); return nil },
		},
	}

	err := h.RunPreSend(newTestRequest(t))
	if err == nil {
		t.Fatalf("expected the second hook's error to propagate")
	}
	if len(calls) != 2 {
		t.Fatalf("expected the third hook to be skipped, got calls %v", calls)
	}
}

func TestShouldExpectDefaultsToRequestOption(t *testing.T) {
	var h hook.Hooks
	req := newTestRequest(t)
	req.Options.ExpectContinue = true

	if !h.ShouldExpect(req) {
		t.Fatalf("expected the request's own ExpectContinue to apply with no hook registered")
	}
}

func TestDecideRedirectDefaultsToNeverFollow(t *testing.T) {
	var h hook.Hooks
	decision := h.DecideRedirect(newTestRequest(t), message.NewResponse(0), "http://example.com/new")

	if decision.Follow {
		t.Fatalf("expected the default policy to never follow redirects")
	}
}

func TestDecideRedirectConsultsFollowHook(t *testing.T) {
	h := hook.Hooks{
		Follow: func(req *message.Request, resp *message.Response, location string) hook.RedirectDecision {
			return hook.RedirectDecision{Follow: true, Location: location, Verb: "get"}
		},
	}

	decision := h.DecideRedirect(newTestRequest(t), message.NewResponse(0), "http://example.com/new")
	if !decision.Follow || decision.Location != "http://example.com/new" {
		t.Fatalf("expected the registered hook's decision, got %+v", decision)
	}
}
