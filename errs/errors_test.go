/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package errs_test

import (
	"errors"
	"testing"

	"github.com/sabouaram/ahttp/errs"
)

func TestNewCarriesCodeAndMessage(t *testing.T) {
	e := errs.New(errs.CodeTimeout, "deadline exceeded")
	if e.Code() != errs.CodeTimeout {
		t.Fatalf("expected code %d, got %d", errs.CodeTimeout, e.Code())
	}
	if !e.IsCode(errs.CodeTimeout) {
		t.Fatalf("expected IsCode to match own code")
	}
}

func TestHasCodeWalksParents(t *testing.T) {
	root := errs.New(errs.CodeConnect, "connect refused")
	wrapped := errs.New(errs.CodeHTTP, "request failed", root)

	if !wrapped.HasCode(errs.CodeConnect) {
		t.Fatalf("expected HasCode to find parent code")
	}
	if wrapped.IsCode(errs.CodeConnect) {
		t.Fatalf("IsCode must only check the direct code")
	}
}

func TestMakeWrapsPlainError(t *testing.T) {
	plain := errors.New("boom")
	wrapped := errs.Make(plain)

	if wrapped == nil {
		t.Fatalf("expected non-nil wrapped error")
	}
	if wrapped.Code() != 0 {
		t.Fatalf("expected zero code for wrapped plain error, got %d", wrapped.Code())
	}
}

func TestKindOfRoundTrips(t *testing.T) {
	for _, k := range []errs.Kind{
		errs.KindResolve, errs.KindConnect, errs.KindProtocol,
		errs.KindTimeout, errs.KindHTTP, errs.KindPeerClosed,
	} {
		e := errs.NewKind(k, "x")
		if errs.KindOf(e.Code()) != k {
			t.Fatalf("round trip failed for kind %s", k)
		}
	}
}

func TestRetriableKinds(t *testing.T) {
	if !errs.KindPeerClosed.Retriable() {
		t.Fatalf("PeerClosedError must be retriable")
	}
	if errs.KindProtocol.Retriable() {
		t.Fatalf("ProtocolError must not be retriable")
	}
}
