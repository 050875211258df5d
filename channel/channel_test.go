/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package channel_test

import (
	"testing"

	"github.com/sabouaram/ahttp/buffer"
	"github.com/sabouaram/ahttp/channel"
	"github.com/sabouaram/ahttp/errs"
	"github.com/sabouaram/ahttp/message"
	"github.com/sabouaram/ahttp/transport"
)

// fakeTransport is a scriptable transport.Transport double.
type fakeTransport struct {
	id        int
	state     transport.State
	protocol  string
	connectAt int // Connect() flips to StateConnected on the nth call
	calls     int
	readRes   transport.Result
	readErr   errs.Error
	writeRes  transport.Result
	writeErr  errs.Error
	closed    bool
}

func (f *fakeTransport) Connect() errs.Error {
	f.calls++
	if f.calls >= f.connectAt {
		f.state = transport.StateConnected
	} else {
		f.state = transport.StateConnecting
	}
	return nil
}

func (f *fakeTransport) Read(max int, buf *buffer.Ring) (transport.Result, errs.Error) {
	return f.readRes, f.readErr
}

func (f *fakeTransport) Write(buf *buffer.Ring) (transport.Result, errs.Error) {
	buf.Clear()
	return f.writeRes, f.writeErr
}

func (f *fakeTransport) Protocol() string { return f.protocol }

func (f *fakeTransport) ReadinessHandle() any { return f.id }

func (f *fakeTransport) State() transport.State { return f.state }

func (f *fakeTransport) Close() error {
	f.closed = true
	f.state = transport.StateClosed
	return nil
}

// fakeEngine is a scriptable channel.Engine double.
type fakeEngine struct {
	sent    []*message.Request
	pending []*message.Request
	recycle bool
}

func (e *fakeEngine) Send(req *message.Request) errs.Error {
	e.sent = append(e.sent, req)
	return nil
}

func (e *fakeEngine) WriteReady(buf *buffer.Ring) errs.Error { return nil }

func (e *fakeEngine) ReadReady(buf *buffer.Ring) ([]channel.Event, errs.Error) { return nil, nil }

func (e *fakeEngine) Pending() int { return len(e.sent) + len(e.pending) }

func (e *fakeEngine) Drain() []*message.Request {
	out := append(e.sent, e.pending...)
	e.sent, e.pending = nil, nil
	return out
}

func (e *fakeEngine) RecyclePeer() bool { return e.recycle }

func newTestRequest(t *testing.T) *message.Request {
	t.Helper()
	u, err := message.ParseURI("http://example.com/")
	if err != nil {
		t.Fatalf("parse uri: %v", err)
	}
	return message.NewRequest("get", u, nil, message.RequestOptions{})
}

func TestSendBeforeConnectQueuesThenFlushesOnConnect(t *testing.T) {
	tr := &fakeTransport{state: transport.StateIdle, connectAt: 1, protocol: "http/1.1"}
	eng := &fakeEngine{}

	ch := channel.New(
		func() transport.Transport { return tr },
		func(string) channel.Engine { return eng },
	)

	req := newTestRequest(t)
	if err := ch.Send(req); err != nil {
		t.Fatalf("send error: %v", err)
	}
	if ch.Pending() != 1 {
		t.Fatalf("expected 1 pending before connect, got %d", ch.Pending())
	}

	ch.Call()

	if len(eng.sent) != 1 || eng.sent[0] != req {
		t.Fatalf("expected the queued request flushed into the engine once connected, got %v", eng.sent)
	}
}

func TestInterestTransitions(t *testing.T) {
	tr := &fakeTransport{state: transport.StateIdle}
	ch := channel.New(
		func() transport.Transport { return tr },
		func(string) channel.Engine { return &fakeEngine{} },
	)

	if got := ch.Interest(); !got.Write || got.Read {
		t.Fatalf("expected write-only interest while idle, got %+v", got)
	}

	tr.state = transport.StateConnected
	ch2 := channel.New(
		func() transport.Transport { return tr },
		func(string) channel.Engine { return &fakeEngine{} },
	)
	ch2.Call() // selects the engine
	if got := ch2.Interest(); !got.Read || got.Write {
		t.Fatalf("expected read-only interest with an empty write buffer, got %+v", got)
	}
}

func TestTeardownReconnectsWhenEngineHoldsRequests(t *testing.T) {
	req := newTestRequest(t)

	tr1 := &fakeTransport{id: 1, state: transport.StateConnected, connectAt: 1, protocol: "http/1.1"}
	tr2 := &fakeTransport{id: 2, state: transport.StateIdle, connectAt: 1, protocol: "http/1.1"}
	eng := &fakeEngine{sent: []*message.Request{req}}

	built := 0
	newTransport := func() transport.Transport {
		built++
		if built == 1 {
			return tr1
		}
		return tr2
	}

	ch := channel.New(newTransport, func(string) channel.Engine { return eng })
	ch.Call() // selects the engine against tr1, already connected

	if ch.Pending() != 1 {
		t.Fatalf("expected 1 in-flight request tracked by the engine, got %d", ch.Pending())
	}

	tr1.readRes = transport.Result{Closed: true}

	events := ch.Call()
	if len(events) != 0 {
		t.Fatalf("expected no synthetic events on a transparent reconnect, got %d", len(events))
	}
	if !tr1.closed {
		t.Fatalf("expected the dead transport to be closed")
	}
	if ch.Closed() {
		t.Fatalf("expected the channel to survive with a held request, not discard itself")
	}
	if ch.Pending() != 1 {
		t.Fatalf("expected the held request requeued locally, got %d pending", ch.Pending())
	}

	// The channel should now be driving tr2 through its own connect cycle,
	// ready to replay the held request once it reconnects.
	ch.Call()
	if len(eng.sent) != 1 {
		t.Fatalf("expected the held request replayed into the engine, got %d", len(eng.sent))
	}
}

func TestCloseDiscardsWhenNothingOutstanding(t *testing.T) {
	tr := &fakeTransport{state: transport.StateConnected, connectAt: 1, protocol: "http/1.1"}
	eng := &fakeEngine{}

	ch := channel.New(func() transport.Transport { return tr }, func(string) channel.Engine { return eng })
	ch.Call() // selects the engine

	tr.readRes = transport.Result{Closed: true}
	ch.Call()

	if !ch.Closed() {
		t.Fatalf("expected the channel to discard itself with nothing outstanding")
	}
}
