/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package reactor_test

import (
	"context"
	"testing"
	"time"

	"github.com/sabouaram/ahttp/buffer"
	"github.com/sabouaram/ahttp/channel"
	"github.com/sabouaram/ahttp/errs"
	"github.com/sabouaram/ahttp/message"
	"github.com/sabouaram/ahttp/reactor"
	"github.com/sabouaram/ahttp/resolver"
	"github.com/sabouaram/ahttp/transport"
)

// fakeTransport is a scriptable transport.Transport double, mirroring
// channel_test.go's own fake so Channel can be driven under test here too.
type fakeTransport struct {
	state      transport.State
	protocol   string
	readRes    transport.Result
	writeRes   transport.Result
	connectErr errs.Error
	closed     bool
}

func (f *fakeTransport) Connect() errs.Error {
	if f.connectErr != nil {
		f.state = transport.StateFailed
		return f.connectErr
	}
	f.state = transport.StateConnected
	return nil
}
func (f *fakeTransport) Read(max int, buf *buffer.Ring) (transport.Result, errs.Error) {
	return f.readRes, nil
}
func (f *fakeTransport) Write(buf *buffer.Ring) (transport.Result, errs.Error) {
	buf.Clear()
	return f.writeRes, nil
}
func (f *fakeTransport) Protocol() string       { return f.protocol }
func (f *fakeTransport) ReadinessHandle() any   { return f }
func (f *fakeTransport) State() transport.State { return f.state }
func (f *fakeTransport) Close() error {
	f.closed = true
	f.state = transport.StateClosed
	return nil
}

// fakeEngine is a scriptable channel.Engine double that never produces
// Events and never asks to be recycled, so a registered Channel simply
// stays live and readable across ticks.
type fakeEngine struct{}

func (e *fakeEngine) Send(req *message.Request) errs.Error                    { return nil }
func (e *fakeEngine) WriteReady(buf *buffer.Ring) errs.Error                   { return nil }
func (e *fakeEngine) ReadReady(buf *buffer.Ring) ([]channel.Event, errs.Error) { return nil, nil }
func (e *fakeEngine) Pending() int                                            { return 0 }
func (e *fakeEngine) Drain() []*message.Request                               { return nil }
func (e *fakeEngine) RecyclePeer() bool                                       { return false }

// fakeResolver is a scriptable resolver.Resolver double.
type fakeResolver struct {
	busy  bool
	ticks int
}

func (r *fakeResolver) Resolve(host string, recordTypes []uint16, deadline time.Time) <-chan resolver.Result {
	ch := make(chan resolver.Result, 1)
	close(ch)
	return ch
}
func (r *fakeResolver) Tick(elapsed time.Duration) bool {
	r.ticks++
	return r.busy
}
func (r *fakeResolver) Close() error { return nil }

func newIdleChannel(state transport.State) *channel.Channel {
	tr := &fakeTransport{state: state, protocol: "http/1.1"}
	ch := channel.New(
		func() transport.Transport { return tr },
		func(string) channel.Engine { return &fakeEngine{} },
	)
	if state != transport.StateIdle {
		ch.Call() // selects the engine
	}
	return ch
}

func TestTickCallsRegisteredChannels(t *testing.T) {
	r := reactor.New(0, 0)
	ch := newIdleChannel(transport.StateIdle)
	r.Register(ch)

	r.Tick()

	if got := ch.Protocol(); got != "http/1.1" {
		t.Fatalf("expected the channel's Call to have run and selected an engine, got protocol %q", got)
	}
}

func TestTickPrunesClosedChannels(t *testing.T) {
	r := reactor.New(0, 0)

	tr := &fakeTransport{state: transport.StateIdle, connectErr: errs.New(channel.CodeClosed, "boom")}
	ch := channel.New(
		func() transport.Transport { return tr },
		func(string) channel.Engine { return &fakeEngine{} },
	)
	r.Register(ch)

	r.Tick() // connect fails -> teardown -> no held requests -> Closed()
	if !ch.Closed() {
		t.Fatalf("expected the channel to have closed itself")
	}

	r.Unregister(ch) // idempotent once Tick already pruned it; exercises the no-op path
}

func TestTickAdvancesResolvers(t *testing.T) {
	r := reactor.New(0, 0)
	res := &fakeResolver{}
	r.RegisterResolver(res)

	r.Tick()
	r.Tick()

	if res.ticks != 2 {
		t.Fatalf("expected 2 resolver ticks, got %d", res.ticks)
	}
}

func TestNextWaitBusyUsesTickFloor(t *testing.T) {
	r := reactor.New(5*time.Millisecond, 500*time.Millisecond)
	ch := newIdleChannel(transport.StateIdle) // write-interest while idle: busy
	r.Register(ch)

	if got := r.NextWait(false); got != 5*time.Millisecond {
		t.Fatalf("expected the tick floor while a channel wants write, got %v", got)
	}
}

func TestNextWaitIdleBacksOff(t *testing.T) {
	r := reactor.New(5*time.Millisecond, 500*time.Millisecond)

	if got := r.NextWait(false); got != 500*time.Millisecond {
		t.Fatalf("expected the idle backoff with nothing registered, got %v", got)
	}
}

func TestNextWaitResolverBusyUsesTickFloor(t *testing.T) {
	r := reactor.New(5*time.Millisecond, 500*time.Millisecond)

	if got := r.NextWait(true); got != 5*time.Millisecond {
		t.Fatalf("expected the tick floor when the caller reports resolver work pending, got %v", got)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	r := reactor.New(time.Millisecond, time.Millisecond)
	err := r.Run(ctx, nil)
	if err != context.DeadlineExceeded {
		t.Fatalf("expected Run to return context.DeadlineExceeded, got %v", err)
	}
}
