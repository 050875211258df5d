package transport_test

import (
	"net"
	"testing"
	"time"

	"github.com/sabouaram/ahttp/buffer"
	"github.com/sabouaram/ahttp/transport"
)

func TestTCPConnectAndEcho(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 5)
		_, _ = c.Read(buf)
		_, _ = c.Write(buf)
	}()

	tr := transport.NewTCP(ln.Addr().String())

	deadline := time.Now().Add(2 * time.Second)
	for tr.State() != transport.StateConnected {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for connect, state=%v", tr.State())
		}
		if err := tr.Connect(); err != nil {
			t.Fatalf("connect error: %v", err)
		}
	}

	wbuf := buffer.New(16)
	_ = wbuf.Append([]byte("hello"))
	for !wbuf.Empty() {
		if _, err := tr.Write(wbuf); err != nil {
			t.Fatalf("write error: %v", err)
		}
	}

	rbuf := buffer.New(16)
	deadline = time.Now().Add(2 * time.Second)
	for rbuf.Len() < 5 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for echo, got %q", rbuf.View())
		}
		if _, err := tr.Read(16, rbuf); err != nil {
			t.Fatalf("read error: %v", err)
		}
	}

	if string(rbuf.View()) != "hello" {
		t.Fatalf("unexpected echo: %q", rbuf.View())
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("close error: %v", err)
	}
	<-done
}

func TestTCPProtocolIsHTTP1(t *testing.T) {
	tr := transport.NewTCP("127.0.0.1:0")
	if tr.Protocol() != "http/1.1" {
		t.Fatalf("expected http/1.1, got %q", tr.Protocol())
	}
}

func TestTCPFromPinsLocalAddr(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	done := make(chan net.Addr, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			done <- nil
			return
		}
		defer c.Close()
		done <- c.RemoteAddr()
	}()

	tr := transport.NewTCPFrom(ln.Addr().String(), "127.0.0.1")

	deadline := time.Now().Add(2 * time.Second)
	for tr.State() != transport.StateConnected {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for connect, state=%v", tr.State())
		}
		if err := tr.Connect(); err != nil {
			t.Fatalf("connect error: %v", err)
		}
	}
	defer tr.Close()

	remote := <-done
	if remote == nil {
		t.Fatal("expected the server to observe an accepted connection")
	}
	host, _, err := net.SplitHostPort(remote.String())
	if err != nil {
		t.Fatalf("SplitHostPort(%q): %v", remote.String(), err)
	}
	if host != "127.0.0.1" {
		t.Fatalf("expected the dial to originate from 127.0.0.1, observed %q", host)
	}
}
