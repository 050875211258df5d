/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/sabouaram/ahttp/buffer"
	"github.com/sabouaram/ahttp/errs"
)

// zeroWait is the deadline used to probe a socket without blocking: a
// deadline one millisecond out lets Read/Write move whatever is ready and
// return a timeout error instead of waiting longer when nothing is. A
// deadline already in the past would fail every call before it touched the
// socket.
var zeroWait = func() time.Time { return time.Now().Add(time.Millisecond) }

type tcpTransport struct {
	mu      sync.Mutex
	addr    string
	dialer  net.Dialer
	conn    net.Conn
	state   State
	dialErr chan error
	dialing bool
}

var _ AddrSource = (*tcpTransport)(nil)

// NewTCP returns a plain-TCP Transport dialing addr (host:port) on Connect.
func NewTCP(addr string) Transport {
	return NewTCPFrom(addr, "")
}

// NewTCPFrom is NewTCP with the local bind address pinned to localAddr, a
// literal IP (no port — the kernel still picks one). An unparseable or
// empty localAddr behaves exactly like NewTCP.
func NewTCPFrom(addr, localAddr string) Transport {
	t := &tcpTransport{addr: addr, state: StateIdle}
	if ip := net.ParseIP(localAddr); ip != nil {
		t.dialer.LocalAddr = &net.TCPAddr{IP: ip}
	}
	return t
}

func (t *tcpTransport) Connect() errs.Error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case StateConnected, StateNegotiated:
		return nil
	case StateFailed, StateClosed:
		return errs.New(CodeConnect, "transport: connect on terminal transport")
	}

	if !t.dialing {
		t.dialing = true
		t.dialErr = make(chan error, 1)
		go func(ch chan error) {
			conn, err := t.dialer.DialContext(context.Background(), "tcp", t.addr)
			if err != nil {
				ch <- err
				return
			}
			t.mu.Lock()
			t.conn = conn
			t.mu.Unlock()
			ch <- nil
		}(t.dialErr)
		t.state = StateConnecting
		return nil
	}

	select {
	case err := <-t.dialErr:
		if err != nil {
			t.state = StateFailed
			return errs.New(CodeConnect, "transport: dial failed", err)
		}
		t.state = StateConnected
		return nil
	default:
		return nil
	}
}

func (t *tcpTransport) Read(max int, buf *buffer.Ring) (Result, errs.Error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return Result{}, nil
	}

	room := buf.Cap() - buf.Len()
	if room <= 0 {
		return Result{}, nil
	}
	if max > 0 && max < room {
		room = max
	}

	p := make([]byte, room)
	_ = conn.SetReadDeadline(zeroWait())
	n, err := conn.Read(p)
	if n > 0 {
		_ = buf.Append(p[:n])
	}
	if err == nil {
		return Result{N: n}, nil
	}
	if isTimeout(err) {
		return Result{N: n}, nil
	}
	if errors.Is(err, context.Canceled) {
		return Result{N: n, Closed: true}, nil
	}
	return Result{N: n, Closed: true}, errs.New(CodeRead, "transport: read failed", err)
}

func (t *tcpTransport) Write(buf *buffer.Ring) (Result, errs.Error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil || buf.Empty() {
		return Result{}, nil
	}

	_ = conn.SetWriteDeadline(zeroWait())
	n, err := conn.Write(buf.View())
	if n > 0 {
		buf.Consume(n)
	}
	if err == nil {
		return Result{N: n}, nil
	}
	if isTimeout(err) {
		return Result{N: n}, nil
	}
	return Result{N: n, Closed: true}, errs.New(CodeWrite, "transport: write failed", err)
}

func (t *tcpTransport) rawConn() net.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn
}

// RemoteIP returns the peer's dialed IP, or nil before the connection
// completes.
func (t *tcpTransport) RemoteIP() net.IP {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		return addr.IP
	}
	return nil
}

func (t *tcpTransport) Protocol() string {
	return "http/1.1"
}

func (t *tcpTransport) ReadinessHandle() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn
}

func (t *tcpTransport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *tcpTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateClosed {
		return nil
	}
	t.state = StateClosed
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
