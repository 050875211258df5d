/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"sync"

	"github.com/sabouaram/ahttp/buffer"
	"github.com/sabouaram/ahttp/errs"
)

// CertificateSource is implemented by Transport variants that complete a TLS
// handshake. The Pool uses it to verify SAN coverage before coalescing an
// HTTP/2 channel opened for one hostname onto a request for another.
type CertificateSource interface {
	PeerCertificate() *x509.Certificate
}

type tlsTransport struct {
	mu         sync.Mutex
	inner      *tcpTransport
	cfg        *tls.Config
	conn       *tls.Conn
	state      State
	negotiated string
}

var _ CertificateSource = (*tlsTransport)(nil)

// NewTLS returns a TLS Transport dialing addr (host:port) on Connect, then
// performing a non-blocking handshake negotiating ALPN per cfg.NextProtos.
func NewTLS(addr string, cfg *tls.Config) Transport {
	return NewTLSFrom(addr, "", cfg)
}

// NewTLSFrom is NewTLS with the local bind address pinned to localAddr, the
// same convention NewTCPFrom follows.
func NewTLSFrom(addr, localAddr string, cfg *tls.Config) Transport {
	return &tlsTransport{
		inner: NewTCPFrom(addr, localAddr).(*tcpTransport),
		cfg:   cfg,
		state: StateIdle,
	}
}

func (t *tlsTransport) Connect() errs.Error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case StateNegotiated:
		return nil
	case StateFailed, StateClosed:
		return errs.New(CodeConnect, "transport: connect on terminal transport")
	}

	if t.conn == nil {
		if err := t.inner.Connect(); err != nil {
			t.state = StateFailed
			return err
		}
		if t.inner.State() != StateConnected {
			t.state = StateConnecting
			return nil
		}

		rawConn := t.inner.rawConn()
		if rawConn == nil {
			return nil
		}
		t.conn = tls.Client(rawConn, t.cfg)
	}

	_ = t.conn.SetDeadline(zeroWait())
	if err := t.conn.HandshakeContext(context.Background()); err != nil {
		if isTimeout(err) {
			t.state = StateConnecting
			return nil
		}
		t.state = StateFailed
		return errs.New(CodeHandshake, "transport: tls handshake failed", err)
	}

	t.negotiated = t.conn.ConnectionState().NegotiatedProtocol
	if t.negotiated == "" {
		t.negotiated = "http/1.1"
	}
	t.state = StateNegotiated
	return nil
}

func (t *tlsTransport) Read(max int, buf *buffer.Ring) (Result, errs.Error) {
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
	return Result{N: n, Closed: true}, errs.New(CodeRead, "transport: read failed", err)
}

func (t *tlsTransport) Write(buf *buffer.Ring) (Result, errs.Error) {
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

func (t *tlsTransport) Protocol() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.negotiated == "" {
		return "http/1.1"
	}
	return t.negotiated
}

func (t *tlsTransport) ReadinessHandle() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return t.conn
	}
	return t.inner.ReadinessHandle()
}

func (t *tlsTransport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

var _ AddrSource = (*tlsTransport)(nil)

// RemoteIP delegates to the underlying TCP connection.
func (t *tlsTransport) RemoteIP() net.IP {
	return t.inner.RemoteIP()
}

// PeerCertificate returns the leaf certificate the server presented during
// the handshake, or nil before negotiation completes.
func (t *tlsTransport) PeerCertificate() *x509.Certificate {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	certs := t.conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil
	}
	return certs[0]
}

func (t *tlsTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateClosed {
		return nil
	}
	t.state = StateClosed
	if t.conn != nil {
		return t.conn.Close()
	}
	return t.inner.Close()
}
