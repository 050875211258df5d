/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package tlsconf

import (
	"crypto/tls"
	"crypto/x509"

	"github.com/sabouaram/ahttp/errs"
)

// AddRootCA parses a PEM encoded root CA and appends it to the pool.
func (c *Config) AddRootCA(pem string) errs.Error {
	if ok := x509.NewCertPool().AppendCertsFromPEM([]byte(pem)); !ok {
		return errs.New(CodeParseCA, "invalid PEM root CA")
	}
	c.RootCAPEM = append(c.RootCAPEM, pem)
	return nil
}

// AddCertificatePair parses a PEM key/certificate pair and appends it.
func (c *Config) AddCertificatePair(keyPEM, crtPEM string) errs.Error {
	if _, e := tls.X509KeyPair([]byte(crtPEM), []byte(keyPEM)); e != nil {
		return errs.New(CodeParseCert, "invalid certificate pair", e)
	}
	c.Certs = append(c.Certs, CertPair{KeyPEM: keyPEM, CrtPEM: crtPEM})
	return nil
}

// rootCAPool builds the x509.CertPool from the configured PEM blocks. A nil
// pool (no configured root CAs) falls back to the system pool at dial time,
// same as crypto/tls does when Config.RootCAs is nil.
func (c Config) rootCAPool() *x509.CertPool {
	if len(c.RootCAPEM) == 0 {
		return nil
	}

	pool := x509.NewCertPool()
	for _, pem := range c.RootCAPEM {
		pool.AppendCertsFromPEM([]byte(pem))
	}
	return pool
}

func (c Config) certificates() []tls.Certificate {
	if len(c.Certs) == 0 {
		return nil
	}

	out := make([]tls.Certificate, 0, len(c.Certs))
	for _, pair := range c.Certs {
		if cert, e := tls.X509KeyPair([]byte(pair.CrtPEM), []byte(pair.KeyPEM)); e == nil {
			out = append(out, cert)
		}
	}
	return out
}

// TLS builds a *tls.Config scoped to one server name. Each channel owns its
// own *tls.Config instance since ServerName is per-connection; the Config
// value itself may be shared and reused to build many of these.
func (c Config) TLS(serverName string) *tls.Config {
	minVer := c.VersionMin
	if minVer == 0 {
		minVer = tls.VersionTLS12
	}
	maxVer := c.VersionMax
	if maxVer == 0 {
		maxVer = tls.VersionTLS13
	}

	next := c.NextProtos
	if len(next) == 0 {
		next = append([]string(nil), DefaultNextProtos...)
	}

	return &tls.Config{
		ServerName:             serverName,
		RootCAs:                c.rootCAPool(),
		Certificates:           c.certificates(),
		MinVersion:             minVer,
		MaxVersion:             maxVer,
		CipherSuites:           c.CipherSuites,
		CurvePreferences:       curveIDs(c.CurvePreferences),
		InsecureSkipVerify:     c.InsecureSkipVerify,
		NextProtos:             next,
		SessionTicketsDisabled: false,
	}
}

func curveIDs(raw []uint16) []tls.CurveID {
	if len(raw) == 0 {
		return nil
	}
	out := make([]tls.CurveID, len(raw))
	for i, v := range raw {
		out[i] = tls.CurveID(v)
	}
	return out
}
