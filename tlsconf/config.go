/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

// Package tlsconf builds crypto/tls.Config values for outbound connections:
// root CA pools, client certificate pairs, min/max protocol version and
// cipher/curve preference, condensed from the teacher's multi-package
// certificates layout into a single client-facing builder.
package tlsconf

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"

	libval "github.com/go-playground/validator/v10"

	"github.com/sabouaram/ahttp/errs"
)

// CertPair is a PEM encoded private key and certificate pair.
type CertPair struct {
	KeyPEM string `mapstructure:"keyPem" json:"keyPem" yaml:"keyPem" toml:"keyPem"`
	CrtPEM string `mapstructure:"crtPem" json:"crtPem" yaml:"crtPem" toml:"crtPem"`
}

// Config is the serializable form of a TLS client configuration.
type Config struct {
	RootCAPEM           []string   `mapstructure:"rootCAPem" json:"rootCAPem" yaml:"rootCAPem" toml:"rootCAPem"`
	Certs               []CertPair `mapstructure:"certs" json:"certs" yaml:"certs" toml:"certs"`
	VersionMin          uint16     `mapstructure:"versionMin" json:"versionMin" yaml:"versionMin" toml:"versionMin" validate:"omitempty,oneof=769 770 771 772"`
	VersionMax          uint16     `mapstructure:"versionMax" json:"versionMax" yaml:"versionMax" toml:"versionMax" validate:"omitempty,oneof=769 770 771 772"`
	CipherSuites        []uint16   `mapstructure:"cipherSuites" json:"cipherSuites" yaml:"cipherSuites" toml:"cipherSuites"`
	CurvePreferences    []uint16   `mapstructure:"curvePreferences" json:"curvePreferences" yaml:"curvePreferences" toml:"curvePreferences"`
	InsecureSkipVerify  bool       `mapstructure:"insecureSkipVerify" json:"insecureSkipVerify" yaml:"insecureSkipVerify" toml:"insecureSkipVerify"`
	NextProtos          []string   `mapstructure:"nextProtos" json:"nextProtos" yaml:"nextProtos" toml:"nextProtos"`
}

// DefaultNextProtos is the ALPN offer for a channel that supports both
// protocol engines; a channel pinned to HTTP/1.1 only offers the tail entry.
var DefaultNextProtos = []string{"h2", "http/1.1"}

// Default returns a Config with TLS 1.2 as floor, TLS 1.3 as ceiling, and
// the dual h2/http1.1 ALPN offer.
func Default() Config {
	return Config{
		VersionMin: tls.VersionTLS12,
		VersionMax: tls.VersionTLS13,
		NextProtos: append([]string(nil), DefaultNextProtos...),
	}
}

// Validate checks struct constraints via the go-playground validator.
func (c Config) Validate() errs.Error {
	er := libval.New().Struct(c)
	if er == nil {
		return nil
	}

	err := errs.New(CodeValidation, "tlsconf: validation failed")
	if ve, ok := er.(libval.ValidationErrors); ok {
		for _, e := range ve {
			err = err.Add(fmt.Errorf("field %q fails constraint %q", e.StructNamespace(), e.ActualTag()))
		}
	} else {
		err = err.Add(er)
	}

	return err
}
