/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package session

import (
	"bytes"
	"encoding/json"
	"fmt"

	libval "github.com/go-playground/validator/v10"

	"github.com/sabouaram/ahttp/durationx"
	"github.com/sabouaram/ahttp/errs"
	"github.com/sabouaram/ahttp/logx"
	"github.com/sabouaram/ahttp/tlsconf"
)

// jsonIndentStep matches the teacher's DefaultConfig indentation convention.
const jsonIndentStep = "  "

// ResolverOptions configures whichever Resolver ResolverClass selects.
type ResolverOptions struct {
	Nameservers []string             `json:"nameservers,omitempty" yaml:"nameservers,omitempty" toml:"nameservers,omitempty" mapstructure:"nameservers,omitempty"`
	PacketSize  int                  `json:"packetSize,omitempty" yaml:"packetSize,omitempty" toml:"packetSize,omitempty" mapstructure:"packetSize,omitempty"`
	Timeouts    []durationx.Duration `json:"timeouts,omitempty" yaml:"timeouts,omitempty" toml:"timeouts,omitempty" mapstructure:"timeouts,omitempty"`
	RecordTypes []uint16             `json:"recordTypes,omitempty" yaml:"recordTypes,omitempty" toml:"recordTypes,omitempty" mapstructure:"recordTypes,omitempty"`
	MaxInFlight int                  `json:"maxInFlight,omitempty" yaml:"maxInFlight,omitempty" toml:"maxInFlight,omitempty" mapstructure:"maxInFlight,omitempty"`
	BootstrapIP string               `json:"bootstrapIp,omitempty" yaml:"bootstrapIp,omitempty" toml:"bootstrapIp,omitempty" mapstructure:"bootstrapIp,omitempty"`
	URL         string               `json:"url,omitempty" yaml:"url,omitempty" toml:"url,omitempty" mapstructure:"url,omitempty"`
}

// Options configures a Session, following the teacher's Options struct
// convention exactly: tagged for every serialization format the rest of
// the stack supports, validated with go-playground/validator, and able to
// print its own default configuration.
type Options struct {
	Timeout           durationx.Duration `json:"timeout" yaml:"timeout" toml:"timeout" mapstructure:"timeout"`
	KeepAliveTimeout  durationx.Duration `json:"keepAliveTimeout" yaml:"keepAliveTimeout" toml:"keepAliveTimeout" mapstructure:"keepAliveTimeout"`
	TLS               tlsconf.Config     `json:"tls" yaml:"tls" toml:"tls" mapstructure:"tls" validate:"-"`
	Pipeline          bool               `json:"pipeline" yaml:"pipeline" toml:"pipeline" mapstructure:"pipeline"`
	MaxConcurrentH2   uint32             `json:"maxConcurrentH2" yaml:"maxConcurrentH2" toml:"maxConcurrentH2" mapstructure:"maxConcurrentH2"`
	MaxRetries        int                `json:"maxRetries" yaml:"maxRetries" toml:"maxRetries" mapstructure:"maxRetries"`
	BodyThresholdSize int64              `json:"bodyThresholdSize" yaml:"bodyThresholdSize" toml:"bodyThresholdSize" mapstructure:"bodyThresholdSize"`
	UserAgent         string             `json:"userAgent" yaml:"userAgent" toml:"userAgent" mapstructure:"userAgent"`
	DialLocalAddr     string             `json:"dialLocalAddr,omitempty" yaml:"dialLocalAddr,omitempty" toml:"dialLocalAddr,omitempty" mapstructure:"dialLocalAddr,omitempty"`
	ResolverClass     string             `json:"resolverClass" yaml:"resolverClass" toml:"resolverClass" mapstructure:"resolverClass" validate:"omitempty,oneof=native system https"`
	ResolverOptions   ResolverOptions    `json:"resolverOptions" yaml:"resolverOptions" toml:"resolverOptions" mapstructure:"resolverOptions"`

	// Logger is an injection point mirroring the teacher's FctHttpClient
	// functional-injection convention: evaluated lazily so the Logger can
	// be swapped at runtime without reconstructing the Session. A nil
	// Logger defaults to logx.New().
	Logger logx.FuncLog `json:"-" yaml:"-" toml:"-" mapstructure:"-"`
}

// Default returns an Options with the same TLS/timeout/retry defaults the
// teacher ships for its own httpcli.Options.
func Default() Options {
	return Options{
		Timeout:           durationx.FromTime(30_000_000_000), // 30s
		KeepAliveTimeout:  durationx.FromTime(5_000_000_000),   // 5s
		TLS:               tlsconf.Default(),
		Pipeline:          true,
		MaxConcurrentH2:   100,
		MaxRetries:        2,
		BodyThresholdSize: 1 << 20,
		UserAgent:         "ahttp/1.0",
		ResolverClass:     "system",
		ResolverOptions:   ResolverOptions{MaxInFlight: 8},
	}
}

// Validate checks struct constraints via the go-playground validator, the
// same pattern tlsconf.Config.Validate and logx.Options.Validate follow.
func (o Options) Validate() errs.Error {
	var err errs.Error

	if er := libval.New().Struct(o); er != nil {
		err = errs.New(CodeValidation, "session: validation failed")
		if ve, ok := er.(libval.ValidationErrors); ok {
			for _, e := range ve {
				err = err.Add(fmt.Errorf("field %q fails constraint %q", e.StructNamespace(), e.ActualTag()))
			}
		} else {
			err = err.Add(er)
		}
	}

	if tlsErr := o.TLS.Validate(); tlsErr != nil {
		if err == nil {
			err = errs.New(CodeValidation, "session: validation failed")
		}
		err = err.Add(tlsErr)
	}

	return err
}

// DefaultConfig renders Default() as indented JSON, matching the teacher's
// DefaultConfig(indent string) []byte helper.
func DefaultConfig(indent string) []byte {
	raw, err := json.Marshal(Default())
	if err != nil {
		return nil
	}

	var out bytes.Buffer
	if err := json.Indent(&out, raw, indent, jsonIndentStep); err != nil {
		return raw
	}
	return out.Bytes()
}
