package tlsconf_test

import (
	"crypto/tls"
	"testing"

	"github.com/sabouaram/ahttp/tlsconf"
)

func TestDefaultBuildsDualALPN(t *testing.T) {
	cfg := tlsconf.Default()
	tc := cfg.TLS("example.com")

	if tc.ServerName != "example.com" {
		t.Fatalf("expected ServerName example.com, got %q", tc.ServerName)
	}
	if len(tc.NextProtos) != 2 || tc.NextProtos[0] != "h2" || tc.NextProtos[1] != "http/1.1" {
		t.Fatalf("unexpected NextProtos: %v", tc.NextProtos)
	}
	if tc.MinVersion != tls.VersionTLS12 || tc.MaxVersion != tls.VersionTLS13 {
		t.Fatalf("unexpected version bounds: min=%d max=%d", tc.MinVersion, tc.MaxVersion)
	}
}

func TestValidateRejectsBadVersion(t *testing.T) {
	cfg := tlsconf.Default()
	cfg.VersionMin = 1

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for bad VersionMin")
	}
}

func TestAddRootCARejectsInvalidPEM(t *testing.T) {
	cfg := tlsconf.Default()
	if err := cfg.AddRootCA("not a cert"); err == nil {
		t.Fatalf("expected error for invalid PEM")
	}
}
