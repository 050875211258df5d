package resolver

import (
	"net"
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := newCache()
	addrs := []net.IP{net.IPv4(1, 2, 3, 4)}
	c.set("example.com", TypeA, addrs, 10*time.Second)

	got, ok := c.get("example.com", TypeA)
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if len(got) != 1 || !got[0].Equal(addrs[0]) {
		t.Fatalf("unexpected cached addrs: %v", got)
	}
}

func TestCacheExpiry(t *testing.T) {
	c := newCache()
	c.set("example.com", TypeA, []net.IP{net.IPv4(1, 2, 3, 4)}, -1*time.Second)

	if _, ok := c.get("example.com", TypeA); ok {
		t.Fatalf("expected cache miss for expired entry")
	}
}

func TestCacheMissDistinguishesRecordType(t *testing.T) {
	c := newCache()
	c.set("example.com", TypeA, []net.IP{net.IPv4(1, 2, 3, 4)}, time.Minute)

	if _, ok := c.get("example.com", TypeAAAA); ok {
		t.Fatalf("expected miss for different record type")
	}
}
