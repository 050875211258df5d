package resolver

import (
	"net"
	"testing"
)

func TestEncodeQueryHeader(t *testing.T) {
	pkt := encodeQuery(0x1234, "example.com", TypeA)
	if len(pkt) < 12 {
		t.Fatalf("packet too short: %d", len(pkt))
	}
	if pkt[0] != 0x12 || pkt[1] != 0x34 {
		t.Fatalf("unexpected id bytes: %x %x", pkt[0], pkt[1])
	}
	// QDCOUNT at offset 4-5 should be 1.
	if pkt[4] != 0 || pkt[5] != 1 {
		t.Fatalf("expected QDCOUNT=1, got %d", pkt[5])
	}
}

func TestEncodeDecodeNameRoundTrip(t *testing.T) {
	encoded := encodeName("www.example.com")
	name, off, err := decodeName(encoded, 0)
	if err != nil {
		t.Fatalf("decodeName error: %v", err)
	}
	if name != "www.example.com" {
		t.Fatalf("expected www.example.com, got %q", name)
	}
	if off != len(encoded) {
		t.Fatalf("expected offset %d, got %d", len(encoded), off)
	}
}

func buildResponse(t *testing.T, id uint16, qname string, rtype uint16, ip net.IP, ttl uint32) []byte {
	t.Helper()

	hdr := make([]byte, 12)
	hdr[0] = byte(id >> 8)
	hdr[1] = byte(id)
	hdr[2] = 0x81
	hdr[3] = 0x80
	hdr[5] = 1 // QDCOUNT
	hdr[7] = 1 // ANCOUNT

	buf := append([]byte{}, hdr...)
	buf = append(buf, encodeName(qname)...)
	buf = append(buf, 0, byte(rtype), 0, 1) // qtype, qclass

	buf = append(buf, encodeName(qname)...)
	buf = append(buf, 0, byte(rtype), 0, 1) // type, class
	buf = append(buf, byte(ttl>>24), byte(ttl>>16), byte(ttl>>8), byte(ttl))

	ipBytes := ip.To4()
	if rtype == TypeAAAA {
		ipBytes = ip.To16()
	}
	buf = append(buf, byte(len(ipBytes)>>8), byte(len(ipBytes)))
	buf = append(buf, ipBytes...)

	return buf
}

func TestDecodeMessageAnswer(t *testing.T) {
	raw := buildResponse(t, 0xAAAA, "example.com", TypeA, net.IPv4(93, 184, 216, 34), 300)

	msg, err := decodeMessage(raw)
	if err != nil {
		t.Fatalf("decodeMessage error: %v", err)
	}
	if msg.id != 0xAAAA {
		t.Fatalf("unexpected id: %x", msg.id)
	}
	if len(msg.answers) != 1 {
		t.Fatalf("expected 1 answer, got %d", len(msg.answers))
	}
	a := msg.answers[0]
	if a.rtype != TypeA || !a.ip.Equal(net.IPv4(93, 184, 216, 34)) {
		t.Fatalf("unexpected answer: %+v", a)
	}
	if a.ttl != 300 {
		t.Fatalf("expected ttl 300, got %d", a.ttl)
	}
}
