package ipendpoint

import (
	"net"
	"testing"
)

func TestParseAndString(t *testing.T) {
	ep, err := Parse("192.168.1.1", 8080)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ep.String() != "192.168.1.1:8080" {
		t.Fatalf("String() = %q", ep.String())
	}
	if !ep.IsV4() || ep.IsV6() {
		t.Fatalf("expected IPv4 endpoint, got IsV4=%v IsV6=%v", ep.IsV4(), ep.IsV6())
	}
}

func TestParseInvalidAddress(t *testing.T) {
	if _, err := Parse("not-an-ip", 80); err == nil {
		t.Fatal("expected error for invalid IP")
	}
}

func TestUnspecifiedEndpoint(t *testing.T) {
	ep := Unspecified()
	if ep.IsValid() {
		t.Fatal("Unspecified() should not be valid")
	}
	if ep.Port() != UnspecifiedPort {
		t.Fatalf("Port() = %d, want UnspecifiedPort", ep.Port())
	}
	if ep.String() != "<unspecified>" {
		t.Fatalf("String() = %q", ep.String())
	}
}

func TestWithPort(t *testing.T) {
	ep, _ := Parse("10.0.0.1", 80)
	ep2 := ep.WithPort(443)
	if ep2.Port() != 443 || ep.Port() != 80 {
		t.Fatalf("WithPort should not mutate the receiver: ep=%d ep2=%d", ep.Port(), ep2.Port())
	}
}

func TestFromAddr(t *testing.T) {
	tcp := &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 9000}
	ep, ok := FromAddr(tcp)
	if !ok {
		t.Fatal("FromAddr should succeed for *net.TCPAddr")
	}
	if ep.Port() != 9000 {
		t.Fatalf("Port() = %d, want 9000", ep.Port())
	}

	_, ok = FromAddr(&net.UnixAddr{Name: "/tmp/x"})
	if ok {
		t.Fatal("FromAddr should fail for an unrecognized net.Addr type")
	}
}

func TestParseHostPort(t *testing.T) {
	ep, err := ParseHostPort("[::1]:443")
	if err != nil {
		t.Fatalf("ParseHostPort: %v", err)
	}
	if !ep.IsV6() {
		t.Fatal("expected IPv6 endpoint")
	}
	if ep.Port() != 443 {
		t.Fatalf("Port() = %d, want 443", ep.Port())
	}
}

func TestTCPAddrPanicsOnSentinelPort(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic rendering TCPAddr with an unspecified port")
		}
	}()
	Unspecified().TCPAddr()
}
