package socket

import (
	"testing"
	"time"

	"github.com/glaretechnologies/glare-core-sub008/pkg/ipendpoint"
)

func TestUdpSocketSendReceiveRoundTrip(t *testing.T) {
	server, err := BindUDP(0, true)
	if err != nil {
		t.Fatalf("BindUDP (server): %v", err)
	}
	defer server.Close()

	client, err := BindUDP(0, true)
	if err != nil {
		t.Fatalf("BindUDP (client): %v", err)
	}
	defer client.Close()

	serverPort, err := server.LocalPort()
	if err != nil {
		t.Fatalf("LocalPort: %v", err)
	}
	dest, err := ipendpoint.Parse("127.0.0.1", serverPort)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if err := client.SendPacket([]byte("datagram"), dest); err != nil {
		t.Fatalf("SendPacket: %v", err)
	}

	server.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, from, err := server.ReadPacket(buf)
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if string(buf[:n]) != "datagram" {
		t.Fatalf("ReadPacket payload = %q", buf[:n])
	}
	if !from.IsValid() {
		t.Fatal("expected a valid sender endpoint")
	}
}

func TestUdpSocketNonBlockingReadReturnsZeroWhenEmpty(t *testing.T) {
	s, err := BindUDP(0, true)
	if err != nil {
		t.Fatalf("BindUDP: %v", err)
	}
	defer s.Close()
	s.SetBlocking(false)

	buf := make([]byte, 16)
	n, from, err := s.ReadPacket(buf)
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if n != 0 || from.IsValid() {
		t.Fatalf("expected (0, invalid endpoint) when no datagram is ready, got (%d, %v)", n, from)
	}
}

func TestUdpSocketLocalPortAndClose(t *testing.T) {
	s, err := BindUDP(0, true)
	if err != nil {
		t.Fatalf("BindUDP: %v", err)
	}
	port, err := s.LocalPort()
	if err != nil {
		t.Fatalf("LocalPort: %v", err)
	}
	if port == 0 {
		t.Fatal("expected a nonzero ephemeral port")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close should be a no-op: %v", err)
	}
	if err := s.SendPacket([]byte("x"), ipendpoint.Unspecified()); err == nil {
		t.Fatal("SendPacket after Close should fail")
	}
}
