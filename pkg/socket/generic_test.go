package socket

import (
	"net"
	"testing"
	"time"

	"github.com/glaretechnologies/glare-core-sub008/pkg/ipendpoint"
)

func TestGenericSocketReadWriteRoundTrip(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	remote, _ := ipendpoint.FromAddr(client.RemoteAddr())
	gs := WrapConn(client, remote)
	defer gs.UngracefulShutdown()

	go func() {
		buf := make([]byte, 5)
		server.Read(buf)
		server.Write(buf)
	}()

	if err := gs.WriteAll([]byte("hello")); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	buf := make([]byte, 5)
	if err := gs.ReadExact(buf); err != nil {
		t.Fatalf("ReadExact: %v", err)
	}
	if string(buf) != "hello" {
		t.Fatalf("read %q, want %q", buf, "hello")
	}
}

func TestGenericSocketUngracefulShutdownIsIdempotent(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	gs := WrapConn(client, ipendpoint.IPEndpoint{})
	if err := gs.UngracefulShutdown(); err != nil {
		t.Fatalf("first shutdown: %v", err)
	}
	if err := gs.UngracefulShutdown(); err != nil {
		t.Fatalf("second shutdown should be a no-op: %v", err)
	}
}

func TestGenericSocketSetNoDelayNoOpOnNonTCPConn(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	gs := WrapConn(client, ipendpoint.IPEndpoint{})
	if err := gs.SetNoDelay(true); err != nil {
		t.Fatalf("SetNoDelay on a non-TCP conn should be a harmless no-op: %v", err)
	}
	if err := gs.EnableTCPKeepAlive(time.Second); err != nil {
		t.Fatalf("EnableTCPKeepAlive on a non-TCP conn should be a harmless no-op: %v", err)
	}
}

func TestGenericSocketConnAccessor(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	gs := WrapConn(client, ipendpoint.IPEndpoint{})
	if gs.Conn() != client {
		t.Fatal("Conn() should return the wrapped net.Conn")
	}
}
