package socket

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/glaretechnologies/glare-core-sub008/pkg/ipendpoint"
)

func addrPort(t *testing.T, ln *TcpListener) int {
	t.Helper()
	tcpAddr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		t.Fatalf("Addr() = %T, want *net.TCPAddr", ln.Addr())
	}
	return tcpAddr.Port
}

func TestTcpSocketDialReadWriteRoundTrip(t *testing.T) {
	ln, err := BindAndListenTCP(0, true)
	if err != nil {
		t.Fatalf("BindAndListenTCP: %v", err)
	}
	defer ln.Close()

	accepted := make(chan *TcpSocket, 1)
	acceptErr := make(chan error, 1)
	go func() {
		s, err := ln.AcceptConnection()
		if err != nil {
			acceptErr <- err
			return
		}
		accepted <- s
	}()

	ep, err := ipendpoint.Parse("127.0.0.1", addrPort(t, ln))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	client, err := DialTCPEndpoint(context.Background(), ep)
	if err != nil {
		t.Fatalf("DialTCPEndpoint: %v", err)
	}
	defer client.UngracefulShutdown()

	var server *TcpSocket
	select {
	case server = <-accepted:
	case err := <-acceptErr:
		t.Fatalf("AcceptConnection: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for accepted connection")
	}
	defer server.UngracefulShutdown()

	if err := client.WriteAll([]byte("ping")); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	buf := make([]byte, 4)
	if err := server.ReadExact(buf); err != nil {
		t.Fatalf("ReadExact: %v", err)
	}
	if string(buf) != "ping" {
		t.Fatalf("read %q, want ping", buf)
	}
}

func TestTcpSocketReadableReflectsBufferedData(t *testing.T) {
	ln, err := BindAndListenTCP(0, true)
	if err != nil {
		t.Fatalf("BindAndListenTCP: %v", err)
	}
	defer ln.Close()

	accepted := make(chan *TcpSocket, 1)
	go func() {
		s, _ := ln.AcceptConnection()
		accepted <- s
	}()

	ep, err := ipendpoint.Parse("127.0.0.1", addrPort(t, ln))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	client, err := DialTCPEndpoint(context.Background(), ep)
	if err != nil {
		t.Fatalf("DialTCPEndpoint: %v", err)
	}
	defer client.UngracefulShutdown()

	server := <-accepted
	defer server.UngracefulShutdown()

	ready, err := client.Readable(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("Readable: %v", err)
	}
	if ready {
		t.Fatal("socket should not be readable before any data arrives")
	}

	if err := server.WriteAll([]byte("x")); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	ready, err = client.Readable(2 * time.Second)
	if err != nil {
		t.Fatalf("Readable: %v", err)
	}
	if !ready {
		t.Fatal("socket should be readable once data has arrived")
	}
}

func TestTcpSocketUngracefulShutdownThenIOFails(t *testing.T) {
	ln, err := BindAndListenTCP(0, true)
	if err != nil {
		t.Fatalf("BindAndListenTCP: %v", err)
	}
	defer ln.Close()

	go func() {
		s, _ := ln.AcceptConnection()
		if s != nil {
			defer s.UngracefulShutdown()
		}
	}()

	ep, err := ipendpoint.Parse("127.0.0.1", addrPort(t, ln))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	client, err := DialTCPEndpoint(context.Background(), ep)
	if err != nil {
		t.Fatalf("DialTCPEndpoint: %v", err)
	}

	if err := client.UngracefulShutdown(); err != nil {
		t.Fatalf("UngracefulShutdown: %v", err)
	}
	if err := client.UngracefulShutdown(); err != nil {
		t.Fatalf("second UngracefulShutdown should be a no-op: %v", err)
	}
	if err := client.WriteAll([]byte("x")); err == nil {
		t.Fatal("WriteAll after shutdown should fail")
	}
}
