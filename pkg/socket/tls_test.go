package socket

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/glaretechnologies/glare-core-sub008/pkg/ipendpoint"
)

func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{"localhost"},
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("ParseCertificate: %v", err)
	}
	return tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  priv,
		Leaf:        cert,
	}
}

func TestTlsSocketHandshakeAndRoundTrip(t *testing.T) {
	cert := selfSignedCert(t)
	serverConn, clientConn := net.Pipe()

	serverPlain := WrapConn(serverConn, ipendpoint.IPEndpoint{})
	clientPlain := WrapConn(clientConn, ipendpoint.IPEndpoint{})

	serverCfg := &tls.Config{Certificates: []tls.Certificate{cert}}
	clientCfg := &tls.Config{
		RootCAs:    x509.NewCertPool(),
		ServerName: "localhost",
	}
	clientCfg.RootCAs.AddCert(cert.Leaf)

	type result struct {
		sock *TlsSocket
		err  error
	}
	serverCh := make(chan result, 1)
	go func() {
		s, err := NewTlsServerSocket(context.Background(), serverPlain, serverCfg)
		serverCh <- result{s, err}
	}()

	client, err := NewTlsClientSocket(context.Background(), clientPlain, "localhost", clientCfg)
	if err != nil {
		t.Fatalf("NewTlsClientSocket: %v", err)
	}
	defer client.UngracefulShutdown()

	r := <-serverCh
	if r.err != nil {
		t.Fatalf("NewTlsServerSocket: %v", r.err)
	}
	server := r.sock
	defer server.UngracefulShutdown()

	// net.Pipe is unbuffered: WriteAll blocks until the server side reads,
	// so the write runs concurrently with ReadExact.
	writeErr := make(chan error, 1)
	go func() { writeErr <- client.WriteAll([]byte("over tls")) }()
	buf := make([]byte, len("over tls"))
	if err := server.ReadExact(buf); err != nil {
		t.Fatalf("ReadExact: %v", err)
	}
	if err := <-writeErr; err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if string(buf) != "over tls" {
		t.Fatalf("read %q", buf)
	}
}

func TestTlsSocketHandshakeFailsOnUntrustedCert(t *testing.T) {
	cert := selfSignedCert(t)
	serverConn, clientConn := net.Pipe()

	serverPlain := WrapConn(serverConn, ipendpoint.IPEndpoint{})
	clientPlain := WrapConn(clientConn, ipendpoint.IPEndpoint{})

	serverCfg := &tls.Config{Certificates: []tls.Certificate{cert}}

	defer serverConn.Close()
	defer clientConn.Close()
	go NewTlsServerSocket(context.Background(), serverPlain, serverCfg)

	// No config supplied: DefaultClientConfig leaves verification on, and the
	// test CA was never added to any trust store, so the handshake must fail.
	_, err := NewTlsClientSocket(context.Background(), clientPlain, "localhost", nil)
	if err == nil {
		t.Fatal("expected handshake against an untrusted self-signed cert to fail")
	}
}
