package socket

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/glaretechnologies/glare-core-sub008/pkg/constants"
	"github.com/glaretechnologies/glare-core-sub008/pkg/ipendpoint"
	"github.com/glaretechnologies/glare-core-sub008/pkg/sockerr"
	"github.com/glaretechnologies/glare-core-sub008/pkg/tlsconfig"
)

// TlsSocket is a SocketInterface over a TLS connection layered on a
// TcpSocket. The handshake runs to completion at construction time, not
// lazily on the first read/write -- mirroring TLSSocket.cpp's client
// constructor, which calls tls_handshake() explicitly so handshake failures
// surface immediately rather than inside a later ReadSome/WriteAll call.
// streamSocket is the subset of SocketInterface TlsSocket needs from its
// underlying transport: TcpSocket satisfies it directly; GenericSocket does
// too, which lets a TLS layer sit on top of a proxy tunnel as well as a
// plain dialed connection.
type streamSocket interface {
	SocketInterface
	Conn() net.Conn
}

type TlsSocket struct {
	mu        sync.Mutex
	plain     streamSocket
	conn      *tls.Conn
	br        *bufio.Reader
	typed     typedIO
	closeOnce sync.Once
}

var _ SocketInterface = (*TlsSocket)(nil)

// NewTlsClientSocket upgrades plain to TLS as a client, performing the
// handshake before returning. A nil config gets tlsconfig.DefaultClientConfig
// applied, which leaves certificate verification ON -- the original's
// insecure-by-default TLSConfig is treated as a bug and not reproduced (see
// SPEC_FULL.md §9).
func NewTlsClientSocket(ctx context.Context, plain streamSocket, serverName string, config *tls.Config) (*TlsSocket, error) {
	if config == nil {
		config = tlsconfig.DefaultClientConfig(serverName)
	} else if config.ServerName == "" {
		config = config.Clone()
		config.ServerName = serverName
	}

	tlsConn := tls.Client(plain.Conn(), config)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, sockerr.NewTlsError("handshake", serverName, plain.OtherEndIPEndpoint().Port(), err)
	}

	return newTlsSocket(plain, tlsConn), nil
}

// NewTlsServerSocket upgrades plain to TLS as a server using config (which
// must carry a certificate), performing the handshake before returning.
func NewTlsServerSocket(ctx context.Context, plain streamSocket, config *tls.Config) (*TlsSocket, error) {
	tlsConn := tls.Server(plain.Conn(), config)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, sockerr.NewTlsError("handshake", plain.OtherEndIPEndpoint().IP().String(), plain.OtherEndIPEndpoint().Port(), err)
	}
	return newTlsSocket(plain, tlsConn), nil
}

func newTlsSocket(plain streamSocket, conn *tls.Conn) *TlsSocket {
	s := &TlsSocket{plain: plain, conn: conn, br: bufio.NewReader(conn)}
	s.typed = typedIO{
		exactReader:      s.ReadExact,
		allWriter:        s.WriteAll,
		networkByteOrder: true,
	}
	return s
}

// ConnectionState exposes the negotiated TLS parameters (version, cipher
// suite, peer certificates) for callers that want to inspect them.
func (s *TlsSocket) ConnectionState() tls.ConnectionState {
	return s.conn.ConnectionState()
}

func (s *TlsSocket) currentConn() (*tls.Conn, *bufio.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, nil, sockerr.New(sockerr.NotASocket, "io", "socket handle is closed", nil)
	}
	return s.conn, s.br, nil
}

func (s *TlsSocket) ReadSome(buf []byte) (int, error) {
	_, br, err := s.currentConn()
	if err != nil {
		return 0, err
	}
	n, err := br.Read(buf)
	if err != nil {
		if isGracefulClose(err) {
			return 0, nil
		}
		return n, sockerr.TranslateNetError("read", s.remoteHost(), s.remotePort(), err)
	}
	return n, nil
}

func (s *TlsSocket) ReadExact(buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := s.ReadSome(buf[total:])
		if err != nil {
			return err
		}
		if n == 0 {
			return sockerr.New(sockerr.ConnectionClosed, "read_exact", "connection closed before all bytes were read", nil)
		}
		total += n
	}
	return nil
}

// WriteAll chunks at MaxReadOrWriteSize per underlying write, matching
// TLSSocket.cpp's MAX_READ_OR_WRITE_SIZE handling around tls_write(). Go's
// crypto/tls already retries internally on its own WANT_POLLIN/WANT_POLLOUT
// equivalents, so no manual retry loop is needed here.
func (s *TlsSocket) WriteAll(data []byte) error {
	conn, _, err := s.currentConn()
	if err != nil {
		return err
	}
	for len(data) > 0 {
		chunk := data
		if len(chunk) > constants.MaxReadOrWriteSize {
			chunk = chunk[:constants.MaxReadOrWriteSize]
		}
		n, err := conn.Write(chunk)
		if err != nil {
			return sockerr.TranslateNetError("write", s.remoteHost(), s.remotePort(), err)
		}
		data = data[n:]
	}
	return nil
}

func (s *TlsSocket) ReadInt32() (int32, error)   { return s.typed.readInt32() }
func (s *TlsSocket) ReadUint32() (uint32, error) { return s.typed.readUint32() }
func (s *TlsSocket) ReadUint64() (uint64, error) { return s.typed.readUint64() }
func (s *TlsSocket) WriteInt32(v int32) error    { return s.typed.writeInt32(v) }
func (s *TlsSocket) WriteUint32(v uint32) error  { return s.typed.writeUint32(v) }
func (s *TlsSocket) WriteUint64(v uint64) error  { return s.typed.writeUint64(v) }

func (s *TlsSocket) ReadNullTerminatedString(max int) (string, error) {
	return s.typed.readNullTerminatedString(max)
}

func (s *TlsSocket) SetUseNetworkByteOrder(use bool) { s.typed.networkByteOrder = use }
func (s *TlsSocket) UseNetworkByteOrder() bool       { return s.typed.networkByteOrder }

func (s *TlsSocket) Readable(timeout time.Duration) (bool, error) {
	_, br, err := s.currentConn()
	if err != nil {
		return false, err
	}
	if br.Buffered() > 0 {
		return true, nil
	}
	// tls.Conn has no SetReadDeadline-then-peek shortcut of its own that
	// avoids consuming a TLS record, so fall through to the plain socket's
	// readiness check: the first application-data record not yet decrypted
	// still shows up as readable bytes underneath.
	return s.plain.Readable(timeout)
}

func (s *TlsSocket) ReadableOrDone(done <-chan struct{}) (bool, error) {
	result := make(chan struct {
		ok  bool
		err error
	}, 1)
	go func() {
		ok, err := s.Readable(24 * time.Hour)
		result <- struct {
			ok  bool
			err error
		}{ok, err}
	}()
	select {
	case <-done:
		return false, nil
	case r := <-result:
		return r.ok, r.err
	}
}

// StartGracefulShutdown sends a TLS close_notify alert, mirroring
// TLSSocket's destructor calling tls_close() while the handle is still
// valid.
func (s *TlsSocket) StartGracefulShutdown() error {
	conn, _, err := s.currentConn()
	if err != nil {
		return err
	}
	if err := conn.CloseWrite(); err != nil {
		return sockerr.New(sockerr.TlsError, "close_notify", "failed to send TLS close_notify", err)
	}
	return nil
}

func (s *TlsSocket) WaitForGracefulDisconnect() error {
	buf := make([]byte, 4096)
	for {
		n, err := s.ReadSome(buf)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}

// UngracefulShutdown tears down the TLS layer and the underlying TCP socket
// without a close_notify round-trip. TLSSocket.cpp's destructor checks
// plain_socket->socketHandleValid() before calling tls_close() to avoid an
// assertion if ungracefulShutdown() already closed the handle out from under
// it; the plain socket's own UngracefulShutdown is already idempotent
// (sync.Once), which gives the same safety here.
func (s *TlsSocket) UngracefulShutdown() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		conn := s.conn
		s.conn = nil
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		err = s.plain.UngracefulShutdown()
	})
	return err
}

func (s *TlsSocket) Kill() { s.UngracefulShutdown() }

func (s *TlsSocket) SetNoDelay(enabled bool) error               { return s.plain.SetNoDelay(enabled) }
func (s *TlsSocket) EnableTCPKeepAlive(period time.Duration) error { return s.plain.EnableTCPKeepAlive(period) }
func (s *TlsSocket) SetAddressReuse(enabled bool) error           { return s.plain.SetAddressReuse(enabled) }

func (s *TlsSocket) OtherEndIPEndpoint() ipendpoint.IPEndpoint {
	return s.plain.OtherEndIPEndpoint()
}

func (s *TlsSocket) remoteHost() string { return s.plain.OtherEndIPEndpoint().IP().String() }
func (s *TlsSocket) remotePort() int    { return s.plain.OtherEndIPEndpoint().Port() }
