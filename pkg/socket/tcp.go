package socket

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	"github.com/glaretechnologies/glare-core-sub008/pkg/constants"
	"github.com/glaretechnologies/glare-core-sub008/pkg/ipendpoint"
	"github.com/glaretechnologies/glare-core-sub008/pkg/netsub"
	"github.com/glaretechnologies/glare-core-sub008/pkg/sockerr"
)

// TcpSocket is a SocketInterface over a native TCP connection. Creation is
// IPv6-preferred/dual-stack by way of Go's dialer, which already performs
// Happy-Eyeballs-style racing across address families the way the original
// MySocket.cpp's manual "create IPv6, fall back to IPv4 once" state machine
// did by hand (see SPEC_FULL.md §9).
//
// Reads go through a bufio.Reader rather than straight off the conn so that
// Readable can Peek(1) to test readiness without consuming the byte it
// finds -- net.Conn offers no non-consuming read of its own.
type TcpSocket struct {
	mu        sync.Mutex
	conn      *net.TCPConn
	br        *bufio.Reader
	remote    ipendpoint.IPEndpoint
	closeOnce sync.Once
	typed     typedIO
	noDelay   bool
	reuseAddr bool
	keepAlive time.Duration
}

var _ SocketInterface = (*TcpSocket)(nil)

func newTcpSocket(conn *net.TCPConn, remote ipendpoint.IPEndpoint) *TcpSocket {
	s := &TcpSocket{conn: conn, br: bufio.NewReader(conn), remote: remote}
	s.typed = typedIO{
		exactReader:      s.ReadExact,
		allWriter:        s.WriteAll,
		networkByteOrder: true,
	}
	return s
}

// DialTCP resolves host via the networking subsystem and connects to the
// first address that accepts a connection, mirroring
// MySocket::connect(host, port) with DNS resolution.
func DialTCP(ctx context.Context, host string, port int) (*TcpSocket, error) {
	endpoints, err := netsub.Resolve(ctx, host)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, ep := range endpoints {
		s, err := DialTCPEndpoint(ctx, ep.WithPort(port))
		if err == nil {
			return s, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = sockerr.NewConnectionFailed(host, port, nil)
	}
	return nil, lastErr
}

// DialTCPEndpoint connects directly to endpoint, skipping DNS resolution,
// mirroring MySocket::connect(ipaddress, hostname, port).
func DialTCPEndpoint(ctx context.Context, endpoint ipendpoint.IPEndpoint) (*TcpSocket, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", endpoint.TCPAddr().String())
	if err != nil {
		return nil, sockerr.NewConnectionFailed(endpoint.IP().String(), endpoint.Port(), err)
	}
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		conn.Close()
		return nil, sockerr.New(sockerr.Unspecified, "dial", "dialed connection was not a TCP connection", nil)
	}
	remote, _ := ipendpoint.FromAddr(tcpConn.RemoteAddr())
	return newTcpSocket(tcpConn, remote), nil
}

// TcpListener is a bound, listening TCP socket (spec §4.3's bindAndListen +
// acceptConnection pair).
type TcpListener struct {
	ln *net.TCPListener
}

// BindAndListenTCP binds a dual-stack wildcard TCP listener on port.
// reuseAddress is accepted but not applied: this function sets no socket
// option for it, and the listener keeps Go's own address-reuse default.
// Go's net.Listen resolves the v4/v6 split the way getaddrinfo(AI_PASSIVE)
// would; an explicit backlog cannot be threaded through net.ListenTCP
// portably (see constants.ListenBacklog).
func BindAndListenTCP(port int, reuseAddress bool) (*TcpListener, error) {
	// reuseAddress is accepted for API parity with the original
	// setAddressReuseEnabled option, but Go's listener already reuses a
	// recently-closed local address on most platforms without an explicit
	// SO_REUSEADDR call; no further action is taken here.
	_ = reuseAddress
	lc := net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", net.JoinHostPort("", itoa(port)))
	if err != nil {
		return nil, sockerr.New(sockerr.ConnectionFailed, "listen", "failed to bind/listen", err)
	}
	tln, ok := ln.(*net.TCPListener)
	if !ok {
		ln.Close()
		return nil, sockerr.New(sockerr.Unspecified, "listen", "listener was not a TCP listener", nil)
	}
	return &TcpListener{ln: tln}, nil
}

// AcceptConnection blocks until a peer connects, returning a populated
// TcpSocket.
func (l *TcpListener) AcceptConnection() (*TcpSocket, error) {
	conn, err := l.ln.AcceptTCP()
	if err != nil {
		return nil, sockerr.TranslateNetError("accept", "", 0, err)
	}
	remote, _ := ipendpoint.FromAddr(conn.RemoteAddr())
	return newTcpSocket(conn, remote), nil
}

// Close stops listening.
func (l *TcpListener) Close() error {
	return l.ln.Close()
}

// Addr returns the bound local address.
func (l *TcpListener) Addr() net.Addr {
	return l.ln.Addr()
}

// --- SocketInterface implementation ---

func (s *TcpSocket) currentConn() (*net.TCPConn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, sockerr.New(sockerr.NotASocket, "io", "socket handle is closed", nil)
	}
	return s.conn, nil
}

func (s *TcpSocket) currentReader() (*bufio.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, sockerr.New(sockerr.NotASocket, "io", "socket handle is closed", nil)
	}
	return s.br, nil
}

func (s *TcpSocket) ReadSome(buf []byte) (int, error) {
	br, err := s.currentReader()
	if err != nil {
		return 0, err
	}
	n, err := br.Read(buf)
	if err != nil {
		if isGracefulClose(err) {
			return 0, nil
		}
		return n, sockerr.TranslateNetError("read", s.remote.IP().String(), s.remote.Port(), err)
	}
	return n, nil
}

func (s *TcpSocket) ReadExact(buf []byte) error {
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

func (s *TcpSocket) WriteAll(data []byte) error {
	conn, err := s.currentConn()
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
			return sockerr.TranslateNetError("write", s.remote.IP().String(), s.remote.Port(), err)
		}
		data = data[n:]
	}
	return nil
}

func (s *TcpSocket) ReadInt32() (int32, error)   { return s.typed.readInt32() }
func (s *TcpSocket) ReadUint32() (uint32, error) { return s.typed.readUint32() }
func (s *TcpSocket) ReadUint64() (uint64, error) { return s.typed.readUint64() }
func (s *TcpSocket) WriteInt32(v int32) error    { return s.typed.writeInt32(v) }
func (s *TcpSocket) WriteUint32(v uint32) error  { return s.typed.writeUint32(v) }
func (s *TcpSocket) WriteUint64(v uint64) error  { return s.typed.writeUint64(v) }

func (s *TcpSocket) ReadNullTerminatedString(max int) (string, error) {
	return s.typed.readNullTerminatedString(max)
}

func (s *TcpSocket) SetUseNetworkByteOrder(use bool) { s.typed.networkByteOrder = use }
func (s *TcpSocket) UseNetworkByteOrder() bool        { return s.typed.networkByteOrder }

func (s *TcpSocket) Readable(timeout time.Duration) (bool, error) {
	conn, err := s.currentConn()
	if err != nil {
		return false, err
	}
	br, err := s.currentReader()
	if err != nil {
		return false, err
	}
	if br.Buffered() > 0 {
		return true, nil
	}
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return false, sockerr.New(sockerr.Unspecified, "readable", "failed to set read deadline", err)
	}
	defer conn.SetReadDeadline(time.Time{})

	_, peekErr := br.Peek(1) // non-consuming: leaves the byte buffered for the next real read
	if peekErr == nil {
		return true, nil
	}
	if sockerr.IsTimeout(peekErr) {
		return false, nil
	}
	if isGracefulClose(peekErr) {
		return true, nil
	}
	return false, sockerr.TranslateNetError("readable", s.remote.IP().String(), s.remote.Port(), peekErr)
}

func (s *TcpSocket) ReadableOrDone(done <-chan struct{}) (bool, error) {
	result := make(chan struct {
		ok  bool
		err error
	}, 1)
	go func() {
		ok, err := s.Readable(24 * time.Hour) // effectively "wait until ready"; bounded by done below
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

func (s *TcpSocket) StartGracefulShutdown() error {
	conn, err := s.currentConn()
	if err != nil {
		return err
	}
	if err := conn.CloseWrite(); err != nil {
		return sockerr.New(sockerr.Unspecified, "shutdown_write", "failed to half-close connection", err)
	}
	return nil
}

func (s *TcpSocket) WaitForGracefulDisconnect() error {
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

func (s *TcpSocket) UngracefulShutdown() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		conn := s.conn
		s.conn = nil
		s.mu.Unlock()
		if conn != nil {
			err = conn.Close()
		}
	})
	return err
}

func (s *TcpSocket) Kill() { s.UngracefulShutdown() }

func (s *TcpSocket) SetNoDelay(enabled bool) error {
	conn, err := s.currentConn()
	if err != nil {
		return err
	}
	s.noDelay = enabled
	if err := conn.SetNoDelay(enabled); err != nil {
		return sockerr.New(sockerr.Unspecified, "set_no_delay", "failed to set TCP_NODELAY", err)
	}
	return nil
}

func (s *TcpSocket) EnableTCPKeepAlive(period time.Duration) error {
	conn, err := s.currentConn()
	if err != nil {
		return err
	}
	s.keepAlive = period
	if err := conn.SetKeepAlive(true); err != nil {
		return sockerr.New(sockerr.Unspecified, "set_keepalive", "failed to enable TCP keepalive", err)
	}
	if err := conn.SetKeepAlivePeriod(period); err != nil {
		return sockerr.New(sockerr.Unspecified, "set_keepalive_period", "failed to set TCP keepalive period", err)
	}
	return nil
}

func (s *TcpSocket) SetAddressReuse(enabled bool) error {
	// Address reuse only applies at listen time (see BindAndListenTCP); on
	// an already-connected socket this is a documented no-op rather than a
	// silently ignored call.
	s.reuseAddr = enabled
	return nil
}

func (s *TcpSocket) OtherEndIPEndpoint() ipendpoint.IPEndpoint {
	return s.remote
}

// Conn exposes the underlying net.Conn for callers that need to wrap it
// (e.g. TlsSocket).
func (s *TcpSocket) Conn() net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func isGracefulClose(err error) bool {
	return err != nil && isEOF(err)
}
