package socket

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/glaretechnologies/glare-core-sub008/pkg/constants"
	"github.com/glaretechnologies/glare-core-sub008/pkg/ipendpoint"
	"github.com/glaretechnologies/glare-core-sub008/pkg/sockerr"
)

// GenericSocket is a SocketInterface over an arbitrary net.Conn, used where
// the concrete connection type isn't known to be *net.TCPConn -- chiefly the
// tunnel established by HttpClient's proxy dialing (an HTTP CONNECT or SOCKS
// handshake hands back a plain net.Conn, sometimes itself already a *tls.Conn
// to an HTTPS proxy). TcpSocket is kept TCPConn-specific because it exposes
// TCP-only knobs (SetNoDelay, EnableTCPKeepAlive); GenericSocket degrades
// those to no-ops when the wrapped conn isn't a *net.TCPConn.
type GenericSocket struct {
	mu        sync.Mutex
	conn      net.Conn
	br        *bufio.Reader
	remote    ipendpoint.IPEndpoint
	closeOnce sync.Once
	typed     typedIO
}

var _ SocketInterface = (*GenericSocket)(nil)

// WrapConn adapts an already-established net.Conn into a SocketInterface.
func WrapConn(conn net.Conn, remote ipendpoint.IPEndpoint) *GenericSocket {
	s := &GenericSocket{conn: conn, br: bufio.NewReader(conn), remote: remote}
	s.typed = typedIO{
		exactReader:      s.ReadExact,
		allWriter:        s.WriteAll,
		networkByteOrder: true,
	}
	return s
}

func (s *GenericSocket) current() (net.Conn, *bufio.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, nil, sockerr.New(sockerr.NotASocket, "io", "socket handle is closed", nil)
	}
	return s.conn, s.br, nil
}

func (s *GenericSocket) ReadSome(buf []byte) (int, error) {
	_, br, err := s.current()
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

func (s *GenericSocket) ReadExact(buf []byte) error {
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

func (s *GenericSocket) WriteAll(data []byte) error {
	conn, _, err := s.current()
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

func (s *GenericSocket) ReadInt32() (int32, error)   { return s.typed.readInt32() }
func (s *GenericSocket) ReadUint32() (uint32, error) { return s.typed.readUint32() }
func (s *GenericSocket) ReadUint64() (uint64, error) { return s.typed.readUint64() }
func (s *GenericSocket) WriteInt32(v int32) error    { return s.typed.writeInt32(v) }
func (s *GenericSocket) WriteUint32(v uint32) error  { return s.typed.writeUint32(v) }
func (s *GenericSocket) WriteUint64(v uint64) error  { return s.typed.writeUint64(v) }

func (s *GenericSocket) ReadNullTerminatedString(max int) (string, error) {
	return s.typed.readNullTerminatedString(max)
}

func (s *GenericSocket) SetUseNetworkByteOrder(use bool) { s.typed.networkByteOrder = use }
func (s *GenericSocket) UseNetworkByteOrder() bool       { return s.typed.networkByteOrder }

func (s *GenericSocket) Readable(timeout time.Duration) (bool, error) {
	conn, br, err := s.current()
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

	_, peekErr := br.Peek(1)
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

func (s *GenericSocket) ReadableOrDone(done <-chan struct{}) (bool, error) {
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

func (s *GenericSocket) StartGracefulShutdown() error {
	conn, _, err := s.current()
	if err != nil {
		return err
	}
	type closeWriter interface{ CloseWrite() error }
	if cw, ok := conn.(closeWriter); ok {
		if err := cw.CloseWrite(); err != nil {
			return sockerr.New(sockerr.Unspecified, "shutdown_write", "failed to half-close connection", err)
		}
		return nil
	}
	return conn.Close()
}

func (s *GenericSocket) WaitForGracefulDisconnect() error {
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

func (s *GenericSocket) UngracefulShutdown() error {
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

func (s *GenericSocket) Kill() { s.UngracefulShutdown() }

// SetNoDelay/EnableTCPKeepAlive degrade to no-ops unless the wrapped conn
// happens to be a *net.TCPConn (e.g. a direct-to-proxy tunnel, as opposed to
// one layered under a *tls.Conn to the proxy).
func (s *GenericSocket) SetNoDelay(enabled bool) error {
	conn, _, err := s.current()
	if err != nil {
		return err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		return tc.SetNoDelay(enabled)
	}
	return nil
}

func (s *GenericSocket) EnableTCPKeepAlive(period time.Duration) error {
	conn, _, err := s.current()
	if err != nil {
		return err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.SetKeepAlive(true); err != nil {
			return err
		}
		return tc.SetKeepAlivePeriod(period)
	}
	return nil
}

func (s *GenericSocket) SetAddressReuse(enabled bool) error { return nil }

func (s *GenericSocket) OtherEndIPEndpoint() ipendpoint.IPEndpoint {
	return s.remote
}

// Conn exposes the underlying net.Conn, mirroring TcpSocket.Conn, so a
// GenericSocket's tunnel can itself be wrapped in TLS for the target leg of
// an HTTPS-over-proxy connection.
func (s *GenericSocket) Conn() net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}
