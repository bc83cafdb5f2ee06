package socket

import (
	"net"
	"sync"
	"time"

	"github.com/glaretechnologies/glare-core-sub008/pkg/ipendpoint"
	"github.com/glaretechnologies/glare-core-sub008/pkg/sockerr"
)

// UdpSocket is a bounded-datagram send/recv endpoint wrapping *net.UDPConn.
// Unlike the stream transports it does not implement the full
// SocketInterface (datagrams have no byte-stream framing to speak of); it
// exposes the subset of operations the spec names for UDP, grounded on
// UDPSocket.cpp's bindToPort/sendPacket/readPacket/setBlocking.
type UdpSocket struct {
	mu        sync.Mutex
	conn      *net.UDPConn
	blocking  bool
	closeOnce sync.Once
}

// BindUDP binds a dual-stack wildcard UDP socket on port. reuseAddress is
// accepted for API parity with bindToPort's reuse_address parameter; see
// the equivalent note on BindAndListenTCP.
func BindUDP(port int, reuseAddress bool) (*UdpSocket, error) {
	_ = reuseAddress
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, sockerr.New(sockerr.ConnectionFailed, "bind", "failed to bind UDP socket", err)
	}
	return &UdpSocket{conn: conn, blocking: true}, nil
}

// SendPacket sends one datagram to endpoint. UDPSocket.cpp checks that
// sendto wrote the whole datagram in one go; WriteToUDP on Go's UDPConn is
// documented to do the same (whole datagram or error), so the short-write
// check here is the same defensive belt-and-braces the original has.
func (u *UdpSocket) SendPacket(data []byte, endpoint ipendpoint.IPEndpoint) error {
	u.mu.Lock()
	conn := u.conn
	u.mu.Unlock()
	if conn == nil {
		return sockerr.New(sockerr.NotASocket, "send", "UDP socket is closed", nil)
	}
	n, err := conn.WriteToUDP(data, endpoint.UDPAddr())
	if err != nil {
		return sockerr.TranslateNetError("send", endpoint.IP().String(), endpoint.Port(), err)
	}
	if n < len(data) {
		return sockerr.New(sockerr.Unspecified, "send", "could not get all bytes into one UDP packet", nil)
	}
	return nil
}

// ReadPacket blocks until a datagram arrives unless SetBlocking(false) was
// called, in which case it returns (0, IPEndpoint{}, nil) immediately when
// none is ready, matching the spec's "returns 0 when no data is ready"
// contract for a non-blocking UDP socket.
func (u *UdpSocket) ReadPacket(buf []byte) (int, ipendpoint.IPEndpoint, error) {
	u.mu.Lock()
	conn := u.conn
	blocking := u.blocking
	u.mu.Unlock()
	if conn == nil {
		return 0, ipendpoint.IPEndpoint{}, sockerr.New(sockerr.NotASocket, "read", "UDP socket is closed", nil)
	}

	if !blocking {
		if err := conn.SetReadDeadline(time.Now()); err != nil {
			return 0, ipendpoint.IPEndpoint{}, sockerr.New(sockerr.Unspecified, "read", "failed to set zero read deadline", err)
		}
	} else {
		_ = conn.SetReadDeadline(time.Time{})
	}

	n, addr, err := conn.ReadFromUDP(buf)
	if err != nil {
		if !blocking && sockerr.IsTimeout(err) {
			return 0, ipendpoint.IPEndpoint{}, nil
		}
		return 0, ipendpoint.IPEndpoint{}, sockerr.TranslateNetError("read", "", 0, err)
	}
	sender, _ := ipendpoint.FromAddr(addr)
	return n, sender, nil
}

// SetBlocking toggles blocking mode by way of read-deadline selection
// (zero-wait on non-blocking, no deadline on blocking) rather than
// platform-specific fcntl/ioctlsocket non-blocking flags.
func (u *UdpSocket) SetBlocking(blocking bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.blocking = blocking
}

// LocalPort returns the bound local port, mirroring getThisEndPort.
func (u *UdpSocket) LocalPort() (int, error) {
	u.mu.Lock()
	conn := u.conn
	u.mu.Unlock()
	if conn == nil {
		return 0, sockerr.New(sockerr.NotASocket, "getsockname", "UDP socket is closed", nil)
	}
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return 0, sockerr.New(sockerr.Unspecified, "getsockname", "local address was not a UDP address", nil)
	}
	return addr.Port, nil
}

// SetAddressReuse is accepted for API parity; see BindUDP's reuseAddress note.
func (u *UdpSocket) SetAddressReuse(enabled bool) error { return nil }

// Close releases the underlying UDP handle; idempotent.
func (u *UdpSocket) Close() error {
	var err error
	u.closeOnce.Do(func() {
		u.mu.Lock()
		conn := u.conn
		u.conn = nil
		u.mu.Unlock()
		if conn != nil {
			err = conn.Close()
		}
	})
	return err
}
