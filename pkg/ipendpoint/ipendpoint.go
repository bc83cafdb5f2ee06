// Package ipendpoint provides an immutable IP address + port value type used
// throughout the networking subsystem, replacing the original IPAddress /
// sockaddr_* conversion helpers with Go's net.IP and net.Addr.
package ipendpoint

import (
	"fmt"
	"net"
	"strconv"
)

// UnspecifiedPort is the sentinel port used in configuration paths before a
// port has been assigned. It must never reach Dial/Listen; TCPAddr and
// UDPAddr panic if asked to render it.
const UnspecifiedPort = -1

// IPEndpoint is an immutable (IP address, port) pair. The zero value is the
// unspecified endpoint (no IP, UnspecifiedPort).
type IPEndpoint struct {
	ip   net.IP
	port int
}

// New builds an IPEndpoint from a net.IP and a port.
func New(ip net.IP, port int) IPEndpoint {
	return IPEndpoint{ip: ip, port: port}
}

// Unspecified returns the zero-value sentinel endpoint.
func Unspecified() IPEndpoint {
	return IPEndpoint{port: UnspecifiedPort}
}

// Parse parses a textual IP address (no port) and pairs it with port.
func Parse(addr string, port int) (IPEndpoint, error) {
	ip := net.ParseIP(addr)
	if ip == nil {
		return IPEndpoint{}, fmt.Errorf("ipendpoint: %q is not a valid IP address", addr)
	}
	return IPEndpoint{ip: ip, port: port}, nil
}

// ParseHostPort parses a "host:port" string.
func ParseHostPort(hostport string) (IPEndpoint, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return IPEndpoint{}, fmt.Errorf("ipendpoint: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return IPEndpoint{}, fmt.Errorf("ipendpoint: invalid port %q: %w", portStr, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return IPEndpoint{}, fmt.Errorf("ipendpoint: %q is not a valid IP address", host)
	}
	return IPEndpoint{ip: ip, port: port}, nil
}

// FromAddr extracts an IPEndpoint from a net.Addr (TCPAddr or UDPAddr).
func FromAddr(addr net.Addr) (IPEndpoint, bool) {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return IPEndpoint{ip: a.IP, port: a.Port}, true
	case *net.UDPAddr:
		return IPEndpoint{ip: a.IP, port: a.Port}, true
	default:
		return IPEndpoint{}, false
	}
}

// IP returns the address's net.IP.
func (e IPEndpoint) IP() net.IP { return e.ip }

// Port returns the port, or UnspecifiedPort if none was assigned.
func (e IPEndpoint) Port() int { return e.port }

// IsV4 reports whether the endpoint holds an IPv4 address.
func (e IPEndpoint) IsV4() bool { return e.ip != nil && e.ip.To4() != nil }

// IsV6 reports whether the endpoint holds an IPv6 address that isn't also representable as IPv4.
func (e IPEndpoint) IsV6() bool { return e.ip != nil && e.ip.To4() == nil && e.ip.To16() != nil }

// IsValid reports whether the endpoint carries a real IP address.
func (e IPEndpoint) IsValid() bool { return e.ip != nil }

// WithPort returns a copy of the endpoint with a different port.
func (e IPEndpoint) WithPort(port int) IPEndpoint {
	return IPEndpoint{ip: e.ip, port: port}
}

// String renders "ip:port", or just the IP if the port is unspecified.
func (e IPEndpoint) String() string {
	if e.ip == nil {
		return "<unspecified>"
	}
	if e.port == UnspecifiedPort {
		return e.ip.String()
	}
	return net.JoinHostPort(e.ip.String(), strconv.Itoa(e.port))
}

// TCPAddr renders the endpoint as a *net.TCPAddr. Panics if the port is the
// unspecified sentinel -- this is a programmer error, not a runtime one: a
// sentinel port must never reach the OS networking layer.
func (e IPEndpoint) TCPAddr() *net.TCPAddr {
	if e.port == UnspecifiedPort {
		panic("ipendpoint: refusing to render sentinel port for a TCPAddr")
	}
	return &net.TCPAddr{IP: e.ip, Port: e.port}
}

// UDPAddr renders the endpoint as a *net.UDPAddr. Panics on a sentinel port,
// for the same reason as TCPAddr.
func (e IPEndpoint) UDPAddr() *net.UDPAddr {
	if e.port == UnspecifiedPort {
		panic("ipendpoint: refusing to render sentinel port for a UDPAddr")
	}
	return &net.UDPAddr{IP: e.ip, Port: e.port}
}
