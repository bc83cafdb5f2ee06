package httpclient

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/glaretechnologies/glare-core-sub008/pkg/ipendpoint"
	"github.com/glaretechnologies/glare-core-sub008/pkg/sockerr"
	"github.com/glaretechnologies/glare-core-sub008/pkg/socket"
	netproxy "golang.org/x/net/proxy"
)

// ParseProxyURL parses a proxy URL of the form
// "scheme://[user[:pass]@]host[:port]" into a ProxyConfig, grounded on
// pkg/client/proxy_parser.go's ParseProxyURL.
func ParseProxyURL(raw string) (*ProxyConfig, error) {
	if raw == "" {
		return nil, sockerr.NewProtocolError("parse_proxy_url", "proxy URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, sockerr.NewProtocolError("parse_proxy_url", "invalid proxy URL: "+err.Error())
	}
	switch u.Scheme {
	case "http", "https", "socks4", "socks5":
	case "":
		return nil, sockerr.NewProtocolError("parse_proxy_url", "proxy URL must include a scheme")
	default:
		return nil, sockerr.NewProtocolError("parse_proxy_url", "unsupported proxy scheme: "+u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, sockerr.NewProtocolError("parse_proxy_url", "proxy URL must include a host")
	}
	port := defaultProxyPort(u.Scheme)
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return nil, sockerr.NewProtocolError("parse_proxy_url", "invalid proxy port")
		}
		port = n
	}
	var username, password string
	if u.User != nil {
		username = u.User.Username()
		password, _ = u.User.Password()
	}
	return &ProxyConfig{Type: u.Scheme, Host: host, Port: port, Username: username, Password: password}, nil
}

func defaultProxyPort(scheme string) int {
	switch scheme {
	case "http":
		return 8080
	case "https":
		return 443
	default:
		return 1080
	}
}

// dialViaProxy establishes a tunnel to target through proxy, returning a
// SocketInterface ready to speak directly to target (the proxy hop itself
// is fully consumed by the handshake).
func dialViaProxy(ctx context.Context, proxy *ProxyConfig, targetHost string, targetPort int, timeout time.Duration) (socket.SocketInterface, error) {
	proxyAddr := net.JoinHostPort(proxy.Host, strconv.Itoa(proxy.Port))
	targetAddr := net.JoinHostPort(targetHost, strconv.Itoa(targetPort))

	switch proxy.Type {
	case "http", "https":
		return dialViaHTTPProxy(ctx, proxy, proxyAddr, targetAddr, targetHost, timeout)
	case "socks4":
		return dialViaSOCKS4(ctx, proxy, proxyAddr, targetHost, targetPort, timeout)
	case "socks5":
		return dialViaSOCKS5(ctx, proxy, proxyAddr, targetAddr, timeout)
	default:
		return nil, sockerr.NewProtocolError("proxy_connect", "unsupported proxy type: "+proxy.Type)
	}
}

// dialViaHTTPProxy tunnels through an HTTP/HTTPS CONNECT proxy, grounded on
// pkg/transport/transport.go's connectViaHTTPProxy.
func dialViaHTTPProxy(ctx context.Context, proxy *ProxyConfig, proxyAddr, targetAddr, targetHost string, timeout time.Duration) (socket.SocketInterface, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", proxyAddr)
	if err != nil {
		return nil, sockerr.New(sockerr.ConnectionFailed, "proxy_connect", "failed to reach proxy "+proxyAddr, err)
	}

	if proxy.Type == "https" {
		tlsConfig := proxy.TLSConfig
		if tlsConfig == nil {
			tlsConfig = &tls.Config{ServerName: proxy.Host}
		} else {
			tlsConfig = tlsConfig.Clone()
			if tlsConfig.ServerName == "" {
				tlsConfig.ServerName = proxy.Host
			}
		}
		tlsConn := tls.Client(conn, tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, sockerr.NewTlsError("proxy_handshake", proxy.Host, proxy.Port, err)
		}
		conn = tlsConn
	}

	req := fmt.Sprintf("CONNECT %s HTTP/1.1\r\nHost: %s\r\n", targetAddr, targetHost)
	for k, v := range proxy.Headers {
		req += fmt.Sprintf("%s: %s\r\n", k, v)
	}
	if proxy.Username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(proxy.Username + ":" + proxy.Password))
		req += "Proxy-Authorization: Basic " + auth + "\r\n"
	}
	req += "\r\n"

	if _, err := conn.Write([]byte(req)); err != nil {
		conn.Close()
		return nil, sockerr.New(sockerr.Unspecified, "proxy_connect", "failed to send CONNECT request", err)
	}

	br := bufio.NewReader(conn)
	statusLine, err := br.ReadString('\n')
	if err != nil {
		conn.Close()
		return nil, sockerr.New(sockerr.Unspecified, "proxy_connect", "failed to read CONNECT response", err)
	}
	if !strings.Contains(statusLine, " 200") {
		conn.Close()
		return nil, sockerr.NewProtocolError("proxy_connect", "CONNECT rejected: "+strings.TrimSpace(statusLine))
	}
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			conn.Close()
			return nil, sockerr.New(sockerr.Unspecified, "proxy_connect", "failed to read CONNECT response headers", err)
		}
		if line == "\r\n" || line == "\n" {
			break
		}
	}

	// Any bytes the bufio.Reader already pulled past the CONNECT response
	// headers belong to the tunnel's first bytes; drain them back in front
	// of the raw conn the same way DialWebSocket does for its handshake.
	var leftover []byte
	if n := br.Buffered(); n > 0 {
		leftover = make([]byte, n)
		io.ReadFull(br, leftover)
	}
	remote, _ := ipendpoint.FromAddr(conn.RemoteAddr())
	if len(leftover) == 0 {
		return socket.WrapConn(conn, remote), nil
	}
	return socket.WrapConn(&prefixedConn{Conn: conn, prefix: leftover}, remote), nil
}

// prefixedConn replays prefix before reading further from the wrapped conn,
// used to return buffered-but-unconsumed bytes to a fresh SocketInterface.
type prefixedConn struct {
	net.Conn
	prefix []byte
}

func (c *prefixedConn) Read(p []byte) (int, error) {
	if len(c.prefix) > 0 {
		n := copy(p, c.prefix)
		c.prefix = c.prefix[n:]
		return n, nil
	}
	return c.Conn.Read(p)
}

// dialViaSOCKS4 hand-rolls the legacy SOCKS4 handshake (RFC 1928's
// predecessor; no ecosystem library in the example pack implements it),
// grounded on pkg/transport/transport.go's connectViaSOCKS4Proxy.
func dialViaSOCKS4(ctx context.Context, proxy *ProxyConfig, proxyAddr, targetHost string, targetPort int, timeout time.Duration) (socket.SocketInterface, error) {
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", targetHost)
	if err != nil || len(ips) == 0 {
		return nil, sockerr.NewDNSFailure(targetHost, err)
	}
	targetIP := ips[0].To4()
	if targetIP == nil {
		return nil, sockerr.NewProtocolError("proxy_connect", "SOCKS4 requires an IPv4 target address")
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", proxyAddr)
	if err != nil {
		return nil, sockerr.New(sockerr.ConnectionFailed, "proxy_connect", "failed to reach SOCKS4 proxy", err)
	}

	req := []byte{0x04, 0x01, byte(targetPort >> 8), byte(targetPort & 0xFF)}
	req = append(req, targetIP...)
	if proxy.Username != "" {
		req = append(req, []byte(proxy.Username)...)
	}
	req = append(req, 0x00)

	if _, err := conn.Write(req); err != nil {
		conn.Close()
		return nil, sockerr.New(sockerr.Unspecified, "proxy_connect", "failed to send SOCKS4 request", err)
	}

	resp := make([]byte, 8)
	if _, err := io.ReadFull(conn, resp); err != nil {
		conn.Close()
		return nil, sockerr.New(sockerr.Unspecified, "proxy_connect", "failed to read SOCKS4 response", err)
	}
	if resp[1] != 0x5A {
		conn.Close()
		return nil, sockerr.NewProtocolError("proxy_connect", fmt.Sprintf("SOCKS4 request failed, status 0x%02X", resp[1]))
	}

	remote, _ := ipendpoint.FromAddr(conn.RemoteAddr())
	return socket.WrapConn(conn, remote), nil
}

// dialViaSOCKS5 uses golang.org/x/net/proxy's SOCKS5 implementation, the
// same ecosystem library pkg/transport/transport.go reaches for.
func dialViaSOCKS5(ctx context.Context, proxy *ProxyConfig, proxyAddr, targetAddr string, timeout time.Duration) (socket.SocketInterface, error) {
	var auth *netproxy.Auth
	if proxy.Username != "" {
		auth = &netproxy.Auth{User: proxy.Username, Password: proxy.Password}
	}
	dialer, err := netproxy.SOCKS5("tcp", proxyAddr, auth, &net.Dialer{Timeout: timeout})
	if err != nil {
		return nil, sockerr.New(sockerr.Unspecified, "proxy_connect", "failed to build SOCKS5 dialer", err)
	}
	conn, err := dialer.Dial("tcp", targetAddr)
	if err != nil {
		return nil, sockerr.New(sockerr.ConnectionFailed, "proxy_connect", "SOCKS5 connection failed", err)
	}
	remote, _ := ipendpoint.FromAddr(conn.RemoteAddr())
	return socket.WrapConn(conn, remote), nil
}
