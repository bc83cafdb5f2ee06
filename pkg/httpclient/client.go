package httpclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/glaretechnologies/glare-core-sub008/pkg/constants"
	"github.com/glaretechnologies/glare-core-sub008/pkg/sockerr"
	"github.com/glaretechnologies/glare-core-sub008/pkg/socket"
	"github.com/glaretechnologies/glare-core-sub008/pkg/timing"
	"github.com/glaretechnologies/glare-core-sub008/pkg/tlsconfig"
)

// Client is a streaming HTTP/1.1 client over SocketInterface, grounded on
// pkg/client/client.go's Client but carrying its own connection (rather than
// taking one per call) the way HTTPClient.cpp does: Connect caches the
// scheme/host/port triple and every subsequent Get/Post reuses or redials it.
type Client struct {
	cfg  Config
	pool *connPool

	mu         sync.Mutex
	sock       socket.SocketInterface
	scheme     string
	host       string
	port       int
	poolKey    string
}

// New creates a Client with cfg, applying any zero-valued fields' defaults.
func New(cfg Config) *Client {
	cfg.applyDefaults()
	return &Client{cfg: cfg, pool: newConnPool(cfg.Pool)}
}

// Close stops the connection pool's background sweep and closes every
// pooled and currently-held connection.
func (c *Client) Close() error {
	c.mu.Lock()
	sock := c.sock
	c.sock = nil
	c.mu.Unlock()
	if sock != nil {
		sock.UngracefulShutdown()
	}
	c.pool.close()
	return nil
}

// Kill forces any in-flight blocking call on the client's current socket to
// return with an error, callable from any goroutine at any time.
func (c *Client) Kill() {
	c.mu.Lock()
	sock := c.sock
	c.mu.Unlock()
	if sock != nil {
		sock.Kill()
	}
}

// ResetConnection drops the current socket (closing it outright, never
// returning it to the pool) so the next call dials fresh. Callers must do
// this after any failed request before retrying, per SPEC_FULL.md §7.
func (c *Client) ResetConnection() {
	c.mu.Lock()
	sock := c.sock
	c.sock = nil
	c.mu.Unlock()
	if sock != nil {
		sock.UngracefulShutdown()
	}
}

// PoolStats reports the connection pool's current occupancy and lifetime
// counters.
func (c *Client) PoolStats() Stats { return c.pool.stats() }

// Connect caches the target triple; the actual dial happens lazily on the
// first Get/Post, matching HTTPClient::connect's deferred-dial semantics.
func (c *Client) Connect(scheme, host string, port int) error {
	scheme = strings.ToLower(scheme)
	if scheme != "http" && scheme != "https" {
		return sockerr.New(sockerr.InvalidScheme, "connect", "scheme must be http or https", nil)
	}
	if port == 0 {
		port = defaultPort(scheme)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sock != nil && (c.scheme != scheme || c.host != host || c.port != port) {
		c.returnOrCloseLocked()
	}
	c.scheme, c.host, c.port = scheme, host, port
	c.poolKey = poolKeyFor(c.cfg.Proxy, scheme, host, port)
	return nil
}

func defaultPort(scheme string) int {
	if scheme == "https" {
		return constants.DefaultHTTPSPort
	}
	return constants.DefaultHTTPPort
}

func poolKeyFor(proxy *ProxyConfig, scheme, host string, port int) string {
	if proxy != nil {
		return fmt.Sprintf("%s:%s:%d->%s:%s:%d", proxy.Type, proxy.Host, proxy.Port, scheme, host, port)
	}
	return fmt.Sprintf("%s:%s:%d", scheme, host, port)
}

// returnOrCloseLocked disposes of c.sock under c.mu: back to the pool if
// keep-alive is enabled, closed outright otherwise.
func (c *Client) returnOrCloseLocked() {
	if c.sock == nil {
		return
	}
	if c.cfg.KeepAliveSocket {
		c.pool.release(c.poolKey, c.sock)
	} else {
		c.sock.UngracefulShutdown()
	}
	c.sock = nil
}

// Get issues a GET to rawURL, following up to 10 redirects, streaming the
// response body into sink (or the client's aggregation sink if sink is nil).
func (c *Client) Get(ctx context.Context, rawURL string, sink BodySink) (*Response, error) {
	return c.downloadFile(ctx, "GET", rawURL, nil, "", sink, 0)
}

// Post issues a POST of body (with the given content type) to rawURL.
// Redirects on POST are a protocol error, matching the spec.
func (c *Client) Post(ctx context.Context, rawURL string, contentType string, body []byte, sink BodySink) (*Response, error) {
	return c.downloadFile(ctx, "POST", rawURL, body, contentType, sink, 0)
}

func (c *Client) downloadFile(ctx context.Context, method, rawURL string, body []byte, contentType string, sink BodySink, redirectCount int) (*Response, error) {
	if redirectCount > constants.MaxRedirects {
		return nil, sockerr.New(sockerr.TooManyRedirects, "download", "exceeded maximum redirect hops", nil)
	}

	u, err := parseRequestURL(rawURL)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(u.Scheme, u.Hostname(), portOf(u)); err != nil {
		return nil, err
	}

	timer := timing.NewTimer()
	sock, reused, err := c.acquireSocket(ctx, timer)
	if err != nil {
		return nil, err
	}

	reqBytes := buildRequest(method, u, c.host, contentType, len(body), c.cfg.UserAgent, c.cfg.AdditionalHeaders, c.cfg.KeepAliveSocket)

	if err := sock.WriteAll(reqBytes); err != nil {
		c.ResetConnection()
		return nil, err
	}
	if len(body) > 0 {
		if err := sock.WriteAll(body); err != nil {
			c.ResetConnection()
			return nil, err
		}
	}

	timer.StartTTFB()
	scratch := newScratchBuffer(sock, c.cfg.MaxSocketBufferSize)
	headerBlock, err := scratch.readUntilCRLFCRLF()
	timer.EndTTFB()
	if err != nil {
		c.ResetConnection()
		return nil, err
	}

	info, err := parseHeaderBlock(headerBlock)
	if err != nil {
		c.ResetConnection()
		return nil, err
	}

	if method == "GET" && (info.StatusCode == 301 || info.StatusCode == 302) {
		loc, ok := info.Header("Location")
		if ok && loc != "" {
			// The redirect target reuses this connection only if it targets
			// the same triple; downloadFile's recursive Connect call handles
			// either case uniformly.
			c.keepSocketForReuse(sock)
			return c.downloadFile(ctx, method, resolveLocation(u, loc), nil, "", sink, redirectCount+1)
		}
	}
	if method == "POST" && (info.StatusCode == 301 || info.StatusCode == 302) {
		c.ResetConnection()
		return nil, sockerr.NewProtocolError("download", "redirect on POST not supported")
	}

	ownedSink := sink
	var agg *aggregationSink
	if ownedSink == nil {
		agg = newAggregationSink(c.cfg.MaxDataSize)
		ownedSink = agg
	}

	closeDelimited := !c.cfg.KeepAliveSocket || headerSaysClose(&info)
	bodyErr := readBody(scratch, &info, ownedSink, c.cfg.MaxDataSize, closeDelimited)

	if agg != nil {
		defer agg.close()
	}

	if bodyErr != nil || closeDelimited {
		c.ResetConnection()
	} else {
		c.keepSocketForReuse(sock)
	}
	_ = reused

	if bodyErr != nil {
		return nil, bodyErr
	}

	resp := &Response{
		Info:      info,
		Redirects: redirectCount,
		Reused:    reused,
		Timings:   toTimings(timer.GetMetrics()),
	}
	if agg != nil {
		b, err := agg.bytes()
		if err != nil {
			return nil, err
		}
		resp.Body = b
	}
	return resp, nil
}

func headerSaysClose(info *ResponseInfo) bool {
	if v, ok := info.Header("Connection"); ok {
		return strings.EqualFold(strings.TrimSpace(v), "close")
	}
	return false
}

// keepSocketForReuse stashes sock back onto the client so the next call on
// the same triple can use it directly without round-tripping the pool.
func (c *Client) keepSocketForReuse(sock socket.SocketInterface) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sock != nil && c.sock != sock {
		c.returnOrCloseLocked()
	}
	c.sock = sock
}

// acquireSocket returns the client's already-open socket if one is cached,
// otherwise pops one from the pool, otherwise dials fresh (directly or via
// proxy), wrapping in TLS when the scheme is https. When cfg.TestSocket is
// set, it is returned unconditionally and no dial or pool lookup happens at
// all -- this is the fuzz/property-test injection point named by
// SPEC_FULL.md §4.8/§4.9.
func (c *Client) acquireSocket(ctx context.Context, timer *timing.Timer) (socket.SocketInterface, bool, error) {
	if c.cfg.TestSocket != nil {
		return c.cfg.TestSocket, true, nil
	}

	c.mu.Lock()
	if c.sock != nil {
		sock := c.sock
		c.sock = nil
		c.mu.Unlock()
		return sock, true, nil
	}
	scheme, host, port, poolKey := c.scheme, c.host, c.port, c.poolKey
	c.mu.Unlock()

	if c.cfg.KeepAliveSocket {
		if sock := c.pool.acquire(poolKey); sock != nil {
			return sock, true, nil
		}
	}

	sock, err := c.dial(ctx, scheme, host, port, timer)
	if err != nil {
		return nil, false, err
	}
	c.pool.noteCreated()
	return sock, false, nil
}

func (c *Client) dial(ctx context.Context, scheme, host string, port int, timer *timing.Timer) (socket.SocketInterface, error) {
	timer.StartTCP()
	var plain socket.SocketInterface
	var err error
	if c.cfg.Proxy != nil {
		plain, err = dialViaProxy(ctx, c.cfg.Proxy, host, port, c.cfg.ConnTimeout)
	} else {
		plain, err = socket.DialTCP(ctx, host, port)
	}
	timer.EndTCP()
	if err != nil {
		return nil, err
	}

	if c.cfg.EnableTCPNoDelay {
		plain.SetNoDelay(true)
	}
	if c.cfg.KeepAliveSocket {
		plain.EnableTCPKeepAlive(constants.DefaultKeepAlivePeriod)
	}

	if scheme != "https" {
		return plain, nil
	}

	timer.StartTLS()
	defer timer.EndTLS()

	tlsCfg := c.cfg.TLSConfig
	if tlsCfg == nil {
		tlsCfg = tlsconfig.DefaultClientConfig(host)
	}
	if !c.cfg.VerifyTLS {
		tlsCfg = tlsCfg.Clone()
		tlsCfg.InsecureSkipVerify = true
	}

	switch p := plain.(type) {
	case *socket.TcpSocket:
		return socket.NewTlsClientSocket(ctx, p, host, tlsCfg)
	case *socket.GenericSocket:
		return socket.NewTlsClientSocket(ctx, p, host, tlsCfg)
	default:
		return nil, sockerr.New(sockerr.Unspecified, "dial", "unsupported underlying socket type for TLS upgrade", nil)
	}
}

func portOf(u *url.URL) int {
	if p := u.Port(); p != "" {
		var port int
		fmt.Sscanf(p, "%d", &port)
		return port
	}
	return 0
}

func parseRequestURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, sockerr.NewProtocolError("parse_url", "invalid URL: "+err.Error())
	}
	// url.Parse lowercases the scheme, so the raw text is checked as well to
	// keep the match case-sensitive.
	if (u.Scheme != "http" && u.Scheme != "https") || !strings.HasPrefix(raw, u.Scheme+":") {
		return nil, sockerr.New(sockerr.InvalidScheme, "parse_url", "scheme must be http or https", nil)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

func resolveLocation(base *url.URL, location string) string {
	ref, err := url.Parse(location)
	if err != nil {
		return location
	}
	return base.ResolveReference(ref).String()
}

func toTimings(m timing.Metrics) Timings {
	return Timings{
		DNS:   m.DNSLookup,
		TCP:   m.TCPConnect,
		TLS:   m.TLSHandshake,
		TTFB:  m.TTFB,
		Total: m.TotalTime,
	}
}
