// Package httpclient implements a minimal, streaming HTTP/1.1 client over
// pkg/socket's SocketInterface, grounded on pkg/client/client.go and
// pkg/transport/transport.go but reshaped to HTTPClient.cpp's exact framing:
// a bounded scratch buffer scanned for CRLFCRLF rather than a bufio.Reader,
// and a BodySink streaming contract instead of building a single []byte.
package httpclient

import (
	"crypto/tls"
	"math"
	"time"

	"github.com/glaretechnologies/glare-core-sub008/pkg/constants"
	"github.com/glaretechnologies/glare-core-sub008/pkg/socket"
)

// ProxyConfig configures an upstream proxy hop, grounded on
// pkg/transport/transport.go's ProxyConfig and pkg/client/proxy_parser.go's
// ParseProxyURL.
type ProxyConfig struct {
	Type        string // "http", "https", "socks4", "socks5"
	Host        string
	Port        int
	Username    string
	Password    string
	ConnTimeout time.Duration
	Headers     map[string]string
	TLSConfig   *tls.Config
}

// PoolConfig bounds the per-host idle connection pool, grounded on
// pkg/transport/transport.go's PoolConfig.
type PoolConfig struct {
	MaxIdlePerHost int
	MaxIdleTime    time.Duration
	CleanupTick    time.Duration
}

// DefaultPoolConfig mirrors transport.DefaultPoolConfig's sensible defaults,
// rehomed to this package's constants.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdlePerHost: constants.DefaultMaxIdlePerHost,
		MaxIdleTime:    constants.DefaultIdleConnTTL,
		CleanupTick:    constants.DefaultPoolCleanupTick,
	}
}

// Config holds the per-client settings named by SPEC_FULL.md §4.8. Unlike
// the teacher's per-call Options, most of these are fixed for a Client's
// lifetime -- matching HTTPClient.cpp, which takes its configuration at
// construction and only the target host/port/scheme per call.
type Config struct {
	// MaxDataSize bounds total accepted response body bytes across all
	// HandleData calls. Zero means "use the unlimited sentinel".
	MaxDataSize int64

	// MaxSocketBufferSize bounds the header/line scratch buffer.
	MaxSocketBufferSize int

	KeepAliveSocket  bool
	EnableTCPNoDelay bool

	UserAgent         string
	AdditionalHeaders []string // pre-formatted, no trailing CRLF

	// VerifyTLS defaults to true -- see SPEC_FULL.md §9's documented bug fix
	// versus the original's insecure-by-default TLS client.
	VerifyTLS bool
	TLSConfig *tls.Config

	Proxy *ProxyConfig
	Pool  PoolConfig

	ConnTimeout time.Duration

	// TestSocket, when non-nil, is used in place of dialing or pooling a real
	// connection: acquireSocket hands it back directly on every call. This is
	// the injection point the fuzz/property-test harness drives downloadFile
	// through (see fuzz_test.go), matching the spec's optional test_socket
	// configuration field.
	TestSocket socket.SocketInterface
}

// UnlimitedDataSize is the sentinel meaning "no MaxDataSize cap".
const UnlimitedDataSize = math.MaxInt64

// DefaultConfig returns a Config with every field at its spec-named default.
func DefaultConfig() Config {
	return Config{
		MaxDataSize:         UnlimitedDataSize,
		MaxSocketBufferSize: constants.DefaultMaxSocketBufferSize,
		KeepAliveSocket:     true,
		EnableTCPNoDelay:    true,
		VerifyTLS:           true,
		Pool:                DefaultPoolConfig(),
		ConnTimeout:         10 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	if c.MaxDataSize == 0 {
		c.MaxDataSize = UnlimitedDataSize
	}
	if c.MaxSocketBufferSize == 0 {
		c.MaxSocketBufferSize = constants.DefaultMaxSocketBufferSize
	}
	if c.Pool.MaxIdlePerHost == 0 {
		c.Pool = DefaultPoolConfig()
	}
	if c.ConnTimeout == 0 {
		c.ConnTimeout = 10 * time.Second
	}
}

// ResponseInfo carries the parsed status line and headers, passed to every
// BodySink.HandleData call so a sink can make decisions based on
// content-type, status, etc. without the client needing a richer callback
// surface.
type ResponseInfo struct {
	StatusCode int
	StatusLine string
	Headers    map[string]string
	// HeaderOrder preserves the as-received order for callers that care.
	HeaderOrder []string
}

// Header looks up a response header case-insensitively.
func (r *ResponseInfo) Header(name string) (string, bool) {
	v, ok := r.Headers[canonicalHeaderKey(name)]
	return v, ok
}

// Timings captures DNS/TCP/TLS/TTFB/Total phase durations for one request,
// grounded on pkg/timing/timing.go.
type Timings struct {
	DNS   time.Duration
	TCP   time.Duration
	TLS   time.Duration
	TTFB  time.Duration
	Total time.Duration
}

// Response is returned by Get/Post once the body has been fully streamed
// into the caller's BodySink (or the default aggregation sink).
type Response struct {
	Info    ResponseInfo
	Body    []byte // populated only when the aggregation sink was used
	Redirects int
	Timings Timings
	Reused  bool
}
