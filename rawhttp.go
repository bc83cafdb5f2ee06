// Package rawhttp provides a minimal, streaming HTTP/1.1 client built on
// SocketInterface rather than net/http's connection machinery, for callers
// that need direct control over the socket, TLS, and proxy layers.
package rawhttp

import (
	"github.com/glaretechnologies/glare-core-sub008/pkg/buffer"
	"github.com/glaretechnologies/glare-core-sub008/pkg/httpclient"
	"github.com/glaretechnologies/glare-core-sub008/pkg/packetstream"
	"github.com/glaretechnologies/glare-core-sub008/pkg/sockerr"
	"github.com/glaretechnologies/glare-core-sub008/pkg/socket"
	"github.com/glaretechnologies/glare-core-sub008/pkg/timing"
)

// Version is the current version of this module.
const Version = "3.0.0"

// GetVersion returns the current version string.
func GetVersion() string { return Version }

// Re-export the package's most commonly used types so callers that only
// need the basics can depend on this one import.
type (
	// Config controls how a Client dials, pools, and times out connections.
	Config = httpclient.Config

	// Response represents a parsed HTTP response.
	Response = httpclient.Response

	// ResponseInfo carries a response's status line and headers.
	ResponseInfo = httpclient.ResponseInfo

	// BodySink is the streaming contract for receiving a response body
	// without requiring it all be resident in memory at once.
	BodySink = httpclient.BodySink

	// Buffer provides memory-efficient storage with disk spilling.
	Buffer = buffer.Buffer

	// Metrics captures detailed timing information for a request.
	Metrics = timing.Metrics

	// Timings summarizes per-phase durations for one request.
	Timings = httpclient.Timings

	// Error represents a structured error with context information.
	Error = sockerr.Error

	// PoolStats reports connection pool occupancy and lifetime counters.
	PoolStats = httpclient.Stats

	// ProxyConfig contains upstream proxy configuration.
	ProxyConfig = httpclient.ProxyConfig

	// SocketInterface is the abstract blocking-stream transport capability.
	SocketInterface = socket.SocketInterface

	// PacketStream frames length-prefixed messages over a SocketInterface.
	PacketStream = packetstream.PacketStream
)

// Re-export error type constants for convenience.
const (
	ErrorTypeDNS        = sockerr.DnsFailure
	ErrorTypeConnection = sockerr.ConnectionFailed
	ErrorTypeTLS        = sockerr.TlsError
	ErrorTypeProtocol   = sockerr.ProtocolError
	ErrorTypeTimeout    = sockerr.Interrupted
)

// Client is a streaming HTTP/1.1 client; see pkg/httpclient for the full API
// (Connect, Get, Post, ResetConnection, Kill, PoolStats).
type Client = httpclient.Client

// NewClient returns a new Client configured with cfg.
func NewClient(cfg Config) *Client {
	return httpclient.New(cfg)
}

// DefaultConfig returns a Config with every field at its documented default.
func DefaultConfig() Config {
	return httpclient.DefaultConfig()
}

// ParseProxyURL parses a proxy URL string of the form
// "scheme://[user[:pass]@]host[:port]" into a ProxyConfig.
//
// Supported schemes: http, https, socks4, socks5.
func ParseProxyURL(proxyURL string) (*ProxyConfig, error) {
	return httpclient.ParseProxyURL(proxyURL)
}

// NewBuffer creates a new disk-spilling buffer with the given memory limit.
func NewBuffer(limit int64) *Buffer {
	return buffer.New(limit)
}

// IsTimeoutError reports whether err represents a timeout.
func IsTimeoutError(err error) bool {
	return sockerr.IsTimeout(err)
}

// GetErrorType returns the structured error type if err is one, or "".
func GetErrorType(err error) string {
	return string(sockerr.GetErrorType(err))
}
