// Package constants defines magic numbers and default values used throughout
// the networking subsystem.
package constants

import "time"

// I/O chunking limits.
const (
	// MaxReadOrWriteSize bounds a single underlying Read/Write call so that
	// the kernel is never fed (or asked to fill) an unbounded buffer.
	MaxReadOrWriteSize = 8 * 1024 * 1024 // 8 MiB

	// BodyReadChunkSize is the chunk size used when streaming a known- or
	// unknown-length HTTP body into a sink.
	BodyReadChunkSize = 16 * 1024 // 16 KiB

	// HeaderScanExtendSize is how much the scratch buffer grows per
	// extension while scanning for CRLF/CRLFCRLF.
	HeaderScanExtendSize = 2 * 1024 // 2 KiB
)

// HTTP client defaults and limits.
const (
	DefaultMaxSocketBufferSize = 64 * 1024 // 64 KiB
	MaxRedirects               = 10
	DefaultKeepAlivePeriod     = 5 * time.Second
	DefaultHTTPPort            = 80
	DefaultHTTPSPort           = 443
)

// PacketStream limits.
const (
	MaxPacketSize = 1000000 // 1,000,000 bytes
)

// TCP listener defaults.
const (
	// ListenBacklog documents the intended backlog depth from the original
	// implementation. Go's net.ListenTCP has no portable way to set this
	// explicitly; kept as a documented constant rather than
	// silently dropped.
	ListenBacklog = 10
)

// Connection pool defaults.
const (
	DefaultMaxIdlePerHost  = 8
	DefaultMaxIdleTotal    = 64
	DefaultIdleConnTTL     = 90 * time.Second
	DefaultPoolCleanupTick = 30 * time.Second
)

// Buffer spill threshold for the disk-spilling buffer used by the response
// aggregation sink.
const (
	DefaultBufferMemLimit = 4 * 1024 * 1024   // 4 MiB
	MaxAggregateBodySize  = 100 * 1024 * 1024 // 100 MiB safety cap for the response aggregation sink
)
