// Package socket implements SocketInterface and its concrete transports:
// TcpSocket, TlsSocket, WebSocketTransport, UdpSocket, and TestSocket.
//
// SocketInterface is the abstract blocking-stream capability the HTTP client
// and PacketStream are built against. It is expressed as a Go interface
// rather than a tagged union or vtable struct -- the variants are closed and
// known statically, but interface dispatch is the idiomatic Go equivalent of
// the "single-vtable abstraction" the design calls for.
package socket

import (
	"time"

	"github.com/glaretechnologies/glare-core-sub008/pkg/ipendpoint"
)

// SocketInterface is the abstract transport capability shared by TcpSocket,
// TlsSocket, WebSocketTransport, UdpSocket (partially), and TestSocket.
//
// All blocking calls are cancellable by UngracefulShutdown/Kill and only by
// them: there are no per-call timeouts here. Use Readable(timeout) first if
// a bounded wait is needed.
type SocketInterface interface {
	// ReadSome blocks until >=1 byte is available, then returns 1..len(buf)
	// bytes read. Returns (0, nil) only on graceful peer close.
	ReadSome(buf []byte) (int, error)

	// ReadExact loops ReadSome until len(buf) bytes are delivered. A
	// graceful close mid-read fails with a ConnectionClosed error.
	ReadExact(buf []byte) error

	// WriteAll blocks until all of data has been accepted by the
	// transport, chunking internally at MaxReadOrWriteSize per underlying
	// write and retrying on partial writes.
	WriteAll(data []byte) error

	// Typed integer I/O. Byte order policy is controlled by
	// SetUseNetworkByteOrder; 64-bit values are transmitted as two 32-bit
	// halves in host-struct order (see pkg/wireint) to preserve the
	// original wire-compatibility quirk.
	ReadInt32() (int32, error)
	ReadUint32() (uint32, error)
	ReadUint64() (uint64, error)
	WriteInt32(v int32) error
	WriteUint32(v uint32) error
	WriteUint64(v uint64) error

	// ReadNullTerminatedString reads bytes until a zero byte, failing with
	// SizeLimitExceeded if max bytes are consumed first.
	ReadNullTerminatedString(max int) (string, error)

	SetUseNetworkByteOrder(use bool)
	UseNetworkByteOrder() bool

	// Readable waits up to timeout for the socket to become readable.
	Readable(timeout time.Duration) (bool, error)
	// ReadableOrDone waits for the socket to become readable or for done to
	// close, whichever happens first; returns false if done fired first.
	// This is the channel-based equivalent of the original's
	// readable(EventFD&) overload.
	ReadableOrDone(done <-chan struct{}) (bool, error)

	StartGracefulShutdown() error
	WaitForGracefulDisconnect() error
	// UngracefulShutdown closes the underlying handle immediately. Safe to
	// call concurrently with a blocked ReadSome/WriteAll from another
	// goroutine; idempotent.
	UngracefulShutdown() error
	// Kill is an alias of UngracefulShutdown, matching HttpClient.Kill's
	// naming from the spec.
	Kill()

	SetNoDelay(enabled bool) error
	EnableTCPKeepAlive(period time.Duration) error
	SetAddressReuse(enabled bool) error

	OtherEndIPEndpoint() ipendpoint.IPEndpoint
}
