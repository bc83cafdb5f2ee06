package socket

import (
	"sync"
	"time"

	"github.com/glaretechnologies/glare-core-sub008/pkg/ipendpoint"
	"github.com/glaretechnologies/glare-core-sub008/pkg/sockerr"
)

// TestSocket is an in-memory SocketInterface backed by a FIFO queue of byte
// buffers, used to feed canned/fuzzed bytes to code that reads through a
// SocketInterface without opening a real connection. Grounded on
// TestSocket.h/TestSocket.cpp: reads advance across buffer boundaries and
// return 0 only once the FIFO is fully drained (graceful-close semantics);
// writes are captured separately rather than interpreted.
type TestSocket struct {
	mu       sync.Mutex
	buffers  [][]byte
	readIdx  int // index into buffers[0] of the next unread byte
	written  [][]byte
	closed   bool
	typed    typedIO
	noDelay  bool
	reuse    bool
	keepAlive time.Duration
	remote   ipendpoint.IPEndpoint
}

var _ SocketInterface = (*TestSocket)(nil)

// NewTestSocket creates an empty TestSocket. Use EnqueueReadData to supply
// bytes that will be handed out by ReadSome/ReadExact.
func NewTestSocket() *TestSocket {
	s := &TestSocket{}
	s.typed = typedIO{
		exactReader:      s.ReadExact,
		allWriter:        s.WriteAll,
		networkByteOrder: true,
	}
	return s
}

// EnqueueReadData appends a buffer to the read FIFO. Buffers are consumed
// (and advanced past) in the order enqueued, exactly like TestSocket::test()
// feeding multiple chunks that a single ReadExact call must stitch together.
func (s *TestSocket) EnqueueReadData(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.buffers = append(s.buffers, cp)
}

// WrittenData returns the concatenation of everything written so far, for
// test assertions.
func (s *TestSocket) WrittenData() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int
	for _, b := range s.written {
		total += len(b)
	}
	out := make([]byte, 0, total)
	for _, b := range s.written {
		out = append(out, b...)
	}
	return out
}

// ReadSome returns bytes from the front of the FIFO, advancing past
// exhausted buffers; returns (0, nil) once the FIFO is empty, matching the
// original's graceful-close-on-empty-FIFO behavior.
func (s *TestSocket) ReadSome(buf []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.buffers) > 0 && s.readIdx >= len(s.buffers[0]) {
		s.buffers = s.buffers[1:]
		s.readIdx = 0
	}
	if len(s.buffers) == 0 {
		return 0, nil
	}

	n := copy(buf, s.buffers[0][s.readIdx:])
	s.readIdx += n
	return n, nil
}

// ReadExact loops ReadSome across buffer boundaries, failing with
// ConnectionClosed if the FIFO empties before len(buf) bytes have been
// delivered -- matching TestSocket::readTo's "Connection Closed." exception.
func (s *TestSocket) ReadExact(buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := s.ReadSome(buf[total:])
		if err != nil {
			return err
		}
		if n == 0 {
			return sockerr.New(sockerr.ConnectionClosed, "read_exact", "connection closed", nil)
		}
		total += n
	}
	return nil
}

// WriteAll captures data into the write log rather than interpreting it.
// Typed writes (WriteInt32/WriteUint32/WriteUint64, below) funnel through
// this too, via typedIO.
func (s *TestSocket) WriteAll(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.written = append(s.written, cp)
	return nil
}

func (s *TestSocket) ReadInt32() (int32, error)   { return s.typed.readInt32() }
func (s *TestSocket) ReadUint32() (uint32, error) { return s.typed.readUint32() }
func (s *TestSocket) ReadUint64() (uint64, error) { return s.typed.readUint64() }

// WriteInt32/WriteUint32/WriteUint64 encode through the same typedIO helper
// every other transport uses, appending the encoded bytes to the write log
// via WriteAll. This makes TestSocket a faithful enough peer that
// readInt32(writeInt32(x)) round-trips the same way across a TestSocket as
// across a real TcpSocket loopback (see typedio_roundtrip_test.go) -- the
// property spec.md names explicitly for the fuzz/property-test surface.
func (s *TestSocket) WriteInt32(v int32) error    { return s.typed.writeInt32(v) }
func (s *TestSocket) WriteUint32(v uint32) error  { return s.typed.writeUint32(v) }
func (s *TestSocket) WriteUint64(v uint64) error  { return s.typed.writeUint64(v) }

func (s *TestSocket) ReadNullTerminatedString(max int) (string, error) {
	return s.typed.readNullTerminatedString(max)
}

func (s *TestSocket) SetUseNetworkByteOrder(use bool) { s.typed.networkByteOrder = use }
func (s *TestSocket) UseNetworkByteOrder() bool       { return s.typed.networkByteOrder }

// Readable reports whether unread bytes remain, ignoring timeout -- a
// TestSocket never genuinely blocks.
func (s *TestSocket) Readable(timeout time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.buffers) > 0 && s.readIdx >= len(s.buffers[0]) {
		s.buffers = s.buffers[1:]
		s.readIdx = 0
	}
	return len(s.buffers) > 0, nil
}

func (s *TestSocket) ReadableOrDone(done <-chan struct{}) (bool, error) {
	select {
	case <-done:
		return false, nil
	default:
		return s.Readable(0)
	}
}

func (s *TestSocket) StartGracefulShutdown() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *TestSocket) WaitForGracefulDisconnect() error { return nil }

func (s *TestSocket) UngracefulShutdown() error {
	s.mu.Lock()
	s.closed = true
	s.buffers = nil
	s.mu.Unlock()
	return nil
}

func (s *TestSocket) Kill() { s.UngracefulShutdown() }

func (s *TestSocket) SetNoDelay(enabled bool) error {
	s.noDelay = enabled
	return nil
}

func (s *TestSocket) EnableTCPKeepAlive(period time.Duration) error {
	s.keepAlive = period
	return nil
}

func (s *TestSocket) SetAddressReuse(enabled bool) error {
	s.reuse = enabled
	return nil
}

func (s *TestSocket) OtherEndIPEndpoint() ipendpoint.IPEndpoint {
	return s.remote
}
