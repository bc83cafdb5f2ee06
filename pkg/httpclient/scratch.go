package httpclient

import (
	"bytes"

	"github.com/glaretechnologies/glare-core-sub008/pkg/constants"
	"github.com/glaretechnologies/glare-core-sub008/pkg/sockerr"
	"github.com/glaretechnologies/glare-core-sub008/pkg/socket"
)

// scratchBuffer accumulates bytes read off a socket, bounded by maxSize,
// grounded on HTTPClient.cpp's readUntilCRLFCRLF/readUntilCRLF: a single
// growable buffer scanned with a cursor that only rescans the trailing few
// bytes of the previous fill rather than restarting from the top each time.
type scratchBuffer struct {
	conn    socket.SocketInterface
	data    []byte
	scanned int // index from which the next terminator search should start
	maxSize int
}

func newScratchBuffer(conn socket.SocketInterface, maxSize int) *scratchBuffer {
	return &scratchBuffer{conn: conn, data: make([]byte, 0, 4096), maxSize: maxSize}
}

// fill reads one more chunk from the socket and appends it, never asking for
// more than the room left under maxSize and failing with ProtocolError once
// the buffer is full (a checked addition rather than an unchecked append
// that could overflow).
func (b *scratchBuffer) fill() error {
	if len(b.data) >= b.maxSize {
		return sockerr.NewProtocolError("read_headers", "scratch buffer exceeded MaxSocketBufferSize")
	}
	room := b.maxSize - len(b.data)
	if room > constants.BodyReadChunkSize {
		room = constants.BodyReadChunkSize
	}
	chunk := make([]byte, room)
	n, err := b.conn.ReadSome(chunk)
	if err != nil {
		return err
	}
	if n == 0 {
		return sockerr.New(sockerr.ConnectionClosed, "read_headers", "connection closed while reading headers", nil)
	}
	if len(b.data)+n > b.maxSize {
		return sockerr.NewProtocolError("read_headers", "scratch buffer would exceed MaxSocketBufferSize")
	}
	b.data = append(b.data, chunk[:n]...)
	return nil
}

// readUntilCRLFCRLF grows the buffer until a blank-line header terminator
// appears, returning the header bytes (without the terminator). Any bytes
// read past the terminator during the last fill are left in the buffer as
// already-available body bytes.
func (b *scratchBuffer) readUntilCRLFCRLF() ([]byte, error) {
	for {
		if idx := bytes.Index(b.data[b.scanned:], []byte("\r\n\r\n")); idx >= 0 {
			end := b.scanned + idx
			header := append([]byte(nil), b.data[:end]...)
			b.data = b.data[end+4:]
			b.scanned = 0
			return header, nil
		}
		if len(b.data) >= 3 {
			b.scanned = len(b.data) - 3
		} else {
			b.scanned = 0
		}
		if err := b.fill(); err != nil {
			return nil, err
		}
	}
}

// readUntilCRLF reads a single CRLF-terminated line, used for chunk-size
// lines and trailer lines.
func (b *scratchBuffer) readUntilCRLF() ([]byte, error) {
	for {
		if idx := bytes.Index(b.data[b.scanned:], []byte("\r\n")); idx >= 0 {
			end := b.scanned + idx
			line := append([]byte(nil), b.data[:end]...)
			b.data = b.data[end+2:]
			b.scanned = 0
			return line, nil
		}
		if len(b.data) >= 1 {
			b.scanned = len(b.data) - 1
		} else {
			b.scanned = 0
		}
		if err := b.fill(); err != nil {
			return nil, err
		}
	}
}

// ensureLen fills until the buffer holds at least n bytes, failing fast
// (before any further reads) if n itself exceeds maxSize.
func (b *scratchBuffer) ensureLen(n int) error {
	if n > b.maxSize {
		return sockerr.NewProtocolError("read_body", "requested scratch span exceeds MaxSocketBufferSize")
	}
	for len(b.data) < n {
		if err := b.fill(); err != nil {
			return err
		}
	}
	return nil
}

// take consumes and returns the first n bytes; callers must ensureLen(n) first.
func (b *scratchBuffer) take(n int) []byte {
	out := append([]byte(nil), b.data[:n]...)
	b.data = b.data[n:]
	b.scanned = 0
	return out
}

// takeAll drains and returns whatever is currently buffered (body bytes read
// incidentally while scanning for the header terminator).
func (b *scratchBuffer) takeAll() []byte {
	out := b.data
	b.data = nil
	b.scanned = 0
	return out
}
