// Package buffer provides memory-efficient data storage with disk spilling.
package buffer

import (
	"bytes"
	"io"
	"os"
	"sync"

	"github.com/glaretechnologies/glare-core-sub008/pkg/constants"
	"github.com/glaretechnologies/glare-core-sub008/pkg/sockerr"
)

// Buffer stores data either in memory or spooled to a temporary file once
// the in-memory portion crosses spillThreshold. It backs aggregationSink's
// accumulation of a response body (pkg/httpclient/body.go); the HTTP header
// scratch buffer is a plain byte slice and does not use it. Its spill
// threshold and hard ceiling are drawn from the same constants that bound
// that caller rather than a private, duplicated literal: constants.
// DefaultBufferMemLimit is the aggregation spill point, and
// constants.MaxAggregateBodySize is the whole subsystem's one aggregate-body
// safety cap (spec.md's MaxDataSize ceiling) -- a spillThreshold past that
// cap would let a single caller configure a Buffer that never spills for a
// body the rest of the client has already agreed is too large to hold in
// memory, so it is clamped here rather than trusted.
type Buffer struct {
	buf            bytes.Buffer
	file           *os.File
	path           string
	size           int64
	spillThreshold int64
	mu             sync.Mutex // Protects Close() and other operations
	closed         bool       // Track if already closed
}

// New creates a new Buffer that spills to disk once its in-memory portion
// exceeds spillThreshold. A non-positive or oversized spillThreshold is
// clamped to the subsystem's documented defaults rather than honored
// verbatim.
func New(spillThreshold int64) *Buffer {
	return &Buffer{spillThreshold: clampSpillThreshold(spillThreshold)}
}

// NewWithData creates a new buffer with existing data, preloaded in memory
// and spilling on any subsequent Write past the default threshold.
func NewWithData(data []byte) *Buffer {
	b := &Buffer{
		spillThreshold: constants.DefaultBufferMemLimit,
		size:           int64(len(data)),
	}
	b.buf.Write(data)
	return b
}

func clampSpillThreshold(spillThreshold int64) int64 {
	if spillThreshold <= 0 {
		return constants.DefaultBufferMemLimit
	}
	if spillThreshold > constants.MaxAggregateBodySize {
		return constants.MaxAggregateBodySize
	}
	return spillThreshold
}

// Write stores the provided bytes, spilling to disk once above the configured
// memory threshold.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Check if closed
	if b.closed {
		return 0, sockerr.New(sockerr.Unspecified, "buffer", "buffer is closed", nil)
	}

	b.size += int64(len(p))

	// If still under limit and no file yet, write to memory
	if b.file == nil && int64(b.buf.Len()+len(p)) <= b.spillThreshold {
		return b.buf.Write(p)
	}

	// Need to spill to disk
	if b.file == nil {
		tmp, err := os.CreateTemp("", "glarenet-buffer-*.tmp")
		if err != nil {
			return 0, sockerr.New(sockerr.Unspecified, "buffer", "creating temp file", err)
		}

		// Store file reference immediately to ensure cleanup if Close() is called
		b.file = tmp
		b.path = tmp.Name()

		// Write existing buffer content to file
		if b.buf.Len() > 0 {
			if _, err := tmp.Write(b.buf.Bytes()); err != nil {
				// Close will clean up the file
				b.Close()
				return 0, sockerr.New(sockerr.Unspecified, "buffer", "writing to temp file", err)
			}
		}

		b.buf.Reset()
	}

	// Write new data to file
	n, err := b.file.Write(p)
	if err != nil {
		return n, sockerr.New(sockerr.Unspecified, "buffer", "writing to temp file", err)
	}
	return n, nil
}

// Bytes returns the in-memory data. If the payload spilled to disk this will be
// empty.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.file != nil {
		return nil
	}
	return b.buf.Bytes()
}

// Path returns the filesystem path backing the spilled payload.
func (b *Buffer) Path() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.path
}

// Size returns the total number of bytes written.
func (b *Buffer) Size() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// IsSpilled returns true if the buffer has spilled to disk.
func (b *Buffer) IsSpilled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file != nil
}

// Reader provides a fresh reader for the stored data.
func (b *Buffer) Reader() (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, sockerr.New(sockerr.Unspecified, "buffer", "buffer is closed", nil)
	}

	if b.file != nil {
		// Sync file to ensure all data is written
		if err := b.file.Sync(); err != nil {
			return nil, sockerr.New(sockerr.Unspecified, "buffer", "syncing temp file", err)
		}

		// Open a new reader
		f, err := os.Open(b.path)
		if err != nil {
			return nil, sockerr.New(sockerr.Unspecified, "buffer", "opening temp file for reading", err)
		}
		return f, nil
	}

	// Return in-memory data
	return io.NopCloser(bytes.NewReader(b.buf.Bytes())), nil
}

// Close flushes and closes the underlying file, if any, and removes the temp file.
// Safe for concurrent calls and idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Already closed, make it idempotent
	if b.closed {
		return nil
	}

	b.closed = true

	if b.file != nil {
		err := b.file.Close()
		// Always try to remove the temp file
		if removeErr := os.Remove(b.path); removeErr != nil && err == nil {
			err = sockerr.New(sockerr.Unspecified, "buffer", "removing temp file", removeErr)
		}
		b.file = nil
		b.path = ""
		if err != nil {
			return sockerr.New(sockerr.Unspecified, "buffer", "closing temp file", err)
		}
	}
	return nil
}

// Reset clears the buffer and prepares it for reuse.
func (b *Buffer) Reset() error {
	if err := b.Close(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf.Reset()
	b.size = 0
	b.closed = false // Allow reuse after reset
	return nil
}
