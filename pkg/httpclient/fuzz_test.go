package httpclient

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/glaretechnologies/glare-core-sub008/pkg/sockerr"
	"github.com/glaretechnologies/glare-core-sub008/pkg/socket"
)

// buildFuzzTestSocket turns raw fuzzer bytes into a socket.TestSocket,
// splitting on '!' as a buffer-boundary marker (so the fuzzer can explore
// every possible partitioning of the same byte stream across ReadSome calls)
// and truncating at the first '|' as an end-of-input marker, exactly as
// spec.md's fuzz-surface section describes.
func buildFuzzTestSocket(data []byte) *socket.TestSocket {
	if i := bytes.IndexByte(data, '|'); i >= 0 {
		data = data[:i]
	}
	ts := socket.NewTestSocket()
	for _, chunk := range bytes.Split(data, []byte{'!'}) {
		ts.EnqueueReadData(chunk)
	}
	return ts
}

// FuzzDownloadFile drives Client.Get end-to-end against a TestSocket fed
// arbitrary bytes in place of a real server's response. The property under
// test is the one spec.md names: every state transition triggered by invalid
// bytes must surface as a *sockerr.Error (ProtocolError, ConnectionClosed,
// SizeLimitExceeded, ...), never a panic, out-of-bounds read, or unbounded
// allocation.
func FuzzDownloadFile(f *testing.F) {
	f.Add([]byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"))
	f.Add([]byte("HTTP/1.1 200 OK\r\n!Content-Length: 5\r\n\r\n!hello"))
	f.Add([]byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n"))
	f.Add([]byte("HTTP/1.1 301 Moved\r\nLocation: /elsewhere\r\n\r\n"))
	f.Add([]byte("not even a status line\r\n\r\n"))
	f.Add([]byte(""))
	f.Add([]byte("HTTP/1.1 200 OK\r\n\r\n|trailing garbage past the end-of-input marker"))

	f.Fuzz(func(t *testing.T, data []byte) {
		cfg := DefaultConfig()
		cfg.TestSocket = buildFuzzTestSocket(data)
		cfg.MaxSocketBufferSize = 8192
		cfg.MaxDataSize = 1 << 20

		c := New(cfg)
		defer c.Close()

		_, err := c.Get(context.Background(), "http://fuzz.invalid/", nil)
		if err == nil {
			return
		}
		var structured *sockerr.Error
		if !errors.As(err, &structured) {
			t.Fatalf("downloadFile surfaced an unstructured error for input %q: %v", data, err)
		}
	})
}
