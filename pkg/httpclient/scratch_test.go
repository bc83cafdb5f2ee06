package httpclient

import (
	"testing"

	"github.com/glaretechnologies/glare-core-sub008/pkg/socket"
)

func TestScratchBufferReadUntilCRLFCRLF(t *testing.T) {
	sock := socket.NewTestSocket()
	sock.EnqueueReadData([]byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"))

	b := newScratchBuffer(sock, 4096)
	header, err := b.readUntilCRLFCRLF()
	if err != nil {
		t.Fatalf("readUntilCRLFCRLF: %v", err)
	}
	want := "HTTP/1.1 200 OK\r\nContent-Length: 5"
	if string(header) != want {
		t.Fatalf("header = %q, want %q", header, want)
	}

	leftover := b.takeAll()
	if string(leftover) != "hello" {
		t.Fatalf("leftover body bytes = %q, want %q", leftover, "hello")
	}
}

func TestScratchBufferReadUntilCRLFCRLFAcrossFills(t *testing.T) {
	sock := socket.NewTestSocket()
	// Feed the terminator split across two separate reads so the
	// non-rescanning cursor must carry state between fill() calls.
	sock.EnqueueReadData([]byte("HTTP/1.1 200 OK\r\n\r"))
	sock.EnqueueReadData([]byte("\nbody"))

	b := newScratchBuffer(sock, 4096)
	header, err := b.readUntilCRLFCRLF()
	if err != nil {
		t.Fatalf("readUntilCRLFCRLF: %v", err)
	}
	if string(header) != "HTTP/1.1 200 OK" {
		t.Fatalf("header = %q", header)
	}
	if string(b.takeAll()) != "body" {
		t.Fatalf("leftover = %q", b.takeAll())
	}
}

func TestScratchBufferMaxSizeExceeded(t *testing.T) {
	sock := socket.NewTestSocket()
	sock.EnqueueReadData(make([]byte, 100))

	b := newScratchBuffer(sock, 10)
	if _, err := b.readUntilCRLFCRLF(); err == nil {
		t.Fatal("expected size limit error, got nil")
	}
}

func TestScratchBufferReadUntilCRLF(t *testing.T) {
	sock := socket.NewTestSocket()
	sock.EnqueueReadData([]byte("5\r\nhello\r\n0\r\n\r\n"))

	b := newScratchBuffer(sock, 4096)
	line, err := b.readUntilCRLF()
	if err != nil {
		t.Fatalf("readUntilCRLF: %v", err)
	}
	if string(line) != "5" {
		t.Fatalf("line = %q", line)
	}
}

func TestScratchBufferEnsureLenAndTake(t *testing.T) {
	sock := socket.NewTestSocket()
	sock.EnqueueReadData([]byte("hello world"))

	b := newScratchBuffer(sock, 4096)
	if err := b.ensureLen(5); err != nil {
		t.Fatalf("ensureLen: %v", err)
	}
	if got := string(b.take(5)); got != "hello" {
		t.Fatalf("take(5) = %q", got)
	}
}
