package sockerr

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	e := NewConnectionFailed("example.com", 443, errors.New("refused"))
	got := e.Error()
	want := "[connection_failed] connect example.com:443: failed to connect to example.com:443: refused"
	if got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestErrorIsMatchesByType(t *testing.T) {
	a := NewDNSFailure("host", nil)
	b := New(DnsFailure, "other_op", "other message", nil)
	if !errors.Is(a, b) {
		t.Fatal("errors with the same Type should match via Is")
	}

	c := NewProtocolError("op", "msg")
	if errors.Is(a, c) {
		t.Fatal("errors with different Types should not match via Is")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	e := NewTlsError("handshake", "host", 443, cause)
	if !errors.Is(e, cause) {
		t.Fatal("Unwrap should expose the cause to errors.Is")
	}
}

func TestGetErrorType(t *testing.T) {
	e := NewSizeLimitExceeded("op", "too big")
	if GetErrorType(e) != SizeLimitExceeded {
		t.Fatalf("GetErrorType = %q", GetErrorType(e))
	}
	if GetErrorType(errors.New("plain")) != "" {
		t.Fatal("GetErrorType on a non-structured error should return empty")
	}
}

func TestIsContextCanceled(t *testing.T) {
	wrapped := New(Unspecified, "op", "msg", context.Canceled)
	if !IsContextCanceled(wrapped) {
		t.Fatal("expected IsContextCanceled to unwrap to context.Canceled")
	}
}

func TestTranslateNetErrorEOF(t *testing.T) {
	got := TranslateNetError("read", "host", 80, io.EOF)
	if GetErrorType(got) != ConnectionClosed {
		t.Fatalf("TranslateNetError(io.EOF) type = %q, want connection_closed", GetErrorType(got))
	}
}

func TestTranslateNetErrorClosed(t *testing.T) {
	got := TranslateNetError("read", "host", 80, net.ErrClosed)
	if GetErrorType(got) != NotASocket {
		t.Fatalf("TranslateNetError(net.ErrClosed) type = %q, want not_a_socket", GetErrorType(got))
	}
}

func TestTranslateNetErrorNil(t *testing.T) {
	if TranslateNetError("read", "host", 80, nil) != nil {
		t.Fatal("TranslateNetError(nil) should return nil")
	}
}
