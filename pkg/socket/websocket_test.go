package socket

import (
	"net"
	"testing"
	"time"

	"github.com/glaretechnologies/glare-core-sub008/pkg/ipendpoint"
)

func TestBuildParseWSFrameRoundTripUnmasked(t *testing.T) {
	frame := buildWSFrame(opBin, []byte("payload bytes"), false)
	frames, rest, err := parseWSFrames(frame)
	if err != nil {
		t.Fatalf("parseWSFrames: %v", err)
	}
	if len(rest) != 0 {
		t.Fatalf("expected no leftover bytes, got %d", len(rest))
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if string(frames[0].payload) != "payload bytes" {
		t.Fatalf("payload = %q", frames[0].payload)
	}
	if frames[0].opcode != opBin {
		t.Fatalf("opcode = %#x, want opBin", frames[0].opcode)
	}
}

func TestBuildParseWSFrameRoundTripMasked(t *testing.T) {
	frame := buildWSFrame(opText, []byte("masked as a client frame"), true)
	frames, _, err := parseWSFrames(frame)
	if err != nil {
		t.Fatalf("parseWSFrames: %v", err)
	}
	if len(frames) != 1 || string(frames[0].payload) != "masked as a client frame" {
		t.Fatalf("unexpected frames: %+v", frames)
	}
}

func TestParseWSFramesPartialFrameIsLeftOver(t *testing.T) {
	frame := buildWSFrame(opBin, []byte("0123456789"), false)
	frames, rest, err := parseWSFrames(frame[:len(frame)-3])
	if err != nil {
		t.Fatalf("parseWSFrames: %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected no complete frames from a truncated buffer, got %d", len(frames))
	}
	if len(rest) != len(frame)-3 {
		t.Fatalf("expected the whole truncated buffer back as leftover")
	}
}

func TestParseWSFramesExtendedLength16(t *testing.T) {
	payload := make([]byte, 300)
	for i := range payload {
		payload[i] = byte(i)
	}
	frame := buildWSFrame(opBin, payload, false)
	frames, _, err := parseWSFrames(frame)
	if err != nil {
		t.Fatalf("parseWSFrames: %v", err)
	}
	if len(frames) != 1 || len(frames[0].payload) != 300 {
		t.Fatalf("unexpected frames: %+v", frames)
	}
}

func TestCloseFramePayloadRoundTrip(t *testing.T) {
	payload := buildCloseFramePayload(1001, "going away")
	code, reason := parseCloseFrame(payload)
	if code != 1001 || reason != "going away" {
		t.Fatalf("code=%d reason=%q", code, reason)
	}
}

func TestWebSocketTransportReadWriteOverPipe(t *testing.T) {
	serverConn, clientConn := net.Pipe()

	server := newWebSocketTransport(serverConn, serverConn, false, ipendpoint.IPEndpoint{})
	client := newWebSocketTransport(clientConn, clientConn, true, ipendpoint.IPEndpoint{})
	defer server.UngracefulShutdown()
	defer client.UngracefulShutdown()

	if err := client.WriteAll([]byte("hello over websocket")); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	buf := make([]byte, len("hello over websocket"))
	if err := server.ReadExact(buf); err != nil {
		t.Fatalf("ReadExact: %v", err)
	}
	if string(buf) != "hello over websocket" {
		t.Fatalf("read %q", buf)
	}
}

func TestWebSocketTransportReadableTimesOutWithoutData(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	server := newWebSocketTransport(serverConn, serverConn, false, ipendpoint.IPEndpoint{})
	defer server.UngracefulShutdown()

	ready, err := server.Readable(50 * time.Millisecond)
	if err != nil {
		t.Fatalf("Readable: %v", err)
	}
	if ready {
		t.Fatal("expected Readable to time out with no data pending")
	}
}

func TestWebSocketTransportGracefulCloseSequence(t *testing.T) {
	serverConn, clientConn := net.Pipe()

	server := newWebSocketTransport(serverConn, serverConn, false, ipendpoint.IPEndpoint{})
	client := newWebSocketTransport(clientConn, clientConn, true, ipendpoint.IPEndpoint{})
	defer client.UngracefulShutdown()

	if err := server.StartGracefulShutdown(); err != nil {
		t.Fatalf("StartGracefulShutdown: %v", err)
	}
	if err := client.WaitForGracefulDisconnect(); err != nil {
		t.Fatalf("WaitForGracefulDisconnect: %v", err)
	}
}
