package socket

import "testing"

func TestTestSocketReadAcrossEnqueuedBuffers(t *testing.T) {
	s := NewTestSocket()
	s.EnqueueReadData([]byte("abc"))
	s.EnqueueReadData([]byte("def"))

	buf := make([]byte, 6)
	if err := s.ReadExact(buf); err != nil {
		t.Fatalf("ReadExact: %v", err)
	}
	if string(buf) != "abcdef" {
		t.Fatalf("read %q, want abcdef", buf)
	}
}

func TestTestSocketReadExactFailsWhenFIFOEmpties(t *testing.T) {
	s := NewTestSocket()
	s.EnqueueReadData([]byte("ab"))

	buf := make([]byte, 4)
	if err := s.ReadExact(buf); err == nil {
		t.Fatal("expected ReadExact to fail once the FIFO is drained short")
	}
}

func TestTestSocketWriteAllCapturesBytes(t *testing.T) {
	s := NewTestSocket()
	if err := s.WriteAll([]byte("first ")); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if err := s.WriteAll([]byte("second")); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if string(s.WrittenData()) != "first second" {
		t.Fatalf("WrittenData() = %q", s.WrittenData())
	}
}

func TestTestSocketTypedWritesAppendToWrittenData(t *testing.T) {
	s := NewTestSocket()
	if err := s.WriteInt32(0x0102); err != nil {
		t.Fatalf("WriteInt32: %v", err)
	}
	if got := s.WrittenData(); len(got) != 4 {
		t.Fatalf("WrittenData() length = %d, want 4", len(got))
	}
}

// TestTestSocketWriteInt32ReadInt32RoundTrip feeds a WriteInt32's encoded
// bytes back in as read data on the same TestSocket, matching the
// writeInt32/readInt32 round-trip property exercised against a TcpSocket
// loopback in typedio_roundtrip_test.go.
func TestTestSocketWriteInt32ReadInt32RoundTrip(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 1 << 30, -(1 << 30), 2147483647, -2147483648} {
		s := NewTestSocket()
		if err := s.WriteInt32(v); err != nil {
			t.Fatalf("WriteInt32(%d): %v", v, err)
		}
		s.EnqueueReadData(s.WrittenData())
		got, err := s.ReadInt32()
		if err != nil {
			t.Fatalf("ReadInt32: %v", err)
		}
		if got != v {
			t.Fatalf("round trip of %d produced %d", v, got)
		}
	}
}

func TestTestSocketWriteInt32ReadInt32RoundTripHostByteOrder(t *testing.T) {
	s := NewTestSocket()
	s.SetUseNetworkByteOrder(false)
	const v int32 = -12345
	if err := s.WriteInt32(v); err != nil {
		t.Fatalf("WriteInt32: %v", err)
	}
	s.EnqueueReadData(s.WrittenData())
	got, err := s.ReadInt32()
	if err != nil {
		t.Fatalf("ReadInt32: %v", err)
	}
	if got != v {
		t.Fatalf("round trip of %d produced %d", v, got)
	}
}

func TestTestSocketReadableReflectsFIFOState(t *testing.T) {
	s := NewTestSocket()
	if ready, _ := s.Readable(0); ready {
		t.Fatal("empty TestSocket should not be readable")
	}
	s.EnqueueReadData([]byte("x"))
	if ready, _ := s.Readable(0); !ready {
		t.Fatal("TestSocket with queued data should be readable")
	}
	buf := make([]byte, 1)
	s.ReadExact(buf)
	if ready, _ := s.Readable(0); ready {
		t.Fatal("TestSocket should not be readable once drained")
	}
}

func TestTestSocketTypedReadUint32NetworkByteOrder(t *testing.T) {
	s := NewTestSocket()
	s.EnqueueReadData([]byte{0x00, 0x00, 0x01, 0x02})
	v, err := s.ReadUint32()
	if err != nil {
		t.Fatalf("ReadUint32: %v", err)
	}
	if v != 0x0102 {
		t.Fatalf("ReadUint32() = %#x, want 0x102", v)
	}
}
