package socket

import (
	"encoding/binary"

	"github.com/glaretechnologies/glare-core-sub008/pkg/sockerr"
	"github.com/glaretechnologies/glare-core-sub008/pkg/wireint"
)

// typedIO implements the typed-integer and string helpers of
// SocketInterface purely in terms of ReadExact/WriteAll/byte-order policy,
// so every transport (Tcp, Tls, WebSocket, Test) shares one implementation
// instead of repeating the bit-twiddling.
type typedIO struct {
	exactReader func(buf []byte) error
	allWriter   func(data []byte) error
	networkByteOrder bool
}

func (t *typedIO) readInt32() (int32, error) {
	u, err := t.readUint32()
	return int32(u), err
}

func (t *typedIO) readUint32() (uint32, error) {
	var buf [4]byte
	if err := t.exactReader(buf[:]); err != nil {
		return 0, err
	}
	if t.networkByteOrder {
		return binary.BigEndian.Uint32(buf[:]), nil
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// readUint64 reproduces the "two 32-bit halves in host-struct order" quirk:
// the value is carried as two independently byte-order-converted uint32
// halves, low half first, matching MySocket::readUInt64 on a little-endian
// host.
func (t *typedIO) readUint64() (uint64, error) {
	low, err := t.readUint32()
	if err != nil {
		return 0, err
	}
	high, err := t.readUint32()
	if err != nil {
		return 0, err
	}
	return wireint.JoinUint64(low, high), nil
}

func (t *typedIO) writeInt32(v int32) error {
	return t.writeUint32(uint32(v))
}

func (t *typedIO) writeUint32(v uint32) error {
	var buf [4]byte
	if t.networkByteOrder {
		binary.BigEndian.PutUint32(buf[:], v)
	} else {
		binary.LittleEndian.PutUint32(buf[:], v)
	}
	return t.allWriter(buf[:])
}

func (t *typedIO) writeUint64(v uint64) error {
	low, high := wireint.SplitUint64(v)
	if err := t.writeUint32(low); err != nil {
		return err
	}
	return t.writeUint32(high)
}

func (t *typedIO) readNullTerminatedString(max int) (string, error) {
	buf := make([]byte, 0, 64)
	var b [1]byte
	for {
		if len(buf) >= max {
			return "", sockerr.NewSizeLimitExceeded("read_string", "null-terminated string exceeded max length")
		}
		if err := t.exactReader(b[:]); err != nil {
			return "", err
		}
		if b[0] == 0 {
			return string(buf), nil
		}
		buf = append(buf, b[0])
	}
}
