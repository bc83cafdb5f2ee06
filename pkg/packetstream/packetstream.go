// Package packetstream implements length-prefixed framing on top of a
// socket.SocketInterface, grounded on packetstream.cpp but reshaped from its
// original non-blocking, poll-driven state machine (recving_packetsize) onto
// a direct blocking read since SocketInterface is blocking end-to-end.
package packetstream

import (
	"github.com/glaretechnologies/glare-core-sub008/pkg/constants"
	"github.com/glaretechnologies/glare-core-sub008/pkg/sockerr"
	"github.com/glaretechnologies/glare-core-sub008/pkg/socket"
)

// PacketStream writes and reads discrete, length-prefixed packets over a
// SocketInterface: a 32-bit big-endian byte count followed by that many
// bytes.
type PacketStream struct {
	conn socket.SocketInterface
}

// New wraps conn. conn's byte-order policy is forced to network byte order,
// matching the wire format every packetstream.cpp peer expects.
func New(conn socket.SocketInterface) *PacketStream {
	conn.SetUseNetworkByteOrder(true)
	return &PacketStream{conn: conn}
}

// WritePacket writes payload's length followed by payload itself, matching
// PacketStream::writePacket's two-write sequence (size then data).
func (p *PacketStream) WritePacket(payload []byte) error {
	if len(payload) > constants.MaxPacketSize {
		return sockerr.NewSizeLimitExceeded("write_packet", "packet size exceeds MaxPacketSize")
	}
	if err := p.conn.WriteUint32(uint32(len(payload))); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	return p.conn.WriteAll(payload)
}

// ReadPacket blocks until a full packet is available, reading the
// length prefix then the declared number of bytes. A declared length of 0,
// a negative value (when read as an int32), or one exceeding MaxPacketSize
// is rejected before any payload allocation, matching
// PacketStream::pollReadPacket's "packetsize <= 0" / "packetsize >
// MAX_PACKETSIZE" checks.
func (p *PacketStream) ReadPacket() ([]byte, error) {
	size, err := p.conn.ReadInt32()
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, sockerr.NewProtocolError("read_packet", "incoming packet size <= 0")
	}
	if int(size) > constants.MaxPacketSize {
		return nil, sockerr.NewProtocolError("read_packet", "incoming packet size exceeds MaxPacketSize")
	}

	payload := make([]byte, size)
	if err := p.conn.ReadExact(payload); err != nil {
		return nil, err
	}
	return payload, nil
}
