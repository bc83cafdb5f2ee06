// Package wireint implements the fixed-width integer wire encodings used by
// SocketInterface's typed I/O, including the 64-bit "two 32-bit halves in
// host-struct order" compatibility quirk inherited from the original
// MySocket::writeUInt64/readUInt64 implementation.
//
// That original split a uint64 by memcpy-ing it into two native uint32
// halves (i.e. in the machine's struct layout order, not a semantic
// high/low split) and wrote each half through writeUInt32, which itself
// applies the socket's network-byte-order policy independently per half.
// The net effect on a little-endian host (every platform this port targets)
// is: low 32 bits first, high 32 bits second, each individually byte-order
// converted. This is NOT the same as a single 64-bit big-endian value, and
// must be reproduced exactly for wire compatibility.
package wireint

// SplitUint64 returns the (low, high) 32-bit halves of x in the order they
// were transmitted by the original implementation on a little-endian host.
func SplitUint64(x uint64) (low, high uint32) {
	low = uint32(x & 0xFFFFFFFF)
	high = uint32(x >> 32)
	return low, high
}

// JoinUint64 reassembles a uint64 from the (low, high) halves produced by
// SplitUint64.
func JoinUint64(low, high uint32) uint64 {
	return uint64(low) | (uint64(high) << 32)
}
