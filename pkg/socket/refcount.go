package socket

import "sync/atomic"

// RefCountedSocket wraps any SocketInterface with an atomic reference count,
// so that a concurrent "killer" goroutine can hold a reference to a socket
// while the owning goroutine is blocked inside a read or write. This is the
// Go equivalent of the original's atomically-refcounted shared-ownership
// socket wrapper (see spec §3/§9); weak references are not needed.
//
// UngracefulShutdown/Kill bypass the refcount entirely: they close the
// underlying socket immediately regardless of outstanding Acquire() calls,
// since the whole point of the killer path is to terminate I/O irrespective
// of who else holds a reference.
type RefCountedSocket struct {
	SocketInterface
	refs int32
}

// NewRefCountedSocket wraps s with an initial reference count of 1.
func NewRefCountedSocket(s SocketInterface) *RefCountedSocket {
	return &RefCountedSocket{SocketInterface: s, refs: 1}
}

// Acquire increments the reference count and returns the same wrapper, so
// callers can hold onto a reference independent of the owner's lifecycle.
func (r *RefCountedSocket) Acquire() *RefCountedSocket {
	atomic.AddInt32(&r.refs, 1)
	return r
}

// Release decrements the reference count; once it reaches zero the
// underlying socket is closed via UngracefulShutdown. Calling Release more
// times than Acquire (plus the initial reference) is a programmer error.
func (r *RefCountedSocket) Release() error {
	if atomic.AddInt32(&r.refs, -1) == 0 {
		return r.SocketInterface.UngracefulShutdown()
	}
	return nil
}

// RefCount returns the current reference count, for tests/diagnostics.
func (r *RefCountedSocket) RefCount() int32 {
	return atomic.LoadInt32(&r.refs)
}
