package httpclient

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/glaretechnologies/glare-core-sub008/pkg/socket"
)

// pooledConn wraps an idle socket with its last-used timestamp, grounded on
// pkg/transport/transport.go's pooledConnection.
type pooledConn struct {
	sock     socket.SocketInterface
	lastUsed time.Time
}

// hostPool is a per-host-key LIFO idle connection list, grounded on
// pkg/transport/transport.go's hostPool.
type hostPool struct {
	mu   sync.Mutex
	idle []*pooledConn
}

// connPool manages per-host idle connection pools plus a background sweep
// of stale entries, grounded on pkg/transport/transport.go's Transport pool
// machinery but trimmed of the wait-for-slot semantics the spec doesn't ask
// for (no MaxConnsPerHost cap is named in SPEC_FULL.md, only idle caps).
type connPool struct {
	cfg   PoolConfig
	pools sync.Map // map[string]*hostPool

	reused  uint64
	created uint64

	stop chan struct{}
	wg   sync.WaitGroup
}

func newConnPool(cfg PoolConfig) *connPool {
	p := &connPool{cfg: cfg, stop: make(chan struct{})}
	p.wg.Add(1)
	go p.sweepLoop()
	return p
}

func (p *connPool) getPool(key string) *hostPool {
	val, _ := p.pools.LoadOrStore(key, &hostPool{})
	return val.(*hostPool)
}

// acquire pops the most-recently-released live connection for key, if any.
func (p *connPool) acquire(key string) socket.SocketInterface {
	hp := p.getPool(key)
	hp.mu.Lock()
	defer hp.mu.Unlock()

	for len(hp.idle) > 0 {
		n := len(hp.idle)
		pc := hp.idle[n-1]
		hp.idle = hp.idle[:n-1]

		if time.Since(pc.lastUsed) > p.cfg.MaxIdleTime {
			pc.sock.UngracefulShutdown()
			continue
		}
		if !isSocketAlive(pc.sock) {
			pc.sock.UngracefulShutdown()
			continue
		}
		atomic.AddUint64(&p.reused, 1)
		return pc.sock
	}
	return nil
}

// release returns sock to key's idle list, closing it outright if the pool
// is already at capacity.
func (p *connPool) release(key string, sock socket.SocketInterface) {
	hp := p.getPool(key)
	hp.mu.Lock()
	defer hp.mu.Unlock()

	max := p.cfg.MaxIdlePerHost
	if max <= 0 {
		max = 1
	}
	if len(hp.idle) >= max {
		sock.UngracefulShutdown()
		return
	}
	hp.idle = append(hp.idle, &pooledConn{sock: sock, lastUsed: time.Now()})
}

func (p *connPool) noteCreated() { atomic.AddUint64(&p.created, 1) }

// Stats reports pool occupancy and lifetime counters, grounded on
// pkg/transport/transport.go's PoolStats/HostPoolStats.
type Stats struct {
	Idle    int
	Reused  uint64
	Created uint64
}

func (p *connPool) stats() Stats {
	s := Stats{Reused: atomic.LoadUint64(&p.reused), Created: atomic.LoadUint64(&p.created)}
	p.pools.Range(func(_, v interface{}) bool {
		hp := v.(*hostPool)
		hp.mu.Lock()
		s.Idle += len(hp.idle)
		hp.mu.Unlock()
		return true
	})
	return s
}

func (p *connPool) sweepLoop() {
	defer p.wg.Done()
	tick := p.cfg.CleanupTick
	if tick <= 0 {
		tick = 30 * time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.sweepOnce()
		}
	}
}

func (p *connPool) sweepOnce() {
	p.pools.Range(func(_, v interface{}) bool {
		hp := v.(*hostPool)
		hp.mu.Lock()
		live := hp.idle[:0]
		for _, pc := range hp.idle {
			if time.Since(pc.lastUsed) > p.cfg.MaxIdleTime {
				pc.sock.UngracefulShutdown()
				continue
			}
			live = append(live, pc)
		}
		hp.idle = live
		hp.mu.Unlock()
		return true
	})
}

// close stops the sweep goroutine and closes every pooled connection.
func (p *connPool) close() {
	close(p.stop)
	p.wg.Wait()
	p.pools.Range(func(_, v interface{}) bool {
		hp := v.(*hostPool)
		hp.mu.Lock()
		for _, pc := range hp.idle {
			pc.sock.UngracefulShutdown()
		}
		hp.idle = nil
		hp.mu.Unlock()
		return true
	})
}

// isSocketAlive probes for a pending readable event with a near-zero
// timeout: a pooled keep-alive connection should time out (nothing to
// read), while one the peer already closed will report readable-with-EOF.
// Grounded on pkg/transport/transport.go's isConnectionAlive, adapted to
// SocketInterface's Readable instead of a raw net.Conn read.
func isSocketAlive(sock socket.SocketInterface) bool {
	readable, err := sock.Readable(time.Millisecond)
	if err != nil {
		return false
	}
	// Readable with nothing actually consumed yet is ambiguous between
	// "peer sent unexpected data" and "peer closed"; conservatively treat
	// both as dead so the caller redials rather than risks reading stale
	// bytes into the next request's header scan.
	return !readable
}
