// Package netsub implements the process-wide networking subsystem: init and
// shutdown bracketing and DNS resolution, grounded on the original
// Networking::init/shutdown/doDNSLookup (Networking.cpp) and reshaped onto
// net.Resolver since Go's net package needs no WinSock-style bring-up.
package netsub

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/glaretechnologies/glare-core-sub008/pkg/ipendpoint"
	"github.com/glaretechnologies/glare-core-sub008/pkg/sockerr"
)

// initialized tracks process-wide init state. Init and Shutdown serialize on
// initMu; IsInitialized reads the flag without locking (mirroring the
// original's unguarded `initialised` boolean).
var initialized bool

var initMu sync.Mutex // guards only the Init/Shutdown calls themselves, not reads of `initialized`

// Init brings up the networking subsystem. Double-init is a contract
// violation: it returns an error rather than silently succeeding, matching
// the original's documented "init() is idempotent only in the sense that
// double-init is a contract violation" behavior.
func Init() error {
	initMu.Lock()
	defer initMu.Unlock()
	if initialized {
		return sockerr.New(sockerr.Unspecified, "init", "networking subsystem already initialized", nil)
	}
	// Go's net package performs no process-wide bring-up equivalent to
	// WSAStartup; sockets are created lazily and torn down per-handle. This
	// flag exists only so the init/shutdown contract shape matches the
	// original across platforms.
	initialized = true
	return nil
}

// Shutdown tears down the networking subsystem.
func Shutdown() error {
	initMu.Lock()
	defer initMu.Unlock()
	if !initialized {
		return sockerr.New(sockerr.Unspecified, "shutdown", "networking subsystem not initialized", nil)
	}
	initialized = false
	return nil
}

// IsInitialized reports the current init state.
func IsInitialized() bool {
	return initialized
}

// Resolve performs a DNS lookup for hostname and returns a non-empty ordered
// slice of IPEndpoint values with an unspecified port (see ipendpoint.UnspecifiedPort).
// Address ordering follows whatever net.Resolver returns, which already
// prefers addresses usable on the calling host the way AI_ADDRCONFIG would.
func Resolve(ctx context.Context, hostname string) ([]ipendpoint.IPEndpoint, error) {
	var resolver net.Resolver
	addrs, err := resolver.LookupIPAddr(ctx, hostname)
	if err != nil {
		return nil, sockerr.NewDNSFailure(hostname, err)
	}
	if len(addrs) == 0 {
		return nil, sockerr.NewDNSFailure(hostname, fmt.Errorf("no addresses returned"))
	}

	out := make([]ipendpoint.IPEndpoint, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, ipendpoint.New(a.IP, ipendpoint.UnspecifiedPort))
	}
	return out, nil
}

// HostName returns the local host's name, mirroring Networking::getHostName.
func HostName() (string, error) {
	name, err := os.Hostname()
	if err != nil {
		return "", sockerr.New(sockerr.Unspecified, "gethostname", "failed to get host name", err)
	}
	return name, nil
}
