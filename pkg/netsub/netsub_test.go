package netsub

import (
	"context"
	"testing"

	"github.com/glaretechnologies/glare-core-sub008/pkg/ipendpoint"
)

func TestInitShutdownLifecycle(t *testing.T) {
	if IsInitialized() {
		t.Fatal("subsystem should start uninitialized")
	}
	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !IsInitialized() {
		t.Fatal("expected IsInitialized() true after Init")
	}
	if err := Init(); err == nil {
		t.Fatal("double-init should return an error")
	}
	if err := Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if IsInitialized() {
		t.Fatal("expected IsInitialized() false after Shutdown")
	}
	if err := Shutdown(); err == nil {
		t.Fatal("shutdown without init should return an error")
	}
}

func TestResolveLocalhost(t *testing.T) {
	eps, err := Resolve(context.Background(), "localhost")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(eps) == 0 {
		t.Fatal("expected at least one address for localhost")
	}
	for _, ep := range eps {
		if ep.Port() != ipendpoint.UnspecifiedPort {
			t.Fatalf("Resolve should return unspecified ports, got %d", ep.Port())
		}
	}
}

func TestResolveUnknownHost(t *testing.T) {
	_, err := Resolve(context.Background(), "this-host-definitely-does-not-exist.invalid")
	if err == nil {
		t.Fatal("expected an error resolving a nonexistent hostname")
	}
}

func TestHostName(t *testing.T) {
	name, err := HostName()
	if err != nil {
		t.Fatalf("HostName: %v", err)
	}
	if name == "" {
		t.Fatal("expected a non-empty host name")
	}
}
