package extension

import (
	"context"
	"testing"

	"github.com/xraph/gatekeeper/store/memory"
)

func TestNewStoreDrivers(t *testing.T) {
	s, err := NewStore(DriverMemory, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", s)
	}

	if _, err := NewStore("cassandra", nil); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestExtensionDefaults(t *testing.T) {
	e := New(WithDriver(DriverMemory), WithDisableRoutes())
	if e.Name() != ExtensionName {
		t.Fatalf("unexpected name %q", e.Name())
	}
	if e.config.BasePath != "/gatekeeper" {
		t.Fatalf("expected default base path, got %q", e.config.BasePath)
	}
	if !e.config.DisableRoutes || e.config.Driver != DriverMemory {
		t.Fatalf("options not applied: %+v", e.config)
	}
	if err := e.Health(context.Background()); err == nil {
		t.Fatal("health must fail before Register")
	}
	if err := e.Stop(context.Background()); err != nil {
		t.Fatalf("stop before Register: %v", err)
	}
}

func TestExtensionWithStore(t *testing.T) {
	s := memory.New()
	e := New(WithStore(s))
	if e.Store() != s {
		t.Fatal("WithStore must set the store")
	}
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := e.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

func TestProvidesOnlyOwnedStore(t *testing.T) {
	if New().providesStore() {
		t.Fatal("nothing to provide before a store is resolved")
	}
	if !New(WithStore(memory.New())).providesStore() {
		t.Fatal("a store passed with WithStore must be provided")
	}

	e := New()
	e.store = memory.New()
	e.injected = true
	if e.providesStore() {
		t.Fatal("a store taken from the container must not be provided again")
	}
}
