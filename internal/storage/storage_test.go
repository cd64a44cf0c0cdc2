package storage

import (
	"context"
	"errors"
	"testing"
)

func TestStoresLifecycleWithoutDriver(t *testing.T) {
	var nilStores *Stores
	if err := nilStores.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() on nil stores error = %v", err)
	}
	if err := nilStores.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() on nil stores error = %v", err)
	}

	empty := &Stores{Driver: DriverPostgres}
	if err := empty.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestStoresDelegates(t *testing.T) {
	var stopped, reset bool
	failure := errors.New("boom")

	s := &Stores{
		stop: func(context.Context) error {
			stopped = true
			return nil
		},
		reset: func(context.Context) error {
			reset = true
			return failure
		},
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := s.Reset(context.Background()); !errors.Is(err, failure) {
		t.Fatalf("Reset() error = %v, want %v", err, failure)
	}
	if !stopped || !reset {
		t.Errorf("stopped = %v, reset = %v; want both true", stopped, reset)
	}
}
