package main

import "testing"

func TestReloadVardiffConfigAppliesToNewConnections(t *testing.T) {
	pool := NewPoolState()
	mgr := NewSessionManager(pool, nil, NewPoolMetrics(), []byte("seed"), defaultVardiffConfig())

	updated := defaultVardiffConfig()
	updated.InitialDiff = 42
	mgr.ReloadVardiffConfig(updated)

	got := mgr.currentVardiffConfig()
	if got.InitialDiff != 42 {
		t.Fatalf("expected reloaded initial diff 42, got %v", got.InitialDiff)
	}
}

func TestMinerCountReflectsRegistry(t *testing.T) {
	pool := NewPoolState()
	mgr := NewSessionManager(pool, nil, NewPoolMetrics(), []byte("seed"), defaultVardiffConfig())
	if mgr.MinerCount() != 0 {
		t.Fatalf("expected zero miners on a fresh manager")
	}
}
