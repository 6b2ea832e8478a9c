package main

import "testing"

func TestBuildHealthSnapshotPoolModeNotReadyWithoutUpstream(t *testing.T) {
	pool := NewPoolState()
	mgr := NewSessionManager(pool, nil, NewPoolMetrics(), []byte("seed"), defaultVardiffConfig())

	h := mgr.BuildHealthSnapshot()
	if h.OK {
		t.Fatalf("expected pool mode to report unhealthy with no upstream client")
	}
	if h.Miners != 0 {
		t.Fatalf("expected zero miners on a fresh manager, got %d", h.Miners)
	}
}

func TestBuildHealthSnapshotSoloModeNoTemplateYet(t *testing.T) {
	tmpl := NewTemplateState()
	mgr := NewSoloSessionManager(tmpl, nil, nil, NewPoolMetrics(), []byte("seed"), defaultVardiffConfig())

	h := mgr.BuildHealthSnapshot()
	if h.OK {
		t.Fatalf("expected solo mode to report unhealthy before any template is fetched")
	}
	if h.HasTemplate {
		t.Fatalf("expected hasTemplate=false before the first poll")
	}
}

func TestBuildStatsSnapshotEmptyRegistry(t *testing.T) {
	pool := NewPoolState()
	mgr := NewSessionManager(pool, nil, NewPoolMetrics(), []byte("seed"), defaultVardiffConfig())

	snap := mgr.BuildStatsSnapshot()
	if snap.MinerCount != 0 || len(snap.Miners) != 0 {
		t.Fatalf("expected no miners in a fresh snapshot, got %+v", snap)
	}
	if snap.Mode != modePool {
		t.Fatalf("expected mode %q, got %q", modePool, snap.Mode)
	}
}
