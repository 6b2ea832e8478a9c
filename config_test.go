package main

import "testing"

func TestValidateConfigRequiresPoolHostInPoolMode(t *testing.T) {
	cfg := defaultConfig()
	cfg.Mode = modePool
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("expected error for missing pool.host in pool mode")
	}
	cfg.PoolHost = "pool.example.com"
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("unexpected error once pool.host is set: %v", err)
	}
}

func TestValidateConfigRequiresNodeHostInSoloMode(t *testing.T) {
	cfg := defaultConfig()
	cfg.Mode = modeSolo
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("expected error for missing node.host in solo mode")
	}
	cfg.NodeHost = "127.0.0.1"
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("unexpected error once node.host is set: %v", err)
	}
}

func TestValidateConfigRejectsBadVardiffBounds(t *testing.T) {
	cfg := defaultConfig()
	cfg.Mode = modeSolo
	cfg.NodeHost = "127.0.0.1"
	cfg.Vardiff.MinDiff = 5
	cfg.Vardiff.MaxDiff = 1
	if err := validateConfig(cfg); err == nil {
		t.Fatalf("expected error when maxDiff <= minDiff")
	}
}

func TestApplyFileConfigOverlaysNonEmptyFieldsOnly(t *testing.T) {
	cfg := defaultConfig()
	original := cfg.PoolPort

	fc := fileConfig{
		Pool: poolFileConfig{Host: "pool.example.com"},
	}
	applyFileConfig(&cfg, fc)

	if cfg.PoolHost != "pool.example.com" {
		t.Fatalf("expected pool.host to be overlaid, got %q", cfg.PoolHost)
	}
	if cfg.PoolPort != original {
		t.Fatalf("expected pool.port to keep its default when unset in file, got %q", cfg.PoolPort)
	}
}

func TestApplyFileConfigVardiffPointerOverlay(t *testing.T) {
	cfg := defaultConfig()
	original := cfg.Vardiff.MaxDiff

	minDiff := 0.05
	fc := fileConfig{Vardiff: vardiffFileConfig{MinDiff: &minDiff}}
	applyFileConfig(&cfg, fc)

	if cfg.Vardiff.MinDiff != minDiff {
		t.Fatalf("expected min_diff overlay to apply, got %v", cfg.Vardiff.MinDiff)
	}
	if cfg.Vardiff.MaxDiff != original {
		t.Fatalf("expected max_diff to remain default when unset in file, got %v", cfg.Vardiff.MaxDiff)
	}
}
