package main

import (
	"testing"
	"time"
)

func TestVardiffNoChangeAtTargetRate(t *testing.T) {
	cfg := defaultVardiffConfig()
	cfg.RetargetSec = 60
	cfg.TargetShareSec = 30
	start := time.Unix(0, 0)
	v := newVardiffState(cfg, start)

	const n = 10
	var lastDiff float64
	var changed bool
	for i := 1; i <= n; i++ {
		now := start.Add(time.Duration(i) * time.Duration(cfg.TargetShareSec) * time.Second)
		lastDiff, changed = v.Tick(now)
	}
	if changed {
		t.Fatalf("expected no diff change at exactly target rate, got new diff %v", lastDiff)
	}
}

func TestVardiffDoublesAtDoubleRate(t *testing.T) {
	cfg := defaultVardiffConfig()
	cfg.RetargetSec = 60
	cfg.TargetShareSec = 30
	start := time.Unix(0, 0)
	v := newVardiffState(cfg, start)

	const n = 10
	windowEnd := start.Add(time.Duration(n) * time.Duration(cfg.TargetShareSec) * time.Second)
	step := windowEnd.Sub(start) / (2 * n)

	// A retarget fires every RetargetSec inside the loop, so the factor is
	// measured across the last one, against the diff it started from.
	var prevDiff, newDiff float64
	var changed bool
	for i := 1; i <= 2*n; i++ {
		now := start.Add(time.Duration(i) * step)
		prevDiff = v.CurrentDiff()
		newDiff, changed = v.Tick(now)
	}
	if !changed {
		t.Fatalf("expected a retarget when shares arrive at double rate")
	}
	factor := newDiff / prevDiff
	if factor < 1.5 || factor > 2.0 {
		t.Fatalf("expected retarget factor in [1.5, 2.0], got %v", factor)
	}
}

func TestVardiffClampsToMax(t *testing.T) {
	cfg := defaultVardiffConfig()
	cfg.RetargetSec = 1
	cfg.TargetShareSec = 30
	cfg.MaxDiff = 2.0
	start := time.Unix(0, 0)
	v := newVardiffState(cfg, start)

	now := start
	for i := 0; i < 5; i++ {
		// Hammer shares far faster than target to force repeated up-retargets.
		now = now.Add(2 * time.Second)
		for j := 0; j < 100; j++ {
			v.Tick(now)
		}
	}
	if got := v.CurrentDiff(); got > cfg.MaxDiff {
		t.Fatalf("diff %v exceeded maxDiff %v", got, cfg.MaxDiff)
	}
}

func TestVardiffClampsToMin(t *testing.T) {
	cfg := defaultVardiffConfig()
	cfg.RetargetSec = 1
	cfg.TargetShareSec = 1
	cfg.MinDiff = 0.5
	cfg.InitialDiff = 1.0
	start := time.Unix(0, 0)
	v := newVardiffState(cfg, start)

	now := start
	for i := 0; i < 5; i++ {
		// One share every 100s against a 1s target starves the window,
		// forcing repeated down-retargets.
		now = now.Add(100 * time.Second)
		v.Tick(now)
	}
	if got := v.CurrentDiff(); got < cfg.MinDiff {
		t.Fatalf("diff %v fell below minDiff %v", got, cfg.MinDiff)
	}
}

func TestVardiffDoesNotRetargetEarly(t *testing.T) {
	cfg := defaultVardiffConfig()
	cfg.RetargetSec = 60
	cfg.TargetShareSec = 1
	start := time.Unix(0, 0)
	v := newVardiffState(cfg, start)

	// Flood shares in a burst well inside the retarget window; rate is far
	// from target but the retarget interval has not elapsed.
	var changed bool
	for i := 0; i < 1000; i++ {
		_, changed = v.Tick(start.Add(time.Duration(i) * time.Millisecond))
	}
	if changed {
		t.Fatalf("retarget fired before retargetSec elapsed")
	}
}
