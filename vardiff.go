package main

import (
	"sync"
	"time"
)

// VardiffConfig holds the pool-wide defaults for the per-miner retarget
// controller, sourced from config.go's [vardiff] table.
type VardiffConfig struct {
	TargetShareSec  float64
	RetargetSec     float64
	VariancePercent float64
	MinDiff         float64
	MaxDiff         float64
	InitialDiff     float64
}

func defaultVardiffConfig() VardiffConfig {
	return VardiffConfig{
		TargetShareSec:  30,
		RetargetSec:     60,
		VariancePercent: 0.30,
		MinDiff:         0.001,
		MaxDiff:         1e9,
		InitialDiff:     1.0,
	}
}

// vardiffState is the per-miner sliding-window retarget bookkeeping.
type vardiffState struct {
	mu             sync.Mutex
	cfg            VardiffConfig
	currentDiff    float64
	windowStart    time.Time
	sharesInWindow uint64
	lastRetarget   time.Time
}

func newVardiffState(cfg VardiffConfig, now time.Time) *vardiffState {
	return &vardiffState{
		cfg:          cfg,
		currentDiff:  cfg.InitialDiff,
		windowStart:  now,
		lastRetarget: now,
	}
}

func (v *vardiffState) CurrentDiff() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.currentDiff
}

// Tick records one share arrival and, if the retarget interval has elapsed,
// recomputes the difficulty. It returns (newDiff, changed).
func (v *vardiffState) Tick(now time.Time) (float64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.sharesInWindow++

	if now.Sub(v.lastRetarget) < time.Duration(v.cfg.RetargetSec*float64(time.Second)) {
		return v.currentDiff, false
	}

	windowSec := now.Sub(v.windowStart).Seconds()
	shares := v.sharesInWindow
	if shares == 0 {
		shares = 1
	}
	actual := windowSec / float64(shares)
	if actual <= 0 {
		actual = v.cfg.TargetShareSec
	}

	target := v.cfg.TargetShareSec
	ratio := clampFloat(target/actual, 0.25, 4.0)

	changed := false
	newDiff := v.currentDiff
	if target == 0 || absFloat(actual-target)/target > v.cfg.VariancePercent {
		candidate := clampFloat(v.currentDiff*ratio, v.cfg.MinDiff, v.cfg.MaxDiff)
		if candidate != v.currentDiff {
			newDiff = candidate
			changed = true
		}
	}

	v.currentDiff = newDiff
	v.windowStart = now
	v.sharesInWindow = 0
	v.lastRetarget = now

	return newDiff, changed
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
