package main

import "sync"

// PoolState is the process-wide singleton tracking the upstream pool's view
// of the world in pool mode. It is written only by UpstreamClient and read by
// SessionManager when broadcasting or building a miner's initial handshake
// reply.
type PoolState struct {
	mu sync.RWMutex

	extranonce1Prefix []byte
	extranonce2Size   int
	currentJob        []any // last mining.notify parameter tuple, verbatim
	currentTargetLE   [32]byte
	haveTarget        bool
	poolDifficulty    float64
	haveDifficulty    bool
	ready             bool
}

func NewPoolState() *PoolState {
	return &PoolState{extranonce2Size: 4}
}

func (p *PoolState) SetSubscribeResult(en1Prefix []byte, en2Size int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.extranonce1Prefix = append([]byte(nil), en1Prefix...)
	if en2Size < 1 {
		en2Size = 1
	}
	p.extranonce2Size = en2Size
}

func (p *PoolState) SetReady(ready bool) {
	p.mu.Lock()
	p.ready = ready
	p.mu.Unlock()
}

func (p *PoolState) SetJob(job []any) {
	p.mu.Lock()
	p.currentJob = job
	p.mu.Unlock()
}

func (p *PoolState) SetTarget(t [32]byte) {
	p.mu.Lock()
	p.currentTargetLE = t
	p.haveTarget = true
	p.mu.Unlock()
}

func (p *PoolState) SetDifficulty(d float64) {
	p.mu.Lock()
	p.poolDifficulty = d
	p.haveDifficulty = true
	p.mu.Unlock()
}

// Snapshot returns a consistent, copied view for handshake replies and the
// stats projection.
func (p *PoolState) Snapshot() (en1Prefix []byte, en2Size int, job []any, target [32]byte, haveTarget bool, diff float64, haveDiff bool, ready bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]byte(nil), p.extranonce1Prefix...), p.extranonce2Size, p.currentJob, p.currentTargetLE, p.haveTarget, p.poolDifficulty, p.haveDifficulty, p.ready
}
