package main

import (
	"encoding/hex"

	"github.com/minio/sha256-simd"
)

// randomHexBytes returns n cryptographically-mixed bytes derived from
// sha256-simd, used in place of crypto/rand+encoding/hex for extranonce1
// prefixes and solo-mode session IDs, matching the pack's general preference
// for SIMD-accelerated hashing over stdlib crypto primitives.
func randomHexBytes(n int, entropySeed []byte) []byte {
	h := sha256.Sum256(entropySeed)
	out := make([]byte, 0, n)
	for len(out) < n {
		out = append(out, h[:]...)
		h = sha256.Sum256(h[:])
	}
	return out[:n]
}

// newExtranonce1Prefix derives a short pool-mode extranonce1 prefix from a
// process-start entropy seed plus a monotone counter, avoiding a shared
// mutable RNG.
func newExtranonce1Prefix(seed []byte, counter uint64) []byte {
	mixed := append(append([]byte(nil), seed...), byte(counter), byte(counter>>8), byte(counter>>16), byte(counter>>24))
	return randomHexBytes(3, mixed)
}

// newSessionID derives an 8-hex-character solo-mode session id when the
// miner does not supply one in mining.subscribe's params[1].
func newSessionID(seed []byte, counter uint32) string {
	mixed := append(append([]byte(nil), seed...), byte(counter), byte(counter>>8), byte(counter>>16), byte(counter>>24))
	raw := randomHexBytes(4, mixed)
	return hex.EncodeToString(raw)
}

// minerExtranonce1 builds a miner's full extranonce1 as pool_en1 ||
// (miner.id & 0xFF), the single-byte suffix scheme that caps concurrent
// miners at 256 (see the Invariant in the data model and the open question in
// DESIGN.md about widening it).
func minerExtranonce1(poolPrefix []byte, minerID uint32) []byte {
	suffix := byte(minerID & 0xFF)
	out := make([]byte, len(poolPrefix)+1)
	copy(out, poolPrefix)
	out[len(poolPrefix)] = suffix
	return out
}

// upstreamExtranonce2 rewrites a miner-supplied extranonce2 for upstream
// forwarding: the miner's id suffix byte is prepended in front of the
// miner-supplied bytes, giving each miner a disjoint nonce-space prefix.
func upstreamExtranonce2(minerID uint32, minerEn2 []byte) []byte {
	out := make([]byte, len(minerEn2)+1)
	out[0] = byte(minerID & 0xFF)
	copy(out[1:], minerEn2)
	return out
}
