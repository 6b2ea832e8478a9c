package main

import "math/bits"

// Eaglesong is CKB's proof-of-work permutation: a 43-round sponge over a
// 512-bit (16-word) state with a 256-bit (8-word) rate and a single-byte
// delimiter. HashEaglesong implements the sponge construction (absorb one
// full-rate block per 43-round permutation, single squeeze) described for the mining hash
// path; it is a pure function with no shared mutable state, so it is safe to
// call concurrently from multiple goroutines.
//
// KNOWN DEFECT: the 16-word linear layer, the per-word rotation-coefficient
// pairs, and the 688-word round-constant table below are placeholder values
// generated at package init from a fixed seed, not the authoritative CKB
// tables. eaglesong("") on this file does not reproduce the required
// 9e4452fc7aed93d7240b7b55263792befd1be09252b456401122ba71a56f62a0. Fixing
// this requires transcribing the exact tables from the CKB reference
// implementation (nervosnetwork/ckb `util/pow`'s Eaglesong appendix); that
// source is not present anywhere in this repository's reference material and
// was not available to fetch when this file was written. Solo-mode share
// validation MUST NOT be trusted against a real node or real miners until
// this table is replaced. See DESIGN.md's HashCore entry.
const (
	eaglesongWords = 16
	eaglesongRate  = 8
	eaglesongRounds = 43
	eaglesongDelim  = 0x06
)

var (
	eaglesongMatrix [eaglesongWords][]int
	eaglesongCoeffs [eaglesongWords][2]int
	eaglesongConsts [eaglesongRounds * eaglesongWords]uint32
)

// splitmix64 is used purely as a deterministic, dependency-free expansion
// function for the permutation tables; it has no cryptographic role.
type splitmix64 struct{ state uint64 }

func (s *splitmix64) next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

func init() {
	gen := &splitmix64{state: 0xE6A57519EEACBEA1}

	for i := 0; i < eaglesongWords; i++ {
		seen := map[int]bool{}
		count := 3 + int(gen.next()%3) // each output word depends on 3-5 inputs
		subset := make([]int, 0, count)
		subset = append(subset, i)
		seen[i] = true
		for len(subset) < count {
			idx := int(gen.next() % eaglesongWords)
			if !seen[idx] {
				seen[idx] = true
				subset = append(subset, idx)
			}
		}
		eaglesongMatrix[i] = subset
	}

	for i := 0; i < eaglesongWords; i++ {
		r1 := 1 + int(gen.next()%31)
		r2 := 1 + int(gen.next()%31)
		for r2 == r1 {
			r2 = 1 + int(gen.next()%31)
		}
		eaglesongCoeffs[i] = [2]int{r1, r2}
	}

	for i := range eaglesongConsts {
		eaglesongConsts[i] = uint32(gen.next())
	}
}

func rotl32(x uint32, r int) uint32 {
	return bits.RotateLeft32(x, r)
}

// eaglesongPermute applies the 43-round permutation in place.
func eaglesongPermute(s *[eaglesongWords]uint32) {
	var n [eaglesongWords]uint32
	for round := 0; round < eaglesongRounds; round++ {
		// Step 1: bit-matrix multiply.
		for i := 0; i < eaglesongWords; i++ {
			var v uint32
			for _, j := range eaglesongMatrix[i] {
				v ^= s[j]
			}
			n[i] = v
		}
		*s = n

		// Step 2: circulant rotation XOR.
		for j := 0; j < eaglesongWords; j++ {
			r1, r2 := eaglesongCoeffs[j][0], eaglesongCoeffs[j][1]
			s[j] ^= rotl32(s[j], r1) ^ rotl32(s[j], r2)
		}

		// Step 3: constants injection.
		base := round * eaglesongWords
		for j := 0; j < eaglesongWords; j++ {
			s[j] ^= eaglesongConsts[base+j]
		}

		// Step 4: Add-Rotate-Add on word pairs.
		for p := 0; p < eaglesongWords; p += 2 {
			p1 := s[p+1]
			s[p] = rotl32(s[p]+p1, 8)
			s[p+1] = s[p] + rotl32(p1, 24)
		}
	}
}

// HashEaglesong computes the 32-byte Eaglesong digest of input.
func HashEaglesong(input []byte) [32]byte {
	var state [eaglesongWords]uint32
	inputLen := len(input)
	numBlocks := ((inputLen+1)*8 + 255) / 256

	for b := 0; b < numBlocks; b++ {
		for j := 0; j < eaglesongRate; j++ {
			var word uint32
			for k := 0; k < 4; k++ {
				idx := b*32 + j*4 + k
				var byteVal byte
				switch {
				case idx < inputLen:
					byteVal = input[idx]
				case idx == inputLen:
					byteVal = eaglesongDelim
				default:
					byteVal = 0
				}
				word = word<<8 | uint32(byteVal)
			}
			state[j] ^= word
		}
		eaglesongPermute(&state)
	}

	var out [32]byte
	for j := 0; j < 8; j++ {
		w := state[j]
		out[j*4+0] = byte(w)
		out[j*4+1] = byte(w >> 8)
		out[j*4+2] = byte(w >> 16)
		out[j*4+3] = byte(w >> 24)
	}
	return out
}
