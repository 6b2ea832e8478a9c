package main

import (
	"encoding/hex"
	"math/big"
)

// maxTarget256 is 2^256 - 1, the clamp ceiling for both compact-target
// decoding and diff-to-target conversion.
var maxTarget256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// diffOneBaseline is CKB's diff-1 target baseline, T1 = 2^224.
var diffOneBaseline = new(big.Int).Lsh(big.NewInt(1), 224)

// diffFixedPointScale gives diff_to_target_le at least 10^6 precision on
// fractional difficulties before it divides.
const diffFixedPointScale = 1_000_000

// CompactToTargetLE decodes a 32-bit compact target into a 32-byte
// little-endian target (byte 0 = LSB), clamped to 2^256-1.
func CompactToTargetLE(c uint32) [32]byte {
	exp := c >> 24
	man := new(big.Int).SetUint64(uint64(c & 0xFFFFFF))

	var n *big.Int
	if exp <= 3 {
		shift := uint(8 * (3 - exp))
		n = new(big.Int).Rsh(man, shift)
	} else {
		shift := uint(8 * (exp - 3))
		n = new(big.Int).Lsh(man, shift)
	}
	if n.Cmp(maxTarget256) > 0 {
		n = maxTarget256
	}
	return bigIntToLE32(n)
}

// DiffToTargetLE converts a difficulty value to a 32-byte little-endian
// target using the T1/d baseline, clamped to 2^256-1.
func DiffToTargetLE(d float64) [32]byte {
	if d <= 0 {
		return bigIntToLE32(maxTarget256)
	}
	scaledDiff := new(big.Int).SetInt64(int64(d * diffFixedPointScale))
	if scaledDiff.Sign() <= 0 {
		scaledDiff = big.NewInt(1)
	}
	numerator := new(big.Int).Mul(diffOneBaseline, big.NewInt(diffFixedPointScale))
	target := new(big.Int).Div(numerator, scaledDiff)
	if target.Cmp(maxTarget256) > 0 {
		target = maxTarget256
	}
	return bigIntToLE32(target)
}

func bigIntToLE32(n *big.Int) [32]byte {
	be := n.Bytes()
	var out [32]byte
	// n.Bytes() is big-endian, most-significant byte first, no leading
	// zero padding; place it right-aligned then reverse into LE.
	if len(be) > 32 {
		be = be[len(be)-32:]
	}
	offset := 32 - len(be)
	for i, b := range be {
		out[31-(offset+i)] = b
	}
	return out
}

// hexLEToBigInt parses a 64-hex-character little-endian byte string into a
// big.Int (interpreted as an unsigned 256-bit integer).
func hexLEToBigInt(hexStr string) (*big.Int, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, err
	}
	be := make([]byte, len(raw))
	for i, b := range raw {
		be[len(raw)-1-i] = b
	}
	return new(big.Int).SetBytes(be), nil
}

// bigIntToHexLE renders a big.Int as a 64-hex-character little-endian byte
// string, zero-padded to 32 bytes.
func bigIntToHexLE(n *big.Int) string {
	le := bigIntToLE32(n)
	return hex.EncodeToString(le[:])
}

// MeetsTarget compares hash and target as 256-bit little-endian unsigned
// integers, byte-wise from index 31 down to 0, without allocating a big.Int
// on this hot path.
func MeetsTarget(hash32, targetLE [32]byte) bool {
	for i := 31; i >= 0; i-- {
		if hash32[i] < targetLE[i] {
			return true
		}
		if hash32[i] > targetLE[i] {
			return false
		}
	}
	return true // equal
}

func targetLEToHex(t [32]byte) string {
	return hex.EncodeToString(t[:])
}

func hexToTargetLE(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	copy(out[:], raw)
	return out, nil
}
