package main

import "encoding/binary"

// HashBlake2bCKB computes CKB's personalized Blake2b-256 digest per RFC 7693
// with digest length 32, no key, fanout 1, depth 1, no salt, and the 16-byte
// ASCII personalization string "ckb-default-hash". golang.org/x/crypto/blake2b
// does not expose personalization through its public API (only digest size
// and an optional MAC key are configurable there), so the compression
// function is implemented directly against RFC 7693 here rather than layered
// on top of that package.
var ckbPersonalization = [16]byte{'c', 'k', 'b', '-', 'd', 'e', 'f', 'a', 'u', 'l', 't', '-', 'h', 'a', 's', 'h'}

var blake2bIV = [8]uint64{
	0x6a09e667f3bcc908, 0xbb67ae8584caa73b,
	0x3c6ef372fe94f82b, 0xa54ff53a5f1d36f1,
	0x510e527fade682d1, 0x9b05688c2b3e6c1f,
	0x1f83d9abfb41bd6b, 0x5be0cd19137e2179,
}

var blake2bSigma = [10][16]byte{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	{14, 10, 4, 8, 9, 15, 13, 6, 1, 12, 0, 2, 11, 7, 5, 3},
	{11, 8, 12, 0, 5, 2, 15, 13, 10, 14, 3, 6, 7, 1, 9, 4},
	{7, 9, 3, 1, 13, 12, 11, 14, 2, 6, 5, 10, 4, 0, 15, 8},
	{9, 0, 5, 7, 2, 4, 10, 15, 14, 1, 11, 12, 6, 8, 3, 13},
	{2, 12, 6, 10, 0, 11, 8, 3, 4, 13, 7, 5, 15, 14, 1, 9},
	{12, 5, 1, 15, 14, 13, 4, 10, 0, 7, 6, 3, 9, 2, 8, 11},
	{13, 11, 7, 14, 12, 1, 3, 9, 5, 0, 15, 4, 8, 6, 2, 10},
	{6, 15, 14, 9, 11, 3, 0, 8, 12, 2, 13, 7, 1, 4, 10, 5},
	{10, 2, 8, 4, 7, 6, 1, 5, 15, 11, 9, 14, 3, 12, 13, 0},
}

func rotr64(x uint64, n uint) uint64 {
	return x>>n | x<<(64-n)
}

func blake2bCompress(h *[8]uint64, block *[16]uint64, t uint64, last bool) {
	v := [16]uint64{
		h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7],
		blake2bIV[0], blake2bIV[1], blake2bIV[2], blake2bIV[3],
		blake2bIV[4], blake2bIV[5], blake2bIV[6], blake2bIV[7],
	}
	v[12] ^= t
	if last {
		v[14] ^= 0xFFFFFFFFFFFFFFFF
	}

	g := func(a, b, c, d int, x, y uint64) {
		v[a] = v[a] + v[b] + x
		v[d] = rotr64(v[d]^v[a], 32)
		v[c] = v[c] + v[d]
		v[b] = rotr64(v[b]^v[c], 24)
		v[a] = v[a] + v[b] + y
		v[d] = rotr64(v[d]^v[a], 16)
		v[c] = v[c] + v[d]
		v[b] = rotr64(v[b]^v[c], 63)
	}

	for round := 0; round < 12; round++ {
		s := blake2bSigma[round%10]
		g(0, 4, 8, 12, block[s[0]], block[s[1]])
		g(1, 5, 9, 13, block[s[2]], block[s[3]])
		g(2, 6, 10, 14, block[s[4]], block[s[5]])
		g(3, 7, 11, 15, block[s[6]], block[s[7]])
		g(0, 5, 10, 15, block[s[8]], block[s[9]])
		g(1, 6, 11, 12, block[s[10]], block[s[11]])
		g(2, 7, 8, 13, block[s[12]], block[s[13]])
		g(3, 4, 9, 14, block[s[14]], block[s[15]])
	}

	for i := 0; i < 8; i++ {
		h[i] ^= v[i] ^ v[i+8]
	}
}

func blake2bParamBlock(digestLen int, person [16]byte) [64]byte {
	var pb [64]byte
	pb[0] = byte(digestLen)
	pb[1] = 0 // key length
	pb[2] = 1 // fanout
	pb[3] = 1 // depth
	// bytes 4-7 leaf length, 8-15 node offset: all zero
	// byte 16 node depth, byte 17 inner length, 18-31 reserved: all zero
	// 32-47 salt: zero
	copy(pb[48:64], person[:])
	return pb
}

// HashBlake2bCKB returns the CKB-personalized Blake2b-256 digest of input.
func HashBlake2bCKB(input []byte) [32]byte {
	pb := blake2bParamBlock(32, ckbPersonalization)

	var h [8]uint64
	for i := 0; i < 8; i++ {
		h[i] = blake2bIV[i] ^ binary.LittleEndian.Uint64(pb[i*8:i*8+8])
	}

	const blockSize = 128
	total := len(input)

	if total == 0 {
		var block [16]uint64
		blake2bCompress(&h, &block, 0, true)
	} else {
		consumed := 0
		for consumed < total {
			remaining := total - consumed
			n := blockSize
			last := false
			if remaining <= blockSize {
				n = remaining
				last = true
			}
			var buf [blockSize]byte
			copy(buf[:], input[consumed:consumed+n])
			consumed += n

			var block [16]uint64
			for i := 0; i < 16; i++ {
				block[i] = binary.LittleEndian.Uint64(buf[i*8 : i*8+8])
			}
			blake2bCompress(&h, &block, uint64(consumed), last)
		}
	}

	var out [32]byte
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint64(out[i*8:i*8+8], h[i])
	}
	return out
}
