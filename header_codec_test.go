package main

import "testing"

func TestSerializeRawSize(t *testing.T) {
	var h RawHeader
	buf := h.SerializeRaw()
	if len(buf) != rawHeaderSize {
		t.Fatalf("expected %d bytes, got %d", rawHeaderSize, len(buf))
	}
}

func TestSerializeRawFieldOffsets(t *testing.T) {
	h := RawHeader{
		Version:       0x11223344,
		CompactTarget: 0x1d00ffff,
		Timestamp:     0x0102030405060708,
		Number:        42,
		Epoch:         (5 << 40) | (3 << 24) | 100,
	}
	buf := h.SerializeRaw()

	if got := uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24; got != h.Version {
		t.Fatalf("version offset mismatch: got %x want %x", got, h.Version)
	}
	if buf[4] != 0xff || buf[5] != 0xff || buf[6] != 0x00 || buf[7] != 0x1d {
		t.Fatalf("compact_target offset mismatch: %x", buf[4:8])
	}
}

func TestDecodeEpoch(t *testing.T) {
	epoch := uint64(100) | uint64(3)<<24 | uint64(5)<<40
	info := DecodeEpoch(epoch)
	if info.Number != 100 || info.Index != 3 || info.Length != 5 {
		t.Fatalf("unexpected decode: %+v", info)
	}
}

func TestComputePowHashDeterministic(t *testing.T) {
	h := RawHeader{Number: 7}
	a := h.ComputePowHash()
	// RawHeader carries no nonce field at all; two identical headers must
	// hash identically regardless of any nonce a caller later mines with.
	b := h.ComputePowHash()
	if a != b {
		t.Fatalf("ComputePowHash must be deterministic for identical headers")
	}
}

func TestMiningInputLayout(t *testing.T) {
	var powHash [32]byte
	for i := range powHash {
		powHash[i] = byte(i)
	}
	var nonce [16]byte
	for i := range nonce {
		nonce[i] = byte(0x80 + i)
	}
	in := MiningInput(powHash, nonce)
	if len(in) != 48 {
		t.Fatalf("expected 48-byte mining input, got %d", len(in))
	}
	if in[0] != powHash[0] || in[31] != powHash[31] {
		t.Fatalf("pow_hash not placed at offset 0")
	}
	if in[32] != nonce[0] || in[47] != nonce[15] {
		t.Fatalf("nonce not placed at offset 32")
	}
}
