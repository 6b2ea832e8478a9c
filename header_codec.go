package main

import "encoding/binary"

// rawHeaderSize is the packed byte length of a CKB RawHeader, matching the
// teacher's binary.LittleEndian.PutUint32/PutUint64 field-by-field packing
// style for building a hashable header buffer.
const rawHeaderSize = 192

// RawHeader holds the CKB block header fields that feed pow_hash. The nonce
// is deliberately not a field here: CKB's pow_hash excludes the nonce, so
// there is no representation for it to be forgotten in.
type RawHeader struct {
	Version           uint32
	CompactTarget     uint32
	Timestamp         uint64
	Number            uint64
	Epoch             uint64
	ParentHash        [32]byte
	TransactionsRoot  [32]byte
	ProposalsHash     [32]byte
	ExtraHash         [32]byte
	Dao               [32]byte
}

// SerializeRaw packs the header into the fixed 192-byte record described for
// pow_hash computation.
func (h RawHeader) SerializeRaw() []byte {
	buf := make([]byte, rawHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Version)
	binary.LittleEndian.PutUint32(buf[4:8], h.CompactTarget)
	binary.LittleEndian.PutUint64(buf[8:16], h.Timestamp)
	binary.LittleEndian.PutUint64(buf[16:24], h.Number)
	binary.LittleEndian.PutUint64(buf[24:32], h.Epoch)
	copy(buf[32:64], h.ParentHash[:])
	copy(buf[64:96], h.TransactionsRoot[:])
	copy(buf[96:128], h.ProposalsHash[:])
	copy(buf[128:160], h.ExtraHash[:])
	copy(buf[160:192], h.Dao[:])
	return buf
}

// ComputePowHash returns Blake2b-ckb(serialize_raw(h)), the value miners feed
// into Eaglesong alongside the 16-byte nonce.
func (h RawHeader) ComputePowHash() [32]byte {
	return HashBlake2bCKB(h.SerializeRaw())
}

// EpochInfo is the decoded form of a packed 64-bit epoch field.
type EpochInfo struct {
	Number uint64
	Index  uint64
	Length uint64
}

// DecodeEpoch splits a packed epoch field into number/index/length per the
// bit layout: [0,24) number, [24,40) index, [40,56) length.
func DecodeEpoch(epoch uint64) EpochInfo {
	return EpochInfo{
		Number: epoch & 0xFFFFFF,
		Index:  (epoch >> 24) & 0xFFFF,
		Length: (epoch >> 40) & 0xFFFF,
	}
}

// pad16Nonce returns the 16-byte nonce used as the second half of the
// 48-byte Eaglesong mining input unchanged; it does no padding itself, since
// the fixed-size array is already 16 bytes (validateSoloShare places shorter
// miner-supplied nonces into that array).
func pad16Nonce(nonce [16]byte) [16]byte {
	return nonce
}

// MiningInput assembles the 48-byte Eaglesong input: pow_hash(32) ||
// nonce(16, little-endian).
func MiningInput(powHash [32]byte, nonce [16]byte) [48]byte {
	var out [48]byte
	copy(out[0:32], powHash[:])
	padded := pad16Nonce(nonce)
	copy(out[32:48], padded[:])
	return out
}
