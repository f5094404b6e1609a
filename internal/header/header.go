// Package header defines the canonical chainweb block header: the fixed
// nonce/time-at-offset-zero byte layout the miner mutates in place, and
// the adjacent-parent bookkeeping a cut splices headers against.
package header

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"
)

// ChainId identifies one chain in a chainweb version's chain graph.
type ChainId uint32

// BlockHeight is a monotone, non-negative per-chain block index.
type BlockHeight uint64

// BlockHash is the output of a header's proof-of-work hash.
type BlockHash [32]byte

// Nonce is the 64-bit value mutated across mining attempts. It is encoded
// little-endian at bytes [0,8) of the header-without-hash.
type Nonce uint64

// BlockTime is a creation timestamp in microseconds since the Unix epoch,
// encoded little-endian at bytes [8,16) of the header-without-hash.
type BlockTime int64

// BlockHashRecord enumerates the adjacent-parent dependencies a header on
// one chain declares against neighboring chains, per the chain graph of
// the governing chainweb version.
type BlockHashRecord map[ChainId]BlockHash

// Hasher is the capability a header needs to compute its own hash: a pure
// function from bytes to a fixed-size digest. powhash.Engine satisfies
// this by duck typing; header does not import powhash so the codec stays
// independent of the hash algorithm in use.
type Hasher interface {
	PowHash([]byte) [32]byte
}

// BlockHeader is the canonical, fixed-layout chainweb block header.
type BlockHeader struct {
	ChainId        ChainId
	Height         BlockHeight
	ParentHash     BlockHash
	AdjacentHashes BlockHashRecord
	PayloadHash    BlockHash
	Nonce          Nonce
	CreationTime   BlockTime
	Target         uint256.Int
	Version        string
}

// Fixed byte offsets within the encoded-without-hash form. The miner's
// inner loop depends on exactly these offsets to mutate nonce/time without
// touching the rest of the buffer.
const (
	offsetNonce  = 0
	offsetTime   = 8
	offsetChain  = 16
	offsetHeight = 20
	offsetParent = 28
	offsetPayload = offsetParent + 32
	offsetTarget  = offsetPayload + 32
	fixedHeaderLen = offsetTarget + 32 // everything before the adjacency/version tail
)

// EncodeWithoutHash serializes h into its canonical wire form, excluding
// its own hash (which is derived from this form, not stored in it).
// Bytes [0,8) are the nonce and bytes [8,16) are the creation time; every
// other field follows in a fixed, deterministic order so two equal
// headers always encode identically.
func (h *BlockHeader) EncodeWithoutHash() []byte {
	buf := make([]byte, fixedHeaderLen)
	binary.LittleEndian.PutUint64(buf[offsetNonce:], uint64(h.Nonce))
	binary.LittleEndian.PutUint64(buf[offsetTime:], uint64(h.CreationTime))
	binary.LittleEndian.PutUint32(buf[offsetChain:], uint32(h.ChainId))
	binary.LittleEndian.PutUint64(buf[offsetHeight:], uint64(h.Height))
	copy(buf[offsetParent:offsetParent+32], h.ParentHash[:])
	copy(buf[offsetPayload:offsetPayload+32], h.PayloadHash[:])
	targetBytes := h.Target.Bytes32()
	copy(buf[offsetTarget:offsetTarget+32], targetBytes[:])

	chainIDs := make([]ChainId, 0, len(h.AdjacentHashes))
	for cid := range h.AdjacentHashes {
		chainIDs = append(chainIDs, cid)
	}
	sortChainIDs(chainIDs)

	tail := make([]byte, 4+len(chainIDs)*(4+32))
	binary.LittleEndian.PutUint32(tail[0:4], uint32(len(chainIDs)))
	off := 4
	for _, cid := range chainIDs {
		binary.LittleEndian.PutUint32(tail[off:off+4], uint32(cid))
		hashBytes := h.AdjacentHashes[cid]
		copy(tail[off+4:off+36], hashBytes[:])
		off += 36
	}

	version := []byte(h.Version)
	versionLen := make([]byte, 2)
	binary.LittleEndian.PutUint16(versionLen, uint16(len(version)))

	out := make([]byte, 0, len(buf)+len(tail)+2+len(version))
	out = append(out, buf...)
	out = append(out, tail...)
	out = append(out, versionLen...)
	out = append(out, version...)
	return out
}

// DecodeWithoutHash parses the form produced by EncodeWithoutHash back
// into a BlockHeader.
func DecodeWithoutHash(data []byte) (*BlockHeader, error) {
	if len(data) < fixedHeaderLen+6 {
		return nil, fmt.Errorf("header: truncated encoding, got %d bytes", len(data))
	}
	h := &BlockHeader{}
	h.Nonce = Nonce(binary.LittleEndian.Uint64(data[offsetNonce:]))
	h.CreationTime = BlockTime(binary.LittleEndian.Uint64(data[offsetTime:]))
	h.ChainId = ChainId(binary.LittleEndian.Uint32(data[offsetChain:]))
	h.Height = BlockHeight(binary.LittleEndian.Uint64(data[offsetHeight:]))
	copy(h.ParentHash[:], data[offsetParent:offsetParent+32])
	copy(h.PayloadHash[:], data[offsetPayload:offsetPayload+32])
	var targetBytes [32]byte
	copy(targetBytes[:], data[offsetTarget:offsetTarget+32])
	h.Target.SetBytes32(targetBytes[:])

	off := fixedHeaderLen
	if off+4 > len(data) {
		return nil, fmt.Errorf("header: truncated adjacency count")
	}
	count := int(binary.LittleEndian.Uint32(data[off : off+4]))
	off += 4
	adjacent := make(BlockHashRecord, count)
	for i := 0; i < count; i++ {
		if off+36 > len(data) {
			return nil, fmt.Errorf("header: truncated adjacency entry %d", i)
		}
		cid := ChainId(binary.LittleEndian.Uint32(data[off : off+4]))
		var bh BlockHash
		copy(bh[:], data[off+4:off+36])
		adjacent[cid] = bh
		off += 36
	}
	h.AdjacentHashes = adjacent

	if off+2 > len(data) {
		return nil, fmt.Errorf("header: truncated version length")
	}
	versionLen := int(binary.LittleEndian.Uint16(data[off : off+2]))
	off += 2
	if off+versionLen > len(data) {
		return nil, fmt.Errorf("header: truncated version string")
	}
	h.Version = string(data[off : off+versionLen])
	return h, nil
}

// WriteNonce overwrites only the nonce slot of an encoded-without-hash
// buffer, leaving every other byte untouched.
func WriteNonce(buf []byte, n Nonce) {
	binary.LittleEndian.PutUint64(buf[offsetNonce:], uint64(n))
}

// WriteTime overwrites only the creation-time slot of an
// encoded-without-hash buffer, leaving every other byte untouched.
func WriteTime(buf []byte, t BlockTime) {
	binary.LittleEndian.PutUint64(buf[offsetTime:], uint64(t))
}

// Hash returns h's self hash: the proof-of-work hash of its
// encoded-without-hash form, computed with the given hash engine.
func (h *BlockHeader) Hash(hasher Hasher) BlockHash {
	return hasher.PowHash(h.EncodeWithoutHash())
}

// Clone returns a deep copy of h, safe to mutate independently.
func (h *BlockHeader) Clone() *BlockHeader {
	c := *h
	c.AdjacentHashes = make(BlockHashRecord, len(h.AdjacentHashes))
	for k, v := range h.AdjacentHashes {
		c.AdjacentHashes[k] = v
	}
	return &c
}

// Equal reports whether h and o encode identically.
func (h *BlockHeader) Equal(o *BlockHeader) bool {
	if o == nil {
		return false
	}
	a, b := h.EncodeWithoutHash(), o.EncodeWithoutHash()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortChainIDs(ids []ChainId) {
	// Small N (chain counts are single digits to low tens); insertion sort
	// keeps this allocation-free and avoids pulling in sort for one call site.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}
