// Package cut implements the chainweb cut: a consistent slice of one
// header per chain, and the monotonic-extension operation that splices a
// freshly mined header into it.
package cut

import (
	"fmt"

	"github.com/LabMember-001/chainweb-node/internal/header"
)

// Cut maps every chain in a chainweb version to its current tip header.
type Cut map[header.ChainId]*header.BlockHeader

// Clone returns a shallow copy of c (header pointers are shared; c's own
// map is independent so callers can splice a new tip in without mutating
// the original).
func (c Cut) Clone() Cut {
	out := make(Cut, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// IsValid reports whether c satisfies the cut invariant: for every chain
// cid, the adjacent tips of the header c[cid] sit in c at either the same
// height or one less, and each entry of c[cid]'s adjacent-parents record
// names that tip's parent (same height) or the tip itself (one less).
// hasher computes the adjacent tips' hashes for the one-less case.
func IsValid(c Cut, hasher header.Hasher) bool {
	for _, h := range c {
		if h == nil {
			return false
		}
		for xcid, want := range h.AdjacentHashes {
			b, ok := c[xcid]
			if !ok || b == nil {
				return false
			}
			switch {
			case b.Height == h.Height:
				if b.ParentHash != want {
					return false
				}
			case b.Height+1 == h.Height:
				if b.Hash(hasher) != want {
					return false
				}
			default:
				return false
			}
		}
	}
	return true
}

// HashAtHeight is the wire-projection of a single chain's tip: enough to
// detect a newer cut without shipping the full header.
type HashAtHeight struct {
	Height header.BlockHeight
	Hash   header.BlockHash
}

// CutHashes is the wire form a CutStore publishes and peers gossip,
// mirroring cut_to_hashes(origin, c): just heights and hashes, no bodies.
type CutHashes struct {
	Origin *string
	Hashes map[header.ChainId]HashAtHeight
}

// ToHashes projects c into its wire form. origin is nil for a
// locally-originated cut.
func ToHashes(origin *string, c Cut, hasher header.Hasher) CutHashes {
	out := CutHashes{Origin: origin, Hashes: make(map[header.ChainId]HashAtHeight, len(c))}
	for cid, h := range c {
		out.Hashes[cid] = HashAtHeight{Height: h.Height, Hash: h.Hash(hasher)}
	}
	return out
}

// MonotonicExtension splices newHeader into c on its chain. The extension
// succeeds only if newHeader.ParentHash equals the current tip's hash on
// that chain and the resulting cut still satisfies the cut invariant;
// both conditions should always hold for a header CutExtender produced
// itself, so a failure here indicates corrupted state, not ordinary
// contention.
func MonotonicExtension(c Cut, newHeader *header.BlockHeader, hasher header.Hasher) (Cut, error) {
	parent, ok := c[newHeader.ChainId]
	if !ok || parent == nil {
		return nil, fmt.Errorf("cut: no current tip for chain %d", newHeader.ChainId)
	}
	if newHeader.ParentHash != parent.Hash(hasher) {
		return nil, fmt.Errorf("cut: new header's parent hash does not match chain %d tip", newHeader.ChainId)
	}
	next := c.Clone()
	next[newHeader.ChainId] = newHeader
	if !IsValid(next, hasher) {
		return nil, fmt.Errorf("cut: extension on chain %d violates the cut invariant", newHeader.ChainId)
	}
	return next, nil
}
