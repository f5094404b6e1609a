// Package powhash implements the proof-of-work hash engine used to seal
// chainweb block headers.
package powhash

import (
	"crypto/sha512"
	"hash"

	"github.com/holiman/uint256"
)

// HashAlgorithm selects the concrete digest used by an Engine. Chainweb
// versions map to exactly one algorithm via pow_hash_algo(v); unsupported
// versions must fail closed rather than guess one (see DESIGN.md).
type HashAlgorithm int

const (
	// SHA512_256 is the only algorithm the test chainweb versions in this
	// module select.
	SHA512_256 HashAlgorithm = iota
)

// DigestSize is the width, in bytes, of every digest this package produces.
const DigestSize = 32

// Engine computes and checks proof-of-work hashes for a single algorithm.
// It is pure and allocation-free on PowHash's hot path: callers that need
// to avoid per-call hashing overhead should use NewContext instead and
// reuse the returned hash.Hash across iterations.
type Engine struct {
	algo HashAlgorithm
}

// New returns the hash engine for algo. The zero value (SHA512_256) is the
// only algorithm presently wired up.
func New(algo HashAlgorithm) *Engine {
	return &Engine{algo: algo}
}

// PowHash returns the proof-of-work digest of data. It allocates no
// intermediate buffers beyond the fixed-size return value.
func (e *Engine) PowHash(data []byte) [DigestSize]byte {
	switch e.algo {
	case SHA512_256:
		return sha512.Sum512_256(data)
	default:
		return sha512.Sum512_256(data)
	}
}

// NewContext returns a fresh, resettable hash.Hash implementing this
// engine's algorithm, for the fast miner's mutable-buffer hot loop
// (reset + Write + Sum per iteration, no new allocation).
func (e *Engine) NewContext() hash.Hash {
	switch e.algo {
	case SHA512_256:
		return sha512.New512_256()
	default:
		return sha512.New512_256()
	}
}

// MeetsTarget reports whether digest, interpreted as a little-endian
// unsigned 256-bit integer, is less than or equal to target. Chainweb
// hash targets are compared in little-endian order (the low-order byte
// of the digest is byte 0), unlike the big-endian convention uint256.Int
// uses for SetBytes/Bytes, so the digest is reversed before the compare.
func MeetsTarget(digest [DigestSize]byte, target uint256.Int) bool {
	var be [DigestSize]byte
	for i := 0; i < DigestSize; i++ {
		be[i] = digest[DigestSize-1-i]
	}
	var v uint256.Int
	v.SetBytes(be[:])
	return v.Cmp(&target) <= 0
}
