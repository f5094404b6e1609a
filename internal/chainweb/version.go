// Package chainweb holds the per-version configuration (chain graph,
// epoch window, hash algorithm) and the external collaborator contracts
// the mining core is built against.
package chainweb

import (
	"github.com/LabMember-001/chainweb-node/internal/header"
	"github.com/LabMember-001/chainweb-node/internal/powhash"
)

// Version describes everything the mining core needs to know about a
// chainweb network: its chain graph, its epoch window (nil for non-PoW
// versions), and its proof-of-work hash algorithm.
//
// This generalizes the teacher's package-level config.RetargetInterval /
// config.EpochBlocks scalars into a full per-version registry.
type Version struct {
	Name string

	// ChainIDs is the finite chain set, Chains(v) in spec terms.
	ChainIDs []header.ChainId

	// Adjacency maps each chain to the chains whose headers its own
	// headers must reference as adjacent parents.
	Adjacency map[header.ChainId][]header.ChainId

	// Window is the epoch width W used for difficulty averaging and to
	// bound the useful lifetime of a cached target. A nil Window marks a
	// non-PoW version: EpochWindow reports ErrNonPoWVersion for it.
	Window *uint64

	// Algo is this version's proof-of-work hash algorithm.
	Algo powhash.HashAlgorithm

	// FastCompatible gates use of the optimized inner-miner variant; it
	// bypasses generic encoding paths and so is only safe for versions
	// whose header layout the fast path has been audited against.
	FastCompatible bool
}

// Chains returns the finite chain-id set for v.
func (v *Version) Chains() map[header.ChainId]struct{} {
	out := make(map[header.ChainId]struct{}, len(v.ChainIDs))
	for _, cid := range v.ChainIDs {
		out[cid] = struct{}{}
	}
	return out
}

// AdjacentChains returns the chain ids whose headers cid's headers must
// reference as adjacent parents.
func (v *Version) AdjacentChains(cid header.ChainId) []header.ChainId {
	return v.Adjacency[cid]
}

// EpochWindow returns the epoch width W for v, or ErrNonPoWVersion if v
// has no PoW epoch window configured. Implementers must fail closed here
// rather than default to some W, per the "non-PoW misconfiguration is
// fatal" error kind.
func (v *Version) EpochWindow() (uint64, error) {
	if v.Window == nil {
		return 0, ErrNonPoWVersion
	}
	return *v.Window, nil
}

// PowHashAlgorithm returns v's hash algorithm. Only SHA512_256 is wired up
// for the versions this registry knows about.
func (v *Version) PowHashAlgorithm() (powhash.HashAlgorithm, error) {
	return v.Algo, nil
}

func window(w uint64) *uint64 { return &w }

// Built-in test chainweb versions. Production versions (e.g. mainnet01)
// are deliberately not enumerated: the source this module generalizes
// only maps a handful of versions to a hash algorithm, and behavior for
// any other name is undefined upstream. Rather than guess, VersionByName
// fails closed for anything not listed here.
var registry = map[string]*Version{
	"test-singleton": {
		Name:           "test-singleton",
		ChainIDs:       []header.ChainId{0},
		Adjacency:      map[header.ChainId][]header.ChainId{0: {}},
		Window:         window(10),
		Algo:           powhash.SHA512_256,
		FastCompatible: true,
	},
	"test-pair": {
		Name:      "test-pair",
		ChainIDs:  []header.ChainId{0, 1},
		Adjacency: map[header.ChainId][]header.ChainId{0: {1}, 1: {0}},
		Window:    window(10),
		Algo:      powhash.SHA512_256,
	},
	"test-triad": {
		Name:     "test-triad",
		ChainIDs: []header.ChainId{0, 1, 2},
		Adjacency: map[header.ChainId][]header.ChainId{
			0: {1, 2},
			1: {0, 2},
			2: {0, 1},
		},
		Window:         window(5),
		Algo:           powhash.SHA512_256,
		FastCompatible: true,
	},
	"test-nonpow": {
		Name:      "test-nonpow",
		ChainIDs:  []header.ChainId{0},
		Adjacency: map[header.ChainId][]header.ChainId{0: {}},
		Window:    nil,
		Algo:      powhash.SHA512_256,
	},
}

// VersionByName looks up a built-in chainweb version by name. Unknown
// names fail closed with ErrNonPoWVersion rather than defaulting to a
// guessed algorithm or window, per the open question in spec.md §9.
func VersionByName(name string) (*Version, error) {
	v, ok := registry[name]
	if !ok {
		return nil, ErrNonPoWVersion
	}
	return v, nil
}
