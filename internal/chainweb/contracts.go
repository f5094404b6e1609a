package chainweb

import (
	"context"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/LabMember-001/chainweb-node/internal/cut"
	"github.com/LabMember-001/chainweb-node/internal/header"
)

// MinerInfo is the opaque miner identity passed to Executor.NewBlock. It
// never influences consensus; it only tags who gets credit for a block,
// which is the Executor's concern, not the mining core's (spec.md §1
// Non-goals: "choosing mining rewards").
type MinerInfo struct {
	ID    uuid.UUID
	Label string
}

// MinerConfig is the miner's static configuration.
type MinerConfig struct {
	MinerInfo MinerInfo
}

// PayloadWithOutputs is whatever the execution service built for a
// candidate block: opaque to the mining core beyond its hash.
type PayloadWithOutputs struct {
	PayloadHash header.BlockHash
	Payload     []byte
	Outputs     []byte
}

// CutStore is the out-of-scope collaborator that holds the node's current
// view of the multi-chain tip and lets the miner race against newer
// cuts observed from the network.
type CutStore interface {
	// Current returns the node's current cut.
	Current(ctx context.Context) (cut.Cut, error)

	// AwaitNewer blocks until a cut strictly newer than prev is
	// available, or ctx is done.
	AwaitNewer(ctx context.Context, prev cut.Cut) (cut.Cut, error)

	// Publish announces hashes as the node's new cut.
	Publish(ctx context.Context, hashes cut.CutHashes) error
}

// Executor is the out-of-scope execution service that builds and
// validates block payloads.
type Executor interface {
	// NewBlock builds a fresh payload extending parent for minerInfo.
	NewBlock(ctx context.Context, minerInfo MinerInfo, parent *header.BlockHeader) (PayloadWithOutputs, error)

	// ValidateBlock validates that h and payload are consistent. Failure
	// is fatal for the mining attempt that produced them (not fatal for
	// the miner task as a whole).
	ValidateBlock(ctx context.Context, h *header.BlockHeader, payload PayloadWithOutputs) error
}

// HeaderDb is the out-of-scope per-chain difficulty oracle.
type HeaderDb interface {
	// HashTarget computes the difficulty target a header extending
	// parent must meet.
	HashTarget(ctx context.Context, parent *header.BlockHeader) (uint256.Int, error)
}

// HeaderDbSet is the out-of-scope collection of per-chain header
// databases.
type HeaderDbSet interface {
	// ForChain returns the HeaderDb for cid, or ok=false if cid has no
	// local database (the degenerate test-version case TargetCache must
	// fall back from).
	ForChain(cid header.ChainId) (HeaderDb, bool)

	// Insert persists h into the database for its chain.
	Insert(ctx context.Context, h *header.BlockHeader) error
}

// PayloadStore is the out-of-scope content-addressed payload store.
type PayloadStore interface {
	AddNewPayload(ctx context.Context, p PayloadWithOutputs) error
}
