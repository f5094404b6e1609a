// Package cutextend implements CutExtender: the per-attempt pipeline that
// picks a chain, resolves its adjacent parents, acquires a payload,
// mines a candidate header, and splices the result into the cut.
//
// Generalizes miner/workloop.go's inner attempt body (epoch math, target
// lookup, candidate assembly, broadcast-on-success) from one fixed chain
// to a random chain sampled across Chains(v) with blocked-chain retry.
package cutextend

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	mrand "math/rand"
	"runtime"

	"github.com/LabMember-001/chainweb-node/internal/chainweb"
	"github.com/LabMember-001/chainweb-node/internal/cut"
	"github.com/LabMember-001/chainweb-node/internal/header"
	"github.com/LabMember-001/chainweb-node/internal/logging"
	"github.com/LabMember-001/chainweb-node/internal/miner"
	"github.com/LabMember-001/chainweb-node/internal/powhash"
	"github.com/LabMember-001/chainweb-node/internal/targetcache"
)

// Result is what a successful Extend call produces: the newly mined
// header and the cut it was spliced into. Target-cache updates land in
// the shared Extender.Cache, not in Result.
type Result struct {
	Header *header.BlockHeader
	Cut    cut.Cut
}

// Extender ties the mining core's out-of-scope collaborators together
// for one cut-extension attempt.
type Extender struct {
	Version     *chainweb.Version
	Executor    chainweb.Executor
	HeaderDbSet chainweb.HeaderDbSet
	Payloads    chainweb.PayloadStore
	Cache       *targetcache.Cache
	Engine      *powhash.Engine
	MinerInfo   chainweb.MinerInfo
	Log         *logging.Logger

	rng *mrand.Rand
}

// NewExtender builds an Extender seeded from a secure system source, per
// spec.md §9 ("a per-miner PRNG seeded once from a secure system
// source").
func NewExtender(v *chainweb.Version, ex chainweb.Executor, dbset chainweb.HeaderDbSet, payloads chainweb.PayloadStore, cache *targetcache.Cache, engine *powhash.Engine, minerInfo chainweb.MinerInfo, log *logging.Logger) (*Extender, error) {
	var seedBytes [8]byte
	if _, err := rand.Read(seedBytes[:]); err != nil {
		return nil, fmt.Errorf("cutextend: seeding PRNG: %w", err)
	}
	seed := int64(binary.LittleEndian.Uint64(seedBytes[:]))
	return &Extender{
		Version:     v,
		Executor:    ex,
		HeaderDbSet: dbset,
		Payloads:    payloads,
		Cache:       cache,
		Engine:      engine,
		MinerInfo:   minerInfo,
		Log:         log,
		rng:         mrand.New(mrand.NewSource(seed)),
	}, nil
}

// Extend runs one full cut-extension attempt, per spec.md §4.4. It
// retries internally on a blocked chain (step 2) and returns only once a
// header has been mined, validated, and persisted, or ctx is done, or an
// error occurs: a cut invariant violation (returned as a FatalError) or
// an executor, target-lookup or storage failure (returned as is).
func (e *Extender) Extend(ctx context.Context, c cut.Cut, nonce0 header.Nonce) (Result, error) {
	chainIDs := e.Version.ChainIDs

	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		cid := chainIDs[e.rng.Intn(len(chainIDs))]
		parent := c[cid]

		adjacent, err := resolveAdjacent(c, parent, e.Version.AdjacentChains(cid), e.Engine)
		if errors.Is(err, chainweb.ErrBlockedChain) {
			// Blocked chain: not fatal, retry with a fresh chain pick
			// after yielding so a universally blocked cut doesn't starve
			// the concurrent await-cut branch (spec.md §9).
			e.Log.Debugw("chain blocked, retrying", "chain", cid, "error", err)
			runtime.Gosched()
			continue
		}

		payload, err := e.Executor.NewBlock(ctx, e.MinerInfo, parent)
		if err != nil {
			return Result{}, err
		}

		target, err := e.Cache.Get(ctx, cid, parent, e.HeaderDbSet, e.Engine)
		if err != nil {
			return Result{}, err
		}

		candidate := &header.BlockHeader{
			ChainId:        cid,
			Height:         parent.Height + 1,
			ParentHash:     parent.Hash(e.Engine),
			AdjacentHashes: adjacent,
			PayloadHash:    payload.PayloadHash,
			Nonce:          0,
			CreationTime:   miner.WallClockNow(),
			Target:         target,
			Version:        e.Version.Name,
		}

		mine := miner.Select(e.Version)
		mined, err := mine(ctx, candidate, nonce0, e.Engine, miner.WallClockNow)
		if err != nil {
			return Result{}, err
		}

		next, err := cut.MonotonicExtension(c, mined, e.Engine)
		if err != nil {
			// By construction this should always succeed; failure means
			// corrupted state, which is fatal per spec.md §7 kind 2.
			return Result{}, chainweb.Fatal(fmt.Errorf("%w: %v", chainweb.ErrCutInvariant, err))
		}

		e.Log.Infow("validate block payload", "chain", cid, "height", mined.Height)
		if err := e.Executor.ValidateBlock(ctx, mined, payload); err != nil {
			return Result{}, err
		}

		e.Log.Infow("add block payload to payload cas", "chain", cid, "height", mined.Height)
		if err := e.Payloads.AddNewPayload(ctx, payload); err != nil {
			return Result{}, err
		}

		e.Log.Infow("add block to payload db", "chain", cid, "height", mined.Height)
		if err := e.HeaderDbSet.Insert(ctx, mined); err != nil {
			return Result{}, err
		}

		return Result{Header: mined, Cut: next}, nil
	}
}

// resolveAdjacent resolves the adjacent-parent record a header extending
// parent on its chain must carry, per spec.md §4.4 step 2: for each
// chain xcid adjacent to parent's chain, inspect b := c[xcid]; if b sits
// at parent's height, adopt b's own hash; if b sits one height ahead,
// adopt b's parent hash (which is, by the cut invariant, parent's peer at
// the same height). Any other relationship means xcid is blocked, and
// resolveAdjacent reports chainweb.ErrBlockedChain so the caller can tell
// a blocked chain apart from any other retry reason.
func resolveAdjacent(c cut.Cut, parent *header.BlockHeader, adjacentChains []header.ChainId, hasher header.Hasher) (header.BlockHashRecord, error) {
	out := make(header.BlockHashRecord, len(adjacentChains))
	for _, xcid := range adjacentChains {
		b, ok := c[xcid]
		if !ok || b == nil {
			return nil, chainweb.ErrBlockedChain
		}
		switch {
		case b.Height == parent.Height:
			out[xcid] = b.Hash(hasher)
		case b.Height == parent.Height+1:
			out[xcid] = b.ParentHash
		default:
			return nil, chainweb.ErrBlockedChain
		}
	}
	return out, nil
}
