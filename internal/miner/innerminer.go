// Package miner implements the hot mining inner loops. The orchestration
// loop that races local mining against preemption by a newer network cut
// is cutextend.Loop.
//
// Generalizes miner/workloop.go's per-height nonce-stepping search from a
// single chain into the two fixed-layout-header variants spec.md §4.5
// calls for.
package miner

import (
	"context"
	"time"

	"github.com/LabMember-001/chainweb-node/internal/chainweb"
	"github.com/LabMember-001/chainweb-node/internal/header"
	"github.com/LabMember-001/chainweb-node/internal/powhash"
)

// timeRefreshInterval is the iteration count at which the embedded
// timestamp is refreshed and cancellation is checked, per spec.md §4.5/§5.
const timeRefreshInterval = 100_000

// NowFunc returns the current time as header.BlockTime microseconds.
// Tests stub this for deterministic portable/fast equivalence checks.
type NowFunc func() header.BlockTime

// WallClockNow is the production NowFunc.
func WallClockNow() header.BlockTime {
	return header.BlockTime(time.Now().UnixMicro())
}

// Func is the common signature of the two inner-miner variants.
type Func func(ctx context.Context, candidate *header.BlockHeader, nonce0 header.Nonce, engine *powhash.Engine, now NowFunc) (*header.BlockHeader, error)

// Select returns the inner-miner variant appropriate for v. The fast
// variant bypasses generic encoding paths, so it is only used for
// versions explicitly marked compatible; everything else falls back to
// the portable variant.
func Select(v *chainweb.Version) Func {
	if v.FastCompatible {
		return MineFast
	}
	return Mine
}

// Mine is the portable inner-miner variant. It serializes candidate once
// into an immutable byte string and then repeatedly overwrites only the
// nonce slot (and, every timeRefreshInterval iterations, the time slot)
// before hashing and checking against target. It has no a priori
// iteration bound and is cancellable only at the time-refresh checkpoint.
func Mine(ctx context.Context, candidate *header.BlockHeader, nonce0 header.Nonce, engine *powhash.Engine, now NowFunc) (*header.BlockHeader, error) {
	buf := candidate.EncodeWithoutHash()
	n := uint64(nonce0)

	for iterations := uint64(0); ; iterations++ {
		if iterations%timeRefreshInterval == 0 {
			header.WriteTime(buf, now())
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		header.WriteNonce(buf, header.Nonce(n))
		digest := engine.PowHash(buf)
		if powhash.MeetsTarget(digest, candidate.Target) {
			return header.DecodeWithoutHash(buf)
		}
		n++
	}
}

// MineFast is algorithmically identical to Mine but allocates its
// serialized buffer and scratch digest once and reuses a single mutable
// hash context reset per iteration, avoiding the one-hash-context-per-call
// overhead of the portable variant. It imposes stricter version
// compatibility (see Select) because it assumes the encoding the version
// produces never changes shape across an attempt.
func MineFast(ctx context.Context, candidate *header.BlockHeader, nonce0 header.Nonce, engine *powhash.Engine, now NowFunc) (*header.BlockHeader, error) {
	buf := candidate.EncodeWithoutHash()
	scratch := engine.NewContext()
	var digest [powhash.DigestSize]byte
	n := uint64(nonce0)

	for iterations := uint64(0); ; iterations++ {
		if iterations%timeRefreshInterval == 0 {
			header.WriteTime(buf, now())
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		header.WriteNonce(buf, header.Nonce(n))
		scratch.Reset()
		scratch.Write(buf)
		sum := scratch.Sum(digest[:0])
		copy(digest[:], sum)
		if powhash.MeetsTarget(digest, candidate.Target) {
			return header.DecodeWithoutHash(buf)
		}
		n++
	}
}
