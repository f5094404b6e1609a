package cutextend

import (
	"context"
	"crypto/rand"
	"encoding/binary"

	"golang.org/x/sync/errgroup"

	"github.com/LabMember-001/chainweb-node/internal/chainweb"
	"github.com/LabMember-001/chainweb-node/internal/cut"
	"github.com/LabMember-001/chainweb-node/internal/header"
)

// Loop is MinerLoop: it races a local mining attempt against the
// possibility of a newer cut arriving from the network, and restarts
// indefinitely.
//
// Generalizes miner/workloop.go's outer `for` loop plus its
// `select { case <-headChangeCh: ... default: }` preemption check into
// the structured-cancellation race spec.md §5/§9 call for.
type Loop struct {
	Store    chainweb.CutStore
	Extender *Extender
}

// RunForever is run_forever: it calls iterate in a loop, logging and
// restarting from a fresh state on any uncaught error, per spec.md §4.6.
// It only returns when ctx is done.
func (l *Loop) RunForever(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.iterate(ctx); err != nil {
			if chainweb.IsFatal(err) {
				l.Extender.Log.Errorw("miner loop restarting after fatal error", "error", err)
			} else {
				l.Extender.Log.Warnw("miner loop restarting after error", "error", err)
			}
		}
	}
}

// iterate runs one (S0)-(S2) cycle of the state machine in spec.md §4.6:
// seed a fresh nonce, read the current cut, then race await-cut against
// CutExtender until the extender wins and a block is published.
func (l *Loop) iterate(ctx context.Context) error {
	nonce0, err := seedNonce()
	if err != nil {
		return err
	}
	c, err := l.Store.Current(ctx)
	if err != nil {
		return err
	}

	for {
		res, err := l.race(ctx, c, nonce0)
		if err != nil {
			return err
		}
		if res.cutWon {
			// (S1) A wins: carry the same nonce0 and cache forward,
			// racing again from the newer cut.
			c = res.newerCut
			continue
		}

		// (S2) B wins: publish, prune, log, and this iteration is done.
		hashes := cut.ToHashes(nil, res.extended.Cut, l.Extender.Engine)
		if err := l.Store.Publish(ctx, hashes); err != nil {
			return err
		}
		window, werr := l.Extender.Version.EpochWindow()
		if werr != nil {
			return chainweb.Fatal(werr)
		}
		if res.extended.Header.Height > header.BlockHeight(window) {
			l.Extender.Cache.Prune(res.extended.Header.Height - header.BlockHeight(window))
		}
		l.Extender.Log.Infow("created new block", "chain", res.extended.Header.ChainId, "height", res.extended.Header.Height)
		return nil
	}
}

// raceResult carries whichever branch of the race finished first.
type raceResult struct {
	cutWon   bool
	newerCut cut.Cut
	extended Result
}

// race runs CutStore.AwaitNewer and CutExtender.Extend concurrently and
// returns as soon as either finishes, cancelling and awaiting the loser
// before returning — spec.md §9's "suspending concurrent race... the
// losing branch is cancelled and awaited before the winner's result is
// consumed". Each branch reports its outcome over its own channel rather
// than through shared variables, so there is nothing for the two
// goroutines to race on.
func (l *Loop) race(ctx context.Context, c cut.Cut, nonce0 header.Nonce) (raceResult, error) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cutCh := make(chan cut.Cut, 1)
	extendCh := make(chan Result, 1)
	extendErrCh := make(chan error, 1)

	var eg errgroup.Group
	eg.Go(func() error {
		newer, err := l.Store.AwaitNewer(raceCtx, c)
		if err != nil {
			return nil // cancellation or loss of the race, not fatal here
		}
		cutCh <- newer
		cancel()
		return nil
	})
	eg.Go(func() error {
		extended, err := l.Extender.Extend(raceCtx, c, nonce0)
		if err != nil {
			if raceCtx.Err() == nil {
				extendErrCh <- err
			}
			cancel()
			return nil
		}
		extendCh <- extended
		cancel()
		return nil
	})
	_ = eg.Wait()

	select {
	case newer := <-cutCh:
		return raceResult{cutWon: true, newerCut: newer}, nil
	case extended := <-extendCh:
		return raceResult{extended: extended}, nil
	case err := <-extendErrCh:
		return raceResult{}, err
	default:
		// Both branches observed cancellation without reporting a
		// winner (e.g. the outer ctx was cancelled); propagate that.
		return raceResult{}, ctx.Err()
	}
}

// seedNonce draws nonce0 from a secure system source, per spec.md §3
// ("Nonces are seeded once per attempt from a secure RNG").
func seedNonce() (header.Nonce, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return header.Nonce(binary.LittleEndian.Uint64(buf[:])), nil
}
