package cutextend

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"github.com/LabMember-001/chainweb-node/internal/chainweb"
	"github.com/LabMember-001/chainweb-node/internal/cut"
	"github.com/LabMember-001/chainweb-node/internal/executor"
	"github.com/LabMember-001/chainweb-node/internal/header"
	"github.com/LabMember-001/chainweb-node/internal/logging"
	"github.com/LabMember-001/chainweb-node/internal/powhash"
	"github.com/LabMember-001/chainweb-node/internal/store"
	"github.com/LabMember-001/chainweb-node/internal/targetcache"
)

// newLoopExtender builds a real Extender (not the fakes in
// cutextend_test.go) wired against the in-memory reference collaborators,
// so Loop is exercised close to how cmd/chainweb-miner wires it.
func newLoopExtender(t *testing.T, v *chainweb.Version, dbset *store.MemoryHeaderDbSet, payloads *store.MemoryPayloadStore) *Extender {
	t.Helper()
	e, err := NewExtender(v, executor.New(), dbset, payloads, targetcache.New(), engine, chainweb.MinerInfo{Label: "loop-test"}, logging.NewNop())
	if err != nil {
		t.Fatalf("NewExtender: %v", err)
	}
	return e
}

func TestLoopRaceCutWinsRestartsWithNewerCut(t *testing.T) {
	v, err := chainweb.VersionByName("test-singleton")
	if err != nil {
		t.Fatalf("VersionByName: %v", err)
	}
	dbset := store.NewMemoryHeaderDbSet()
	payloads := store.NewMemoryPayloadStore()

	// An unreachable target means Extend's inner mine never converges on
	// its own, so whichever branch of the race reports first is decided
	// by the AwaitNewer publish below, not by a lucky nonce.
	g := genesis(0, header.BlockHashRecord{}, v.Name)
	var zero uint256.Int
	g.Target = zero
	cutStore := store.NewMemoryCutStore(cut.Cut{0: g}, dbset.HeaderAt)

	l := &Loop{Store: cutStore, Extender: newLoopExtender(t, v, dbset, payloads)}

	c, err := cutStore.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type outcome struct {
		res raceResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := l.race(ctx, c, 0)
		done <- outcome{res, err}
	}()

	// Give the race's two goroutines a chance to start before publishing
	// a newer cut out from under the still-mining attempt.
	time.Sleep(20 * time.Millisecond)
	mined := &header.BlockHeader{ChainId: 0, Height: 1, AdjacentHashes: header.BlockHashRecord{}}
	if err := dbset.Insert(context.Background(), mined); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	hashes := cut.CutHashes{Hashes: map[header.ChainId]cut.HashAtHeight{0: {Height: 1}}}
	if err := cutStore.Publish(context.Background(), hashes); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case o := <-done:
		if o.err != nil {
			t.Fatalf("race returned an error: %v", o.err)
		}
		if !o.res.cutWon {
			t.Fatalf("expected the await-cut branch to win the race")
		}
		if o.res.newerCut[0].Height != 1 {
			t.Fatalf("expected the observed cut to carry height 1, got %d", o.res.newerCut[0].Height)
		}
	case <-time.After(4 * time.Second):
		t.Fatalf("race did not observe the published cut in time")
	}
}

func TestLoopIteratePublishesAndPrunesOnMineWin(t *testing.T) {
	w := uint64(0)
	v := &chainweb.Version{
		Name:           "test-loop-singleton",
		ChainIDs:       []header.ChainId{0},
		Adjacency:      map[header.ChainId][]header.ChainId{0: {}},
		Window:         &w,
		Algo:           powhash.SHA512_256,
		FastCompatible: true,
	}

	dbset := store.NewMemoryHeaderDbSet()
	payloads := store.NewMemoryPayloadStore()

	g := genesis(0, header.BlockHashRecord{}, v.Name)
	if err := dbset.Insert(context.Background(), g); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	cutStore := store.NewMemoryCutStore(cut.Cut{0: g}, dbset.HeaderAt)

	extender := newLoopExtender(t, v, dbset, payloads)
	l := &Loop{Store: cutStore, Extender: extender}

	// Force a cache entry for the genesis parent so the prune-on-win path
	// below has something to observe removing.
	if _, err := extender.Cache.Get(context.Background(), 0, g, dbset, engine); err != nil {
		t.Fatalf("priming cache: %v", err)
	}
	if extender.Cache.Len() != 1 {
		t.Fatalf("expected one primed cache entry, got %d", extender.Cache.Len())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.iterate(ctx); err != nil {
		t.Fatalf("iterate: %v", err)
	}

	current, err := cutStore.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current[0].Height != 1 {
		t.Fatalf("expected the published cut to carry height 1, got %d", current[0].Height)
	}
	if extender.Cache.Len() != 0 {
		t.Fatalf("expected the genesis-height cache entry to be pruned, got %d entries", extender.Cache.Len())
	}
}
