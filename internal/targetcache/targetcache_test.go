package targetcache

import (
	"context"
	"testing"

	"github.com/holiman/uint256"

	"github.com/LabMember-001/chainweb-node/internal/chainweb"
	"github.com/LabMember-001/chainweb-node/internal/header"
	"github.com/LabMember-001/chainweb-node/internal/powhash"
)

var engine = powhash.New(powhash.SHA512_256)

type countingHeaderDb struct {
	calls  int
	target uint256.Int
}

func (d *countingHeaderDb) HashTarget(ctx context.Context, parent *header.BlockHeader) (uint256.Int, error) {
	d.calls++
	return d.target, nil
}

type dbSet struct {
	dbs map[header.ChainId]chainweb.HeaderDb
}

func (s *dbSet) ForChain(cid header.ChainId) (chainweb.HeaderDb, bool) {
	db, ok := s.dbs[cid]
	return db, ok
}

func (s *dbSet) Insert(ctx context.Context, h *header.BlockHeader) error { return nil }

func parentHeader(height header.BlockHeight, nonce header.Nonce) *header.BlockHeader {
	return &header.BlockHeader{
		ChainId:        0,
		Height:         height,
		AdjacentHashes: header.BlockHashRecord{},
		Nonce:          nonce,
		Target:         *uint256.NewInt(500),
		Version:        "test",
	}
}

func TestGetConsultsOracleOnceThenCaches(t *testing.T) {
	db := &countingHeaderDb{target: *uint256.NewInt(777)}
	set := &dbSet{dbs: map[header.ChainId]chainweb.HeaderDb{0: db}}
	cache := New()

	parent := parentHeader(10, 1)

	t1, err := cache.Get(context.Background(), 0, parent, set, engine)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	t2, err := cache.Get(context.Background(), 0, parent, set, engine)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if t1.Cmp(&t2) != 0 {
		t.Fatalf("expected identical target from cache, got %v vs %v", t1, t2)
	}
	if db.calls != 1 {
		t.Fatalf("expected exactly one oracle consultation, got %d", db.calls)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected one cache entry, got %d", cache.Len())
	}
}

func TestGetFallsBackToParentTargetWithoutHeaderDb(t *testing.T) {
	set := &dbSet{dbs: map[header.ChainId]chainweb.HeaderDb{}}
	cache := New()
	parent := parentHeader(3, 9)

	target, err := cache.Get(context.Background(), 0, parent, set, engine)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if target.Cmp(&parent.Target) != 0 {
		t.Fatalf("expected parent's own target when no header db is configured")
	}
	if cache.Len() != 0 {
		t.Fatalf("expected the degenerate path to not populate the cache, got %d entries", cache.Len())
	}
}

func TestPruneBoundsToWindow(t *testing.T) {
	db := &countingHeaderDb{target: *uint256.NewInt(1)}
	set := &dbSet{dbs: map[header.ChainId]chainweb.HeaderDb{0: db}}
	cache := New()

	for h := header.BlockHeight(0); h < 15; h++ {
		p := parentHeader(h, header.Nonce(h))
		if _, err := cache.Get(context.Background(), 0, p, set, engine); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if cache.Len() != 15 {
		t.Fatalf("expected 15 entries before pruning, got %d", cache.Len())
	}

	const tip, window = 12, 5
	cache.Prune(tip - window)

	if cache.Len() > 15 {
		t.Fatalf("prune should never grow the cache")
	}
	for _, key := range cache.lru.Keys() {
		entry, _ := cache.lru.Peek(key)
		if entry.Height <= tip-window {
			t.Fatalf("entry at height %d survived pruning at threshold %d", entry.Height, tip-window)
		}
	}
}
