package store

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"github.com/LabMember-001/chainweb-node/internal/cut"
	"github.com/LabMember-001/chainweb-node/internal/header"
)

func genesisCut() cut.Cut {
	return cut.Cut{
		0: {
			ChainId:        0,
			Height:         0,
			AdjacentHashes: header.BlockHashRecord{},
			Target:         *uint256.NewInt(1000),
		},
	}
}

func TestMemoryCutStoreCurrentReturnsIndependentCopy(t *testing.T) {
	c := genesisCut()
	s := NewMemoryCutStore(c, func(header.ChainId, header.BlockHeight) (*header.BlockHeader, bool) { return nil, false })

	got, err := s.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	got[0] = nil
	got2, err := s.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got2[0] == nil {
		t.Fatalf("mutating a returned cut must not affect the store's own state")
	}
}

func TestMemoryCutStorePublishResolvesAndAdvances(t *testing.T) {
	dbset := NewMemoryHeaderDbSet()
	s := NewMemoryCutStore(genesisCut(), dbset.HeaderAt)

	mined := &header.BlockHeader{
		ChainId:        0,
		Height:         1,
		AdjacentHashes: header.BlockHashRecord{},
		Target:         *uint256.NewInt(1000),
	}
	if err := dbset.Insert(context.Background(), mined); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	hashes := cut.CutHashes{Hashes: map[header.ChainId]cut.HashAtHeight{
		0: {Height: 1, Hash: header.BlockHash{1}},
	}}
	if err := s.Publish(context.Background(), hashes); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	current, err := s.Current(context.Background())
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current[0] != mined {
		t.Fatalf("expected current cut to carry the resolved header, got %+v", current[0])
	}
}

func TestMemoryCutStoreAwaitNewerUnblocksOnPublish(t *testing.T) {
	dbset := NewMemoryHeaderDbSet()
	s := NewMemoryCutStore(genesisCut(), dbset.HeaderAt)
	prev, _ := s.Current(context.Background())

	mined := &header.BlockHeader{ChainId: 0, Height: 1, AdjacentHashes: header.BlockHashRecord{}}
	_ = dbset.Insert(context.Background(), mined)

	done := make(chan cut.Cut, 1)
	go func() {
		newer, err := s.AwaitNewer(context.Background(), prev)
		if err != nil {
			t.Errorf("AwaitNewer: %v", err)
			return
		}
		done <- newer
	}()

	// Give AwaitNewer a chance to register as a subscriber before publishing.
	time.Sleep(20 * time.Millisecond)
	hashes := cut.CutHashes{Hashes: map[header.ChainId]cut.HashAtHeight{0: {Height: 1}}}
	if err := s.Publish(context.Background(), hashes); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case newer := <-done:
		if newer[0].Height != 1 {
			t.Fatalf("expected AwaitNewer to observe height 1, got %d", newer[0].Height)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("AwaitNewer did not unblock within 2s")
	}
}

func TestMemoryHeaderDbSetForChainReflectsInsert(t *testing.T) {
	s := NewMemoryHeaderDbSet()
	if _, ok := s.ForChain(0); ok {
		t.Fatalf("expected no header db before any insert")
	}
	_ = s.Insert(context.Background(), &header.BlockHeader{ChainId: 0, Height: 1, Target: *uint256.NewInt(1)})
	if _, ok := s.ForChain(0); !ok {
		t.Fatalf("expected a header db for chain 0 after insert")
	}
}
