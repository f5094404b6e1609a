package gossip

import (
	"context"
	"testing"

	"github.com/LabMember-001/chainweb-node/internal/cut"
	"github.com/LabMember-001/chainweb-node/internal/header"
	"github.com/LabMember-001/chainweb-node/internal/logging"
)

// fakeCutStore is the minimal chainweb.CutStore a PublishingCutStore test
// needs: only Publish is exercised.
type fakeCutStore struct {
	published []cut.CutHashes
}

func (f *fakeCutStore) Current(ctx context.Context) (cut.Cut, error) { return nil, nil }
func (f *fakeCutStore) AwaitNewer(ctx context.Context, prev cut.Cut) (cut.Cut, error) {
	return nil, nil
}
func (f *fakeCutStore) Publish(ctx context.Context, hashes cut.CutHashes) error {
	f.published = append(f.published, hashes)
	return nil
}

func TestPublishingCutStoreGossipsOnPublish(t *testing.T) {
	ctx := context.Background()
	node, err := New(ctx, "/ip4/127.0.0.1/tcp/0", logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer node.Close()

	inner := &fakeCutStore{}
	s := &PublishingCutStore{CutStore: inner, Node: node}

	hashes := cut.CutHashes{Hashes: map[header.ChainId]cut.HashAtHeight{
		0: {Height: 1, Hash: header.BlockHash{1}},
	}}
	if err := s.Publish(ctx, hashes); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(inner.published) != 1 {
		t.Fatalf("expected the wrapped CutStore to see one Publish call, got %d", len(inner.published))
	}
}
