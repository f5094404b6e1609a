package executor

import (
	"context"
	"testing"

	"github.com/LabMember-001/chainweb-node/internal/chainweb"
	"github.com/LabMember-001/chainweb-node/internal/header"
)

func TestNewBlockProducesSelfConsistentPayload(t *testing.T) {
	d := New()
	parent := &header.BlockHeader{ChainId: 0, Height: 5}

	payload, err := d.NewBlock(context.Background(), chainweb.MinerInfo{}, parent)
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	if payload.PayloadHash == (header.BlockHash{}) {
		t.Fatalf("expected a non-zero payload hash")
	}

	h := &header.BlockHeader{ChainId: 0, Height: 6, PayloadHash: payload.PayloadHash}
	if err := d.ValidateBlock(context.Background(), h, payload); err != nil {
		t.Fatalf("ValidateBlock rejected a payload it just built: %v", err)
	}
}

func TestNewBlockNeverRepeatsForSameParent(t *testing.T) {
	d := New()
	parent := &header.BlockHeader{ChainId: 0, Height: 5}

	first, err := d.NewBlock(context.Background(), chainweb.MinerInfo{}, parent)
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	second, err := d.NewBlock(context.Background(), chainweb.MinerInfo{}, parent)
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}
	if first.PayloadHash == second.PayloadHash {
		t.Fatalf("expected distinct payloads for repeated calls against the same parent")
	}
}

func TestValidateBlockRejectsMismatchedPayload(t *testing.T) {
	d := New()
	parent := &header.BlockHeader{ChainId: 0, Height: 5}

	payload, err := d.NewBlock(context.Background(), chainweb.MinerInfo{}, parent)
	if err != nil {
		t.Fatalf("NewBlock: %v", err)
	}

	h := &header.BlockHeader{ChainId: 0, Height: 6, PayloadHash: header.BlockHash{0xff}}
	if err := d.ValidateBlock(context.Background(), h, payload); err != ErrPayloadMismatch {
		t.Fatalf("expected ErrPayloadMismatch, got %v", err)
	}
}
