// Package executor provides a deterministic stand-in for the chainweb
// execution service the mining core treats as out of scope (spec.md
// §1): something that builds and validates block payloads without
// actually running a virtual machine or mempool.
//
// Grounded on validator/verify.go's VerifyBlock contract shape (header
// and payload in, error out) with the LLM-inference path it performed
// replaced by a cheap deterministic hash, since payload *contents* are
// explicitly out of scope here.
package executor

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/LabMember-001/chainweb-node/internal/chainweb"
	"github.com/LabMember-001/chainweb-node/internal/header"
)

// ErrPayloadMismatch is returned by ValidateBlock when a header's
// payload hash doesn't match the payload it was built with.
var ErrPayloadMismatch = errors.New("executor: payload hash does not match header")

// Deterministic is a fake Executor: NewBlock derives an opaque payload
// from the parent's identity and a monotonic counter so repeated calls
// for the same parent never collide, and ValidateBlock only checks the
// one invariant the mining core actually depends on (the header's
// payload hash matches the payload it was given).
type Deterministic struct {
	counter uint64
}

// New returns a Deterministic executor.
func New() *Deterministic {
	return &Deterministic{}
}

// NewBlock builds a payload tagged by parent chain, height, parent hash,
// and an incrementing counter, standing in for mempool selection and
// block execution.
func (d *Deterministic) NewBlock(ctx context.Context, minerInfo chainweb.MinerInfo, parent *header.BlockHeader) (chainweb.PayloadWithOutputs, error) {
	d.counter++
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], d.counter)

	h := sha256.New()
	h.Write([]byte(fmt.Sprintf("chain:%d:height:%d", parent.ChainId, parent.Height)))
	h.Write(parent.ParentHash[:])
	h.Write(buf[:])
	sum := h.Sum(nil)

	var payloadHash header.BlockHash
	copy(payloadHash[:], sum)

	return chainweb.PayloadWithOutputs{
		PayloadHash: payloadHash,
		Payload:     sum,
		Outputs:     nil,
	}, nil
}

// ValidateBlock checks that h's payload hash matches the payload it was
// mined against. Any other payload validity concern (execution results,
// gas, signatures) is Executor's business beyond this stand-in.
func (d *Deterministic) ValidateBlock(ctx context.Context, h *header.BlockHeader, payload chainweb.PayloadWithOutputs) error {
	if h.PayloadHash != payload.PayloadHash {
		return ErrPayloadMismatch
	}
	return nil
}
