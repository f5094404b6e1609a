// Package store provides reference implementations of the mining core's
// out-of-scope collaborator contracts (CutStore, HeaderDbSet,
// PayloadStore): an in-memory version for tests and local runs, and a
// Badger-backed version for anything meant to survive a restart.
package store

import (
	"context"
	"sync"

	"github.com/holiman/uint256"

	"github.com/LabMember-001/chainweb-node/internal/chainweb"
	"github.com/LabMember-001/chainweb-node/internal/cut"
	"github.com/LabMember-001/chainweb-node/internal/header"
)

// MemoryCutStore is an in-process CutStore. AwaitNewer is grounded on
// core/chain.go's SubscribeToHeadChanges/notifyHeadChange subscriber-
// channel pattern, generalized from "any head change" to "a cut strictly
// newer than the one the caller already has".
type MemoryCutStore struct {
	mu          sync.Mutex
	current     cut.Cut
	subscribers []chan struct{}
	resolve     HeaderResolver
}

// HeaderResolver looks up the full header a CutHashes wire entry refers
// to, by chain and height. MemoryCutStore.Publish uses this to turn the
// hash-only record it's handed back into the full headers its Cut needs
// — mirroring how a real CutDb resolves a gossiped cut against its own
// BlockHeaderDb before adopting it.
type HeaderResolver func(cid header.ChainId, height header.BlockHeight) (*header.BlockHeader, bool)

// NewMemoryCutStore seeds the store with an initial cut (typically all
// genesis headers) and a resolver used to turn published CutHashes back
// into full headers.
func NewMemoryCutStore(genesis cut.Cut, resolve HeaderResolver) *MemoryCutStore {
	return &MemoryCutStore{current: genesis.Clone(), resolve: resolve}
}

func (s *MemoryCutStore) Current(ctx context.Context) (cut.Cut, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone(), nil
}

// AwaitNewer blocks until the stored cut strictly dominates prev on at
// least one chain (a strictly greater height), or ctx is done.
func (s *MemoryCutStore) AwaitNewer(ctx context.Context, prev cut.Cut) (cut.Cut, error) {
	for {
		s.mu.Lock()
		if isNewer(s.current, prev) {
			newer := s.current.Clone()
			s.mu.Unlock()
			return newer, nil
		}
		ch := make(chan struct{}, 1)
		s.subscribers = append(s.subscribers, ch)
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ch:
		}
	}
}

// Publish resolves hashes back into full headers via the configured
// HeaderResolver (they must already have been inserted into the header
// DB before Publish is called, per spec.md §5's ordering guarantee) and
// installs the result as the current cut.
func (s *MemoryCutStore) Publish(ctx context.Context, hashes cut.CutHashes) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Clone()
	for cid, hh := range hashes.Hashes {
		h, ok := s.resolve(cid, hh.Height)
		if !ok {
			continue
		}
		next[cid] = h
	}
	s.current = next
	s.notifyLocked()
	return nil
}

// Advance is a test hook for installing a cut directly, bypassing
// HeaderResolver — useful when a test wants to assert on AwaitNewer
// without first inserting headers into a HeaderDbSet.
func (s *MemoryCutStore) Advance(next cut.Cut) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = next.Clone()
	s.notifyLocked()
}

func (s *MemoryCutStore) notifyLocked() {
	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	s.subscribers = s.subscribers[:0]
}

func isNewer(current, prev cut.Cut) bool {
	for cid, h := range current {
		p, ok := prev[cid]
		if !ok || p == nil {
			return true
		}
		if h.Height > p.Height {
			return true
		}
	}
	return false
}

// MemoryHeaderDb is a trivial HeaderDb whose difficulty target never
// changes across an epoch: it always returns the parent's own target.
// Tests that need retargeting behavior provide their own HeaderDb.
type MemoryHeaderDb struct {
	mu      sync.Mutex
	headers map[header.BlockHeight]*header.BlockHeader
}

func newMemoryHeaderDb() *MemoryHeaderDb {
	return &MemoryHeaderDb{headers: make(map[header.BlockHeight]*header.BlockHeader)}
}

func (d *MemoryHeaderDb) HashTarget(ctx context.Context, parent *header.BlockHeader) (uint256.Int, error) {
	return parent.Target, nil
}

// MemoryHeaderDbSet collects one MemoryHeaderDb per chain, created lazily
// on first insert.
type MemoryHeaderDbSet struct {
	mu    sync.Mutex
	dbs   map[header.ChainId]*MemoryHeaderDb
	byCid map[header.ChainId][]*header.BlockHeader
}

// NewMemoryHeaderDbSet returns a HeaderDbSet with no chains configured;
// each chain's HeaderDb is created the first time a header for it is
// inserted.
func NewMemoryHeaderDbSet() *MemoryHeaderDbSet {
	return &MemoryHeaderDbSet{
		dbs:   make(map[header.ChainId]*MemoryHeaderDb),
		byCid: make(map[header.ChainId][]*header.BlockHeader),
	}
}

func (s *MemoryHeaderDbSet) ForChain(cid header.ChainId) (chainweb.HeaderDb, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	db, ok := s.dbs[cid]
	return db, ok
}

func (s *MemoryHeaderDbSet) Insert(ctx context.Context, h *header.BlockHeader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dbs[h.ChainId]; !ok {
		s.dbs[h.ChainId] = newMemoryHeaderDb()
	}
	s.byCid[h.ChainId] = append(s.byCid[h.ChainId], h)
	return nil
}

// HeaderAt returns the header inserted for cid at height, if any. It
// backs HeaderResolver for a MemoryCutStore sharing this header set.
func (s *MemoryHeaderDbSet) HeaderAt(cid header.ChainId, height header.BlockHeight) (*header.BlockHeader, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.byCid[cid] {
		if h.Height == height {
			return h, true
		}
	}
	return nil, false
}

// MemoryPayloadStore is a content-addressed payload store keyed by
// payload hash.
type MemoryPayloadStore struct {
	mu       sync.Mutex
	payloads map[header.BlockHash]chainweb.PayloadWithOutputs
}

func NewMemoryPayloadStore() *MemoryPayloadStore {
	return &MemoryPayloadStore{payloads: make(map[header.BlockHash]chainweb.PayloadWithOutputs)}
}

func (s *MemoryPayloadStore) AddNewPayload(ctx context.Context, p chainweb.PayloadWithOutputs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[p.PayloadHash] = p
	return nil
}

func (s *MemoryPayloadStore) Get(h header.BlockHash) (chainweb.PayloadWithOutputs, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payloads[h]
	return p, ok
}
