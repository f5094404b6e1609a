// Package targetcache memoizes per-epoch difficulty targets keyed by
// parent hash, so repeated mining attempts against the same parent don't
// re-consult the difficulty oracle.
package targetcache

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"

	"github.com/LabMember-001/chainweb-node/internal/chainweb"
	"github.com/LabMember-001/chainweb-node/internal/header"
)

// defaultSize bounds the cache well above any realistic |Chains|*W so
// Prune, not eviction, is what actually keeps it small in practice.
const defaultSize = 4096

// Entry is one memoized difficulty lookup.
type Entry struct {
	Height header.BlockHeight
	Target uint256.Int
}

// Cache is the per-miner target memoization table, owned exclusively by
// MinerLoop and threaded by value (by pointer, here) between iterations.
type Cache struct {
	mu  sync.Mutex
	lru *lru.Cache[header.BlockHash, Entry]
}

// New returns an empty Cache.
func New() *Cache {
	l, _ := lru.New[header.BlockHash, Entry](defaultSize)
	return &Cache{lru: l}
}

// Get resolves the difficulty target that a header extending parent on
// chain cid must meet, per spec.md §4.3:
//
//  1. a cache hit returns the memoized target unchanged;
//  2. a chain with no local header database (degenerate test versions)
//     returns parent's own target unchanged;
//  3. otherwise the oracle is consulted, the result is memoized keyed by
//     parent's hash, and returned.
//
// The single lru.Add call at the end is the only mutation Get performs,
// so a caller cancelled mid-oracle-call either sees the cache fully
// updated with the fresh entry or entirely untouched — never a partial
// write.
func (c *Cache) Get(ctx context.Context, cid header.ChainId, parent *header.BlockHeader, dbset chainweb.HeaderDbSet, hasher header.Hasher) (uint256.Int, error) {
	parentHash := parent.Hash(hasher)

	c.mu.Lock()
	if entry, ok := c.lru.Get(parentHash); ok {
		c.mu.Unlock()
		return entry.Target, nil
	}
	c.mu.Unlock()

	db, ok := dbset.ForChain(cid)
	if !ok {
		return parent.Target, nil
	}

	target, err := db.HashTarget(ctx, parent)
	if err != nil {
		return uint256.Int{}, err
	}

	c.mu.Lock()
	c.lru.Add(parentHash, Entry{Height: parent.Height, Target: target})
	c.mu.Unlock()
	return target, nil
}

// Prune removes every entry whose stored height does not exceed
// minHeight, bounding the cache to roughly |Chains(v)| * W entries after
// each successful mine.
func (c *Cache) Prune(minHeight header.BlockHeight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range c.lru.Keys() {
		entry, ok := c.lru.Peek(key)
		if !ok {
			continue
		}
		if entry.Height <= minHeight {
			c.lru.Remove(key)
		}
	}
}

// Len reports the current number of memoized entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
