package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/holiman/uint256"

	"github.com/LabMember-001/chainweb-node/internal/chainweb"
	"github.com/LabMember-001/chainweb-node/internal/header"
)

// BadgerHeaderDbSet is a HeaderDbSet backed by a single Badger instance,
// partitioning chains by key prefix. Grounded on core/badgerstore.go's
// open/txn/key-prefix pattern (there: "block:<height>" and "chain:tip";
// here: "header:<chain>:<height>" and "tip:<chain>").
type BadgerHeaderDbSet struct {
	db     *badger.DB
	chains map[header.ChainId]*BadgerHeaderDb
}

// OpenBadgerHeaderDbSet opens (or creates) a Badger store under dataDir.
func OpenBadgerHeaderDbSet(dataDir string) (*BadgerHeaderDbSet, error) {
	dbPath := filepath.Join(dataDir, "badger")
	db, err := badger.Open(badger.DefaultOptions(dbPath).WithLogger(nil))
	if err != nil {
		return nil, err
	}
	return &BadgerHeaderDbSet{db: db, chains: make(map[header.ChainId]*BadgerHeaderDb)}, nil
}

func (s *BadgerHeaderDbSet) Close() error { return s.db.Close() }

func (s *BadgerHeaderDbSet) ForChain(cid header.ChainId) (chainweb.HeaderDb, bool) {
	if db, ok := s.chains[cid]; ok {
		return db, true
	}
	exists := false
	_ = s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(tipKey(cid))
		exists = err == nil
		return nil
	})
	if !exists {
		return nil, false
	}
	db := &BadgerHeaderDb{db: s.db, cid: cid}
	s.chains[cid] = db
	return db, true
}

func (s *BadgerHeaderDbSet) Insert(ctx context.Context, h *header.BlockHeader) error {
	buf := h.EncodeWithoutHash()
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(headerKey(h.ChainId, h.Height), buf); err != nil {
			return err
		}
		return txn.Set(tipKey(h.ChainId), heightBytes(h.Height))
	})
}

// HeaderAt decodes the header stored for cid at height, if any. It backs
// a store.HeaderResolver for a MemoryCutStore layered on top of a
// Badger-persisted header set.
func (s *BadgerHeaderDbSet) HeaderAt(cid header.ChainId, height header.BlockHeight) (*header.BlockHeader, bool) {
	var h *header.BlockHeader
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(headerKey(cid, height))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, err := header.DecodeWithoutHash(val)
			if err != nil {
				return err
			}
			h = decoded
			return nil
		})
	})
	if err != nil {
		return nil, false
	}
	return h, true
}

// BadgerHeaderDb answers difficulty-oracle queries for one chain. It
// returns the parent's own target unchanged: real retargeting logic
// (epoch-window difficulty averaging) belongs to HeaderDbSet's owner,
// out of scope for this mining core (spec.md §1).
type BadgerHeaderDb struct {
	db  *badger.DB
	cid header.ChainId
}

func (d *BadgerHeaderDb) HashTarget(ctx context.Context, parent *header.BlockHeader) (uint256.Int, error) {
	return parent.Target, nil
}

// BadgerPayloadStore is a content-addressed payload store keyed by
// payload hash. It opens its own Badger instance under dataDir/payloads,
// separate from the header set's dataDir/badger.
type BadgerPayloadStore struct {
	db *badger.DB
}

func OpenBadgerPayloadStore(dataDir string) (*BadgerPayloadStore, error) {
	dbPath := filepath.Join(dataDir, "payloads")
	db, err := badger.Open(badger.DefaultOptions(dbPath).WithLogger(nil))
	if err != nil {
		return nil, err
	}
	return &BadgerPayloadStore{db: db}, nil
}

func (s *BadgerPayloadStore) Close() error { return s.db.Close() }

func (s *BadgerPayloadStore) AddNewPayload(ctx context.Context, p chainweb.PayloadWithOutputs) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(payloadKey(p.PayloadHash), p.Payload)
	})
}

func headerKey(cid header.ChainId, height header.BlockHeight) []byte {
	return []byte(fmt.Sprintf("header:%d:%020d", cid, uint64(height)))
}

func tipKey(cid header.ChainId) []byte {
	return []byte(fmt.Sprintf("tip:%d", cid))
}

func payloadKey(h header.BlockHash) []byte {
	return append([]byte("payload:"), h[:]...)
}

func heightBytes(h header.BlockHeight) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(h))
	return b[:]
}
