// Command chainweb-miner runs the proof-of-work mining core standalone,
// wired against the in-memory or Badger-backed reference collaborators
// in internal/store, a deterministic internal/executor, and an
// internal/gossip publisher/subscriber: locally mined cuts are gossiped
// out via gossip.PublishingCutStore, and cuts received from peers are
// applied back into the local CutStore.
//
// Grounded on cmd/poaid/main.go's flag-parse/construct-collaborators/
// start-loop shape, generalized from one fixed chain to a configurable
// chainweb version.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/LabMember-001/chainweb-node/internal/chainweb"
	"github.com/LabMember-001/chainweb-node/internal/cut"
	"github.com/LabMember-001/chainweb-node/internal/cutextend"
	"github.com/LabMember-001/chainweb-node/internal/executor"
	"github.com/LabMember-001/chainweb-node/internal/gossip"
	"github.com/LabMember-001/chainweb-node/internal/header"
	"github.com/LabMember-001/chainweb-node/internal/logging"
	"github.com/LabMember-001/chainweb-node/internal/powhash"
	"github.com/LabMember-001/chainweb-node/internal/store"
	"github.com/LabMember-001/chainweb-node/internal/targetcache"
)

func main() {
	var (
		versionName  = flag.String("version", "test-singleton", "chainweb version to mine")
		dataDir      = flag.String("data-dir", "data", "directory for persistent header/payload storage")
		minerLabel   = flag.String("miner-label", "chainweb-miner", "opaque label tagging this miner's blocks")
		listenAddr   = flag.String("listen", "/ip4/0.0.0.0/tcp/4001", "libp2p listen multiaddr for cut gossip")
		inMemoryOnly = flag.Bool("in-memory", true, "use in-memory stores instead of Badger-backed ones")
	)
	flag.Parse()

	log := logging.New()
	defer log.Sync()

	v, err := chainweb.VersionByName(*versionName)
	if err != nil {
		log.Fatalw("unknown or non-PoW chainweb version", "version", *versionName, "error", err)
		return
	}

	engine := powhash.New(v.Algo)

	genesis := make(cut.Cut, len(v.ChainIDs))
	for _, cid := range v.ChainIDs {
		genesis[cid] = &header.BlockHeader{
			ChainId:        cid,
			Height:         0,
			AdjacentHashes: header.BlockHashRecord{},
			Target:         genesisTarget(),
			Version:        v.Name,
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		dbset    chainweb.HeaderDbSet
		payloads chainweb.PayloadStore
		resolve  store.HeaderResolver
	)
	if *inMemoryOnly {
		memDbset := store.NewMemoryHeaderDbSet()
		dbset = memDbset
		payloads = store.NewMemoryPayloadStore()
		resolve = memDbset.HeaderAt
	} else {
		if err := os.MkdirAll(*dataDir, 0o755); err != nil {
			log.Fatalw("creating data directory", "dir", *dataDir, "error", err)
			return
		}
		bdbset, err := store.OpenBadgerHeaderDbSet(*dataDir)
		if err != nil {
			log.Fatalw("opening badger header db", "error", err)
			return
		}
		defer bdbset.Close()
		dbset = bdbset
		resolve = bdbset.HeaderAt

		bpayloads, err := store.OpenBadgerPayloadStore(*dataDir)
		if err != nil {
			log.Fatalw("opening badger payload store", "error", err)
			return
		}
		defer bpayloads.Close()
		payloads = bpayloads
	}

	cutStore := store.NewMemoryCutStore(genesis, resolve)

	gossipNode, err := gossip.New(ctx, *listenAddr, log)
	if err != nil {
		log.Fatalw("starting gossip node", "error", err)
		return
	}
	defer gossipNode.Close()
	log.Infow("gossip node started", "peer_id", gossipNode.Host.ID().String())

	go func() {
		_ = gossipNode.Subscribe(ctx, func(hashes cut.CutHashes) {
			log.Infow("received remote cut", "chains", len(hashes.Hashes))
			// Apply straight to the underlying store, not the
			// gossip-wrapped one below, or this would be re-published
			// right back out to the network.
			if err := cutStore.Publish(ctx, hashes); err != nil {
				log.Warnw("applying remote cut", "error", err)
			}
		})
	}()

	minerInfo := chainweb.MinerInfo{ID: uuid.New(), Label: *minerLabel}
	ex := executor.New()
	cache := targetcache.New()

	extender, err := cutextend.NewExtender(v, ex, dbset, payloads, cache, engine, minerInfo, log)
	if err != nil {
		log.Fatalw("constructing cut extender", "error", err)
		return
	}

	loop := &cutextend.Loop{
		Store:    &gossip.PublishingCutStore{CutStore: cutStore, Node: gossipNode},
		Extender: extender,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Infow("shutdown signal received")
		cancel()
	}()

	if err := loop.RunForever(ctx); err != nil {
		log.Infow("miner loop stopped", "error", err)
	}
}

// genesisTarget is the maximum possible target (2^256 - 1): trivially
// easy, suitable only for local/test runs of this standalone binary.
func genesisTarget() uint256.Int {
	var zero, max uint256.Int
	max.Not(&zero)
	return max
}
