// Package gossip wires a CutStore's Publish side onto the network: it
// gossips CutHashes over a libp2p pubsub topic, so peers' MinerLoops see
// each other's newly mined cuts.
//
// Grounded on net/p2p.go's P2PNode (libp2p.New + pubsub.NewGossipSub +
// topic subscribe) and its JSON-encoded NewHeadMsg wire format
// (net/topics.go), generalized from a single new-head notification to
// the full CutHashes projection spec.md §4.6 publishes.
package gossip

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	multiaddr "github.com/multiformats/go-multiaddr"

	"github.com/LabMember-001/chainweb-node/internal/chainweb"
	"github.com/LabMember-001/chainweb-node/internal/cut"
	"github.com/LabMember-001/chainweb-node/internal/header"
	"github.com/LabMember-001/chainweb-node/internal/logging"
)

// CutTopic is the pubsub topic cuts are gossiped on.
const CutTopic = "chainweb/cuts/1"

// wireCut is the JSON wire form of cut.CutHashes: the hash map's
// ChainId keys are serialized as decimal strings since encoding/json
// only supports string map keys.
type wireCut struct {
	Origin *string                        `json:"origin,omitempty"`
	Hashes map[string]wireHashAtHeight `json:"hashes"`
}

type wireHashAtHeight struct {
	Height header.BlockHeight `json:"height"`
	Hash   header.BlockHash   `json:"hash"`
}

// Node is a libp2p gossip endpoint for chainweb cuts.
type Node struct {
	Host   host.Host
	pubsub *pubsub.PubSub
	topic  *pubsub.Topic
	sub    *pubsub.Subscription
	log    *logging.Logger
}

// New starts a libp2p host listening on listenAddr, joins CutTopic, and
// returns a Node ready to Publish and Subscribe.
func New(ctx context.Context, listenAddr string, log *logging.Logger) (*Node, error) {
	addr, err := multiaddr.NewMultiaddr(listenAddr)
	if err != nil {
		return nil, fmt.Errorf("gossip: parsing listen address: %w", err)
	}

	h, err := libp2p.New(libp2p.ListenAddrs(addr))
	if err != nil {
		return nil, fmt.Errorf("gossip: starting libp2p host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("gossip: starting gossipsub: %w", err)
	}

	topic, err := ps.Join(CutTopic)
	if err != nil {
		return nil, fmt.Errorf("gossip: joining topic %s: %w", CutTopic, err)
	}

	sub, err := topic.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("gossip: subscribing to topic %s: %w", CutTopic, err)
	}

	return &Node{Host: h, pubsub: ps, topic: topic, sub: sub, log: log}, nil
}

// Close tears down the pubsub subscription and the libp2p host.
func (n *Node) Close() error {
	n.sub.Cancel()
	if err := n.topic.Close(); err != nil {
		return err
	}
	return n.Host.Close()
}

// Publish gossips hashes to the cut topic.
func (n *Node) Publish(ctx context.Context, hashes cut.CutHashes) error {
	w := wireCut{Origin: hashes.Origin, Hashes: make(map[string]wireHashAtHeight, len(hashes.Hashes))}
	for cid, hh := range hashes.Hashes {
		w.Hashes[fmt.Sprintf("%d", cid)] = wireHashAtHeight{Height: hh.Height, Hash: hh.Hash}
	}
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("gossip: encoding cut: %w", err)
	}
	n.log.Infow("publishing cut", "chains", len(hashes.Hashes))
	return n.topic.Publish(ctx, data)
}

// Subscribe runs fn for every inbound cut until ctx is done, skipping
// messages that originated from this node itself.
func (n *Node) Subscribe(ctx context.Context, fn func(cut.CutHashes)) error {
	for {
		msg, err := n.sub.Next(ctx)
		if err != nil {
			return err
		}
		if msg.ReceivedFrom == n.Host.ID() {
			continue
		}
		var w wireCut
		if err := json.Unmarshal(msg.Data, &w); err != nil {
			n.log.Warnw("gossip: dropping malformed cut message", "error", err)
			continue
		}
		hashes := cut.CutHashes{Origin: w.Origin, Hashes: make(map[header.ChainId]cut.HashAtHeight, len(w.Hashes))}
		for cidStr, hh := range w.Hashes {
			var cid uint32
			if _, err := fmt.Sscanf(cidStr, "%d", &cid); err != nil {
				continue
			}
			hashes.Hashes[header.ChainId(cid)] = cut.HashAtHeight{Height: hh.Height, Hash: hh.Hash}
		}
		fn(hashes)
	}
}

// PublishingCutStore wraps a chainweb.CutStore so that every local
// Publish (from MinerLoop, per spec.md §4.6 (S2)) is also gossiped to
// the network over Node, letting Loop's ordinary Publish call double as
// the outbound half of cut propagation. Inbound cuts arriving via
// Node.Subscribe should be applied straight to the wrapped CutStore
// rather than through this wrapper, or they would be re-gossiped forever.
type PublishingCutStore struct {
	chainweb.CutStore
	Node *Node
}

func (s *PublishingCutStore) Publish(ctx context.Context, hashes cut.CutHashes) error {
	if err := s.CutStore.Publish(ctx, hashes); err != nil {
		return err
	}
	return s.Node.Publish(ctx, hashes)
}
