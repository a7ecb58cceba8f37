// Copyright 2026 The Hootmesh Authors
// This file is part of the Hootmesh library.
//
// The Hootmesh library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The Hootmesh library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the Hootmesh library. If not, see <http://www.gnu.org/licenses/>.

package overlay

import (
	"sync"

	"github.com/hootmesh/hootd/identity"
	"github.com/hootmesh/hootd/kademlia"
)

// NewPubSubDHT starts a PubSubDHT Kademlia node: 64-byte keys, a store
// predicate that always rejects (the key space is pure rendezvous
// coordinates, never a value store).
func NewPubSubDHT(netID string, nodeID kademlia.Key, rpc *kademlia.Rpc, appSink chan []byte, bootstrap []kademlia.NodeInfo) *kademlia.Node {
	return kademlia.Start(netID, kademlia.PubSubDHTKeyLen, nodeID, kademlia.RejectAll, rpc, appSink, bootstrap)
}

// publisherID returns address(A) ‖ 0...0 (32 bytes of address prefix,
// 32 bytes of zero).
func publisherID(addr identity.Address) kademlia.Key {
	return kademlia.NewKey(addr.Bytes()).Resize(kademlia.PubSubDHTKeyLen)
}

// subscriberID returns address(followed) ‖ random(32), placing the node
// randomly inside the target's rendezvous subtree.
func subscriberID(followed identity.Address) kademlia.Key {
	k := make(kademlia.Key, 0, kademlia.PubSubDHTKeyLen)
	k = append(k, followed.Bytes()...)
	k = append(k, kademlia.RandomKey(32)...)
	return k
}

// Publisher is a pubsub-DHT node whose id begins with its own account's
// address, from which it multicasts to subscribers of that address.
type Publisher struct {
	rpc  *kademlia.Rpc
	netID string
	node *kademlia.Node
}

// NewPublisher starts the Publisher node for account addr.
func NewPublisher(netID string, addr identity.Address, rpc *kademlia.Rpc, bootstrap []kademlia.NodeInfo) *Publisher {
	node := NewPubSubDHT(netID, publisherID(addr), rpc, nil, bootstrap)
	return &Publisher{rpc: rpc, netID: netID, node: node}
}

// Publish multicasts msg to every subscriber node whose id carries
// address(dstAddr) as a prefix.
func (p *Publisher) Publish(dstAddr identity.Address, msg []byte) {
	p.node.Multicast(kademlia.NewKey(dstAddr.Bytes()), msg)
}

// Subscriber maintains one pubsub-DHT node per followed address; each
// node's multicast deliveries are fanned into Inbox.
type Subscriber struct {
	rpc       *kademlia.Rpc
	netID     string
	bootstrap []kademlia.NodeInfo

	// Inbox receives every delivered multicast payload across all
	// followed addresses. The originating address isn't recoverable
	// from the delivery alone, so callers encode the author's address
	// inside the payload itself (post/envelope's SignedPost.Addr
	// already does this).
	Inbox chan []byte

	mu    sync.Mutex
	nodes map[identity.Address]*kademlia.Node
	stops map[identity.Address]chan struct{}
}

// NewSubscriber creates an (initially empty) Subscriber.
func NewSubscriber(netID string, rpc *kademlia.Rpc, bootstrap []kademlia.NodeInfo) *Subscriber {
	return &Subscriber{
		rpc:       rpc,
		netID:     netID,
		bootstrap: bootstrap,
		Inbox:     make(chan []byte, 256),
		nodes:     make(map[identity.Address]*kademlia.Node),
		stops:     make(map[identity.Address]chan struct{}),
	}
}

// Subscribe creates a subscriber node for addr iff one does not already
// exist; calling it again for an already-subscribed address is a no-op.
func (s *Subscriber) Subscribe(addr identity.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[addr]; exists {
		return
	}

	sink := make(chan []byte, 64)
	stop := make(chan struct{})
	node := NewPubSubDHT(s.netID, subscriberID(addr), s.rpc, sink, s.bootstrap)
	s.nodes[addr] = node
	s.stops[addr] = stop

	go s.relay(sink, stop)
}

// relay forwards sink to Inbox until stop is closed. It never ranges over
// (or closes) sink itself: deliver() may still be mid-send on it after
// node.Stop(), and closing a channel a sender can race with panics.
func (s *Subscriber) relay(sink chan []byte, stop chan struct{}) {
	for {
		select {
		case msg := <-sink:
			s.Inbox <- msg
		case <-stop:
			return
		}
	}
}

// StopSubscription drops the node for addr, taking its routing state
// with it.
func (s *Subscriber) StopSubscription(addr identity.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.nodes[addr]
	if !ok {
		return
	}
	node.Stop()
	close(s.stops[addr])
	delete(s.nodes, addr)
	delete(s.stops, addr)
}

// IsSubscribed reports whether addr currently has a live subscriber node.
func (s *Subscriber) IsSubscribed(addr identity.Address) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.nodes[addr]
	return ok
}
