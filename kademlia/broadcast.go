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

package kademlia

import (
	"sync"
	"time"
)

// BroadcastTimeout is how long a fingerprint is remembered in the
// broadcast/multicast dedup set before it may be relayed again. The set
// is a map from fingerprint to expiry; expired entries are swept lazily
// on each lookup.
const BroadcastTimeout = 5 * time.Minute

type broadcastTokenSet struct {
	mu      sync.Mutex
	expires map[string]time.Time
}

func newBroadcastTokenSet() *broadcastTokenSet {
	return &broadcastTokenSet{expires: make(map[string]time.Time)}
}

// seen reports whether fingerprint is already in the set (and not yet
// expired); if not, it inserts it with a fresh expiry and returns false.
func (s *broadcastTokenSet) seen(fingerprint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.sweep(now)
	if exp, ok := s.expires[fingerprint]; ok && now.Before(exp) {
		return true
	}
	s.expires[fingerprint] = now.Add(BroadcastTimeout)
	return false
}

// sweep must be called with the lock held.
func (s *broadcastTokenSet) sweep(now time.Time) {
	for k, exp := range s.expires {
		if now.After(exp) {
			delete(s.expires, k)
		}
	}
}

func fingerprint(payload []byte) Key {
	return HashKey(payload, TokenKeyLen)
}

// Broadcast floods payload to every known peer (except self). The
// fingerprint is recorded before any send so a reply racing back in
// before all sends complete is still recognised as a duplicate.
func (n *Node) Broadcast(payload []byte) {
	n.tokens.seen(fingerprint(payload).Hex())
	n.floodBroadcast(payload)
}

func (n *Node) floodBroadcast(payload []byte) {
	peers := n.table.ClosestNodes(n.info.ID, K*8*n.keyLen)
	var wg sync.WaitGroup
	for _, p := range peers {
		if p.ID.Equal(n.info.ID) {
			continue
		}
		wg.Add(1)
		go func(p NodeInfo) {
			defer wg.Done()
			sink, err := n.rpc.SendReq(Request{Broadcast: &BroadcastReq{Payload: payload}}, n.info, p)
			if err != nil {
				return
			}
			if rep := <-sink; rep == nil {
				n.table.Remove(p.ID)
			}
		}(p)
	}
	wg.Wait()
}

// onBroadcast implements the receiver side: always deliver to the app
// sink, then relay exactly once per fingerprint.
func (n *Node) onBroadcast(h ReqHandle, payload []byte) {
	n.metricBroadcasts.Mark(1)
	n.deliver(payload)
	h.Rep(Reply{Pong: &PongRep{}}, n.info)

	fp := fingerprint(payload).Hex()
	if !n.tokens.seen(fp) {
		go n.floodBroadcast(payload)
	}
}

// Multicast delivers payload toward every node whose id has prefix as a
// prefix: look up the prefix's rendezvous coordinate, split the result
// into nodes already inside the target subtree and those outside it,
// then either fan out to the former or walk toward the latter.
func (n *Node) Multicast(prefix Key, payload []byte) {
	n.tokens.seen(multicastFingerprint(prefix, payload).Hex())
	n.doMulticast(prefix, payload)
}

func multicastFingerprint(prefix Key, payload []byte) Key {
	return HashKey(append(prefix.Clone(), payload...), TokenKeyLen)
}

func (n *Node) doMulticast(prefix Key, payload []byte) {
	target := prefix.Resize(n.keyLen)
	candidates := n.LookupNodes(target)

	prefixBits := 8 * len(prefix)
	var hits, rest []NodeInfo
	for _, c := range candidates {
		d := c.ID.Xor(target)
		if d.ZeroesInPrefix() >= prefixBits {
			hits = append(hits, c)
		} else {
			rest = append(rest, c)
		}
	}

	req := Request{Multicast: &MulticastReq{Prefix: prefix, Payload: payload}}

	if len(hits) == 0 {
		// Walk toward the subtree: try candidates furthest-first until
		// one acknowledges.
		for i := len(rest) - 1; i >= 0; i-- {
			p := rest[i]
			sink, err := n.rpc.SendReq(req, n.info, p)
			if err != nil {
				continue
			}
			if rep := <-sink; rep != nil {
				return
			}
			n.table.Remove(p.ID)
		}
		return
	}

	var wg sync.WaitGroup
	for _, p := range hits {
		wg.Add(1)
		go func(p NodeInfo) {
			defer wg.Done()
			sink, err := n.rpc.SendReq(req, n.info, p)
			if err != nil {
				return
			}
			if rep := <-sink; rep == nil {
				n.table.Remove(p.ID)
			}
		}(p)
	}
	wg.Wait()
}

// onMulticast implements the receiver side: dedup, conditionally relay,
// and deliver to the app sink only when this node's own id carries prefix.
func (n *Node) onMulticast(h ReqHandle, prefix Key, payload []byte) {
	h.Rep(Reply{Pong: &PongRep{}}, n.info)

	if n.info.ID.HasPrefix(prefix) {
		n.deliver(payload)
	}

	fp := multicastFingerprint(prefix, payload).Hex()
	if !n.tokens.seen(fp) {
		go n.doMulticast(prefix, payload)
	}
}
