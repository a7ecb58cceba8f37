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
	"encoding/json"
	"net"
	"sync"
)

// K is the maximum number of entries held in a single bucket.
const K = 8

// NodeInfo identifies a peer: its Kademlia key, its UDP endpoint, and the
// net_id of the overlay it belongs to. Two nodes with the same id but
// different net_id are never confused, because Rpc drops any message
// whose src/dst net_id disagree with the hosting node's own.
type NodeInfo struct {
	ID    Key          `json:"id"`
	Addr  *net.UDPAddr `json:"addr"`
	NetID string       `json:"net_id"`
}

func (n NodeInfo) Equal(o NodeInfo) bool {
	return n.ID.Equal(o.ID) && n.NetID == o.NetID
}

// wireNodeInfo mirrors NodeInfo but renders Addr as the documented
// "ip:port" string instead of *net.UDPAddr's default JSON object form.
type wireNodeInfo struct {
	ID    Key    `json:"id"`
	Addr  string `json:"addr"`
	NetID string `json:"net_id"`
}

// MarshalJSON renders Addr as "ip:port" (or "" when unset).
func (n NodeInfo) MarshalJSON() ([]byte, error) {
	w := wireNodeInfo{ID: n.ID, NetID: n.NetID}
	if n.Addr != nil {
		w.Addr = n.Addr.String()
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the "ip:port" form produced by MarshalJSON.
func (n *NodeInfo) UnmarshalJSON(data []byte) error {
	var w wireNodeInfo
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	n.ID = w.ID
	n.NetID = w.NetID
	n.Addr = nil
	if w.Addr != "" {
		addr, err := net.ResolveUDPAddr("udp", w.Addr)
		if err != nil {
			return err
		}
		n.Addr = addr
	}
	return nil
}

// bucket is a FIFO of up to K NodeInfos, front = least-recently-seen.
type bucket struct {
	entries []NodeInfo
}

func (b *bucket) indexOf(id Key) int {
	for i, e := range b.entries {
		if e.ID.Equal(id) {
			return i
		}
	}
	return -1
}

// RoutingTable is owned by exactly one Kademlia Node and tracks the
// K closest-known peers at each of the 8*keyLen distance classes.
type RoutingTable struct {
	mu      sync.Mutex
	self    NodeInfo
	keyLen  int
	buckets []bucket
}

// NewRoutingTable constructs an empty table for a node with the given
// identity and key length.
func NewRoutingTable(self NodeInfo, keyLen int) *RoutingTable {
	return &RoutingTable{
		self:    self,
		keyLen:  keyLen,
		buckets: make([]bucket, 8*keyLen),
	}
}

func (rt *RoutingTable) bucketIndex(id Key) int {
	return rt.self.ID.Xor(id).ZeroesInPrefix()
}

// Update records that info was just heard from. If info is already
// present, it is moved to the most-recently-seen (tail) position. If
// its bucket has room, it is appended. Otherwise the bucket's
// least-recently-seen entry is returned so the caller can ping it;
// see ResolvePing.
func (rt *RoutingTable) Update(info NodeInfo) (displaced *NodeInfo) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	idx := rt.bucketIndex(info.ID)
	b := &rt.buckets[idx]

	if i := b.indexOf(info.ID); i >= 0 {
		e := b.entries[i]
		b.entries = append(b.entries[:i], b.entries[i+1:]...)
		b.entries = append(b.entries, e)
		return nil
	}

	if len(b.entries) < K {
		b.entries = append(b.entries, info)
		return nil
	}

	head := b.entries[0]
	return &head
}

// ResolvePing completes the Update protocol after the caller has pinged
// the displaced head: alive=true keeps the head (moves it to tail,
// discards candidate); alive=false evicts the head and appends candidate.
func (rt *RoutingTable) ResolvePing(candidate NodeInfo, head NodeInfo, alive bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	idx := rt.bucketIndex(head.ID)
	b := &rt.buckets[idx]
	i := b.indexOf(head.ID)
	if i < 0 {
		// head already gone (e.g. removed concurrently); just try to
		// insert the candidate if room exists.
		if alive {
			return
		}
		if len(b.entries) < K {
			b.entries = append(b.entries, candidate)
		}
		return
	}

	if alive {
		e := b.entries[i]
		b.entries = append(b.entries[:i], b.entries[i+1:]...)
		b.entries = append(b.entries, e)
		return
	}

	b.entries = append(b.entries[:i], b.entries[i+1:]...)
	b.entries = append(b.entries, candidate)
}

// Remove deletes the entry with the given id, if present.
func (rt *RoutingTable) Remove(id Key) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	idx := rt.bucketIndex(id)
	b := &rt.buckets[idx]
	if i := b.indexOf(id); i >= 0 {
		b.entries = append(b.entries[:i], b.entries[i+1:]...)
	}
}

// ClosestNodes returns up to n NodeInfos across all buckets, sorted
// ascending by XOR distance to target.
func (rt *RoutingTable) ClosestNodes(target Key, n int) []NodeInfo {
	rt.mu.Lock()
	all := make([]NodeInfo, 0, K*len(rt.buckets))
	for i := range rt.buckets {
		all = append(all, rt.buckets[i].entries...)
	}
	rt.mu.Unlock()

	ids := make([]Key, len(all))
	for i, e := range all {
		ids[i] = e.ID
	}
	byID := make(map[string]NodeInfo, len(all))
	for _, e := range all {
		byID[e.ID.Hex()] = e
	}
	sortByDistance(target, ids)

	if n > len(ids) {
		n = len(ids)
	}
	out := make([]NodeInfo, n)
	for i := 0; i < n; i++ {
		out[i] = byID[ids[i].Hex()]
	}
	return out
}

// BucketCount reports how many peers are currently in the bucket for id
// (used by tests asserting the K-capacity invariant).
func (rt *RoutingTable) BucketCount(id Key) int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.buckets[rt.bucketIndex(id)].entries)
}

// BucketIndexOf is the exported bucket-index computation, used by tests
// asserting the routing invariant: every entry lives in the bucket
// matching its XOR distance class from self.
func (rt *RoutingTable) BucketIndexOf(id Key) int {
	return rt.bucketIndex(id)
}
