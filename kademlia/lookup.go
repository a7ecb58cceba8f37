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
	"bytes"
	"container/heap"
	"sync"
)

// Alpha is the fan-out of concurrent FindNode RPCs per lookup round.
const Alpha = 3

// candidateHeap is a min-heap of NodeInfo ordered by XOR distance to a
// fixed target, the priority queue driving LookupNodes.
type candidateHeap struct {
	target Key
	items  []NodeInfo
}

func (h candidateHeap) Len() int { return len(h.items) }
func (h candidateHeap) Less(i, j int) bool {
	di := h.items[i].ID.Xor(h.target)
	dj := h.items[j].ID.Xor(h.target)
	return bytes.Compare(di, dj) < 0
}
func (h candidateHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *candidateHeap) Push(x interface{}) {
	h.items = append(h.items, x.(NodeInfo))
}
func (h *candidateHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// LookupNodes performs the iterative node lookup described in spec
// §4.3: seed from the local table, repeatedly query the alpha closest
// unqueried candidates, fold in newly learned peers, until exhausted.
// Returns the K closest nodes found, sorted by distance to target.
func (n *Node) LookupNodes(target Key) []NodeInfo {
	n.metricLookups.Mark(1)

	pq := &candidateHeap{target: target}
	heap.Init(pq)

	var mu sync.Mutex
	queried := make(map[string]bool)
	results := make(map[string]NodeInfo)

	seed := n.table.ClosestNodes(target, K)
	for _, s := range seed {
		queried[s.ID.Hex()] = true
		heap.Push(pq, s)
	}

	for pq.Len() > 0 {
		var batch []NodeInfo
		for pq.Len() > 0 && len(batch) < Alpha {
			batch = append(batch, heap.Pop(pq).(NodeInfo))
		}

		var wg sync.WaitGroup
		for _, peer := range batch {
			wg.Add(1)
			go func(peer NodeInfo) {
				defer wg.Done()
				found, err := n.findNodeRPC(peer, target)
				if err != nil {
					return
				}
				mu.Lock()
				results[peer.ID.Hex()] = peer
				for _, f := range found {
					if !queried[f.ID.Hex()] {
						queried[f.ID.Hex()] = true
						heap.Push(pq, f)
					}
				}
				mu.Unlock()
			}(peer)
		}
		wg.Wait()
	}

	out := make([]NodeInfo, 0, len(results))
	for _, r := range results {
		out = append(out, r)
	}
	ids := make([]Key, len(out))
	byID := make(map[string]NodeInfo, len(out))
	for i, r := range out {
		ids[i] = r.ID
		byID[r.ID.Hex()] = r
	}
	sortByDistance(target, ids)
	if len(ids) > K {
		ids = ids[:K]
	}
	final := make([]NodeInfo, len(ids))
	for i, id := range ids {
		final[i] = byID[id.Hex()]
	}
	return final
}

// Put stores (key, value) at the K nodes closest to key, found via
// LookupNodes. Storers that reject the value (predicate refusal) are
// not distinguished from storers that simply didn't reply; both are silent.
func (n *Node) Put(key Key, value []byte) {
	peers := n.LookupNodes(key)
	var wg sync.WaitGroup
	for _, p := range peers {
		wg.Add(1)
		go func(p NodeInfo) {
			defer wg.Done()
			n.storeRPC(p, key, value)
		}(p)
	}
	wg.Wait()
}

// Get performs the iterative FindValue analogue of LookupNodes,
// terminating early on the first Value reply and opportunistically
// caching it at the closest peer that didn't have it.
func (n *Node) Get(key Key) ([]byte, bool) {
	if v, ok := n.store.Get(key); ok {
		return v, true
	}

	pq := &candidateHeap{target: key}
	heap.Init(pq)

	var mu sync.Mutex
	queried := make(map[string]bool)

	seed := n.table.ClosestNodes(key, K)
	for _, s := range seed {
		queried[s.ID.Hex()] = true
		heap.Push(pq, s)
	}

	var closestNoValue *NodeInfo

	for pq.Len() > 0 {
		var batch []NodeInfo
		for pq.Len() > 0 && len(batch) < Alpha {
			batch = append(batch, heap.Pop(pq).(NodeInfo))
		}

		type outcome struct {
			peer  NodeInfo
			value []byte
			nodes []NodeInfo
			err   error
		}
		outcomes := make(chan outcome, len(batch))
		for _, peer := range batch {
			go func(peer NodeInfo) {
				v, nodes, err := n.findValueRPC(peer, key)
				outcomes <- outcome{peer, v, nodes, err}
			}(peer)
		}

		for range batch {
			o := <-outcomes
			if o.err != nil {
				continue
			}
			if o.value != nil {
				if closestNoValue != nil {
					go n.storeRPC(*closestNoValue, key, o.value)
				}
				return o.value, true
			}
			mu.Lock()
			if closestNoValue == nil || bytes.Compare(o.peer.ID.Xor(key), closestNoValue.ID.Xor(key)) < 0 {
				c := o.peer
				closestNoValue = &c
			}
			for _, f := range o.nodes {
				if !queried[f.ID.Hex()] {
					queried[f.ID.Hex()] = true
					heap.Push(pq, f)
				}
			}
			mu.Unlock()
		}
	}

	return nil, false
}
