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
	"github.com/hootmesh/hootd/log"
	metrics "github.com/rcrowley/go-metrics"
)

// Node implements the Kademlia state machine (PING/STORE/FIND_NODE/
// FIND_VALUE/UNICAST/BROADCAST/MULTICAST) on top of a shared Rpc. One
// process typically hosts two Nodes (UserDHT, PubSubDHT) on one Rpc.
type Node struct {
	info    NodeInfo
	keyLen  int
	rpc     *Rpc
	reqs    chan ReqHandle
	table   *RoutingTable
	store   *valueStore
	tokens  *broadcastTokenSet

	// appSink receives Unicast and Broadcast payloads, and Multicast
	// payloads when this node's id has the multicast prefix.
	appSink chan []byte

	closed chan struct{}

	metricPings      metrics.Meter
	metricStores     metrics.Meter
	metricFindNode   metrics.Meter
	metricFindValue  metrics.Meter
	metricLookups    metrics.Meter
	metricBroadcasts metrics.Meter
}

// Start registers a node with rpc, builds its routing table (seeded
// with bootstrap), launches the request handler, and performs a
// self-lookup to populate buckets.
func Start(netID string, keyLen int, nodeID Key, predicate StorePredicate, rpc *Rpc, appSink chan []byte, bootstrap []NodeInfo) *Node {
	info := NodeInfo{ID: nodeID, NetID: netID}
	reqs := rpc.Add(&info)
	n := &Node{
		info:    info,
		keyLen:  keyLen,
		rpc:     rpc,
		reqs:    reqs,
		table:   NewRoutingTable(info, keyLen),
		store:   newValueStore(predicate),
		tokens:  newBroadcastTokenSet(),
		appSink: appSink,
		closed:  make(chan struct{}),

		metricPings:      metrics.NewMeter(),
		metricStores:     metrics.NewMeter(),
		metricFindNode:   metrics.NewMeter(),
		metricFindValue:  metrics.NewMeter(),
		metricLookups:    metrics.NewMeter(),
		metricBroadcasts: metrics.NewMeter(),
	}

	for _, b := range bootstrap {
		n.table.Update(b)
	}

	go n.handleRequests()

	n.LookupNodes(nodeID)

	return n
}

// ID returns this node's identity.
func (n *Node) ID() Key { return n.info.ID }

// Info returns this node's NodeInfo, Addr already stamped with the
// Rpc's bound socket address (see Rpc.Add).
func (n *Node) Info() NodeInfo { return n.info }

// Table exposes the routing table, mainly for tests asserting
// invariants (bucket capacity, routing correctness).
func (n *Node) Table() *RoutingTable { return n.table }

// Stop closes the node's request channel consumption; the Rpc's
// dispatch loop will notice the next send failure and remove this
// node's registration.
func (n *Node) Stop() {
	close(n.closed)
}

func (n *Node) handleRequests() {
	for {
		select {
		case h := <-n.reqs:
			n.onRequest(h)
		case <-n.closed:
			return
		}
	}
}

// onRequest implements the update-routes-then-serve protocol: every
// inbound request first refreshes the sender's routing table entry.
func (n *Node) onRequest(h ReqHandle) {
	if displaced := n.table.Update(h.Src); displaced != nil {
		go n.resolveDisplacement(h.Src, *displaced)
	}
	n.serve(h)
}

// resolveDisplacement pings the bucket's LRU head; on reply it is kept
// and the new candidate discarded, on timeout it is evicted and the
// candidate inserted.
func (n *Node) resolveDisplacement(candidate, head NodeInfo) {
	rep, err := n.Ping(head)
	alive := err == nil && rep != nil
	n.table.ResolvePing(candidate, head, alive)
}

func (n *Node) serve(h ReqHandle) {
	req := h.Req
	switch {
	case req.Ping != nil:
		n.metricPings.Mark(1)
		h.Rep(Reply{Pong: &PongRep{}}, n.info)

	case req.Store != nil:
		n.metricStores.Mark(1)
		if len(req.Store.Key) != n.keyLen {
			h.Rep(Reply{Pong: &PongRep{}}, n.info)
			return
		}
		n.store.Put(req.Store.Key, req.Store.Value)
		h.Rep(Reply{Pong: &PongRep{}}, n.info)

	case req.FindNode != nil:
		n.metricFindNode.Mark(1)
		if len(req.FindNode.Target) != n.keyLen {
			h.Rep(Reply{Nodes: &NodesRep{}}, n.info)
			return
		}
		nodes := n.table.ClosestNodes(req.FindNode.Target, K)
		h.Rep(Reply{Nodes: &NodesRep{Nodes: nodes}}, n.info)

	case req.FindValue != nil:
		n.metricFindValue.Mark(1)
		if len(req.FindValue.Key) != n.keyLen {
			h.Rep(Reply{Nodes: &NodesRep{}}, n.info)
			return
		}
		if v, ok := n.store.Get(req.FindValue.Key); ok {
			h.Rep(Reply{Value: &ValueRep{Value: v}}, n.info)
			return
		}
		nodes := n.table.ClosestNodes(HashKey(req.FindValue.Key, n.keyLen), K)
		h.Rep(Reply{Nodes: &NodesRep{Nodes: nodes}}, n.info)

	case req.Unicast != nil:
		n.deliver(req.Unicast.Payload)
		h.Rep(Reply{Pong: &PongRep{}}, n.info)

	case req.Broadcast != nil:
		n.onBroadcast(h, req.Broadcast.Payload)

	case req.Multicast != nil:
		n.onMulticast(h, req.Multicast.Prefix, req.Multicast.Payload)

	default:
		log.Debug("kademlia: request with no recognised variant")
	}
}

// deliver best-effort hands payload to the application sink. A full or
// nil sink drops this one delivery only; it never evicts the node from
// the Rpc's registry (that happens only when the request channel itself
// is full or closed, see Rpc.serve).
func (n *Node) deliver(payload []byte) {
	if n.appSink == nil {
		return
	}
	select {
	case n.appSink <- payload:
	default:
		log.Debug("kademlia: app sink full, dropping delivery")
	}
}

// Ping sends a Ping to dst and waits for Pong or timeout.
func (n *Node) Ping(dst NodeInfo) (*PongRep, error) {
	sink, err := n.rpc.SendReq(Request{Ping: &PingReq{}}, n.info, dst)
	if err != nil {
		return nil, err
	}
	rep := <-sink
	if rep == nil {
		n.table.Remove(dst.ID)
		return nil, ErrTimeout
	}
	n.table.Update(dst)
	return rep.Pong, nil
}

// storeRPC sends a Store request to dst.
func (n *Node) storeRPC(dst NodeInfo, key Key, value []byte) error {
	sink, err := n.rpc.SendReq(Request{Store: &StoreReq{Key: key, Value: value}}, n.info, dst)
	if err != nil {
		return err
	}
	rep := <-sink
	if rep == nil {
		n.table.Remove(dst.ID)
		return ErrTimeout
	}
	n.table.Update(dst)
	return nil
}

// findNodeRPC sends a FindNode request to dst.
func (n *Node) findNodeRPC(dst NodeInfo, target Key) ([]NodeInfo, error) {
	sink, err := n.rpc.SendReq(Request{FindNode: &FindNodeReq{Target: target}}, n.info, dst)
	if err != nil {
		return nil, err
	}
	rep := <-sink
	if rep == nil {
		n.table.Remove(dst.ID)
		return nil, ErrTimeout
	}
	n.table.Update(dst)
	if rep.Nodes == nil {
		return nil, nil
	}
	return rep.Nodes.Nodes, nil
}

// findValueRPC sends a FindValue request to dst.
func (n *Node) findValueRPC(dst NodeInfo, key Key) (value []byte, nodes []NodeInfo, err error) {
	sink, err := n.rpc.SendReq(Request{FindValue: &FindValueReq{Key: key}}, n.info, dst)
	if err != nil {
		return nil, nil, err
	}
	rep := <-sink
	if rep == nil {
		n.table.Remove(dst.ID)
		return nil, nil, ErrTimeout
	}
	n.table.Update(dst)
	if rep.Value != nil {
		return rep.Value.Value, nil, nil
	}
	if rep.Nodes != nil {
		return nil, rep.Nodes.Nodes, nil
	}
	return nil, nil, nil
}

// Unicast forwards payload to dst's application sink.
func (n *Node) Unicast(dst NodeInfo, payload []byte) error {
	sink, err := n.rpc.SendReq(Request{Unicast: &UnicastReq{Payload: payload}}, n.info, dst)
	if err != nil {
		return err
	}
	rep := <-sink
	if rep == nil {
		n.table.Remove(dst.ID)
		return ErrTimeout
	}
	n.table.Update(dst)
	return nil
}
