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

// Request and Reply are tagged unions dispatched on their non-nil field:
// tagged variants over a class hierarchy. Exactly one field should be
// set at a time.
type Request struct {
	Ping       *PingReq       `json:"ping,omitempty"`
	Store      *StoreReq      `json:"store,omitempty"`
	FindNode   *FindNodeReq   `json:"find_node,omitempty"`
	FindValue  *FindValueReq  `json:"find_value,omitempty"`
	Unicast    *UnicastReq    `json:"unicast,omitempty"`
	Broadcast  *BroadcastReq  `json:"broadcast,omitempty"`
	Multicast  *MulticastReq  `json:"multicast,omitempty"`
}

type Reply struct {
	Pong  *PongRep  `json:"pong,omitempty"`
	Nodes *NodesRep `json:"nodes,omitempty"`
	Value *ValueRep `json:"value,omitempty"`
}

type PingReq struct{}
type PongRep struct{}

type StoreReq struct {
	Key   Key    `json:"key"`
	Value []byte `json:"value"`
}

type FindNodeReq struct {
	Target Key `json:"target"`
}

type NodesRep struct {
	Nodes []NodeInfo `json:"nodes"`
}

type FindValueReq struct {
	Key Key `json:"key"`
}

type ValueRep struct {
	Value []byte `json:"value"`
}

type UnicastReq struct {
	Payload []byte `json:"payload"`
}

type BroadcastReq struct {
	Payload []byte `json:"payload"`
}

type MulticastReq struct {
	Prefix  Key    `json:"prefix"`
	Payload []byte `json:"payload"`
}
