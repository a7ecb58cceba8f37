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

// Package overlay hosts two cooperating Kademlia instances sharing a
// single Rpc: UserDHT (address → pubkey directory) and PubSubDHT (pure
// rendezvous coordinate space), plus the Publisher/Subscriber built atop
// PubSubDHT.
package overlay

import (
	"crypto/ed25519"

	"github.com/hootmesh/hootd/identity"
	"github.com/hootmesh/hootd/kademlia"
)

// NetUserDHT and NetPubSubDHT name the production net_ids; the "test_"
// prefixed variants are used for NodeInfoServer's /test filter.
const (
	NetUserDHT    = "user_dht"
	NetPubSubDHT  = "pubsub_dht"
	TestNetUserDHT   = "test_user_dht"
	TestNetPubSubDHT = "test_pubsub_dht"
)

// UserDHT maps an account address to its Ed25519 public key. Its store
// predicate accepts only 64-byte values of the form address(32) ‖ pk(32)
// whose embedded address matches the derived address of the embedded key.
type UserDHT struct {
	node *kademlia.Node
}

// userDHTPredicate is the StorePredicate wired into the UserDHT's Node.
func userDHTPredicate(key kademlia.Key, value []byte) bool {
	if len(value) != 64 {
		return false
	}
	addr, err := identity.FromBytes(value[:32])
	if err != nil {
		return false
	}
	pk := ed25519.PublicKey(value[32:64])
	if !identity.Derive(pk).Equal(addr) {
		return false
	}
	return kademlia.NewKey(addr.Bytes()).Equal(key)
}

// NewUserDHT starts a UserDHT Kademlia node sharing rpc, with own id
// nodeID (32 bytes) and the given bootstrap peers.
func NewUserDHT(netID string, nodeID kademlia.Key, rpc *kademlia.Rpc, bootstrap []kademlia.NodeInfo) *UserDHT {
	node := kademlia.Start(netID, kademlia.UserDHTKeyLen, nodeID, userDHTPredicate, rpc, nil, bootstrap)
	return &UserDHT{node: node}
}

// RegisterPubkey stores address(pk) ‖ pk under key = address(pk).
func (u *UserDHT) RegisterPubkey(pk ed25519.PublicKey) {
	addr := identity.Derive(pk)
	value := make([]byte, 0, 64)
	value = append(value, addr.Bytes()...)
	value = append(value, pk...)
	u.node.Put(kademlia.NewKey(addr.Bytes()), value)
}

// GetPubkey implements post.PubkeyResolver: issues Get(addr), validates
// the returned value against the predicate, and returns the embedded key.
func (u *UserDHT) GetPubkey(addr identity.Address) (ed25519.PublicKey, bool) {
	key := kademlia.NewKey(addr.Bytes())
	v, ok := u.node.Get(key)
	if !ok {
		return nil, false
	}
	if !userDHTPredicate(key, v) {
		return nil, false
	}
	return ed25519.PublicKey(v[32:64]), true
}

// Node exposes the underlying Kademlia node, mainly for tests and the
// bootstrap nodeinfo endpoint.
func (u *UserDHT) Node() *kademlia.Node { return u.node }
