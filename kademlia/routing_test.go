package kademlia

import (
	"encoding/json"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func peerAt(id Key) NodeInfo {
	return NodeInfo{ID: id, Addr: &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}, NetID: "test_user_dht"}
}

func TestRoutingInvariant(t *testing.T) {
	self := peerAt(make(Key, 4))
	rt := NewRoutingTable(self, 4)

	for i := 0; i < 50; i++ {
		rt.Update(peerAt(RandomKey(4)))
	}

	for i := range rt.buckets {
		for _, e := range rt.buckets[i].entries {
			d := self.ID.Xor(e.ID)
			assert.Equal(t, i, d.ZeroesInPrefix(), "bucket %d holds peer at distance class %d", i, d.ZeroesInPrefix())
		}
	}
}

func TestBucketCapacity(t *testing.T) {
	self := peerAt(make(Key, 4))
	rt := NewRoutingTable(self, 4)

	// Force up to 20 peers into one bucket, the one a random target falls
	// in, by keeping only random ids whose distance class from self
	// matches the target's.
	target := RandomKey(4)
	idx := self.ID.Xor(target).ZeroesInPrefix()
	inserted := 0
	for i := 0; i < 500 && inserted < 20; i++ {
		cand := RandomKey(4)
		if self.ID.Xor(cand).ZeroesInPrefix() == idx {
			displaced := rt.Update(peerAt(cand))
			if displaced != nil {
				rt.ResolvePing(peerAt(cand), *displaced, false)
			}
			inserted++
		}
	}

	assert.LessOrEqual(t, rt.BucketCount(target), K)
}

func TestClosestNodesSortedAscending(t *testing.T) {
	self := peerAt(make(Key, 4))
	rt := NewRoutingTable(self, 4)
	target := RandomKey(4)

	for i := 0; i < 30; i++ {
		rt.Update(peerAt(RandomKey(4)))
	}

	closest := rt.ClosestNodes(target, 5)
	for i := 1; i < len(closest); i++ {
		prev := closest[i-1].ID.Xor(target)
		cur := closest[i].ID.Xor(target)
		assert.LessOrEqual(t, byteCompare(prev, cur), 0)
	}
}

func byteCompare(a, b Key) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func TestUpdateMovesExistingToTail(t *testing.T) {
	self := peerAt(make(Key, 4))
	rt := NewRoutingTable(self, 4)
	p := peerAt(RandomKey(4))
	rt.Update(p)
	rt.Update(p)
	idx := rt.bucketIndex(p.ID)
	assert.Equal(t, 1, len(rt.buckets[idx].entries))

	// A second peer differing only in the last bit shares p's bucket;
	// re-updating p must move it behind that peer.
	qID := p.ID.Clone()
	qID[len(qID)-1] ^= 0x01
	rt.Update(peerAt(qID))
	rt.Update(p)
	entries := rt.buckets[idx].entries
	assert.True(t, entries[len(entries)-1].ID.Equal(p.ID))
}

// TestNodeInfoJSONAddrIsHostPort checks that a NodeInfo's Addr field
// marshals as an "ip:port" string rather than *net.UDPAddr's default
// JSON object form, and round-trips back to an equivalent address.
func TestNodeInfoJSONAddrIsHostPort(t *testing.T) {
	n := peerAt(RandomKey(4))
	data, err := json.Marshal(n)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"addr":"127.0.0.1:1"`)

	var parsed NodeInfo
	require.NoError(t, json.Unmarshal(data, &parsed))
	require.NotNil(t, parsed.Addr)
	assert.Equal(t, n.Addr.String(), parsed.Addr.String())
	assert.True(t, parsed.ID.Equal(n.ID))
	assert.Equal(t, n.NetID, parsed.NetID)
}

// TestNodeInfoJSONNilAddr checks the unset-Addr case survives a round trip.
func TestNodeInfoJSONNilAddr(t *testing.T) {
	n := NodeInfo{ID: RandomKey(4), NetID: "test_user_dht"}
	data, err := json.Marshal(n)
	require.NoError(t, err)

	var parsed NodeInfo
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Nil(t, parsed.Addr)
}
