package kademlia

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRpc(t *testing.T) *Rpc {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	rpc := NewRpc(conn)
	rpc.StartServer()
	return rpc
}

func startTestNode(t *testing.T, rpc *Rpc) *Node {
	t.Helper()
	return Start("test_user_dht", UserDHTKeyLen, RandomKey(UserDHTKeyLen), AcceptAll, rpc, make(chan []byte, 8), nil)
}

// TestPingTimeout checks that a Ping to a NodeInfo whose socket never
// replies times out after TimeOut and the target is evicted.
func TestPingTimeout(t *testing.T) {
	rpc := newTestRpc(t)
	defer rpc.Close()
	a := startTestNode(t, rpc)

	// A NodeInfo pointing at a UDP address nothing listens on.
	deadAddr, err := net.ResolveUDPAddr("udp", "127.0.0.1:1")
	require.NoError(t, err)
	dead := NodeInfo{ID: RandomKey(UserDHTKeyLen), Addr: deadAddr, NetID: "test_user_dht"}
	a.table.Update(dead)

	start := time.Now()
	_, err = a.Ping(dead)
	elapsed := time.Since(start)

	assert.Error(t, err)
	assert.GreaterOrEqual(t, elapsed, TimeOut)
	assert.Equal(t, 0, a.table.BucketCount(dead.ID))
}

// TestStartStampsNodeInfoAddr checks that a started Node's Info() carries
// the hosting Rpc's bound UDP address without the caller having to set it,
// so a bootstrap nodeinfo response advertises a dialable address.
func TestStartStampsNodeInfoAddr(t *testing.T) {
	rpc := newTestRpc(t)
	defer rpc.Close()
	n := startTestNode(t, rpc)

	require.NotNil(t, n.Info().Addr)
	assert.Equal(t, rpc.LocalAddr().String(), n.Info().Addr.String())
}

// TestPingRoundTrip exercises two real nodes replying to each other.
func TestPingRoundTrip(t *testing.T) {
	rpcA := newTestRpc(t)
	defer rpcA.Close()
	rpcB := newTestRpc(t)
	defer rpcB.Close()

	a := startTestNode(t, rpcA)
	b := startTestNode(t, rpcB)

	bInfo := b.Info()
	bInfo.Addr = rpcB.conn.LocalAddr().(*net.UDPAddr)

	pong, err := a.Ping(bInfo)
	require.NoError(t, err)
	assert.NotNil(t, pong)
}

// TestStoreGetRoundTrip checks that a value stored on one node via
// storeRPC is retrievable from that node's own store.
func TestStoreGetRoundTrip(t *testing.T) {
	rpcA := newTestRpc(t)
	defer rpcA.Close()
	rpcB := newTestRpc(t)
	defer rpcB.Close()

	a := startTestNode(t, rpcA)
	b := startTestNode(t, rpcB)

	bInfo := b.Info()
	bInfo.Addr = rpcB.conn.LocalAddr().(*net.UDPAddr)
	a.table.Update(bInfo)
	aInfo := a.Info()
	aInfo.Addr = rpcA.conn.LocalAddr().(*net.UDPAddr)
	b.table.Update(aInfo)

	key := HashKey([]byte("hello"), UserDHTKeyLen)
	err := a.storeRPC(bInfo, key, []byte("world"))
	require.NoError(t, err)

	v, ok := b.store.Get(key)
	require.True(t, ok)
	assert.Equal(t, []byte("world"), v)
}

// TestLengthPredicateRejectsWrongSize checks that a predicate enforcing a
// fixed value length rejects the wrong size.
func TestLengthPredicateRejectsWrongSize(t *testing.T) {
	predicate := func(k Key, v []byte) bool {
		return len(v) == 64
	}
	assert.True(t, predicate(nil, make([]byte, 64)))
	assert.False(t, predicate(nil, make([]byte, 65)))
}

// TestTokenUniqueness checks that repeated token allocation never
// collides: 50 in-flight SendReq calls leave 50 distinct pending tokens.
func TestTokenUniqueness(t *testing.T) {
	rpc := newTestRpc(t)
	defer rpc.Close()

	self := NodeInfo{ID: RandomKey(UserDHTKeyLen), NetID: "test_user_dht"}
	rpc.Add(&self)
	deadAddr, _ := net.ResolveUDPAddr("udp", "127.0.0.1:1")
	dead := NodeInfo{ID: RandomKey(UserDHTKeyLen), Addr: deadAddr, NetID: "test_user_dht"}

	for i := 0; i < 50; i++ {
		_, err := rpc.SendReq(Request{Ping: &PingReq{}}, self, dead)
		require.NoError(t, err)
	}
	rpc.mu.Lock()
	inFlight := len(rpc.pending)
	rpc.mu.Unlock()
	assert.Equal(t, 50, inFlight)
}
