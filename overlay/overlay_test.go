package overlay

import (
	"crypto/ed25519"
	"net"
	"testing"
	"time"

	"github.com/hootmesh/hootd/identity"
	"github.com/hootmesh/hootd/kademlia"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoopbackRpc(t *testing.T) *kademlia.Rpc {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	require.NoError(t, err)
	rpc := kademlia.NewRpc(conn)
	rpc.StartServer()
	return rpc
}

func TestUserDHTPredicateAcceptsValidPair(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	addr := identity.Derive(pub)

	value := append(append([]byte{}, addr.Bytes()...), pub...)
	assert.True(t, userDHTPredicate(kademlia.NewKey(addr.Bytes()), value))
}

func TestUserDHTPredicateRejectsMismatchedAddr(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(nil)
	other, _, _ := ed25519.GenerateKey(nil)
	addr := identity.Derive(pub)

	value := append(append([]byte{}, addr.Bytes()...), other...)
	assert.False(t, userDHTPredicate(kademlia.NewKey(addr.Bytes()), value))
}

func TestUserDHTPredicateRejectsBadLength(t *testing.T) {
	assert.False(t, userDHTPredicate(kademlia.NewKey(make([]byte, 32)), make([]byte, 65)))
}

func TestPublisherSubscriberIDsShareAddressPrefix(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(nil)
	addr := identity.Derive(pub)

	pubID := publisherID(addr)
	subID := subscriberID(addr)

	assert.True(t, pubID.HasPrefix(kademlia.NewKey(addr.Bytes())))
	assert.True(t, subID.HasPrefix(kademlia.NewKey(addr.Bytes())))
	assert.Equal(t, kademlia.PubSubDHTKeyLen, len(pubID))
	assert.Equal(t, kademlia.PubSubDHTKeyLen, len(subID))
}

func TestSubscribeIsIdempotent(t *testing.T) {
	rpc := newLoopbackRpc(t)
	defer rpc.Close()
	sub := NewSubscriber("test_pubsub_dht", rpc, nil)

	pub, _, _ := ed25519.GenerateKey(nil)
	addr := identity.Derive(pub)

	sub.Subscribe(addr)
	first := sub.nodes[addr]
	sub.Subscribe(addr)
	second := sub.nodes[addr]

	assert.Same(t, first, second, "second Subscribe must not replace the existing node")
}

func TestStopSubscriptionRemoves(t *testing.T) {
	rpc := newLoopbackRpc(t)
	defer rpc.Close()
	sub := NewSubscriber("test_pubsub_dht", rpc, nil)

	pub, _, _ := ed25519.GenerateKey(nil)
	addr := identity.Derive(pub)

	sub.Subscribe(addr)
	assert.True(t, sub.IsSubscribed(addr))
	sub.StopSubscription(addr)
	assert.False(t, sub.IsSubscribed(addr))
}

// TestPubSubDelivery checks that a publisher multicasting to its own
// address prefix is received by a subscriber of that address.
func TestPubSubDelivery(t *testing.T) {
	rpcPub := newLoopbackRpc(t)
	defer rpcPub.Close()
	rpcSub := newLoopbackRpc(t)
	defer rpcSub.Close()

	pub, _, _ := ed25519.GenerateKey(nil)
	addr := identity.Derive(pub)

	publisher := NewPublisher("test_pubsub_dht", addr, rpcPub, nil)

	subscriber := NewSubscriber("test_pubsub_dht", rpcSub, nil)
	subscriber.Subscribe(addr)

	// Cross-wire the two nodes' routing tables directly (in lieu of a
	// bootstrap/nodeinfo round trip) so multicast has somewhere to walk.
	pubInfo := publisher.node.Info()
	pubInfo.Addr = rpcPub.LocalAddr()
	for _, n := range subscriber.nodes {
		n.Table().Update(pubInfo)
		subInfo := n.Info()
		subInfo.Addr = rpcSub.LocalAddr()
		publisher.node.Table().Update(subInfo)
	}

	publisher.Publish(addr, []byte("hello"))

	select {
	case msg := <-subscriber.Inbox:
		assert.Equal(t, []byte("hello"), msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for multicast delivery")
	}
}
