package kademlia

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBroadcastTokenSetDedup(t *testing.T) {
	s := newBroadcastTokenSet()
	fp := fingerprint([]byte("payload")).Hex()

	assert.False(t, s.seen(fp), "first sighting should not be marked seen")
	assert.True(t, s.seen(fp), "second sighting within window is a duplicate")
}

func TestBroadcastTokenSetExpires(t *testing.T) {
	s := newBroadcastTokenSet()
	fp := fingerprint([]byte("payload")).Hex()
	s.expires[fp] = time.Now().Add(-time.Second) // force-expire

	assert.False(t, s.seen(fp), "expired fingerprint should be treated as unseen")
}

func TestMulticastFingerprintDistinctFromBroadcast(t *testing.T) {
	payload := []byte("hello")
	prefix := Key{0xaa}
	bfp := fingerprint(payload)
	mfp := multicastFingerprint(prefix, payload)
	assert.False(t, bfp.Equal(mfp))
}
