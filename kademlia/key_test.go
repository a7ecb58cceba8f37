package kademlia

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroesInPrefixAllZero(t *testing.T) {
	k := make(Key, 4)
	assert.Equal(t, 8*4-1, k.ZeroesInPrefix())
}

func TestZeroesInPrefixLeadingBit(t *testing.T) {
	k := Key{0x80, 0x00}
	assert.Equal(t, 0, k.ZeroesInPrefix())
}

func TestZeroesInPrefixSecondByte(t *testing.T) {
	k := Key{0x00, 0x01}
	assert.Equal(t, 15, k.ZeroesInPrefix())
}

func TestXorSelfIsZero(t *testing.T) {
	k := RandomKey(32)
	z := k.Xor(k)
	for _, b := range z {
		assert.Equal(t, byte(0), b)
	}
}

func TestHasPrefix(t *testing.T) {
	full := Key{0xab, 0xcd, 0x01}
	assert.True(t, full.HasPrefix(Key{0xab, 0xcd}))
	assert.False(t, full.HasPrefix(Key{0xab, 0xce}))
}

func TestResize(t *testing.T) {
	k := Key{1, 2, 3, 4}
	assert.Equal(t, Key{1, 2}, k.Resize(2))
	assert.Equal(t, Key{1, 2, 3, 4, 0, 0}, k.Resize(6))
}

func TestHexRoundTrip(t *testing.T) {
	k := RandomKey(20)
	parsed, err := KeyFromHex(k.Hex())
	assert.NoError(t, err)
	assert.True(t, k.Equal(parsed))
}

// TestKeyJSONIsHex checks that a Key marshals as its hex string, not as
// the base64 string encoding/json's default []byte handling would use.
func TestKeyJSONIsHex(t *testing.T) {
	k := Key{0xde, 0xad, 0xbe, 0xef}
	data, err := json.Marshal(k)
	require.NoError(t, err)
	assert.Equal(t, `"deadbeef"`, string(data))

	var parsed Key
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.True(t, k.Equal(parsed))
}
