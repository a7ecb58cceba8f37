package identity

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveIsDeterministic(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	a1 := Derive(pub)
	a2 := Derive(pub)
	assert.True(t, a1.Equal(a2))
}

func TestStringParseRoundTrip(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	addr := Derive(pub)
	s := addr.String()

	parsed, err := Parse(s)
	require.NoError(t, err)
	assert.True(t, addr.Equal(parsed))
}

func TestParseRejectsBadChecksum(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(nil)
	addr := Derive(pub)

	raw, err := base64.StdEncoding.DecodeString(addr.String())
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	_, err = Parse(base64.StdEncoding.EncodeToString(raw))
	assert.ErrorIs(t, err, ErrBadChecksum)
}

func TestDifferentKeysDifferentAddresses(t *testing.T) {
	pub1, _, _ := ed25519.GenerateKey(nil)
	pub2, _, _ := ed25519.GenerateKey(nil)
	assert.False(t, Derive(pub1).Equal(Derive(pub2)))
}

// TestAddressAsMapKeyMarshalsViaText checks that an Address used as a
// JSON object's map key round-trips: encoding/json only accepts
// encoding.TextMarshaler for Array-kind map keys, not json.Marshaler.
func TestAddressAsMapKeyMarshalsViaText(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(nil)
	addr := Derive(pub)

	m := map[Address]int{addr: 1}
	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded map[Address]int
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 1, decoded[addr])
}
