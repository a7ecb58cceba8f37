package post

import (
	"crypto/ed25519"
	"testing"

	"github.com/hootmesh/hootd/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	keys map[identity.Address]ed25519.PublicKey
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{keys: make(map[identity.Address]ed25519.PublicKey)}
}

func (r *fakeResolver) GetPubkey(addr identity.Address) (ed25519.PublicKey, bool) {
	pk, ok := r.keys[addr]
	return pk, ok
}

func samplePost() Post {
	return Post{
		UserAttr:  UserAttribute{DisplayName: "alice"},
		Id:        1,
		Content:   PostKind{Hoot: &Hoot{Text: "hello"}},
		CreatedAt: 1700000000,
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	pub, sk, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	sp, err := Sign(sk, samplePost())
	require.NoError(t, err)

	resolver := newFakeResolver()
	resolver.keys[sp.Addr] = pub
	v := NewVerifier(resolver)

	assert.NoError(t, v.Verify(sp))
}

func TestVerifyRejectsBitFlipInPost(t *testing.T) {
	pub, sk, _ := ed25519.GenerateKey(nil)
	sp, _ := Sign(sk, samplePost())
	sp.Post.Content.Hoot.Text = "tampered"

	resolver := newFakeResolver()
	resolver.keys[sp.Addr] = pub
	v := NewVerifier(resolver)

	assert.Error(t, v.Verify(sp))
}

func TestVerifyRejectsBitFlipInSignature(t *testing.T) {
	pub, sk, _ := ed25519.GenerateKey(nil)
	sp, _ := Sign(sk, samplePost())
	sp.Signature[0] ^= 0xff

	resolver := newFakeResolver()
	resolver.keys[sp.Addr] = pub
	v := NewVerifier(resolver)

	assert.Error(t, v.Verify(sp))
}

func TestVerifyRejectsAddrMismatch(t *testing.T) {
	pub, sk, _ := ed25519.GenerateKey(nil)
	sp, _ := Sign(sk, samplePost())

	other, _, _ := ed25519.GenerateKey(nil)
	resolver := newFakeResolver()
	resolver.keys[sp.Addr] = other // wrong key for this address
	_ = pub
	v := NewVerifier(resolver)

	assert.Error(t, v.Verify(sp))
}

func TestVerifyRejectsUnknownKey(t *testing.T) {
	_, sk, _ := ed25519.GenerateKey(nil)
	sp, _ := Sign(sk, samplePost())

	v := NewVerifier(newFakeResolver())
	assert.ErrorIs(t, v.Verify(sp), ErrUnknownKey)
}

func TestVerifyRejectsExcessiveNesting(t *testing.T) {
	pub, sk, _ := ed25519.GenerateKey(nil)

	var chain *SignedPost
	for i := 0; i < MaxNestingDepth+2; i++ {
		p := samplePost()
		p.Content = PostKind{Hoot: &Hoot{Text: "reply", ReplyTo: chain}}
		sp, err := Sign(sk, p)
		require.NoError(t, err)
		chain = sp
	}

	resolver := newFakeResolver()
	resolver.keys[chain.Addr] = pub
	v := NewVerifier(resolver)

	assert.ErrorIs(t, v.Verify(chain), ErrTooDeep)
}
