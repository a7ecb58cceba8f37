package userhandle

import (
	"crypto/ed25519"
	"path/filepath"
	"testing"

	"github.com/hootmesh/hootd/post"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeHootAllocatesIncreasingIds(t *testing.T) {
	_, sk, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	h, err := New(sk, post.UserAttribute{DisplayName: "alice"})
	require.NoError(t, err)

	first, err := h.ComposeHoot(post.Hoot{Text: "hi"}, 1)
	require.NoError(t, err)
	second, err := h.ComposeHoot(post.Hoot{Text: "again"}, 2)
	require.NoError(t, err)

	assert.Equal(t, first.Post.Id+1, second.Post.Id)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	_, sk, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	h, err := New(sk, post.UserAttribute{DisplayName: "bob"})
	require.NoError(t, err)
	_, err = h.ComposeHoot(post.Hoot{Text: "hi"}, 1)
	require.NoError(t, err)

	_, followedSk, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	followed, err := New(followedSk, post.UserAttribute{DisplayName: "dana"})
	require.NoError(t, err)
	h.Follow(followed.Address(), &post.UserAttribute{DisplayName: "dana"})

	path := filepath.Join(t.TempDir(), "handle.json")
	require.NoError(t, h.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, h.Address(), loaded.Address())
	assert.Len(t, loaded.Posts, 1)
	assert.True(t, loaded.IsFollowing(followed.Address()))
}

func TestFollowUnfollow(t *testing.T) {
	_, sk, _ := ed25519.GenerateKey(nil)
	h, err := New(sk, post.UserAttribute{DisplayName: "carol"})
	require.NoError(t, err)

	addr := h.Address()
	h.Follow(addr, nil)
	assert.True(t, h.IsFollowing(addr))
	h.Unfollow(addr)
	assert.False(t, h.IsFollowing(addr))
}
