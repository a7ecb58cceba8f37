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

// Package userhandle is the local-only (never transmitted) record of a
// logged-in user: their signing key, followings, and authored posts.
package userhandle

import (
	"crypto/ed25519"
	"encoding/json"
	"os"
	"sync"

	"github.com/hootmesh/hootd/identity"
	"github.com/hootmesh/hootd/post"
)

// Handle is owned by exactly one process and never transmitted over the
// wire; only the SignedUserAttr and the posts it produces leave via the
// overlay.
type Handle struct {
	mu sync.Mutex

	SignedUserAttr post.SignedPost               `json:"signed_user_attr"`
	SigningKey     ed25519.PrivateKey             `json:"signing_key"`
	Followings     map[identity.Address]*post.UserAttribute `json:"followings"`

	// NextPostID is local-only monotonic state; reconciling it across
	// multiple devices for the same account is not handled here.
	NextPostID uint64          `json:"next_post_id"`
	Posts      []post.SignedPost `json:"posts"`
}

// New creates a fresh Handle for a newly generated identity.
func New(sk ed25519.PrivateKey, attr post.UserAttribute) (*Handle, error) {
	userAttrPost := post.Post{
		UserAttr:  attr,
		Id:        0,
		Content:   post.PostKind{},
		CreatedAt: 0,
	}
	signed, err := post.Sign(sk, userAttrPost)
	if err != nil {
		return nil, err
	}
	return &Handle{
		SignedUserAttr: *signed,
		SigningKey:     sk,
		Followings:     make(map[identity.Address]*post.UserAttribute),
		NextPostID:     1,
	}, nil
}

// Address returns the owning account's address.
func (h *Handle) Address() identity.Address {
	return h.SignedUserAttr.Addr
}

// Follow records addr as followed, optionally with a cached UserAttribute.
func (h *Handle) Follow(addr identity.Address, attr *post.UserAttribute) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Followings[addr] = attr
}

// Unfollow removes addr from the followings map.
func (h *Handle) Unfollow(addr identity.Address) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.Followings, addr)
}

// IsFollowing reports whether addr is currently followed.
func (h *Handle) IsFollowing(addr identity.Address) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.Followings[addr]
	return ok
}

// ComposeHoot signs and records a new Hoot, allocating the next post id.
func (h *Handle) ComposeHoot(hoot post.Hoot, createdAt uint64) (*post.SignedPost, error) {
	h.mu.Lock()
	id := h.NextPostID
	h.NextPostID++
	h.mu.Unlock()

	p := post.Post{
		UserAttr:  h.SignedUserAttr.Post.UserAttr,
		Id:        id,
		Content:   post.PostKind{Hoot: &hoot},
		CreatedAt: createdAt,
	}
	signed, err := post.Sign(h.SigningKey, p)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.Posts = append(h.Posts, *signed)
	h.mu.Unlock()

	return signed, nil
}

// Save writes the handle as JSON to path. SigningKey is included, so a
// newly created file gets mode 0600; an existing file keeps its mode.
func (h *Handle) Save(path string) error {
	h.mu.Lock()
	data, err := json.MarshalIndent(h, "", "  ")
	h.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Load reads a Handle previously written by Save.
func Load(path string) (*Handle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var h Handle
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	if h.Followings == nil {
		h.Followings = make(map[identity.Address]*post.UserAttribute)
	}
	return &h, nil
}
