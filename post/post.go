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

// Package post defines the signed message envelope published and
// subscribed to over the pubsub overlay.
package post

import (
	"encoding/json"
	"errors"

	"github.com/hootmesh/hootd/identity"
)

// MaxNestingDepth bounds Quoted/ReplyTo chains against unbounded or
// cyclic references; deeper incoming posts are rejected at verification.
const MaxNestingDepth = 8

// PostKind is a tagged union: exactly one field is non-nil.
type PostKind struct {
	Hoot   *Hoot       `json:"hoot,omitempty"`
	ReHoot *SignedPost `json:"rehoot,omitempty"`
	Delete *uint64     `json:"delete,omitempty"`
}

// Hoot is a short authored message, optionally quoting or replying to
// another SignedPost, and optionally mentioning other addresses.
type Hoot struct {
	Text     string            `json:"text"`
	Quoted   *SignedPost       `json:"quoted,omitempty"`
	ReplyTo  *SignedPost       `json:"reply_to,omitempty"`
	Mentions []identity.Address `json:"mentions,omitempty"`
}

// Post is the unsigned payload; Id is monotonically increasing per
// author (last-post.Id + 1).
type Post struct {
	UserAttr  UserAttribute `json:"user_attr"`
	Id        uint64        `json:"id"`
	Content   PostKind      `json:"content"`
	CreatedAt uint64        `json:"created_at"`
}

// UserAttribute is the small profile blob carried alongside each post;
// fields are a minimal, extensible set (display name, bio).
type UserAttribute struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio,omitempty"`
}

// SignedPost bundles a Post with the author's address and an Ed25519
// signature over the canonical bytes of Post (see envelope.go).
type SignedPost struct {
	Addr      identity.Address `json:"addr"`
	Post      Post             `json:"post"`
	Signature Signature        `json:"signature"`
}

// Signature is a 64-byte Ed25519 signature, rendered on the wire as a
// base64 string (encoding/json's native []byte handling) rather than an
// array of 64 numbers.
type Signature [64]byte

var errSignatureLength = errors.New("post: decoded signature has wrong length")

func (s Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(s[:])
}

func (s *Signature) UnmarshalJSON(data []byte) error {
	var b []byte
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	if len(b) != len(s) {
		return errSignatureLength
	}
	copy(s[:], b)
	return nil
}

// nestingDepth returns the quote/reply chain depth of p, used to enforce
// MaxNestingDepth during verification.
func nestingDepth(p *SignedPost) int {
	depth := 0
	for p != nil {
		child := p.Post.Content.Hoot
		if child == nil {
			break
		}
		next := child.Quoted
		if next == nil {
			next = child.ReplyTo
		}
		if next == nil {
			break
		}
		depth++
		p = next
	}
	return depth
}
