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

// Package cli holds small client-side collaborators that sit on top of
// the overlay and post packages but never touch the network directly.
package cli

import "github.com/hootmesh/hootd/post"

// Timeline is an observer-local, arrival-ordered view of received posts,
// skipping Delete posts: a delete removes a post from the author's own
// record, not from other observers' already-received timelines, and no
// stronger cross-author ordering is guaranteed.
type Timeline struct {
	posts  []post.SignedPost
	byID   map[timelineKey]int
}

type timelineKey struct {
	addr string
	id   uint64
}

// NewTimeline returns an empty Timeline.
func NewTimeline() *Timeline {
	return &Timeline{byID: make(map[timelineKey]int)}
}

// Push appends sp to the timeline, unless it is a Delete post.
func (t *Timeline) Push(sp post.SignedPost) {
	if sp.Post.Content.Delete != nil {
		return
	}
	key := timelineKey{addr: sp.Addr.String(), id: sp.Post.Id}
	if _, exists := t.byID[key]; exists {
		return
	}
	t.byID[key] = len(t.posts)
	t.posts = append(t.posts, sp)
}

// Get returns the timeline in arrival order.
func (t *Timeline) Get() []post.SignedPost {
	out := make([]post.SignedPost, len(t.posts))
	copy(out, t.posts)
	return out
}

// GetByID returns the post authored by addr with the given id, if present.
func (t *Timeline) GetByID(addr string, id uint64) (post.SignedPost, bool) {
	i, ok := t.byID[timelineKey{addr: addr, id: id}]
	if !ok {
		return post.SignedPost{}, false
	}
	return t.posts[i], true
}

// Len reports the number of posts currently held.
func (t *Timeline) Len() int {
	return len(t.posts)
}
