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

package kademlia

import "sync"

// StorePredicate decides whether a value may be accepted into the value
// store for a given key. It is captured at Node construction, must be
// pure and fast: it runs under the store's lock.
type StorePredicate func(key Key, value []byte) bool

// AcceptAll is a StorePredicate that accepts every value; unused in this
// module's two real overlays but handy in tests.
func AcceptAll(Key, []byte) bool { return true }

// RejectAll is the PubSubDHT's predicate: the store is never written,
// its key space exists purely as rendezvous coordinates.
func RejectAll(Key, []byte) bool { return false }

type valueStore struct {
	mu        sync.Mutex
	predicate StorePredicate
	values    map[string][]byte
}

func newValueStore(predicate StorePredicate) *valueStore {
	return &valueStore{predicate: predicate, values: make(map[string][]byte)}
}

// Put inserts value under key if the predicate accepts it. Returns
// whether the value was accepted.
func (s *valueStore) Put(key Key, value []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.predicate(key, value) {
		return false
	}
	s.values[key.Hex()] = value
	return true
}

// Get returns the stored value for key, if present.
func (s *valueStore) Get(key Key) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key.Hex()]
	return v, ok
}
