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

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"

	"golang.org/x/crypto/sha3"
)

// Key is an opaque fixed-width byte string used as both node identifier
// and DHT lookup key. Its length identifies the overlay it belongs to:
// TokenKeyLen for RPC tokens, UserDHTKeyLen for the user DHT,
// PubSubDHTKeyLen for the pubsub DHT.
type Key []byte

const (
	TokenKeyLen     = 20
	UserDHTKeyLen   = 32
	PubSubDHTKeyLen = 64
)

// NewKey copies b into a freshly allocated Key.
func NewKey(b []byte) Key {
	k := make(Key, len(b))
	copy(k, b)
	return k
}

// RandomKey returns a Key of length n filled with cryptographically
// random bytes.
func RandomKey(n int) Key {
	k := make(Key, n)
	if _, err := rand.Read(k); err != nil {
		panic("kademlia: system randomness unavailable: " + err.Error())
	}
	return k
}

// HashKey derives a Key of length n from arbitrary data via SHA3-512,
// resizing the digest to fit.
func HashKey(data []byte, n int) Key {
	sum := sha3.Sum512(data)
	return Key(sum[:]).Resize(n)
}

// Equal reports bytewise equality.
func (k Key) Equal(other Key) bool {
	return bytes.Equal(k, other)
}

// Less orders keys lexicographically; used to break ties deterministically.
func (k Key) Less(other Key) bool {
	return bytes.Compare(k, other) < 0
}

// Hex renders the key as lowercase hex, the wire encoding used by
// RpcMessage (see rpc.go).
func (k Key) Hex() string {
	return hex.EncodeToString(k)
}

// KeyFromHex parses the wire hex encoding back into a Key.
func KeyFromHex(s string) (Key, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return Key(b), nil
}

// MarshalJSON renders the key as a lowercase hex string, the documented
// wire form for token/id fields in RpcMessage. Without this, Key's
// underlying []byte would marshal as a base64 string via encoding/json's
// default []byte handling instead.
func (k Key) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.Hex())
}

// UnmarshalJSON parses the hex string form produced by MarshalJSON.
func (k *Key) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := KeyFromHex(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Xor returns the bytewise XOR of k and other. Both must have equal length.
func (k Key) Xor(other Key) Key {
	if len(k) != len(other) {
		panic("kademlia: Xor of differing-length keys")
	}
	out := make(Key, len(k))
	for i := range k {
		out[i] = k[i] ^ other[i]
	}
	return out
}

// HasPrefix reports whether k's leading bits match prefix's bits exactly,
// where prefix may be shorter than k and its bit-length is 8*len(prefix).
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	return bytes.Equal(k[:len(prefix)], prefix)
}

// ZeroesInPrefix returns the bucket index for this key when used as an
// XOR distance: the count of leading zero bits (from the most
// significant bit of the first byte) before the first set bit. An
// all-zero key of length n returns 8*n - 1, the convention used for
// "maximally close". Every prefix this package tests against is
// byte-aligned, so this differs only in sub-byte bit numbering (not in
// byte-boundary behaviour) from a bit-from-the-LSB convention; routing
// and multicast-prefix matching are internally consistent either way,
// since both only ever compare against byte-aligned thresholds.
func (k Key) ZeroesInPrefix() int {
	for byteIdx, b := range k {
		if b == 0 {
			continue
		}
		for bit := 7; bit >= 0; bit-- {
			if b&(1<<uint(bit)) != 0 {
				return byteIdx*8 + (7 - bit)
			}
		}
	}
	return 8*len(k) - 1
}

// Resize returns a copy of k truncated or zero-extended (on the right)
// to length n.
func (k Key) Resize(n int) Key {
	out := make(Key, n)
	copy(out, k)
	return out
}

// Clone returns an independent copy of k.
func (k Key) Clone() Key {
	return NewKey(k)
}

// sortByDistance sorts ids ascending by XOR distance to target.
func sortByDistance(target Key, ids []Key) {
	d := make([]Key, len(ids))
	for i, id := range ids {
		d[i] = id.Xor(target)
	}
	// insertion sort: N is small (bucket-bounded), avoids pulling in
	// sort.Slice's reflection-based comparator for a handful of elements.
	for i := 1; i < len(ids); i++ {
		j := i
		for j > 0 && bytes.Compare(d[j], d[j-1]) < 0 {
			d[j], d[j-1] = d[j-1], d[j]
			ids[j], ids[j-1] = ids[j-1], ids[j]
			j--
		}
	}
}
