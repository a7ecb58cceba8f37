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

package post

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"

	lru "github.com/hashicorp/golang-lru"
	"github.com/hootmesh/hootd/identity"
)

// verifierCacheSize bounds the Verifier's resolved-pubkey cache so a
// flood of posts from unique, never-seen-again addresses can't grow it
// without bound.
const verifierCacheSize = 4096

var (
	ErrBadSignature = errors.New("post: signature verification failed")
	ErrAddrMismatch = errors.New("post: address does not match public key")
	ErrTooDeep      = errors.New("post: quote/reply nesting too deep")
	ErrUnknownKey   = errors.New("post: public key unknown")
)

// CanonicalBytes serializes p deterministically for signing: Go's
// encoding/json already emits struct fields in declared order, so no
// extra canonicalisation pass is needed as long as Post's field graph
// never introduces a map type.
func CanonicalBytes(p Post) ([]byte, error) {
	return json.Marshal(p)
}

// Sign produces a SignedPost authored by the holder of sk.
func Sign(sk ed25519.PrivateKey, p Post) (*SignedPost, error) {
	addr := identity.Derive(sk.Public().(ed25519.PublicKey))
	canon, err := CanonicalBytes(p)
	if err != nil {
		return nil, err
	}
	sig := ed25519.Sign(sk, canon)
	sp := &SignedPost{Addr: addr, Post: p}
	copy(sp.Signature[:], sig)
	return sp, nil
}

// PubkeyResolver resolves an address to its Ed25519 public key.
// Implemented by overlay.UserDHT.
type PubkeyResolver interface {
	GetPubkey(addr identity.Address) (ed25519.PublicKey, bool)
}

// Verifier wraps a PubkeyResolver with a bounded local cache: pubkeys
// resolve from the cache first, falling back to the resolver (typically
// UserDHT.GetPubkey) on a miss.
type Verifier struct {
	resolver PubkeyResolver
	cache    *lru.Cache
}

// NewVerifier builds a Verifier backed by resolver.
func NewVerifier(resolver PubkeyResolver) *Verifier {
	cache, err := lru.New(verifierCacheSize)
	if err != nil {
		panic("post: invalid verifier cache size: " + err.Error())
	}
	return &Verifier{resolver: resolver, cache: cache}
}

func (v *Verifier) resolve(addr identity.Address) (ed25519.PublicKey, bool) {
	if cached, ok := v.cache.Get(addr); ok {
		return cached.(ed25519.PublicKey), true
	}

	pk, ok := v.resolver.GetPubkey(addr)
	if !ok {
		return nil, false
	}

	v.cache.Add(addr, pk)
	return pk, true
}

// Verify checks sp's nesting depth, re-derives the author's address from
// the resolved public key, and verifies the Ed25519 signature over the
// canonical post bytes. Unknown-pk messages are dropped (ErrUnknownKey),
// not retried synchronously.
func (v *Verifier) Verify(sp *SignedPost) error {
	if nestingDepth(sp) > MaxNestingDepth {
		return ErrTooDeep
	}

	pk, ok := v.resolve(sp.Addr)
	if !ok {
		return ErrUnknownKey
	}

	if !identity.Derive(pk).Equal(sp.Addr) {
		return ErrAddrMismatch
	}

	canon, err := CanonicalBytes(sp.Post)
	if err != nil {
		return err
	}
	sig := sp.Signature
	if !ed25519.Verify(pk, canon, sig[:]) {
		return ErrBadSignature
	}
	return nil
}
