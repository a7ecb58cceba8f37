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

// Package identity derives account addresses from Ed25519 public keys
// and renders them to and from their base64 string form.
package identity

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"
)

const (
	// Len is the raw address length in bytes.
	Len = 32
	// Version is the only defined address string-form version byte.
	Version = 0
	checksumLen = 4
)

// Address is the 32-byte derived identity of a public key.
type Address [Len]byte

var ErrBadChecksum = errors.New("identity: checksum mismatch")
var ErrBadVersion = errors.New("identity: unsupported version byte")
var ErrBadLength = errors.New("identity: decoded string has wrong length")

// Derive computes address = blake2s(blake2s(sha3_512(sha3_512(pk)))).
func Derive(pk ed25519.PublicKey) Address {
	h1 := sha3.Sum512(pk)
	h2 := sha3.Sum512(h1[:])
	b1 := blake2s.Sum256(h2[:])
	b2 := blake2s.Sum256(b1[:])
	var addr Address
	copy(addr[:], b2[:])
	return addr
}

func checksum(version byte, addr Address) [checksumLen]byte {
	buf := make([]byte, 0, 1+Len)
	buf = append(buf, version)
	buf = append(buf, addr[:]...)
	h1 := sha3.Sum512(buf)
	h2 := sha3.Sum512(h1[:])
	var out [checksumLen]byte
	copy(out[:], h2[:checksumLen])
	return out
}

// String renders base64(version ‖ address ‖ checksum).
func (a Address) String() string {
	cs := checksum(Version, a)
	buf := make([]byte, 0, 1+Len+checksumLen)
	buf = append(buf, Version)
	buf = append(buf, a[:]...)
	buf = append(buf, cs[:]...)
	return base64.StdEncoding.EncodeToString(buf)
}

// Bytes returns the raw 32-byte address.
func (a Address) Bytes() []byte {
	return a[:]
}

// Equal reports bytewise equality.
func (a Address) Equal(o Address) bool {
	return bytes.Equal(a[:], o[:])
}

// Parse decodes a string produced by String, validating version and checksum.
func Parse(s string) (Address, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Address{}, err
	}
	if len(raw) != 1+Len+checksumLen {
		return Address{}, ErrBadLength
	}
	version := raw[0]
	if version != Version {
		return Address{}, ErrBadVersion
	}
	var addr Address
	copy(addr[:], raw[1:1+Len])
	wantCs := checksum(version, addr)
	gotCs := raw[1+Len:]
	if !bytes.Equal(wantCs[:], gotCs) {
		return Address{}, ErrBadChecksum
	}
	return addr, nil
}

// FromBytes wraps a raw 32-byte address slice.
func FromBytes(b []byte) (Address, error) {
	if len(b) != Len {
		return Address{}, ErrBadLength
	}
	var addr Address
	copy(addr[:], b)
	return addr, nil
}

// MarshalJSON renders the address in its base64 string form, so
// addresses travel over the wire and in canonical signing bytes as
// strings rather than JSON arrays of numbers.
func (a Address) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON parses the base64 string form produced by MarshalJSON.
func (a *Address) UnmarshalJSON(data []byte) error {
	if len(data) < 2 {
		return ErrBadLength
	}
	parsed, err := Parse(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalText renders the address in its base64 string form. Array-kind
// types need encoding.TextMarshaler, not just json.Marshaler, to be
// usable as a JSON object key (encoding/json map-key support checks for
// TextMarshaler, falling back to MarshalJSON only for struct/slice/map
// values, never for map keys of Array kind).
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText parses the base64 string form produced by MarshalText.
func (a *Address) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
