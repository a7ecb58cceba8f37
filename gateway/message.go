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

// Package gateway implements the WebSocket API a client process uses to
// authenticate, compose and publish posts, and read its timeline through
// a single node process.
package gateway

import (
	"github.com/hootmesh/hootd/identity"
	"github.com/hootmesh/hootd/post"
)

// ClientMessage is what a connected client sends to the gateway.
type ClientMessage struct {
	// Challenge response: proves control of the signing key behind Addr
	// before the connection is allowed to compose. Follow and Unfollow are
	// decoded but Server does not act on them; it replies with an error.
	AuthResponse *AuthResponse `json:"auth_response,omitempty"`

	Compose   *ComposeRequest   `json:"compose,omitempty"`
	Follow    *identity.Address `json:"follow,omitempty"`
	Unfollow  *identity.Address `json:"unfollow,omitempty"`
	Timeline  *TimelineRequest  `json:"timeline,omitempty"`
}

// AuthResponse answers the server's Challenge with a signature over the
// challenge nonce, proving the client holds the signing key for Addr.
type AuthResponse struct {
	Addr      identity.Address `json:"addr"`
	Nonce     []byte           `json:"nonce"`
	Signature post.Signature   `json:"signature"`
}

// ComposeRequest asks the gateway's owning session to publish a Hoot.
type ComposeRequest struct {
	Text     string              `json:"text"`
	Mentions []identity.Address `json:"mentions,omitempty"`
}

// TimelineRequest asks for the client's current timeline snapshot.
type TimelineRequest struct {
	Limit int `json:"limit"`
}

// ServerMessage is what the gateway sends to a connected client.
type ServerMessage struct {
	Challenge *Challenge       `json:"challenge,omitempty"`
	AuthOK    *bool            `json:"auth_ok,omitempty"`
	Post      *post.SignedPost `json:"post,omitempty"`
	Timeline  []post.SignedPost `json:"timeline,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Challenge is sent immediately on connect: the client must sign Nonce
// with the Ed25519 key behind the address it claims.
type Challenge struct {
	Nonce []byte `json:"nonce"`
}
