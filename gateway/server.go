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

package gateway

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hootmesh/hootd/cli"
	"github.com/hootmesh/hootd/identity"
	"github.com/hootmesh/hootd/log"
	"github.com/hootmesh/hootd/post"
	"github.com/hootmesh/hootd/userhandle"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Session is one connected client's authenticated state.
type Session struct {
	ID       uuid.UUID
	conn     *websocket.Conn
	handle   *userhandle.Handle
	timeline *cli.Timeline

	mu        sync.Mutex
	nonce     []byte
	authed    bool
	claimedPK ed25519.PublicKey
}

// Server is the WebSocket API gateway for a single local account: the
// daemon's own userhandle.Handle. Publish is wired to whatever
// overlay.Publisher the owning process runs; resolver to the UserDHT.
type Server struct {
	resolver post.PubkeyResolver
	publish  func(addr identity.Address, msg []byte)
	handle   *userhandle.Handle

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewServer wires a gateway atop resolver (typically an *overlay.UserDHT),
// publish (typically (*overlay.Publisher).Publish), and the daemon's own
// local handle, which a session is bound to once it authenticates as
// that handle's address.
func NewServer(resolver post.PubkeyResolver, publish func(identity.Address, []byte), handle *userhandle.Handle) *Server {
	return &Server{
		resolver: resolver,
		publish:  publish,
		handle:   handle,
		sessions: make(map[uuid.UUID]*Session),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("gateway: websocket upgrade failed", "err", err)
		return
	}

	sess := &Session{ID: uuid.New(), conn: conn, nonce: randomNonce(), timeline: cli.NewTimeline()}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.ID)
		s.mu.Unlock()
		conn.Close()
	}()

	if err := conn.WriteJSON(ServerMessage{Challenge: &Challenge{Nonce: sess.nonce}}); err != nil {
		return
	}

	s.serveSession(sess)
}

func randomNonce() []byte {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("gateway: system randomness unavailable: " + err.Error())
	}
	return b
}

func (s *Server) serveSession(sess *Session) {
	for {
		var msg ClientMessage
		if err := sess.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch {
		case msg.AuthResponse != nil:
			s.handleAuth(sess, msg.AuthResponse)
		case msg.Compose != nil:
			s.handleCompose(sess, msg.Compose)
		case msg.Timeline != nil:
			s.handleTimeline(sess, msg.Timeline)
		default:
			sess.conn.WriteJSON(ServerMessage{Error: "unrecognised or pre-auth message"})
		}
	}
}

// handleAuth validates the client's challenge-response signature against
// the claimed address's registered public key.
func (s *Server) handleAuth(sess *Session, resp *AuthResponse) {
	pk, ok := s.resolver.GetPubkey(resp.Addr)
	if !ok {
		sess.conn.WriteJSON(ServerMessage{Error: "unknown address"})
		return
	}

	sess.mu.Lock()
	nonce := sess.nonce
	sess.mu.Unlock()

	sig := resp.Signature
	ok = ed25519.Verify(pk, nonce, sig[:])

	sess.mu.Lock()
	sess.authed = ok
	if ok {
		sess.claimedPK = pk
		if s.handle != nil && s.handle.Address().Equal(resp.Addr) {
			sess.handle = s.handle
		}
	}
	sess.mu.Unlock()

	sess.conn.WriteJSON(ServerMessage{AuthOK: &ok})
}

func (s *Server) handleCompose(sess *Session, req *ComposeRequest) {
	sess.mu.Lock()
	authed := sess.authed
	sess.mu.Unlock()
	if !authed {
		sess.conn.WriteJSON(ServerMessage{Error: "not authenticated"})
		return
	}
	if sess.handle == nil {
		sess.conn.WriteJSON(ServerMessage{Error: "no local user handle bound to session"})
		return
	}

	signed, err := sess.handle.ComposeHoot(post.Hoot{Text: req.Text, Mentions: req.Mentions}, 0)
	if err != nil {
		sess.conn.WriteJSON(ServerMessage{Error: err.Error()})
		return
	}

	sess.timeline.Push(*signed)
	s.publish(sess.handle.Address(), mustMarshal(signed))
	sess.conn.WriteJSON(ServerMessage{Post: signed})
}

func (s *Server) handleTimeline(sess *Session, req *TimelineRequest) {
	posts := sess.timeline.Get()
	if req.Limit > 0 && len(posts) > req.Limit {
		posts = posts[len(posts)-req.Limit:]
	}
	sess.conn.WriteJSON(ServerMessage{Timeline: posts})
}

func mustMarshal(v interface{}) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error("gateway: failed to marshal outbound post", "err", err)
		return nil
	}
	return b
}
