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
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/hootmesh/hootd/log"
)

// MESSAGE_LEN bounds a single UDP read; oversize datagrams are dropped
// by the kernel/ReadFromUDP truncation and never reach the parser.
const MessageLen = 8196

// TimeOut is how long send_req waits before declaring a request timed out.
const TimeOut = 5000 * time.Millisecond

var (
	// ErrTransportDrop names the malformed/oversized/foreign-net/unknown-dst
	// datagram kind. Nothing in this package returns it: the dispatch loop
	// drops such datagrams silently, logging the reason.
	ErrTransportDrop = errors.New("kademlia: transport drop")
	ErrTimeout       = errors.New("kademlia: rpc timeout")
	ErrInvalidSrc    = errors.New("kademlia: send_req from unregistered source")
)

// RpcMessage is the exact wire shape required by the external interface:
// one JSON object per datagram.
type RpcMessage struct {
	Token Key      `json:"token"`
	Src   NodeInfo `json:"src"`
	Dst   NodeInfo `json:"dst"`
	Msg   Envelope `json:"msg"`
}

// Envelope is the tagged Request/Reply/Kill union. Exactly one field is set.
type Envelope struct {
	Kill    bool     `json:"kill,omitempty"`
	Request *Request `json:"request,omitempty"`
	Reply   *Reply   `json:"reply,omitempty"`
}

// ReqHandle is handed to a hosted Node's request channel for each
// inbound Request; Rep sends the correlated Reply back to the requester.
type ReqHandle struct {
	token Key
	Src   NodeInfo
	Req   Request
	rpc   *Rpc
}

// Rep sends rep back to the original requester, tagged with this
// handle's token and src NodeInfo as the reply's src.
func (h ReqHandle) Rep(rep Reply, src NodeInfo) {
	msg := RpcMessage{
		Token: h.token,
		Src:   src,
		Dst:   h.Src,
		Msg:   Envelope{Reply: &rep},
	}
	h.rpc.sendMsg(msg, h.Src.Addr)
}

type hostedNode struct {
	info NodeInfo
	reqs chan ReqHandle
}

// Rpc owns one UDP socket and demultiplexes datagrams to every hosted
// Node by dst.id, and every in-flight request by token. Multiple Node
// instances (one per overlay) share a single Rpc and socket.
type Rpc struct {
	conn *net.UDPConn

	startOnce sync.Once

	mu      sync.Mutex
	pending map[string]chan *Reply

	nodesMu sync.Mutex
	nodes   []hostedNode
}

// NewRpc wraps an already-bound UDP socket.
func NewRpc(conn *net.UDPConn) *Rpc {
	return &Rpc{
		conn:    conn,
		pending: make(map[string]chan *Reply),
	}
}

// Open wraps an already-bound conn, registers the first hosted node, and starts the
// dispatch loop. Additional nodes sharing the same Rpc call Add.
func Open(conn *net.UDPConn, info NodeInfo) (*Rpc, chan ReqHandle) {
	rpc := NewRpc(conn)
	reqs := rpc.Add(&info)
	rpc.StartServer()
	return rpc, reqs
}

// Add registers a new hosted node and returns its request channel. If
// info.Addr is unset, it is stamped with this Rpc's bound socket
// address, so nodeinfo advertisement (see NodeInfoServer) and any
// bootstrap peer dialing back in can reach this node.
func (r *Rpc) Add(info *NodeInfo) chan ReqHandle {
	if info.Addr == nil {
		info.Addr = r.LocalAddr()
	}
	reqs := make(chan ReqHandle, 64)
	r.nodesMu.Lock()
	r.nodes = append(r.nodes, hostedNode{info: *info, reqs: reqs})
	r.nodesMu.Unlock()
	return reqs
}

// removeNode drops a hosted node's registration, e.g. after its request
// channel send fails because the owning Node has shut down.
func (r *Rpc) removeNode(id Key) {
	r.nodesMu.Lock()
	defer r.nodesMu.Unlock()
	for i, n := range r.nodes {
		if n.info.ID.Equal(id) {
			r.nodes = append(r.nodes[:i], r.nodes[i+1:]...)
			return
		}
	}
}

func (r *Rpc) findNode(id Key) (hostedNode, bool) {
	r.nodesMu.Lock()
	defer r.nodesMu.Unlock()
	for _, n := range r.nodes {
		if n.info.ID.Equal(id) {
			return n, true
		}
	}
	return hostedNode{}, false
}

// StartServer launches the single dispatch goroutine reading datagrams
// off the socket. Safe to call more than once; only the first call
// takes effect.
func (r *Rpc) StartServer() {
	r.startOnce.Do(func() {
		go r.serve()
	})
}

func (r *Rpc) serve() {
	buf := make([]byte, MessageLen)
	for {
		n, srcAddr, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			log.Debugf("kademlia: socket closed, dispatch loop exiting: %v", err)
			return
		}
		if n >= MessageLen {
			log.Warn("kademlia: oversize datagram dropped")
			continue
		}

		var msg RpcMessage
		if err := json.Unmarshal(buf[:n], &msg); err != nil {
			log.Debug("kademlia: invalid json, dropping", "err", err)
			continue
		}
		// Trust the transport over the claimed source address.
		msg.Src.Addr = srcAddr

		host, ok := r.findNode(msg.Dst.ID)
		if !ok {
			log.Debug("kademlia: dst id matches no hosted node, dropping")
			continue
		}
		if msg.Src.NetID != host.info.NetID {
			log.Debug("kademlia: foreign net_id, dropping")
			continue
		}

		switch {
		case msg.Msg.Kill:
			return
		case msg.Msg.Request != nil:
			h := ReqHandle{token: msg.Token, Src: msg.Src, Req: *msg.Msg.Request, rpc: r}
			select {
			case host.reqs <- h:
			default:
				log.Info("kademlia: hosted node request channel full/closed, removing", "id", host.info.ID.Hex())
				r.removeNode(host.info.ID)
			}
		case msg.Msg.Reply != nil:
			r.handleReply(msg.Token, *msg.Msg.Reply)
		default:
			log.Debug("kademlia: empty envelope, dropping")
		}
	}
}

func (r *Rpc) handleReply(token Key, rep Reply) {
	key := token.Hex()
	r.mu.Lock()
	sink, ok := r.pending[key]
	if ok {
		delete(r.pending, key)
	}
	r.mu.Unlock()
	if !ok {
		log.Debug("kademlia: unsolicited reply, dropping", "token", key)
		return
	}
	sink <- &rep
}

func (r *Rpc) sendMsg(msg RpcMessage, addr *net.UDPAddr) {
	enc, err := json.Marshal(msg)
	if err != nil {
		log.Error("kademlia: failed to encode message", "err", err)
		return
	}
	if _, err := r.conn.WriteToUDP(enc, addr); err != nil {
		log.Debug("kademlia: udp write failed", "err", err)
	}
}

// SendReq transmits req from src to dst, allocating a fresh random
// token (retrying on collision), and returns a channel yielding exactly
// one value: the Reply, or nil on timeout.
func (r *Rpc) SendReq(req Request, src, dst NodeInfo) (<-chan *Reply, error) {
	if _, ok := r.findNode(src.ID); !ok {
		return nil, ErrInvalidSrc
	}

	sink := make(chan *Reply, 1)

	r.mu.Lock()
	token := RandomKey(TokenKeyLen)
	for {
		if _, exists := r.pending[token.Hex()]; !exists {
			break
		}
		token = RandomKey(TokenKeyLen)
	}
	r.pending[token.Hex()] = sink
	r.mu.Unlock()

	msg := RpcMessage{Token: token, Src: src, Dst: dst, Msg: Envelope{Request: &req}}
	r.sendMsg(msg, dst.Addr)

	time.AfterFunc(TimeOut, func() {
		r.mu.Lock()
		_, still := r.pending[token.Hex()]
		if still {
			delete(r.pending, token.Hex())
		}
		r.mu.Unlock()
		if still {
			select {
			case sink <- nil:
			default:
			}
		}
	})

	return sink, nil
}

// Close tears down the underlying socket, terminating the dispatch loop.
func (r *Rpc) Close() error {
	return r.conn.Close()
}

// LocalAddr returns the UDP address this Rpc's socket is bound to.
func (r *Rpc) LocalAddr() *net.UDPAddr {
	return r.conn.LocalAddr().(*net.UDPAddr)
}
