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
	"net/http"
	"strings"

	"github.com/hootmesh/hootd/log"
	"github.com/julienschmidt/httprouter"
)

// NodeInfoServer is the small bootstrap HTTP endpoint: GET /test and
// GET /main each return the JSON list of hosted NodeInfos filtered by
// net_id prefix ("test" or the production nets).
type NodeInfoServer struct {
	rpc *Rpc
}

// NewNodeInfoServer wraps rpc, exposing its currently-hosted NodeInfos.
func NewNodeInfoServer(rpc *Rpc) *NodeInfoServer {
	return &NodeInfoServer{rpc: rpc}
}

func (s *NodeInfoServer) hosted(filterTest bool) []NodeInfo {
	s.rpc.nodesMu.Lock()
	defer s.rpc.nodesMu.Unlock()

	out := make([]NodeInfo, 0, len(s.rpc.nodes))
	for _, n := range s.rpc.nodes {
		isTest := strings.HasPrefix(n.info.NetID, "test_")
		if isTest == filterTest {
			out = append(out, n.info)
		}
	}
	return out
}

func (s *NodeInfoServer) handle(filterTest bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.hosted(filterTest)); err != nil {
			log.Error("kademlia: nodeinfo encode failed", "err", err)
		}
	}
}

// Router builds the httprouter.Router serving /test and /main.
func (s *NodeInfoServer) Router() *httprouter.Router {
	r := httprouter.New()
	r.GET("/test", s.handle(true))
	r.GET("/main", s.handle(false))
	return r
}

// ListenAndServe starts the nodeinfo endpoint on addr.
func (s *NodeInfoServer) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s.Router())
}

// FetchBootstrap queries a remote nodeinfo endpoint (host:port) for its
// hosted NodeInfos, used at process start to seed routing tables.
func FetchBootstrap(endpoint string, test bool) ([]NodeInfo, error) {
	path := "main"
	if test {
		path = "test"
	}
	resp, err := http.Get("http://" + endpoint + "/" + path)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var nodes []NodeInfo
	if err := json.NewDecoder(resp.Body).Decode(&nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}
