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

// Package config loads the daemon's TOML configuration file.
package config

import (
	"os"

	"github.com/naoina/toml"
)

// Config is the on-disk shape of a node's config file.
type Config struct {
	// NetID selects which of the four fixed net identifiers this node
	// hosts overlays under: "test" or "main".
	NetID string `toml:"net_id"`

	// ListenAddr is the UDP address the shared Rpc binds to, e.g. ":30303".
	ListenAddr string `toml:"listen_addr"`

	// NodeInfoAddr is the TCP address the bootstrap nodeinfo endpoint
	// listens on, e.g. ":30304".
	NodeInfoAddr string `toml:"nodeinfo_addr"`

	// Bootstrap is a list of "host:port" nodeinfo endpoints consulted at
	// startup to seed the routing tables.
	Bootstrap []string `toml:"bootstrap"`

	// GatewayAddr is the WebSocket gateway's listen address, empty disables it.
	GatewayAddr string `toml:"gateway_addr"`

	// DataDir holds the local UserHandle file.
	DataDir string `toml:"data_dir"`

	LogLevel string `toml:"log_level"`
}

// Default returns the out-of-the-box configuration for a single local node.
func Default() *Config {
	return &Config{
		NetID:        "test",
		ListenAddr:   ":30303",
		NodeInfoAddr: ":30304",
		DataDir:      "./hootd-data",
		LogLevel:     "info",
	}
}

// Load reads and parses a TOML config file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := Default()
	if err := toml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
