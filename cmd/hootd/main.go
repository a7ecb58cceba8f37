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

// Command hootd runs a Hootmesh overlay node: the shared UDP Rpc, the
// UserDHT and PubSubDHT Kademlia instances, the bootstrap nodeinfo
// endpoint, and (optionally) the WebSocket API gateway.
package main

import (
	"crypto/ed25519"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"

	cli "github.com/urfave/cli/v2"

	"github.com/hootmesh/hootd/config"
	"github.com/hootmesh/hootd/gateway"
	"github.com/hootmesh/hootd/kademlia"
	"github.com/hootmesh/hootd/log"
	"github.com/hootmesh/hootd/overlay"
	"github.com/hootmesh/hootd/post"
	"github.com/hootmesh/hootd/userhandle"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "path to a TOML config file",
	}
	listenFlag = &cli.StringFlag{
		Name:  "listen",
		Usage: "UDP address the overlay Rpc binds to",
		Value: ":30303",
	}
	nodeinfoFlag = &cli.StringFlag{
		Name:  "nodeinfo",
		Usage: "TCP address the bootstrap nodeinfo endpoint listens on",
		Value: ":30304",
	}
	bootstrapFlag = &cli.StringSliceFlag{
		Name:  "bootstrap",
		Usage: "host:port of a remote nodeinfo endpoint to seed routing from",
	}
	gatewayFlag = &cli.StringFlag{
		Name:  "gateway",
		Usage: "TCP address the WebSocket gateway listens on (empty disables it)",
	}
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "directory holding the local user handle",
		Value: "./hootd-data",
	}
)

func main() {
	app := &cli.App{
		Name:  "hootd",
		Usage: "run a Hootmesh pub/sub overlay node",
		Flags: []cli.Flag{configFlag, listenFlag, nodeinfoFlag, bootstrapFlag, gatewayFlag, dataDirFlag},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Crit("hootd: fatal startup error", "err", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String(configFlag.Name); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	if c.IsSet(listenFlag.Name) {
		cfg.ListenAddr = c.String(listenFlag.Name)
	}
	if c.IsSet(nodeinfoFlag.Name) {
		cfg.NodeInfoAddr = c.String(nodeinfoFlag.Name)
	}
	if c.IsSet(gatewayFlag.Name) {
		cfg.GatewayAddr = c.String(gatewayFlag.Name)
	}
	if c.IsSet(dataDirFlag.Name) {
		cfg.DataDir = c.String(dataDirFlag.Name)
	}
	if c.IsSet(bootstrapFlag.Name) {
		cfg.Bootstrap = c.StringSlice(bootstrapFlag.Name)
	}

	netUser, netPubsub := overlay.NetUserDHT, overlay.NetPubSubDHT
	if cfg.NetID == "test" {
		netUser, netPubsub = overlay.TestNetUserDHT, overlay.TestNetPubSubDHT
	}

	udpAddr, err := net.ResolveUDPAddr("udp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("resolving listen address: %w", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		// UDP bind failure at startup is fatal and surfaced to the caller.
		return fmt.Errorf("binding udp socket: %w", err)
	}
	rpc := kademlia.NewRpc(conn)
	rpc.StartServer()

	var bootstrapUser, bootstrapPubsub []kademlia.NodeInfo
	for _, endpoint := range cfg.Bootstrap {
		nodes, err := kademlia.FetchBootstrap(endpoint, cfg.NetID == "test")
		if err != nil {
			log.Warn("hootd: bootstrap endpoint unreachable, skipping", "endpoint", endpoint, "err", err)
			continue
		}
		for _, n := range nodes {
			if n.NetID == netUser {
				bootstrapUser = append(bootstrapUser, n)
			} else if n.NetID == netPubsub {
				bootstrapPubsub = append(bootstrapPubsub, n)
			}
		}
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	handlePath := filepath.Join(cfg.DataDir, "handle.json")
	handle, err := userhandle.Load(handlePath)
	if err != nil {
		_, sk, genErr := ed25519.GenerateKey(nil)
		if genErr != nil {
			return fmt.Errorf("generating identity: %w", genErr)
		}
		handle, err = userhandle.New(sk, post.UserAttribute{})
		if err != nil {
			return fmt.Errorf("creating user handle: %w", err)
		}
		if err := handle.Save(handlePath); err != nil {
			return fmt.Errorf("saving user handle: %w", err)
		}
	}

	userDHT := overlay.NewUserDHT(netUser, kademlia.NewKey(handle.Address().Bytes()), rpc, bootstrapUser)
	userDHT.RegisterPubkey(handle.SigningKey.Public().(ed25519.PublicKey))

	publisher := overlay.NewPublisher(netPubsub, handle.Address(), rpc, bootstrapPubsub)

	nodeinfoSrv := kademlia.NewNodeInfoServer(rpc)
	go func() {
		if err := nodeinfoSrv.ListenAndServe(cfg.NodeInfoAddr); err != nil {
			log.Error("hootd: nodeinfo server stopped", "err", err)
		}
	}()

	if cfg.GatewayAddr != "" {
		gw := gateway.NewServer(userDHT, publisher.Publish, handle)
		go func() {
			if err := http.ListenAndServe(cfg.GatewayAddr, gw); err != nil {
				log.Error("hootd: gateway server stopped", "err", err)
			}
		}()
	}

	log.Info("hootd: node started", "addr", handle.Address().String(), "listen", cfg.ListenAddr)
	select {}
}
