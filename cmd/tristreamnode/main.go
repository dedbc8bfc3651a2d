// Command tristreamnode runs a TriStream full node: three parallel mining
// streams, a GhostDAG-ordered ledger, and authenticated peer-to-peer block
// and transaction propagation (spec §1-§9).
//
// Usage:
//
//	tristreamnode [p2p_port] [rpc_port] [--data-dir PATH] [peer_addr ...]
//	tristreamnode --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tristream-labs/tristream-chain/config"
	"github.com/tristream-labs/tristream-chain/internal/node"
)

const shutdownGrace = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) > 1 && os.Args[1] == "wallet" {
		cfg := config.Default(config.Mainnet)
		if err := config.EnsureDataDirs(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return runWallet(cfg, os.Args[2:])
	}

	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	n, err := node.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: initializing node: %v\n", err)
		return 1
	}

	if err := n.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: starting node: %v\n", err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := n.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: shutdown: %v\n", err)
		return 1
	}

	return 0
}
