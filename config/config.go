// Package config handles node and genesis configuration.
//
// Configuration is split into two categories, following the teacher's
// layout:
//   - Protocol rules: defined in Genesis, immutable, must match across all
//     nodes or consensus breaks.
//   - Node settings: Config, runtime configuration that can vary per node
//     without affecting consensus (spec §6).
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// NetworkType selects which genesis and default parameter set a node runs.
type NetworkType int

const (
	Mainnet NetworkType = iota
	Testnet
)

// String returns the network's lowercase name.
func (n NetworkType) String() string {
	if n == Testnet {
		return "testnet"
	}
	return "mainnet"
}

// ParseNetworkType parses "mainnet" or "testnet" (case-sensitive, matching
// the config file and CLI surface).
func ParseNetworkType(s string) (NetworkType, error) {
	switch s {
	case "mainnet", "":
		return Mainnet, nil
	case "testnet":
		return Testnet, nil
	default:
		return Mainnet, &UnknownNetworkError{Value: s}
	}
}

// UnknownNetworkError reports an unrecognized --network value.
type UnknownNetworkError struct{ Value string }

func (e *UnknownNetworkError) Error() string {
	return "unknown network: " + e.Value
}

// Config holds node-specific runtime configuration (spec §6's field list,
// plus the operational fields every node needs to actually run: P2P seeds,
// the mining/ordering choice, logging, and the cross-shard abort timeout
// spec §9 asks implementers to pick).
type Config struct {
	Network NetworkType `conf:"network"`

	// Core (spec §6)
	ListenPort     int           `conf:"listen_port"`
	PeerRPCPort    int           `conf:"peer_rpc_port"`
	MinerAddress   types.Address `conf:"miner_address"`
	DataDir        string        `conf:"datadir"`
	EnableSharding bool          `conf:"enable_sharding"`
	ShardCount     int           `conf:"shard_count"`
	EnableVerkle   bool          `conf:"enable_verkle"`

	// P2P (operational, not consensus rules)
	Seeds      []string `conf:"p2p.seeds"`
	MaxPeers   int      `conf:"p2p.maxpeers"`
	NoDiscover bool     `conf:"p2p.nodiscover"`

	// Mining
	Mine           bool   `conf:"mining.enabled"`
	OrderingPolicy string `conf:"mining.ordering"` // fifo, fee-based, random, hybrid, time-weighted

	// Cross-shard two-phase commit (spec §9 leaves the exact value open).
	CrossShardAbortTimeout time.Duration `conf:"sharding.abort_timeout"`

	// Logging
	LogLevel string `conf:"log.level"`
	LogFile  string `conf:"log.file"`
	LogJSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.tristream
//	macOS:   ~/Library/Application Support/TriStream
//	Windows: %APPDATA%\TriStream
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tristream"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "TriStream")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "TriStream")
		}
		return filepath.Join(home, "AppData", "Roaming", "TriStream")
	default:
		return filepath.Join(home, ".tristream")
	}
}

// StateDir returns the account-state storage directory.
func (c *Config) StateDir() string {
	return filepath.Join(c.DataDir, "state")
}

// DAGDir returns the block/DAG storage directory.
func (c *Config) DAGDir() string {
	return filepath.Join(c.DataDir, "dag")
}

// WalletDir returns the node's own key material and contract-wallet owner
// key directory.
func (c *Config) WalletDir() string {
	return filepath.Join(c.DataDir, "wallet")
}

// PeerstoreDir returns the peer table and ban list persistence directory.
func (c *Config) PeerstoreDir() string {
	return filepath.Join(c.DataDir, "peerstore")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// IdentityFile returns the path to the node's persisted network identity
// key (spec §9 supplement: "node identity persistence").
func (c *Config) IdentityFile() string {
	return filepath.Join(c.DataDir, "identity.key")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "tristream.conf")
}
