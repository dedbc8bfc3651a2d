package config

import (
	"fmt"

	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.ListenPort < 0 || cfg.ListenPort > 65535 {
		return fmt.Errorf("listen_port must be in range [0, 65535]")
	}
	if cfg.PeerRPCPort < 0 || cfg.PeerRPCPort > 65535 {
		return fmt.Errorf("peer_rpc_port must be in range [0, 65535]")
	}
	if cfg.EnableSharding && cfg.ShardCount < 2 {
		return fmt.Errorf("shard_count must be at least 2 when sharding is enabled")
	}
	if cfg.Mine && cfg.MinerAddress.IsZero() {
		return fmt.Errorf("mining.enabled requires miner_address")
	}
	if cfg.Mine {
		switch cfg.OrderingPolicy {
		case "fifo", "fee-based", "random", "hybrid", "time-weighted", "":
		default:
			return fmt.Errorf("mining.ordering %q is not a recognized policy", cfg.OrderingPolicy)
		}
	}
	if cfg.CrossShardAbortTimeout < 0 {
		return fmt.Errorf("sharding.abort_timeout must not be negative")
	}
	return nil
}

// parseAddressValue parses a hex address from a config file value or flag,
// accepting both 0x-prefixed and bare forms.
func parseAddressValue(s string) (types.Address, error) {
	return types.ParseAddress(s)
}
