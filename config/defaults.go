package config

import "time"

// DefaultMainnet returns the default node configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network:        Mainnet,
		ListenPort:     30303,
		PeerRPCPort:    8545,
		DataDir:        DefaultDataDir(),
		EnableSharding: false,
		ShardCount:     1,
		EnableVerkle:   false,

		Seeds:      []string{},
		MaxPeers:   50,
		NoDiscover: false,

		Mine:           false,
		OrderingPolicy: "fee-based",

		CrossShardAbortTimeout: 60 * time.Second,

		LogLevel: "info",
		LogJSON:  false,
	}
}

// DefaultTestnet returns the default node configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.ListenPort = 30304
	cfg.PeerRPCPort = 8645
	return cfg
}

// Default returns the default node configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}
