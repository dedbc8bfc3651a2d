package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads node configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

// setConfigValue sets a node config value by key.
func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	case "network":
		n, err := ParseNetworkType(value)
		if err != nil {
			return err
		}
		cfg.Network = n
	case "datadir":
		cfg.DataDir = value

	case "listen_port", "p2p.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.ListenPort = port
	case "peer_rpc_port", "rpc.port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.PeerRPCPort = port
	case "p2p.seeds":
		cfg.Seeds = parseStringList(value)
	case "p2p.maxpeers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.MaxPeers = n
	case "p2p.nodiscover":
		cfg.NoDiscover = parseBool(value)

	case "miner_address", "mining.coinbase":
		addr, err := parseAddressValue(value)
		if err != nil {
			return err
		}
		cfg.MinerAddress = addr
	case "mining.enabled", "mine":
		cfg.Mine = parseBool(value)
	case "mining.ordering":
		cfg.OrderingPolicy = value

	case "enable_sharding", "sharding.enabled":
		cfg.EnableSharding = parseBool(value)
	case "shard_count", "sharding.count":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.ShardCount = n
	case "sharding.abort_timeout":
		secs, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		cfg.CrossShardAbortTimeout = time.Duration(secs) * time.Second

	case "enable_verkle":
		cfg.EnableVerkle = parseBool(value)

	case "log.level":
		cfg.LogLevel = value
	case "log.file":
		cfg.LogFile = value
	case "log.json":
		cfg.LogJSON = parseBool(value)

	default:
		// Unknown keys are ignored.
	}
	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// WriteDefaultConfig writes a default node configuration file.
func WriteDefaultConfig(path string, network NetworkType) error {
	content := `# TriStream node configuration.
#
# This file contains NODE settings only. Protocol rules (the genesis
# block, chain ID) are fixed and cannot be changed without a hard fork.

# Network: mainnet or testnet
network = ` + network.String() + `

# Data directory (default: ~/.tristream)
# datadir = ~/.tristream

# ============================================================================
# P2P
# ============================================================================

listen_port = ` + defaultPort(network) + `
peer_rpc_port = ` + defaultRPCPort(network) + `

# Seed peers (comma-separated host:port)
# p2p.seeds = node1.example.com:30303,node2.example.com:30303

# p2p.maxpeers = 50
# p2p.nodiscover = false

# ============================================================================
# Mining
# ============================================================================

mining.enabled = false

# Address to receive block rewards and fees
# mining.coinbase = 0x...

# Transaction ordering policy: fifo, fee-based, random, hybrid, time-weighted
mining.ordering = fee-based

# ============================================================================
# Sharding
# ============================================================================

# enable_sharding = false
# shard_count = 1
# sharding.abort_timeout = 60

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}

func defaultPort(network NetworkType) string {
	if network == Testnet {
		return "30304"
	}
	return "30303"
}

func defaultRPCPort(network NetworkType) string {
	if network == Testnet {
		return "8645"
	}
	return "8545"
}
