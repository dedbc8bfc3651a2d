package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// Flags holds parsed command-line flags. The positional surface mirrors
// the node's minimal CLI: [p2p_port] [rpc_port] [--data-dir PATH]
// [peer_addr ...], with named flags covering everything else.
type Flags struct {
	Help    bool
	Version bool

	Network string
	DataDir string
	Config  string

	P2PPort     int
	PeerRPCPort int
	Seeds       string
	MaxPeers    int
	NoDiscover  bool

	Mine           bool
	Coinbase       string
	OrderingPolicy string

	EnableSharding bool
	ShardCount     int
	EnableVerkle   bool

	LogLevel string
	LogFile  string
	LogJSON  bool

	// Peers is the set of peer addresses given as trailing positional args.
	Peers []string

	SetNoDiscover bool
	SetMine       bool
	SetLogJSON    bool
	SetSharding   bool
	SetVerkle     bool
}

// ParseFlags parses command-line flags and positional arguments.
//
//	tristreamnode [p2p_port] [rpc_port] [--data-dir PATH] [peer_addr ...]
func ParseFlags() *Flags {
	f := &Flags{}
	fs := flag.NewFlagSet("tristreamnode", flag.ContinueOnError)

	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")

	fs.StringVar(&f.Network, "network", "", "Network type (mainnet or testnet)")
	fs.StringVar(&f.DataDir, "data-dir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")

	fs.StringVar(&f.Seeds, "seeds", "", "Seed peers, comma-separated host:port")
	fs.IntVar(&f.MaxPeers, "maxpeers", 0, "Maximum number of peers")
	fs.BoolVar(&f.NoDiscover, "nodiscover", false, "Disable peer discovery")

	fs.BoolVar(&f.Mine, "mine", false, "Enable block production")
	fs.StringVar(&f.Coinbase, "coinbase", "", "Address to receive block rewards")
	fs.StringVar(&f.OrderingPolicy, "ordering", "", "Transaction ordering policy: fifo, fee-based, random, hybrid, time-weighted")

	fs.BoolVar(&f.EnableSharding, "sharding", false, "Enable cross-shard coordination")
	fs.IntVar(&f.ShardCount, "shard-count", 0, "Number of shards")
	fs.BoolVar(&f.EnableVerkle, "verkle", false, "Enable verkle-tree state proofs")

	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	fs.Usage = func() { printUsage() }

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Positional args: [p2p_port] [rpc_port] [peer_addr ...]. The first two
	// numeric-looking leading args are ports; everything after is a peer.
	args := fs.Args()
	i := 0
	if i < len(args) {
		if port, err := strconv.Atoi(args[i]); err == nil {
			f.P2PPort = port
			i++
		}
	}
	if i < len(args) {
		if port, err := strconv.Atoi(args[i]); err == nil {
			f.PeerRPCPort = port
			i++
		}
	}
	// Named flags (e.g. --data-dir) may follow the ports, so the remaining
	// args are parsed once more before the peers are taken.
	if i > 0 {
		if err := fs.Parse(args[i:]); err != nil {
			if err == flag.ErrHelp {
				os.Exit(0)
			}
			os.Exit(1)
		}
		args, i = fs.Args(), 0
	}
	f.Peers = append(f.Peers, args[i:]...)

	f.SetNoDiscover = isFlagSet(fs, "nodiscover")
	f.SetMine = isFlagSet(fs, "mine")
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.SetSharding = isFlagSet(fs, "sharding")
	f.SetVerkle = isFlagSet(fs, "verkle")

	return f
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	if f.Network != "" {
		if n, err := ParseNetworkType(f.Network); err == nil {
			cfg.Network = n
		}
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	if f.P2PPort != 0 {
		cfg.ListenPort = f.P2PPort
	}
	if f.PeerRPCPort != 0 {
		cfg.PeerRPCPort = f.PeerRPCPort
	}
	if f.Seeds != "" {
		cfg.Seeds = parseStringList(f.Seeds)
	}
	if len(f.Peers) > 0 {
		cfg.Seeds = append(cfg.Seeds, f.Peers...)
	}
	if f.MaxPeers != 0 {
		cfg.MaxPeers = f.MaxPeers
	}
	if f.SetNoDiscover {
		cfg.NoDiscover = f.NoDiscover
	}

	if f.SetMine {
		cfg.Mine = f.Mine
	}
	if f.Coinbase != "" {
		if addr, err := parseAddressValue(f.Coinbase); err == nil {
			cfg.MinerAddress = addr
		}
	}
	if f.OrderingPolicy != "" {
		cfg.OrderingPolicy = f.OrderingPolicy
	}

	if f.SetSharding {
		cfg.EnableSharding = f.EnableSharding
	}
	if f.ShardCount != 0 {
		cfg.ShardCount = f.ShardCount
	}
	if f.SetVerkle {
		cfg.EnableVerkle = f.EnableVerkle
	}

	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.LogFile = f.LogFile
	}
	if f.SetLogJSON {
		cfg.LogJSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}

func printUsage() {
	usage := `TriStream node - concurrent multi-stream DAG blockchain

Usage:
  tristreamnode [p2p_port] [rpc_port] [options] [peer_addr ...]
  tristreamnode --help

Commands:
  --help, -h      Show this help message
  --version       Show version information
  wallet          Manage node/wallet-owner keys: create, address, unlock

Core Options:
  --network       Network type: mainnet (default) or testnet
  --data-dir      Data directory (default: ~/.tristream)
  --config        Config file path (default: <datadir>/tristream.conf)

P2P Options:
  --seeds         Seed peers, comma-separated host:port
  --maxpeers      Maximum number of peers (default: 50)
  --nodiscover    Disable peer discovery

Mining Options:
  --mine          Enable block production
  --coinbase      Address to receive block rewards
  --ordering      Transaction ordering policy:
                  fifo, fee-based, random, hybrid, time-weighted

Sharding Options:
  --sharding      Enable cross-shard coordination
  --shard-count   Number of shards

Logging Options:
  --log-level     Log level: debug, info, warn, error (default: info)
  --log-file      Log file path (default: stdout)
  --log-json      Output logs as JSON

Examples:
  # Start mainnet node on default ports
  tristreamnode

  # Start on explicit ports and connect to two peers
  tristreamnode 30303 8545 peer1.example.com:30303 peer2.example.com:30303

  # Start mining on testnet
  tristreamnode --network=testnet --mine --coinbase=0x...
`
	fmt.Print(usage)
}

// Load loads configuration with precedence: defaults, then auto-created
// config file, then the config file's contents, then command-line flags.
func Load() (*Config, *Flags, error) {
	flags := ParseFlags()

	if flags.Help {
		printUsage()
		os.Exit(0)
	}
	if flags.Version {
		fmt.Println("tristreamnode version 0.1.0")
		os.Exit(0)
	}

	network := Mainnet
	if flags.Network != "" {
		if n, err := ParseNetworkType(flags.Network); err == nil {
			network = n
		}
	}

	cfg := Default(network)
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}

	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, flags, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. Idempotent: safe to call on every
// startup.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.StateDir(),
		cfg.DAGDir(),
		cfg.WalletDir(),
		cfg.PeerstoreDir(),
		cfg.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}

	return nil
}
