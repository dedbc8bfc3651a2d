package config

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/tristream-labs/tristream-chain/pkg/block"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// =============================================================================
// Protocol Rules (immutable, defined in genesis)
// These MUST match across all nodes or consensus breaks.
// =============================================================================

// GenesisTimestamp is the fixed Unix timestamp every genesis block carries,
// so independently bootstrapped nodes derive byte-identical genesis hashes
// without a coordination step.
const GenesisTimestamp uint64 = 1735689600 // 2025-01-01T00:00:00Z

// GenesisDifficulty is the opaque difficulty value stamped on the genesis
// header, matching stream A's configured mining difficulty.
const GenesisDifficulty uint64 = 4

// Genesis holds the chain's immutable launch parameters: its identity, the
// genesis block itself, and the initial account balances every node must
// agree on before accepting any mined block.
type Genesis struct {
	ChainID   string `json:"chain_id"`
	ChainName string `json:"chain_name"`
	Symbol    string `json:"symbol,omitempty"`
	ExtraData string `json:"extra_data,omitempty"`

	// Alloc maps hex addresses to their initial balance in base units.
	Alloc map[string]*big.Int `json:"alloc"`
}

// Block constructs the deterministic genesis block: block number 0, no
// parents, no transactions, minted by stream A.
func (g *Genesis) Block() *block.Block {
	header := &block.Header{
		ParentHashes: nil,
		BlockNumber:  0,
		StreamType:   block.StreamA,
		Difficulty:   GenesisDifficulty,
		Timestamp:    GenesisTimestamp,
	}
	return block.NewBlock(header, nil)
}

// AllocBalances parses Alloc into a validated address -> balance map.
func (g *Genesis) AllocBalances() (map[types.Address]*big.Int, error) {
	out := make(map[types.Address]*big.Int, len(g.Alloc))
	for addrStr, bal := range g.Alloc {
		addr, err := types.ParseAddress(addrStr)
		if err != nil {
			return nil, fmt.Errorf("invalid alloc address %q: %w", addrStr, err)
		}
		if bal == nil || bal.Sign() < 0 {
			return nil, fmt.Errorf("invalid alloc balance for %q", addrStr)
		}
		out[addr] = bal
	}
	return out, nil
}

// =============================================================================
// Pre-defined genesis configurations
// =============================================================================

// MainnetGenesis returns the mainnet genesis configuration.
func MainnetGenesis() *Genesis {
	return &Genesis{
		ChainID:   "tristream-mainnet-1",
		ChainName: "TriStream Mainnet",
		Symbol:    "TRI",
		ExtraData: "TriStream Genesis",
		Alloc:     map[string]*big.Int{},
	}
}

// TestnetGenesis returns the testnet genesis configuration, with a funded
// well-known development address so a single node can be exercised without
// needing a second peer to fund it.
func TestnetGenesis() *Genesis {
	ether := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return &Genesis{
		ChainID:   "tristream-testnet-1",
		ChainName: "TriStream Testnet",
		Symbol:    "TRI",
		ExtraData: "TriStream Testnet Genesis",
		Alloc: map[string]*big.Int{
			"0x0000000000000000000000000000000000000001": new(big.Int).Mul(big.NewInt(1_000_000), ether),
		},
	}
}

// GenesisFor returns the genesis config for the given network.
func GenesisFor(network NetworkType) *Genesis {
	switch network {
	case Testnet:
		return TestnetGenesis()
	default:
		return MainnetGenesis()
	}
}

// =============================================================================
// Genesis file I/O
// =============================================================================

// LoadGenesis loads genesis configuration from a file.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis file: %w", err)
	}
	var g Genesis
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parsing genesis file: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genesis: %w", err)
	}
	return &g, nil
}

// Save writes the genesis configuration to a file.
func (g *Genesis) Save(path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding genesis: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing genesis file: %w", err)
	}
	return nil
}

// Validate checks that the genesis configuration is well-formed.
func (g *Genesis) Validate() error {
	if g.ChainID == "" {
		return fmt.Errorf("chain_id is required")
	}
	if _, err := g.AllocBalances(); err != nil {
		return err
	}
	return nil
}

// Hash returns the genesis block hash, used to detect genesis mismatches
// between peers during handshake.
func (g *Genesis) Hash() (types.Hash, error) {
	return g.Block().Hash, nil
}
