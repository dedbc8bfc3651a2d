package config

import (
	"math/big"
	"testing"
)

func TestGenesis_Validate_MainnetValid(t *testing.T) {
	g := MainnetGenesis()
	if err := g.Validate(); err != nil {
		t.Errorf("mainnet genesis should be valid: %v", err)
	}
}

func TestGenesis_Validate_TestnetValid(t *testing.T) {
	g := TestnetGenesis()
	if err := g.Validate(); err != nil {
		t.Errorf("testnet genesis should be valid: %v", err)
	}
}

func TestGenesis_Validate_RejectsEmptyChainID(t *testing.T) {
	g := MainnetGenesis()
	g.ChainID = ""
	if err := g.Validate(); err == nil {
		t.Error("expected error for empty chain_id")
	}
}

func TestGenesis_Validate_RejectsBadAllocAddress(t *testing.T) {
	g := MainnetGenesis()
	g.Alloc = map[string]*big.Int{"not-an-address": big.NewInt(1)}
	if err := g.Validate(); err == nil {
		t.Error("expected error for malformed alloc address")
	}
}

func TestGenesis_Block_IsDeterministic(t *testing.T) {
	a := MainnetGenesis().Block()
	b := MainnetGenesis().Block()
	if a.Hash != b.Hash {
		t.Error("genesis block hash must be deterministic across calls")
	}
	if !a.Header.IsGenesis() {
		t.Error("genesis block header should report IsGenesis")
	}
}

func TestGenesisFor(t *testing.T) {
	if GenesisFor(Mainnet).ChainID != MainnetGenesis().ChainID {
		t.Error("GenesisFor(Mainnet) mismatch")
	}
	if GenesisFor(Testnet).ChainID != TestnetGenesis().ChainID {
		t.Error("GenesisFor(Testnet) mismatch")
	}
}

func TestAllocBalances_ParsesTestnetAlloc(t *testing.T) {
	g := TestnetGenesis()
	balances, err := g.AllocBalances()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(balances) != len(g.Alloc) {
		t.Errorf("expected %d balances, got %d", len(g.Alloc), len(balances))
	}
}
