// Package state defines the account state backend the committer writes
// through to on every accepted block (spec §6 StateBackend, §9).
package state

import (
	"math/big"

	"github.com/tristream-labs/tristream-chain/pkg/block"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// Backend is the interface the core requires of its account-state store.
// Exactly one Backend is canonical per node: either the in-memory map
// (simple mode) or a durable tree-backed store (stateless/light mode) —
// never both, per the spec's "one canonical backend" design note (§9).
type Backend interface {
	GetBalance(addr types.Address) *big.Int
	SetBalance(addr types.Address, balance *big.Int) error
	GetNonce(addr types.Address) uint64
	SetNonce(addr types.Address, nonce uint64) error

	PutBlock(b *block.Block) error
	GetBlock(hash types.Hash) (*block.Block, bool)

	// Flush persists any buffered writes. Called on graceful shutdown.
	Flush() error
	Close() error
}

// ProvingBackend is implemented by backends that can produce Merkle-style
// membership proofs for stateless/light-client modes (spec §6, optional).
type ProvingBackend interface {
	Backend
	StateRoot() (types.Hash, error)
	ProofFor(addr types.Address) (balance *big.Int, witness [][]byte, root types.Hash, err error)
}
