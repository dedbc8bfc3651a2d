package block

import (
	"github.com/tristream-labs/tristream-chain/pkg/tx"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// Block is a DAG block: a header, its ordered transaction list, and the
// canonical digest over both.
type Block struct {
	Header       *Header           `json:"header"`
	Transactions []*tx.Transaction `json:"transactions"`
	Hash         types.Hash        `json:"hash"`

	// Atomic marks the block as requiring whole-block rollback if any
	// transaction's EVM execution fails, instead of the default
	// transaction-level revert (spec §4.8). Not covered by Hash: it is a
	// miner-declared commit policy, not consensus-critical block content.
	Atomic bool `json:"atomic,omitempty"`
}

// NewBlock creates a new block with the given header and transactions and
// computes its canonical hash.
func NewBlock(header *Header, txs []*tx.Transaction) *Block {
	b := &Block{Header: header, Transactions: txs}
	b.Hash = b.ComputeHash()
	return b
}

// TxHashes returns the transaction hashes in block order.
func (b *Block) TxHashes() []types.Hash {
	hashes := make([]types.Hash, len(b.Transactions))
	for i, t := range b.Transactions {
		hashes[i] = t.Hash
	}
	return hashes
}

// ComputeHash derives the block digest from the header and transaction
// hashes, independent of whatever is currently stored in b.Hash.
func (b *Block) ComputeHash() types.Hash {
	if b.Header == nil {
		return types.Hash{}
	}
	return b.Header.Hash(b.TxHashes())
}
