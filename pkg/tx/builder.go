package tx

import (
	"math/big"

	"github.com/tristream-labs/tristream-chain/pkg/crypto"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// Builder assembles and signs a Transaction.
type Builder struct {
	tx Transaction
}

// NewBuilder starts building a transaction from the given sender.
func NewBuilder(from types.Address) *Builder {
	return &Builder{tx: Transaction{From: from, Value: new(big.Int), Fee: new(big.Int)}}
}

// To sets the recipient address.
func (b *Builder) To(to types.Address) *Builder {
	b.tx.To = to
	return b
}

// Value sets the transfer amount.
func (b *Builder) Value(v *big.Int) *Builder {
	b.tx.Value = v
	return b
}

// Fee sets the fee amount.
func (b *Builder) Fee(f *big.Int) *Builder {
	b.tx.Fee = f
	return b
}

// Nonce sets the sender's nonce for this transaction.
func (b *Builder) Nonce(n uint64) *Builder {
	b.tx.Nonce = n
	return b
}

// Data attaches a data payload and a gas limit.
func (b *Builder) Data(data []byte, gasLimit uint64) *Builder {
	b.tx.Data = data
	b.tx.GasLimit = gasLimit
	return b
}

// Sponsor designates an address that pays the fee instead of From.
func (b *Builder) Sponsor(addr types.Address) *Builder {
	b.tx.Sponsor = &addr
	return b
}

// ExecuteAtBlock adds a block-height time-lock.
func (b *Builder) ExecuteAtBlock(height uint64) *Builder {
	b.tx.ExecuteAtBlock = &height
	return b
}

// ExecuteAtTimestamp adds a timestamp time-lock.
func (b *Builder) ExecuteAtTimestamp(ts uint64) *Builder {
	b.tx.ExecuteAtTimestamp = &ts
	return b
}

// SetGasLimit sets the gas limit. The builder applies no gas limit default;
// callers that skip Data must still set a non-zero GasLimit here before
// signing, per the validation rule that GasLimit > 0.
func (b *Builder) SetGasLimit(limit uint64) *Builder {
	b.tx.GasLimit = limit
	return b
}

// Sign computes the canonical hash and signs it with key, filling in Hash,
// Signature, and PublicKey. The resulting transaction is ready for
// submission.
func (b *Builder) Sign(key *crypto.PrivateKey) (*Transaction, error) {
	hash, err := b.tx.CalculateHash()
	if err != nil {
		return nil, err
	}
	b.tx.Hash = hash
	sig, err := key.Sign(hash[:])
	if err != nil {
		return nil, err
	}
	b.tx.Signature = sig
	b.tx.PublicKey = key.PublicKey()
	out := b.tx
	return &out, nil
}

// BuildSystemTransaction builds an unsigned system transaction (From is the
// zero address), used for genesis allocations and protocol-level credits.
func BuildSystemTransaction(to types.Address, value *big.Int, nonce uint64) (*Transaction, error) {
	t := &Transaction{
		From:     types.Address{},
		To:       to,
		Value:    value,
		Fee:      new(big.Int),
		Nonce:    nonce,
		GasLimit: MinGasLimitWithData,
	}
	hash, err := t.CalculateHash()
	if err != nil {
		return nil, err
	}
	t.Hash = hash
	return t, nil
}
