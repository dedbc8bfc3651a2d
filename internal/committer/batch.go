package committer

import (
	"fmt"
	"math/big"

	"github.com/tristream-labs/tristream-chain/pkg/tx"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// BatchWallet is the subset of a contract wallet's view a batch commit
// needs: nonce tracking and, for multisig wallets, signer verification.
type BatchWallet interface {
	tx.Wallet
}

// commitBatch applies every operation in a batch transaction atomically:
// either all operations' balance effects land, or none do (spec
// supplement: account-abstraction batch transactions, grounded on the
// source's "all-or-nothing execution guarantee"). Only ever called from
// Run's single writer goroutine, via the batches channel; external callers
// use the exported CommitBatch.
func (c *Committer) commitBatch(bt *tx.BatchTransaction) (*tx.BatchTransaction, error) {
	if err := bt.Validate(); err != nil {
		return nil, fmt.Errorf("batch validation: %w", err)
	}
	if err := bt.MarkExecuting(); err != nil {
		return nil, err
	}

	wallet, isWallet := lookupWallet(c.wallets, bt.WalletAddress)
	if isWallet {
		if bt.Nonce != wallet.Nonce() {
			bt.MarkFailed(nil, 0)
			return bt, fmt.Errorf("batch nonce mismatch: got %d, want %d", bt.Nonce, wallet.Nonce())
		}
	}

	ov := newOverlay(c.backend)
	results := make([]tx.BatchOperationResult, 0, len(bt.Operations))
	var gasUsed uint64

	for i, op := range bt.Operations {
		const perOpGas = 21_000
		if err := c.applyBatchOperation(ov, bt.WalletAddress, op); err != nil {
			results = append(results, tx.BatchOperationResult{OperationIndex: i, Success: false, Err: err})
			bt.MarkFailed(results, gasUsed)
			return bt, fmt.Errorf("batch operation %d: %w", i, err)
		}
		gasUsed += perOpGas
		results = append(results, tx.BatchOperationResult{OperationIndex: i, Success: true, GasUsed: perOpGas})
	}

	if err := ov.flush(); err != nil {
		bt.MarkFailed(results, gasUsed)
		return bt, fmt.Errorf("flush batch state: %w", err)
	}

	if advancer, ok := lookupAdvancer(c.wallets, bt.WalletAddress); ok {
		_ = advancer.AdvanceNonce(bt.WalletAddress)
	}

	bt.MarkCompleted(results, gasUsed)
	return bt, nil
}

// applyBatchOperation applies one operation's balance effect to the
// overlay. OpContractCall is routed through the same ContractExecutor a
// normal transaction's Data payload uses; OpApproval and OpCustom carry no
// account-model state of their own and are recorded as no-ops beyond
// validation, since this node has no allowance ledger (see DESIGN.md).
func (c *Committer) applyBatchOperation(ov *overlay, wallet types.Address, op tx.BatchOperation) error {
	switch op.Kind {
	case tx.OpTransfer:
		value := valueOrZero(op.Value)
		if value.Sign() > 0 {
			bal := ov.GetBalance(wallet)
			if bal.Cmp(value) < 0 {
				return fmt.Errorf("insufficient balance for batch transfer")
			}
			ov.SetBalance(wallet, new(big.Int).Sub(bal, value))
			ov.SetBalance(op.To, new(big.Int).Add(ov.GetBalance(op.To), value))
		}
		return nil
	case tx.OpContractCall:
		synthetic := &tx.Transaction{From: wallet, To: op.To, Value: op.Value, Data: op.Data}
		return c.executor.ExecuteContract(synthetic)
	case tx.OpApproval, tx.OpCustom:
		return nil
	default:
		return fmt.Errorf("unknown batch operation kind %d", op.Kind)
	}
}

func lookupWallet(registry tx.WalletRegistry, addr types.Address) (tx.Wallet, bool) {
	if registry == nil {
		return nil, false
	}
	return registry.Lookup(addr)
}
