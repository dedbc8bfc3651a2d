package committer

import (
	"math/big"
	"testing"

	"github.com/tristream-labs/tristream-chain/pkg/tx"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

func TestCommitBatch_AllOperationsApplyOnSuccess(t *testing.T) {
	c, _, backend := newHarness(t)
	var wallet, recipientA, recipientB types.Address
	wallet[0] = 0x01
	recipientA[0] = 0x02
	recipientB[0] = 0x03
	backend.SetBalance(wallet, big.NewInt(1000))

	ops := []tx.BatchOperation{
		{Kind: tx.OpTransfer, To: recipientA, Value: big.NewInt(100)},
		{Kind: tx.OpTransfer, To: recipientB, Value: big.NewInt(200)},
	}
	bt := tx.NewBatchTransaction(wallet, ops, 0, 50_000, big.NewInt(1), 0)

	result, err := c.commitBatch(bt)
	if err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}
	if result.Status() != tx.BatchCompleted {
		t.Fatalf("expected BatchCompleted, got %v", result.Status())
	}

	if got := backend.GetBalance(wallet); got.Cmp(big.NewInt(700)) != 0 {
		t.Errorf("wallet balance = %s, want 700", got)
	}
	if got := backend.GetBalance(recipientA); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("recipientA balance = %s, want 100", got)
	}
	if got := backend.GetBalance(recipientB); got.Cmp(big.NewInt(200)) != 0 {
		t.Errorf("recipientB balance = %s, want 200", got)
	}
}

func TestCommitBatch_RollsBackEntirelyOnMidBatchFailure(t *testing.T) {
	c, _, backend := newHarness(t)
	var wallet, recipient types.Address
	wallet[0] = 0x01
	recipient[0] = 0x02
	backend.SetBalance(wallet, big.NewInt(150))

	ops := []tx.BatchOperation{
		{Kind: tx.OpTransfer, To: recipient, Value: big.NewInt(100)},
		{Kind: tx.OpTransfer, To: recipient, Value: big.NewInt(1000)}, // insufficient funds
	}
	bt := tx.NewBatchTransaction(wallet, ops, 0, 50_000, big.NewInt(1), 0)

	result, err := c.commitBatch(bt)
	if err == nil {
		t.Fatal("expected error from failing batch operation")
	}
	if result.Status() != tx.BatchFailed {
		t.Fatalf("expected BatchFailed, got %v", result.Status())
	}

	// Neither operation's effect should have reached the backend: the first
	// operation only ever touched the overlay, which is discarded on error.
	if got := backend.GetBalance(wallet); got.Cmp(big.NewInt(150)) != 0 {
		t.Errorf("wallet balance = %s, want unchanged 150", got)
	}
	if got := backend.GetBalance(recipient); got.Sign() != 0 {
		t.Errorf("recipient balance = %s, want unchanged 0", got)
	}
}

func TestBatchTransaction_ValidateRejectsEmptyAndOversized(t *testing.T) {
	var wallet types.Address
	if err := tx.NewBatchTransaction(wallet, nil, 0, 1, big.NewInt(1), 0).Validate(); err == nil {
		t.Error("expected error for empty batch")
	}

	ops := make([]tx.BatchOperation, tx.MaxBatchOperations+1)
	for i := range ops {
		ops[i] = tx.BatchOperation{Kind: tx.OpTransfer, Value: big.NewInt(1)}
	}
	if err := tx.NewBatchTransaction(wallet, ops, 0, 1, big.NewInt(1), 0).Validate(); err == nil {
		t.Error("expected error for oversized batch")
	}
}

func TestBatchManager_CreateGetAndCleanup(t *testing.T) {
	m := tx.NewBatchManager()
	var wallet, to types.Address
	wallet[0] = 0x01
	to[0] = 0x02

	bt, err := m.Create(wallet, []tx.BatchOperation{{Kind: tx.OpTransfer, To: to, Value: big.NewInt(1)}}, 0, 21_000, big.NewInt(1), 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, ok := m.Get(bt.BatchID); !ok {
		t.Fatal("expected batch to be retrievable")
	}
	if got := m.ForWallet(wallet); len(got) != 1 {
		t.Fatalf("ForWallet = %d, want 1", len(got))
	}

	bt.Cancel()
	m.Cleanup()
	if _, ok := m.Get(bt.BatchID); ok {
		t.Error("expected cancelled batch to be cleaned up")
	}
}
