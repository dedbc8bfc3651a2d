package tx

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/tristream-labs/tristream-chain/pkg/crypto"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// MaxBatchOperations bounds how many operations a single batch transaction
// may bundle.
const MaxBatchOperations = 100

// Batch validation errors.
var (
	ErrBatchEmpty        = errors.New("batch must contain at least one operation")
	ErrBatchTooLarge     = errors.New("batch exceeds maximum operation count")
	ErrBatchZeroGasLimit = errors.New("batch gas limit must be greater than zero")
	ErrBatchZeroGasPrice = errors.New("batch gas price must be greater than zero")
	ErrBatchNotFound     = errors.New("batch not found")
	ErrBatchNotPending   = errors.New("batch is not pending execution")
)

// BatchStatus is the lifecycle state of a BatchTransaction.
type BatchStatus int

const (
	BatchPending BatchStatus = iota
	BatchExecuting
	BatchCompleted
	BatchFailed
	BatchCancelled
)

func (s BatchStatus) String() string {
	switch s {
	case BatchExecuting:
		return "executing"
	case BatchCompleted:
		return "completed"
	case BatchFailed:
		return "failed"
	case BatchCancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

// BatchOpKind discriminates the operation carried by a BatchOperation.
type BatchOpKind int

const (
	OpTransfer BatchOpKind = iota
	OpContractCall
	OpApproval
	OpCustom
)

// BatchOperation is a single step of a BatchTransaction. Exactly the fields
// relevant to Kind are populated; the rest are zero.
type BatchOperation struct {
	Kind BatchOpKind

	// OpTransfer, OpContractCall
	To    types.Address
	Value *big.Int

	// OpContractCall
	Data []byte

	// OpApproval
	Spender types.Address
	Amount  *big.Int

	// OpCustom
	OperationType string
	CustomData    []byte
}

// BatchOperationResult records the outcome of one executed operation.
type BatchOperationResult struct {
	OperationIndex int
	Success        bool
	Err            error
	GasUsed        uint64
}

// BatchTransaction bundles multiple operations from one contract wallet
// into a single all-or-nothing unit (spec supplement: account-abstraction
// batch transactions).
type BatchTransaction struct {
	BatchID       types.Hash
	WalletAddress types.Address
	Operations    []BatchOperation
	Nonce         uint64
	GasLimit      uint64
	GasPrice      *big.Int
	CreatedAt     int64

	Signature          []byte
	MultisigSignatures []MultisigSignature

	mu      sync.Mutex
	status  BatchStatus
	results []BatchOperationResult
	gasUsed uint64
}

// NewBatchTransaction creates a batch transaction and computes its BatchID.
func NewBatchTransaction(wallet types.Address, ops []BatchOperation, nonce, gasLimit uint64, gasPrice *big.Int, createdAt int64) *BatchTransaction {
	bt := &BatchTransaction{
		WalletAddress: wallet,
		Operations:    ops,
		Nonce:         nonce,
		GasLimit:      gasLimit,
		GasPrice:      gasPrice,
		CreatedAt:     createdAt,
		status:        BatchPending,
	}
	bt.BatchID = bt.calculateBatchID()
	return bt
}

// calculateBatchID hashes the wallet, nonce, and every operation in order,
// mirroring the transaction package's own canonical-digest convention.
func (bt *BatchTransaction) calculateBatchID() types.Hash {
	buf := make([]byte, 0, 64+32*len(bt.Operations))
	buf = append(buf, bt.WalletAddress[:]...)
	buf = types.AppendUint64LE(buf, bt.Nonce)

	for idx, op := range bt.Operations {
		buf = types.AppendUint64LE(buf, uint64(idx))
		switch op.Kind {
		case OpTransfer:
			buf = append(buf, "transfer"...)
			buf = append(buf, op.To[:]...)
			buf, _ = types.EncodeAmountLE(buf, op.Value)
		case OpContractCall:
			buf = append(buf, "contract_call"...)
			buf = append(buf, op.To[:]...)
			buf = append(buf, op.Data...)
			buf, _ = types.EncodeAmountLE(buf, op.Value)
		case OpApproval:
			buf = append(buf, "approval"...)
			buf = append(buf, op.Spender[:]...)
			buf, _ = types.EncodeAmountLE(buf, op.Amount)
		case OpCustom:
			buf = append(buf, "custom"...)
			buf = append(buf, op.OperationType...)
			buf = append(buf, op.CustomData...)
		}
	}
	return crypto.Hash(buf)
}

// Validate checks batch structure: non-empty, within the operation cap, and
// a positive gas limit/price.
func (bt *BatchTransaction) Validate() error {
	if len(bt.Operations) == 0 {
		return ErrBatchEmpty
	}
	if len(bt.Operations) > MaxBatchOperations {
		return fmt.Errorf("%w: %d operations, max %d", ErrBatchTooLarge, len(bt.Operations), MaxBatchOperations)
	}
	if bt.GasLimit == 0 {
		return ErrBatchZeroGasLimit
	}
	if bt.GasPrice == nil || bt.GasPrice.Sign() <= 0 {
		return ErrBatchZeroGasPrice
	}
	return nil
}

// Status returns the batch's current lifecycle state.
func (bt *BatchTransaction) Status() BatchStatus {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	return bt.status
}

// Results returns a copy of the per-operation results recorded so far.
func (bt *BatchTransaction) Results() []BatchOperationResult {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	out := make([]BatchOperationResult, len(bt.results))
	copy(out, bt.results)
	return out
}

// MarkExecuting transitions a pending batch into the executing state.
func (bt *BatchTransaction) MarkExecuting() error {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	if bt.status != BatchPending {
		return ErrBatchNotPending
	}
	bt.status = BatchExecuting
	return nil
}

// MarkCompleted records a successful all-operations-applied outcome.
func (bt *BatchTransaction) MarkCompleted(results []BatchOperationResult, gasUsed uint64) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	bt.status = BatchCompleted
	bt.results = results
	bt.gasUsed = gasUsed
}

// MarkFailed records a rolled-back outcome: no operation's effects survive.
func (bt *BatchTransaction) MarkFailed(results []BatchOperationResult, gasUsed uint64) {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	bt.status = BatchFailed
	bt.results = results
	bt.gasUsed = gasUsed
}

// Cancel marks a pending batch as cancelled; it will never execute.
func (bt *BatchTransaction) Cancel() {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	bt.status = BatchCancelled
}

// BatchManager tracks in-flight batch transactions for a node (spec
// supplement: account-abstraction batch transactions).
type BatchManager struct {
	mu      sync.RWMutex
	batches map[types.Hash]*BatchTransaction
}

// NewBatchManager creates an empty BatchManager.
func NewBatchManager() *BatchManager {
	return &BatchManager{batches: make(map[types.Hash]*BatchTransaction)}
}

// Create builds, validates, and registers a new batch transaction.
func (m *BatchManager) Create(wallet types.Address, ops []BatchOperation, nonce, gasLimit uint64, gasPrice *big.Int, createdAt int64) (*BatchTransaction, error) {
	bt := NewBatchTransaction(wallet, ops, nonce, gasLimit, gasPrice, createdAt)
	if err := bt.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.batches[bt.BatchID] = bt
	m.mu.Unlock()
	return bt, nil
}

// Get returns the batch with the given ID.
func (m *BatchManager) Get(id types.Hash) (*BatchTransaction, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bt, ok := m.batches[id]
	return bt, ok
}

// ForWallet returns every batch registered for the given wallet address.
func (m *BatchManager) ForWallet(wallet types.Address) []*BatchTransaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*BatchTransaction
	for _, bt := range m.batches {
		if bt.WalletAddress == wallet {
			out = append(out, bt)
		}
	}
	return out
}

// Cleanup removes every batch that has reached a terminal state.
func (m *BatchManager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, bt := range m.batches {
		switch bt.Status() {
		case BatchCompleted, BatchFailed, BatchCancelled:
			delete(m.batches, id)
		}
	}
}
