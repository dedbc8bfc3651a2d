package committer

import "github.com/tristream-labs/tristream-chain/pkg/tx"

// ContractExecutor runs the contract-call payload carried in a transaction's
// Data field. It is consulted only for transactions that carry non-empty
// Data; plain transfers never touch it. When no executor is configured, the
// committer uses NoExecutor, which makes any transaction with Data fail
// (spec §4.8 step 2 treats missing execution support as a transaction-level
// failure, same as a revert).
type ContractExecutor interface {
	ExecuteContract(t *tx.Transaction) error
}

// NoExecutor rejects every contract call. It is the default when a node
// runs without EVM support configured.
type NoExecutor struct{}

func (NoExecutor) ExecuteContract(t *tx.Transaction) error {
	return errContractExecutionUnsupported
}
