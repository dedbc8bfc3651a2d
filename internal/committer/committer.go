// Package committer implements the single serialized writer that drains
// block submissions from the TriStream engine, validates and applies them,
// and is the sole path by which state and the DAG ever mutate (spec §4.8).
package committer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/tristream-labs/tristream-chain/internal/dag"
	"github.com/tristream-labs/tristream-chain/internal/log"
	"github.com/tristream-labs/tristream-chain/internal/mining"
	"github.com/tristream-labs/tristream-chain/internal/state"
	"github.com/tristream-labs/tristream-chain/pkg/block"
	"github.com/tristream-labs/tristream-chain/pkg/tx"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

var errContractExecutionUnsupported = errors.New("contract execution not supported by this node")

// ErrBlockRejectedAtomic is returned when an atomic block's contract call
// fails and the whole block is discarded rather than just that transaction.
var ErrBlockRejectedAtomic = errors.New("atomic block rejected: contract execution failed")

// DAG is the subset of internal/dag.Store the committer needs.
type DAG interface {
	Add(b *block.Block) (*dag.Record, error)
}

// NonceAdvancer is implemented by wallet registries that track their own
// per-wallet nonce, independent of the EOA nonce at the same address
// (spec §3: "Nonce advances on every accepted transaction from the wallet").
type NonceAdvancer interface {
	AdvanceNonce(addr types.Address) error
}

// Broadcaster hands an accepted block to the P2P layer. Errors are logged,
// never fatal to commit: a block is final once it lands in the DAG and
// state, regardless of whether it reaches any peer.
type Broadcaster interface {
	Broadcast(b *block.Block) error
}

// ReputationTracker is notified of each transaction's commit outcome so it
// can adjust the sender's address reputation (spec supplement: address
// reputation scoring).
type ReputationTracker interface {
	RecordSuccessfulTx(addr types.Address, value *big.Int, to types.Address)
	RecordFailedTx(addr types.Address)
}

// ForensicsIndexer records every committed transaction for later fund-flow
// tracing (spec supplement: fund-flow forensics).
type ForensicsIndexer interface {
	IndexTransaction(t *tx.Transaction, blockTimestamp int64)
}

// PolicyEvaluator gates a transaction before it is applied, based on a
// risk score derived from reputation and forensics signals (spec
// supplement: security policies). Reject reports whether the transaction
// should be refused outright; reason is always populated for logging.
type PolicyEvaluator interface {
	Evaluate(t *tx.Transaction) (reject bool, reason string)
}

// RejectedTx records a transaction dropped during commit along with why.
type RejectedTx struct {
	Hash types.Hash
	Err  error
}

// Result summarizes the outcome of committing one block.
type Result struct {
	Accepted bool
	Record   *dag.Record
	Rejected []RejectedTx
	Reward   *big.Int
	Fees     *big.Int
}

// batchRequest carries a batch transaction into the single writer goroutine
// and a channel to deliver its outcome back to the submitter.
type batchRequest struct {
	batch *tx.BatchTransaction
	done  chan batchResponse
}

type batchResponse struct {
	batch *tx.BatchTransaction
	err   error
}

// Committer owns the write path: it is the only component that ever calls
// DAG.Add or mutates the state Backend (spec §5's single-writer rule).
type Committer struct {
	dag         DAG
	backend     state.Backend
	wallets     tx.WalletRegistry
	executor    ContractExecutor
	broadcaster Broadcaster
	privacy     tx.PrivacyVerifier
	reputation  ReputationTracker
	forensics   ForensicsIndexer
	policy      PolicyEvaluator
	minerAddr   types.Address
	now         func() time.Time
	batches     chan batchRequest
}

// Option configures a Committer.
type Option func(*Committer)

// WithExecutor installs a contract executor. Without one, any transaction
// carrying Data fails at the contract-call step.
func WithExecutor(e ContractExecutor) Option { return func(c *Committer) { c.executor = e } }

// WithBroadcaster installs the P2P hand-off.
func WithBroadcaster(b Broadcaster) Option { return func(c *Committer) { c.broadcaster = b } }

// WithPrivacyVerifier installs the zk-SNARK privacy proof verifier.
func WithPrivacyVerifier(p tx.PrivacyVerifier) Option { return func(c *Committer) { c.privacy = p } }

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option { return func(c *Committer) { c.now = now } }

// WithReputationTracker installs an address-reputation tracker, updated
// after every per-transaction commit outcome (spec supplement: address
// reputation scoring).
func WithReputationTracker(r ReputationTracker) Option {
	return func(c *Committer) { c.reputation = r }
}

// WithForensicsIndexer installs a fund-flow forensics indexer, fed every
// successfully applied transaction (spec supplement: fund-flow forensics).
func WithForensicsIndexer(f ForensicsIndexer) Option {
	return func(c *Committer) { c.forensics = f }
}

// WithPolicyEvaluator installs a risk-based policy gate, consulted before
// a transaction is applied (spec supplement: security policies).
func WithPolicyEvaluator(p PolicyEvaluator) Option { return func(c *Committer) { c.policy = p } }

// New creates a Committer. minerAddr receives block rewards and fees for
// every block it accepts.
func New(d DAG, backend state.Backend, wallets tx.WalletRegistry, minerAddr types.Address, opts ...Option) *Committer {
	c := &Committer{
		dag:       d,
		backend:   backend,
		wallets:   wallets,
		executor:  NoExecutor{},
		minerAddr: minerAddr,
		now:       time.Now,
		batches:   make(chan batchRequest),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run drains submissions until the channel closes or ctx is cancelled,
// committing each one in turn. This is the single goroutine that serializes
// all state and DAG writes (spec §4.7, §4.8).
func (c *Committer) Run(ctx context.Context, submissions <-chan mining.BlockSubmission) {
	for {
		select {
		case <-ctx.Done():
			return
		case sub, ok := <-submissions:
			if !ok {
				return
			}
			res, err := c.Commit(sub.Block, sub.Reward)
			if err != nil {
				log.Committer.Warn().Err(err).
					Uint64("block_number", sub.Number).
					Str("stream", sub.Stream.String()).
					Msg("block rejected")
				continue
			}
			log.Committer.Info().
				Uint64("block_number", sub.Number).
				Str("stream", sub.Stream.String()).
				Str("classification", res.Record.Classification.String()).
				Int("rejected_txs", len(res.Rejected)).
				Msg("block committed")
		case req := <-c.batches:
			bt, err := c.commitBatch(req.batch)
			req.done <- batchResponse{batch: bt, err: err}
		}
	}
}

// CommitBatch hands a batch transaction to the committer's single writer
// goroutine and blocks until it has been applied (spec supplement:
// account-abstraction batch transactions). Safe to call from any goroutine;
// unlike commitBatch, it does not require the caller to already be on the
// writer goroutine.
func (c *Committer) CommitBatch(ctx context.Context, bt *tx.BatchTransaction) (*tx.BatchTransaction, error) {
	done := make(chan batchResponse, 1)
	select {
	case c.batches <- batchRequest{batch: bt, done: done}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-done:
		return resp.batch, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Commit validates and applies a single block: structural checks, per-
// transaction validate-and-apply against a staged overlay, contract
// execution, DAG insertion, and (only once DAG insertion succeeds) write-
// through persistence and miner reward. Nothing is written to the Backend
// unless the whole block is accepted.
func (c *Committer) Commit(blk *block.Block, reward *big.Int) (*Result, error) {
	now := c.now()
	if err := blk.Validate(now); err != nil {
		return nil, fmt.Errorf("structural validation: %w", err)
	}

	ov := newOverlay(c.backend)
	var rejected []RejectedTx
	totalFees := new(big.Int)

	for _, t := range blk.Transactions {
		touched := touchedAddresses(t)
		snap := ov.snapshot(touched...)

		vctx := tx.ValidationContext{
			CurrentBlock:     blk.Header.BlockNumber,
			CurrentTimestamp: now.Unix(),
			State:            ov,
			Wallets:          c.wallets,
			Privacy:          c.privacy,
		}
		if err := tx.Validate(t, vctx); err != nil {
			rejected = append(rejected, RejectedTx{Hash: t.Hash, Err: err})
			if c.reputation != nil {
				c.reputation.RecordFailedTx(t.From)
			}
			continue
		}

		if c.policy != nil {
			if reject, reason := c.policy.Evaluate(t); reject {
				ov.restore(snap)
				rejected = append(rejected, RejectedTx{Hash: t.Hash, Err: fmt.Errorf("policy rejected: %s", reason)})
				if c.reputation != nil {
					c.reputation.RecordFailedTx(t.From)
				}
				continue
			}
		}

		c.applyTransfer(ov, t)

		if len(t.Data) > 0 {
			if err := c.executor.ExecuteContract(t); err != nil {
				if blk.Atomic {
					return nil, fmt.Errorf("%w: tx %s: %v", ErrBlockRejectedAtomic, t.Hash, err)
				}
				ov.restore(snap)
				rejected = append(rejected, RejectedTx{Hash: t.Hash, Err: err})
				if c.reputation != nil {
					c.reputation.RecordFailedTx(t.From)
				}
				continue
			}
		}

		totalFees.Add(totalFees, valueOrZero(t.Fee))
		if c.reputation != nil {
			c.reputation.RecordSuccessfulTx(t.From, valueOrZero(t.Value), t.To)
		}
		if c.forensics != nil {
			c.forensics.IndexTransaction(t, now.Unix())
		}
	}

	if reward == nil {
		reward = new(big.Int)
	}
	minerCredit := new(big.Int).Add(reward, totalFees)
	if minerCredit.Sign() > 0 {
		ov.SetBalance(c.minerAddr, new(big.Int).Add(ov.GetBalance(c.minerAddr), minerCredit))
	}

	rec, err := c.dag.Add(blk)
	if err != nil {
		return nil, fmt.Errorf("dag insertion: %w", err)
	}

	if err := ov.flush(); err != nil {
		return nil, fmt.Errorf("state flush: %w", err)
	}
	if err := c.backend.PutBlock(blk); err != nil {
		return nil, fmt.Errorf("persisting block: %w", err)
	}

	if c.broadcaster != nil {
		if err := c.broadcaster.Broadcast(blk); err != nil {
			log.Committer.Warn().Err(err).Str("block", blk.Hash.String()).Msg("broadcast failed")
		}
	}

	return &Result{
		Accepted: true,
		Record:   rec,
		Rejected: rejected,
		Reward:   reward,
		Fees:     totalFees,
	}, nil
}

// applyTransfer debits value and fee from the appropriate payers, credits
// value to the recipient, and advances the sender's nonce. Called only
// after tx.Validate has confirmed funds and nonce are correct.
func (c *Committer) applyTransfer(ov *overlay, t *tx.Transaction) {
	value := valueOrZero(t.Value)
	fee := valueOrZero(t.Fee)

	payer := t.From
	if t.Sponsor != nil {
		payer = *t.Sponsor
	}

	if fee.Sign() > 0 {
		ov.SetBalance(payer, new(big.Int).Sub(ov.GetBalance(payer), fee))
	}
	if value.Sign() > 0 {
		ov.SetBalance(t.From, new(big.Int).Sub(ov.GetBalance(t.From), value))
		ov.SetBalance(t.To, new(big.Int).Add(ov.GetBalance(t.To), value))
	}

	if wallet, ok := lookupAdvancer(c.wallets, t.From); ok {
		_ = wallet.AdvanceNonce(t.From)
	} else {
		ov.SetNonce(t.From, ov.GetNonce(t.From)+1)
	}
}

func lookupAdvancer(registry tx.WalletRegistry, addr types.Address) (NonceAdvancer, bool) {
	if registry == nil {
		return nil, false
	}
	if _, isWallet := registry.Lookup(addr); !isWallet {
		return nil, false
	}
	advancer, ok := registry.(NonceAdvancer)
	return advancer, ok
}

// touchedAddresses lists every address a transaction's application might
// mutate, for overlay snapshot/restore scoping.
func touchedAddresses(t *tx.Transaction) []types.Address {
	addrs := []types.Address{t.From, t.To}
	if t.Sponsor != nil {
		addrs = append(addrs, *t.Sponsor)
	}
	return addrs
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
