// Package sharding implements cross-shard two-phase commit for transactions
// that move value between shards. A shard is identified by a small integer;
// routing is a deterministic function of the sender address, and every
// cross-shard transfer is coordinated through a prepare/commit (or abort)
// handshake against both the source and target shard's state.
package sharding

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tristream-labs/tristream-chain/internal/log"
	"github.com/tristream-labs/tristream-chain/pkg/tx"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// Status is the lifecycle state of a cross-shard transaction.
type Status int

const (
	StatusPending Status = iota
	StatusPrepared
	StatusCommitted
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusPrepared:
		return "prepared"
	case StatusCommitted:
		return "committed"
	case StatusAborted:
		return "aborted"
	default:
		return "pending"
	}
}

// DefaultAbortTimeout is how long a coordinator waits for both shards to
// acknowledge prepare before unilaterally aborting (spec §9 leaves this
// value to implementers; 60s matches the committer's own block cadence by
// two orders of magnitude, giving slow shards room without stalling senders
// indefinitely).
const DefaultAbortTimeout = 60 * time.Second

// Errors returned by the coordinator.
var (
	ErrUnknownTx        = errors.New("unknown cross-shard transaction")
	ErrAlreadyResolved  = errors.New("cross-shard transaction already committed or aborted")
	ErrPrepareTimedOut  = errors.New("cross-shard prepare timed out")
	ErrShardRejected    = errors.New("shard rejected prepare")
	ErrSameShard        = errors.New("transaction does not cross shards")
)

// ShardParticipant is the subset of shard-local state a coordinator needs
// to run two-phase commit. The coordinator always calls the *Debit methods
// on the sender's shard and the *Credit methods on the receiver's shard, so
// a participant never has to infer its role from transaction contents.
type ShardParticipant interface {
	// PrepareDebit reserves value+fee from t.From without making the debit
	// visible to reads. Returns an error if funds are insufficient.
	PrepareDebit(t *tx.Transaction) error
	// CommitDebit makes a previously prepared debit durable and bumps the
	// sender's nonce.
	CommitDebit(t *tx.Transaction) error
	// AbortDebit releases a previously prepared debit reservation.
	AbortDebit(t *tx.Transaction) error

	// PrepareCredit validates that t.To can receive the transfer (always
	// succeeds for a plain balance credit; present for symmetry and future
	// receiver-side checks such as contract wallet guards).
	PrepareCredit(t *tx.Transaction) error
	// CommitCredit applies the credit to t.To.
	CommitCredit(t *tx.Transaction) error
	// AbortCredit undoes any bookkeeping made in PrepareCredit.
	AbortCredit(t *tx.Transaction) error
}

// CrossShardTx tracks one in-flight cross-shard transfer.
type CrossShardTx struct {
	Tx          *tx.Transaction
	SourceShard int
	TargetShard int
	Status      Status
	StartedAt   time.Time
}

// Coordinator runs two-phase commit for cross-shard transactions across a
// fixed set of participants, one per shard index.
type Coordinator struct {
	mu           sync.Mutex
	shards       map[int]ShardParticipant
	pending      map[types.Hash]*CrossShardTx
	abortTimeout time.Duration
}

// New creates a Coordinator. shards maps shard index to its participant.
func New(shards map[int]ShardParticipant, abortTimeout time.Duration) *Coordinator {
	if abortTimeout <= 0 {
		abortTimeout = DefaultAbortTimeout
	}
	return &Coordinator{
		shards:       shards,
		pending:      make(map[types.Hash]*CrossShardTx),
		abortTimeout: abortTimeout,
	}
}

// ShardFor deterministically routes an address to a shard index, so every
// node computes the same routing without coordination.
func ShardFor(addr types.Address, shardCount int) int {
	if shardCount <= 1 {
		return 0
	}
	var sum uint32
	for _, b := range addr {
		sum = sum*31 + uint32(b)
	}
	return int(sum % uint32(shardCount))
}

// Begin starts a two-phase commit for t, whose source and target addresses
// hash to different shards. It blocks until both shards acknowledge
// prepare, then commits on both; if either rejects, or abortTimeout
// elapses first, it aborts on whichever shard did prepare.
func (c *Coordinator) Begin(t *tx.Transaction, shardCount int) (*CrossShardTx, error) {
	source := ShardFor(t.From, shardCount)
	target := ShardFor(t.To, shardCount)
	if source == target {
		return nil, ErrSameShard
	}

	sourceParticipant, ok := c.shards[source]
	if !ok {
		return nil, fmt.Errorf("no participant registered for shard %d", source)
	}
	targetParticipant, ok := c.shards[target]
	if !ok {
		return nil, fmt.Errorf("no participant registered for shard %d", target)
	}

	cst := &CrossShardTx{Tx: t, SourceShard: source, TargetShard: target, Status: StatusPending, StartedAt: time.Now()}
	c.mu.Lock()
	c.pending[t.Hash] = cst
	c.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- c.runPrepareAndCommit(cst, sourceParticipant, targetParticipant) }()

	select {
	case err := <-done:
		return cst, err
	case <-time.After(c.abortTimeout):
		c.abort(cst, sourceParticipant, targetParticipant, ErrPrepareTimedOut)
		return cst, ErrPrepareTimedOut
	}
}

func (c *Coordinator) runPrepareAndCommit(cst *CrossShardTx, source, target ShardParticipant) error {
	if err := source.PrepareDebit(cst.Tx); err != nil {
		c.setStatus(cst, StatusAborted)
		log.Sharding.Warn().Err(err).Str("tx", cst.Tx.Hash.String()).Msg("source shard rejected prepare")
		return fmt.Errorf("%w: source: %v", ErrShardRejected, err)
	}
	if err := target.PrepareCredit(cst.Tx); err != nil {
		_ = source.AbortDebit(cst.Tx)
		c.setStatus(cst, StatusAborted)
		log.Sharding.Warn().Err(err).Str("tx", cst.Tx.Hash.String()).Msg("target shard rejected prepare")
		return fmt.Errorf("%w: target: %v", ErrShardRejected, err)
	}

	c.setStatus(cst, StatusPrepared)

	if err := source.CommitDebit(cst.Tx); err != nil {
		return c.abort(cst, source, target, err)
	}
	if err := target.CommitCredit(cst.Tx); err != nil {
		// Source already committed: this is a partial-commit state the
		// coordinator cannot roll back by itself. Log loudly; resolving it
		// requires operator intervention or a reconciliation pass.
		log.Sharding.Error().Err(err).Str("tx", cst.Tx.Hash.String()).
			Msg("target commit failed after source committed: manual reconciliation required")
		c.setStatus(cst, StatusCommitted)
		return fmt.Errorf("partial commit: target failed after source committed: %w", err)
	}

	c.setStatus(cst, StatusCommitted)
	log.Sharding.Info().Str("tx", cst.Tx.Hash.String()).
		Int("source", cst.SourceShard).Int("target", cst.TargetShard).Msg("cross-shard commit complete")
	return nil
}

func (c *Coordinator) abort(cst *CrossShardTx, source, target ShardParticipant, cause error) error {
	_ = source.AbortDebit(cst.Tx)
	_ = target.AbortCredit(cst.Tx)
	c.setStatus(cst, StatusAborted)
	return cause
}

func (c *Coordinator) setStatus(cst *CrossShardTx, s Status) {
	c.mu.Lock()
	cst.Status = s
	c.mu.Unlock()
}

// Lookup returns the tracked state of a cross-shard transaction by hash.
func (c *Coordinator) Lookup(hash types.Hash) (*CrossShardTx, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cst, ok := c.pending[hash]
	return cst, ok
}
