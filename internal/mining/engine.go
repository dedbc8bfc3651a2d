// Package mining implements the TriStream engine: three concurrent block
// producers feeding one serialized committer (spec §4.7).
package mining

import (
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tristream-labs/tristream-chain/internal/log"
	"github.com/tristream-labs/tristream-chain/internal/ordering"
	"github.com/tristream-labs/tristream-chain/internal/pool"
	"github.com/tristream-labs/tristream-chain/pkg/block"
	"github.com/tristream-labs/tristream-chain/pkg/tx"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// SourcePool is the subset of the pool a stream needs to produce a block.
type SourcePool interface {
	PopBatchEntries(n int) []pool.Entry
}

// TipProvider supplies DAG tips as candidate parents.
type TipProvider interface {
	Tips(n int) []types.Hash
}

// BlockSubmission is what a producer hands to the committer channel.
type BlockSubmission struct {
	Block  *block.Block
	Stream block.StreamType
	Number uint64
	Reward *big.Int
	Fees   *big.Int
}

// Engine runs the three TriStream producers against a shared pool and DAG,
// emitting BlockSubmissions on a single channel the committer drains.
type Engine struct {
	pool       SourcePool
	tips       TipProvider
	submission chan BlockSubmission
	blockNum   atomic.Uint64 // shared allocator, never touched by the committer
	running    atomic.Bool
	wg         sync.WaitGroup
}

// New creates an Engine. submissionBuffer sizes the committer channel;
// 0 uses a sensible default.
func New(pool SourcePool, tips TipProvider, submissionBuffer int) *Engine {
	if submissionBuffer <= 0 {
		submissionBuffer = 64
	}
	return &Engine{
		pool:       pool,
		tips:       tips,
		submission: make(chan BlockSubmission, submissionBuffer),
	}
}

// Submissions exposes the channel the committer drains.
func (e *Engine) Submissions() <-chan BlockSubmission {
	return e.submission
}

// NextBlockNumber atomically allocates the next block number, guaranteeing
// uniqueness without the producers ever touching chain state directly
// (spec §4.7's key deadlock-avoidance property).
func (e *Engine) NextBlockNumber() uint64 {
	return e.blockNum.Add(1)
}

// Start launches all three streams, staggering startup per their configured
// delay to avoid initial contention.
func (e *Engine) Start(policy ordering.Policy) {
	e.running.Store(true)
	for _, cfg := range Streams {
		e.wg.Add(1)
		go func(cfg StreamConfig) {
			defer e.wg.Done()
			time.Sleep(cfg.StartupWait)
			runStream(e, cfg, policy)
		}(cfg)
	}
}

// Stop flips the running flag; each stream observes it at the top of its
// next iteration and exits cleanly (spec §5 cancellation).
func (e *Engine) Stop() {
	e.running.Store(false)
	e.wg.Wait()
	close(e.submission)
}

func runStream(e *Engine, cfg StreamConfig, policy ordering.Policy) {
	log.TriStream.Info().Str("stream", cfg.Type.String()).Msg("stream started")
	ticker := time.NewTicker(cfg.BlockTime)
	defer ticker.Stop()

	for e.running.Load() {
		produceOnce(e, cfg, policy)
		<-ticker.C
	}
	log.TriStream.Info().Str("stream", cfg.Type.String()).Msg("stream stopped")
}

func produceOnce(e *Engine, cfg StreamConfig, policy ordering.Policy) {
	popped := e.pool.PopBatchEntries(cfg.MaxTxs)
	if len(popped) == 0 {
		return
	}

	items := make([]ordering.Item, len(popped))
	for i, p := range popped {
		items[i] = ordering.Item{Tx: p.Tx, Arrival: p.Arrival}
	}

	number := e.NextBlockNumber()
	ctx := ordering.AcquireContext(10 * time.Millisecond)
	ordered := ordering.Apply(policy, items, ctx, number, byte(cfg.Type))

	txs := make([]*tx.Transaction, len(ordered))
	var totalFees big.Int
	for i, it := range ordered {
		txs[i] = it.Tx
		if it.Tx.Fee != nil {
			totalFees.Add(&totalFees, it.Tx.Fee)
		}
	}

	parents := e.tips.Tips(3)
	header := &block.Header{
		ParentHashes: parents,
		BlockNumber:  number,
		StreamType:   cfg.Type,
		Difficulty:   difficultyFor(cfg.Type),
		Timestamp:    uint64(time.Now().Unix()),
	}
	blk := block.NewBlock(header, txs)

	sub := BlockSubmission{
		Block:  blk,
		Stream: cfg.Type,
		Number: number,
		Reward: new(big.Int).Set(cfg.Reward),
		Fees:   &totalFees,
	}

	select {
	case e.submission <- sub:
	default:
		// Committer channel momentarily full: block until there's room
		// rather than drop a sealed candidate block.
		e.submission <- sub
	}
}

// difficultyFor is a placeholder consensus difficulty value per stream;
// the core treats difficulty as opaque metadata (it does not gate block
// acceptance beyond self-consistency, per spec §3).
func difficultyFor(s block.StreamType) uint64 {
	switch s {
	case block.StreamA:
		return 4
	case block.StreamB:
		return 2
	default:
		return 1
	}
}
