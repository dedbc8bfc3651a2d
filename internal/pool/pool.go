// Package pool implements the bounded transaction pool transactions sit in
// between submission and mining (spec §4.4).
//
// The teacher's mempool guarded a single map with one sync.RWMutex. This
// pool keeps that proven shape — a mutex-protected FIFO plus a side index —
// but narrows the critical sections around push/pop to the minimum needed
// for correctness, and tracks size with a separate atomic counter so readers
// (RPC, fairness analyzer) never contend with producers for it. True
// lock-free MPMC queues in Go require unsafe/CAS-loop plumbing that buys
// little at this node's scale and isn't how the rest of this codebase is
// written; see DESIGN.md.
package pool

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tristream-labs/tristream-chain/pkg/tx"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// MaxSize is the global pool bound (spec §3). Overflow evicts the oldest
// entry (FIFO).
const MaxSize = 100_000

// Entry pairs a pooled transaction with its arrival time.
type Entry struct {
	Tx       *tx.Transaction
	Hash     types.Hash
	Arrived  time.Time
	sequence uint64 // monotone arrival order, for stable FIFO sorts
}

// Pool is a many-producer, many-consumer bounded transaction queue with
// FIFO eviction and a separately maintained arrival-time index.
type Pool struct {
	mu       sync.Mutex
	order    *list.List // FIFO of *Entry, oldest at Front
	elements map[types.Hash]*list.Element
	maxSize  int
	size     atomic.Int64
	seq      atomic.Uint64
}

// New creates a pool bounded at maxSize entries. maxSize <= 0 uses MaxSize.
func New(maxSize int) *Pool {
	if maxSize <= 0 {
		maxSize = MaxSize
	}
	return &Pool{
		order:    list.New(),
		elements: make(map[types.Hash]*list.Element),
		maxSize:  maxSize,
	}
}

// Size returns the current number of pooled transactions.
func (p *Pool) Size() int {
	return int(p.size.Load())
}

// Push records tx's arrival time and enqueues it. If the pool is at
// capacity, the oldest entry is evicted first (FIFO). Pushing a hash
// already present is a no-op.
func (p *Pool) Push(t *tx.Transaction) {
	hash := t.Hash
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.elements[hash]; exists {
		return
	}

	if len(p.elements) >= p.maxSize {
		p.evictOldestLocked()
	}

	entry := &Entry{
		Tx:       t,
		Hash:     hash,
		Arrived:  time.Now(),
		sequence: p.seq.Add(1),
	}
	el := p.order.PushBack(entry)
	p.elements[hash] = el
	p.size.Add(1)
}

// evictOldestLocked drops the front (oldest-arrived) entry. Callers must
// hold p.mu.
func (p *Pool) evictOldestLocked() {
	front := p.order.Front()
	if front == nil {
		return
	}
	entry := front.Value.(*Entry)
	p.order.Remove(front)
	delete(p.elements, entry.Hash)
	p.size.Add(-1)
}

// PopBatch removes and returns up to n transactions in FIFO order.
func (p *Pool) PopBatch(n int) []*tx.Transaction {
	if n <= 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*tx.Transaction, 0, n)
	for len(out) < n {
		front := p.order.Front()
		if front == nil {
			break
		}
		entry := front.Value.(*Entry)
		p.order.Remove(front)
		delete(p.elements, entry.Hash)
		p.size.Add(-1)
		out = append(out, entry.Tx)
	}
	return out
}

// PopBatchEntries is PopBatch but also returns each transaction's recorded
// arrival time, for callers (the ordering engine) that need it.
func (p *Pool) PopBatchEntries(n int) []Entry {
	if n <= 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Entry, 0, n)
	for len(out) < n {
		front := p.order.Front()
		if front == nil {
			break
		}
		entry := front.Value.(*Entry)
		p.order.Remove(front)
		delete(p.elements, entry.Hash)
		p.size.Add(-1)
		out = append(out, *entry)
	}
	return out
}

// Peek returns up to n pooled transactions without removing them, oldest
// first, along with their arrival timestamps. Used by the ordering policy
// engine and fairness analyzer, which must not perturb pool state.
func (p *Pool) Peek(n int) []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Entry, 0, n)
	for el := p.order.Front(); el != nil && len(out) < n; el = el.Next() {
		out = append(out, *el.Value.(*Entry))
	}
	return out
}

// Remove drops a specific transaction by hash, if present. Used when a
// submitted transaction is rejected at commit time (spec §4.8) and must not
// poison the pool by lingering.
func (p *Pool) Remove(hash types.Hash) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.elements[hash]
	if !ok {
		return false
	}
	p.order.Remove(el)
	delete(p.elements, hash)
	p.size.Add(-1)
	return true
}

// ArrivalOf returns the arrival time recorded for hash, if still pooled.
func (p *Pool) ArrivalOf(hash types.Hash) (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.elements[hash]
	if !ok {
		return time.Time{}, false
	}
	return el.Value.(*Entry).Arrived, true
}
