// Package ordering implements the pluggable transaction ordering policies a
// mining stream applies to its popped batch before assembling a candidate
// block (spec §4.5).
package ordering

import (
	"fmt"
	"math/big"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/tristream-labs/tristream-chain/pkg/tx"
)

// Policy selects a transaction ordering rule.
type Policy int

const (
	FIFO Policy = iota
	FeeBased
	Random
	Hybrid
	TimeWeighted
)

// ParsePolicy parses a config string into a Policy. An empty string yields
// FeeBased, the node's default.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "fee-based":
		return FeeBased, nil
	case "fifo":
		return FIFO, nil
	case "random":
		return Random, nil
	case "hybrid":
		return Hybrid, nil
	case "time-weighted":
		return TimeWeighted, nil
	default:
		return FeeBased, fmt.Errorf("unrecognized ordering policy %q", s)
	}
}

func (p Policy) String() string {
	switch p {
	case FIFO:
		return "fifo"
	case FeeBased:
		return "fee-based"
	case Random:
		return "random"
	case Hybrid:
		return "hybrid"
	case TimeWeighted:
		return "time-weighted"
	default:
		return "unknown"
	}
}

// Item is one transaction plus the arrival time recorded for it by the pool.
type Item struct {
	Tx      *tx.Transaction
	Arrival time.Time
}

// Context carries the point-in-time parameters the engine needs. It holds
// no mutable shared state beyond "what time is it" — every Apply call is
// otherwise pure (spec §4.5).
type Context struct {
	Now time.Time
}

// sharedContext is the lightweight lease a stream tries to acquire before
// falling back to its own private Context (spec §4.5, §5).
type sharedContext struct {
	mu  sync.Mutex
	ctx Context
}

var shared = &sharedContext{ctx: Context{Now: time.Now()}}

// SetShared updates the shared ordering context, e.g. from a periodic
// ticker in the node's main loop.
func SetShared(ctx Context) {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	shared.ctx = ctx
}

// AcquireContext tries to read the shared context within timeout, falling
// back to a private context built from time.Now() if the lease isn't free
// in time — streams must never stall production waiting on it (spec §4.5).
func AcquireContext(timeout time.Duration) Context {
	done := make(chan Context, 1)
	go func() {
		shared.mu.Lock()
		defer shared.mu.Unlock()
		done <- shared.ctx
	}()
	select {
	case ctx := <-done:
		return ctx
	case <-time.After(timeout):
		return Context{Now: time.Now()}
	}
}

// Apply permutes items per policy. blockNumber and stream seed the Random
// policy so validators can reproduce the exact ordering a block declares.
func Apply(policy Policy, items []Item, ctx Context, blockNumber uint64, stream byte) []Item {
	out := make([]Item, len(items))
	copy(out, items)

	switch policy {
	case FIFO:
		applyFIFO(out)
	case FeeBased:
		applyFeeBased(out)
	case Random:
		applyRandom(out, blockNumber, stream)
	case Hybrid:
		applyHybrid(out)
	case TimeWeighted:
		applyTimeWeighted(out, ctx.Now)
	default:
		applyFIFO(out)
	}
	return out
}

func applyFIFO(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Arrival.Before(items[j].Arrival)
	})
}

func applyFeeBased(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		fi, fj := feeOf(items[i]), feeOf(items[j])
		if fi.Cmp(fj) != 0 {
			return fi.Cmp(fj) > 0
		}
		return items[i].Arrival.Before(items[j].Arrival)
	})
}

// applyRandom deterministically shuffles items, seeded by the block number
// and stream so any validator recomputes the identical permutation.
func applyRandom(items []Item, blockNumber uint64, stream byte) {
	seed := int64(blockNumber)*31 + int64(stream)
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}

// applyHybrid buckets the top 10% of fees first (FIFO within that tier),
// then the remainder FIFO.
func applyHybrid(items []Item) {
	if len(items) == 0 {
		return
	}
	byFee := make([]Item, len(items))
	copy(byFee, items)
	sort.SliceStable(byFee, func(i, j int) bool {
		return feeOf(byFee[i]).Cmp(feeOf(byFee[j])) > 0
	})

	topCount := (len(items) + 9) / 10 // ceil(10%)
	if topCount == 0 {
		topCount = 1
	}
	topTier := make(map[*tx.Transaction]bool, topCount)
	for i := 0; i < topCount && i < len(byFee); i++ {
		topTier[byFee[i].Tx] = true
	}

	var top, rest []Item
	for _, it := range items {
		if topTier[it.Tx] {
			top = append(top, it)
		} else {
			rest = append(rest, it)
		}
	}
	applyFIFO(top)
	applyFIFO(rest)
	copy(items, append(top, rest...))
}

// applyTimeWeighted scores fee / (1 + age_seconds) descending.
func applyTimeWeighted(items []Item, now time.Time) {
	score := func(it Item) float64 {
		age := now.Sub(it.Arrival).Seconds()
		if age < 0 {
			age = 0
		}
		fee, _ := new(big.Float).SetInt(feeOf(it)).Float64()
		return fee / (1 + age)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return score(items[i]) > score(items[j])
	})
}

func feeOf(it Item) *big.Int {
	if it.Tx.Fee == nil {
		return new(big.Int)
	}
	return it.Tx.Fee
}
