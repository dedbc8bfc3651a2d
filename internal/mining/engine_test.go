package mining

import (
	"math/big"
	"testing"
	"time"

	"github.com/tristream-labs/tristream-chain/internal/ordering"
	"github.com/tristream-labs/tristream-chain/internal/pool"
	"github.com/tristream-labs/tristream-chain/pkg/tx"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

type fakeTips struct{ hashes []types.Hash }

func (f fakeTips) Tips(n int) []types.Hash {
	if len(f.hashes) < n {
		return f.hashes
	}
	return f.hashes[:n]
}

func TestNextBlockNumber_MonotoneUnderConcurrency(t *testing.T) {
	p := pool.New(100)
	e := New(p, fakeTips{}, 8)

	seen := make(chan uint64, 100)
	for i := 0; i < 100; i++ {
		go func() { seen <- e.NextBlockNumber() }()
	}
	nums := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		n := <-seen
		if nums[n] {
			t.Fatalf("duplicate block number %d", n)
		}
		nums[n] = true
	}
}

func TestProduceOnce_EmitsSubmissionWithOrderedTxs(t *testing.T) {
	p := pool.New(100)
	var addr types.Address
	addr[0] = 1
	p.Push(&tx.Transaction{From: addr, Fee: big.NewInt(5), Hash: types.Hash{1}})
	p.Push(&tx.Transaction{From: addr, Fee: big.NewInt(50), Hash: types.Hash{2}})

	e := New(p, fakeTips{}, 8)
	produceOnce(e, Streams[1], ordering.FeeBased)

	select {
	case sub := <-e.Submissions():
		if len(sub.Block.Transactions) != 2 {
			t.Fatalf("expected 2 txs in submission, got %d", len(sub.Block.Transactions))
		}
		if sub.Block.Transactions[0].Fee.Cmp(big.NewInt(50)) != 0 {
			t.Fatalf("expected fee-based ordering to put higher fee first")
		}
		if sub.Fees.Cmp(big.NewInt(55)) != 0 {
			t.Fatalf("expected total fees 55, got %s", sub.Fees)
		}
	case <-time.After(time.Second):
		t.Fatal("no submission emitted")
	}
}
