package sharding

import (
	"math/big"
	"testing"
	"time"

	"github.com/tristream-labs/tristream-chain/internal/state"
	"github.com/tristream-labs/tristream-chain/internal/storage"
	"github.com/tristream-labs/tristream-chain/pkg/tx"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

func newShardPair(t *testing.T) (*Coordinator, *StateShard, *StateShard) {
	t.Helper()
	shard0 := NewStateShard(state.NewDurable(storage.NewMemory()))
	shard1 := NewStateShard(state.NewDurable(storage.NewMemory()))
	c := New(map[int]ShardParticipant{0: shard0, 1: shard1}, 2*time.Second)
	return c, shard0, shard1
}

func addrWithShard(t *testing.T, shardCount, want int) types.Address {
	t.Helper()
	for i := 0; i < 256; i++ {
		var a types.Address
		a[len(a)-1] = byte(i)
		if ShardFor(a, shardCount) == want {
			return a
		}
	}
	t.Fatalf("could not find address routing to shard %d", want)
	return types.Address{}
}

func TestCoordinator_CommitsAcrossShards(t *testing.T) {
	c, shard0, shard1 := newShardPair(t)

	from := addrWithShard(t, 2, 0)
	to := addrWithShard(t, 2, 1)

	shard0.backend.SetBalance(from, big.NewInt(1000))

	transaction := &tx.Transaction{
		From:  from,
		To:    to,
		Value: big.NewInt(100),
		Fee:   big.NewInt(1),
		Nonce: 0,
		Hash:  types.Hash{0xaa},
	}

	cst, err := c.Begin(transaction, 2)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if cst.Status != StatusCommitted {
		t.Fatalf("expected committed, got %s", cst.Status)
	}

	if got := shard0.backend.GetBalance(from); got.Cmp(big.NewInt(899)) != 0 {
		t.Errorf("expected sender balance 899, got %s", got.String())
	}
	if got := shard1.backend.GetBalance(to); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("expected receiver balance 100, got %s", got.String())
	}
	if got := shard0.backend.GetNonce(from); got != 1 {
		t.Errorf("expected nonce 1, got %d", got)
	}
}

func TestCoordinator_AbortsOnInsufficientBalance(t *testing.T) {
	c, shard0, _ := newShardPair(t)

	from := addrWithShard(t, 2, 0)
	to := addrWithShard(t, 2, 1)
	shard0.backend.SetBalance(from, big.NewInt(10))

	transaction := &tx.Transaction{
		From:  from,
		To:    to,
		Value: big.NewInt(100),
		Fee:   big.NewInt(1),
		Hash:  types.Hash{0xbb},
	}

	cst, err := c.Begin(transaction, 2)
	if err == nil {
		t.Fatal("expected error for insufficient balance")
	}
	if cst.Status != StatusAborted {
		t.Errorf("expected aborted, got %s", cst.Status)
	}
	if got := shard0.backend.GetBalance(from); got.Cmp(big.NewInt(10)) != 0 {
		t.Errorf("balance should be unchanged after abort, got %s", got.String())
	}
}

func TestCoordinator_RejectsSameShardTransfer(t *testing.T) {
	c, _, _ := newShardPair(t)
	a := addrWithShard(t, 2, 0)
	b2 := addrWithShard(t, 2, 0)

	transaction := &tx.Transaction{From: a, To: b2, Value: big.NewInt(1), Fee: big.NewInt(0)}
	if _, err := c.Begin(transaction, 2); err != ErrSameShard {
		t.Errorf("expected ErrSameShard, got %v", err)
	}
}

func TestShardFor_Deterministic(t *testing.T) {
	var a types.Address
	a[0] = 7
	first := ShardFor(a, 4)
	second := ShardFor(a, 4)
	if first != second {
		t.Errorf("routing must be deterministic: got %d then %d", first, second)
	}
	if ShardFor(a, 1) != 0 {
		t.Error("single shard must always route to 0")
	}
}

func TestCoordinator_Lookup(t *testing.T) {
	c, shard0, _ := newShardPair(t)
	from := addrWithShard(t, 2, 0)
	to := addrWithShard(t, 2, 1)
	shard0.backend.SetBalance(from, big.NewInt(500))

	transaction := &tx.Transaction{From: from, To: to, Value: big.NewInt(1), Fee: big.NewInt(0), Hash: types.Hash{0xcc}}
	if _, err := c.Begin(transaction, 2); err != nil {
		t.Fatalf("begin: %v", err)
	}

	cst, ok := c.Lookup(transaction.Hash)
	if !ok {
		t.Fatal("expected to find tracked transaction")
	}
	if cst.Status != StatusCommitted {
		t.Errorf("expected committed status in lookup, got %s", cst.Status)
	}
}
