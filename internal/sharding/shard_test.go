package sharding

import (
	"math/big"
	"testing"

	"github.com/tristream-labs/tristream-chain/internal/state"
	"github.com/tristream-labs/tristream-chain/internal/storage"
	"github.com/tristream-labs/tristream-chain/pkg/tx"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

func TestStateShard_PrepareDebitReservesAgainstSecondSpend(t *testing.T) {
	shard := NewStateShard(state.NewDurable(storage.NewMemory()))
	var from types.Address
	from[0] = 1
	shard.backend.SetBalance(from, big.NewInt(100))

	t1 := &tx.Transaction{From: from, Value: big.NewInt(60), Fee: big.NewInt(0)}
	t2 := &tx.Transaction{From: from, Value: big.NewInt(60), Fee: big.NewInt(0)}

	if err := shard.PrepareDebit(t1); err != nil {
		t.Fatalf("first prepare should succeed: %v", err)
	}
	if err := shard.PrepareDebit(t2); err == nil {
		t.Fatal("second prepare should fail: balance already reserved by first")
	}
}

func TestStateShard_AbortDebitReleasesReservation(t *testing.T) {
	shard := NewStateShard(state.NewDurable(storage.NewMemory()))
	var from types.Address
	from[0] = 2
	shard.backend.SetBalance(from, big.NewInt(100))

	t1 := &tx.Transaction{From: from, Value: big.NewInt(60), Fee: big.NewInt(0)}
	if err := shard.PrepareDebit(t1); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := shard.AbortDebit(t1); err != nil {
		t.Fatalf("abort: %v", err)
	}

	t2 := &tx.Transaction{From: from, Value: big.NewInt(90), Fee: big.NewInt(0)}
	if err := shard.PrepareDebit(t2); err != nil {
		t.Errorf("prepare after abort should succeed once reservation released: %v", err)
	}
}

func TestStateShard_CommitCreditAddsBalance(t *testing.T) {
	shard := NewStateShard(state.NewDurable(storage.NewMemory()))
	var to types.Address
	to[0] = 3

	transaction := &tx.Transaction{To: to, Value: big.NewInt(42), Fee: big.NewInt(0)}
	if err := shard.CommitCredit(transaction); err != nil {
		t.Fatalf("commit credit: %v", err)
	}
	if got := shard.backend.GetBalance(to); got.Cmp(big.NewInt(42)) != 0 {
		t.Errorf("expected balance 42, got %s", got.String())
	}
}
