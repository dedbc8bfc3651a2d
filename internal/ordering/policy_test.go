package ordering

import (
	"math/big"
	"testing"
	"time"

	"github.com/tristream-labs/tristream-chain/pkg/tx"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

func item(from byte, fee int64, arrival time.Time) Item {
	var addr types.Address
	addr[0] = from
	return Item{
		Tx:      &tx.Transaction{From: addr, Fee: big.NewInt(fee)},
		Arrival: arrival,
	}
}

func TestFIFO_StableByArrival(t *testing.T) {
	base := time.Now()
	items := []Item{
		item(3, 1, base.Add(3*time.Second)),
		item(1, 9, base.Add(1*time.Second)),
		item(2, 5, base.Add(2*time.Second)),
	}
	out := Apply(FIFO, items, Context{Now: base}, 1, 0)
	if out[0].Tx.From[0] != 1 || out[1].Tx.From[0] != 2 || out[2].Tx.From[0] != 3 {
		t.Fatalf("FIFO order wrong: %+v", out)
	}
}

func TestFeeBased_DescendingThenArrival(t *testing.T) {
	base := time.Now()
	items := []Item{
		item(1, 5, base.Add(2*time.Second)),
		item(2, 9, base.Add(3*time.Second)),
		item(3, 9, base.Add(1*time.Second)), // same fee, earlier arrival
	}
	out := Apply(FeeBased, items, Context{Now: base}, 1, 0)
	if out[0].Tx.From[0] != 3 || out[1].Tx.From[0] != 2 || out[2].Tx.From[0] != 1 {
		t.Fatalf("FeeBased order wrong: %+v", out)
	}
}

func TestRandom_DeterministicForFixedSeed(t *testing.T) {
	base := time.Now()
	items := []Item{
		item(1, 1, base), item(2, 1, base), item(3, 1, base),
		item(4, 1, base), item(5, 1, base),
	}
	out1 := Apply(Random, items, Context{Now: base}, 42, 1)
	out2 := Apply(Random, items, Context{Now: base}, 42, 1)
	for i := range out1 {
		if out1[i].Tx.From[0] != out2[i].Tx.From[0] {
			t.Fatalf("Random policy not reproducible: %+v vs %+v", out1, out2)
		}
	}
}

func TestHybrid_TopTierFirst(t *testing.T) {
	base := time.Now()
	items := make([]Item, 0, 10)
	for i := 0; i < 9; i++ {
		items = append(items, item(byte(i), 1, base.Add(time.Duration(i)*time.Second)))
	}
	items = append(items, item(99, 1000, base.Add(9*time.Second)))
	out := Apply(Hybrid, items, Context{Now: base}, 1, 0)
	if out[0].Tx.From[0] != 99 {
		t.Fatalf("expected top-fee transaction first, got %+v", out[0])
	}
}

func TestTimeWeighted_NewerHighFeeOutscoresOlderLowFee(t *testing.T) {
	now := time.Now()
	items := []Item{
		item(1, 100, now.Add(-1*time.Second)), // fresh, fee 100 -> score ~50
		item(2, 10, now.Add(-100*time.Second)), // old, fee 10 -> score ~10/101
	}
	out := Apply(TimeWeighted, items, Context{Now: now}, 1, 0)
	if out[0].Tx.From[0] != 1 {
		t.Fatalf("expected higher time-weighted score first: %+v", out)
	}
}
