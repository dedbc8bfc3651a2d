package fairness

import (
	"math/big"
	"testing"
	"time"

	"github.com/tristream-labs/tristream-chain/pkg/tx"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

func addr(b byte) types.Address {
	var a types.Address
	a[0] = b
	return a
}

// TestSandwichDetection_S6 mirrors spec scenario S6: a block with Ta, Tv, Tc
// where Ta.from == Tc.from == Attacker, Tv.from == Victim, all three to == DEX.
func TestSandwichDetection_S6(t *testing.T) {
	attacker, victim, dex := addr(1), addr(2), addr(9)
	txs := []*tx.Transaction{
		{From: attacker, To: dex, Fee: big.NewInt(100)},
		{From: victim, To: dex, Fee: big.NewInt(10)},
		{From: attacker, To: dex, Fee: big.NewInt(100)},
	}
	now := time.Now()
	arrivals := []time.Time{now, now.Add(time.Second), now.Add(2 * time.Second)}

	report := Analyze(txs, arrivals)
	if len(report.Sandwiches) < 1 {
		t.Fatalf("expected at least one sandwich detection, got %d", len(report.Sandwiches))
	}
	if report.FairnessScore >= 1.0 {
		t.Fatalf("fairness score should be penalized, got %f", report.FairnessScore)
	}
	if report.EstimatedMEVValue.Cmp(big.NewInt(0)) <= 0 {
		t.Fatalf("expected nonzero estimated MEV value")
	}
}

func TestNoPatterns_FullFairness(t *testing.T) {
	now := time.Now()
	txs := []*tx.Transaction{
		{From: addr(1), To: addr(10), Fee: big.NewInt(5)},
		{From: addr(2), To: addr(11), Fee: big.NewInt(5)},
		{From: addr(3), To: addr(12), Fee: big.NewInt(5)},
	}
	arrivals := []time.Time{now, now.Add(time.Second), now.Add(2 * time.Second)}
	report := Analyze(txs, arrivals)
	if len(report.Sandwiches) != 0 || len(report.BackRuns) != 0 || len(report.FrontRuns) != 0 {
		t.Fatalf("expected no MEV patterns, got %+v", report)
	}
	if report.FairnessScore != 1.0 {
		t.Fatalf("expected perfect fairness score, got %f", report.FairnessScore)
	}
}

func TestEmptyBlock(t *testing.T) {
	report := Analyze(nil, nil)
	if report.FairnessScore != 0 {
		t.Fatalf("empty block fairness score = %f, want 0", report.FairnessScore)
	}
}
