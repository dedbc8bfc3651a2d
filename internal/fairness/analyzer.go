// Package fairness computes observability-only MEV and ordering-fairness
// metrics for a committed block (spec §4.6). Nothing here affects
// acceptance; it exists so operators and researchers can see how exposed a
// stream's ordering policy leaves its users to reordering attacks.
package fairness

import (
	"math/big"
	"sort"
	"time"

	"github.com/tristream-labs/tristream-chain/pkg/tx"
)

// Sandwich is a detected three-transaction sandwich pattern.
type Sandwich struct {
	Front, Victim, Back int // indices into the block's transaction list
}

// Leg is a detected two-transaction back-run or front-run.
type Leg struct {
	First, Second int
}

// Report is the full fairness analysis for one block.
type Report struct {
	ReorderingDistance float64
	Sandwiches         []Sandwich
	BackRuns           []Leg
	FrontRuns          []Leg
	EstimatedMEVValue  *big.Int
	FeeGini            float64
	FairnessScore      float64
}

// Analyze computes a Report for txs in their committed block order, given
// the arrival time recorded for each (by pool position; arrivals[i]
// corresponds to txs[i]).
func Analyze(txs []*tx.Transaction, arrivals []time.Time) Report {
	r := Report{EstimatedMEVValue: new(big.Int)}
	if len(txs) == 0 {
		return r
	}

	r.ReorderingDistance = reorderingDistance(arrivals)
	r.Sandwiches = detectSandwiches(txs)
	r.BackRuns, r.FrontRuns = detectRuns(txs, arrivals)
	r.EstimatedMEVValue = estimateMEV(txs, r.Sandwiches, r.BackRuns, r.FrontRuns)
	r.FeeGini = feeGini(txs)
	r.FairnessScore = fairnessScore(r, len(txs))
	return r
}

// reorderingDistance is the mean |actual position - arrival-sorted
// position| across transactions.
func reorderingDistance(arrivals []time.Time) float64 {
	n := len(arrivals)
	if n == 0 {
		return 0
	}
	type ranked struct {
		actualPos int
		arrival   time.Time
	}
	ranks := make([]ranked, n)
	for i, a := range arrivals {
		ranks[i] = ranked{actualPos: i, arrival: a}
	}
	byArrival := make([]ranked, n)
	copy(byArrival, ranks)
	sort.SliceStable(byArrival, func(i, j int) bool {
		return byArrival[i].arrival.Before(byArrival[j].arrival)
	})

	arrivalPos := make([]int, n)
	for pos, r := range byArrival {
		arrivalPos[r.actualPos] = pos
	}

	var sum float64
	for actual, arrivalRank := range arrivalPos {
		d := actual - arrivalRank
		if d < 0 {
			d = -d
		}
		sum += float64(d)
	}
	return sum / float64(n)
}

// detectSandwiches finds triples (a, v, c) with a before v before c in
// block order, a.to == v.to == c.to != zero, a.from == c.from, v.from
// different from that address.
func detectSandwiches(txs []*tx.Transaction) []Sandwich {
	var out []Sandwich
	n := len(txs)
	for i := 0; i < n; i++ {
		a := txs[i]
		if a.To.IsZero() {
			continue
		}
		for j := i + 1; j < n; j++ {
			v := txs[j]
			if v.To != a.To || v.From == a.From {
				continue
			}
			for k := j + 1; k < n; k++ {
				c := txs[k]
				if c.To == a.To && c.From == a.From {
					out = append(out, Sandwich{Front: i, Victim: j, Back: k})
				}
			}
		}
	}
	return out
}

// detectRuns finds adjacent pairs sharing `to` with different `from`.
// If the block order agrees with arrival order it's a back-run; if block
// order reverses arrival order it's a front-run.
func detectRuns(txs []*tx.Transaction, arrivals []time.Time) (backRuns, frontRuns []Leg) {
	for i := 0; i+1 < len(txs); i++ {
		a, b := txs[i], txs[i+1]
		if a.To.IsZero() || a.To != b.To || a.From == b.From {
			continue
		}
		if arrivals[i].Before(arrivals[i+1]) || arrivals[i].Equal(arrivals[i+1]) {
			backRuns = append(backRuns, Leg{First: i, Second: i + 1})
		} else {
			frontRuns = append(frontRuns, Leg{First: i, Second: i + 1})
		}
	}
	return
}

// estimateMEV sums the fees of the attacker legs across all detections:
// for a sandwich, the front and back legs; for a run, the second
// (advantaged) leg.
func estimateMEV(txs []*tx.Transaction, sandwiches []Sandwich, backRuns, frontRuns []Leg) *big.Int {
	total := new(big.Int)
	feeOf := func(i int) *big.Int {
		if txs[i].Fee == nil {
			return new(big.Int)
		}
		return txs[i].Fee
	}
	for _, s := range sandwiches {
		total.Add(total, feeOf(s.Front))
		total.Add(total, feeOf(s.Back))
	}
	for _, l := range backRuns {
		total.Add(total, feeOf(l.Second))
	}
	for _, l := range frontRuns {
		total.Add(total, feeOf(l.Second))
	}
	return total
}

// feeGini computes the Gini coefficient of the block's fee distribution.
func feeGini(txs []*tx.Transaction) float64 {
	n := len(txs)
	if n == 0 {
		return 0
	}
	fees := make([]float64, n)
	var sum float64
	for i, t := range txs {
		f := 0.0
		if t.Fee != nil {
			bf, _ := new(big.Float).SetInt(t.Fee).Float64()
			f = bf
		}
		fees[i] = f
		sum += f
	}
	if sum == 0 {
		return 0
	}
	sort.Float64s(fees)

	var weighted float64
	for i, f := range fees {
		weighted += float64(i+1) * f
	}
	// Standard discrete Gini from sorted values:
	// G = (2*sum(i*x_i) / (n*sum(x))) - (n+1)/n
	g := (2*weighted)/(float64(n)*sum) - float64(n+1)/float64(n)
	if g < 0 {
		g = 0
	}
	if g > 1 {
		g = 1
	}
	return g
}

// fairnessScore combines reordering distance, MEV presence, and fee
// concentration per the spec's fixed weights (§4.6). The reordering term
// is normalized against the largest distance a full reversal could produce.
func fairnessScore(r Report, n int) float64 {
	normalizedReorder := 0.0
	if n > 1 {
		maxDistance := float64(n) / 2
		normalizedReorder = r.ReorderingDistance / maxDistance
		if normalizedReorder > 1 {
			normalizedReorder = 1
		}
	}
	mevPenalty := 0.0
	if len(r.Sandwiches) > 0 || len(r.BackRuns) > 0 || len(r.FrontRuns) > 0 {
		mevPenalty = 0.3
	}
	score := 1 - 0.4*normalizedReorder - mevPenalty - 0.2*r.FeeGini
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}
