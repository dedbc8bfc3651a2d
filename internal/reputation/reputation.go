// Package reputation scores addresses by their on-chain behavior: success
// rate, account age, suspicious activity, and (for mining addresses) blocks
// produced (spec supplement: address reputation scoring).
package reputation

import (
	"math/big"
	"sync"

	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// Score is a reputation value clamped to [0, 100]. Addresses start neutral
// at 50.
type Score float64

// NewScore clamps v to [0, 100].
func NewScore(v float64) Score {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return Score(v)
}

// IsHigh reports a well-established, trustworthy address (>= 70).
func (s Score) IsHigh() bool { return s >= 70 }

// IsMedium reports a neutral-to-decent address (40-70).
func (s Score) IsMedium() bool { return s >= 40 && s < 70 }

// IsLow reports an address whose behavior warrants scrutiny (< 40).
func (s Score) IsLow() bool { return s < 40 }

// Factors are the raw counters a Score is derived from.
type Factors struct {
	SuccessfulTxs        uint64
	FailedTxs            uint64
	BlocksMined          uint64
	AccountAgeDays       uint64
	TotalValueTransacted *big.Int
	UniqueContacts       uint64
	SuspiciousActivities uint64
}

func newFactors() *Factors {
	return &Factors{TotalValueTransacted: new(big.Int)}
}

// Manager tracks and scores every address it has observed. Safe for
// concurrent use; in practice only the committer's single writer goroutine
// mutates it.
type Manager struct {
	mu          sync.Mutex
	scores      map[types.Address]Score
	factors     map[types.Address]*Factors
	contactSeen map[types.Address]map[types.Address]bool
}

// NewManager creates an empty reputation Manager.
func NewManager() *Manager {
	return &Manager{
		scores:      make(map[types.Address]Score),
		factors:     make(map[types.Address]*Factors),
		contactSeen: make(map[types.Address]map[types.Address]bool),
	}
}

// calculate recomputes and caches an address's score from its factors. The
// weighting mirrors the source: a 50-point neutral base, up to 20 points
// for success rate, up to 15 points each for account age and blocks mined, up to 10
// points for network breadth, and penalties of up to 30 points for
// suspicious activity and 20 points for a >50% failure rate.
func (m *Manager) calculate(addr types.Address) Score {
	f := m.factorsFor(addr)
	score := 50.0

	totalTxs := f.SuccessfulTxs + f.FailedTxs
	if totalTxs > 0 {
		successRate := float64(f.SuccessfulTxs) / float64(totalTxs)
		score += successRate * 20.0
	}

	if f.AccountAgeDays > 0 {
		age := f.AccountAgeDays
		if age > 365 {
			age = 365
		}
		score += (float64(age) / 365.0) * 15.0
	}

	if f.BlocksMined > 0 {
		mined := f.BlocksMined
		if mined > 1000 {
			mined = 1000
		}
		score += (float64(mined) / 1000.0) * 15.0
	}

	if f.UniqueContacts > 0 {
		contacts := f.UniqueContacts
		if contacts > 100 {
			contacts = 100
		}
		score += (float64(contacts) / 100.0) * 10.0
	}

	if f.SuspiciousActivities > 0 {
		violations := f.SuspiciousActivities
		if violations > 10 {
			violations = 10
		}
		score -= (float64(violations) / 10.0) * 30.0
	}

	if totalTxs > 10 {
		failureRate := float64(f.FailedTxs) / float64(totalTxs)
		if failureRate > 0.5 {
			score -= (failureRate - 0.5) * 40.0
		}
	}

	s := NewScore(score)
	m.scores[addr] = s
	return s
}

func (m *Manager) factorsFor(addr types.Address) *Factors {
	f, ok := m.factors[addr]
	if !ok {
		f = newFactors()
		m.factors[addr] = f
	}
	return f
}

// GetReputation returns the cached score for addr, computing it on first
// observation.
func (m *Manager) GetReputation(addr types.Address) Score {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.scores[addr]; ok {
		return s
	}
	return m.calculate(addr)
}

// RecordSuccessfulTx records a completed transaction from addr to "to" for
// value, and recalculates addr's reputation. Satisfies
// internal/committer.ReputationTracker.
func (m *Manager) RecordSuccessfulTx(addr types.Address, value *big.Int, to types.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := m.factorsFor(addr)
	f.SuccessfulTxs++
	if value != nil {
		f.TotalValueTransacted.Add(f.TotalValueTransacted, value)
	}
	if !to.IsZero() {
		seen := m.contactSeen[addr]
		if seen == nil {
			seen = make(map[types.Address]bool)
			m.contactSeen[addr] = seen
		}
		if !seen[to] {
			seen[to] = true
			f.UniqueContacts++
		}
	}
	m.calculate(addr)
}

// RecordFailedTx records a rejected transaction from addr. Satisfies
// internal/committer.ReputationTracker.
func (m *Manager) RecordFailedTx(addr types.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factorsFor(addr).FailedTxs++
	m.calculate(addr)
}

// RecordSuspiciousActivity penalizes addr for a pattern flagged elsewhere
// (e.g. by internal/security or internal/fairness).
func (m *Manager) RecordSuspiciousActivity(addr types.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factorsFor(addr).SuspiciousActivities++
	m.calculate(addr)
}

// RecordBlockMined credits addr with one more mined block.
func (m *Manager) RecordBlockMined(addr types.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factorsFor(addr).BlocksMined++
	m.calculate(addr)
}

// SetAccountAgeDays sets addr's observed account age directly, for callers
// that track first-seen timestamps themselves (e.g. from DAG replay).
func (m *Manager) SetAccountAgeDays(addr types.Address, days uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factorsFor(addr).AccountAgeDays = days
	m.calculate(addr)
}

// Factors returns a copy of addr's tracked factors, or false if addr has
// never been observed.
func (m *Manager) Factors(addr types.Address) (Factors, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.factors[addr]
	if !ok {
		return Factors{}, false
	}
	return *f, true
}
