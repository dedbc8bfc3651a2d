package security

import (
	"math/big"

	"github.com/tristream-labs/tristream-chain/pkg/tx"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// FundFlow is one path funds took from a source address, found by
// breadth-first traversal of the transaction graph.
type FundFlow struct {
	Path         []types.Address
	Transactions []types.Hash
	TotalValue   *big.Int
	HopCount     int
}

// AddressSummary aggregates an address's observed transaction history for
// investigation purposes.
type AddressSummary struct {
	Address          types.Address
	TotalReceived    *big.Int
	TotalSent        *big.Int
	IncomingTxCount  uint64
	OutgoingTxCount  uint64
	UniqueContacts   int
	FirstSeen        int64
	LastSeen         int64
}

// graphEdge is one observed transfer, kept in arrival order per sender.
type graphEdge struct {
	to    types.Address
	value *big.Int
	hash  types.Hash
}

// ForensicAnalyzer indexes committed transactions into a graph keyed by
// address so fund flows can be traced and per-address summaries built
// (spec supplement: fund-flow forensics).
type ForensicAnalyzer struct {
	txIndex    map[types.Hash]*tx.Transaction
	history    map[types.Address][]types.Hash
	graph      map[types.Address][]graphEdge
	firstSeen  map[types.Address]int64
	lastSeen   map[types.Address]int64
	received   map[types.Address]*big.Int
	sent       map[types.Address]*big.Int
	incomingN  map[types.Address]uint64
	outgoingN  map[types.Address]uint64
	contacts   map[types.Address]map[types.Address]bool
}

// NewForensicAnalyzer creates an empty ForensicAnalyzer.
func NewForensicAnalyzer() *ForensicAnalyzer {
	return &ForensicAnalyzer{
		txIndex:   make(map[types.Hash]*tx.Transaction),
		history:   make(map[types.Address][]types.Hash),
		graph:     make(map[types.Address][]graphEdge),
		firstSeen: make(map[types.Address]int64),
		lastSeen:  make(map[types.Address]int64),
		received:  make(map[types.Address]*big.Int),
		sent:      make(map[types.Address]*big.Int),
		incomingN: make(map[types.Address]uint64),
		outgoingN: make(map[types.Address]uint64),
		contacts:  make(map[types.Address]map[types.Address]bool),
	}
}

// IndexTransaction records t at blockTimestamp for later tracing and
// summarization. Satisfies internal/committer.ForensicsIndexer.
func (fa *ForensicAnalyzer) IndexTransaction(t *tx.Transaction, blockTimestamp int64) {
	fa.txIndex[t.Hash] = t
	fa.history[t.From] = append(fa.history[t.From], t.Hash)
	fa.touch(t.From, blockTimestamp)

	value := t.Value
	if value == nil {
		value = new(big.Int)
	}
	fa.addSent(t.From, value)
	fa.outgoingN[t.From]++

	if !t.To.IsZero() {
		fa.history[t.To] = append(fa.history[t.To], t.Hash)
		fa.touch(t.To, blockTimestamp)
		fa.addReceived(t.To, value)
		fa.incomingN[t.To]++

		fa.graph[t.From] = append(fa.graph[t.From], graphEdge{to: t.To, value: value, hash: t.Hash})
		fa.markContact(t.From, t.To)
	}
}

func (fa *ForensicAnalyzer) touch(addr types.Address, ts int64) {
	if _, ok := fa.firstSeen[addr]; !ok {
		fa.firstSeen[addr] = ts
	}
	fa.lastSeen[addr] = ts
}

func (fa *ForensicAnalyzer) addSent(addr types.Address, v *big.Int) {
	if fa.sent[addr] == nil {
		fa.sent[addr] = new(big.Int)
	}
	fa.sent[addr].Add(fa.sent[addr], v)
}

func (fa *ForensicAnalyzer) addReceived(addr types.Address, v *big.Int) {
	if fa.received[addr] == nil {
		fa.received[addr] = new(big.Int)
	}
	fa.received[addr].Add(fa.received[addr], v)
}

func (fa *ForensicAnalyzer) markContact(from, to types.Address) {
	if fa.contacts[from] == nil {
		fa.contacts[from] = make(map[types.Address]bool)
	}
	fa.contacts[from][to] = true
}

// Summary builds an AddressSummary for addr from everything indexed so far.
func (fa *ForensicAnalyzer) Summary(addr types.Address) AddressSummary {
	received := fa.received[addr]
	if received == nil {
		received = new(big.Int)
	}
	sent := fa.sent[addr]
	if sent == nil {
		sent = new(big.Int)
	}
	return AddressSummary{
		Address:         addr,
		TotalReceived:   new(big.Int).Set(received),
		TotalSent:       new(big.Int).Set(sent),
		IncomingTxCount: fa.incomingN[addr],
		OutgoingTxCount: fa.outgoingN[addr],
		UniqueContacts:  len(fa.contacts[addr]),
		FirstSeen:       fa.firstSeen[addr],
		LastSeen:        fa.lastSeen[addr],
	}
}

// TraceFunds performs a breadth-first walk of the transaction graph from
// source, returning every distinct path discovered up to maxHops deep and
// maxPaths long.
func (fa *ForensicAnalyzer) TraceFunds(source types.Address, maxHops, maxPaths int) []FundFlow {
	type frontier struct {
		path  []types.Address
		txs   []types.Hash
		total *big.Int
	}

	var flows []FundFlow
	queue := []frontier{{path: []types.Address{source}, total: new(big.Int)}}

	for len(queue) > 0 && len(flows) < maxPaths {
		cur := queue[0]
		queue = queue[1:]

		last := cur.path[len(cur.path)-1]
		edges := fa.graph[last]
		if (len(edges) == 0 || len(cur.path)-1 >= maxHops) && len(cur.path) > 1 {
			flows = append(flows, FundFlow{
				Path:         append([]types.Address{}, cur.path...),
				Transactions: append([]types.Hash{}, cur.txs...),
				TotalValue:   new(big.Int).Set(cur.total),
				HopCount:     len(cur.path) - 1,
			})
			continue
		}
		if len(cur.path)-1 >= maxHops {
			continue
		}

		for _, e := range edges {
			if containsAddr(cur.path, e.to) {
				continue // avoid cycles
			}
			nextPath := append(append([]types.Address{}, cur.path...), e.to)
			nextTxs := append(append([]types.Hash{}, cur.txs...), e.hash)
			nextTotal := new(big.Int).Add(cur.total, e.value)
			queue = append(queue, frontier{path: nextPath, txs: nextTxs, total: nextTotal})
		}
	}

	if len(flows) > maxPaths {
		flows = flows[:maxPaths]
	}
	return flows
}

func containsAddr(path []types.Address, addr types.Address) bool {
	for _, p := range path {
		if p == addr {
			return true
		}
	}
	return false
}
