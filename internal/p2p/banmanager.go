package p2p

import (
	"sync"
	"time"

	"github.com/tristream-labs/tristream-chain/internal/log"
)

// Ban thresholds and durations.
const (
	BanThreshold = 100
	BanDuration  = 24 * time.Hour
)

// Penalty values for different offenses.
const (
	PenaltyInvalidBlock  = 50
	PenaltyInvalidTx     = 20
	PenaltyHandshakeFail = 100
)

// Disconnector closes an active connection to a peer address. Node
// implements this; tests can pass nil to skip disconnection.
type Disconnector interface {
	DisconnectPeer(addr string)
}

// BanManager tracks peer offense scores and manages bans, keyed by network
// address (spec supplement: peer ban management).
type BanManager struct {
	mu     sync.RWMutex
	scores map[string]int
	bans   map[string]*BanRecord
	store  *BanStore
	node   Disconnector
}

// NewBanManager creates a BanManager. store may be nil to disable
// persistence. node may be nil to skip disconnect-on-ban.
func NewBanManager(store *BanStore, node Disconnector) *BanManager {
	return &BanManager{
		scores: make(map[string]int),
		bans:   make(map[string]*BanRecord),
		store:  store,
		node:   node,
	}
}

// SetDisconnector installs the Disconnector used to drop a peer's active
// connection the moment it gets banned. Needed because the Node that
// implements Disconnector is itself constructed with a reference to this
// BanManager, so the two can't be wired in a single constructor call.
func (bm *BanManager) SetDisconnector(node Disconnector) {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.node = node
}

// LoadBans restores persisted bans from the store into the in-memory cache.
func (bm *BanManager) LoadBans() {
	if bm.store == nil {
		return
	}
	bm.store.PruneExpired()

	bm.mu.Lock()
	defer bm.mu.Unlock()
	bm.store.ForEach(func(rec *BanRecord) error {
		if !rec.IsExpired() {
			bm.bans[rec.Addr] = rec
		}
		return nil
	})
}

// RecordOffense adds a penalty score to a peer. If the cumulative score
// reaches BanThreshold, the peer is banned and disconnected.
func (bm *BanManager) RecordOffense(addr string, penalty int, reason string) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if rec, ok := bm.bans[addr]; ok && !rec.IsExpired() {
		return
	}

	bm.scores[addr] += penalty
	if bm.scores[addr] < BanThreshold {
		return
	}

	now := time.Now()
	rec := &BanRecord{
		Addr:      addr,
		Reason:    reason,
		Score:     bm.scores[addr],
		BannedAt:  now.Unix(),
		ExpiresAt: now.Add(BanDuration).Unix(),
	}
	bm.bans[addr] = rec
	delete(bm.scores, addr)

	if bm.store != nil {
		bm.store.Put(rec)
	}

	log.P2P.Warn().Str("peer", addr).Str("reason", reason).Int("score", rec.Score).Msg("peer banned")

	if bm.node != nil {
		go bm.node.DisconnectPeer(addr)
	}
}

// IsBanned reports whether addr is currently banned, pruning the ban if it
// has since expired.
func (bm *BanManager) IsBanned(addr string) bool {
	bm.mu.RLock()
	rec, ok := bm.bans[addr]
	bm.mu.RUnlock()

	if !ok {
		return false
	}
	if rec.IsExpired() {
		bm.mu.Lock()
		delete(bm.bans, addr)
		bm.mu.Unlock()
		if bm.store != nil {
			bm.store.Delete(addr)
		}
		return false
	}
	return true
}

// Unban manually removes a ban.
func (bm *BanManager) Unban(addr string) {
	bm.mu.Lock()
	delete(bm.bans, addr)
	delete(bm.scores, addr)
	bm.mu.Unlock()

	if bm.store != nil {
		bm.store.Delete(addr)
	}
}

// BanList returns a snapshot of all active bans.
func (bm *BanManager) BanList() []BanRecord {
	bm.mu.RLock()
	defer bm.mu.RUnlock()

	var list []BanRecord
	for _, rec := range bm.bans {
		if !rec.IsExpired() {
			list = append(list, *rec)
		}
	}
	return list
}

// RunPruneLoop periodically prunes expired bans until done is closed.
func (bm *BanManager) RunPruneLoop(done <-chan struct{}) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			bm.pruneExpired()
		}
	}
}

func (bm *BanManager) pruneExpired() {
	bm.mu.Lock()
	var expired []string
	for addr, rec := range bm.bans {
		if rec.IsExpired() {
			expired = append(expired, addr)
		}
	}
	for _, addr := range expired {
		delete(bm.bans, addr)
	}
	bm.mu.Unlock()

	if bm.store != nil {
		bm.store.PruneExpired()
	}
}
