package p2p

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tristream-labs/tristream-chain/internal/storage"
)

const (
	peerKeyPrefix     = "peer/"
	maxPersistedPeers = 500
)

// PeerRecord is a persisted peer entry, keyed by network address
// (host:port) rather than a cryptographic peer ID: the authenticated
// envelope already carries the sender's identity key, so the peerstore's
// job is purely reconnection bookkeeping (spec supplement: peer
// persistence/reconnection).
type PeerRecord struct {
	Addr     string `json:"addr"`
	LastSeen int64  `json:"last_seen"`
	Source   string `json:"source"` // "seed", "inbound", "gossip"
}

// PeerStore persists peer records in a storage.DB under the "peer/" prefix.
type PeerStore struct {
	db storage.DB
}

// NewPeerStore creates a PeerStore backed by the given DB.
func NewPeerStore(db storage.DB) *PeerStore {
	return &PeerStore{db: db}
}

func peerKey(addr string) []byte {
	return []byte(peerKeyPrefix + addr)
}

// Save persists a peer record. If the store is at maxPersistedPeers and
// this is a new address, the save is silently skipped.
func (ps *PeerStore) Save(rec PeerRecord) error {
	key := peerKey(rec.Addr)

	exists, err := ps.db.Has(key)
	if err != nil {
		return fmt.Errorf("check peer exists: %w", err)
	}
	if !exists {
		count, err := ps.Count()
		if err != nil {
			return fmt.Errorf("count peers: %w", err)
		}
		if count >= maxPersistedPeers {
			return nil
		}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal peer record: %w", err)
	}
	return ps.db.Put(key, data)
}

// Load retrieves a single peer record by address.
func (ps *PeerStore) Load(addr string) (*PeerRecord, error) {
	data, err := ps.db.Get(peerKey(addr))
	if err != nil {
		return nil, fmt.Errorf("get peer record: %w", err)
	}
	var rec PeerRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal peer record: %w", err)
	}
	return &rec, nil
}

// LoadAll returns every persisted peer record.
func (ps *PeerStore) LoadAll() ([]PeerRecord, error) {
	var records []PeerRecord
	err := ps.db.ForEach([]byte(peerKeyPrefix), func(key, value []byte) error {
		var rec PeerRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return nil
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate peer records: %w", err)
	}
	return records, nil
}

// Delete removes a peer record.
func (ps *PeerStore) Delete(addr string) error {
	return ps.db.Delete(peerKey(addr))
}

// PruneStale removes records older than threshold. Returns the number pruned.
func (ps *PeerStore) PruneStale(threshold time.Duration) (int, error) {
	cutoff := time.Now().Add(-threshold).Unix()
	var toDelete [][]byte

	err := ps.db.ForEach([]byte(peerKeyPrefix), func(key, value []byte) error {
		var rec PeerRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			keyCopy := append([]byte(nil), key...)
			toDelete = append(toDelete, keyCopy)
			return nil
		}
		if rec.LastSeen < cutoff {
			keyCopy := append([]byte(nil), key...)
			toDelete = append(toDelete, keyCopy)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("iterate for prune: %w", err)
	}

	for _, k := range toDelete {
		if err := ps.db.Delete(k); err != nil {
			return 0, fmt.Errorf("delete stale peer: %w", err)
		}
	}
	return len(toDelete), nil
}

// Count returns the number of persisted peer records.
func (ps *PeerStore) Count() (int, error) {
	count := 0
	err := ps.db.ForEach([]byte(peerKeyPrefix), func(key, value []byte) error {
		count++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count peers: %w", err)
	}
	return count, nil
}
