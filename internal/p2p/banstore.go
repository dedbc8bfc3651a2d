package p2p

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tristream-labs/tristream-chain/internal/storage"
)

const banKeyPrefix = "ban/"

// BanRecord is a persisted ban entry, keyed by network address.
type BanRecord struct {
	Addr      string `json:"addr"`
	Reason    string `json:"reason"`
	Score     int    `json:"score"`
	BannedAt  int64  `json:"banned_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// IsExpired reports whether the ban's expiry has passed.
func (r *BanRecord) IsExpired() bool {
	return r.ExpiresAt > 0 && time.Now().Unix() >= r.ExpiresAt
}

// BanStore persists ban records in a storage.DB under the "ban/" prefix.
type BanStore struct {
	db storage.DB
}

// NewBanStore creates a BanStore backed by the given DB.
func NewBanStore(db storage.DB) *BanStore {
	return &BanStore{db: db}
}

func banKey(addr string) []byte {
	return []byte(banKeyPrefix + addr)
}

// Get retrieves a ban record by address.
func (bs *BanStore) Get(addr string) (*BanRecord, error) {
	data, err := bs.db.Get(banKey(addr))
	if err != nil {
		return nil, err
	}
	var rec BanRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal ban record: %w", err)
	}
	return &rec, nil
}

// Put persists a ban record.
func (bs *BanStore) Put(rec *BanRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal ban record: %w", err)
	}
	return bs.db.Put(banKey(rec.Addr), data)
}

// Delete removes a ban record.
func (bs *BanStore) Delete(addr string) error {
	return bs.db.Delete(banKey(addr))
}

// ForEach iterates over all ban records.
func (bs *BanStore) ForEach(fn func(*BanRecord) error) error {
	return bs.db.ForEach([]byte(banKeyPrefix), func(key, value []byte) error {
		var rec BanRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			return nil
		}
		return fn(&rec)
	})
}

// PruneExpired removes every expired ban record. Returns the number pruned.
func (bs *BanStore) PruneExpired() (int, error) {
	now := time.Now().Unix()
	var toDelete [][]byte

	err := bs.db.ForEach([]byte(banKeyPrefix), func(key, value []byte) error {
		var rec BanRecord
		if err := json.Unmarshal(value, &rec); err != nil {
			toDelete = append(toDelete, append([]byte(nil), key...))
			return nil
		}
		if rec.ExpiresAt > 0 && now >= rec.ExpiresAt {
			toDelete = append(toDelete, append([]byte(nil), key...))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("iterate for prune: %w", err)
	}

	for _, k := range toDelete {
		if err := bs.db.Delete(k); err != nil {
			return 0, fmt.Errorf("delete expired ban: %w", err)
		}
	}
	return len(toDelete), nil
}
