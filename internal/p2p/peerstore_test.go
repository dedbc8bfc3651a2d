package p2p

import (
	"testing"
	"time"

	"github.com/tristream-labs/tristream-chain/internal/storage"
)

func TestPeerStore_SaveAndLoad(t *testing.T) {
	db := storage.NewMemory()
	ps := NewPeerStore(db)

	rec := PeerRecord{Addr: "10.0.0.1:30303", LastSeen: time.Now().Unix(), Source: "seed"}
	if err := ps.Save(rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := ps.Load("10.0.0.1:30303")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Source != "seed" {
		t.Errorf("expected source 'seed', got %q", loaded.Source)
	}
}

func TestPeerStore_LoadAllAndCount(t *testing.T) {
	db := storage.NewMemory()
	ps := NewPeerStore(db)

	for i := 0; i < 3; i++ {
		ps.Save(PeerRecord{Addr: string(rune('a' + i)), LastSeen: time.Now().Unix()})
	}

	count, err := ps.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 records, got %d", count)
	}

	all, err := ps.LoadAll()
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 records from LoadAll, got %d", len(all))
	}
}

func TestPeerStore_PruneStale(t *testing.T) {
	db := storage.NewMemory()
	ps := NewPeerStore(db)

	old := time.Now().Add(-48 * time.Hour).Unix()
	ps.Save(PeerRecord{Addr: "stale:1", LastSeen: old})
	ps.Save(PeerRecord{Addr: "fresh:1", LastSeen: time.Now().Unix()})

	pruned, err := ps.PruneStale(24 * time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 1 {
		t.Errorf("expected 1 pruned record, got %d", pruned)
	}
	if _, err := ps.Load("fresh:1"); err != nil {
		t.Error("fresh record should survive pruning")
	}
}

func TestPeerStore_Delete(t *testing.T) {
	db := storage.NewMemory()
	ps := NewPeerStore(db)
	ps.Save(PeerRecord{Addr: "x:1", LastSeen: time.Now().Unix()})
	if err := ps.Delete("x:1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := ps.Load("x:1"); err == nil {
		t.Error("expected error loading deleted record")
	}
}
