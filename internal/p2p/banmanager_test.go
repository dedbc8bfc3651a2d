package p2p

import (
	"testing"
	"time"

	"github.com/tristream-labs/tristream-chain/internal/storage"
)

type fakeDisconnector struct {
	disconnected chan string
}

func (f *fakeDisconnector) DisconnectPeer(addr string) {
	f.disconnected <- addr
}

func TestBanManager_BansAtThreshold(t *testing.T) {
	bm := NewBanManager(nil, nil)
	bm.RecordOffense("1.2.3.4:30303", PenaltyInvalidTx, "bad tx")
	if bm.IsBanned("1.2.3.4:30303") {
		t.Fatal("should not be banned below threshold")
	}
	bm.RecordOffense("1.2.3.4:30303", PenaltyHandshakeFail, "genesis mismatch")
	if !bm.IsBanned("1.2.3.4:30303") {
		t.Error("should be banned once score reaches threshold")
	}
}

func TestBanManager_InstantBanOnHandshakeFailure(t *testing.T) {
	bm := NewBanManager(nil, nil)
	bm.RecordOffense("5.6.7.8:30303", PenaltyHandshakeFail, "genesis mismatch")
	if !bm.IsBanned("5.6.7.8:30303") {
		t.Error("handshake failure penalty alone should reach ban threshold")
	}
}

func TestBanManager_DisconnectsOnBan(t *testing.T) {
	fd := &fakeDisconnector{disconnected: make(chan string, 1)}
	bm := NewBanManager(nil, fd)
	bm.RecordOffense("9.9.9.9:1", PenaltyHandshakeFail, "test")

	if !bm.IsBanned("9.9.9.9:1") {
		t.Fatal("expected ban to register")
	}

	// Disconnect runs in its own goroutine, so wait for it.
	select {
	case addr := <-fd.disconnected:
		if addr != "9.9.9.9:1" {
			t.Errorf("disconnected %q, want %q", addr, "9.9.9.9:1")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the banned peer to be disconnected")
	}
}

func TestBanManager_Unban(t *testing.T) {
	bm := NewBanManager(nil, nil)
	bm.RecordOffense("1.1.1.1:1", PenaltyHandshakeFail, "test")
	if !bm.IsBanned("1.1.1.1:1") {
		t.Fatal("expected ban")
	}
	bm.Unban("1.1.1.1:1")
	if bm.IsBanned("1.1.1.1:1") {
		t.Error("expected unban to clear ban state")
	}
}

func TestBanManager_PersistsToStore(t *testing.T) {
	db := storage.NewMemory()
	store := NewBanStore(db)
	bm := NewBanManager(store, nil)
	bm.RecordOffense("2.2.2.2:1", PenaltyHandshakeFail, "persisted")

	reloaded := NewBanManager(store, nil)
	reloaded.LoadBans()
	if !reloaded.IsBanned("2.2.2.2:1") {
		t.Error("expected ban to survive reload from store")
	}
}

func TestBanStore_PutGetDelete(t *testing.T) {
	db := storage.NewMemory()
	store := NewBanStore(db)
	rec := &BanRecord{Addr: "3.3.3.3:1", Reason: "x", Score: 100, BannedAt: 1, ExpiresAt: 0}
	if err := store.Put(rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.Get("3.3.3.3:1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Reason != "x" {
		t.Errorf("expected reason 'x', got %q", got.Reason)
	}
	if err := store.Delete("3.3.3.3:1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get("3.3.3.3:1"); err == nil {
		t.Error("expected error after delete")
	}
}
