package reputation

import (
	"math/big"
	"testing"

	"github.com/tristream-labs/tristream-chain/pkg/types"
)

func TestManager_NewAddressStartsNeutral(t *testing.T) {
	m := NewManager()
	var addr types.Address
	addr[0] = 0x01

	got := m.GetReputation(addr)
	if got < 45 || got > 55 {
		t.Errorf("new address reputation = %v, want ~50", got)
	}
}

func TestManager_SuccessfulTxsRaiseScore(t *testing.T) {
	m := NewManager()
	var addr, to types.Address
	addr[0] = 0x01
	to[0] = 0x02

	for i := 0; i < 10; i++ {
		m.RecordSuccessfulTx(addr, big.NewInt(1000), to)
	}

	got := m.GetReputation(addr)
	if !(got > 50) {
		t.Errorf("reputation after successes = %v, want > 50", got)
	}
}

func TestManager_FailuresAndSuspiciousActivityLowerScore(t *testing.T) {
	m := NewManager()
	var addr types.Address
	addr[0] = 0x01

	for i := 0; i < 20; i++ {
		m.RecordFailedTx(addr)
	}
	afterFailures := m.GetReputation(addr)
	if !(afterFailures < 50) {
		t.Errorf("reputation after failures = %v, want < 50", afterFailures)
	}

	m.RecordSuspiciousActivity(addr)
	afterSuspicious := m.GetReputation(addr)
	if !(afterSuspicious < afterFailures) {
		t.Errorf("reputation after suspicious activity = %v, want < %v", afterSuspicious, afterFailures)
	}
}

func TestScore_Bands(t *testing.T) {
	if !NewScore(80).IsHigh() {
		t.Error("80 should be high")
	}
	if !NewScore(50).IsMedium() {
		t.Error("50 should be medium")
	}
	if !NewScore(10).IsLow() {
		t.Error("10 should be low")
	}
	if NewScore(150) != 100 {
		t.Error("score should clamp to 100")
	}
	if NewScore(-10) != 0 {
		t.Error("score should clamp to 0")
	}
}

func TestManager_UniqueContactsCountedOnce(t *testing.T) {
	m := NewManager()
	var addr, to types.Address
	addr[0] = 0x01
	to[0] = 0x02

	m.RecordSuccessfulTx(addr, big.NewInt(1), to)
	m.RecordSuccessfulTx(addr, big.NewInt(1), to)

	f, ok := m.Factors(addr)
	if !ok {
		t.Fatal("expected factors to exist")
	}
	if f.UniqueContacts != 1 {
		t.Errorf("unique contacts = %d, want 1", f.UniqueContacts)
	}
	if f.SuccessfulTxs != 2 {
		t.Errorf("successful txs = %d, want 2", f.SuccessfulTxs)
	}
}
