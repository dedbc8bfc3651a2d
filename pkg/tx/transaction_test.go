package tx

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/tristream-labs/tristream-chain/pkg/crypto"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

func mustAddress(t *testing.T, s string) types.Address {
	t.Helper()
	a, err := types.HexToAddress(s)
	if err != nil {
		t.Fatalf("HexToAddress: %v", err)
	}
	return a
}

func TestTransactionHashDeterministic(t *testing.T) {
	to := mustAddress(t, "2222222222222222222222222222222222222222")
	transaction := &Transaction{To: to, Value: big.NewInt(100), Fee: big.NewInt(1), Nonce: 5, GasLimit: 21000}

	h1, err := transaction.CalculateHash()
	if err != nil {
		t.Fatalf("CalculateHash: %v", err)
	}
	h2, err := transaction.CalculateHash()
	if err != nil {
		t.Fatalf("CalculateHash: %v", err)
	}
	if h1 != h2 {
		t.Fatal("hash is not deterministic")
	}
}

func TestTransactionHashChangesWithAnyField(t *testing.T) {
	to := mustAddress(t, "2222222222222222222222222222222222222222")
	base := &Transaction{To: to, Value: big.NewInt(100), Fee: big.NewInt(1), Nonce: 5, GasLimit: 21000}
	baseHash, _ := base.CalculateHash()

	mutated := *base
	mutated.Nonce = 6
	mutatedHash, _ := mutated.CalculateHash()

	if baseHash == mutatedHash {
		t.Fatal("hash should change when nonce changes")
	}
}

func TestTransactionSignAndVerify(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	from := crypto.AddressFromPubKey(key.PublicKey())
	to := mustAddress(t, "2222222222222222222222222222222222222222")

	signed, err := NewBuilder(from).To(to).Value(big.NewInt(1000)).Fee(big.NewInt(10)).
		Nonce(0).SetGasLimit(21000).Sign(key)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if !crypto.VerifySignature(signed.Hash[:], signed.Signature, signed.PublicKey) {
		t.Fatal("expected valid signature")
	}
	if crypto.AddressFromPubKey(signed.PublicKey) != signed.From {
		t.Fatal("derived address must equal From")
	}
}

func TestTransactionJSONRoundTrip(t *testing.T) {
	key, _ := crypto.GenerateKey()
	from := crypto.AddressFromPubKey(key.PublicKey())
	to := mustAddress(t, "3333333333333333333333333333333333333333")

	signed, err := NewBuilder(from).To(to).Value(big.NewInt(555)).Fee(big.NewInt(5)).
		Nonce(3).SetGasLimit(21000).Sign(key)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	data, err := json.Marshal(signed)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded Transaction
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Hash != signed.Hash || decoded.Value.Cmp(signed.Value) != 0 {
		t.Fatal("round trip mismatch")
	}
}

func TestSystemTransactionIsSystem(t *testing.T) {
	to := mustAddress(t, "4444444444444444444444444444444444444444")
	sysTx, err := BuildSystemTransaction(to, big.NewInt(1000), 0)
	if err != nil {
		t.Fatalf("BuildSystemTransaction: %v", err)
	}
	if !sysTx.IsSystem() {
		t.Fatal("expected system transaction")
	}
}
