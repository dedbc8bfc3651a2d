package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/tristream-labs/tristream-chain/pkg/types"
)

func hexToHash(t *testing.T, s string) types.Hash {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex: %v", err)
	}
	var h types.Hash
	copy(h[:], b)
	return h
}

func TestHash_Deterministic(t *testing.T) {
	data := []byte("deterministic test input")
	h1 := Hash(data)
	h2 := Hash(data)
	if h1 != h2 {
		t.Errorf("Hash is not deterministic: %x != %x", h1, h2)
	}
}

func TestHash_DifferentInputs(t *testing.T) {
	h1 := Hash([]byte("input A"))
	h2 := Hash([]byte("input B"))
	if h1 == h2 {
		t.Error("different inputs produced the same hash")
	}
}

func TestHash_EmptyInput(t *testing.T) {
	// Known Keccak-256 digest of the empty string.
	want := hexToHash(t, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a47d")
	got := Hash(nil)
	if got != want {
		t.Errorf("Hash(nil) = %x, want %x", got, want)
	}
}

func TestDoubleHash_NotSameAsHash(t *testing.T) {
	data := []byte("test data")
	single := Hash(data)
	double := DoubleHash(data)
	if single == double {
		t.Error("DoubleHash should not equal single Hash")
	}
}

func TestDoubleHash_Deterministic(t *testing.T) {
	data := []byte("hello")
	a := DoubleHash(data)
	b := DoubleHash(data)
	if a != b {
		t.Error("DoubleHash is not deterministic")
	}
}

func TestHashConcat(t *testing.T) {
	a := Hash([]byte("left"))
	b := Hash([]byte("right"))
	result := HashConcat(a, b)

	if result == (types.Hash{}) {
		t.Error("HashConcat returned zero hash")
	}

	reversed := HashConcat(b, a)
	if result == reversed {
		t.Error("HashConcat(a,b) should differ from HashConcat(b,a)")
	}

	again := HashConcat(a, b)
	if result != again {
		t.Error("HashConcat is not deterministic")
	}
}

func TestHashConcat_EqualsManualConcat(t *testing.T) {
	a := Hash([]byte("left"))
	b := Hash([]byte("right"))

	var buf [64]byte
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])
	want := Hash(buf[:])

	got := HashConcat(a, b)
	if got != want {
		t.Errorf("HashConcat = %x, want %x", got, want)
	}
}

func TestAddressFromPubKey(t *testing.T) {
	pub := make([]byte, 32)
	for i := range pub {
		pub[i] = byte(i)
	}
	addr := AddressFromPubKey(pub)
	h := Hash(pub)
	if hex.EncodeToString(addr[:]) != hex.EncodeToString(h[12:32]) {
		t.Error("address must be the low 20 bytes of keccak256(pubkey)")
	}
}
