package types

import (
	"encoding/json"
	"testing"
)

func TestHashRoundTrip(t *testing.T) {
	h, err := HexToHash("00112233445566778899aabbccddeeff0011223344556677889900112233aabb")
	if err != nil {
		t.Fatalf("HexToHash: %v", err)
	}
	if h.IsZero() {
		t.Fatal("expected non-zero hash")
	}

	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var h2 Hash
	if err := json.Unmarshal(data, &h2); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if h != h2 {
		t.Fatalf("round trip mismatch: %s != %s", h, h2)
	}
}

func TestHashFromBytesWrongLength(t *testing.T) {
	if _, err := HashFromBytes(make([]byte, 10)); err == nil {
		t.Fatal("expected error for short byte slice")
	}
}

func TestZeroHash(t *testing.T) {
	var h Hash
	if !h.IsZero() {
		t.Fatal("expected zero hash")
	}
}
