package crypto

import (
	"bytes"
	"crypto/ed25519"
	"testing"
)

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}

	pub := key.PublicKey()
	if len(pub) != ed25519.PublicKeySize {
		t.Errorf("PublicKey() length = %d, want %d", len(pub), ed25519.PublicKeySize)
	}

	ser := key.Serialize()
	if len(ser) != ed25519.PrivateKeySize {
		t.Errorf("Serialize() length = %d, want %d", len(ser), ed25519.PrivateKeySize)
	}
}

func TestGenerateKey_Unique(t *testing.T) {
	k1, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	k2, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	if bytes.Equal(k1.Serialize(), k2.Serialize()) {
		t.Error("two generated keys should not be identical")
	}
}

func TestPrivateKeyFromBytes(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	key, err := PrivateKeyFromBytes(seed)
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes: %v", err)
	}
	if len(key.PublicKey()) != ed25519.PublicKeySize {
		t.Errorf("PublicKey() length = %d", len(key.PublicKey()))
	}

	if _, err := PrivateKeyFromBytes(make([]byte, 10)); err == nil {
		t.Error("expected error for wrong-length key material")
	}
}

func TestSignAndVerify(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	msg := []byte("tristream transaction digest")

	sig, err := key.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(sig) != ed25519.SignatureSize {
		t.Errorf("signature length = %d, want %d", len(sig), ed25519.SignatureSize)
	}

	if !VerifySignature(msg, sig, key.PublicKey()) {
		t.Error("expected valid signature to verify")
	}
}

func TestVerifySignature_TamperedMessage(t *testing.T) {
	key, _ := GenerateKey()
	msg := []byte("original message")
	sig, _ := key.Sign(msg)

	if VerifySignature([]byte("tampered message"), sig, key.PublicKey()) {
		t.Error("expected verification to fail for tampered message")
	}
}

func TestVerifySignature_NeverPanics(t *testing.T) {
	cases := [][]byte{nil, {}, {0x01}, make([]byte, 31), make([]byte, 33), make([]byte, 1024)}
	for _, pub := range cases {
		for _, sig := range cases {
			if VerifySignature([]byte("msg"), sig, pub) {
				t.Errorf("malformed input unexpectedly verified: pub=%d sig=%d", len(pub), len(sig))
			}
		}
	}
}

func TestEd25519Verifier(t *testing.T) {
	key, _ := GenerateKey()
	msg := []byte("verifier interface check")
	sig, _ := key.Sign(msg)

	var v Verifier = Ed25519Verifier{}
	if !v.Verify(msg, sig, key.PublicKey()) {
		t.Error("Ed25519Verifier.Verify should accept a valid signature")
	}
}

func TestPrivateKey_Zero(t *testing.T) {
	key, _ := GenerateKey()
	key.Zero()
	allZero := true
	for _, b := range key.Serialize() {
		if b != 0 {
			allZero = false
			break
		}
	}
	if !allZero {
		t.Error("expected key material to be zeroed")
	}
}
