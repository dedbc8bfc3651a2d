// Package crypto provides cryptographic primitives for the TriStream node.
package crypto

import (
	"golang.org/x/crypto/sha3"

	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// Hash computes a Keccak-256 hash of the input data.
func Hash(data []byte) types.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}

// DoubleHash computes Hash(Hash(data)).
func DoubleHash(data []byte) types.Hash {
	first := Hash(data)
	return Hash(first[:])
}

// AddressFromPubKey derives an address from a 32-byte Ed25519 public key:
// the low 20 bytes (offsets 12..32) of its Keccak-256 digest.
func AddressFromPubKey(pubKey []byte) types.Address {
	h := Hash(pubKey)
	var addr types.Address
	copy(addr[:], h[12:32])
	return addr
}

// HashConcat hashes the concatenation of two hashes.
func HashConcat(a, b types.Hash) types.Hash {
	var buf [64]byte
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])
	return Hash(buf[:])
}
