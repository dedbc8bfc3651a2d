package wallet

import (
	"crypto/hmac"
	"crypto/sha512"
	"fmt"

	"github.com/tristream-labs/tristream-chain/pkg/crypto"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// Ed25519 HD derivation per SLIP-0010: unlike BIP-32, Ed25519 has no public
// parent-key-to-child-public-key derivation, so every child derivation here
// is hardened (the teacher's bip32.FirstHardenedChild scheme doesn't carry
// over; see DESIGN.md for why bip32/secp256k1 were dropped in favor of this).
const hardenedOffset = uint32(0x80000000)

var curveSeed = []byte("ed25519 seed")

// Derivation path indices, mirrored from the teacher's BIP-44-shaped layout:
// m/44'/coin'/account'/change'/index'. All Ed25519.
const (
	PurposeBIP44   = 44
	CoinTypeTriStream = 8888
	ChangeExternal = 0
	ChangeInternal = 1
)

// HDKey is a node in an Ed25519 SLIP-0010 hierarchical deterministic tree.
type HDKey struct {
	key       [32]byte // Ed25519 seed (not the expanded private key)
	chainCode [32]byte
	depth     uint8
}

// NewMasterKey derives the master HD node from a 64-byte BIP-39 seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	mac := hmac.New(sha512.New, curveSeed)
	mac.Write(seed)
	sum := mac.Sum(nil)

	k := &HDKey{}
	copy(k.key[:], sum[:32])
	copy(k.chainCode[:], sum[32:])
	return k, nil
}

// DeriveChild derives the hardened child at index. Ed25519 SLIP-0010 only
// defines hardened derivation, so index is always offset internally.
func (k *HDKey) DeriveChild(index uint32) (*HDKey, error) {
	hardened := index | hardenedOffset

	var data [37]byte
	data[0] = 0x00
	copy(data[1:33], k.key[:])
	data[33] = byte(hardened >> 24)
	data[34] = byte(hardened >> 16)
	data[35] = byte(hardened >> 8)
	data[36] = byte(hardened)

	mac := hmac.New(sha512.New, k.chainCode[:])
	mac.Write(data[:])
	sum := mac.Sum(nil)

	child := &HDKey{depth: k.depth + 1}
	copy(child.key[:], sum[:32])
	copy(child.chainCode[:], sum[32:])
	return child, nil
}

// DerivePath derives a key along a sequence of indices.
func (k *HDKey) DerivePath(indices ...uint32) (*HDKey, error) {
	current := k
	for _, idx := range indices {
		child, err := current.DeriveChild(idx)
		if err != nil {
			return nil, fmt.Errorf("derive path: %w", err)
		}
		current = child
	}
	return current, nil
}

// DeriveAddress derives the key at m/44'/8888'/account'/change'/index'.
func (k *HDKey) DeriveAddress(account, change, index uint32) (*HDKey, error) {
	return k.DerivePath(PurposeBIP44, CoinTypeTriStream, account, change, index)
}

// Signer returns a crypto.PrivateKey (Ed25519) for this node.
func (k *HDKey) Signer() (*crypto.PrivateKey, error) {
	return crypto.PrivateKeyFromBytes(k.key[:])
}

// Address derives the wallet-owner address from this node's public key:
// keccak(pubkey)[12:32], the same scheme pkg/crypto uses for transaction
// signer addresses.
func (k *HDKey) Address() (types.Address, error) {
	signer, err := k.Signer()
	if err != nil {
		return types.Address{}, err
	}
	return crypto.AddressFromPubKey(signer.PublicKey()), nil
}

// Depth returns the derivation depth (0 for master).
func (k *HDKey) Depth() uint8 {
	return k.depth
}

// SeedBytes returns the raw 32-byte Ed25519 seed for this node. Callers
// that need to persist or export a derived key use this, not the internal
// chain code.
func (k *HDKey) SeedBytes() []byte {
	out := make([]byte, 32)
	copy(out, k.key[:])
	return out
}
