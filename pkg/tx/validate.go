package tx

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/tristream-labs/tristream-chain/pkg/crypto"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// Validation errors, per the InvalidTransaction/Validation error kinds.
var (
	ErrHashMismatch       = errors.New("transaction hash does not match canonical digest")
	ErrDataTooLarge       = errors.New("transaction data exceeds maximum size")
	ErrZeroGasLimit       = errors.New("gas limit must be greater than zero")
	ErrGasLimitTooLow     = errors.New("gas limit too low for transaction with data")
	ErrMissingSignature   = errors.New("missing signature")
	ErrInvalidSignature   = errors.New("signature verification failed")
	ErrAddressMismatch    = errors.New("public key does not derive to from address")
	ErrNonceMismatch      = errors.New("nonce does not match expected value")
	ErrTimeLockNotReached = errors.New("time-lock condition not yet satisfied")
	ErrInsufficientFunds  = errors.New("insufficient balance")
	ErrInsufficientSponsor = errors.New("insufficient sponsor balance")
	ErrNotMultisigWallet  = errors.New("sender is not a registered multi-signature wallet")
	ErrMultisigSigner     = errors.New("multisig signer not authorized or duplicated")
	ErrMultisigThreshold  = errors.New("insufficient multisig signatures")
	ErrSpendingLimit      = errors.New("transaction exceeds wallet spending limit")
	ErrPrivacyUnconfigured = errors.New("privacy proof verifier not configured")
	ErrPrivacyProof       = errors.New("privacy proof verification failed")
)

// StateReader is the read-only subset of the account state consulted during
// validation.
type StateReader interface {
	GetBalance(addr types.Address) *big.Int
	GetNonce(addr types.Address) uint64
}

// Wallet is the view of a contract-wallet record a validator needs.
type Wallet interface {
	Nonce() uint64
	IsMultiSig() bool
	Signers() []types.Address
	Threshold() int
	// CheckSpendingLimit returns an error if applying value would exceed the
	// wallet's spending limit for the current period. Wallets without a
	// spending-limit configuration always return nil.
	CheckSpendingLimit(value *big.Int, now int64) error
}

// WalletRegistry resolves contract-wallet records by address.
type WalletRegistry interface {
	Lookup(addr types.Address) (Wallet, bool)
}

// PrivacyVerifier validates a zk-SNARK privacy transaction bundle.
type PrivacyVerifier interface {
	VerifyPrivacyProof(tx *Transaction) error
}

// ValidationContext carries the external collaborators and point-in-time
// parameters Validate needs.
type ValidationContext struct {
	CurrentBlock     uint64
	CurrentTimestamp int64
	State            StateReader
	Wallets          WalletRegistry
	Privacy          PrivacyVerifier
}

// Validate runs the full transaction validation pipeline (spec §4.2).
func Validate(t *Transaction, ctx ValidationContext) error {
	if len(t.PrivacyData) > 0 {
		if ctx.Privacy == nil {
			return ErrPrivacyUnconfigured
		}
		if err := ctx.Privacy.VerifyPrivacyProof(t); err != nil {
			return fmt.Errorf("%w: %v", ErrPrivacyProof, err)
		}
		return nil
	}

	recomputed, err := t.CalculateHash()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHashMismatch, err)
	}

	if len(t.MultisigSignatures) > 0 {
		if err := validateMultisig(t, recomputed, ctx); err != nil {
			return err
		}
	} else {
		if err := validateSingleSig(t, recomputed); err != nil {
			return err
		}
	}

	if len(t.Data) > MaxDataSize {
		return fmt.Errorf("%w: %d bytes, max %d", ErrDataTooLarge, len(t.Data), MaxDataSize)
	}
	if recomputed != t.Hash {
		return ErrHashMismatch
	}
	if t.GasLimit == 0 {
		return ErrZeroGasLimit
	}
	if len(t.Data) > 0 && t.GasLimit < MinGasLimitWithData {
		return fmt.Errorf("%w: %d, min %d", ErrGasLimitTooLow, t.GasLimit, MinGasLimitWithData)
	}

	wallet, isWallet := lookupWallet(t.From, ctx)
	if err := validateNonce(t, wallet, isWallet, ctx); err != nil {
		return err
	}

	if t.ExecuteAtBlock != nil && ctx.CurrentBlock < *t.ExecuteAtBlock {
		return fmt.Errorf("%w: at block %d", ErrTimeLockNotReached, *t.ExecuteAtBlock)
	}
	if t.ExecuteAtTimestamp != nil && ctx.CurrentTimestamp < int64(*t.ExecuteAtTimestamp) {
		return fmt.Errorf("%w: at timestamp %d", ErrTimeLockNotReached, *t.ExecuteAtTimestamp)
	}

	if err := validateBalances(t, ctx); err != nil {
		return err
	}

	if isWallet {
		if err := wallet.CheckSpendingLimit(valueOrZero(t.Value), ctx.CurrentTimestamp); err != nil {
			return fmt.Errorf("%w: %v", ErrSpendingLimit, err)
		}
	}

	return nil
}

func lookupWallet(addr types.Address, ctx ValidationContext) (Wallet, bool) {
	if ctx.Wallets == nil {
		return nil, false
	}
	return ctx.Wallets.Lookup(addr)
}

func validateSingleSig(t *Transaction, hash types.Hash) error {
	// An empty signature counts as all-zero too.
	allZero := true
	for _, b := range t.Signature {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		if !t.From.IsZero() {
			return ErrMissingSignature
		}
		return nil
	}
	if !crypto.VerifySignature(hash[:], t.Signature, t.PublicKey) {
		return ErrInvalidSignature
	}
	if crypto.AddressFromPubKey(t.PublicKey) != t.From {
		return ErrAddressMismatch
	}
	return nil
}

func validateMultisig(t *Transaction, hash types.Hash, ctx ValidationContext) error {
	wallet, ok := lookupWallet(t.From, ctx)
	if !ok || !wallet.IsMultiSig() {
		return ErrNotMultisigWallet
	}
	authorized := make(map[types.Address]bool, len(wallet.Signers()))
	for _, s := range wallet.Signers() {
		authorized[s] = true
	}
	seen := make(map[types.Address]bool, len(t.MultisigSignatures))
	for _, ms := range t.MultisigSignatures {
		if !authorized[ms.Signer] {
			return fmt.Errorf("%w: %s not authorized", ErrMultisigSigner, ms.Signer)
		}
		if seen[ms.Signer] {
			return fmt.Errorf("%w: %s signed twice", ErrMultisigSigner, ms.Signer)
		}
		seen[ms.Signer] = true
		if crypto.AddressFromPubKey(ms.PublicKey) != ms.Signer {
			return fmt.Errorf("%w: %s pubkey mismatch", ErrMultisigSigner, ms.Signer)
		}
		if !crypto.VerifySignature(hash[:], ms.Signature, ms.PublicKey) {
			return fmt.Errorf("%w: %s invalid signature", ErrInvalidSignature, ms.Signer)
		}
	}
	if len(seen) < wallet.Threshold() {
		return fmt.Errorf("%w: have %d, need %d", ErrMultisigThreshold, len(seen), wallet.Threshold())
	}
	return nil
}

func validateNonce(t *Transaction, wallet Wallet, isWallet bool, ctx ValidationContext) error {
	var expected uint64
	if isWallet {
		expected = wallet.Nonce()
	} else if ctx.State != nil {
		expected = ctx.State.GetNonce(t.From)
	}
	if t.Nonce != expected {
		return fmt.Errorf("%w: got %d, want %d", ErrNonceMismatch, t.Nonce, expected)
	}
	return nil
}

func validateBalances(t *Transaction, ctx ValidationContext) error {
	if ctx.State == nil {
		return nil
	}
	value := valueOrZero(t.Value)
	fee := valueOrZero(t.Fee)
	senderBalance := ctx.State.GetBalance(t.From)

	if t.Sponsor != nil {
		if senderBalance.Cmp(value) < 0 {
			return ErrInsufficientFunds
		}
		sponsorBalance := ctx.State.GetBalance(*t.Sponsor)
		if sponsorBalance.Cmp(fee) < 0 {
			return ErrInsufficientSponsor
		}
		return nil
	}

	total := new(big.Int).Add(value, fee)
	if senderBalance.Cmp(total) < 0 {
		return ErrInsufficientFunds
	}
	return nil
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
