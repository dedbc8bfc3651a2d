package wallet

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/tristream-labs/tristream-chain/pkg/tx"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// WalletType identifies which combination of contract-wallet features a
// record carries (spec §3's "Contract wallet record").
type WalletType int

const (
	Basic WalletType = iota
	MultiSig
	SocialRecovery
	SpendingLimit
	Combined
)

func (w WalletType) String() string {
	switch w {
	case MultiSig:
		return "multisig"
	case SocialRecovery:
		return "social_recovery"
	case SpendingLimit:
		return "spending_limit"
	case Combined:
		return "combined"
	default:
		return "basic"
	}
}

// Registry errors.
var (
	ErrWalletExists      = errors.New("wallet already registered at this address")
	ErrWalletNotFound    = errors.New("wallet not registered")
	ErrNotSocialRecovery = errors.New("wallet has no social recovery configuration")
	ErrNotGuardian       = errors.New("address is not a guardian of this wallet")
	ErrNoRecoveryPending = errors.New("no recovery request pending")
	ErrRecoveryNotReady  = errors.New("recovery threshold or time delay not yet satisfied")
)

// MultiSigConfig configures a contract wallet's signer set and threshold.
type MultiSigConfig struct {
	Signers   []types.Address
	Threshold int
}

// SocialRecoveryConfig configures guardian-assisted owner recovery.
type SocialRecoveryConfig struct {
	Guardians         []types.Address
	RecoveryThreshold int
	TimeDelay         time.Duration
}

// SpendingWindow tracks a rolling spending cap over a fixed period, reset
// whenever the period elapses.
type SpendingWindow struct {
	Limit     *big.Int
	Period    time.Duration
	spent     *big.Int
	lastReset int64
}

func newSpendingWindow(limit *big.Int, period time.Duration) *SpendingWindow {
	if limit == nil || limit.Sign() == 0 {
		return nil
	}
	return &SpendingWindow{Limit: limit, Period: period, spent: new(big.Int)}
}

// check rolls the window forward if its period has elapsed, then verifies
// value fits within what remains, recording it on success.
func (w *SpendingWindow) check(value *big.Int, now int64) error {
	if w == nil {
		return nil
	}
	if now-w.lastReset >= int64(w.Period.Seconds()) {
		w.spent = new(big.Int)
		w.lastReset = now
	}
	projected := new(big.Int).Add(w.spent, value)
	if projected.Cmp(w.Limit) > 0 {
		return fmt.Errorf("would spend %s of %s limit", projected, w.Limit)
	}
	w.spent = projected
	return nil
}

// SpendingLimits bundles the daily/weekly/monthly windows a wallet enforces.
// PerAddress is stored on the record but not enforced: CheckSpendingLimit
// checks only the period windows and receives no recipient address.
type SpendingLimits struct {
	Daily      *SpendingWindow
	Weekly     *SpendingWindow
	Monthly    *SpendingWindow
	PerAddress *big.Int
}

// recoveryRequest is an in-flight guardian-assisted owner change.
type recoveryRequest struct {
	newOwner    types.Address
	initiatedAt int64
	approvals   map[types.Address]bool
}

// ContractWallet is the programmable wallet record spec §3 describes:
// an address with an owner, a feature combination, its own nonce
// (independent of any EOA nonce at the same address), and the config for
// whichever of MultiSig/SocialRecovery/SpendingLimit it carries.
type ContractWallet struct {
	mu sync.Mutex

	Address types.Address
	Owner   types.Address
	Type    WalletType
	nonce   uint64

	MultiSig       *MultiSigConfig
	SocialRecovery *SocialRecoveryConfig
	Spending       *SpendingLimits

	pendingRecovery *recoveryRequest
}

// NewBasicWallet creates a wallet with no special features.
func NewBasicWallet(addr, owner types.Address) *ContractWallet {
	return &ContractWallet{Address: addr, Owner: owner, Type: Basic}
}

// Nonce returns the wallet's own nonce, satisfying tx.Wallet.
func (w *ContractWallet) Nonce() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.nonce
}

// IsMultiSig satisfies tx.Wallet.
func (w *ContractWallet) IsMultiSig() bool {
	return w.MultiSig != nil
}

// Signers satisfies tx.Wallet.
func (w *ContractWallet) Signers() []types.Address {
	if w.MultiSig == nil {
		return nil
	}
	return w.MultiSig.Signers
}

// Threshold satisfies tx.Wallet.
func (w *ContractWallet) Threshold() int {
	if w.MultiSig == nil {
		return 0
	}
	return w.MultiSig.Threshold
}

// CheckSpendingLimit satisfies tx.Wallet: value must fit within every
// configured window.
func (w *ContractWallet) CheckSpendingLimit(value *big.Int, now int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.Spending == nil {
		return nil
	}
	if err := w.Spending.Daily.check(value, now); err != nil {
		return fmt.Errorf("daily limit: %w", err)
	}
	if err := w.Spending.Weekly.check(value, now); err != nil {
		return fmt.Errorf("weekly limit: %w", err)
	}
	if err := w.Spending.Monthly.check(value, now); err != nil {
		return fmt.Errorf("monthly limit: %w", err)
	}
	return nil
}

// advanceNonce is called once per accepted transaction from this wallet.
func (w *ContractWallet) advanceNonce() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nonce++
}

// InitiateRecovery opens a guardian-assisted owner change to newOwner.
// Replaces any prior unexecuted request.
func (w *ContractWallet) InitiateRecovery(newOwner types.Address, now int64) error {
	if w.SocialRecovery == nil {
		return ErrNotSocialRecovery
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pendingRecovery = &recoveryRequest{
		newOwner:    newOwner,
		initiatedAt: now,
		approvals:   make(map[types.Address]bool),
	}
	return nil
}

// ApproveRecovery records a guardian's approval of the pending request.
func (w *ContractWallet) ApproveRecovery(guardian types.Address) error {
	if w.SocialRecovery == nil {
		return ErrNotSocialRecovery
	}
	authorized := false
	for _, g := range w.SocialRecovery.Guardians {
		if g == guardian {
			authorized = true
			break
		}
	}
	if !authorized {
		return ErrNotGuardian
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pendingRecovery == nil {
		return ErrNoRecoveryPending
	}
	w.pendingRecovery.approvals[guardian] = true
	return nil
}

// ExecuteRecovery installs the pending request's new owner once both the
// guardian threshold and time delay have been satisfied, then clears it.
func (w *ContractWallet) ExecuteRecovery(now int64) (types.Address, error) {
	if w.SocialRecovery == nil {
		return types.Address{}, ErrNotSocialRecovery
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	req := w.pendingRecovery
	if req == nil {
		return types.Address{}, ErrNoRecoveryPending
	}
	if len(req.approvals) < w.SocialRecovery.RecoveryThreshold {
		return types.Address{}, ErrRecoveryNotReady
	}
	if now-req.initiatedAt < int64(w.SocialRecovery.TimeDelay.Seconds()) {
		return types.Address{}, ErrRecoveryNotReady
	}
	w.Owner = req.newOwner
	w.pendingRecovery = nil
	return w.Owner, nil
}

// Registry is the in-memory contract-wallet directory the committer and
// validation pipeline consult (spec §4.2, §4.8). It is safe for concurrent
// use, though in practice only the single committer goroutine mutates it.
type Registry struct {
	mu      sync.RWMutex
	wallets map[types.Address]*ContractWallet
}

// NewRegistry creates an empty wallet registry.
func NewRegistry() *Registry {
	return &Registry{wallets: make(map[types.Address]*ContractWallet)}
}

// Register adds a new contract wallet. Re-registering the same address is
// an error.
func (r *Registry) Register(w *ContractWallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.wallets[w.Address]; exists {
		return fmt.Errorf("%w: %s", ErrWalletExists, w.Address)
	}
	r.wallets[w.Address] = w
	return nil
}

// Lookup satisfies tx.WalletRegistry.
func (r *Registry) Lookup(addr types.Address) (tx.Wallet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[addr]
	if !ok {
		return nil, false
	}
	return w, true
}

// Get returns the concrete ContractWallet at addr, for callers (recovery
// flows, RPC) that need more than the tx.Wallet view.
func (r *Registry) Get(addr types.Address) (*ContractWallet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[addr]
	return w, ok
}

// AdvanceNonce satisfies committer.NonceAdvancer.
func (r *Registry) AdvanceNonce(addr types.Address) error {
	r.mu.RLock()
	w, ok := r.wallets[addr]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrWalletNotFound, addr)
	}
	w.advanceNonce()
	return nil
}
