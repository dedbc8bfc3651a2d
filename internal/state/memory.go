package state

import (
	"math/big"
	"sync"

	"github.com/tristream-labs/tristream-chain/pkg/block"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// account is the in-memory record for one address.
type account struct {
	balance *big.Int
	nonce   uint64
}

// MemoryBackend is the canonical in-memory Backend (spec §9 "simple mode").
// It is also used as the state fixture in tests.
type MemoryBackend struct {
	mu       sync.RWMutex
	accounts map[types.Address]*account
	blocks   map[types.Hash]*block.Block
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *MemoryBackend {
	return &MemoryBackend{
		accounts: make(map[types.Address]*account),
		blocks:   make(map[types.Hash]*block.Block),
	}
}

// GetBalance returns the address's balance, or zero if it has never been
// credited (missing addresses read as (0, 0) per spec §3).
func (m *MemoryBackend) GetBalance(addr types.Address) *big.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[addr]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(a.balance)
}

// SetBalance sets the address's balance, creating the account implicitly.
func (m *MemoryBackend) SetBalance(addr types.Address, balance *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.getOrCreateLocked(addr)
	a.balance = new(big.Int).Set(balance)
	return nil
}

// GetNonce returns the address's nonce, or zero if unseen.
func (m *MemoryBackend) GetNonce(addr types.Address) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[addr]
	if !ok {
		return 0
	}
	return a.nonce
}

// SetNonce sets the address's nonce, creating the account implicitly.
func (m *MemoryBackend) SetNonce(addr types.Address, nonce uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.getOrCreateLocked(addr)
	a.nonce = nonce
	return nil
}

func (m *MemoryBackend) getOrCreateLocked(addr types.Address) *account {
	a, ok := m.accounts[addr]
	if !ok {
		a = &account{balance: new(big.Int)}
		m.accounts[addr] = a
	}
	return a
}

// PutBlock stores a block by hash.
func (m *MemoryBackend) PutBlock(b *block.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks[b.Hash] = b
	return nil
}

// GetBlock retrieves a stored block by hash.
func (m *MemoryBackend) GetBlock(hash types.Hash) (*block.Block, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blocks[hash]
	return b, ok
}

// Flush is a no-op: the in-memory backend has no buffered writes to flush.
func (m *MemoryBackend) Flush() error { return nil }

// Close is a no-op.
func (m *MemoryBackend) Close() error { return nil }
