// Package dag maintains the block graph and the GhostDAG blue/red
// classification and ordering over it (spec §4.3).
package dag

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tristream-labs/tristream-chain/pkg/block"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// Store errors.
var (
	ErrDuplicateBlock = errors.New("duplicate block")
	ErrUnknownParent  = errors.New("no known parent")
	ErrNotFound       = errors.New("block not found")
)

// Classification is the GhostDAG blue/red designation of a block.
type Classification int

const (
	Blue Classification = iota
	Red
)

func (c Classification) String() string {
	if c == Blue {
		return "blue"
	}
	return "red"
}

// Record is the DAG metadata kept for every accepted block.
type Record struct {
	Block          *block.Block
	BlueScore      uint64
	Classification Classification
	Position       int // index in the consensus order, -1 until computed
}

// Store is the append-only block graph. It owns blue/red classification and
// ordering; the committer is its only writer (spec §4.8, §5).
type Store struct {
	mu       sync.RWMutex
	k        int // GhostDAG anticone tolerance
	blocks   map[types.Hash]*Record
	children map[types.Hash][]types.Hash
	tips     map[types.Hash]struct{}
	order    []types.Hash // cached consensus order, invalidated on insert
	dirty    bool
}

// New creates an empty DAG store with the given anticone tolerance k.
func New(k int) *Store {
	return &Store{
		k:        k,
		blocks:   make(map[types.Hash]*Record),
		children: make(map[types.Hash][]types.Hash),
		tips:     make(map[types.Hash]struct{}),
	}
}

// Has reports whether hash is already stored.
func (s *Store) Has(hash types.Hash) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blocks[hash]
	return ok
}

// Get returns the stored record for hash.
func (s *Store) Get(hash types.Hash) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.blocks[hash]
	return r, ok
}

// GetBlock returns the block for hash, satisfying state.BlockReader.
func (s *Store) GetBlock(hash types.Hash) (*block.Block, bool) {
	r, ok := s.Get(hash)
	if !ok {
		return nil, false
	}
	return r.Block, true
}

// Tips returns up to n current DAG tips (blocks with no recorded children),
// used by producers to select candidate parents (spec §4.7 step 3).
func (s *Store) Tips(n int) []types.Hash {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Hash, 0, len(s.tips))
	for h := range s.tips {
		out = append(out, h)
		if len(out) == n {
			break
		}
	}
	return out
}

// Add inserts b into the DAG. The genesis block (no parents) is accepted
// only as the very first block. Every other block must declare at least one
// already-accepted parent. Duplicate hashes are rejected.
func (s *Store) Add(b *block.Block) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := b.Hash
	if _, exists := s.blocks[hash]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateBlock, hash)
	}

	if len(b.Header.ParentHashes) == 0 {
		if len(s.blocks) != 0 {
			return nil, fmt.Errorf("%w: non-genesis block with no parents", ErrUnknownParent)
		}
	} else {
		foundKnown := false
		for _, p := range b.Header.ParentHashes {
			if _, ok := s.blocks[p]; ok {
				foundKnown = true
				delete(s.tips, p)
				s.children[p] = append(s.children[p], hash)
			}
		}
		if !foundKnown {
			return nil, fmt.Errorf("%w: %s", ErrUnknownParent, hash)
		}
	}

	rec := &Record{Block: b, Position: -1}
	s.classifyLocked(rec)
	s.blocks[hash] = rec
	s.tips[hash] = struct{}{}
	s.dirty = true
	return rec, nil
}

// Len returns the number of blocks in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks)
}
