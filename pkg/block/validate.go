package block

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// MaxBlockSize is the maximum serialized block size, per spec.
const MaxBlockSize = 10 * 1024 * 1024

// genesisFloor is the earliest timestamp any block may carry (2020-01-01 UTC).
var genesisFloor = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()

// maxFutureDrift bounds how far into the future a block timestamp may sit.
const maxFutureDrift = 600 // seconds

// Structural validation errors. These cover only what a block carries in
// isolation; parent-existence and transaction semantics (balances, nonces)
// require DAG and state lookups and are checked by the committer.
var (
	ErrNilHeader          = errors.New("block has nil header")
	ErrTooManyParents     = errors.New("block has too many parents")
	ErrNoParents          = errors.New("non-genesis block has no parents")
	ErrGenesisHasParents  = errors.New("genesis block must have no parents")
	ErrGenesisBlockNumber = errors.New("genesis block must have block_number 0")
	ErrDuplicateParent    = errors.New("duplicate parent hash")
	ErrSelfParent         = errors.New("block cannot be its own parent")
	ErrTimestampTooEarly  = errors.New("block timestamp predates the genesis floor")
	ErrTimestampTooLate   = errors.New("block timestamp too far in the future")
	ErrBlockTooLarge      = errors.New("block exceeds maximum serialized size")
	ErrHashMismatch       = errors.New("block hash does not match canonical digest")
)

// Validate checks block structure in isolation: header shape, parent count,
// timestamp bounds, serialized size, and hash self-consistency. It does not
// check that parents exist in the DAG or that transactions are individually
// valid against current state — those checks belong to the committer, which
// has access to the DAG store and account state.
func (b *Block) Validate(now time.Time) error {
	if b.Header == nil {
		return ErrNilHeader
	}
	h := b.Header

	if h.IsGenesis() {
		if len(h.ParentHashes) != 0 {
			return ErrGenesisHasParents
		}
	} else {
		if h.BlockNumber == 0 {
			return ErrGenesisBlockNumber
		}
		if len(h.ParentHashes) == 0 {
			return ErrNoParents
		}
	}

	if len(h.ParentHashes) > MaxParents {
		return fmt.Errorf("%w: %d, max %d", ErrTooManyParents, len(h.ParentHashes), MaxParents)
	}

	seen := make(map[types.Hash]bool, len(h.ParentHashes))
	for _, p := range h.ParentHashes {
		if seen[p] {
			return fmt.Errorf("%w: %s", ErrDuplicateParent, p)
		}
		seen[p] = true
		if p == b.Hash {
			return ErrSelfParent
		}
	}

	ts := int64(h.Timestamp)
	if ts < genesisFloor {
		return fmt.Errorf("%w: %d < %d", ErrTimestampTooEarly, ts, genesisFloor)
	}
	if ts > now.Unix()+maxFutureDrift {
		return fmt.Errorf("%w: %d > %d", ErrTimestampTooLate, ts, now.Unix()+maxFutureDrift)
	}

	size, err := b.serializedSize()
	if err != nil {
		return fmt.Errorf("computing serialized size: %w", err)
	}
	if size > MaxBlockSize {
		return fmt.Errorf("%w: %d bytes, max %d", ErrBlockTooLarge, size, MaxBlockSize)
	}

	if h.Hash(b.TxHashes()) != b.Hash {
		return ErrHashMismatch
	}

	return nil
}

// serializedSize estimates the wire size of the block as its JSON encoding.
// This is a conservative proxy for the actual wire format used by the P2P
// transport, which frames the same fields.
func (b *Block) serializedSize() (int, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}
