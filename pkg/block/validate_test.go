package block

import (
	"errors"
	"testing"
	"time"

	"github.com/tristream-labs/tristream-chain/pkg/tx"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

func genesisBlock() *Block {
	header := &Header{BlockNumber: 0, StreamType: StreamA, Difficulty: 4, Timestamp: 1735689600}
	return NewBlock(header, nil)
}

func childBlock(t *testing.T, parent types.Hash, number uint64, timestamp uint64) *Block {
	header := &Header{
		ParentHashes: []types.Hash{parent},
		BlockNumber:  number,
		StreamType:   StreamB,
		Difficulty:   4,
		Timestamp:    timestamp,
	}
	return NewBlock(header, []*tx.Transaction{signedTx(t, 0)})
}

func TestValidate_GenesisAccepted(t *testing.T) {
	g := genesisBlock()
	if err := g.Validate(time.Now()); err != nil {
		t.Fatalf("Validate genesis: %v", err)
	}
}

func TestValidate_GenesisWithParentsRejected(t *testing.T) {
	g := genesisBlock()
	g.Header.ParentHashes = []types.Hash{{0x01}}
	g.Hash = g.ComputeHash()
	// With a parent the header no longer satisfies IsGenesis, so it is
	// rejected as a non-genesis block carrying block_number 0.
	if err := g.Validate(time.Now()); !errors.Is(err, ErrGenesisBlockNumber) {
		t.Fatalf("expected ErrGenesisBlockNumber, got %v", err)
	}
}

func TestValidate_NonGenesisNeedsParent(t *testing.T) {
	header := &Header{BlockNumber: 1, StreamType: StreamB, Difficulty: 4, Timestamp: 1735689601}
	b := NewBlock(header, nil)
	if err := b.Validate(time.Now()); !errors.Is(err, ErrNoParents) {
		t.Fatalf("expected ErrNoParents, got %v", err)
	}
}

func TestValidate_NonGenesisZeroBlockNumberRejected(t *testing.T) {
	header := &Header{BlockNumber: 0, ParentHashes: []types.Hash{{0x01}}, Timestamp: 1735689601}
	b := NewBlock(header, nil)
	if err := b.Validate(time.Now()); !errors.Is(err, ErrGenesisBlockNumber) {
		t.Fatalf("expected ErrGenesisBlockNumber, got %v", err)
	}
}

func TestValidate_TooManyParentsRejected(t *testing.T) {
	parents := make([]types.Hash, MaxParents+1)
	for i := range parents {
		parents[i] = types.Hash{byte(i + 1)}
	}
	header := &Header{BlockNumber: 1, ParentHashes: parents, Timestamp: 1735689601}
	b := NewBlock(header, nil)
	if err := b.Validate(time.Now()); !errors.Is(err, ErrTooManyParents) {
		t.Fatalf("expected ErrTooManyParents, got %v", err)
	}
}

func TestValidate_DuplicateParentRejected(t *testing.T) {
	p := types.Hash{0x01}
	header := &Header{BlockNumber: 1, ParentHashes: []types.Hash{p, p}, Timestamp: 1735689601}
	b := NewBlock(header, nil)
	if err := b.Validate(time.Now()); !errors.Is(err, ErrDuplicateParent) {
		t.Fatalf("expected ErrDuplicateParent, got %v", err)
	}
}

func TestValidate_TimestampTooEarlyRejected(t *testing.T) {
	header := &Header{BlockNumber: 1, ParentHashes: []types.Hash{{0x01}}, Timestamp: 1000}
	b := NewBlock(header, nil)
	if err := b.Validate(time.Now()); !errors.Is(err, ErrTimestampTooEarly) {
		t.Fatalf("expected ErrTimestampTooEarly, got %v", err)
	}
}

func TestValidate_TimestampTooLateRejected(t *testing.T) {
	future := uint64(time.Now().Unix()) + 10_000
	header := &Header{BlockNumber: 1, ParentHashes: []types.Hash{{0x01}}, Timestamp: future}
	b := NewBlock(header, nil)
	if err := b.Validate(time.Now()); !errors.Is(err, ErrTimestampTooLate) {
		t.Fatalf("expected ErrTimestampTooLate, got %v", err)
	}
}

func TestValidate_HashMismatchRejected(t *testing.T) {
	header := &Header{BlockNumber: 1, ParentHashes: []types.Hash{{0x01}}, Timestamp: 1735689601}
	b := NewBlock(header, nil)
	b.Header.Difficulty = 999 // mutate after hashing
	if err := b.Validate(time.Now()); !errors.Is(err, ErrHashMismatch) {
		t.Fatalf("expected ErrHashMismatch, got %v", err)
	}
}

func TestValidate_AcceptsWellFormedChildBlock(t *testing.T) {
	g := genesisBlock()
	child := childBlock(t, g.Hash, 1, 1735689601)
	if err := child.Validate(time.Now()); err != nil {
		t.Fatalf("Validate child: %v", err)
	}
}
