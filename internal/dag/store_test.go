package dag

import (
	"errors"
	"testing"

	"github.com/tristream-labs/tristream-chain/pkg/block"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

func mkBlock(num uint64, parents []types.Hash, ts uint64) *block.Block {
	h := &block.Header{
		ParentHashes: parents,
		BlockNumber:  num,
		StreamType:   block.StreamA,
		Difficulty:   4,
		Timestamp:    ts,
	}
	return block.NewBlock(h, nil)
}

func TestAddGenesisThenChild(t *testing.T) {
	s := New(3)
	genesis := mkBlock(0, nil, 1735689600)

	if _, err := s.Add(genesis); err != nil {
		t.Fatalf("add genesis: %v", err)
	}
	if !s.Has(genesis.Hash) {
		t.Fatal("genesis not stored")
	}

	child := mkBlock(1, []types.Hash{genesis.Hash}, 1735689601)
	rec, err := s.Add(child)
	if err != nil {
		t.Fatalf("add child: %v", err)
	}
	if rec.BlueScore != 2 {
		t.Errorf("child blue score = %d, want 2", rec.BlueScore)
	}
}

func TestDuplicateBlockRejected(t *testing.T) {
	s := New(3)
	genesis := mkBlock(0, nil, 1735689600)
	if _, err := s.Add(genesis); err != nil {
		t.Fatalf("add genesis: %v", err)
	}

	before := s.Stats(2000000000, 0)
	_, err := s.Add(genesis)
	if !errors.Is(err, ErrDuplicateBlock) {
		t.Fatalf("expected ErrDuplicateBlock, got %v", err)
	}
	after := s.Stats(2000000000, 0)
	if before != after {
		t.Errorf("stats changed after rejected duplicate: %+v vs %+v", before, after)
	}
}

func TestUnknownParentRejected(t *testing.T) {
	s := New(3)
	orphan := mkBlock(5, []types.Hash{{0xaa}}, 1735689600)
	if _, err := s.Add(orphan); !errors.Is(err, ErrUnknownParent) {
		t.Fatalf("expected ErrUnknownParent, got %v", err)
	}
}

func TestOrderingIsTopologicalAndDeterministic(t *testing.T) {
	s := New(3)
	genesis := mkBlock(0, nil, 1735689600)
	s.Add(genesis)
	a := mkBlock(1, []types.Hash{genesis.Hash}, 1735689601)
	s.Add(a)
	b := mkBlock(2, []types.Hash{a.Hash}, 1735689602)
	s.Add(b)

	order1 := s.Order()
	order2 := s.Order()
	if len(order1) != 3 {
		t.Fatalf("expected 3 blocks in order, got %d", len(order1))
	}
	for i := range order1 {
		if order1[i] != order2[i] {
			t.Fatalf("ordering not deterministic across calls")
		}
	}
	// genesis must precede a, a must precede b.
	pos := map[types.Hash]int{}
	for i, h := range order1 {
		pos[h] = i
	}
	if pos[genesis.Hash] >= pos[a.Hash] || pos[a.Hash] >= pos[b.Hash] {
		t.Fatalf("order violates parent-before-child: %v", order1)
	}
}

func TestAnticoneBeyondKIsRed(t *testing.T) {
	s := New(0) // zero tolerance: any concurrent block is red
	genesis := mkBlock(0, nil, 1735689600)
	s.Add(genesis)

	a := mkBlock(1, []types.Hash{genesis.Hash}, 1735689601)
	recA, _ := s.Add(a)
	b := mkBlock(1, []types.Hash{genesis.Hash}, 1735689602)
	recB, _ := s.Add(b)

	// With k=0, the second of two mutually-unreachable blocks sees a
	// nonempty anticone and is classified red.
	if recA.Classification != Blue {
		t.Errorf("first concurrent block should be blue, got %s", recA.Classification)
	}
	if recB.Classification != Red {
		t.Errorf("second concurrent block should be red, got %s", recB.Classification)
	}
}
