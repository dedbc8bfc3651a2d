package pool

import (
	"sync"
	"testing"

	"github.com/tristream-labs/tristream-chain/pkg/tx"
	"github.com/tristream-labs/tristream-chain/pkg/types"
)

func txWithHash(b byte) *tx.Transaction {
	var h types.Hash
	h[0] = b
	return &tx.Transaction{Hash: h}
}

func TestPush_SizeTracksEntries(t *testing.T) {
	p := New(10)
	for i := 0; i < 5; i++ {
		p.Push(txWithHash(byte(i)))
	}
	if p.Size() != 5 {
		t.Fatalf("Size() = %d, want 5", p.Size())
	}
}

func TestPopBatch_FIFOOrder(t *testing.T) {
	p := New(10)
	for i := 0; i < 3; i++ {
		p.Push(txWithHash(byte(i)))
	}
	got := p.PopBatch(2)
	if len(got) != 2 {
		t.Fatalf("PopBatch returned %d, want 2", len(got))
	}
	if got[0].Hash[0] != 0 || got[1].Hash[0] != 1 {
		t.Fatalf("PopBatch not FIFO: %v", got)
	}
	if p.Size() != 1 {
		t.Fatalf("Size() after pop = %d, want 1", p.Size())
	}
}

func TestEviction_DropsOldestAtCapacity(t *testing.T) {
	p := New(100_000)
	for i := 0; i < 100_001; i++ {
		var h types.Hash
		h[0] = byte(i)
		h[1] = byte(i >> 8)
		h[2] = byte(i >> 16)
		p.Push(&tx.Transaction{Hash: h})
	}
	if p.Size() != 100_000 {
		t.Fatalf("Size() = %d, want 100000", p.Size())
	}
	var first types.Hash
	if _, ok := p.ArrivalOf(first); ok {
		t.Fatal("first-pushed entry should have been evicted")
	}
}

func TestConcurrentPushPop(t *testing.T) {
	p := New(100_000)
	var wg sync.WaitGroup
	for producer := 0; producer < 4; producer++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				var h types.Hash
				h[0] = byte(base)
				h[1] = byte(i)
				h[2] = byte(i >> 8)
				p.Push(&tx.Transaction{Hash: h})
			}
		}(producer)
	}
	for consumer := 0; consumer < 4; consumer++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				p.PopBatch(2)
			}
		}()
	}
	wg.Wait()
	// No assertion beyond "doesn't race/deadlock" — run with -race.
}
