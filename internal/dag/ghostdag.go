package dag

import (
	"bytes"
	"sort"

	"github.com/tristream-labs/tristream-chain/pkg/types"
)

// classifyLocked computes the blue/red classification and blue score for a
// newly inserted record. Callers must hold s.mu.
//
// This implements the spec's literal GhostDAG rule (§4.3): a block is blue
// if its anticone — the set of already-accepted blocks mutually unreachable
// from it — has size at most k. blue_score accumulates only over parents
// that are themselves blue, tie-broken on hash for determinism.
//
// Full GhostDAG (as published) computes the anticone relative to a
// block's selected-parent chain and merge set, which requires maintaining
// per-block selected-parent pointers. This store instead computes the
// anticone against the whole set of blocks accepted so far, which is
// equivalent at insertion time (nothing stored yet can be a descendant of
// the block being inserted) and is cheap to compute at the scale this node
// operates at.
func (s *Store) classifyLocked(rec *Record) {
	hash := rec.Block.Hash
	past := s.ancestorsLocked(hash, rec.Block.Header.ParentHashes)

	anticoneSize := 0
	for h := range s.blocks {
		if h == hash {
			continue
		}
		if _, inPast := past[h]; inPast {
			continue
		}
		anticoneSize++
	}

	if anticoneSize <= s.k {
		rec.Classification = Blue
	} else {
		rec.Classification = Red
	}

	var blueParents []types.Hash
	for _, p := range rec.Block.Header.ParentHashes {
		if pr, ok := s.blocks[p]; ok && pr.Classification == Blue {
			blueParents = append(blueParents, p)
		}
	}
	sort.Slice(blueParents, func(i, j int) bool {
		return bytes.Compare(blueParents[i][:], blueParents[j][:]) < 0
	})

	var sum uint64
	for _, p := range blueParents {
		sum += s.blocks[p].BlueScore
	}
	rec.BlueScore = 1 + sum
}

// ancestorsLocked returns the transitive closure of parents reachable from
// hash, given its immediate parent list. Callers must hold s.mu (read or
// write).
func (s *Store) ancestorsLocked(self types.Hash, parents []types.Hash) map[types.Hash]struct{} {
	seen := map[types.Hash]struct{}{self: {}}
	queue := append([]types.Hash(nil), parents...)
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		rec, ok := s.blocks[h]
		if !ok {
			continue
		}
		queue = append(queue, rec.Block.Header.ParentHashes...)
	}
	return seen
}

// Order returns the consensus ordering: a topological order over the DAG's
// edges, with ties among blocks that have no remaining dependency broken by
// blue score descending, then hash ascending (spec §4.3). Red blocks remain
// in the sequence but sort after blue blocks of equal depth since their
// blue score is typically lower.
func (s *Store) Order() []types.Hash {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty && s.order != nil {
		return append([]types.Hash(nil), s.order...)
	}

	indegree := make(map[types.Hash]int, len(s.blocks))
	for h := range s.blocks {
		indegree[h] = 0
	}
	for h, rec := range s.blocks {
		for _, p := range rec.Block.Header.ParentHashes {
			if _, ok := s.blocks[p]; ok {
				indegree[h]++
			}
		}
	}
	// Build child edges once for efficient indegree decrement.
	childEdges := make(map[types.Hash][]types.Hash, len(s.blocks))
	for h, rec := range s.blocks {
		for _, p := range rec.Block.Header.ParentHashes {
			if _, ok := s.blocks[p]; ok {
				childEdges[p] = append(childEdges[p], h)
			}
		}
	}

	ready := make([]types.Hash, 0)
	for h, d := range indegree {
		if d == 0 {
			ready = append(ready, h)
		}
	}
	less := func(a, b types.Hash) bool {
		ra, rb := s.blocks[a], s.blocks[b]
		if ra.BlueScore != rb.BlueScore {
			return ra.BlueScore > rb.BlueScore
		}
		return bytes.Compare(a[:], b[:]) < 0
	}
	sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })

	order := make([]types.Hash, 0, len(s.blocks))
	for len(ready) > 0 {
		h := ready[0]
		ready = ready[1:]
		order = append(order, h)
		var newlyReady []types.Hash
		for _, child := range childEdges[h] {
			indegree[child]--
			if indegree[child] == 0 {
				newlyReady = append(newlyReady, child)
			}
		}
		sort.Slice(newlyReady, func(i, j int) bool { return less(newlyReady[i], newlyReady[j]) })
		ready = mergeSorted(ready, newlyReady, less)
	}

	for i, h := range order {
		s.blocks[h].Position = i
	}

	s.order = order
	s.dirty = false
	return append([]types.Hash(nil), order...)
}

// mergeSorted merges two already-sorted-by-less slices.
func mergeSorted(a, b []types.Hash, less func(x, y types.Hash) bool) []types.Hash {
	if len(b) == 0 {
		return a
	}
	out := make([]types.Hash, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if less(a[i], b[j]) {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
