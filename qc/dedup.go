package qc

import farm "github.com/dgryski/go-farm"

// Batch groups a set of joined contigs into their distinct sequences, so the
// locator only ever aligns each unique sequence once. Indices records, for
// each distinct sequence, the positions in the original input slice that
// produced it.
type Batch struct {
	Distinct []string
	Indices  [][]int
}

// Dedup builds a Batch from seqs. It buckets by a farm hash of each sequence
// before falling back to an exact string compare within a bucket, so a
// caller aligning tens of thousands of joined contigs per region pays the
// full string comparison only for genuine hash collisions.
func Dedup(seqs []string) Batch {
	type bucket struct {
		seq string
		idx []int
	}
	buckets := make(map[uint64][]*bucket, len(seqs))

	var order []uint64
	for i, s := range seqs {
		h := farm.Hash64([]byte(s))
		group, ok := buckets[h]
		if !ok {
			order = append(order, h)
		}
		found := false
		for _, b := range group {
			if b.seq == s {
				b.idx = append(b.idx, i)
				found = true
				break
			}
		}
		if !found {
			buckets[h] = append(group, &bucket{seq: s, idx: []int{i}})
			if ok {
				// existing hash bucket gained a new distinct member; order
				// already recorded this hash once, nothing further to do.
			}
		}
	}

	var out Batch
	for _, h := range order {
		for _, b := range buckets[h] {
			out.Distinct = append(out.Distinct, b.seq)
			out.Indices = append(out.Indices, b.idx)
		}
	}
	return out
}

// Expand maps per-distinct-sequence results back to one result per original
// input position, given the Indices produced alongside Distinct by Dedup.
func Expand(indices [][]int, n int, results []*LocatorResult) []*LocatorResult {
	out := make([]*LocatorResult, n)
	for d, idxs := range indices {
		for _, i := range idxs {
			out[i] = results[d]
		}
	}
	return out
}
