package orchestrator

import (
	"sync"

	"blainsmith.com/go/seahash"

	"github.com/grailbio/tcs/demux"
)

// generalFilterCache memoizes demux.GeneralFilterVerdict by a seahash of the
// platform-format-truncated R1/R2 bytes, falling back to an exact compare on
// a hash collision (the same bucket-then-compare idiom qc.Dedup uses with
// go-farm). PCR duplicates within a shard share long runs of identical
// leading bases, so repeated prefixes are common enough in practice to make
// skipping the homopolymer/N regex scan on a hit worthwhile.
type generalFilterCache struct {
	mu      sync.Mutex
	buckets map[uint64][]*cacheEntry
}

type cacheEntry struct {
	r1, r2 string
	reason string
	bad    bool
}

func newGeneralFilterCache() *generalFilterCache {
	return &generalFilterCache{buckets: make(map[uint64][]*cacheEntry)}
}

func (c *generalFilterCache) verdict(r1Trunc, r2Trunc string) (string, bool) {
	key := seahash.Sum64([]byte(r1Trunc)) ^ seahash.Sum64([]byte(r2Trunc))

	c.mu.Lock()
	for _, e := range c.buckets[key] {
		if e.r1 == r1Trunc && e.r2 == r2Trunc {
			c.mu.Unlock()
			return e.reason, e.bad
		}
	}
	c.mu.Unlock()

	reason, bad := demux.GeneralFilterVerdict(r1Trunc, r2Trunc)

	c.mu.Lock()
	c.buckets[key] = append(c.buckets[key], &cacheEntry{r1: r1Trunc, r2: r2Trunc, reason: reason, bad: bad})
	c.mu.Unlock()
	return reason, bad
}
