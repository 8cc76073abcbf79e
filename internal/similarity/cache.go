// Package similarity provides a bidirectional, memoized fuzzy string
// scorer over normalised references (spec §4.3). The scorer itself is
// Levenshtein-distance based, via github.com/agnivade/levenshtein;
// the cache shape (sorted-pair key, hit/miss counters, identical/empty
// special cases) follows the teacher's scoredCandidate/jaroWinkler
// bookkeeping in internal/processor/matcher.go.
package similarity

import (
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"

	"reconciliation-engine/internal/types"
)

// Cache memoizes score(a,b) for the lifetime of one reconciliation
// run and is cleared at the end of it to bound memory (spec §4.3,
// §5). It is safe for concurrent use so the optional sharded-matching
// path (internal/worker) can share one cache across shards.
type Cache struct {
	mu     sync.Mutex
	scores map[pairKey]int
	hits   int
	misses int
}

type pairKey struct {
	a, b string
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{scores: make(map[pairKey]int)}
}

// Score returns the Levenshtein-based similarity ratio of a and b in
// [0,100]. Identical (post-normalisation) strings score 100 without
// invoking the scorer; either string empty scores 0. The cache key is
// the sorted pair, so Score(a,b) == Score(b,a) by construction.
func (c *Cache) Score(a, b string) int {
	na := strings.ToLower(strings.TrimSpace(a))
	nb := strings.ToLower(strings.TrimSpace(b))

	if na == nb {
		return 100
	}
	if na == "" || nb == "" {
		return 0
	}

	key := sortedKey(na, nb)

	c.mu.Lock()
	if v, ok := c.scores[key]; ok {
		c.hits++
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	v := ratio(na, nb)

	c.mu.Lock()
	c.misses++
	c.scores[key] = v
	c.mu.Unlock()

	return v
}

func sortedKey(a, b string) pairKey {
	if a <= b {
		return pairKey{a, b}
	}
	return pairKey{b, a}
}

// ratio converts an edit distance into a 0-100 similarity score,
// normalised by the longer string's rune length (fuzzywuzzy-style
// ratio, the closest idiomatic match to spec's "Levenshtein-based
// ratio similarity").
func ratio(a, b string) int {
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len([]rune(a))
	if bl := len([]rune(b)); bl > maxLen {
		maxLen = bl
	}
	if maxLen == 0 {
		return 100
	}
	score := int((1.0-float64(dist)/float64(maxLen))*100 + 0.5)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// Stats reports hit/miss counters for observability (spec §4.3).
func (c *Cache) Stats() types.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return types.CacheStats{Hits: c.hits, Misses: c.misses}
}

// Clear empties the cache and resets counters, called at the end of
// each reconciliation run to bound memory (spec §5).
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scores = make(map[pairKey]int)
	c.hits = 0
	c.misses = 0
}
