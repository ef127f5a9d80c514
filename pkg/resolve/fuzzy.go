package resolve

import (
	"sort"
	"strings"

	"github.com/quorumhq/nameplate/pkg/roster"
)

// scoredEntry pairs a roster entry with its fuzzy score on the internal
// 0-100 scale.
type scoredEntry struct {
	entry roster.Entry
	score int
}

// fuzzyCandidates scores every roster entry against the mention and returns
// the candidates in descending score order. Each entry's score is the best
// across its display name and aliases. Pure function, no side effects.
func fuzzyCandidates(mention string, entries []roster.Entry) []scoredEntry {
	candidates := make([]scoredEntry, 0, len(entries))
	for _, entry := range entries {
		best := 0
		for _, name := range entry.Names() {
			if s := tokenSortRatio(mention, name); s > best {
				best = s
			}
		}
		candidates = append(candidates, scoredEntry{entry: entry, score: best})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	return candidates
}

// tokenSortRatio computes an order-independent similarity between two names
// on a 0-100 scale. Both sides are normalized, tokenized, and sorted before
// comparison, so "Smith, John" and "John Smith" score 100. Names are spoken
// in arbitrary order; plain edit distance would punish that.
func tokenSortRatio(a, b string) int {
	ta := roster.Tokens(a)
	tb := roster.Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	sort.Strings(ta)
	sort.Strings(tb)

	sa := strings.Join(ta, " ")
	sb := strings.Join(tb, " ")
	if sa == sb {
		return 100
	}

	maxLen := len(sa)
	if len(sb) > maxLen {
		maxLen = len(sb)
	}

	distance := levenshtein(sa, sb)
	return int(100 * (1.0 - float64(distance)/float64(maxLen)))
}

// levenshtein computes the edit distance between two strings using two rows
// instead of the full matrix.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Keep a as the shorter string so the rows stay small.
	if len(a) > len(b) {
		a, b = b, a
	}

	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)
	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(b); j++ {
		curr[0] = j
		for i := 1; i <= len(a); i++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			curr[i] = min3(
				prev[i]+1,      // deletion
				curr[i-1]+1,    // insertion
				prev[i-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(a)]
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}
