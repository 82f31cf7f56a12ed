// Package similarity provides set-overlap measures used by incident retrieval.
package similarity

import "strings"

// Lexical is the Jaccard overlap of the lower-cased, whitespace-split word sets of a and b.
// Punctuation stays attached to words. Returns 0 when either side has no words.
func Lexical(a, b string) (score float64) {
	defer func() {
		if recover() != nil {
			score = 0
		}
	}()
	return jaccard(wordSet(a), wordSet(b))
}

// TagOverlap is the Jaccard overlap of two tag lists, compared case-insensitively.
// Tags are trimmed and empty tags ignored. Returns 0 when either side is empty.
func TagOverlap(a, b []string) float64 {
	return jaccard(tagSet(a), tagSet(b))
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		set[t] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for k := range small {
		if _, ok := large[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
