package similarity

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Jaccard returns |A∩B| / |A∪B| over the token sets. Both empty is 1,
// exactly one empty is 0.
func Jaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// NGramJaccard is Jaccard over contiguous token n-grams. When either side is
// shorter than n it degrades to plain token Jaccard so short identical
// titles still match.
func NGramJaccard(a, b []string, n int) float64 {
	if n <= 1 || len(a) < n || len(b) < n {
		return Jaccard(a, b)
	}
	return Jaccard(NGrams(a, n), NGrams(b, n))
}

// NGrams returns the contiguous n-token sequences joined by a space
func NGrams(tokens []string, n int) []string {
	if n <= 0 || len(tokens) < n {
		return nil
	}
	grams := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		grams = append(grams, strings.Join(tokens[i:i+n], " "))
	}
	return grams
}

// TermFrequency counts token occurrences
func TermFrequency(tokens []string) map[string]float64 {
	tf := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}

// CosineTF is cosine similarity over raw term-frequency vectors
func CosineTF(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	return Cosine(TermFrequency(a), TermFrequency(b))
}

// CosineTFIDF is cosine similarity over TF-IDF vectors weighted by corpus.
// A nil corpus weights every term equally, which reduces to CosineTF.
func CosineTFIDF(a, b []string, corpus *Corpus) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	return Cosine(corpus.Vector(a), corpus.Vector(b))
}

// Cosine is the normalized dot product of two sparse vectors. Terms are
// visited in sorted order so Cosine(a,b) and Cosine(b,a) are bit-identical.
func Cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	shared := make([]string, 0, len(a))
	for term := range a {
		if _, ok := b[term]; ok {
			shared = append(shared, term)
		}
	}
	if len(shared) == 0 {
		return 0.0
	}
	sort.Strings(shared)

	var dot float64
	for _, term := range shared {
		dot += a[term] * b[term]
	}

	normA := norm(a)
	normB := norm(b)
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return clamp(dot / (normA * normB))
}

func norm(v map[string]float64) float64 {
	terms := make([]string, 0, len(v))
	for term := range v {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	var sum float64
	for _, term := range terms {
		sum += v[term] * v[term]
	}
	return math.Sqrt(sum)
}

// NormalizedLevenshtein returns 1 - editDistance/maxLen over runes.
func NormalizedLevenshtein(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}

	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	return clamp(1.0 - float64(levenshtein(ra, rb))/float64(maxLen))
}

// levenshtein is the two-row dynamic programming edit distance
func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// LabelSimilarity is Jaccard over case-folded label names
func LabelSimilarity(a, b []string) float64 {
	return Jaccard(foldAll(a), foldAll(b))
}

// Creation-time proximity buckets
const (
	proximitySameDay   = 1.0
	proximitySameWeek  = 0.7
	proximitySameMonth = 0.3
)

// TimeProximity scores how close two creation times are
func TimeProximity(a, b time.Time) float64 {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	switch {
	case d < 24*time.Hour:
		return proximitySameDay
	case d < 7*24*time.Hour:
		return proximitySameWeek
	case d < 30*24*time.Hour:
		return proximitySameMonth
	default:
		return 0.0
	}
}

func toSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func foldAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
