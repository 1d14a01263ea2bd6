package fuzzy

import (
	"strings"
)

// ============================================================================
// FUZZY — Approximate String Matching
// ============================================================================
// Similarity scores are 0..100. The engine treats fuzzy matching as a
// capability: everything accepts a nil Matcher and degrades to exact
// matching only.
// ============================================================================

// Matcher scores string similarity and picks best candidates.
// A nil Matcher is valid everywhere — callers must skip fuzzy passes.
type Matcher interface {
	// Score returns a 0..100 similarity between two strings.
	Score(a, b string) int
	// BestMatch returns the choice with the highest score at or above
	// cutoff, or ok=false when nothing clears it.
	BestMatch(query string, choices []string, cutoff int) (match string, score int, ok bool)
}

// Scorer is the default Matcher. It combines Levenshtein ratio,
// Jaro-Winkler, and token-set similarity, taking the best signal.
type Scorer struct{}

// New returns the default Matcher.
func New() Matcher { return Scorer{} }

func (Scorer) Score(a, b string) int {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	best := levenshteinRatio(a, b)
	if jw := int(JaroWinkler(a, b) * 100); jw > best {
		best = jw
	}
	if ts := tokenSetRatio(a, b); ts > best {
		best = ts
	}
	// Containment of a whole token counts for a lot when lengths differ,
	// but never as much as a near-exact full match.
	if len(a) >= 3 && len(b) >= 3 && (strings.Contains(a, b) || strings.Contains(b, a)) {
		if best < 90 {
			best = 90
		}
	}
	return best
}

func (s Scorer) BestMatch(query string, choices []string, cutoff int) (string, int, bool) {
	bestScore := -1
	bestChoice := ""
	for _, c := range choices {
		sc := s.Score(query, c)
		if sc > bestScore {
			bestScore = sc
			bestChoice = c
		}
	}
	if bestScore >= cutoff && bestChoice != "" {
		return bestChoice, bestScore, true
	}
	return "", 0, false
}

// ============================================================================
// LEVENSHTEIN
// ============================================================================

// Levenshtein returns the edit distance between two strings.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// levenshteinRatio normalizes edit distance into a 0..100 similarity.
func levenshteinRatio(a, b string) int {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 100
	}
	d := Levenshtein(a, b)
	return int(float64(longest-d) / float64(longest) * 100)
}

// ============================================================================
// JARO-WINKLER
// ============================================================================

// Jaro returns the Jaro similarity in 0..1.
func Jaro(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 && lb == 0 {
		return 1
	}
	if la == 0 || lb == 0 {
		return 0
	}

	window := la
	if lb > window {
		window = lb
	}
	window = window/2 - 1
	if window < 0 {
		window = 0
	}

	matchedA := make([]bool, la)
	matchedB := make([]bool, lb)
	matches := 0
	for i := 0; i < la; i++ {
		lo := i - window
		if lo < 0 {
			lo = 0
		}
		hi := i + window + 1
		if hi > lb {
			hi = lb
		}
		for j := lo; j < hi; j++ {
			if matchedB[j] || ra[i] != rb[j] {
				continue
			}
			matchedA[i] = true
			matchedB[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	j := 0
	for i := 0; i < la; i++ {
		if !matchedA[i] {
			continue
		}
		for !matchedB[j] {
			j++
		}
		if ra[i] != rb[j] {
			transpositions++
		}
		j++
	}
	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(la) + m/float64(lb) + (m-t)/m) / 3
}

// JaroWinkler boosts Jaro similarity for shared prefixes (up to 4 chars).
func JaroWinkler(a, b string) float64 {
	j := Jaro(a, b)
	prefix := 0
	ra := []rune(a)
	rb := []rune(b)
	for prefix < len(ra) && prefix < len(rb) && prefix < 4 && ra[prefix] == rb[prefix] {
		prefix++
	}
	return j + float64(prefix)*0.1*(1-j)
}

// ============================================================================
// TOKEN SET
// ============================================================================

// tokenSetRatio compares the sorted unique-token forms of both strings,
// scoring shared tokens generously so word order does not matter.
func tokenSetRatio(a, b string) int {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var shared, onlyA, onlyB []string
	for tok := range ta {
		if tb[tok] {
			shared = append(shared, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tb {
		if !ta[tok] {
			onlyB = append(onlyB, tok)
		}
	}
	if len(shared) == 0 {
		return levenshteinRatio(sortedJoin(ta), sortedJoin(tb))
	}

	base := sortedJoinSlice(shared)
	combA := strings.TrimSpace(base + " " + sortedJoinSlice(onlyA))
	combB := strings.TrimSpace(base + " " + sortedJoinSlice(onlyB))

	best := levenshteinRatio(combA, combB)
	if r := levenshteinRatio(base, combA); r > best {
		best = r
	}
	if r := levenshteinRatio(base, combB); r > best {
		best = r
	}
	return best
}

func tokenSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		out[tok] = true
	}
	return out
}

func sortedJoin(set map[string]bool) string {
	toks := make([]string, 0, len(set))
	for t := range set {
		toks = append(toks, t)
	}
	return sortedJoinSlice(toks)
}

func sortedJoinSlice(toks []string) string {
	sorted := append([]string(nil), toks...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return strings.Join(sorted, " ")
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
