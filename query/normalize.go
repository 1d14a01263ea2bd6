package query

import (
	"regexp"
	"strings"

	"github.com/floodline/floodline/dataset"
	"github.com/floodline/floodline/fuzzy"
)

// ============================================================================
// NORMALIZER — multi-pass typo correction before any parsing
// ============================================================================
// Pass order (idempotent overall):
//   1. static typo table (whole-word, case-insensitive)
//   2. fuzzy match against core keywords (cutoff 85, length guard)
//   3. fuzzy match against dataset vocabulary, in priority tiers
//   4. typo table again, to catch corrections introduced by 2/3
// A nil Matcher degrades to passes 1 and 4 only. Never errors.
// ============================================================================

// typoTable maps common misspellings to their corrections.
var typoTable = map[string]string{
	"budjet": "budget", "budgget": "budget", "bdgst": "budget", "bdgt": "budget",
	"budgt": "budget", "bugdet": "budget", "budg": "budget", "buget": "budget",
	"budgit": "budget", "bduget": "budget",
	"aproved": "approved", "apprved": "approved", "approvd": "approved",
	"aprooved": "approved", "aprroved": "approved",
	"contrator": "contractor", "contructor": "contractor", "contractr": "contractor",
	"contracter": "contractor", "contarctor": "contractor", "contractorr": "contractor",
	"contrators": "contractors", "contractrs": "contractors",
	"municpality": "municipality", "municapality": "municipality", "munici pality": "municipality",
	"municipalty": "municipality", "municiplaity": "municipality",
	"provnce": "province", "provice": "province", "provonce": "province",
	"reigon": "region", "regin": "region", "regoin": "region", "rgion": "region",
	"trnd": "trend", "trned": "trend", "tren": "trend", "tremd": "trend",
	"completin": "completion", "compeltion": "completion", "comletion": "completion",
	"strt": "start", "strart": "start",
	"prject": "project", "projet": "project", "projct": "project", "proect": "project",
	"prjct": "project", "prjcts": "projects", "prjects": "projects", "projcts": "projects",
	"totl": "total", "tota": "total", "totle": "total",
	"cst": "cost", "cots": "cost",
	"highst": "highest", "heighest": "highest", "higest": "highest",
	"lowst": "lowest", "loest": "lowest",
	"numbr": "number", "nmber": "number",
	"whch": "which", "wich": "which",
	"loction": "location", "locatin": "location",
	"hw": "how", "hwo": "how", "haw": "how",
	"mny": "many", "mani": "many", "manuy": "many",
	"wht": "what", "waht": "what",
	"dos": "does", "dose": "does", "deos": "does",
	"hve": "have", "hav": "have", "haf": "have",
	"cavte": "cavite", "cavit": "cavite",
	"manilaaa": "manila", "manilla": "manila", "maniala": "manila",
	"lagunna": "laguna",
	"hwmany": "how many",
}

// coreKeywords are the intent-bearing words fuzzy correction targets
// first. Short function words are deliberately absent: they attract
// false corrections from ordinary English.
var coreKeywords = []string{
	"budget", "approved", "total", "trend", "contractor", "contractors",
	"region", "municipality", "province", "project", "projects",
	"count", "highest", "lowest", "top", "year",
	"how", "many", "what", "which", "where", "who",
}

// stopTokens never get corrected and never trigger vocab correction.
var stopTokens = map[string]bool{
	"in": true, "of": true, "the": true, "a": true, "an": true, "by": true,
	"has": true, "have": true, "with": true, "for": true, "is": true,
	"are": true, "there": true, "does": true, "do": true, "me": true,
	"and": true, "or": true, "to": true, "that": true, "this": true,
}

const (
	coreFuzzyCutoff       = 85
	vocabCoreCutoff       = 82
	vocabLocationCutoff   = 82
	vocabContractorCutoff = 70
)

type typoRule struct {
	re   *regexp.Regexp
	good string
}

var typoRules = func() []typoRule {
	rules := make([]typoRule, 0, len(typoTable))
	for bad, good := range typoTable {
		rules = append(rules, typoRule{
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(bad) + `\b`),
			good: good,
		})
	}
	return rules
}()

// Normalizer corrects spelling noise in questions. The zero value (nil
// Matcher) applies only the static typo table.
type Normalizer struct {
	Matcher fuzzy.Matcher
}

// Normalize runs the full correction pipeline against a question.
func (n Normalizer) Normalize(question string, vocab *dataset.Vocabulary) string {
	out := applyTypoTable(question)
	out = n.correctCoreKeywords(out)
	out = n.correctFromVocabulary(out, vocab)
	out = applyTypoTable(out)
	return out
}

func applyTypoTable(s string) string {
	for _, r := range typoRules {
		s = r.re.ReplaceAllString(s, r.good)
	}
	return s
}

// correctCoreKeywords fuzzy-fixes severe misspellings of intent words.
// The length guard stops short words from swallowing long ones
// ("mindanao" must not become "in").
func (n Normalizer) correctCoreKeywords(s string) string {
	if n.Matcher == nil {
		return s
	}
	tokens := strings.Fields(s)
	for i, tok := range tokens {
		raw := strings.ToLower(strings.Trim(tok, ".,!?;:"))
		if len(raw) < 2 || stopTokens[raw] {
			continue
		}
		best, _, ok := n.Matcher.BestMatch(raw, coreKeywords, coreFuzzyCutoff)
		if !ok || !lengthCompatible(raw, best) || editRatio(raw, best) < coreFuzzyCutoff {
			continue
		}
		tokens[i] = preserveCase(tok, best)
	}
	return strings.Join(tokens, " ")
}

// correctFromVocabulary tries dataset-derived names in priority tiers:
// core keywords, then location tokens, then contractor names.
func (n Normalizer) correctFromVocabulary(s string, vocab *dataset.Vocabulary) string {
	if n.Matcher == nil || vocab == nil {
		return s
	}
	tokens := strings.Fields(s)
	for i, tok := range tokens {
		raw := strings.ToLower(strings.Trim(tok, ".,!?;:"))
		if len(raw) < 2 {
			continue
		}
		if stopTokens[raw] || isCoreKeyword(raw) || vocab.HasLocationToken(raw) || vocab.HasContractorToken(raw) {
			continue
		}

		var corrected string
		if best, _, ok := n.Matcher.BestMatch(raw, coreKeywords, vocabCoreCutoff); ok && editRatio(raw, best) >= vocabCoreCutoff {
			corrected = best
		}
		if corrected == "" && len(raw) >= 4 {
			if best, _, ok := n.Matcher.BestMatch(raw, vocab.LocationTokens, vocabLocationCutoff); ok &&
				lengthCompatible(raw, best) && editRatio(raw, best) >= vocabLocationCutoff {
				corrected = best
			}
		}
		if corrected == "" && len(raw) >= 4 {
			if best, _, ok := n.Matcher.BestMatch(raw, vocab.ContractorTokens, vocabContractorCutoff); ok {
				corrected = best
			}
		}
		if corrected != "" {
			tokens[i] = preserveCase(tok, corrected)
		}
	}
	return strings.Join(tokens, " ")
}

func isCoreKeyword(tok string) bool {
	for _, k := range coreKeywords {
		if tok == k {
			return true
		}
	}
	return false
}

// editRatio is a strict indel similarity for single-token correction.
// The Matcher's containment and prefix signals are tuned for phrase
// matching and would happily turn "there" into "the"; this guard keeps
// token correction honest.
func editRatio(a, b string) int {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	return (total - indelDistance(a, b)) * 100 / total
}

// indelDistance is edit distance with insertions and deletions only.
func indelDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1]
			} else if prev[j] < curr[j-1] {
				curr[j] = prev[j] + 1
			} else {
				curr[j] = curr[j-1] + 1
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// lengthCompatible rejects corrections whose length differs by more
// than half of the longer word.
func lengthCompatible(raw, corrected string) bool {
	la, lb := len(raw), len(corrected)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return true
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	return float64(diff)/float64(longest) < 0.5
}

func preserveCase(original, corrected string) string {
	if original != "" && original[0] >= 'A' && original[0] <= 'Z' && corrected != "" {
		return strings.ToUpper(corrected[:1]) + corrected[1:]
	}
	return corrected
}
