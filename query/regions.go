package query

import (
	"regexp"
	"strings"
)

// ============================================================================
// REGIONS — alias table, roman numerals, and expansion rules
// ============================================================================
// Philippine administrative regions are written three ways in the wild:
// digits ("region 2"), roman numerals ("Region II"), and named aliases
// (NCR, CAR, CALABARZON). All spellings of the same region must select
// the identical row set.
// ============================================================================

var romanForDigit = map[string]string{
	"1": "i", "2": "ii", "3": "iii", "4": "iv", "5": "v",
	"6": "vi", "7": "vii", "8": "viii", "9": "ix", "10": "x",
	"11": "xi", "12": "xii", "13": "xiii", "14": "xiv", "15": "xv",
	"16": "xvi", "17": "xvii", "18": "xviii",
}

var digitForRoman = func() map[string]string {
	m := make(map[string]string, len(romanForDigit))
	for d, r := range romanForDigit {
		m[r] = d
	}
	return m
}()

// RomanFor converts "2" → "ii". Unknown inputs pass through unchanged.
func RomanFor(digit string) string {
	if r, ok := romanForDigit[digit]; ok {
		return r
	}
	return digit
}

// IsRoman reports whether the lowercased token is a known roman numeral.
func IsRoman(s string) bool {
	_, ok := digitForRoman[s]
	return ok
}

// NCRAliases are the spellings that all mean the National Capital Region.
var NCRAliases = []string{"national capital region", "ncr", "metro manila", "metropolitan manila"}

// IsNCRAlias reports whether a region value means NCR.
func IsNCRAlias(s string) bool {
	low := strings.ToLower(strings.TrimSpace(s))
	for _, a := range NCRAliases {
		if low == a {
			return true
		}
	}
	return false
}

// CARAliases are the spellings that all mean the Cordillera
// Administrative Region.
var CARAliases = []string{"cordillera administrative region", "cordillera", "car"}

// IsCARAlias reports whether a region value means CAR. The bare "car"
// spelling is matched whole only, so Caraga never qualifies.
func IsCARAlias(s string) bool {
	low := strings.ToLower(strings.TrimSpace(s))
	return low == "car" || strings.Contains(low, "cordillera")
}

// RegionPatterns expands a detected region value into the set of
// lowercased patterns a dataset region cell may start with or equal.
// Bare 4/IV additionally expands to both sub-regions — the only case
// where one filter value selects disjoint regions.
func RegionPatterns(value string) []string {
	pat := strings.ToLower(strings.TrimSpace(value))
	var patterns []string

	switch {
	case isDigits(pat):
		patterns = append(patterns, "region "+RomanFor(pat), "region "+pat)
	case IsRoman(pat):
		patterns = append(patterns, "region "+pat, "region "+digitForRoman[pat])
	default:
		patterns = append(patterns, pat)
	}

	switch pat {
	case "4", "iv":
		patterns = append(patterns, "region iv-a", "region iv-b", "region 4-a", "region 4-b", "calabarzon", "mimaropa")
	case "4a", "iv-a":
		patterns = append(patterns, "region iv-a", "region 4-a", "calabarzon")
	case "4b", "iv-b":
		patterns = append(patterns, "region iv-b", "region 4-b", "mimaropa")
	}

	return patterns
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var (
	subRegionARe = regexp.MustCompile(`^(region\s*)?(iv|4)\s*-?\s*a$`)
	subRegionBRe = regexp.MustCompile(`^(region\s*)?(iv|4)\s*-?\s*b$`)
	regionCodeRe = regexp.MustCompile(`^region\s*([0-9ivx\-ab]+)`)
)

// DisplayRegion renders a region token consistently:
// "2" → "Region II", "iv-a" → "Region IV-A", NCR/CAR aliases collapse.
func DisplayRegion(r string) string {
	s := strings.ToLower(strings.TrimSpace(r))
	switch {
	case strings.Contains(s, "national capital region"),
		strings.Contains(s, "ncr"),
		strings.Contains(s, "metro manila"),
		strings.Contains(s, "metropolitan manila"):
		return "NCR"
	case strings.Contains(s, "cordillera"), s == "car":
		return "CAR"
	case subRegionARe.MatchString(s):
		return "Region IV-A"
	case subRegionBRe.MatchString(s):
		return "Region IV-B"
	case isDigits(s):
		return "Region " + strings.ToUpper(RomanFor(s))
	case IsRoman(s):
		return "Region " + strings.ToUpper(s)
	}
	if m := regionCodeRe.FindStringSubmatch(s); m != nil {
		token := m[1]
		switch token {
		case "iv-a", "4-a", "4a", "iva":
			return "Region IV-A"
		case "iv-b", "4-b", "4b", "ivb":
			return "Region IV-B"
		}
		if isDigits(token) {
			return "Region " + strings.ToUpper(RomanFor(token))
		}
		return "Region " + strings.ToUpper(token)
	}
	if strings.HasSuffix(s, " region") {
		return titleCase(s)
	}
	return titleCase(s)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
