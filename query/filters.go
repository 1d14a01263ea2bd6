package query

import (
	"regexp"
	"sort"
	"strings"

	"github.com/floodline/floodline/dataset"
	"github.com/floodline/floodline/fuzzy"
)

// ============================================================================
// FILTER DETECTOR — place/contractor extraction, priority ordered
// ============================================================================
// First match wins down the ladder: region specials → generic region →
// islands → municipality (four strategies) → multi-location → province →
// free-text project location. A municipality hit opportunistically
// co-resolves its province so "Parañaque, Metro Manila" keeps both.
// ============================================================================

// FilterSpec holds structured place/entity criteria. Empty strings mean
// "no criterion".
type FilterSpec struct {
	Municipality    string
	Province        string
	Region          string
	MainIsland      string
	ProjectLocation string
	Contractor      string
	ProjectID       string
	MultiLocations  []string
}

// Empty reports whether no criterion is set.
func (f FilterSpec) Empty() bool {
	return f.Municipality == "" && f.Province == "" && f.Region == "" &&
		f.MainIsland == "" && f.ProjectLocation == "" && f.Contractor == "" &&
		f.ProjectID == "" && len(f.MultiLocations) == 0
}

const (
	municipalityFuzzyCutoff  = 87
	provinceFuzzyCutoff      = 88
	multiLocationFuzzyCutoff = 70
)

var (
	subRegionRe    = regexp.MustCompile(`region\s*(?:iv-?|4)?\s*[–-]?\s*([ab])\b`)
	ncrRe          = regexp.MustCompile(`\bncr\b|national capital region|metro manila`)
	carRe          = regexp.MustCompile(`\bcar\b|cordillera`)
	davaoRe        = regexp.MustCompile(`\bdavao\b`)
	davaoCityRe    = regexp.MustCompile(`\bdavao\s*,?\s*city\b`)
	davaoProvRe    = regexp.MustCompile(`davao\s+(del\s+norte|del\s+sur|de\s+oro|occidental|oriental)`)
	davaoRegionRe  = regexp.MustCompile(`davao region|region\s*(xi|11)\b`)
	regionTokenRe  = regexp.MustCompile(`region\s*([0-9ivx]+)`)
	cityPatternRe  = regexp.MustCompile(`(?i)\b([a-zA-Z][a-zA-Z\s.'&-]{1,60})\s*,?\s*city\b`)
	multiCaptureRe = regexp.MustCompile(`\bin\s+([a-z\s,/]+?)(?:\?|$)`)
	multiSplitRe   = regexp.MustCompile(`\s*(?:,|/|\band\b|\bor\b)\s*`)
	placePrefixRe  = regexp.MustCompile(`\b(city of|municipality of|municipality|city)\b`)
	placeCharsRe   = regexp.MustCompile(`[^a-z0-9\s-]`)
	spacesRe       = regexp.MustCompile(`\s+`)
)

// DetectFilters extracts a FilterSpec from a (normalized) question.
func DetectFilters(prompt string, tbl *dataset.Table, m fuzzy.Matcher) FilterSpec {
	p := strings.ToLower(prompt)
	pNorm := NormalizePlace(prompt)
	var f FilterSpec

	// Region specials first: their keywords collide with everything else.
	if sub := subRegionRe.FindStringSubmatch(p); sub != nil {
		if sub[1] == "a" {
			f.Region = "iv-a"
		} else {
			f.Region = "iv-b"
		}
		return f
	}
	if ncrRe.MatchString(p) {
		f.Region = "National Capital Region"
		return f
	}
	if carRe.MatchString(p) {
		f.Region = "Cordillera Administrative Region"
		return f
	}

	// Davao is ambiguous between a city, four provinces, and a region.
	if davaoRe.MatchString(p) {
		if davaoCityRe.MatchString(p) {
			f.Municipality = "Davao City"
			return f
		}
		if prov := davaoProvRe.FindString(p); prov != "" {
			f.Province = titleCase(prov)
			return f
		}
		if davaoRegionRe.MatchString(p) || strings.Contains(p, "region") || !strings.Contains(prompt, ",") {
			f.Region = "Davao Region"
			return f
		}
	}

	// Generic "region <token>" — stored verbatim, expanded at apply time.
	if rm := regionTokenRe.FindStringSubmatch(p); rm != nil {
		f.Region = rm[1]
		return f
	}

	// Island keywords.
	if _, ok := tbl.Resolve(m, "main_island", "mainisland", "main island"); ok {
		for _, island := range []string{"luzon", "visayas", "mindanao"} {
			if strings.Contains(p, island) {
				f.MainIsland = island
				return f
			}
		}
	}

	// Municipality ladder.
	if muniCol, ok := tbl.MunicipalityColumn(m); ok {
		municipalities := tbl.Uniques(muniCol)

		// (i) "<name> city" exact form.
		if cm := cityPatternRe.FindStringSubmatch(prompt); cm != nil {
			candidate := strings.TrimSpace(cm[1]) + " city"
			for _, muni := range municipalities {
				if strings.EqualFold(strings.TrimSpace(muni), candidate) {
					f.Municipality = muni
					f.Province = coResolveProvince(pNorm, tbl, m)
					return f
				}
			}
		}

		type normEntry struct {
			norm   string
			tokens []string
			canon  string
		}
		entries := make([]normEntry, 0, len(municipalities))
		for _, muni := range municipalities {
			norm := NormalizePlace(muni)
			if norm == "" {
				continue
			}
			var toks []string
			for _, t := range strings.Fields(norm) {
				if len(t) >= 5 {
					toks = append(toks, t)
				}
			}
			entries = append(entries, normEntry{norm: norm, tokens: toks, canon: muni})
		}
		// Longest names first so "san juan city" beats "san juan".
		sort.Slice(entries, func(i, j int) bool { return len(entries[i].norm) > len(entries[j].norm) })

		// (ii) full normalized phrase match.
		for _, e := range entries {
			if containsWholePhrase(pNorm, e.norm) {
				f.Municipality = e.canon
				f.Province = coResolveProvince(pNorm, tbl, m)
				return f
			}
		}

		// (iii) token overlap, weighting tokens near the front of the
		// name — the core city name, not a province suffix.
		pTokens := make(map[string]bool)
		for _, t := range strings.Fields(pNorm) {
			pTokens[t] = true
		}
		bestScore := 0
		bestCanon := ""
		for _, e := range entries {
			normParts := strings.Fields(e.norm)
			score := 0
			for _, tok := range e.tokens {
				if !pTokens[tok] {
					continue
				}
				pos := indexOf(normParts, tok)
				if pos >= 0 && pos < 10 {
					score += 10 - pos
				} else {
					score++
				}
			}
			if score > bestScore {
				bestScore = score
				bestCanon = e.canon
			}
		}
		if bestCanon != "" {
			f.Municipality = bestCanon
			f.Province = coResolveProvince(pNorm, tbl, m)
			return f
		}

		// (iv) fuzzy against the whole municipality list.
		if m != nil {
			norms := make([]string, 0, len(entries))
			byNorm := make(map[string]string, len(entries))
			for _, e := range entries {
				norms = append(norms, e.norm)
				byNorm[e.norm] = e.canon
			}
			if best, _, ok := m.BestMatch(pNorm, norms, municipalityFuzzyCutoff); ok {
				f.Municipality = byNorm[best]
				// fall through: multi-location may still refine
			}
		}
	}

	// Multi-location: "in Pasig or Quezon City", "in Laguna and Cavite".
	if mm := multiCaptureRe.FindStringSubmatch(p); mm != nil {
		var items []string
		for _, it := range multiSplitRe.Split(mm[1], -1) {
			if it = strings.TrimSpace(it); it != "" {
				items = append(items, it)
			}
		}
		if len(items) > 0 && m != nil {
			items = canonicalizePlaces(items, tbl, m)
		}
		if len(items) > 1 {
			f.MultiLocations = items
		}
	}

	if !f.Empty() {
		return f
	}

	// Province only.
	if provCol, ok := tbl.ProvinceColumn(m); ok {
		provinces := tbl.Uniques(provCol)
		type provEntry struct{ norm, canon string }
		entries := make([]provEntry, 0, len(provinces))
		for _, prov := range provinces {
			if norm := NormalizePlace(prov); norm != "" {
				entries = append(entries, provEntry{norm, prov})
			}
		}
		sort.Slice(entries, func(i, j int) bool { return len(entries[i].norm) > len(entries[j].norm) })
		for _, e := range entries {
			if containsWholePhrase(pNorm, e.norm) {
				f.Province = e.canon
				return f
			}
		}
		if m != nil {
			norms := make([]string, 0, len(entries))
			byNorm := make(map[string]string, len(entries))
			for _, e := range entries {
				norms = append(norms, e.norm)
				byNorm[e.norm] = e.canon
			}
			if best, _, ok := m.BestMatch(pNorm, norms, provinceFuzzyCutoff); ok {
				f.Province = byNorm[best]
				return f
			}
		}
	}

	// Free-text project location, longest strings first. Resolved by
	// exact name only: fuzzy resolution here could bind to the ID column.
	if locCol, ok := tbl.Resolve(nil, "project_location", "location", "site_location"); ok {
		locations := tbl.Uniques(locCol)
		sort.Slice(locations, func(i, j int) bool { return len(locations[i]) > len(locations[j]) })
		for _, loc := range locations {
			if strings.Contains(p, strings.ToLower(loc)) {
				f.ProjectLocation = loc
				return f
			}
		}
	}

	return f
}

// coResolveProvince looks for a province name co-occurring with an
// already-matched municipality.
func coResolveProvince(pNorm string, tbl *dataset.Table, m fuzzy.Matcher) string {
	provCol, ok := tbl.ProvinceColumn(m)
	if !ok {
		return ""
	}
	provinces := tbl.Uniques(provCol)
	type entry struct{ norm, canon string }
	entries := make([]entry, 0, len(provinces))
	for _, prov := range provinces {
		if norm := NormalizePlace(prov); norm != "" {
			entries = append(entries, entry{norm, prov})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return len(entries[i].norm) > len(entries[j].norm) })
	for _, e := range entries {
		if containsWholePhrase(pNorm, e.norm) {
			return e.canon
		}
	}
	return ""
}

// canonicalizePlaces fuzzy-matches free-text fragments against the
// municipality and province vocabularies.
func canonicalizePlaces(items []string, tbl *dataset.Table, m fuzzy.Matcher) []string {
	vocab := tbl.Vocabulary()
	choices := make([]string, 0, len(vocab.Municipalities)+len(vocab.Provinces))
	byLower := make(map[string]string)
	for _, v := range append(append([]string(nil), vocab.Municipalities...), vocab.Provinces...) {
		low := strings.ToLower(v)
		if _, dup := byLower[low]; !dup {
			byLower[low] = v
			choices = append(choices, low)
		}
	}
	out := make([]string, len(items))
	for i, it := range items {
		if best, _, ok := m.BestMatch(strings.ToLower(it), choices, multiLocationFuzzyCutoff); ok {
			out[i] = byLower[best]
		} else {
			out[i] = it
		}
	}
	return out
}

// NormalizePlace lowercases, strips diacritics and generic LGU prefixes
// ("city of", "municipality of"), and collapses whitespace.
func NormalizePlace(s string) string {
	s = foldASCII(strings.ToLower(s))
	s = placePrefixRe.ReplaceAllString(s, " ")
	s = placeCharsRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.TrimSpace(spacesRe.ReplaceAllString(s, " "))
}

var asciiFolder = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ä", "a", "ã", "a", "å", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"í", "i", "ì", "i", "î", "i", "ï", "i",
	"ó", "o", "ò", "o", "ô", "o", "ö", "o", "õ", "o",
	"ú", "u", "ù", "u", "û", "u", "ü", "u",
	"ñ", "n", "ç", "c",
)

func foldASCII(s string) string {
	return asciiFolder.Replace(s)
}

func containsWholePhrase(haystack, phrase string) bool {
	idx := strings.Index(haystack, phrase)
	for idx >= 0 {
		beforeOK := idx == 0 || haystack[idx-1] == ' '
		end := idx + len(phrase)
		afterOK := end == len(haystack) || haystack[end] == ' '
		if beforeOK && afterOK {
			return true
		}
		next := strings.Index(haystack[idx+1:], phrase)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func indexOf(parts []string, tok string) int {
	for i, p := range parts {
		if p == tok {
			return i
		}
	}
	return -1
}
