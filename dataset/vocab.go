package dataset

import (
	"regexp"
	"strings"
)

// ============================================================================
// VOCABULARY — cached index of dataset-derived names
// ============================================================================
// The normalizer and filter detector need the distinct municipality,
// province, and contractor values plus their significant tokens. The
// table never changes after load, so the index is built once and cached.
// ============================================================================

// Vocabulary holds dataset-derived name lists for fuzzy correction.
type Vocabulary struct {
	Municipalities []string // canonical cell values
	Provinces      []string
	Contractors    []string

	// LocationTokens holds lowercased full location strings plus their
	// significant (5+ char) tokens and the three island names.
	LocationTokens []string
	// ContractorTokens holds lowercased contractor values.
	ContractorTokens []string

	locationSet   map[string]bool
	contractorSet map[string]bool
}

// contractor vocab cap keeps fuzzy passes bounded on large datasets
const maxContractorVocab = 8000

var wordRe = regexp.MustCompile(`[a-z]{5,}`)

var locationStopwords = map[string]bool{
	"city": true, "municipality": true, "metropolitan": true,
}

// Vocabulary returns the cached vocabulary index for this table.
func (t *Table) Vocabulary() *Vocabulary {
	t.vocabOnce.Do(func() {
		t.vocab = buildVocabulary(t)
	})
	return t.vocab
}

func buildVocabulary(t *Table) *Vocabulary {
	v := &Vocabulary{
		locationSet:   make(map[string]bool),
		contractorSet: make(map[string]bool),
	}

	if col, ok := t.MunicipalityColumn(nil); ok {
		v.Municipalities = t.Uniques(col)
	}
	if col, ok := t.ProvinceColumn(nil); ok {
		v.Provinces = t.Uniques(col)
	}
	if col, ok := t.ContractorColumn(nil); ok {
		v.Contractors = t.Uniques(col)
		if len(v.Contractors) > maxContractorVocab {
			v.Contractors = v.Contractors[:maxContractorVocab]
		}
	}

	addLocation := func(s string) {
		low := strings.ToLower(s)
		if low != "" && !v.locationSet[low] {
			v.locationSet[low] = true
			v.LocationTokens = append(v.LocationTokens, low)
		}
	}
	for _, island := range []string{"luzon", "visayas", "mindanao"} {
		addLocation(island)
	}
	for _, name := range append(append([]string(nil), v.Municipalities...), v.Provinces...) {
		addLocation(name)
		for _, tok := range wordRe.FindAllString(strings.ToLower(name), -1) {
			if !locationStopwords[tok] {
				addLocation(tok)
			}
		}
	}

	for _, c := range v.Contractors {
		low := strings.ToLower(c)
		if !v.contractorSet[low] {
			v.contractorSet[low] = true
			v.ContractorTokens = append(v.ContractorTokens, low)
		}
	}

	return v
}

// HasLocationToken reports an exact (lowercased) hit in the location vocab.
func (v *Vocabulary) HasLocationToken(tok string) bool {
	return v.locationSet[strings.ToLower(tok)]
}

// HasContractorToken reports an exact (lowercased) hit in the contractor vocab.
func (v *Vocabulary) HasContractorToken(tok string) bool {
	return v.contractorSet[strings.ToLower(tok)]
}
