package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/floodline/floodline/fuzzy"
)

func TestNormalizeTypoTable(t *testing.T) {
	n := Normalizer{}

	tests := map[string]string{
		"what is the budjet":               "what is the budget",
		"aproved bugdet for the contrator": "approved budget for the contractor",
		"hwmany prjects are there":         "how many projects are there",
		"show me the trnd by year":         "show me the trend by year",
	}
	for in, want := range tests {
		assert.Equal(t, want, n.Normalize(in, nil))
	}
}

func TestNormalizeLeavesCleanInputAlone(t *testing.T) {
	n := Normalizer{Matcher: fuzzy.New()}
	in := "How many projects are there in Region II"
	assert.Equal(t, in, n.Normalize(in, nil))
}

func TestNormalizeVocabularyCorrection(t *testing.T) {
	tbl := loadQueryTable(t)
	n := Normalizer{Matcher: fuzzy.New()}

	out := n.Normalize("How many projects in Ilgan", tbl.Vocabulary())
	assert.Equal(t, "How many projects in Ilagan", out)
}

func TestNormalizeIdempotent(t *testing.T) {
	tbl := loadQueryTable(t)
	n := Normalizer{Matcher: fuzzy.New()}

	once := n.Normalize("hw mny prjects in Ilgan", tbl.Vocabulary())
	twice := n.Normalize(once, tbl.Vocabulary())
	assert.Equal(t, once, twice)
}

func TestNormalizeKeepsShortTokens(t *testing.T) {
	n := Normalizer{Matcher: fuzzy.New()}
	// Single-character noise must not be expanded into keywords.
	assert.Equal(t, "a b c", n.Normalize("a b c", nil))
}
