package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"budget", "budget", 0},
		{"budjet", "budget", 1},
		{"paranaque", "paranque", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestJaroWinkler(t *testing.T) {
	assert.InDelta(t, 1.0, JaroWinkler("martha", "martha"), 0.001)
	assert.Greater(t, JaroWinkler("martha", "marhta"), 0.9)
	assert.Equal(t, 0.0, JaroWinkler("abc", "xyz"))
	// A mismatch at the end outscores the same mismatch at the front:
	// only the shared prefix earns the Winkler boost.
	assert.Greater(t, JaroWinkler("contractor", "contracter"), JaroWinkler("contractor", "montractor"))
}

func TestScore(t *testing.T) {
	m := New()

	assert.Equal(t, 100, m.Score("Cavite", "cavite"))
	assert.GreaterOrEqual(t, m.Score("budjet", "budget"), 80)
	assert.GreaterOrEqual(t, m.Score("quezon city", "city quezon"), 95)
	assert.LessOrEqual(t, m.Score("manila", "zamboanga"), 50)
	assert.Equal(t, 0, m.Score("", "budget"))
}

func TestScoreContainment(t *testing.T) {
	m := New()
	// A whole-string containment should score highly even with a big
	// length gap (canonical names embed the short form).
	assert.GreaterOrEqual(t, m.Score("paranaque", "city of paranaque metropolitan manila"), 90)
}

func TestBestMatch(t *testing.T) {
	m := New()
	choices := []string{"budget", "contractor", "municipality", "region"}

	got, score, ok := m.BestMatch("contracter", choices, 85)
	require.True(t, ok)
	assert.Equal(t, "contractor", got)
	assert.GreaterOrEqual(t, score, 85)

	_, _, ok = m.BestMatch("zzzzqq", choices, 85)
	assert.False(t, ok)

	_, _, ok = m.BestMatch("budjet", nil, 85)
	assert.False(t, ok)
}
