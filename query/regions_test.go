package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegionPatterns(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"2", []string{"region ii", "region 2"}},
		{"ii", []string{"region ii", "region 2"}},
		{"11", []string{"region xi", "region 11"}},
		{"xi", []string{"region xi", "region 11"}},
		{"4", []string{"region iv", "region 4", "region iv-a", "region iv-b", "region 4-a", "region 4-b", "calabarzon", "mimaropa"}},
		{"4a", []string{"4a", "region iv-a", "region 4-a", "calabarzon"}},
		{"iv-b", []string{"iv-b", "region iv-b", "region 4-b", "mimaropa"}},
		{"National Capital Region", []string{"national capital region"}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, RegionPatterns(tc.in), "pattern %q", tc.in)
	}
}

func TestRomanConversion(t *testing.T) {
	assert.Equal(t, "ii", RomanFor("2"))
	assert.Equal(t, "xviii", RomanFor("18"))
	assert.Equal(t, "99", RomanFor("99"))
	assert.True(t, IsRoman("iv"))
	assert.False(t, IsRoman("iz"))
}

func TestIsNCRAlias(t *testing.T) {
	assert.True(t, IsNCRAlias("NCR"))
	assert.True(t, IsNCRAlias("Metro Manila"))
	assert.True(t, IsNCRAlias("metropolitan manila"))
	assert.False(t, IsNCRAlias("Cebu"))
}

func TestIsCARAlias(t *testing.T) {
	assert.True(t, IsCARAlias("CAR"))
	assert.True(t, IsCARAlias("Cordillera Administrative Region"))
	assert.True(t, IsCARAlias("cordillera"))
	assert.False(t, IsCARAlias("Caraga"))
	assert.False(t, IsCARAlias("Cebu"))
}

func TestDisplayRegion(t *testing.T) {
	tests := map[string]string{
		"2":                       "Region II",
		"region 2":                "Region II",
		"region ii":               "Region II",
		"National Capital Region": "NCR",
		"metro manila":            "NCR",
		"cordillera administrative region": "CAR",
		"iv-a":         "Region IV-A",
		"region 4-b":   "Region IV-B",
		"davao region": "Davao Region",
	}
	for in, want := range tests {
		assert.Equal(t, want, DisplayRegion(in), "display %q", in)
	}
}
