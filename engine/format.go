package engine

import (
	"fmt"
	"strings"

	"github.com/floodline/floodline/query"
)

// ============================================================================
// FORMATTING — money, place names, and answer phrases
// ============================================================================

// FormatMoney renders a peso amount with comma grouping and two
// decimals: 1234567.891 → "₱1,234,567.89".
func FormatMoney(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%.2f", v)
	dot := strings.IndexByte(s, '.')
	whole, frac := s[:dot], s[dot:]

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString("₱")
	for i, d := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	b.WriteString(frac)
	return b.String()
}

// DisplayMunicipality renders dataset municipality and province cells in
// reading form: "CITY OF PARAÑAQUE" + "METROPOLITAN MANILA" →
// "Parañaque City, Metro Manila".
func DisplayMunicipality(muni, prov string) string {
	out := displayPlaceToken(muni)
	if p := displayPlaceToken(prov); p != "" && !strings.Contains(out, p) {
		if out == "" {
			return p
		}
		out += ", " + p
	}
	return out
}

// displayPlaceToken title-cases one place cell and rewrites the common
// LGU spellings.
func displayPlaceToken(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// Cells like "CITY OF PARAÑAQUE, METROPOLITAN MANILA" carry their
	// province inline.
	if head, tail, found := strings.Cut(s, ","); found {
		out := displayPlaceToken(head)
		if rest := displayPlaceToken(tail); rest != "" {
			if out == "" {
				return rest
			}
			out += ", " + rest
		}
		return out
	}
	low := strings.ToLower(s)
	if low == "metropolitan manila" || low == "metro manila" || low == "national capital region" {
		return "Metro Manila"
	}
	if rest, ok := cutPrefixFold(low, "city of "); ok {
		return titleWords(rest) + " City"
	}
	if rest, ok := cutPrefixFold(low, "municipality of "); ok {
		return titleWords(rest)
	}
	return titleWords(low)
}

func cutPrefixFold(low, prefix string) (string, bool) {
	if strings.HasPrefix(low, prefix) {
		return low[len(prefix):], true
	}
	return low, false
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		if len(r) == 0 {
			continue
		}
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}

// Place is the human description of a filter scope: Phrase slots into
// sentences (" in Parañaque City"), Title stands alone ("Parañaque City"
// or "the dataset").
type Place struct {
	Phrase string
	Title  string
}

// describePlace builds the place wording for a filter set. Field order
// mirrors filter priority: municipality, province, region, island,
// free-text location, then multi-location.
func describePlace(f query.FilterSpec) Place {
	var name string
	switch {
	case f.Municipality != "":
		name = DisplayMunicipality(f.Municipality, f.Province)
	case f.Province != "":
		name = displayPlaceToken(f.Province)
	case f.Region != "":
		name = query.DisplayRegion(f.Region)
	case f.MainIsland != "":
		name = titleWords(f.MainIsland)
	case f.ProjectLocation != "":
		name = f.ProjectLocation
	case len(f.MultiLocations) > 0:
		parts := make([]string, len(f.MultiLocations))
		for i, loc := range f.MultiLocations {
			parts[i] = displayPlaceToken(loc)
		}
		name = strings.Join(parts, " or ")
	}
	if name == "" {
		return Place{Phrase: "", Title: "the dataset"}
	}
	return Place{Phrase: " in " + name, Title: name}
}

// joinNames renders a tie list: "A and B", "A, B and C".
func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}
