package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// TIME FILTER PARSER
// ============================================================================

// TimeSpec holds structured time criteria. Zero values mean "unset".
type TimeSpec struct {
	Year          int
	RangeStart    int
	RangeEnd      int // inclusive; a range is set when RangeEnd > 0
	CompletedYear int
	Status        string // "ongoing" | "completed" | ""
}

// Empty reports whether no time criterion was parsed.
func (t TimeSpec) Empty() bool {
	return t.Year == 0 && t.RangeEnd == 0 && t.CompletedYear == 0 && t.Status == ""
}

var (
	yearRangeRe     = regexp.MustCompile(`between\s+(\d{4})\s+and\s+(\d{4})`)
	singleYearRe    = regexp.MustCompile(`\b(in|for)\s+(\d{4})\b`)
	completedYearRe = regexp.MustCompile(`completed\s+in\s+(\d{4})`)
	ongoingRe       = regexp.MustCompile(`\bongoing\b`)
	completedRe     = regexp.MustCompile(`\bcompleted\b`)
)

// ParseTime extracts year/range/status qualifiers from a question.
// A "between A and B" range wins outright; the rest may combine.
// now resolves relative years ("last year", "this year").
func ParseTime(prompt string, now func() time.Time) TimeSpec {
	p := strings.ToLower(prompt)
	var t TimeSpec

	if m := yearRangeRe.FindStringSubmatch(p); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		if a > b {
			a, b = b, a
		}
		t.RangeStart, t.RangeEnd = a, b
		return t
	}

	if m := singleYearRe.FindStringSubmatch(p); m != nil {
		t.Year, _ = strconv.Atoi(m[2])
	}
	if m := completedYearRe.FindStringSubmatch(p); m != nil {
		t.CompletedYear, _ = strconv.Atoi(m[1])
		// "completed in 2021" also matched the single-year pattern.
		if t.Year == t.CompletedYear {
			t.Year = 0
		}
	}
	if now == nil {
		now = time.Now
	}
	if strings.Contains(p, "last year") {
		t.Year = now().Year() - 1
	}
	if strings.Contains(p, "this year") {
		t.Year = now().Year()
	}
	if ongoingRe.MatchString(p) {
		t.Status = "ongoing"
	}
	if completedRe.MatchString(p) && t.CompletedYear == 0 {
		t.Status = "completed"
	}
	return t
}

var yearsListRe = regexp.MustCompile(`(\d{2,4})\s*(?:-|–|—|to)\s*(\d{2,4})`)
var yearNumRe = regexp.MustCompile(`\d{2,4}`)

// ParseYearsInput parses a year, list, or range string into sorted years.
// Two-digit years normalize into the 2000s: "20-22" → 2020..2022.
func ParseYearsInput(s string) []int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	s = strings.NewReplacer("–", "-", "—", "-").Replace(s)

	if m := yearsListRe.FindStringSubmatch(s); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		if a < 100 {
			a += 2000
		}
		if b < 100 {
			b += (a / 100) * 100
		}
		if a > b {
			a, b = b, a
		}
		years := make([]int, 0, b-a+1)
		for y := a; y <= b; y++ {
			years = append(years, y)
		}
		return years
	}

	seen := make(map[int]bool)
	var years []int
	for _, tok := range yearNumRe.FindAllString(s, -1) {
		y, _ := strconv.Atoi(tok)
		if y < 100 {
			y += 2000
		}
		if !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	for i := 1; i < len(years); i++ {
		for j := i; j > 0 && years[j] < years[j-1]; j-- {
			years[j], years[j-1] = years[j-1], years[j]
		}
	}
	return years
}
