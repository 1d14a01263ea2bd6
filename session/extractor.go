package session

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/floodline/floodline/query"
)

// ============================================================================
// CONTEXT EXTRACTOR — what each turn remembers, and how follow-ups use it
// ============================================================================
// Extraction reads the classified intent (plus the rendered answer) and
// produces the keys to merge. Application rewrites a follow-up question
// so the stateless engine sees a complete one: "how about in 2023" in a
// Cavite conversation becomes a Cavite question again.
// ============================================================================

// Extract derives context updates from a classified intent.
func Extract(intent query.Intent) Context {
	c := Context{}
	f := intent.Filters

	if f.Municipality != "" || f.Province != "" || f.Region != "" ||
		f.MainIsland != "" || f.ProjectLocation != "" {
		// A fresh place supersedes every earlier place key.
		for _, k := range placeKeys {
			c[k] = ""
		}
	}
	if f.Municipality != "" {
		c[KeyMunicipality] = f.Municipality
	}
	if f.Province != "" {
		c[KeyProvince] = f.Province
	}
	if f.Region != "" {
		c[KeyRegion] = f.Region
	}
	if f.MainIsland != "" {
		c[KeyIsland] = f.MainIsland
	}
	if f.ProjectLocation != "" {
		c[KeyLocation] = f.ProjectLocation
	}
	if f.Contractor != "" {
		c[KeyContractor] = f.Contractor
	}
	if f.ProjectID != "" {
		c[KeyProjectID] = strings.ToUpper(f.ProjectID)
	}

	if intent.Action != "" && intent.Action != query.ActionUnknown {
		c[KeyAction] = intent.Action
	}
	if intent.Column != "" {
		c[KeyColumn] = intent.Column
	}
	if intent.TopN > 0 {
		c[KeyTopN] = strconv.Itoa(intent.TopN)
	}
	if intent.Time.Year != 0 {
		c[KeyYear] = strconv.Itoa(intent.Time.Year)
	}
	if len(c) == 0 {
		return nil
	}
	return c
}

var (
	answerProjectIDRe  = regexp.MustCompile(`Project ID ([A-Za-z0-9][A-Za-z0-9-]{3,19})`)
	answerContractorRe = regexp.MustCompile(`The contractor (?:for Project ID [A-Za-z0-9-]+ |with the highest [a-z ]+ )?is ([^.]+?) with`)
	answerContractor2  = regexp.MustCompile(`The contractor for Project ID [A-Za-z0-9-]+ is ([^.]+)\.`)
)

// ExtractFromAnswer scrapes entities the answer surfaced, so "tell me
// more about it" style follow-ups have a referent.
func ExtractFromAnswer(answer string) Context {
	c := Context{}
	if m := answerProjectIDRe.FindStringSubmatch(answer); m != nil {
		c[KeyProjectID] = strings.ToUpper(m[1])
	}
	if m := answerContractor2.FindStringSubmatch(answer); m != nil {
		c[KeyContractor] = strings.TrimSpace(m[1])
	} else if m := answerContractorRe.FindStringSubmatch(answer); m != nil {
		c[KeyContractor] = strings.TrimSpace(m[1])
	}
	if len(c) == 0 {
		return nil
	}
	return c
}

var (
	explicitIDInQuestion = regexp.MustCompile(`\b[a-zA-Z0-9][a-zA-Z0-9-]{4,18}\d[a-zA-Z0-9-]*\b|project\s*id`)
	pronounContractorRe  = regexp.MustCompile(`(?i)\b(that|this|the same) contractor\b`)
	bareLookupRe         = regexp.MustCompile(`(?i)^(when did it start|when was it completed|who is the contractor|what is the budget|where is it)\??$`)
	listThemRe           = regexp.MustCompile(`(?i)^(show me|list them|show them|list the projects)\??$`)
	resetRe              = regexp.MustCompile(`(?i)\b(reset|start over|new search|clear context|forget that)\b`)
)

// explicitFilterWords mark a question as self-contained: it names its
// own scope, so no remembered place is injected.
var explicitFilterWords = []string{" in ", "region", "province", "municipality", "luzon", "visayas", "mindanao"}

// Apply rewrites a follow-up question using remembered context. A
// question that names its own scope passes through untouched.
func Apply(question string, c Context) string {
	if len(c) == 0 {
		return question
	}
	q := question

	// "that contractor" → the remembered name.
	if name := c[KeyContractor]; name != "" && pronounContractorRe.MatchString(q) {
		q = pronounContractorRe.ReplaceAllString(q, name)
	}

	// Bare field lookups lean on the last project ID.
	if pid := c[KeyProjectID]; pid != "" && bareLookupRe.MatchString(strings.TrimSpace(q)) {
		trimmed := strings.TrimSuffix(strings.TrimSpace(q), "?")
		switch strings.ToLower(trimmed) {
		case "when did it start":
			return fmt.Sprintf("when did %s start", strings.ToLower(pid))
		case "when was it completed":
			return fmt.Sprintf("when was %s completed", strings.ToLower(pid))
		case "where is it":
			return fmt.Sprintf("where is %s", strings.ToLower(pid))
		case "who is the contractor":
			return fmt.Sprintf("who is the contractor of %s", strings.ToLower(pid))
		case "what is the budget":
			return fmt.Sprintf("what is the budget of %s", strings.ToLower(pid))
		}
	}

	// "show me" / "list them" re-lists the remembered place.
	if listThemRe.MatchString(strings.TrimSpace(q)) {
		if place := lastPlace(c); place != "" {
			return "list the projects in " + place
		}
		return q
	}

	// Self-contained questions keep their own scope.
	if hasExplicitScope(q) {
		return q
	}

	// Place-less aggregate follow-ups inherit the remembered place.
	if place := lastPlace(c); place != "" && mentionsAggregate(q) {
		return strings.TrimRight(q, "? ") + " in " + place
	}
	return q
}

func lastPlace(c Context) string {
	for _, k := range placeKeys {
		if v := c[k]; v != "" {
			return v
		}
	}
	return ""
}

func hasExplicitScope(q string) bool {
	low := strings.ToLower(q)
	if explicitIDInQuestion.MatchString(q) {
		return true
	}
	for _, w := range explicitFilterWords {
		if strings.Contains(low, w) {
			return true
		}
	}
	return false
}

var aggregateWords = []string{"how many", "total", "budget", "highest", "lowest", "top ", "trend", "contractor"}

func mentionsAggregate(q string) bool {
	low := strings.ToLower(q)
	for _, w := range aggregateWords {
		if strings.Contains(low, w) {
			return true
		}
	}
	return false
}

// ShouldClear reports whether the question asks to drop the remembered
// context entirely.
func ShouldClear(question string) bool {
	return resetRe.MatchString(question)
}

// Summary renders the remembered context for display ("context" REPL
// command and the /session endpoint).
func Summary(c Context) string {
	if len(c) == 0 {
		return "No conversation context yet."
	}
	ordered := []struct{ key, label string }{
		{KeyMunicipality, "municipality"},
		{KeyProvince, "province"},
		{KeyRegion, "region"},
		{KeyIsland, "island"},
		{KeyLocation, "location"},
		{KeyContractor, "contractor"},
		{KeyProjectID, "project"},
		{KeyYear, "year"},
		{KeyAction, "last action"},
	}
	var parts []string
	for _, f := range ordered {
		if v := c[f.key]; v != "" {
			parts = append(parts, f.label+"="+v)
		}
	}
	if len(parts) == 0 {
		return "No conversation context yet."
	}
	return "Current context: " + strings.Join(parts, ", ")
}
