package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/floodline/floodline/dataset"
	"github.com/floodline/floodline/fuzzy"
)

// ============================================================================
// INTENT CLASSIFIER — ordered pattern cascade
// ============================================================================
// The rule list below is evaluated top to bottom; the first rule that
// matches wins. The order is load-bearing because the keyword families
// overlap ("top 5 budget for ACME" must not fall into the generic
// highest-budget rule), so it is kept as explicit data, not implicit
// code order.
// ============================================================================

// Action tags for classified questions.
const (
	ActionCount                         = "count"
	ActionSum                           = "sum"
	ActionMax                           = "max"
	ActionMin                           = "min"
	ActionTopContractors                = "top_contractors"
	ActionTopContractorsByCount         = "top_contractors_by_count"
	ActionContractorMaxTotalBudget      = "contractor_max_total_budget"
	ActionContractorMaxCount            = "contractor_max_count"
	ActionTopProjectsByLocationBudget   = "top_projects_by_location_budget"
	ActionTopProjectsByContractorBudget = "top_projects_by_contractor_budget"
	ActionTrendByYear                   = "trend_by_year"
	ActionMunicipalityMaxTotal          = "municipality_max_total"
	ActionLookup                        = "lookup"
	ActionContractorLookup              = "contractor_lookup"
	ActionBudgetLookup                  = "budget_lookup"
	ActionStartDateLookup               = "start_date_lookup"
	ActionCompletionLookup              = "completion_lookup"
	ActionLocationLookup                = "location_lookup"
	ActionMoreProjects                  = "more_projects"
	ActionUnknown                       = "unknown"
)

// budgetColumn is the logical measure every budget action targets; the
// aggregation layer resolves it to a physical column.
const budgetColumn = "approved_budget"

// Intent is one classified question.
type Intent struct {
	Action   string
	Filters  FilterSpec
	Time     TimeSpec
	Column   string
	TopN     int
	ForceAll bool
	Count    int // page size for more_projects
}

// Parser classifies questions against a dataset.
type Parser struct {
	Table   *dataset.Table
	Matcher fuzzy.Matcher
	Now     func() time.Time
}

// Parse classifies a normalized question. It never fails; input that
// matches no rule yields ActionUnknown.
func (ps *Parser) Parse(prompt string) Intent {
	p := strings.ToLower(prompt)
	for _, r := range rules {
		if intent, ok := r.match(ps, prompt, p); ok {
			return intent
		}
	}
	return Intent{Action: ActionUnknown}
}

type rule struct {
	name  string
	match func(ps *Parser, prompt, p string) (Intent, bool)
}

// rules is the priority cascade, highest first.
var rules = []rule{
	{"top_projects_by_contractor_budget", matchContractorTopProjects},
	{"contractor_max_total_budget", matchContractorMaxTotalBudget},
	{"max", matchMax},
	{"min", matchMin},
	{"top_projects_by_location_budget", matchListByLocation},
	{"more_projects", matchMoreProjects},
	{"count", matchCount},
	{"top_contractors", matchTopContractorsByBudget},
	{"top_contractors_by_count", matchTopContractorsByCount},
	{"contractor_max_count", matchContractorMaxCount},
	{"sum", matchSum},
	{"trend_by_year", matchTrend},
	{"municipality_max_total", matchMunicipalityMaxTotal},
	{"lookup_explicit", matchExplicitProjectID},
	{"contractor_lookup", matchContractorLookup},
	{"budget_lookup", matchBudgetLookup},
	{"start_date_lookup", matchStartDateLookup},
	{"completion_lookup", matchCompletionLookup},
	{"location_lookup", matchLocationLookup},
	{"lookup_detail", matchDetailLookup},
	{"lookup_bare_id", matchBareProjectID},
}

var (
	topNRe              = regexp.MustCompile(`\btop\s+(\d{1,3})\b`)
	contractorTopRe     = regexp.MustCompile(`top\s+\d+\s+(?:projects?\s+)?(?:with\s+the\s+)?(?:highest\s+)?(?:approved\s+)?budget\s+(?:of|for|by)\s+(.+)$`)
	contractorTopListRe = regexp.MustCompile(`list\s+the\s+top\s+(\d+)\s+(?:with\s+the\s+)?(?:highest\s+)?(?:approved\s+)?budget\s+(?:of|for|by)\s+(.+)$`)
	contractorMaxBudRe1 = regexp.MustCompile(`who\s+(?:is\s+)?the\s+contractor\s+with\s+(?:the\s+)?highest\s+(?:total\s+)?(?:approved\s+)?budget`)
	contractorMaxBudRe2 = regexp.MustCompile(`which\s+contractor\s+(?:has|with)\s+(?:the\s+)?highest\s+(?:total\s+)?(?:approved\s+)?budget`)
	highestBudgetRe     = regexp.MustCompile(`highest\s+(?:total\s+)?(?:approved\s+)?budget`)
	listAllProjectsRe   = regexp.MustCompile(`list all .*projects`)
	giveAllInRe         = regexp.MustCompile(`give me all\s+(\d+)\s+projects\s+in`)
	giveAllRe           = regexp.MustCompile(`give me all\s+(\d+)\s+projects`)
	yesRe               = regexp.MustCompile(`^\s*(yes|yeah|yep|sure|ok|okay|please)\s*$`)
	nMoreRe             = regexp.MustCompile(`(\d+)\s+more\s+projects?`)
	countContractorRe   = regexp.MustCompile(`how many projects\s+contractor\s+(.+?)\s+have\b`)
	trailingInRe        = regexp.MustCompile(`in\s+([a-z\s-]+)$`)
	topContractorsRe    = regexp.MustCompile(`top\s+\d+\s+contr[a-z]*ors?.*?\s+by\s+(?:total\s+)?budg[a-z]*`)
	topContractorsCntRe = regexp.MustCompile(`top\s+\d+\s+contr[a-z]*ors?.*?\s+by\s+(?:number\s+of\s+projects|project\s+count|projects)`)
	contractorMaxCntRe1 = regexp.MustCompile(`which\s+contractor\s+(?:has|with)\s+(?:the\s+)?(?:most|highest|largest)\s+(?:number\s+of\s+)?projects?`)
	contractorMaxCntRe2 = regexp.MustCompile(`who\s+is\s+the\s+contractor\s+with\s+(?:the\s+)?(?:most|highest|largest)\s+(?:number\s+of\s+)?projects?`)
	contractorMaxCntRe3 = regexp.MustCompile(`highest\s+number\s+of\s+projects?`)
	trendRe             = regexp.MustCompile(`trend|by year|per year`)
	muniMaxRe           = regexp.MustCompile(`which\s+municipality.*highest\s+total\s+budget`)
	explicitIDRe        = regexp.MustCompile(`(?:project\s*id|projectid)\s*([a-z0-9-]+)`)
	contractorOfRe      = regexp.MustCompile(`who is the contractor.*?([a-z][a-z0-9-]{5,19})(?:\W|$)`)
	budgetOfRe          = regexp.MustCompile(`what is the budget.*?([a-z][a-z0-9-]{5,19})(?:\W|$)`)
	startOfRe           = regexp.MustCompile(`when did.*?([a-z][a-z0-9-]{5,19}).*start`)
	completionOfRe      = regexp.MustCompile(`when.*?([a-z][a-z0-9-]{5,19}).*(complet|finish)`)
	locationOfRe        = regexp.MustCompile(`(where is|what is the location).*?([a-z][a-z0-9-]{5,19})(?:\W|$)`)
	detailOfRe          = regexp.MustCompile(`(what is the cost|who is the consultant|what is the status).*?([a-z][a-z0-9-]{5,19})(?:\W|$)`)
	bareIDRe            = regexp.MustCompile(`^([a-z0-9-]{6,20})$`)
	wordCleanupRe       = regexp.MustCompile(`(?i)\b(contractor|company|corp|inc|ltd|does|have)\b`)
)

// countContractorPatterns catch the many phrasings of "how many
// projects does <contractor> have".
var countContractorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`how many projects.*contractor.*have\s+(.+)$`),
	regexp.MustCompile(`how many projects.*does\s+(.+?)\s+have`),
	regexp.MustCompile(`how many projects.*by\s+(.+)$`),
	regexp.MustCompile(`how many projects.*from\s+(.+)$`),
	regexp.MustCompile(`how many projects\s+(.+?)\s+(?:does|do)\s+have`),
	regexp.MustCompile(`contractor\s+have\s+(.+?)(?:\?|$)`),
}

func parseTopN(p string) int {
	if m := topNRe.FindStringSubmatch(p); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

// resolveContractor matches a free-text name against dataset contractor
// values by bidirectional case-insensitive containment.
func (ps *Parser) resolveContractor(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	col, ok := ps.Table.ContractorColumn(ps.Matcher)
	if !ok {
		return ""
	}
	for _, c := range ps.Table.Uniques(col) {
		low := strings.ToLower(c)
		if strings.Contains(low, name) || strings.Contains(name, low) {
			return c
		}
	}
	return ""
}

func matchContractorTopProjects(ps *Parser, prompt, p string) (Intent, bool) {
	m := contractorTopRe.FindStringSubmatch(p)
	if m == nil {
		m = contractorTopListRe.FindStringSubmatch(p)
		if m != nil {
			m = []string{m[0], m[2]}
		}
	}
	if m == nil {
		return Intent{}, false
	}
	topN := parseTopN(p)
	if topN == 0 {
		topN = 5
	}
	name := strings.TrimRight(strings.TrimSpace(m[1]), ". ,;!?")
	var f FilterSpec
	if best := ps.resolveContractor(name); best != "" {
		f.Contractor = best
	}
	return Intent{
		Action:  ActionTopProjectsByContractorBudget,
		Filters: f,
		Time:    ParseTime(prompt, ps.Now),
		Column:  budgetColumn,
		TopN:    topN,
	}, true
}

func matchContractorMaxTotalBudget(ps *Parser, prompt, p string) (Intent, bool) {
	hit := (strings.Contains(p, "contractor") && highestBudgetRe.MatchString(p)) ||
		contractorMaxBudRe1.MatchString(p) || contractorMaxBudRe2.MatchString(p)
	if !hit {
		return Intent{}, false
	}
	return Intent{
		Action:  ActionContractorMaxTotalBudget,
		Filters: DetectFilters(prompt, ps.Table, ps.Matcher),
		Time:    ParseTime(prompt, ps.Now),
		Column:  budgetColumn,
	}, true
}

var maxKeywords = []string{"highest approved budget", "max approved budget", "highest budget", "max budget", "largest budget", "biggest budget"}
var minKeywords = []string{"lowest approved budget", "min approved budget", "minimum approved budget", "lowest budget", "minimum budget", "least budget"}

func matchMax(ps *Parser, prompt, p string) (Intent, bool) {
	if !containsAny(p, maxKeywords) {
		return Intent{}, false
	}
	topN := parseTopN(p)
	if topN == 0 {
		topN = 1
	}
	return Intent{
		Action:  ActionMax,
		Filters: DetectFilters(prompt, ps.Table, ps.Matcher),
		Time:    ParseTime(prompt, ps.Now),
		Column:  budgetColumn,
		TopN:    topN,
	}, true
}

func matchMin(ps *Parser, prompt, p string) (Intent, bool) {
	if !containsAny(p, minKeywords) {
		return Intent{}, false
	}
	topN := parseTopN(p)
	if topN == 0 {
		topN = 1
	}
	return Intent{
		Action:  ActionMin,
		Filters: DetectFilters(prompt, ps.Table, ps.Matcher),
		Time:    ParseTime(prompt, ps.Now),
		Column:  budgetColumn,
		TopN:    topN,
	}, true
}

func matchListByLocation(ps *Parser, prompt, p string) (Intent, bool) {
	listing := (strings.Contains(p, "list") && strings.Contains(p, "project") && strings.Contains(p, "in")) ||
		listAllProjectsRe.MatchString(p) || giveAllInRe.MatchString(p)
	if !listing {
		return Intent{}, false
	}
	f := DetectFilters(prompt, ps.Table, ps.Matcher)
	if f.Municipality == "" && f.Province == "" && f.Region == "" && f.ProjectLocation == "" {
		return Intent{}, false
	}
	intent := Intent{
		Action:  ActionTopProjectsByLocationBudget,
		Filters: f,
		Time:    ParseTime(prompt, ps.Now),
		Column:  budgetColumn,
		TopN:    5,
	}
	if m := giveAllInRe.FindStringSubmatch(p); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			intent.TopN = n
			intent.ForceAll = true
		}
	}
	return intent, true
}

func matchMoreProjects(ps *Parser, prompt, p string) (Intent, bool) {
	trimmed := strings.TrimSpace(p)
	if yesRe.MatchString(p) {
		return Intent{Action: ActionMoreProjects, Count: 5}, true
	}
	switch trimmed {
	case "more", "more projects", "show more", "5 more", "5 more projects":
		return Intent{Action: ActionMoreProjects, Count: 5}, true
	}
	if m := nMoreRe.FindStringSubmatch(p); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			n = 5
		}
		return Intent{Action: ActionMoreProjects, Count: n}, true
	}
	// "give me all 9 projects" without a location reuses the last listing.
	if m := giveAllRe.FindStringSubmatch(p); m != nil && !strings.Contains(p, "in ") {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			n = 5
		}
		return Intent{Action: ActionMoreProjects, Count: n}, true
	}
	return Intent{}, false
}

func matchCount(ps *Parser, prompt, p string) (Intent, bool) {
	if !strings.Contains(p, "how many") {
		return Intent{}, false
	}
	f := DetectFilters(prompt, ps.Table, ps.Matcher)

	if strings.Contains(p, "contractor") && f.Empty() {
		if m := countContractorRe.FindStringSubmatch(p); m != nil {
			if best := ps.resolveContractor(strings.TrimRight(strings.TrimSpace(m[1]), ".,;:!?")); best != "" {
				f.Contractor = best
			}
		}
		if f.Contractor == "" {
			for _, re := range countContractorPatterns {
				m := re.FindStringSubmatch(p)
				if m == nil {
					continue
				}
				name := wordCleanupRe.ReplaceAllString(m[1], "")
				name = strings.TrimRight(strings.TrimSpace(name), ".,;:!?")
				if best := ps.resolveContractor(name); best != "" {
					f.Contractor = best
				}
				break
			}
		}
	}

	// Last resort: capitalized word runs in the raw prompt often spell a
	// contractor name.
	if f.Empty() {
		if best := ps.contractorFromCapitalizedRun(prompt); best != "" {
			f.Contractor = best
		}
	}

	if f.Empty() {
		if m := trailingInRe.FindStringSubmatch(p); m != nil {
			f.ProjectLocation = strings.TrimSpace(m[1])
		}
	}

	return Intent{
		Action:  ActionCount,
		Filters: f,
		Time:    ParseTime(prompt, ps.Now),
	}, true
}

func (ps *Parser) contractorFromCapitalizedRun(prompt string) string {
	words := strings.Fields(prompt)
	skip := map[string]bool{"have": true, "does": true, "do": true, "the": true, "of": true}
	for i, word := range words {
		if !startsUpper(word) || (len(word) <= 2 && word != strings.ToUpper(word)) {
			continue
		}
		var run []string
		for j := i; j < len(words); j++ {
			w := words[j]
			if startsUpper(w) && !skip[strings.ToLower(w)] {
				run = append(run, strings.TrimRight(w, ".,;:!?"))
			} else {
				break
			}
		}
		if len(run) == 0 {
			continue
		}
		if best := ps.resolveContractor(strings.Join(run, " ")); best != "" {
			return best
		}
	}
	return ""
}

func startsUpper(w string) bool {
	return w != "" && w[0] >= 'A' && w[0] <= 'Z'
}

func matchTopContractorsByBudget(ps *Parser, prompt, p string) (Intent, bool) {
	if !topContractorsRe.MatchString(p) {
		return Intent{}, false
	}
	topN := parseTopN(p)
	if topN == 0 {
		topN = 5
	}
	return Intent{
		Action:  ActionTopContractors,
		Filters: DetectFilters(prompt, ps.Table, ps.Matcher),
		Time:    ParseTime(prompt, ps.Now),
		Column:  budgetColumn,
		TopN:    topN,
	}, true
}

func matchTopContractorsByCount(ps *Parser, prompt, p string) (Intent, bool) {
	if !topContractorsCntRe.MatchString(p) {
		return Intent{}, false
	}
	topN := parseTopN(p)
	if topN == 0 {
		topN = 10
	}
	return Intent{
		Action:  ActionTopContractorsByCount,
		Filters: DetectFilters(prompt, ps.Table, ps.Matcher),
		Time:    ParseTime(prompt, ps.Now),
		TopN:    topN,
	}, true
}

func matchContractorMaxCount(ps *Parser, prompt, p string) (Intent, bool) {
	hit := contractorMaxCntRe1.MatchString(p) || contractorMaxCntRe2.MatchString(p) ||
		(strings.Contains(p, "contractor") && contractorMaxCntRe3.MatchString(p))
	if !hit {
		return Intent{}, false
	}
	return Intent{
		Action:  ActionContractorMaxCount,
		Filters: DetectFilters(prompt, ps.Table, ps.Matcher),
		Time:    ParseTime(prompt, ps.Now),
	}, true
}

var sumKeywords = []string{"total budget", "sum", "overall budget", "cost", "total cost", "total approved budget"}

func matchSum(ps *Parser, prompt, p string) (Intent, bool) {
	if !containsAny(p, sumKeywords) {
		return Intent{}, false
	}
	// "budget trend by year" and "which municipality has the highest
	// total budget" contain sum keywords but belong to later rules.
	if trendRe.MatchString(p) || muniMaxRe.MatchString(p) {
		return Intent{}, false
	}
	return Intent{
		Action:  ActionSum,
		Filters: DetectFilters(prompt, ps.Table, ps.Matcher),
		Time:    ParseTime(prompt, ps.Now),
		Column:  budgetColumn,
	}, true
}

func matchTrend(ps *Parser, prompt, p string) (Intent, bool) {
	if !trendRe.MatchString(p) {
		return Intent{}, false
	}
	return Intent{
		Action:  ActionTrendByYear,
		Filters: DetectFilters(prompt, ps.Table, ps.Matcher),
		Column:  budgetColumn,
	}, true
}

func matchMunicipalityMaxTotal(ps *Parser, prompt, p string) (Intent, bool) {
	if !muniMaxRe.MatchString(p) {
		return Intent{}, false
	}
	return Intent{
		Action:  ActionMunicipalityMaxTotal,
		Filters: DetectFilters(prompt, ps.Table, ps.Matcher),
		Time:    ParseTime(prompt, ps.Now),
		Column:  budgetColumn,
	}, true
}

func matchExplicitProjectID(ps *Parser, prompt, p string) (Intent, bool) {
	if m := explicitIDRe.FindStringSubmatch(p); m != nil {
		return Intent{Action: ActionLookup, Filters: FilterSpec{ProjectID: m[1]}}, true
	}
	return Intent{}, false
}

func matchContractorLookup(ps *Parser, prompt, p string) (Intent, bool) {
	if m := contractorOfRe.FindStringSubmatch(p); m != nil {
		return Intent{Action: ActionContractorLookup, Filters: FilterSpec{ProjectID: m[1]}}, true
	}
	return Intent{}, false
}

func matchBudgetLookup(ps *Parser, prompt, p string) (Intent, bool) {
	if m := budgetOfRe.FindStringSubmatch(p); m != nil {
		return Intent{Action: ActionBudgetLookup, Filters: FilterSpec{ProjectID: m[1]}}, true
	}
	return Intent{}, false
}

func matchStartDateLookup(ps *Parser, prompt, p string) (Intent, bool) {
	if m := startOfRe.FindStringSubmatch(p); m != nil {
		return Intent{Action: ActionStartDateLookup, Filters: FilterSpec{ProjectID: m[1]}}, true
	}
	return Intent{}, false
}

func matchCompletionLookup(ps *Parser, prompt, p string) (Intent, bool) {
	if m := completionOfRe.FindStringSubmatch(p); m != nil {
		return Intent{Action: ActionCompletionLookup, Filters: FilterSpec{ProjectID: m[1]}}, true
	}
	return Intent{}, false
}

func matchLocationLookup(ps *Parser, prompt, p string) (Intent, bool) {
	if m := locationOfRe.FindStringSubmatch(p); m != nil {
		return Intent{Action: ActionLocationLookup, Filters: FilterSpec{ProjectID: m[2]}}, true
	}
	return Intent{}, false
}

func matchDetailLookup(ps *Parser, prompt, p string) (Intent, bool) {
	if m := detailOfRe.FindStringSubmatch(p); m != nil {
		return Intent{Action: ActionLookup, Filters: FilterSpec{ProjectID: m[2]}}, true
	}
	return Intent{}, false
}

func matchBareProjectID(ps *Parser, prompt, p string) (Intent, bool) {
	if m := bareIDRe.FindStringSubmatch(strings.TrimSpace(p)); m != nil {
		return Intent{Action: ActionLookup, Filters: FilterSpec{ProjectID: m[1]}}, true
	}
	return Intent{}, false
}

func containsAny(p string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(p, k) {
			return true
		}
	}
	return false
}
