package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/floodline/floodline/dataset"
	"github.com/floodline/floodline/query"
)

// ============================================================================
// AGGREGATION — turns a classified intent into a final answer string
// ============================================================================

const (
	unknownAnswer = "Sorry — I couldn't understand the question."
	morePrompt    = "\n\nWould you like 5 more projects?"
	noMoreAnswer  = "There are no more projects to show for the last location. " +
		"You can ask for another place or specify a contractor."
)

// Execute runs one classified intent and renders the answer.
func (e *Engine) Execute(intent query.Intent, s *Session) string {
	switch intent.Action {
	case query.ActionCount:
		return e.answerCount(intent)
	case query.ActionSum:
		return e.answerSum(intent)
	case query.ActionMax:
		return e.answerExtreme(intent, true)
	case query.ActionMin:
		return e.answerExtreme(intent, false)
	case query.ActionTopProjectsByLocationBudget:
		return e.answerLocationListing(intent, s)
	case query.ActionMoreProjects:
		return e.answerMore(intent, s)
	case query.ActionTopContractors:
		return e.answerTopContractors(intent)
	case query.ActionTopContractorsByCount:
		return e.answerTopContractorsByCount(intent)
	case query.ActionContractorMaxTotalBudget:
		return e.answerContractorMaxTotal(intent)
	case query.ActionContractorMaxCount:
		return e.answerContractorMaxCount(intent)
	case query.ActionTopProjectsByContractorBudget:
		return e.answerContractorListing(intent)
	case query.ActionTrendByYear:
		return e.answerTrend(intent)
	case query.ActionMunicipalityMaxTotal:
		return e.answerMunicipalityMaxTotal(intent)
	case query.ActionLookup:
		return e.answerLookup(intent)
	case query.ActionContractorLookup:
		return e.answerFieldLookup(intent, fieldContractor)
	case query.ActionBudgetLookup:
		return e.answerFieldLookup(intent, fieldBudget)
	case query.ActionStartDateLookup:
		return e.answerFieldLookup(intent, fieldStartDate)
	case query.ActionCompletionLookup:
		return e.answerFieldLookup(intent, fieldCompletion)
	case query.ActionLocationLookup:
		return e.answerFieldLookup(intent, fieldLocation)
	default:
		return unknownAnswer
	}
}

// scoped applies the intent's filters and time criteria.
func (e *Engine) scoped(intent query.Intent) (*dataset.View, Place) {
	v := e.applyFilters(intent.Filters)
	v = e.applyTime(v, intent.Time)
	return v, describePlace(intent.Filters)
}

// notFound renders the empty-result answer, suggesting near-miss place
// names when the question asked for a specific place.
func (e *Engine) notFound(place Place) string {
	answer := fmt.Sprintf("I couldn't find any flood control projects in %s.", place.Title)
	if place.Phrase == "" || e.matcher == nil {
		return answer
	}

	type scored struct {
		name  string
		score int
	}
	var candidates []scored
	seen := make(map[string]bool)
	vocab := e.table.Vocabulary()
	for _, raw := range append(append([]string(nil), vocab.Municipalities...), vocab.Provinces...) {
		name := displayPlaceToken(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if sc := e.matcher.Score(place.Title, name); sc >= 60 {
			candidates = append(candidates, scored{name, sc})
		}
	}
	if len(candidates) == 0 {
		return answer
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].name < candidates[j].name
	})
	if len(candidates) > 5 {
		candidates = candidates[:5]
	}
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.name
	}
	return answer + fmt.Sprintf(" Did you mean: %s?", strings.Join(names, ", "))
}

// ============================================================================
// ROW HELPERS
// ============================================================================

type rowVal struct {
	row int
	val float64
}

// budgetRows collects the view's rows that carry a parseable budget.
// Non-numeric cells are excluded, never coerced to zero.
func (e *Engine) budgetRows(v *dataset.View) []rowVal {
	col, ok := e.table.BudgetColumn(e.matcher)
	if !ok {
		return nil
	}
	out := make([]rowVal, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		row := v.Row(i)
		if f, ok := dataset.ParseNumber(e.table.Value(row, col)); ok {
			out = append(out, rowVal{row, f})
		}
	}
	return out
}

// topRows sorts by value and keeps the top n, including every row tied
// with the nth value so equal budgets are never silently dropped.
func (e *Engine) topRows(rows []rowVal, n int, desc bool) []rowVal {
	sorted := append([]rowVal(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].val != sorted[j].val {
			if desc {
				return sorted[i].val > sorted[j].val
			}
			return sorted[i].val < sorted[j].val
		}
		return e.projectID(sorted[i].row) < e.projectID(sorted[j].row)
	})
	if n <= 0 || n >= len(sorted) {
		return sorted
	}
	boundary := sorted[n-1].val
	end := n
	for end < len(sorted) && sorted[end].val == boundary {
		end++
	}
	return sorted[:end]
}

func (e *Engine) projectID(row int) string {
	col, ok := e.table.ProjectIDColumn()
	if !ok {
		return ""
	}
	return strings.TrimSpace(e.table.Value(row, col))
}

func (e *Engine) rowLocation(row int) string {
	var muni, prov string
	if col, ok := e.table.MunicipalityColumn(e.matcher); ok {
		muni = e.table.Value(row, col)
	}
	if col, ok := e.table.ProvinceColumn(e.matcher); ok {
		prov = e.table.Value(row, col)
	}
	return DisplayMunicipality(muni, prov)
}

// ============================================================================
// COUNT / SUM
// ============================================================================

func (e *Engine) answerCount(intent query.Intent) string {
	v, place := e.scoped(intent)
	n := v.Len()

	if intent.Filters.Contractor != "" {
		return fmt.Sprintf("%s has %d flood control projects.", intent.Filters.Contractor, n)
	}
	if intent.Filters.Empty() && intent.Time.Empty() {
		return fmt.Sprintf("There are %d flood control projects in the dataset.", n)
	}
	if n == 0 && place.Phrase != "" {
		return e.notFound(place)
	}
	return fmt.Sprintf("There are %d flood control projects%s.", n, place.Phrase)
}

func (e *Engine) answerSum(intent query.Intent) string {
	if len(intent.Filters.MultiLocations) > 1 {
		return e.answerSumByLocation(intent)
	}

	v, place := e.scoped(intent)
	if v.Len() == 0 && place.Phrase != "" {
		return e.notFound(place)
	}
	var total float64
	for _, rv := range e.budgetRows(v) {
		total += rv.val
	}
	if place.Phrase == "" {
		return fmt.Sprintf("The total approved budget for all projects is %s.", FormatMoney(total))
	}
	return fmt.Sprintf("The total approved budget%s is %s.", place.Phrase, FormatMoney(total))
}

func (e *Engine) answerSumByLocation(intent query.Intent) string {
	lines := []string{"Total approved budget by location:"}
	for _, loc := range intent.Filters.MultiLocations {
		sub := intent.Filters
		sub.MultiLocations = []string{loc}
		v := e.applyTime(e.applyFilters(sub), intent.Time)
		var total float64
		for _, rv := range e.budgetRows(v) {
			total += rv.val
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", displayPlaceToken(loc), FormatMoney(total)))
	}
	return strings.Join(lines, "\n")
}

// ============================================================================
// MAX / MIN
// ============================================================================

func (e *Engine) answerExtreme(intent query.Intent, max bool) string {
	v, place := e.scoped(intent)
	rows := e.budgetRows(v)
	if len(rows) == 0 {
		return e.notFound(place)
	}

	n := intent.TopN
	if n <= 0 {
		n = 1
	}
	top := e.topRows(rows, n, max)

	if n == 1 {
		// A tied boundary keeps every winner; the sentence names the
		// first and the rest follow as lines.
		first := top[0]
		var answer string
		if max {
			answer = fmt.Sprintf("The project with the highest budget is Project ID %s in %s with %s.",
				e.projectID(first.row), e.rowLocation(first.row), FormatMoney(first.val))
		} else {
			answer = fmt.Sprintf("The project with the lowest approved budget is Project ID %s with %s.",
				e.projectID(first.row), FormatMoney(first.val))
		}
		if place.Phrase != "" {
			answer = fmt.Sprintf("In %s: %s", place.Title, answer)
		}
		for _, rv := range top[1:] {
			answer += fmt.Sprintf("\n- %s: %s", e.projectID(rv.row), FormatMoney(rv.val))
		}
		return answer
	}

	word := "highest"
	if !max {
		word = "lowest"
	}
	lines := []string{fmt.Sprintf("Top %d %s budgets in %s:", n, word, place.Title)}
	for _, rv := range top {
		if max {
			lines = append(lines, fmt.Sprintf("- %s in %s: %s", e.projectID(rv.row), e.rowLocation(rv.row), FormatMoney(rv.val)))
		} else {
			lines = append(lines, fmt.Sprintf("- %s: %s", e.projectID(rv.row), FormatMoney(rv.val)))
		}
	}
	return strings.Join(lines, "\n")
}

// ============================================================================
// LISTINGS + PAGINATION
// ============================================================================

func (e *Engine) answerLocationListing(intent query.Intent, s *Session) string {
	v, place := e.scoped(intent)
	rows := e.budgetRows(v)
	if len(rows) == 0 {
		return e.notFound(place)
	}

	sorted := e.topRows(rows, 0, true)
	contractorCol, hasContractor := e.table.ContractorColumn(e.matcher)
	lines := make([]string, len(sorted))
	for i, rv := range sorted {
		contractor := ""
		if hasContractor {
			contractor = strings.TrimSpace(e.table.Value(rv.row, contractorCol))
		}
		lines[i] = fmt.Sprintf("- %s — %s — %s", e.projectID(rv.row), contractor, FormatMoney(rv.val))
	}

	context := "in " + place.Title
	if s != nil {
		s.Pager.Set(lines, context)
	}

	n := intent.TopN
	if n <= 0 {
		n = pageSize
	}
	if n > len(lines) {
		n = len(lines)
	}
	out := []string{fmt.Sprintf("Top %d projects by approved budget %s:", n, context)}
	out = append(out, lines[:n]...)
	if s != nil {
		s.Pager.Advance(n)
	}
	answer := strings.Join(out, "\n")
	if s != nil && s.Pager.Remaining() > 0 {
		answer += morePrompt
	}
	return answer
}

func (e *Engine) answerMore(intent query.Intent, s *Session) string {
	if s == nil || s.Pager.Remaining() == 0 {
		return noMoreAnswer
	}
	n := intent.Count
	if n <= 0 {
		n = pageSize
	}
	lines := s.Pager.Next(n)
	s.Pager.Advance(len(lines))

	answer := fmt.Sprintf("More projects %s:\n%s", s.Pager.Context(), strings.Join(lines, "\n"))
	if s.Pager.Remaining() > 0 {
		answer += morePrompt
	}
	return answer
}

func (e *Engine) answerContractorListing(intent query.Intent) string {
	v, place := e.scoped(intent)
	rows := e.budgetRows(v)
	if len(rows) == 0 {
		if intent.Filters.Contractor == "" {
			return unknownAnswer
		}
		return fmt.Sprintf("I couldn't find any flood control projects for %s.", intent.Filters.Contractor)
	}

	n := intent.TopN
	if n <= 0 {
		n = 5
	}
	top := e.topRows(rows, n, true)
	if len(top) < n {
		n = len(top)
	}

	descCol, hasDesc := e.table.Resolve(nil, "project_description", "project_name", "description", "project_title")
	lines := []string{fmt.Sprintf("Top %d projects with the highest approved budget for %s%s:",
		n, intent.Filters.Contractor, place.Phrase)}
	for _, rv := range top {
		if hasDesc {
			desc := strings.TrimSpace(e.table.Value(rv.row, descCol))
			lines = append(lines, fmt.Sprintf("- %s: %s — %s", e.projectID(rv.row), desc, FormatMoney(rv.val)))
		} else {
			lines = append(lines, fmt.Sprintf("- %s: %s", e.projectID(rv.row), FormatMoney(rv.val)))
		}
	}
	return strings.Join(lines, "\n")
}

// ============================================================================
// CONTRACTOR AGGREGATES
// ============================================================================

// contractorTotals sums budgets per contractor within the view.
func (e *Engine) contractorTotals(v *dataset.View) map[string]float64 {
	col, ok := e.table.ContractorColumn(e.matcher)
	if !ok {
		return nil
	}
	totals := make(map[string]float64)
	for _, rv := range e.budgetRows(v) {
		name := strings.TrimSpace(e.table.Value(rv.row, col))
		if name != "" {
			totals[name] += rv.val
		}
	}
	return totals
}

func (e *Engine) contractorCounts(v *dataset.View) map[string]int {
	col, ok := e.table.ContractorColumn(e.matcher)
	if !ok {
		return nil
	}
	counts := make(map[string]int)
	for i := 0; i < v.Len(); i++ {
		name := strings.TrimSpace(e.table.Value(v.Row(i), col))
		if name != "" {
			counts[name]++
		}
	}
	return counts
}

type nameVal struct {
	name string
	val  float64
}

func sortedByValue(m map[string]float64) []nameVal {
	out := make([]nameVal, 0, len(m))
	for k, v := range m {
		out = append(out, nameVal{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].val != out[j].val {
			return out[i].val > out[j].val
		}
		return out[i].name < out[j].name
	})
	return out
}

func (e *Engine) answerTopContractors(intent query.Intent) string {
	v, place := e.scoped(intent)
	totals := e.contractorTotals(v)
	if len(totals) == 0 {
		return e.notFound(place)
	}

	ranked := sortedByValue(totals)
	n := intent.TopN
	if n <= 0 || n > len(ranked) {
		n = len(ranked)
	}
	lines := []string{fmt.Sprintf("Top %d contractors by total budget%s:", n, place.Phrase)}
	for _, nv := range ranked[:n] {
		lines = append(lines, fmt.Sprintf("- %s: %s", nv.name, FormatMoney(nv.val)))
	}
	return strings.Join(lines, "\n")
}

func (e *Engine) answerTopContractorsByCount(intent query.Intent) string {
	v, place := e.scoped(intent)
	counts := e.contractorCounts(v)
	if len(counts) == 0 {
		return e.notFound(place)
	}

	asFloat := make(map[string]float64, len(counts))
	for k, c := range counts {
		asFloat[k] = float64(c)
	}
	ranked := sortedByValue(asFloat)
	n := intent.TopN
	if n <= 0 || n > len(ranked) {
		n = len(ranked)
	}
	lines := []string{fmt.Sprintf("Top %d contractors by number of projects%s:", n, place.Phrase)}
	for _, nv := range ranked[:n] {
		lines = append(lines, fmt.Sprintf("- %s: %d project(s)", nv.name, int(nv.val)))
	}
	return strings.Join(lines, "\n")
}

func (e *Engine) answerContractorMaxTotal(intent query.Intent) string {
	v, place := e.scoped(intent)
	totals := e.contractorTotals(v)
	if len(totals) == 0 {
		return e.notFound(place)
	}

	ranked := sortedByValue(totals)
	best := ranked[0].val
	var winners []string
	for _, nv := range ranked {
		if nv.val == best {
			winners = append(winners, nv.name)
		}
	}
	if len(winners) > 1 {
		return fmt.Sprintf("There is a tie for the highest total approved budget%s: %s with %s each.",
			place.Phrase, joinNames(winners), FormatMoney(best))
	}
	return fmt.Sprintf("The contractor with the highest total approved budget%s is %s with %s.",
		place.Phrase, winners[0], FormatMoney(best))
}

func (e *Engine) answerContractorMaxCount(intent query.Intent) string {
	v, place := e.scoped(intent)
	counts := e.contractorCounts(v)
	if len(counts) == 0 {
		return e.notFound(place)
	}

	best := 0
	for _, c := range counts {
		if c > best {
			best = c
		}
	}
	var winners []string
	for name, c := range counts {
		if c == best {
			winners = append(winners, name)
		}
	}
	sort.Strings(winners)
	if len(winners) > 1 {
		return fmt.Sprintf("There is a tie for the highest number of projects%s: %s with %d project(s) each.",
			place.Phrase, joinNames(winners), best)
	}
	return fmt.Sprintf("The contractor with the highest number of projects%s is %s with %d project(s).",
		place.Phrase, winners[0], best)
}

// ============================================================================
// TREND / MUNICIPALITY AGGREGATES
// ============================================================================

func (e *Engine) answerTrend(intent query.Intent) string {
	v, place := e.scoped(intent)
	if v.Len() == 0 {
		return e.notFound(place)
	}

	fundCol, hasFund := e.table.Resolve(nil, "funding_year", "fundingyear", "infra_year")
	startCol, hasStart := e.table.Resolve(nil, "start_date", "startdate", "date_started")

	// Start year first, funding year as the fallback, same precedence
	// as the time filters.
	totals := make(map[int]float64)
	for _, rv := range e.budgetRows(v) {
		year := 0
		if hasStart {
			if y, ok := yearOf(e.table.Value(rv.row, startCol)); ok {
				year = y
			}
		}
		if year == 0 && hasFund {
			if y, err := strconv.Atoi(strings.TrimSpace(e.table.Value(rv.row, fundCol))); err == nil {
				year = y
			}
		}
		if year != 0 {
			totals[year] += rv.val
		}
	}
	if len(totals) == 0 {
		return e.notFound(place)
	}

	years := make([]int, 0, len(totals))
	for y := range totals {
		years = append(years, y)
	}
	sort.Ints(years)

	lines := []string{fmt.Sprintf("Total approved budget by year%s:", place.Phrase)}
	for _, y := range years {
		lines = append(lines, fmt.Sprintf("- %d: %s", y, FormatMoney(totals[y])))
	}
	return strings.Join(lines, "\n")
}

func (e *Engine) answerMunicipalityMaxTotal(intent query.Intent) string {
	v, place := e.scoped(intent)
	col, ok := e.table.MunicipalityColumn(e.matcher)
	if !ok || v.Len() == 0 {
		return e.notFound(place)
	}

	totals := make(map[string]float64)
	for _, rv := range e.budgetRows(v) {
		var prov string
		if pc, ok := e.table.ProvinceColumn(e.matcher); ok {
			prov = e.table.Value(rv.row, pc)
		}
		name := DisplayMunicipality(e.table.Value(rv.row, col), prov)
		if name != "" {
			totals[name] += rv.val
		}
	}
	if len(totals) == 0 {
		return e.notFound(place)
	}
	ranked := sortedByValue(totals)
	return fmt.Sprintf("The municipality with the highest total approved budget%s is %s with %s.",
		place.Phrase, ranked[0].name, FormatMoney(ranked[0].val))
}
