package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/floodline/floodline/dataset"
	"github.com/floodline/floodline/query"
)

// ============================================================================
// PROJECT LOOKUPS — single-row answers keyed by project ID
// ============================================================================

type lookupField int

const (
	fieldContractor lookupField = iota
	fieldBudget
	fieldStartDate
	fieldCompletion
	fieldLocation
)

// findProject locates the row for a project ID, case-insensitively.
func (e *Engine) findProject(pid string) (int, bool) {
	col, ok := e.table.ProjectIDColumn()
	if !ok {
		return 0, false
	}
	want := strings.ToLower(strings.TrimSpace(pid))
	for row := 0; row < e.table.NumRows(); row++ {
		if strings.ToLower(strings.TrimSpace(e.table.Value(row, col))) == want {
			return row, true
		}
	}
	return 0, false
}

func (e *Engine) answerFieldLookup(intent query.Intent, field lookupField) string {
	pid := strings.ToUpper(strings.TrimSpace(intent.Filters.ProjectID))
	row, ok := e.findProject(intent.Filters.ProjectID)
	if !ok {
		return fmt.Sprintf("I couldn't find a project with ID %s.", pid)
	}
	display := e.projectID(row)

	switch field {
	case fieldContractor:
		if col, ok := e.table.ContractorColumn(e.matcher); ok {
			if v := strings.TrimSpace(e.table.Value(row, col)); v != "" {
				return fmt.Sprintf("The contractor for Project ID %s is %s.", display, v)
			}
		}
		return fmt.Sprintf("I couldn't find a contractor for Project ID %s.", display)

	case fieldBudget:
		return e.budgetAnswer(row, display)

	case fieldStartDate:
		if col, ok := e.table.Resolve(nil, "start_date", "startdate", "date_started"); ok {
			if v := strings.TrimSpace(e.table.Value(row, col)); v != "" {
				return fmt.Sprintf("Project ID %s started on %s.", display, v)
			}
		}
		return fmt.Sprintf("I couldn't find a start date for Project ID %s.", display)

	case fieldCompletion:
		if col, ok := e.table.Resolve(nil, "completion_date", "completiondate", "actual_completion_date", "date_completed"); ok {
			if v := strings.TrimSpace(e.table.Value(row, col)); v != "" {
				return fmt.Sprintf("Project ID %s was completed on %s.", display, v)
			}
		}
		return fmt.Sprintf("I couldn't find a completion date for Project ID %s.", display)

	case fieldLocation:
		var parts []string
		if col, ok := e.table.MunicipalityColumn(e.matcher); ok {
			if v := strings.TrimSpace(e.table.Value(row, col)); v != "" {
				parts = append(parts, "Municipality: "+v)
			}
		}
		if col, ok := e.table.ProvinceColumn(e.matcher); ok {
			if v := strings.TrimSpace(e.table.Value(row, col)); v != "" {
				parts = append(parts, "Province: "+v)
			}
		}
		if col, ok := e.table.Resolve(nil, "region"); ok {
			if v := strings.TrimSpace(e.table.Value(row, col)); v != "" {
				parts = append(parts, "Region: "+v)
			}
		}
		if len(parts) == 0 {
			return fmt.Sprintf("I couldn't find a location for Project ID %s.", display)
		}
		return fmt.Sprintf("Project ID %s is located in {%s}.", display, strings.Join(parts, ", "))
	}
	return unknownAnswer
}

// budgetAnswer prefers the budget column; when the cell is missing or
// unparseable it scans the whole row for numeric substrings and reports
// the largest, flagged as inferred.
func (e *Engine) budgetAnswer(row int, display string) string {
	if col, ok := e.table.BudgetColumn(e.matcher); ok {
		if f, ok := dataset.ParseNumber(e.table.Value(row, col)); ok {
			return fmt.Sprintf("The approved budget for Project ID %s is %s.", display, FormatMoney(f))
		}
	}

	best := 0.0
	found := false
	for _, col := range e.table.Columns() {
		for _, f := range dataset.ScanNumbers(e.table.Value(row, col)) {
			if f > best {
				best = f
				found = true
			}
		}
	}
	if !found {
		return fmt.Sprintf("I couldn't find a budget value for Project ID %s.", display)
	}
	return fmt.Sprintf("The approved budget for Project ID %s is %s. "+
		"This may be an inferred value — please verify against the source data.", display, FormatMoney(best))
}

// lookupFields maps logical fields to their display labels, in the
// order the full dump prints them.
var lookupFields = []struct {
	label      string
	candidates []string
}{
	{"Project Description", []string{"project_description", "project_name", "description", "project_title"}},
	{"Municipality", []string{"municipality", "city"}},
	{"Province", []string{"province"}},
	{"Region", []string{"region"}},
	{"Contractor", []string{"contractor", "contractor_name", "winning_contractor"}},
	{"Approved Budget", []string{"approved_budget_for_contract", "approved_budget", "budget"}},
	{"Start Date", []string{"start_date", "startdate", "date_started"}},
	{"Completion Date", []string{"completion_date", "completiondate", "actual_completion_date", "date_completed"}},
	{"Funding Year", []string{"funding_year", "fundingyear", "infra_year"}},
}

// answerLookup prints the full record for a project.
func (e *Engine) answerLookup(intent query.Intent) string {
	pid := strings.ToUpper(strings.TrimSpace(intent.Filters.ProjectID))
	row, ok := e.findProject(intent.Filters.ProjectID)
	if !ok {
		return fmt.Sprintf("I couldn't find a project with ID %s.", pid)
	}

	lines := []string{"=== PROJECT INFORMATION ===", "Project ID: " + e.projectID(row)}
	used := map[string]bool{}
	if col, ok := e.table.ProjectIDColumn(); ok {
		used[col] = true
	}
	for _, f := range lookupFields {
		col, ok := e.table.Resolve(nil, f.candidates...)
		if !ok || used[col] {
			continue
		}
		used[col] = true
		value := strings.TrimSpace(e.table.Value(row, col))
		if value == "" {
			continue
		}
		if f.label == "Approved Budget" {
			if n, ok := dataset.ParseNumber(value); ok {
				value = FormatMoney(n)
			}
		}
		lines = append(lines, f.label+": "+value)
	}

	var rest []string
	for _, col := range e.table.Columns() {
		if used[col] {
			continue
		}
		value := strings.TrimSpace(e.table.Value(row, col))
		if value != "" {
			rest = append(rest, columnTitle(col)+": "+value)
		}
	}
	if len(rest) > 0 {
		sort.Strings(rest)
		lines = append(lines, "", "=== ADDITIONAL INFORMATION ===")
		lines = append(lines, rest...)
	}
	return strings.Join(lines, "\n")
}

// columnTitle renders a snake_case column name as a label.
func columnTitle(col string) string {
	words := strings.Split(col, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
