package dataset

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/floodline/floodline/fuzzy"
)

// ============================================================================
// COLUMN RESOLUTION — one service for every "try N candidate names" need
// ============================================================================
// Resolution order: exact normalized match → substring on normalized
// names → fuzzy (cutoff 85, only when a Matcher is available).
// ============================================================================

const columnFuzzyCutoff = 85

// Resolve returns the first table column matching any candidate name.
func (t *Table) Resolve(m fuzzy.Matcher, candidates ...string) (string, bool) {
	if len(t.cols) == 0 {
		return "", false
	}

	normCols := make(map[string]string, len(t.cols))
	for _, c := range t.cols {
		key := normKey(c)
		if _, dup := normCols[key]; !dup {
			normCols[key] = c
		}
	}

	for _, cand := range candidates {
		if col, ok := normCols[normKey(cand)]; ok {
			return col, true
		}
	}

	for _, cand := range candidates {
		key := normKey(cand)
		if key == "" {
			continue
		}
		for _, col := range t.cols {
			if strings.Contains(normKey(col), key) {
				return col, true
			}
		}
	}

	if m != nil {
		keys := make([]string, 0, len(normCols))
		for k := range normCols {
			keys = append(keys, k)
		}
		for _, cand := range candidates {
			query := normKey(cand)
			if query == "" {
				continue
			}
			if best, _, ok := m.BestMatch(query, keys, columnFuzzyCutoff); ok {
				return normCols[best], true
			}
		}
	}

	return "", false
}

// ProjectIDColumn finds the most likely project identifier column:
// canonical names, then any column whose name contains both "project"
// and "id", then the first column.
func (t *Table) ProjectIDColumn() (string, bool) {
	if len(t.cols) == 0 {
		return "", false
	}
	for _, name := range []string{"projectid", "project_id", "project_number", "projectnumber", "id"} {
		key := normKey(name)
		for _, col := range t.cols {
			if normKey(col) == key {
				return col, true
			}
		}
	}
	for _, col := range t.cols {
		low := strings.ToLower(col)
		if strings.Contains(low, "project") && strings.Contains(low, "id") {
			return col, true
		}
	}
	return t.cols[0], true
}

// BudgetColumn resolves the approved-budget column.
func (t *Table) BudgetColumn(m fuzzy.Matcher) (string, bool) {
	return t.Resolve(m,
		"approved_budget_num", "approved_budget_for_contract", "approvedbudgetforcontract",
		"approved_budget", "budget", "contractcost", "approved budget for contract")
}

// ContractorColumn resolves the contractor column.
func (t *Table) ContractorColumn(m fuzzy.Matcher) (string, bool) {
	return t.Resolve(m, "contractor", "contractor_name", "winning_contractor")
}

// MunicipalityColumn resolves the municipality/city column.
func (t *Table) MunicipalityColumn(m fuzzy.Matcher) (string, bool) {
	return t.Resolve(m, "municipality", "city")
}

// ProvinceColumn resolves the province column.
func (t *Table) ProvinceColumn(m fuzzy.Matcher) (string, bool) {
	return t.Resolve(m, "province")
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

func normKey(s string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(s), "")
}

// ============================================================================
// NUMERIC COERCION
// ============================================================================

var numberScan = regexp.MustCompile(`[0-9][0-9,]*(?:\.[0-9]+)?`)

// ParseNumber coerces a cell to a float, tolerating currency symbols and
// comma grouping. Returns ok=false for non-numeric cells — callers must
// exclude those from aggregates rather than treating them as zero.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	cleaned := strings.NewReplacer("₱", "", "$", "", ",", "", " ", "").Replace(s)
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ScanNumbers extracts every numeric-looking substring from a cell.
// Used by the budget-lookup fallback that infers a value from unlabeled
// columns.
func ScanNumbers(s string) []float64 {
	var out []float64
	for _, m := range numberScan.FindAllString(s, -1) {
		if f, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64); err == nil {
			out = append(out, f)
		}
	}
	return out
}
