package engine

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/floodline/floodline/dataset"
	"github.com/floodline/floodline/query"
)

// ============================================================================
// FILTER APPLICATION — projects a FilterSpec/TimeSpec onto the table
// ============================================================================
// Every step narrows a read-only view; the table itself is never
// touched. String filters try exact (trimmed, lowercased) equality
// first and fall back to containment only when nothing matched exactly.
// ============================================================================

func (e *Engine) applyFilters(f query.FilterSpec) *dataset.View {
	v := e.table.All()

	// Multi-location is an OR over place columns, applied before the
	// single-place filters so "in X or Y" does not collapse to X. The
	// fragments may name municipalities or provinces, so both columns
	// count.
	if len(f.MultiLocations) > 0 {
		var cols []string
		if col, ok := e.table.MunicipalityColumn(e.matcher); ok {
			cols = append(cols, col)
		}
		if col, ok := e.table.ProvinceColumn(e.matcher); ok {
			cols = append(cols, col)
		}
		if len(cols) > 0 {
			wanted := make([]string, len(f.MultiLocations))
			for i, loc := range f.MultiLocations {
				wanted[i] = strings.ToLower(strings.TrimSpace(loc))
			}
			v = v.Where(func(row int) bool {
				for _, col := range cols {
					cell := strings.ToLower(strings.TrimSpace(e.table.Value(row, col)))
					for _, w := range wanted {
						if cell == w || strings.Contains(cell, w) {
							return true
						}
					}
				}
				return false
			})
		}
		return v
	}

	if f.Municipality != "" {
		if col, ok := e.table.MunicipalityColumn(e.matcher); ok {
			v = matchColumn(v, e.table, col, f.Municipality)
		}
	}
	if f.Province != "" {
		if col, ok := e.table.ProvinceColumn(e.matcher); ok {
			v = matchColumn(v, e.table, col, f.Province)
		}
	}
	if f.Region != "" {
		v = e.applyRegion(v, f.Region)
	}
	if f.MainIsland != "" {
		if col, ok := e.table.Resolve(e.matcher, "main_island", "mainisland", "main island"); ok {
			v = matchColumn(v, e.table, col, f.MainIsland)
		}
	}
	if f.Contractor != "" {
		if col, ok := e.table.ContractorColumn(e.matcher); ok {
			v = matchColumn(v, e.table, col, f.Contractor)
		}
	}
	if f.ProjectLocation != "" {
		if col, ok := e.table.Resolve(nil, "project_location", "location", "site_location"); ok {
			loc := strings.ToLower(strings.TrimSpace(f.ProjectLocation))
			v = v.Where(func(row int) bool {
				return strings.Contains(strings.ToLower(e.table.Value(row, col)), loc)
			})
		}
	}
	if f.ProjectID != "" {
		if col, ok := e.table.ProjectIDColumn(); ok {
			want := strings.ToLower(strings.TrimSpace(f.ProjectID))
			v = v.Where(func(row int) bool {
				return strings.ToLower(strings.TrimSpace(e.table.Value(row, col))) == want
			})
		}
	}
	return v
}

// matchColumn narrows by exact match, falling back to containment when
// the exact pass selects nothing.
func matchColumn(v *dataset.View, t *dataset.Table, col, value string) *dataset.View {
	want := strings.ToLower(strings.TrimSpace(value))
	exact := v.Where(func(row int) bool {
		return strings.ToLower(strings.TrimSpace(t.Value(row, col))) == want
	})
	if exact.Len() > 0 {
		return exact
	}
	return v.Where(func(row int) bool {
		return strings.Contains(strings.ToLower(t.Value(row, col)), want)
	})
}

// regionPrefixMatch matches a "region <x>" pattern against a cell, but
// only up to a token boundary: "region i" may not swallow "region ii"
// or "region iii" cells, while "region iv-a" still catches
// "Region IV-A (CALABARZON)".
func regionPrefixMatch(cell, pat string) bool {
	if !strings.HasPrefix(cell, pat) {
		return false
	}
	rest := cell[len(pat):]
	return rest == "" || rest[0] == ' ' || rest[0] == '('
}

// applyRegion matches all spellings of a region. A pattern of the form
// "region <x>" matches by bounded prefix; named patterns match by
// equality, with NCR and CAR additionally matched through their aliases.
func (e *Engine) applyRegion(v *dataset.View, region string) *dataset.View {
	patterns := query.RegionPatterns(region)
	isNCR := query.IsNCRAlias(region)
	isCAR := query.IsCARAlias(region)

	regionCol, hasRegion := e.table.Resolve(e.matcher, "region")
	provCol, hasProv := e.table.ProvinceColumn(e.matcher)
	deoCol, hasDEO := e.table.Resolve(nil, "district_engineering_office", "deo", "implementing_office")

	return v.Where(func(row int) bool {
		if hasRegion {
			cell := strings.ToLower(strings.TrimSpace(e.table.Value(row, regionCol)))
			for _, pat := range patterns {
				if strings.HasPrefix(pat, "region ") {
					if regionPrefixMatch(cell, pat) {
						return true
					}
				} else if cell == pat {
					return true
				}
			}
			// NCR rows are sometimes labeled by their long name.
			if isNCR {
				for _, alias := range query.NCRAliases {
					if strings.Contains(cell, alias) {
						return true
					}
				}
			}
			// CAR cells are spelled "CAR", by the long name, or both.
			// Bare "car" must match the whole cell so Caraga stays out.
			if isCAR {
				if cell == "car" || strings.Contains(cell, "cordillera") || strings.Contains(cell, "(car)") {
					return true
				}
			}
		}
		// NCR also shows up through province and district office cells.
		if isNCR {
			for _, alias := range query.NCRAliases {
				if hasProv && strings.Contains(strings.ToLower(e.table.Value(row, provCol)), alias) {
					return true
				}
				if hasDEO && strings.Contains(strings.ToLower(e.table.Value(row, deoCol)), alias) {
					return true
				}
			}
		}
		return false
	})
}

// ============================================================================
// TIME APPLICATION
// ============================================================================

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

var yearInCell = regexp.MustCompile(`\b(19|20)\d{2}\b`)

func parseDate(cell string) (time.Time, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func yearOf(cell string) (int, bool) {
	if t, ok := parseDate(cell); ok {
		return t.Year(), true
	}
	if m := yearInCell.FindString(cell); m != "" {
		y, _ := strconv.Atoi(m)
		return y, true
	}
	return 0, false
}

func (e *Engine) applyTime(v *dataset.View, ts query.TimeSpec) *dataset.View {
	if ts.Empty() {
		return v
	}

	startCol, hasStart := e.table.Resolve(nil, "start_date", "startdate", "date_started")
	doneCol, hasDone := e.table.Resolve(nil, "completion_date", "completiondate", "actual_completion_date", "date_completed")
	fundCol, hasFund := e.table.Resolve(nil, "funding_year", "fundingyear", "infra_year")

	if ts.CompletedYear != 0 && hasDone {
		v = v.Where(func(row int) bool {
			y, ok := yearOf(e.table.Value(row, doneCol))
			return ok && y == ts.CompletedYear
		})
	}

	inYears := func(lo, hi int) func(row int) bool {
		return func(row int) bool {
			if hasStart {
				if y, ok := yearOf(e.table.Value(row, startCol)); ok {
					return y >= lo && y <= hi
				}
			}
			if hasFund {
				cell := strings.TrimSpace(e.table.Value(row, fundCol))
				if y, err := strconv.Atoi(cell); err == nil {
					return y >= lo && y <= hi
				}
			}
			return false
		}
	}

	if ts.Year != 0 {
		v = v.Where(inYears(ts.Year, ts.Year))
	}
	if ts.RangeEnd != 0 {
		v = v.Where(inYears(ts.RangeStart, ts.RangeEnd))
	}

	if ts.Status != "" && hasDone {
		today := e.now()
		v = v.Where(func(row int) bool {
			done, ok := parseDate(e.table.Value(row, doneCol))
			if ts.Status == "ongoing" {
				return !ok || done.After(today)
			}
			return ok && !done.After(today)
		})
	}

	return v
}
