package engine

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodline/floodline/dataset"
	"github.com/floodline/floodline/query"
)

const engineCSV = `ProjectID,Region,Province,Municipality,Contractor,ApprovedBudgetForContract,StartDate,CompletionDate,FundingYear
P00001,Region II,Isabela,CITY OF ILAGAN,ACME BUILDERS INC,100,2021-03-01,2022-06-15,2021
P00002,Region II,Cagayan,TUGUEGARAO CITY,ACME BUILDERS INC,200,2022-01-10,,2022
P00003,Region II,Isabela,CITY OF ILAGAN,DELTA CONSTRUCTION CORP,300,2020-07-20,2021-08-01,2020
P00004,National Capital Region,Metropolitan Manila,"CITY OF PARAÑAQUE, METROPOLITAN MANILA",DELTA CONSTRUCTION CORP,450,2021-05-05,2023-01-30,2021
P00005,Region II,Isabela,CITY OF ILAGAN,EPSILON BUILDERS,450,2019-02-01,2019-12-31,2019
`

func testClock() time.Time {
	return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
}

func newEngine(t *testing.T, csv string) *Engine {
	t.Helper()
	tbl, err := dataset.LoadString(csv)
	require.NoError(t, err)
	return New(tbl, WithClock(testClock))
}

func resolve(t *testing.T, e *Engine, question string) string {
	t.Helper()
	return e.Resolve(question, NewSession())
}

func TestCountAll(t *testing.T) {
	e := newEngine(t, engineCSV)
	assert.Equal(t, "There are 5 flood control projects in the dataset.",
		resolve(t, e, "How many flood control projects are there"))
}

func TestCountRegionSpellingsAgree(t *testing.T) {
	e := newEngine(t, engineCSV)
	want := "There are 4 flood control projects in Region II."
	for _, q := range []string{
		"How many projects in region 2",
		"How many projects in region ii",
		"How many projects in Region II",
	} {
		assert.Equal(t, want, resolve(t, e, q), "question %q", q)
	}
}

const regionDigitCSV = `ProjectID,Region,Province,Municipality,Contractor,ApprovedBudgetForContract,StartDate,CompletionDate,FundingYear
P00301,Region 1,Ilocos Norte,LAOAG CITY,ACME BUILDERS INC,100,2021-01-01,,2021
P00302,Region 2,Isabela,CITY OF ILAGAN,ACME BUILDERS INC,100,2021-01-01,,2021
P00303,Region 2,Cagayan,TUGUEGARAO CITY,ACME BUILDERS INC,100,2021-01-01,,2021
P00304,Region 3,Bulacan,CITY OF MALOLOS,ACME BUILDERS INC,100,2021-01-01,,2021
`

func TestCountRegionRomanAgainstDigitCells(t *testing.T) {
	e := newEngine(t, regionDigitCSV)
	want := "There are 2 flood control projects in Region II."
	for _, q := range []string{
		"How many projects in region 2",
		"How many projects in region ii",
	} {
		assert.Equal(t, want, resolve(t, e, q), "question %q", q)
	}
}

const regionRomanCSV = `ProjectID,Region,Province,Municipality,Contractor,ApprovedBudgetForContract,StartDate,CompletionDate,FundingYear
P00311,Region I,Ilocos Norte,LAOAG CITY,ACME BUILDERS INC,100,2021-01-01,,2021
P00312,Region II,Isabela,CITY OF ILAGAN,ACME BUILDERS INC,100,2021-01-01,,2021
P00313,Region III,Bulacan,CITY OF MALOLOS,ACME BUILDERS INC,100,2021-01-01,,2021
P00314,Region IV-A (CALABARZON),Cavite,CITY OF IMUS,ACME BUILDERS INC,100,2021-01-01,,2021
`

func TestRegionMatchStopsAtTokenBoundary(t *testing.T) {
	e := newEngine(t, regionRomanCSV)
	assert.Equal(t, "There are 1 flood control projects in Region I.",
		resolve(t, e, "How many projects in region 1"))
	assert.Equal(t, "There are 1 flood control projects in Region III.",
		resolve(t, e, "How many projects in region iii"))
	assert.Equal(t, "There are 1 flood control projects in Region IV-A.",
		resolve(t, e, "How many projects in region iv-a"))
}

const carCSV = `ProjectID,Region,Province,Municipality,Contractor,ApprovedBudgetForContract,StartDate,CompletionDate,FundingYear
P00321,CAR,Benguet,BAGUIO CITY,ACME BUILDERS INC,100,2021-01-01,,2021
P00322,Cordillera Administrative Region (CAR),Abra,BANGUED,ACME BUILDERS INC,100,2021-01-01,,2021
P00323,Caraga,Agusan del Norte,BUTUAN CITY,ACME BUILDERS INC,100,2021-01-01,,2021
`

func TestCountCARSpellings(t *testing.T) {
	e := newEngine(t, carCSV)
	want := "There are 2 flood control projects in CAR."
	for _, q := range []string{
		"How many projects in CAR",
		"How many projects in the cordillera administrative region",
	} {
		assert.Equal(t, want, resolve(t, e, q), "question %q", q)
	}
}

func TestCountNCR(t *testing.T) {
	e := newEngine(t, engineCSV)
	assert.Equal(t, "There are 1 flood control projects in NCR.",
		resolve(t, e, "How many projects in metro manila"))
}

func TestCountByContractor(t *testing.T) {
	e := newEngine(t, engineCSV)
	assert.Equal(t, "ACME BUILDERS INC has 2 flood control projects.",
		resolve(t, e, "How many projects does ACME BUILDERS INC have"))
}

func TestCountByYear(t *testing.T) {
	e := newEngine(t, engineCSV)
	assert.Equal(t, "There are 2 flood control projects.",
		resolve(t, e, "How many projects in 2021"))
	assert.Equal(t, "There are 1 flood control projects.",
		resolve(t, e, "How many projects completed in 2021"))
	assert.Equal(t, "There are 1 flood control projects.",
		resolve(t, e, "How many ongoing projects are there"))
}

func TestCountPlaceNotFound(t *testing.T) {
	e := newEngine(t, engineCSV)
	answer := resolve(t, e, "How many projects in davao city")
	assert.Contains(t, answer, "I couldn't find any flood control projects in Davao City.")
}

func TestSum(t *testing.T) {
	e := newEngine(t, engineCSV)
	assert.Equal(t, "The total approved budget for all projects is ₱1,500.00.",
		resolve(t, e, "What is the total budget of all projects"))
	assert.Equal(t, "The total approved budget in Isabela is ₱850.00.",
		resolve(t, e, "What is the total budget in Isabela"))
	assert.Equal(t, "The total approved budget in Region II is ₱1,050.00.",
		resolve(t, e, "What is the total budget in region 2"))
}

func TestSumMultiLocation(t *testing.T) {
	e := newEngine(t, engineCSV)
	answer := resolve(t, e, "What is the total budget in isabela and cagayan")
	require.True(t, strings.HasPrefix(answer, "Total approved budget by location:"), answer)
	assert.Contains(t, answer, "- Isabela: ₱850.00")
	assert.Contains(t, answer, "- Cagayan: ₱200.00")
}

func TestMaxIncludesBoundaryTies(t *testing.T) {
	e := newEngine(t, engineCSV)
	answer := resolve(t, e, "Which project has the highest approved budget")
	assert.Equal(t, "The project with the highest budget is Project ID P00004 in Parañaque City, Metro Manila with ₱450.00."+
		"\n- P00005: ₱450.00", answer)
}

func TestMaxScoped(t *testing.T) {
	e := newEngine(t, engineCSV)
	assert.Equal(t, "In Region II: The project with the highest budget is Project ID P00005 in Ilagan City, Isabela with ₱450.00.",
		resolve(t, e, "Which project has the highest approved budget in region 2"))
}

func TestMin(t *testing.T) {
	e := newEngine(t, engineCSV)
	assert.Equal(t, "The project with the lowest approved budget is Project ID P00001 with ₱100.00.",
		resolve(t, e, "Which project has the lowest approved budget"))
}

func TestTopNMin(t *testing.T) {
	e := newEngine(t, engineCSV)
	answer := resolve(t, e, "top 2 lowest budget projects")
	assert.Equal(t, "Top 2 lowest budgets in the dataset:\n- P00001: ₱100.00\n- P00002: ₱200.00", answer)
}

func TestContractorMaxTotalBudget(t *testing.T) {
	e := newEngine(t, engineCSV)
	assert.Equal(t, "The contractor with the highest total approved budget is DELTA CONSTRUCTION CORP with ₱750.00.",
		resolve(t, e, "Who is the contractor with the highest total approved budget"))
}

func TestContractorMaxCountTie(t *testing.T) {
	e := newEngine(t, engineCSV)
	assert.Equal(t, "There is a tie for the highest number of projects: ACME BUILDERS INC and DELTA CONSTRUCTION CORP with 2 project(s) each.",
		resolve(t, e, "Which contractor has the most projects"))
}

func TestTopContractors(t *testing.T) {
	e := newEngine(t, engineCSV)
	answer := resolve(t, e, "Top 2 contractors by total budget")
	assert.Equal(t, "Top 2 contractors by total budget:\n- DELTA CONSTRUCTION CORP: ₱750.00\n- EPSILON BUILDERS: ₱450.00", answer)
}

func TestTopContractorsByCount(t *testing.T) {
	e := newEngine(t, engineCSV)
	answer := resolve(t, e, "Top 3 contractors by number of projects")
	require.True(t, strings.HasPrefix(answer, "Top 3 contractors by number of projects:"), answer)
	assert.Contains(t, answer, "- ACME BUILDERS INC: 2 project(s)")
	assert.Contains(t, answer, "- EPSILON BUILDERS: 1 project(s)")
}

func TestTrend(t *testing.T) {
	e := newEngine(t, engineCSV)
	answer := resolve(t, e, "Show the budget trend by year")
	assert.Equal(t, "Total approved budget by year:\n- 2019: ₱450.00\n- 2020: ₱300.00\n- 2021: ₱550.00\n- 2022: ₱200.00", answer)
}

const trendCSV = `ProjectID,Region,Province,Municipality,Contractor,ApprovedBudgetForContract,StartDate,CompletionDate,FundingYear
P00201,Region II,Isabela,CITY OF ILAGAN,ACME BUILDERS INC,100,2021-04-01,2022-01-01,2020
P00202,Region II,Isabela,CITY OF ILAGAN,ACME BUILDERS INC,200,2022-04-01,2023-01-01,2020
P00203,Region II,Cagayan,TUGUEGARAO CITY,DELTA CONSTRUCTION CORP,300,,2021-01-01,2019
`

func TestTrendBucketsByStartYearFirst(t *testing.T) {
	e := newEngine(t, trendCSV)
	answer := resolve(t, e, "Show the budget trend by year")
	// Rows with a start date bucket by its year; the dateless row falls
	// back to its funding year.
	assert.Equal(t, "Total approved budget by year:\n- 2019: ₱300.00\n- 2021: ₱100.00\n- 2022: ₱200.00", answer)
}

const suggestCSV = `ProjectID,Region,Province,Municipality,Contractor,ApprovedBudgetForContract,StartDate,CompletionDate,FundingYear
P00401,Region III,Bulacan,SANTA ANA,ACME BUILDERS INC,100,2021-01-01,,2021
P00402,Region III,Bulacan,SANTA CRUZ,ACME BUILDERS INC,100,2021-01-01,,2021
P00403,Region III,Bulacan,SANTA FE,ACME BUILDERS INC,100,2021-01-01,,2021
P00404,Region III,Bulacan,SANTA INES,ACME BUILDERS INC,100,2021-01-01,,2021
P00405,Region III,Bulacan,SANTA MARIA,ACME BUILDERS INC,100,2021-01-01,,2021
P00406,Region III,Bulacan,SANTA ROSA,ACME BUILDERS INC,100,2021-01-01,,2021
`

func TestNotFoundSuggestsUpToFivePlaces(t *testing.T) {
	e := newEngine(t, suggestCSV)
	answer := e.notFound(Place{Phrase: " in Santa", Title: "Santa"})
	require.Contains(t, answer, "I couldn't find any flood control projects in Santa.")
	require.Contains(t, answer, "Did you mean: ")
	list := strings.TrimSuffix(strings.SplitN(answer, "Did you mean: ", 2)[1], "?")
	assert.Len(t, strings.Split(list, ", "), 5)
}

func TestMunicipalityMaxTotal(t *testing.T) {
	e := newEngine(t, engineCSV)
	assert.Equal(t, "The municipality with the highest total approved budget is Ilagan City, Isabela with ₱850.00.",
		resolve(t, e, "Which municipality has the highest total budget"))
}

func TestContractorTopProjects(t *testing.T) {
	e := newEngine(t, engineCSV)
	answer := resolve(t, e, "top 2 projects with the highest approved budget for DELTA CONSTRUCTION CORP")
	assert.Equal(t, "Top 2 projects with the highest approved budget for DELTA CONSTRUCTION CORP:\n- P00004: ₱450.00\n- P00003: ₱300.00", answer)
}

func TestLookupFull(t *testing.T) {
	e := newEngine(t, engineCSV)
	answer := resolve(t, e, "p00004")
	assert.Contains(t, answer, "=== PROJECT INFORMATION ===")
	assert.Contains(t, answer, "Project ID: P00004")
	assert.Contains(t, answer, "Contractor: DELTA CONSTRUCTION CORP")
	assert.Contains(t, answer, "Approved Budget: ₱450.00")
	assert.NotContains(t, answer, "ADDITIONAL")
}

func TestFieldLookups(t *testing.T) {
	e := newEngine(t, engineCSV)

	assert.Equal(t, "The contractor for Project ID P00003 is DELTA CONSTRUCTION CORP.",
		resolve(t, e, "Who is the contractor of p00003"))
	assert.Equal(t, "The approved budget for Project ID P00001 is ₱100.00.",
		resolve(t, e, "What is the budget of p00001"))
	assert.Equal(t, "Project ID P00002 started on 2022-01-10.",
		resolve(t, e, "When did p00002 start"))
	assert.Equal(t, "I couldn't find a completion date for Project ID P00002.",
		resolve(t, e, "When was p00002 completed"))
	assert.Equal(t, "Project ID P00003 was completed on 2021-08-01.",
		resolve(t, e, "When was p00003 completed"))

	located := resolve(t, e, "Where is p00004")
	assert.True(t, strings.HasPrefix(located, "Project ID P00004 is located in {Municipality:"), located)
}

func TestLookupUnknownID(t *testing.T) {
	e := newEngine(t, engineCSV)
	assert.Equal(t, "I couldn't find a project with ID ZZZ999X.",
		resolve(t, e, "What is the budget of zzz999x"))
}

func TestUnknownQuestion(t *testing.T) {
	e := newEngine(t, engineCSV)
	assert.Equal(t, "Sorry — I couldn't understand the question.",
		resolve(t, e, "tell me a story about bridges"))
}

// ============================================================================
// PAGINATION
// ============================================================================

func pagerCSV() string {
	var b strings.Builder
	b.WriteString("ProjectID,Region,Province,Municipality,Contractor,ApprovedBudgetForContract,StartDate,CompletionDate,FundingYear\n")
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&b, "P%05d,Region II,Isabela,CITY OF ILAGAN,ACME BUILDERS INC,%d,2021-01-01,,2021\n",
			100+i, (13-i)*100)
	}
	return b.String()
}

func TestPaginationWalk(t *testing.T) {
	e := newEngine(t, pagerCSV())
	s := NewSession()

	first := e.Resolve("List the projects in Ilagan", s)
	require.True(t, strings.HasPrefix(first, "Top 5 projects by approved budget in Ilagan City:"), first)
	assert.Contains(t, first, "- P00101 — ACME BUILDERS INC — ₱1,200.00")
	assert.Contains(t, first, "- P00105 — ACME BUILDERS INC — ₱800.00")
	assert.NotContains(t, first, "P00106")
	assert.True(t, strings.HasSuffix(first, "Would you like 5 more projects?"), first)

	second := e.Resolve("more", s)
	require.True(t, strings.HasPrefix(second, "More projects in Ilagan City:"), second)
	assert.Contains(t, second, "- P00106 — ACME BUILDERS INC — ₱700.00")
	assert.Contains(t, second, "- P00110 — ACME BUILDERS INC — ₱300.00")
	assert.True(t, strings.HasSuffix(second, "Would you like 5 more projects?"), second)

	third := e.Resolve("5 more", s)
	require.True(t, strings.HasPrefix(third, "More projects in Ilagan City:"), third)
	assert.Contains(t, third, "- P00111 — ACME BUILDERS INC — ₱200.00")
	assert.Contains(t, third, "- P00112 — ACME BUILDERS INC — ₱100.00")
	assert.False(t, strings.Contains(third, "Would you like"), third)

	exhausted := e.Resolve("more", s)
	assert.Equal(t, noMoreAnswer, exhausted)
}

func TestPagerIsPerSession(t *testing.T) {
	e := newEngine(t, pagerCSV())
	s1 := NewSession()
	s2 := NewSession()

	e.Resolve("List the projects in Ilagan", s1)
	assert.Equal(t, noMoreAnswer, e.Resolve("more", s2))
	assert.True(t, strings.HasPrefix(e.Resolve("more", s1), "More projects"), "s1 keeps its pager")
}

// ============================================================================
// FORMATTING
// ============================================================================

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "₱0.00", FormatMoney(0))
	assert.Equal(t, "₱1,000.00", FormatMoney(1000))
	assert.Equal(t, "₱1,234,567.89", FormatMoney(1234567.891))
	assert.Equal(t, "₱450.00", FormatMoney(450))
}

func TestDisplayMunicipality(t *testing.T) {
	assert.Equal(t, "Parañaque City, Metro Manila",
		DisplayMunicipality("CITY OF PARAÑAQUE, METROPOLITAN MANILA", "Metropolitan Manila"))
	assert.Equal(t, "Ilagan City, Isabela", DisplayMunicipality("CITY OF ILAGAN", "Isabela"))
	assert.Equal(t, "Tuguegarao City", DisplayMunicipality("TUGUEGARAO CITY", ""))
	assert.Equal(t, "Isabela", DisplayMunicipality("", "Isabela"))
}

func TestExecuteDirectIntent(t *testing.T) {
	e := newEngine(t, engineCSV)
	answer := e.Execute(query.Intent{
		Action:  query.ActionSum,
		Filters: query.FilterSpec{Province: "Isabela"},
		Column:  "approved_budget",
	}, NewSession())
	assert.Equal(t, "The total approved budget in Isabela is ₱850.00.", answer)
}
