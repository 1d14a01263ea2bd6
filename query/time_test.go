package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
}

func TestParseTimeSingleYear(t *testing.T) {
	ts := ParseTime("total budget in 2022", fixedNow)
	assert.Equal(t, 2022, ts.Year)
	assert.Zero(t, ts.CompletedYear)
	assert.Empty(t, ts.Status)
}

func TestParseTimeRangeWinsOutright(t *testing.T) {
	ts := ParseTime("projects completed between 2020 and 2022", fixedNow)
	assert.Equal(t, 2020, ts.RangeStart)
	assert.Equal(t, 2022, ts.RangeEnd)
	assert.Zero(t, ts.Year)
	assert.Empty(t, ts.Status)

	ts = ParseTime("between 2023 and 2019", fixedNow)
	assert.Equal(t, 2019, ts.RangeStart)
	assert.Equal(t, 2023, ts.RangeEnd)
}

func TestParseTimeCompletedYear(t *testing.T) {
	ts := ParseTime("projects completed in 2021", fixedNow)
	assert.Equal(t, 2021, ts.CompletedYear)
	assert.Zero(t, ts.Year)
	assert.Empty(t, ts.Status)
}

func TestParseTimeRelativeYears(t *testing.T) {
	assert.Equal(t, 2024, ParseTime("budget last year", fixedNow).Year)
	assert.Equal(t, 2025, ParseTime("projects this year", fixedNow).Year)
}

func TestParseTimeStatus(t *testing.T) {
	assert.Equal(t, "ongoing", ParseTime("ongoing projects in Cavite", fixedNow).Status)
	assert.Equal(t, "completed", ParseTime("completed projects", fixedNow).Status)
}

func TestParseTimeEmpty(t *testing.T) {
	assert.True(t, ParseTime("how many projects are there", fixedNow).Empty())
}

func TestParseYearsInput(t *testing.T) {
	assert.Equal(t, []int{2020, 2021, 2022}, ParseYearsInput("2020-2022"))
	assert.Equal(t, []int{2020, 2021, 2022}, ParseYearsInput("20 to 22"))
	assert.Equal(t, []int{2019, 2021}, ParseYearsInput("2021, 2019, 2021"))
	assert.Equal(t, []int{2023}, ParseYearsInput("23"))
	assert.Nil(t, ParseYearsInput("  "))
}
