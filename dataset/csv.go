package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// ============================================================================
// CSV LOADER — Parses CSV bytes into a Table
// ============================================================================
// The caller reads the CSV from wherever it lives (file, S3, HTTP).
// Headers are normalized to snake_case so downstream column resolution
// works no matter how the source file spells them.
// ============================================================================

// Load parses CSV data into a Table. Malformed rows are skipped.
func Load(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	t := &Table{index: make(map[string]int)}
	for i, h := range headers {
		key := NormalizeColumn(strings.TrimSpace(h))
		t.cols = append(t.cols, key)
		if _, dup := t.index[key]; !dup {
			t.index[key] = i
		}
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		t.rows = append(t.rows, row)
	}

	return t, nil
}

// LoadFile reads and parses a CSV file from disk.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// LoadString parses CSV from a string. Convenience for tests.
func LoadString(data string) (*Table, error) {
	return Load(strings.NewReader(data))
}

var camelBoundary = regexp.MustCompile(`(?m)([a-z0-9])([A-Z])`)

// NormalizeColumn converts a header to snake_case.
// "ApprovedBudgetForContract" → "approved_budget_for_contract".
func NormalizeColumn(s string) string {
	s = camelBoundary.ReplaceAllString(s, "${1}_${2}")
	s = strings.ToLower(s)
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore && b.Len() > 0 {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}
