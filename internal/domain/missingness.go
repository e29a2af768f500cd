package domain

import "slices"

// DefaultReportSize is the number of columns the missingness report keeps.
const DefaultReportSize = 10

// MissingnessReport counts missing cells per column and returns the top n
// columns by count, descending. Ties keep source column order.
func MissingnessReport(t *RawTable, n int) []ColumnMissing {
	report := make([]ColumnMissing, 0, len(t.columns))
	for j, name := range t.columns {
		missing := 0
		for _, c := range t.cells[j] {
			if !c.Valid {
				missing++
			}
		}
		report = append(report, ColumnMissing{Column: name, Missing: missing})
	}

	slices.SortStableFunc(report, func(a, b ColumnMissing) int {
		return b.Missing - a.Missing
	})

	if n >= 0 && len(report) > n {
		report = report[:n]
	}
	return report
}
