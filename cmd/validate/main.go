// Command validate prepares an accident CSV and checks the result against the
// preparer's guarantees: row preservation, timestamp parsing, temporal
// derivation, median imputation, day naming and the missingness report.
// It prints a PASS/FAIL line per phase and exits 1 on any failure.
//
// Usage:
//
//	go run ./cmd/validate -input internal/pipeline/testdata/accidents_sample.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/accident-data-etl/internal/adapter/csvsource"
	"github.com/couchcryptid/accident-data-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

const maxErrorsShown = 20

func main() {
	input := flag.String("input", "", "accident CSV to validate")
	flag.Parse()

	if *input == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*input))
}

func run(input string) int {
	// Fixed clock so PreparedAt is reproducible across runs.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	fmt.Println("=== Accident Data Preparation Validation ===")
	fmt.Println()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	table, err := csvsource.NewLoader(input, logger).Load(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load: %v\n", err)
		return 1
	}

	ds, err := domain.Prepare(table)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: prepare: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateRows(table, ds),
		validateMissingness(table, ds),
		validateTimestamps(table, ds),
		validateTemporalAttributes(ds),
		validateImputation(table, ds),
		validateDayNames(table, ds),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d, Start_Time failures: %d, End_Time failures: %d\n",
		ds.Stats.Rows, ds.Stats.StartTimeFailures, ds.Stats.EndTimeFailures)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxErrorsShown {
				fmt.Printf("  ... %d more\n", len(p.errors)-maxErrorsShown)
				break
			}
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func validateRows(table *domain.RawTable, ds *domain.Dataset) *phase {
	p := &phase{name: "Rows preserved in order"}
	if len(ds.Records) != table.Len() {
		p.errorf("records: got %d, table has %d rows", len(ds.Records), table.Len())
		return p
	}
	for i, r := range ds.Records {
		if r.Row != i {
			p.errorf("record %d carries row %d", i, r.Row)
		}
		if id := table.Cell(domain.ColID, i); id.Valid && id.V != r.ID {
			p.errorf("line %d: ID %q, record has %q", i+2, id.V, r.ID)
		}
	}
	return p
}

func validateMissingness(table *domain.RawTable, ds *domain.Dataset) *phase {
	p := &phase{name: "Missingness report"}
	report := ds.Missingness
	want := min(domain.DefaultReportSize, len(table.Columns()))
	if len(report) != want {
		p.errorf("report has %d columns, want %d", len(report), want)
	}

	counts := make(map[string]int, len(table.Columns()))
	for _, c := range table.Columns() {
		for _, cell := range table.Column(c) {
			if !cell.Valid {
				counts[c]++
			}
		}
	}
	for i, m := range report {
		if counts[m.Column] != m.Missing {
			p.errorf("%s: reported %d missing, counted %d", m.Column, m.Missing, counts[m.Column])
		}
		if i > 0 && report[i-1].Missing < m.Missing {
			p.errorf("not descending at %s (%d after %d)", m.Column, m.Missing, report[i-1].Missing)
		}
	}
	if len(report) > 0 {
		last := report[len(report)-1].Missing
		listed := make(map[string]bool, len(report))
		for _, m := range report {
			listed[m.Column] = true
		}
		for c, n := range counts {
			if !listed[c] && n > last {
				p.errorf("%s has %d missing but is not in the report", c, n)
			}
		}
	}
	return p
}

func validateTimestamps(table *domain.RawTable, ds *domain.Dataset) *phase {
	p := &phase{name: "Start_Time / End_Time parsing"}
	for _, r := range ds.Records {
		raw := table.Cell(domain.ColStartTime, r.Row)
		if !raw.Valid {
			if r.StartTime.Valid {
				p.errorf("line %d: Start_Time parsed from a missing cell", r.Row+2)
			}
		} else if r.StartTime.Valid {
			got := r.StartTime.V.Format("2006-01-02 15:04:05")
			if !strings.HasPrefix(raw.V, got) {
				p.errorf("line %d: Start_Time %q parsed as %s", r.Row+2, raw.V, got)
			}
			if r.StartTime.V.Location() != time.UTC {
				p.errorf("line %d: Start_Time not in UTC", r.Row+2)
			}
		}
		if !table.Cell(domain.ColEndTime, r.Row).Valid && r.EndTime.Valid {
			p.errorf("line %d: End_Time parsed from a missing cell", r.Row+2)
		}
	}
	return p
}

func validateTemporalAttributes(ds *domain.Dataset) *phase {
	p := &phase{name: "Hour / DayOfWeek / Month / Year"}
	for _, r := range ds.Records {
		if !r.StartTime.Valid {
			if r.Hour.Valid || r.DayOfWeek.Valid || r.Month.Valid || r.Year.Valid {
				p.errorf("line %d: temporal attributes set without a Start_Time", r.Row+2)
			}
			continue
		}
		ts := r.StartTime.V
		if !r.Hour.Valid || r.Hour.V != ts.Hour() {
			p.errorf("line %d: Hour %v, want %d", r.Row+2, r.Hour, ts.Hour())
		}
		if dow := (int(ts.Weekday()) + 6) % 7; !r.DayOfWeek.Valid || r.DayOfWeek.V != dow {
			p.errorf("line %d: DayOfWeek %v, want %d", r.Row+2, r.DayOfWeek, dow)
		}
		if !r.Month.Valid || r.Month.V != int(ts.Month()) {
			p.errorf("line %d: Month %v, want %d", r.Row+2, r.Month, ts.Month())
		}
		if !r.Year.Valid || r.Year.V != ts.Year() {
			p.errorf("line %d: Year %v, want %d", r.Row+2, r.Year, ts.Year())
		}
	}
	return p
}

func validateImputation(table *domain.RawTable, ds *domain.Dataset) *phase {
	p := &phase{name: "Weather median imputation"}
	for _, wf := range domain.WeatherFields {
		var observed []float64
		for i := range table.Len() {
			if v, ok := parseCell(table, wf.Column, i); ok {
				observed = append(observed, v)
			}
		}
		median := domain.Median(observed)
		if got := ds.Medians[wf.Column]; got != median {
			p.errorf("%s: median %v, recomputed %v", wf.Column, got, median)
		}

		for i := range ds.Records {
			r := &ds.Records[i]
			v := wf.Field(r)
			if !v.Valid {
				p.errorf("line %d: %s still missing", r.Row+2, wf.Column)
				continue
			}
			if orig, ok := parseCell(table, wf.Column, r.Row); ok {
				if orig != v.V {
					p.errorf("line %d: %s changed from %v to %v", r.Row+2, wf.Column, orig, v.V)
				}
			} else if v.V != median {
				p.errorf("line %d: %s filled with %v, median is %v", r.Row+2, wf.Column, v.V, median)
			}
		}
	}
	return p
}

func validateDayNames(table *domain.RawTable, ds *domain.Dataset) *phase {
	p := &phase{name: "Day -> DayName mapping"}
	for _, r := range ds.Records {
		if !table.Cell(domain.ColDay, r.Row).Valid {
			if r.DayName.Valid {
				p.errorf("line %d: DayName %q without a Day", r.Row+2, r.DayName.V)
			}
			continue
		}
		if !r.Day.Valid || !r.DayName.Valid {
			p.errorf("line %d: Day present but not mapped", r.Row+2)
			continue
		}
		if want := domain.DayNames[r.Day.V]; r.DayName.V != want {
			p.errorf("line %d: Day %d named %q, want %q", r.Row+2, r.Day.V, r.DayName.V, want)
		}
	}
	return p
}

// parseCell reads a weather cell the way an analyst would: present and a
// finite number.
func parseCell(table *domain.RawTable, column string, row int) (float64, bool) {
	cell := table.Cell(column, row)
	if !cell.Valid {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(cell.V), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
