package domain

import (
	"database/sql"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
)

const (
	// startTimeLayout is the only accepted Start_Time shape after truncation.
	startTimeLayout = "2006-01-02 15:04:05"
	startTimeWidth  = len(startTimeLayout)
)

// Prepare runs the full preparation over a raw table: schema check, typing,
// temporal parsing and derivation, weather imputation and day naming.
// The raw table is not modified.
func Prepare(t *RawTable) (*Dataset, error) {
	if err := RequireColumns(t, RequiredColumns); err != nil {
		return nil, err
	}

	ds := &Dataset{
		RunID:       uuid.NewString(),
		Missingness: MissingnessReport(t, DefaultReportSize),
		Stats:       PrepStats{Rows: t.Len()},
	}

	records := TypeRecords(t)
	ds.Stats.StartTimeFailures, ds.Stats.EndTimeFailures = ParseTemporalColumns(t, records)
	DeriveTemporalAttributes(records)

	medians, imputed, err := ImputeWeather(records)
	if err != nil {
		return nil, err
	}
	ds.Medians = medians
	ds.Stats.Imputed = imputed

	if err := DeriveDayNames(t, records); err != nil {
		return nil, err
	}

	ds.Records = records
	ds.PreparedAt = clock.Now().UTC()
	return ds, nil
}

// RequireColumns returns a ColumnMissingError for the first absent column.
func RequireColumns(t *RawTable, columns []string) error {
	for _, c := range columns {
		if !t.Has(c) {
			return &ColumnMissingError{Column: c}
		}
	}
	return nil
}

// TypeRecords builds one record per row with the non-temporal typed fields
// populated. Unparseable values become missing. Weather columns are typed but
// not yet imputed; temporal and day-name fields are left for later stages.
func TypeRecords(t *RawTable) []AccidentRecord {
	records := make([]AccidentRecord, t.Len())
	for i := range records {
		r := &records[i]
		r.Row = i
		r.ID = recordID(t, i)
		r.Severity = parseInt(t.Cell(ColSeverity, i))
		r.WeatherCondition = t.Cell(ColWeatherCondition, i)
		r.State = t.Cell(ColState, i)
		r.StartLat = parseFloat(t.Cell(ColStartLat, i))
		r.StartLng = parseFloat(t.Cell(ColStartLng, i))
		r.TrafficSignal = parseBool(t.Cell(ColTrafficSignal, i))
		r.Junction = parseBool(t.Cell(ColJunction, i))
		r.Stop = parseBool(t.Cell(ColStop, i))
		r.Crossing = parseBool(t.Cell(ColCrossing, i))
		for _, wf := range WeatherFields {
			*wf.Field(r) = parseFloat(t.Cell(wf.Column, i))
		}
	}
	return records
}

// ParseTemporalColumns fills StartTime and EndTime from the raw table and
// returns how many present values failed to parse in each column.
func ParseTemporalColumns(t *RawTable, records []AccidentRecord) (startFailures, endFailures int) {
	for i := range records {
		start := t.Cell(ColStartTime, records[i].Row)
		records[i].StartTime = ParseStartTime(start)
		if start.Valid && !records[i].StartTime.Valid {
			startFailures++
		}

		end := t.Cell(ColEndTime, records[i].Row)
		records[i].EndTime = ParseEndTime(end)
		if end.Valid && !records[i].EndTime.Valid {
			endFailures++
		}
	}
	return startFailures, endFailures
}

// ParseStartTime keeps the first 19 characters and parses them strictly as
// "2006-01-02 15:04:05" in UTC. Anything that does not match is missing.
func ParseStartTime(cell sql.Null[string]) sql.Null[time.Time] {
	if !cell.Valid {
		return sql.Null[time.Time]{}
	}
	s := cell.V
	if r := []rune(s); len(r) > startTimeWidth {
		s = string(r[:startTimeWidth])
	}
	ts, err := time.Parse(startTimeLayout, s)
	if err != nil {
		return sql.Null[time.Time]{}
	}
	return sql.Null[time.Time]{V: ts, Valid: true}
}

// ParseEndTime accepts any timestamp shape dateparse recognizes, in UTC when
// the value carries no zone. Failures are missing.
func ParseEndTime(cell sql.Null[string]) sql.Null[time.Time] {
	if !cell.Valid {
		return sql.Null[time.Time]{}
	}
	ts, err := dateparse.ParseIn(strings.TrimSpace(cell.V), time.UTC)
	if err != nil {
		return sql.Null[time.Time]{}
	}
	return sql.Null[time.Time]{V: ts.UTC(), Valid: true}
}

// DeriveTemporalAttributes sets Hour, DayOfWeek (Monday=0), Month and Year
// from StartTime. Rows without a StartTime get all four missing.
func DeriveTemporalAttributes(records []AccidentRecord) {
	for i := range records {
		r := &records[i]
		if !r.StartTime.Valid {
			r.Hour, r.DayOfWeek, r.Month, r.Year = sql.Null[int]{}, sql.Null[int]{}, sql.Null[int]{}, sql.Null[int]{}
			continue
		}
		ts := r.StartTime.V
		r.Hour = validInt(ts.Hour())
		r.DayOfWeek = validInt(mondayIndex(ts.Weekday()))
		r.Month = validInt(int(ts.Month()))
		r.Year = validInt(ts.Year())
	}
}

// ImputeWeather fills missing weather readings with the median of the
// observed values in the same column. Medians are computed per column before
// that column is filled, so columns are independent and present values are
// never changed. It returns the medians and the number of filled cells per
// column.
func ImputeWeather(records []AccidentRecord) (map[string]float64, map[string]int, error) {
	medians := make(map[string]float64, len(WeatherFields))
	imputed := make(map[string]int, len(WeatherFields))

	for _, wf := range WeatherFields {
		observed := make([]float64, 0, len(records))
		for i := range records {
			if v := wf.Field(&records[i]); v.Valid {
				observed = append(observed, v.V)
			}
		}

		if len(observed) == len(records) {
			if len(observed) > 0 {
				medians[wf.Column] = Median(observed)
			}
			imputed[wf.Column] = 0
			continue
		}
		if len(observed) == 0 {
			return nil, nil, &ImputationError{Column: wf.Column}
		}

		m := Median(observed)
		medians[wf.Column] = m
		for i := range records {
			if v := wf.Field(&records[i]); !v.Valid {
				*v = sql.Null[float64]{V: m, Valid: true}
				imputed[wf.Column]++
			}
		}
	}
	return medians, imputed, nil
}

// Median returns the middle value of vals, or the mean of the two middle
// values for an even count. vals is not modified. Median of no values is NaN.
func Median(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sorted := slices.Clone(vals)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// DeriveDayNames parses the Day column and maps it through DayNames.
// A missing Day leaves DayName missing; any other value outside 0..6,
// including non-integers, is an InvalidDayIndexError.
func DeriveDayNames(t *RawTable, records []AccidentRecord) error {
	for i := range records {
		r := &records[i]
		cell := t.Cell(ColDay, r.Row)
		if !cell.Valid {
			r.Day, r.DayName = sql.Null[int]{}, sql.Null[string]{}
			continue
		}
		idx, ok := parseIndex(cell.V)
		if !ok {
			return &InvalidDayIndexError{Row: r.Row, Value: cell.V}
		}
		name, err := DayName(idx)
		if err != nil {
			return &InvalidDayIndexError{Row: r.Row, Value: cell.V}
		}
		r.Day = validInt(idx)
		r.DayName = sql.Null[string]{V: name, Valid: true}
	}
	return nil
}

// DayName returns the Monday-first abbreviation for a day index.
func DayName(idx int) (string, error) {
	if idx < 0 || idx >= len(DayNames) {
		return "", &InvalidDayIndexError{Row: -1, Value: strconv.Itoa(idx)}
	}
	return DayNames[idx], nil
}

// mondayIndex converts time.Weekday (Sunday=0) to Monday=0.
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func recordID(t *RawTable, row int) string {
	if id := t.Cell(ColID, row); id.Valid {
		return id.V
	}
	return fmt.Sprintf("row-%d", row+1)
}

func validInt(v int) sql.Null[int] {
	return sql.Null[int]{V: v, Valid: true}
}

// parseIndex accepts integers and integral floats such as "3.0" within the
// int32 range. Anything larger is not a plausible index or level.
func parseIndex(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int(n), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.Trunc(f) != f || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func parseInt(cell sql.Null[string]) sql.Null[int] {
	if !cell.Valid {
		return sql.Null[int]{}
	}
	n, ok := parseIndex(cell.V)
	if !ok {
		return sql.Null[int]{}
	}
	return validInt(n)
}

func parseFloat(cell sql.Null[string]) sql.Null[float64] {
	if !cell.Valid {
		return sql.Null[float64]{}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(cell.V), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return sql.Null[float64]{}
	}
	return sql.Null[float64]{V: f, Valid: true}
}

func parseBool(cell sql.Null[string]) sql.Null[bool] {
	if !cell.Valid {
		return sql.Null[bool]{}
	}
	b, err := strconv.ParseBool(strings.TrimSpace(cell.V))
	if err != nil {
		return sql.Null[bool]{}
	}
	return sql.Null[bool]{V: b, Valid: true}
}
