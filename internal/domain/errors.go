package domain

import "fmt"

// DataSourceError reports an unreadable or malformed source table.
type DataSourceError struct {
	Path string
	Err  error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %q: %v", e.Path, e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// ColumnMissingError reports a required column absent from the source.
type ColumnMissingError struct {
	Column string
}

func (e *ColumnMissingError) Error() string {
	return fmt.Sprintf("required column %q is missing", e.Column)
}

// InvalidDayIndexError reports a Day value that does not index DayNames.
type InvalidDayIndexError struct {
	Row   int // zero-based data row, -1 when not tied to a row
	Value string
}

func (e *InvalidDayIndexError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("column %q: day index %q is not in 0..6", ColDay, e.Value)
	}
	return fmt.Sprintf("column %q line %d: day index %q is not in 0..6", ColDay, e.Line(), e.Value)
}

// Line returns the 1-based source line, counting the header as line 1.
func (e *InvalidDayIndexError) Line() int { return e.Row + 2 }

// ImputationError reports a weather column whose median is undefined
// because it has no observed values.
type ImputationError struct {
	Column string
}

func (e *ImputationError) Error() string {
	return fmt.Sprintf("column %q has no observed values to compute a median from", e.Column)
}
