// Package csvsource loads the accident CSV into a domain.RawTable.
package csvsource

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/couchcryptid/accident-data-etl/internal/domain"
)

// ErrNoRows is returned, wrapped in a DataSourceError, for a file with a
// header but no data rows.
var ErrNoRows = errors.New("no data rows")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader reads one CSV file. Every column is loaded as text; typing happens
// during preparation.
type Loader struct {
	path   string
	logger *slog.Logger
}

// NewLoader creates a Loader for path.
func NewLoader(path string, logger *slog.Logger) *Loader {
	return &Loader{path: path, logger: logger}
}

// Path returns the source file path.
func (l *Loader) Path() string { return l.path }

// Load reads the whole file. Any failure, including a ragged row, is a
// *domain.DataSourceError.
func (l *Loader) Load(ctx context.Context) (*domain.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(l.path)
	if err != nil {
		return nil, l.sourceErr(err)
	}
	defer f.Close()

	// gota renames repeated headers (A -> A_0, A_1), so duplicates are
	// caught on the raw header before the frame is built.
	if err := checkHeader(skipBOM(f)); err != nil {
		return nil, l.sourceErr(err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, l.sourceErr(err)
	}

	df := dataframe.ReadCSV(skipBOM(f),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(domain.MissingTokens),
	)
	if df.Err != nil {
		return nil, l.sourceErr(df.Err)
	}
	if df.Nrow() == 0 {
		return nil, l.sourceErr(ErrNoRows)
	}

	names := df.Names()
	cols := make([][]sql.Null[string], len(names))
	for j, name := range names {
		values := df.Col(name).Records()
		cells := make([]sql.Null[string], len(values))
		for i, v := range values {
			cells[i] = domain.RawCell(v)
		}
		cols[j] = cells
	}

	t, err := domain.NewRawTableFromColumns(names, cols)
	if err != nil {
		return nil, l.sourceErr(err)
	}

	l.logger.Info("source loaded", "path", l.path, "rows", t.Len(), "columns", len(names))
	return t, nil
}

// skipBOM drops a leading UTF-8 byte-order mark, as written by Excel.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

func checkHeader(r io.Reader) error {
	header, err := csv.NewReader(r).Read()
	if errors.Is(err, io.EOF) {
		return ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if seen[name] {
			return fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true
	}
	return nil
}

func (l *Loader) sourceErr(err error) error {
	return &domain.DataSourceError{Path: l.path, Err: err}
}
