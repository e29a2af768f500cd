package csvsource

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/accident-data-etl/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoad_Good(t *testing.T) {
	for _, file := range []string{"good.csv", "bom.csv"} {
		t.Run(file, func(t *testing.T) {
			assertGoodTable(t, filepath.Join("testdata", file))
		})
	}
}

func assertGoodTable(t *testing.T, path string) {
	t.Helper()
	table, err := NewLoader(path, discardLogger()).Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, table.Len())
	assert.Len(t, table.Columns(), 18)
	assert.Equal(t, "ID", table.Columns()[0])
	require.NoError(t, domain.RequireColumns(table, domain.RequiredColumns))

	assert.Equal(t, "A-2", table.Cell(domain.ColID, 1).V)
	assert.Equal(t, "2016-02-08 06:07:59.000000000", table.Cell(domain.ColStartTime, 1).V)
	assert.False(t, table.Cell(domain.ColWeatherCondition, 1).Valid, "empty cell is missing")
	assert.False(t, table.Cell(domain.ColDay, 2).Valid, "NA is missing")
	assert.False(t, table.Cell(domain.ColTemperature, 2).Valid)
	assert.Equal(t, "3.5", table.Cell(domain.ColWindSpeed, 2).V)
	assert.True(t, table.Cell(domain.ColStartTime, 2).Valid, "unparseable values are still present at load time")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"missing file", "does-not-exist.csv"},
		{"ragged row", "ragged.csv"},
		{"empty file", "empty.csv"},
		{"header only", "header_only.csv"},
		{"duplicate header", "duplicate_header.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join("testdata", tt.file)
			_, err := NewLoader(path, discardLogger()).Load(context.Background())
			require.Error(t, err)

			var dsErr *domain.DataSourceError
			require.True(t, errors.As(err, &dsErr), "got %T", err)
			assert.Equal(t, path, dsErr.Path)
		})
	}
}

func TestLoad_DuplicateHeaderNamesColumn(t *testing.T) {
	_, err := NewLoader(filepath.Join("testdata", "duplicate_header.csv"), discardLogger()).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate column "Day"`)

	var colErr *domain.ColumnMissingError
	assert.False(t, errors.As(err, &colErr))
}

func TestLoad_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(filepath.Join("testdata", "good.csv"), discardLogger()).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
