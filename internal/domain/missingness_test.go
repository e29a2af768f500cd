package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingnessReport(t *testing.T) {
	header := []string{"a", "b", "c", "d"}
	rows := [][]string{
		{"1", "", "", "x"},
		{"", "", "NA", "x"},
		{"3", "NaN", "4", "x"},
	}
	table, err := NewRawTable(header, rows)
	require.NoError(t, err)

	report := MissingnessReport(table, DefaultReportSize)

	assert.Equal(t, []ColumnMissing{
		{Column: "b", Missing: 3},
		{Column: "c", Missing: 2},
		{Column: "a", Missing: 1},
		{Column: "d", Missing: 0},
	}, report)
}

func TestMissingnessReport_StableTiesAndTruncation(t *testing.T) {
	header := make([]string, 12)
	row := make([]string, 12)
	for i := range header {
		header[i] = fmt.Sprintf("col%02d", i)
		row[i] = "v"
	}
	row[11] = ""
	table, err := NewRawTable(header, [][]string{row})
	require.NoError(t, err)

	report := MissingnessReport(table, DefaultReportSize)

	require.Len(t, report, 10)
	assert.Equal(t, ColumnMissing{Column: "col11", Missing: 1}, report[0])
	for i := 1; i < len(report); i++ {
		assert.Equal(t, fmt.Sprintf("col%02d", i-1), report[i].Column, "ties keep source order")
		assert.GreaterOrEqual(t, report[i-1].Missing, report[i].Missing)
	}
}

func TestNewRawTable(t *testing.T) {
	t.Run("inconsistent width", func(t *testing.T) {
		_, err := NewRawTable([]string{"a", "b"}, [][]string{{"1", "2"}, {"1"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 3")
	})

	t.Run("duplicate column", func(t *testing.T) {
		_, err := NewRawTable([]string{"a", "a"}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("missing tokens", func(t *testing.T) {
		table, err := NewRawTable([]string{"a"}, [][]string{{"NULL"}, {"0"}, {"#N/A"}})
		require.NoError(t, err)
		assert.False(t, table.Cell("a", 0).Valid)
		assert.Equal(t, "0", table.Cell("a", 1).V)
		assert.False(t, table.Cell("a", 2).Valid)
		assert.False(t, table.Cell("a", 3).Valid, "out of range is missing")
		assert.Nil(t, table.Column("absent"))
	})

	t.Run("spreadsheet NA strings", func(t *testing.T) {
		for _, tok := range []string{"-nan", "#NA", "#N/A N/A", "1.#IND", "1.#QNAN", "-1.#IND", "-1.#QNAN"} {
			assert.False(t, RawCell(tok).Valid, tok)
		}
		assert.True(t, RawCell("nan ").Valid, "matching is exact")
	})
}
