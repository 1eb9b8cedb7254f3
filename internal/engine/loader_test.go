package engine

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var testIndicators = []string{"GDP, $", "Population, total"}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	csvContent := `id,country,year,"GDP, $","Population, total",unused
1,Finland,2010,247800000000,5363352,x
2,Bulgaria,2010,50610000000,7395599,y
3,Finland,2011,273700000000,,z
4,Indonesia,2011,892969000000,245116206,w
`
	ds, err := Load(writeTemp(t, "macro.csv", csvContent), WithIndicators(testIndicators))
	require.NoError(t, err)
	defer ds.Release()

	require.Equal(t, 4, ds.Len())
	assert.Equal(t, []string{"Finland", "Bulgaria", "Indonesia"}, ds.Countries())
	assert.Equal(t, []int{2010, 2011}, ds.Years())
	assert.Equal(t, 2010, ds.MinYear())
	assert.Equal(t, 2011, ds.MaxYear())
	assert.True(t, ds.HasIndicator("GDP, $"))
	assert.False(t, ds.HasIndicator("unused"))

	// Row 0 Check
	row := ds.Row(0)
	assert.Equal(t, "Finland", row.Country)
	assert.Equal(t, 2010, row.Year)
	assert.Equal(t, 247800000000.0, row.Values["GDP, $"])

	// Empty cell is missing, not zero
	_, ok := ds.Value(2, "Population, total")
	assert.False(t, ok)
	_, hasPop := ds.Row(2).Values["Population, total"]
	assert.False(t, hasPop)
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"country", "year", "GDP, $", "Population, total"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"Finland", 2010, 1.5, 10}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"Bulgaria", 2011, 2.5}))

	path := filepath.Join(t.TempDir(), "macro.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	ds, err := Load(path, WithIndicators(testIndicators))
	require.NoError(t, err)
	defer ds.Release()

	require.Equal(t, 2, ds.Len())
	v, ok := ds.Value(1, "GDP, $")
	require.True(t, ok)
	assert.Equal(t, 2.5, v)
	// trailing empty cells are dropped by the reader and read as missing
	_, ok = ds.Value(1, "Population, total")
	assert.False(t, ok)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		target  error
		column  string
	}{
		{
			name:    "missing indicator column",
			file:    "a.csv",
			content: "country,year,\"GDP, $\"\nFinland,2010,1\n",
			target:  ErrMissingColumn,
			column:  "Population, total",
		},
		{
			name:    "missing year column",
			file:    "b.csv",
			content: "country,\"GDP, $\",\"Population, total\"\nFinland,1,2\n",
			target:  ErrMissingColumn,
			column:  "year",
		},
		{
			name:    "bad year",
			file:    "c.csv",
			content: "country,year,\"GDP, $\",\"Population, total\"\nFinland,20x0,1,2\n",
			target:  ErrMalformedCell,
			column:  "year",
		},
		{
			name:    "bad value",
			file:    "d.csv",
			content: "country,year,\"GDP, $\",\"Population, total\"\nFinland,2010,lots,2\n",
			target:  ErrMalformedCell,
			column:  "GDP, $",
		},
		{
			name:    "header only",
			file:    "e.csv",
			content: "country,year,\"GDP, $\",\"Population, total\"\n",
			target:  ErrNoRows,
		},
		{
			name:    "unsupported extension",
			file:    "f.json",
			content: "{}",
			target:  ErrUnsupportedFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTemp(t, tt.file, tt.content), WithIndicators(testIndicators))
			require.Error(t, err)

			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, tt.column, loadErr.Column)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.True(t, strings.HasPrefix(err.Error(), "load "))
}

func TestLoadRequiresFullIndicatorListByDefault(t *testing.T) {
	path := writeTemp(t, "macro.csv", "country,year,\"GDP, $\"\nFinland,2010,1\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestParseHelpers(t *testing.T) {
	y, err := parseYear("2010.0")
	require.NoError(t, err)
	assert.EqualValues(t, 2010, y)

	_, err = parseYear("2010.5")
	assert.Error(t, err)

	v, ok, err := parseValue(" 12.5 ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)

	_, ok, err = parseValue("NaN")
	require.NoError(t, err)
	assert.False(t, ok)
}
