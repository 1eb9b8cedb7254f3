package engine

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported source format")
	ErrMissingColumn     = errors.New("missing required column")
	ErrMalformedCell     = errors.New("malformed cell")
	ErrNoRows            = errors.New("source has no data rows")
)

// LoadError is returned by Load for any source that can't become a Dataset.
// Row is 1-based counting the header; zero when the failure isn't tied to
// a row.
type LoadError struct {
	Path   string
	Row    int
	Column string
	Err    error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "load %s", e.Path)
	if e.Row > 0 {
		fmt.Fprintf(&b, ": row %d", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, ": column %q", e.Column)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadOption tunes Load.
type LoadOption func(*loadConfig)

type loadConfig struct {
	indicators []string
	logger     *slog.Logger
}

// WithIndicators overrides the indicator columns that must be present.
func WithIndicators(names []string) LoadOption {
	return func(c *loadConfig) { c.indicators = names }
}

func WithLogger(l *slog.Logger) LoadOption {
	return func(c *loadConfig) { c.logger = l }
}

// Load reads a .csv or .xlsx source into a Dataset. The first row is the
// header; columns are found by name and extra columns are ignored. Any
// failure is a *LoadError.
func Load(path string, opts ...LoadOption) (*Dataset, error) {
	cfg := &loadConfig{indicators: Indicators, logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	start := time.Now()
	cfg.logger.Info("loading dataset", slog.String("path", path))

	header, rows, err := readTable(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	ds, err := buildDataset(path, header, rows, cfg.indicators)
	if err != nil {
		return nil, err
	}

	cfg.logger.Info("dataset loaded",
		slog.String("path", path),
		slog.Int("rows", ds.Len()),
		slog.Int("countries", len(ds.countryDict)),
		slog.Int("min_year", ds.MinYear()),
		slog.Int("max_year", ds.MaxYear()),
		slog.Duration("elapsed", time.Since(start)))
	return ds, nil
}

// readTable returns the header and the data rows of the source.
func readTable(path string) ([]string, [][]string, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		records, err = readCSV(path)
	case ".xlsx":
		records, err = readXLSX(path)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, ErrNoRows
	}
	return records[0], records[1:], nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoRows
	}
	return f.GetRows(sheets[0])
}

func buildDataset(path string, header []string, rows [][]string, indicators []string) (*Dataset, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		// Excel exports sometimes carry a BOM on the first header.
		name = strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	lookup := func(name string) (int, error) {
		i, ok := index[name]
		if !ok {
			return 0, &LoadError{Path: path, Column: name, Err: ErrMissingColumn}
		}
		return i, nil
	}

	countryCol, err := lookup("country")
	if err != nil {
		return nil, err
	}
	yearCol, err := lookup("year")
	if err != nil {
		return nil, err
	}
	indCols := make([]int, len(indicators))
	for k, name := range indicators {
		if indCols[k], err = lookup(name); err != nil {
			return nil, err
		}
	}

	b := newBuilder(indicators, len(rows))
	values := make([]float64, len(indicators))
	valid := make([]bool, len(indicators))

	for r, rec := range rows {
		rowNum := r + 2 // header is row 1
		if isBlank(rec) {
			continue
		}

		country := strings.TrimSpace(cell(rec, countryCol))
		if country == "" {
			return nil, &LoadError{Path: path, Row: rowNum, Column: "country", Err: ErrMalformedCell}
		}
		year, err := parseYear(cell(rec, yearCol))
		if err != nil {
			return nil, &LoadError{Path: path, Row: rowNum, Column: "year", Err: fmt.Errorf("%w: %v", ErrMalformedCell, err)}
		}
		for k, col := range indCols {
			values[k], valid[k], err = parseValue(cell(rec, col))
			if err != nil {
				return nil, &LoadError{Path: path, Row: rowNum, Column: indicators[k], Err: fmt.Errorf("%w: %v", ErrMalformedCell, err)}
			}
		}
		b.append(country, year, values, valid)
	}

	if len(b.countryIDs) == 0 {
		return nil, &LoadError{Path: path, Err: ErrNoRows}
	}
	return b.finish(), nil
}

// cell tolerates short records: spreadsheet readers drop trailing empties.
func cell(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

func isBlank(rec []string) bool {
	for _, s := range rec {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

// parseYear accepts "2010" and integral floats like "2010.0".
func parseYear(s string) (int32, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int32(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("not an integer year: %q", s)
	}
	return int32(f), nil
}

// parseValue returns ok=false for an empty or NaN cell.
func parseValue(s string) (v float64, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("not a number: %q", s)
	}
	if math.IsNaN(v) {
		return 0, false, nil
	}
	return v, true, nil
}
