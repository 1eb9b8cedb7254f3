package engine

import (
	"sort"

	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
)

// Indicators is the curated list of indicator columns the dashboard offers.
// Identifier columns of the source file are deliberately not in it.
var Indicators = []string{
	"GDP, $",
	"Population, total",
	"GDP per capita, $",
	"GDP per capita, PPP (current international $)",
	"Adjusted net national income (current $)",
	"Adjusted net national income per capita (current $)",
	"Agriculture, forestry, and fishing, value added (% of GDP)",
	"Industry (incl construction), value added (% of GDP)",
	"Manufacturing, value added (% of GDP)",
	"Services, value added (% of GDP)",
	"National currency/USD ex-rate",
}

// Observation is one dataset row. Missing indicator cells are absent from
// Values.
type Observation struct {
	Country string
	Year    int
	Values  map[string]float64
}

// Dataset holds the rows in Struct-of-Arrays format. It is immutable once
// built and safe for concurrent readers.
type Dataset struct {
	// Data Columns
	years   *array.Int32
	columns []*array.Float64 // parallel to indicators

	// Dictionary Encoded country IDs (0..N)
	countryIDs   []int32
	countryDict  []string
	countryIndex map[string]int32

	indicators     []string
	indicatorIndex map[string]int

	distinctYears    []int
	minYear, maxYear int
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.countryIDs) }

// Countries returns distinct country names in first-seen order.
func (d *Dataset) Countries() []string { return append([]string(nil), d.countryDict...) }

// Indicators returns the indicator columns held by the dataset.
func (d *Dataset) Indicators() []string { return append([]string(nil), d.indicators...) }

// Years returns the distinct years, ascending.
func (d *Dataset) Years() []int { return append([]int(nil), d.distinctYears...) }

func (d *Dataset) MinYear() int { return d.minYear }
func (d *Dataset) MaxYear() int { return d.maxYear }

func (d *Dataset) HasCountry(name string) bool {
	_, ok := d.countryIndex[name]
	return ok
}

func (d *Dataset) HasIndicator(name string) bool {
	_, ok := d.indicatorIndex[name]
	return ok
}

// Country returns the country of row i.
func (d *Dataset) Country(i int) string { return d.countryDict[d.countryIDs[i]] }

// Year returns the year of row i.
func (d *Dataset) Year(i int) int { return int(d.years.Value(i)) }

// Value returns the indicator value of row i. ok is false when the cell is
// missing or the indicator is unknown.
func (d *Dataset) Value(i int, indicator string) (float64, bool) {
	col := d.column(indicator)
	if col == nil || col.IsNull(i) {
		return 0, false
	}
	return col.Value(i), true
}

// Row materializes row i as an Observation.
func (d *Dataset) Row(i int) Observation {
	obs := Observation{
		Country: d.Country(i),
		Year:    d.Year(i),
		Values:  make(map[string]float64, len(d.indicators)),
	}
	for k, name := range d.indicators {
		if col := d.columns[k]; !col.IsNull(i) {
			obs.Values[name] = col.Value(i)
		}
	}
	return obs
}

// Release frees the Arrow buffers. The dataset must not be used afterwards.
func (d *Dataset) Release() {
	if d.years != nil {
		d.years.Release()
	}
	for _, col := range d.columns {
		col.Release()
	}
}

func (d *Dataset) column(indicator string) *array.Float64 {
	k, ok := d.indicatorIndex[indicator]
	if !ok {
		return nil
	}
	return d.columns[k]
}

// --- BUILDER ---

type builder struct {
	years        *array.Int32Builder
	columns      []*array.Float64Builder
	countryIDs   []int32
	countryDict  []string
	countryIndex map[string]int32
	indicators   []string
}

func newBuilder(indicators []string, sizeHint int) *builder {
	mem := memory.NewGoAllocator()
	b := &builder{
		years:        array.NewInt32Builder(mem),
		columns:      make([]*array.Float64Builder, len(indicators)),
		countryIDs:   make([]int32, 0, sizeHint),
		countryIndex: make(map[string]int32),
		indicators:   indicators,
	}
	b.years.Reserve(sizeHint)
	for k := range b.columns {
		b.columns[k] = array.NewFloat64Builder(mem)
		b.columns[k].Reserve(sizeHint)
	}
	return b
}

// append adds one row. values and valid are parallel to b.indicators.
func (b *builder) append(country string, year int32, values []float64, valid []bool) {
	id, ok := b.countryIndex[country]
	if !ok {
		id = int32(len(b.countryDict))
		b.countryDict = append(b.countryDict, country)
		b.countryIndex[country] = id
	}
	b.countryIDs = append(b.countryIDs, id)
	b.years.Append(year)
	for k, col := range b.columns {
		if valid[k] {
			col.Append(values[k])
		} else {
			col.AppendNull()
		}
	}
}

func (b *builder) finish() *Dataset {
	d := &Dataset{
		years:          b.years.NewInt32Array(),
		columns:        make([]*array.Float64, len(b.columns)),
		countryIDs:     b.countryIDs,
		countryDict:    b.countryDict,
		countryIndex:   b.countryIndex,
		indicators:     append([]string(nil), b.indicators...),
		indicatorIndex: make(map[string]int, len(b.indicators)),
	}
	b.years.Release()
	for k, col := range b.columns {
		d.columns[k] = col.NewFloat64Array()
		col.Release()
	}
	for k, name := range d.indicators {
		d.indicatorIndex[name] = k
	}

	seen := make(map[int]bool)
	for i := 0; i < d.years.Len(); i++ {
		y := int(d.years.Value(i))
		if !seen[y] {
			seen[y] = true
			d.distinctYears = append(d.distinctYears, y)
		}
	}
	sort.Ints(d.distinctYears)
	if n := len(d.distinctYears); n > 0 {
		d.minYear, d.maxYear = d.distinctYears[0], d.distinctYears[n-1]
	}
	return d
}

// FromObservations builds a Dataset from in-memory rows, keeping their
// order. Values for indicators outside the list are ignored.
func FromObservations(indicators []string, rows []Observation) *Dataset {
	b := newBuilder(indicators, len(rows))
	values := make([]float64, len(indicators))
	valid := make([]bool, len(indicators))
	for _, r := range rows {
		for k, name := range indicators {
			values[k], valid[k] = r.Values[name]
		}
		b.append(r.Country, int32(r.Year), values, valid)
	}
	return b.finish()
}
