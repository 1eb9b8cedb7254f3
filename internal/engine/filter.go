package engine

import "github.com/grepto/dash-macrodata/internal/models"

// FilterRows returns the indices of rows whose country is selected and
// whose year lies in years, in dataset order. No countries means no rows.
func FilterRows(ds *Dataset, countries []string, years models.YearRange) []int {
	if len(countries) == 0 || ds.Len() == 0 {
		return []int{}
	}

	// Dictionary IDs are dense, so a flag per ID beats a string set.
	selected := make([]bool, len(ds.countryDict))
	found := false
	for _, name := range countries {
		if id, ok := ds.countryIndex[name]; ok {
			selected[id] = true
			found = true
		}
	}
	if !found {
		return []int{}
	}

	ids := ds.countryIDs
	yrs := ds.years.Int32Values()
	from, to := int32(years.From), int32(years.To)

	rows := make([]int, 0, len(ids)/4)
	for i, id := range ids {
		if y := yrs[i]; selected[id] && y >= from && y <= to {
			rows = append(rows, i)
		}
	}
	return rows
}
