package engine

import (
	"strconv"

	"github.com/grepto/dash-macrodata/internal/models"
)

// Period is the year span the pie chart aggregates over.
type Period struct {
	Kind  models.PeriodKind
	Label string
	Years models.YearRange
}

// ResolvePeriod picks the pie period from the outstanding pointer events.
// Precedence: a brush wins over everything (the last brush if several),
// then hover, then click; with none of them the whole selected range is
// used. Unknown and "none" events are ignored.
func ResolvePeriod(years models.YearRange, events ...models.Interaction) Period {
	var brush, hover, click *models.Interaction
	for i := range events {
		ev := &events[i]
		switch ev.Kind {
		case models.InteractionBrush:
			brush = ev
		case models.InteractionHover:
			if hover == nil {
				hover = ev
			}
		case models.InteractionClick:
			if click == nil {
				click = ev
			}
		}
	}

	switch {
	case brush != nil:
		r := models.YearRange{From: brush.FirstYear, To: brush.LastYear}
		if r.From > r.To {
			r.From, r.To = r.To, r.From
		}
		return Period{Kind: models.PeriodBrush, Label: r.Label(), Years: r}
	case hover != nil:
		return singleYear(hover.Year)
	case click != nil:
		return singleYear(click.Year)
	default:
		return Period{Kind: models.PeriodRange, Label: years.Label(), Years: years}
	}
}

func singleYear(year int) Period {
	return Period{
		Kind:  models.PeriodYear,
		Label: strconv.Itoa(year),
		Years: models.YearRange{From: year, To: year},
	}
}
