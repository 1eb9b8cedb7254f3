package models

import "fmt"

// YearRange is an inclusive [From, To] pair of years.
type YearRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (r YearRange) Contains(year int) bool {
	return r.From <= year && year <= r.To
}

// Span is the number of years in the range.
func (r YearRange) Span() int {
	if r.To < r.From {
		return 0
	}
	return r.To - r.From + 1
}

// Clamp orders the pair and pins both ends into [lo, hi].
func (r YearRange) Clamp(lo, hi int) YearRange {
	if r.From > r.To {
		r.From, r.To = r.To, r.From
	}
	r.From = clampInt(r.From, lo, hi)
	r.To = clampInt(r.To, lo, hi)
	return r
}

// Label renders the range the way chart titles show it: "2010 - 2019".
func (r YearRange) Label() string {
	return fmt.Sprintf("%d - %d", r.From, r.To)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type InteractionKind string

const (
	InteractionNone  InteractionKind = "none"
	InteractionHover InteractionKind = "hover"
	InteractionClick InteractionKind = "click"
	InteractionBrush InteractionKind = "brush"
)

// Interaction is the most recent pointer event on the time-series chart.
// Year is set for hover and click, FirstYear/LastYear for brush.
type Interaction struct {
	Kind      InteractionKind `json:"kind"`
	Year      int             `json:"year,omitempty"`
	FirstYear int             `json:"first_year,omitempty"`
	LastYear  int             `json:"last_year,omitempty"`
}

func NoInteraction() Interaction { return Interaction{Kind: InteractionNone} }

func Hover(year int) Interaction { return Interaction{Kind: InteractionHover, Year: year} }

func Click(year int) Interaction { return Interaction{Kind: InteractionClick, Year: year} }

func Brush(first, last int) Interaction {
	return Interaction{Kind: InteractionBrush, FirstYear: first, LastYear: last}
}

// IsNone reports whether no pointer interaction is active. The zero value
// counts as none.
func (i Interaction) IsNone() bool {
	return i.Kind == "" || i.Kind == InteractionNone
}

// Selection is a snapshot of the user's choices.
type Selection struct {
	Countries   []string    `json:"countries"`
	Indicator   string      `json:"indicator"`
	Years       YearRange   `json:"years"`
	Interaction Interaction `json:"interaction"`
	Revision    uint64      `json:"revision"`
}

// Clone returns a deep copy so the caller can't alias the country list.
func (s Selection) Clone() Selection {
	out := s
	out.Countries = append(make([]string, 0, len(s.Countries)), s.Countries...)
	return out
}
