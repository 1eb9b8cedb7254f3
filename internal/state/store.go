package state

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/grepto/dash-macrodata/internal/models"
)

var (
	ErrUnknownCountry     = errors.New("unknown country")
	ErrUnknownIndicator   = errors.New("unknown indicator")
	ErrInvalidInteraction = errors.New("invalid interaction")
)

// Catalog is the part of the dataset the store validates against.
type Catalog interface {
	HasCountry(name string) bool
	HasIndicator(name string) bool
	MinYear() int
	MaxYear() int
}

// Defaults is the selection a fresh store starts from.
type Defaults struct {
	Countries []string
	Indicator string
	Years     models.YearRange
}

// Update replaces parts of the selection. Nil fields are left unchanged;
// a non-nil empty Countries clears the country list.
type Update struct {
	Countries []string
	Indicator *string
	Years     *models.YearRange
}

// Store holds the process-wide selection and the latest pointer
// interaction. Readers get value snapshots.
type Store struct {
	catalog Catalog
	logger  *slog.Logger

	mu  sync.RWMutex
	sel models.Selection

	subMu  sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// NewStore builds a store from defaults. Default countries missing from
// the catalog are dropped and the year range is clamped to its bounds.
func NewStore(catalog Catalog, d Defaults, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !catalog.HasIndicator(d.Indicator) {
		return nil, fmt.Errorf("default indicator %q: %w", d.Indicator, ErrUnknownIndicator)
	}

	countries := make([]string, 0, len(d.Countries))
	for _, c := range d.Countries {
		if !catalog.HasCountry(c) {
			logger.Warn("dropping default country missing from dataset", "country", c)
			continue
		}
		if !slices.Contains(countries, c) {
			countries = append(countries, c)
		}
	}

	return &Store{
		catalog: catalog,
		logger:  logger.With("component", "state"),
		sel: models.Selection{
			Countries:   countries,
			Indicator:   d.Indicator,
			Years:       d.Years.Clamp(catalog.MinYear(), catalog.MaxYear()),
			Interaction: models.NoInteraction(),
			Revision:    1,
		},
		subs: make(map[int]chan struct{}),
	}, nil
}

// Snapshot returns a copy of the current selection.
func (s *Store) Snapshot() models.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sel.Clone()
}

// Update applies u atomically. Unknown countries or indicators reject the
// whole update. Any effective change clears the interaction and bumps the
// revision; a no-op update leaves the store untouched.
func (s *Store) Update(u Update) (models.Selection, error) {
	var countries []string
	if u.Countries != nil {
		countries = make([]string, 0, len(u.Countries))
		for _, c := range u.Countries {
			if !s.catalog.HasCountry(c) {
				return models.Selection{}, fmt.Errorf("%q: %w", c, ErrUnknownCountry)
			}
			if !slices.Contains(countries, c) {
				countries = append(countries, c)
			}
		}
	}
	if u.Indicator != nil && !s.catalog.HasIndicator(*u.Indicator) {
		return models.Selection{}, fmt.Errorf("%q: %w", *u.Indicator, ErrUnknownIndicator)
	}

	s.mu.Lock()
	next := s.sel.Clone()
	if countries != nil {
		next.Countries = countries
	}
	if u.Indicator != nil {
		next.Indicator = *u.Indicator
	}
	if u.Years != nil {
		next.Years = u.Years.Clamp(s.catalog.MinYear(), s.catalog.MaxYear())
	}

	changed := !slices.Equal(next.Countries, s.sel.Countries) ||
		next.Indicator != s.sel.Indicator ||
		next.Years != s.sel.Years
	if !changed {
		out := s.sel.Clone()
		s.mu.Unlock()
		return out, nil
	}

	next.Interaction = models.NoInteraction()
	next.Revision = s.sel.Revision + 1
	s.sel = next
	out := s.sel.Clone()
	s.mu.Unlock()

	s.logger.Debug("selection updated",
		"revision", out.Revision,
		"countries", len(out.Countries),
		"indicator", out.Indicator,
		"from", out.Years.From,
		"to", out.Years.To,
	)
	s.notify()
	return out, nil
}

// Interact records ev as the latest pointer interaction, replacing the
// previous one.
func (s *Store) Interact(ev models.Interaction) (models.Selection, error) {
	ev, err := normalize(ev)
	if err != nil {
		return models.Selection{}, err
	}

	s.mu.Lock()
	s.sel.Interaction = ev
	s.sel.Revision++
	out := s.sel.Clone()
	s.mu.Unlock()

	s.notify()
	return out, nil
}

func normalize(ev models.Interaction) (models.Interaction, error) {
	switch ev.Kind {
	case "", models.InteractionNone:
		return models.NoInteraction(), nil
	case models.InteractionHover, models.InteractionClick:
		if ev.Year == 0 {
			return ev, fmt.Errorf("%s without year: %w", ev.Kind, ErrInvalidInteraction)
		}
		return models.Interaction{Kind: ev.Kind, Year: ev.Year}, nil
	case models.InteractionBrush:
		if ev.FirstYear == 0 || ev.LastYear == 0 {
			return ev, fmt.Errorf("brush without bounds: %w", ErrInvalidInteraction)
		}
		if ev.FirstYear > ev.LastYear {
			ev.FirstYear, ev.LastYear = ev.LastYear, ev.FirstYear
		}
		return models.Brush(ev.FirstYear, ev.LastYear), nil
	default:
		return ev, fmt.Errorf("kind %q: %w", ev.Kind, ErrInvalidInteraction)
	}
}

// Subscribe returns a channel that receives a signal after every state
// change. Signals coalesce: a slow reader sees one pending signal no
// matter how many changes happened. cancel must be called to release it.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
