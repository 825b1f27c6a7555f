package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"church-site-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// CalendarRepository is the table gateway for dated calendar events
type CalendarRepository interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error)
	Create(ctx context.Context, e *models.CalendarEvent) error
	Delete(ctx context.Context, id string) error
}

// CalendarEventInput holds the fields of a new calendar event
type CalendarEventInput struct {
	Title       string    `json:"title"`
	EventDate   time.Time `json:"event_date"`
	Time        string    `json:"time"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
}

// CalendarStore caches the events of a three month window around the
// displayed month
type CalendarStore struct {
	repo  CalendarRepository
	opts  Options
	loc   *time.Location
	group singleflight.Group

	mu     sync.RWMutex
	month  time.Time
	events *cache[models.CalendarEvent]
}

// NewCalendarStore creates a calendar store that interprets dates in loc
func NewCalendarStore(repo CalendarRepository, loc *time.Location, opts Options) *CalendarStore {
	if loc == nil {
		loc = time.Local
	}
	return &CalendarStore{
		repo:   repo,
		opts:   opts.withDefaults(),
		loc:    loc,
		month:  startOfMonth(time.Now().In(loc)),
		events: newCache[models.CalendarEvent](),
	}
}

// Location is the zone calendar days are interpreted in
func (s *CalendarStore) Location() *time.Location {
	return s.loc
}

// Window returns the range fetched for month: the start of the previous
// month through the end of the next one
func (s *CalendarStore) Window(month time.Time) (from, to time.Time) {
	first := startOfMonth(month.In(s.loc))
	from = first.AddDate(0, -1, 0)
	to = first.AddDate(0, 2, 0).Add(-time.Nanosecond)
	return from, to
}

// Load fetches the window of the current month
func (s *CalendarStore) Load(ctx context.Context) {
	_ = s.SetMonth(ctx, s.Month())
}

// Month returns the displayed month
func (s *CalendarStore) Month() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.month
}

// SetMonth moves the display to month and replaces the cache with its
// window. On a failed read the previous events are kept.
func (s *CalendarStore) SetMonth(ctx context.Context, month time.Time) error {
	first := startOfMonth(month.In(s.loc))
	s.mu.Lock()
	s.month = first
	s.mu.Unlock()

	from, to := s.Window(first)
	generation := s.events.begin()
	key := from.Format(time.RFC3339) + "/" + to.Format(time.RFC3339)

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return withDeadline(ctx, s.opts.LoadTimeout, func(ctx context.Context) ([]models.CalendarEvent, error) {
			return s.repo.ListBetween(ctx, from, to)
		})
	})
	if err != nil {
		log.Error().Err(err).Time("from", from).Time("to", to).Msg("Failed to load calendar events")
		s.events.abort(generation)
		return err
	}

	events := v.([]models.CalendarEvent)
	out := make([]models.CalendarEvent, len(events))
	copy(out, events)
	s.events.finish(generation, out, false)
	return nil
}

// Loading reports whether the latest window read is unresolved
func (s *CalendarStore) Loading() bool {
	return s.events.Loading()
}

// Events returns the cached window, earliest first
func (s *CalendarStore) Events() []models.CalendarEvent {
	return s.events.snapshot()
}

// EventsForDate returns the cached events on the same calendar day as date
func (s *CalendarStore) EventsForDate(date time.Time) []models.CalendarEvent {
	y, m, d := date.In(s.loc).Date()
	var out []models.CalendarEvent
	for _, e := range s.events.snapshot() {
		ey, em, ed := e.EventDate.In(s.loc).Date()
		if ey == y && em == m && ed == d {
			out = append(out, e)
		}
	}
	return out
}

// AddEvent stores a calendar event and appends it to the cache
func (s *CalendarStore) AddEvent(ctx context.Context, in CalendarEventInput) (*models.CalendarEvent, error) {
	if strings.TrimSpace(in.Title) == "" || in.EventDate.IsZero() {
		return nil, validationError("title and event date are required")
	}

	e := &models.CalendarEvent{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(in.Title),
		EventDate:   in.EventDate,
		Time:        in.Time,
		Description: in.Description,
		Location:    in.Location,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to add calendar event: %w", err)
	}

	s.events.append(*e)
	return e, nil
}

// DeleteEvent removes a calendar event
func (s *CalendarStore) DeleteEvent(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete calendar event: %w", err)
	}
	s.events.remove(func(e models.CalendarEvent) bool { return e.ID == id })
	return nil
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}
