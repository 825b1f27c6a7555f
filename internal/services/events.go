package services

import (
	"context"
	"fmt"
	"strings"

	"church-site-backend/internal/models"
	"church-site-backend/internal/storage"

	"github.com/rs/zerolog/log"
)

// EventRepository is the table gateway for recurring events
type EventRepository interface {
	List(ctx context.Context) ([]models.Event, error)
	Get(ctx context.Context, id int64) (*models.Event, error)
	Create(ctx context.Context, e *models.Event) error
	Update(ctx context.Context, e *models.Event) error
	Delete(ctx context.Context, id int64) error
}

// EventInput holds the editable fields of a recurring event
type EventInput struct {
	Title               string `json:"title"`
	Day                 string `json:"day"`
	Time                string `json:"time"`
	Description         string `json:"description"`
	DetailedDescription string `json:"detailed_description"`
	LeaderName          string `json:"leader_name"`
	LeaderRole          string `json:"leader_role"`
}

func (in EventInput) validate() error {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Day) == "" || strings.TrimSpace(in.Time) == "" {
		return validationError("title, day and time are required")
	}
	return nil
}

func (in EventInput) apply(e *models.Event) {
	e.Title = strings.TrimSpace(in.Title)
	e.Day = strings.TrimSpace(in.Day)
	e.Time = strings.TrimSpace(in.Time)
	e.Description = in.Description
	e.DetailedDescription = in.DetailedDescription
	e.LeaderName = in.LeaderName
	e.LeaderRole = in.LeaderRole
}

func asset(path string) *string { return &path }

// DefaultEvents is the weekly schedule shown when no event is stored
func DefaultEvents() []models.Event {
	return []models.Event{
		{ID: 1, Title: "English Service", Day: "Sunday", Time: "6:30 AM - 9:00 AM",
			Description: "Start your week with our English worship service.", ImageURL: asset("/assets/english_service.png")},
		{ID: 2, Title: "Twi Service", Day: "Sunday", Time: "9:00 AM - 12:00 PM",
			Description: "Join our vibrant Twi speaking service.", ImageURL: asset("/assets/twi_service.png")},
		{ID: 3, Title: "Men's Movement", Day: "Monday", Time: "6:00 PM - 8:00 PM",
			Description: "Fellowship and growth for men.", ImageURL: asset("/assets/mens_movement.png")},
		{ID: 4, Title: "Women's Movement", Day: "Tuesday", Time: "6:00 PM - 8:00 PM",
			Description: "Empowering women in faith and life.", ImageURL: asset("/assets/womens_movement.png")},
		{ID: 5, Title: "Bible Studies", Day: "Wednesday", Time: "6:00 PM - 8:00 PM",
			Description: "Deep dive into the Word of God.", ImageURL: asset("/assets/bible_studies.png")},
		{ID: 6, Title: "Youth Service", Day: "Thursday", Time: "6:00 PM - 8:00 PM",
			Description: "Dynamic service for the next generation.", ImageURL: asset("/assets/english_service.png")},
	}
}

// EventStore keeps the recurring weekly events
type EventStore struct {
	repo     EventRepository
	uploader *uploader
	bucket   string
	opts     Options
	events   *cache[models.Event]
}

// NewEventStore creates a new event store
func NewEventStore(repo EventRepository, blobs storage.BlobStore, bucket string, opts Options) *EventStore {
	opts = opts.withDefaults()
	return &EventStore{
		repo:     repo,
		uploader: newUploader(blobs, opts),
		bucket:   bucket,
		opts:     opts,
		events:   newCache[models.Event](),
	}
}

// Load reads every event, falling back to the built-in schedule
func (s *EventStore) Load(ctx context.Context) {
	_ = loadInto(ctx, s.events, "events", s.opts.LoadTimeout, s.repo.List, DefaultEvents)
}

// Refresh re-reads the events
func (s *EventStore) Refresh(ctx context.Context) {
	s.Load(ctx)
}

// MaxImageBytes is the largest image the store accepts
func (s *EventStore) MaxImageBytes() int64 {
	return s.uploader.maxBytes
}

// Loading reports whether the latest load is unresolved
func (s *EventStore) Loading() bool {
	return s.events.Loading()
}

// Events returns the events ordered by id
func (s *EventStore) Events() []models.Event {
	return s.events.snapshot()
}

// AddEvent stores a new event with an optional image
func (s *EventStore) AddEvent(ctx context.Context, in EventInput, image *ImageFile) (*models.Event, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var e models.Event
	in.apply(&e)
	if image != nil {
		url, err := s.uploader.upload(ctx, s.bucket, image)
		if err != nil {
			return nil, err
		}
		e.ImageURL = &url
	}

	if err := s.repo.Create(ctx, &e); err != nil {
		if e.ImageURL != nil {
			s.uploader.remove(context.WithoutCancel(ctx), s.bucket, *e.ImageURL)
		}
		return nil, fmt.Errorf("failed to add event: %w", err)
	}

	s.events.append(e)
	log.Info().Int64("event_id", e.ID).Msg("Event added")
	return &e, nil
}

// UpdateEvent replaces an event's fields, and its image when one is given
func (s *EventStore) UpdateEvent(ctx context.Context, id int64, in EventInput, image *ImageFile) (*models.Event, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	current, err := s.stored(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := current
	in.apply(&updated)
	if image != nil {
		url, err := s.uploader.upload(ctx, s.bucket, image)
		if err != nil {
			return nil, err
		}
		updated.ImageURL = &url
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		if image != nil {
			s.uploader.remove(context.WithoutCancel(ctx), s.bucket, *updated.ImageURL)
		}
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	if image != nil && current.ImageURL != nil {
		s.uploader.remove(ctx, s.bucket, *current.ImageURL)
	}

	if s.events.usingFallback() || !s.events.replace(updated, func(e models.Event) bool { return e.ID == id }) {
		s.Refresh(ctx)
	}
	return &updated, nil
}

// DeleteEvent removes an event and its image
func (s *EventStore) DeleteEvent(ctx context.Context, id int64) error {
	current, err := s.stored(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if current.ImageURL != nil {
		s.uploader.remove(ctx, s.bucket, *current.ImageURL)
	}

	if s.events.usingFallback() {
		s.Refresh(ctx)
	} else {
		s.events.remove(func(e models.Event) bool { return e.ID == id })
	}
	log.Info().Int64("event_id", id).Msg("Event deleted")
	return nil
}

// stored returns the event as the database holds it. The cache answers when
// it holds stored rows; built-in defaults are never edited in place.
func (s *EventStore) stored(ctx context.Context, id int64) (models.Event, error) {
	if !s.events.usingFallback() {
		if e, ok := s.events.find(func(e models.Event) bool { return e.ID == id }); ok {
			return e, nil
		}
	}
	e, err := withDeadline(ctx, s.opts.LoadTimeout, func(ctx context.Context) (*models.Event, error) {
		return s.repo.Get(ctx, id)
	})
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to get event: %w", err)
	}
	return *e, nil
}
