package repository

import (
	"context"
	"fmt"
	"time"

	"church-site-backend/internal/models"
)

// CalendarRepository handles database operations for dated calendar events
type CalendarRepository struct {
	db DBTX
}

// NewCalendarRepository creates a new calendar repository
func NewCalendarRepository(db DBTX) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// ListBetween returns events with from <= event_date <= to, earliest first
func (r *CalendarRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	query := `
		SELECT id, title, event_date, time, description, location
		FROM calendar_events
		WHERE event_date >= $1 AND event_date <= $2
		ORDER BY event_date ASC
	`
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get calendar events: %w", err)
	}
	defer rows.Close()

	var events []models.CalendarEvent
	for rows.Next() {
		var e models.CalendarEvent
		if err := rows.Scan(&e.ID, &e.Title, &e.EventDate, &e.Time, &e.Description, &e.Location); err != nil {
			return nil, fmt.Errorf("failed to scan calendar event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calendar events: %w", err)
	}
	return events, nil
}

// Create inserts a calendar event
func (r *CalendarRepository) Create(ctx context.Context, e *models.CalendarEvent) error {
	query := `
		INSERT INTO calendar_events (id, title, event_date, time, description, location)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.Exec(ctx, query, e.ID, e.Title, e.EventDate, e.Time, e.Description, e.Location); err != nil {
		return fmt.Errorf("failed to create calendar event: %w", err)
	}
	return nil
}

// Delete deletes a calendar event by id
func (r *CalendarRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM calendar_events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete calendar event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("calendar event %s: %w", id, ErrNotFound)
	}
	return nil
}
