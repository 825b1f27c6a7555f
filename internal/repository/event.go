package repository

import (
	"context"
	"fmt"

	"church-site-backend/internal/models"
)

const eventColumns = `id, title, day, time, description, detailed_description, image, leader_name, leader_role`

// EventRepository handles database operations for recurring events
type EventRepository struct {
	db DBTX
}

// NewEventRepository creates a new event repository
func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{db: db}
}

func scanEvent(row interface{ Scan(...any) error }, e *models.Event) error {
	return row.Scan(&e.ID, &e.Title, &e.Day, &e.Time, &e.Description,
		&e.DetailedDescription, &e.ImageURL, &e.LeaderName, &e.LeaderRole)
}

// List returns every event ordered by id
func (r *EventRepository) List(ctx context.Context) ([]models.Event, error) {
	rows, err := r.db.Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// Get returns one event by id
func (r *EventRepository) Get(ctx context.Context, id int64) (*models.Event, error) {
	var e models.Event
	err := scanEvent(r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id), &e)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("event %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &e, nil
}

// Create inserts an event and fills its generated id
func (r *EventRepository) Create(ctx context.Context, e *models.Event) error {
	query := `
		INSERT INTO events (title, day, time, description, detailed_description, image, leader_name, leader_role)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, e.Title, e.Day, e.Time, e.Description,
		e.DetailedDescription, e.ImageURL, e.LeaderName, e.LeaderRole).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

// Update replaces every editable column of an event
func (r *EventRepository) Update(ctx context.Context, e *models.Event) error {
	query := `
		UPDATE events
		SET title = $2, day = $3, time = $4, description = $5, detailed_description = $6,
		    image = $7, leader_name = $8, leader_role = $9
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query, e.ID, e.Title, e.Day, e.Time, e.Description,
		e.DetailedDescription, e.ImageURL, e.LeaderName, e.LeaderRole)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("event %d: %w", e.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes an event by id
func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("event %d: %w", id, ErrNotFound)
	}
	return nil
}
