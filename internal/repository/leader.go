package repository

import (
	"context"
	"fmt"

	"church-site-backend/internal/models"
)

// LeaderRepository handles database operations for leaders
type LeaderRepository struct {
	db DBTX
}

// NewLeaderRepository creates a new leader repository
func NewLeaderRepository(db DBTX) *LeaderRepository {
	return &LeaderRepository{db: db}
}

// List returns every leader in creation order
func (r *LeaderRepository) List(ctx context.Context) ([]models.Leader, error) {
	query := `
		SELECT id, name, title, image_url, description, created_at
		FROM leaders
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaders: %w", err)
	}
	defer rows.Close()

	var leaders []models.Leader
	for rows.Next() {
		var l models.Leader
		if err := rows.Scan(&l.ID, &l.Name, &l.Title, &l.ImageURL, &l.Description, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan leader: %w", err)
		}
		leaders = append(leaders, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaders: %w", err)
	}
	return leaders, nil
}

// Get returns one leader by id
func (r *LeaderRepository) Get(ctx context.Context, id string) (*models.Leader, error) {
	query := `
		SELECT id, name, title, image_url, description, created_at
		FROM leaders
		WHERE id = $1
	`
	var l models.Leader
	err := r.db.QueryRow(ctx, query, id).Scan(&l.ID, &l.Name, &l.Title, &l.ImageURL, &l.Description, &l.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("leader %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get leader: %w", err)
	}
	return &l, nil
}

// Create inserts a leader
func (r *LeaderRepository) Create(ctx context.Context, l *models.Leader) error {
	query := `
		INSERT INTO leaders (id, name, title, image_url, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query, l.ID, l.Name, l.Title, l.ImageURL, l.Description).Scan(&l.CreatedAt); err != nil {
		return fmt.Errorf("failed to create leader: %w", err)
	}
	return nil
}

// Update replaces the editable fields of a leader
func (r *LeaderRepository) Update(ctx context.Context, l *models.Leader) error {
	query := `
		UPDATE leaders
		SET name = $2, title = $3, image_url = $4, description = $5
		WHERE id = $1
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, l.ID, l.Name, l.Title, l.ImageURL, l.Description).Scan(&l.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return fmt.Errorf("leader %s: %w", l.ID, ErrNotFound)
		}
		return fmt.Errorf("failed to update leader: %w", err)
	}
	return nil
}

// Delete deletes a leader by id
func (r *LeaderRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM leaders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete leader: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("leader %s: %w", id, ErrNotFound)
	}
	return nil
}
