package repository

import (
	"context"
	"fmt"

	"church-site-backend/internal/models"
)

// SlideRepository handles database operations for slides
type SlideRepository struct {
	db DBTX
}

// NewSlideRepository creates a new slide repository
func NewSlideRepository(db DBTX) *SlideRepository {
	return &SlideRepository{db: db}
}

// List returns every slide, oldest first
func (r *SlideRepository) List(ctx context.Context) ([]models.Slide, error) {
	query := `
		SELECT id, src, alt, created_at
		FROM slides
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get slides: %w", err)
	}
	defer rows.Close()

	var slides []models.Slide
	for rows.Next() {
		var s models.Slide
		if err := rows.Scan(&s.ID, &s.Src, &s.Alt, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan slide: %w", err)
		}
		slides = append(slides, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating slides: %w", err)
	}
	return slides, nil
}

// Create inserts a slide and fills its creation time
func (r *SlideRepository) Create(ctx context.Context, slide *models.Slide) error {
	query := `
		INSERT INTO slides (id, src, alt)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query, slide.ID, slide.Src, slide.Alt).Scan(&slide.CreatedAt); err != nil {
		return fmt.Errorf("failed to create slide: %w", err)
	}
	return nil
}

// Delete deletes a slide by ID
func (r *SlideRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM slides WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete slide: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("slide %s: %w", id, ErrNotFound)
	}
	return nil
}
