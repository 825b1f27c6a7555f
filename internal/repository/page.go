package repository

import (
	"context"
	"fmt"

	"church-site-backend/internal/models"
)

// PageRepository handles database operations for pages
type PageRepository struct {
	db DBTX
}

// NewPageRepository creates a new page repository
func NewPageRepository(db DBTX) *PageRepository {
	return &PageRepository{db: db}
}

// List returns every stored page
func (r *PageRepository) List(ctx context.Context) ([]models.Page, error) {
	rows, err := r.db.Query(ctx, `SELECT slug, title, content, updated_at FROM pages`)
	if err != nil {
		return nil, fmt.Errorf("failed to get pages: %w", err)
	}
	defer rows.Close()

	var pages []models.Page
	for rows.Next() {
		var p models.Page
		if err := rows.Scan(&p.Slug, &p.Title, &p.Content, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pages: %w", err)
	}
	return pages, nil
}

// Upsert inserts the page or replaces the one with the same slug
func (r *PageRepository) Upsert(ctx context.Context, page *models.Page) error {
	query := `
		INSERT INTO pages (slug, title, content, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (slug) DO UPDATE
		SET title = EXCLUDED.title, content = EXCLUDED.content, updated_at = now()
		RETURNING updated_at
	`
	if err := r.db.QueryRow(ctx, query, page.Slug, page.Title, page.Content).Scan(&page.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert page: %w", err)
	}
	return nil
}
