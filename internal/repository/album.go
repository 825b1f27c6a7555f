package repository

import (
	"context"
	"fmt"

	"church-site-backend/internal/models"
)

// AlbumRepository handles database operations for gallery albums
type AlbumRepository struct {
	db DBTX
}

// NewAlbumRepository creates a new album repository
func NewAlbumRepository(db DBTX) *AlbumRepository {
	return &AlbumRepository{db: db}
}

// List returns albums newest first, each with its photo count and the URL of
// one photo to use as cover
func (r *AlbumRepository) List(ctx context.Context) ([]models.Album, error) {
	query := `
		SELECT a.id, a.title, a.description, a.album_date, a.created_at,
		       (SELECT COUNT(*) FROM photos p WHERE p.album_id = a.id),
		       (SELECT p.url FROM photos p WHERE p.album_id = a.id ORDER BY p.created_at ASC LIMIT 1)
		FROM albums a
		ORDER BY a.album_date DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get albums: %w", err)
	}
	defer rows.Close()

	var albums []models.Album
	for rows.Next() {
		var a models.Album
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.AlbumDate, &a.CreatedAt, &a.PhotoCount, &a.CoverURL); err != nil {
			return nil, fmt.Errorf("failed to scan album: %w", err)
		}
		albums = append(albums, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating albums: %w", err)
	}
	return albums, nil
}

// Create inserts an album
func (r *AlbumRepository) Create(ctx context.Context, a *models.Album) error {
	query := `
		INSERT INTO albums (id, title, description, album_date)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query, a.ID, a.Title, a.Description, a.AlbumDate).Scan(&a.CreatedAt); err != nil {
		return fmt.Errorf("failed to create album: %w", err)
	}
	return nil
}

// Update replaces the editable fields of an album
func (r *AlbumRepository) Update(ctx context.Context, a *models.Album) error {
	query := `UPDATE albums SET title = $2, description = $3, album_date = $4 WHERE id = $1`
	result, err := r.db.Exec(ctx, query, a.ID, a.Title, a.Description, a.AlbumDate)
	if err != nil {
		return fmt.Errorf("failed to update album: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("album %s: %w", a.ID, ErrNotFound)
	}
	return nil
}

// Delete deletes an album; its photo rows cascade
func (r *AlbumRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM albums WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete album: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("album %s: %w", id, ErrNotFound)
	}
	return nil
}
