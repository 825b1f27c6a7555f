package repository

import (
	"context"
	"fmt"

	"church-site-backend/internal/models"
)

// PhotoRepository handles database operations for gallery photos
type PhotoRepository struct {
	db DBTX
}

// NewPhotoRepository creates a new photo repository
func NewPhotoRepository(db DBTX) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Create creates a new photo
func (r *PhotoRepository) Create(ctx context.Context, photo *models.Photo) error {
	query := `
		INSERT INTO photos (id, album_id, url)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	if err := r.db.QueryRow(ctx, query, photo.ID, photo.AlbumID, photo.URL).Scan(&photo.CreatedAt); err != nil {
		return fmt.Errorf("failed to create photo: %w", err)
	}
	return nil
}

// GetByID retrieves a photo by ID
func (r *PhotoRepository) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	query := `
		SELECT id, album_id, url, created_at
		FROM photos
		WHERE id = $1
	`
	var photo models.Photo
	err := r.db.QueryRow(ctx, query, id).Scan(&photo.ID, &photo.AlbumID, &photo.URL, &photo.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("photo %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return &photo, nil
}

// ListByAlbum retrieves the photos of an album, newest first
func (r *PhotoRepository) ListByAlbum(ctx context.Context, albumID string) ([]models.Photo, error) {
	query := `
		SELECT id, album_id, url, created_at
		FROM photos
		WHERE album_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, albumID)
	if err != nil {
		return nil, fmt.Errorf("failed to get photos: %w", err)
	}
	defer rows.Close()

	var photos []models.Photo
	for rows.Next() {
		var photo models.Photo
		if err := rows.Scan(&photo.ID, &photo.AlbumID, &photo.URL, &photo.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}
	return photos, nil
}

// Delete deletes a photo and returns the removed row
func (r *PhotoRepository) Delete(ctx context.Context, id string) (*models.Photo, error) {
	query := `DELETE FROM photos WHERE id = $1 RETURNING id, album_id, url, created_at`
	var photo models.Photo
	err := r.db.QueryRow(ctx, query, id).Scan(&photo.ID, &photo.AlbumID, &photo.URL, &photo.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("photo %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to delete photo: %w", err)
	}
	return &photo, nil
}
