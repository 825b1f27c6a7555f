package repository

import (
	"context"
	"fmt"

	"church-site-backend/internal/models"
)

// VideoRepository handles database operations for videos
type VideoRepository struct {
	db DBTX
}

// NewVideoRepository creates a new video repository
func NewVideoRepository(db DBTX) *VideoRepository {
	return &VideoRepository{db: db}
}

// List returns every video, newest first
func (r *VideoRepository) List(ctx context.Context) ([]models.Video, error) {
	query := `
		SELECT id, youtube_id, title, description, created_at
		FROM videos
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get videos: %w", err)
	}
	defer rows.Close()

	var videos []models.Video
	for rows.Next() {
		var v models.Video
		if err := rows.Scan(&v.ID, &v.YouTubeID, &v.Title, &v.Description, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating videos: %w", err)
	}
	return videos, nil
}

// Create inserts a video and fills its creation time
func (r *VideoRepository) Create(ctx context.Context, v *models.Video) error {
	query := `
		INSERT INTO videos (id, youtube_id, title, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, v.ID, v.YouTubeID, v.Title, v.Description).Scan(&v.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("video %s: %w", v.YouTubeID, ErrDuplicate)
		}
		return fmt.Errorf("failed to create video: %w", err)
	}
	return nil
}

// Update replaces the editable fields of a video
func (r *VideoRepository) Update(ctx context.Context, v *models.Video) error {
	query := `
		UPDATE videos
		SET youtube_id = $2, title = $3, description = $4
		WHERE id = $1
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, v.ID, v.YouTubeID, v.Title, v.Description).Scan(&v.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return fmt.Errorf("video %s: %w", v.ID, ErrNotFound)
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("video %s: %w", v.YouTubeID, ErrDuplicate)
		}
		return fmt.Errorf("failed to update video: %w", err)
	}
	return nil
}

// Delete deletes a video by id
func (r *VideoRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	return nil
}
