package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"church-site-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	youTubeURLPattern = regexp.MustCompile(`^.*(youtu\.be/|v/|u/\w/|embed/|watch\?v=|&v=)([^#&?]*).*`)
	videoIDPattern    = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// ExtractVideoID returns the 11-character YouTube id in input, which may be
// a share, watch or embed URL or the bare id
func ExtractVideoID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if m := youTubeURLPattern.FindStringSubmatch(input); m != nil && len(m[2]) == 11 {
		return m[2], nil
	}
	if videoIDPattern.MatchString(input) {
		return input, nil
	}
	return "", ErrInvalidVideoID
}

// VideoRepository is the table gateway for videos
type VideoRepository interface {
	List(ctx context.Context) ([]models.Video, error)
	Create(ctx context.Context, v *models.Video) error
	Update(ctx context.Context, v *models.Video) error
	Delete(ctx context.Context, id string) error
}

// VideoInput holds the editable fields of a video. URL may be any form
// accepted by ExtractVideoID.
type VideoInput struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// VideoStore keeps the sermon videos, newest first
type VideoStore struct {
	repo   VideoRepository
	opts   Options
	videos *cache[models.Video]
}

// NewVideoStore creates a new video store
func NewVideoStore(repo VideoRepository, opts Options) *VideoStore {
	return &VideoStore{
		repo:   repo,
		opts:   opts.withDefaults(),
		videos: newCache[models.Video](),
	}
}

// Load reads the videos
func (s *VideoStore) Load(ctx context.Context) {
	_ = loadInto(ctx, s.videos, "videos", s.opts.LoadTimeout, s.repo.List, nil)
}

// Loading reports whether the latest load is unresolved
func (s *VideoStore) Loading() bool {
	return s.videos.Loading()
}

// Videos returns the cached videos
func (s *VideoStore) Videos() []models.Video {
	return s.videos.snapshot()
}

func (s *VideoStore) prepare(in VideoInput, selfID string) (models.Video, error) {
	youTubeID, err := ExtractVideoID(in.URL)
	if err != nil {
		return models.Video{}, err
	}
	if strings.TrimSpace(in.Title) == "" {
		return models.Video{}, validationError("video title is required")
	}
	dup, exists := s.videos.find(func(v models.Video) bool { return v.YouTubeID == youTubeID })
	if exists && dup.ID != selfID {
		return models.Video{}, fmt.Errorf("video %s: %w", youTubeID, ErrDuplicate)
	}
	return models.Video{
		YouTubeID:   youTubeID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
	}, nil
}

// AddVideo stores a video unless its YouTube id is already listed
func (s *VideoStore) AddVideo(ctx context.Context, in VideoInput) (*models.Video, error) {
	video, err := s.prepare(in, "")
	if err != nil {
		return nil, err
	}
	video.ID = uuid.New().String()

	if err := s.repo.Create(ctx, &video); err != nil {
		return nil, fmt.Errorf("failed to add video: %w", err)
	}

	s.videos.prepend(video)
	log.Info().Str("video_id", video.ID).Str("youtube_id", video.YouTubeID).Msg("Video added")
	return &video, nil
}

// UpdateVideo replaces a video's fields. Keeping its own YouTube id is not a
// duplicate.
func (s *VideoStore) UpdateVideo(ctx context.Context, id string, in VideoInput) (*models.Video, error) {
	video, err := s.prepare(in, id)
	if err != nil {
		return nil, err
	}
	video.ID = id

	if err := s.repo.Update(ctx, &video); err != nil {
		return nil, fmt.Errorf("failed to update video: %w", err)
	}

	if !s.videos.replace(video, func(v models.Video) bool { return v.ID == id }) {
		log.Warn().Str("video_id", id).Msg("Updated video missing from cache")
	}
	return &video, nil
}

// DeleteVideo removes a video
func (s *VideoStore) DeleteVideo(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	s.videos.remove(func(v models.Video) bool { return v.ID == id })
	return nil
}
