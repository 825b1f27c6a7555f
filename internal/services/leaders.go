package services

import (
	"context"
	"fmt"
	"strings"

	"church-site-backend/internal/models"
	"church-site-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LeaderRepository is the table gateway for leaders
type LeaderRepository interface {
	List(ctx context.Context) ([]models.Leader, error)
	Get(ctx context.Context, id string) (*models.Leader, error)
	Create(ctx context.Context, l *models.Leader) error
	Update(ctx context.Context, l *models.Leader) error
	Delete(ctx context.Context, id string) error
}

// LeaderInput holds the editable fields of a leader
type LeaderInput struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (in LeaderInput) validate() error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Title) == "" {
		return validationError("name and title are required")
	}
	return nil
}

// LeaderStore keeps the church leaders
type LeaderStore struct {
	repo     LeaderRepository
	uploader *uploader
	bucket   string
	opts     Options
	leaders  *cache[models.Leader]
}

// NewLeaderStore creates a new leader store
func NewLeaderStore(repo LeaderRepository, blobs storage.BlobStore, bucket string, opts Options) *LeaderStore {
	opts = opts.withDefaults()
	return &LeaderStore{
		repo:     repo,
		uploader: newUploader(blobs, opts),
		bucket:   bucket,
		opts:     opts,
		leaders:  newCache[models.Leader](),
	}
}

// Load reads the leaders in creation order
func (s *LeaderStore) Load(ctx context.Context) {
	_ = loadInto(ctx, s.leaders, "leaders", s.opts.LoadTimeout, s.repo.List, nil)
}

// Refresh re-reads the leaders
func (s *LeaderStore) Refresh(ctx context.Context) {
	s.Load(ctx)
}

// MaxImageBytes is the largest image the store accepts
func (s *LeaderStore) MaxImageBytes() int64 {
	return s.uploader.maxBytes
}

// Loading reports whether the latest load is unresolved
func (s *LeaderStore) Loading() bool {
	return s.leaders.Loading()
}

// Leaders returns the cached leaders
func (s *LeaderStore) Leaders() []models.Leader {
	return s.leaders.snapshot()
}

// AddLeader stores a leader with an optional portrait
func (s *LeaderStore) AddLeader(ctx context.Context, in LeaderInput, image *ImageFile) (*models.Leader, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	leader := &models.Leader{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(in.Name),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
	}
	if image != nil {
		url, err := s.uploader.upload(ctx, s.bucket, image)
		if err != nil {
			return nil, err
		}
		leader.ImageURL = &url
	}

	if err := s.repo.Create(ctx, leader); err != nil {
		if leader.ImageURL != nil {
			s.uploader.remove(context.WithoutCancel(ctx), s.bucket, *leader.ImageURL)
		}
		return nil, fmt.Errorf("failed to add leader: %w", err)
	}

	s.leaders.append(*leader)
	log.Info().Str("leader_id", leader.ID).Msg("Leader added")
	return leader, nil
}

// UpdateLeader replaces a leader's fields, and the portrait when one is given
func (s *LeaderStore) UpdateLeader(ctx context.Context, id string, in LeaderInput, image *ImageFile) (*models.Leader, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	current, err := s.stored(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := current
	updated.Name = strings.TrimSpace(in.Name)
	updated.Title = strings.TrimSpace(in.Title)
	updated.Description = in.Description
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
		return nil, fmt.Errorf("failed to update leader: %w", err)
	}
	if image != nil && current.ImageURL != nil {
		s.uploader.remove(ctx, s.bucket, *current.ImageURL)
	}

	if !s.leaders.replace(updated, func(l models.Leader) bool { return l.ID == id }) {
		s.Refresh(ctx)
	}
	return &updated, nil
}

// DeleteLeader removes a leader and the portrait
func (s *LeaderStore) DeleteLeader(ctx context.Context, id string) error {
	current, err := s.stored(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete leader: %w", err)
	}
	if current.ImageURL != nil {
		s.uploader.remove(ctx, s.bucket, *current.ImageURL)
	}

	s.leaders.remove(func(l models.Leader) bool { return l.ID == id })
	log.Info().Str("leader_id", id).Msg("Leader deleted")
	return nil
}

// stored returns the leader from the cache, or from the database when the
// cache does not hold it
func (s *LeaderStore) stored(ctx context.Context, id string) (models.Leader, error) {
	if l, ok := s.leaders.find(func(l models.Leader) bool { return l.ID == id }); ok {
		return l, nil
	}
	l, err := withDeadline(ctx, s.opts.LoadTimeout, func(ctx context.Context) (*models.Leader, error) {
		return s.repo.Get(ctx, id)
	})
	if err != nil {
		return models.Leader{}, fmt.Errorf("failed to get leader: %w", err)
	}
	return *l, nil
}
