package services

import (
	"context"
	"fmt"
	"strings"

	"church-site-backend/internal/models"
	"church-site-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const defaultSlidePrefix = "default-"

// SlideRepository is the table gateway for slides
type SlideRepository interface {
	List(ctx context.Context) ([]models.Slide, error)
	Create(ctx context.Context, slide *models.Slide) error
	Delete(ctx context.Context, id string) error
}

// PageRepository is the table gateway for pages
type PageRepository interface {
	List(ctx context.Context) ([]models.Page, error)
	Upsert(ctx context.Context, page *models.Page) error
}

// DefaultSlides is the carousel shown when no slide is stored
func DefaultSlides() []models.Slide {
	return []models.Slide{
		{ID: defaultSlidePrefix + "1", Src: "/assets/english_service.png", Alt: "English Service"},
		{ID: defaultSlidePrefix + "2", Src: "/assets/twi_service.png", Alt: "Twi Service"},
		{ID: defaultSlidePrefix + "3", Src: "/assets/prayer_bg.png", Alt: "Prayer"},
		{ID: defaultSlidePrefix + "4", Src: "/assets/testimony_bg.png", Alt: "Testimony"},
	}
}

// ContentStore keeps the home page slides and the editable pages
type ContentStore struct {
	slideRepo SlideRepository
	pageRepo  PageRepository
	uploader  *uploader
	bucket    string
	opts      Options

	slides *cache[models.Slide]
	pages  *cache[models.Page]
}

// NewContentStore creates a new content store
func NewContentStore(slideRepo SlideRepository, pageRepo PageRepository, blobs storage.BlobStore, bucket string, opts Options) *ContentStore {
	opts = opts.withDefaults()
	return &ContentStore{
		slideRepo: slideRepo,
		pageRepo:  pageRepo,
		uploader:  newUploader(blobs, opts),
		bucket:    bucket,
		opts:      opts,
		slides:    newCache[models.Slide](),
		pages:     newCache[models.Page](),
	}
}

// Load reads slides and pages in parallel
func (s *ContentStore) Load(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_ = loadInto(ctx, s.slides, "slides", s.opts.LoadTimeout, s.slideRepo.List, DefaultSlides)
		return nil
	})
	g.Go(func() error {
		_ = loadInto(ctx, s.pages, "pages", s.opts.LoadTimeout, s.pageRepo.List, nil)
		return nil
	})
	_ = g.Wait()
}

// MaxImageBytes is the largest image the store accepts
func (s *ContentStore) MaxImageBytes() int64 {
	return s.uploader.maxBytes
}

// Loading reports whether either collection is still loading
func (s *ContentStore) Loading() bool {
	return s.slides.Loading() || s.pages.Loading()
}

// Slides returns the carousel slides
func (s *ContentStore) Slides() []models.Slide {
	return s.slides.snapshot()
}

// Pages returns every stored page
func (s *ContentStore) Pages() []models.Page {
	return s.pages.snapshot()
}

// Page returns the stored page for slug. ok is false when the caller should
// fall back to its built-in content.
func (s *ContentStore) Page(slug string) (models.Page, bool) {
	return s.pages.find(func(p models.Page) bool { return p.Slug == slug })
}

// AddSlide uploads an image and appends it to the carousel
func (s *ContentStore) AddSlide(ctx context.Context, file *ImageFile) (*models.Slide, error) {
	url, err := s.uploader.upload(ctx, s.bucket, file)
	if err != nil {
		return nil, err
	}

	slide := &models.Slide{
		ID:  uuid.New().String(),
		Src: url,
		Alt: file.Name,
	}
	if err := s.slideRepo.Create(ctx, slide); err != nil {
		s.uploader.remove(context.WithoutCancel(ctx), s.bucket, url)
		return nil, fmt.Errorf("failed to add slide: %w", err)
	}

	s.slides.append(*slide)
	log.Info().Str("slide_id", slide.ID).Msg("Slide added")
	return slide, nil
}

// RemoveSlide deletes a stored slide and its image
func (s *ContentStore) RemoveSlide(ctx context.Context, id string) error {
	slide, ok := s.slides.find(func(sl models.Slide) bool { return sl.ID == id })
	if !ok {
		return fmt.Errorf("slide %s: %w", id, ErrNotFound)
	}
	if s.slides.usingFallback() || strings.HasPrefix(slide.ID, defaultSlidePrefix) {
		return validationError("built-in slides cannot be removed")
	}

	if err := s.slideRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to remove slide: %w", err)
	}
	s.uploader.remove(ctx, s.bucket, slide.Src)

	s.slides.remove(func(sl models.Slide) bool { return sl.ID == id })
	log.Info().Str("slide_id", id).Msg("Slide removed")
	return nil
}

// ResetToDefaults re-reads the slides, showing the built-in set when none
// are stored
func (s *ContentStore) ResetToDefaults(ctx context.Context) {
	_ = loadInto(ctx, s.slides, "slides", s.opts.LoadTimeout, s.slideRepo.List, DefaultSlides)
}

// UpdatePage creates or replaces the page for slug
func (s *ContentStore) UpdatePage(ctx context.Context, slug, title, content string) (*models.Page, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, validationError("page slug is required")
	}

	page := &models.Page{Slug: slug, Title: title, Content: content}
	if err := s.pageRepo.Upsert(ctx, page); err != nil {
		return nil, fmt.Errorf("failed to update page: %w", err)
	}

	if !s.pages.replace(*page, func(p models.Page) bool { return p.Slug == slug }) {
		s.pages.append(*page)
	}
	return page, nil
}
