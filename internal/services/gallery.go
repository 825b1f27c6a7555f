package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"church-site-backend/internal/models"
	"church-site-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AlbumRepository is the table gateway for albums
type AlbumRepository interface {
	List(ctx context.Context) ([]models.Album, error)
	Create(ctx context.Context, a *models.Album) error
	Update(ctx context.Context, a *models.Album) error
	Delete(ctx context.Context, id string) error
}

// PhotoRepository is the table gateway for photos
type PhotoRepository interface {
	Create(ctx context.Context, photo *models.Photo) error
	ListByAlbum(ctx context.Context, albumID string) ([]models.Photo, error)
	Delete(ctx context.Context, id string) (*models.Photo, error)
}

// AlbumInput holds the editable fields of an album
type AlbumInput struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AlbumDate   time.Time `json:"album_date"`
}

// GalleryStore keeps the photo albums
type GalleryStore struct {
	albumRepo AlbumRepository
	photoRepo PhotoRepository
	uploader  *uploader
	bucket    string
	opts      Options
	albums    *cache[models.Album]
}

// NewGalleryStore creates a new gallery store
func NewGalleryStore(albumRepo AlbumRepository, photoRepo PhotoRepository, blobs storage.BlobStore, bucket string, opts Options) *GalleryStore {
	opts = opts.withDefaults()
	return &GalleryStore{
		albumRepo: albumRepo,
		photoRepo: photoRepo,
		uploader:  newUploader(blobs, opts),
		bucket:    bucket,
		opts:      opts,
		albums:    newCache[models.Album](),
	}
}

// Load reads the albums, newest first
func (s *GalleryStore) Load(ctx context.Context) {
	_ = s.reload(ctx)
}

func (s *GalleryStore) reload(ctx context.Context) error {
	return loadInto(ctx, s.albums, "albums", s.opts.LoadTimeout, s.albumRepo.List, nil)
}

// MaxImageBytes is the largest image the store accepts
func (s *GalleryStore) MaxImageBytes() int64 {
	return s.uploader.maxBytes
}

// Loading reports whether the latest load is unresolved
func (s *GalleryStore) Loading() bool {
	return s.albums.Loading()
}

// Albums returns the cached albums
func (s *GalleryStore) Albums() []models.Album {
	return s.albums.snapshot()
}

// Photos reads the photos of an album. A failed read yields no photos.
func (s *GalleryStore) Photos(ctx context.Context, albumID string) []models.Photo {
	photos, err := withDeadline(ctx, s.opts.LoadTimeout, func(ctx context.Context) ([]models.Photo, error) {
		return s.photoRepo.ListByAlbum(ctx, albumID)
	})
	if err != nil {
		log.Error().Err(err).Str("album_id", albumID).Msg("Failed to load photos")
		return []models.Photo{}
	}
	if photos == nil {
		photos = []models.Photo{}
	}
	return photos
}

// CreateAlbum stores an album and re-reads the list to keep its order
func (s *GalleryStore) CreateAlbum(ctx context.Context, in AlbumInput) (*models.Album, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, validationError("album title is required")
	}
	album := &models.Album{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		AlbumDate:   in.AlbumDate,
	}
	if album.AlbumDate.IsZero() {
		album.AlbumDate = time.Now().UTC().Truncate(24 * time.Hour)
	}

	if err := s.albumRepo.Create(ctx, album); err != nil {
		return nil, fmt.Errorf("failed to create album: %w", err)
	}

	if err := s.reload(ctx); err != nil {
		s.albums.prepend(*album)
	}
	log.Info().Str("album_id", album.ID).Msg("Album created")
	return album, nil
}

// UpdateAlbum replaces an album's fields and re-reads the list
func (s *GalleryStore) UpdateAlbum(ctx context.Context, id string, in AlbumInput) (*models.Album, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, validationError("album title is required")
	}
	album := &models.Album{
		ID:          id,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		AlbumDate:   in.AlbumDate,
	}
	if err := s.albumRepo.Update(ctx, album); err != nil {
		return nil, fmt.Errorf("failed to update album: %w", err)
	}

	if err := s.reload(ctx); err != nil {
		s.adjustAlbum(id, func(a *models.Album) {
			a.Title = album.Title
			a.Description = album.Description
			a.AlbumDate = album.AlbumDate
		})
	}
	if updated, ok := s.albums.find(func(a models.Album) bool { return a.ID == id }); ok {
		return &updated, nil
	}
	return album, nil
}

// DeleteAlbum removes an album. Photo rows cascade in the database; their
// images are removed afterwards on a best-effort basis.
func (s *GalleryStore) DeleteAlbum(ctx context.Context, id string) error {
	photos, err := s.photoRepo.ListByAlbum(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("album_id", id).Msg("Failed to list album photos before delete")
	}

	if err := s.albumRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete album: %w", err)
	}

	urls := make([]string, 0, len(photos))
	for _, p := range photos {
		urls = append(urls, p.URL)
	}
	s.uploader.removeAll(ctx, s.bucket, urls)

	s.albums.remove(func(a models.Album) bool { return a.ID == id })
	log.Info().Str("album_id", id).Int("photos", len(photos)).Msg("Album deleted")
	return nil
}

// UploadPhoto adds an image to an album
func (s *GalleryStore) UploadPhoto(ctx context.Context, albumID string, file *ImageFile) (*models.Photo, error) {
	if _, ok := s.albums.find(func(a models.Album) bool { return a.ID == albumID }); !ok {
		return nil, fmt.Errorf("album %s: %w", albumID, ErrNotFound)
	}

	url, err := s.uploader.upload(ctx, s.bucket, file)
	if err != nil {
		return nil, err
	}

	photo := &models.Photo{
		ID:      uuid.New().String(),
		AlbumID: albumID,
		URL:     url,
	}
	if err := s.photoRepo.Create(ctx, photo); err != nil {
		s.uploader.remove(context.WithoutCancel(ctx), s.bucket, url)
		return nil, fmt.Errorf("failed to add photo: %w", err)
	}

	s.adjustAlbum(albumID, func(a *models.Album) {
		a.PhotoCount++
		if a.CoverURL == nil {
			cover := photo.URL
			a.CoverURL = &cover
		}
	})
	return photo, nil
}

// DeletePhoto removes a photo and its image
func (s *GalleryStore) DeletePhoto(ctx context.Context, id string) error {
	photo, err := s.photoRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	s.uploader.remove(ctx, s.bucket, photo.URL)

	coverGone := false
	s.adjustAlbum(photo.AlbumID, func(a *models.Album) {
		if a.PhotoCount > 0 {
			a.PhotoCount--
		}
		if a.CoverURL != nil && *a.CoverURL == photo.URL {
			a.CoverURL = nil
			coverGone = a.PhotoCount > 0
		}
	})
	if coverGone {
		s.Load(ctx)
	}
	return nil
}

func (s *GalleryStore) adjustAlbum(id string, fn func(a *models.Album)) {
	album, ok := s.albums.find(func(a models.Album) bool { return a.ID == id })
	if !ok {
		return
	}
	fn(&album)
	s.albums.replace(album, func(a models.Album) bool { return a.ID == id })
}
