package services

import (
	"context"
	"testing"

	"church-site-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGallery(t *testing.T) (*GalleryStore, *fakeBlobs, *photoRepo) {
	t.Helper()
	albums, photos := newGalleryRepos()
	blobs := newFakeBlobs()
	return NewGalleryStore(albums, photos, blobs, "gallery", Options{}), blobs, photos
}

func TestGalleryStore_AlbumLifecycle(t *testing.T) {
	s, blobs, _ := newGallery(t)
	s.Load(context.Background())
	assert.Empty(t, s.Albums())

	_, err := s.CreateAlbum(context.Background(), AlbumInput{})
	assert.ErrorIs(t, err, ErrValidation)

	album, err := s.CreateAlbum(context.Background(), AlbumInput{Title: "Easter 2025"})
	require.NoError(t, err)
	assert.False(t, album.AlbumDate.IsZero())
	require.Len(t, s.Albums(), 1)

	updated, err := s.UpdateAlbum(context.Background(), album.ID, AlbumInput{Title: "Easter Sunday", AlbumDate: album.AlbumDate})
	require.NoError(t, err)
	assert.Equal(t, "Easter Sunday", updated.Title)

	_, err = s.UploadPhoto(context.Background(), album.ID, imageOf("a.jpg", 10))
	require.NoError(t, err)
	_, err = s.UploadPhoto(context.Background(), album.ID, imageOf("b.jpg", 10))
	require.NoError(t, err)

	require.NoError(t, s.DeleteAlbum(context.Background(), album.ID))
	assert.Empty(t, s.Albums())
	assert.Len(t, blobs.removed, 2)
}

func TestGalleryStore_UploadPhotoTracksCountAndCover(t *testing.T) {
	s, _, _ := newGallery(t)
	album, err := s.CreateAlbum(context.Background(), AlbumInput{Title: "Choir"})
	require.NoError(t, err)

	first, err := s.UploadPhoto(context.Background(), album.ID, imageOf("a.jpg", 10))
	require.NoError(t, err)
	_, err = s.UploadPhoto(context.Background(), album.ID, imageOf("b.jpg", 10))
	require.NoError(t, err)

	cached := s.Albums()[0]
	assert.Equal(t, 2, cached.PhotoCount)
	require.NotNil(t, cached.CoverURL)
	assert.Equal(t, first.URL, *cached.CoverURL)
	assert.Len(t, s.Photos(context.Background(), album.ID), 2)
}

func TestGalleryStore_UploadToUnknownAlbum(t *testing.T) {
	s, blobs, _ := newGallery(t)
	s.Load(context.Background())

	_, err := s.UploadPhoto(context.Background(), "missing", imageOf("a.jpg", 10))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, blobs.uploadCount())
}

func TestGalleryStore_DeletePhoto(t *testing.T) {
	s, blobs, _ := newGallery(t)
	album, err := s.CreateAlbum(context.Background(), AlbumInput{Title: "Choir"})
	require.NoError(t, err)
	photo, err := s.UploadPhoto(context.Background(), album.ID, imageOf("a.jpg", 10))
	require.NoError(t, err)

	require.NoError(t, s.DeletePhoto(context.Background(), photo.ID))

	cached := s.Albums()[0]
	assert.Equal(t, 0, cached.PhotoCount)
	assert.Nil(t, cached.CoverURL)
	assert.Len(t, blobs.removed, 1)
	assert.ErrorIs(t, s.DeletePhoto(context.Background(), photo.ID), ErrNotFound)
}

func TestGalleryStore_PhotosFailureIsEmpty(t *testing.T) {
	s, _, photos := newGallery(t)
	photos.listErr = errRemote

	got := s.Photos(context.Background(), "any")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGalleryStore_LoadDerivesCover(t *testing.T) {
	albums, photos := newGalleryRepos()
	albums.rows = []models.Album{{ID: "a1", Title: "Harvest"}}
	photos.rows = []models.Photo{{ID: "p1", AlbumID: "a1", URL: "https://cdn.test/gallery/p1.jpg"}}
	s := NewGalleryStore(albums, photos, newFakeBlobs(), "gallery", Options{})

	s.Load(context.Background())

	require.Len(t, s.Albums(), 1)
	assert.Equal(t, 1, s.Albums()[0].PhotoCount)
	assert.Equal(t, "https://cdn.test/gallery/p1.jpg", *s.Albums()[0].CoverURL)
}

func TestGalleryStore_FailedReloadKeepsAlbums(t *testing.T) {
	albums, photos := newGalleryRepos()
	s := NewGalleryStore(albums, photos, newFakeBlobs(), "gallery", Options{})
	existing, err := s.CreateAlbum(context.Background(), AlbumInput{Title: "Harvest"})
	require.NoError(t, err)
	require.Len(t, s.Albums(), 1)

	albums.listErr = errRemote
	created, err := s.CreateAlbum(context.Background(), AlbumInput{Title: "Baptisms"})
	require.NoError(t, err)
	require.Len(t, s.Albums(), 2)
	assert.Equal(t, created.ID, s.Albums()[0].ID)
	assert.False(t, s.Loading())

	_, err = s.UpdateAlbum(context.Background(), existing.ID, AlbumInput{Title: "Harvest Thanksgiving"})
	require.NoError(t, err)
	titles := []string{s.Albums()[0].Title, s.Albums()[1].Title}
	assert.Contains(t, titles, "Harvest Thanksgiving")
}
