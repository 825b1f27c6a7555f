package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"church-site-backend/internal/auth"
	"church-site-backend/internal/middleware"
	"church-site-backend/internal/models"
	"church-site-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memVideos struct {
	mu     sync.Mutex
	videos []models.Video
}

func (m *memVideos) List(context.Context) ([]models.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Video(nil), m.videos...), nil
}

func (m *memVideos) Create(_ context.Context, v *models.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videos = append(m.videos, *v)
	return nil
}

func (m *memVideos) Update(_ context.Context, v *models.Video) error { return nil }

func (m *memVideos) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, v := range m.videos {
		if v.ID == id {
			m.videos = append(m.videos[:i], m.videos[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("video %s: %w", id, services.ErrNotFound)
}

type memSlides struct{ slides []models.Slide }

func (m *memSlides) List(context.Context) ([]models.Slide, error) { return m.slides, nil }

func (m *memSlides) Create(_ context.Context, s *models.Slide) error {
	m.slides = append(m.slides, *s)
	return nil
}

func (m *memSlides) Delete(context.Context, string) error { return nil }

type memPages struct{}

func (memPages) List(context.Context) ([]models.Page, error) { return nil, nil }
func (memPages) Upsert(context.Context, *models.Page) error { return nil }

type memBlobs struct{ uploads int }

func (b *memBlobs) Upload(_ context.Context, _, name string, r io.Reader, _ int64, _ string) (string, error) {
	b.uploads++
	_, err := io.Copy(io.Discard, r)
	return name, err
}
func (b *memBlobs) PublicURL(bucket, name string) string { return "https://cdn.test/" + bucket + "/" + name }
func (b *memBlobs) Remove(context.Context, string, []string) error { return nil }
func (b *memBlobs) NameFromURL(string, string) (string, bool) { return "", false }

type memMessages struct{}

func (memMessages) List(context.Context) ([]models.Message, error) { return nil, nil }

func (memMessages) Create(_ context.Context, m *models.Message) (*models.Message, error) {
	out := *m
	out.Version = 1
	out.CreatedAt = time.Now()
	return &out, nil
}

func (memMessages) MarkRead(_ context.Context, id string) (*models.Message, error) {
	return nil, fmt.Errorf("message %s: %w", id, services.ErrNotFound)
}

func (memMessages) Delete(_ context.Context, id string) (*models.Message, error) {
	return nil, fmt.Errorf("message %s: %w", id, services.ErrNotFound)
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) Result {
	t.Helper()
	var res Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: title required", services.ErrValidation), http.StatusBadRequest},
		{services.ErrInvalidVideoID, http.StatusBadRequest},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{auth.ErrInvalidSession, http.StatusUnauthorized},
		{fmt.Errorf("video x: %w", services.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("video x: %w", services.ErrDuplicate), http.StatusConflict},
		{fmt.Errorf("failed to upload image: %w", services.ErrTimeout), http.StatusGatewayTimeout},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusFor(tt.err), tt.err.Error())
	}
}

func TestVideoHandler(t *testing.T) {
	store := services.NewVideoStore(&memVideos{}, services.Options{})
	store.Load(context.Background())
	h := NewVideoHandler(store)

	r := chi.NewRouter()
	r.Get("/videos", h.GetVideos)
	r.Post("/videos", h.CreateVideo)
	r.Delete("/videos/{id}", h.DeleteVideo)

	rec := do(t, r, http.MethodPost, "/videos", strings.NewReader(`{"url":"https://youtu.be/dQw4w9WgXcQ","title":"Sunday sermon"}`), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)
	res := decodeResult(t, rec)
	assert.True(t, res.Success)
	id := res.Data.(map[string]interface{})["id"].(string)

	rec = do(t, r, http.MethodPost, "/videos", strings.NewReader(`{"url":"dQw4w9WgXcQ","title":"Again"}`), "application/json")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, decodeResult(t, rec).Success)

	rec = do(t, r, http.MethodPost, "/videos", strings.NewReader(`{"url":"not a video","title":"Bad"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid YouTube URL or ID", decodeResult(t, rec).Error)

	rec = do(t, r, http.MethodPost, "/videos", strings.NewReader(`{`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/videos", nil, "")
	var videos []models.Video
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &videos))
	assert.Len(t, videos, 1)

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodDelete, "/videos/"+id, nil, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodDelete, "/videos/"+id, nil, "").Code)
}

func multipartImage(t *testing.T, field, name string, size int) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, name))
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{0x89}, size))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestContentHandler_AddSlide(t *testing.T) {
	blobs := &memBlobs{}
	store := services.NewContentStore(&memSlides{}, memPages{}, blobs, "slides", services.Options{})
	store.Load(context.Background())
	h := NewContentHandler(store)

	body, contentType := multipartImage(t, "image", "huge.png", 6*1024*1024)
	rec := do(t, http.HandlerFunc(h.AddSlide), http.MethodPost, "/slides", body, contentType)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeResult(t, rec).Error, "File size exceeds 5MB")
	assert.Zero(t, blobs.uploads)

	body, contentType = multipartImage(t, "image", "easter.png", 1024)
	rec = do(t, http.HandlerFunc(h.AddSlide), http.MethodPost, "/slides", body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, blobs.uploads)
	assert.Len(t, store.Slides(), 1)

	rec = do(t, http.HandlerFunc(h.AddSlide), http.MethodPost, "/slides", strings.NewReader(""), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContentHandler_GetPageFallsBack(t *testing.T) {
	store := services.NewContentStore(&memSlides{}, memPages{}, &memBlobs{}, "slides", services.Options{})
	store.Load(context.Background())
	h := NewContentHandler(store)

	r := chi.NewRouter()
	r.Get("/pages/{slug}", h.GetPage)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/pages/about", nil, "").Code)
}

func TestMessageHandler(t *testing.T) {
	store := services.NewMessageStore(memMessages{}, nil, services.ReconnectPolicy{}, services.Options{})
	store.Load(context.Background())
	h := NewMessageHandler(store)

	r := chi.NewRouter()
	r.Post("/messages", h.SubmitMessage)
	r.Get("/messages", h.GetMessages)
	r.Put("/messages/{id}/read", h.MarkAsRead)

	rec := do(t, r, http.MethodPost, "/messages", strings.NewReader(`{"name":"Yaa","message":"Thank you Lord","type":"Testimony"}`), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, r, http.MethodPost, "/messages", strings.NewReader(`{"name":"Yaa","message":"hi","type":"Other"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/messages", nil, "")
	var inbox struct {
		Messages []models.Message `json:"messages"`
		Unread   int              `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inbox))
	assert.Len(t, inbox.Messages, 1)
	assert.Equal(t, 1, inbox.Unread)

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodPut, "/messages/missing/read", nil, "").Code)
}

func TestAuthHandler_Me(t *testing.T) {
	h := NewAuthHandler(nil)
	identity := &services.Identity{UserID: "u1", Email: "pastor@church.org", ProfileComplete: true}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), identity))
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"u1","email":"pastor@church.org","profile":null,"is_profile_complete":true}`, rec.Body.String())
}

type stubLoadable bool

func (s stubLoadable) Load(context.Context) {}
func (s stubLoadable) Loading() bool { return bool(s) }

func TestReadyHandler(t *testing.T) {
	h := NewReadyHandler(
		[]services.Loadable{stubLoadable(false), stubLoadable(true)},
		map[string]services.Loadable{"content": stubLoadable(false), "events": stubLoadable(true)},
	)
	rec := do(t, http.HandlerFunc(h.Ready), http.MethodGet, "/ready", nil, "")
	assert.JSONEq(t, `{"ready":false,"loading":{"content":false,"events":true}}`, rec.Body.String())
}

type memCalendar struct {
	events   []models.CalendarEvent
	from, to time.Time
}

func (m *memCalendar) ListBetween(_ context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	m.from, m.to = from, to
	var out []models.CalendarEvent
	for _, e := range m.events {
		if !e.EventDate.Before(from) && !e.EventDate.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memCalendar) Create(context.Context, *models.CalendarEvent) error { return nil }
func (m *memCalendar) Delete(context.Context, string) error { return nil }

func TestEventHandler_CalendarWestOfUTC(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	repo := &memCalendar{events: []models.CalendarEvent{
		{ID: "c1", Title: "Youth night", EventDate: time.Date(2024, 6, 1, 19, 0, 0, 0, loc)},
		{ID: "c2", Title: "Communion service", EventDate: time.Date(2024, 6, 2, 10, 0, 0, 0, loc)},
	}}
	calendar := services.NewCalendarStore(repo, loc, services.Options{})
	h := NewEventHandler(nil, calendar)

	r := chi.NewRouter()
	r.Get("/calendar", h.GetCalendar)
	r.Get("/calendar/day/{date}", h.GetCalendarDay)

	rec := do(t, r, http.MethodGet, "/calendar?month=2024-06", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var window struct {
		Month  string                 `json:"month"`
		Events []models.CalendarEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &window))
	assert.Equal(t, "2024-06", window.Month)
	assert.True(t, repo.from.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, loc)), "from = %s", repo.from)
	assert.Len(t, window.Events, 2)

	rec = do(t, r, http.MethodGet, "/calendar/day/2024-06-02", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var day []models.CalendarEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &day))
	require.Len(t, day, 1)
	assert.Equal(t, "Communion service", day[0].Title)

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/calendar?month=June", nil, "").Code)
}

func TestParseMultipart_LimitsBody(t *testing.T) {
	body, contentType := multipartImage(t, "image", "banner.png", 2<<20)
	req := httptest.NewRequest(http.MethodPost, "/slides", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	assert.False(t, parseMultipart(rec, req, 1<<20, 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeResult(t, rec).Error, "File size exceeds 1MB")
	assert.Nil(t, req.MultipartForm)

	body, contentType = multipartImage(t, "image", "small.png", 256<<10)
	req = httptest.NewRequest(http.MethodPost, "/slides", body)
	req.Header.Set("Content-Type", contentType)
	assert.True(t, parseMultipart(httptest.NewRecorder(), req, 1<<20, 1))
	require.NotNil(t, req.MultipartForm)
	assert.Len(t, req.MultipartForm.File["image"], 1)

	req = httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	assert.True(t, parseMultipart(httptest.NewRecorder(), req, 1<<20, 1))
}
