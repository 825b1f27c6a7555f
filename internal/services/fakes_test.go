package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"church-site-backend/internal/models"
	"church-site-backend/internal/realtime"
)

var errRemote = errors.New("remote unavailable")

// hang blocks until ctx ends, like a request that never resolves
func hang(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

type fakeBlobs struct {
	mu       sync.Mutex
	uploads  map[string][]byte
	removed  []string
	failWith error
	delay    time.Duration
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{uploads: map[string][]byte{}}
}

func (b *fakeBlobs) Upload(ctx context.Context, bucket, name string, r io.Reader, _ int64, _ string) (string, error) {
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if b.failWith != nil {
		return "", b.failWith
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	b.uploads[bucket+"/"+name] = data
	b.mu.Unlock()
	return name, nil
}

func (b *fakeBlobs) PublicURL(bucket, name string) string {
	return "https://cdn.test/" + bucket + "/" + name
}

func (b *fakeBlobs) Remove(_ context.Context, bucket string, names []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, n := range names {
		b.removed = append(b.removed, bucket+"/"+n)
	}
	return nil
}

func (b *fakeBlobs) NameFromURL(bucket, url string) (string, bool) {
	prefix := "https://cdn.test/" + bucket + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

func (b *fakeBlobs) uploadCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.uploads)
}

func imageOf(name string, size int) *ImageFile {
	return &ImageFile{
		Name:        name,
		ContentType: "image/png",
		Size:        int64(size),
		Reader:      strings.NewReader(strings.Repeat("x", size)),
	}
}

// table is an in-memory collection keyed by id
type table[T any] struct {
	mu      sync.Mutex
	rows    []T
	id      func(T) string
	listErr error
	hang    bool
}

func (t *table[T]) list(ctx context.Context) ([]T, error) {
	if t.hang {
		return nil, hang(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listErr != nil {
		return nil, t.listErr
	}
	out := make([]T, len(t.rows))
	copy(out, t.rows)
	return out, nil
}

func (t *table[T]) get(id string) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, row := range t.rows {
		if t.id(row) == id {
			return row, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("row %s: %w", id, ErrNotFound)
}

func (t *table[T]) insert(row T) {
	t.mu.Lock()
	t.rows = append(t.rows, row)
	t.mu.Unlock()
}

func (t *table[T]) update(row T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.rows {
		if t.id(t.rows[i]) == t.id(row) {
			t.rows[i] = row
			return nil
		}
	}
	return fmt.Errorf("row %s: %w", t.id(row), ErrNotFound)
}

func (t *table[T]) delete(id string) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.rows {
		if t.id(t.rows[i]) == id {
			row := t.rows[i]
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			return row, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("row %s: %w", id, ErrNotFound)
}

type slideRepo struct{ table[models.Slide] }

func newSlideRepo(rows ...models.Slide) *slideRepo {
	return &slideRepo{table[models.Slide]{rows: rows, id: func(s models.Slide) string { return s.ID }}}
}

func (r *slideRepo) List(ctx context.Context) ([]models.Slide, error) {
	return r.list(ctx)
}

func (r *slideRepo) Create(_ context.Context, s *models.Slide) error {
	s.CreatedAt = time.Now()
	r.insert(*s)
	return nil
}

func (r *slideRepo) Delete(_ context.Context, id string) error {
	_, err := r.delete(id)
	return err
}

type pageRepo struct{ table[models.Page] }

func newPageRepo(rows ...models.Page) *pageRepo {
	return &pageRepo{table[models.Page]{rows: rows, id: func(p models.Page) string { return p.Slug }}}
}

func (r *pageRepo) List(ctx context.Context) ([]models.Page, error) {
	return r.list(ctx)
}

func (r *pageRepo) Upsert(_ context.Context, p *models.Page) error {
	p.UpdatedAt = time.Now()
	if err := r.update(*p); err != nil {
		r.insert(*p)
	}
	return nil
}

type eventRepo struct {
	table[models.Event]
	nextID int64
}

func newEventRepo(rows ...models.Event) *eventRepo {
	return &eventRepo{table: table[models.Event]{rows: rows, id: func(e models.Event) string { return fmt.Sprint(e.ID) }}, nextID: 100}
}

func (r *eventRepo) List(ctx context.Context) ([]models.Event, error) {
	return r.list(ctx)
}

func (r *eventRepo) Get(_ context.Context, id int64) (*models.Event, error) {
	e, err := r.get(fmt.Sprint(id))
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *eventRepo) Create(_ context.Context, e *models.Event) error {
	r.nextID++
	e.ID = r.nextID
	r.insert(*e)
	return nil
}

func (r *eventRepo) Update(_ context.Context, e *models.Event) error {
	return r.update(*e)
}

func (r *eventRepo) Delete(_ context.Context, id int64) error {
	_, err := r.delete(fmt.Sprint(id))
	return err
}

type calendarRepo struct {
	table[models.CalendarEvent]
}

func newCalendarRepo(rows ...models.CalendarEvent) *calendarRepo {
	return &calendarRepo{table: table[models.CalendarEvent]{rows: rows, id: func(e models.CalendarEvent) string { return e.ID }}}
}

func (r *calendarRepo) ListBetween(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	rows, err := r.list(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.CalendarEvent
	for _, e := range rows {
		if !e.EventDate.Before(from) && !e.EventDate.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *calendarRepo) Create(_ context.Context, e *models.CalendarEvent) error {
	r.insert(*e)
	return nil
}

func (r *calendarRepo) Delete(_ context.Context, id string) error {
	_, err := r.delete(id)
	return err
}

type albumRepo struct {
	table[models.Album]
	photos *photoRepo
}

func (r *albumRepo) List(ctx context.Context) ([]models.Album, error) {
	albums, err := r.list(ctx)
	if err != nil {
		return nil, err
	}
	for i := range albums {
		photos, _ := r.photos.ListByAlbum(ctx, albums[i].ID)
		albums[i].PhotoCount = len(photos)
		albums[i].CoverURL = nil
		if len(photos) > 0 {
			url := photos[len(photos)-1].URL
			albums[i].CoverURL = &url
		}
	}
	return albums, nil
}

func (r *albumRepo) Create(_ context.Context, a *models.Album) error {
	r.insert(*a)
	return nil
}

func (r *albumRepo) Update(_ context.Context, a *models.Album) error {
	return r.update(*a)
}

func (r *albumRepo) Delete(_ context.Context, id string) error {
	if _, err := r.delete(id); err != nil {
		return err
	}
	r.photos.mu.Lock()
	defer r.photos.mu.Unlock()
	kept := r.photos.rows[:0]
	for _, p := range r.photos.rows {
		if p.AlbumID != id {
			kept = append(kept, p)
		}
	}
	r.photos.rows = kept
	return nil
}

type photoRepo struct{ table[models.Photo] }

func newGalleryRepos() (*albumRepo, *photoRepo) {
	photos := &photoRepo{table[models.Photo]{id: func(p models.Photo) string { return p.ID }}}
	albums := &albumRepo{table: table[models.Album]{id: func(a models.Album) string { return a.ID }}, photos: photos}
	return albums, photos
}

func (r *photoRepo) Create(_ context.Context, p *models.Photo) error {
	p.CreatedAt = time.Now()
	r.insert(*p)
	return nil
}

func (r *photoRepo) ListByAlbum(ctx context.Context, albumID string) ([]models.Photo, error) {
	rows, err := r.list(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Photo
	for _, p := range rows {
		if p.AlbumID == albumID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *photoRepo) Delete(_ context.Context, id string) (*models.Photo, error) {
	p, err := r.delete(id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type leaderRepo struct{ table[models.Leader] }

func newLeaderRepo(rows ...models.Leader) *leaderRepo {
	return &leaderRepo{table[models.Leader]{rows: rows, id: func(l models.Leader) string { return l.ID }}}
}

func (r *leaderRepo) List(ctx context.Context) ([]models.Leader, error) {
	return r.list(ctx)
}

func (r *leaderRepo) Get(_ context.Context, id string) (*models.Leader, error) {
	l, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *leaderRepo) Create(_ context.Context, l *models.Leader) error {
	l.CreatedAt = time.Now()
	r.insert(*l)
	return nil
}

func (r *leaderRepo) Update(_ context.Context, l *models.Leader) error {
	return r.update(*l)
}

func (r *leaderRepo) Delete(_ context.Context, id string) error {
	_, err := r.delete(id)
	return err
}

type videoRepo struct{ table[models.Video] }

func newVideoRepo(rows ...models.Video) *videoRepo {
	return &videoRepo{table[models.Video]{rows: rows, id: func(v models.Video) string { return v.ID }}}
}

func (r *videoRepo) List(ctx context.Context) ([]models.Video, error) {
	return r.list(ctx)
}

func (r *videoRepo) Create(_ context.Context, v *models.Video) error {
	v.CreatedAt = time.Now()
	r.insert(*v)
	return nil
}

func (r *videoRepo) Update(_ context.Context, v *models.Video) error {
	return r.update(*v)
}

func (r *videoRepo) Delete(_ context.Context, id string) error {
	_, err := r.delete(id)
	return err
}

// messageRepo mimics the versioned messages table and echoes every write
// on a realtime feed
type messageRepo struct {
	table[models.Message]
	feed *fakeFeed
}

func newMessageRepo(feed *fakeFeed, rows ...models.Message) *messageRepo {
	return &messageRepo{table: table[models.Message]{rows: rows, id: func(m models.Message) string { return m.ID }}, feed: feed}
}

func (r *messageRepo) List(ctx context.Context) ([]models.Message, error) {
	return r.list(ctx)
}

func (r *messageRepo) Create(_ context.Context, m *models.Message) (*models.Message, error) {
	out := *m
	out.Version = 1
	out.CreatedAt = time.Now()
	out.UpdatedAt = out.CreatedAt
	r.insert(out)
	r.feed.emit(realtime.Insert, out)
	return &out, nil
}

func (r *messageRepo) MarkRead(_ context.Context, id string) (*models.Message, error) {
	r.mu.Lock()
	var out *models.Message
	for i := range r.rows {
		if r.rows[i].ID == id {
			r.rows[i].Read = true
			r.rows[i].Version++
			row := r.rows[i]
			out = &row
		}
	}
	r.mu.Unlock()
	if out == nil {
		return nil, fmt.Errorf("message %s: %w", id, ErrNotFound)
	}
	r.feed.emit(realtime.Update, *out)
	return out, nil
}

func (r *messageRepo) Delete(_ context.Context, id string) (*models.Message, error) {
	row, err := r.delete(id)
	if err != nil {
		return nil, err
	}
	row.Version++
	r.feed.emit(realtime.Delete, row)
	return &row, nil
}

// fakeFeed is a Subscriber whose channels the test controls
type fakeFeed struct {
	mu       sync.Mutex
	channels []*realtime.Channel
	failNext int
	echo     bool
	subs     chan struct{}
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{subs: make(chan struct{}, 16)}
}

func (f *fakeFeed) Subscribe(_ context.Context, table string, _ realtime.EventType) (*realtime.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return nil, errRemote
	}
	ch := realtime.NewChannel(16)
	f.channels = append(f.channels, ch)
	f.subs <- struct{}{}
	return ch, nil
}

func (f *fakeFeed) current() *realtime.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.channels) == 0 {
		return nil
	}
	return f.channels[len(f.channels)-1]
}

func (f *fakeFeed) send(typ realtime.EventType, m models.Message) {
	ev, err := realtime.NewChangeEvent(messagesTable, typ, m)
	if err != nil {
		panic(err)
	}
	f.current().Deliver(ev)
}

func (f *fakeFeed) emit(typ realtime.EventType, m models.Message) {
	if f == nil || !f.echo || f.current() == nil {
		return
	}
	f.send(typ, m)
}
