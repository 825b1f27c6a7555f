package services

import (
	"context"
	"testing"
	"time"

	"church-site-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEventStore(repo *eventRepo, blobs *fakeBlobs) *EventStore {
	return NewEventStore(repo, blobs, "events", Options{LoadTimeout: 50 * time.Millisecond})
}

var prayerMeeting = EventInput{Title: "Prayer Meeting", Day: "Friday", Time: "7:00 PM"}

func TestEventStore_FallbackSchedule(t *testing.T) {
	repo := newEventRepo()
	repo.listErr = errRemote
	s := newEventStore(repo, newFakeBlobs())

	s.Load(context.Background())

	events := s.Events()
	require.Len(t, events, 6)
	assert.Equal(t, "English Service", events[0].Title)
	assert.False(t, s.Loading())

	_, err := s.UpdateEvent(context.Background(), 1, prayerMeeting, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteEvent(context.Background(), 1), ErrNotFound)
	assert.Len(t, s.Events(), 6)
}

func TestEventStore_EditsStoredRowWhileOnFallback(t *testing.T) {
	image := "https://cdn.test/events/old.png"
	repo := newEventRepo(models.Event{ID: 1, Title: "Bible Study", Day: "Wednesday", Time: "6:00 PM", ImageURL: &image})
	repo.listErr = errRemote
	s := newEventStore(repo, newFakeBlobs())
	s.Load(context.Background())
	require.Equal(t, "English Service", s.Events()[0].Title)

	repo.listErr = nil
	updated, err := s.UpdateEvent(context.Background(), 1, prayerMeeting, nil)
	require.NoError(t, err)
	assert.Equal(t, &image, updated.ImageURL)
	require.Len(t, s.Events(), 1)
	assert.Equal(t, "Prayer Meeting", s.Events()[0].Title)

	require.NoError(t, s.DeleteEvent(context.Background(), 1))
	assert.Empty(t, repo.rows)
}

func TestEventStore_AddReplacesFallback(t *testing.T) {
	blobs := newFakeBlobs()
	s := newEventStore(newEventRepo(), blobs)
	s.Load(context.Background())

	e, err := s.AddEvent(context.Background(), prayerMeeting, imageOf("prayer.png", 64))
	require.NoError(t, err)
	require.NotNil(t, e.ImageURL)

	assert.Equal(t, []models.Event{*e}, s.Events())
}

func TestEventStore_AddRequiresFields(t *testing.T) {
	s := newEventStore(newEventRepo(), newFakeBlobs())
	s.Load(context.Background())

	_, err := s.AddEvent(context.Background(), EventInput{Title: "No day"}, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEventStore_UpdateSwapsImage(t *testing.T) {
	old := "https://cdn.test/events/old.png"
	blobs := newFakeBlobs()
	s := newEventStore(newEventRepo(models.Event{ID: 9, Title: "Choir", Day: "Saturday", Time: "4 PM", ImageURL: &old}), blobs)
	s.Load(context.Background())

	in := EventInput{Title: "Choir Rehearsal", Day: "Saturday", Time: "5 PM"}
	updated, err := s.UpdateEvent(context.Background(), 9, in, imageOf("choir.png", 32))
	require.NoError(t, err)

	assert.Equal(t, "Choir Rehearsal", s.Events()[0].Title)
	assert.NotEqual(t, old, *updated.ImageURL)
	assert.Equal(t, []string{"events/old.png"}, blobs.removed)

	_, err = s.UpdateEvent(context.Background(), 404, in, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEventStore_Delete(t *testing.T) {
	s := newEventStore(newEventRepo(models.Event{ID: 9, Title: "Choir"}, models.Event{ID: 10, Title: "Youth"}), newFakeBlobs())
	s.Load(context.Background())

	require.NoError(t, s.DeleteEvent(context.Background(), 9))
	require.Len(t, s.Events(), 1)
	assert.Equal(t, int64(10), s.Events()[0].ID)
}

func TestEventStore_UploadTimeout(t *testing.T) {
	blobs := newFakeBlobs()
	blobs.delay = time.Second
	s := NewEventStore(newEventRepo(), blobs, "events", Options{UploadTimeout: 20 * time.Millisecond})

	_, err := s.AddEvent(context.Background(), prayerMeeting, imageOf("slow.png", 8))
	assert.ErrorIs(t, err, ErrTimeout)
}
