package notify

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"church-site-backend/internal/models"

	"github.com/sideshow/apns2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePusher struct {
	mu      sync.Mutex
	pushed  []*apns2.Notification
	rejects map[string]string
	fail    error
}

func (f *fakePusher) PushWithContext(_ apns2.Context, n *apns2.Notification) (*apns2.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	f.pushed = append(f.pushed, n)
	if reason, ok := f.rejects[n.DeviceToken]; ok {
		return &apns2.Response{StatusCode: http.StatusGone, Reason: reason}, nil
	}
	return &apns2.Response{StatusCode: http.StatusOK}, nil
}

type fakeTokens struct {
	tokens  []string
	cleared []string
	err     error
}

func (f *fakeTokens) ListPushTokens(context.Context) ([]string, error) {
	return f.tokens, f.err
}

func (f *fakeTokens) ClearPushToken(_ context.Context, token string) error {
	f.cleared = append(f.cleared, token)
	return nil
}

func testMessage() models.Message {
	return models.Message{ID: "m1", Name: "Ama", Type: models.MessageTypePrayerRequest, Body: "Pray for me"}
}

func TestNotifyNewMessage_PushesToEveryDevice(t *testing.T) {
	pusher := &fakePusher{}
	tokens := &fakeTokens{tokens: []string{"dev-a", "dev-b"}}
	n := NewNotifier(pusher, "org.church.admin", tokens)

	require.NoError(t, n.NotifyNewMessage(context.Background(), testMessage()))

	require.Len(t, pusher.pushed, 2)
	assert.Equal(t, "dev-a", pusher.pushed[0].DeviceToken)
	assert.Equal(t, "org.church.admin", pusher.pushed[0].Topic)
	assert.Empty(t, tokens.cleared)
}

func TestNotifyNewMessage_ClearsUnregisteredTokens(t *testing.T) {
	pusher := &fakePusher{rejects: map[string]string{"dev-old": apns2.ReasonUnregistered}}
	tokens := &fakeTokens{tokens: []string{"dev-old", "dev-new"}}
	n := NewNotifier(pusher, "topic", tokens)

	require.NoError(t, n.NotifyNewMessage(context.Background(), testMessage()))
	assert.Equal(t, []string{"dev-old"}, tokens.cleared)
}

func TestNotifyNewMessage_TokenListFailure(t *testing.T) {
	n := NewNotifier(&fakePusher{}, "topic", &fakeTokens{err: errors.New("db down")})
	err := n.NotifyNewMessage(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list push tokens")
}

func TestEnqueue_WaitsForDelivery(t *testing.T) {
	pusher := &fakePusher{fail: errors.New("network")}
	n := NewNotifier(pusher, "topic", &fakeTokens{tokens: []string{"dev-a"}})

	n.Enqueue(testMessage())
	n.Wait()
	assert.Empty(t, pusher.pushed)
}
