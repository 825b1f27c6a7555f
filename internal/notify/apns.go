// Package notify pushes inbox alerts to the devices of dashboard users.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"church-site-backend/internal/config"
	"church-site-backend/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

const pushTimeout = 10 * time.Second

// Pusher sends one notification to APNs
type Pusher interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// TokenSource lists the registered device tokens
type TokenSource interface {
	ListPushTokens(ctx context.Context) ([]string, error)
	ClearPushToken(ctx context.Context, pushToken string) error
}

// Notifier alerts admins about new prayer requests and testimonies
type Notifier struct {
	client Pusher
	topic  string
	tokens TokenSource

	wg sync.WaitGroup
}

// NewAPNsNotifier builds a token-authenticated APNs client from cfg
func NewAPNsNotifier(cfg config.APNsConfig, tokens TokenSource) (*Notifier, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return NewNotifier(client, cfg.Topic, tokens), nil
}

// NewNotifier creates a notifier on an existing APNs client
func NewNotifier(client Pusher, topic string, tokens TokenSource) *Notifier {
	return &Notifier{client: client, topic: topic, tokens: tokens}
}

// Enqueue sends the alert for m in the background
func (n *Notifier) Enqueue(m models.Message) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := n.NotifyNewMessage(ctx, m); err != nil {
			log.Error().Err(err).Str("message_id", m.ID).Msg("Failed to send push notifications")
		}
	}()
}

// Wait blocks until queued alerts are sent
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// NotifyNewMessage pushes an alert for m to every registered device
func (n *Notifier) NotifyNewMessage(ctx context.Context, m models.Message) error {
	tokens, err := n.tokens.ListPushTokens(ctx)
	if err != nil {
		return fmt.Errorf("failed to list push tokens: %w", err)
	}

	body := payload.NewPayload().
		AlertTitle("New " + m.Type).
		AlertBody(fmt.Sprintf("%s sent a %s", m.Name, m.Type)).
		Sound("default").
		Custom("message_id", m.ID)

	sent := 0
	for _, deviceToken := range tokens {
		res, err := n.client.PushWithContext(ctx, &apns2.Notification{
			DeviceToken: deviceToken,
			Topic:       n.topic,
			Payload:     body,
		})
		if err != nil {
			log.Warn().Err(err).Msg("APNs push failed")
			continue
		}
		if !res.Sent() {
			log.Warn().Int("status", res.StatusCode).Str("reason", res.Reason).Msg("APNs rejected notification")
			if res.Reason == apns2.ReasonUnregistered || res.Reason == apns2.ReasonBadDeviceToken {
				if err := n.tokens.ClearPushToken(ctx, deviceToken); err != nil {
					log.Warn().Err(err).Msg("Failed to clear stale push token")
				}
			}
			continue
		}
		sent++
	}

	log.Info().Str("message_id", m.ID).Int("devices", len(tokens)).Int("sent", sent).Msg("Push notifications sent")
	return nil
}
