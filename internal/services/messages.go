package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"church-site-backend/internal/models"
	"church-site-backend/internal/realtime"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const messagesTable = "messages"

// MessageRepository is the table gateway for inbox messages. Every write
// returns the stored row with its new version.
type MessageRepository interface {
	List(ctx context.Context) ([]models.Message, error)
	Create(ctx context.Context, m *models.Message) (*models.Message, error)
	MarkRead(ctx context.Context, id string) (*models.Message, error)
	Delete(ctx context.Context, id string) (*models.Message, error)
}

// Subscriber opens change streams on a table
type Subscriber interface {
	Subscribe(ctx context.Context, table string, filter realtime.EventType) (*realtime.Channel, error)
}

// MessageChange is one change applied to the local inbox
type MessageChange struct {
	Type    realtime.EventType `json:"type"`
	Message models.Message     `json:"message"`
}

// MessageWatcher observes applied changes. It runs on the applying goroutine
// and must not block.
type MessageWatcher func(MessageChange)

// MessageInput is a submission from the public contact form
type MessageInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (in MessageInput) validate() error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Message) == "" {
		return validationError("name and message are required")
	}
	if in.Type != models.MessageTypePrayerRequest && in.Type != models.MessageTypeTestimony {
		return validationError("type must be %q or %q", models.MessageTypePrayerRequest, models.MessageTypeTestimony)
	}
	return nil
}

// ReconnectPolicy bounds the exponential backoff between resubscribe attempts
type ReconnectPolicy struct {
	Initial time.Duration
	Max     time.Duration
}

// tombstone remembers a deleted id so a late insert cannot revive it. epoch
// is the resync count when the delete was applied.
type tombstone struct {
	version int64
	epoch   uint64
}

// MessageStore keeps the inbox in sync with the messages table. Every change,
// whether from the realtime feed, a full read or a local mutation, goes
// through apply, which keys on id and lets the higher version win.
type MessageStore struct {
	repo      MessageRepository
	sub       Subscriber
	opts      Options
	reconnect ReconnectPolicy

	mu         sync.RWMutex
	messages   []models.Message
	tombstones map[string]tombstone
	epoch      uint64
	touched    map[string]struct{}
	loading    bool

	readMu sync.Mutex

	watchMu  sync.RWMutex
	watchers map[int]MessageWatcher
	nextID   int

	startOnce sync.Once
	closeOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewMessageStore creates a new message store
func NewMessageStore(repo MessageRepository, sub Subscriber, reconnect ReconnectPolicy, opts Options) *MessageStore {
	if reconnect.Initial <= 0 {
		reconnect.Initial = 500 * time.Millisecond
	}
	if reconnect.Max < reconnect.Initial {
		reconnect.Max = 30 * time.Second
	}
	return &MessageStore{
		repo:       repo,
		sub:        sub,
		opts:       opts.withDefaults(),
		reconnect:  reconnect,
		messages:   []models.Message{},
		tombstones: make(map[string]tombstone),
		loading:    true,
		watchers:   make(map[int]MessageWatcher),
	}
}

// Start subscribes to the change feed and runs the reconciliation loop until
// Close. Call it before Load so no change between the two is missed.
func (s *MessageStore) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
		s.done = make(chan struct{})

		ch, err := s.sub.Subscribe(ctx, messagesTable, realtime.All)
		if err != nil {
			log.Error().Err(err).Msg("Failed to subscribe to message changes, will retry")
			ch = nil
		}
		go s.run(ctx, ch)
	})
}

// Close stops the loop and releases the subscription. It is safe to call
// more than once.
func (s *MessageStore) Close() {
	s.closeOnce.Do(func() {
		s.startOnce.Do(func() {})
		if s.cancel == nil {
			return
		}
		s.cancel()
		<-s.done
	})
}

// Load replaces the inbox with a full read, newest first
func (s *MessageStore) Load(ctx context.Context) {
	if err := s.resync(ctx); err != nil {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}
}

// Loading reports whether the initial read is unresolved
func (s *MessageStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Messages returns the inbox, newest first
func (s *MessageStore) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// UnreadCount returns the number of unread messages
func (s *MessageStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.messages {
		if !m.Read {
			n++
		}
	}
	return n
}

// Watch registers fn for every applied change and returns its cancel func
func (s *MessageStore) Watch(fn MessageWatcher) (cancel func()) {
	s.watchMu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	s.watchMu.Unlock()

	return func() {
		s.watchMu.Lock()
		delete(s.watchers, id)
		s.watchMu.Unlock()
	}
}

// AddMessage stores a submission and applies the stored row
func (s *MessageStore) AddMessage(ctx context.Context, in MessageInput) (*models.Message, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	msg := &models.Message{
		ID:    uuid.New().String(),
		Name:  strings.TrimSpace(in.Name),
		Email: strings.TrimSpace(in.Email),
		Body:  strings.TrimSpace(in.Message),
		Type:  in.Type,
	}

	stored, err := s.repo.Create(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("failed to add message: %w", err)
	}
	s.apply(realtime.Insert, *stored)
	return stored, nil
}

// MarkAsRead flags a message as read
func (s *MessageStore) MarkAsRead(ctx context.Context, id string) (*models.Message, error) {
	stored, err := s.repo.MarkRead(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to mark message as read: %w", err)
	}
	s.apply(realtime.Update, *stored)
	return stored, nil
}

// DeleteMessage removes a message
func (s *MessageStore) DeleteMessage(ctx context.Context, id string) error {
	stored, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	s.apply(realtime.Delete, *stored)
	return nil
}

func (s *MessageStore) run(ctx context.Context, ch *realtime.Channel) {
	defer close(s.done)
	backoff := s.reconnect.Initial

	for {
		if ch == nil {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			next, err := s.sub.Subscribe(ctx, messagesTable, realtime.All)
			if err != nil {
				log.Warn().Err(err).Dur("backoff", backoff).Msg("Message feed resubscribe failed")
				backoff = min(backoff*2, s.reconnect.Max)
				continue
			}
			ch = next
			backoff = s.reconnect.Initial
			log.Info().Msg("Message feed resubscribed, resyncing")
			if err := s.resync(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to resync messages after reconnect")
			}
		}

		select {
		case <-ctx.Done():
			_ = ch.Close()
			return
		case ev := <-ch.Events():
			s.handle(ev)
		case <-ch.Done():
			s.drain(ch)
			log.Warn().Err(ch.Err()).Msg("Message feed lost")
			_ = ch.Close()
			ch = nil
		}
	}
}

// drain applies events that were buffered before the channel ended
func (s *MessageStore) drain(ch *realtime.Channel) {
	for {
		select {
		case ev := <-ch.Events():
			s.handle(ev)
		default:
			return
		}
	}
}

func (s *MessageStore) handle(ev realtime.ChangeEvent) {
	if ev.Table != messagesTable {
		return
	}
	var msg models.Message
	if err := ev.Decode(&msg); err != nil {
		log.Warn().Err(err).Str("type", string(ev.Type)).Msg("Dropping malformed message event")
		return
	}
	if msg.ID == "" {
		return
	}
	s.apply(ev.Type, msg)
}

// resync merges a full read into the inbox. Rows missing from the read are
// dropped unless a change for them was applied while the read was running.
func (s *MessageStore) resync(ctx context.Context) error {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	s.mu.Lock()
	s.touched = make(map[string]struct{})
	s.epoch++
	readEpoch := s.epoch
	s.mu.Unlock()

	rows, err := withDeadline(ctx, s.opts.LoadTimeout, s.repo.List)
	if err != nil {
		s.mu.Lock()
		s.touched = nil
		s.mu.Unlock()
		log.Error().Err(err).Msg("Failed to load messages")
		return err
	}

	var changes []MessageChange
	s.mu.Lock()
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		seen[row.ID] = struct{}{}
		typ := realtime.Insert
		if s.indexLocked(row.ID) >= 0 {
			typ = realtime.Update
		}
		if s.applyLocked(realtime.Insert, row) {
			changes = append(changes, MessageChange{Type: typ, Message: row})
		}
	}
	kept := make([]models.Message, 0, len(s.messages))
	for _, m := range s.messages {
		_, inRead := seen[m.ID]
		_, touched := s.touched[m.ID]
		if inRead || touched {
			kept = append(kept, m)
			continue
		}
		changes = append(changes, MessageChange{Type: realtime.Delete, Message: m})
	}
	s.messages = kept
	s.touched = nil
	// Deletes applied before the read started are reflected in it.
	for id, t := range s.tombstones {
		if t.epoch < readEpoch {
			delete(s.tombstones, id)
		}
	}
	s.loading = false
	s.mu.Unlock()

	for _, c := range changes {
		s.notify(c)
	}
	return nil
}

// apply merges one change and notifies watchers when local state moved
func (s *MessageStore) apply(typ realtime.EventType, msg models.Message) bool {
	s.mu.Lock()
	applied := s.applyLocked(typ, msg)
	if s.touched != nil {
		s.touched[msg.ID] = struct{}{}
	}
	s.mu.Unlock()

	if applied {
		s.notify(MessageChange{Type: typ, Message: msg})
	}
	return applied
}

func (s *MessageStore) applyLocked(typ realtime.EventType, msg models.Message) bool {
	idx := s.indexLocked(msg.ID)

	switch typ {
	case realtime.Insert:
		if _, dead := s.tombstones[msg.ID]; dead {
			return false
		}
		if idx >= 0 {
			if msg.Version <= s.messages[idx].Version {
				return false
			}
			s.messages[idx] = msg
			return true
		}
		s.insertLocked(msg)
		return true

	case realtime.Update:
		if idx < 0 || msg.Version <= s.messages[idx].Version {
			return false
		}
		s.messages[idx] = msg
		return true

	case realtime.Delete:
		if t, ok := s.tombstones[msg.ID]; !ok || msg.Version > t.version {
			s.tombstones[msg.ID] = tombstone{version: msg.Version, epoch: s.epoch}
		}
		if idx < 0 {
			return false
		}
		s.messages = append(s.messages[:idx:idx], s.messages[idx+1:]...)
		return true
	}
	return false
}

func (s *MessageStore) indexLocked(id string) int {
	for i := range s.messages {
		if s.messages[i].ID == id {
			return i
		}
	}
	return -1
}

// insertLocked keeps the inbox ordered newest first
func (s *MessageStore) insertLocked(msg models.Message) {
	pos := len(s.messages)
	for i := range s.messages {
		if !s.messages[i].CreatedAt.After(msg.CreatedAt) {
			pos = i
			break
		}
	}
	s.messages = append(s.messages, models.Message{})
	copy(s.messages[pos+1:], s.messages[pos:])
	s.messages[pos] = msg
}

func (s *MessageStore) notify(change MessageChange) {
	s.watchMu.RLock()
	watchers := make([]MessageWatcher, 0, len(s.watchers))
	for _, fn := range s.watchers {
		watchers = append(watchers, fn)
	}
	s.watchMu.RUnlock()

	for _, fn := range watchers {
		fn(change)
	}
}
