package repository

import (
	"context"
	"fmt"

	"church-site-backend/internal/models"
	"church-site-backend/internal/realtime"

	"github.com/rs/zerolog/log"
)

const (
	messagesTable  = "messages"
	messageColumns = `id, name, email, message, type, read, version, created_at, updated_at`
)

// ChangePublisher broadcasts committed row changes
type ChangePublisher interface {
	Publish(ctx context.Context, ev realtime.ChangeEvent) error
}

// MessageRepository handles database operations for inbox messages and
// announces every committed change on the realtime feed
type MessageRepository struct {
	db        DBTX
	publisher ChangePublisher
}

// NewMessageRepository creates a new message repository. publisher may be nil.
func NewMessageRepository(db DBTX, publisher ChangePublisher) *MessageRepository {
	return &MessageRepository{db: db, publisher: publisher}
}

func scanMessage(row interface{ Scan(...any) error }, m *models.Message) error {
	return row.Scan(&m.ID, &m.Name, &m.Email, &m.Body, &m.Type, &m.Read, &m.Version, &m.CreatedAt, &m.UpdatedAt)
}

// List returns every message, newest first
func (r *MessageRepository) List(ctx context.Context) ([]models.Message, error) {
	rows, err := r.db.Query(ctx, `SELECT `+messageColumns+` FROM messages ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

// Create inserts a message and returns the stored row
func (r *MessageRepository) Create(ctx context.Context, m *models.Message) (*models.Message, error) {
	query := `
		INSERT INTO messages (id, name, email, message, type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + messageColumns
	var out models.Message
	if err := scanMessage(r.db.QueryRow(ctx, query, m.ID, m.Name, m.Email, m.Body, m.Type), &out); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	r.publish(ctx, realtime.Insert, out)
	return &out, nil
}

// MarkRead flags a message as read and bumps its version
func (r *MessageRepository) MarkRead(ctx context.Context, id string) (*models.Message, error) {
	query := `
		UPDATE messages
		SET read = TRUE, version = version + 1, updated_at = now()
		WHERE id = $1
		RETURNING ` + messageColumns
	var out models.Message
	if err := scanMessage(r.db.QueryRow(ctx, query, id), &out); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("message %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to mark message read: %w", err)
	}
	r.publish(ctx, realtime.Update, out)
	return &out, nil
}

// Delete removes a message and returns its last stored state
func (r *MessageRepository) Delete(ctx context.Context, id string) (*models.Message, error) {
	query := `DELETE FROM messages WHERE id = $1 RETURNING ` + messageColumns
	var out models.Message
	if err := scanMessage(r.db.QueryRow(ctx, query, id), &out); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("message %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to delete message: %w", err)
	}
	// the tombstone outranks the last stored version
	out.Version++
	r.publish(ctx, realtime.Delete, out)
	return &out, nil
}

// publish failures are logged; the row change is already committed
func (r *MessageRepository) publish(ctx context.Context, typ realtime.EventType, m models.Message) {
	if r.publisher == nil {
		return
	}
	ev, err := realtime.NewChangeEvent(messagesTable, typ, m)
	if err == nil {
		err = r.publisher.Publish(ctx, ev)
	}
	if err != nil {
		log.Error().Err(err).Str("message_id", m.ID).Str("type", string(typ)).Msg("Failed to publish message change")
	}
}
