package repository

import (
	"context"
	"fmt"

	"church-site-backend/internal/models"
)

// ProfileRepository handles database operations for dashboard profiles
type ProfileRepository struct {
	db DBTX
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByID retrieves the profile of an auth user
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	query := `
		SELECT id, full_name, phone_number, role, push_token, updated_at
		FROM profiles
		WHERE id = $1
	`
	var p models.Profile
	err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.FullName, &p.PhoneNumber, &p.Role, &p.PushToken, &p.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// Upsert creates the profile or replaces its details
func (r *ProfileRepository) Upsert(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO profiles (id, full_name, phone_number, role, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE
		SET full_name = EXCLUDED.full_name, phone_number = EXCLUDED.phone_number,
		    role = EXCLUDED.role, updated_at = now()
		RETURNING push_token, updated_at
	`
	if err := r.db.QueryRow(ctx, query, p.ID, p.FullName, p.PhoneNumber, p.Role).Scan(&p.PushToken, &p.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// UpdatePushToken updates the push token for a profile
func (r *ProfileRepository) UpdatePushToken(ctx context.Context, id string, pushToken *string) error {
	result, err := r.db.Exec(ctx, `UPDATE profiles SET push_token = $1 WHERE id = $2`, pushToken, id)
	if err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	return nil
}

// ClearPushToken unregisters a device token that APNs no longer accepts
func (r *ProfileRepository) ClearPushToken(ctx context.Context, pushToken string) error {
	if _, err := r.db.Exec(ctx, `UPDATE profiles SET push_token = NULL WHERE push_token = $1`, pushToken); err != nil {
		return fmt.Errorf("failed to clear push token: %w", err)
	}
	return nil
}

// ListPushTokens returns every registered device token
func (r *ProfileRepository) ListPushTokens(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT push_token FROM profiles WHERE push_token IS NOT NULL AND push_token <> ''`)
	if err != nil {
		return nil, fmt.Errorf("failed to get push tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("failed to scan push token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating push tokens: %w", err)
	}
	return tokens, nil
}
