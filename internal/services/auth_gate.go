package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"church-site-backend/internal/auth"
	"church-site-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// AuthGateway is the session side of the data gateway
type AuthGateway interface {
	SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error)
	GetSession(ctx context.Context, token string) (*auth.Session, error)
	SignOut(ctx context.Context, token string) error
	OnAuthStateChange(fn auth.Listener) (unsubscribe func())
}

// ProfileRepository is the table gateway for profiles
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	Upsert(ctx context.Context, p *models.Profile) error
	UpdatePushToken(ctx context.Context, id string, pushToken *string) error
}

// Identity is a signed-in dashboard user. Profile is nil until the user
// completes the profile form.
type Identity struct {
	UserID          string          `json:"id"`
	Email           string          `json:"email"`
	Profile         *models.Profile `json:"profile"`
	ProfileComplete bool            `json:"is_profile_complete"`
}

// ProfileInput holds the profile form fields
type ProfileInput struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
}

// AuthGate resolves sessions into identities with their profile attached
type AuthGate struct {
	auth     AuthGateway
	profiles ProfileRepository
	opts     Options

	mu         sync.RWMutex
	identities map[string]Identity

	unsubscribe func()
}

// NewAuthGate creates an auth gate and starts following auth state changes
func NewAuthGate(gateway AuthGateway, profiles ProfileRepository, opts Options) *AuthGate {
	g := &AuthGate{
		auth:       gateway,
		profiles:   profiles,
		opts:       opts.withDefaults(),
		identities: make(map[string]Identity),
	}
	g.unsubscribe = gateway.OnAuthStateChange(g.onAuthStateChange)
	return g
}

// Close stops following auth state changes
func (g *AuthGate) Close() {
	g.unsubscribe()
}

func (g *AuthGate) onAuthStateChange(event auth.Event, session auth.Session) {
	switch event {
	case auth.SignedOut:
		g.mu.Lock()
		delete(g.identities, session.UserID)
		g.mu.Unlock()
	case auth.SignedIn:
		ctx, cancel := context.WithTimeout(context.Background(), g.opts.LoadTimeout)
		defer cancel()
		g.refresh(ctx, session.UserID, session.Email)
	}
}

// SignIn checks credentials and returns the new session and identity
func (g *AuthGate) SignIn(ctx context.Context, email, password string) (*auth.Session, *Identity, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, nil, validationError("email and password are required")
	}
	session, err := g.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	identity := g.identity(ctx, session.UserID, session.Email)
	return session, &identity, nil
}

// SignOut ends the session behind token
func (g *AuthGate) SignOut(ctx context.Context, token string) error {
	if err := g.auth.SignOut(ctx, token); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

// Resolve returns the identity behind token. The session check is bounded by
// the load deadline.
func (g *AuthGate) Resolve(ctx context.Context, token string) (*Identity, error) {
	session, err := withDeadline(ctx, g.opts.LoadTimeout, func(ctx context.Context) (*auth.Session, error) {
		return g.auth.GetSession(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	identity := g.identity(ctx, session.UserID, session.Email)
	return &identity, nil
}

// UpdateProfile creates or replaces the profile of userID
func (g *AuthGate) UpdateProfile(ctx context.Context, userID, email string, in ProfileInput) (*Identity, error) {
	if strings.TrimSpace(in.FullName) == "" || strings.TrimSpace(in.PhoneNumber) == "" || strings.TrimSpace(in.Role) == "" {
		return nil, validationError("full name, phone number and role are required")
	}
	profile := &models.Profile{
		ID:          userID,
		FullName:    strings.TrimSpace(in.FullName),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		Role:        strings.TrimSpace(in.Role),
	}
	if err := g.profiles.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	identity := g.refresh(ctx, userID, email)
	return &identity, nil
}

// SetPushToken registers the device that receives inbox notifications for
// userID. An empty token unregisters it.
func (g *AuthGate) SetPushToken(ctx context.Context, userID, email, token string) error {
	var pushToken *string
	if token = strings.TrimSpace(token); token != "" {
		pushToken = &token
	}
	if err := g.profiles.UpdatePushToken(ctx, userID, pushToken); err != nil {
		if errors.Is(err, ErrNotFound) {
			return validationError("complete your profile before registering a device")
		}
		return fmt.Errorf("failed to update push token: %w", err)
	}
	g.refresh(ctx, userID, email)
	return nil
}

func (g *AuthGate) identity(ctx context.Context, userID, email string) Identity {
	g.mu.RLock()
	identity, ok := g.identities[userID]
	g.mu.RUnlock()
	if ok {
		return identity
	}
	return g.refresh(ctx, userID, email)
}

// refresh reloads the profile of userID. A failed read leaves the identity
// without a profile.
func (g *AuthGate) refresh(ctx context.Context, userID, email string) Identity {
	identity := Identity{UserID: userID, Email: email}

	profile, err := g.profiles.GetByID(ctx, userID)
	switch {
	case err == nil:
		identity.Profile = profile
		identity.ProfileComplete = true
	case errors.Is(err, ErrNotFound):
	default:
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to fetch profile")
		return identity
	}

	g.mu.Lock()
	g.identities[userID] = identity
	g.mu.Unlock()
	return identity
}
