// Package auth is the session side of the data gateway: password sign-in,
// signed session tokens backed by a Redis registry, and auth state listeners.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"church-site-backend/internal/models"
	"church-site-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// Event is an auth state transition delivered to listeners
type Event string

const (
	SignedIn  Event = "SIGNED_IN"
	SignedOut Event = "SIGNED_OUT"
)

const sessionKeyPrefix = "church:session:"

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrInvalidSession is returned for a malformed, expired or revoked token
	ErrInvalidSession = errors.New("invalid session")
)

// UserStore persists credential records
type UserStore interface {
	Create(ctx context.Context, user *models.AuthUser) error
	GetByEmail(ctx context.Context, email string) (*models.AuthUser, error)
	GetByID(ctx context.Context, id string) (*models.AuthUser, error)
}

// Session is an active sign-in
type Session struct {
	Token     string    `json:"access_token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	id        string
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Listener observes sign-in and sign-out transitions
type Listener func(event Event, session Session)

// Service handles authentication
type Service struct {
	users      UserStore
	redis      *redis.Client
	jwtSecret  []byte
	sessionTTL time.Duration
	bcryptCost int
	now        func() time.Time

	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

// NewService creates a new auth service
func NewService(users UserStore, rdb *redis.Client, jwtSecret string, sessionTTL time.Duration) *Service {
	return &Service{
		users:      users,
		redis:      rdb,
		jwtSecret:  []byte(jwtSecret),
		sessionTTL: sessionTTL,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
		listeners:  make(map[int]Listener),
	}
}

// CreateUser registers credentials for a new dashboard user
func (s *Service) CreateUser(ctx context.Context, email, password string) (*models.AuthUser, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.AuthUser{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// SignInWithPassword checks credentials and opens a session
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	session := Session{
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: now.Add(s.sessionTTL),
		id:        uuid.New().String(),
	}
	session.Token, err = s.generateJWT(session, now)
	if err != nil {
		return nil, err
	}

	if err := s.redis.Set(ctx, sessionKeyPrefix+session.id, user.ID, s.sessionTTL).Err(); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	log.Info().Str("user_id", user.ID).Msg("User signed in")
	s.notify(SignedIn, session)
	return &session, nil
}

// GetSession validates a token against its signature and the session registry
func (s *Service) GetSession(ctx context.Context, token string) (*Session, error) {
	session, err := s.parseJWT(token)
	if err != nil {
		return nil, err
	}

	userID, err := s.redis.Get(ctx, sessionKeyPrefix+session.id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if userID != session.UserID {
		return nil, ErrInvalidSession
	}
	return session, nil
}

// SignOut revokes the session behind token
func (s *Service) SignOut(ctx context.Context, token string) error {
	session, err := s.parseJWT(token)
	if err != nil {
		return err
	}
	if err := s.redis.Del(ctx, sessionKeyPrefix+session.id).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	log.Info().Str("user_id", session.UserID).Msg("User signed out")
	s.notify(SignedOut, *session)
	return nil
}

// OnAuthStateChange registers fn for every sign-in and sign-out. Calling the
// returned function removes it.
func (s *Service) OnAuthStateChange(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Service) notify(event Event, session Session) {
	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(event, session)
	}
}

// generateJWT signs the session claims
func (s *Service) generateJWT(session Session, now time.Time) (string, error) {
	claims := sessionClaims{
		Email: session.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			ID:        session.id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// parseJWT validates the signature and expiry of a token
func (s *Service) parseJWT(tokenString string) (*Session, error) {
	if tokenString == "" {
		return nil, ErrInvalidSession
	}

	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidSession
	}

	session := &Session{
		Token:  tokenString,
		UserID: claims.Subject,
		Email:  claims.Email,
		id:     claims.ID,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
