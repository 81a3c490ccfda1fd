package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/tributes/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound        = errors.New("session not found")
	ErrInvalidPassword = errors.New("Invalid password")
	ErrNotConfigured   = errors.New("Admin password not configured")

	errPasswordRequired = "Password is required"
)

// Session is an authenticated admin session, identified by an opaque id.
type Session struct {
	ID        string    `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

type (
	Repository interface {
		CreateSession(ctx context.Context, s Session) error
		// GetSession returns ErrNotFound if no session exists with that id.
		GetSession(ctx context.Context, id string) (Session, error)
		DeleteSession(ctx context.Context, id string) error
		DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	}

	Service struct {
		repo         Repository
		passwordHash []byte
		ttl          time.Duration
	}
)

func NewService(repo Repository, passwordHash string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		repo:         repo,
		passwordHash: []byte(passwordHash),
		ttl:          ttl,
	}
}

func (svc *Service) TTL() time.Duration { return svc.ttl }

// Login checks the admin password and opens a new session.
func (svc *Service) Login(ctx context.Context, password string) (Session, error) {
	if password == "" {
		return Session{}, core.NewValidationMessage(errPasswordRequired)
	}
	if len(svc.passwordHash) == 0 {
		return Session{}, ErrNotConfigured
	}
	if err := bcrypt.CompareHashAndPassword(svc.passwordHash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return Session{}, ErrInvalidPassword
		}
		return Session{}, pkgerrors.Wrap(err, "comparing password hash")
	}

	now := NowFunc().UTC()
	s := Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		ExpiresAt: now.Add(svc.ttl),
	}
	if err := svc.repo.CreateSession(ctx, s); err != nil {
		return Session{}, pkgerrors.Wrap(err, "creating session")
	}
	return s, nil
}

// Get returns the live session behind token. Expired sessions are destroyed on sight and
// reported as ErrNotFound.
func (svc *Service) Get(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrNotFound
	}
	s, err := svc.repo.GetSession(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if s.Expired(NowFunc()) {
		if err := svc.repo.DeleteSession(ctx, s.ID); err != nil {
			return Session{}, pkgerrors.Wrap(err, "deleting expired session")
		}
		return Session{}, ErrNotFound
	}
	return s, nil
}

// Validate reports whether token identifies a live session.
func (svc *Service) Validate(ctx context.Context, token string) (bool, error) {
	if _, err := svc.Get(ctx, token); err != nil {
		if errors.Is(pkgerrors.Cause(err), ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Logout destroys the session. Unknown sessions are ignored.
func (svc *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return svc.repo.DeleteSession(ctx, token)
}

// PurgeExpired removes every expired session.
func (svc *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return svc.repo.DeleteExpiredSessions(ctx, NowFunc().UTC())
}
