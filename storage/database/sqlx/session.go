package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/tributes/core/session"
)

type sessionRepository struct {
	db *sqlx.DB
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sql.DB) *sessionRepository {
	return &sessionRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo sessionRepository) CreateSession(ctx context.Context, s session.Session) error {
	_, err := repo.db.NamedExecContext(ctx,
		"INSERT INTO admin_sessions (id, created_at, expires_at) VALUES (:id, :created_at, :expires_at)",
		s,
	)
	return errors.Wrap(err, "inserting session")
}

func (repo sessionRepository) GetSession(ctx context.Context, id string) (session.Session, error) {
	var s session.Session
	err := repo.db.GetContext(ctx, &s, "SELECT id, created_at, expires_at FROM admin_sessions WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, errors.Wrap(err, "finding session")
	}
	s.CreatedAt, s.ExpiresAt = s.CreatedAt.UTC(), s.ExpiresAt.UTC()
	return s, nil
}

func (repo sessionRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, "DELETE FROM admin_sessions WHERE id = $1", id)
	return errors.Wrap(err, "deleting session")
}

func (repo sessionRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM admin_sessions WHERE expires_at <= $1", now.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "deleting expired sessions")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "counting deleted sessions")
}
