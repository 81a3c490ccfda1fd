package dummydb

import (
	"context"
	"time"

	"github.com/trezcool/tributes/core/session"
)

type sessionRepository struct {
	db *sessionTable
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *DB) session.Repository {
	return &sessionRepository{db: db.session}
}

func (repo *sessionRepository) CreateSession(_ context.Context, s session.Session) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[s.ID] = s
	return nil
}

func (repo *sessionRepository) GetSession(_ context.Context, id string) (session.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return s, nil
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) DeleteSession(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	delete(repo.db.table, id)
	return nil
}

func (repo *sessionRepository) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var deleted int64
	for id, s := range repo.db.table {
		if s.Expired(now) {
			delete(repo.db.table, id)
			deleted++
		}
	}
	return deleted, nil
}

// CountSessions is used by tests to check the store was left alone.
func (db *DB) CountSessions() int {
	db.session.RLock()
	defer db.session.RUnlock()
	return len(db.session.table)
}
