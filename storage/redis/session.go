package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/tributes/core/session"
)

const sessionKeyPrefix = "tributes:admin_session:"

// sessionRepository stores each session under its own key, expiring along with the session.
type sessionRepository struct {
	client *redis.Client
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(client *redis.Client) *sessionRepository {
	return &sessionRepository{client: client}
}

func (repo sessionRepository) CreateSession(ctx context.Context, s session.Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		// already expired; keep it around briefly so that lookups still find it and clean it up
		ttl = time.Second
	}
	data, err := json.Marshal(s)
	if err != nil {
		return pkgerrors.Wrap(err, "encoding session")
	}
	return pkgerrors.Wrap(repo.client.Set(ctx, sessionKeyPrefix+s.ID, data, ttl).Err(), "storing session")
}

func (repo sessionRepository) GetSession(ctx context.Context, id string) (session.Session, error) {
	data, err := repo.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return session.Session{}, session.ErrNotFound
	}
	if err != nil {
		return session.Session{}, pkgerrors.Wrap(err, "reading session")
	}

	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return session.Session{}, pkgerrors.Wrap(err, "decoding session")
	}
	return s, nil
}

func (repo sessionRepository) DeleteSession(ctx context.Context, id string) error {
	return pkgerrors.Wrap(repo.client.Del(ctx, sessionKeyPrefix+id).Err(), "deleting session")
}

// DeleteExpiredSessions scans for sessions past their expiry. Redis expires keys on its own,
// so this only catches sessions whose key outlived them.
func (repo sessionRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64
	iter := repo.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := repo.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return deleted, pkgerrors.Wrap(err, "reading session")
		}
		var s session.Session
		if err := json.Unmarshal(data, &s); err != nil || s.Expired(now) {
			n, err := repo.client.Del(ctx, key).Result()
			if err != nil {
				return deleted, pkgerrors.Wrap(err, "deleting session")
			}
			deleted += n
		}
	}
	return deleted, pkgerrors.Wrap(iter.Err(), "scanning sessions")
}
