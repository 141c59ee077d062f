// Package redis provides a Sessions repository backed by Redis, for
// deployments where refresh-token sessions should not share the relational
// database. Expiry is delegated to Redis key TTLs.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tabwave/payvault/internal/domain"
	"github.com/tabwave/payvault/internal/store"
)

const (
	sessionKeyPrefix  = "payvault:session:"
	userSetKeyPrefix  = "payvault:user_sessions:"
	defaultSetPadding = time.Minute
)

// Sessions implements store.Sessions on a Redis client. Each session lives
// at session:<token_hash> with a TTL matching its expiry, and its hash is
// tracked in a per-user set so logout-all can enumerate it.
type Sessions struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Sessions {
	return &Sessions{rdb: rdb}
}

func (s *Sessions) CreateSession(ctx context.Context, sess domain.Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return errors.New("redis: session already expired")
	}

	blob, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(sess.TokenHash), blob, ttl)
	pipe.SAdd(ctx, userSetKey(sess.UserID), sess.TokenHash)
	// The set outlives its longest member slightly so sweeps can prune it.
	pipe.Expire(ctx, userSetKey(sess.UserID), ttl+defaultSetPadding)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Sessions) GetSessionByTokenHash(ctx context.Context, hash string) (domain.Session, error) {
	blob, err := s.rdb.Get(ctx, sessionKey(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}

	var sess domain.Session
	if err := json.Unmarshal(blob, &sess); err != nil {
		return domain.Session{}, err
	}
	return sess, nil
}

func (s *Sessions) DeleteSessionByTokenHash(ctx context.Context, hash string) error {
	sess, err := s.GetSessionByTokenHash(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, sessionKey(hash))
	pipe.SRem(ctx, userSetKey(sess.UserID), hash)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Sessions) DeleteSessionsByUser(ctx context.Context, userID int64) (int64, error) {
	hashes, err := s.rdb.SMembers(ctx, userSetKey(userID)).Result()
	if err != nil {
		return 0, err
	}
	if len(hashes) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(hashes))
	for _, h := range hashes {
		keys = append(keys, sessionKey(h))
	}

	deleted, err := s.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, err
	}
	if err := s.rdb.Del(ctx, userSetKey(userID)).Err(); err != nil {
		return deleted, err
	}
	return deleted, nil
}

// DeleteExpiredSessions is a no-op: Redis evicts sessions via key TTLs.
func (s *Sessions) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func sessionKey(hash string) string { return sessionKeyPrefix + hash }

func userSetKey(userID int64) string {
	return userSetKeyPrefix + strconv.FormatInt(userID, 10)
}
