package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"sso-portal/backend/internal/session/domain"
)

const (
	keySessionPrefix = "sess:id:"
	keyTokenPrefix   = "sess:tok:"
	keyUserPrefix    = "sess:user:"
)

// RedisRepository stores sessions in Redis. Each session is written with a
// TTL of its remaining lifetime plus the retention window, so Redis itself
// enforces the retention cutoff; DeleteExpiredBefore exists for symmetry with
// the Postgres repository and for sweeping ahead of the TTL.
type RedisRepository struct {
	rdb       *redis.Client
	retention time.Duration
}

// NewRedisRepository returns a session repository backed by rdb. retention is
// how long expired sessions stay readable before Redis drops them.
func NewRedisRepository(rdb *redis.Client, retention time.Duration) *RedisRepository {
	return &RedisRepository{rdb: rdb, retention: retention}
}

func (r *RedisRepository) ttlFor(s *domain.Session) time.Duration {
	ttl := time.Until(s.ExpiresAt) + r.retention
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func (r *RedisRepository) Create(ctx context.Context, s *domain.Session) error {
	blob, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ttl := r.ttlFor(s)
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, keySessionPrefix+s.ID, blob, ttl)
	pipe.Set(ctx, keyTokenPrefix+s.Token, s.ID, ttl)
	pipe.SAdd(ctx, keyUserPrefix+s.UserID, s.ID)
	pipe.Expire(ctx, keyUserPrefix+s.UserID, r.retention+24*time.Hour*8)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	blob, err := r.rdb.Get(ctx, keySessionPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var s domain.Session
	if err := json.Unmarshal(blob, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	id, err := r.rdb.Get(ctx, keyTokenPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *RedisRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	ids, err := r.rdb.SMembers(ctx, keyUserPrefix+userID).Result()
	if err != nil {
		return nil, err
	}
	var out []*domain.Session
	for _, id := range ids {
		s, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if s == nil {
			// Session aged out of Redis; drop the stale index entry.
			_ = r.rdb.SRem(ctx, keyUserPrefix+userID, id).Err()
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *RedisRepository) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	s, err := r.GetByID(ctx, id)
	if err != nil || s == nil {
		return err
	}
	s.ExpiresAt = expiresAt
	return r.rewrite(ctx, s)
}

func (r *RedisRepository) Deactivate(ctx context.Context, id string) error {
	s, err := r.GetByID(ctx, id)
	if err != nil || s == nil {
		return err
	}
	if !s.Active {
		return nil
	}
	s.Active = false
	return r.rewrite(ctx, s)
}

func (r *RedisRepository) DeactivateAllByUser(ctx context.Context, userID string) (int, error) {
	sessions, err := r.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range sessions {
		if !s.Active {
			continue
		}
		s.Active = false
		if err := r.rewrite(ctx, s); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (r *RedisRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	n := 0
	iter := r.rdb.Scan(ctx, 0, keySessionPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		s, err := r.GetByID(ctx, key[len(keySessionPrefix):])
		if err != nil {
			return n, err
		}
		if s == nil || !s.ExpiresAt.Before(cutoff) {
			continue
		}
		pipe := r.rdb.TxPipeline()
		pipe.Del(ctx, keySessionPrefix+s.ID)
		pipe.Del(ctx, keyTokenPrefix+s.Token)
		pipe.SRem(ctx, keyUserPrefix+s.UserID, s.ID)
		if _, err := pipe.Exec(ctx); err != nil {
			return n, err
		}
		n++
	}
	if err := iter.Err(); err != nil {
		return n, err
	}
	return n, nil
}

func (r *RedisRepository) Stats(ctx context.Context, now, startOfDay time.Time) (domain.Stats, error) {
	var stats domain.Stats
	iter := r.rdb.Scan(ctx, 0, keySessionPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		s, err := r.GetByID(ctx, iter.Val()[len(keySessionPrefix):])
		if err != nil {
			return domain.Stats{}, err
		}
		if s == nil {
			continue
		}
		if s.Active && !s.Expired(now) {
			stats.Active++
		}
		if s.Expired(now) {
			stats.ExpiredRetained++
		}
		if !s.CreatedAt.Before(startOfDay) {
			stats.CreatedToday++
		}
	}
	if err := iter.Err(); err != nil {
		return domain.Stats{}, err
	}
	return stats, nil
}

func (r *RedisRepository) rewrite(ctx context.Context, s *domain.Session) error {
	blob, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ttl := r.ttlFor(s)
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, keySessionPrefix+s.ID, blob, ttl)
	pipe.Set(ctx, keyTokenPrefix+s.Token, s.ID, ttl)
	_, err = pipe.Exec(ctx)
	return err
}
