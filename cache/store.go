package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheUnavailable wraps every Redis transport failure. Callers treat it as
// a miss and fall through to the durable store; it is never surfaced to a
// request.
var ErrCacheUnavailable = errors.New("cache unavailable")

// Miss is returned when the key is absent. Absence is not an authentication
// decision; only the durable store can make one.
var Miss = redis.Nil

// Store is the thin cache client over a TTL key-value contract: get, set with
// TTL, delete, and refresh TTL. Any store honoring that contract could stand
// in; Redis is the production choice.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a snapshot cache on the given Redis client. prefix
// namespaces the keys.
func NewStore(rdb redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  rdb,
		prefix: prefix,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

// Save writes the snapshot under the session id with the given TTL. The TTL is
// fixed at the session-token lifetime so the entry never outlives the token
// that references it.
//
//	Performance: 1 Redis SET.
func (s *Store) Save(ctx context.Context, sessionID string, snap *Snapshot, ttl time.Duration) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(sessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Get fetches and decodes the snapshot for a session id. Returns [Miss] when
// absent. A corrupt blob is deleted and reported as a miss so the durable path
// can heal the entry.
//
//	Performance: 1 Redis GET.
func (s *Store) Get(ctx context.Context, sessionID string) (*Snapshot, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	snap, err := Decode(data)
	if err != nil {
		_ = s.redis.Del(ctx, s.key(sessionID)).Err()
		return nil, redis.Nil
	}
	return snap, nil
}

// Touch extends the entry's TTL (sliding window). A vanished key is not an
// error: the next lookup simply rehydrates.
//
//	Performance: 1 Redis PEXPIRE.
func (s *Store) Touch(ctx context.Context, sessionID string, ttl time.Duration) error {
	if err := s.redis.PExpire(ctx, s.key(sessionID), ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}

// Delete removes the entry. Idempotent: deleting an absent key succeeds.
//
//	Performance: 1 Redis DEL.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return nil
}
