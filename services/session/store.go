package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	sessionPrefix    = "poi:session:"
	activeSessionKey = "poi:sessions:active"
	touchRetries     = 3
)

// ErrUnknownSession is returned for ids that were never started or have
// already ended.
var ErrUnknownSession = errors.New("unknown session")

// Meta is what the transport remembers about a running session.
type Meta struct {
	SessionID    string    `json:"session_id"`
	WorkflowID   string    `json:"workflow_id"`
	RunID        string    `json:"run_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// Store persists session metadata. Active sessions are kept in a sorted set
// scored by last activity so idle ones can be found without a scan.
type Store struct {
	client *redis.Client
	ttl    time.Duration

	beforeTouchCommit func()
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) Get(ctx context.Context, sessionID string) (*Meta, error) {
	data, err := s.client.Get(ctx, sessionPrefix+sessionID).Result()
	if err == redis.Nil {
		return nil, ErrUnknownSession
	}
	if err != nil {
		return nil, err
	}
	var meta Meta
	if err := json.Unmarshal([]byte(data), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) Save(ctx context.Context, meta *Meta) error {
	b, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionPrefix+meta.SessionID, b, s.ttl)
		pipe.ZAdd(ctx, activeSessionKey, &redis.Z{
			Score:  float64(meta.LastActivity.Unix()),
			Member: meta.SessionID,
		})
		return nil
	})
	return err
}

// Touch records activity and extends the metadata TTL. The update is
// dropped if the session ends concurrently, so an ended session is never
// brought back.
func (s *Store) Touch(ctx context.Context, sessionID string, at time.Time) error {
	key := sessionPrefix + sessionID
	for i := 0; i < touchRetries; i++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Result()
			if err == redis.Nil {
				return ErrUnknownSession
			}
			if err != nil {
				return err
			}
			var meta Meta
			if err := json.Unmarshal([]byte(data), &meta); err != nil {
				return err
			}
			meta.LastActivity = at
			b, err := json.Marshal(&meta)
			if err != nil {
				return err
			}
			if s.beforeTouchCommit != nil {
				s.beforeTouchCommit()
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, b, s.ttl)
				pipe.ZAdd(ctx, activeSessionKey, &redis.Z{Score: float64(at.Unix()), Member: sessionID})
				return nil
			})
			return err
		}, key)
		if err != redis.TxFailedErr {
			return err
		}
	}
	return fmt.Errorf("touch session %s: %w", sessionID, redis.TxFailedErr)
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionPrefix+sessionID)
		pipe.ZRem(ctx, activeSessionKey, sessionID)
		return nil
	})
	return err
}

// Active lists every session that has not ended.
func (s *Store) Active(ctx context.Context) ([]string, error) {
	return s.client.ZRange(ctx, activeSessionKey, 0, -1).Result()
}

// IdleSince lists sessions whose last activity is at or before cutoff.
func (s *Store) IdleSince(ctx context.Context, cutoff time.Time) ([]string, error) {
	return s.client.ZRangeByScore(ctx, activeSessionKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff.Unix(), 10),
	}).Result()
}
