package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adpilot-ai/adpilot/internal/fault"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

// Key layout. Values are JSON; lists are right-pushed.
const (
	keyHistoryPrefix      = "conversation:history:"
	keyStatePrefix        = "agent:state:"
	keyObservationsPrefix = "agent:tools:"
	keyLockPrefix         = "agent:lock:"
)

// RedisStore is the Redis-backed session memory.
type RedisStore struct {
	client *redis.Client
	limits Limits
	logger *slog.Logger
}

// NewRedisStore creates a session store over the given Redis client.
func NewRedisStore(client *redis.Client, limits Limits, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{client: client, limits: limits.sanitized(), logger: logger}
}

// AppendMessage pushes, trims, and refreshes the TTL in one pipeline
// round-trip so the append is atomic for the session.
func (s *RedisStore) AppendMessage(ctx context.Context, sessionID string, msg models.Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fault.Wrap(fault.CodeInternal, err)
	}

	key := keyHistoryPrefix + sessionID
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-s.limits.HistoryLimit), -1)
	pipe.Expire(ctx, key, s.limits.HistoryTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fault.Wrap(fault.CodeDB, fmt.Errorf("append message: %w", err))
	}
	return nil
}

// LoadLog returns the most recent limit messages in chronological order.
func (s *RedisStore) LoadLog(ctx context.Context, sessionID string, limit int) ([]models.Message, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raw, err := s.client.LRange(ctx, keyHistoryPrefix+sessionID, start, -1).Result()
	if err != nil {
		s.logger.Warn("session log read failed, returning empty",
			"error", err, "session_id", sessionID)
		return nil, nil
	}

	messages := make([]models.Message, 0, len(raw))
	for _, item := range raw {
		var msg models.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			s.logger.Warn("skipping malformed log entry", "error", err, "session_id", sessionID)
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// SaveState overwrites the execution state with its TTL.
func (s *RedisStore) SaveState(ctx context.Context, sessionID string, state *State) error {
	state.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(state)
	if err != nil {
		return fault.Wrap(fault.CodeInternal, err)
	}
	if err := s.client.Set(ctx, keyStatePrefix+sessionID, data, s.limits.StateTTL).Err(); err != nil {
		return fault.Wrap(fault.CodeDB, fmt.Errorf("save state: %w", err))
	}
	return nil
}

// LoadState returns the execution state, or nil when absent.
func (s *RedisStore) LoadState(ctx context.Context, sessionID string) (*State, error) {
	raw, err := s.client.Get(ctx, keyStatePrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		s.logger.Warn("session state read failed, returning empty",
			"error", err, "session_id", sessionID)
		return nil, nil
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		s.logger.Warn("discarding malformed session state", "error", err, "session_id", sessionID)
		return nil, nil
	}
	return &state, nil
}

// ClearState deletes the execution state.
func (s *RedisStore) ClearState(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, keyStatePrefix+sessionID).Err(); err != nil {
		return fault.Wrap(fault.CodeDB, fmt.Errorf("clear state: %w", err))
	}
	return nil
}

// RecordObservation pushes onto the observation ring, trims, and refreshes
// the TTL.
func (s *RedisStore) RecordObservation(ctx context.Context, sessionID string, obs models.Observation) error {
	if obs.Timestamp.IsZero() {
		obs.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(obs)
	if err != nil {
		return fault.Wrap(fault.CodeInternal, err)
	}

	key := keyObservationsPrefix + sessionID
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-s.limits.ObservationLimit), -1)
	pipe.Expire(ctx, key, s.limits.HistoryTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fault.Wrap(fault.CodeDB, fmt.Errorf("record observation: %w", err))
	}
	return nil
}

// LoadObservations returns the most recent limit observations in
// chronological order.
func (s *RedisStore) LoadObservations(ctx context.Context, sessionID string, limit int) ([]models.Observation, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raw, err := s.client.LRange(ctx, keyObservationsPrefix+sessionID, start, -1).Result()
	if err != nil {
		s.logger.Warn("observation read failed, returning empty",
			"error", err, "session_id", sessionID)
		return nil, nil
	}

	observations := make([]models.Observation, 0, len(raw))
	for _, item := range raw {
		var obs models.Observation
		if err := json.Unmarshal([]byte(item), &obs); err != nil {
			continue
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

// ClearSession deletes all keys belonging to the session.
func (s *RedisStore) ClearSession(ctx context.Context, sessionID string) error {
	err := s.client.Del(ctx,
		keyHistoryPrefix+sessionID,
		keyStatePrefix+sessionID,
		keyObservationsPrefix+sessionID,
	).Err()
	if err != nil {
		return fault.Wrap(fault.CodeDB, fmt.Errorf("clear session: %w", err))
	}
	return nil
}

// releaseScript deletes the lock only when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends the lease only when the caller still owns it.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker implements the advisory per-session lock with a SETNX lease
// refreshed by a heartbeat while held.
type RedisLocker struct {
	client *redis.Client
	limits Limits
	logger *slog.Logger

	// pollInterval is how often a waiter re-attempts acquisition.
	pollInterval time.Duration
}

// NewRedisLocker creates a Redis-backed session locker.
func NewRedisLocker(client *redis.Client, limits Limits, logger *slog.Logger) *RedisLocker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLocker{
		client:       client,
		limits:       limits.sanitized(),
		logger:       logger,
		pollInterval: 200 * time.Millisecond,
	}
}

// Acquire obtains the lock for ownerID, polling until the configured
// timeout. The returned release function stops the heartbeat and deletes
// the lock if still owned.
func (l *RedisLocker) Acquire(ctx context.Context, sessionID, ownerID string) (func(), error) {
	key := keyLockPrefix + sessionID
	deadline := time.Now().Add(l.limits.LockTimeout)

	for {
		ok, err := l.client.SetNX(ctx, key, ownerID, l.limits.LockTTL).Result()
		if err != nil {
			return nil, fault.Wrap(fault.CodeDB, fmt.Errorf("acquire session lock: %w", err))
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fault.Busy(sessionID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.pollInterval):
		}
	}

	heartbeatCtx, stopHeartbeat := context.WithCancel(context.Background())
	go l.heartbeat(heartbeatCtx, key, ownerID)

	release := func() {
		stopHeartbeat()
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, ownerID).Err(); err != nil {
			l.logger.Warn("session lock release failed", "error", err, "session_id", sessionID)
		}
	}
	return release, nil
}

// heartbeat refreshes the lease at a third of its TTL until stopped.
func (l *RedisLocker) heartbeat(ctx context.Context, key, ownerID string) {
	interval := l.limits.LockTTL / 3
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := refreshScript.Run(ctx, l.client, []string{key}, ownerID, l.limits.LockTTL.Milliseconds()).Err()
			if err != nil && !errors.Is(err, context.Canceled) {
				l.logger.Warn("session lock heartbeat failed", "error", err, "key", key)
			}
		}
	}
}
