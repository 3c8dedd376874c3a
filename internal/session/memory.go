package session

import (
	"context"
	"sync"
	"time"

	"github.com/adpilot-ai/adpilot/internal/fault"
	"github.com/adpilot-ai/adpilot/pkg/models"
)

// MemoryStore is a thread-safe in-memory Store for tests and single-node
// development. TTLs are honored lazily on read.
type MemoryStore struct {
	mu     sync.Mutex
	limits Limits

	logs      map[string][]models.Message
	logExpiry map[string]time.Time

	states      map[string]*State
	stateExpiry map[string]time.Time

	observations map[string][]models.Observation
	obsExpiry    map[string]time.Time

	now func() time.Time
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore(limits Limits) *MemoryStore {
	return &MemoryStore{
		limits:       limits.sanitized(),
		logs:         make(map[string][]models.Message),
		logExpiry:    make(map[string]time.Time),
		states:       make(map[string]*State),
		stateExpiry:  make(map[string]time.Time),
		observations: make(map[string][]models.Observation),
		obsExpiry:    make(map[string]time.Time),
		now:          time.Now,
	}
}

// SetClock overrides the store's clock for TTL tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// AppendMessage pushes, trims, and refreshes the TTL.
func (s *MemoryStore) AppendMessage(_ context.Context, sessionID string, msg models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now().UTC()
	}
	s.expireLocked(sessionID)

	log := append(s.logs[sessionID], msg)
	if overflow := len(log) - s.limits.HistoryLimit; overflow > 0 {
		log = log[overflow:]
	}
	s.logs[sessionID] = log
	s.logExpiry[sessionID] = s.now().Add(s.limits.HistoryTTL)
	return nil
}

// LoadLog returns the most recent limit messages in chronological order.
func (s *MemoryStore) LoadLog(_ context.Context, sessionID string, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(sessionID)
	log := s.logs[sessionID]
	if limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}
	out := make([]models.Message, len(log))
	copy(out, log)
	return out, nil
}

// SaveState overwrites the execution state.
func (s *MemoryStore) SaveState(_ context.Context, sessionID string, state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.UpdatedAt = s.now().UTC()
	cloned := *state
	s.states[sessionID] = &cloned
	s.stateExpiry[sessionID] = s.now().Add(s.limits.StateTTL)
	return nil
}

// LoadState returns the execution state, or nil when absent or expired.
func (s *MemoryStore) LoadState(_ context.Context, sessionID string) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(sessionID)
	state, ok := s.states[sessionID]
	if !ok {
		return nil, nil
	}
	cloned := *state
	return &cloned, nil
}

// ClearState deletes the execution state.
func (s *MemoryStore) ClearState(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sessionID)
	delete(s.stateExpiry, sessionID)
	return nil
}

// RecordObservation pushes onto the bounded observation ring.
func (s *MemoryStore) RecordObservation(_ context.Context, sessionID string, obs models.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if obs.Timestamp.IsZero() {
		obs.Timestamp = s.now().UTC()
	}
	s.expireLocked(sessionID)

	ring := append(s.observations[sessionID], obs)
	if overflow := len(ring) - s.limits.ObservationLimit; overflow > 0 {
		ring = ring[overflow:]
	}
	s.observations[sessionID] = ring
	s.obsExpiry[sessionID] = s.now().Add(s.limits.HistoryTTL)
	return nil
}

// LoadObservations returns the most recent limit observations.
func (s *MemoryStore) LoadObservations(_ context.Context, sessionID string, limit int) ([]models.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(sessionID)
	ring := s.observations[sessionID]
	if limit > 0 && len(ring) > limit {
		ring = ring[len(ring)-limit:]
	}
	out := make([]models.Observation, len(ring))
	copy(out, ring)
	return out, nil
}

// ClearSession deletes all session keys.
func (s *MemoryStore) ClearSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, sessionID)
	delete(s.logExpiry, sessionID)
	delete(s.states, sessionID)
	delete(s.stateExpiry, sessionID)
	delete(s.observations, sessionID)
	delete(s.obsExpiry, sessionID)
	return nil
}

// expireLocked drops entries whose TTL has lapsed. Callers hold s.mu.
func (s *MemoryStore) expireLocked(sessionID string) {
	now := s.now()
	if exp, ok := s.logExpiry[sessionID]; ok && now.After(exp) {
		delete(s.logs, sessionID)
		delete(s.logExpiry, sessionID)
	}
	if exp, ok := s.stateExpiry[sessionID]; ok && now.After(exp) {
		delete(s.states, sessionID)
		delete(s.stateExpiry, sessionID)
	}
	if exp, ok := s.obsExpiry[sessionID]; ok && now.After(exp) {
		delete(s.observations, sessionID)
		delete(s.obsExpiry, sessionID)
	}
}

// MemoryLocker is an in-process Locker for tests and single-node use.
type MemoryLocker struct {
	mu      sync.Mutex
	owners  map[string]string
	waiters map[string][]chan struct{}
	timeout time.Duration
}

// NewMemoryLocker creates an in-process session locker.
func NewMemoryLocker(timeout time.Duration) *MemoryLocker {
	if timeout <= 0 {
		timeout = DefaultLimits().LockTimeout
	}
	return &MemoryLocker{
		owners:  make(map[string]string),
		waiters: make(map[string][]chan struct{}),
		timeout: timeout,
	}
}

// Acquire obtains the lock, waiting up to the timeout when held.
func (l *MemoryLocker) Acquire(ctx context.Context, sessionID, ownerID string) (func(), error) {
	deadline := time.Now().Add(l.timeout)

	for {
		l.mu.Lock()
		if _, held := l.owners[sessionID]; !held {
			l.owners[sessionID] = ownerID
			l.mu.Unlock()
			return func() { l.release(sessionID, ownerID) }, nil
		}
		wait := make(chan struct{})
		l.waiters[sessionID] = append(l.waiters[sessionID], wait)
		l.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fault.Busy(sessionID)
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-wait:
			timer.Stop()
		case <-timer.C:
			return nil, fault.Busy(sessionID)
		}
	}
}

func (l *MemoryLocker) release(sessionID, ownerID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owners[sessionID] != ownerID {
		return
	}
	delete(l.owners, sessionID)
	for _, wait := range l.waiters[sessionID] {
		close(wait)
	}
	delete(l.waiters, sessionID)
}
