// Package session provides durable per-session memory for the agent kernel:
// the conversation log, execution state, tool observation ring, and the
// advisory per-session lock. The production implementation is Redis-backed;
// an in-memory implementation serves tests and single-node development.
package session

import (
	"context"
	"time"

	"github.com/adpilot-ai/adpilot/pkg/models"
)

// Phase is the last-known kernel phase recorded in execution state.
type Phase string

const (
	// PhaseRunning means the loop is actively iterating.
	PhaseRunning Phase = "running"

	// PhaseAwaitingInput means the loop is suspended pending user input.
	// A non-nil pending plan always accompanies this phase.
	PhaseAwaitingInput Phase = "awaiting_input"

	// PhaseDone means the last run reached a terminal state.
	PhaseDone Phase = "done"
)

// State is the kernel's execution state for a session. It is persisted on
// suspension so a resumed run can be reconstructed on any node; no live
// goroutine survives a suspension.
type State struct {
	// Phase is the last-known kernel phase.
	Phase Phase `json:"phase"`

	// Iteration is the loop iteration count at the time of the save.
	Iteration int `json:"iteration"`

	// PendingPlan is the plan awaiting user input, when suspended.
	PendingPlan *models.PlanStep `json:"pending_plan,omitempty"`

	// PendingEval is the evaluation that triggered the suspension.
	PendingEval *models.Evaluation `json:"pending_eval,omitempty"`

	// OperationID is the idempotency key minted for the pending plan. It
	// stays stable across resume so retries and double-resumes do not
	// double-execute mutations.
	OperationID string `json:"operation_id,omitempty"`

	// UpdatedAt is when the state was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the durable per-session memory. Every operation is a single
// round-trip to the backing store. Reads of a nonexistent session return
// empty results, never an error; on backing-store trouble reads degrade to
// empty with a logged warning while writes propagate the error.
type Store interface {
	// AppendMessage pushes a message onto the conversation log, trims the
	// log to its bound, and refreshes the TTL.
	AppendMessage(ctx context.Context, sessionID string, msg models.Message) error

	// LoadLog returns the most recent limit messages in chronological
	// order. limit <= 0 returns the full retained log.
	LoadLog(ctx context.Context, sessionID string, limit int) ([]models.Message, error)

	// SaveState overwrites the execution state with its TTL.
	SaveState(ctx context.Context, sessionID string, state *State) error

	// LoadState returns the execution state, or nil when absent.
	LoadState(ctx context.Context, sessionID string) (*State, error)

	// ClearState deletes the execution state.
	ClearState(ctx context.Context, sessionID string) error

	// RecordObservation pushes onto the bounded observation ring and
	// refreshes its TTL.
	RecordObservation(ctx context.Context, sessionID string, obs models.Observation) error

	// LoadObservations returns the most recent limit observations in
	// chronological order.
	LoadObservations(ctx context.Context, sessionID string, limit int) ([]models.Observation, error)

	// ClearSession deletes all keys belonging to the session.
	ClearSession(ctx context.Context, sessionID string) error
}

// Locker serializes kernel invocations per session via an advisory lock in
// the session store. The lock value is the owning run's id so only the
// owner can release it.
type Locker interface {
	// Acquire obtains the session lock for ownerID, waiting up to the
	// configured timeout when the lock is held. It returns a release
	// function on success. Contention past the timeout fails with a busy
	// fault.
	Acquire(ctx context.Context, sessionID, ownerID string) (release func(), err error)
}

// Limits bounds the session memory and lock behavior.
type Limits struct {
	// HistoryLimit bounds the conversation log (FIFO eviction).
	HistoryLimit int

	// HistoryTTL is the conversation log TTL from last write.
	HistoryTTL time.Duration

	// StateTTL is the execution state TTL.
	StateTTL time.Duration

	// ObservationLimit bounds the observation ring.
	ObservationLimit int

	// LockTTL is the advisory lock lease; refreshed by heartbeat while held.
	LockTTL time.Duration

	// LockTimeout bounds the wait for a contended lock.
	LockTimeout time.Duration
}

// DefaultLimits returns the standard bounds.
func DefaultLimits() Limits {
	return Limits{
		HistoryLimit:     50,
		HistoryTTL:       24 * time.Hour,
		StateTTL:         time.Hour,
		ObservationLimit: 100,
		LockTTL:          30 * time.Second,
		LockTimeout:      30 * time.Second,
	}
}

func (l Limits) sanitized() Limits {
	defaults := DefaultLimits()
	if l.HistoryLimit <= 0 {
		l.HistoryLimit = defaults.HistoryLimit
	}
	if l.HistoryTTL <= 0 {
		l.HistoryTTL = defaults.HistoryTTL
	}
	if l.StateTTL <= 0 {
		l.StateTTL = defaults.StateTTL
	}
	if l.ObservationLimit <= 0 {
		l.ObservationLimit = defaults.ObservationLimit
	}
	if l.LockTTL <= 0 {
		l.LockTTL = defaults.LockTTL
	}
	if l.LockTimeout <= 0 {
		l.LockTimeout = defaults.LockTimeout
	}
	return l
}
