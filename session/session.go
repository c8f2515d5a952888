package session

import (
	"errors"
	"time"

	"github.com/nestegg-labs/nestegg/internal/dialogue"
	"github.com/nestegg-labs/nestegg/internal/whatif"
	"github.com/nestegg-labs/nestegg/session/session_models"
)

// ErrBusy is returned when an action is attempted while another action is
// still in flight for the same session. The sequencer processes one user
// action at a time.
var ErrBusy = errors.New("session is busy handling another action")

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Store manages guided-completion sessions. Sessions are in-memory only
// and TTL-bounded; nothing outlives the session.
type Store interface {
	Create(userID string, ttl time.Duration) (Session, error)
	Get(id string) (Session, error)
	Sweep(now time.Time) int
}

// Session holds all per-session state: the conversation, the answered set,
// and the what-if bookkeeping. Actions must be bracketed by
// BeginAction/EndAction so overlapping advances are rejected rather than
// raced. Conversation state is only reachable through Update and Snapshot,
// which lock against each other, so read handlers never race a mutation in
// flight.
type Session interface {
	ID() string
	UserID() string
	Expire(ttl time.Duration)
	Expired(now time.Time) bool
	BeginAction() error
	EndAction()
	Update(fn func(*dialogue.State) error) error
	Snapshot() dialogue.State
	WhatIf() whatif.State
	SetWhatIf(whatif.State)
	IndexTurns() error
	SearchTurns(q string, k int) ([]session_models.TurnHit, error)
}

// StoreType selects a session store backend.
type StoreType string

const (
	InMemoryStore StoreType = "inmemory"
)
