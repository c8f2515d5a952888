package session_object

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/blevesearch/bleve"

	"github.com/nestegg-labs/nestegg/internal/dialogue"
	"github.com/nestegg-labs/nestegg/internal/whatif"
	"github.com/nestegg-labs/nestegg/session"
	"github.com/nestegg-labs/nestegg/session/session_models"
)

// Session is the per-session state holder. The conversation transcript is
// mirrored into an in-memory bleve index for full-text lookup; the index
// lives and dies with the session.
type Session struct {
	id        string
	userID    string
	expiresAt time.Time
	inFlight  atomic.Bool

	mu      sync.RWMutex
	index   bleve.Index
	indexed int
	meta    map[string]dialogue.Turn

	state  *dialogue.State
	whatIf whatif.State
}

func NewSession(id, userID string, ttl time.Duration) (*Session, error) {
	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Session{
		id:        id,
		userID:    userID,
		expiresAt: time.Now().Add(ttl),
		index:     index,
		meta:      make(map[string]dialogue.Turn),
		state:     dialogue.NewState(),
	}, nil
}

func (s *Session) ID() string     { return s.id }
func (s *Session) UserID() string { return s.userID }

func (s *Session) Expire(ttl time.Duration) {
	s.mu.Lock()
	s.expiresAt = time.Now().Add(ttl)
	s.mu.Unlock()
}

func (s *Session) Expired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.After(s.expiresAt)
}

// BeginAction claims the session for a single user action. A second claim
// before EndAction fails; this is what rejects overlapping advances.
func (s *Session) BeginAction() error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return session.ErrBusy
	}
	return nil
}

func (s *Session) EndAction() { s.inFlight.Store(false) }

// Update runs fn against the dialogue state under the write lock. Every
// conversation mutation goes through here, so readers taking Snapshot
// never observe a half-applied event.
func (s *Session) Update(fn func(*dialogue.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// Snapshot returns a copy of the dialogue state that is safe to read while
// other actions mutate the session.
func (s *Session) Snapshot() dialogue.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := *s.state
	snap.Turns = append([]dialogue.Turn(nil), s.state.Turns...)
	answered := make(map[string]bool, len(s.state.Answered))
	for id, done := range s.state.Answered {
		answered[id] = done
	}
	snap.Answered = answered
	return snap
}

func (s *Session) WhatIf() whatif.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.whatIf
}

func (s *Session) SetWhatIf(st whatif.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.whatIf = st
}

type indexedTurn struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// IndexTurns indexes any transcript turns appended since the last call.
// Turns are append-only, so a high-water mark is enough.
func (s *Session) IndexTurns() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ; s.indexed < len(s.state.Turns); s.indexed++ {
		turn := s.state.Turns[s.indexed]
		s.meta[turn.ID] = turn
		doc := indexedTurn{Author: string(turn.Author), Text: turn.Text}
		if err := s.index.Index(turn.ID, doc); err != nil {
			return err
		}
	}
	return nil
}

// SearchTurns runs a query-string search over the indexed transcript.
func (s *Session) SearchTurns(q string, k int) ([]session_models.TurnHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 {
		k = 10
	}
	query := bleve.NewQueryStringQuery(q)
	req := bleve.NewSearchRequestOptions(query, k, 0, false)
	res, err := s.index.Search(req)
	if err != nil {
		return nil, err
	}
	var out []session_models.TurnHit
	for i, hit := range res.Hits {
		turn := s.meta[hit.ID]
		out = append(out, session_models.TurnHit{
			TurnID: hit.ID,
			Author: string(turn.Author),
			Text:   turn.Text,
			Score:  hit.Score,
			Rank:   i + 1,
		})
	}
	return out, nil
}

// Close releases the in-memory index.
func (s *Session) Close() error { return s.index.Close() }
