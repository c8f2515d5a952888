package inmemory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nestegg-labs/nestegg/session"
	"github.com/nestegg-labs/nestegg/session/session_object"
)

// Store keeps sessions in process memory, keyed by session id.
type Store struct {
	sessions map[string]*session_object.Session
	mu       sync.RWMutex
}

func NewStore() session.Store {
	return &Store{sessions: make(map[string]*session_object.Session)}
}

func (store *Store) Create(userID string, ttl time.Duration) (session.Session, error) {
	sess, err := session_object.NewSession(uuid.NewString(), userID, ttl)
	if err != nil {
		return nil, err
	}
	store.mu.Lock()
	store.sessions[sess.ID()] = sess
	store.mu.Unlock()
	return sess, nil
}

func (store *Store) Get(id string) (session.Session, error) {
	store.mu.RLock()
	sess, ok := store.sessions[id]
	store.mu.RUnlock()
	if !ok || sess.Expired(time.Now()) {
		return nil, session.ErrNotFound
	}
	return sess, nil
}

// Sweep drops expired sessions and releases their indexes, returning the
// number evicted.
func (store *Store) Sweep(now time.Time) int {
	store.mu.Lock()
	defer store.mu.Unlock()
	evicted := 0
	for id, sess := range store.sessions {
		if sess.Expired(now) {
			_ = sess.Close()
			delete(store.sessions, id)
			evicted++
		}
	}
	return evicted
}
