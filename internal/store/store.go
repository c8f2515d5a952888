package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/nestegg-labs/nestegg/models"
)

// Store is the durable side of the service: user accounts and the profiles
// they own. It is the "profile owner" the conversation core hands patches
// to; a patch is applied in a single statement or not at all.
type Store struct {
	DB *sql.DB
}

// NewWithDSN opens a postgres connection pool and verifies it.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)`,
		uuid.NewString(), email, passwordHash)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id, passwordHash string, err error) {
	err = s.DB.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &passwordHash)
	return id, passwordHash, err
}

// GetProfile reads a user's profile, materialized over the field defaults
// so every registered field is present. A user with no stored profile reads
// as the default profile.
func (s *Store) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	var raw []byte
	err := s.DB.QueryRowContext(ctx,
		`SELECT data FROM profiles WHERE user_id=$1`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultProfile(), nil
	}
	if err != nil {
		return nil, err
	}
	var stored models.Patch
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return models.Merge(models.DefaultProfile(), stored), nil
}

// SaveProfile replaces a user's profile wholesale.
func (s *Store) SaveProfile(ctx context.Context, userID string, profile models.Profile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO profiles (user_id, data) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		userID, raw)
	return err
}

// ApplyProfilePatch merges a patch into a user's profile atomically, in a
// single jsonb concatenation. The patch becomes visible on the next
// GetProfile; there is no partially applied state.
func (s *Store) ApplyProfilePatch(ctx context.Context, userID string, patch models.Patch) error {
	if len(patch) == 0 {
		return nil
	}
	raw, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`INSERT INTO profiles (user_id, data) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET data = profiles.data || EXCLUDED.data, updated_at = now()`,
		userID, raw)
	return err
}
