package store_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nestegg-labs/nestegg/internal/store"
	"github.com/nestegg-labs/nestegg/models"
)

func TestProfilePatchRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		tcPostgres.WithDatabase("nestegg"),
		tcPostgres.WithUsername("nestegg"),
		tcPostgres.WithPassword("nestegg"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp")),
	)
	if err != nil {
		t.Fatalf("postgres container: %v", err)
	}
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	if err != nil {
		t.Fatalf("postgres host: %v", err)
	}
	port, err := pgC.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("postgres port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://nestegg:nestegg@%s:%s/nestegg?sslmode=disable", host, port.Port())
	if err := applySchema(ctx, dsn); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		t.Fatalf("store init: %v", err)
	}
	defer st.DB.Close()

	if err := st.CreateUser(ctx, "pat@example.com", "hash"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	userID, _, err := st.GetUserByEmail(ctx, "pat@example.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}

	// A fresh user reads as the default profile.
	profile, err := st.GetProfile(ctx, userID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if got := profile.Number("retirement_age"); got != models.DefaultProfile().Number("retirement_age") {
		t.Fatalf("fresh profile retirement_age: got %v", got)
	}

	// Two patches land cumulatively.
	if err := st.ApplyProfilePatch(ctx, userID, models.Patch{"ss_benefit_at_fra": 2800.0}); err != nil {
		t.Fatalf("apply first patch: %v", err)
	}
	if err := st.ApplyProfilePatch(ctx, userID, models.Patch{"retirement_age": 62.0}); err != nil {
		t.Fatalf("apply second patch: %v", err)
	}

	profile, err = st.GetProfile(ctx, userID)
	if err != nil {
		t.Fatalf("get patched profile: %v", err)
	}
	if got := profile.Number("ss_benefit_at_fra"); got != 2800 {
		t.Fatalf("ss_benefit_at_fra: got %v want 2800", got)
	}
	if got := profile.Number("retirement_age"); got != 62 {
		t.Fatalf("retirement_age: got %v want 62", got)
	}
	// Fields the patches never touched keep their defaults.
	if got := profile.Number("current_age"); got != models.DefaultProfile().Number("current_age") {
		t.Fatalf("current_age default lost: %v", got)
	}
}

func applySchema(ctx context.Context, dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	schemaSQL := `
CREATE TABLE IF NOT EXISTS users (
  id UUID PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS profiles (
  user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
  data JSONB NOT NULL DEFAULT '{}'::jsonb,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
	_, err = db.ExecContext(ctx, schemaSQL)
	return err
}
