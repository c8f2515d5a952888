package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/nestegg-labs/nestegg/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return &Store{DB: db}, mock, func() { _ = db.Close() }
}

func TestGetProfileMissingReturnsDefaults(t *testing.T) {
	st, mock, done := newMockStore(t)
	defer done()

	query := regexp.QuoteMeta(`SELECT data FROM profiles WHERE user_id=$1`)
	mock.ExpectQuery(query).WithArgs("u-1").WillReturnError(sql.ErrNoRows)

	profile, err := st.GetProfile(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	want := models.DefaultProfile()
	if len(profile) != len(want) {
		t.Fatalf("expected %d default fields, got %d", len(want), len(profile))
	}
	if got := profile.Number("retirement_age"); got != want.Number("retirement_age") {
		t.Fatalf("retirement_age: got %v want %v", got, want.Number("retirement_age"))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetProfileMergesOverDefaults(t *testing.T) {
	st, mock, done := newMockStore(t)
	defer done()

	query := regexp.QuoteMeta(`SELECT data FROM profiles WHERE user_id=$1`)
	mock.ExpectQuery(query).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"retirement_age": 62, "risk_tolerance": "aggressive"}`)))

	profile, err := st.GetProfile(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got := profile.Number("retirement_age"); got != 62 {
		t.Fatalf("retirement_age: got %v want 62", got)
	}
	if profile["risk_tolerance"] != "aggressive" {
		t.Fatalf("risk_tolerance: got %v", profile["risk_tolerance"])
	}
	// Untouched fields still carry their defaults.
	if got := profile.Number("current_age"); got != models.DefaultProfile().Number("current_age") {
		t.Fatalf("current_age default lost: %v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestApplyProfilePatchSingleStatement(t *testing.T) {
	st, mock, done := newMockStore(t)
	defer done()

	query := regexp.QuoteMeta(`INSERT INTO profiles (user_id, data) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET data = profiles.data || EXCLUDED.data, updated_at = now()`)
	mock.ExpectExec(query).
		WithArgs("u-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	patch := models.Patch{"ss_benefit_at_fra": 2800.0}
	if err := st.ApplyProfilePatch(context.Background(), "u-1", patch); err != nil {
		t.Fatalf("ApplyProfilePatch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestApplyProfilePatchEmptyIsNoop(t *testing.T) {
	st, mock, done := newMockStore(t)
	defer done()

	if err := st.ApplyProfilePatch(context.Background(), "u-1", models.Patch{}); err != nil {
		t.Fatalf("ApplyProfilePatch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveProfileUpserts(t *testing.T) {
	st, mock, done := newMockStore(t)
	defer done()

	query := regexp.QuoteMeta(`INSERT INTO profiles (user_id, data) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`)
	mock.ExpectExec(query).
		WithArgs("u-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := st.SaveProfile(context.Background(), "u-1", models.DefaultProfile()); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateUser(t *testing.T) {
	st, mock, done := newMockStore(t)
	defer done()

	query := regexp.QuoteMeta(`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3)`)
	mock.ExpectExec(query).
		WithArgs(sqlmock.AnyArg(), "a@b.c", "hash").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := st.CreateUser(context.Background(), "a@b.c", "hash"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
